package controller

import "github.com/google/uuid"

// PoolToken uniquely identifies one worker-pool registration, so that
// two pools launched for the same experiment and worker-pool name never
// collide when PoolMonitor reports or requeues their in-flight tasks.
type PoolToken uuid.UUID

// NewPoolToken generates a fresh, random PoolToken.
func NewPoolToken() PoolToken {
	return PoolToken(uuid.New())
}

func (t PoolToken) String() string {
	return uuid.UUID(t).String()
}

// WorkerPoolName derives the name a launched pool should pass to
// Puller.ClaimTask: the caller-supplied base name suffixed with this
// token, so that restarted or concurrently-launched pools sharing a base
// name still claim and report under distinct worker-pool identities.
func (t PoolToken) WorkerPoolName(base string) string {
	return base + "-" + t.String()
}
