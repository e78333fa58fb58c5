package eqsql

// TaskQueue composes the four narrow interfaces a full task-queue backend
// implements — Pusher, Puller, Observer, Cleaner — into a single handle, so
// a caller that wants the whole surface (a gateway, a test harness, a
// command's main) doesn't have to wire and pass four separate values
// through its own constructors. Embedding promotes every method of each
// interface directly onto *TaskQueue.
//
// A caller that only needs one concern (a worker pool only claims and
// reports, say) should keep depending on that narrower interface directly
// rather than on TaskQueue; TaskQueue exists for the "I need everything"
// call sites, not as the universal dependency type.
type TaskQueue struct {
	Pusher
	Puller
	Observer
	Cleaner
}

// NewTaskQueue composes the given backend implementations into a TaskQueue.
// Any of the four may be nil if the caller never exercises that concern
// (a gateway, for instance, never calls Cleaner methods); calling a method
// promoted from a nil field panics, the same as any nil interface call.
func NewTaskQueue(pusher Pusher, puller Puller, observer Observer, cleaner Cleaner) *TaskQueue {
	return &TaskQueue{
		Pusher:   pusher,
		Puller:   puller,
		Observer: observer,
		Cleaner:  cleaner,
	}
}
