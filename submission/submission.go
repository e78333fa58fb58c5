package submission

// Submission is the unit of data a Management Engine hands to Pusher.Submit.
//
// It contains only the caller-facing fields: the experiment this task
// belongs to, its type, its initial priority, its payload, and an optional
// tag. Submission does not carry queue identity or lifecycle state; those
// are assigned by the queue engine and returned as a task.Task.
//
// ExpId groups tasks that belong to the same experiment run; it is used to
// scope administrative queries such as are_queues_empty and clear_queues.
//
// Type is an opaque worker-pool-defined task type string, forwarded
// unmodified to whichever worker pool claims the task.
//
// Priority controls claim ordering: higher priority tasks are claimed
// first; ties are broken FIFO by task id. A priority of -1 is reserved as
// the stop-worker-pool sentinel and must not be used for ordinary
// submissions.
//
// Payload is the opaque serialized task body. EQ-SQL never inspects or
// validates its contents.
//
// Tag, when set, is propagated to the resulting task.Task and echoed back
// unchanged on requeue, so a caller can correlate a requeued task with the
// one it replaced.
type Submission struct {
	ExpId    string
	Type     string
	Priority int64
	Payload  string
	Tag      *string
}

// New creates a Submission with the default priority (0) and no tag.
func New(expId, taskType, payload string) *Submission {
	return &Submission{
		ExpId:   expId,
		Type:    taskType,
		Payload: payload,
	}
}

// WithPriority returns a copy of s with Priority set to p.
func (s Submission) WithPriority(p int64) Submission {
	s.Priority = p
	return s
}

// WithTag returns a copy of s with Tag set to tag.
func (s Submission) WithTag(tag string) Submission {
	s.Tag = &tag
	return s
}
