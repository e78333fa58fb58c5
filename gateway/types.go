package gateway

// submitTasksRequest is the body of POST /submit_tasks: one submission
// per payload entry, sharing exp_id, eq_type, priority and tag.
type submitTasksRequest struct {
	ExpId    string   `json:"exp_id"`
	EqType   string   `json:"eq_type"`
	Payload  []string `json:"payload"`
	Priority int64    `json:"priority"`
	Tag      *string  `json:"tag,omitempty"`
}

type submitTasksResponse struct {
	TaskIds []int64 `json:"eq_task_ids"`
}

type getStatusRequest struct {
	TaskIds []int64 `json:"eq_task_ids"`
}

type taskStatusEntry struct {
	TaskId int64  `json:"eq_task_id"`
	Status string `json:"status"`
}

type getStatusResponse struct {
	Statuses []taskStatusEntry `json:"statuses"`
}

type getWorkerPoolsRequest struct {
	TaskIds []int64 `json:"eq_task_ids"`
}

type taskWorkerPoolEntry struct {
	TaskId     int64  `json:"eq_task_id"`
	WorkerPool string `json:"worker_pool"`
}

type getWorkerPoolsResponse struct {
	WorkerPools []taskWorkerPoolEntry `json:"worker_pools"`
}

type getPrioritiesRequest struct {
	TaskIds []int64 `json:"eq_task_ids"`
}

type getPrioritiesResponse struct {
	Priorities []int64 `json:"priorities"`
}

type updatePrioritiesRequest struct {
	TaskIds     []int64 `json:"eq_task_ids"`
	NewPriority []int64 `json:"new_priority"`
}

type cancelTasksRequest struct {
	TaskIds []int64 `json:"eq_task_ids"`
}

type cancelTasksResponse struct {
	Canceled []int64 `json:"canceled_ids"`
}

type queryResultRequest struct {
	TaskId int64 `json:"eq_task_id"`
}

type queryResultResponse struct {
	Status string `json:"status"`
	Result string `json:"result"`
}

type areQueuesEmptyRequest struct {
	ExpId  string `json:"exp_id"`
	EqType string `json:"eq_type"`
}

type areQueuesEmptyResponse struct {
	Empty bool `json:"empty"`
}

type asCompletedRequest struct {
	TaskIds   []int64 `json:"eq_task_ids"`
	NRequired int     `json:"n_required"`
	BatchSize int     `json:"batch_size"`
}

type completedEntry struct {
	TaskId int64  `json:"eq_task_id"`
	Status string `json:"status"`
	Result string `json:"result"`
}

type asCompletedResponse struct {
	Completed []completedEntry `json:"completed"`
}

type errorResponse struct {
	Error string `json:"error"`
}
