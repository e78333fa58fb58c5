package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/emews/EQ-SQL"
	"github.com/emews/EQ-SQL/submission"
	"github.com/emews/EQ-SQL/task"
)

// Server exposes an eqsql backend over HTTP.
type Server struct {
	queue *eqsql.TaskQueue
	log   *slog.Logger

	auth  AuthConfig
	cache *resultCache

	shutdown chan struct{}
	router   *mux.Router
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithAuth enables bearer JWT auth on every POST route, signed with key.
func WithAuth(key []byte) Option {
	return func(s *Server) { s.auth = AuthConfig{SigningKey: key} }
}

// WithCache enables a short-TTL result cache backed by client, guarding
// query_result against repeated Postgres round trips for popular task
// ids. as_completed does not use the cache.
func WithCache(client *redis.Client, ttl time.Duration) Option {
	return func(s *Server) { s.cache = newResultCache(client, ttl) }
}

// NewServer builds a gateway Server over the given task queue.
func NewServer(queue *eqsql.TaskQueue, log *slog.Logger, opts ...Option) *Server {
	s := &Server{
		queue:    queue,
		log:      log,
		shutdown: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the server's http.Handler, for embedding in a caller's
// own listener setup.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ping", s.handlePing).Methods(http.MethodGet)
	r.HandleFunc("/shutdown", s.handleShutdown).Methods(http.MethodGet)

	post := r.Methods(http.MethodPost).Subrouter()
	post.Use(s.requireAuth)
	post.HandleFunc("/submit_tasks", s.handleSubmitTasks)
	post.HandleFunc("/get_status", s.handleGetStatus)
	post.HandleFunc("/get_worker_pools", s.handleGetWorkerPools)
	post.HandleFunc("/get_priorities", s.handleGetPriorities)
	post.HandleFunc("/update_priorities", s.handleUpdatePriorities)
	post.HandleFunc("/cancel_tasks", s.handleCancelTasks)
	post.HandleFunc("/as_completed", s.handleAsCompleted)
	post.HandleFunc("/query_result", s.handleQueryResult)
	post.HandleFunc("/are_queues_empty", s.handleAreQueuesEmpty)

	return r
}

// Run serves on addr until the process context is canceled or
// GET /shutdown is hit, then gracefully shuts down.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpSrv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case <-s.shutdown:
		s.log.Info("gateway received shutdown request")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("pong"))
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	select {
	case s.shutdown <- struct{}{}:
	default:
	}
	_, _ = w.Write([]byte("server shutting down"))
}

func (s *Server) handleSubmitTasks(w http.ResponseWriter, r *http.Request) {
	var req submitTasksRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	batch := make([]submission.Submission, 0, len(req.Payload))
	for _, payload := range req.Payload {
		sub := submission.New(req.ExpId, req.EqType, payload).WithPriority(req.Priority)
		if req.Tag != nil {
			sub = sub.WithTag(*req.Tag)
		}
		batch = append(batch, sub)
	}
	tasks, err := s.queue.SubmitBatch(r.Context(), batch)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ids := make([]int64, len(tasks))
	for i, t := range tasks {
		ids[i] = t.Id
	}
	writeJSON(w, http.StatusOK, submitTasksResponse{TaskIds: ids})
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	var req getStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entries := make([]taskStatusEntry, 0, len(req.TaskIds))
	for _, id := range req.TaskIds {
		t, status, err := s.queue.QueryStatus(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		entries = append(entries, taskStatusEntry{TaskId: t.Id, Status: status})
	}
	writeJSON(w, http.StatusOK, getStatusResponse{Statuses: entries})
}

func (s *Server) handleGetWorkerPools(w http.ResponseWriter, r *http.Request) {
	var req getWorkerPoolsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entries := make([]taskWorkerPoolEntry, 0, len(req.TaskIds))
	for _, id := range req.TaskIds {
		wp, err := s.queue.QueryWorkerPool(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		entries = append(entries, taskWorkerPoolEntry{TaskId: id, WorkerPool: wp})
	}
	writeJSON(w, http.StatusOK, getWorkerPoolsResponse{WorkerPools: entries})
}

func (s *Server) handleGetPriorities(w http.ResponseWriter, r *http.Request) {
	var req getPrioritiesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	priorities, err := s.queue.QueryPriorities(r.Context(), req.TaskIds)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, getPrioritiesResponse{Priorities: priorities})
}

func (s *Server) handleUpdatePriorities(w http.ResponseWriter, r *http.Request) {
	var req updatePrioritiesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.queue.UpdatePriorities(r.Context(), req.TaskIds, req.NewPriority); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCancelTasks(w http.ResponseWriter, r *http.Request) {
	var req cancelTasksRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	canceled, err := s.queue.CancelTasks(r.Context(), req.TaskIds)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ids := make([]int64, len(canceled))
	for i, t := range canceled {
		ids[i] = t.Id
	}
	writeJSON(w, http.StatusOK, cancelTasksResponse{Canceled: ids})
}

func (s *Server) handleQueryResult(w http.ResponseWriter, r *http.Request) {
	var req queryResultRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if cached, ok := s.cache.get(r.Context(), req.TaskId); ok {
		writeJSON(w, http.StatusOK, queryResultResponse{Status: task.Complete.String(), Result: cached})
		return
	}
	t, status, err := s.queue.QueryStatus(r.Context(), req.TaskId)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if t.Status != task.Complete {
		writeJSON(w, http.StatusOK, queryResultResponse{Status: status, Result: ""})
		return
	}
	result, err := s.queue.QueryResult(r.Context(), req.TaskId)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.cache.set(r.Context(), req.TaskId, result)
	writeJSON(w, http.StatusOK, queryResultResponse{Status: status, Result: result})
}

func (s *Server) handleAreQueuesEmpty(w http.ResponseWriter, r *http.Request) {
	var req areQueuesEmptyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	empty, err := s.queue.AreQueuesEmpty(r.Context(), req.ExpId, req.EqType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, areQueuesEmptyResponse{Empty: empty})
}

// handleAsCompleted implements a single poll round of the as_completed
// protocol: the caller retransmits its outstanding task ids each round
// (the client side tracks completion and shuffles retries), so the
// gateway itself stays stateless between requests.
func (s *Server) handleAsCompleted(w http.ResponseWriter, r *http.Request) {
	var req asCompletedRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	nRequired := req.NRequired
	if nRequired <= 0 {
		nRequired = 1
	}
	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	completed := make([]completedEntry, 0, batchSize)
	for _, id := range req.TaskIds {
		t, status, err := s.queue.QueryStatus(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if t.Status != task.Complete {
			continue
		}
		result, err := s.queue.QueryResult(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		completed = append(completed, completedEntry{TaskId: id, Status: status, Result: result})
		if len(completed) >= batchSize || len(completed) >= nRequired {
			break
		}
	}
	writeJSON(w, http.StatusOK, asCompletedResponse{Completed: completed})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
