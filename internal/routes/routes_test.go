package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"score/commons/response"
	"score/commons/routes"
	"score/internal/codec"
	"score/internal/domain"
	"score/internal/handler"
	"score/internal/lock/local"
	"score/internal/logger"
	"score/internal/plan"
	"score/internal/repository/memory"
	"score/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubQueue records sends and reports their count as its size
type stubQueue struct {
	mu   sync.Mutex
	msgs []*domain.ExecutionMessage
}

func (q *stubQueue) Send(_ context.Context, msgs ...*domain.ExecutionMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, msgs...)
	return nil
}

func (q *stubQueue) Size(context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs), nil
}

func (q *stubQueue) StartConsumer(context.Context) error { return nil }

func (q *stubQueue) StopConsumer(context.Context) error { return nil }

func simplePlan(flowID string) *domain.ExecutionPlan {
	return domain.NewExecutionPlan(flowID, 0).AddStep(&domain.ExecutionStep{
		StepID:           0,
		Action:           plan.ActionNoop,
		NavigationAction: plan.NavigationNext,
		Outcomes:         map[string]*int64{domain.OutcomeNext: nil},
	})
}

type server struct {
	router http.Handler
	queue  *stubQueue
	pauses service.PauseResumeService
}

func newServer(t *testing.T) *server {
	t.Helper()
	log := logger.NewNopLogger()

	c := codec.NewJSONCodec()
	store := plan.NewStore()
	registry := plan.NewDefaultRegistry()
	manager := service.NewPlanManager(func(context.Context) ([]*domain.ExecutionPlan, error) {
		return []*domain.ExecutionPlan{simplePlan("hello")}, nil
	}, registry, store, nil, "", log)
	require.NoError(t, manager.Start(context.Background()))

	q := &stubQueue{}
	counters := memory.NewCounterRepository()
	workers := memory.NewWorkerRepository()
	locker := local.NewKeyLocker()
	enqueuer := service.NewEnqueuer(q, c, counters)
	pauses := service.NewPauseResumeService(memory.NewPauseRepository(), counters, c, enqueuer, locker, log)
	coordinator := service.NewSplitJoinCoordinator(memory.NewSplitRepository(), locker, c, store, enqueuer, log)
	runner := service.NewStepRunner(c, store, workers, counters, pauses, coordinator, enqueuer, log)

	deps := routes.RouteDependencies{Logger: log}
	router := routes.NewRouter(routes.RouterConfig{ServiceName: "score", Version: "v1"}, deps)
	InitHealthRoutes(router, handler.NewHealthHandler(log, "score", q, store), log)
	InitExecutionRoutes(router, handler.NewExecutionHandler(log, runner, pauses), log)
	InitWorkerRoutes(router, handler.NewWorkerHandler(log, workers), log)
	InitPlanRoutes(router, handler.NewPlanHandler(log, store, manager, nil, ""), log)

	return &server{router: router, queue: q, pauses: pauses}
}

func (s *server) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var out response.StandardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	data, _ := out.Data.(map[string]any)
	return rec.Code, data
}

func TestHealthAndPlans(t *testing.T) {
	s := newServer(t)

	code, data := s.do(t, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, float64(1), data["plans"])

	code, data = s.do(t, http.MethodGet, "/api/v1/plans", "")
	assert.Equal(t, http.StatusOK, code)
	plans := data["plans"].([]any)
	require.Len(t, plans, 1)
	assert.Equal(t, "hello", plans[0].(map[string]any)["flow_id"])

	code, data = s.do(t, http.MethodPost, "/api/v1/plans/refresh", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "local", data["mode"])
}

func TestStartExecution(t *testing.T) {
	s := newServer(t)

	code, data := s.do(t, http.MethodPost, "/api/v1/flows/hello/executions", `{"variables":{"x":1}}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), data["execution_id"])
	size, _ := s.queue.Size(context.Background())
	assert.Equal(t, 1, size)

	code, _ = s.do(t, http.MethodPost, "/api/v1/flows/nope/executions", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPauseAndResume(t *testing.T) {
	s := newServer(t)

	code, data := s.do(t, http.MethodPost, "/api/v1/executions/12/pause?branch_id=b1", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, data["already_paused"])
	assert.NotNil(t, data["pause_id"])

	code, data = s.do(t, http.MethodPost, "/api/v1/executions/12/pause?branch_id=b1", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, data["already_paused"])

	code, data = s.do(t, http.MethodGet, "/api/v1/executions/12/pause?branch_id=b1", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "USER_PAUSED", data["reason"])
	assert.Equal(t, false, data["has_snapshot"])

	execution := domain.NewExecution(12, "hello", 0, nil)
	execution.SystemContext.BranchID = "b1"
	require.NoError(t, s.pauses.WriteExecutionObject(context.Background(), 12, "b1", execution))

	code, data = s.do(t, http.MethodPost, "/api/v1/executions/12/resume?branch_id=b1", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, data["resumed"])

	code, _ = s.do(t, http.MethodPost, "/api/v1/executions/12/resume?branch_id=b1", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/executions/abc/pause", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestWorkerDirectory(t *testing.T) {
	s := newServer(t)

	code, data := s.do(t, http.MethodPut, "/api/v1/workers/w-1",
		`{"active":true,"status":"UP","host_name":"h1","groups":["gpu"]}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "w-1", data["uuid"])

	code, _ = s.do(t, http.MethodPut, "/api/v1/workers/w-2", `{"active":true,"status":"SLEEPING"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, data = s.do(t, http.MethodGet, "/api/v1/workers?group=gpu", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, data["workers"], 1)

	code, _ = s.do(t, http.MethodGet, "/api/v1/workers", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/workers/missing", "")
	assert.Equal(t, http.StatusNotFound, code)
}
