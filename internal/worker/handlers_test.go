package worker

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/suite"

	"github.com/pipeboard/dealpulse/internal/analytics"
	"github.com/pipeboard/dealpulse/internal/config"
	"github.com/pipeboard/dealpulse/internal/db/sqlite"
	"github.com/pipeboard/dealpulse/internal/engine"
	"github.com/pipeboard/dealpulse/internal/scoring"
	"github.com/pipeboard/dealpulse/pkg/models"
)

// newTestService builds a ready Service on a temp sqlite database,
// bypassing async init.
func newTestService(t *testing.T) *Service {
	t.Helper()

	store, err := sqlite.NewStore(sqlite.StoreConfig{
		Path:     filepath.Join(t.TempDir(), "test.db"),
		MaxConns: 1,
	})
	if err != nil {
		t.Fatalf("create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	svc := &Service{
		version:   "test",
		config:    config.Default(),
		router:    chi.NewRouter(),
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}

	deals := sqlite.NewDealStore(store)
	events := sqlite.NewEventStore(store)
	history := sqlite.NewHistoryStore(store)
	queue := sqlite.NewQueueStore(store)
	archStore := sqlite.NewAnalyticsStore(store)

	calc := scoring.NewCalculator(nil)
	recalc := engine.NewRecalculator(deals, events, history, calc, nil, log.Logger)
	processor := engine.NewProcessor(queue, recalc, 100, 2, log.Logger)
	sweeper := engine.NewSweeper(deals, recalc, 23*time.Hour, 100, 2, log.Logger)

	svc.store = store
	svc.deals = deals
	svc.events = events
	svc.history = history
	svc.queue = queue
	svc.analytics = archStore
	svc.calc = calc
	svc.recalc = recalc
	svc.orchestrator = engine.NewOrchestrator(processor, sweeper, log.Logger)
	svc.reporter = analytics.NewArchiveReporter(archStore, log.Logger)

	svc.setupMiddleware()
	svc.setupRoutes()
	svc.ready.Store(true)

	return svc
}

// HandlersSuite exercises the HTTP surface end to end against sqlite.
type HandlersSuite struct {
	suite.Suite
	svc *Service
}

func (s *HandlersSuite) SetupTest() {
	s.svc = newTestService(s.T())
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersSuite))
}

func (s *HandlersSuite) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.svc.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlersSuite) decode(rec *httptest.ResponseRecorder, out interface{}) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), out))
}

func (s *HandlersSuite) createDeal(sentHoursAgo float64) int64 {
	rec := s.do(http.MethodPost, "/api/deals", map[string]interface{}{
		"rep_id":        "rep-1",
		"status":        "sent",
		"sent_at_epoch": time.Now().Add(-time.Duration(sentHoursAgo * float64(time.Hour))).UnixMilli(),
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID int64 `json:"id"`
	}
	s.decode(rec, &resp)
	return resp.ID
}

// =============================================================================
// GOOD SCENARIOS - Expected normal operations
// =============================================================================

func (s *HandlersSuite) TestHealth_GoodScenarios_AlwaysResponds() {
	rec := s.do(http.MethodGet, "/health", nil)

	s.Equal(http.StatusOK, rec.Code)
	var resp map[string]interface{}
	s.decode(rec, &resp)
	s.Equal("ready", resp["status"])
	s.NotEmpty(rec.Header().Get("X-Request-ID"))
}

func (s *HandlersSuite) TestRecalculate_GoodScenarios_ReturnsScoreAndBreakdown() {
	id := s.createDeal(144)

	rec := s.do(http.MethodPost, fmt.Sprintf("/api/deals/%d/recalculate", id), map[string]string{"reason": "manual"})

	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var result models.ScoreResult
	s.decode(rec, &result)
	s.InDelta(97.0, result.Score, 0.001)
	s.Equal(models.StageThriving, result.Stage)
	s.InDelta(3.0, result.Breakdown[models.SignalSilence], 0.001)
}

func (s *HandlersSuite) TestGetScore_GoodScenarios_AfterRecalculation() {
	id := s.createDeal(144)
	s.do(http.MethodPost, fmt.Sprintf("/api/deals/%d/recalculate", id), nil)

	rec := s.do(http.MethodGet, fmt.Sprintf("/api/deals/%d/score", id), nil)

	s.Require().Equal(http.StatusOK, rec.Code)
	var result models.ScoreResult
	s.decode(rec, &result)
	s.InDelta(97.0, result.Score, 0.001)
	s.NotEmpty(result.Breakdown)
}

func (s *HandlersSuite) TestIngestEvent_GoodScenarios_EnqueuesRecalculation() {
	id := s.createDeal(10)

	rec := s.do(http.MethodPost, "/api/events", map[string]interface{}{
		"deal_id":   id,
		"direction": "inbound",
		"channel":   "email",
		"source":    "webhook",
		"dedup_key": "msg-1",
	})

	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var resp map[string]interface{}
	s.decode(rec, &resp)
	s.Equal(true, resp["inserted"])
	s.Equal(true, resp["enqueued"])
}

func (s *HandlersSuite) TestDailyBatch_GoodScenarios_DrainsQueue() {
	id := s.createDeal(200)
	s.do(http.MethodPost, "/api/queue", map[string]interface{}{"deal_id": id, "reason": "communication_sync"})

	rec := s.do(http.MethodPost, "/api/batch/daily", nil)

	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var report models.BatchReport
	s.decode(rec, &report)
	s.Equal(1, report.Queue.Processed)
	s.Equal(1, report.Queue.Succeeded)
}

func (s *HandlersSuite) TestHistory_GoodScenarios_ReturnsEntries() {
	id := s.createDeal(144)
	s.do(http.MethodPost, fmt.Sprintf("/api/deals/%d/recalculate", id), nil)
	s.do(http.MethodPost, fmt.Sprintf("/api/deals/%d/recalculate", id), nil)

	rec := s.do(http.MethodGet, fmt.Sprintf("/api/deals/%d/history", id), nil)

	s.Require().Equal(http.StatusOK, rec.Code)
	var resp struct {
		DealID  int64                      `json:"deal_id"`
		Entries []*models.ScoreHistoryEntry `json:"entries"`
	}
	s.decode(rec, &resp)
	s.Equal(id, resp.DealID)
	s.Len(resp.Entries, 2)
}

func (s *HandlersSuite) TestEngagement_GoodScenarios_RecordsAndEnqueues() {
	id := s.createDeal(10)

	rec := s.do(http.MethodPost, fmt.Sprintf("/api/deals/%d/engagement", id), map[string]string{"kind": "email_opened"})

	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var resp map[string]interface{}
	s.decode(rec, &resp)
	s.Equal(true, resp["enqueued"])
}

func (s *HandlersSuite) TestArchiveAnalytics_GoodScenarios_ReportsLoss() {
	id := s.createDeal(300)
	s.do(http.MethodPost, fmt.Sprintf("/api/deals/%d/archive", id), map[string]string{"reason": "no_response"})

	rec := s.do(http.MethodGet, "/api/analytics/archive", nil)

	s.Require().Equal(http.StatusOK, rec.Code)
	var report models.ArchiveReport
	s.decode(rec, &report)
	s.Equal(1, report.TotalArchived)
	s.Require().NotNil(report.TopReason)
	s.Equal("no_response", report.TopReason.Reason)
}

// =============================================================================
// BAD SCENARIOS - Failure handling
// =============================================================================

func (s *HandlersSuite) TestRecalculate_BadScenarios_UnknownDeal() {
	rec := s.do(http.MethodPost, "/api/deals/9999/recalculate", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlersSuite) TestRecalculate_BadScenarios_TerminalDeal() {
	id := s.createDeal(10)
	s.do(http.MethodPost, fmt.Sprintf("/api/deals/%d/archive", id), map[string]string{"reason": "no_response"})

	rec := s.do(http.MethodPost, fmt.Sprintf("/api/deals/%d/recalculate", id), nil)

	s.Equal(http.StatusConflict, rec.Code)
}

func (s *HandlersSuite) TestGetScore_BadScenarios_NeverScored() {
	id := s.createDeal(10)

	rec := s.do(http.MethodGet, fmt.Sprintf("/api/deals/%d/score", id), nil)

	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlersSuite) TestEngagement_BadScenarios_UnknownKind() {
	id := s.createDeal(10)

	rec := s.do(http.MethodPost, fmt.Sprintf("/api/deals/%d/engagement", id), map[string]string{"kind": "carrier_pigeon"})

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlersSuite) TestIngestEvent_BadScenarios_MissingDealID() {
	rec := s.do(http.MethodPost, "/api/events", map[string]string{"direction": "inbound"})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlersSuite) TestMiddleware_BadScenarios_WrongContentType() {
	req := httptest.NewRequest(http.MethodPost, "/api/queue", bytes.NewBufferString("deal_id=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.svc.router.ServeHTTP(rec, req)

	s.Equal(http.StatusUnsupportedMediaType, rec.Code)
}

// =============================================================================
// EDGE CASES - Boundary and unusual conditions
// =============================================================================

func (s *HandlersSuite) TestIngestEvent_EdgeCases_DuplicateWebhookDelivery() {
	id := s.createDeal(10)
	body := map[string]interface{}{
		"deal_id":   id,
		"direction": "inbound",
		"channel":   "email",
		"source":    "webhook",
		"dedup_key": "msg-dup",
	}

	first := s.do(http.MethodPost, "/api/events", body)
	second := s.do(http.MethodPost, "/api/events", body)

	s.Equal(http.StatusCreated, first.Code)
	s.Equal(http.StatusOK, second.Code, "duplicate delivery is acknowledged, not created")
	var resp map[string]interface{}
	s.decode(second, &resp)
	s.Equal(false, resp["inserted"])
	s.Equal(false, resp["enqueued"])
}

func (s *HandlersSuite) TestEnqueue_EdgeCases_Coalesces() {
	id := s.createDeal(10)
	body := map[string]interface{}{"deal_id": id}

	first := s.do(http.MethodPost, "/api/queue", body)
	second := s.do(http.MethodPost, "/api/queue", body)

	var resp map[string]bool
	s.decode(first, &resp)
	s.True(resp["enqueued"])
	s.decode(second, &resp)
	s.False(resp["enqueued"])
}

func (s *HandlersSuite) TestReady_EdgeCases_NotReadyService() {
	notReady := &Service{
		version: "test",
		config:  config.Default(),
		router:  chi.NewRouter(),
	}
	notReady.setupMiddleware()
	notReady.setupRoutes()

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	notReady.router.ServeHTTP(rec, req)

	s.Equal(http.StatusServiceUnavailable, rec.Code)
}

func (s *HandlersSuite) TestHistory_EdgeCases_EmptyHistoryIsEmptyList() {
	id := s.createDeal(10)

	rec := s.do(http.MethodGet, fmt.Sprintf("/api/deals/%d/history", id), nil)

	s.Require().Equal(http.StatusOK, rec.Code)
	var resp struct {
		Entries []*models.ScoreHistoryEntry `json:"entries"`
	}
	s.decode(rec, &resp)
	s.NotNil(resp.Entries)
	s.Empty(resp.Entries)
}
