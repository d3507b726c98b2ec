package worker

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/pipeboard/dealpulse/internal/db"
	"github.com/pipeboard/dealpulse/pkg/models"
)

// DefaultHistoryLimit is the default number of history entries to return.
const DefaultHistoryLimit = 100

// dealIDParam extracts the {id} URL parameter.
func dealIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// epochOrNow converts an epoch-millisecond field to a time, defaulting
// to now when unset.
func epochOrNow(epoch int64) time.Time {
	if epoch > 0 {
		return time.UnixMilli(epoch)
	}
	return time.Now()
}

// writeDealError maps domain sentinels to HTTP statuses.
func writeDealError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrDealNotFound):
		writeError(w, http.StatusNotFound, "deal not found")
	case errors.Is(err, models.ErrDealTerminal):
		writeError(w, http.StatusConflict, "deal is in a terminal status")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleCreateDeal creates a deal. Minimal surface: enough for webhook
// sync and tests to seed the pipeline.
func (s *Service) handleCreateDeal(w http.ResponseWriter, r *http.Request) {
	var deal models.Deal
	if err := json.NewDecoder(r.Body).Decode(&deal); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if deal.Status == "" {
		deal.Status = models.DealStatusDraft
	}

	id, err := s.deals.CreateDeal(r.Context(), &deal)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// handleRecalculate triggers a recalculation for one deal. With
// async=true the work runs in the background and a 202 is returned.
func (s *Service) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	dealID, err := dealIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid deal id")
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	reason := body.Reason
	if reason == "" {
		reason = models.ReasonManual
	}

	if r.URL.Query().Get("async") == "true" {
		s.recalc.TriggerAsync(r.Context(), dealID, reason)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
		return
	}

	result, err := s.recalc.Recalculate(r.Context(), dealID, reason)
	if err != nil {
		writeDealError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleEngagement records a deal-level engagement ping (email opened,
// proposal sent, proposal viewed) and enqueues a recalculation.
func (s *Service) handleEngagement(w http.ResponseWriter, r *http.Request) {
	dealID, err := dealIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid deal id")
		return
	}

	var body struct {
		Kind            string `json:"kind"`
		OccurredAtEpoch int64  `json:"occurred_at_epoch"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind := db.EngagementKind(body.Kind)
	switch kind {
	case db.EngagementEmailOpened, db.EngagementProposalSent, db.EngagementProposalViewed:
	default:
		writeError(w, http.StatusBadRequest, "unknown engagement kind")
		return
	}

	at := epochOrNow(body.OccurredAtEpoch)
	if err := s.deals.RecordEngagement(r.Context(), dealID, kind, at); err != nil {
		writeDealError(w, err)
		return
	}

	enqueued, err := s.queue.Enqueue(r.Context(), dealID, models.ReasonCommunicationSync)
	if err != nil {
		log.Warn().Err(err).Int64("deal_id", dealID).Msg("Failed to enqueue after engagement")
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "recorded",
		"enqueued": enqueued,
	})
}

// handleArchive archives a deal with a reason.
func (s *Service) handleArchive(w http.ResponseWriter, r *http.Request) {
	dealID, err := dealIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid deal id")
		return
	}

	var body struct {
		Reason          string `json:"reason"`
		ArchivedAtEpoch int64  `json:"archived_at_epoch"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Reason == "" {
		writeError(w, http.StatusBadRequest, "archive reason is required")
		return
	}

	at := epochOrNow(body.ArchivedAtEpoch)
	if err := s.deals.ArchiveDeal(r.Context(), dealID, body.Reason, at); err != nil {
		writeDealError(w, err)
		return
	}
	s.scoreCache.Invalidate(r.Context(), dealID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "archived"})
}

// handleIngestEvent ingests one communication event and enqueues a
// recalculation for its deal. Ingestion is idempotent on the dedup key:
// a duplicate returns 200 with inserted=false and enqueues nothing.
func (s *Service) handleIngestEvent(w http.ResponseWriter, r *http.Request) {
	var ev models.CommunicationEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if ev.DealID == 0 {
		writeError(w, http.StatusBadRequest, "deal_id is required")
		return
	}
	if ev.Direction != models.DirectionInbound && ev.Direction != models.DirectionOutbound {
		writeError(w, http.StatusBadRequest, "direction must be inbound or outbound")
		return
	}
	if ev.Source == "" {
		ev.Source = models.SourceManual
	}
	if ev.Channel == "" {
		ev.Channel = models.ChannelOther
	}

	id, inserted, err := s.events.AppendEvent(r.Context(), &ev)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	enqueued := false
	if inserted {
		enqueued, err = s.queue.Enqueue(r.Context(), ev.DealID, models.ReasonCommunicationSync)
		if err != nil {
			log.Warn().Err(err).Int64("deal_id", ev.DealID).Msg("Failed to enqueue after event ingest")
		}
	}

	status := http.StatusCreated
	if !inserted {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]interface{}{
		"id":       id,
		"inserted": inserted,
		"enqueued": enqueued,
	})
}

// handleEnqueue adds a recalculation request to the durable queue.
func (s *Service) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DealID int64  `json:"deal_id"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.DealID == 0 {
		writeError(w, http.StatusBadRequest, "deal_id is required")
		return
	}
	if body.Reason == "" {
		body.Reason = models.ReasonManual
	}

	enqueued, err := s.queue.Enqueue(r.Context(), body.DealID, body.Reason)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enqueued": enqueued})
}

// handleGetScore returns a deal's current score and latest breakdown.
// Cache-aware: a hit skips storage entirely.
func (s *Service) handleGetScore(w http.ResponseWriter, r *http.Request) {
	dealID, err := dealIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid deal id")
		return
	}

	if cached := s.scoreCache.Get(r.Context(), dealID); cached != nil {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	deal, err := s.deals.GetDealByID(r.Context(), dealID)
	if err != nil {
		writeDealError(w, err)
		return
	}
	if deal.CurrentScore == nil {
		writeError(w, http.StatusNotFound, "deal has not been scored yet")
		return
	}

	result := &models.ScoreResult{
		Score:     *deal.CurrentScore,
		Stage:     deal.Stage,
		Breakdown: map[string]float64{},
	}
	if latest, err := s.history.LatestEntry(r.Context(), dealID); err == nil && latest != nil {
		result.Breakdown = latest.Breakdown
	}

	s.scoreCache.Set(r.Context(), dealID, result)
	writeJSON(w, http.StatusOK, result)
}

// handleGetHistory returns a deal's score history newest-first.
func (s *Service) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	dealID, err := dealIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid deal id")
		return
	}

	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	// Confirm the deal exists so an unknown id is a 404, not an empty list.
	if _, err := s.deals.GetDealByID(r.Context(), dealID); err != nil {
		writeDealError(w, err)
		return
	}

	entries, err := s.history.ListEntries(r.Context(), dealID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []*models.ScoreHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deal_id": dealID,
		"entries": entries,
	})
}

// handleDailyBatch runs the daily batch pass and returns its report.
func (s *Service) handleDailyBatch(w http.ResponseWriter, r *http.Request) {
	report, err := s.orchestrator.RunDaily(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleArchiveAnalytics builds the archive loss report. Optional query
// filters: rep, from, to (epoch milliseconds).
func (s *Service) handleArchiveAnalytics(w http.ResponseWriter, r *http.Request) {
	var f models.ArchiveFilter
	f.RepID = r.URL.Query().Get("rep")
	if v := r.URL.Query().Get("from"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from filter")
			return
		}
		f.FromEpoch = n
	}
	if v := r.URL.Query().Get("to"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to filter")
			return
		}
		f.ToEpoch = n
	}

	report, err := s.reporter.Report(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}
