package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/portholelabs/porthole/internal/config"
	"github.com/portholelabs/porthole/internal/export"
	"github.com/portholelabs/porthole/internal/fetcher"
	"github.com/portholelabs/porthole/internal/preview"
	"github.com/portholelabs/porthole/internal/types"
)

type fetchResponse struct {
	*types.Outcome
	Summary *preview.Summary `json:"summary,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL      string `json:"url"`
		Sanitize *bool  `json:"sanitize"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	s.metrics.ValidationsTotal.Add(1)
	req, err := types.NewFetchRequest(body.URL)
	if err != nil {
		s.metrics.ValidationsRejected.Add(1)
		s.jsonResponse(w, http.StatusBadRequest, types.OutcomeFrom(nil, err))
		return
	}

	s.metrics.FetchesTotal.Add(1)
	s.metrics.FetchesInFlight.Add(1)
	defer s.metrics.FetchesInFlight.Add(-1)

	snap, err := s.fetcher.Fetch(r.Context(), req)
	if err != nil {
		s.recordFailure(req.URLString(), err)
		s.jsonResponse(w, http.StatusBadGateway, types.OutcomeFrom(nil, err))
		return
	}
	s.recordSuccess(snap)

	outcome := types.OutcomeFrom(snap, nil)
	sanitize := s.cfg.Preview.Sanitize
	if body.Sanitize != nil {
		sanitize = *body.Sanitize
	}
	if sanitize {
		outcome.HTML = string(s.sanitizer.Sanitize(snap.HTML))
	}

	resp := fetchResponse{Outcome: outcome}
	if s.cfg.Preview.Summary {
		if sum, serr := s.summarizer.Summarize(snap); serr == nil {
			resp.Summary = sum
		}
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")

	s.metrics.ValidationsTotal.Add(1)
	valid := types.ValidTargetURL(raw)
	if !valid {
		s.metrics.ValidationsRejected.Add(1)
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"url": raw, "valid": valid})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		HTML string `json:"html"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if body.HTML == "" {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "nothing to export"})
		return
	}

	now := time.Now()
	path, err := s.exporter.Write([]byte(body.HTML), now)
	if err != nil {
		s.logger.Error("export failed", "error", err)
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "export failed"})
		return
	}
	s.metrics.ExportsTotal.Add(1)

	w.Header().Set("Content-Type", export.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(now)))
	w.Header().Set("X-Export-Path", path)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body.HTML))
}

func (s *Server) handleRelays(w http.ResponseWriter, r *http.Request) {
	if s.relays == nil {
		s.jsonResponse(w, http.StatusOK, map[string]any{
			"mode":   s.fetcher.Type(),
			"relays": []fetcher.RelayStatus{},
		})
		return
	}

	mgr := s.relays.Manager()
	if r.URL.Query().Get("probe") == "true" {
		statuses := mgr.HealthCheck(r.Context(), &s.cfg.Relays, s.cfg.Fetcher.UserAgent)
		s.jsonResponse(w, http.StatusOK, map[string]any{
			"mode":   types.ModeRelay,
			"probed": true,
			"relays": statuses,
		})
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"mode":   types.ModeRelay,
		"relays": mgr.Statuses(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status":  "ok",
		"version": config.Version,
		"mode":    s.fetcher.Type(),
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
	}
	if s.archiver != nil {
		health["archive"] = s.archiver.Name()
	}
	if s.relays != nil {
		health["relays_healthy"] = s.relays.Manager().HealthyCount()
		health["relays_total"] = s.relays.Manager().Count()
	}

	s.jsonResponse(w, http.StatusOK, health)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) recordSuccess(snap *types.Snapshot) {
	s.metrics.FetchesSucceeded.Add(1)
	s.metrics.BytesFetched.Add(int64(len(snap.HTML)))
	if s.relays != nil && snap.Attempts > 0 {
		s.metrics.RelayAttempts.Add(int64(snap.Attempts))
		s.metrics.RelayFailures.Add(int64(snap.Attempts - 1))
	}
	s.archiveRecord(types.NewFetchRecord(snap))
}

func (s *Server) recordFailure(target string, err error) {
	s.metrics.FetchesFailed.Add(1)

	var ex *types.ExhaustedError
	if errors.As(err, &ex) {
		s.metrics.RelaysExhausted.Add(1)
		s.metrics.RelayAttempts.Add(int64(ex.Attempts))
		s.metrics.RelayFailures.Add(int64(ex.Attempts))
	}

	s.archiveRecord(types.NewFailureRecord(target, err))
}

func (s *Server) archiveRecord(rec *types.FetchRecord) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.Record(rec); err != nil {
		s.metrics.ArchiveErrors.Add(1)
		s.logger.Error("archive write failed", "error", err)
		return
	}
	s.metrics.ArchiveWrites.Add(1)
}
