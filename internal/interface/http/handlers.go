package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/powerlifting-fed/federation-hub/internal/application/command"
	"github.com/powerlifting-fed/federation-hub/internal/application/query"
	"github.com/powerlifting-fed/federation-hub/internal/domain/records"
	"github.com/powerlifting-fed/federation-hub/internal/domain/registration"
	"github.com/powerlifting-fed/federation-hub/internal/domain/results"
	"github.com/powerlifting-fed/federation-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"name":    "federation-hub",
		"version": s.deps.Version,
		"endpoints": map[string]string{
			"health":       "/health",
			"results":      "/api/v1/competitions/{id}/results",
			"best_lifters": "/api/v1/competitions/{id}/best-lifters",
			"teams":        "/api/v1/competitions/{id}/teams",
			"records":      "/api/v1/records",
			"points":       "/api/v1/points",
			"eligibility":  "/api/v1/eligibility",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSONError(w, r, http.StatusServiceUnavailable, APIError{Code: "not_ready", Message: status.Message})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTRY HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type registerEntryRequest struct {
	AthleteID     string  `json:"athlete_id"`
	WeightClass   string  `json:"weight_class"`
	Division      string  `json:"division"`
	Equipment     string  `json:"equipment,omitempty"`
	Bridge        string  `json:"bridge,omitempty"`
	DeclaredTotal float64 `json:"declared_total"`
}

// handleRegisterEntry handles POST /api/v1/competitions/{id}/entries
func (s *Server) handleRegisterEntry(w http.ResponseWriter, r *http.Request) {
	if !s.configured(w, r, s.deps.RegisterEntry != nil) {
		return
	}

	var req registerEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	res, err := s.deps.RegisterEntry.Handle(r.Context(), command.RegisterEntryCommand{
		CompetitionID: chi.URLParam(r, "id"),
		AthleteID:     req.AthleteID,
		WeightClass:   req.WeightClass,
		Division:      req.Division,
		Equipment:     req.Equipment,
		Bridge:        req.Bridge,
		DeclaredTotal: req.DeclaredTotal,
		CorrelationID: middleware.GetReqID(r.Context()),
	})
	if err != nil {
		s.respondError(w, r, "RegisterEntry", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, res.Entry)
}

type editEntryRequest struct {
	WeightClass   *string  `json:"weight_class,omitempty"`
	Division      *string  `json:"division,omitempty"`
	Equipment     *string  `json:"equipment,omitempty"`
	Bridge        *string  `json:"bridge,omitempty"`
	DeclaredTotal *float64 `json:"declared_total,omitempty"`
}

type editEntryResponse struct {
	Entry   *registration.Entry `json:"entry"`
	Changed bool                `json:"changed"`
}

// handleEditEntry handles PATCH /api/v1/entries/{id}
func (s *Server) handleEditEntry(w http.ResponseWriter, r *http.Request) {
	if !s.configured(w, r, s.deps.EditEntry != nil) {
		return
	}

	var req editEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	res, err := s.deps.EditEntry.Handle(r.Context(), command.EditEntryCommand{
		EntryID:       chi.URLParam(r, "id"),
		WeightClass:   req.WeightClass,
		Division:      req.Division,
		Equipment:     req.Equipment,
		Bridge:        req.Bridge,
		DeclaredTotal: req.DeclaredTotal,
		CorrelationID: middleware.GetReqID(r.Context()),
	})
	if err != nil {
		s.respondError(w, r, "EditEntry", err)
		return
	}
	writeJSON(w, r, http.StatusOK, editEntryResponse{Entry: res.Entry, Changed: res.Changed})
}

type recordAttemptsRequest struct {
	Bodyweight float64               `json:"bodyweight,omitempty"`
	Attempts   registration.Attempts `json:"attempts"`
}

type recordAttemptsResponse struct {
	Entry *registration.Entry `json:"entry"`
	Best  results.Lifts       `json:"best"`
}

// handleRecordAttempts handles PUT /api/v1/entries/{id}/attempts
func (s *Server) handleRecordAttempts(w http.ResponseWriter, r *http.Request) {
	if !s.configured(w, r, s.deps.RecordAttempts != nil) {
		return
	}

	var req recordAttemptsRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	res, err := s.deps.RecordAttempts.Handle(r.Context(), command.RecordAttemptsCommand{
		EntryID:       chi.URLParam(r, "id"),
		Bodyweight:    req.Bodyweight,
		Attempts:      req.Attempts,
		CorrelationID: middleware.GetReqID(r.Context()),
	})
	if err != nil {
		s.respondError(w, r, "RecordAttempts", err)
		return
	}
	writeJSON(w, r, http.StatusOK, recordAttemptsResponse{Entry: res.Entry, Best: res.Best})
}

// ══════════════════════════════════════════════════════════════════════════════
// RESULTS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetResults handles GET /api/v1/competitions/{id}/results?split=true
func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	if !s.configured(w, r, s.deps.GetResults != nil) {
		return
	}

	res, err := s.deps.GetResults.Handle(r.Context(), query.GetResultsQuery{
		CompetitionID:      chi.URLParam(r, "id"),
		SplitByWeightClass: queryBool(r, "split"),
	})
	if err != nil {
		s.respondError(w, r, "GetResults", err)
		return
	}
	cached := res.Cached
	writeJSONWithMeta(w, r, http.StatusOK, res, &ResponseMeta{Cached: &cached})
}

// handleGetBestLifters handles GET /api/v1/competitions/{id}/best-lifters
func (s *Server) handleGetBestLifters(w http.ResponseWriter, r *http.Request) {
	if !s.configured(w, r, s.deps.GetBestLifters != nil) {
		return
	}

	res, err := s.deps.GetBestLifters.Handle(r.Context(), query.GetBestLiftersQuery{
		CompetitionID: chi.URLParam(r, "id"),
		Division:      queryString(r, "division"),
		Sex:           queryString(r, "sex"),
		Equipment:     queryString(r, "equipment"),
		OnlyAwarding:  queryBool(r, "awarding"),
	})
	if err != nil {
		s.respondError(w, r, "GetBestLifters", err)
		return
	}
	count := len(res.Categories)
	writeJSONWithMeta(w, r, http.StatusOK, res, &ResponseMeta{Count: &count})
}

// handleGetTeamStandings handles GET /api/v1/competitions/{id}/teams
func (s *Server) handleGetTeamStandings(w http.ResponseWriter, r *http.Request) {
	if !s.configured(w, r, s.deps.GetTeamStandings != nil) {
		return
	}

	res, err := s.deps.GetTeamStandings.Handle(r.Context(), query.GetTeamStandingsQuery{
		CompetitionID: chi.URLParam(r, "id"),
	})
	if err != nil {
		s.respondError(w, r, "GetTeamStandings", err)
		return
	}
	count := len(res.Teams)
	writeJSONWithMeta(w, r, http.StatusOK, res, &ResponseMeta{Count: &count})
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORD BOOK HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListRecords handles GET /api/v1/records
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	if !s.configured(w, r, s.deps.ListRecords != nil) {
		return
	}

	res, err := s.deps.ListRecords.Handle(r.Context(), query.ListRecordsQuery{
		Dataset: queryString(r, "dataset"),
		Filter: records.Filter{
			Movement:    queryString(r, "movement"),
			Division:    queryString(r, "division"),
			Sex:         queryString(r, "sex"),
			Equipment:   queryString(r, "equipment"),
			WeightClass: queryString(r, "weight_class"),
		},
	})
	if err != nil {
		s.respondError(w, r, "ListRecords", err)
		return
	}
	count := res.Count
	writeJSONWithMeta(w, r, http.StatusOK, res, &ResponseMeta{Count: &count})
}

// importRow is one record row. Date is a sheet date such as "2024-05-11"
// or "11/05/2024".
type importRow struct {
	Row         int     `json:"row,omitempty"`
	Movement    string  `json:"movement"`
	Division    string  `json:"division"`
	Sex         string  `json:"sex"`
	Equipment   string  `json:"equipment"`
	WeightClass string  `json:"weight_class"`
	Weight      float64 `json:"weight"`
	AthleteName string  `json:"athlete_name"`
	Team        string  `json:"team,omitempty"`
	Competition string  `json:"competition,omitempty"`
	Date        string  `json:"date,omitempty"`
}

type importRecordsRequest struct {
	Dataset string      `json:"dataset,omitempty"`
	DryRun  bool        `json:"dry_run"`
	Rows    []importRow `json:"rows"`
}

type importRecordsResponse struct {
	BatchID    string               `json:"batch_id"`
	Dataset    string               `json:"dataset"`
	DryRun     bool                 `json:"dry_run"`
	Report     records.ImportReport `json:"report"`
	DurationMs int64                `json:"duration_ms"`
}

// handleImportRecords handles POST /api/v1/records/import
func (s *Server) handleImportRecords(w http.ResponseWriter, r *http.Request) {
	if !s.configured(w, r, s.deps.ImportRecords != nil) {
		return
	}

	var req importRecordsRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if len(req.Rows) == 0 {
		badRequest(w, r, "rows are required")
		return
	}
	if limit := s.config.MaxImportRows; limit > 0 && len(req.Rows) > limit {
		writeJSONError(w, r, http.StatusRequestEntityTooLarge, APIError{
			Code:    "too_many_rows",
			Message: fmt.Sprintf("import is limited to %d rows, got %d", limit, len(req.Rows)),
		})
		return
	}

	dataset := req.Dataset
	if dataset == "" {
		dataset = s.deps.Dataset
	}

	res, err := s.deps.ImportRecords.Handle(r.Context(), command.ImportRecordsCommand{
		Dataset:       dataset,
		Candidates:    toCandidates(req.Rows),
		DryRun:        req.DryRun,
		CorrelationID: middleware.GetReqID(r.Context()),
	})
	if err != nil {
		s.respondError(w, r, "ImportRecords", err)
		return
	}
	writeJSON(w, r, http.StatusOK, importRecordsResponse{
		BatchID:    res.BatchID,
		Dataset:    res.Dataset,
		DryRun:     res.DryRun,
		Report:     res.Report,
		DurationMs: res.Duration.Milliseconds(),
	})
}

// toCandidates numbers rows from 1 when the client did not, and marks
// unreadable dates so only that row fails.
func toCandidates(rows []importRow) []records.Candidate {
	out := make([]records.Candidate, len(rows))
	for i, row := range rows {
		c := records.Candidate{
			Row:         row.Row,
			Movement:    row.Movement,
			Division:    row.Division,
			Sex:         row.Sex,
			Equipment:   row.Equipment,
			WeightClass: row.WeightClass,
			Weight:      row.Weight,
			AthleteName: row.AthleteName,
			Team:        row.Team,
			Competition: row.Competition,
		}
		if c.Row == 0 {
			c.Row = i + 1
		}
		if row.Date != "" {
			d, err := timeutil.ParseSheetDate(row.Date)
			if err != nil {
				c.Malformed = records.RowError("date", "unreadable date %q", row.Date)
			} else {
				c.Date = d
			}
		}
		out[i] = c
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// CALCULATOR HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleCalculatePoints handles GET /api/v1/points?total=&bodyweight=&sex=&equipment=&event=
func (s *Server) handleCalculatePoints(w http.ResponseWriter, r *http.Request) {
	if !s.configured(w, r, s.deps.CalculatePoints != nil) {
		return
	}

	total, err := queryFloat(r, "total")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	bodyweight, err := queryFloat(r, "bodyweight")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	res, err := s.deps.CalculatePoints.Handle(query.CalculatePointsQuery{
		Total:      total,
		Bodyweight: bodyweight,
		Sex:        queryString(r, "sex"),
		Equipment:  queryString(r, "equipment"),
		Event:      queryString(r, "event"),
	})
	if err != nil {
		s.respondError(w, r, "CalculatePoints", err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleCheckEligibility handles GET /api/v1/eligibility?birth_date=&sex=&as_of=
func (s *Server) handleCheckEligibility(w http.ResponseWriter, r *http.Request) {
	if !s.configured(w, r, s.deps.CheckEligibility != nil) {
		return
	}

	birth, err := optionalDate(r, "birth_date")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	asOf, err := optionalDate(r, "as_of")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	res, err := s.deps.CheckEligibility.Handle(query.CheckEligibilityQuery{
		BirthDate: birth,
		Sex:       queryString(r, "sex"),
		AsOf:      asOf,
	})
	if err != nil {
		s.respondError(w, r, "CheckEligibility", err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func optionalDate(r *http.Request, key string) (time.Time, error) {
	raw := queryString(r, key)
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := timeutil.ParseDate(raw)
	if err != nil {
		return time.Time{}, errors.New(key + " must be a YYYY-MM-DD date")
	}
	return d, nil
}

// configured writes 501 when a handler was not wired.
func (s *Server) configured(w http.ResponseWriter, r *http.Request, ok bool) bool {
	if !ok {
		writeJSONError(w, r, http.StatusNotImplemented, APIError{Code: "not_implemented", Message: "endpoint not configured"})
	}
	return ok
}
