package query

import (
	"context"
	"sort"
	"strings"

	"github.com/powerlifting-fed/federation-hub/internal/domain/eligibility"
	"github.com/powerlifting-fed/federation-hub/internal/domain/scoring"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET TEAM STANDINGS QUERY
// Scores teams from per-class placings with a points table.
// ══════════════════════════════════════════════════════════════════════════════

// GetTeamStandingsQuery contains the parameters of a team standings request.
type GetTeamStandingsQuery struct {
	CompetitionID string
}

// Validate checks the query parameters.
func (q GetTeamStandingsQuery) Validate() error {
	return GetResultsQuery{CompetitionID: q.CompetitionID}.Validate()
}

// TeamScorer is one placing that earned team points.
type TeamScorer struct {
	Name     string  `json:"name"`
	Group    string  `json:"group"`
	Place    int     `json:"place"`
	Points   int     `json:"points"`
	GLPoints float64 `json:"gl_points"`
}

// TeamStanding is one team's line in the standings.
type TeamStanding struct {
	Rank     int          `json:"rank"`
	Team     string       `json:"team"`
	Points   int          `json:"points"`
	GLPoints float64      `json:"gl_points"`
	Scorers  []TeamScorer `json:"scorers"`
}

// GetTeamStandingsResult lists teams by rank.
type GetTeamStandingsResult struct {
	CompetitionID string         `json:"competition_id"`
	PointsTable   []int          `json:"points_table"`
	Teams         []TeamStanding `json:"teams"`
}

// GetTeamStandingsHandler handles team standings queries.
type GetTeamStandingsHandler struct {
	results     *GetResultsHandler
	pointsTable []int
}

// NewGetTeamStandingsHandler creates a new handler. pointsTable[i] is the
// score for place i+1; places beyond the table score nothing.
func NewGetTeamStandingsHandler(results *GetResultsHandler, pointsTable []int) *GetTeamStandingsHandler {
	return &GetTeamStandingsHandler{results: results, pointsTable: pointsTable}
}

// Handle executes the query. Guest lifters, athletes without a team and
// athletes without a total do not score.
func (h *GetTeamStandingsHandler) Handle(ctx context.Context, query GetTeamStandingsQuery) (*GetTeamStandingsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetTeamStandings", shared.ErrInvalidInput, err.Error(), err)
	}

	res, err := h.results.Handle(ctx, GetResultsQuery{CompetitionID: query.CompetitionID, SplitByWeightClass: true})
	if err != nil {
		return nil, err
	}

	byTeam := make(map[string]*TeamStanding)
	for _, p := range res.Report.Placements() {
		team := strings.TrimSpace(p.Team)
		if team == "" || p.Division == eligibility.Guest || p.Total <= 0 {
			continue
		}
		points := h.pointsFor(p.Place)
		if points == 0 {
			continue
		}
		ts, ok := byTeam[team]
		if !ok {
			ts = &TeamStanding{Team: team}
			byTeam[team] = ts
		}
		ts.Points += points
		ts.GLPoints += p.GLPoints
		ts.Scorers = append(ts.Scorers, TeamScorer{
			Name:     p.Name,
			Group:    p.Group,
			Place:    p.Place,
			Points:   points,
			GLPoints: p.GLPoints,
		})
	}

	teams := make([]TeamStanding, 0, len(byTeam))
	for _, ts := range byTeam {
		ts.GLPoints = scoring.Round2(ts.GLPoints)
		teams = append(teams, *ts)
	}
	sort.Slice(teams, func(i, j int) bool {
		if teams[i].Points != teams[j].Points {
			return teams[i].Points > teams[j].Points
		}
		if teams[i].GLPoints != teams[j].GLPoints {
			return teams[i].GLPoints > teams[j].GLPoints
		}
		return teams[i].Team < teams[j].Team
	})
	for i := range teams {
		teams[i].Rank = i + 1
	}

	return &GetTeamStandingsResult{
		CompetitionID: res.Report.CompetitionID,
		PointsTable:   h.pointsTable,
		Teams:         teams,
	}, nil
}

func (h *GetTeamStandingsHandler) pointsFor(place int) int {
	if place < 1 || place > len(h.pointsTable) {
		return 0
	}
	return h.pointsTable[place-1]
}
