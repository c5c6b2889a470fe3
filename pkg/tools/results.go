package tools

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tipshjalpen/resultat/internal/logger"
	"github.com/tipshjalpen/resultat/pkg/protocol"
	"github.com/tipshjalpen/resultat/pkg/results"
)

// ErrInvalidParams is wrapped by every argument validation failure
var ErrInvalidParams = errors.New("invalid parameters")

// HandlerFunc handles the arguments of one tools/call
type HandlerFunc func(params any) (any, error)

// Registration pairs a tool definition with its handler
type Registration struct {
	Tool    protocol.Tool
	Handler HandlerFunc
}

// MatchesResult is what every match returning tool answers with
type MatchesResult struct {
	League  string          `json:"league,omitempty"`
	Team    string          `json:"team,omitempty"`
	Before  string          `json:"before,omitempty"`
	Count   int             `json:"count"`
	Matches []results.Match `json:"matches"`
}

// ResultsTools exposes repository queries as tools
type ResultsTools struct {
	repo *results.Repository
}

func NewResultsTools(repo *results.Repository) *ResultsTools {
	return &ResultsTools{repo: repo}
}

// Registrations lists every tool in the order tools/list reports them
func (rt *ResultsTools) Registrations() []Registration {
	return []Registration{
		{SeasonMatchesTool(), rt.HandleSeasonMatches},
		{MatchesBeforeTool(), rt.HandleMatchesBefore},
		{TeamMatchesTool(), rt.HandleTeamMatches},
		{TeamResultsTool(), rt.HandleTeamResults},
		{LeaguesTool(), rt.HandleLeagues},
	}
}

var leagueProperty = protocol.ToolProperty{
	Type:        "string",
	Description: "League key as configured, eg PL_2019/20. The leagues tool lists them.",
}

var teamProperty = protocol.ToolProperty{
	Type: "string",
	Description: `Team name or part of one. Matching is a case sensitive substring test
	on both the home and away side, so "United" finds every United.`,
}

func SeasonMatchesTool() protocol.Tool {
	return protocol.Tool{
		Name:        "season_matches",
		Description: "Every match of one league season in file order, with full time and half time scores where played.",
		InputSchema: protocol.InputSchema{
			Type:       "object",
			Properties: map[string]protocol.ToolProperty{"league": leagueProperty},
			Required:   []string{"league"},
		},
	}
}

func MatchesBeforeTool() protocol.Tool {
	return protocol.Tool{
		Name: "matches_before",
		Description: `The matches of one league season dated strictly before a cut off date.
		Matches with no known date are left out.`,
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"league": leagueProperty,
				"date": {
					Type:        "string",
					Description: "Cut off date as YYYY-MM-DD",
					Pattern:     `^\d{4}-\d{2}-\d{2}$`,
				},
			},
			Required: []string{"league", "date"},
		},
	}
}

func TeamMatchesTool() protocol.Tool {
	return protocol.Tool{
		Name:        "team_matches",
		Description: "All matches, played or not, involving a team across every configured league.",
		InputSchema: protocol.InputSchema{
			Type:       "object",
			Properties: map[string]protocol.ToolProperty{"team": teamProperty},
			Required:   []string{"team"},
		},
	}
}

func TeamResultsTool() protocol.Tool {
	return protocol.Tool{
		Name:        "team_results",
		Description: "Like team_matches but only matches that have a full time score.",
		InputSchema: protocol.InputSchema{
			Type:       "object",
			Properties: map[string]protocol.ToolProperty{"team": teamProperty},
			Required:   []string{"team"},
		},
	}
}

func LeaguesTool() protocol.Tool {
	return protocol.Tool{
		Name:        "leagues",
		Description: "Lists the configured league keys",
		InputSchema: protocol.InputSchema{
			Type:     "object",
			Required: []string{},
		},
	}
}

// stringParam pulls a required non empty string argument out of params
func stringParam(params any, name string) (string, error) {
	paramsMap, ok := params.(map[string]any)
	if !ok {
		return "", fmt.Errorf("%w: expected an object of arguments", ErrInvalidParams)
	}
	value, ok := paramsMap[name].(string)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: %s parameter is required and must be a string", ErrInvalidParams, name)
	}
	return value, nil
}

func (rt *ResultsTools) HandleSeasonMatches(params any) (any, error) {
	league, err := stringParam(params, "league")
	if err != nil {
		return nil, err
	}
	logger.Info("Handling season_matches for", league)

	matches, err := rt.repo.AllMatchesForSeason(league)
	if err != nil {
		return nil, err
	}
	return MatchesResult{League: league, Count: len(matches), Matches: matches}, nil
}

func (rt *ResultsTools) HandleMatchesBefore(params any) (any, error) {
	league, err := stringParam(params, "league")
	if err != nil {
		return nil, err
	}
	date, err := stringParam(params, "date")
	if err != nil {
		return nil, err
	}
	cutoff, err := time.Parse(results.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD: %v", ErrInvalidParams, err)
	}
	logger.Info("Handling matches_before for", league, date)

	matches, err := rt.repo.AllMatchesUpToDate(cutoff.Year(), int(cutoff.Month()), cutoff.Day(), league)
	if err != nil {
		return nil, err
	}
	return MatchesResult{League: league, Before: date, Count: len(matches), Matches: matches}, nil
}

func (rt *ResultsTools) HandleTeamMatches(params any) (any, error) {
	team, err := stringParam(params, "team")
	if err != nil {
		return nil, err
	}
	logger.Info("Handling team_matches for", team)

	matches, err := rt.repo.AllMatchesForTeam(team)
	if err != nil {
		return nil, err
	}
	return MatchesResult{Team: team, Count: len(matches), Matches: matches}, nil
}

func (rt *ResultsTools) HandleTeamResults(params any) (any, error) {
	team, err := stringParam(params, "team")
	if err != nil {
		return nil, err
	}
	logger.Info("Handling team_results for", team)

	matches, err := rt.repo.ResultsForTeam(team)
	if err != nil {
		return nil, err
	}
	return MatchesResult{Team: team, Count: len(matches), Matches: matches}, nil
}

func (rt *ResultsTools) HandleLeagues(params any) (any, error) {
	return map[string]any{"leagues": rt.repo.Leagues()}, nil
}
