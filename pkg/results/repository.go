package results

import (
	"fmt"
	"strings"
	"time"

	"github.com/tipshjalpen/resultat/internal/logger"
)

// Repository answers season and team queries by parsing season files.
// Nothing is cached: every call re-reads the files it needs, so results always
// reflect what is on disk and concurrent callers share no mutable state.
type Repository struct {
	leagues *Leagues
	parser  *Parser
}

func NewRepository(leagues *Leagues, parser *Parser) *Repository {
	if parser == nil {
		parser = NewParser(DefaultOptions())
	}
	return &Repository{leagues: leagues, parser: parser}
}

// Leagues returns the configured league keys in declaration order
func (r *Repository) Leagues() []string {
	return r.leagues.Keys()
}

// AllMatchesForSeason parses the whole season for key, in file order
func (r *Repository) AllMatchesForSeason(key string) ([]Match, error) {
	src, err := r.leagues.Lookup(key)
	if err != nil {
		return nil, err
	}
	return r.parser.ParseFile(src.Path, src.Key)
}

// AllMatchesUpToDate returns the season's matches dated strictly before
// year-month-day. Matches without a date are left out.
func (r *Repository) AllMatchesUpToDate(year, month, day int, key string) ([]Match, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("month %d out of range", month)
	}
	cutoff, err := validDate(year, time.Month(month), day)
	if err != nil {
		return nil, err
	}
	matches, err := r.AllMatchesForSeason(key)
	if err != nil {
		return nil, err
	}
	return FilterBefore(matches, cutoff), nil
}

// AllMatchesForTeam collects every match, across all configured leagues in
// declaration order, where team is a substring of the home or away side.
// The match is case sensitive and deliberately loose: "Ham" finds "West Ham".
func (r *Repository) AllMatchesForTeam(team string) ([]Match, error) {
	found := make([]Match, 0)
	for _, key := range r.leagues.Keys() {
		matches, err := r.AllMatchesForSeason(key)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", key, err)
		}
		found = append(found, FilterTeam(matches, team)...)
	}
	logger.Debug("Matches found for team", team, len(found))
	return found, nil
}

// ResultsForTeam is AllMatchesForTeam limited to matches with a full time score
func (r *Repository) ResultsForTeam(team string) ([]Match, error) {
	matches, err := r.AllMatchesForTeam(team)
	if err != nil {
		return nil, err
	}
	return FilterPlayed(matches), nil
}

// Teams lists the distinct team names of a season in order of first appearance
func (r *Repository) Teams(key string) ([]string, error) {
	matches, err := r.AllMatchesForSeason(key)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	teams := make([]string, 0)
	for _, m := range matches {
		for _, t := range []string{m.HomeTeam, m.AwayTeam} {
			if !seen[t] {
				seen[t] = true
				teams = append(teams, t)
			}
		}
	}
	return teams, nil
}

// FilterBefore keeps matches dated strictly before cutoff
func FilterBefore(matches []Match, cutoff time.Time) []Match {
	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		if m.Before(cutoff) {
			out = append(out, m)
		}
	}
	return out
}

// FilterTeam keeps matches involving team (substring, case sensitive)
func FilterTeam(matches []Match, team string) []Match {
	out := make([]Match, 0)
	for _, m := range matches {
		if m.Involves(team) {
			out = append(out, m)
		}
	}
	return out
}

// FilterPlayed keeps matches with a full time score
func FilterPlayed(matches []Match) []Match {
	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		if m.HasBeenPlayed() {
			out = append(out, m)
		}
	}
	return out
}

func containsTeam(name, team string) bool {
	return strings.Contains(name, team)
}
