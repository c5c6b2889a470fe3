package results

import (
	"fmt"
	"time"
)

// DateLayout is the layout used whenever a match date is rendered as text
const DateLayout = "2006-01-02"

// Score is an ordered (home, away) goal pair
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// String renders the score the way season files write it, eg "2-1"
func (s Score) String() string {
	return fmt.Sprintf("%d-%d", s.Home, s.Away)
}

// Match is one fixture read from a season file.
// Score fields hold -1 when absent, Date is the zero time when no date line
// preceded the match.
type Match struct {
	Date         time.Time `json:"date"`
	HomeTeam     string    `json:"homeTeam"`
	AwayTeam     string    `json:"awayTeam"`
	FullTimeHome int       `json:"fullTimeHome"`
	FullTimeAway int       `json:"fullTimeAway"`
	HalfTimeHome int       `json:"halfTimeHome"`
	HalfTimeAway int       `json:"halfTimeAway"`
	League       string    `json:"league"`
	Line         int       `json:"line"`
}

// NewMatch creates a new Match with every score set to -1
func NewMatch() Match {
	return Match{
		FullTimeHome: -1,
		FullTimeAway: -1,
		HalfTimeHome: -1,
		HalfTimeAway: -1,
	}
}

// HasDate reports whether a date line preceded this match
func (m Match) HasDate() bool {
	return !m.Date.IsZero()
}

// HasBeenPlayed reports whether a full time score was recorded
func (m Match) HasBeenPlayed() bool {
	return m.FullTimeHome >= 0 && m.FullTimeAway >= 0
}

// HasHalfTime reports whether a half time score was recorded
func (m Match) HasHalfTime() bool {
	return m.HalfTimeHome >= 0 && m.HalfTimeAway >= 0
}

// FullTime returns the final score, if there is one
func (m Match) FullTime() (Score, bool) {
	if !m.HasBeenPlayed() {
		return Score{}, false
	}
	return Score{Home: m.FullTimeHome, Away: m.FullTimeAway}, true
}

// HalfTime returns the half time score, if there is one
func (m Match) HalfTime() (Score, bool) {
	if !m.HasHalfTime() {
		return Score{}, false
	}
	return Score{Home: m.HalfTimeHome, Away: m.HalfTimeAway}, true
}

// Before reports whether the match is dated strictly earlier than cutoff.
// Undated matches are never before anything.
func (m Match) Before(cutoff time.Time) bool {
	return m.HasDate() && m.Date.Before(cutoff)
}

// Involves reports whether team is a substring of either side's name (case sensitive)
func (m Match) Involves(team string) bool {
	return containsTeam(m.HomeTeam, team) || containsTeam(m.AwayTeam, team)
}

// ScoreString renders the score block as it appears in a season file:
// "-", "2-1" or "2-1 (1-0)"
func (m Match) ScoreString() string {
	s := "-"
	if ft, ok := m.FullTime(); ok {
		s = ft.String()
	}
	if ht, ok := m.HalfTime(); ok {
		s += " (" + ht.String() + ")"
	}
	return s
}

func (m Match) String() string {
	date := "undated"
	if m.HasDate() {
		date = m.Date.Format(DateLayout)
	}
	return fmt.Sprintf("%s %s %s %s [%s]", date, m.HomeTeam, m.ScoreString(), m.AwayTeam, m.League)
}

// Date builds the UTC midnight time used for match dates and cutoffs
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
