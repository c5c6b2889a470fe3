package results

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, text string) []Match {
	t.Helper()
	matches, err := NewParser(DefaultOptions()).Parse(strings.NewReader(text), "TEST")
	require.NoError(t, err)
	return matches
}

func TestParseFixtureWithHalfTime(t *testing.T) {
	matches := parse(t, "15.00 Arsenal     2-1 (1-0)     Chelsea\n")
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, "Arsenal", m.HomeTeam)
	assert.Equal(t, "Chelsea", m.AwayTeam)
	assert.Equal(t, "TEST", m.League)
	assert.Equal(t, 1, m.Line)
	assert.False(t, m.HasDate())

	ft, ok := m.FullTime()
	require.True(t, ok)
	assert.Equal(t, Score{Home: 2, Away: 1}, ft)
	ht, ok := m.HalfTime()
	require.True(t, ok)
	assert.Equal(t, Score{Home: 1, Away: 0}, ht)
}

func TestParseUnplayedFixture(t *testing.T) {
	matches := parse(t, "15.00 Arsenal     -     Chelsea\n")
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, "Arsenal", m.HomeTeam)
	assert.Equal(t, "Chelsea", m.AwayTeam)
	assert.False(t, m.HasBeenPlayed())
	assert.False(t, m.HasHalfTime())
	assert.Equal(t, -1, m.FullTimeHome)
	assert.Equal(t, -1, m.FullTimeAway)
}

func TestHalfTimeIsIndependentOfFullTime(t *testing.T) {
	matches := parse(t, "Manchester United     - (1-1)     Manchester City\n")
	require.Len(t, matches, 1)
	assert.False(t, matches[0].HasBeenPlayed())
	ht, ok := matches[0].HalfTime()
	require.True(t, ok)
	assert.Equal(t, Score{Home: 1, Away: 1}, ht)
}

func TestYearRolloverOnFirstJanuary(t *testing.T) {
	text := strings.Join([]string{
		"= Premier League 2020",
		"[15/Aug]",
		"Arsenal FC     1-0     Chelsea FC",
		"[10/Jan]",
		"Chelsea FC     2-2     Arsenal FC",
		"[Sat Feb/6]",
		"Everton FC     0-0     Chelsea FC",
		"[Sun Jan/31]",
		"Leeds United FC     1-1     Everton FC",
	}, "\n")

	matches := parse(t, text)
	require.Len(t, matches, 4)
	assert.Equal(t, Date(2020, time.August, 15), matches[0].Date)
	assert.Equal(t, Date(2021, time.January, 10), matches[1].Date)
	assert.Equal(t, Date(2021, time.February, 6), matches[2].Date)
	// a second January does not roll the year again
	assert.Equal(t, Date(2021, time.January, 31), matches[3].Date)
}

func TestRolloverOnlyTriggersOnJanuary(t *testing.T) {
	// a season file that jumps from December to February never rolls over
	text := "= League 2020\n[Tue Dec/1]\nA Team     1-0     B Team\n[Wed Feb/17]\nB Team     0-1     A Team\n"
	matches := parse(t, text)
	require.Len(t, matches, 2)
	assert.Equal(t, Date(2020, time.December, 1), matches[0].Date)
	assert.Equal(t, Date(2020, time.February, 17), matches[1].Date)
}

func TestHeaderSetsYearWithoutResettingRollover(t *testing.T) {
	text := strings.Join([]string{
		"[Sat Aug/10]",
		"Liverpool FC     4-1 (4-0)     Norwich City FC",
		"= Premier League 2019/20",
		"[Sun Aug/11]",
		"Burnley FC     3-0 (0-0)     Southampton FC",
		"[Wed Jan/1]",
		"Brighton FC     1-1     Chelsea FC",
	}, "\n")

	matches := parse(t, text)
	require.Len(t, matches, 3)
	assert.Equal(t, Date(DefaultYear, time.August, 10), matches[0].Date)
	assert.Equal(t, Date(2019, time.August, 11), matches[1].Date)
	assert.Equal(t, Date(2020, time.January, 1), matches[2].Date)
}

func TestDefaultYearIsConfigurable(t *testing.T) {
	p := NewParser(Options{DefaultYear: 1999})
	matches, err := p.Parse(strings.NewReader("[Sat Aug/14]\nA Team     1-0     B Team\n"), "X")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 1999, matches[0].Date.Year())
}

func TestDateAppliesUntilNextDateLine(t *testing.T) {
	text := "= 2020\n[Sat Sep/12]\nA FC     1-0     B FC\nC FC     2-0     D FC\n[Sun Sep/13]\nE FC     0-0     F FC\n"
	matches := parse(t, text)
	require.Len(t, matches, 3)
	assert.Equal(t, matches[0].Date, matches[1].Date)
	assert.Equal(t, Date(2020, time.September, 13), matches[2].Date)
}

func TestIgnoredLines(t *testing.T) {
	text := strings.Join([]string{
		"",
		"# a comment line with plenty of tokens in it",
		"Matchday 1",
		"» Group A",
		"Arsenal  2-1  Chelsea", // three tokens, but clearly a fixture
	}, "\n")
	matches := parse(t, text)
	require.Len(t, matches, 1)
	assert.Equal(t, "Arsenal", matches[0].HomeTeam)
}

func TestMalformedLinesAreSkippedByDefault(t *testing.T) {
	text := strings.Join([]string{
		"= 2020",
		"[Sat Sep/12]",
		"Fulham FC     x-3     Arsenal FC",
		"a line with lots of tokens but no fixture",
		"[Sun Foo/13]",
		"Liverpool FC     4-3 (3-2)     Leeds United FC",
	}, "\n")
	matches := parse(t, text)
	require.Len(t, matches, 1)
	assert.Equal(t, "Liverpool FC", matches[0].HomeTeam)
	// the bad date line was skipped so the previous date still applies
	assert.Equal(t, Date(2020, time.September, 12), matches[0].Date)
}

func TestFailFastReturnsMalformedRecord(t *testing.T) {
	p := NewParser(Options{Malformed: FailFast})
	text := "= 2020\n[Sat Sep/12]\nFulham FC     0-3 (0-2     Arsenal FC\n"

	matches, err := p.Parse(strings.NewReader(text), "PL")
	require.Error(t, err)
	assert.Nil(t, matches)
	assert.True(t, errors.Is(err, ErrMalformedRecord))

	var merr *MalformedRecordError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, "PL", merr.League)
	assert.Equal(t, 3, merr.Line)
	assert.Contains(t, merr.Reason, "half time")
}

func TestFailFastRejectsImpossibleDates(t *testing.T) {
	p := NewParser(Options{Malformed: FailFast})
	_, err := p.Parse(strings.NewReader("[Sat Feb/30]\n"), "PL")
	assert.ErrorIs(t, err, ErrMalformedRecord)

	_, err = p.Parse(strings.NewReader("[Sat Smarch/3]\n"), "PL")
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestByteOrderMarkIsIgnored(t *testing.T) {
	matches := parse(t, "\ufeff= Season 2018\n[Sat Aug/11]\nA FC     1-0     B FC\n")
	require.Len(t, matches, 1)
	assert.Equal(t, 2018, matches[0].Date.Year())
}

func TestScoreRoundTrip(t *testing.T) {
	for _, block := range []string{"0-0", "2-1", "10-0 (4-0)", "- (0-1)", "-"} {
		matches := parse(t, "Home Town FC     "+block+"     Away Town FC\n")
		require.Len(t, matches, 1, block)

		rendered := matches[0].ScoreString()
		assert.Equal(t, block, rendered)

		again := parse(t, "Home Town FC     "+rendered+"     Away Town FC\n")
		require.Len(t, again, 1)
		assert.Equal(t, matches[0], again[0])
	}
}

func TestParseFileMissing(t *testing.T) {
	_, err := NewParser(DefaultOptions()).ParseFile(filepath.Join(t.TempDir(), "nope.txt"), "PL")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileAccess)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseFileFixture(t *testing.T) {
	matches, err := NewParser(DefaultOptions()).ParseFile(filepath.Join("testdata", "pl_20202021.txt"), "PL_2020/21")
	require.NoError(t, err)
	require.Len(t, matches, 7)

	first := matches[0]
	assert.Equal(t, "Fulham FC", first.HomeTeam)
	assert.Equal(t, "Arsenal FC", first.AwayTeam)
	assert.Equal(t, Date(2020, time.September, 12), first.Date)
	assert.Equal(t, 5, first.Line)

	last := matches[len(matches)-1]
	assert.Equal(t, "Brighton & Hove Albion FC", last.AwayTeam)
	assert.Equal(t, Date(2021, time.May, 23), last.Date)

	for i := 1; i < len(matches); i++ {
		assert.Less(t, matches[i-1].Line, matches[i].Line, "file order")
	}
}
