package results

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureRepository(t *testing.T) *Repository {
	t.Helper()
	leagues, err := NewLeagues("testdata",
		LeagueSource{Key: "PL_2020/21", Path: "pl_20202021.txt"},
		LeagueSource{Key: "CL_2020/21", Path: "cl_20202021.txt"},
	)
	require.NoError(t, err)
	return NewRepository(leagues, nil)
}

func TestAllMatchesForSeason(t *testing.T) {
	repo := fixtureRepository(t)
	assert.Equal(t, []string{"PL_2020/21", "CL_2020/21"}, repo.Leagues())

	matches, err := repo.AllMatchesForSeason("PL_2020/21")
	require.NoError(t, err)
	require.Len(t, matches, 7)
	for _, m := range matches {
		assert.Equal(t, "PL_2020/21", m.League)
	}

	again, err := repo.AllMatchesForSeason("PL_2020/21")
	require.NoError(t, err)
	assert.Equal(t, matches, again, "parsing is deterministic")
}

func TestAllMatchesForSeasonUnknownLeague(t *testing.T) {
	repo := fixtureRepository(t)
	matches, err := repo.AllMatchesForSeason("PL_1888/89")
	assert.ErrorIs(t, err, ErrUnknownLeague)
	assert.Nil(t, matches)
}

func TestAllMatchesForSeasonMissingFile(t *testing.T) {
	leagues, err := NewLeagues(t.TempDir(), LeagueSource{Key: "PL", Path: "gone.txt"})
	require.NoError(t, err)

	_, err = NewRepository(leagues, nil).AllMatchesForSeason("PL")
	assert.ErrorIs(t, err, ErrFileAccess)
}

func TestAllMatchesUpToDate(t *testing.T) {
	repo := fixtureRepository(t)

	tests := []struct {
		year, month, day int
		want             int
	}{
		{2020, 9, 12, 0},
		{2020, 9, 13, 3},
		{2021, 1, 1, 4},
		{2021, 1, 2, 4}, // strictly before
		{2021, 1, 3, 6},
		{2022, 1, 1, 7},
	}
	for _, tt := range tests {
		matches, err := repo.AllMatchesUpToDate(tt.year, tt.month, tt.day, "PL_2020/21")
		require.NoError(t, err)
		assert.Len(t, matches, tt.want, "%d-%02d-%02d", tt.year, tt.month, tt.day)

		cutoff := Date(tt.year, time.Month(tt.month), tt.day)
		for _, m := range matches {
			assert.True(t, m.Date.Before(cutoff))
		}
	}
}

func TestAllMatchesUpToDateRejectsBadCutoff(t *testing.T) {
	repo := fixtureRepository(t)
	_, err := repo.AllMatchesUpToDate(2021, 13, 1, "PL_2020/21")
	assert.Error(t, err)
	_, err = repo.AllMatchesUpToDate(2021, 2, 30, "PL_2020/21")
	assert.Error(t, err)
	_, err = repo.AllMatchesUpToDate(2021, 2, 1, "nope")
	assert.ErrorIs(t, err, ErrUnknownLeague)
}

func TestAllMatchesUpToDateSkipsUndatedMatches(t *testing.T) {
	dir := t.TempDir()
	text := "= 2020\nEarly FC     1-0     Bird FC\n[Sat Aug/15]\nLate FC     0-0     Owl FC\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s.txt"), []byte(text), 0o644))

	leagues, err := NewLeagues(dir, LeagueSource{Key: "S", Path: "s.txt"})
	require.NoError(t, err)
	repo := NewRepository(leagues, nil)

	all, err := repo.AllMatchesForSeason("S")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.False(t, all[0].HasDate())

	// the undated match is never earlier than any cutoff
	dated, err := repo.AllMatchesUpToDate(2030, 1, 1, "S")
	require.NoError(t, err)
	require.Len(t, dated, 1)
	assert.Equal(t, "Late FC", dated[0].HomeTeam)
}

// The older team flavoured "up to date" query ignored its team argument and
// returned the plain date filtered season. There is only one date query now;
// callers that want a team filter compose FilterTeam themselves.
func TestDateQueryHasNoTeamArgument(t *testing.T) {
	repo := fixtureRepository(t)

	season, err := repo.AllMatchesUpToDate(2021, 1, 3, "PL_2020/21")
	require.NoError(t, err)
	require.Len(t, season, 6)

	leeds := FilterTeam(season, "Leeds")
	assert.Len(t, leeds, 2)
	assert.NotEqual(t, len(season), len(leeds), "the team filter is not a no-op any more")
}

func TestAllMatchesForTeamUsesSubstrings(t *testing.T) {
	repo := fixtureRepository(t)

	arsenal, err := repo.AllMatchesForTeam("Arsenal")
	require.NoError(t, err)
	require.Len(t, arsenal, 5)
	// league declaration order, then file order
	for i, m := range arsenal {
		assert.True(t, m.Involves("Arsenal"))
		if i < 3 {
			assert.Equal(t, "PL_2020/21", m.League)
		} else {
			assert.Equal(t, "CL_2020/21", m.League)
		}
	}
	assert.Equal(t, "Arsenal FC", arsenal[0].AwayTeam)
	assert.Equal(t, "Arsenal", arsenal[3].HomeTeam)

	ham, err := repo.AllMatchesForTeam("Ham")
	require.NoError(t, err)
	require.Len(t, ham, 1)
	assert.Equal(t, "West Ham United FC", ham[0].HomeTeam)

	// case sensitive: "ham" finds Fulham and Tottenham but not West Ham
	lower, err := repo.AllMatchesForTeam("ham")
	require.NoError(t, err)
	assert.Len(t, lower, 3)

	none, err := repo.AllMatchesForTeam("Juventus")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestResultsForTeamIsPlayedSubset(t *testing.T) {
	repo := fixtureRepository(t)

	all, err := repo.AllMatchesForTeam("Arsenal")
	require.NoError(t, err)
	results, err := repo.ResultsForTeam("Arsenal")
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, r := range results {
		assert.True(t, r.HasBeenPlayed())
		assert.Contains(t, all, r)
	}
	for _, m := range all {
		if m.HomeTeam == "West Ham United FC" {
			assert.NotContains(t, results, m)
		}
	}
}

func TestAllMatchesForTeamFailsOnUnreadableLeague(t *testing.T) {
	leagues, err := NewLeagues("testdata",
		LeagueSource{Key: "PL_2020/21", Path: "pl_20202021.txt"},
		LeagueSource{Key: "MISSING", Path: "missing.txt"},
	)
	require.NoError(t, err)

	_, err = NewRepository(leagues, nil).AllMatchesForTeam("Arsenal")
	assert.ErrorIs(t, err, ErrFileAccess)
	assert.Contains(t, err.Error(), "MISSING")
}

func TestTeams(t *testing.T) {
	repo := fixtureRepository(t)
	teams, err := repo.Teams("CL_2020/21")
	require.NoError(t, err)
	assert.Equal(t, []string{"Arsenal", "Bayern München", "Lokomotiv Moskva", "Salzburg", "Atlético Madrid"}, teams)
}

func TestRepositoryConcurrentQueries(t *testing.T) {
	repo := fixtureRepository(t)
	want, err := repo.AllMatchesForTeam("FC")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := repo.AllMatchesForTeam("FC")
			if err != nil {
				errs <- err
				return
			}
			if len(got) != len(want) {
				errs <- assert.AnError
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
