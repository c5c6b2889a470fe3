package results

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLeaguesKeepsDeclarationOrder(t *testing.T) {
	l, err := NewLeagues("data",
		LeagueSource{Key: "PL_2019/20", Path: "england/pl.txt"},
		LeagueSource{Key: "CL_20192020", Path: "/abs/cl.txt"},
		LeagueSource{Key: "PL_2015/16", Path: "england/pl15.txt"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"PL_2019/20", "CL_20192020", "PL_2015/16"}, l.Keys())
	assert.Equal(t, 3, l.Len())

	src, err := l.Lookup("PL_2019/20")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("data", "england/pl.txt"), src.Path)

	src, err = l.Lookup("CL_20192020")
	require.NoError(t, err)
	assert.Equal(t, "/abs/cl.txt", src.Path, "absolute paths are left alone")
}

func TestNewLeaguesRejectsBadSources(t *testing.T) {
	_, err := NewLeagues("", LeagueSource{Key: " ", Path: "a.txt"})
	assert.Error(t, err)

	_, err = NewLeagues("", LeagueSource{Key: "PL", Path: ""})
	assert.Error(t, err)

	_, err = NewLeagues("",
		LeagueSource{Key: "PL", Path: "a.txt"},
		LeagueSource{Key: "PL", Path: "b.txt"},
	)
	assert.Error(t, err)
}

func TestSourcesIsACopy(t *testing.T) {
	l := DefaultLeagues("")
	s := l.Sources()
	s[0].Key = "changed"
	assert.Equal(t, "PL_2019/20", l.Keys()[0])
}

func TestLookupUnknownLeagueSuggestsClosestKey(t *testing.T) {
	l := DefaultLeagues("")

	_, err := l.Lookup("PL_2019/21")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownLeague))

	var uerr *UnknownLeagueError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "PL_2019/21", uerr.Key)
	assert.Equal(t, "PL_2019/20", uerr.Suggestion)
	assert.Contains(t, err.Error(), "did you mean")

	// lookups are case sensitive, suggestions are not
	_, err = l.Lookup("pl_2015/16")
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "PL_2015/16", uerr.Suggestion)

	_, err = l.Lookup("Serie A 1998")
	require.True(t, errors.As(err, &uerr))
	assert.Empty(t, uerr.Suggestion)
	assert.NotContains(t, err.Error(), "did you mean")
}
