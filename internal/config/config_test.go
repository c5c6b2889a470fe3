package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tipshjalpen/resultat/pkg/results"
)

// isolate points HOME somewhere empty so no real config file is picked up
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TIPSHJALPEN_CONFIG", "")
	return home
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "data", c.DataDir)
	assert.Equal(t, results.DefaultYear, c.DefaultYear)
	assert.Equal(t, "skip", c.Malformed)
	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, filepath.Join(home, ".local", "share", "tipshjalpen", "results.db"), c.DBPath)
	assert.Equal(t, results.DefaultLeagueSources(), c.LeagueSources)
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
data_dir = "/srv/football"
default_year = 2019
malformed = "fail"
log_level = "debug"

[http]
addr = "127.0.0.1:9000"

[[leagues]]
key = "SA_2020/21"
path = "italy/1-seriea.txt"
url = "https://example.org/italy/1-seriea.txt"

[[leagues]]
key = "PL_2020/21"
path = "england/1-premierleague.txt"
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/football", c.DataDir)
	assert.Equal(t, 2019, c.DefaultYear)
	assert.Equal(t, "127.0.0.1:9000", c.HTTP.Addr)
	require.Len(t, c.LeagueSources, 2)
	assert.Equal(t, "SA_2020/21", c.LeagueSources[0].Key, "league order is kept")
	assert.Equal(t, "https://example.org/italy/1-seriea.txt", c.LeagueSources[0].URL)

	leagues, err := c.Leagues()
	require.NoError(t, err)
	assert.Equal(t, []string{"SA_2020/21", "PL_2020/21"}, leagues.Keys())
	src, err := leagues.Lookup("PL_2020/21")
	require.NoError(t, err)
	assert.Equal(t, "/srv/football/england/1-premierleague.txt", src.Path)

	opts, err := c.ParserOptions()
	require.NoError(t, err)
	assert.Equal(t, results.Options{DefaultYear: 2019, Malformed: results.FailFast}, opts)
}

func TestLoadFromEnvPath(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "default_year = 2001\n")
	t.Setenv("TIPSHJALPEN_CONFIG", path)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2001, c.DefaultYear)
}

func TestEnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "data_dir = \"from-file\"\n")
	t.Setenv("TIPSHJALPEN_DATA_DIR", "from-env")
	t.Setenv("TIPSHJALPEN_HTTP_ADDR", ":1234")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.DataDir)
	assert.Equal(t, ":1234", c.HTTP.Addr)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	c := DefaultConfig()
	c.DefaultYear = 20
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.Malformed = "ignore"
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.LogLevel = "loud"
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.LeagueSources = nil
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.LeagueSources = append(c.LeagueSources, c.LeagueSources[0])
	assert.Error(t, c.Validate())
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	isolate(t)
	_, err := Load(writeConfig(t, "malformed = \"sometimes\"\n"))
	assert.Error(t, err)
}

func TestRepository(t *testing.T) {
	c := DefaultConfig()
	c.DataDir = filepath.Join("..", "..", "pkg", "results", "testdata")
	c.LeagueSources = []results.LeagueSource{{Key: "PL_2020/21", Path: "pl_20202021.txt"}}

	repo, err := c.Repository()
	require.NoError(t, err)
	matches, err := repo.AllMatchesForSeason("PL_2020/21")
	require.NoError(t, err)
	assert.Len(t, matches, 7)
}
