package results

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"
)

// LeagueSource ties a league key such as "PL_2019/20" to its season file.
// URL is optional and only used when downloading the file.
type LeagueSource struct {
	Key  string `json:"key" mapstructure:"key"`
	Path string `json:"path" mapstructure:"path"`
	URL  string `json:"url,omitempty" mapstructure:"url"`
}

// Leagues is the ordered league key to season file mapping. It is built once
// and never modified afterwards.
type Leagues struct {
	sources []LeagueSource
	index   map[string]int
}

// maxSuggestionDistance bounds how different a key may be and still be suggested
const maxSuggestionDistance = 4

// DefaultLeagueSources are the seasons shipped with the original data set
func DefaultLeagueSources() []LeagueSource {
	return []LeagueSource{
		{Key: "PL_2019/20", Path: "england/1-premierleague_20192020.txt"},
		{Key: "PL_2015/16", Path: "england/1-premierleague_20152016.txt"},
		{Key: "CL_20192020", Path: "championsleague/cl_20192020.txt"},
	}
}

// NewLeagues validates sources and resolves relative paths against dataDir.
// Declaration order is kept.
func NewLeagues(dataDir string, sources ...LeagueSource) (*Leagues, error) {
	l := &Leagues{
		sources: make([]LeagueSource, 0, len(sources)),
		index:   make(map[string]int, len(sources)),
	}
	for i, s := range sources {
		s.Key = strings.TrimSpace(s.Key)
		if s.Key == "" {
			return nil, fmt.Errorf("league %d has no key", i)
		}
		if s.Path == "" {
			return nil, fmt.Errorf("league %q has no path", s.Key)
		}
		if _, dup := l.index[s.Key]; dup {
			return nil, fmt.Errorf("league %q configured twice", s.Key)
		}
		if dataDir != "" && !filepath.IsAbs(s.Path) {
			s.Path = filepath.Join(dataDir, s.Path)
		}
		l.index[s.Key] = len(l.sources)
		l.sources = append(l.sources, s)
	}
	return l, nil
}

// DefaultLeagues returns the default mapping rooted at dataDir
func DefaultLeagues(dataDir string) *Leagues {
	l, err := NewLeagues(dataDir, DefaultLeagueSources()...)
	if err != nil {
		panic(err)
	}
	return l
}

// Keys returns the league keys in declaration order
func (l *Leagues) Keys() []string {
	keys := make([]string, len(l.sources))
	for i, s := range l.sources {
		keys[i] = s.Key
	}
	return keys
}

// Sources returns a copy of the configured sources in declaration order
func (l *Leagues) Sources() []LeagueSource {
	return append([]LeagueSource(nil), l.sources...)
}

func (l *Leagues) Len() int {
	return len(l.sources)
}

// Lookup resolves key, returning an *UnknownLeagueError when it is not configured
func (l *Leagues) Lookup(key string) (LeagueSource, error) {
	if i, ok := l.index[key]; ok {
		return l.sources[i], nil
	}
	return LeagueSource{}, &UnknownLeagueError{Key: key, Suggestion: l.closest(key)}
}

// closest returns the configured key with the smallest edit distance to key
func (l *Leagues) closest(key string) string {
	best, bestDist := "", maxSuggestionDistance+1
	for _, s := range l.sources {
		d := levenshtein.ComputeDistance(strings.ToUpper(key), strings.ToUpper(s.Key))
		if d < bestDist {
			best, bestDist = s.Key, d
		}
	}
	return best
}
