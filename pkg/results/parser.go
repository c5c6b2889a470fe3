package results

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/tipshjalpen/resultat/internal/logger"
)

// MalformedPolicy decides what happens to lines that look like records but do not parse
type MalformedPolicy int

const (
	// SkipMalformed logs the line and carries on
	SkipMalformed MalformedPolicy = iota
	// FailFast aborts the whole parse with a *MalformedRecordError
	FailFast
)

// DefaultYear is the season year used until a header line says otherwise
const DefaultYear = 2020

func (p MalformedPolicy) String() string {
	if p == FailFast {
		return "fail"
	}
	return "skip"
}

// ParseMalformedPolicy converts "skip" or "fail" to a policy
func ParseMalformedPolicy(s string) (MalformedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return SkipMalformed, nil
	case "fail", "failfast", "fail-fast":
		return FailFast, nil
	}
	return SkipMalformed, fmt.Errorf("unknown malformed record policy %q", s)
}

// Options controls a Parser
type Options struct {
	DefaultYear int
	Malformed   MalformedPolicy
}

// DefaultOptions returns the options matching the historic behaviour
func DefaultOptions() Options {
	return Options{DefaultYear: DefaultYear, Malformed: SkipMalformed}
}

// Parser turns season files into matches. It holds configuration only, so a
// single Parser may be shared between goroutines.
type Parser struct {
	opts Options
}

func NewParser(opts Options) *Parser {
	if opts.DefaultYear == 0 {
		opts.DefaultYear = DefaultYear
	}
	return &Parser{opts: opts}
}

// Options returns a copy of the parser's options
func (p *Parser) Options() Options {
	return p.opts
}

// seasonCursor is the per-parse state: the current season year, whether the
// file has already crossed into January, and the most recent date line.
type seasonCursor struct {
	year       int
	rolledOver bool
	date       time.Time
}

// advance applies a date line. The first January seen moves the year on by one.
func (c *seasonCursor) advance(month time.Month, day int) error {
	year := c.year
	if month == time.January && !c.rolledOver {
		year++
	}
	d, err := validDate(year, month, day)
	if err != nil {
		return err
	}
	if year != c.year {
		c.rolledOver = true
		c.year = year
	}
	c.date = d
	return nil
}

// ParseFile opens path and parses it under the given league label
func (p *Parser) ParseFile(path, league string) ([]Match, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileAccessError{Path: path, Err: err}
	}
	defer f.Close()

	matches, err := p.Parse(f, league)
	if err != nil {
		var rerr readError
		if errors.As(err, &rerr) {
			return nil, &FileAccessError{Path: path, Err: rerr.err}
		}
		return nil, err
	}
	logger.Debug("Parsed season file", path, league, len(matches), "matches")
	return matches, nil
}

// readError marks failures of the underlying reader as opposed to parse failures
type readError struct{ err error }

func (e readError) Error() string { return "read failed: " + e.err.Error() }
func (e readError) Unwrap() error { return e.err }

// Parse reads a season file from r. Matches come back in file order.
func (p *Parser) Parse(r io.Reader, league string) ([]Match, error) {
	cursor := &seasonCursor{year: p.opts.DefaultYear}
	matches := make([]Match, 0, 512)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		m, ok, err := p.parseLine(cursor, line)
		if err != nil {
			merr := &MalformedRecordError{League: league, Line: lineNo, Text: strings.TrimSpace(line), Reason: err.Error()}
			if p.opts.Malformed == FailFast {
				return nil, merr
			}
			logger.Warn("Skipping malformed line", merr)
			continue
		}
		if !ok {
			continue
		}
		m.League = league
		m.Line = lineNo
		matches = append(matches, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, readError{err: err}
	}
	return matches, nil
}

// parseLine classifies one line and applies it to the cursor.
// ok is true only when the line produced a match.
func (p *Parser) parseLine(c *seasonCursor, line string) (Match, bool, error) {
	if isYearHeader(line) {
		if year, found := headerYear(line); found {
			c.year = year
		} else {
			logger.Debug("Header without a year", line)
		}
		return Match{}, false, nil
	}

	if strings.TrimSpace(line) == "" || isComment(line) {
		return Match{}, false, nil
	}

	if token, found := dateToken(line); found {
		month, day, err := parseDayMonth(token)
		if err != nil {
			return Match{}, false, err
		}
		return Match{}, false, c.advance(month, day)
	}

	if !isMatchLine(line) {
		return Match{}, false, nil
	}
	m, err := parseFixture(line)
	if err != nil {
		return Match{}, false, err
	}
	m.Date = c.date
	return m, true, nil
}

// parseFixture reads "[HH.MM] Home  <score block>  Away"
func parseFixture(line string) (Match, error) {
	fields := splitFixture(stripTimePrefix(line))
	if len(fields) != 3 {
		return Match{}, fmt.Errorf("expected home, score and away separated by two spaces, found %d fields", len(fields))
	}

	sb, err := parseScoreBlock(fields[1])
	if err != nil {
		return Match{}, err
	}

	m := NewMatch()
	m.HomeTeam = strings.TrimSpace(fields[0])
	m.AwayTeam = strings.TrimSpace(fields[2])
	if m.HomeTeam == "" || m.AwayTeam == "" {
		return Match{}, fmt.Errorf("missing team name")
	}
	if sb.played {
		m.FullTimeHome, m.FullTimeAway = sb.fullTime.Home, sb.fullTime.Away
	}
	if sb.hasHalfTime {
		m.HalfTimeHome, m.HalfTimeAway = sb.halfTime.Home, sb.halfTime.Away
	}
	return m, nil
}
