package results

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	yearPattern       = regexp.MustCompile(`\d{4}`)
	dateBracket       = regexp.MustCompile(`\[([^\]]+)\]`)
	timePrefix        = regexp.MustCompile(`^\d\d[.:]\d\d\s+`)
	fieldSeparator    = regexp.MustCompile(`\s{2,}`)
	scorePattern      = regexp.MustCompile(`^(\d+)-(\d+)$`)
	scoreBlockPattern = regexp.MustCompile(`^(-|\d+-\d+)(\s+\(\d+-\d+\))?$`)
)

const notPlayed = "-"

// minMatchTokens is the token count a line must exceed to be treated as a match
const minMatchTokens = 4

// isYearHeader reports whether line is a season header such as "= Premier League 2019/20"
func isYearHeader(line string) bool {
	return strings.HasPrefix(line, "=")
}

// isComment reports whether line is a "#" comment
func isComment(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "#")
}

// headerYear extracts the first four digit run from a header line
func headerYear(line string) (int, bool) {
	y := yearPattern.FindString(line)
	if y == "" {
		return 0, false
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return 0, false
	}
	return year, true
}

// dateToken returns the content of the first [...] token on the line
func dateToken(line string) (string, bool) {
	m := dateBracket.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// parseDayMonth reads the content of a date bracket. Accepted shapes:
// "Sat Aug/10", "Aug/10", "10/Aug" and the numeric "10/08" (day first).
func parseDayMonth(token string) (time.Month, int, error) {
	fields := strings.Fields(token)
	if len(fields) == 0 {
		return 0, 0, errors.New("empty date")
	}
	// drop a leading weekday
	parts := strings.Split(fields[len(fields)-1], "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("date %q is not of the form DD/MON", token)
	}

	monthToken, dayToken := parts[1], parts[0]
	if isMonthName(parts[0]) {
		monthToken, dayToken = parts[0], parts[1]
	}

	month, ok := lookupMonth(monthToken)
	if !ok {
		return 0, 0, fmt.Errorf("unknown month %q", monthToken)
	}
	day, err := strconv.Atoi(dayToken)
	if err != nil {
		return 0, 0, fmt.Errorf("bad day %q", dayToken)
	}
	return month, day, nil
}

// validDate builds the date and rejects days that do not exist in that month
func validDate(year int, month time.Month, day int) (time.Time, error) {
	d := Date(year, month, day)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return time.Time{}, fmt.Errorf("no such date %d-%02d-%02d", year, month, day)
	}
	return d, nil
}

// stripTimePrefix removes a leading "HH.MM " kick off time
func stripTimePrefix(line string) string {
	return timePrefix.ReplaceAllString(strings.TrimSpace(line), "")
}

// splitFixture splits "Home  <score>  Away" on runs of two or more spaces
func splitFixture(line string) []string {
	return fieldSeparator.Split(strings.TrimSpace(line), -1)
}

// isMatchLine reports whether a line should be parsed as a fixture.
// Anything with more than four tokens qualifies, as does a shorter line that
// is clearly "Home  <score>  Away", eg "Arsenal  -  Chelsea".
func isMatchLine(line string) bool {
	if len(strings.Fields(line)) > minMatchTokens {
		return true
	}
	fields := splitFixture(stripTimePrefix(line))
	return len(fields) == 3 && scoreBlockPattern.MatchString(fields[1])
}

// parseScore reads "H-A"
func parseScore(token string) (Score, error) {
	m := scorePattern.FindStringSubmatch(token)
	if m == nil {
		return Score{}, fmt.Errorf("bad score %q", token)
	}
	home, err := strconv.Atoi(m[1])
	if err != nil {
		return Score{}, fmt.Errorf("bad score %q: %w", token, err)
	}
	away, err := strconv.Atoi(m[2])
	if err != nil {
		return Score{}, fmt.Errorf("bad score %q: %w", token, err)
	}
	return Score{Home: home, Away: away}, nil
}

// parseHalfTime reads "(H-A)"
func parseHalfTime(token string) (Score, error) {
	if len(token) < 2 || token[0] != '(' || token[len(token)-1] != ')' {
		return Score{}, fmt.Errorf("bad half time score %q", token)
	}
	return parseScore(token[1 : len(token)-1])
}

type scoreBlock struct {
	fullTime    Score
	played      bool
	halfTime    Score
	hasHalfTime bool
}

// parseScoreBlock reads "-", "H-A", "- (H-A)" or "H-A (H-A)"
func parseScoreBlock(block string) (scoreBlock, error) {
	var sb scoreBlock
	tokens := strings.Fields(block)
	switch {
	case len(tokens) == 0:
		return sb, errors.New("missing score")
	case len(tokens) > 2:
		return sb, fmt.Errorf("unexpected score block %q", block)
	}

	if tokens[0] != notPlayed {
		ft, err := parseScore(tokens[0])
		if err != nil {
			return sb, err
		}
		sb.fullTime, sb.played = ft, true
	}
	if len(tokens) == 2 {
		ht, err := parseHalfTime(tokens[1])
		if err != nil {
			return sb, err
		}
		sb.halfTime, sb.hasHalfTime = ht, true
	}
	return sb, nil
}
