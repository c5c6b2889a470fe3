package results

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// monthTable maps month tokens (lower case) to months. Never written after init.
var monthTable = buildMonthTable()

func buildMonthTable() map[string]time.Month {
	t := make(map[string]time.Month, 64)
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		t[name] = m
		t[name[:3]] = m
		t[strconv.Itoa(int(m))] = m
		t[fmt.Sprintf("%02d", int(m))] = m
	}
	// Swedish short forms that differ from the English ones
	t["maj"] = time.May
	t["okt"] = time.October
	// "Sept" shows up in some hand edited files
	t["sept"] = time.September
	return t
}

func init() {
	if err := validateMonthTable(monthTable); err != nil {
		panic(err)
	}
}

// validateMonthTable makes sure every month is reachable and nothing maps out of range
func validateMonthTable(t map[string]time.Month) error {
	seen := make(map[time.Month]bool, 12)
	for token, m := range t {
		if m < time.January || m > time.December {
			return fmt.Errorf("month token %q maps to %d", token, m)
		}
		seen[m] = true
	}
	for m := time.January; m <= time.December; m++ {
		if !seen[m] {
			return fmt.Errorf("no month token maps to %s", m)
		}
	}
	return nil
}

// lookupMonth resolves a month token, case insensitively
func lookupMonth(token string) (time.Month, bool) {
	m, ok := monthTable[strings.ToLower(strings.TrimSpace(token))]
	return m, ok
}

// isMonthName reports whether token is a non-numeric month token such as "Aug"
func isMonthName(token string) bool {
	if _, err := strconv.Atoi(token); err == nil {
		return false
	}
	_, ok := lookupMonth(token)
	return ok
}
