package ingest

import (
	"strings"
	"unicode/utf8"
)

// Cohort is the recruitment channel a participant came through, inferred from
// the shape of their user id.
type Cohort string

const (
	CohortTest      Cohort = "test"
	CohortQualtrics Cohort = "qualtrics"
	CohortYouGov    Cohort = "yougov"
	CohortUnknown   Cohort = "unknown"
)

const testAccountPrefix = "test-"

// CohortOf applies the checks in order: test prefix, five hyphen-separated
// segments, then a 14 character id.
func CohortOf(userID string) Cohort {
	switch {
	case strings.HasPrefix(userID, testAccountPrefix):
		return CohortTest
	case len(strings.Split(userID, "-")) == 5:
		return CohortQualtrics
	case utf8.RuneCountInString(userID) == 14:
		return CohortYouGov
	default:
		return CohortUnknown
	}
}

func cohortSet(names []string) map[Cohort]bool {
	set := make(map[Cohort]bool, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			set[Cohort(name)] = true
		}
	}
	return set
}
