package edinet

import (
	"regexp"
	"strconv"
)

var periodEndPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// PeriodFilter narrows candidate filings. Zero fields are unset.
type PeriodFilter struct {
	FiscalYear     int
	PeriodEndYear  int
	PeriodEndMonth int
	// CutoffMonth enables the fiscal-year offset: a period ending in month
	// 1..CutoffMonth also counts for the previous fiscal year, so "FY2024"
	// matches a March 2025 year end. Zero disables the offset.
	CutoffMonth int
}

// Matches reports whether a document's periodEnd passes the filter.
func (f PeriodFilter) Matches(periodEnd string) bool {
	if f.PeriodEndYear != 0 && f.PeriodEndMonth != 0 {
		y, m, ok := splitPeriodEnd(periodEnd)
		if !ok || y != f.PeriodEndYear || m != f.PeriodEndMonth {
			return false
		}
	}
	if f.FiscalYear != 0 && !matchesFiscalYear(periodEnd, f.FiscalYear, f.CutoffMonth) {
		return false
	}
	return true
}

func matchesFiscalYear(periodEnd string, fiscalYear, cutoff int) bool {
	y, m, ok := splitPeriodEnd(periodEnd)
	if !ok {
		return false
	}
	if fiscalYear == y {
		return true
	}
	return cutoff > 0 && m <= cutoff && fiscalYear == y-1
}

func splitPeriodEnd(s string) (year, month int, ok bool) {
	m := periodEndPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	year, _ = strconv.Atoi(m[1])
	month, _ = strconv.Atoi(m[2])
	return year, month, true
}
