package edinet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPeriodFilter_Matches(t *testing.T) {
	tests := []struct {
		name      string
		filter    PeriodFilter
		periodEnd string
		want      bool
	}{
		{"no filter", PeriodFilter{}, "", true},
		{"exact period", PeriodFilter{PeriodEndYear: 2024, PeriodEndMonth: 3}, "2024-03-31", true},
		{"wrong month", PeriodFilter{PeriodEndYear: 2024, PeriodEndMonth: 12}, "2024-03-31", false},
		{"malformed period end", PeriodFilter{PeriodEndYear: 2024, PeriodEndMonth: 3}, "2024/03/31", false},
		{"fiscal year same calendar year", PeriodFilter{FiscalYear: 2024, CutoffMonth: 6}, "2024-12-31", true},
		{"fiscal year offset for march end", PeriodFilter{FiscalYear: 2023, CutoffMonth: 6}, "2024-03-31", true},
		{"no offset after cutoff", PeriodFilter{FiscalYear: 2023, CutoffMonth: 6}, "2024-09-30", false},
		{"offset disabled", PeriodFilter{FiscalYear: 2023}, "2024-03-31", false},
		{"fiscal year missing period end", PeriodFilter{FiscalYear: 2024, CutoffMonth: 6}, "", false},
		{"both filters", PeriodFilter{FiscalYear: 2023, PeriodEndYear: 2024, PeriodEndMonth: 3, CutoffMonth: 6}, "2024-03-31", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.periodEnd))
		})
	}
}

func TestErrorList_SortedUnique(t *testing.T) {
	var l ErrorList
	l.Addf("b failed")
	l.Add(&StatusError{Endpoint: "documents/X?type=1", Status: 404})
	l.Addf("b failed")
	l.Add(nil)

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, []string{"b failed", "documents/X?type=1 status=404"}, l.Sorted())
}
