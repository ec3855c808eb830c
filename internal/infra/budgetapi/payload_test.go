package budgetapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecode(t *testing.T, body string) any {
	t.Helper()
	v, err := decodePayload([]byte(body))
	require.NoError(t, err)
	return v
}

func TestExtractList_Shapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bare array", `[{"id":1},{"id":2}]`, 2},
		{"data", `{"data":[{"id":1}]}`, 1},
		{"items", `{"items":[{"id":1},{"id":2},{"id":3}]}`, 3},
		{"data.items", `{"data":{"items":[{"id":1}]}}`, 1},
		{"budgets", `{"budgets":[{"id":1},{"id":2}]}`, 2},
		{"data.budgets", `{"data":{"budgets":[{"id":1}]}}`, 1},
		{"data wins over items", `{"data":[{"id":1}],"items":[{"id":1},{"id":2}]}`, 1},
		{"unknown shape", `{"results":[{"id":1}]}`, 0},
		{"scalar", `42`, 0},
		{"null", `null`, 0},
		{"non-object elements skipped", `[{"id":1},"x",3]`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractList(mustDecode(t, tt.body))
			require.NotNil(t, got)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestNormalizeCategories_Aliases(t *testing.T) {
	body := `{"data":[
		{"category_id": 1, "id": 99, "category_name": "Food", "name": "ignored"},
		{"id": "2", "title": "Travel"},
		{"_id": 3, "label": "Bills"},
		{"id": 4},
		{"name": "no id"},
		{"category_id": null, "id": 5, "name": "Null falls through"},
		{"cid": 6, "name": "Gifts"}
	]}`

	got := NormalizeCategories(mustDecode(t, body))

	require.Len(t, got, 6)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "Food", got[0].Name)
	assert.Equal(t, int64(2), got[1].ID)
	assert.Equal(t, "Travel", got[1].Name)
	assert.Equal(t, "Bills", got[2].Name)
	assert.Equal(t, "Category 4", got[3].Name)
	assert.Equal(t, int64(5), got[4].ID)
	assert.Equal(t, int64(6), got[5].ID)
	assert.Equal(t, "Gifts", got[5].Name)
}

func TestNormalizeBudgets_Aliases(t *testing.T) {
	body := `{"budgets":[
		{"budget_id": 10, "category_id": 1, "budget_amount": "1,250.50", "cycle_month": "2025-01"},
		{"id": 11, "categoryId": 2, "amount": 300, "cycleMonth": "2025-2"},
		{"id": 12, "category": {"id": 3}, "limit": -40, "month": "2025-03-01"},
		{"id": 13, "category_id": 4, "amount": "abc", "cycle_month": "bogus"}
	]}`

	got := NormalizeBudgets(mustDecode(t, body))

	require.Len(t, got, 4)
	assert.Equal(t, int64(10), got[0].ID)
	assert.Equal(t, int64(1), got[0].CategoryID)
	assert.Equal(t, "1250.5", got[0].Amount.String())
	assert.Equal(t, "2025-01", got[0].CycleMonth.String())

	assert.Equal(t, int64(2), got[1].CategoryID)
	assert.Equal(t, "300", got[1].Amount.String())
	assert.Equal(t, "2025-02", got[1].CycleMonth.String())

	assert.Equal(t, int64(3), got[2].CategoryID)
	assert.Equal(t, "40", got[2].Amount.String())
	assert.Equal(t, "2025-03", got[2].CycleMonth.String())

	assert.True(t, got[3].Amount.IsZero())
	assert.True(t, got[3].CycleMonth.IsZero())
}

func TestNormalizeTransactions_Aliases(t *testing.T) {
	body := `{"items":[
		{"transaction_id": 1, "id": 7, "type": "EXPENSE", "amount": "-12.30", "category_id": 4, "date": "2025-1-5", "note": "lunch"},
		{"id": 2, "type": "income", "amount": 1000, "categoryId": 9, "created_at": "2025-01-31T22:10:00Z", "description": "salary"},
		{"id": 3, "type": "transfer", "amount": 5, "category": {"id": 4}, "transaction_date": "2025/02/01"},
		{"id": 4, "type": "expense", "amount": 5, "txn_date": "not a date"},
		{"type": "expense", "amount": 5}
	]}`

	got := NormalizeTransactions(mustDecode(t, body))

	require.Len(t, got, 4)

	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "expense", string(got[0].Type))
	assert.Equal(t, "12.3", got[0].Amount.String())
	assert.Equal(t, int64(4), got[0].CategoryID)
	assert.Equal(t, "2025-01-05", got[0].Date.String())
	assert.Equal(t, "lunch", got[0].Note)

	assert.Equal(t, int64(9), got[1].CategoryID)
	assert.Equal(t, "2025-01-31", got[1].Date.String())
	assert.Equal(t, "salary", got[1].Note)

	assert.Equal(t, "transfer", string(got[2].Type))
	assert.False(t, got[2].Type.Valid())
	assert.Equal(t, int64(4), got[2].CategoryID)
	assert.Equal(t, "2025-02-01", got[2].Date.String())

	assert.Zero(t, got[3].CategoryID)
	assert.True(t, got[3].Date.IsZero())
}

func TestParsePageMeta(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		page     int
		present  bool
		lastPage bool
	}{
		{"no metadata", `{"data":[]}`, 1, false, false},
		{"totalPages reached", `{"data":[],"pagination":{"page":3,"totalPages":3}}`, 3, true, true},
		{"total_pages not reached", `{"data":[],"meta":{"page":1,"total_pages":3}}`, 1, true, false},
		{"derived from total", `{"data":[],"pagination":{"page":2,"limit":100,"total":150}}`, 2, true, true},
		{"derived, not reached", `{"data":[],"pagination":{"limit":100,"total":250}}`, 2, true, false},
		{"string numbers", `{"data":[],"pagination":{"page":"2","totalPages":"2"}}`, 2, true, true},
		{"nested under data", `{"data":{"items":[],"pagination":{"page":1,"totalPages":1}}}`, 1, true, true},
		{"empty object", `{"data":[],"pagination":{}}`, 1, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, ok := parsePageMeta(mustDecode(t, tt.body))
			assert.Equal(t, tt.present, ok)
			assert.Equal(t, tt.lastPage, meta.lastPage(tt.page, DefaultPageSize))
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := map[string]string{
		`"1,234.56"`: "1234.56",
		`" 42 "`:     "42",
		`12.5`:       "12.5",
		`"n/a"`:      "0",
		`true`:       "0",
	}
	for in, want := range tests {
		got := parseAmount(mustDecode(t, in))
		assert.Equal(t, want, got.String(), in)
	}
}
