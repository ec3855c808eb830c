// Package budgetapi talks to the Budget Buddy REST backend: it issues the
// HTTP requests, walks paginated listings and normalizes the loosely shaped
// payloads into domain entities.
package budgetapi

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

// record is one decoded JSON object from a list payload.
type record = map[string]any

// decodePayload decodes a response body, keeping numbers as json.Number so
// ids and amounts survive without float rounding. An empty body decodes to nil.
func decodePayload(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// ============================================================
// List shapes
// ============================================================

type listShape struct {
	name  string
	match func(v any) ([]any, bool)
}

// listShapes are tried in order; the first that yields an array wins.
var listShapes = []listShape{
	{"array", func(v any) ([]any, bool) { a, ok := v.([]any); return a, ok }},
	{"data", func(v any) ([]any, bool) { return arrayAt(v, "data") }},
	{"items", func(v any) ([]any, bool) { return arrayAt(v, "items") }},
	{"data.items", func(v any) ([]any, bool) { return arrayAt(v, "data", "items") }},
	{"budgets", func(v any) ([]any, bool) { return arrayAt(v, "budgets") }},
	{"data.budgets", func(v any) ([]any, bool) { return arrayAt(v, "data", "budgets") }},
}

func arrayAt(v any, path ...string) ([]any, bool) {
	for _, key := range path {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		v = obj[key]
	}
	a, ok := v.([]any)
	return a, ok
}

// ExtractList returns the object elements of a list payload regardless of
// its envelope. Unknown shapes yield an empty list, never an error.
// Non-object elements are skipped.
func ExtractList(payload any) []record {
	for _, shape := range listShapes {
		items, ok := shape.match(payload)
		if !ok {
			continue
		}
		out := make([]record, 0, len(items))
		for _, item := range items {
			if r, ok := item.(map[string]any); ok {
				out = append(out, r)
			}
		}
		return out
	}
	return []record{}
}

// rawLen is the element count of the matched list, including non-objects.
// The pager compares it with the page size.
func rawLen(payload any) int {
	for _, shape := range listShapes {
		if items, ok := shape.match(payload); ok {
			return len(items)
		}
	}
	return 0
}

// extractRecord unwraps a single-entity response: {data: {...}}, {budget: {...}},
// {transaction: {...}} or the bare object.
func extractRecord(payload any) (record, bool) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, false
	}
	for _, key := range []string{"data", "budget", "transaction", "item"} {
		if inner, ok := obj[key].(map[string]any); ok {
			return inner, true
		}
	}
	return obj, true
}

// ============================================================
// Field aliases
// ============================================================

var (
	categoryIDKeys   = []string{"category_id", "id", "_id", "cid"}
	categoryNameKeys = []string{"category_name", "name", "title", "label"}

	budgetIDKeys       = []string{"budget_id", "id"}
	budgetCategoryKeys = []string{"category_id", "categoryId", "category.id"}
	budgetAmountKeys   = []string{"budget_amount", "amount", "limit"}
	budgetCycleKeys    = []string{"cycle_month", "cycleMonth", "month"}

	txIDKeys       = []string{"transaction_id", "id"}
	txCategoryKeys = []string{"category_id", "categoryId", "category.id"}
	txDateKeys     = []string{"date", "created_at", "transaction_date", "txn_date"}
	txNoteKeys     = []string{"note", "description"}
)

// lookup resolves a dotted key path inside r.
func lookup(r record, key string) (any, bool) {
	var v any = r
	for _, part := range strings.Split(key, ".") {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		if v, ok = obj[part]; !ok {
			return nil, false
		}
	}
	return v, v != nil
}

// first returns the first present, non-null value among keys.
func first(r record, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := lookup(r, k); ok {
			return v, true
		}
	}
	return nil, false
}

func firstID(r record, keys []string) (int64, bool) {
	v, ok := first(r, keys)
	if !ok {
		return 0, false
	}
	return parseID(v)
}

func firstString(r record, keys []string) string {
	for _, k := range keys {
		v, ok := lookup(r, k)
		if !ok {
			continue
		}
		if s := asString(v); s != "" {
			return s
		}
	}
	return ""
}

// parseID accepts integral JSON numbers and numeric strings.
func parseID(v any) (int64, bool) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, true
		}
		if f, err := x.Float64(); err == nil && f == math.Trunc(f) {
			return int64(f), true
		}
	case float64:
		if x == math.Trunc(x) {
			return int64(x), true
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

// parseAmount accepts JSON numbers and strings with thousands separators
// ("1,250.50"). Unparsable values become zero.
func parseAmount(v any) decimal.Decimal {
	var s string
	switch x := v.(type) {
	case json.Number:
		s = x.String()
	case float64:
		return decimal.NewFromFloat(x)
	case string:
		s = strings.TrimSpace(strings.ReplaceAll(x, ",", ""))
	default:
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	}
	return ""
}

// ============================================================
// Entities
// ============================================================

// NormalizeCategory maps a category record. Records without a usable id are rejected.
func NormalizeCategory(r record) (domain.Category, bool) {
	id, ok := firstID(r, categoryIDKeys)
	if !ok {
		return domain.Category{}, false
	}
	name := firstString(r, categoryNameKeys)
	if name == "" {
		name = domain.FallbackCategoryName(id)
	}
	return domain.Category{ID: id, Name: name}, true
}

// NormalizeBudget maps a budget record. The amount is kept as a magnitude;
// an unparsable cycle month leaves CycleMonth zero.
func NormalizeBudget(r record) (domain.Budget, bool) {
	id, ok := firstID(r, budgetIDKeys)
	if !ok {
		return domain.Budget{}, false
	}
	b := domain.Budget{ID: id}
	b.CategoryID, _ = firstID(r, budgetCategoryKeys)
	if v, ok := first(r, budgetAmountKeys); ok {
		b.Amount = parseAmount(v).Abs()
	} else {
		b.Amount = decimal.Zero
	}
	if s := firstString(r, budgetCycleKeys); s != "" {
		if m, err := domain.ParseMonth(s); err == nil {
			b.CycleMonth = m
		}
	}
	return b, true
}

// NormalizeTransaction maps a transaction record. Type is lower-cased and kept
// even when unknown; an unparsable date leaves Date zero.
func NormalizeTransaction(r record) (domain.Transaction, bool) {
	id, ok := firstID(r, txIDKeys)
	if !ok {
		return domain.Transaction{}, false
	}
	t := domain.Transaction{
		ID:     id,
		Type:   domain.TxType(strings.ToLower(firstString(r, []string{"type"}))),
		Amount: decimal.Zero,
		Note:   firstString(r, txNoteKeys),
	}
	t.CategoryID, _ = firstID(r, txCategoryKeys)
	if v, ok := r["amount"]; ok && v != nil {
		t.Amount = parseAmount(v).Abs()
	}
	if s := firstString(r, txDateKeys); s != "" {
		if d, err := domain.ParseDate(s); err == nil {
			t.Date = d
		}
	}
	return t, true
}

// NormalizeCategories extracts and maps every category in payload.
func NormalizeCategories(payload any) []domain.Category {
	return normalizeAll(ExtractList(payload), NormalizeCategory)
}

// NormalizeBudgets extracts and maps every budget in payload.
func NormalizeBudgets(payload any) []domain.Budget {
	return normalizeAll(ExtractList(payload), NormalizeBudget)
}

// NormalizeTransactions extracts and maps every transaction in payload.
func NormalizeTransactions(payload any) []domain.Transaction {
	return normalizeAll(ExtractList(payload), NormalizeTransaction)
}

func normalizeAll[T any](records []record, fn func(record) (T, bool)) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if v, ok := fn(r); ok {
			out = append(out, v)
		}
	}
	return out
}

// ============================================================
// Pagination metadata
// ============================================================

// pageMeta is the server's pagination block. Zero fields were absent.
type pageMeta struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
	hasTotal   bool
}

// parsePageMeta reads {pagination: {...}} or {meta: {...}}, at the top level
// or under data. It reports false when no metadata object is present.
func parsePageMeta(payload any) (pageMeta, bool) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return pageMeta{}, false
	}
	candidates := []any{obj["pagination"], obj["meta"]}
	if data, ok := obj["data"].(map[string]any); ok {
		candidates = append(candidates, data["pagination"], data["meta"])
	}
	for _, c := range candidates {
		m, ok := c.(map[string]any)
		if !ok {
			continue
		}
		var meta pageMeta
		meta.Page = metaInt(m, "page", "current_page", "currentPage")
		meta.Limit = metaInt(m, "limit", "per_page", "perPage")
		meta.TotalPages = metaInt(m, "totalPages", "total_pages")
		if v, ok := first(m, []string{"total", "total_count", "totalCount"}); ok {
			if n, ok := parseID(v); ok {
				meta.Total = int(n)
				meta.hasTotal = true
			}
		}
		return meta, true
	}
	return pageMeta{}, false
}

func metaInt(m record, keys ...string) int {
	v, ok := first(m, keys)
	if !ok {
		return 0
	}
	n, ok := parseID(v)
	if !ok || n < 0 {
		return 0
	}
	return int(n)
}

// lastPage reports whether meta says page is the final page.
// Without totalPages it derives ceil(total/limit).
func (m pageMeta) lastPage(page, pageSize int) bool {
	current := page
	if m.Page > 0 {
		current = m.Page
	}
	totalPages := m.TotalPages
	if totalPages == 0 && m.hasTotal {
		limit := m.Limit
		if limit <= 0 {
			limit = pageSize
		}
		totalPages = (m.Total + limit - 1) / limit
	}
	return totalPages > 0 && current >= totalPages
}
