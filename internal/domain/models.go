// Package domain defines the core entities for the Budget Buddy BFA.
// These models are independent of the upstream REST API and represent the
// canonical data structures used throughout the reporting engine.
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ============================================================
// Categories
// ============================================================

// Category is a spending/income category owned by the user.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// FallbackCategoryName is the display name used when upstream omits one.
func FallbackCategoryName(id int64) string {
	return fmt.Sprintf("Category %d", id)
}

// CategoryNames maps category IDs to display names.
type CategoryNames map[int64]string

// NewCategoryNames indexes a category list by ID.
func NewCategoryNames(categories []Category) CategoryNames {
	names := make(CategoryNames, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names
}

// NameOf returns the category name, falling back to "Category {id}".
func (n CategoryNames) NameOf(id int64) string {
	if name, ok := n[id]; ok && name != "" {
		return name
	}
	return FallbackCategoryName(id)
}

// ============================================================
// Budgets
// ============================================================

// Budget is a spending limit for one category in one cycle month.
type Budget struct {
	ID         int64           `json:"id"`
	CategoryID int64           `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
	CycleMonth Month           `json:"cycle_month"`
}

// BudgetRequest is the body for creating or updating a budget.
// Amount is required in both cases and is invalid when absent or null.
// CategoryID is optional on update; CycleMonth defaults to the current month on create.
type BudgetRequest struct {
	CategoryID int64               `json:"category_id"`
	Amount     decimal.NullDecimal `json:"amount"`
	CycleMonth Month           `json:"cycle_month"`
}

// ============================================================
// Transactions
// ============================================================

// TxType is the direction of a transaction.
type TxType string

const (
	TxIncome  TxType = "income"
	TxExpense TxType = "expense"
)

// Valid reports whether t is a known transaction type.
func (t TxType) Valid() bool {
	return t == TxIncome || t == TxExpense
}

// Transaction is a single income or expense record.
// Amount is always a positive magnitude; direction is carried by Type.
// CategoryID 0 means the transaction has no category.
type Transaction struct {
	ID         int64           `json:"id"`
	CategoryID int64           `json:"category_id"`
	Type       TxType          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Date       Date            `json:"date"`
	Note       string          `json:"note,omitempty"`
}

// TransactionRequest is the body for recording a new transaction.
// The date is not accepted from callers: it is always the day of creation.
type TransactionRequest struct {
	CategoryID int64           `json:"category_id"`
	Type       TxType          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note,omitempty"`
}

// TransactionQuery filters a paginated transaction listing.
type TransactionQuery struct {
	StartDate  Date
	EndDate    Date
	Type       TxType // optional
	CategoryID int64  // optional, 0 = all
}

// TransactionView is a transaction annotated with its category name, as listed to users.
type TransactionView struct {
	Transaction
	CategoryName string `json:"category_name"`
}
