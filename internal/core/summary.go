package core

import "github.com/shopspring/decimal"

// MonthTotals sums a month's rows by type. It backs both the realized
// dashboard and the projection.
type MonthTotals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Balance decimal.Decimal
}

// CategoryTotal is the summed expense of one category.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// Page is one slice of a paginated listing.
type Page struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
	Data       []Transaction
}

// NewMonthTotals builds totals with the balance derived from income and expense.
func NewMonthTotals(income, expense decimal.Decimal) MonthTotals {
	return MonthTotals{Income: income, Expense: expense, Balance: income.Sub(expense)}
}

// SumByType folds rows into income and expense totals.
func SumByType(rows []Transaction) MonthTotals {
	income, expense := decimal.Zero, decimal.Zero
	for _, t := range rows {
		switch t.Type {
		case Income:
			income = income.Add(t.Value)
		case Expense:
			expense = expense.Add(t.Value)
		}
	}
	return NewMonthTotals(income, expense)
}
