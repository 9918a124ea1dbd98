// Package http exposes the ledger engine as a JSON API.
//
// This file implements a small builder for JSON responses and the wire
// shapes of the resources.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"ledger/internal/core"
	"ledger/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	hasBody    bool
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A nil value encodes as
// JSON null.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	b.hasBody = true
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if !b.hasBody || b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(payload, '\n'))
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message).
		Header("WWW-Authenticate", `Bearer realm="ledger"`)
}

func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, retry later")
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal server error")
}

// ValidationErrorResponse reports the offending field of err when it has one.
func ValidationErrorResponse(err error) *JSONResponseBuilder {
	body := errorBody{Error: err.Error()}
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}
	return NewJSONResponse().Status(http.StatusBadRequest).Body(body)
}

type transactionResponse struct {
	ID               int64  `json:"id"`
	UserID           int64  `json:"userId"`
	Title            string `json:"title"`
	Value            string `json:"value"`
	Type             string `json:"type"`
	Category         string `json:"category"`
	Date             string `json:"date"`
	Kind             string `json:"kind"`
	IsFixed          bool   `json:"isFixed"`
	IsInstallment    bool   `json:"isInstallment"`
	IsHidden         bool   `json:"isHidden"`
	OriginID         *int64 `json:"originId"`
	ParentID         *int64 `json:"parentId"`
	InstallmentIndex *int   `json:"installmentIndex"`
	InstallmentTotal *int   `json:"installmentTotal"`
}

func newTransactionResponse(t core.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:            t.ID,
		UserID:        t.UserID,
		Title:         t.Title,
		Value:         core.FormatAmount(t.Value),
		Type:          string(t.Type),
		Category:      t.Category,
		Date:          t.Date.String(),
		Kind:          string(t.Kind),
		IsFixed:       t.IsFixed(),
		IsInstallment: t.IsInstallment(),
		IsHidden:      t.IsHidden(),
		OriginID:      t.OriginID,
		ParentID:      t.ParentID,
	}
	if t.IsInstallment() {
		index, total := t.InstallmentIndex, t.InstallmentTotal
		resp.InstallmentIndex = &index
		resp.InstallmentTotal = &total
	}
	return resp
}

func newTransactionList(rows []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, len(rows))
	for i, t := range rows {
		out[i] = newTransactionResponse(t)
	}
	return out
}

type planResponse struct {
	Parent       transactionResponse   `json:"parent"`
	Installments []transactionResponse `json:"installments"`
}

// newCreateResponse renders a single row, or the parent with its installments.
func newCreateResponse(res services.CreateResult) any {
	if res.Plan == nil {
		return newTransactionResponse(res.Transaction)
	}
	return planResponse{
		Parent:       newTransactionResponse(res.Plan.Parent),
		Installments: newTransactionList(res.Plan.Installments),
	}
}

type pageResponse struct {
	Page       int                   `json:"page"`
	Limit      int                   `json:"limit"`
	Total      int                   `json:"total"`
	TotalPages int                   `json:"totalPages"`
	Data       []transactionResponse `json:"data"`
}

func newPageResponse(p core.Page) pageResponse {
	return pageResponse{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      p.Total,
		TotalPages: p.TotalPages,
		Data:       newTransactionList(p.Data),
	}
}

type dashboardResponse struct {
	TotalIncome  string `json:"totalIncome"`
	TotalExpense string `json:"totalExpense"`
	TotalBalance string `json:"totalBalance"`
}

func newDashboardResponse(m core.MonthTotals) dashboardResponse {
	return dashboardResponse{
		TotalIncome:  core.FormatAmount(m.Income),
		TotalExpense: core.FormatAmount(m.Expense),
		TotalBalance: core.FormatAmount(m.Balance),
	}
}

type projectionResponse struct {
	IncomeProjected  string `json:"incomeProjected"`
	ExpenseProjected string `json:"expenseProjected"`
	BalanceProjected string `json:"balanceProjected"`
}

func newProjectionResponse(m core.MonthTotals) projectionResponse {
	return projectionResponse{
		IncomeProjected:  core.FormatAmount(m.Income),
		ExpenseProjected: core.FormatAmount(m.Expense),
		BalanceProjected: core.FormatAmount(m.Balance),
	}
}

type categoryResponse struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

// newCategoryResponse returns nil, encoded as null, when there is no category.
func newCategoryResponse(c *core.CategoryTotal) *categoryResponse {
	if c == nil {
		return nil
	}
	return &categoryResponse{Category: c.Category, Total: core.FormatAmount(c.Total)}
}
