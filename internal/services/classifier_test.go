package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

func TestClassify(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)
	c := NewClassifier(store)
	date := core.NewDate(2024, 3, 10)

	origin := mustCreate(t, svc, core.CreateRequest{
		Title: "Rent", Value: dec("800"), Type: core.Expense, Category: "Home", Date: date, IsFixed: true,
	}, 1)
	simple := mustCreate(t, svc, simpleReq("Lunch", core.Expense, "12", "Food", date), 1)
	planRes, err := svc.Create(ctx, core.CreateRequest{
		Title: "Phone", Value: dec("300"), Type: core.Expense, Category: "Tech", Date: date,
		IsInstallment: true, InstallmentTotal: intPtr(3),
	}, 1)
	require.NoError(t, err)
	parent := planRes.Transaction
	// a removed installment leaves its index free for a replacement
	require.NoError(t, svc.Delete(ctx, 1, planRes.Plan.Installments[1].ID))
	foreignOrigin := mustCreate(t, svc, core.CreateRequest{
		Title: "Gym", Value: dec("40"), Type: core.Expense, Category: "Health", Date: date, IsFixed: true,
	}, 2)

	base := func() core.CreateRequest { return simpleReq("Thing", core.Expense, "10.00", "Misc", date) }

	tests := []struct {
		name      string
		req       func() core.CreateRequest
		wantKind  core.Kind
		wantField string
	}{
		{
			name:     "plain request is simple",
			req:      base,
			wantKind: core.KindSimple,
		},
		{
			name: "fixed without origin is an origin",
			req: func() core.CreateRequest {
				r := base()
				r.IsFixed = true
				return r
			},
			wantKind: core.KindFixedOrigin,
		},
		{
			name: "fixed with origin is an occurrence",
			req: func() core.CreateRequest {
				r := base()
				r.IsFixed = true
				r.OriginID = idPtr(origin.ID)
				return r
			},
			wantKind: core.KindFixedOccurrence,
		},
		{
			name: "installment without parent is a plan",
			req: func() core.CreateRequest {
				r := base()
				r.IsInstallment = true
				r.InstallmentTotal = intPtr(4)
				return r
			},
			wantKind: core.KindInstallmentParent,
		},
		{
			name: "installment with parent is a child",
			req: func() core.CreateRequest {
				r := base()
				r.IsInstallment = true
				r.ParentID = idPtr(parent.ID)
				r.InstallmentIndex = intPtr(2)
				r.InstallmentTotal = intPtr(3)
				return r
			},
			wantKind: core.KindInstallmentChild,
		},
		{
			name: "both flags",
			req: func() core.CreateRequest {
				r := base()
				r.IsFixed, r.IsInstallment = true, true
				r.InstallmentTotal = intPtr(2)
				return r
			},
			wantField: "isFixed",
		},
		{
			name: "simple with origin",
			req: func() core.CreateRequest {
				r := base()
				r.OriginID = idPtr(origin.ID)
				return r
			},
			wantField: "originId",
		},
		{
			name: "simple with parent",
			req: func() core.CreateRequest {
				r := base()
				r.ParentID = idPtr(parent.ID)
				return r
			},
			wantField: "parentId",
		},
		{
			name: "simple with installment total",
			req: func() core.CreateRequest {
				r := base()
				r.InstallmentTotal = intPtr(3)
				return r
			},
			wantField: "installmentTotal",
		},
		{
			name: "fixed with installment fields",
			req: func() core.CreateRequest {
				r := base()
				r.IsFixed = true
				r.InstallmentIndex = intPtr(1)
				return r
			},
			wantField: "isFixed",
		},
		{
			name: "origin of another user",
			req: func() core.CreateRequest {
				r := base()
				r.IsFixed = true
				r.OriginID = idPtr(foreignOrigin.ID)
				return r
			},
			wantField: "originId",
		},
		{
			name: "origin that is not fixed",
			req: func() core.CreateRequest {
				r := base()
				r.IsFixed = true
				r.OriginID = idPtr(simple.ID)
				return r
			},
			wantField: "originId",
		},
		{
			name: "unknown origin",
			req: func() core.CreateRequest {
				r := base()
				r.IsFixed = true
				r.OriginID = idPtr(9999)
				return r
			},
			wantField: "originId",
		},
		{
			name: "plan without total",
			req: func() core.CreateRequest {
				r := base()
				r.IsInstallment = true
				return r
			},
			wantField: "installmentTotal",
		},
		{
			name: "plan of one",
			req: func() core.CreateRequest {
				r := base()
				r.IsInstallment = true
				r.InstallmentTotal = intPtr(1)
				return r
			},
			wantField: "installmentTotal",
		},
		{
			name: "plan too long",
			req: func() core.CreateRequest {
				r := base()
				r.IsInstallment = true
				r.InstallmentTotal = intPtr(MaxInstallments + 1)
				return r
			},
			wantField: "installmentTotal",
		},
		{
			name: "plan with index",
			req: func() core.CreateRequest {
				r := base()
				r.IsInstallment = true
				r.InstallmentIndex = intPtr(1)
				r.InstallmentTotal = intPtr(3)
				return r
			},
			wantField: "installmentIndex",
		},
		{
			name: "child index already in the plan",
			req: func() core.CreateRequest {
				r := base()
				r.IsInstallment = true
				r.ParentID = idPtr(parent.ID)
				r.InstallmentIndex = intPtr(1)
				r.InstallmentTotal = intPtr(3)
				return r
			},
			wantField: "installmentIndex",
		},
		{
			name: "child total differs from the plan",
			req: func() core.CreateRequest {
				r := base()
				r.IsInstallment = true
				r.ParentID = idPtr(parent.ID)
				r.InstallmentIndex = intPtr(2)
				r.InstallmentTotal = intPtr(7)
				return r
			},
			wantField: "installmentTotal",
		},
		{
			name: "child index out of range",
			req: func() core.CreateRequest {
				r := base()
				r.IsInstallment = true
				r.ParentID = idPtr(parent.ID)
				r.InstallmentIndex = intPtr(4)
				r.InstallmentTotal = intPtr(3)
				return r
			},
			wantField: "installmentIndex",
		},
		{
			name: "child without index",
			req: func() core.CreateRequest {
				r := base()
				r.IsInstallment = true
				r.ParentID = idPtr(parent.ID)
				return r
			},
			wantField: "installmentIndex",
		},
		{
			name: "child of a visible row",
			req: func() core.CreateRequest {
				r := base()
				r.IsInstallment = true
				r.ParentID = idPtr(simple.ID)
				r.InstallmentIndex = intPtr(1)
				r.InstallmentTotal = intPtr(2)
				return r
			},
			wantField: "parentId",
		},
		{
			name: "non-positive value",
			req: func() core.CreateRequest {
				r := base()
				r.Value = dec("0")
				return r
			},
			wantField: "value",
		},
		{
			name: "blank title",
			req: func() core.CreateRequest {
				r := base()
				r.Title = "   "
				return r
			},
			wantField: "title",
		},
		{
			name: "unknown type",
			req: func() core.CreateRequest {
				r := base()
				r.Type = "transfer"
				return r
			},
			wantField: "type",
		},
		{
			name: "missing date",
			req: func() core.CreateRequest {
				r := base()
				r.Date = core.Date{}
				return r
			},
			wantField: "date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(ctx, tt.req(), 1)
			if tt.wantField != "" {
				require.Error(t, err)
				assert.True(t, core.IsValidation(err), "want validation error, got %v", err)
				assert.False(t, core.IsNotFound(err))
				var verr *core.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantField, verr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantKind, got.Row.Kind)
		})
	}
}

func TestClassify_NormalizesInput(t *testing.T) {
	c := NewClassifier(nil)
	got, err := c.Classify(context.Background(), core.CreateRequest{
		Title:    "  Coffee  ",
		Value:    dec("3.5"),
		Type:     core.Expense,
		Category: " Food ",
		Date:     core.NewDate(2024, 1, 2),
	}, 5)
	require.NoError(t, err)

	assert.Equal(t, "Coffee", got.Row.Title)
	assert.Equal(t, "Food", got.Row.Category)
	assert.Equal(t, "3.50", got.Row.Value.StringFixed(2))
	assert.Equal(t, int64(5), got.Row.UserID)
	assert.False(t, got.IsPlan())
}
