package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

// Kind is the closed set of transaction shapes. The isFixed, isInstallment
// and isHidden flags of a row are derived from it.
const (
	KindSimple            Kind = "simple"
	KindFixedOrigin       Kind = "fixed_origin"
	KindFixedOccurrence   Kind = "fixed_occurrence"
	KindInstallmentParent Kind = "installment_parent"
	KindInstallmentChild  Kind = "installment_child"
)

const (
	MaxTitleLength    = 200
	MaxCategoryLength = 64
)

type (
	TxType string

	Kind string

	Transaction struct {
		ID               int64
		UserID           int64
		Title            string
		Value            decimal.Decimal
		Type             TxType
		Category         string
		Date             Date
		Kind             Kind
		OriginID         *int64
		ParentID         *int64
		InstallmentIndex int // 1-based, 0 when not an installment child
		InstallmentTotal int
	}

	// CreateRequest is the raw creation input. Pointer fields distinguish
	// "absent" from a zero value.
	CreateRequest struct {
		Title            string
		Value            decimal.Decimal
		Type             TxType
		Category         string
		Date             Date
		IsFixed          bool
		IsInstallment    bool
		OriginID         *int64
		ParentID         *int64
		InstallmentIndex *int
		InstallmentTotal *int
	}

	// Patch updates plain fields only. Kind and relations are fixed at creation.
	Patch struct {
		Title    *string
		Value    *decimal.Decimal
		Type     *TxType
		Category *string
		Date     *Date
	}
)

func (t TxType) IsValid() bool {
	return t == Income || t == Expense
}

func (k Kind) IsValid() bool {
	switch k {
	case KindSimple, KindFixedOrigin, KindFixedOccurrence, KindInstallmentParent, KindInstallmentChild:
		return true
	default:
		return false
	}
}

func (k Kind) IsFixed() bool {
	return k == KindFixedOrigin || k == KindFixedOccurrence
}

func (k Kind) IsInstallment() bool {
	return k == KindInstallmentChild
}

func (k Kind) IsHidden() bool {
	return k == KindInstallmentParent
}

// Visible reports whether rows of this kind appear in user-facing views.
func (k Kind) Visible() bool {
	return !k.IsHidden()
}

// Realized reports whether rows of this kind count towards the monthly dashboard.
func (k Kind) Realized() bool {
	switch k {
	case KindSimple, KindFixedOccurrence, KindInstallmentChild:
		return true
	default:
		return false
	}
}

// KindFromFlags recovers a kind from the persisted flag columns. hasOrigin
// separates a fixed origin from one of its occurrences.
func KindFromFlags(isFixed, isInstallment, isHidden, hasOrigin bool) (Kind, error) {
	switch {
	case isFixed && isInstallment:
		return "", fmt.Errorf("row is both fixed and installment")
	case isHidden && (isFixed || isInstallment):
		return "", fmt.Errorf("hidden row cannot be fixed or installment")
	case isHidden:
		return KindInstallmentParent, nil
	case isInstallment:
		return KindInstallmentChild, nil
	case isFixed && hasOrigin:
		return KindFixedOccurrence, nil
	case isFixed:
		return KindFixedOrigin, nil
	default:
		return KindSimple, nil
	}
}

func (t Transaction) IsFixed() bool       { return t.Kind.IsFixed() }
func (t Transaction) IsInstallment() bool { return t.Kind.IsInstallment() }
func (t Transaction) IsHidden() bool      { return t.Kind.IsHidden() }

// Validate checks the structural invariants of a row. Referential checks
// (origin and parent ownership) need the store and live in the classifier.
func (t Transaction) Validate() error {
	if err := ValidateBase(t.Title, t.Value, t.Type, t.Category, t.Date); err != nil {
		return err
	}
	if !t.Kind.IsValid() {
		return NewValidationError("kind", fmt.Sprintf("unknown kind %q", t.Kind))
	}

	hasInstallmentFields := t.InstallmentIndex != 0 || t.InstallmentTotal != 0
	switch t.Kind {
	case KindSimple, KindFixedOrigin, KindInstallmentParent:
		if t.OriginID != nil || t.ParentID != nil || hasInstallmentFields {
			return NewValidationError("kind", fmt.Sprintf("%s row cannot carry relation fields", t.Kind))
		}
	case KindFixedOccurrence:
		if t.OriginID == nil {
			return NewValidationError("originId", "required on a fixed occurrence")
		}
		if t.ParentID != nil || hasInstallmentFields {
			return NewValidationError("kind", "fixed row cannot carry installment fields")
		}
	case KindInstallmentChild:
		if t.OriginID != nil {
			return NewValidationError("originId", "not allowed on an installment")
		}
		if t.ParentID == nil {
			return NewValidationError("parentId", "required on an installment")
		}
		if t.InstallmentTotal < 2 {
			return NewValidationError("installmentTotal", "must be at least 2")
		}
		if t.InstallmentIndex < 1 || t.InstallmentIndex > t.InstallmentTotal {
			return NewValidationError("installmentIndex", fmt.Sprintf("must be between 1 and %d", t.InstallmentTotal))
		}
	}
	return nil
}

// ValidateBase checks the fields shared by every row and every creation request.
func ValidateBase(title string, value decimal.Decimal, typ TxType, category string, date Date) error {
	if strings.TrimSpace(title) == "" {
		return NewValidationError("title", "cannot be empty")
	}
	if len(title) > MaxTitleLength {
		return NewValidationError("title", fmt.Sprintf("too long (max %d characters)", MaxTitleLength))
	}
	if err := ValidateAmount(value); err != nil {
		return err
	}
	if !typ.IsValid() {
		return NewValidationError("type", fmt.Sprintf("must be %q or %q", Income, Expense))
	}
	if strings.TrimSpace(category) == "" {
		return NewValidationError("category", "cannot be empty")
	}
	if len(category) > MaxCategoryLength {
		return NewValidationError("category", fmt.Sprintf("too long (max %d characters)", MaxCategoryLength))
	}
	if err := date.Validate(); err != nil {
		return err
	}
	return nil
}

// Apply returns a copy of t with the patch applied.
func (p Patch) Apply(t Transaction) Transaction {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Value != nil {
		t.Value = RoundAmount(*p.Value)
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Category != nil {
		t.Category = strings.TrimSpace(*p.Category)
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	return t
}

// CheckAllowed rejects changes that would break the invariants of t's kind.
// Plan members keep their value and type so the children keep summing to
// the parent and share its type.
func (p Patch) CheckAllowed(t Transaction) error {
	if t.Kind != KindInstallmentParent && t.Kind != KindInstallmentChild {
		return nil
	}
	if p.Value != nil {
		return NewValidationError("value", "cannot be changed on an installment")
	}
	if p.Type != nil {
		return NewValidationError("type", "cannot be changed on an installment")
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Value == nil && p.Type == nil && p.Category == nil && p.Date == nil
}
