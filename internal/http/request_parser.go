// Package http exposes the ledger engine as a JSON API.
//
// This file decodes request bodies. Amounts are accepted as JSON numbers or
// strings, dates as YYYY-MM-DD strings.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

const maxBodyBytes = 1 << 20

// errMalformedBody is reported for bodies that are not a single JSON object.
var errMalformedBody = errors.New("malformed JSON body")

// amountField decodes a JSON number or string into a rounded amount.
type amountField struct {
	decimal.Decimal
}

func (a *amountField) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if bytes.Equal(raw, []byte("null")) {
		a.Decimal = decimal.Zero
		return nil
	}
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return core.NewValidationError("value", "malformed number")
		}
		d, err := core.ParseAmount(s)
		if err != nil {
			return err
		}
		a.Decimal = d
		return nil
	}

	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return core.NewValidationError("value", "malformed number")
	}
	a.Decimal = core.RoundAmount(d)
	return nil
}

// dateField decodes a YYYY-MM-DD string.
type dateField struct {
	core.Date
}

func (d *dateField) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if bytes.Equal(raw, []byte("null")) {
		d.Date = core.Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return core.NewValidationError("date", "expected YYYY-MM-DD")
	}
	parsed, err := core.ParseDate(s)
	if err != nil {
		return err
	}
	d.Date = parsed
	return nil
}

type createBody struct {
	Title            string      `json:"title"`
	Value            amountField `json:"value"`
	Type             string      `json:"type"`
	Category         string      `json:"category"`
	Date             dateField   `json:"date"`
	IsFixed          bool        `json:"isFixed"`
	IsInstallment    bool        `json:"isInstallment"`
	OriginID         *int64      `json:"originId"`
	ParentID         *int64      `json:"parentId"`
	InstallmentIndex *int        `json:"installmentIndex"`
	InstallmentTotal *int        `json:"installmentTotal"`
}

func (b createBody) toRequest() core.CreateRequest {
	return core.CreateRequest{
		Title:            sanitizeInput(b.Title),
		Value:            b.Value.Decimal,
		Type:             core.TxType(strings.ToLower(strings.TrimSpace(b.Type))),
		Category:         sanitizeInput(b.Category),
		Date:             b.Date.Date,
		IsFixed:          b.IsFixed,
		IsInstallment:    b.IsInstallment,
		OriginID:         b.OriginID,
		ParentID:         b.ParentID,
		InstallmentIndex: b.InstallmentIndex,
		InstallmentTotal: b.InstallmentTotal,
	}
}

// patchBody accepts plain fields. The kind and relation fields are decoded
// only to reject them.
type patchBody struct {
	Title    *string      `json:"title"`
	Value    *amountField `json:"value"`
	Type     *string      `json:"type"`
	Category *string      `json:"category"`
	Date     *dateField   `json:"date"`

	Kind             json.RawMessage `json:"kind"`
	IsFixed          json.RawMessage `json:"isFixed"`
	IsInstallment    json.RawMessage `json:"isInstallment"`
	IsHidden         json.RawMessage `json:"isHidden"`
	OriginID         json.RawMessage `json:"originId"`
	ParentID         json.RawMessage `json:"parentId"`
	InstallmentIndex json.RawMessage `json:"installmentIndex"`
	InstallmentTotal json.RawMessage `json:"installmentTotal"`
}

func (b patchBody) toPatch() (core.Patch, error) {
	immutable := []struct {
		name string
		raw  json.RawMessage
	}{
		{"kind", b.Kind},
		{"isFixed", b.IsFixed},
		{"isInstallment", b.IsInstallment},
		{"isHidden", b.IsHidden},
		{"originId", b.OriginID},
		{"parentId", b.ParentID},
		{"installmentIndex", b.InstallmentIndex},
		{"installmentTotal", b.InstallmentTotal},
	}
	for _, f := range immutable {
		if f.raw != nil {
			return core.Patch{}, core.NewValidationError(f.name, "cannot be changed after creation")
		}
	}

	var p core.Patch
	if b.Title != nil {
		title := sanitizeInput(*b.Title)
		p.Title = &title
	}
	if b.Value != nil {
		v := b.Value.Decimal
		p.Value = &v
	}
	if b.Type != nil {
		typ := core.TxType(strings.ToLower(strings.TrimSpace(*b.Type)))
		p.Type = &typ
	}
	if b.Category != nil {
		category := sanitizeInput(*b.Category)
		p.Category = &category
	}
	if b.Date != nil {
		d := b.Date.Date
		p.Date = &d
	}
	return p, nil
}

// decodeJSONBody decodes a single JSON object into dst. Unknown fields are
// rejected. Validation errors raised by field decoders are returned as-is.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if core.IsValidation(err) {
			return err
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: body exceeds %d bytes", errMalformedBody, maxErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errMalformedBody)
		}
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", errMalformedBody)
	}
	return nil
}

func decodeCreateRequest(w http.ResponseWriter, r *http.Request) (core.CreateRequest, error) {
	var body createBody
	if err := decodeJSONBody(w, r, &body); err != nil {
		return core.CreateRequest{}, err
	}
	return body.toRequest(), nil
}

func decodePatch(w http.ResponseWriter, r *http.Request) (core.Patch, error) {
	var body patchBody
	if err := decodeJSONBody(w, r, &body); err != nil {
		return core.Patch{}, err
	}
	return body.toPatch()
}
