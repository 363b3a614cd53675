package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BagSpec is one bag entry in a client submission
type BagSpec struct {
	BagType       string `json:"bag_type"`
	CollarOD      string `json:"collar_od"`
	CollarID      string `json:"collar_id"`
	TubesheetData string `json:"tubesheet_data"`
	TubesheetDia  string `json:"tubesheet_dia"`
	ClientName    string `json:"client_name"`
	ClientEmail   string `json:"client_email"`
}

// Fields returns the specification fields keyed by column name
func (b BagSpec) Fields() map[string]string {
	return map[string]string{
		"collar_od":      b.CollarOD,
		"collar_id":      b.CollarID,
		"tubesheet_data": b.TubesheetData,
		"tubesheet_dia":  b.TubesheetDia,
	}
}

// SubmitPayload is the body of POST /api/submit-form/:token.
// The form page sends global_remarks; remarks is accepted as well.
type SubmitPayload struct {
	Bags          []BagSpec `json:"bags"`
	Remarks       *string   `json:"remarks,omitempty"`
	GlobalRemarks *string   `json:"global_remarks,omitempty"`
}

// RemarksText returns the trimmed remarks, preferring remarks over global_remarks
func (p SubmitPayload) RemarksText() string {
	for _, r := range []*string{p.Remarks, p.GlobalRemarks} {
		if r != nil {
			if s := strings.TrimSpace(*r); s != "" {
				return s
			}
		}
	}
	return ""
}

// QuantityInput accepts a JSON number or a numeric string.
// The admin page posts input values as strings.
type QuantityInput struct {
	raw string
	set bool
}

// NewQuantityInput builds an input from text, as if it had been decoded
func NewQuantityInput(raw string) QuantityInput {
	return QuantityInput{raw: raw, set: true}
}

func (q *QuantityInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*q = QuantityInput{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = QuantityInput{raw: s, set: true}
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("quantity must be a number or numeric string")
	}
	*q = QuantityInput{raw: n.String(), set: true}
	return nil
}

// MarshalJSON writes the value back as a number when it parses, else as a string
func (q QuantityInput) MarshalJSON() ([]byte, error) {
	if !q.set {
		return []byte("null"), nil
	}
	if n, err := q.Int(); err == nil {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(q.raw)
}

// IsSet reports whether a non-blank value was provided
func (q QuantityInput) IsSet() bool {
	return q.set && strings.TrimSpace(q.raw) != ""
}

// MaxQuantity is the largest quantity the quantity columns can hold
const MaxQuantity = math.MaxInt32

// Int parses the value as a positive integer no larger than MaxQuantity
func (q QuantityInput) Int() (int64, error) {
	if !q.IsSet() {
		return 0, &ValidationError{Field: "requested_quantity", Message: "Please provide Quantity and Size"}
	}
	n, err := strconv.ParseInt(strings.TrimSpace(q.raw), 10, 64)
	if err != nil || n <= 0 {
		return 0, &ValidationError{Field: "requested_quantity", Message: "Quantity must be a valid positive number"}
	}
	if n > MaxQuantity {
		return 0, &ValidationError{Field: "requested_quantity", Message: "Quantity is too large"}
	}
	return n, nil
}

// RequestInput is the body of POST /api/send-form and /api/generate-link.
// The requested_* names are canonical; the admin_* names are what the
// dashboard posts.
type RequestInput struct {
	RecipientEmail    string        `json:"recipient_email"`
	PONumber          string        `json:"po_number"`
	RequestedQuantity QuantityInput `json:"requested_quantity"`
	AdminQuantity     QuantityInput `json:"admin_quantity"`
	RequestedSize     string        `json:"requested_size"`
	AdminSize         string        `json:"admin_size"`
}

// Quantity returns whichever quantity alias was provided
func (in RequestInput) Quantity() QuantityInput {
	if in.RequestedQuantity.IsSet() {
		return in.RequestedQuantity
	}
	return in.AdminQuantity
}

// Size returns whichever size alias was provided, trimmed
func (in RequestInput) Size() string {
	if s := strings.TrimSpace(in.RequestedSize); s != "" {
		return s
	}
	return strings.TrimSpace(in.AdminSize)
}

// RequestFields is the document a merge patch amends
type RequestFields struct {
	PONumber          *string       `json:"po_number"`
	RequestedQuantity QuantityInput `json:"requested_quantity"`
	RequestedSize     string        `json:"requested_size"`
}
