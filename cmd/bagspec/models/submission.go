package models

import (
	"time"
)

// BagType tags a response with the kind of bag it specifies
type BagType string

const (
	BagCollar BagType = "collar"
	BagSnap   BagType = "snap"
	BagRing   BagType = "ring"
)

// BagTypes lists every known bag type in display order
var BagTypes = []BagType{BagCollar, BagSnap, BagRing}

// Valid reports whether t is a known bag type
func (t BagType) Valid() bool {
	switch t {
	case BagCollar, BagSnap, BagRing:
		return true
	}
	return false
}

// Title returns the display name, e.g. "Collar"
func (t BagType) Title() string {
	switch t {
	case BagCollar:
		return "Collar"
	case BagSnap:
		return "Snap"
	case BagRing:
		return "Ring"
	}
	return string(t)
}

// DirectLinkRecipient is the recipient stored for links the admin copies
// by hand instead of emailing. It is a valid value, not an error marker.
const DirectLinkRecipient = "direct-link-generated"

// SubmissionRow is one physical row of filter_bag_submissions.
// Maps to: filter_bag_submissions table
//
// The table holds two roles. Use Classify to get a typed record; nothing
// else should look at BagType to decide the role.
type SubmissionRow struct {
	ID             int64
	Token          string
	RecipientEmail string
	PONumber       *string

	// Admin fields (request) or copies of them (response)
	AdminQuantity *int64
	AdminSize     *string

	// Response fields
	BagType       *string
	CollarOD      *string
	CollarID      *string
	TubesheetData *string
	TubesheetDia  *string
	ClientName    *string
	ClientEmail   *string
	Quantity      *int64
	Remarks       *string

	Submitted   bool
	Superseded  bool
	CreatedAt   time.Time
	SubmittedAt *time.Time
}

// Record is either a *Request or a *Response
type Record interface {
	RecordID() int64
	RecordToken() string
	isRecord()
}

// Classify returns the typed view of the row: *Request when no bag type
// is set, *Response otherwise.
func (row *SubmissionRow) Classify() Record {
	if row.BagType == nil {
		return row.requestView()
	}

	return &Response{
		ID:                row.ID,
		Token:             row.Token,
		BagType:           BagType(*row.BagType),
		CollarOD:          deref(row.CollarOD),
		CollarID:          deref(row.CollarID),
		TubesheetData:     deref(row.TubesheetData),
		TubesheetDia:      deref(row.TubesheetDia),
		ClientName:        deref(row.ClientName),
		ClientEmail:       deref(row.ClientEmail),
		Quantity:          derefInt(row.Quantity),
		Remarks:           deref(row.Remarks),
		RecipientEmail:    row.RecipientEmail,
		PONumber:          deref(row.PONumber),
		RequestedQuantity: derefInt(row.AdminQuantity),
		RequestedSize:     deref(row.AdminSize),
		Superseded:        row.Superseded,
		SubmittedAt:       row.SubmittedAt,
		CreatedAt:         row.CreatedAt,
	}
}

// AsRequest projects any row onto the request shape. Responses carry
// copies of the admin fields, so the projection is meaningful for both
// roles; it backs the earliest-row fallback when a token has no request.
func (row *SubmissionRow) AsRequest() *Request {
	return row.requestView()
}

func (row *SubmissionRow) requestView() *Request {
	return &Request{
		ID:                row.ID,
		Token:             row.Token,
		RecipientEmail:    row.RecipientEmail,
		PONumber:          deref(row.PONumber),
		RequestedQuantity: derefInt(row.AdminQuantity),
		RequestedSize:     deref(row.AdminSize),
		Submitted:         row.Submitted,
		SubmittedAt:       row.SubmittedAt,
		CreatedAt:         row.CreatedAt,
	}
}

// Request is the admin-created record that a form link points at
type Request struct {
	ID                int64      `json:"id"`
	Token             string     `json:"token"`
	RecipientEmail    string     `json:"recipient_email"`
	PONumber          string     `json:"po_number,omitempty"`
	RequestedQuantity int64      `json:"requested_quantity"`
	RequestedSize     string     `json:"requested_size"`
	Submitted         bool       `json:"submitted"`
	SubmittedAt       *time.Time `json:"submitted_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (r *Request) RecordID() int64     { return r.ID }
func (r *Request) RecordToken() string { return r.Token }
func (r *Request) isRecord()           {}

// IsDirectLink reports whether the request was created without an email recipient
func (r *Request) IsDirectLink() bool {
	return r.RecipientEmail == DirectLinkRecipient
}

// Row converts the request back to its physical row for inserts
func (r *Request) Row() *SubmissionRow {
	row := &SubmissionRow{
		ID:             r.ID,
		Token:          r.Token,
		RecipientEmail: r.RecipientEmail,
		PONumber:       optional(r.PONumber),
		AdminSize:      optional(r.RequestedSize),
		Submitted:      r.Submitted,
		CreatedAt:      r.CreatedAt,
		SubmittedAt:    r.SubmittedAt,
	}
	if r.RequestedQuantity > 0 {
		q := r.RequestedQuantity
		row.AdminQuantity = &q
	}
	return row
}

// Response is one client submission for a token
type Response struct {
	ID      int64   `json:"id"`
	Token   string  `json:"token"`
	BagType BagType `json:"bag_type"`

	CollarOD      string `json:"collar_od,omitempty"`
	CollarID      string `json:"collar_id,omitempty"`
	TubesheetData string `json:"tubesheet_data,omitempty"`
	TubesheetDia  string `json:"tubesheet_dia,omitempty"`

	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email,omitempty"`
	Quantity    int64  `json:"quantity,omitempty"`
	Remarks     string `json:"remarks,omitempty"`

	// Copied from the request at submission time
	RecipientEmail    string `json:"recipient_email"`
	PONumber          string `json:"po_number,omitempty"`
	RequestedQuantity int64  `json:"requested_quantity,omitempty"`
	RequestedSize     string `json:"requested_size,omitempty"`

	Superseded  bool       `json:"superseded"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (r *Response) RecordID() int64     { return r.ID }
func (r *Response) RecordToken() string { return r.Token }
func (r *Response) isRecord()           {}

// Current reports whether this is the live response for its token
func (r *Response) Current() bool {
	return !r.Superseded
}

// SpecField is one labelled specification value, for display
type SpecField struct {
	Label string
	Value string
}

// SpecFields returns the specification values that apply to the bag type
func (r *Response) SpecFields() []SpecField {
	switch r.BagType {
	case BagCollar:
		return []SpecField{
			{Label: FieldLabel("collar_od"), Value: r.CollarOD},
			{Label: FieldLabel("collar_id"), Value: r.CollarID},
		}
	case BagSnap:
		return []SpecField{{Label: FieldLabel("tubesheet_data"), Value: r.TubesheetData}}
	case BagRing:
		return []SpecField{{Label: FieldLabel("tubesheet_dia"), Value: r.TubesheetDia}}
	}
	return nil
}

// Row converts the response to its physical row for inserts
func (r *Response) Row() *SubmissionRow {
	bagType := string(r.BagType)
	row := &SubmissionRow{
		ID:             r.ID,
		Token:          r.Token,
		RecipientEmail: r.RecipientEmail,
		PONumber:       optional(r.PONumber),
		AdminSize:      optional(r.RequestedSize),
		BagType:        &bagType,
		CollarOD:       optional(r.CollarOD),
		CollarID:       optional(r.CollarID),
		TubesheetData:  optional(r.TubesheetData),
		TubesheetDia:   optional(r.TubesheetDia),
		ClientName:     optional(r.ClientName),
		ClientEmail:    optional(r.ClientEmail),
		Remarks:        optional(r.Remarks),
		Submitted:      true,
		Superseded:     r.Superseded,
		CreatedAt:      r.CreatedAt,
		SubmittedAt:    r.SubmittedAt,
	}
	if r.RequestedQuantity > 0 {
		q := r.RequestedQuantity
		row.AdminQuantity = &q
	}
	if r.Quantity > 0 {
		q := r.Quantity
		row.Quantity = &q
	}
	return row
}

// FieldLabel returns the display label for a specification field
func FieldLabel(field string) string {
	switch field {
	case "collar_od":
		return "Collar OD"
	case "collar_id":
		return "Collar ID"
	case "tubesheet_data":
		return "Tubesheet Data"
	case "tubesheet_dia":
		return "Tubesheet Diameter"
	}
	return field
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
