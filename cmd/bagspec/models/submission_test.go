package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(n int64) *int64   { return &n }

func TestClassify(t *testing.T) {
	now := time.Now().UTC()

	t.Run("null bag type is a request", func(t *testing.T) {
		row := &SubmissionRow{
			ID:             1,
			Token:          "tok",
			RecipientEmail: DirectLinkRecipient,
			AdminQuantity:  intPtr(100),
			AdminSize:      strPtr("150mm"),
			CreatedAt:      now,
		}

		req, ok := row.Classify().(*Request)
		require.True(t, ok)
		assert.Equal(t, int64(100), req.RequestedQuantity)
		assert.Equal(t, "150mm", req.RequestedSize)
		assert.True(t, req.IsDirectLink())
	})

	t.Run("set bag type is a response", func(t *testing.T) {
		row := &SubmissionRow{
			ID:          2,
			Token:       "tok",
			BagType:     strPtr("collar"),
			CollarOD:    strPtr("150mm"),
			CollarID:    strPtr("140mm"),
			ClientName:  strPtr("Acme"),
			Quantity:    intPtr(100),
			Submitted:   true,
			SubmittedAt: &now,
		}

		resp, ok := row.Classify().(*Response)
		require.True(t, ok)
		assert.Equal(t, BagCollar, resp.BagType)
		assert.True(t, resp.Current())
		assert.Equal(t, []SpecField{
			{Label: "Collar OD", Value: "150mm"},
			{Label: "Collar ID", Value: "140mm"},
		}, resp.SpecFields())
	})
}

func TestResponseRowRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	resp := &Response{
		Token:             "tok",
		BagType:           BagRing,
		TubesheetDia:      "160mm",
		ClientName:        "Acme",
		Quantity:          100,
		RecipientEmail:    "client@example.com",
		RequestedQuantity: 100,
		RequestedSize:     "150mm",
		SubmittedAt:       &now,
	}

	back, ok := resp.Row().Classify().(*Response)
	require.True(t, ok)
	assert.Equal(t, resp, back)
}

func TestQuantityInput(t *testing.T) {
	tests := []struct {
		body    string
		want    int64
		wantErr bool
	}{
		{`{"q": 100}`, 100, false},
		{`{"q": "100"}`, 100, false},
		{`{"q": " 42 "}`, 42, false},
		{`{"q": 0}`, 0, true},
		{`{"q": "-3"}`, 0, true},
		{`{"q": "abc"}`, 0, true},
		{`{"q": 1.5}`, 0, true},
		{`{"q": 2147483647}`, 2147483647, false},
		{`{"q": 2147483648}`, 0, true},
		{`{"q": "99999999999"}`, 0, true},
		{`{"q": null}`, 0, true},
		{`{}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var in struct {
				Q QuantityInput `json:"q"`
			}
			require.NoError(t, json.Unmarshal([]byte(tt.body), &in))

			n, err := in.Q.Int()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestRequestInputAliases(t *testing.T) {
	var in RequestInput
	require.NoError(t, json.Unmarshal([]byte(`{"admin_quantity":"25","admin_size":" 150mm "}`), &in))

	n, err := in.Quantity().Int()
	require.NoError(t, err)
	assert.Equal(t, int64(25), n)
	assert.Equal(t, "150mm", in.Size())

	require.NoError(t, json.Unmarshal([]byte(`{"requested_quantity":7,"admin_quantity":"25","requested_size":"ring-9"}`), &in))
	n, err = in.Quantity().Int()
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "ring-9", in.Size())
}

func TestSubmitPayloadRemarks(t *testing.T) {
	var p SubmitPayload
	require.NoError(t, json.Unmarshal([]byte(`{"bags":[],"global_remarks":"  rush order "}`), &p))
	assert.Equal(t, "rush order", p.RemarksText())

	require.NoError(t, json.Unmarshal([]byte(`{"bags":[],"remarks":"primary","global_remarks":"other"}`), &p))
	assert.Equal(t, "primary", p.RemarksText())
}

func TestErrorMatching(t *testing.T) {
	var err error = &MissingFieldError{BagType: BagCollar, Field: "collar_od"}
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Equal(t, "Collar OD is required for Collar bags", err.Error())

	err = &ValidationError{Field: "bag_type", Message: "unknown bag type"}
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrMissingField)
}
