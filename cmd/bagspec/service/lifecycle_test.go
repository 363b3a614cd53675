package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaayushanti/bagspec/cmd/bagspec/models"
	"github.com/vaayushanti/bagspec/common/logger"
	"github.com/vaayushanti/bagspec/common/validation"
)

func strPtr(s string) *string { return &s }

func collarPayload(od, id, client string) *models.SubmitPayload {
	return &models.SubmitPayload{
		Bags: []models.BagSpec{{
			BagType:    "collar",
			CollarOD:   od,
			CollarID:   id,
			ClientName: client,
		}},
	}
}

func TestLifecycle_CreateRequest(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestLifecycle(t)

	t.Run("emailed request", func(t *testing.T) {
		in := requestInput("100", " 150mm ")
		in.PONumber = "PO-7"

		req, err := svc.CreateRequest(ctx, in, "buyer@example.com")
		require.NoError(t, err)
		assert.NotZero(t, req.ID)
		assert.Regexp(t, tokenAlphabet, req.Token)
		assert.Equal(t, int64(100), req.RequestedQuantity)
		assert.Equal(t, "150mm", req.RequestedSize)
		assert.Equal(t, "PO-7", req.PONumber)
		assert.False(t, req.IsDirectLink())
	})

	t.Run("direct link", func(t *testing.T) {
		req, err := svc.CreateRequest(ctx, requestInput("5", "90mm"), models.DirectLinkRecipient)
		require.NoError(t, err)
		assert.True(t, req.IsDirectLink())
	})

	t.Run("admin aliases", func(t *testing.T) {
		in := models.RequestInput{
			AdminQuantity: models.NewQuantityInput("12"),
			AdminSize:     "200mm",
		}
		req, err := svc.CreateRequest(ctx, in, "a@b.co")
		require.NoError(t, err)
		assert.Equal(t, int64(12), req.RequestedQuantity)
		assert.Equal(t, "200mm", req.RequestedSize)
	})

	cases := []struct {
		name      string
		in        models.RequestInput
		recipient string
		message   string
	}{
		{"blank recipient", requestInput("1", "1mm"), "  ", "Please provide recipient email"},
		{"malformed recipient", requestInput("1", "1mm"), "nobody", "Please provide a valid recipient email"},
		{"missing size", requestInput("1", ""), "a@b.co", "Please provide Quantity and Size"},
		{"missing quantity", models.RequestInput{RequestedSize: "1mm"}, "a@b.co", "Please provide Quantity and Size"},
		{"zero quantity", requestInput("0", "1mm"), "a@b.co", "Quantity must be a valid positive number"},
		{"text quantity", requestInput("lots", "1mm"), "a@b.co", "Quantity must be a valid positive number"},
		{"oversized quantity", requestInput("3000000000", "1mm"), "a@b.co", "Quantity is too large"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateRequest(ctx, tc.in, tc.recipient)
			require.ErrorIs(t, err, models.ErrValidation)

			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.message, verr.Message)
		})
	}
}

func TestLifecycle_CreateRequest_TokenCollision(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	tokens := &fixedTokens{tokens: []string{"same-token", "same-token"}}
	svc := NewLifecycleService(store, tokens, validation.MustDefault(), nil, logger.Discard())

	_, err := svc.CreateRequest(ctx, requestInput("1", "1mm"), "a@b.co")
	require.NoError(t, err)

	_, err = svc.CreateRequest(ctx, requestInput("1", "1mm"), "a@b.co")
	assert.ErrorIs(t, err, models.ErrTokenCollision)
}

func TestLifecycle_ResolveRequest(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestLifecycle(t)

	_, err := svc.ResolveRequest(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.ResolveRequest(ctx, "")
	assert.ErrorIs(t, err, models.ErrNotFound)

	req, err := svc.CreateRequest(ctx, requestInput("100", "150mm"), "a@b.co")
	require.NoError(t, err)

	before, err := svc.ResolveRequest(ctx, req.Token)
	require.NoError(t, err)

	_, err = svc.SubmitResponse(ctx, req.Token, collarPayload("150mm", "140mm", "Acme"))
	require.NoError(t, err)

	after, err := svc.ResolveRequest(ctx, req.Token)
	require.NoError(t, err)

	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.Token, after.Token)
	assert.Equal(t, before.RequestedQuantity, after.RequestedQuantity)
	assert.Equal(t, before.RequestedSize, after.RequestedSize)
	assert.False(t, before.Submitted)
	assert.True(t, after.Submitted)
	assert.NotNil(t, after.SubmittedAt)
}

func TestLifecycle_SubmitAndResubmit(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier := newTestLifecycle(t)

	in := requestInput("100", "150mm")
	in.PONumber = "PO-42"
	req, err := svc.CreateRequest(ctx, in, "buyer@example.com")
	require.NoError(t, err)

	// First submission: collar
	first, err := svc.SubmitResponse(ctx, req.Token, collarPayload(" 150mm", "140mm ", "Acme"))
	require.NoError(t, err)
	assert.Equal(t, models.BagCollar, first.BagType)

	listed, err := svc.ListResponses(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	got := listed[0]
	assert.Equal(t, "150mm", got.CollarOD)
	assert.Equal(t, "140mm", got.CollarID)
	assert.Equal(t, "Acme", got.ClientName)
	assert.Equal(t, int64(100), got.Quantity)
	assert.Equal(t, "150mm", got.RequestedSize)
	assert.Equal(t, "PO-42", got.PONumber)
	assert.Equal(t, "buyer@example.com", got.RecipientEmail)
	assert.True(t, got.Current())

	// Resubmission: ring replaces collar
	_, err = svc.SubmitResponse(ctx, req.Token, &models.SubmitPayload{
		Bags: []models.BagSpec{{BagType: "ring", TubesheetDia: "160mm", ClientName: "Acme"}},
	})
	require.NoError(t, err)

	history, err := svc.ResponseHistory(ctx, req.Token)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.BagRing, history[0].BagType)
	assert.Equal(t, "160mm", history[0].TubesheetDia)
	assert.True(t, history[0].Current())
	assert.Equal(t, models.BagCollar, history[1].BagType)
	assert.True(t, history[1].Superseded)

	current, err := svc.CurrentResponse(ctx, req.Token)
	require.NoError(t, err)
	assert.Equal(t, history[0].ID, current.ID)

	// Empty submission changes nothing
	_, err = svc.SubmitResponse(ctx, req.Token, &models.SubmitPayload{Bags: []models.BagSpec{}})
	assert.ErrorIs(t, err, models.ErrEmptySubmission)

	unchanged, err := svc.ResponseHistory(ctx, req.Token)
	require.NoError(t, err)
	assert.Equal(t, history, unchanged)

	assert.Equal(t, 2, notifier.count())
}

func TestLifecycle_SubmitKeepsOnlyRelevantFields(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestLifecycle(t)

	req, err := svc.CreateRequest(ctx, requestInput("3", "80mm"), "a@b.co")
	require.NoError(t, err)

	resp, err := svc.SubmitResponse(ctx, req.Token, &models.SubmitPayload{
		Bags: []models.BagSpec{{
			BagType:       "Snap",
			TubesheetData: "2mm sheet",
			CollarOD:      "ignored",
			TubesheetDia:  "ignored",
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.BagSnap, resp.BagType)
	assert.Equal(t, "2mm sheet", resp.TubesheetData)
	assert.Empty(t, resp.CollarOD)
	assert.Empty(t, resp.TubesheetDia)
}

func TestLifecycle_SubmitUsesFirstBag(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestLifecycle(t)

	req, err := svc.CreateRequest(ctx, requestInput("3", "80mm"), "a@b.co")
	require.NoError(t, err)

	resp, err := svc.SubmitResponse(ctx, req.Token, &models.SubmitPayload{
		Bags: []models.BagSpec{
			{BagType: "ring", TubesheetDia: "160mm"},
			{BagType: "collar", CollarOD: "150mm", CollarID: "140mm"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.BagRing, resp.BagType)
	assert.Equal(t, "160mm", resp.TubesheetDia)
	assert.Empty(t, resp.CollarOD)

	history, err := svc.ResponseHistory(ctx, req.Token)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestLifecycle_Remarks(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestLifecycle(t)

	req, err := svc.CreateRequest(ctx, requestInput("3", "80mm"), "a@b.co")
	require.NoError(t, err)

	payload := collarPayload("1", "2", "Acme")
	payload.Remarks = strPtr("  urgent ")
	payload.GlobalRemarks = strPtr("ignored")

	resp, err := svc.SubmitResponse(ctx, req.Token, payload)
	require.NoError(t, err)
	assert.Equal(t, "urgent", resp.Remarks)

	payload = collarPayload("1", "2", "Acme")
	payload.GlobalRemarks = strPtr("from the form")

	resp, err = svc.SubmitResponse(ctx, req.Token, payload)
	require.NoError(t, err)
	assert.Equal(t, "from the form", resp.Remarks)
}

func TestLifecycle_RejectedSubmissionsLeaveStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier := newTestLifecycle(t)

	req, err := svc.CreateRequest(ctx, requestInput("100", "150mm"), "a@b.co")
	require.NoError(t, err)
	_, err = svc.SubmitResponse(ctx, req.Token, collarPayload("150mm", "140mm", "Acme"))
	require.NoError(t, err)

	before, err := svc.ResponseHistory(ctx, req.Token)
	require.NoError(t, err)

	cases := []struct {
		name    string
		payload *models.SubmitPayload
		target  error
	}{
		{"nil payload", nil, models.ErrEmptySubmission},
		{"no bags", &models.SubmitPayload{}, models.ErrEmptySubmission},
		{"missing collar id", collarPayload("150mm", " ", "Acme"), models.ErrMissingField},
		{"missing tubesheet dia", &models.SubmitPayload{Bags: []models.BagSpec{{BagType: "ring"}}}, models.ErrMissingField},
		{"missing tubesheet data", &models.SubmitPayload{Bags: []models.BagSpec{{BagType: "snap"}}}, models.ErrMissingField},
		{"blank bag type", &models.SubmitPayload{Bags: []models.BagSpec{{CollarOD: "1"}}}, models.ErrValidation},
		{"unknown bag type", &models.SubmitPayload{Bags: []models.BagSpec{{BagType: "pleated"}}}, models.ErrValidation},
		{"first of two bags invalid", &models.SubmitPayload{Bags: []models.BagSpec{
			{BagType: "ring"},
			{BagType: "ring", TubesheetDia: "2"},
		}}, models.ErrMissingField},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SubmitResponse(ctx, req.Token, tc.payload)
			assert.ErrorIs(t, err, tc.target)

			after, err := svc.ResponseHistory(ctx, req.Token)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}

	assert.Equal(t, 1, notifier.count())
}

func TestLifecycle_MissingFieldMessage(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestLifecycle(t)

	req, err := svc.CreateRequest(ctx, requestInput("1", "1mm"), "a@b.co")
	require.NoError(t, err)

	_, err = svc.SubmitResponse(ctx, req.Token, collarPayload("150mm", "", "Acme"))

	var missing *models.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, models.BagCollar, missing.BagType)
	assert.Equal(t, "collar_id", missing.Field)
}

func TestLifecycle_SubmitUnknownToken(t *testing.T) {
	svc, _, notifier := newTestLifecycle(t)

	_, err := svc.SubmitResponse(context.Background(), "no-such-token", collarPayload("1", "2", "Acme"))
	assert.ErrorIs(t, err, models.ErrInvalidLink)
	assert.Zero(t, notifier.count())
}

func TestLifecycle_ConcurrentSubmissions(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestLifecycle(t)

	req, err := svc.CreateRequest(ctx, requestInput("10", "100mm"), "a@b.co")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.SubmitResponse(ctx, req.Token, &models.SubmitPayload{
				Bags: []models.BagSpec{{BagType: "ring", TubesheetDia: fmt.Sprintf("%dmm", 100+i)}},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	history, err := svc.ResponseHistory(ctx, req.Token)
	require.NoError(t, err)
	require.Len(t, history, 8)

	current := 0
	for _, resp := range history {
		if resp.Current() {
			current++
		}
	}
	assert.Equal(t, 1, current)
}

func TestLifecycle_AmendRequest(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestLifecycle(t)

	in := requestInput("100", "150mm")
	in.PONumber = "PO-1"
	req, err := svc.CreateRequest(ctx, in, "a@b.co")
	require.NoError(t, err)

	_, err = svc.SubmitResponse(ctx, req.Token, collarPayload("150mm", "140mm", "Acme"))
	require.NoError(t, err)

	t.Run("quantity and size", func(t *testing.T) {
		amended, err := svc.AmendRequest(ctx, req.Token, []byte(`{"requested_quantity":"250","requested_size":"175mm"}`))
		require.NoError(t, err)
		assert.Equal(t, int64(250), amended.RequestedQuantity)
		assert.Equal(t, "175mm", amended.RequestedSize)
		assert.Equal(t, "PO-1", amended.PONumber)

		resolved, err := svc.ResolveRequest(ctx, req.Token)
		require.NoError(t, err)
		assert.Equal(t, int64(250), resolved.RequestedQuantity)

		// The stored response keeps what it copied
		current, err := svc.CurrentResponse(ctx, req.Token)
		require.NoError(t, err)
		assert.Equal(t, int64(100), current.Quantity)
	})

	t.Run("null clears po number", func(t *testing.T) {
		amended, err := svc.AmendRequest(ctx, req.Token, []byte(`{"po_number":null}`))
		require.NoError(t, err)
		assert.Empty(t, amended.PONumber)
	})

	rejected := map[string]string{
		"bad quantity":  `{"requested_quantity":"-3"}`,
		"huge quantity": `{"requested_quantity":3000000000}`,
		"cleared size":  `{"requested_size":""}`,
		"unknown field": `{"recipient_email":"x@y.z"}`,
		"not json":      `{`,
	}
	for name, patch := range rejected {
		t.Run(name, func(t *testing.T) {
			_, err := svc.AmendRequest(ctx, req.Token, []byte(patch))
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}

	t.Run("unknown token", func(t *testing.T) {
		_, err := svc.AmendRequest(ctx, "nope", []byte(`{}`))
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}
