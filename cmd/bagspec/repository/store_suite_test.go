package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaayushanti/bagspec/cmd/bagspec/models"
)

// runStoreSuite exercises a Store implementation against a fresh schema
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndFindRequest", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		req := newRequest("tok-create")
		require.NoError(t, store.CreateRequest(ctx, req))
		assert.NotZero(t, req.ID)

		row, err := store.FindRequest(ctx, "tok-create")
		require.NoError(t, err)
		got, ok := row.Classify().(*models.Request)
		require.True(t, ok)
		assert.Equal(t, req.ID, got.ID)
		assert.Equal(t, int64(100), got.RequestedQuantity)
		assert.Equal(t, "150mm", got.RequestedSize)
		assert.Equal(t, "PO-1", got.PONumber)
		assert.False(t, got.Submitted)
		assert.WithinDuration(t, req.CreatedAt, got.CreatedAt, time.Millisecond)

		_, err = store.FindRequest(ctx, "missing")
		assert.ErrorIs(t, err, models.ErrNotFound)
		_, err = store.FindEarliest(ctx, "missing")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("TokenCollision", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.CreateRequest(ctx, newRequest("tok-dup")))
		err := store.CreateRequest(ctx, newRequest("tok-dup"))
		assert.ErrorIs(t, err, models.ErrTokenCollision)
	})

	t.Run("ReconcileSupersedesPrevious", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		req := newRequest("tok-rec")
		require.NoError(t, store.CreateRequest(ctx, req))

		first := &models.Response{Token: "tok-rec", BagType: models.BagCollar, CollarOD: "150mm", CollarID: "140mm", ClientName: "Acme"}
		t1 := time.Now().UTC().Add(-time.Minute)
		require.NoError(t, store.ReconcileResponse(ctx, first, t1))
		assert.Greater(t, first.ID, req.ID)
		assert.Equal(t, int64(100), first.Quantity)
		assert.Equal(t, "PO-1", first.PONumber)

		second := &models.Response{Token: "tok-rec", BagType: models.BagRing, TubesheetDia: "160mm", ClientName: "Acme"}
		t2 := t1.Add(30 * time.Second)
		require.NoError(t, store.ReconcileResponse(ctx, second, t2))

		rows, err := store.ListResponsesByToken(ctx, "tok-rec")
		require.NoError(t, err)
		require.Len(t, rows, 2)

		latest := rows[0].Classify().(*models.Response)
		older := rows[1].Classify().(*models.Response)
		assert.Equal(t, second.ID, latest.ID)
		assert.True(t, latest.Current())
		assert.Equal(t, "160mm", latest.TubesheetDia)
		assert.Equal(t, first.ID, older.ID)
		assert.True(t, older.Superseded)

		reqRow, err := store.FindRequest(ctx, "tok-rec")
		require.NoError(t, err)
		resolved := reqRow.Classify().(*models.Request)
		assert.Equal(t, req.ID, resolved.ID)
		assert.True(t, resolved.Submitted)
		require.NotNil(t, resolved.SubmittedAt)
		assert.WithinDuration(t, t2, *resolved.SubmittedAt, time.Millisecond)
	})

	t.Run("ReconcileUnknownToken", func(t *testing.T) {
		store := newStore(t)
		resp := &models.Response{Token: "nope", BagType: models.BagSnap, TubesheetData: "x"}
		err := store.ReconcileResponse(context.Background(), resp, time.Now().UTC())
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("ListResponsesOrdering", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		base := time.Now().UTC().Add(-time.Hour)

		for i, token := range []string{"tok-a", "tok-b", "tok-c"} {
			require.NoError(t, store.CreateRequest(ctx, newRequest(token)))
			resp := &models.Response{Token: token, BagType: models.BagSnap, TubesheetData: token}
			require.NoError(t, store.ReconcileResponse(ctx, resp, base.Add(time.Duration(i)*time.Minute)))
		}

		rows, err := store.ListResponses(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 3)

		var tokens []string
		for _, row := range rows {
			_, isResponse := row.Classify().(*models.Response)
			assert.True(t, isResponse)
			tokens = append(tokens, row.Token)
		}
		assert.Equal(t, []string{"tok-c", "tok-b", "tok-a"}, tokens)
	})

	t.Run("ConcurrentReconcileKeepsOneCurrent", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		require.NoError(t, store.CreateRequest(ctx, newRequest("tok-race")))

		const writers = 8
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				resp := &models.Response{Token: "tok-race", BagType: models.BagSnap, TubesheetData: fmt.Sprintf("sheet-%d", i)}
				errs <- store.ReconcileResponse(ctx, resp, time.Now().UTC())
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		rows, err := store.ListResponsesByToken(ctx, "tok-race")
		require.NoError(t, err)
		require.Len(t, rows, writers)

		current := 0
		for _, row := range rows {
			if row.Classify().(*models.Response).Current() {
				current++
			}
		}
		assert.Equal(t, 1, current)
	})

	t.Run("UpdateRequestFields", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		req := newRequest("tok-upd")
		require.NoError(t, store.CreateRequest(ctx, req))

		req.PONumber = ""
		req.RequestedQuantity = 250
		req.RequestedSize = "200mm"
		require.NoError(t, store.UpdateRequestFields(ctx, req))

		row, err := store.FindRequest(ctx, "tok-upd")
		require.NoError(t, err)
		got := row.Classify().(*models.Request)
		assert.Equal(t, "", got.PONumber)
		assert.Equal(t, int64(250), got.RequestedQuantity)
		assert.Equal(t, "200mm", got.RequestedSize)

		req.ID = 999999
		assert.ErrorIs(t, store.UpdateRequestFields(ctx, req), models.ErrNotFound)
	})

	t.Run("SizeCatalog", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		now := time.Now().UTC()

		a := &models.SizeEntry{SizeName: "150mm", BagType: models.BagCollar, CreatedAt: now.Add(-time.Minute)}
		b := &models.SizeEntry{SizeName: "160mm", BagType: models.BagCollar, CreatedAt: now}
		require.NoError(t, store.CreateSize(ctx, a))
		require.NoError(t, store.CreateSize(ctx, b))
		require.NoError(t, store.CreateSize(ctx, &models.SizeEntry{SizeName: "150mm", BagType: models.BagRing, CreatedAt: now}))

		err := store.CreateSize(ctx, &models.SizeEntry{SizeName: "150mm", BagType: models.BagCollar, CreatedAt: now})
		assert.ErrorIs(t, err, models.ErrDuplicateSize)

		sizes, err := store.ListSizes(ctx, models.BagCollar)
		require.NoError(t, err)
		require.Len(t, sizes, 2)
		assert.Equal(t, "160mm", sizes[0].SizeName)
		assert.Equal(t, "150mm", sizes[1].SizeName)

		got, err := store.GetSize(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BagCollar, got.BagType)

		require.NoError(t, store.DeleteSize(ctx, a.ID))
		assert.ErrorIs(t, store.DeleteSize(ctx, a.ID), models.ErrSizeNotFound)
		_, err = store.GetSize(ctx, a.ID)
		assert.ErrorIs(t, err, models.ErrSizeNotFound)

		empty, err := store.ListSizes(ctx, models.BagSnap)
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("MigrateIsIdempotent", func(t *testing.T) {
		store := newStore(t)
		assert.NoError(t, store.Migrate(context.Background()))
	})
}

func newRequest(token string) *models.Request {
	return &models.Request{
		Token:             token,
		RecipientEmail:    "client@example.com",
		PONumber:          "PO-1",
		RequestedQuantity: 100,
		RequestedSize:     "150mm",
		CreatedAt:         time.Now().UTC(),
	}
}
