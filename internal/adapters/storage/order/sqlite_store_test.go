package order

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conference/internal/adapters/storage"
	domain "conference/internal/domain/order"
	"conference/internal/domain/pricing"
)

var t0 = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func intent(orderID, kind string) domain.Intent {
	in := domain.Intent{
		OrderID: orderID, Kind: kind, Amount: 180000, Currency: pricing.INR,
		Receipt: "cou_" + orderID, Payload: `{"course":{"CourseCode":"M1"}}`, CreatedAt: t0,
	}
	if err := in.Validate(); err != nil {
		panic(err)
	}
	return in
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, intent("order_1", "course")))
	assert.Error(t, s.Save(ctx, intent("order_1", "registration")), "order ids are unique")

	got, err := s.GetByOrderID(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, "course", got.Kind)
	assert.Equal(t, int64(180000), got.Amount)
	assert.Equal(t, pricing.INR, got.Currency)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.True(t, got.CreatedAt.Equal(t0))
	assert.True(t, got.CompletedAt.IsZero())

	_, err = s.GetByOrderID(ctx, "order_404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.Claim(ctx, "order_404", "r1", t0), domain.ErrNotFound)

	at := t0.Add(time.Minute)
	require.NoError(t, s.Claim(ctx, "order_1", "r1", at))
	assert.ErrorIs(t, s.Claim(ctx, "order_1", "r2", at), domain.ErrAlreadyUsed)

	got, err = s.GetByOrderID(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, "r1", got.RecordID)
	assert.True(t, got.CompletedAt.Equal(at))

	require.NoError(t, s.Release(ctx, "order_1"))
	assert.ErrorIs(t, s.Release(ctx, "order_1"), domain.ErrNotFound, "only completed intents are released")
	got, err = s.GetByOrderID(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Empty(t, got.RecordID)

	// One of many concurrent claims wins.
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Claim(ctx, "order_1", "r"+string(rune('a'+i)), at); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestSQLiteStore(t *testing.T) {
	db, err := storage.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	exerciseStore(t, NewSQLiteStore(db))
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("CONFERENCE_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CONFERENCE_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	client, db, err := storage.ConnectMongo(ctx, uri, "conference_test_order", nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Drop(context.Background())
		client.Disconnect(context.Background())
	})
	exerciseStore(t, NewMongoStore(db))
}
