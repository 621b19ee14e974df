package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"campus-cart/internal/config"
	"campus-cart/internal/db"
	"campus-cart/internal/domain"
)

func TestAppendTimestamp(t *testing.T) {
	last := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	require.Equal(t, last.Add(time.Second), appendTimestamp(last.Add(time.Second), last))
	require.Equal(t, last, appendTimestamp(last.Add(-time.Hour), last), "clock going backwards clamps to last update")

	got := appendTimestamp(time.Time{}, last)
	require.False(t, got.Before(last))
	require.Equal(t, time.UTC, got.Location())

	withNanos := last.Add(time.Hour + 1500*time.Nanosecond)
	require.Equal(t, last.Add(time.Hour+time.Microsecond), appendTimestamp(withNanos, last))
}

// pgTestPool usa TEST_DATABASE_URL; sin esa variable los tests de Postgres se omiten.
func pgTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, &config.Config{DatabaseURL: dsn})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Ping(ctx, pool))
	require.NoError(t, db.EnsureSchema(ctx, pool))
	return pool
}

func seedPgProduct(t *testing.T, pool *pgxpool.Pool) (sellerID, buyerID, productID string) {
	t.Helper()
	ctx := context.Background()
	sellerID, buyerID, productID = uuid.NewString(), uuid.NewString(), uuid.NewString()
	for _, id := range []string{sellerID, buyerID} {
		_, err := pool.Exec(ctx, `INSERT INTO users (id, email) VALUES ($1, $2)`, id, id+"@campus.edu")
		require.NoError(t, err)
	}
	_, err := pool.Exec(ctx, `INSERT INTO products (id, seller_id, name) VALUES ($1, $2, 'Desk lamp')`, productID, sellerID)
	require.NoError(t, err)
	return sellerID, buyerID, productID
}

func TestPgConversationRepository_Flow(t *testing.T) {
	req := require.New(t)
	pool := pgTestPool(t)
	ctx := context.Background()
	sellerID, buyerID, productID := seedPgProduct(t, pool)
	repo := NewPgConversationRepository(pool)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv, err := repo.FindOrCreate(ctx, productID, buyerID, sellerID)
			if err == nil {
				ids[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		req.Equal(ids[0], id)
	}

	_, err := repo.AppendMessage(ctx, ids[0], buyerID, domain.Message{Body: "Is this available?"})
	req.NoError(err)
	conv, err := repo.AppendMessage(ctx, ids[0], sellerID, domain.Message{Body: "Yes"})
	req.NoError(err)
	req.Len(conv.Messages, 2)
	req.Equal("Is this available?", conv.Messages[0].Body)
	req.False(conv.LastUpdated.Before(conv.Messages[1].Timestamp))

	_, err = repo.AppendMessage(ctx, ids[0], uuid.NewString(), domain.Message{Body: "hola"})
	req.True(errors.Is(err, ErrNotParticipant))
	_, err = repo.AppendMessage(ctx, uuid.NewString(), buyerID, domain.Message{Body: "hola"})
	req.True(errors.Is(err, ErrConversationNotFound))

	_, err = repo.GetForUser(ctx, ids[0], uuid.NewString())
	req.True(errors.Is(err, ErrConversationNotFound))

	_, err = repo.FindOrCreate(ctx, uuid.NewString(), buyerID, sellerID)
	req.NoError(err)

	list, err := repo.ListForUser(ctx, sellerID)
	req.NoError(err)
	req.Len(list, 1, "threads without messages are not listed")
	req.Equal(ids[0], list[0].ID)

	email, err := NewPgUserRepository(pool).ResolveEmail(ctx, buyerID)
	req.NoError(err)
	req.Equal(buyerID+"@campus.edu", email)

	seller, err := NewPgProductRepository(pool).ResolveSeller(ctx, productID)
	req.NoError(err)
	req.Equal(sellerID, seller)

	_, err = NewPgProductRepository(pool).GetByID(ctx, uuid.NewString())
	req.True(errors.Is(err, ErrProductNotFound))
}
