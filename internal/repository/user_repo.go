package repository

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

// UserDirectory resuelve identidades de usuarios registrados por el servicio de auth.
type UserDirectory interface {
	ResolveEmail(ctx context.Context, userID string) (string, error)
}

// PgUserRepository implementa UserDirectory usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) ResolveEmail(ctx context.Context, userID string) (string, error) {
	const query = `
		SELECT email
		FROM users
		WHERE id = $1
	`
	var email string
	err := r.pool.QueryRow(ctx, query, userID).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUserNotFound
	}
	return email, err
}

// MemoryUserDirectory sirve para desarrollo local y tests.
type MemoryUserDirectory struct {
	mu     sync.RWMutex
	emails map[string]string
}

func NewMemoryUserDirectory() *MemoryUserDirectory {
	return &MemoryUserDirectory{emails: make(map[string]string)}
}

func (d *MemoryUserDirectory) Put(userID, email string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emails[userID] = strings.TrimSpace(email)
}

func (d *MemoryUserDirectory) ResolveEmail(_ context.Context, userID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	email, ok := d.emails[userID]
	if !ok {
		return "", ErrUserNotFound
	}
	return email, nil
}
