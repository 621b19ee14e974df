package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campus-cart/internal/domain"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("user is not a participant")
	ErrInvalidParticipants  = errors.New("conversation needs two distinct participants")
)

// ConversationRepository define la persistencia de hilos y sus mensajes.
type ConversationRepository interface {
	// FindOrCreate es atómico respecto de (productID, {a, b}).
	FindOrCreate(ctx context.Context, productID, participantA, participantB string) (domain.Conversation, error)
	AppendMessage(ctx context.Context, conversationID, callerID string, msg domain.Message) (domain.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]domain.ConversationSummary, error)
	GetForUser(ctx context.Context, conversationID, userID string) (domain.Conversation, error)
}

// appendTimestamp mantiene la secuencia cronológica aunque el reloj retroceda.
func appendTimestamp(requested, lastUpdated time.Time) time.Time {
	ts := requested
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC().Truncate(time.Microsecond)
	if ts.Before(lastUpdated) {
		ts = lastUpdated
	}
	return ts
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgConversationRepository implementa ConversationRepository sobre Postgres.
type PgConversationRepository struct {
	pool *pgxpool.Pool
}

func NewPgConversationRepository(pool *pgxpool.Pool) *PgConversationRepository {
	return &PgConversationRepository{pool: pool}
}

func (r *PgConversationRepository) FindOrCreate(ctx context.Context, productID, participantA, participantB string) (domain.Conversation, error) {
	pair := domain.NewParticipants(participantA, participantB)
	if !pair.Valid() || productID == "" {
		return domain.Conversation{}, ErrInvalidParticipants
	}

	// El DO UPDATE sin efecto hace que RETURNING devuelva la fila existente.
	const query = `
		INSERT INTO conversations (id, product_id, participant_low, participant_high, created_at, last_updated)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (product_id, participant_low, participant_high)
		DO UPDATE SET product_id = EXCLUDED.product_id
		RETURNING id, product_id, participant_low, participant_high, created_at, last_updated
	`
	now := time.Now().UTC().Truncate(time.Microsecond)
	conv, err := scanConversation(r.pool.QueryRow(ctx, query, uuid.NewString(), productID, pair[0], pair[1], now))
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("upsert conversation: %w", err)
	}

	conv.Messages, err = listMessages(ctx, r.pool, conv.ID)
	if err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

func (r *PgConversationRepository) AppendMessage(ctx context.Context, conversationID, callerID string, msg domain.Message) (domain.Conversation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Conversation{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const lockQuery = `
		SELECT id, product_id, participant_low, participant_high, created_at, last_updated
		FROM conversations
		WHERE id = $1
		FOR UPDATE
	`
	conv, err := scanConversation(tx.QueryRow(ctx, lockQuery, conversationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("lock conversation: %w", err)
	}
	if !conv.HasParticipant(callerID) {
		return domain.Conversation{}, ErrNotParticipant
	}

	ts := appendTimestamp(msg.Timestamp, conv.LastUpdated)

	var seq int64
	const seqQuery = `
		SELECT COALESCE(MAX(seq), 0) + 1
		FROM conversation_messages
		WHERE conversation_id = $1
	`
	if err := tx.QueryRow(ctx, seqQuery, conv.ID).Scan(&seq); err != nil {
		return domain.Conversation{}, fmt.Errorf("next message seq: %w", err)
	}

	const insertQuery = `
		INSERT INTO conversation_messages (conversation_id, seq, sender_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(ctx, insertQuery, conv.ID, seq, callerID, msg.Body, ts); err != nil {
		return domain.Conversation{}, fmt.Errorf("insert message: %w", err)
	}

	const touchQuery = `
		UPDATE conversations
		SET last_updated = GREATEST(last_updated, $2)
		WHERE id = $1
		RETURNING last_updated
	`
	if err := tx.QueryRow(ctx, touchQuery, conv.ID, ts).Scan(&conv.LastUpdated); err != nil {
		return domain.Conversation{}, fmt.Errorf("touch conversation: %w", err)
	}

	conv.Messages, err = listMessages(ctx, tx, conv.ID)
	if err != nil {
		return domain.Conversation{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Conversation{}, fmt.Errorf("commit append: %w", err)
	}
	return conv, nil
}

func (r *PgConversationRepository) ListForUser(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	const query = `
		SELECT id, product_id, participant_low, participant_high, created_at, last_updated
		FROM conversations
		WHERE (participant_low = $1 OR participant_high = $1)
			AND EXISTS (
				SELECT 1 FROM conversation_messages m WHERE m.conversation_id = conversations.id
			)
		ORDER BY last_updated DESC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []domain.ConversationSummary{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, conv.Summary())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *PgConversationRepository) GetForUser(ctx context.Context, conversationID, userID string) (domain.Conversation, error) {
	const query = `
		SELECT id, product_id, participant_low, participant_high, created_at, last_updated
		FROM conversations
		WHERE id = $1 AND (participant_low = $2 OR participant_high = $2)
	`
	conv, err := scanConversation(r.pool.QueryRow(ctx, query, conversationID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return domain.Conversation{}, err
	}

	conv.Messages, err = listMessages(ctx, r.pool, conv.ID)
	if err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

func scanConversation(row pgx.Row) (domain.Conversation, error) {
	var conv domain.Conversation
	err := row.Scan(
		&conv.ID,
		&conv.ProductID,
		&conv.Participants[0],
		&conv.Participants[1],
		&conv.CreatedAt,
		&conv.LastUpdated,
	)
	return conv, err
}

func listMessages(ctx context.Context, q querier, conversationID string) ([]domain.Message, error) {
	const query = `
		SELECT sender_id, body, created_at
		FROM conversation_messages
		WHERE conversation_id = $1
		ORDER BY seq ASC
	`
	rows, err := q.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.SenderID, &msg.Body, &msg.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}
