package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/mockloop/interview-engine/internal/model"
)

// MessageRepository stores the append-only session transcript. Messages are
// never updated.
type MessageRepository interface {
	FindByID(ctx context.Context, sessionID, id string) (*model.Message, error)
	FindBySession(ctx context.Context, sessionID string) ([]model.Message, error)
	FindBySessionAndTypes(ctx context.Context, sessionID string, types ...model.MessageType) ([]model.Message, error)
	FindLinked(ctx context.Context, linkedID string, messageType model.MessageType) ([]model.Message, error)
	CountBySessionAndType(ctx context.Context, sessionID string, messageType model.MessageType) (int, error)
	// Create returns ErrDuplicate when a unique transcript constraint is hit,
	// such as a second evaluation for the same stress scenario.
	Create(ctx context.Context, params model.CreateMessageParams) (*model.Message, error)
	WithTx(tx *sqlx.Tx) MessageRepository
}

type messageRepo struct {
	db dbtx
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) WithTx(tx *sqlx.Tx) MessageRepository {
	return &messageRepo{db: tx}
}

func (r *messageRepo) FindByID(ctx context.Context, sessionID, id string) (*model.Message, error) {
	var msg model.Message
	err := r.db.GetContext(ctx, &msg, `
		SELECT * FROM session_messages WHERE id = $1 AND session_id = $2
	`, id, sessionID)
	return HandleNotFound(&msg, err)
}

func (r *messageRepo) FindBySession(ctx context.Context, sessionID string) ([]model.Message, error) {
	var msgs []model.Message
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM session_messages
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
	`, sessionID)
	return msgs, err
}

func (r *messageRepo) FindBySessionAndTypes(ctx context.Context, sessionID string, types ...model.MessageType) ([]model.Message, error) {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	var msgs []model.Message
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM session_messages
		WHERE session_id = $1 AND message_type = ANY($2)
		ORDER BY created_at ASC, id ASC
	`, sessionID, pq.Array(names))
	return msgs, err
}

func (r *messageRepo) FindLinked(ctx context.Context, linkedID string, messageType model.MessageType) ([]model.Message, error) {
	var msgs []model.Message
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM session_messages
		WHERE linked_id = $1 AND message_type = $2
		ORDER BY created_at ASC, id ASC
	`, linkedID, messageType)
	return msgs, err
}

func (r *messageRepo) CountBySessionAndType(ctx context.Context, sessionID string, messageType model.MessageType) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM session_messages WHERE session_id = $1 AND message_type = $2
	`, sessionID, messageType)
	return count, err
}

func (r *messageRepo) Create(ctx context.Context, params model.CreateMessageParams) (*model.Message, error) {
	var msg model.Message
	err := r.db.GetContext(ctx, &msg, `
		INSERT INTO session_messages (
			id, session_id, role, section, message_type, content,
			question_number, difficulty, stress_type, linked_id, evaluation
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING *
	`, params.ID, params.SessionID, params.Role, params.Section, params.MessageType, params.Content,
		params.QuestionNumber, params.Difficulty, params.StressType, params.LinkedID, params.Evaluation)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
