package consult

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PaulAlexX98/safescript-admin-sub001/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

type sessionRepoPG struct{ pool *pgxpool.Pool }

func NewSessionRepoPG(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepoPG{pool: pool}
}

const sessionCols = `id, order_id, user_id, service, status, meta, created_at, updated_at`

func (r *sessionRepoPG) scanRow(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.OrderID, &s.UserID, &s.Service, &s.Status,
		&s.Meta, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.Meta == nil {
		s.Meta = map[string]any{}
	}
	return &s, nil
}

func (r *sessionRepoPG) Create(ctx context.Context, s *Session) error {
	s.ID = uuid.New()
	if s.Status == "" {
		s.Status = SessionInProgress
	}
	if s.Meta == nil {
		s.Meta = map[string]any{}
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO sessions (id, order_id, user_id, service, status, meta)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.OrderID, s.UserID, s.Service, s.Status, s.Meta)
	return err
}

func (r *sessionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	return r.scanRow(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+sessionCols+` FROM sessions WHERE id = $1`, id))
}

func (r *sessionRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Session, error) {
	return r.scanRow(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+sessionCols+` FROM sessions WHERE id = $1 FOR UPDATE`, id))
}

func (r *sessionRepoPG) Update(ctx context.Context, s *Session) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE sessions SET status=$2, meta=$3, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Status, s.Meta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *sessionRepoPG) List(ctx context.Context, status string, limit, offset int) ([]*Session, int, error) {
	where := ``
	args := []interface{}{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM sessions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT `+sessionCols+` FROM sessions%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, n+1, n+2)
	rows, err := conn(ctx, r.pool).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Session
	for rows.Next() {
		s, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, nil
}

type responseRepoPG struct{ pool *pgxpool.Pool }

func NewResponseRepoPG(pool *pgxpool.Pool) ResponseRepository {
	return &responseRepoPG{pool: pool}
}

const responseCols = `id, session_id, form_type, data, is_complete, completed_at,
	created_by, updated_by, created_at, updated_at`

func (r *responseRepoPG) scanRow(row pgx.Row) (*FormResponse, error) {
	var fr FormResponse
	err := row.Scan(&fr.ID, &fr.SessionID, &fr.FormType, &fr.Data, &fr.IsComplete,
		&fr.CompletedAt, &fr.CreatedBy, &fr.UpdatedBy, &fr.CreatedAt, &fr.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrResponseNotFound
	}
	if err != nil {
		return nil, err
	}
	if fr.Data == nil {
		fr.Data = map[string]any{}
	}
	return &fr, nil
}

func (r *responseRepoPG) Get(ctx context.Context, sessionID uuid.UUID, formType string) (*FormResponse, error) {
	return r.scanRow(conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+responseCols+` FROM form_responses
		WHERE session_id = $1 AND form_type = $2`, sessionID, formType))
}

func (r *responseRepoPG) GetForUpdate(ctx context.Context, sessionID uuid.UUID, formType string) (*FormResponse, error) {
	return r.scanRow(conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+responseCols+` FROM form_responses
		WHERE session_id = $1 AND form_type = $2 FOR UPDATE`, sessionID, formType))
}

func (r *responseRepoPG) Create(ctx context.Context, fr *FormResponse) error {
	fr.ID = uuid.New()
	if fr.Data == nil {
		fr.Data = map[string]any{}
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO form_responses (id, session_id, form_type, data, is_complete, completed_at, created_by, updated_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		fr.ID, fr.SessionID, fr.FormType, fr.Data, fr.IsComplete, fr.CompletedAt, fr.CreatedBy, fr.UpdatedBy)
	return err
}

func (r *responseRepoPG) Update(ctx context.Context, fr *FormResponse) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE form_responses SET data=$2, is_complete=$3, completed_at=$4, updated_by=$5, updated_at=NOW()
		WHERE id = $1`,
		fr.ID, fr.Data, fr.IsComplete, fr.CompletedAt, fr.UpdatedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrResponseNotFound
	}
	return nil
}

func (r *responseRepoPG) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*FormResponse, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+responseCols+` FROM form_responses
		WHERE session_id = $1 ORDER BY form_type`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*FormResponse
	for rows.Next() {
		fr, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, fr)
	}
	return items, nil
}
