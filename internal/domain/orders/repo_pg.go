package orders

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

type orderRepoPG struct{ pool *pgxpool.Pool }

func NewOrderRepoPG(pool *pgxpool.Pool) OrderRepository {
	return &orderRepoPG{pool: pool}
}

const orderCols = `id, reference, user_id, service, status, total,
	shipping, notes, meta, created_at, updated_at`

func (r *orderRepoPG) scanRow(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Reference, &o.UserID, &o.Service, &o.Status, &o.Total,
		&o.Shipping, &o.Notes, &o.Meta, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.Meta == nil {
		o.Meta = map[string]any{}
	}
	return &o, nil
}

func (r *orderRepoPG) Create(ctx context.Context, o *Order) error {
	o.ID = uuid.New()
	if o.Status == "" {
		o.Status = StatusPending
	}
	if o.Meta == nil {
		o.Meta = map[string]any{}
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO orders (id, reference, user_id, service, status, total, shipping, notes, meta)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		o.ID, o.Reference, o.UserID, o.Service, o.Status, o.Total, o.Shipping, o.Notes, o.Meta)
	return err
}

func (r *orderRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return r.scanRow(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id = $1`, id))
}

func (r *orderRepoPG) GetByReference(ctx context.Context, ref string) (*Order, error) {
	return r.scanRow(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE reference = $1`, ref))
}

func (r *orderRepoPG) Update(ctx context.Context, o *Order) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE orders SET status=$2, total=$3, shipping=$4, notes=$5, meta=$6, updated_at=NOW()
		WHERE id = $1`,
		o.ID, o.Status, o.Total, o.Shipping, o.Notes, o.Meta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *orderRepoPG) List(ctx context.Context, status string, limit, offset int) ([]*Order, int, error) {
	where := ``
	args := []interface{}{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT `+orderCols+` FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, n+1, n+2)
	rows, err := conn(ctx, r.pool).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Order
	for rows.Next() {
		o, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, nil
}

type apptRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &apptRepoPG{pool: pool}
}

const apptCols = `id, order_id, user_id, status, starts_at, meta, created_at, updated_at`

func (r *apptRepoPG) scanRow(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.OrderID, &a.UserID, &a.Status, &a.StartsAt,
		&a.Meta, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.Meta == nil {
		a.Meta = map[string]any{}
	}
	return &a, nil
}

func (r *apptRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanRow(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *apptRepoPG) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*Appointment, error) {
	return r.scanRow(conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+apptCols+` FROM appointments WHERE order_id = $1
		ORDER BY created_at DESC LIMIT 1`, orderID))
}

func (r *apptRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	if a.Status == "" {
		a.Status = ApptBooked
	}
	if a.Meta == nil {
		a.Meta = map[string]any{}
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO appointments (id, order_id, user_id, status, starts_at, meta)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.OrderID, a.UserID, a.Status, a.StartsAt, a.Meta)
	return err
}

func (r *apptRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE appointments SET status=$2, starts_at=$3, meta=$4, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.Status, a.StartsAt, a.Meta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}
