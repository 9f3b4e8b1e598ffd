package forms

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

type formRepoPG struct{ pool *pgxpool.Pool }

func NewFormRepoPG(pool *pgxpool.Pool) Repository {
	return &formRepoPG{pool: pool}
}

func (r *formRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const formCols = `id, name, slug, form_type, service, step, version, active, schema,
	created_at, updated_at`

func (r *formRepoPG) scanRow(row pgx.Row) (*ClinicForm, error) {
	var f ClinicForm
	err := row.Scan(&f.ID, &f.Name, &f.Slug, &f.FormType, &f.Service, &f.Step,
		&f.Version, &f.Active, &f.Schema, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *formRepoPG) Create(ctx context.Context, f *ClinicForm) error {
	f.ID = uuid.New()
	if f.Slug == "" {
		f.Slug = Slug(f.Name, "-")
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinic_forms (id, name, slug, form_type, service, step, version, active, schema)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		f.ID, f.Name, f.Slug, f.FormType, f.Service, f.Step, f.Version, f.Active, f.Schema)
	return err
}

func (r *formRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ClinicForm, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+formCols+` FROM clinic_forms WHERE id = $1`, id))
}

// ActiveByType returns the newest active form carrying the given type.
func (r *formRepoPG) ActiveByType(ctx context.Context, formType string) (*ClinicForm, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `
		SELECT `+formCols+` FROM clinic_forms
		WHERE form_type = $1 AND active
		ORDER BY version DESC, updated_at DESC
		LIMIT 1`, formType))
}

func (r *formRepoPG) Update(ctx context.Context, f *ClinicForm) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinic_forms SET name=$2, slug=$3, form_type=$4, service=$5, step=$6,
			version=$7, active=$8, schema=$9, updated_at=NOW()
		WHERE id = $1`,
		f.ID, f.Name, f.Slug, f.FormType, f.Service, f.Step, f.Version, f.Active, f.Schema)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *formRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM clinic_forms WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *formRepoPG) List(ctx context.Context, service string, limit, offset int) ([]*ClinicForm, int, error) {
	where := ``
	args := []interface{}{}
	if service != "" {
		where = ` WHERE service = $1`
		args = append(args, service)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinic_forms`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT `+formCols+` FROM clinic_forms%s ORDER BY service, step, form_type LIMIT $%d OFFSET $%d`,
		where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*ClinicForm
	for rows.Next() {
		f, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, f)
	}
	return items, total, nil
}
