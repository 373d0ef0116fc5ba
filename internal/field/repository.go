package field

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/field-booking-backend/internal/pkg/daytime"
)

// Repository defines data access methods for fields.
type Repository interface {
	Create(ctx context.Context, f *Field) error
	GetByID(ctx context.Context, id string) (*Field, error)
	List(ctx context.Context, filter Filter) ([]*Field, int, error)
	Update(ctx context.Context, f *Field) error
	Delete(ctx context.Context, id string) error
	SetCoverImage(ctx context.Context, id string, imageID *string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

// TIME columns are cast to text and trimmed back to HH:MM after scanning.
var fieldColumns = []string{
	"f.id", "f.owner_id", "f.name", "f.address",
	"f.open_time::text", "f.close_time::text", "f.pricing::float8", "f.closed_days",
	"f.cover_image_id", "f.created_at", "f.updated_at",
}

func scanField(row pgx.Row, extra ...any) (*Field, error) {
	var f Field
	dest := []any{
		&f.ID, &f.OwnerID, &f.Name, &f.Address,
		&f.OpenTime, &f.CloseTime, &f.Pricing, &f.ClosedDays,
		&f.CoverImageID, &f.CreatedAt, &f.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if v, err := daytime.NormalizeClock(f.OpenTime); err == nil {
		f.OpenTime = v
	}
	if v, err := daytime.NormalizeClock(f.CloseTime); err == nil {
		f.CloseTime = v
	}
	return &f, nil
}

func (r *pgxRepository) Create(ctx context.Context, f *Field) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.fields").
		Columns("owner_id", "name", "address", "open_time", "close_time", "pricing", "closed_days").
		Values(f.OwnerID, f.Name, f.Address, f.OpenTime, f.CloseTime, f.Pricing, f.ClosedDays).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create field query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return fmt.Errorf("create field failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Field, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(fieldColumns...).
		From("public.fields f").
		Where(squirrel.Eq{"f.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get field query failed: %w", err)
	}

	f, err := scanField(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get field failed: %w", err)
	}
	return f, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Field, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(append(fieldColumns, "count(*) OVER() as total_count")...).
		From("public.fields f")

	if filter.OwnerID != "" {
		query = query.Where(squirrel.Eq{"f.owner_id": filter.OwnerID})
	}
	if filter.Name != "" {
		query = query.Where(squirrel.ILike{"f.name": "%" + filter.Name + "%"})
	}

	orderBy := "f.created_at"
	if filter.SortBy != "" {
		// Safe to prepend f. as the handler only allows specific fields
		orderBy = "f." + filter.SortBy
	}
	orderDir := "DESC"
	if filter.SortOrder == "ASC" || filter.SortOrder == "asc" {
		orderDir = "ASC"
	}
	query = query.OrderBy(orderBy + " " + orderDir)

	// Pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list fields query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list fields failed: %w", err)
	}
	defer rows.Close()

	var fields []*Field
	var total int
	for rows.Next() {
		f, err := scanField(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan field failed: %w", err)
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate fields failed: %w", err)
	}

	return fields, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, f *Field) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.fields").
		Set("name", f.Name).
		Set("address", f.Address).
		Set("open_time", f.OpenTime).
		Set("close_time", f.CloseTime).
		Set("pricing", f.Pricing).
		Set("closed_days", f.ClosedDays).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": f.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update field query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&f.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update field failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.fields").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete field query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete field failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) SetCoverImage(ctx context.Context, id string, imageID *string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.fields").
		Set("cover_image_id", imageID).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set cover image query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set cover image failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
