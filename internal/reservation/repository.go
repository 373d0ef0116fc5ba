package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/field-booking-backend/internal/pkg/daytime"
)

// Repository is the persistence contract for reservations.
//
// Implementations must reject a second live reservation overlapping an
// existing live one on the same field and date with ErrSlotConflict, even
// under concurrent inserts.
type Repository interface {
	Create(ctx context.Context, r *Reservation) error
	GetByID(ctx context.Context, id string) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, int, error)

	// ListByFieldDate returns every reservation for the field and day in any status.
	ListByFieldDate(ctx context.Context, fieldID, date string) ([]*Reservation, error)

	// HasOverlap reports whether a live reservation intersects [start, end).
	// excludeID ignores the reservation being rescheduled.
	HasOverlap(ctx context.Context, fieldID, date, start, end, excludeID string) (bool, error)

	// UpdateSchedule rewrites date, times and price of an active reservation.
	UpdateSchedule(ctx context.Context, r *Reservation) error

	// Transition moves a reservation from one status to another. It returns
	// ErrInvalidTransition when the stored status is not from.
	Transition(ctx context.Context, id string, from, to Status) (*Reservation, error)

	// ListActive returns active reservations dated on or before date.
	ListActive(ctx context.Context, onOrBefore string) ([]*Reservation, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var reservationColumns = []string{
	"r.id", "r.field_id", "r.player_id", "r.owner_id",
	"to_char(r.date, 'YYYY-MM-DD')", "r.start_time::text", "r.end_time::text",
	"r.total_price::float8", "r.status", "r.created_at", "r.updated_at",
}

func scanReservation(row pgx.Row, extra ...any) (*Reservation, error) {
	var res Reservation
	dest := []any{
		&res.ID, &res.FieldID, &res.PlayerID, &res.OwnerID,
		&res.Date, &res.StartTime, &res.EndTime,
		&res.TotalPrice, &res.Status, &res.CreatedAt, &res.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if v, err := daytime.NormalizeClock(res.StartTime); err == nil {
		res.StartTime = v
	}
	if v, err := daytime.NormalizeClock(res.EndTime); err == nil {
		res.EndTime = v
	}
	return &res, nil
}

// mapWriteError turns the live-slot unique index and the overlap exclusion
// constraint into ErrSlotConflict.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation, pgerrcode.ExclusionViolation:
			return ErrSlotConflict
		case pgerrcode.ForeignKeyViolation:
			return ErrFieldNotFound
		}
	}
	return err
}

func (r *pgxRepository) Create(ctx context.Context, res *Reservation) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.reservations").
		Columns("field_id", "player_id", "owner_id", "date", "start_time", "end_time", "total_price", "status").
		Values(res.FieldID, res.PlayerID, res.OwnerID, res.Date, res.StartTime, res.EndTime, res.TotalPrice, res.Status).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create reservation query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt); err != nil {
		if mapped := mapWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("create reservation failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Reservation, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(reservationColumns...).
		From("public.reservations r").
		Where(squirrel.Eq{"r.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get reservation query failed: %w", err)
	}

	res, err := scanReservation(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get reservation failed: %w", err)
	}
	return res, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(append(reservationColumns, "count(*) OVER() as total_count")...).
		From("public.reservations r")

	if filter.FieldID != "" {
		query = query.Where(squirrel.Eq{"r.field_id": filter.FieldID})
	}
	if filter.PlayerID != "" {
		query = query.Where(squirrel.Eq{"r.player_id": filter.PlayerID})
	}
	if filter.OwnerID != "" {
		query = query.Where(squirrel.Eq{"r.owner_id": filter.OwnerID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"r.status": filter.Status})
	}
	if filter.DateFrom != "" {
		query = query.Where(squirrel.GtOrEq{"r.date": filter.DateFrom})
	}
	if filter.DateTo != "" {
		query = query.Where(squirrel.LtOrEq{"r.date": filter.DateTo})
	}

	orderBy := "r.date"
	if filter.SortBy != "" {
		orderBy = "r." + filter.SortBy
	}
	orderDir := "DESC"
	if filter.SortOrder == "ASC" || filter.SortOrder == "asc" {
		orderDir = "ASC"
	}
	query = query.OrderBy(orderBy+" "+orderDir, "r.start_time "+orderDir)

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
		return nil, 0, fmt.Errorf("build list reservations query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reservations failed: %w", err)
	}
	defer rows.Close()

	var out []*Reservation
	var total int
	for rows.Next() {
		res, err := scanReservation(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan reservation failed: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate reservations failed: %w", err)
	}
	return out, total, nil
}

func (r *pgxRepository) ListByFieldDate(ctx context.Context, fieldID, date string) ([]*Reservation, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(reservationColumns...).
		From("public.reservations r").
		Where(squirrel.Eq{"r.field_id": fieldID, "r.date": date}).
		OrderBy("r.start_time ASC", "r.created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list field reservations query failed: %w", err)
	}
	return r.queryAll(ctx, query, args)
}

func (r *pgxRepository) HasOverlap(ctx context.Context, fieldID, date, start, end, excludeID string) (bool, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	q := psql.Select("1").
		From("public.reservations").
		Where(squirrel.Eq{"field_id": fieldID, "date": date}).
		Where(squirrel.NotEq{"status": StatusCancelled}).
		Where(squirrel.Lt{"start_time": end}).
		Where(squirrel.Gt{"end_time": start})
	if excludeID != "" {
		q = q.Where(squirrel.NotEq{"id": excludeID})
	}

	query, args, err := q.Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return false, fmt.Errorf("build overlap query failed: %w", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check overlap failed: %w", err)
	}
	return exists, nil
}

func (r *pgxRepository) UpdateSchedule(ctx context.Context, res *Reservation) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.reservations").
		Set("date", res.Date).
		Set("start_time", res.StartTime).
		Set("end_time", res.EndTime).
		Set("total_price", res.TotalPrice).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": res.ID, "status": StatusActive}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update reservation query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&res.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidTransition
		}
		if mapped := mapWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("update reservation failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Transition(ctx context.Context, id string, from, to Status) (*Reservation, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.reservations r").
		Set("status", to).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"r.id": id, "r.status": from}).
		Suffix("RETURNING " + strings.Join(reservationColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build transition reservation query failed: %w", err)
	}

	res, err := scanReservation(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a missing row from one in another status.
			if _, getErr := r.GetByID(ctx, id); errors.Is(getErr, ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, ErrInvalidTransition
		}
		if mapped := mapWriteError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("transition reservation failed: %w", err)
	}
	return res, nil
}

func (r *pgxRepository) ListActive(ctx context.Context, onOrBefore string) ([]*Reservation, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(reservationColumns...).
		From("public.reservations r").
		Where(squirrel.Eq{"r.status": StatusActive}).
		Where(squirrel.LtOrEq{"r.date": onOrBefore}).
		OrderBy("r.date ASC", "r.end_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list active reservations query failed: %w", err)
	}
	return r.queryAll(ctx, query, args)
}

func (r *pgxRepository) queryAll(ctx context.Context, query string, args []any) ([]*Reservation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations failed: %w", err)
	}
	defer rows.Close()

	var out []*Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation failed: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservations failed: %w", err)
	}
	return out, nil
}
