package user

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/field-booking-backend/internal/auth"
)

// Repository defines methods for accessing user data from storage.
type Repository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, u *User) error
	UpdateLastLogin(ctx context.Context, id string, t time.Time) error
	List(ctx context.Context, filter UserFilter) ([]*User, int, error)
	UpdateDisplayName(ctx context.Context, id string, displayName *string) error
	SetRole(ctx context.Context, id string, role auth.Role) error
	// SetActive toggles the account. deactivatedAt is stored as given and
	// must be nil when active is true.
	SetActive(ctx context.Context, id string, active bool, deactivatedAt *time.Time) error

	// ListPurgeable returns accounts deactivated strictly before cutoff.
	ListPurgeable(ctx context.Context, cutoff time.Time) ([]*User, error)
	// Purge deletes the account and everything it owns in one transaction.
	// It re-checks eligibility against cutoff under a row lock.
	Purge(ctx context.Context, id string, cutoff time.Time) (PurgeResult, error)
}

type pgxUserRepository struct {
	pool *pgxpool.Pool
}

// NewPgxRepository creates a new Repository implementation using pgxpool.
func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxUserRepository{
		pool: pool,
	}
}

const userColumns = `
	u.id,
	u.email,
	u.password_hash,
	u.display_name,
	u.role,
	u.is_active,
	u.deactivated_at,
	u.created_at,
	u.last_login_at`

func scanUser(row pgx.Row, extra ...any) (*User, error) {
	var u User
	dest := []any{
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.DisplayName,
		&u.Role,
		&u.IsActive,
		&u.DeactivatedAt,
		&u.CreatedAt,
		&u.LastLoginAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *pgxUserRepository) getOne(ctx context.Context, where string, arg any) (*User, error) {
	query := `SELECT` + userColumns + ` FROM public.users u WHERE ` + where

	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user query failed: %w", err)
	}
	return u, nil
}

func (r *pgxUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, "u.email = $1", email)
}

func (r *pgxUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, "u.id = $1", id)
}

func (r *pgxUserRepository) Create(ctx context.Context, u *User) error {
	const query = `
		INSERT INTO public.users (email, password_hash, display_name, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	if err := r.pool.QueryRow(
		ctx,
		query,
		u.Email,
		u.PasswordHash,
		u.DisplayName,
		u.Role,
		u.IsActive,
	).Scan(&u.ID, &u.CreatedAt); err != nil {
		var e *pgconn.PgError
		if errors.As(err, &e) && e.Code == pgerrcode.UniqueViolation {
			return ErrEmailAlreadyUsed
		}
		return fmt.Errorf("create user failed: %w", err)
	}

	return nil
}

func (r *pgxUserRepository) UpdateLastLogin(ctx context.Context, id string, t time.Time) error {
	const query = `
		UPDATE public.users
		SET last_login_at = $1
		WHERE id = $2
	`
	return r.execOne(ctx, "update last login", query, t, id)
}

func (r *pgxUserRepository) List(ctx context.Context, filter UserFilter) ([]*User, int, error) {
	var args []any
	queryBuilder := bytes.NewBufferString(`SELECT` + userColumns + `, count(*) OVER() AS total_count
		FROM public.users u
		WHERE 1=1`)

	// Dynamic filtering
	if filter.Email != "" {
		args = append(args, "%"+filter.Email+"%")
		queryBuilder.WriteString(" AND u.email ILIKE $" + strconv.Itoa(len(args)))
	}
	if filter.DisplayName != "" {
		args = append(args, "%"+filter.DisplayName+"%")
		queryBuilder.WriteString(" AND u.display_name ILIKE $" + strconv.Itoa(len(args)))
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		queryBuilder.WriteString(" AND u.role = $" + strconv.Itoa(len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		queryBuilder.WriteString(" AND u.is_active = $" + strconv.Itoa(len(args)))
	}

	// Sorting; SortBy is restricted to known columns by the handler.
	orderBy := "u.created_at"
	if filter.SortBy != "" {
		orderBy = "u." + filter.SortBy
	}
	orderDir := "DESC"
	if filter.SortOrder == "ASC" || filter.SortOrder == "asc" {
		orderDir = "ASC"
	}
	queryBuilder.WriteString(" ORDER BY " + orderBy + " " + orderDir)

	// Pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	args = append(args, filter.PageSize, offset)
	queryBuilder.WriteString(" LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args)))

	rows, err := r.pool.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users failed: %w", err)
	}
	defer rows.Close()

	var users []*User
	var total int
	for rows.Next() {
		u, err := scanUser(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user failed: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate users failed: %w", err)
	}

	return users, total, nil
}

func (r *pgxUserRepository) UpdateDisplayName(ctx context.Context, id string, displayName *string) error {
	const query = `UPDATE public.users SET display_name = $1 WHERE id = $2`
	return r.execOne(ctx, "update display name", query, displayName, id)
}

func (r *pgxUserRepository) SetRole(ctx context.Context, id string, role auth.Role) error {
	const query = `UPDATE public.users SET role = $1 WHERE id = $2`
	return r.execOne(ctx, "set role", query, role, id)
}

func (r *pgxUserRepository) SetActive(ctx context.Context, id string, active bool, deactivatedAt *time.Time) error {
	const query = `UPDATE public.users SET is_active = $1, deactivated_at = $2 WHERE id = $3`
	return r.execOne(ctx, "set active", query, active, deactivatedAt, id)
}

func (r *pgxUserRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxUserRepository) ListPurgeable(ctx context.Context, cutoff time.Time) ([]*User, error) {
	query := `SELECT` + userColumns + `
		FROM public.users u
		WHERE u.is_active = FALSE AND u.deactivated_at < $1
		ORDER BY u.deactivated_at ASC`

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list purgeable users failed: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user failed: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users failed: %w", err)
	}
	return users, nil
}

func (r *pgxUserRepository) Purge(ctx context.Context, id string, cutoff time.Time) (PurgeResult, error) {
	var res PurgeResult

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `
			SELECT id FROM public.users
			WHERE id = $1 AND is_active = FALSE AND deactivated_at < $2
			FOR UPDATE`, id, cutoff).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotPurgeable
			}
			return fmt.Errorf("lock user failed: %w", err)
		}

		// Photo rows have no foreign key; collect their files before deleting.
		rows, err := tx.Query(ctx, `
			DELETE FROM public.field_images
			WHERE uploaded_by = $1
			   OR field_id IN (SELECT id FROM public.fields WHERE owner_id = $1)
			RETURNING storage_path, thumbnail_path`, id)
		if err != nil {
			return fmt.Errorf("delete field images failed: %w", err)
		}
		for rows.Next() {
			var original, thumb string
			if err := rows.Scan(&original, &thumb); err != nil {
				rows.Close()
				return fmt.Errorf("scan field image failed: %w", err)
			}
			res.ImagePaths = append(res.ImagePaths, original, thumb)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate field images failed: %w", err)
		}

		ct, err := tx.Exec(ctx, `
			DELETE FROM public.reservations
			WHERE player_id = $1
			   OR field_id IN (SELECT id FROM public.fields WHERE owner_id = $1)`, id)
		if err != nil {
			return fmt.Errorf("delete reservations failed: %w", err)
		}
		res.Reservations = ct.RowsAffected()

		ct, err = tx.Exec(ctx, `DELETE FROM public.fields WHERE owner_id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete fields failed: %w", err)
		}
		res.Fields = ct.RowsAffected()

		if _, err := tx.Exec(ctx, `DELETE FROM public.users WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete user failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return PurgeResult{}, err
	}
	return res, nil
}
