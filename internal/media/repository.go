package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, img *Image) error
	GetByID(ctx context.Context, id string) (*Image, error)
	ListByField(ctx context.Context, fieldID string) ([]*Image, error)
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

var imageColumns = []string{
	"id", "field_id", "uploaded_by", "filename", "storage_path", "thumbnail_path", "content_type", "size", "created_at",
}

func scanImage(row pgx.Row) (*Image, error) {
	img := &Image{}
	err := row.Scan(
		&img.ID,
		&img.FieldID,
		&img.UploadedBy,
		&img.Filename,
		&img.StoragePath,
		&img.ThumbnailPath,
		&img.ContentType,
		&img.Size,
		&img.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (r *repository) Create(ctx context.Context, img *Image) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.field_images").
		Columns(imageColumns...).
		Values(img.ID, img.FieldID, img.UploadedBy, img.Filename, img.StoragePath, img.ThumbnailPath, img.ContentType, img.Size, img.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create image record: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Image, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(imageColumns...).
		From("public.field_images").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	img, err := scanImage(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return img, nil
}

func (r *repository) ListByField(ctx context.Context, fieldID string) ([]*Image, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(imageColumns...).
		From("public.field_images").
		Where(squirrel.Eq{"field_id": fieldID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	var images []*Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func (r *repository) Delete(ctx context.Context, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.field_images").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete image record: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
