package field

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	seq  int
	rows map[string]*Field
}

func newMemRepo() *memRepo { return &memRepo{rows: map[string]*Field{}} }

func (m *memRepo) Create(_ context.Context, f *Field) error {
	m.seq++
	f.ID = fmt.Sprintf("field-%d", m.seq)
	f.CreatedAt, f.UpdatedAt = time.Now(), time.Now()
	cp := *f
	m.rows[f.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Field, error) {
	f, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, filter Filter) ([]*Field, int, error) {
	var out []*Field
	for _, f := range m.rows {
		if filter.OwnerID == "" || f.OwnerID == filter.OwnerID {
			out = append(out, f)
		}
	}
	return out, len(out), nil
}

func (m *memRepo) Update(_ context.Context, f *Field) error {
	if _, ok := m.rows[f.ID]; !ok {
		return ErrNotFound
	}
	cp := *f
	m.rows[f.ID] = &cp
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.rows[id]; !ok {
		return ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memRepo) SetCoverImage(_ context.Context, id string, imageID *string) error {
	f, ok := m.rows[id]
	if !ok {
		return ErrNotFound
	}
	f.CoverImageID = imageID
	return nil
}

func validCreate() CreateRequest {
	return CreateRequest{
		OwnerID:    "owner-1",
		Name:       " Riverside Pitch ",
		OpenTime:   "08:00:00",
		CloseTime:  "22:00",
		Pricing:    100,
		ClosedDays: []string{"Monday", "sunday", "monday"},
	}
}

func TestCreateNormalizes(t *testing.T) {
	svc := NewService(newMemRepo())

	f, err := svc.Create(context.Background(), validCreate())
	require.NoError(t, err)

	assert.Equal(t, "Riverside Pitch", f.Name)
	assert.Equal(t, "08:00", f.OpenTime)
	assert.Equal(t, "22:00", f.CloseTime)
	assert.ElementsMatch(t, []string{"monday", "sunday"}, f.ClosedDays)
	assert.True(t, f.IsClosedOn(time.Monday))
	assert.False(t, f.IsClosedOn(time.Tuesday))
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*CreateRequest)
		want error
	}{
		{"no owner", func(r *CreateRequest) { r.OwnerID = "" }, ErrOwnerRequired},
		{"blank name", func(r *CreateRequest) { r.Name = "  " }, ErrNameRequired},
		{"free field", func(r *CreateRequest) { r.Pricing = 0 }, ErrInvalidPricing},
		{"open after close", func(r *CreateRequest) { r.OpenTime, r.CloseTime = "22:00", "08:00" }, ErrInvalidOpeningHours},
		{"same open and close", func(r *CreateRequest) { r.CloseTime = "08:00" }, ErrInvalidOpeningHours},
		{"malformed hours", func(r *CreateRequest) { r.OpenTime = "8 o'clock" }, ErrInvalidOpeningHours},
		{"unknown weekday", func(r *CreateRequest) { r.ClosedDays = []string{"someday"} }, ErrInvalidClosedDay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreate()
			tt.mut(&req)
			_, err := NewService(newMemRepo()).Create(context.Background(), req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUpdateAndDeletePermissions(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := NewService(repo)

	f, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)

	price := 120.0
	_, err = svc.Update(ctx, f.ID, UpdateRequest{Pricing: &price}, "owner-2", false)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	updated, err := svc.Update(ctx, f.ID, UpdateRequest{Pricing: &price}, "owner-1", false)
	require.NoError(t, err)
	assert.Equal(t, 120.0, updated.Pricing)

	closeTime := "07:00"
	_, err = svc.Update(ctx, f.ID, UpdateRequest{CloseTime: &closeTime}, "admin", true)
	assert.ErrorIs(t, err, ErrInvalidOpeningHours)

	assert.ErrorIs(t, svc.Delete(ctx, f.ID, "owner-2", false), ErrPermissionDenied)
	require.NoError(t, svc.Delete(ctx, f.ID, "admin", true))

	_, err = svc.GetByID(ctx, f.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetCoverImage(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := NewService(repo)

	f, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)

	img := "img-1"
	assert.ErrorIs(t, svc.SetCoverImage(ctx, f.ID, &img, "owner-2", false), ErrPermissionDenied)
	require.NoError(t, svc.SetCoverImage(ctx, f.ID, &img, "owner-1", false))

	got, err := svc.GetByID(ctx, f.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CoverImageID)
	assert.Equal(t, "img-1", *got.CoverImageID)
}
