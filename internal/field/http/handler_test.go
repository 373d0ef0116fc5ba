package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/field-booking-backend/internal/auth"
	"github.com/nekogravitycat/field-booking-backend/internal/field"
)

const (
	fieldID = "3f1c9a52-5d1e-4b8e-9a63-0a5d5c1f7e21"
	ownerID = "8c1d2e3f-4a5b-4c6d-8e7f-9a0b1c2d3e4f"
	otherID = "5e6f7a8b-9c0d-4e1f-8a2b-3c4d5e6f7a8b"
)

type stubService struct {
	field.Service
	lastCreate field.CreateRequest
}

func (s *stubService) Create(_ context.Context, req field.CreateRequest) (*field.Field, error) {
	s.lastCreate = req
	return &field.Field{ID: fieldID, OwnerID: req.OwnerID, Name: req.Name, OpenTime: req.OpenTime, CloseTime: req.CloseTime, Pricing: req.Pricing}, nil
}

func (s *stubService) GetByID(_ context.Context, id string) (*field.Field, error) {
	if id != fieldID {
		return nil, field.ErrNotFound
	}
	return &field.Field{ID: fieldID, OwnerID: ownerID, Name: "Pitch", OpenTime: "08:00", CloseTime: "22:00", Pricing: 100}, nil
}

func (s *stubService) Delete(_ context.Context, id, actorID string, isAdmin bool) error {
	if !isAdmin && actorID != ownerID {
		return field.ErrPermissionDenied
	}
	return nil
}

func setup(t *testing.T, svc *stubService) (*gin.Engine, func(string, auth.Role) string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwtManager := auth.NewJWTManager("test-secret", time.Minute)

	r := gin.New()
	RegisterRoutes(r.Group("/v1"), NewHandler(svc), auth.AuthRequired(jwtManager))

	token := func(userID string, role auth.Role) string {
		tok, err := jwtManager.GenerateAccessToken(userID, role)
		require.NoError(t, err)
		return "Bearer " + tok
	}
	return r, token
}

func do(r *gin.Engine, method, path, bearer string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateFieldOwnerAssignment(t *testing.T) {
	svc := &stubService{}
	r, token := setup(t, svc)
	body := CreateFieldRequest{OwnerID: otherID, Name: "Pitch", OpenTime: "08:00", CloseTime: "22:00", Pricing: 100}

	w := do(r, http.MethodPost, "/v1/fields", token(ownerID, auth.RoleOwner), body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, ownerID, svc.lastCreate.OwnerID, "owners always create for themselves")

	w = do(r, http.MethodPost, "/v1/fields", token("admin-1", auth.RoleAdmin), body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, otherID, svc.lastCreate.OwnerID, "admins may create on behalf of an owner")

	w = do(r, http.MethodPost, "/v1/fields", token("player-1", auth.RolePlayer), body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPost, "/v1/fields", token(ownerID, auth.RoleOwner), map[string]any{"name": "Pitch"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetFieldIsPublic(t *testing.T) {
	r, _ := setup(t, &stubService{})

	w := do(r, http.MethodGet, "/v1/fields/"+fieldID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp FieldResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Pitch", resp.Name)
	assert.Equal(t, []string{}, resp.ClosedDays)

	w = do(r, http.MethodGet, "/v1/fields/"+otherID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/v1/fields/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteFieldPermission(t *testing.T) {
	r, token := setup(t, &stubService{})

	w := do(r, http.MethodDelete, "/v1/fields/"+fieldID, token(otherID, auth.RoleOwner), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodDelete, "/v1/fields/"+fieldID, token(ownerID, auth.RoleOwner), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
