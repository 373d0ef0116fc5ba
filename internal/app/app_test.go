package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/field-booking-backend/internal/auth"
	"github.com/nekogravitycat/field-booking-backend/internal/db"
	fieldHttp "github.com/nekogravitycat/field-booking-backend/internal/field/http"
	"github.com/nekogravitycat/field-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/field-booking-backend/internal/reservation"
	reservationHttp "github.com/nekogravitycat/field-booking-backend/internal/reservation/http"
	"github.com/nekogravitycat/field-booking-backend/internal/user"
)

// These tests run the full container against PostgreSQL. They are skipped
// unless TEST_DB_DSN points at a disposable database.
var (
	testRouter    *gin.Engine
	testPool      *pgxpool.Pool
	testContainer *Container
)

func TestMain(m *testing.M) {
	// Attempt to load .env from the repository root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Printf("No .env file found or failed to load: %v", err)
	}

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		log.Printf("TEST_DB_DSN not set; skipping database tests")
		os.Exit(0)
	}

	ctx := context.Background()
	var err error
	testPool, err = pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	if err := db.Migrate(ctx, testPool); err != nil {
		log.Fatalf("Unable to migrate database: %v\n", err)
	}

	storageDir, err := os.MkdirTemp("", "field-booking-test")
	if err != nil {
		log.Fatalf("Unable to create storage dir: %v\n", err)
	}

	testContainer, err = NewContainer(Config{
		DBPool:                  testPool,
		JWTSecret:               "integration-secret",
		JWTTTL:                  30 * time.Minute,
		BcryptCost:              4, // Lower cost for testing purposes
		Location:                time.UTC,
		SlotGranularity:         time.Hour,
		EditWindow:              2 * time.Hour,
		CompletionSweepInterval: time.Minute,
		RetentionSweepInterval:  time.Hour,
		RetentionWindow:         30 * 24 * time.Hour,
		StoragePath:             storageDir,
	})
	if err != nil {
		log.Fatalf("Unable to build container: %v\n", err)
	}
	testRouter = testContainer.Router
	gin.SetMode(gin.TestMode)

	exitCode := m.Run()

	testPool.Close()
	_ = os.RemoveAll(storageDir)
	os.Exit(exitCode)
}

func clearTables(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		"TRUNCATE TABLE public.reservations, public.fields, public.field_images, public.users CASCADE")
	require.NoError(t, err)
}

func executeRequest(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req, _ := http.NewRequest(method, path, bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	testRouter.ServeHTTP(w, req)
	return w
}

func createTestUser(t *testing.T, email string, role auth.Role) (*user.User, string) {
	t.Helper()
	hash, err := auth.NewBcryptPasswordHasher(4).Hash("password123")
	require.NoError(t, err)

	u := &user.User{Email: email, PasswordHash: hash, Role: role, IsActive: true}
	require.NoError(t, user.NewPgxRepository(testPool).Create(context.Background(), u))

	token, err := testContainer.JWTManager.GenerateAccessToken(u.ID, role)
	require.NoError(t, err)
	return u, token
}

func createTestField(t *testing.T, ownerToken string) fieldHttp.FieldResponse {
	t.Helper()
	w := executeRequest(http.MethodPost, "/v1/fields", fieldHttp.CreateFieldRequest{
		Name:      "Riverside Pitch",
		Address:   "1 River Road",
		OpenTime:  "08:00",
		CloseTime: "22:00",
		Pricing:   100,
	}, ownerToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var f fieldHttp.FieldResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &f))
	return f
}

func bookBody(fieldID, date, start, end string) reservationHttp.CreateReservationRequest {
	price := 100.0
	return reservationHttp.CreateReservationRequest{
		FieldID: fieldID, Date: date, StartTime: start, EndTime: end, TotalPrice: &price,
	}
}

func TestBookingLifecycle(t *testing.T) {
	clearTables(t)

	_, ownerToken := createTestUser(t, "owner@field.test", auth.RoleOwner)
	player, playerToken := createTestUser(t, "player@field.test", auth.RolePlayer)
	_, otherToken := createTestUser(t, "other@field.test", auth.RolePlayer)
	f := createTestField(t, ownerToken)

	date := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")
	var bookingID string

	t.Run("Book a slot", func(t *testing.T) {
		w := executeRequest(http.MethodPost, "/v1/reservations", bookBody(f.ID, date, "10:00", "11:00"), playerToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var res reservationHttp.ReservationResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, string(reservation.StatusActive), res.Status)
		assert.Equal(t, player.ID, res.PlayerID)
		assert.Equal(t, f.OwnerID, res.OwnerID)
		bookingID = res.ID
	})

	t.Run("Same slot conflicts", func(t *testing.T) {
		w := executeRequest(http.MethodPost, "/v1/reservations", bookBody(f.ID, date, "10:00", "11:00"), otherToken)
		assert.Equal(t, http.StatusConflict, w.Code)

		w = executeRequest(http.MethodPost, "/v1/reservations", bookBody(f.ID, date, "10:30", "11:30"), otherToken)
		assert.Equal(t, http.StatusConflict, w.Code, "partial overlap")
	})

	t.Run("Slot grid shows the booking", func(t *testing.T) {
		w := executeRequest(http.MethodGet, "/v1/fields/"+f.ID+"/slots?date="+date, nil, "")
		require.Equal(t, http.StatusOK, w.Code)

		var slots response.ListResponse[reservationHttp.SlotResponse]
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &slots))
		require.Len(t, slots.Items, 14)
		ten := slots.Items[2]
		assert.Equal(t, "10:00", ten.StartTime)
		assert.False(t, ten.Available)
		assert.Equal(t, bookingID, ten.ReservationID)
		assert.Equal(t, player.ID, ten.OwnerOfBooking)
	})

	t.Run("Owner cancels and the slot reopens", func(t *testing.T) {
		w := executeRequest(http.MethodPatch, "/v1/reservations/"+bookingID+"/cancel", nil, playerToken)
		assert.Equal(t, http.StatusForbidden, w.Code, "players cannot cancel")

		w = executeRequest(http.MethodPatch, "/v1/reservations/"+bookingID+"/cancel", nil, ownerToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = executeRequest(http.MethodPost, "/v1/reservations", bookBody(f.ID, date, "10:00", "11:00"), otherToken)
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})
}

func TestConcurrentBookingsOneWinner(t *testing.T) {
	clearTables(t)

	_, ownerToken := createTestUser(t, "owner@race.test", auth.RoleOwner)
	f := createTestField(t, ownerToken)
	date := time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02")

	tokens := make([]string, 8)
	for i := range tokens {
		_, tokens[i] = createTestUser(t, "p"+string(rune('a'+i))+"@race.test", auth.RolePlayer)
	}

	codes := make([]int, len(tokens))
	var wg sync.WaitGroup
	for i, tok := range tokens {
		wg.Add(1)
		go func(i int, tok string) {
			defer wg.Done()
			codes[i] = executeRequest(http.MethodPost, "/v1/reservations", bookBody(f.ID, date, "18:00", "19:00"), tok).Code
		}(i, tok)
	}
	wg.Wait()

	created := 0
	for _, c := range codes {
		if c == http.StatusCreated {
			created++
		} else {
			assert.Equal(t, http.StatusConflict, c)
		}
	}
	assert.Equal(t, 1, created)
}

func TestSweepsAgainstDatabase(t *testing.T) {
	clearTables(t)
	ctx := context.Background()

	owner, ownerToken := createTestUser(t, "owner@sweep.test", auth.RoleOwner)
	player, _ := createTestUser(t, "player@sweep.test", auth.RolePlayer)
	f := createTestField(t, ownerToken)

	// Past bookings cannot go through the API, so write one directly.
	repo := reservation.NewPgxRepository(testPool)
	past := &reservation.Reservation{
		FieldID: f.ID, PlayerID: player.ID, OwnerID: owner.ID,
		Date:      time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02"),
		StartTime: "10:00", EndTime: "11:00", TotalPrice: 100, Status: reservation.StatusActive,
	}
	require.NoError(t, repo.Create(ctx, past))

	res, err := testContainer.Sweepers["completion"].RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)

	got, err := repo.GetByID(ctx, past.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCompleted, got.Status)

	res, err = testContainer.Sweepers["completion"].RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed, "second pass changes nothing")

	// Deactivated long enough ago, the player is purged with their bookings.
	_, err = testPool.Exec(ctx,
		"UPDATE public.users SET is_active = false, deactivated_at = now() - interval '40 days' WHERE id = $1", player.ID)
	require.NoError(t, err)

	res, err = testContainer.Sweepers["retention"].RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)

	_, err = user.NewPgxRepository(testPool).GetByID(ctx, player.ID)
	assert.ErrorIs(t, err, user.ErrNotFound)
	_, err = repo.GetByID(ctx, past.ID)
	assert.ErrorIs(t, err, reservation.ErrNotFound)
}
