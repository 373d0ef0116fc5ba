package app

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nekogravitycat/field-booking-backend/internal/api"
	"github.com/nekogravitycat/field-booking-backend/internal/auth"
	"github.com/nekogravitycat/field-booking-backend/internal/clock"
	"github.com/nekogravitycat/field-booking-backend/internal/events"
	"github.com/nekogravitycat/field-booking-backend/internal/field"
	"github.com/nekogravitycat/field-booking-backend/internal/media"
	"github.com/nekogravitycat/field-booking-backend/internal/pkg/storage"
	"github.com/nekogravitycat/field-booking-backend/internal/reservation"
	"github.com/nekogravitycat/field-booking-backend/internal/sweep"
	"github.com/nekogravitycat/field-booking-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  []string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTTTL       time.Duration
	BcryptCost   int

	Location        *time.Location
	SlotGranularity time.Duration
	EditWindow      time.Duration

	CompletionSweepInterval time.Duration
	RetentionSweepInterval  time.Duration
	RetentionWindow         time.Duration

	StoragePath string
	Publisher   events.Publisher
	Logger      *zap.Logger
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager

	// Sweepers are keyed by job: "completion" and "retention".
	Sweepers map[string]sweep.Runner
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) (*Container, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.Nop{}
	}

	// Init Components
	clk := clock.New(cfg.Location)
	passwordHasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	// User Module
	userRepo := user.NewPgxRepository(cfg.DBPool)
	userService := user.NewService(userRepo, passwordHasher, clk, logger.Named("user"))

	// Field Module
	fieldRepo := field.NewPgxRepository(cfg.DBPool)
	fieldService := field.NewService(fieldRepo)

	// Reservation Module
	reservationRepo := reservation.NewPgxRepository(cfg.DBPool)
	reservationService := reservation.NewService(reservationRepo, fieldService, clk,
		reservation.WithPublisher(publisher),
		reservation.WithLogger(logger.Named("reservation")),
		reservation.WithEditWindow(cfg.EditWindow),
		reservation.WithGranularity(cfg.SlotGranularity),
	)

	// Media Module
	mediaRepo := media.NewRepository(cfg.DBPool)
	mediaService := media.NewService(mediaRepo, fieldService, store, clk, logger.Named("media"))

	// Background sweeps
	sweepLogger := logger.Named("sweep")
	completion := sweep.New[*reservation.Reservation](
		reservation.NewCompletionJob(reservationRepo, publisher, sweepLogger),
		cfg.CompletionSweepInterval, clk.Now, sweepLogger,
	)
	retention := sweep.New[*user.User](
		user.NewRetentionJob(userRepo, cfg.RetentionWindow, store, publisher, sweepLogger),
		cfg.RetentionSweepInterval, clk.Now, sweepLogger,
	)

	// Router
	router := api.NewRouter(api.Config{
		IsProduction:       cfg.IsProduction,
		ProdOrigins:        cfg.ProdOrigins,
		Logger:             logger.Named("http"),
		UserService:        userService,
		FieldService:       fieldService,
		ReservationService: reservationService,
		MediaService:       mediaService,
		JWTManager:         jwtManager,
	})

	return &Container{
		Router:     router,
		JWTManager: jwtManager,
		Sweepers: map[string]sweep.Runner{
			"completion": completion,
			"retention":  retention,
		},
	}, nil
}
