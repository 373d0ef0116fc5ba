package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nekogravitycat/field-booking-backend/internal/auth"
	"github.com/nekogravitycat/field-booking-backend/internal/field"
	fieldHttp "github.com/nekogravitycat/field-booking-backend/internal/field/http"
	"github.com/nekogravitycat/field-booking-backend/internal/media"
	mediaHttp "github.com/nekogravitycat/field-booking-backend/internal/media/http"
	"github.com/nekogravitycat/field-booking-backend/internal/reservation"
	reservationHttp "github.com/nekogravitycat/field-booking-backend/internal/reservation/http"
	"github.com/nekogravitycat/field-booking-backend/internal/user"
	userHttp "github.com/nekogravitycat/field-booking-backend/internal/user/http"
)

// Config carries the services the router exposes.
type Config struct {
	IsProduction       bool
	ProdOrigins        []string
	Logger             *zap.Logger
	UserService        user.Service
	FieldService       field.Service
	ReservationService reservation.Service
	MediaService       media.Service
	JWTManager         *auth.JWTManager
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.MaxMultipartMemory = media.MaxUploadBytes
	r.Use(RequestLogger(logger), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction {
		corsConfig.AllowOrigins = cfg.ProdOrigins
	} else {
		corsConfig.AllowOrigins = []string{
			"http://localhost:3000", // Frontend dev server
			"http://localhost:8081", // Swagger
		}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)
	// adminMiddleware: Checks the stored account is an active admin.
	adminMiddleware := RequireAdmin(cfg.UserService)

	userHandler := userHttp.NewHandler(cfg.UserService, cfg.JWTManager)
	fieldHandler := fieldHttp.NewHandler(cfg.FieldService)
	reservationHandler := reservationHttp.NewHandler(cfg.ReservationService)
	mediaHandler := mediaHttp.NewHandler(cfg.MediaService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware, adminMiddleware)
		fieldHttp.RegisterRoutes(v1, fieldHandler, authMiddleware)
		reservationHttp.RegisterRoutes(v1, reservationHandler, authMiddleware)
		mediaHttp.RegisterRoutes(v1, mediaHandler, authMiddleware)
	}

	return r
}
