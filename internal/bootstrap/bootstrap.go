package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/yigit/classroom/internal/app/controllers"
	appMigrations "github.com/yigit/classroom/internal/app/migrations"
	appRepos "github.com/yigit/classroom/internal/app/repositories"
	appRoutes "github.com/yigit/classroom/internal/app/routes"
	appServices "github.com/yigit/classroom/internal/app/services"
	"github.com/yigit/classroom/internal/config"
	"github.com/yigit/classroom/internal/db"
	appMiddleware "github.com/yigit/classroom/internal/middleware"
	pkgAuth "github.com/yigit/classroom/internal/pkg/auth"
	"github.com/yigit/classroom/internal/pkg/cache"
	"github.com/yigit/classroom/internal/pkg/googleclassroom"
	"github.com/yigit/classroom/internal/pkg/helpers"
	"github.com/yigit/classroom/internal/pkg/logger"
	"github.com/yigit/classroom/internal/pkg/reporting"
	"github.com/yigit/classroom/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos                      *appRepos.Repositories
	Services                   *appServices.Services
	JWTService                 *pkgAuth.JWTService
	CourseCache                *cache.RedisCache
	RosterController           *appControllers.RosterController
	AssignmentRosterController *appControllers.AssignmentRosterController
	GoogleClassroomController  *appControllers.GoogleClassroomController
	AuthMiddleware             *appMiddleware.AuthMiddleware
	OrganizationMiddleware     *appMiddleware.OrganizationMiddleware
	Logger                     zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger and
// error reporting. CONFIG_PATH overrides configs/config.yaml.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := config.GetEnv("CONFIG_PATH", filepath.Join("configs", "config.yaml"))
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	reporting.Configure(reporting.Config{
		Token:       cfg.Rollbar.Token,
		Environment: cfg.Rollbar.Environment,
		CodeVersion: cfg.Rollbar.CodeVersion,
	})
	if reporting.Enabled() {
		logger.AddHook(reporting.Hook{})
	}

	lgr := log.Logger
	lgr.Info().
		Str("logLevel", string(logLevel)).
		Str("logFormat", cfg.Logging.Format).
		Bool("rollbar", reporting.Enabled()).
		Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool
	lgr.Info().Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(dbPool, lgr)

	migrationsDir := cfg.Database.MigrationsDir
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		dbPool.Close()
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := migrator.MigrateFromDirectory(ctx, migrationsDir); err != nil {
		dbPool.Close()
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	lgr.Info().Msg("Database migrations successfully applied.")
	return dbPool, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(dbPool)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 12*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	deps.CourseCache = cache.NewRedisCache(context.Background(), "google_courses", cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	serviceDeps := appServices.Dependencies{
		StateSigner:    deps.JWTService,
		CourseCache:    deps.CourseCache,
		CourseCacheTTL: helpers.ParseDuration(cfg.Google.CourseCacheTTL, 5*time.Minute),
	}
	if cfg.Features.GoogleClassroom {
		serviceDeps.GoogleClient = googleclassroom.NewClient(googleclassroom.Config{
			ClientID:        cfg.Google.ClientID,
			ClientSecret:    cfg.Google.ClientSecret,
			RedirectURL:     cfg.Google.RedirectURL,
			ApplicationName: cfg.Google.ApplicationName,
		})
		lgr.Info().Msg("Google Classroom import enabled")
	}

	deps.Services = appServices.NewServices(deps.Repos, serviceDeps)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)
	deps.OrganizationMiddleware = appMiddleware.NewOrganizationMiddleware(deps.Repos.OrganizationRepository)

	deps.RosterController = appControllers.NewRosterController(deps.Services.Roster)
	deps.AssignmentRosterController = appControllers.NewAssignmentRosterController(deps.Services.AssignmentRoster)
	deps.GoogleClassroomController = appControllers.NewGoogleClassroomController(deps.Services.GoogleClassroom)

	if cfg.Seed.Demo {
		seedDemoData(deps, lgr)
	}

	return deps, nil
}

// seedDemoData creates the demo organization and logs a token for its instructor
func seedDemoData(deps *Dependencies, lgr zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	instructor, err := seed.CreateDemoData(ctx, deps.Repos, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to create demo data, proceeding anyway...")
	}
	if instructor == nil {
		return
	}

	token, _, err := deps.JWTService.GenerateAccessToken(instructor)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to create demo access token")
		return
	}
	lgr.Info().
		Str("organization", seed.DemoOrganizationSlug).
		Str("accessToken", token).
		Msg("Demo instructor ready")
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	if err := appMiddleware.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	router := gin.New()
	router.Use(
		appMiddleware.RequestLogger(),
		appMiddleware.Recovery(),
		appMiddleware.Metrics(),
	)

	appRoutes.SetupRouter(router,
		appRoutes.Controllers{
			Roster:           deps.RosterController,
			AssignmentRoster: deps.AssignmentRosterController,
			GoogleClassroom:  deps.GoogleClassroomController,
		},
		deps.AuthMiddleware,
		deps.OrganizationMiddleware,
		appRoutes.Features{
			StudentIdentifiers: cfg.Features.StudentIdentifiers,
			GoogleClassroom:    cfg.Features.GoogleClassroom,
		},
	)

	return router, nil
}
