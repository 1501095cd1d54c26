package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/school-management/internal"
	"github.com/frahmantamala/school-management/internal/auth"
	authPostgres "github.com/frahmantamala/school-management/internal/auth/postgres"
	"github.com/frahmantamala/school-management/internal/core/events"
	"github.com/frahmantamala/school-management/internal/observability"
	"github.com/frahmantamala/school-management/internal/permission"
	permissionPostgres "github.com/frahmantamala/school-management/internal/permission/postgres"
	"github.com/frahmantamala/school-management/internal/student"
	studentPostgres "github.com/frahmantamala/school-management/internal/student/postgres"
	"github.com/frahmantamala/school-management/internal/translation"
	"github.com/frahmantamala/school-management/internal/transport/middleware"
	"github.com/frahmantamala/school-management/internal/transport/rest"
	"github.com/frahmantamala/school-management/internal/user"
	userPostgres "github.com/frahmantamala/school-management/internal/user/postgres"
	"github.com/frahmantamala/school-management/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config       *internal.Config
	DB           *sqlx.DB
	Gorm         *gorm.DB
	Redis        *redis.Client
	Bus          *events.EventBus
	Metrics      *observability.Metrics
	Translations *translationStack
	Router       *chi.Mux
	Logger       *slog.Logger
}

func startHTTPServer() {
	ctx := context.Background()
	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		deps.close()
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.close()
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

// close waits for in-flight cache invalidations before dropping the connections they use.
func (d *Dependencies) close() {
	d.Bus.Drain()
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger

	permRepo := permissionPostgres.NewPermissionRepository(deps.Gorm)
	evaluator := permission.NewEvaluator(permRepo, lg,
		permission.WithExpiryEnforcement(cfg.Authorization.EnforceAssignmentExpiry),
		permission.WithMetrics(deps.Metrics),
	)
	perms := middleware.NewPermissions(evaluator, lg,
		middleware.HideUnauthorizedResources(cfg.Authorization.HideUnauthorizedResources),
	)

	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authPostgres.NewRepository(deps.Gorm), tokens, cfg.Security.BCryptCost, lg)
	userService := user.NewService(userPostgres.NewUserRepository(deps.Gorm), evaluator, lg)
	studentService := student.NewService(studentPostgres.NewStudentRepository(deps.Gorm), evaluator, lg)
	permissionService := permission.NewService(permRepo, lg)

	t := deps.Translations
	return rest.RegisterAllRoutes(deps.Router, rest.Dependencies{
		DB:          deps.DB.DB,
		Redis:       deps.Redis,
		Permissions: perms,
		Metrics:     deps.Metrics,
		Handlers: rest.Handlers{
			Auth:        auth.NewHandler(authService, lg),
			User:        user.NewHandler(userService, lg),
			Permission:  permission.NewHandler(permissionService, lg),
			Student:     student.NewHandler(studentService, lg),
			Translation: translation.NewHandler(t.Service, t.Publisher, t.CMS, lg),
		},
		MetricsEnabled:   cfg.Observability.Metrics.Enabled,
		MetricsPath:      cfg.Observability.Metrics.Path,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		PublishRateLimit: cfg.Translations.PublishRateLimit,
		Logger:           lg,
	})
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	gdb, err := openGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	var redisClient *redis.Client
	if config.Redis.Enabled {
		redisClient, err = translation.NewRedisClient(ctx, config.Redis.Addr, config.Redis.Password, config.Redis.DB)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	var metrics *observability.Metrics
	if config.Observability.Metrics.Enabled {
		metrics = observability.NewMetrics()
	}

	bus := events.NewEventBus(lg)
	stack, err := newTranslationStack(ctx, config, db, gdb, redisClient, bus, metrics, lg)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		_ = db.Close()
		return nil, err
	}

	return &Dependencies{
		Config:       config,
		DB:           db,
		Gorm:         gdb,
		Redis:        redisClient,
		Bus:          bus,
		Metrics:      metrics,
		Translations: stack,
		Router:       chi.NewRouter(),
		Logger:       lg,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// openGorm shares the sqlx pool with gorm so both see the same connection limits.
func openGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
}
