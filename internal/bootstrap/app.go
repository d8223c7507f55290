package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"careerpilot-backend/internal/account"
	"careerpilot-backend/internal/analyses"
	googleauth "careerpilot-backend/internal/auth"
	"careerpilot-backend/internal/documents"
	"careerpilot-backend/internal/interview"
	"careerpilot-backend/internal/jobs"
	"careerpilot-backend/internal/llm"
	"careerpilot-backend/internal/llm/providers"
	"careerpilot-backend/internal/queue"
	"careerpilot-backend/internal/shared/config"
	"careerpilot-backend/internal/shared/server"
	"careerpilot-backend/internal/shared/storage/db"
	"careerpilot-backend/internal/shared/storage/object"
	localstore "careerpilot-backend/internal/shared/storage/object/local"
	s3store "careerpilot-backend/internal/shared/storage/object/s3"
	"careerpilot-backend/internal/shared/telemetry"
	"careerpilot-backend/internal/skillmatch"
	"careerpilot-backend/internal/uploads"
	"careerpilot-backend/internal/users"
)

// Role selects connection pool sizing.
type Role string

const (
	RoleServer Role = "server"
	RoleWorker Role = "worker"
)

// App holds shared dependencies.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Store            object.ObjectStore
	Queue            queue.Client
	LLM              llm.Client
	Analyzer         *skillmatch.Analyzer
	DocumentsService *documents.Service
	AnalysesService  *analyses.Service
	InterviewService *interview.Service
	JobsService      *jobs.Service
	UsersService     *users.Service
	AccountService   *account.Service
}

// Build prepares every service and the HTTP router.
func Build(ctx context.Context, cfg config.Config, role Role) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	sqlDB, err := buildDB(ctx, cfg, role)
	if err != nil {
		return nil, err
	}

	store, presigner, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := providers.New(ctx, cfg)
	if err != nil {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("llm provider: %w", err)
		}
		telemetry.Warn("bootstrap.llm.unavailable", map[string]any{
			"provider": cfg.LLMProvider,
			"error":    err.Error(),
		})
		client = nil
	}

	catalog, err := buildCatalog(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
		LLM:    client,
	}
	app.Analyzer = skillmatch.NewAnalyzer(client, catalog, cfg.StrictMatching)
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config: cfg,
		Ready:  app.ready,
		Handlers: []server.Routes{
			skillmatch.NewHandler(app.Analyzer, !cfg.IsProduction()),
			documents.NewHandler(app.DocumentsService),
			analyses.NewHandler(app.AnalysesService),
			interview.NewHandler(app.InterviewService),
			jobs.NewHandler(app.JobsService),
			users.NewHandler(app.UsersService),
			account.NewHandler(app.AccountService),
			uploads.NewHandler(presigner),
			googleauth.NewGoogleService(
				cfg.GoogleClientID,
				cfg.GoogleClientSecret,
				cfg.GoogleRedirectURL,
				cfg.UIRedirectURL,
				app.UsersService,
			),
		},
	})

	return app, nil
}

// Close releases the database handle.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func (a *App) ready() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Ping()
}

func buildDB(ctx context.Context, cfg config.Config, role Role) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if !cfg.IsProduction() {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	defaults := db.DefaultServerOptions()
	if role == RoleWorker {
		defaults = db.DefaultWorkerOptions()
	}
	sqlDB, err := db.GetSingleton(ctx, cfg.DatabaseURL, db.OptionsFromEnv(defaults))
	if err != nil {
		if !cfg.IsProduction() {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": "connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	if !cfg.IsProduction() {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, uploads.Presigner, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		store, err := s3store.New(ctx, s3store.Options{
			Region:   cfg.AWSRegion,
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			KMSKeyID: cfg.SSEKMSKeyID,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return localstore.New(cfg.LocalStoreDir), nil, nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.SQSQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.SQSQueueURL, cfg.AWSRegion)
}

func buildCatalog(cfg config.Config) (*skillmatch.Catalog, error) {
	if strings.TrimSpace(cfg.SkillsFile) == "" {
		return skillmatch.DefaultCatalog(), nil
	}
	catalog, err := skillmatch.LoadCatalog(cfg.SkillsFile)
	if err != nil {
		return nil, fmt.Errorf("load skills catalog: %w", err)
	}
	return catalog, nil
}

func buildServices(app *App) {
	var (
		docRepo       documents.DocumentsRepo
		analysisRepo  analyses.Repo
		interviewRepo interview.Repo
		jobRepo       jobs.Repo
		userRepo      users.Repo
	)
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		analysisRepo = &analyses.PGRepo{DB: app.DB}
		interviewRepo = &interview.PGRepo{DB: app.DB}
		jobRepo = &jobs.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
		analysisRepo = analyses.NewMemoryRepo()
		interviewRepo = interview.NewMemoryRepo()
		jobRepo = jobs.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
	}

	app.DocumentsService = &documents.Service{
		Store:           app.Store,
		Repo:            docRepo,
		StorageProvider: app.Config.ObjectStoreType,
	}
	app.AnalysesService = &analyses.Service{
		Repo:     analysisRepo,
		Docs:     app.DocumentsService,
		Matcher:  app.Analyzer,
		Queue:    app.Queue,
		Provider: app.Config.LLMProvider,
		Model:    app.Config.LLMModel,
	}
	app.JobsService = jobs.NewService(jobRepo)
	app.InterviewService = interview.NewService(interviewRepo, interview.NewCoach(app.LLM), app.JobsService)
	app.UsersService = users.NewService(userRepo, users.AdminCredentials{
		Email:    app.Config.AdminEmail,
		Password: app.Config.AdminPassword,
	})
	app.AccountService = account.NewService(app.DocumentsService, app.AnalysesService, app.InterviewService)
	app.AccountService.DB = app.DB
}
