package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"pdfsearch/internal/archive"
	"pdfsearch/internal/hooks"
	"pdfsearch/internal/pdfsearch"
	"pdfsearch/internal/queue"
	"pdfsearch/internal/services/health"
	"pdfsearch/internal/shared/config"
	"pdfsearch/internal/shared/server"
	"pdfsearch/internal/shared/storage/db"
	"pdfsearch/internal/shared/storage/object"
	localstore "pdfsearch/internal/shared/storage/object/local"
	s3store "pdfsearch/internal/shared/storage/object/s3"
	"pdfsearch/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Store     archive.Store
	Files     object.ObjectStore
	Queue     queue.Client
	Hooks     *hooks.Registry
	Probe     *pdfsearch.PdftotextExtractor
	Engine    *pdfsearch.Engine
	Lifecycle *pdfsearch.Lifecycle
	Slots     *pdfsearch.SlotResolver
	Triggers  *pdfsearch.Triggers
	Backfill  *pdfsearch.Backfill
	Handler   *pdfsearch.Handler
	Health    *health.Service
}

// Build wires the server or worker process. Lambda runtimes share one pool per container.
func Build(cfg config.Config) (*App, error) {
	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	if db.IsLambdaRuntime() {
		opts = db.OptionsFromEnv(db.DefaultLambdaOptions())
	}
	return build(context.Background(), cfg, opts)
}

// BuildCLI wires a one-shot operator process with a small pool.
func BuildCLI(ctx context.Context, cfg config.Config) (*App, error) {
	return build(ctx, cfg, db.OptionsFromEnv(db.DefaultCLIOptions()))
}

func build(ctx context.Context, cfg config.Config, opts db.Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	telemetry.Configure(nil, cfg.LogLevel, cfg.LogFormat)

	sqlDB, err := buildDB(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}

	files, err := buildFiles(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Files:  files,
		Queue:  queueClient,
		Hooks:  hooks.NewRegistry(),
	}
	if sqlDB != nil {
		app.Store = &archive.PGStore{DB: sqlDB}
	} else {
		app.Store = archive.NewMemoryStore()
	}

	buildPDFSearch(app)

	if sqlDB != nil {
		app.Health = health.NewService(sqlDB, app.Probe)
	} else {
		app.Health = health.NewService(nil, app.Probe)
	}
	app.Router = server.NewRouter(app.Health, app.Handler)

	return app, nil
}

func buildPDFSearch(app *App) {
	cfg := app.Config
	probe := pdfsearch.NewPdftotextExtractor(cfg.ExtractorBin, cfg.ExtractTimeout)
	var extractor pdfsearch.Extractor = probe
	if cfg.Fallback {
		extractor = pdfsearch.FallbackExtractor{Primary: probe, Secondary: pdfsearch.LibExtractor{}}
	}

	app.Probe = probe
	app.Engine = &pdfsearch.Engine{
		Store:      app.Store,
		Files:      app.Files,
		Classifier: pdfsearch.NewMimeClassifier(cfg.ExtraMimeTypes...),
		Extractor:  extractor,
	}
	app.Slots = &pdfsearch.SlotResolver{}
	app.Lifecycle = &pdfsearch.Lifecycle{Store: app.Store, Probe: probe, Slots: app.Slots}
	app.Slots.Source = app.Lifecycle
	app.Triggers = &pdfsearch.Triggers{Engine: app.Engine, Slots: app.Slots}
	app.Backfill = &pdfsearch.Backfill{Engine: app.Engine, Slots: app.Slots}
	app.Triggers.Register(app.Hooks, app.Lifecycle)
	app.Handler = &pdfsearch.Handler{
		Hooks:    app.Hooks,
		Engine:   app.Engine,
		Backfill: app.Backfill,
		Slots:    app.Slots,
		Queue:    app.Queue,
	}
}

// Close releases the database pool, if any.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config, opts db.Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory archive store")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory archive store: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildFiles(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.FilesDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.QueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.QueueURL, cfg.AWSRegion)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
