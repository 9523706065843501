package router

import (
	"context"
	"fmt"
	"time"

	authsvc "houseform-api/internal/application/auth"
	investsvc "houseform-api/internal/application/investments"
	projectsvc "houseform-api/internal/application/projects"
	snapshotsvc "houseform-api/internal/application/snapshots"
	txsvc "houseform-api/internal/application/transactions"
	"houseform-api/internal/config"
	"houseform-api/internal/domain"
	"houseform-api/internal/infrastructure/chain"
	"houseform-api/internal/infrastructure/database"
	"houseform-api/internal/infrastructure/metadata"
	authhandler "houseform-api/internal/interfaces/handlers/auth"
	healthhandler "houseform-api/internal/interfaces/handlers/health"
	investhandler "houseform-api/internal/interfaces/handlers/investments"
	projecthandler "houseform-api/internal/interfaces/handlers/projects"
	snapshothandler "houseform-api/internal/interfaces/handlers/snapshots"
	txhandler "houseform-api/internal/interfaces/handlers/transactions"
	"houseform-api/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	dialTimeout     = 10 * time.Second
	metadataTimeout = 10 * time.Second
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Deps are the connected backends the routes are built on. DB may be nil,
// in which case relay tracking and snapshot sync are not mounted.
type Deps struct {
	DB       *gorm.DB
	Rdb      *redis.Client
	Chain    *chain.Client
	Metadata projectsvc.MetadataFetcher
}

// Contracts converts the configured network into chain client parameters.
func Contracts(n config.Network) (chain.Contracts, error) {
	manager, err := domain.ParseAddress(n.ManagerAddress)
	if err != nil {
		return chain.Contracts{}, fmt.Errorf("manager contract address for %s: %w", n.Type, err)
	}
	share, err := domain.ParseAddress(n.ShareAddress)
	if err != nil {
		return chain.Contracts{}, fmt.Errorf("share contract address for %s: %w", n.Type, err)
	}
	abiVersion := chain.ABIV2
	if n.ManagerABI == config.ManagerABIV1 {
		abiVersion = chain.ABIV1
	}
	return chain.Contracts{ChainID: n.ChainID, Manager: manager, Share: share, ABIVersion: abiVersion}, nil
}

// CreateApp connects Redis, the chain RPC and (when configured) Postgres, then builds the app.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil, nil, fmt.Errorf("REDIS_URL is required")
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)

	contracts, err := Contracts(cfg.Network)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	client, err := chain.Dial(ctx, cfg.Network.RPCURL, contracts)
	if err != nil {
		return nil, nil, nil, err
	}

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, fmt.Errorf("auto migrate: %w", err)
		}
	} else {
		log.Warn().Msg("no database configured: transaction tracking and snapshot sync disabled")
	}

	app := NewApp(cfg, Deps{
		DB:       db,
		Rdb:      rdb,
		Chain:    client,
		Metadata: metadata.NewFetcher(metadataTimeout),
	})
	return app, db, rdb, nil
}

// NewApp registers middleware and routes on already connected backends.
func NewApp(cfg *config.Config, d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix:  cfg.FrontendURLEndsWith,
		DevPassword:    cfg.DevPassword,
		AllowLocalhost: cfg.Env != "production",
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.Session(d.Rdb))
	app.Use(middleware.HealthMarker(d.Rdb))
	app.Use(middleware.RouteLogger())

	sessionCfg := middleware.SessionConfig{
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}

	hh := &healthhandler.Handlers{Rdb: d.Rdb, Network: string(cfg.Network.Type)}
	if d.Chain != nil {
		hh.Chain = d.Chain
	}
	if d.DB != nil {
		hh.DB = &gormDBPinger{db: d.DB}
	}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", middleware.RequireAdminKey(cfg.HealthAdminKey), hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	ah := &authhandler.Handlers{
		Service: &authsvc.Service{Rdb: d.Rdb},
		Rdb:     d.Rdb,
		Config:  sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Get("/nonce", ah.Nonce)
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	ps := &projectsvc.Service{
		Chain:          d.Chain,
		Metadata:       d.Metadata,
		NativeUSDPrice: cfg.NativeTokenUSDPrice,
		NativeSymbol:   cfg.Network.NativeSymbol,
	}
	ph := &projecthandler.Handlers{Service: ps}
	pg := app.Group("/api/v1/projects")
	pg.Get("/", ph.List)
	pg.Get("/:id", ph.Get)
	pg.Get("/:id/eligibility", ph.Eligibility)

	ih := &investhandler.Handlers{Service: &investsvc.Service{Projects: ps}}
	ug := app.Group("/api/v1/users")
	ug.Get("/:address/projects", ph.ByBuilder)
	ug.Get("/:address/investments", ih.List)

	th := &txhandler.Handlers{Service: &txsvc.Service{DB: d.DB, Chain: d.Chain, TxURL: cfg.Network.TxURL}}
	tg := app.Group("/api/v1/transactions")
	tg.Post("/prepare", middleware.RequireAuth(), th.Prepare)

	if d.DB != nil {
		tg.Post("/submit", middleware.RequireAuth(), th.Submit)
		tg.Get("/", th.List)
		tg.Get("/:hash/wait", th.Wait)

		sh := &snapshothandler.Handlers{Service: &snapshotsvc.Service{DB: d.DB, Projects: ps}}
		sg := app.Group("/api/v1/sync", middleware.RequireAdminKey(cfg.SyncAdminKey))
		sg.Post("/projects", sh.SyncProjects)
		sg.Get("/projects", sh.ListSnapshots)
		sg.Get("/projects/:id", sh.GetSnapshot)
	}

	return app
}
