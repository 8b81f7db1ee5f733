package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/qrmfg/portal/pkg/api"
	"github.com/qrmfg/portal/pkg/audit"
	"github.com/qrmfg/portal/pkg/auth"
	"github.com/qrmfg/portal/pkg/authz"
	"github.com/qrmfg/portal/pkg/config"
	"github.com/qrmfg/portal/pkg/middleware"
	"github.com/qrmfg/portal/pkg/observability"
	"github.com/qrmfg/portal/pkg/rbac"
	"github.com/qrmfg/portal/pkg/respcache"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	appLog := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Authentication collaborator
	if cfg.Auth.IssuerURL == "" {
		log.Fatal("QRMFG_OIDC_ISSUER is required")
	}
	decoder, err := auth.NewOIDCDecoder(ctx, auth.OIDCConfig{
		IssuerURL: cfg.Auth.IssuerURL,
		ClientID:  cfg.Auth.ClientID,
		Mapping: auth.ClaimMapping{
			Subject:      "sub",
			Username:     "preferred_username",
			Roles:        cfg.Auth.RolesClaim,
			Plants:       cfg.Auth.PlantsClaim,
			PrimaryPlant: cfg.Auth.PrimaryPlantClaim,
			PrimaryRole:  cfg.Auth.PrimaryRoleClaim,
		},
	})
	if err != nil {
		log.WithError(err).Fatal("failed to initialize OIDC decoder")
	}
	session := auth.NewSession(decoder)

	// Remote authorization endpoint (optional; without it unmapped
	// resources deny locally)
	var authorizer authz.Authorizer
	var plants authz.PlantDirectory
	if cfg.Authz.Endpoint != "" {
		client := authz.NewHTTPClient(authz.Config{
			BaseURL: cfg.Authz.Endpoint,
			Timeout: cfg.Authz.RemoteTimeout,
		})
		authorizer = client
		plants = client
	}

	// Decision audit trail
	db, err := sql.Open("sqlite3", cfg.Audit.DatabasePath)
	if err != nil {
		log.WithError(err).Fatal("failed to open audit database")
	}
	defer db.Close()
	auditStore := audit.NewStore(db, appLog)
	if err := auditStore.Migrate(ctx); err != nil {
		log.WithError(err).Fatal("failed to migrate audit database")
	}

	// Response cache
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisAddr,
		DB:   cfg.Cache.RedisDB,
	})
	defer redisClient.Close()
	responseCache := respcache.NewCache(redisClient, cfg.Cache.Prefix, cfg.Cache.TTL)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	// RBAC core
	principals := rbac.NewPrincipalContext(session, plants, appLog)
	engine := rbac.NewEngine(rbac.EngineOptions{
		Principals: principals,
		Remote:     authorizer,
		Recorder:   auditStore,
		Logger:     appLog,
		Metrics:    metrics,
		Config: rbac.EngineConfig{
			DecisionTTL:   cfg.Authz.DecisionTTL,
			CacheSize:     cfg.Authz.DecisionCacheSize,
			RemoteTimeout: cfg.Authz.RemoteTimeout,
		},
	})

	server := api.NewServer(api.ServerOptions{
		Principals:  principals,
		Engine:      engine,
		Cache:       responseCache,
		Audit:       auditStore,
		Metrics:     metrics,
		Logger:      appLog,
		PrincipalMW: middleware.NewPrincipalMiddleware(session, principals, appLog),
	})

	root := http.NewServeMux()
	root.Handle("/", server)
	if metrics != nil {
		root.Handle("/metrics", metrics.Handler())
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      root,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithField("addr", httpServer.Addr).Info("starting QRMFG portal server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
