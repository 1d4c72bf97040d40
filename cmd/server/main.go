package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"rollcall/internal/attendance"
	"rollcall/internal/attendance/ledger"
	"rollcall/internal/enrollment"
	enrollmenthandler "rollcall/internal/enrollment/handler"
	"rollcall/internal/events"
	"rollcall/internal/ingest"
	"rollcall/internal/notify"
	sendgridgw "rollcall/internal/notify/sendgrid"
	"rollcall/internal/platform/config"
	"rollcall/internal/platform/httpserver"
	"rollcall/internal/platform/logger"
	"rollcall/internal/platform/middleware"
	"rollcall/internal/platform/postgres"
	"rollcall/internal/platform/redis"
	"rollcall/internal/session"
	sessionhandler "rollcall/internal/session/handler"
	"rollcall/internal/session/metrics"
	httptransport "rollcall/internal/transport/http"
)

// main wires configuration, stores, services, and the HTTP surface, then
// runs until interrupted. Business logic lives in the internal packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogJSON)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	var health []httptransport.HealthCheck

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		if err := ledger.Migrate(ctx, db); err != nil {
			log.Error("ledger migration failed", "error", err)
			os.Exit(1)
		}
		if err := enrollment.Migrate(ctx, db); err != nil {
			log.Error("enrollment migration failed", "error", err)
			os.Exit(1)
		}
		health = append(health, httptransport.HealthCheck{
			Name:  "postgres",
			Check: db.PingContext,
		})
	}

	rdb, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
		health = append(health, httptransport.HealthCheck{
			Name:  "redis",
			Check: rdb.Health,
		})
	}

	roster := buildRoster(ctx, cfg, db, log)
	led, closeLedger := buildLedger(cfg, db, rdb, log)
	defer closeLedger()
	gateway := buildGateway(cfg, log)

	publisher := buildPublisher(ctx, cfg, log)
	defer publisher.Close()

	queue := ingest.NewQueue(cfg.Session.SweepInterval)
	defer queue.Close()

	svc, err := session.New(roster, queue, queue, led, gateway, metrics.New(registry),
		session.WithLogger(log),
		session.WithPublisher(publisher),
	)
	if err != nil {
		log.Error("session service init failed", "error", err)
		os.Exit(1)
	}
	manager := session.NewManager(svc, log)

	sessionCfg := session.Config{
		Rules: attendance.Rules{
			SlotDuration:  cfg.Session.SlotDuration,
			PresentWindow: cfg.Session.PresentWindow,
			LateWindow:    cfg.Session.LateWindow,
			NotifyWindow:  cfg.Session.NotifyWindow,
		},
		MatchThreshold:  cfg.Session.MatchThreshold,
		SweepInterval:   cfg.Session.SweepInterval,
		SessionDuration: cfg.Session.SessionDuration,
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    log,
		Validator: middleware.NewHMACValidator(cfg.ControlJWTKey),
		Registry:  registry,
		Handlers: []httptransport.Registrar{
			sessionhandler.New(manager, sessionCfg, log),
			enrollmenthandler.New(roster, log),
			ingest.NewHandler(queue, log),
		},
		Health: health,
	})

	srv := httpserver.New(cfg.APIAddr, router)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			stop()
		}
	}()
	log.Info("rollcall started", "addr", cfg.APIAddr)

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := manager.Stop(shutdownCtx); err != nil {
		log.Error("session shutdown failed", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
}

// buildRoster selects the enrollment store: Postgres when configured,
// otherwise an in-memory store seeded from the CSV roster file. A missing
// CSV is not fatal here; students can still arrive via POST /students, and
// the session loop refuses to start on an empty roster.
func buildRoster(ctx context.Context, cfg config.Config, db *sql.DB, log *slog.Logger) enrollment.Store {
	if db != nil {
		return enrollment.NewPostgres(db)
	}

	store := enrollment.NewMemory()
	students, err := enrollment.LoadCSV(cfg.RosterPath)
	if err != nil {
		log.Warn("roster file not loaded", "path", cfg.RosterPath, "error", err)
		return store
	}
	for _, st := range students {
		if err := store.Upsert(ctx, st); err != nil {
			log.Warn("roster seed failed", "student_id", st.ID, "error", err)
		}
	}
	log.Info("roster loaded", "path", cfg.RosterPath, "students", len(students))
	return store
}

// buildLedger picks the dedup ledger backend in order of durability:
// Postgres, then Redis, then the append-only CSV files next to the roster.
func buildLedger(cfg config.Config, db *sql.DB, rdb *redis.Client, log *slog.Logger) (ledger.Ledger, func()) {
	if db != nil {
		return ledger.NewPostgres(db), func() {}
	}
	if rdb != nil {
		return ledger.NewRedis(rdb.Client), func() {}
	}

	dir := filepath.Dir(cfg.RosterPath)
	fl, err := ledger.OpenFile(dir)
	if err != nil {
		// A ledger that cannot replay its keys would break the at-most-once
		// guarantee across restarts, so this is fatal.
		log.Error("file ledger unusable", "dir", dir, "error", err)
		os.Exit(1)
	}
	log.Info("file ledger opened", "dir", dir)
	return fl, func() {
		if err := fl.Close(); err != nil {
			log.Warn("file ledger close failed", "error", err)
		}
	}
}

func buildGateway(cfg config.Config, log *slog.Logger) notify.Gateway {
	if cfg.SendgridKey != "" {
		log.Info("alerts via sendgrid", "from", cfg.AlertFromEmail)
		return sendgridgw.New(cfg.SendgridKey, cfg.AppName, cfg.AlertFromEmail)
	}
	log.Info("alerts via console; set ROLLCALL_SENDGRID_KEY for delivery")
	return notify.NewConsole(log)
}

func buildPublisher(ctx context.Context, cfg config.Config, log *slog.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NoopPublisher{}
	}
	pub, err := events.NewKafka(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, log)
	if err != nil {
		log.Error("kafka publisher init failed", "error", err)
		os.Exit(1)
	}
	return pub
}
