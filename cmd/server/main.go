// Command server runs the land-title registry and settlement service. main
// wires configuration, storage, the audit pipeline, and the HTTP surface;
// business logic stays in the internal services.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	accountshandler "landlock/internal/accounts"
	"landlock/internal/agreement"
	agreementhandler "landlock/internal/agreement/handler"
	agreementmetrics "landlock/internal/agreement/metrics"
	"landlock/internal/audit"
	"landlock/internal/escrow"
	escrowhandler "landlock/internal/escrow/handler"
	escrowmetrics "landlock/internal/escrow/metrics"
	"landlock/internal/identity"
	identityhandler "landlock/internal/identity/handler"
	"landlock/internal/ledger"
	"landlock/internal/platform/config"
	"landlock/internal/platform/httpserver"
	"landlock/internal/platform/logger"
	"landlock/internal/platform/metrics"
	"landlock/internal/platform/postgres"
	"landlock/internal/platform/redis"
	"landlock/internal/platform/replay"
	"landlock/internal/platform/tracing"
	"landlock/internal/title"
	titlehandler "landlock/internal/title/handler"
	httptransport "landlock/internal/transport/http"
	"landlock/pkg/domain"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing {
		shutdown, err := tracing.Setup(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warn("trace provider shutdown failed", "error", err)
			}
		}()
	}

	admins, err := parseAdmins(cfg.Admins)
	if err != nil {
		return err
	}

	// Ledger substrate: postgres when configured, in-memory otherwise.
	var store ledger.Store
	if cfg.Postgres.URL != "" {
		pool, err := postgres.NewPool(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		pg := ledger.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		store = pg
	} else {
		log.Warn("no postgres configured, using in-memory ledger")
		store = ledger.NewMemory()
	}

	// Replay guard: redis when configured, in-process otherwise.
	var guard replay.Guard = replay.NewMemory()
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		guard = replay.NewRedis(redisClient.Client)
	}

	// Audit pipeline: events flow through a buffered channel into a store;
	// kafka mirrors them to the stream when configured. Failures are logged
	// and dropped, never surfaced to the business transaction.
	var auditStore audit.Store = audit.NewInMemoryStore()
	if cfg.Postgres.AuditURL != "" {
		db, err := postgres.OpenSQL(ctx, cfg.Postgres.AuditURL)
		if err != nil {
			return err
		}
		defer db.Close()
		pgStore := audit.NewPostgresStore(db)
		if err := pgStore.Migrate(ctx); err != nil {
			return err
		}
		auditStore = pgStore
	}

	publisher := audit.NewChannelPublisher(1024)
	worker := audit.NewWorker(auditStore, publisher.Inbox(), log)

	var kafkaPublisher *audit.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err = audit.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return err
		}
		defer kafkaPublisher.Close()
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := kafkaPublisher.Flush(flushCtx); err != nil {
				log.Warn("audit stream flush failed", "error", err)
			}
		}()
	}

	var auditOut audit.Publisher = publisher
	if kafkaPublisher != nil {
		auditOut = audit.Fanout(publisher, kafkaPublisher)
	}

	// Domain services.
	identitySvc, err := identity.New(store, admins,
		identity.WithLogger(log),
		identity.WithAuditPublisher(auditOut),
	)
	if err != nil {
		return err
	}
	titleSvc := title.New(store,
		title.WithLogger(log),
		title.WithAuditPublisher(auditOut),
	)
	agreementSvc := agreement.New(store,
		agreement.WithLogger(log),
		agreement.WithAuditPublisher(auditOut),
		agreement.WithMetrics(agreementmetrics.New()),
	)
	escrowSvc := escrow.New(store,
		escrow.WithLogger(log),
		escrow.WithAuditPublisher(auditOut),
		escrow.WithMetrics(escrowmetrics.New()),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    log,
		Metrics:   metrics.New(),
		Guard:     guard,
		Identity:  identityhandler.New(identitySvc, log),
		Title:     titlehandler.New(titleSvc, log),
		Agreement: agreementhandler.New(agreementSvc, log),
		Escrow:    escrowhandler.New(escrowSvc, log),
		Accounts:  accountshandler.New(store, log, cfg.Faucet),
		HealthFunc: func() error {
			if redisClient != nil {
				return redisClient.Health(context.Background())
			}
			return nil
		},
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return worker.Run(groupCtx)
	})
	group.Go(func() error {
		log.Info("starting landlock", "addr", cfg.Server.Addr, "faucet", cfg.Faucet)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("landlock stopped")
	return nil
}

func parseAdmins(raw []string) ([]domain.PublicKey, error) {
	admins := make([]domain.PublicKey, 0, len(raw))
	for _, s := range raw {
		key, err := domain.ParsePublicKey(s)
		if err != nil {
			return nil, fmt.Errorf("admin allowlist entry %q: %w", s, err)
		}
		admins = append(admins, key)
	}
	return admins, nil
}
