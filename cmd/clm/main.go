// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/clm/api"
	httpapi "github.com/absmach/clm/api/http"
	boltrepo "github.com/absmach/clm/bbolt"
	"github.com/absmach/clm/ejbca"
	"github.com/absmach/clm/events"
	jaegerClient "github.com/absmach/clm/internal/jaeger"
	pgclient "github.com/absmach/clm/internal/postgres"
	"github.com/absmach/clm/internal/prometheus"
	"github.com/absmach/clm/internal/uuid"
	"github.com/absmach/clm/operations"
	"github.com/absmach/clm/pki"
	"github.com/absmach/clm/postgres"
	"github.com/absmach/clm/scheduler"
	"github.com/absmach/clm/store"
	"github.com/absmach/clm/tracing"
	smq "github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/caarlos0/env/v10"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const (
	svcName             = "clm"
	envPrefixHTTP       = "CLM_HTTP_"
	envPrefixDB         = "CLM_DB_"
	envPrefixEJBCA      = "CLM_EJBCA_"
	envPrefixOpenBao    = "CLM_OPENBAO_"
	envPrefixOperations = "CLM_OPERATIONS_"
	envPrefixReconciler = "CLM_RECONCILER_"
	envPrefixWebhook    = "CLM_WEBHOOK_"
	defSvcHTTPPort      = "9010"

	dbBolt     = "bbolt"
	dbPostgres = "postgres"
	caEJBCA    = "ejbca"
	caOpenBao  = "openbao"
)

type config struct {
	LogLevel   string  `env:"CLM_LOG_LEVEL"         envDefault:"info"`
	JaegerURL  url.URL `env:"CLM_JAEGER_URL"        envDefault:"http://jaeger:4318"`
	InstanceID string  `env:"CLM_INSTANCE_ID"       envDefault:""`
	TraceRatio float64 `env:"CLM_JAEGER_TRACE_RATIO" envDefault:"1.0"`

	DBType     string `env:"CLM_DB_TYPE"           envDefault:"bbolt"`
	BoltPath   string `env:"CLM_BOLT_PATH"         envDefault:"clm.db"`
	CAType     string `env:"CLM_CA_TYPE"           envDefault:"ejbca"`
	PolicyFile string `env:"CLM_POLICY_FILE"       envDefault:""`
	Scheduler  bool   `env:"CLM_SCHEDULER_ENABLED" envDefault:"true"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load %s configuration : %s", svcName, err)
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID, err = uuid.New().ID()
		if err != nil {
			log.Fatalf("failed to generate instance ID: %s", err)
		}
	}

	policy := clm.DefaultPolicy()
	if cfg.PolicyFile != "" {
		if policy, err = clm.LoadPolicy(cfg.PolicyFile); err != nil {
			logger.Error(fmt.Sprintf("failed to load policy from %s: %s", cfg.PolicyFile, err))
			return
		}
	}

	var tracer trace.Tracer = noop.NewTracerProvider().Tracer(svcName)
	tp, err := jaegerClient.NewProvider(ctx, svcName, cfg.JaegerURL, cfg.InstanceID, cfg.TraceRatio)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to init Jaeger: %s", err))
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error(fmt.Sprintf("Error shutting down tracer provider: %v", err))
			}
		}()
		tracer = tp.Tracer(svcName)
	}

	certRepo, opsRepo, db, err := newRepositories(cfg, tracer)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to set up %s storage: %s", cfg.DBType, err))
		return
	}
	defer db.Close()

	agent, err := newAgent(cfg, logger)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to configure %s CA client: %s", cfg.CAType, err))
		return
	}

	whCfg := events.WebhookConfig{}
	if err := env.ParseWithOptions(&whCfg, env.Options{Prefix: envPrefixWebhook}); err != nil {
		logger.Error(fmt.Sprintf("failed to load webhook configuration : %s", err))
		return
	}
	notifier := events.NewLogNotifier(logger)
	if whCfg.URL != "" {
		wh := events.NewWebhook(whCfg, logger)
		defer wh.Close()
		notifier = events.Fanout(notifier, wh)
	}

	opsCfg := operations.DefaultConfig()
	if err := env.ParseWithOptions(&opsCfg, env.Options{Prefix: envPrefixOperations}); err != nil {
		logger.Error(fmt.Sprintf("failed to load operations configuration : %s", err))
		return
	}

	st := store.New(certRepo, logger)
	machine := operations.NewMachine(opsRepo, st, agent, notifier, policy, opsCfg, logger)
	pool := operations.NewPool(machine, opsRepo, opsCfg, logger, operations.WithFinishedCounter(prometheus.MakeOperationMetrics(svcName)))

	svc := newService(st, opsRepo, pool, agent, policy, tracer, logger)

	recCfg := store.ReconcilerConfig{}
	if err := env.ParseWithOptions(&recCfg, env.Options{Prefix: envPrefixReconciler}); err != nil {
		logger.Error(fmt.Sprintf("failed to load reconciler configuration : %s", err))
		return
	}
	reconciler := store.NewReconciler(st, agent, recCfg, logger)

	httpServerConfig := smq.Config{Port: defSvcHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s HTTP server configuration : %s", svcName, err))
		return
	}
	hs := httpserver.NewServer(ctx, cancel, svcName, httpServerConfig, httpapi.MakeHandler(svc, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return pool.Run(ctx)
	})

	g.Go(func() error {
		return reconciler.Run(ctx)
	})

	if cfg.Scheduler {
		sched := scheduler.New(st, svc, policy.Renewal, logger)
		g.Go(func() error {
			return sched.Run(ctx)
		})
	}

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return smq.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service terminated: %s", svcName, err))
	}
}

func newRepositories(cfg config, tracer trace.Tracer) (clm.CertificateRepository, clm.OperationRepository, io.Closer, error) {
	switch cfg.DBType {
	case dbBolt:
		db, err := boltrepo.Connect(cfg.BoltPath, nil)
		if err != nil {
			return nil, nil, nil, err
		}
		return boltrepo.NewCertificateRepository(db), boltrepo.NewOperationRepository(db), db, nil
	case dbPostgres:
		dbConfig := pgclient.Config{}
		if err := env.ParseWithOptions(&dbConfig, env.Options{Prefix: envPrefixDB}); err != nil {
			return nil, nil, nil, err
		}
		db, err := pgclient.Setup(dbConfig, *postgres.Migration())
		if err != nil {
			return nil, nil, nil, err
		}
		database := pgclient.NewDatabase(db, dbConfig, tracer)
		return postgres.NewCertificateRepository(database), postgres.NewOperationRepository(database), db, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown database type %q", cfg.DBType)
	}
}

func newAgent(cfg config, logger *slog.Logger) (clm.Agent, error) {
	switch cfg.CAType {
	case caEJBCA:
		ejbcaCfg := ejbca.Config{}
		if err := env.ParseWithOptions(&ejbcaCfg, env.Options{Prefix: envPrefixEJBCA}); err != nil {
			return nil, err
		}
		tlsCfg, err := ejbca.TLSConfig(ejbcaCfg)
		if err != nil {
			return nil, err
		}
		return ejbca.NewAgent(ejbcaCfg, tlsCfg, logger)
	case caOpenBao:
		baoCfg := pki.Config{}
		if err := env.ParseWithOptions(&baoCfg, env.Options{Prefix: envPrefixOpenBao}); err != nil {
			return nil, err
		}
		if baoCfg.AppRole == "" || baoCfg.AppSecret == "" {
			return nil, fmt.Errorf("OpenBao AppRole credentials not specified")
		}
		return pki.NewAgent(baoCfg, logger)
	default:
		return nil, fmt.Errorf("unknown CA type %q", cfg.CAType)
	}
}

func newService(st clm.Store, ops clm.OperationRepository, exec clm.Executor, agent clm.Agent, policy clm.Policy, tracer trace.Tracer, logger *slog.Logger) clm.Service {
	svc := clm.NewService(st, ops, exec, agent, uuid.New(), policy, logger)
	svc = api.LoggingMiddleware(svc, logger)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = api.MetricsMiddleware(svc, counter, latency)
	svc = tracing.New(svc, tracer)

	return svc
}

func initLogger(levelText string) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelText)); err != nil {
		return &slog.Logger{}, fmt.Errorf(`{"level":"error","message":"%s: %s","ts":"%s"}`, err, levelText, time.RFC3339Nano)
	}

	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(logHandler), nil
}
