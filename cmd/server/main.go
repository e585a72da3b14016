// Command server runs the welfare scheme eligibility service: the scheme
// catalogue, the session context store, and the eligibility engine behind one
// HTTP surface. Conversation, speech, and translation live elsewhere; this
// process only holds contexts and answers eligibility questions about them.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"sahaya/internal/audit"
	auditkafka "sahaya/internal/audit/kafka"
	"sahaya/internal/catalogue"
	cataloguehandler "sahaya/internal/catalogue/handler"
	"sahaya/internal/eligibility"
	eligibilityhandler "sahaya/internal/eligibility/handler"
	"sahaya/internal/platform/config"
	"sahaya/internal/platform/httpserver"
	"sahaya/internal/platform/logger"
	"sahaya/internal/platform/metrics"
	"sahaya/internal/platform/postgres"
	platformredis "sahaya/internal/platform/redis"
	"sahaya/internal/session"
	sessionhandler "sahaya/internal/session/handler"
	httptransport "sahaya/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Audit pipeline: in-memory sink always, Kafka when brokers are set.
	inbox := make(chan audit.Event, 256)
	sinks := []audit.Sink{audit.NewMemoryStore()}
	kafkaSink, err := auditkafka.New(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		log.Error("kafka audit sink unavailable", "error", err)
		os.Exit(1)
	}
	if kafkaSink != nil {
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
		log.Info("kafka audit sink enabled", "topic", cfg.KafkaTopic)
	}
	publisher := audit.NewPublisher(inbox, log)
	worker := audit.NewWorker(inbox, log, sinks...)

	// Catalogue: Postgres when configured, in-memory otherwise.
	var catalogueStore catalogue.Store = catalogue.NewMemoryStore()
	if db, err := postgres.Open(cfg.PostgresDSN); err != nil {
		log.Error("postgres unavailable", "error", err)
		os.Exit(1)
	} else if db != nil {
		defer db.Close()
		catalogueStore = catalogue.NewPostgresStore(db)
		log.Info("postgres catalogue store enabled")
	}
	catalogueService := catalogue.NewService(catalogueStore, log, m, publisher)

	// Sessions: Redis when configured, in-memory otherwise.
	var sessionStore session.Store = session.NewMemoryStore()
	if redisClient, err := platformredis.New(cfg.RedisURL); err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	} else if redisClient != nil {
		defer redisClient.Close()
		sessionStore = session.NewRedisStore(redisClient.Client, cfg.SessionIdleTimeout)
		log.Info("redis session store enabled")
	}
	sessionService := session.NewService(
		sessionStore,
		session.DefaultSensitivityPolicy(),
		cfg.SessionIdleTimeout,
		log, m, publisher,
	)

	ranker := eligibility.NewRanker(benefitPriority(cfg.BenefitPriority))
	engineService := eligibility.NewService(
		sessionService,
		catalogueService,
		catalogueService,
		ranker,
		cfg.ConfidenceFloor,
		cfg.AlternativesLimit,
		log, m,
	)

	router := httptransport.NewRouter(log,
		sessionhandler.New(sessionService, log),
		eligibilityhandler.New(engineService, log),
		cataloguehandler.New(catalogueService, log, cfg.AdminJWTKey),
	)
	srv := httpserver.New(cfg.Addr, router)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		session.NewSweeper(sessionService, cfg.SweepInterval, log).Run(ctx)
	}()

	go func() {
		log.Info("starting sahaya", "addr", cfg.Addr, "idle_timeout", cfg.SessionIdleTimeout.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	wg.Wait()
}

func benefitPriority(raw []string) []catalogue.BenefitType {
	if len(raw) == 0 {
		return nil
	}
	order := make([]catalogue.BenefitType, 0, len(raw))
	for _, t := range raw {
		order = append(order, catalogue.BenefitType(t))
	}
	return order
}
