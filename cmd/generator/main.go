package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Vencyderry/fitness-tracker-analytics/internal/config"
	"github.com/Vencyderry/fitness-tracker-analytics/internal/domain"
	"github.com/Vencyderry/fitness-tracker-analytics/internal/generator"
	"github.com/Vencyderry/fitness-tracker-analytics/internal/persistence/postgres"
	"github.com/Vencyderry/fitness-tracker-analytics/internal/publish"
	httptransport "github.com/Vencyderry/fitness-tracker-analytics/internal/transport/http"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, config.Load(), log.New(os.Stdout, "", 0))
	stop()
	if err != nil {
		log.Printf("generator failed: %v", err)
		os.Exit(1)
	}
}

// run wires the generator from cfg and blocks until ctx is cancelled or persistence fails.
// Every resource it opens is released before it returns.
func run(ctx context.Context, cfg config.Config, console *log.Logger) error {
	console.Println("starting fitness tracker data generator...")

	model, err := domain.NewActivityModel(domain.DefaultCatalog(), domain.NewSeededRand(cfg.Seed))
	if err != nil {
		return fmt.Errorf("invalid activity catalog: %w", err)
	}

	opts := []generator.Option{
		generator.WithLogger(console),
		generator.WithRetryInterval(cfg.DBRetryInterval),
		generator.WithTickInterval(cfg.TickInterval),
		generator.WithUsers(cfg.UserIDs),
	}

	if cfg.KafkaEnabled() {
		publisher := publish.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Printf("kafka publisher close error: %v", err)
			}
		}()
		opts = append(opts, generator.WithPublisher(publisher))
		log.Printf("streaming events to kafka topic %s (brokers=%v)", cfg.KafkaTopic, cfg.KafkaBrokers)
	}

	var metricsSrv *http.Server
	if cfg.MetricsAddress != "" {
		metricsSrv = httptransport.NewMetricsServer(httptransport.ServerConfig{
			Address:      cfg.MetricsAddress,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}, prometheus.DefaultGatherer)

		go func() {
			log.Printf("generator metrics listening on %s", cfg.MetricsAddress)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("metrics server error: %v", err)
			}
		}()
	}

	dial := func(ctx context.Context) (generator.Store, error) {
		store, err := postgres.Dial(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if cfg.DBEnsureSchema {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close(context.WithoutCancel(ctx))
				return nil, err
			}
		}
		console.Printf("connected to database %s", cfg.Target())
		console.Printf("generating events every %s", cfg.TickInterval)
		return store, nil
	}

	runErr := generator.New(dial, model, opts...).Run(ctx)

	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("metrics server shutdown error: %v", err)
		}
		shutdownCancel()
	}

	if runErr != nil {
		return runErr
	}
	console.Println("generator stopped")
	return nil
}
