package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"mentorhub/internal/api"
	"mentorhub/internal/booking"
	"mentorhub/internal/config"
	"mentorhub/internal/events"
	"mentorhub/internal/metrics"
	"mentorhub/internal/orderapi"
	"mentorhub/internal/probe"
	"mentorhub/internal/refund"
	"mentorhub/internal/slotgw"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("SCHEDULER_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	slots := slotgw.New(cfg.SlotAPI.BaseURL, cfg.SlotAPI.APIKey)
	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.SlotAPI.CacheTTLSeconds > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		slots.UseRedisCache(rdb, cfg.CacheTTL())
	}
	if cfg.SlotAPI.RatePerSecond > 0 {
		slots.UseRateLimit(cfg.SlotAPI.RatePerSecond, cfg.SlotAPI.RateBurst)
	}

	orders := orderapi.New(cfg.OrderAPI.BaseURL, cfg.OrderAPI.APIKey)

	policy, err := refund.NewPolicy(cfg.RefundTiers(), cfg.Refund.BlockZeroFraction)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid refund tier table")
	}

	bus := events.NewBus()
	bus.Subscribe("", func(event events.Event) {
		logger.Info().
			Str("event", event.Type).
			Str("request_id", event.RequestID).
			Str("session_id", event.SessionID).
			Str("detail", event.Detail).
			Msg("reschedule event")
	})

	store := booking.NewStore(cfg.RescheduleAttempts())
	manager := booking.NewManager(store, orders, bus, cfg.ApprovalTimeout(), &logger)
	prober := probe.New(slots, cfg.ProbeBatchSize(), &logger)

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	server := api.NewHTTPServer(
		cfg.Server.Port,
		cfg.Server.APIKey,
		slots,
		prober,
		manager,
		policy,
		orders,
		cfg.HorizonDays(),
		&logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, slots, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	go manager.RunSweeper(ctx, cfg.SweepInterval())

	logger.Info().Msg("scheduler started")
	if err := server.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("api server error")
	}
}

func startHealthServer(ctx context.Context, port int, slots *slotgw.Client, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := slots.HealthCheck(ctxPing); err != nil {
			http.Error(w, "slot service not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
