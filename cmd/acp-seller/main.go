// Command acp-seller is the seller runtime's process entrypoint: it wires
// configuration, the offering registry, the stage executor, the two job
// event producers (socket listener and poll reconciler), and the
// supervisor that runs them until a shutdown signal arrives.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yourorg/acp-seller/internal/alert"
	"github.com/yourorg/acp-seller/internal/audit"
	"github.com/yourorg/acp-seller/internal/config"
	"github.com/yourorg/acp-seller/internal/db"
	"github.com/yourorg/acp-seller/internal/dispatch"
	"github.com/yourorg/acp-seller/internal/httpclient"
	"github.com/yourorg/acp-seller/internal/ledger"
	"github.com/yourorg/acp-seller/internal/migrate"
	"github.com/yourorg/acp-seller/internal/normalize"
	"github.com/yourorg/acp-seller/internal/offering"
	"github.com/yourorg/acp-seller/internal/poll"
	"github.com/yourorg/acp-seller/internal/ratelimit"
	"github.com/yourorg/acp-seller/internal/sellerapi"
	"github.com/yourorg/acp-seller/internal/socket"
	"github.com/yourorg/acp-seller/internal/stage"
	"github.com/yourorg/acp-seller/internal/supervisor"

	researchreport "github.com/yourorg/acp-seller/offerings/research_report"
	typescriptapi "github.com/yourorg/acp-seller/offerings/typescript_api_development"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sup := supervisor.New(cfg.PIDFilePath, logger)
	if err := sup.WritePID(); err != nil {
		logger.Error("startup_failed", "reason", "pidfile", "err", err)
		os.Exit(1)
	}
	defer sup.RemovePID()

	var auditStore *audit.Store
	if cfg.DatabaseURL != "" {
		dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
		pool, err := db.Connect(dbCtx, cfg.DatabaseURL)
		dbCancel()
		if err != nil {
			logger.Warn("audit_disabled", "reason", "connect_failed", "err", err)
		} else {
			defer pool.Close()
			if err := migrate.Run(ctx, pool, logger); err != nil {
				logger.Warn("audit_disabled", "reason", "migrate_failed", "err", err)
			} else {
				auditStore = audit.New(pool, logger)
				logger.Info("audit_store_ready")
			}
		}
	} else {
		logger.Info("audit_disabled", "reason", "no_database_url")
	}

	var guard *ratelimit.Guard
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Warn("cross_process_guard_disabled", "reason", "parse_redis_url_failed", "err", err)
		} else {
			rc := redis.NewClient(opts)
			defer rc.Close()
			pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
			err := rc.Ping(pingCtx).Err()
			pingCancel()
			if err != nil {
				logger.Warn("cross_process_guard_disabled", "reason", "ping_failed", "err", err)
			} else {
				guard = ratelimit.New(rc, 10*time.Minute)
				logger.Info("cross_process_guard_ready")
			}
		}
	}

	registry := offering.New(cfg.OfferingsRoot)
	registry.Register("typescript_api_development", typescriptapi.New)
	registry.Register("research_report", researchreport.New)
	loaded, failures := registry.LoadAll()
	for name, ferr := range failures {
		logger.Warn("offering_load_failed", "offering", name, "err", ferr)
	}
	names := make([]string, 0, len(loaded))
	for _, o := range loaded {
		names = append(names, o.Name)
	}
	logger.Info("offerings_loaded", "count", len(loaded), "names", names)

	http := httpclient.New(cfg.ACPURL, cfg.APIKey)
	api := sellerapi.New(http, logger)
	lg := ledger.New()
	executor := stage.New(registry, lg, api, auditStore, logger)

	wallet := resolveWalletAddress(ctx, cfg, agentInfoClient{http: http}, logger)
	d := dispatch.New(executor, lg, guard, wallet, logger)

	alertClient := alert.New(cfg.PagerDutyRoutingKey, "acp-seller", logger)
	transport := socket.UnconfiguredTransport{}
	listener := socket.New(transport, d, alertClient, logger)

	reconciler := poll.New(http, d, cfg.PollPageSize, time.Duration(cfg.PollIntervalMS)*time.Millisecond, logger)

	logger.Info("seller_runtime_starting", "wallet", wallet, "poll_enabled", cfg.PollEnabled)

	loops := []supervisor.Runnable{}
	if _, ok := any(transport).(socket.UnconfiguredTransport); ok {
		logger.Info("socket_listener_skipped", "reason", "no_realtime_transport_configured")
	} else {
		loops = append(loops, listener.Run)
	}
	if cfg.PollEnabled {
		loops = append(loops, reconciler.Run)
	} else {
		logger.Info("poll_reconciler_disabled")
	}

	sup.Run(ctx, loops...)
}

func resolveWalletAddress(ctx context.Context, cfg config.Config, info supervisor.AgentInfo, logger *slog.Logger) string {
	if cfg.WalletLC != "" {
		return cfg.WalletLC
	}
	wallet, err := info.ResolveWalletAddress(ctx)
	if err != nil {
		logger.Error("wallet_resolution_failed", "err", err)
		os.Exit(1)
	}
	return wallet
}

var _ supervisor.AgentInfo = agentInfoClient{}

// agentInfoClient resolves this seller's own wallet address from the
// backend's agent-info endpoint. Lowercased per spec's address-comparison
// convention.
type agentInfoClient struct {
	http *httpclient.Client
}

type agentInfoResponse struct {
	WalletAddress string `json:"walletAddress"`
}

func (a agentInfoClient) ResolveWalletAddress(ctx context.Context) (string, error) {
	var resp agentInfoResponse
	if err := a.http.Do(ctx, "GET", "/acp/agents/me", nil, &resp); err != nil {
		return "", err
	}
	return normalize.Address(resp.WalletAddress), nil
}

