package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/warp/pointflow/api"
	"github.com/warp/pointflow/chain"
	"github.com/warp/pointflow/config"
	"github.com/warp/pointflow/ledger"
	"github.com/warp/pointflow/ledger/store"
	"github.com/warp/pointflow/logging"
	"github.com/warp/pointflow/metrics"
	"github.com/warp/pointflow/rewards"
	"github.com/warp/pointflow/session"
	"github.com/warp/pointflow/store/sqlite"
)

func init() {
	rootCmd.AddCommand(serveCmd)

	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().StringP("config", "c", "", "Path to a TOML config file")
		cmd.Flags().Int("port", 0, "HTTP server port (overrides config)")
		cmd.Flags().String("db", "", `SQLite database path, ":memory:", or "mem" for the map store`)
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, os.Getenv)
	if err != nil {
		return config.Config{}, err
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	if cmd.Flags().Changed("db") {
		db, _ := cmd.Flags().GetString("db")
		if db == "mem" {
			db = ""
		}
		cfg.Database.Path = db
	}
	return cfg, cfg.Validate()
}

// openStore returns the ledger store and a close function.
func openStore(path string) (ledger.Store, func() error, error) {
	if path == "" {
		return store.NewMemory(), func() error { return nil }, nil
	}
	s, err := sqlite.New(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, s.Close, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logging.Setup(cfg.Log.Level)
	if err != nil {
		return err
	}

	ledgerStore, closeStore, err := openStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.WithError(err).Error("Store.Close")
		}
	}()

	catalog, err := rewards.LoadCatalog(cfg.Rewards.CatalogPath)
	if err != nil {
		return err
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	opts := []session.Option{
		session.WithLogger(log),
		session.WithMetrics(m),
		session.WithCatalog(catalog),
	}
	if cfg.Chain.Enabled {
		sim := chain.NewSimulated(cfg.Chain.GenesisBalance)
		sim.PollInterval = cfg.Chain.PollInterval.Std()
		sim.Timeout = cfg.Chain.ConfirmTimeout.Std()
		opts = append(opts, session.WithChain(sim))
		log.Info("Chain.Simulated.Enabled")
	}

	sessions := session.NewManager(ledgerStore, session.Config{
		InitialBalance: cfg.Session.InitialBalance,
		SeedHistory:    cfg.Session.SeedHistory,
		ConnectDelay:   cfg.Session.ConnectDelay.Std(),
		RedeemDelay:    cfg.Session.RedeemDelay.Std(),
	}, opts...)

	reaper := session.NewReaper(sessions, cfg.Session.IdleTimeout.Std())
	if interval := cfg.Session.ReapInterval.Std(); interval > 0 {
		reaper.CheckInterval = interval
	}
	reaper.Start()
	defer reaper.Stop()

	router := api.NewRouter(api.NewHandler(sessions), api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit: api.RateLimit{
			RequestsPerMinute: float64(cfg.RateLimit.RequestsPerMinute),
			Burst:             cfg.RateLimit.Burst,
		},
		Metrics: m,
		Logger:  log,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"port":  cfg.Server.Port,
			"db":    cfg.Database.Path,
			"chain": cfg.Chain.Enabled,
		}).Info("Server.Start")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	log.Info("Server.Shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server.Stopped")
	return nil
}
