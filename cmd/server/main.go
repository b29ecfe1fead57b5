package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/keh4l/outlook-mail-manager/internal/api"
	"github.com/keh4l/outlook-mail-manager/internal/config"
	"github.com/keh4l/outlook-mail-manager/internal/graph"
	"github.com/keh4l/outlook-mail-manager/internal/imapmail"
	"github.com/keh4l/outlook-mail-manager/internal/mail"
	"github.com/keh4l/outlook-mail-manager/internal/metrics"
	"github.com/keh4l/outlook-mail-manager/internal/proxygw"
	"github.com/keh4l/outlook-mail-manager/internal/store"
	"github.com/keh4l/outlook-mail-manager/internal/token"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "outlook-mail-manager",
		Short:   "Bulk Outlook mailbox manager with Graph and IMAP retrieval",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.WithField("version", version).Info("Starting Outlook mail manager")

	db, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open database")
	}
	defer db.Close()

	accounts := store.NewAccountStore(db, logger)
	proxies := store.NewProxyStore(db, logger)
	cache := store.NewMailCache(db, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	gateway := proxygw.NewGateway(proxies, cfg.HTTPTimeout, logger)
	broker := token.NewBroker(cfg.TokenEndpoint, logger)
	graphClient := graph.NewClient(cfg.GraphBaseURL, logger)
	imapClient := imapmail.NewClient(cfg.IMAPHost, cfg.IMAPPort, cfg.HTTPTimeout, logger)

	mailSvc := mail.NewService(accounts, cache, gateway, broker, graphClient, imapClient, m, cfg.DefaultPageSize, logger)

	server := api.NewServer(accounts, proxies, cache, mailSvc, gateway, registry, cfg.ProxyTestURL, cfg.DefaultPageSize, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.ListenAddr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
	case err := <-errChan:
		logger.WithError(err).Error("Server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Forced shutdown")
	}

	logger.Info("Outlook mail manager stopped")
	return nil
}
