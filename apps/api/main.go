package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/angeraphael/parrainage/apps/api/echo"
	"github.com/angeraphael/parrainage/core"
	"github.com/angeraphael/parrainage/core/referral"
	"github.com/angeraphael/parrainage/services/email"
	"github.com/angeraphael/parrainage/services/logger"
	"github.com/angeraphael/parrainage/services/upstream"
	"github.com/angeraphael/parrainage/storage/inmem"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	// set up loggers
	std := logrus.New()
	std.SetOutput(os.Stdout)
	std.SetFormatter(&logrus.JSONFormatter{})
	logger := logsvc.NewRollbarLogger(std, conf)
	defer logger.Close()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(std)
	} else {
		sendgridSvc := emailsvc.NewSendgridService(logger)
		defer sendgridSvc.Wait() // flush pending emails before the logger closes
		mailSvc = sendgridSvc
	}
	referralSvc := referral.NewService(upstream.NewClient(conf.Upstream), mailSvc, conf.Upstream.TreeDepth)

	sessions := inmemdb.NewSessionStore(conf.Server.SessionTTL)
	ctx, cancelPrune := context.WithCancel(context.Background())
	defer cancelPrune()
	go sessions.PruneEvery(ctx, time.Minute)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build), map[string]interface{}{
		"env":      conf.Env,
		"upstream": conf.Upstream.BaseURL,
	})
	defer logger.Info("Application stopped")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:        conf,
		Logger:      logger,
		ReferralSvc: referralSvc,
		Sessions:    sessions,
		Registry:    registry,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
