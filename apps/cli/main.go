package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"github.com/angeraphael/parrainage/core"
	"github.com/angeraphael/parrainage/core/referral"
	"github.com/angeraphael/parrainage/services/email"
	"github.com/angeraphael/parrainage/services/upstream"
)

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// start CLI
	cli := &commandLine{
		svc: referral.NewService(
			upstream.NewClient(core.Conf.Upstream),
			emailsvc.NewConsoleService(logger),
			core.Conf.Upstream.TreeDepth,
		),
		in:  int(os.Stdin.Fd()),
		out: os.Stdout,
	}
	if err := newRootCmd(cli).ExecuteContext(ctx); err != nil {
		logger.WithError(err).Error("parrainage failed")
		stop()
		os.Exit(1)
	}
}
