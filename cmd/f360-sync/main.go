package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"bitbucket.org/contaflux/contabil_backend/config"
	"bitbucket.org/contaflux/contabil_backend/f360sync"
	"bitbucket.org/contaflux/contabil_backend/models"
	"github.com/sirupsen/logrus"
)

// One-shot import runner. Exit code 0 when the run completes; per-company
// failures only show up in the summary. Missing configuration is the one
// fatal case.
func main() {
	limit := flag.Int("limit", 0, "cap the number of companies processed (0 = all)")
	flag.Parse()

	logger := config.GetLogger()

	if strings.TrimSpace(os.Getenv("DB_HOST")) == "" {
		logger.Fatal("DB_HOST is not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.ConnectDatabaseWithRetry()
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	}

	result, err := f360sync.RunImport(ctx, *limit)
	if err != nil {
		logger.Fatalf("import run could not start: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"success": result.Success,
		"errors":  result.Errors,
		"skipped": result.Skipped,
	}).Info(result.String())
}
