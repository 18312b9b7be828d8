package f360sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bitbucket.org/contaflux/contabil_backend/config"
	"bitbucket.org/contaflux/contabil_backend/models"
	"github.com/sirupsen/logrus"
)

const (
	defaultBatchSize  = 10
	defaultBatchDelay = time.Second
)

// Orchestrator partitions the credential set into consecutive batches and
// runs the per-company pipeline concurrently inside each batch. Batches run
// strictly sequentially with a fixed delay between them, keeping the remote
// API inside its implicit rate limits.
type Orchestrator struct {
	batchSize  int
	batchDelay time.Duration
	logger     *logrus.Logger

	// runCompany is the unit of work; swapped in tests.
	runCompany func(ctx context.Context, cred models.Credential) *models.ImportResult
}

func NewOrchestrator() *Orchestrator {
	logger := config.GetLogger()
	p := newPipeline(newF360Client, dbStore{}, logger)
	return &Orchestrator{
		batchSize:  config.IntFromEnv("SYNC_BATCH_SIZE", defaultBatchSize),
		batchDelay: time.Duration(config.IntFromEnv("SYNC_BATCH_DELAY_MS", int(defaultBatchDelay/time.Millisecond))) * time.Millisecond,
		logger:     logger,
		runCompany: p.run,
	}
}

// Run processes every credential and returns the merged run result. One
// company's failure never aborts its batch or the run: each task is wrapped
// so errors and panics land in the result's error list instead.
func (o *Orchestrator) Run(ctx context.Context, creds []models.Credential) *models.ImportResult {
	total := &models.ImportResult{}
	if len(creds) == 0 {
		return total
	}

	batchSize := o.batchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	for start := 0; start < len(creds); start += batchSize {
		end := start + batchSize
		if end > len(creds) {
			end = len(creds)
		}
		batch := creds[start:end]

		// Each task writes only its own slot; merging happens after the
		// batch settles, so no locking is needed anywhere.
		locals := make([]*models.ImportResult, len(batch))
		var wg sync.WaitGroup
		for i, cred := range batch {
			wg.Add(1)
			go func(i int, cred models.Credential) {
				defer wg.Done()
				locals[i] = o.runGuarded(ctx, cred)
			}(i, cred)
		}
		wg.Wait()

		for _, local := range locals {
			total.Merge(local)
		}

		o.logger.WithFields(logrus.Fields{
			"module":    "f360sync",
			"processed": end,
			"total":     len(creds),
		}).Info("batch finished")

		if end < len(creds) && o.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return total
			case <-time.After(o.batchDelay):
			}
		}
	}
	return total
}

// runGuarded keeps a panicking company task from taking the batch down.
func (o *Orchestrator) runGuarded(ctx context.Context, cred models.Credential) (result *models.ImportResult) {
	defer func() {
		if r := recover(); r != nil {
			result = &models.ImportResult{}
			result.RecordError(credentialLabel(cred), fmt.Errorf("panic: %v", r))
		}
	}()
	return o.runCompany(ctx, cred)
}

// RunImport loads the active credentials and executes a full run. limit <= 0
// processes everything.
func RunImport(ctx context.Context, limit int) (*models.ImportResult, error) {
	creds, err := models.GetActiveCredentials(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	o := NewOrchestrator()
	started := time.Now()
	result := o.Run(ctx, creds)

	o.logger.WithFields(logrus.Fields{
		"module":   "f360sync",
		"duration": time.Since(started).String(),
		"summary":  result.String(),
	}).Info("import run finished")
	for _, failure := range result.ErrorsList {
		o.logger.WithFields(logrus.Fields{
			"module":  "f360sync",
			"company": failure.Company,
		}).Error(failure.Error)
	}
	return result, nil
}
