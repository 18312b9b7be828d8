package f360sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/contaflux/contabil_backend/config"
	"bitbucket.org/contaflux/contabil_backend/models"
	"github.com/sirupsen/logrus"
)

const (
	defaultAccountChunkSize = 500
	defaultEntryChunkSize   = 1000
	defaultEntryPageSize    = 1000
	defaultEntryMaxPages    = 100
)

// pipeline holds everything one company task needs. All knobs are fields so
// tests can shrink page sizes and caps.
type pipeline struct {
	newClient clientFactory
	store     store
	logger    *logrus.Logger
	tokenMap  map[string]string
	now       func() time.Time

	accountChunkSize int
	entryChunkSize   int
	pageSize         int
	maxPages         int
}

func newPipeline(factory clientFactory, st store, logger *logrus.Logger) *pipeline {
	return &pipeline{
		newClient:        factory,
		store:            st,
		logger:           logger,
		tokenMap:         loadTokenMap(logger),
		now:              time.Now,
		accountChunkSize: defaultAccountChunkSize,
		entryChunkSize:   defaultEntryChunkSize,
		pageSize:         defaultEntryPageSize,
		maxPages:         defaultEntryMaxPages,
	}
}

// run executes the full per-company pipeline for one credential and returns a
// local result. It never touches shared state; the orchestrator merges local
// results after each batch.
func (p *pipeline) run(ctx context.Context, cred models.Credential) *models.ImportResult {
	result := &models.ImportResult{}

	token := strings.TrimSpace(cred.Token)
	if token == "" {
		result.Skipped++
		return result
	}

	client, err := p.newClient(token)
	if err != nil {
		result.RecordError(credentialLabel(cred), err)
		return result
	}

	clientRow, clientCreated, err := p.store.GetOrCreateClient(ctx, cred.GroupName)
	if err != nil {
		result.RecordError(credentialLabel(cred), fmt.Errorf("client row: %w", err))
		return result
	}
	if clientCreated {
		result.ClientsCreated++
	}

	res := newResolver(token, client, p.store.CompanyByToken, p.tokenMap, p.logger).Resolve(ctx)

	if res.IsGroupToken() {
		if err := p.runGroup(ctx, client, cred, clientRow, res, result); err != nil {
			result.RecordError(credentialLabel(cred), err)
			return result
		}
	} else {
		if err := p.runSingle(ctx, client, cred, clientRow, res, result); err != nil {
			result.RecordError(credentialLabel(cred), err)
			return result
		}
	}

	result.Success++
	return result
}

// runSingle imports one standalone company under its own token.
func (p *pipeline) runSingle(ctx context.Context, client erpClient, cred models.Credential, clientRow *models.Client, res Resolution, result *models.ImportResult) error {
	company, created, err := p.store.UpsertCompany(ctx, &models.NewCompany{
		Cnpj:     res.TaxId,
		Token:    cred.Token,
		Kind:     models.CompanyKindStandalone,
		ClientId: clientRow.ID,
		ErpType:  erpTypeOrDefault(cred.ErpType),
	})
	if err != nil {
		return fmt.Errorf("upsert company: %w", err)
	}
	result.RecordCompany(created)

	if res.Temporary {
		// Nothing to fetch: the remote filters by tax id and this one is
		// synthetic. A later run may promote the id and backfill.
		p.logger.WithFields(logrus.Fields{
			"module":    "f360sync",
			"companyId": company.ID,
		}).Warn("company has temporary id; skipping account and entry import")
		return nil
	}

	return p.importCompanyData(ctx, client, company, res.TaxId, result)
}

// runGroup expands a group token: one synthetic parent row plus one child per
// candidate cnpj, every child imported under the shared token. A child
// failure is logged and the loop continues.
func (p *pipeline) runGroup(ctx context.Context, client erpClient, cred models.Credential, clientRow *models.Client, res Resolution, result *models.ImportResult) error {
	parent, created, err := p.store.UpsertCompany(ctx, &models.NewCompany{
		Cnpj:       models.NewGroupId(),
		Token:      cred.Token,
		Kind:       models.CompanyKindGroupParent,
		GroupToken: cred.Token,
		ClientId:   clientRow.ID,
		ErpType:    erpTypeOrDefault(cred.ErpType),
	})
	if err != nil {
		return fmt.Errorf("create group parent: %w", err)
	}
	result.RecordCompany(created)

	p.logger.WithFields(logrus.Fields{
		"module":   "f360sync",
		"parentId": parent.ID,
		"children": len(res.Candidates),
	}).Info("token classified as group")

	for _, childCnpj := range res.Candidates {
		child, childCreated, err := p.store.UpsertCompany(ctx, &models.NewCompany{
			Cnpj:            childCnpj,
			Token:           cred.Token,
			Kind:            models.CompanyKindGroupChild,
			GroupToken:      cred.Token,
			ParentCompanyId: &parent.ID,
			ClientId:        clientRow.ID,
			ErpType:         erpTypeOrDefault(cred.ErpType),
		})
		if err != nil {
			config.LogError(p.logger, "f360sync", "runGroup", "create group child "+childCnpj, nil, err)
			continue
		}
		result.RecordCompany(childCreated)

		if err := p.importCompanyData(ctx, client, child, childCnpj, result); err != nil {
			config.LogError(p.logger, "f360sync", "runGroup", "import group child "+childCnpj, nil, err)
		}
	}
	return nil
}

// importCompanyData runs the two importers in dependency order. Chart errors
// escalate; entry imports tolerate their own failures internally.
func (p *pipeline) importCompanyData(ctx context.Context, client erpClient, company *models.Company, cnpj string, result *models.ImportResult) error {
	accounts, err := p.importChartOfAccounts(ctx, client, company, cnpj)
	result.AccountsImported += accounts
	if err != nil {
		return err
	}

	result.EntriesImported += p.importEntries(ctx, client, company, cnpj)
	return nil
}

func erpTypeOrDefault(erpType string) string {
	if strings.TrimSpace(erpType) == "" {
		return models.ErpTypeF360
	}
	return erpType
}

func credentialLabel(cred models.Credential) string {
	if cred.GroupName != nil && *cred.GroupName != "" {
		return *cred.GroupName
	}
	return fmt.Sprintf("credential-%d", cred.ID)
}
