package f360sync

import (
	"context"

	"bitbucket.org/contaflux/contabil_backend/models"
)

// store is the persistence seam of the pipeline. The production
// implementation delegates to the models package; tests swap in a memory
// store.
type store interface {
	CompanyByToken(ctx context.Context, token string) (*models.Company, error)
	UpsertCompany(ctx context.Context, input *models.NewCompany) (*models.Company, bool, error)
	GetOrCreateClient(ctx context.Context, groupName *string) (*models.Client, bool, error)
	WriteChartChunk(ctx context.Context, rows []models.ChartOfAccount) error
	WriteEntryChunk(ctx context.Context, rows []models.AccountingEntry) error
}

type dbStore struct{}

func (dbStore) CompanyByToken(ctx context.Context, token string) (*models.Company, error) {
	return models.GetCompanyByToken(ctx, token)
}

func (dbStore) UpsertCompany(ctx context.Context, input *models.NewCompany) (*models.Company, bool, error) {
	return models.UpsertCompany(ctx, input)
}

func (dbStore) GetOrCreateClient(ctx context.Context, groupName *string) (*models.Client, bool, error) {
	return models.GetOrCreateClient(ctx, groupName)
}

func (dbStore) WriteChartChunk(ctx context.Context, rows []models.ChartOfAccount) error {
	return models.UpsertChartAccountChunk(ctx, rows)
}

func (dbStore) WriteEntryChunk(ctx context.Context, rows []models.AccountingEntry) error {
	return models.UpsertAccountingEntryChunk(ctx, rows)
}
