package f360sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"bitbucket.org/contaflux/contabil_backend/models"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

var errUnavailable = errors.New("endpoint unavailable")

// fakeClient implements erpClient with overridable behaviors. Unset endpoints
// fail, matching a remote that rejects the call.
type fakeClient struct {
	bankAccounts   func(ctx context.Context) (any, error)
	relatedParties func(ctx context.Context) (any, error)
	report         func(ctx context.Context, start, end time.Time) (any, error)
	chart          func(ctx context.Context, cnpj string) ([]RawAccount, error)
	entries        func(ctx context.Context, cnpj string, start, end time.Time, page, pageSize int) ([]RawEntry, error)
}

func (f *fakeClient) ListBankAccounts(ctx context.Context) (any, error) {
	if f.bankAccounts == nil {
		return nil, errUnavailable
	}
	return f.bankAccounts(ctx)
}

func (f *fakeClient) ListRelatedParties(ctx context.Context) (any, error) {
	if f.relatedParties == nil {
		return nil, errUnavailable
	}
	return f.relatedParties(ctx)
}

func (f *fakeClient) GenerateReport(ctx context.Context, start, end time.Time) (any, error) {
	if f.report == nil {
		return nil, errUnavailable
	}
	return f.report(ctx, start, end)
}

func (f *fakeClient) FetchChartOfAccounts(ctx context.Context, cnpj string) ([]RawAccount, error) {
	if f.chart == nil {
		return nil, nil
	}
	return f.chart(ctx, cnpj)
}

func (f *fakeClient) FetchEntries(ctx context.Context, cnpj string, start, end time.Time, page, pageSize int) ([]RawEntry, error) {
	if f.entries == nil {
		return nil, nil
	}
	return f.entries(ctx, cnpj, start, end, page, pageSize)
}

// memStore is an in-memory store implementing the same upsert semantics as
// the models package, including the idempotency keys.
type memStore struct {
	mu        sync.Mutex
	companies []*models.Company
	clients   []*models.Client
	charts    map[string]models.ChartOfAccount
	entriesBy map[string]models.AccountingEntry

	chartErr             error
	failFirstEntryChunks int
	chartCalls           int
	entryCalls           int

	nextCompanyId uint
	nextClientId  uint
}

func newMemStore() *memStore {
	return &memStore{
		charts:    make(map[string]models.ChartOfAccount),
		entriesBy: make(map[string]models.AccountingEntry),
	}
}

func (m *memStore) CompanyByToken(ctx context.Context, token string) (*models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.companies) - 1; i >= 0; i-- {
		if m.companies[i].Token == token {
			return m.companies[i], nil
		}
	}
	return nil, nil
}

func (m *memStore) UpsertCompany(ctx context.Context, input *models.NewCompany) (*models.Company, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, company := range m.companies {
		if company.Cnpj == input.Cnpj {
			company.Token = input.Token
			return company, false, nil
		}
	}
	if strings.HasPrefix(input.Cnpj, models.GroupIdPrefix) {
		for _, company := range m.companies {
			if company.Token == input.Token && company.Kind == models.CompanyKindGroupParent {
				return company, false, nil
			}
		}
	}
	if !strings.HasPrefix(input.Cnpj, models.TempIdPrefix) && !strings.HasPrefix(input.Cnpj, models.GroupIdPrefix) {
		for _, company := range m.companies {
			if company.Token == input.Token && strings.HasPrefix(company.Cnpj, models.TempIdPrefix) {
				company.Cnpj = input.Cnpj
				return company, false, nil
			}
		}
	}
	m.nextCompanyId++
	company := &models.Company{
		ID:              m.nextCompanyId,
		Cnpj:            input.Cnpj,
		Token:           input.Token,
		Kind:            input.Kind,
		GroupToken:      input.GroupToken,
		ParentCompanyId: input.ParentCompanyId,
		ClientId:        input.ClientId,
		ErpType:         input.ErpType,
	}
	m.companies = append(m.companies, company)
	return company, true, nil
}

func (m *memStore) GetOrCreateClient(ctx context.Context, groupName *string) (*models.Client, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, client := range m.clients {
		if groupName == nil && client.GroupName == nil {
			return client, false, nil
		}
		if groupName != nil && client.GroupName != nil && *groupName == *client.GroupName {
			return client, false, nil
		}
	}
	m.nextClientId++
	client := &models.Client{ID: m.nextClientId, GroupName: groupName}
	m.clients = append(m.clients, client)
	return client, true, nil
}

func (m *memStore) WriteChartChunk(ctx context.Context, rows []models.ChartOfAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chartCalls++
	if m.chartErr != nil {
		return m.chartErr
	}
	for _, row := range rows {
		key := fmt.Sprintf("%d|%s", row.CompanyId, row.Code)
		m.charts[key] = row
	}
	return nil
}

func (m *memStore) WriteEntryChunk(ctx context.Context, rows []models.AccountingEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entryCalls++
	if m.failFirstEntryChunks > 0 {
		m.failFirstEntryChunks--
		return errors.New("deadlock found when trying to get lock")
	}
	for _, row := range rows {
		key := fmt.Sprintf("%d|%s|%s|%s", row.CompanyId, row.SourceErp, row.SourceId, row.EntryDate.Format("2006-01-02"))
		m.entriesBy[key] = row
	}
	return nil
}

func newTestPipeline(client erpClient, st store) *pipeline {
	return &pipeline{
		newClient:        func(token string) (erpClient, error) { return client, nil },
		store:            st,
		logger:           testLogger(),
		now:              func() time.Time { return time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC) },
		accountChunkSize: defaultAccountChunkSize,
		entryChunkSize:   defaultEntryChunkSize,
		pageSize:         defaultEntryPageSize,
		maxPages:         defaultEntryMaxPages,
	}
}
