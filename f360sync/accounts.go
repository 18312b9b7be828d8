package f360sync

import (
	"context"
	"fmt"

	"bitbucket.org/contaflux/contabil_backend/models"
	"bitbucket.org/contaflux/contabil_backend/utils"
	"github.com/sirupsen/logrus"
)

// importChartOfAccounts fetches, normalizes and upserts the chart of accounts
// for one company. Unlike every other step, a chunk write failure escalates:
// ledger entries must never reference account codes that were not persisted.
// Returns the number of rows written.
func (p *pipeline) importChartOfAccounts(ctx context.Context, client erpClient, company *models.Company, cnpj string) (int, error) {
	raw, err := client.FetchChartOfAccounts(ctx, cnpj)
	if err != nil {
		return 0, fmt.Errorf("fetch chart of accounts: %w", err)
	}
	if len(raw) == 0 {
		return 0, nil
	}

	rows := make([]models.ChartOfAccount, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	dropped := 0
	for _, account := range raw {
		accountType, ok := MapAccountType(account.Type)
		if !ok {
			dropped++
			continue
		}
		if account.Code == "" || seen[account.Code] {
			// duplicates keep the first occurrence
			continue
		}
		seen[account.Code] = true

		row := models.ChartOfAccount{
			CompanyId:      company.ID,
			Code:           account.Code,
			Name:           account.Name,
			AccountType:    accountType,
			Level:          account.Level,
			AcceptsEntries: account.AcceptsEntries,
		}
		if account.ParentCode != "" {
			row.ParentCode = utils.NewString(account.ParentCode)
		}
		rows = append(rows, row)
	}

	if dropped > 0 {
		p.logger.WithFields(logrus.Fields{
			"module":    "f360sync",
			"companyId": company.ID,
			"dropped":   dropped,
		}).Debug("chart rows dropped: unmapped account type")
	}

	written := 0
	for _, chunk := range utils.Chunk(rows, p.accountChunkSize) {
		if err := p.store.WriteChartChunk(ctx, chunk); err != nil {
			return written, fmt.Errorf("chart of accounts chunk write: %w", err)
		}
		written += len(chunk)
	}
	return written, nil
}
