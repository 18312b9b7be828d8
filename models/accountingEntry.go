package models

import (
	"context"
	"time"

	"bitbucket.org/contaflux/contabil_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

type AccountingEntry struct {
	ID             uint            `gorm:"primary_key" json:"id"`
	CompanyId      uint            `gorm:"uniqueIndex:idx_entry_source,priority:1;not null" json:"company_id"`
	EntryDate      time.Time       `gorm:"uniqueIndex:idx_entry_source,priority:4;type:date;not null" json:"entry_date"`
	CompetenceDate time.Time       `gorm:"type:date" json:"competence_date"`
	DocumentNumber string          `gorm:"size:64" json:"document_number"`
	Description    string          `gorm:"size:512" json:"description"`
	AccountCode    string          `gorm:"index;size:64;not null" json:"account_code"`
	DebitAmount    decimal.Decimal `gorm:"type:decimal(18,2)" json:"debit_amount"`
	CreditAmount   decimal.Decimal `gorm:"type:decimal(18,2)" json:"credit_amount"`
	CostCenter     string          `gorm:"size:64" json:"cost_center"`
	ProjectCode    string          `gorm:"size:64" json:"project_code"`
	SourceErp      string          `gorm:"uniqueIndex:idx_entry_source,priority:2;size:20;not null" json:"source_erp"`
	SourceId       string          `gorm:"uniqueIndex:idx_entry_source,priority:3;size:128" json:"source_id"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// UpsertAccountingEntryChunk writes one chunk of ledger entries with conflict
// target (company_id, source_erp, source_id, entry_date) — the idempotency key
// that makes repeated syncs safe.
func UpsertAccountingEntryChunk(ctx context.Context, rows []AccountingEntry) error {
	if len(rows) == 0 {
		return nil
	}
	return config.GetDB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "company_id"}, {Name: "source_erp"}, {Name: "source_id"}, {Name: "entry_date"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"competence_date", "document_number", "description", "account_code",
				"debit_amount", "credit_amount", "cost_center", "project_code", "updated_at",
			}),
		}).
		Create(&rows).Error
}

// CountEntriesByCompany is a reporting helper used by the service endpoints.
func CountEntriesByCompany(ctx context.Context, companyId uint) (int64, error) {
	var count int64
	err := config.GetDB().WithContext(ctx).
		Model(&AccountingEntry{}).
		Where("company_id = ?", companyId).
		Count(&count).Error
	return count, err
}
