package models

import (
	"context"
	"time"

	"bitbucket.org/contaflux/contabil_backend/config"
	"gorm.io/gorm/clause"
)

type ChartOfAccount struct {
	ID             uint        `gorm:"primary_key" json:"id"`
	CompanyId      uint        `gorm:"uniqueIndex:idx_chart_company_code,priority:1;not null" json:"company_id"`
	Code           string      `gorm:"uniqueIndex:idx_chart_company_code,priority:2;size:64;not null" json:"code"`
	Name           string      `gorm:"size:255;not null" json:"name"`
	AccountType    AccountType `gorm:"size:16;not null" json:"account_type"`
	Level          int         `json:"level"`
	ParentCode     *string     `gorm:"size:64" json:"parent_code"`
	AcceptsEntries bool        `json:"accepts_entries"`
	CreatedAt      time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// UpsertChartAccountChunk writes one chunk of chart rows with conflict target
// (company_id, code). Each chunk is its own atomic write unit.
func UpsertChartAccountChunk(ctx context.Context, rows []ChartOfAccount) error {
	if len(rows) == 0 {
		return nil
	}
	return config.GetDB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "company_id"}, {Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "account_type", "level", "parent_code", "accepts_entries", "updated_at",
			}),
		}).
		Create(&rows).Error
}
