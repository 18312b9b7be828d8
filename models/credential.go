package models

import (
	"context"
	"time"

	"bitbucket.org/contaflux/contabil_backend/config"
)

// Credential is one ERP token to sync. GroupName is the commercial grouping
// used for the clients table; nil means the shared ungrouped client.
type Credential struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	ErpType   string    `gorm:"size:20;not null;default:'F360'" json:"erp_type"`
	Token     string    `gorm:"uniqueIndex;size:255;not null" json:"-"`
	GroupName *string   `gorm:"size:255" json:"group_name"`
	Active    *bool     `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetActiveCredentials lists active credentials in insertion order.
// limit <= 0 means no cap.
func GetActiveCredentials(ctx context.Context, limit int) ([]Credential, error) {
	query := config.GetDB().WithContext(ctx).
		Where("active = ?", true).
		Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var creds []Credential
	err := query.Find(&creds).Error
	return creds, err
}
