package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/contaflux/contabil_backend/config"
	"gorm.io/gorm"
)

// Client is the commercial grouping of companies (billing/ownership), distinct
// from the ERP group concept. Companies without a commercial group all share a
// single row whose GroupName is NULL.
type Client struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	GroupName *string   `gorm:"uniqueIndex;size:255" json:"group_name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetOrCreateClient returns the client row for a commercial group name,
// creating it when missing. A nil groupName selects the shared NULL-group
// client; MySQL unique indexes admit multiple NULLs, so the lookup must run
// before the insert to keep that row unique.
// Returns the client and whether it was created.
func GetOrCreateClient(ctx context.Context, groupName *string) (*Client, bool, error) {
	db := config.GetDB().WithContext(ctx)

	query := db.Model(&Client{})
	if groupName == nil {
		query = query.Where("group_name IS NULL")
	} else {
		query = query.Where("group_name = ?", *groupName)
	}

	var client Client
	err := query.Take(&client).Error
	if err == nil {
		return &client, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	client = Client{GroupName: groupName}
	if err := db.Create(&client).Error; err != nil {
		return nil, false, err
	}
	return &client, true, nil
}
