package models

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"bitbucket.org/contaflux/contabil_backend/config"
	"bitbucket.org/contaflux/contabil_backend/utils"
	"gorm.io/gorm"
)

const (
	// TempIdPrefix marks a synthetic tax id assigned when identity resolution
	// found nothing. A later sync may replace it with the real CNPJ.
	TempIdPrefix = "TEMP-"

	// GroupIdPrefix marks the synthetic id of a group umbrella row.
	GroupIdPrefix = "GROUP-"
)

type Company struct {
	ID              uint        `gorm:"primary_key" json:"id"`
	Cnpj            string      `gorm:"uniqueIndex;size:64;not null" json:"cnpj"`
	LegalName       string      `gorm:"size:255" json:"legal_name"`
	TradeName       string      `gorm:"size:255" json:"trade_name"`
	AddressStreet   string      `gorm:"size:255" json:"address_street"`
	AddressCity     string      `gorm:"size:128" json:"address_city"`
	AddressState    string      `gorm:"size:64" json:"address_state"`
	AddressZip      string      `gorm:"size:32" json:"address_zip"`
	Token           string      `gorm:"index;size:255;not null" json:"-"`
	Kind            CompanyKind `gorm:"size:20;not null;default:'standalone'" json:"kind"`
	GroupToken      string      `gorm:"index;size:255" json:"group_token"`
	ParentCompanyId *uint       `gorm:"index" json:"parent_company_id"`
	ClientId        uint        `gorm:"index" json:"client_id"`
	ErpType         string      `gorm:"size:20;not null" json:"erp_type"`
	Active          *bool       `gorm:"not null;default:true" json:"active"`
	LastSync        *time.Time  `json:"last_sync"`
	CreatedAt       time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Company) IsGroup() bool {
	return c.Kind == CompanyKindGroupParent
}

// HasTemporaryId reports whether the cnpj column still holds a synthetic id
// (TEMP- from failed resolution, GROUP- for umbrella rows).
func (c *Company) HasTemporaryId() bool {
	return strings.HasPrefix(c.Cnpj, TempIdPrefix) || strings.HasPrefix(c.Cnpj, GroupIdPrefix)
}

// NewTemporaryId synthesizes a placeholder tax id so the pipeline can proceed
// when every resolution heuristic failed.
func NewTemporaryId() string {
	return fmt.Sprintf("%s%d-%04d", TempIdPrefix, time.Now().Unix(), rand.Intn(10000))
}

// NewGroupId synthesizes the umbrella id for a group token.
func NewGroupId() string {
	return fmt.Sprintf("%s%d", GroupIdPrefix, time.Now().Unix())
}

// NewCompany carries the mutable inputs for create-or-update. Identity fields
// (cnpj, kind, parent linkage) are fixed at creation and never overwritten by
// a re-sync, except for the temporary-id to real-CNPJ promotion below.
type NewCompany struct {
	Cnpj            string
	LegalName       string
	TradeName       string
	AddressStreet   string
	AddressCity     string
	AddressState    string
	AddressZip      string
	Token           string
	Kind            CompanyKind
	GroupToken      string
	ParentCompanyId *uint
	ClientId        uint
	ErpType         string
}

func (input *NewCompany) validate() error {
	if strings.TrimSpace(input.Cnpj) == "" {
		return errors.New("cnpj is required")
	}
	if strings.TrimSpace(input.Token) == "" {
		return errors.New("token is required")
	}
	switch input.Kind {
	case CompanyKindStandalone:
		if input.ParentCompanyId != nil {
			return errors.New("standalone company cannot have a parent")
		}
	case CompanyKindGroupParent:
		if input.ParentCompanyId != nil {
			return errors.New("group parent cannot have a parent")
		}
		if input.GroupToken == "" {
			return errors.New("group parent requires a group token")
		}
	case CompanyKindGroupChild:
		if input.ParentCompanyId == nil || *input.ParentCompanyId == 0 {
			return errors.New("group child requires a parent company")
		}
		if input.GroupToken == "" {
			return errors.New("group child requires a group token")
		}
	default:
		return errors.New("invalid company kind")
	}
	return nil
}

// GetCompanyByToken returns the most recent company row created for a token,
// or nil when none exists.
func GetCompanyByToken(ctx context.Context, token string) (*Company, error) {
	var company Company
	err := config.GetDB().WithContext(ctx).
		Where("token = ?", token).
		Order("id DESC").
		Take(&company).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &company, nil
}

// GetCompanyByCnpj returns the company row for a tax id, or nil when none exists.
func GetCompanyByCnpj(ctx context.Context, cnpj string) (*Company, error) {
	var company Company
	err := config.GetDB().WithContext(ctx).
		Where("cnpj = ?", cnpj).
		Take(&company).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &company, nil
}

// UpsertCompany is the manual select-then-insert-or-update write for companies.
// Conflict-key upserts do not fit here because identity evolves over time: a row
// created with a TEMP- id must later adopt the real CNPJ resolved for its token.
// Returns the persisted row and whether it was created.
func UpsertCompany(ctx context.Context, input *NewCompany) (*Company, bool, error) {
	if err := input.validate(); err != nil {
		return nil, false, err
	}
	db := config.GetDB().WithContext(ctx)

	existing, err := GetCompanyByCnpj(ctx, input.Cnpj)
	if err != nil {
		return nil, false, err
	}
	if existing == nil && strings.HasPrefix(input.Cnpj, GroupIdPrefix) {
		// A group parent is identified by its token, not its synthetic id:
		// each run mints a fresh GROUP- id, and the row from the first run
		// must be reused rather than duplicated.
		parent, perr := getGroupParentByToken(ctx, input.Token)
		if perr != nil {
			return nil, false, perr
		}
		existing = parent
	}
	if existing == nil && !strings.HasPrefix(input.Cnpj, TempIdPrefix) && !strings.HasPrefix(input.Cnpj, GroupIdPrefix) {
		// Promote a temporary row created for this token in an earlier run.
		byToken, terr := GetCompanyByToken(ctx, input.Token)
		if terr != nil {
			return nil, false, terr
		}
		if byToken != nil && strings.HasPrefix(byToken.Cnpj, TempIdPrefix) {
			existing = byToken
		}
	}

	now := time.Now()
	if existing != nil {
		cnpj := input.Cnpj
		if strings.HasPrefix(existing.Cnpj, GroupIdPrefix) && strings.HasPrefix(input.Cnpj, GroupIdPrefix) {
			// keep the parent's original synthetic id stable across runs
			cnpj = existing.Cnpj
		}
		updates := map[string]interface{}{
			"cnpj":           cnpj,
			"legal_name":     input.LegalName,
			"trade_name":     input.TradeName,
			"address_street": input.AddressStreet,
			"address_city":   input.AddressCity,
			"address_state":  input.AddressState,
			"address_zip":    input.AddressZip,
			"token":          input.Token,
			"last_sync":      now,
		}
		if input.ClientId > 0 {
			updates["client_id"] = input.ClientId
		}
		if err := db.Model(existing).Updates(updates).Error; err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	company := Company{
		Cnpj:            input.Cnpj,
		LegalName:       input.LegalName,
		TradeName:       input.TradeName,
		AddressStreet:   input.AddressStreet,
		AddressCity:     input.AddressCity,
		AddressState:    input.AddressState,
		AddressZip:      input.AddressZip,
		Token:           input.Token,
		Kind:            input.Kind,
		GroupToken:      input.GroupToken,
		ParentCompanyId: input.ParentCompanyId,
		ClientId:        input.ClientId,
		ErpType:         input.ErpType,
		Active:          utils.NewTrue(),
		LastSync:        &now,
	}
	if err := db.Create(&company).Error; err != nil {
		return nil, false, err
	}
	return &company, true, nil
}

func getGroupParentByToken(ctx context.Context, token string) (*Company, error) {
	var parent Company
	err := config.GetDB().WithContext(ctx).
		Where("token = ? AND kind = ?", token, CompanyKindGroupParent).
		Take(&parent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &parent, nil
}

// GetGroupChildren lists the child companies of a group parent.
func GetGroupChildren(ctx context.Context, parentId uint) ([]Company, error) {
	var children []Company
	err := config.GetDB().WithContext(ctx).
		Where("parent_company_id = ?", parentId).
		Order("id").
		Find(&children).Error
	return children, err
}
