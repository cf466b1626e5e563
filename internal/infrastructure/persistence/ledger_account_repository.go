package persistence

import (
	"context"
	"errors"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormGlAccountRepository implements GlAccountRepository using GORM
type GormGlAccountRepository struct {
	db *gorm.DB
}

// NewGormGlAccountRepository creates a new GormGlAccountRepository
func NewGormGlAccountRepository(db *gorm.DB) *GormGlAccountRepository {
	return &GormGlAccountRepository{db: db}
}

// FindByID finds an account by its ID for a tenant
func (r *GormGlAccountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.GlAccount, error) {
	var model models.GlAccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs loads the given accounts keyed by id. Unknown ids are absent from the map.
func (r *GormGlAccountRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*ledger.GlAccount, error) {
	result := make(map[uuid.UUID]*ledger.GlAccount, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var accountModels []models.GlAccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&accountModels).Error; err != nil {
		return nil, err
	}
	for i := range accountModels {
		a := accountModels[i].ToDomain()
		result[a.ID] = a
	}
	return result, nil
}

// FindByCode finds an account by its code
func (r *GormGlAccountRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*ledger.GlAccount, error) {
	var model models.GlAccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns the chart of accounts of a tenant ordered by code
func (r *GormGlAccountRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]ledger.GlAccount, error) {
	var accountModels []models.GlAccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("code ASC").
		Find(&accountModels).Error; err != nil {
		return nil, err
	}
	return glAccountsToDomain(accountModels), nil
}

// FindChildren returns the direct children of an account ordered by code
func (r *GormGlAccountRepository) FindChildren(ctx context.Context, tenantID, parentID uuid.UUID) ([]ledger.GlAccount, error) {
	var accountModels []models.GlAccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND parent_id = ?", tenantID, parentID).
		Order("code ASC").
		Find(&accountModels).Error; err != nil {
		return nil, err
	}
	return glAccountsToDomain(accountModels), nil
}

// Save creates or updates an account
func (r *GormGlAccountRepository) Save(ctx context.Context, account *ledger.GlAccount) error {
	model := models.GlAccountModelFromDomain(account)
	return r.db.WithContext(ctx).Save(model).Error
}

func glAccountsToDomain(accountModels []models.GlAccountModel) []ledger.GlAccount {
	accounts := make([]ledger.GlAccount, len(accountModels))
	for i := range accountModels {
		accounts[i] = *accountModels[i].ToDomain()
	}
	return accounts
}

// Ensure GormGlAccountRepository implements GlAccountRepository
var _ ledger.GlAccountRepository = (*GormGlAccountRepository)(nil)
