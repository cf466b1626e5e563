package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTimePeriodRepository implements TimePeriodRepository using GORM
type GormTimePeriodRepository struct {
	db *gorm.DB
}

// NewGormTimePeriodRepository creates a new GormTimePeriodRepository
func NewGormTimePeriodRepository(db *gorm.DB) *GormTimePeriodRepository {
	return &GormTimePeriodRepository{db: db}
}

// FindByID finds a period by its ID
func (r *GormTimePeriodRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.CustomTimePeriod, error) {
	return r.findOne(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate finds a period and locks its row on PostgreSQL
func (r *GormTimePeriodRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*ledger.CustomTimePeriod, error) {
	return r.findOne(forUpdate(r.db.WithContext(ctx)), tenantID, id)
}

func (r *GormTimePeriodRepository) findOne(db *gorm.DB, tenantID, id uuid.UUID) (*ledger.CustomTimePeriod, error) {
	var model models.CustomTimePeriodModel
	if err := db.
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists the periods of an organization ordered by from date.
// An empty organization lists every period of the tenant.
func (r *GormTimePeriodRepository) FindAll(ctx context.Context, tenantID uuid.UUID, organizationPartyID string) ([]ledger.CustomTimePeriod, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if organizationPartyID != "" {
		query = query.Where("organization_party_id = ?", organizationPartyID)
	}
	var periodModels []models.CustomTimePeriodModel
	if err := query.Order("from_date ASC, thru_date DESC").Find(&periodModels).Error; err != nil {
		return nil, err
	}
	periods := make([]ledger.CustomTimePeriod, len(periodModels))
	for i := range periodModels {
		periods[i] = *periodModels[i].ToDomain()
	}
	return periods, nil
}

// FindLastClosed returns the closed period with the latest thru date not after before
func (r *GormTimePeriodRepository) FindLastClosed(ctx context.Context, tenantID uuid.UUID, organizationPartyID string, before time.Time) (*ledger.CustomTimePeriod, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND organization_party_id = ? AND is_closed = ?", tenantID, organizationPartyID, true)
	if !before.IsZero() {
		query = query.Where("thru_date <= ?", before)
	}
	var model models.CustomTimePeriodModel
	if err := query.Order("thru_date DESC").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a period
func (r *GormTimePeriodRepository) Save(ctx context.Context, period *ledger.CustomTimePeriod) error {
	model := models.CustomTimePeriodModelFromDomain(period)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock updates a period only if the stored version is Version-1
func (r *GormTimePeriodRepository) SaveWithLock(ctx context.Context, period *ledger.CustomTimePeriod) error {
	model := models.CustomTimePeriodModelFromDomain(period)
	result := r.db.WithContext(ctx).Model(&models.CustomTimePeriodModel{}).
		Where("tenant_id = ? AND id = ? AND version = ?", period.TenantID, period.ID, period.Version-1).
		Updates(map[string]any{
			"period_name": model.PeriodName,
			"is_closed":   model.IsClosed,
			"closed_at":   model.ClosedAt,
			"version":     model.Version,
			"updated_at":  model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return concurrentModification("time period", period.ID)
	}
	return nil
}

// Ensure GormTimePeriodRepository implements TimePeriodRepository
var _ ledger.TimePeriodRepository = (*GormTimePeriodRepository)(nil)
