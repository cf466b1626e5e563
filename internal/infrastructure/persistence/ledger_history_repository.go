package persistence

import (
	"context"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// historyBatchSize bounds the rows per INSERT when a period with a large chart closes
const historyBatchSize = 200

// GormGlAccountHistoryRepository implements GlAccountHistoryRepository using GORM
type GormGlAccountHistoryRepository struct {
	db *gorm.DB
}

// NewGormGlAccountHistoryRepository creates a new GormGlAccountHistoryRepository
func NewGormGlAccountHistoryRepository(db *gorm.DB) *GormGlAccountHistoryRepository {
	return &GormGlAccountHistoryRepository{db: db}
}

// FindByPeriod returns the snapshots written when the period closed
func (r *GormGlAccountHistoryRepository) FindByPeriod(ctx context.Context, tenantID, periodID uuid.UUID) ([]ledger.GlAccountHistory, error) {
	var historyModels []models.GlAccountHistoryModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND custom_time_period_id = ?", tenantID, periodID).
		Find(&historyModels).Error; err != nil {
		return nil, err
	}
	histories := make([]ledger.GlAccountHistory, len(historyModels))
	for i := range historyModels {
		histories[i] = historyModels[i].ToDomain()
	}
	return histories, nil
}

// SaveAll inserts the snapshots in batches
func (r *GormGlAccountHistoryRepository) SaveAll(ctx context.Context, histories []ledger.GlAccountHistory) error {
	if len(histories) == 0 {
		return nil
	}
	historyModels := make([]models.GlAccountHistoryModel, len(histories))
	for i := range histories {
		historyModels[i] = models.GlAccountHistoryModelFromDomain(&histories[i])
	}
	return r.db.WithContext(ctx).CreateInBatches(historyModels, historyBatchSize).Error
}

// Ensure GormGlAccountHistoryRepository implements GlAccountHistoryRepository
var _ ledger.GlAccountHistoryRepository = (*GormGlAccountHistoryRepository)(nil)
