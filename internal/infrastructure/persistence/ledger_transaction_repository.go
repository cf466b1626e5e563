package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAcctgTransRepository implements AcctgTransRepository using GORM
type GormAcctgTransRepository struct {
	db *gorm.DB
}

// NewGormAcctgTransRepository creates a new GormAcctgTransRepository
func NewGormAcctgTransRepository(db *gorm.DB) *GormAcctgTransRepository {
	return &GormAcctgTransRepository{db: db}
}

func preloadEntries(db *gorm.DB) *gorm.DB {
	return db.Order("seq_id ASC")
}

// FindByID loads a transaction with its entries
func (r *GormAcctgTransRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.AcctgTrans, error) {
	return r.findOne(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate loads a transaction and row-locks its header on PostgreSQL.
// SQLite serializes writers on its own and has no FOR UPDATE.
func (r *GormAcctgTransRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*ledger.AcctgTrans, error) {
	return r.findOne(forUpdate(r.db.WithContext(ctx)), tenantID, id)
}

func (r *GormAcctgTransRepository) findOne(db *gorm.DB, tenantID, id uuid.UUID) (*ledger.AcctgTrans, error) {
	var model models.AcctgTransModel
	if err := db.
		Preload("Entries", preloadEntries).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists transactions matching the filter and returns the total count
func (r *GormAcctgTransRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter ledger.AcctgTransFilter) ([]ledger.AcctgTrans, int64, error) {
	// Count total
	var total int64
	countQuery := r.db.WithContext(ctx).Model(&models.AcctgTransModel{}).
		Where("tenant_id = ?", tenantID)
	countQuery = r.applyFilter(countQuery, filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).Model(&models.AcctgTransModel{}).
		Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)

	page := filter.Filter.Normalize()
	sortField := ValidateSortField(page.OrderBy, AcctgTransSortFields, "transaction_date")
	sortOrder := ValidateSortOrder(page.OrderDir)

	var transModels []models.AcctgTransModel
	if err := query.
		Preload("Entries", preloadEntries).
		Order(fmt.Sprintf("%s %s, id ASC", sortField, sortOrder)).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&transModels).Error; err != nil {
		return nil, 0, err
	}

	result := make([]ledger.AcctgTrans, len(transModels))
	for i := range transModels {
		result[i] = *transModels[i].ToDomain()
	}
	return result, total, nil
}

func (r *GormAcctgTransRepository) applyFilter(query *gorm.DB, filter ledger.AcctgTransFilter) *gorm.DB {
	if filter.OrganizationPartyID != "" {
		query = query.Where("organization_party_id = ?", filter.OrganizationPartyID)
	}
	if filter.TransType != "" {
		query = query.Where("trans_type = ?", string(filter.TransType))
	}
	if filter.IsPosted != nil {
		query = query.Where("is_posted = ?", *filter.IsPosted)
	}
	if filter.FromDate != nil {
		query = query.Where("transaction_date >= ?", *filter.FromDate)
	}
	if filter.ThruDate != nil {
		query = query.Where("transaction_date < ?", *filter.ThruDate)
	}
	return query
}

// FindReversalOf returns the transaction reversing originalID, if any
func (r *GormAcctgTransRepository) FindReversalOf(ctx context.Context, tenantID, originalID uuid.UUID) (*ledger.AcctgTrans, error) {
	var model models.AcctgTransModel
	if err := r.db.WithContext(ctx).
		Preload("Entries", preloadEntries).
		Where("tenant_id = ? AND reversal_of_id = ?", tenantID, originalID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts the header and its entries
func (r *GormAcctgTransRepository) Create(ctx context.Context, trans *ledger.AcctgTrans) error {
	model := models.AcctgTransModelFromDomain(trans)
	return r.db.WithContext(ctx).Create(model).Error
}

// SaveDraft updates the header under the version check and replaces the entries
func (r *GormAcctgTransRepository) SaveDraft(ctx context.Context, trans *ledger.AcctgTrans) error {
	model := models.AcctgTransModelFromDomain(trans)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.AcctgTransModel{}).
			Where("tenant_id = ? AND id = ? AND version = ? AND is_posted = ?", trans.TenantID, trans.ID, trans.Version-1, false).
			Updates(map[string]any{
				"description":      model.Description,
				"transaction_date": model.TransactionDate,
				"currency_uom_id":  model.CurrencyUomID,
				"invoice_id":       model.InvoiceID,
				"payment_id":       model.PaymentID,
				"shipment_id":      model.ShipmentID,
				"work_effort_id":   model.WorkEffortID,
				"version":          model.Version,
				"updated_at":       model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return concurrentModification("accounting transaction", trans.ID)
		}

		if err := tx.Where("acctg_trans_id = ?", trans.ID).
			Delete(&models.AcctgTransEntryModel{}).Error; err != nil {
			return err
		}
		if len(model.Entries) == 0 {
			return nil
		}
		return tx.Create(&model.Entries).Error
	})
}

// MarkPosted stores the posting fields under the version check
func (r *GormAcctgTransRepository) MarkPosted(ctx context.Context, trans *ledger.AcctgTrans) error {
	result := r.db.WithContext(ctx).Model(&models.AcctgTransModel{}).
		Where("tenant_id = ? AND id = ? AND version = ? AND is_posted = ?", trans.TenantID, trans.ID, trans.Version-1, false).
		Updates(map[string]any{
			"is_posted":   true,
			"posted_date": trans.PostedDate,
			"posted_by":   trans.PostedBy,
			"version":     trans.Version,
			"updated_at":  trans.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return concurrentModification("accounting transaction", trans.ID)
	}
	return nil
}

// CountUnposted counts drafts of the organization dated before thru
func (r *GormAcctgTransRepository) CountUnposted(ctx context.Context, tenantID uuid.UUID, organizationPartyID string, thru time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AcctgTransModel{}).
		Where("tenant_id = ? AND organization_party_id = ? AND is_posted = ? AND transaction_date < ?",
			tenantID, organizationPartyID, false, thru).
		Count(&count).Error
	return count, err
}

// forUpdate adds a row lock when the dialect supports it
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func concurrentModification(what string, id uuid.UUID) error {
	return shared.NewConflictError(ledger.CodeConcurrentModification,
		fmt.Sprintf("%s %s was modified concurrently", what, id))
}

// Ensure GormAcctgTransRepository implements AcctgTransRepository
var _ ledger.AcctgTransRepository = (*GormAcctgTransRepository)(nil)
