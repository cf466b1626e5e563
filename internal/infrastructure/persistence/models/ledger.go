package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GlAccountModel is the persistence model for the GlAccount aggregate root.
type GlAccountModel struct {
	TenantAggregateModel
	Code     string            `gorm:"type:varchar(32);not null;index"`
	ParentID *uuid.UUID        `gorm:"type:uuid;index"`
	Class    string            `gorm:"type:varchar(20);not null"`
	Category string            `gorm:"type:varchar(40);not null"`
	IsActive bool              `gorm:"not null"`
	Names    map[string]string `gorm:"type:jsonb;serializer:json;not null"`
}

// TableName returns the table name for GORM
func (GlAccountModel) TableName() string {
	return "gl_accounts"
}

// ToDomain converts the persistence model to a domain GlAccount.
func (m *GlAccountModel) ToDomain() *ledger.GlAccount {
	a := &ledger.GlAccount{
		Code:     m.Code,
		ParentID: m.ParentID,
		Class:    ledger.GlAccountClass(m.Class),
		Category: ledger.GlAccountCategory(m.Category),
		IsActive: m.IsActive,
		Names:    make(map[string]string, len(m.Names)),
	}
	m.PopulateTenantAggregateRoot(&a.TenantAggregateRoot)
	for k, v := range m.Names {
		a.Names[k] = v
	}
	return a
}

// FromDomain populates the persistence model from a domain GlAccount.
func (m *GlAccountModel) FromDomain(a *ledger.GlAccount) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.Code = a.Code
	m.ParentID = a.ParentID
	m.Class = string(a.Class)
	m.Category = string(a.Category)
	m.IsActive = a.IsActive
	m.Names = make(map[string]string, len(a.Names))
	for k, v := range a.Names {
		m.Names[k] = v
	}
}

// GlAccountModelFromDomain creates a new persistence model from a domain GlAccount.
func GlAccountModelFromDomain(a *ledger.GlAccount) *GlAccountModel {
	m := &GlAccountModel{}
	m.FromDomain(a)
	return m
}

// AcctgTransModel is the persistence model for the AcctgTrans aggregate root.
type AcctgTransModel struct {
	TenantAggregateModel
	OrganizationPartyID string     `gorm:"type:varchar(64);not null;index:idx_acctg_trans_org_date,priority:1"`
	TransType           string     `gorm:"type:varchar(30);not null"`
	FiscalType          string     `gorm:"type:varchar(20);not null;default:'ACTUAL'"`
	TransactionDate     time.Time  `gorm:"not null;index:idx_acctg_trans_org_date,priority:2"`
	Description         string     `gorm:"type:varchar(500)"`
	CurrencyUomID       string     `gorm:"type:varchar(3);not null"`
	IsPosted            bool       `gorm:"not null;default:false"`
	PostedDate          *time.Time ``
	PostedBy            *uuid.UUID `gorm:"type:uuid"`
	InvoiceID           string     `gorm:"type:varchar(64)"`
	PaymentID           string     `gorm:"type:varchar(64)"`
	ShipmentID          string     `gorm:"type:varchar(64)"`
	WorkEffortID        string     `gorm:"type:varchar(64)"`
	ReversalOfID        *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	// Associations
	Entries []AcctgTransEntryModel `gorm:"foreignKey:AcctgTransID;references:ID"`
}

// TableName returns the table name for GORM
func (AcctgTransModel) TableName() string {
	return "acctg_trans"
}

// ToDomain converts the persistence model to a domain AcctgTrans.
func (m *AcctgTransModel) ToDomain() *ledger.AcctgTrans {
	t := &ledger.AcctgTrans{
		OrganizationPartyID: m.OrganizationPartyID,
		TransType:           ledger.TransType(m.TransType),
		FiscalType:          ledger.FiscalType(m.FiscalType),
		TransactionDate:     m.TransactionDate.UTC(),
		Description:         m.Description,
		CurrencyUomID:       valueobject.Currency(m.CurrencyUomID),
		IsPosted:            m.IsPosted,
		PostedDate:          utcPtr(m.PostedDate),
		PostedBy:            m.PostedBy,
		InvoiceID:           m.InvoiceID,
		PaymentID:           m.PaymentID,
		ShipmentID:          m.ShipmentID,
		WorkEffortID:        m.WorkEffortID,
		ReversalOfID:        m.ReversalOfID,
		Entries:             make([]ledger.AcctgTransEntry, len(m.Entries)),
	}
	m.PopulateTenantAggregateRoot(&t.TenantAggregateRoot)
	for i := range m.Entries {
		t.Entries[i] = m.Entries[i].ToDomain()
	}
	return t
}

// FromDomain populates the persistence model from a domain AcctgTrans.
func (m *AcctgTransModel) FromDomain(t *ledger.AcctgTrans) {
	m.FromDomainTenantAggregateRoot(t.TenantAggregateRoot)
	m.OrganizationPartyID = t.OrganizationPartyID
	m.TransType = string(t.TransType)
	m.FiscalType = string(t.FiscalType)
	m.TransactionDate = t.TransactionDate
	m.Description = t.Description
	m.CurrencyUomID = string(t.CurrencyUomID)
	m.IsPosted = t.IsPosted
	m.PostedDate = t.PostedDate
	m.PostedBy = t.PostedBy
	m.InvoiceID = t.InvoiceID
	m.PaymentID = t.PaymentID
	m.ShipmentID = t.ShipmentID
	m.WorkEffortID = t.WorkEffortID
	m.ReversalOfID = t.ReversalOfID
	m.Entries = make([]AcctgTransEntryModel, len(t.Entries))
	for i := range t.Entries {
		m.Entries[i] = AcctgTransEntryModelFromDomain(t.TenantID, t.ID, &t.Entries[i])
	}
}

// AcctgTransModelFromDomain creates a new persistence model from a domain AcctgTrans.
func AcctgTransModelFromDomain(t *ledger.AcctgTrans) *AcctgTransModel {
	m := &AcctgTransModel{}
	m.FromDomain(t)
	return m
}

// AcctgTransEntryModel is the persistence model for an entry. The key is the
// transaction id plus the sequence id.
type AcctgTransEntryModel struct {
	AcctgTransID      uuid.UUID           `gorm:"type:uuid;primaryKey"`
	SeqID             string              `gorm:"type:varchar(10);primaryKey"`
	TenantID          uuid.UUID           `gorm:"type:uuid;not null;index"`
	GlAccountID       uuid.UUID           `gorm:"type:uuid;not null;index"`
	Amount            decimal.NullDecimal `gorm:"type:decimal(19,4)"`
	DebitCreditFlag   string              `gorm:"type:char(1);not null"`
	OrigAmount        decimal.NullDecimal `gorm:"type:decimal(19,4)"`
	OrigCurrencyUomID string              `gorm:"type:varchar(3)"`
	PartyID           string              `gorm:"type:varchar(64)"`
	RoleTypeID        string              `gorm:"type:varchar(64)"`
	Description       string              `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (AcctgTransEntryModel) TableName() string {
	return "acctg_trans_entries"
}

// ToDomain converts the persistence model to a domain entry.
func (m *AcctgTransEntryModel) ToDomain() ledger.AcctgTransEntry {
	return ledger.AcctgTransEntry{
		AcctgTransID:      m.AcctgTransID,
		SeqID:             m.SeqID,
		GlAccountID:       m.GlAccountID,
		Amount:            m.Amount,
		DebitCreditFlag:   ledger.DebitCreditFlag(m.DebitCreditFlag),
		OrigAmount:        m.OrigAmount,
		OrigCurrencyUomID: m.OrigCurrencyUomID,
		PartyID:           m.PartyID,
		RoleTypeID:        m.RoleTypeID,
		Description:       m.Description,
	}
}

// AcctgTransEntryModelFromDomain creates the persistence model of an entry
func AcctgTransEntryModelFromDomain(tenantID, transID uuid.UUID, e *ledger.AcctgTransEntry) AcctgTransEntryModel {
	return AcctgTransEntryModel{
		AcctgTransID:      transID,
		SeqID:             e.SeqID,
		TenantID:          tenantID,
		GlAccountID:       e.GlAccountID,
		Amount:            e.Amount,
		DebitCreditFlag:   string(e.DebitCreditFlag),
		OrigAmount:        e.OrigAmount,
		OrigCurrencyUomID: e.OrigCurrencyUomID,
		PartyID:           e.PartyID,
		RoleTypeID:        e.RoleTypeID,
		Description:       e.Description,
	}
}

// CustomTimePeriodModel is the persistence model for the CustomTimePeriod aggregate root.
type CustomTimePeriodModel struct {
	TenantAggregateModel
	OrganizationPartyID string     `gorm:"type:varchar(64);not null;index"`
	PeriodType          string     `gorm:"type:varchar(20);not null"`
	PeriodName          string     `gorm:"type:varchar(100);not null"`
	FromDate            time.Time  `gorm:"not null"`
	ThruDate            time.Time  `gorm:"not null"`
	IsClosed            bool       `gorm:"not null;default:false"`
	ClosedAt            *time.Time ``
}

// TableName returns the table name for GORM
func (CustomTimePeriodModel) TableName() string {
	return "custom_time_periods"
}

// ToDomain converts the persistence model to a domain CustomTimePeriod.
func (m *CustomTimePeriodModel) ToDomain() *ledger.CustomTimePeriod {
	p := &ledger.CustomTimePeriod{
		OrganizationPartyID: m.OrganizationPartyID,
		PeriodType:          ledger.PeriodType(m.PeriodType),
		PeriodName:          m.PeriodName,
		FromDate:            m.FromDate.UTC(),
		ThruDate:            m.ThruDate.UTC(),
		IsClosed:            m.IsClosed,
		ClosedAt:            utcPtr(m.ClosedAt),
	}
	m.PopulateTenantAggregateRoot(&p.TenantAggregateRoot)
	return p
}

// FromDomain populates the persistence model from a domain CustomTimePeriod.
func (m *CustomTimePeriodModel) FromDomain(p *ledger.CustomTimePeriod) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.OrganizationPartyID = p.OrganizationPartyID
	m.PeriodType = string(p.PeriodType)
	m.PeriodName = p.PeriodName
	m.FromDate = p.FromDate
	m.ThruDate = p.ThruDate
	m.IsClosed = p.IsClosed
	m.ClosedAt = p.ClosedAt
}

// CustomTimePeriodModelFromDomain creates a new persistence model from a domain CustomTimePeriod.
func CustomTimePeriodModelFromDomain(p *ledger.CustomTimePeriod) *CustomTimePeriodModel {
	m := &CustomTimePeriodModel{}
	m.FromDomain(p)
	return m
}

// GlAccountHistoryModel is the persistence model for a closing snapshot.
type GlAccountHistoryModel struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomTimePeriodID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_gl_account_history_period_account,priority:1"`
	GlAccountID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_gl_account_history_period_account,priority:2"`
	OrganizationPartyID string          `gorm:"type:varchar(64);not null"`
	ThruDate            time.Time       `gorm:"not null"`
	PostedDebits        decimal.Decimal `gorm:"type:decimal(19,4);not null;default:0"`
	PostedCredits       decimal.Decimal `gorm:"type:decimal(19,4);not null;default:0"`
	EndingBalance       decimal.Decimal `gorm:"type:decimal(19,4);not null;default:0"`
	CreatedAt           time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (GlAccountHistoryModel) TableName() string {
	return "gl_account_histories"
}

// ToDomain converts the persistence model to a domain GlAccountHistory.
func (m *GlAccountHistoryModel) ToDomain() ledger.GlAccountHistory {
	return ledger.GlAccountHistory{
		ID:                  m.ID,
		TenantID:            m.TenantID,
		CustomTimePeriodID:  m.CustomTimePeriodID,
		GlAccountID:         m.GlAccountID,
		OrganizationPartyID: m.OrganizationPartyID,
		ThruDate:            m.ThruDate.UTC(),
		PostedDebits:        m.PostedDebits,
		PostedCredits:       m.PostedCredits,
		EndingBalance:       m.EndingBalance,
		CreatedAt:           m.CreatedAt,
	}
}

// GlAccountHistoryModelFromDomain creates a new persistence model from a snapshot.
func GlAccountHistoryModelFromDomain(h *ledger.GlAccountHistory) GlAccountHistoryModel {
	return GlAccountHistoryModel{
		ID:                  h.ID,
		TenantID:            h.TenantID,
		CustomTimePeriodID:  h.CustomTimePeriodID,
		GlAccountID:         h.GlAccountID,
		OrganizationPartyID: h.OrganizationPartyID,
		ThruDate:            h.ThruDate,
		PostedDebits:        h.PostedDebits,
		PostedCredits:       h.PostedCredits,
		EndingBalance:       h.EndingBalance,
		CreatedAt:           h.CreatedAt,
	}
}

// LedgerModels lists the ledger models in dependency order, for AutoMigrate in tests
func LedgerModels() []any {
	return []any{
		&GlAccountModel{},
		&AcctgTransModel{},
		&AcctgTransEntryModel{},
		&CustomTimePeriodModel{},
		&GlAccountHistoryModel{},
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
