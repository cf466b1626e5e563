package ledger

import (
	"regexp"
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GlAccountClass is the top-level classification of a chart-of-accounts node
type GlAccountClass string

const (
	ClassAsset     GlAccountClass = "ASSET"
	ClassLiability GlAccountClass = "LIABILITY"
	ClassEquity    GlAccountClass = "EQUITY"
	ClassRevenue   GlAccountClass = "REVENUE"
	ClassExpense   GlAccountClass = "EXPENSE"
)

// IsValid checks if the class is a known value
func (c GlAccountClass) IsValid() bool {
	switch c {
	case ClassAsset, ClassLiability, ClassEquity, ClassRevenue, ClassExpense:
		return true
	}
	return false
}

// IsIncomeStatement reports whether balances of this class close to earnings
func (c GlAccountClass) IsIncomeStatement() bool {
	return c == ClassRevenue || c == ClassExpense
}

// String returns the string representation
func (c GlAccountClass) String() string {
	return string(c)
}

// GlAccountCategory refines the class for report bucketing
type GlAccountCategory string

const (
	CategoryGeneral                 GlAccountCategory = "GENERAL"
	CategoryCash                    GlAccountCategory = "CASH"
	CategoryReceivable              GlAccountCategory = "RECEIVABLE"
	CategoryInventory               GlAccountCategory = "INVENTORY"
	CategoryFixedAsset              GlAccountCategory = "FIXED_ASSET"
	CategoryAccumulatedDepreciation GlAccountCategory = "ACCUMULATED_DEPRECIATION"
	CategoryPayable                 GlAccountCategory = "PAYABLE"
	CategoryRetainedEarnings        GlAccountCategory = "RETAINED_EARNINGS"
	CategoryRevenue                 GlAccountCategory = "REVENUE"
	CategoryContraRevenue           GlAccountCategory = "CONTRA_REVENUE"
	CategoryOtherIncome             GlAccountCategory = "OTHER_INCOME"
	CategoryCOGS                    GlAccountCategory = "COGS"
	CategorySGA                     GlAccountCategory = "SGA"
	CategoryDepreciation            GlAccountCategory = "DEPRECIATION"
	CategoryOtherExpense            GlAccountCategory = "OTHER_EXPENSE"
)

// categoryClass maps each category to the only class it may be used with.
// GENERAL is allowed everywhere and is not listed.
var categoryClass = map[GlAccountCategory]GlAccountClass{
	CategoryCash:                    ClassAsset,
	CategoryReceivable:              ClassAsset,
	CategoryInventory:               ClassAsset,
	CategoryFixedAsset:              ClassAsset,
	CategoryAccumulatedDepreciation: ClassAsset,
	CategoryPayable:                 ClassLiability,
	CategoryRetainedEarnings:        ClassEquity,
	CategoryRevenue:                 ClassRevenue,
	CategoryContraRevenue:           ClassRevenue,
	CategoryOtherIncome:             ClassRevenue,
	CategoryCOGS:                    ClassExpense,
	CategorySGA:                     ClassExpense,
	CategoryDepreciation:            ClassExpense,
	CategoryOtherExpense:            ClassExpense,
}

// IsValid checks if the category is a known value
func (c GlAccountCategory) IsValid() bool {
	if c == CategoryGeneral {
		return true
	}
	_, ok := categoryClass[c]
	return ok
}

// AllowedFor reports whether the category can be used on an account of class
func (c GlAccountCategory) AllowedFor(class GlAccountClass) bool {
	if c == CategoryGeneral {
		return true
	}
	return categoryClass[c] == class
}

// IsContra reports whether the category carries the opposite normal balance of its class
func (c GlAccountCategory) IsContra() bool {
	return c == CategoryContraRevenue || c == CategoryAccumulatedDepreciation
}

var accountCodePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,31}$`)

// GlAccount is a node of the chart of accounts
type GlAccount struct {
	shared.TenantAggregateRoot
	Code     string
	ParentID *uuid.UUID
	Class    GlAccountClass
	Category GlAccountCategory
	IsActive bool
	// Names holds the display name per language code (en, ar, tr, ...)
	Names map[string]string
}

// NewGlAccount creates a new active GL account with its default (English) name
func NewGlAccount(tenantID uuid.UUID, code string, class GlAccountClass, category GlAccountCategory, name string) (*GlAccount, error) {
	code = strings.TrimSpace(code)
	if !accountCodePattern.MatchString(code) {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_CODE", "Account code must be 1-32 letters, digits, dots, dashes or underscores")
	}
	if !class.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_CLASS", "Account class is not valid")
	}
	if category == "" {
		category = CategoryGeneral
	}
	if !category.IsValid() || !category.AllowedFor(class) {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_CATEGORY", "Account category "+string(category)+" cannot be used with class "+string(class))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_NAME", "Account name cannot be empty")
	}

	return &GlAccount{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Class:               class,
		Category:            category,
		IsActive:            true,
		Names:               map[string]string{DefaultLanguage: name},
	}, nil
}

// NormalBalance returns the side on which the account normally carries its balance
func (a *GlAccount) NormalBalance() DebitCreditFlag {
	debitNormal := a.Class == ClassAsset || a.Class == ClassExpense
	if a.Category.IsContra() {
		debitNormal = !debitNormal
	}
	if debitNormal {
		return Debit
	}
	return Credit
}

// NormalSign is +1 for debit-normal accounts and -1 for credit-normal ones.
// Multiplying a debit-positive balance by it yields the balance in the account's own sign.
func (a *GlAccount) NormalSign() decimal.Decimal {
	if a.NormalBalance() == Debit {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(-1)
}

// SetParent attaches the account under parent. Nil detaches it.
func (a *GlAccount) SetParent(parent *GlAccount) error {
	if parent == nil {
		a.ParentID = nil
		a.touch()
		return nil
	}
	if parent.ID == a.ID {
		return shared.NewValidationError(CodeInvalidAccountParent, "An account cannot be its own parent")
	}
	if parent.TenantID != a.TenantID {
		return shared.NewValidationError(CodeInvalidAccountParent, "Parent account belongs to another tenant")
	}
	if parent.Class != a.Class {
		return shared.NewValidationError(CodeInvalidAccountParent, "Parent account must have the same class")
	}
	id := parent.ID
	a.ParentID = &id
	a.touch()
	return nil
}

// SetName sets the display name for an already canonicalized language code
func (a *GlAccount) SetName(lang, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_ACCOUNT_NAME", "Account name cannot be empty")
	}
	if a.Names == nil {
		a.Names = make(map[string]string)
	}
	a.Names[lang] = name
	a.touch()
	return nil
}

// Deactivate stops the account from receiving new entries
func (a *GlAccount) Deactivate() {
	if !a.IsActive {
		return
	}
	a.IsActive = false
	a.touch()
}

// Activate re-enables the account
func (a *GlAccount) Activate() {
	if a.IsActive {
		return
	}
	a.IsActive = true
	a.touch()
}

func (a *GlAccount) touch() {
	a.Touch(nowUTC())
}
