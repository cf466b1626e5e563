package ledger

import (
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// ChartEntry describes one account of a predefined chart
type ChartEntry struct {
	Code       string
	ParentCode string
	Class      GlAccountClass
	Category   GlAccountCategory
	Names      map[string]string
}

// DefaultChart is a compact trading-company chart with English, Arabic and Turkish names.
// Codes follow the usual ranges: 1xxx assets, 2xxx liabilities, 3xxx equity,
// 4xxx revenue, 5xxx expenses.
var DefaultChart = []ChartEntry{
	{Code: "1000", Class: ClassAsset, Category: CategoryGeneral, Names: names("Assets", "الأصول", "Varlıklar")},
	{Code: "1100", ParentCode: "1000", Class: ClassAsset, Category: CategoryCash, Names: names("Cash", "النقدية", "Kasa")},
	{Code: "1110", ParentCode: "1000", Class: ClassAsset, Category: CategoryCash, Names: names("Bank", "البنك", "Bankalar")},
	{Code: "1200", ParentCode: "1000", Class: ClassAsset, Category: CategoryReceivable, Names: names("Accounts Receivable", "الذمم المدينة", "Ticari Alacaklar")},
	{Code: "1300", ParentCode: "1000", Class: ClassAsset, Category: CategoryInventory, Names: names("Inventory", "المخزون", "Stoklar")},
	{Code: "1500", ParentCode: "1000", Class: ClassAsset, Category: CategoryFixedAsset, Names: names("Fixed Assets", "الأصول الثابتة", "Maddi Duran Varlıklar")},
	{Code: "1510", ParentCode: "1000", Class: ClassAsset, Category: CategoryAccumulatedDepreciation, Names: names("Accumulated Depreciation", "مجمع الإهلاك", "Birikmiş Amortismanlar")},
	{Code: "2000", Class: ClassLiability, Category: CategoryGeneral, Names: names("Liabilities", "الخصوم", "Yükümlülükler")},
	{Code: "2100", ParentCode: "2000", Class: ClassLiability, Category: CategoryPayable, Names: names("Accounts Payable", "الذمم الدائنة", "Ticari Borçlar")},
	{Code: "2200", ParentCode: "2000", Class: ClassLiability, Category: CategoryGeneral, Names: names("Taxes Payable", "الضرائب المستحقة", "Ödenecek Vergiler")},
	{Code: "3000", Class: ClassEquity, Category: CategoryGeneral, Names: names("Equity", "حقوق الملكية", "Özkaynaklar")},
	{Code: "3100", ParentCode: "3000", Class: ClassEquity, Category: CategoryGeneral, Names: names("Share Capital", "رأس المال", "Sermaye")},
	{Code: "3200", ParentCode: "3000", Class: ClassEquity, Category: CategoryRetainedEarnings, Names: names("Retained Earnings", "الأرباح المحتجزة", "Geçmiş Yıllar Kârları")},
	{Code: "4000", Class: ClassRevenue, Category: CategoryGeneral, Names: names("Revenue", "الإيرادات", "Gelirler")},
	{Code: "4100", ParentCode: "4000", Class: ClassRevenue, Category: CategoryRevenue, Names: names("Sales Revenue", "إيرادات المبيعات", "Satış Gelirleri")},
	{Code: "4200", ParentCode: "4000", Class: ClassRevenue, Category: CategoryContraRevenue, Names: names("Sales Returns and Discounts", "مردودات وخصومات المبيعات", "Satış İadeleri ve İndirimleri")},
	{Code: "4900", ParentCode: "4000", Class: ClassRevenue, Category: CategoryOtherIncome, Names: names("Other Income", "إيرادات أخرى", "Diğer Gelirler")},
	{Code: "5000", Class: ClassExpense, Category: CategoryGeneral, Names: names("Expenses", "المصروفات", "Giderler")},
	{Code: "5100", ParentCode: "5000", Class: ClassExpense, Category: CategoryCOGS, Names: names("Cost of Goods Sold", "تكلفة البضاعة المباعة", "Satılan Malın Maliyeti")},
	{Code: "5200", ParentCode: "5000", Class: ClassExpense, Category: CategorySGA, Names: names("Salaries and Wages", "الرواتب والأجور", "Maaş ve Ücretler")},
	{Code: "5300", ParentCode: "5000", Class: ClassExpense, Category: CategorySGA, Names: names("Rent", "الإيجار", "Kira Giderleri")},
	{Code: "5400", ParentCode: "5000", Class: ClassExpense, Category: CategoryDepreciation, Names: names("Depreciation Expense", "مصروف الإهلاك", "Amortisman Giderleri")},
	{Code: "5900", ParentCode: "5000", Class: ClassExpense, Category: CategoryOtherExpense, Names: names("Other Expenses", "مصروفات أخرى", "Diğer Giderler")},
}

func names(en, ar, tr string) map[string]string {
	return map[string]string{"en": en, "ar": ar, "tr": tr}
}

// BuildChart turns chart entries into accounts for a tenant, wiring parents by code.
// Entries must list a parent before its children.
func BuildChart(tenantID uuid.UUID, entries []ChartEntry) ([]*GlAccount, error) {
	byCode := make(map[string]*GlAccount, len(entries))
	out := make([]*GlAccount, 0, len(entries))
	for _, e := range entries {
		acc, err := NewGlAccount(tenantID, e.Code, e.Class, e.Category, e.Names[DefaultLanguage])
		if err != nil {
			return nil, err
		}
		for lang, n := range e.Names {
			if err := acc.SetName(lang, n); err != nil {
				return nil, err
			}
		}
		if e.ParentCode != "" {
			parent, ok := byCode[e.ParentCode]
			if !ok {
				return nil, shared.NewValidationError(CodeInvalidAccountParent, "parent account "+e.ParentCode+" of "+e.Code+" is not defined earlier in the chart")
			}
			if err := acc.SetParent(parent); err != nil {
				return nil, err
			}
		}
		acc.Version = 1
		byCode[e.Code] = acc
		out = append(out, acc)
	}
	return out, nil
}
