package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/anayu15/mi-gestor-sub003/internal/money"
)

// ExpenseCategory classifies an expense.
type ExpenseCategory string

const (
	CategoryRent            ExpenseCategory = "ALQUILER"
	CategoryUtilities       ExpenseCategory = "SUMINISTROS"
	CategorySoftware        ExpenseCategory = "SOFTWARE"
	CategoryOfficeSupplies  ExpenseCategory = "MATERIAL_OFICINA"
	CategoryProfessional    ExpenseCategory = "SERVICIOS_PROFESIONALES"
	CategoryTraining        ExpenseCategory = "FORMACION"
	CategoryTravel          ExpenseCategory = "VIAJES"
	CategoryVehicle         ExpenseCategory = "VEHICULO"
	CategoryInsurance       ExpenseCategory = "SEGUROS"
	CategorySelfEmployedFee ExpenseCategory = "CUOTA_AUTONOMOS"
	CategoryTelecom         ExpenseCategory = "TELEFONIA"
	CategoryAdvertising     ExpenseCategory = "PUBLICIDAD"
	CategoryBankFees        ExpenseCategory = "BANCARIOS"
	CategoryOther           ExpenseCategory = "OTROS"
)

// ExpenseCategories lists every category in display order.
var ExpenseCategories = []ExpenseCategory{
	CategoryRent, CategoryUtilities, CategorySoftware, CategoryOfficeSupplies,
	CategoryProfessional, CategoryTraining, CategoryTravel, CategoryVehicle,
	CategoryInsurance, CategorySelfEmployedFee, CategoryTelecom, CategoryAdvertising,
	CategoryBankFees, CategoryOther,
}

// IsValid reports whether c is a known category.
func (c ExpenseCategory) IsValid() bool {
	for _, known := range ExpenseCategories {
		if c == known {
			return true
		}
	}
	return false
}

// WithholdingKind says which withholding form an expense's IRPF belongs to.
type WithholdingKind string

const (
	WithholdingNone         WithholdingKind = "NINGUNA"
	WithholdingRent         WithholdingKind = "ALQUILER"    // modelo 115/180
	WithholdingProfessional WithholdingKind = "PROFESIONAL" // modelo 111/190
	WithholdingEmployment   WithholdingKind = "TRABAJO"     // modelo 111/190
	WithholdingCapital      WithholdingKind = "CAPITAL"     // modelo 123
)

// IsValid reports whether k is a known withholding kind.
func (k WithholdingKind) IsValid() bool {
	switch k {
	case WithholdingNone, WithholdingRent, WithholdingProfessional, WithholdingEmployment, WithholdingCapital:
		return true
	}
	return false
}

// Expense is a received invoice or cost (gasto).
type Expense struct {
	ID                     string
	UserID                 string
	DocumentID             *string
	Concept                string
	Category               ExpenseCategory
	SupplierName           string
	SupplierNIF            string
	SupplierIntracommunity bool
	IssueDate              time.Time
	PaidDate               *time.Time
	Paid                   bool
	Base                   decimal.Decimal
	IVARate                decimal.Decimal
	IVAAmount              decimal.Decimal
	WithholdingRate        decimal.Decimal
	WithholdingAmount      decimal.Decimal
	WithholdingKind        WithholdingKind
	Total                  decimal.Decimal
	Deductible             bool
	DeductiblePct          decimal.Decimal
	Notes                  string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// ApplyTotals recomputes IVA, withholding and total from Base and rates.
// Without a withholding kind the withholding is zero.
func (e *Expense) ApplyTotals() {
	if e.WithholdingKind == "" {
		e.WithholdingKind = WithholdingNone
	}
	if e.WithholdingKind == WithholdingNone {
		e.WithholdingRate = decimal.Zero
	}
	t := ComputeTotals(e.Base, e.IVARate, e.WithholdingRate)
	e.Base = money.Round(e.Base)
	e.IVAAmount = t.IVAAmount
	e.WithholdingAmount = t.IRPFAmount
	e.Total = t.Total
}

// DeductibleBase is the part of the base that reduces taxable income.
func (e *Expense) DeductibleBase() decimal.Decimal {
	if !e.Deductible {
		return decimal.Zero
	}
	return money.Portion(e.Base, e.DeductiblePct)
}

// DeductibleIVA is the part of the input IVA that can be offset.
func (e *Expense) DeductibleIVA() decimal.Decimal {
	if !e.Deductible {
		return decimal.Zero
	}
	return money.Portion(e.IVAAmount, e.DeductiblePct)
}
