package model

import (
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TaxpayerKind distinguishes self-employed individuals from companies.
type TaxpayerKind string

const (
	TaxpayerSelfEmployed TaxpayerKind = "AUTONOMO"
	TaxpayerCompany      TaxpayerKind = "SOCIEDAD"
)

// IRPFMethod is how income tax is estimated.
type IRPFMethod string

const (
	IRPFDirectSimplified IRPFMethod = "DIRECTA_SIMPLIFICADA"
	IRPFDirectNormal     IRPFMethod = "DIRECTA_NORMAL"
	IRPFObjective        IRPFMethod = "OBJETIVA"
)

// IVARegime is the VAT regime of the business.
type IVARegime string

const (
	IVAGeneral   IVARegime = "GENERAL"
	IVASurcharge IVARegime = "RECARGO_EQUIVALENCIA"
	IVAExempt    IVARegime = "EXENTO"
)

// AEAT form numbers.
const (
	Modelo111 = "111"
	Modelo115 = "115"
	Modelo123 = "123"
	Modelo130 = "130"
	Modelo131 = "131"
	Modelo180 = "180"
	Modelo190 = "190"
	Modelo303 = "303"
	Modelo347 = "347"
	Modelo349 = "349"
	Modelo390 = "390"
)

// KnownModelos lists every form the service can compute.
var KnownModelos = []string{
	Modelo111, Modelo115, Modelo123, Modelo130, Modelo131, Modelo180,
	Modelo190, Modelo303, Modelo347, Modelo349, Modelo390,
}

// FiscalPreferences describe the user's tax situation.
type FiscalPreferences struct {
	UserID            string
	TaxpayerKind      TaxpayerKind
	IRPFMethod        IRPFMethod
	IVARegime         IVARegime
	HasRentedPremises bool
	HasEmployees      bool
	EmployeeCount     int
	IntracommunityOps bool
	ModulesYield      decimal.Decimal
	ModelosOverride   []string
	UpdatedAt         time.Time
}

// DefaultFiscalPreferences is a self-employed professional in simplified
// direct estimation under the general VAT regime.
func DefaultFiscalPreferences(userID string) *FiscalPreferences {
	return &FiscalPreferences{
		UserID:       userID,
		TaxpayerKind: TaxpayerSelfEmployed,
		IRPFMethod:   IRPFDirectSimplified,
		IVARegime:    IVAGeneral,
		ModulesYield: decimal.Zero,
	}
}

// Valid reports whether every enumerated field holds a known value.
func (p *FiscalPreferences) Valid() bool {
	switch p.TaxpayerKind {
	case TaxpayerSelfEmployed, TaxpayerCompany:
	default:
		return false
	}
	switch p.IRPFMethod {
	case IRPFDirectSimplified, IRPFDirectNormal, IRPFObjective:
	default:
		return false
	}
	switch p.IVARegime {
	case IVAGeneral, IVASurcharge, IVAExempt:
	default:
		return false
	}
	for _, m := range p.ModelosOverride {
		if !slices.Contains(KnownModelos, m) {
			return false
		}
	}
	return p.EmployeeCount >= 0 && !p.ModulesYield.IsNegative()
}

// RequiredModelos derives the forms the user must file, sorted by number.
// A non-empty override replaces the derived list.
func (p *FiscalPreferences) RequiredModelos() []string {
	if len(p.ModelosOverride) > 0 {
		out := slices.Clone(p.ModelosOverride)
		sort.Strings(out)
		return slices.Compact(out)
	}

	var out []string
	if p.IVARegime != IVAExempt {
		out = append(out, Modelo303, Modelo390)
	}
	if p.TaxpayerKind == TaxpayerSelfEmployed {
		switch p.IRPFMethod {
		case IRPFDirectSimplified, IRPFDirectNormal:
			out = append(out, Modelo130)
		case IRPFObjective:
			out = append(out, Modelo131)
		}
	}
	if p.HasRentedPremises {
		out = append(out, Modelo115, Modelo180)
	}
	if p.HasEmployees {
		out = append(out, Modelo111, Modelo190)
	}
	if p.IntracommunityOps {
		out = append(out, Modelo349)
	}
	out = append(out, Modelo347)

	sort.Strings(out)
	return out
}
