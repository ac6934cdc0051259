package tax

import (
	"github.com/shopspring/decimal"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/money"
	"github.com/anayu15/mi-gestor-sub003/internal/recurrence"
)

// Perception keys of modelo 190.
const (
	KeyEmployment   = "A"
	KeyProfessional = "G"
)

// WithholdingSection totals the withholdings of one kind.
type WithholdingSection struct {
	Payees      int          `json:"perceptores"`
	Base        money.Amount `json:"base_retenciones"`
	Withholding money.Amount `json:"retenciones"`
}

// WithholdingReport is a quarterly withholding return with one section:
// 115 (rent) or 123 (capital).
type WithholdingReport struct {
	Modelo  string `json:"modelo"`
	Year    int    `json:"ejercicio"`
	Quarter int    `json:"trimestre"`
	WithholdingSection
}

// Payee is one recipient in an annual withholding summary.
type Payee struct {
	NIF         string       `json:"nif"`
	Name        string       `json:"nombre"`
	Key         string       `json:"clave,omitempty"`
	Base        money.Amount `json:"base_retenciones"`
	Withholding money.Amount `json:"retenciones"`
}

// AnnualWithholdingReport is an annual summary listing every payee:
// 180 (rent) or 190 (employment and professional).
type AnnualWithholdingReport struct {
	Modelo      string       `json:"modelo"`
	Year        int          `json:"ejercicio"`
	Payees      []Payee      `json:"perceptores"`
	Base        money.Amount `json:"base_retenciones"`
	Withholding money.Amount `json:"retenciones"`
}

// Report111 is the quarterly employment and professional withholding return.
type Report111 struct {
	Year         int                `json:"ejercicio"`
	Quarter      int                `json:"trimestre"`
	Employment   WithholdingSection `json:"rendimientos_trabajo"`
	Professional WithholdingSection `json:"actividades_economicas"`
	Total        money.Amount       `json:"total_retenciones"`
}

type payeeAcc struct {
	nif, name, key    string
	base, withholding decimal.Decimal
}

// collectPayees groups withholdings of the given kinds by payee.
func collectPayees(expenses []*model.Expense, kinds ...model.WithholdingKind) map[string]*payeeAcc {
	out := map[string]*payeeAcc{}
	for _, e := range expenses {
		key, ok := payeeKey(e.WithholdingKind, kinds)
		if !ok {
			continue
		}
		id := party(e.SupplierNIF, e.SupplierName) + "|" + key
		acc, ok := out[id]
		if !ok {
			acc = &payeeAcc{nif: model.NormalizeTaxID(e.SupplierNIF), name: e.SupplierName, key: key}
			out[id] = acc
		}
		acc.base = acc.base.Add(e.Base)
		acc.withholding = acc.withholding.Add(e.WithholdingAmount)
	}
	return out
}

func payeeKey(kind model.WithholdingKind, kinds []model.WithholdingKind) (string, bool) {
	for _, k := range kinds {
		if k != kind {
			continue
		}
		switch kind {
		case model.WithholdingEmployment:
			return KeyEmployment, true
		case model.WithholdingProfessional:
			return KeyProfessional, true
		default:
			return "", true
		}
	}
	return "", false
}

func section(payees map[string]*payeeAcc) WithholdingSection {
	base, withholding := decimal.Zero, decimal.Zero
	for _, p := range payees {
		base = base.Add(p.base)
		withholding = withholding.Add(p.withholding)
	}
	return WithholdingSection{Payees: len(payees), Base: money.A(base), Withholding: money.A(withholding)}
}

func quarterlyWithholding(modelo string, kind model.WithholdingKind, year, quarter int, expenses []*model.Expense) (*WithholdingReport, error) {
	if err := ValidateQuarter(year, quarter); err != nil {
		return nil, err
	}
	from, to := quarterOf(year, quarter)
	return &WithholdingReport{
		Modelo:             modelo,
		Year:               year,
		Quarter:            quarter,
		WithholdingSection: section(collectPayees(expensesIn(expenses, from, to), kind)),
	}, nil
}

// Modelo115 totals the rent withholdings of a quarter.
func Modelo115(year, quarter int, expenses []*model.Expense) (*WithholdingReport, error) {
	return quarterlyWithholding(model.Modelo115, model.WithholdingRent, year, quarter, expenses)
}

// Modelo123 totals the capital income withholdings of a quarter.
func Modelo123(year, quarter int, expenses []*model.Expense) (*WithholdingReport, error) {
	return quarterlyWithholding(model.Modelo123, model.WithholdingCapital, year, quarter, expenses)
}

// Modelo111 totals employment and professional withholdings of a quarter.
func Modelo111(year, quarter int, expenses []*model.Expense) (*Report111, error) {
	if err := ValidateQuarter(year, quarter); err != nil {
		return nil, err
	}
	from, to := quarterOf(year, quarter)
	in := expensesIn(expenses, from, to)

	r := &Report111{
		Year:         year,
		Quarter:      quarter,
		Employment:   section(collectPayees(in, model.WithholdingEmployment)),
		Professional: section(collectPayees(in, model.WithholdingProfessional)),
	}
	r.Total = money.A(money.Sum(r.Employment.Withholding.Decimal, r.Professional.Withholding.Decimal))
	return r, nil
}

func annualWithholding(modelo string, year int, expenses []*model.Expense, kinds ...model.WithholdingKind) (*AnnualWithholdingReport, error) {
	if err := ValidateYear(year); err != nil {
		return nil, err
	}
	from, to := recurrence.YearBounds(year)
	payees := collectPayees(expensesIn(expenses, from, to), kinds...)

	r := &AnnualWithholdingReport{Modelo: modelo, Year: year, Payees: []Payee{}}
	base, withholding := decimal.Zero, decimal.Zero
	for _, id := range sortedKeys(payees) {
		p := payees[id]
		r.Payees = append(r.Payees, Payee{
			NIF:         p.nif,
			Name:        p.name,
			Key:         p.key,
			Base:        money.A(p.base),
			Withholding: money.A(p.withholding),
		})
		base = base.Add(p.base)
		withholding = withholding.Add(p.withholding)
	}
	r.Base = money.A(base)
	r.Withholding = money.A(withholding)
	return r, nil
}

// Modelo180 summarises the year's rent withholdings per landlord.
func Modelo180(year int, expenses []*model.Expense) (*AnnualWithholdingReport, error) {
	return annualWithholding(model.Modelo180, year, expenses, model.WithholdingRent)
}

// Modelo190 summarises the year's employment (key A) and professional
// (key G) withholdings per payee.
func Modelo190(year int, expenses []*model.Expense) (*AnnualWithholdingReport, error) {
	return annualWithholding(model.Modelo190, year, expenses, model.WithholdingEmployment, model.WithholdingProfessional)
}
