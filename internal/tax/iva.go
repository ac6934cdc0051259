package tax

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/money"
	"github.com/anayu15/mi-gestor-sub003/internal/recurrence"
)

// IVALine is the output IVA at one rate.
type IVALine struct {
	Rate  money.Amount `json:"tipo"`
	Base  money.Amount `json:"base_imponible"`
	Cuota money.Amount `json:"cuota"`
}

// Report303 is the quarterly IVA self-assessment.
type Report303 struct {
	Year               int          `json:"ejercicio"`
	Quarter            int          `json:"trimestre"`
	Devengado          []IVALine    `json:"iva_devengado"`
	BaseDevengada      money.Amount `json:"base_devengada"`
	CuotaDevengada     money.Amount `json:"cuota_devengada"`
	IntracommunityBase money.Amount `json:"entregas_intracomunitarias"`
	BaseDeducible      money.Amount `json:"base_deducible"`
	CuotaDeducible     money.Amount `json:"cuota_deducible"`
	Result             money.Amount `json:"resultado"`
	ResultKind         string       `json:"tipo_resultado"`
}

type ivaTotals struct {
	byRate          map[string]*ivaAcc
	base, cuota     decimal.Decimal
	intra           decimal.Decimal
	dedBase, dedIVA decimal.Decimal
	volume          decimal.Decimal
}

type ivaAcc struct {
	rate, base, cuota decimal.Decimal
}

func accumulateIVA(invoices []*model.Invoice, expenses []*model.Expense) *ivaTotals {
	t := &ivaTotals{byRate: map[string]*ivaAcc{}}
	for _, inv := range invoices {
		t.volume = t.volume.Add(inv.Base)
		if inv.ClientIntracommunity {
			t.intra = t.intra.Add(inv.Base)
			continue
		}
		k := inv.IVARate.StringFixed(2)
		acc, ok := t.byRate[k]
		if !ok {
			acc = &ivaAcc{rate: inv.IVARate}
			t.byRate[k] = acc
		}
		acc.base = acc.base.Add(inv.Base)
		acc.cuota = acc.cuota.Add(inv.IVAAmount)
		t.base = t.base.Add(inv.Base)
		t.cuota = t.cuota.Add(inv.IVAAmount)
	}
	for _, e := range expenses {
		t.dedBase = t.dedBase.Add(e.DeductibleBase())
		t.dedIVA = t.dedIVA.Add(e.DeductibleIVA())
	}
	return t
}

func (t *ivaTotals) lines() []IVALine {
	lines := make([]IVALine, 0, len(t.byRate))
	for _, acc := range t.byRate {
		lines = append(lines, IVALine{Rate: money.A(acc.rate), Base: money.A(acc.base), Cuota: money.A(acc.cuota)})
	}
	// Highest rate first, the way the form lists them.
	slices.SortFunc(lines, func(a, b IVALine) int { return b.Rate.Cmp(a.Rate.Decimal) })
	return lines
}

// Modelo303 computes the IVA return of a quarter. Sales to intra-community
// clients carry no output IVA and are reported as exempt base.
func Modelo303(year, quarter int, invoices []*model.Invoice, expenses []*model.Expense) (*Report303, error) {
	if err := ValidateQuarter(year, quarter); err != nil {
		return nil, err
	}
	from, to := quarterOf(year, quarter)
	t := accumulateIVA(countedInvoices(invoices, from, to), expensesIn(expenses, from, to))

	cuotaDed := money.Round(t.dedIVA)
	result := money.Round(t.cuota).Sub(cuotaDed)
	return &Report303{
		Year:               year,
		Quarter:            quarter,
		Devengado:          t.lines(),
		BaseDevengada:      money.A(t.base),
		CuotaDevengada:     money.A(t.cuota),
		IntracommunityBase: money.A(t.intra),
		BaseDeducible:      money.A(t.dedBase),
		CuotaDeducible:     money.A(cuotaDed),
		Result:             money.A(result),
		ResultKind:         resultKind(result, quarter),
	}, nil
}

// Report390 is the annual IVA summary.
type Report390 struct {
	Year               int          `json:"ejercicio"`
	Quarters           []*Report303 `json:"trimestres"`
	Devengado          []IVALine    `json:"iva_devengado"`
	BaseDevengada      money.Amount `json:"base_devengada"`
	CuotaDevengada     money.Amount `json:"cuota_devengada"`
	IntracommunityBase money.Amount `json:"entregas_intracomunitarias"`
	BaseDeducible      money.Amount `json:"base_deducible"`
	CuotaDeducible     money.Amount `json:"cuota_deducible"`
	Result             money.Amount `json:"resultado"`
	OperationVolume    money.Amount `json:"volumen_operaciones"`
}

// Modelo390 aggregates the four quarterly returns of year.
func Modelo390(year int, invoices []*model.Invoice, expenses []*model.Expense) (*Report390, error) {
	if err := ValidateYear(year); err != nil {
		return nil, err
	}
	r := &Report390{Year: year}
	for q := 1; q <= 4; q++ {
		qr, err := Modelo303(year, q, invoices, expenses)
		if err != nil {
			return nil, err
		}
		r.Quarters = append(r.Quarters, qr)
	}

	from, to := recurrence.YearBounds(year)
	t := accumulateIVA(countedInvoices(invoices, from, to), expensesIn(expenses, from, to))

	result := decimal.Zero
	for _, qr := range r.Quarters {
		result = result.Add(qr.Result.Decimal)
	}
	r.Devengado = t.lines()
	r.BaseDevengada = money.A(t.base)
	r.CuotaDevengada = money.A(t.cuota)
	r.IntracommunityBase = money.A(t.intra)
	r.BaseDeducible = money.A(t.dedBase)
	r.CuotaDeducible = money.A(t.dedIVA)
	r.Result = money.A(result)
	r.OperationVolume = money.A(t.volume)
	return r, nil
}
