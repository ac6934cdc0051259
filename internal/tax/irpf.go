package tax

import (
	"github.com/shopspring/decimal"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/money"
	"github.com/anayu15/mi-gestor-sub003/internal/recurrence"
)

var (
	rate130 = decimal.NewFromInt(20)

	modulesRateNoEmployees   = decimal.NewFromInt(4)
	modulesRateOneEmployee   = decimal.NewFromInt(3)
	modulesRateManyEmployees = decimal.NewFromInt(2)
)

// Report130 is the quarterly income tax installment under direct
// estimation. Amounts accumulate from 1 January to the end of the quarter.
type Report130 struct {
	Year          int          `json:"ejercicio"`
	Quarter       int          `json:"trimestre"`
	Income        money.Amount `json:"ingresos"`
	Expenses      money.Amount `json:"gastos_deducibles"`
	NetIncome     money.Amount `json:"rendimiento_neto"`
	Installment   money.Amount `json:"pago_fraccionado"`
	PriorPayments money.Amount `json:"pagos_anteriores"`
	Withholdings  money.Amount `json:"retenciones"`
	Result        money.Amount `json:"resultado"`
	AmountDue     money.Amount `json:"a_ingresar"`
}

// Modelo130 computes the installment of quarter. Prior payments are the
// positive results of the earlier quarters of the same year; a negative
// quarter pays nothing and does not reduce later quarters.
func Modelo130(year, quarter int, invoices []*model.Invoice, expenses []*model.Expense) (*Report130, error) {
	if err := ValidateQuarter(year, quarter); err != nil {
		return nil, err
	}

	paid := decimal.Zero
	var r *Report130
	for q := 1; q <= quarter; q++ {
		r = cumulative130(year, q, paid, invoices, expenses)
		paid = paid.Add(r.AmountDue.Decimal)
	}
	return r, nil
}

func cumulative130(year, quarter int, prior decimal.Decimal, invoices []*model.Invoice, expenses []*model.Expense) *Report130 {
	from, _ := recurrence.YearBounds(year)
	_, to := quarterOf(year, quarter)

	income, withheld := decimal.Zero, decimal.Zero
	for _, inv := range countedInvoices(invoices, from, to) {
		income = income.Add(inv.Base)
		withheld = withheld.Add(inv.IRPFAmount)
	}
	costs := decimal.Zero
	for _, e := range expensesIn(expenses, from, to) {
		costs = costs.Add(e.DeductibleBase())
	}

	income, costs = money.Round(income), money.Round(costs)
	net := income.Sub(costs)
	installment := money.Percent(money.Max0(net), rate130)
	result := installment.Sub(prior).Sub(withheld)

	return &Report130{
		Year:          year,
		Quarter:       quarter,
		Income:        money.A(income),
		Expenses:      money.A(costs),
		NetIncome:     money.A(net),
		Installment:   money.A(installment),
		PriorPayments: money.A(prior),
		Withholdings:  money.A(withheld),
		Result:        money.A(result),
		AmountDue:     money.A(money.Max0(result)),
	}
}

// Report131 is the quarterly income tax installment under objective
// estimation (módulos).
type Report131 struct {
	Year         int          `json:"ejercicio"`
	Quarter      int          `json:"trimestre"`
	AnnualYield  money.Amount `json:"rendimiento_anual"`
	Rate         money.Amount `json:"porcentaje"`
	Installment  money.Amount `json:"pago_fraccionado"`
	Withholdings money.Amount `json:"retenciones"`
	Result       money.Amount `json:"resultado"`
	AmountDue    money.Amount `json:"a_ingresar"`
}

// Modelo131 applies 4% of the declared annual yield, 3% with one employee
// and 2% with more, minus the IRPF withheld on the quarter's invoices.
func Modelo131(year, quarter int, prefs *model.FiscalPreferences, invoices []*model.Invoice) (*Report131, error) {
	if err := ValidateQuarter(year, quarter); err != nil {
		return nil, err
	}

	rate := modulesRateNoEmployees
	switch {
	case prefs.EmployeeCount == 1:
		rate = modulesRateOneEmployee
	case prefs.EmployeeCount > 1:
		rate = modulesRateManyEmployees
	}

	from, to := quarterOf(year, quarter)
	withheld := decimal.Zero
	for _, inv := range countedInvoices(invoices, from, to) {
		withheld = withheld.Add(inv.IRPFAmount)
	}

	installment := money.Percent(prefs.ModulesYield, rate)
	result := installment.Sub(withheld)
	return &Report131{
		Year:         year,
		Quarter:      quarter,
		AnnualYield:  money.A(prefs.ModulesYield),
		Rate:         money.A(rate),
		Installment:  money.A(installment),
		Withholdings: money.A(withheld),
		Result:       money.A(result),
		AmountDue:    money.A(money.Max0(result)),
	}, nil
}
