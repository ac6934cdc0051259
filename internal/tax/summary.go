package tax

import (
	"github.com/shopspring/decimal"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/money"
)

// QuarterSummary are the headline figures of one quarter.
type QuarterSummary struct {
	Quarter      int          `json:"trimestre"`
	Income       money.Amount `json:"ingresos"`
	Expenses     money.Amount `json:"gastos"`
	Profit       money.Amount `json:"beneficio"`
	IVAOutput    money.Amount `json:"iva_repercutido"`
	IVAInput     money.Amount `json:"iva_soportado"`
	IVAResult    money.Amount `json:"iva_resultado"`
	IRPFWithheld money.Amount `json:"irpf_retenido"`
	Pending      money.Amount `json:"pendiente_cobro"`
}

// Summary is the year at a glance.
type Summary struct {
	Year     int              `json:"ejercicio"`
	Quarters []QuarterSummary `json:"trimestres"`
	Total    QuarterSummary   `json:"total"`
}

// YearSummary computes income, deductible expenses, profit, IVA and IRPF
// per quarter and for the whole year.
func YearSummary(year int, invoices []*model.Invoice, expenses []*model.Expense) (*Summary, error) {
	if err := ValidateYear(year); err != nil {
		return nil, err
	}

	s := &Summary{Year: year}
	var total summaryAcc
	for q := 1; q <= 4; q++ {
		from, to := quarterOf(year, q)
		var acc summaryAcc
		acc.add(countedInvoices(invoices, from, to), expensesIn(expenses, from, to))
		s.Quarters = append(s.Quarters, acc.summary(q))
		total.merge(acc)
	}
	s.Total = total.summary(0)
	return s, nil
}

type summaryAcc struct {
	income, expenses, ivaOut, ivaIn, irpf, pending decimal.Decimal
}

func (a *summaryAcc) add(invoices []*model.Invoice, expenses []*model.Expense) {
	for _, inv := range invoices {
		a.income = a.income.Add(inv.Base)
		a.ivaOut = a.ivaOut.Add(inv.IVAAmount)
		a.irpf = a.irpf.Add(inv.IRPFAmount)
		if inv.Status == model.InvoicePending {
			a.pending = a.pending.Add(inv.Total)
		}
	}
	for _, e := range expenses {
		a.expenses = a.expenses.Add(e.DeductibleBase())
		a.ivaIn = a.ivaIn.Add(e.DeductibleIVA())
	}
}

func (a *summaryAcc) merge(b summaryAcc) {
	a.income = a.income.Add(b.income)
	a.expenses = a.expenses.Add(b.expenses)
	a.ivaOut = a.ivaOut.Add(b.ivaOut)
	a.ivaIn = a.ivaIn.Add(b.ivaIn)
	a.irpf = a.irpf.Add(b.irpf)
	a.pending = a.pending.Add(b.pending)
}

func (a *summaryAcc) summary(quarter int) QuarterSummary {
	return QuarterSummary{
		Quarter:      quarter,
		Income:       money.A(a.income),
		Expenses:     money.A(a.expenses),
		Profit:       money.A(a.income.Sub(a.expenses)),
		IVAOutput:    money.A(a.ivaOut),
		IVAInput:     money.A(a.ivaIn),
		IVAResult:    money.A(a.ivaOut.Sub(a.ivaIn)),
		IRPFWithheld: money.A(a.irpf),
		Pending:      money.A(a.pending),
	}
}
