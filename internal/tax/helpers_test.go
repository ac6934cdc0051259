package tax

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/money"
	"github.com/anayu15/mi-gestor-sub003/internal/recurrence"
)

func day(s string) time.Time {
	t, err := recurrence.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal { return money.MustParse(s) }

type invoiceOpt func(*model.Invoice)

func withClient(nif, name string) invoiceOpt {
	return func(i *model.Invoice) { i.ClientNIF, i.ClientName = nif, name }
}

func intracommunity() invoiceOpt {
	return func(i *model.Invoice) { i.ClientIntracommunity = true; i.IVARate = decimal.Zero }
}

func status(s model.InvoiceStatus) invoiceOpt {
	return func(i *model.Invoice) { i.Status = s }
}

func invoice(date, base, iva, irpf string, opts ...invoiceOpt) *model.Invoice {
	inv := &model.Invoice{
		IssueDate:  day(date),
		Base:       dec(base),
		IVARate:    dec(iva),
		IRPFRate:   dec(irpf),
		Status:     model.InvoicePaid,
		ClientNIF:  "B12345674",
		ClientName: "Cliente SL",
	}
	for _, o := range opts {
		o(inv)
	}
	inv.ApplyTotals()
	return inv
}

type expenseOpt func(*model.Expense)

func deductiblePct(pct string) expenseOpt {
	return func(e *model.Expense) { e.DeductiblePct = dec(pct) }
}

func notDeductible() expenseOpt {
	return func(e *model.Expense) { e.Deductible = false }
}

func withheld(kind model.WithholdingKind, rate string) expenseOpt {
	return func(e *model.Expense) { e.WithholdingKind, e.WithholdingRate = kind, dec(rate) }
}

func supplier(nif, name string) expenseOpt {
	return func(e *model.Expense) { e.SupplierNIF, e.SupplierName = nif, name }
}

func intraSupplier() expenseOpt {
	return func(e *model.Expense) { e.SupplierIntracommunity = true; e.IVARate = decimal.Zero }
}

func expense(date, base, iva string, opts ...expenseOpt) *model.Expense {
	e := &model.Expense{
		IssueDate:     day(date),
		Base:          dec(base),
		IVARate:       dec(iva),
		Deductible:    true,
		DeductiblePct: dec("100"),
		SupplierNIF:   "A58818501",
		SupplierName:  "Proveedor SA",
	}
	for _, o := range opts {
		o(e)
	}
	e.ApplyTotals()
	return e
}

func amountIs(a money.Amount, want string) bool {
	return a.Equal(dec(want))
}
