package tax

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/money"
	"github.com/anayu15/mi-gestor-sub003/internal/recurrence"
)

// Operation keys of modelo 349.
const (
	KeyIntraServicesSold   = "S"
	KeyIntraServicesBought = "I"
)

// Operation keys of modelo 347.
const (
	KeySales     = "B"
	KeyPurchases = "A"
)

// Threshold347 is the yearly amount, IVA included, above which a third
// party is declared.
var Threshold347 = decimal.RequireFromString("3005.06")

// IntraOperator is one intra-community counterparty.
type IntraOperator struct {
	VAT  string       `json:"nif_operador"`
	Name string       `json:"nombre"`
	Key  string       `json:"clave"`
	Base money.Amount `json:"base_imponible"`
}

// Report349 is the quarterly recapitulative statement of intra-community
// operations.
type Report349 struct {
	Year      int             `json:"ejercicio"`
	Quarter   int             `json:"trimestre"`
	Operators []IntraOperator `json:"operadores"`
	Total     money.Amount    `json:"total"`
}

type opAcc struct {
	nif, name, key string
	total          decimal.Decimal
	quarters       [4]decimal.Decimal
}

func addOp(m map[string]*opAcc, nif, name, key string, date time.Time, amount decimal.Decimal) {
	id := key + "|" + party(nif, name)
	acc, ok := m[id]
	if !ok {
		acc = &opAcc{nif: model.NormalizeTaxID(nif), name: name, key: key}
		m[id] = acc
	}
	acc.total = acc.total.Add(amount)
	q := recurrence.Quarter(date) - 1
	acc.quarters[q] = acc.quarters[q].Add(amount)
}

// Modelo349 lists intra-community services sold per client (key S) and
// bought per supplier (key I).
func Modelo349(year, quarter int, invoices []*model.Invoice, expenses []*model.Expense) (*Report349, error) {
	if err := ValidateQuarter(year, quarter); err != nil {
		return nil, err
	}
	from, to := quarterOf(year, quarter)

	ops := map[string]*opAcc{}
	for _, inv := range countedInvoices(invoices, from, to) {
		if inv.ClientIntracommunity {
			addOp(ops, inv.ClientNIF, inv.ClientName, KeyIntraServicesSold, inv.IssueDate, inv.Base)
		}
	}
	for _, e := range expensesIn(expenses, from, to) {
		if e.SupplierIntracommunity {
			addOp(ops, e.SupplierNIF, e.SupplierName, KeyIntraServicesBought, e.IssueDate, e.Base)
		}
	}

	r := &Report349{Year: year, Quarter: quarter, Operators: []IntraOperator{}}
	total := decimal.Zero
	for _, id := range sortedKeys(ops) {
		op := ops[id]
		r.Operators = append(r.Operators, IntraOperator{VAT: op.nif, Name: op.name, Key: op.key, Base: money.A(op.total)})
		total = total.Add(op.total)
	}
	r.Total = money.A(total)
	return r, nil
}

// ThirdParty is one declared counterparty of modelo 347.
type ThirdParty struct {
	NIF      string          `json:"nif"`
	Name     string          `json:"nombre"`
	Key      string          `json:"clave"`
	Total    money.Amount    `json:"importe_anual"`
	Quarters [4]money.Amount `json:"importes_trimestrales"`
}

// Report347 is the annual statement of operations with third parties.
type Report347 struct {
	Year           int          `json:"ejercicio"`
	Threshold      money.Amount `json:"umbral"`
	ThirdParties   []ThirdParty `json:"declarados"`
	TotalSales     money.Amount `json:"total_ventas"`
	TotalPurchases money.Amount `json:"total_compras"`
}

// Modelo347 declares every client (key B) and supplier (key A) whose yearly
// operations, IVA included, exceed Threshold347. Intra-community
// operations and operations subject to IRPF withholding are excluded since
// they are already reported on 349, 190 or 180.
func Modelo347(year int, invoices []*model.Invoice, expenses []*model.Expense) (*Report347, error) {
	if err := ValidateYear(year); err != nil {
		return nil, err
	}
	from, to := recurrence.YearBounds(year)

	ops := map[string]*opAcc{}
	for _, inv := range countedInvoices(invoices, from, to) {
		if inv.ClientIntracommunity || inv.IRPFRate.IsPositive() {
			continue
		}
		addOp(ops, inv.ClientNIF, inv.ClientName, KeySales, inv.IssueDate, money.Sum(inv.Base, inv.IVAAmount))
	}
	for _, e := range expensesIn(expenses, from, to) {
		if e.SupplierIntracommunity || withholds(e) {
			continue
		}
		addOp(ops, e.SupplierNIF, e.SupplierName, KeyPurchases, e.IssueDate, money.Sum(e.Base, e.IVAAmount))
	}

	r := &Report347{Year: year, Threshold: money.A(Threshold347), ThirdParties: []ThirdParty{}}
	sales, bought := decimal.Zero, decimal.Zero
	for _, id := range sortedKeys(ops) {
		op := ops[id]
		if !op.total.GreaterThan(Threshold347) {
			continue
		}
		tp := ThirdParty{NIF: op.nif, Name: op.name, Key: op.key, Total: money.A(op.total)}
		for i, q := range op.quarters {
			tp.Quarters[i] = money.A(q)
		}
		r.ThirdParties = append(r.ThirdParties, tp)
		if op.key == KeySales {
			sales = sales.Add(op.total)
		} else {
			bought = bought.Add(op.total)
		}
	}
	r.TotalSales = money.A(sales)
	r.TotalPurchases = money.A(bought)
	return r, nil
}

func withholds(e *model.Expense) bool {
	return e.WithholdingKind != "" && e.WithholdingKind != model.WithholdingNone
}
