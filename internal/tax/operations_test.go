package tax

import (
	"testing"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
)

func TestModelo349(t *testing.T) {
	t.Parallel()

	invoices := []*model.Invoice{
		invoice("2026-01-10", "2000", "0", "0", intracommunity(), withClient("DE123456789", "Kunde GmbH")),
		invoice("2026-02-10", "1000", "0", "0", intracommunity(), withClient("de123456789", "Kunde GmbH")),
		invoice("2026-02-11", "1000", "21", "0"),
	}
	expenses := []*model.Expense{
		expense("2026-03-01", "300", "0", intraSupplier(), supplier("IE6388047V", "Cloud Ltd")),
		expense("2026-03-02", "300", "21"),
	}

	r, err := Modelo349(2026, 1, invoices, expenses)
	if err != nil {
		t.Fatalf("Modelo349: %v", err)
	}
	if len(r.Operators) != 2 {
		t.Fatalf("operators = %+v, want 2", r.Operators)
	}

	byKey := map[string]IntraOperator{}
	for _, op := range r.Operators {
		byKey[op.Key] = op
	}
	if op := byKey[KeyIntraServicesSold]; op.VAT != "DE123456789" || !amountIs(op.Base, "3000") {
		t.Errorf("sold = %+v", op)
	}
	if op := byKey[KeyIntraServicesBought]; op.VAT != "IE6388047V" || !amountIs(op.Base, "300") {
		t.Errorf("bought = %+v", op)
	}
	if !amountIs(r.Total, "3300") {
		t.Errorf("Total = %s, want 3300", r.Total)
	}
}

func TestModelo347(t *testing.T) {
	t.Parallel()

	invoices := []*model.Invoice{
		invoice("2026-02-10", "2000", "21", "0", withClient("B11111119", "Grande SL")),
		invoice("2026-08-10", "1000", "21", "0", withClient("B11111119", "Grande SL")),
		invoice("2026-03-10", "5000", "21", "15", withClient("B22222228", "Retenedor SL")),
		invoice("2026-04-10", "2000", "21", "0", withClient("B33333337", "Pequeño SL")),
		invoice("2026-05-10", "2483.52", "21", "0", withClient("B44444446", "Umbral SL")),
		invoice("2026-06-10", "9000", "0", "0", intracommunity(), withClient("FR12345678901", "Client SARL")),
		invoice("2026-07-10", "9000", "21", "0", withClient("B55555555", "Anulada SL"), status(model.InvoiceCancelled)),
	}
	expenses := []*model.Expense{
		expense("2026-10-01", "3000", "21", supplier("A58818501", "Proveedor SA")),
		expense("2026-10-02", "9000", "21", withheld(model.WithholdingRent, "19"), supplier("12345678Z", "Casero")),
	}

	r, err := Modelo347(2026, invoices, expenses)
	if err != nil {
		t.Fatalf("Modelo347: %v", err)
	}
	if len(r.ThirdParties) != 2 {
		t.Fatalf("declared = %+v, want 2", r.ThirdParties)
	}

	got := map[string]ThirdParty{}
	for _, tp := range r.ThirdParties {
		got[tp.NIF] = tp
	}

	big, ok := got["B11111119"]
	if !ok || big.Key != KeySales || !amountIs(big.Total, "3630") {
		t.Fatalf("Grande SL = %+v", big)
	}
	if !amountIs(big.Quarters[0], "2420") || !amountIs(big.Quarters[2], "1210") || !big.Quarters[1].IsZero() {
		t.Errorf("quarters = %+v", big.Quarters)
	}

	if sup, ok := got["A58818501"]; !ok || sup.Key != KeyPurchases || !amountIs(sup.Total, "3630") {
		t.Errorf("supplier = %+v", sup)
	}
	if _, ok := got["B44444446"]; ok {
		t.Error("a total equal to the threshold must not be declared")
	}
	if !amountIs(r.TotalSales, "3630") || !amountIs(r.TotalPurchases, "3630") {
		t.Errorf("totals = %s / %s", r.TotalSales, r.TotalPurchases)
	}
}
