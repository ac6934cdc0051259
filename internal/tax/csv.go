package tax

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/anayu15/mi-gestor-sub003/internal/money"
)

// CSVReport is a report that can be exported as a spreadsheet.
type CSVReport interface {
	csvRecords(f *numberFormat) [][]string
}

// WriteCSV writes r as semicolon separated values with Spanish number
// formatting (12.345,67).
func WriteCSV(w io.Writer, r CSVReport) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.WriteAll(r.csvRecords(newNumberFormat(language.Spanish))); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

type numberFormat struct {
	printer *message.Printer
	decimal string
}

func newNumberFormat(tag language.Tag) *numberFormat {
	return &numberFormat{printer: message.NewPrinter(tag), decimal: ","}
}

// amount groups the integer part with the locale's separator and keeps
// exactly two decimals.
func (f *numberFormat) amount(a money.Amount) string {
	d := money.Round(a.Decimal)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	whole := d.Truncate(0)
	cents := d.Sub(whole).Shift(money.Cents).IntPart()
	return sign + f.printer.Sprintf("%d", whole.IntPart()) + f.decimal + fmt.Sprintf("%02d", cents)
}

func quarterLabel(q int) string {
	return strconv.Itoa(q) + "T"
}

func (r *Report303) csvRecords(f *numberFormat) [][]string {
	rows := [][]string{{"Concepto", "Tipo", "Base imponible", "Cuota"}}
	for _, l := range r.Devengado {
		rows = append(rows, []string{"IVA devengado", f.amount(l.Rate), f.amount(l.Base), f.amount(l.Cuota)})
	}
	return append(rows,
		[]string{"Total devengado", "", f.amount(r.BaseDevengada), f.amount(r.CuotaDevengada)},
		[]string{"Entregas intracomunitarias", "", f.amount(r.IntracommunityBase), ""},
		[]string{"IVA deducible", "", f.amount(r.BaseDeducible), f.amount(r.CuotaDeducible)},
		[]string{"Resultado", r.ResultKind, "", f.amount(r.Result)},
	)
}

func (r *Report390) csvRecords(f *numberFormat) [][]string {
	rows := [][]string{{"Periodo", "Base devengada", "Cuota devengada", "Base deducible", "Cuota deducible", "Resultado"}}
	for _, q := range r.Quarters {
		rows = append(rows, []string{
			quarterLabel(q.Quarter), f.amount(q.BaseDevengada), f.amount(q.CuotaDevengada),
			f.amount(q.BaseDeducible), f.amount(q.CuotaDeducible), f.amount(q.Result),
		})
	}
	return append(rows,
		[]string{"Total", f.amount(r.BaseDevengada), f.amount(r.CuotaDevengada),
			f.amount(r.BaseDeducible), f.amount(r.CuotaDeducible), f.amount(r.Result)},
		[]string{"Volumen de operaciones", f.amount(r.OperationVolume), "", "", "", ""},
	)
}

func (r *Report130) csvRecords(f *numberFormat) [][]string {
	return [][]string{
		{"Concepto", "Importe"},
		{"Ingresos", f.amount(r.Income)},
		{"Gastos deducibles", f.amount(r.Expenses)},
		{"Rendimiento neto", f.amount(r.NetIncome)},
		{"20% del rendimiento", f.amount(r.Installment)},
		{"Pagos fraccionados anteriores", f.amount(r.PriorPayments)},
		{"Retenciones", f.amount(r.Withholdings)},
		{"Resultado", f.amount(r.Result)},
		{"A ingresar", f.amount(r.AmountDue)},
	}
}

func (r *Report131) csvRecords(f *numberFormat) [][]string {
	return [][]string{
		{"Concepto", "Importe"},
		{"Rendimiento anual", f.amount(r.AnnualYield)},
		{"Porcentaje", f.amount(r.Rate)},
		{"Pago fraccionado", f.amount(r.Installment)},
		{"Retenciones", f.amount(r.Withholdings)},
		{"Resultado", f.amount(r.Result)},
		{"A ingresar", f.amount(r.AmountDue)},
	}
}

func (r *WithholdingReport) csvRecords(f *numberFormat) [][]string {
	return [][]string{
		{"Perceptores", "Base de retenciones", "Retenciones"},
		{strconv.Itoa(r.Payees), f.amount(r.Base), f.amount(r.Withholding)},
	}
}

func (r *Report111) csvRecords(f *numberFormat) [][]string {
	return [][]string{
		{"Sección", "Perceptores", "Base de retenciones", "Retenciones"},
		{"Rendimientos del trabajo", strconv.Itoa(r.Employment.Payees), f.amount(r.Employment.Base), f.amount(r.Employment.Withholding)},
		{"Actividades económicas", strconv.Itoa(r.Professional.Payees), f.amount(r.Professional.Base), f.amount(r.Professional.Withholding)},
		{"Total", "", "", f.amount(r.Total)},
	}
}

func (r *AnnualWithholdingReport) csvRecords(f *numberFormat) [][]string {
	rows := [][]string{{"NIF", "Nombre", "Clave", "Base de retenciones", "Retenciones"}}
	for _, p := range r.Payees {
		rows = append(rows, []string{p.NIF, p.Name, p.Key, f.amount(p.Base), f.amount(p.Withholding)})
	}
	return append(rows, []string{"", "Total", "", f.amount(r.Base), f.amount(r.Withholding)})
}

func (r *Report349) csvRecords(f *numberFormat) [][]string {
	rows := [][]string{{"NIF operador", "Nombre", "Clave", "Base imponible"}}
	for _, op := range r.Operators {
		rows = append(rows, []string{op.VAT, op.Name, op.Key, f.amount(op.Base)})
	}
	return append(rows, []string{"", "Total", "", f.amount(r.Total)})
}

func (r *Report347) csvRecords(f *numberFormat) [][]string {
	rows := [][]string{{"NIF", "Nombre", "Clave", "1T", "2T", "3T", "4T", "Importe anual"}}
	for _, tp := range r.ThirdParties {
		row := []string{tp.NIF, tp.Name, tp.Key}
		for _, q := range tp.Quarters {
			row = append(row, f.amount(q))
		}
		rows = append(rows, append(row, f.amount(tp.Total)))
	}
	return rows
}

func (s *Summary) csvRecords(f *numberFormat) [][]string {
	rows := [][]string{{"Periodo", "Ingresos", "Gastos", "Beneficio", "IVA repercutido", "IVA soportado", "IRPF retenido", "Pendiente de cobro"}}
	line := func(label string, q QuarterSummary) []string {
		return []string{label, f.amount(q.Income), f.amount(q.Expenses), f.amount(q.Profit),
			f.amount(q.IVAOutput), f.amount(q.IVAInput), f.amount(q.IRPFWithheld), f.amount(q.Pending)}
	}
	for _, q := range s.Quarters {
		rows = append(rows, line(quarterLabel(q.Quarter), q))
	}
	return append(rows, line("Total", s.Total))
}
