package tax

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/recurrence"
)

// PeriodAnnual labels deadlines of yearly forms.
const PeriodAnnual = "0A"

// Deadline is the filing window end of one form for one period.
type Deadline struct {
	Modelo      string `json:"modelo"`
	Period      string `json:"periodo"`
	Date        string `json:"fecha_limite"`
	Description string `json:"descripcion"`
}

var modeloNames = map[string]string{
	model.Modelo111: "Retenciones de trabajo y actividades profesionales",
	model.Modelo115: "Retenciones por alquiler de inmuebles",
	model.Modelo123: "Retenciones de capital mobiliario",
	model.Modelo130: "Pago fraccionado IRPF, estimación directa",
	model.Modelo131: "Pago fraccionado IRPF, estimación objetiva",
	model.Modelo180: "Resumen anual de retenciones por alquiler",
	model.Modelo190: "Resumen anual de retenciones de trabajo y profesionales",
	model.Modelo303: "Autoliquidación de IVA",
	model.Modelo347: "Operaciones con terceros",
	model.Modelo349: "Operaciones intracomunitarias",
	model.Modelo390: "Resumen anual de IVA",
}

// ModeloName returns the Spanish title of a form.
func ModeloName(modelo string) string {
	return modeloNames[modelo]
}

var annualModelos = []string{model.Modelo180, model.Modelo190, model.Modelo347, model.Modelo390}

// IsAnnual reports whether modelo is filed once a year.
func IsAnnual(modelo string) bool {
	return slices.Contains(annualModelos, modelo)
}

// Calendar lists the deadlines for the fiscal year of every form in
// modelos, earliest first. Quarterly forms are due the 20th of the month
// after the quarter and 30 January for the fourth; yearly forms on
// 30 January, 347 at the end of February. A deadline on a weekend moves to
// the next Monday.
func Calendar(year int, modelos []string) ([]Deadline, error) {
	if err := ValidateYear(year); err != nil {
		return nil, err
	}

	out := []Deadline{}
	for _, m := range modelos {
		name, ok := modeloNames[m]
		if !ok {
			return nil, fmt.Errorf("%w: unknown modelo %q", ErrInvalidPeriod, m)
		}
		if IsAnnual(m) {
			due := recurrence.Date(year+1, time.January, 30)
			if m == model.Modelo347 {
				due = recurrence.Date(year+1, time.February, recurrence.DaysIn(year+1, time.February))
			}
			out = append(out, Deadline{Modelo: m, Period: PeriodAnnual, Date: filingDate(due), Description: name})
			continue
		}
		for q := 1; q <= 4; q++ {
			out = append(out, Deadline{
				Modelo:      m,
				Period:      fmt.Sprintf("%dT", q),
				Date:        filingDate(quarterDeadline(year, q)),
				Description: name,
			})
		}
	}

	slices.SortStableFunc(out, func(a, b Deadline) int {
		if c := strings.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return strings.Compare(a.Modelo, b.Modelo)
	})
	return out, nil
}

func quarterDeadline(year, quarter int) time.Time {
	if quarter == 4 {
		return recurrence.Date(year+1, time.January, 30)
	}
	return recurrence.Date(year, time.Month(quarter*3+1), 20)
}

// filingDate moves d to the next business day and renders it.
func filingDate(d time.Time) string {
	for !recurrence.IsBusinessDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return recurrence.FormatDate(d)
}
