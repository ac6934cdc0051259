package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/anayu15/mi-gestor-sub003/internal/cache"
	"github.com/anayu15/mi-gestor-sub003/internal/metrics"
	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/recurrence"
	"github.com/anayu15/mi-gestor-sub003/internal/tax"
)

var ErrUnknownModelo = errors.New("unknown modelo")

// ReportService computes tax forms from the user's invoices and expenses.
// Results are cached per data version, so any write to invoices, expenses
// or fiscal preferences makes them stale.
type ReportService struct {
	store   ReportStore
	cache   ReportCache
	ttl     time.Duration
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewReportService creates a ReportService. A nil cache computes every
// request.
func NewReportService(store ReportStore, reports ReportCache, ttl time.Duration, recorder metrics.Recorder, logger *slog.Logger) *ReportService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ReportService{
		store:   store,
		cache:   reports,
		ttl:     ttl,
		metrics: recorder,
		logger:  defaultLogger(logger, "reports"),
	}
}

// Modelo computes one form. quarter is ignored for annual forms.
func (s *ReportService) Modelo(ctx context.Context, userID, modelo string, year, quarter int) (tax.CSVReport, error) {
	if !slices.Contains(model.KnownModelos, modelo) {
		return nil, ErrUnknownModelo
	}
	if tax.IsAnnual(modelo) {
		quarter = 0
		if err := tax.ValidateYear(year); err != nil {
			return nil, invalid("year", err.Error())
		}
	} else if err := tax.ValidateQuarter(year, quarter); err != nil {
		return nil, invalid("quarter", err.Error())
	}

	key := fmt.Sprintf("%s:%d:%d", modelo, year, quarter)
	switch modelo {
	case model.Modelo303:
		return asReport(cached(ctx, s, userID, key, func(d *periodData) (*tax.Report303, error) {
			return tax.Modelo303(year, quarter, d.invoices, d.expenses)
		}, year))
	case model.Modelo390:
		return asReport(cached(ctx, s, userID, key, func(d *periodData) (*tax.Report390, error) {
			return tax.Modelo390(year, d.invoices, d.expenses)
		}, year))
	case model.Modelo130:
		return asReport(cached(ctx, s, userID, key, func(d *periodData) (*tax.Report130, error) {
			return tax.Modelo130(year, quarter, d.invoices, d.expenses)
		}, year))
	case model.Modelo131:
		return asReport(cached(ctx, s, userID, key, func(d *periodData) (*tax.Report131, error) {
			prefs, err := loadPreferences(ctx, s.store, userID)
			if err != nil {
				return nil, err
			}
			return tax.Modelo131(year, quarter, prefs, d.invoices)
		}, year))
	case model.Modelo115:
		return asReport(cached(ctx, s, userID, key, func(d *periodData) (*tax.WithholdingReport, error) {
			return tax.Modelo115(year, quarter, d.expenses)
		}, year))
	case model.Modelo123:
		return asReport(cached(ctx, s, userID, key, func(d *periodData) (*tax.WithholdingReport, error) {
			return tax.Modelo123(year, quarter, d.expenses)
		}, year))
	case model.Modelo111:
		return asReport(cached(ctx, s, userID, key, func(d *periodData) (*tax.Report111, error) {
			return tax.Modelo111(year, quarter, d.expenses)
		}, year))
	case model.Modelo180:
		return asReport(cached(ctx, s, userID, key, func(d *periodData) (*tax.AnnualWithholdingReport, error) {
			return tax.Modelo180(year, d.expenses)
		}, year))
	case model.Modelo190:
		return asReport(cached(ctx, s, userID, key, func(d *periodData) (*tax.AnnualWithholdingReport, error) {
			return tax.Modelo190(year, d.expenses)
		}, year))
	case model.Modelo349:
		return asReport(cached(ctx, s, userID, key, func(d *periodData) (*tax.Report349, error) {
			return tax.Modelo349(year, quarter, d.invoices, d.expenses)
		}, year))
	case model.Modelo347:
		return asReport(cached(ctx, s, userID, key, func(d *periodData) (*tax.Report347, error) {
			return tax.Modelo347(year, d.invoices, d.expenses)
		}, year))
	}
	return nil, ErrUnknownModelo
}

// Summary returns income, expenses and taxes per quarter of year.
func (s *ReportService) Summary(ctx context.Context, userID string, year int) (*tax.Summary, error) {
	if err := tax.ValidateYear(year); err != nil {
		return nil, invalid("year", err.Error())
	}
	return cached(ctx, s, userID, fmt.Sprintf("summary:%d", year), func(d *periodData) (*tax.Summary, error) {
		return tax.YearSummary(year, d.invoices, d.expenses)
	}, year)
}

// Calendar lists the filing deadlines of the user's required forms.
func (s *ReportService) Calendar(ctx context.Context, userID string, year int) ([]tax.Deadline, error) {
	if err := tax.ValidateYear(year); err != nil {
		return nil, invalid("year", err.Error())
	}
	prefs, err := loadPreferences(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	return tax.Calendar(year, prefs.RequiredModelos())
}

type periodData struct {
	invoices []*model.Invoice
	expenses []*model.Expense
}

func (s *ReportService) loadYear(ctx context.Context, userID string, year int) (*periodData, error) {
	from, to := recurrence.YearBounds(year)
	invoices, err := s.store.InvoicesBetween(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	expenses, err := s.store.ExpensesBetween(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	return &periodData{invoices: invoices, expenses: expenses}, nil
}

// cached serves a report from the cache or computes it over the year's
// data and stores it. Cache failures fall back to computing.
func cached[T any](
	ctx context.Context,
	s *ReportService,
	userID, name string,
	compute func(d *periodData) (*T, error),
	year int,
) (*T, error) {
	run := func() (*T, error) {
		d, err := s.loadYear(ctx, userID, year)
		if err != nil {
			return nil, err
		}
		return compute(d)
	}
	if s.cache == nil {
		return run()
	}

	version, err := s.cache.DataVersion(ctx, userID)
	if err != nil {
		s.logger.Warn("report_cache_unavailable", "user_id", userID, "error", err)
		return run()
	}

	var hit T
	err = s.cache.GetReport(ctx, userID, version, name, &hit)
	if err == nil {
		s.metrics.IncReportCacheHit()
		return &hit, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("report_cache_read_failed", "user_id", userID, "report", name, "error", err)
	}
	s.metrics.IncReportCacheMiss()

	report, err := run()
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetReport(ctx, userID, version, name, report, s.ttl); err != nil {
		s.logger.Warn("report_cache_write_failed", "user_id", userID, "report", name, "error", err)
	}
	return report, nil
}

func asReport[R tax.CSVReport](r R, err error) (tax.CSVReport, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}
