// Package dto provides Data Transfer Objects for API requests and responses.
// Dates travel as YYYY-MM-DD strings and amounts as decimal strings.
package dto

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/money"
	"github.com/anayu15/mi-gestor-sub003/internal/recurrence"
	"github.com/anayu15/mi-gestor-sub003/internal/service"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Pagination provides cursor-based pagination info.
type Pagination struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// ListResponse is a page of items.
type ListResponse[T any] struct {
	Data       []T         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// NewListResponse converts a service page with conv.
func NewListResponse[M, T any](page *service.Page[M], conv func(*M) T) ListResponse[T] {
	out := ListResponse[T]{
		Data:       make([]T, 0, len(page.Items)),
		Pagination: &Pagination{NextCursor: page.NextCursor, HasMore: page.HasMore},
	}
	for _, item := range page.Items {
		out.Data = append(out.Data, conv(item))
	}
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON names, matching the service field errors.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// nif accepts a Spanish NIF/NIE/CIF or an EU VAT number. Whether a VAT
	// number is allowed for the counterparty is a service rule.
	_ = v.RegisterValidation("nif", func(fl validator.FieldLevel) bool {
		id := fl.Field().String()
		return model.ValidateNIF(id) == nil || model.ValidateVAT(id) == nil
	})
	return v
}

// Validate checks struct tags on req and returns a *service.ValidationError
// keyed by JSON field name.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if _, ok := fields[name]; !ok {
			fields[name] = message(fe)
		}
	}
	return &service.ValidationError{Fields: fields}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "nif":
		return "must be a valid NIF, NIE, CIF or EU VAT number"
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "alpha":
		return "must contain only letters"
	case "hexadecimal":
		return "must be hexadecimal"
	default:
		return "is invalid"
	}
}

// parser converts the string fields of a request, collecting errors per
// field like the service layer does.
type parser struct {
	fields map[string]string
}

func (p *parser) fail(field, msg string) {
	if p.fields == nil {
		p.fields = make(map[string]string)
	}
	if _, ok := p.fields[field]; !ok {
		p.fields[field] = msg
	}
}

func (p *parser) date(field, s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	d, err := recurrence.ParseDate(s)
	if err != nil {
		p.fail(field, "must be a date in YYYY-MM-DD format")
	}
	return d
}

func (p *parser) optDate(field string, s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	d := p.date(field, *s)
	return &d
}

func (p *parser) amount(field, s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := money.Parse(s)
	if err != nil {
		p.fail(field, "must be a decimal number")
	}
	return d
}

func (p *parser) optAmount(field string, s *string) *decimal.Decimal {
	if s == nil || *s == "" {
		return nil
	}
	d := p.amount(field, *s)
	return &d
}

func (p *parser) err() error {
	if len(p.fields) == 0 {
		return nil
	}
	return &service.ValidationError{Fields: p.fields}
}

func formatDate(t time.Time) string {
	return recurrence.FormatDate(t)
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := recurrence.FormatDate(*t)
	return &s
}

func formatAmount(d decimal.Decimal) string {
	return money.Format(d)
}

// formatRate drops trailing zeros: "21", "7.5".
func formatRate(d decimal.Decimal) string {
	return d.String()
}

func emptyIfNil(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
