package dto

import (
	"time"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/service"
)

// FiscalRequest represents the request body for PUT /fiscal-preferences.
type FiscalRequest struct {
	TaxpayerKind      string   `json:"tipo_contribuyente" validate:"omitempty,oneof=AUTONOMO SOCIEDAD"`
	IRPFMethod        string   `json:"metodo_irpf" validate:"omitempty,oneof=DIRECTA_SIMPLIFICADA DIRECTA_NORMAL OBJETIVA"`
	IVARegime         string   `json:"regimen_iva" validate:"omitempty,oneof=GENERAL RECARGO_EQUIVALENCIA EXENTO"`
	HasRentedPremises bool     `json:"local_alquilado"`
	HasEmployees      bool     `json:"tiene_empleados"`
	EmployeeCount     int      `json:"numero_empleados" validate:"gte=0"`
	IntracommunityOps bool     `json:"operaciones_intracomunitarias"`
	ModulesYield      string   `json:"rendimiento_modulos"`
	ModelosOverride   []string `json:"modelos"`
}

// Input converts the request.
func (r FiscalRequest) Input() (service.FiscalInput, error) {
	var p parser
	in := service.FiscalInput{
		TaxpayerKind:      model.TaxpayerKind(r.TaxpayerKind),
		IRPFMethod:        model.IRPFMethod(r.IRPFMethod),
		IVARegime:         model.IVARegime(r.IVARegime),
		HasRentedPremises: r.HasRentedPremises,
		HasEmployees:      r.HasEmployees,
		EmployeeCount:     r.EmployeeCount,
		IntracommunityOps: r.IntracommunityOps,
		ModulesYield:      p.amount("rendimiento_modulos", r.ModulesYield),
		ModelosOverride:   r.ModelosOverride,
	}
	return in, p.err()
}

// FiscalResponse represents the fiscal preferences in API responses.
type FiscalResponse struct {
	TaxpayerKind      string    `json:"tipo_contribuyente"`
	IRPFMethod        string    `json:"metodo_irpf"`
	IVARegime         string    `json:"regimen_iva"`
	HasRentedPremises bool      `json:"local_alquilado"`
	HasEmployees      bool      `json:"tiene_empleados"`
	EmployeeCount     int       `json:"numero_empleados"`
	IntracommunityOps bool      `json:"operaciones_intracomunitarias"`
	ModulesYield      string    `json:"rendimiento_modulos"`
	ModelosOverride   []string  `json:"modelos,omitempty"`
	RequiredModelos   []string  `json:"modelos_obligatorios"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ToFiscalResponse converts model.FiscalPreferences.
func ToFiscalResponse(p *model.FiscalPreferences) FiscalResponse {
	return FiscalResponse{
		TaxpayerKind:      string(p.TaxpayerKind),
		IRPFMethod:        string(p.IRPFMethod),
		IVARegime:         string(p.IVARegime),
		HasRentedPremises: p.HasRentedPremises,
		HasEmployees:      p.HasEmployees,
		EmployeeCount:     p.EmployeeCount,
		IntracommunityOps: p.IntracommunityOps,
		ModulesYield:      formatAmount(p.ModulesYield),
		ModelosOverride:   p.ModelosOverride,
		RequiredModelos:   p.RequiredModelos(),
		UpdatedAt:         p.UpdatedAt,
	}
}

// ModelosResponse lists the forms a user must file.
type ModelosResponse struct {
	Modelos []string `json:"modelos"`
}
