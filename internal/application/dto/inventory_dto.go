package dto

import "github.com/shopspring/decimal"

// InventorySummaryDTO resumen del inventario visible para un usuario.
type InventorySummaryDTO struct {
	TotalQuantity int64           `json:"total_quantity" yaml:"total_quantity"` // suma de existencias
	UniqueParts   int64           `json:"unique_parts" yaml:"unique_parts"`     // cantidad de registros
	TotalValue    decimal.Decimal `json:"total_value" yaml:"total_value"`       // suma exacta de Quantity * Cost
	LowStockTotal int             `json:"low_stock_total" yaml:"low_stock_total"`

	// Las partes más críticas, en el orden del almacenamiento.
	Replenishment []ReplenishmentSuggestionDTO `json:"replenishment" yaml:"replenishment"`
}

// ReplenishmentSuggestionDTO sugerencia de reposición para una parte bajo su umbral.
type ReplenishmentSuggestionDTO struct {
	PartID             int64           `json:"part_id" yaml:"part_id"`
	PartNumber         string          `json:"part_number" yaml:"part_number"`
	Description        string          `json:"description,omitempty" yaml:"description,omitempty"`
	Location           string          `json:"location,omitempty" yaml:"location,omitempty"`
	Quantity           int64           `json:"quantity" yaml:"quantity"`
	LowStockThreshold  int             `json:"low_stock_threshold" yaml:"low_stock_threshold"`
	IdealStock         int64           `json:"ideal_stock" yaml:"ideal_stock"`                 // ceil(umbral * 1.5)
	SuggestedOrderQty  int64           `json:"suggested_order_qty" yaml:"suggested_order_qty"` // IdealStock - Quantity
	UnitCost           decimal.Decimal `json:"unit_cost" yaml:"unit_cost"`
	EstimatedOrderCost decimal.Decimal `json:"estimated_order_cost" yaml:"estimated_order_cost"` // SuggestedOrderQty * UnitCost
	Supplier           string          `json:"supplier,omitempty" yaml:"supplier,omitempty"`
	Priority           int             `json:"priority" yaml:"priority"` // 1 = más urgente
}

// ImportReportDTO conteo de registros creados o actualizados por una importación.
type ImportReportDTO struct {
	PartTypes        int `json:"part_types" yaml:"part_types"` // resueltos por nombre, existentes o nuevos
	ProjectsCreated  int `json:"projects_created" yaml:"projects_created"`
	PartsCreated     int `json:"parts_created" yaml:"parts_created"`
	PartsUpdated     int `json:"parts_updated" yaml:"parts_updated"`
	FilesCreated     int `json:"files_created" yaml:"files_created"`
	Skipped          int `json:"skipped" yaml:"skipped"`
}
