package entity

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jhoicas/partsbin/internal/domain"
)

// Límites de paginación del contrato.
const (
	MaxPage           = 1000
	MaxResultsPerPage = 100
)

// SortDirection dirección de ordenamiento de un listado.
type SortDirection string

const (
	Ascending  SortDirection = "Ascending"
	Descending SortDirection = "Descending"
)

// PaginatedRequest página solicitada (base 1) y tamaño de página.
// OrderBy es el nombre de un campo de Part (ver query.Field); vacío = orden por identidad.
type PaginatedRequest struct {
	Page      int           `json:"page"`
	Results   int           `json:"results"`
	OrderBy   string        `json:"orderBy,omitempty"`
	Direction SortDirection `json:"direction,omitempty"`
}

// NewPage atajo para una petición sin orden explícito.
func NewPage(page, results int) PaginatedRequest {
	return PaginatedRequest{Page: page, Results: results}
}

// Validate aplica la precondición del contrato; el error envuelve domain.ErrValidation.
func (r PaginatedRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Page, validation.Required, validation.Min(1), validation.Max(MaxPage)),
		validation.Field(&r.Results, validation.Required, validation.Min(1), validation.Max(MaxResultsPerPage)),
		validation.Field(&r.Direction, validation.In(Ascending, Descending)),
	)
	if err != nil {
		return fmt.Errorf("paginated request: %w: %w", domain.ErrValidation, err)
	}
	return nil
}

// Offset número de registros a saltar.
func (r PaginatedRequest) Offset() int {
	return (r.Page - 1) * r.Results
}

// IsDescending indica si el orden solicitado es descendente.
func (r PaginatedRequest) IsDescending() bool {
	return r.Direction == Descending
}

// PaginatedResponse total del conjunto completo (no solo de la página) y la página pedida.
type PaginatedResponse[T any] struct {
	TotalItems int `json:"totalItems"`
	Items      []T `json:"items"`
}

// NewPaginatedResponse nunca devuelve Items nil, para que la serialización sea [] y no null.
func NewPaginatedResponse[T any](total int, items []T) *PaginatedResponse[T] {
	if items == nil {
		items = []T{}
	}
	return &PaginatedResponse[T]{TotalItems: total, Items: items}
}

// Paginate corta un conjunto ya ordenado según la petición.
func Paginate[T any](all []T, req PaginatedRequest) *PaginatedResponse[T] {
	start := req.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + req.Results
	if end > len(all) {
		end = len(all)
	}
	return NewPaginatedResponse(len(all), append([]T(nil), all[start:end]...))
}

// SearchResult entidad encontrada por búsqueda de texto libre con su relevancia.
// Mayor Rank = coincidencia más fuerte.
type SearchResult[T any] struct {
	Result T   `json:"result"`
	Rank   int `json:"rank"`
}

// ValidationError envuelve un error de ozzo-validation (u otro) con domain.ErrValidation.
func ValidationError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrValidation, err)
}
