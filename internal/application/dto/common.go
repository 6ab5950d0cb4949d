package dto

import "github.com/jhoicas/partsbin/internal/domain/entity"

// PageRequest paginación tal como llega de la línea de comandos.
type PageRequest struct {
	Page    int
	Results int
	OrderBy string
	Desc    bool
}

// DefaultPage aplica valores por defecto si Page/Results son cero.
func (p *PageRequest) DefaultPage() {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Results <= 0 {
		p.Results = 20
	}
}

// ToEntity convierte a la petición del contrato de almacenamiento.
func (p PageRequest) ToEntity() entity.PaginatedRequest {
	req := entity.PaginatedRequest{Page: p.Page, Results: p.Results, OrderBy: p.OrderBy}
	if p.Desc {
		req.Direction = entity.Descending
	}
	return req
}
