package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/partsbin/internal/application/dto"
	"github.com/jhoicas/partsbin/internal/domain/entity"
	reorder "github.com/jhoicas/partsbin/internal/domain/inventory"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultTopLowStock partes críticas incluidas en el resumen si no se indica otra cantidad.
const DefaultTopLowStock = 10

// SummaryUseCase arma el resumen del inventario y la lista de reposición.
type SummaryUseCase struct {
	stock StockReader
}

// NewSummaryUseCase construye el caso de uso.
func NewSummaryUseCase(stock StockReader) *SummaryUseCase {
	return &SummaryUseCase{stock: stock}
}

// GetSummary ejecuta en paralelo las cuatro consultas agregadas.
// top limita la lista de reposición (1..entity.MaxResultsPerPage).
func (s *SummaryUseCase) GetSummary(ctx context.Context, uc *entity.UserContext, top int) (*dto.InventorySummaryDTO, error) {
	if top <= 0 {
		top = DefaultTopLowStock
	}
	if top > entity.MaxResultsPerPage {
		top = entity.MaxResultsPerPage
	}

	var (
		total, unique int64
		value         decimal.Decimal
		low           *entity.PaginatedResponse[*entity.Part]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		total, err = s.stock.GetPartsCount(gctx, uc)
		return err
	})
	g.Go(func() (err error) {
		unique, err = s.stock.GetUniquePartsCount(gctx, uc)
		return err
	})
	g.Go(func() (err error) {
		value, err = s.stock.GetPartsValue(gctx, uc)
		return err
	})
	g.Go(func() (err error) {
		low, err = s.stock.GetLowStock(gctx, entity.NewPage(1, top), uc)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("inventory summary: %w", err)
	}

	return &dto.InventorySummaryDTO{
		TotalQuantity: total,
		UniqueParts:   unique,
		TotalValue:    value,
		LowStockTotal: low.TotalItems,
		Replenishment: Replenishment(low.Items),
	}, nil
}

// Replenishment convierte partes bajo umbral en sugerencias de pedido.
// Conserva el orden recibido: la prioridad 1 es la primera parte.
func Replenishment(parts []*entity.Part) []dto.ReplenishmentSuggestionDTO {
	out := make([]dto.ReplenishmentSuggestionDTO, 0, len(parts))
	for i, p := range parts {
		suggested := reorder.SuggestedOrder(p.Quantity, p.LowStockThreshold)
		out = append(out, dto.ReplenishmentSuggestionDTO{
			PartID:             p.PartID,
			PartNumber:         p.PartNumber,
			Description:        p.Description,
			Location:           p.Location,
			Quantity:           p.Quantity,
			LowStockThreshold:  p.LowStockThreshold,
			IdealStock:         reorder.IdealStock(p.LowStockThreshold),
			SuggestedOrderQty:  suggested,
			UnitCost:           p.Cost,
			EstimatedOrderCost: reorder.OrderCost(p.Cost, suggested),
			Supplier:           p.LowestCostSupplier,
			Priority:           i + 1,
		})
	}
	return out
}

