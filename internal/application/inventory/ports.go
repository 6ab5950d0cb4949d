package inventory

import (
	"context"

	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// StockReader consultas agregadas que necesita el resumen de inventario.
type StockReader interface {
	GetPartsCount(ctx context.Context, uc *entity.UserContext) (int64, error)
	GetUniquePartsCount(ctx context.Context, uc *entity.UserContext) (int64, error)
	GetPartsValue(ctx context.Context, uc *entity.UserContext) (decimal.Decimal, error)
	GetLowStock(ctx context.Context, req entity.PaginatedRequest, uc *entity.UserContext) (*entity.PaginatedResponse[*entity.Part], error)
}

// SnapshotReader instantánea completa para exportar.
type SnapshotReader interface {
	GetDatabase(ctx context.Context, uc *entity.UserContext) (*entity.Database, error)
}

// CatalogWriter operaciones usadas al importar un catálogo.
type CatalogWriter interface {
	GetOrCreatePartType(ctx context.Context, partType *entity.PartType, uc *entity.UserContext) (*entity.PartType, error)
	GetProjectByName(ctx context.Context, projectName string, uc *entity.UserContext) (*entity.Project, error)
	AddProject(ctx context.Context, project *entity.Project, uc *entity.UserContext) (*entity.Project, error)
	GetPartByNumber(ctx context.Context, partNumber string, uc *entity.UserContext) (*entity.Part, error)
	AddPart(ctx context.Context, part *entity.Part, uc *entity.UserContext) (*entity.Part, error)
	UpdatePart(ctx context.Context, part *entity.Part, uc *entity.UserContext) (*entity.Part, error)
	GetStoredFileByName(ctx context.Context, filename string, uc *entity.UserContext) (*entity.StoredFile, error)
	AddStoredFile(ctx context.Context, file *entity.StoredFile, uc *entity.UserContext) (*entity.StoredFile, error)
}
