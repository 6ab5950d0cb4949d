package repository

import (
	"context"

	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/jhoicas/partsbin/internal/domain/query"
	"github.com/shopspring/decimal"
)

// StorageProvider puerto único de persistencia del inventario (DIP).
//
// Toda operación recibe el *entity.UserContext del llamador (nil = sistema) y se
// restringe a lo visible para él: registros propios o globales. Es seguro para uso
// concurrente; no hay atomicidad entre llamadas salvo GetOrCreatePartType, que nunca
// duplica un tipo bajo concurrencia.
//
// Errores: domain.ErrNotFound, ErrConflict, ErrValidation, ErrScopeViolation,
// ErrStoreUnavailable (siempre envueltos; comparar con errors.Is).
type StorageProvider interface {
	// GetDatabase instantánea consistente de todo lo visible para el usuario.
	GetDatabase(ctx context.Context, uc *entity.UserContext) (*entity.Database, error)

	// GetOAuthCredential devuelve ErrNotFound si no hay credencial para (provider, usuario).
	GetOAuthCredential(ctx context.Context, providerName string, uc *entity.UserContext) (*entity.OAuthCredential, error)
	// SaveOAuthCredential inserta o reemplaza (upsert) la credencial del usuario.
	SaveOAuthCredential(ctx context.Context, credential *entity.OAuthCredential, uc *entity.UserContext) (*entity.OAuthCredential, error)
	// RemoveOAuthCredential es idempotente: eliminar una credencial inexistente no es error.
	RemoveOAuthCredential(ctx context.Context, providerName string, uc *entity.UserContext) error

	// AddPart asigna PartID y persiste; devuelve el registro almacenado.
	AddPart(ctx context.Context, part *entity.Part, uc *entity.UserContext) (*entity.Part, error)
	// UpdatePart reemplaza el registro completo; ErrNotFound si no existe en el ámbito.
	UpdatePart(ctx context.Context, part *entity.Part, uc *entity.UserContext) (*entity.Part, error)
	GetPart(ctx context.Context, partID int64, uc *entity.UserContext) (*entity.Part, error)
	// GetPartByNumber prefiere la parte propia sobre la global y luego el menor PartID.
	GetPartByNumber(ctx context.Context, partNumber string, uc *entity.UserContext) (*entity.Part, error)
	GetParts(ctx context.Context, req entity.PaginatedRequest, uc *entity.UserContext) (*entity.PaginatedResponse[*entity.Part], error)
	// GetPartsMatching filtra con un predicado arbitrario; resultado en orden de PartID.
	GetPartsMatching(ctx context.Context, predicate query.Expr, uc *entity.UserContext) ([]*entity.Part, error)
	// FindParts busca palabras separadas por espacios; búsqueda vacía = resultado vacío.
	FindParts(ctx context.Context, keywords string, uc *entity.UserContext) ([]entity.SearchResult[*entity.Part], error)
	// DeletePart devuelve false si la parte no existía.
	DeletePart(ctx context.Context, partID int64, uc *entity.UserContext) (bool, error)

	// GetOrCreatePartType busca por nombre (sin distinguir mayúsculas) y crea si no existe.
	GetOrCreatePartType(ctx context.Context, partType *entity.PartType, uc *entity.UserContext) (*entity.PartType, error)
	GetPartType(ctx context.Context, partTypeID int64, uc *entity.UserContext) (*entity.PartType, error)
	UpdatePartType(ctx context.Context, partType *entity.PartType, uc *entity.UserContext) (*entity.PartType, error)
	// DeletePartType devuelve ErrConflict si el tipo está referenciado por partes o subtipos.
	DeletePartType(ctx context.Context, partTypeID int64, uc *entity.UserContext) (bool, error)
	GetPartTypes(ctx context.Context, uc *entity.UserContext) ([]*entity.PartType, error)

	AddProject(ctx context.Context, project *entity.Project, uc *entity.UserContext) (*entity.Project, error)
	GetProject(ctx context.Context, projectID int64, uc *entity.UserContext) (*entity.Project, error)
	GetProjectByName(ctx context.Context, projectName string, uc *entity.UserContext) (*entity.Project, error)
	GetProjects(ctx context.Context, req entity.PaginatedRequest, uc *entity.UserContext) (*entity.PaginatedResponse[*entity.Project], error)
	// UpdateProject refresca DateModifiedUTC.
	UpdateProject(ctx context.Context, project *entity.Project, uc *entity.UserContext) (*entity.Project, error)
	DeleteProject(ctx context.Context, projectID int64, uc *entity.UserContext) (bool, error)

	// GetPartsCount suma de Quantity (existencias), no cantidad de filas.
	GetPartsCount(ctx context.Context, uc *entity.UserContext) (int64, error)
	// GetUniquePartsCount cantidad de registros de Part.
	GetUniquePartsCount(ctx context.Context, uc *entity.UserContext) (int64, error)
	// GetPartsValue suma exacta de Quantity * Cost.
	GetPartsValue(ctx context.Context, uc *entity.UserContext) (decimal.Decimal, error)
	// GetLowStock partes con Quantity < LowStockThreshold, las más críticas primero.
	GetLowStock(ctx context.Context, req entity.PaginatedRequest, uc *entity.UserContext) (*entity.PaginatedResponse[*entity.Part], error)

	AddStoredFile(ctx context.Context, file *entity.StoredFile, uc *entity.UserContext) (*entity.StoredFile, error)
	GetStoredFile(ctx context.Context, storedFileID int64, uc *entity.UserContext) (*entity.StoredFile, error)
	GetStoredFileByName(ctx context.Context, filename string, uc *entity.UserContext) (*entity.StoredFile, error)
	// GetStoredFilesForPart fileType nil = todos los tipos.
	GetStoredFilesForPart(ctx context.Context, partID int64, fileType *entity.StoredFileType, uc *entity.UserContext) ([]*entity.StoredFile, error)
	GetStoredFiles(ctx context.Context, req entity.PaginatedRequest, uc *entity.UserContext) (*entity.PaginatedResponse[*entity.StoredFile], error)

	// Close libera el almacenamiento subyacente.
	Close() error
}
