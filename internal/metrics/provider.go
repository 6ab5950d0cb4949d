package metrics

import (
	"context"
	"time"

	"github.com/jhoicas/partsbin/internal/domain"
	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/jhoicas/partsbin/internal/domain/query"
	"github.com/jhoicas/partsbin/internal/domain/repository"
	"github.com/jhoicas/partsbin/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var _ repository.StorageProvider = (*Provider)(nil)

// Provider decorador: delega en el proveedor real y registra latencia, resultado y log.
type Provider struct {
	next repository.StorageProvider
	m    *Metrics
	log  *logger.Logger
}

// Wrap instrumenta next. m nil desactiva las métricas y deja solo el log.
func Wrap(next repository.StorageProvider, m *Metrics, log *logger.Logger) *Provider {
	if log == nil {
		log = logger.Nop()
	}
	return &Provider{next: next, m: m, log: log.Named("storage")}
}

// Unwrap devuelve el proveedor decorado.
func (p *Provider) Unwrap() repository.StorageProvider {
	return p.next
}

func observe[T any](p *Provider, op string, uc *entity.UserContext, fn func() (T, error)) (T, error) {
	start := time.Now()
	if p.m != nil {
		p.m.Inflight.WithLabelValues(op).Inc()
		defer p.m.Inflight.WithLabelValues(op).Dec()
	}

	v, err := fn()

	elapsed := time.Since(start)
	result := Result(err)
	if p.m != nil {
		p.m.Operations.WithLabelValues(op, result).Inc()
		p.m.Duration.WithLabelValues(op).Observe(elapsed.Seconds())
	}

	var ev *zerolog.Event
	switch {
	case err == nil:
		ev = p.log.Debug()
	case domain.IsClientError(err):
		ev = p.log.Warn().Err(err)
	default:
		ev = p.log.Error().Err(err)
	}
	ev.Str("op", op).Str("user", uc.String()).Str("result", result).Dur("elapsed", elapsed).Msg("storage")
	return v, err
}

func (p *Provider) GetDatabase(ctx context.Context, uc *entity.UserContext) (*entity.Database, error) {
	return observe(p, "GetDatabase", uc, func() (*entity.Database, error) {
		return p.next.GetDatabase(ctx, uc)
	})
}

func (p *Provider) GetOAuthCredential(ctx context.Context, providerName string, uc *entity.UserContext) (*entity.OAuthCredential, error) {
	return observe(p, "GetOAuthCredential", uc, func() (*entity.OAuthCredential, error) {
		return p.next.GetOAuthCredential(ctx, providerName, uc)
	})
}

func (p *Provider) SaveOAuthCredential(ctx context.Context, credential *entity.OAuthCredential, uc *entity.UserContext) (*entity.OAuthCredential, error) {
	return observe(p, "SaveOAuthCredential", uc, func() (*entity.OAuthCredential, error) {
		return p.next.SaveOAuthCredential(ctx, credential, uc)
	})
}

func (p *Provider) RemoveOAuthCredential(ctx context.Context, providerName string, uc *entity.UserContext) error {
	_, err := observe(p, "RemoveOAuthCredential", uc, func() (struct{}, error) {
		return struct{}{}, p.next.RemoveOAuthCredential(ctx, providerName, uc)
	})
	return err
}

func (p *Provider) AddPart(ctx context.Context, part *entity.Part, uc *entity.UserContext) (*entity.Part, error) {
	return observe(p, "AddPart", uc, func() (*entity.Part, error) {
		return p.next.AddPart(ctx, part, uc)
	})
}

func (p *Provider) UpdatePart(ctx context.Context, part *entity.Part, uc *entity.UserContext) (*entity.Part, error) {
	return observe(p, "UpdatePart", uc, func() (*entity.Part, error) {
		return p.next.UpdatePart(ctx, part, uc)
	})
}

func (p *Provider) GetPart(ctx context.Context, partID int64, uc *entity.UserContext) (*entity.Part, error) {
	return observe(p, "GetPart", uc, func() (*entity.Part, error) {
		return p.next.GetPart(ctx, partID, uc)
	})
}

func (p *Provider) GetPartByNumber(ctx context.Context, partNumber string, uc *entity.UserContext) (*entity.Part, error) {
	return observe(p, "GetPartByNumber", uc, func() (*entity.Part, error) {
		return p.next.GetPartByNumber(ctx, partNumber, uc)
	})
}

func (p *Provider) GetParts(ctx context.Context, req entity.PaginatedRequest, uc *entity.UserContext) (*entity.PaginatedResponse[*entity.Part], error) {
	return observe(p, "GetParts", uc, func() (*entity.PaginatedResponse[*entity.Part], error) {
		return p.next.GetParts(ctx, req, uc)
	})
}

func (p *Provider) GetPartsMatching(ctx context.Context, predicate query.Expr, uc *entity.UserContext) ([]*entity.Part, error) {
	return observe(p, "GetPartsMatching", uc, func() ([]*entity.Part, error) {
		return p.next.GetPartsMatching(ctx, predicate, uc)
	})
}

func (p *Provider) FindParts(ctx context.Context, keywords string, uc *entity.UserContext) ([]entity.SearchResult[*entity.Part], error) {
	return observe(p, "FindParts", uc, func() ([]entity.SearchResult[*entity.Part], error) {
		return p.next.FindParts(ctx, keywords, uc)
	})
}

func (p *Provider) DeletePart(ctx context.Context, partID int64, uc *entity.UserContext) (bool, error) {
	return observe(p, "DeletePart", uc, func() (bool, error) {
		return p.next.DeletePart(ctx, partID, uc)
	})
}

func (p *Provider) GetOrCreatePartType(ctx context.Context, partType *entity.PartType, uc *entity.UserContext) (*entity.PartType, error) {
	return observe(p, "GetOrCreatePartType", uc, func() (*entity.PartType, error) {
		return p.next.GetOrCreatePartType(ctx, partType, uc)
	})
}

func (p *Provider) GetPartType(ctx context.Context, partTypeID int64, uc *entity.UserContext) (*entity.PartType, error) {
	return observe(p, "GetPartType", uc, func() (*entity.PartType, error) {
		return p.next.GetPartType(ctx, partTypeID, uc)
	})
}

func (p *Provider) UpdatePartType(ctx context.Context, partType *entity.PartType, uc *entity.UserContext) (*entity.PartType, error) {
	return observe(p, "UpdatePartType", uc, func() (*entity.PartType, error) {
		return p.next.UpdatePartType(ctx, partType, uc)
	})
}

func (p *Provider) DeletePartType(ctx context.Context, partTypeID int64, uc *entity.UserContext) (bool, error) {
	return observe(p, "DeletePartType", uc, func() (bool, error) {
		return p.next.DeletePartType(ctx, partTypeID, uc)
	})
}

func (p *Provider) GetPartTypes(ctx context.Context, uc *entity.UserContext) ([]*entity.PartType, error) {
	return observe(p, "GetPartTypes", uc, func() ([]*entity.PartType, error) {
		return p.next.GetPartTypes(ctx, uc)
	})
}

func (p *Provider) AddProject(ctx context.Context, project *entity.Project, uc *entity.UserContext) (*entity.Project, error) {
	return observe(p, "AddProject", uc, func() (*entity.Project, error) {
		return p.next.AddProject(ctx, project, uc)
	})
}

func (p *Provider) GetProject(ctx context.Context, projectID int64, uc *entity.UserContext) (*entity.Project, error) {
	return observe(p, "GetProject", uc, func() (*entity.Project, error) {
		return p.next.GetProject(ctx, projectID, uc)
	})
}

func (p *Provider) GetProjectByName(ctx context.Context, projectName string, uc *entity.UserContext) (*entity.Project, error) {
	return observe(p, "GetProjectByName", uc, func() (*entity.Project, error) {
		return p.next.GetProjectByName(ctx, projectName, uc)
	})
}

func (p *Provider) GetProjects(ctx context.Context, req entity.PaginatedRequest, uc *entity.UserContext) (*entity.PaginatedResponse[*entity.Project], error) {
	return observe(p, "GetProjects", uc, func() (*entity.PaginatedResponse[*entity.Project], error) {
		return p.next.GetProjects(ctx, req, uc)
	})
}

func (p *Provider) UpdateProject(ctx context.Context, project *entity.Project, uc *entity.UserContext) (*entity.Project, error) {
	return observe(p, "UpdateProject", uc, func() (*entity.Project, error) {
		return p.next.UpdateProject(ctx, project, uc)
	})
}

func (p *Provider) DeleteProject(ctx context.Context, projectID int64, uc *entity.UserContext) (bool, error) {
	return observe(p, "DeleteProject", uc, func() (bool, error) {
		return p.next.DeleteProject(ctx, projectID, uc)
	})
}

func (p *Provider) GetPartsCount(ctx context.Context, uc *entity.UserContext) (int64, error) {
	return observe(p, "GetPartsCount", uc, func() (int64, error) {
		return p.next.GetPartsCount(ctx, uc)
	})
}

func (p *Provider) GetUniquePartsCount(ctx context.Context, uc *entity.UserContext) (int64, error) {
	return observe(p, "GetUniquePartsCount", uc, func() (int64, error) {
		return p.next.GetUniquePartsCount(ctx, uc)
	})
}

func (p *Provider) GetPartsValue(ctx context.Context, uc *entity.UserContext) (decimal.Decimal, error) {
	return observe(p, "GetPartsValue", uc, func() (decimal.Decimal, error) {
		return p.next.GetPartsValue(ctx, uc)
	})
}

func (p *Provider) GetLowStock(ctx context.Context, req entity.PaginatedRequest, uc *entity.UserContext) (*entity.PaginatedResponse[*entity.Part], error) {
	return observe(p, "GetLowStock", uc, func() (*entity.PaginatedResponse[*entity.Part], error) {
		return p.next.GetLowStock(ctx, req, uc)
	})
}

func (p *Provider) AddStoredFile(ctx context.Context, file *entity.StoredFile, uc *entity.UserContext) (*entity.StoredFile, error) {
	return observe(p, "AddStoredFile", uc, func() (*entity.StoredFile, error) {
		return p.next.AddStoredFile(ctx, file, uc)
	})
}

func (p *Provider) GetStoredFile(ctx context.Context, storedFileID int64, uc *entity.UserContext) (*entity.StoredFile, error) {
	return observe(p, "GetStoredFile", uc, func() (*entity.StoredFile, error) {
		return p.next.GetStoredFile(ctx, storedFileID, uc)
	})
}

func (p *Provider) GetStoredFileByName(ctx context.Context, filename string, uc *entity.UserContext) (*entity.StoredFile, error) {
	return observe(p, "GetStoredFileByName", uc, func() (*entity.StoredFile, error) {
		return p.next.GetStoredFileByName(ctx, filename, uc)
	})
}

func (p *Provider) GetStoredFilesForPart(ctx context.Context, partID int64, fileType *entity.StoredFileType, uc *entity.UserContext) ([]*entity.StoredFile, error) {
	return observe(p, "GetStoredFilesForPart", uc, func() ([]*entity.StoredFile, error) {
		return p.next.GetStoredFilesForPart(ctx, partID, fileType, uc)
	})
}

func (p *Provider) GetStoredFiles(ctx context.Context, req entity.PaginatedRequest, uc *entity.UserContext) (*entity.PaginatedResponse[*entity.StoredFile], error) {
	return observe(p, "GetStoredFiles", uc, func() (*entity.PaginatedResponse[*entity.StoredFile], error) {
		return p.next.GetStoredFiles(ctx, req, uc)
	})
}

// Close cierra el proveedor decorado.
func (p *Provider) Close() error {
	return p.next.Close()
}
