package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/partsbin/internal/domain"
	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/jhoicas/partsbin/internal/domain/query"
	"github.com/jhoicas/partsbin/internal/domain/repository"
	"github.com/jhoicas/partsbin/internal/domain/search"
	"github.com/jhoicas/partsbin/pkg/config"
	"github.com/jhoicas/partsbin/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

var _ repository.StorageProvider = (*Provider)(nil)

// getOrCreateAttempts relecturas tras perder la carrera de inserción de un tipo.
const getOrCreateAttempts = 3

// Provider implementación de repository.StorageProvider sobre PostgreSQL.
type Provider struct {
	pool  *pgxpool.Pool
	tx    *TxRunner
	repos Repos
	sf    singleflight.Group
	log   *logger.Logger
}

// NewProvider construye el proveedor sobre un pool ya migrado.
func NewProvider(pool *pgxpool.Pool, log *logger.Logger) *Provider {
	if log == nil {
		log = logger.Nop()
	}
	return &Provider{
		pool:  pool,
		tx:    NewTxRunner(pool),
		repos: NewRepos(pool),
		log:   log.Named("postgres"),
	}
}

// Open conecta, aplica migraciones pendientes y devuelve el proveedor listo.
func Open(ctx context.Context, cfg config.DBConfig, log *logger.Logger) (*Provider, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p := NewProvider(pool, log)
	if _, err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// Migrate aplica migraciones y siembra la taxonomía por defecto.
func (p *Provider) Migrate(ctx context.Context) (*MigrationResult, error) {
	res, err := Migrate(ctx, p.pool)
	if err != nil {
		return res, err
	}
	p.log.Info().Ints("applied", res.Applied).Int("seeded", res.Seeded).Dur("duration", res.Duration).Msg("migraciones aplicadas")
	return res, nil
}

// Close libera el pool.
func (p *Provider) Close() error {
	p.pool.Close()
	return nil
}

func (p *Provider) GetDatabase(ctx context.Context, uc *entity.UserContext) (*entity.Database, error) {
	db := entity.NewDatabase(entity.Now())
	err := p.tx.Snapshot(ctx, func(r Repos) error {
		var err error
		if db.Parts, err = r.Parts.Where(ctx, uc, "", nil); err != nil {
			return err
		}
		if db.PartTypes, err = r.PartTypes.All(ctx, uc); err != nil {
			return err
		}
		if db.Projects, err = r.Projects.All(ctx, uc); err != nil {
			return err
		}
		if db.StoredFiles, err = r.StoredFiles.All(ctx, uc); err != nil {
			return err
		}
		db.OAuthCredentials, err = r.OAuth.All(ctx, uc)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get database: %w", err)
	}
	return db, nil
}

// OAuth

func (p *Provider) GetOAuthCredential(ctx context.Context, providerName string, uc *entity.UserContext) (*entity.OAuthCredential, error) {
	return p.repos.OAuth.Get(ctx, providerName, uc)
}

func (p *Provider) SaveOAuthCredential(ctx context.Context, credential *entity.OAuthCredential, uc *entity.UserContext) (*entity.OAuthCredential, error) {
	c, err := entity.PrepareOAuthCredential(credential, uc, entity.Now())
	if err != nil {
		return nil, err
	}
	return p.repos.OAuth.Upsert(ctx, c)
}

func (p *Provider) RemoveOAuthCredential(ctx context.Context, providerName string, uc *entity.UserContext) error {
	return p.repos.OAuth.Delete(ctx, providerName, uc)
}

// Parts

// checkPartRefs el tipo y el proyecto referenciados deben existir y ser visibles.
func checkPartRefs(ctx context.Context, r Repos, part *entity.Part, uc *entity.UserContext) error {
	if part.PartTypeID != 0 {
		if _, err := r.PartTypes.GetVisible(ctx, part.PartTypeID, uc); err != nil {
			return fmt.Errorf("part type %d: %w", part.PartTypeID, err)
		}
	}
	if part.ProjectID != nil {
		if _, err := r.Projects.GetVisible(ctx, *part.ProjectID, uc); err != nil {
			return fmt.Errorf("project %d: %w", *part.ProjectID, err)
		}
	}
	return nil
}

func (p *Provider) AddPart(ctx context.Context, part *entity.Part, uc *entity.UserContext) (*entity.Part, error) {
	in, err := entity.PrepareNewPart(part, uc, entity.Now())
	if err != nil {
		return nil, err
	}
	if err := checkPartRefs(ctx, p.repos, in, uc); err != nil {
		return nil, fmt.Errorf("add part: %w", err)
	}
	id, err := p.repos.Parts.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	in.PartID = id
	return in, nil
}

func (p *Provider) UpdatePart(ctx context.Context, part *entity.Part, uc *entity.UserContext) (*entity.Part, error) {
	if part == nil {
		return nil, entity.ValidationError("update part", errors.New("parte nula"))
	}
	var out *entity.Part
	err := p.tx.Run(ctx, func(r Repos) error {
		existing, err := r.Parts.GetByID(ctx, part.PartID)
		if err != nil {
			return err
		}
		if err := uc.CheckModify("update part", existing.UserID); err != nil {
			return err
		}
		next, err := entity.PreparePartUpdate(part, existing)
		if err != nil {
			return err
		}
		if err := checkPartRefs(ctx, r, next, uc); err != nil {
			return fmt.Errorf("update part: %w", err)
		}
		if err := r.Parts.Update(ctx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

func (p *Provider) GetPart(ctx context.Context, partID int64, uc *entity.UserContext) (*entity.Part, error) {
	return p.repos.Parts.GetVisible(ctx, partID, uc)
}

func (p *Provider) GetPartByNumber(ctx context.Context, partNumber string, uc *entity.UserContext) (*entity.Part, error) {
	return p.repos.Parts.GetByNumber(ctx, partNumber, uc)
}

func (p *Provider) GetParts(ctx context.Context, req entity.PaginatedRequest, uc *entity.UserContext) (*entity.PaginatedResponse[*entity.Part], error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var field query.Field
	if req.OrderBy != "" {
		f, err := query.ParseOrderField(req.OrderBy)
		if err != nil {
			return nil, err
		}
		field = f
	}
	list, total, err := p.repos.Parts.List(ctx, uc, orderClause(field, req.IsDescending()), req.Results, req.Offset())
	if err != nil {
		return nil, err
	}
	return entity.NewPaginatedResponse(total, list), nil
}

func (p *Provider) GetPartsMatching(ctx context.Context, predicate query.Expr, uc *entity.UserContext) ([]*entity.Part, error) {
	pred, err := query.Compile(predicate)
	if err != nil {
		return nil, err
	}
	var a args
	cond, err := compilePredicate(pred.Expr(), &a)
	if err != nil {
		return nil, entity.ValidationError("get parts matching", err)
	}
	list, err := p.repos.Parts.Where(ctx, uc, cond, a)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*entity.Part{}
	}
	return list, nil
}

func (p *Provider) FindParts(ctx context.Context, keywords string, uc *entity.UserContext) ([]entity.SearchResult[*entity.Part], error) {
	ranker := search.NewRanker(keywords)
	if ranker.Empty() {
		return []entity.SearchResult[*entity.Part]{}, nil
	}
	candidates, err := p.repos.Parts.SearchCandidates(ctx, ranker.Terms(), uc)
	if err != nil {
		return nil, err
	}
	return ranker.RankAll(candidates), nil
}

func (p *Provider) DeletePart(ctx context.Context, partID int64, uc *entity.UserContext) (bool, error) {
	deleted := false
	err := p.tx.Run(ctx, func(r Repos) error {
		existing, err := r.Parts.GetByID(ctx, partID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := uc.CheckModify("delete part", existing.UserID); err != nil {
			return err
		}
		deleted, err = r.Parts.Delete(ctx, partID)
		return err
	})
	return deleted, err
}

// Part types

func (p *Provider) GetOrCreatePartType(ctx context.Context, partType *entity.PartType, uc *entity.UserContext) (*entity.PartType, error) {
	in, err := entity.PrepareNewPartType(partType, uc, entity.Now())
	if err != nil {
		return nil, err
	}
	// Llamadas concurrentes idénticas en este proceso comparten una sola ida a la base;
	// entre procesos decide el índice único. El trabajo compartido no hereda la
	// cancelación de quien lo inició; cada llamador espera con su propio ctx.
	key := uc.String() + "\x00" + entity.NameKey(in.Name)
	shared := context.WithoutCancel(ctx)
	ch := p.sf.DoChan(key, func() (interface{}, error) {
		return p.getOrCreatePartType(shared, in, uc)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get or create part type: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*entity.PartType).Clone(), nil
	}
}

func (p *Provider) getOrCreatePartType(ctx context.Context, in *entity.PartType, uc *entity.UserContext) (*entity.PartType, error) {
	for attempt := 0; attempt < getOrCreateAttempts; attempt++ {
		found, err := p.repos.PartTypes.GetByName(ctx, in.Name, uc)
		if err == nil {
			return found, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if attempt == 0 && in.ParentPartTypeID != nil {
			lookup := func(id int64) (*entity.PartType, error) { return p.repos.PartTypes.GetVisible(ctx, id, uc) }
			if err := entity.CheckPartTypeParent(0, in.ParentPartTypeID, lookup); err != nil {
				return nil, err
			}
		}
		id, created, err := p.repos.PartTypes.CreateIfAbsent(ctx, in)
		if err != nil {
			return nil, err
		}
		if created {
			out := in.Clone()
			out.PartTypeID = id
			p.log.Debug().Int64("part_type_id", id).Str("name", out.Name).Stringer("user", uc).Msg("tipo de parte creado")
			return out, nil
		}
	}
	return nil, fmt.Errorf("get or create part type %q: %w: carrera no resuelta", in.Name, domain.ErrConflict)
}

func (p *Provider) GetPartType(ctx context.Context, partTypeID int64, uc *entity.UserContext) (*entity.PartType, error) {
	return p.repos.PartTypes.GetVisible(ctx, partTypeID, uc)
}

func (p *Provider) UpdatePartType(ctx context.Context, partType *entity.PartType, uc *entity.UserContext) (*entity.PartType, error) {
	if partType == nil {
		return nil, entity.ValidationError("update part type", errors.New("tipo nulo"))
	}
	var out *entity.PartType
	err := p.tx.Run(ctx, func(r Repos) error {
		existing, err := r.PartTypes.GetByID(ctx, partType.PartTypeID)
		if err != nil {
			return err
		}
		if err := entity.CheckPartTypeMutable("update part type", existing, uc); err != nil {
			return err
		}
		next, err := entity.PreparePartTypeUpdate(partType, existing)
		if err != nil {
			return err
		}
		lookup := func(id int64) (*entity.PartType, error) { return r.PartTypes.GetVisible(ctx, id, uc) }
		if err := entity.CheckPartTypeParent(next.PartTypeID, next.ParentPartTypeID, lookup); err != nil {
			return err
		}
		if same, err := r.PartTypes.GetByName(ctx, next.Name, uc); err == nil && same.PartTypeID != next.PartTypeID {
			return fmt.Errorf("update part type: %w: ya existe el tipo %q", domain.ErrConflict, same.Name)
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err := r.PartTypes.Update(ctx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

func (p *Provider) DeletePartType(ctx context.Context, partTypeID int64, uc *entity.UserContext) (bool, error) {
	deleted := false
	err := p.tx.Run(ctx, func(r Repos) error {
		existing, err := r.PartTypes.GetByID(ctx, partTypeID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := entity.CheckPartTypeMutable("delete part type", existing, uc); err != nil {
			return err
		}
		parts, err := r.Parts.CountByPartType(ctx, partTypeID)
		if err != nil {
			return err
		}
		children, err := r.PartTypes.CountChildren(ctx, partTypeID)
		if err != nil {
			return err
		}
		if parts > 0 || children > 0 {
			return fmt.Errorf("delete part type %d: %w: referenciado por %d partes y %d subtipos",
				partTypeID, domain.ErrConflict, parts, children)
		}
		deleted, err = r.PartTypes.Delete(ctx, partTypeID)
		return err
	})
	return deleted, err
}

func (p *Provider) GetPartTypes(ctx context.Context, uc *entity.UserContext) ([]*entity.PartType, error) {
	list, err := p.repos.PartTypes.All(ctx, uc)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*entity.PartType{}
	}
	return list, nil
}

// Projects

func (p *Provider) AddProject(ctx context.Context, project *entity.Project, uc *entity.UserContext) (*entity.Project, error) {
	in, err := entity.PrepareNewProject(project, uc, entity.Now())
	if err != nil {
		return nil, err
	}
	id, err := p.repos.Projects.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	in.ProjectID = id
	return in, nil
}

func (p *Provider) GetProject(ctx context.Context, projectID int64, uc *entity.UserContext) (*entity.Project, error) {
	return p.repos.Projects.GetVisible(ctx, projectID, uc)
}

func (p *Provider) GetProjectByName(ctx context.Context, projectName string, uc *entity.UserContext) (*entity.Project, error) {
	return p.repos.Projects.GetByName(ctx, projectName, uc)
}

func (p *Provider) GetProjects(ctx context.Context, req entity.PaginatedRequest, uc *entity.UserContext) (*entity.PaginatedResponse[*entity.Project], error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	list, total, err := p.repos.Projects.List(ctx, uc, req.Results, req.Offset())
	if err != nil {
		return nil, err
	}
	return entity.NewPaginatedResponse(total, list), nil
}

func (p *Provider) UpdateProject(ctx context.Context, project *entity.Project, uc *entity.UserContext) (*entity.Project, error) {
	if project == nil {
		return nil, entity.ValidationError("update project", errors.New("proyecto nulo"))
	}
	var out *entity.Project
	err := p.tx.Run(ctx, func(r Repos) error {
		existing, err := r.Projects.GetByID(ctx, project.ProjectID)
		if err != nil {
			return err
		}
		if err := uc.CheckModify("update project", existing.UserID); err != nil {
			return err
		}
		next, err := entity.PrepareProjectUpdate(project, existing, entity.Now())
		if err != nil {
			return err
		}
		if err := r.Projects.Update(ctx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

func (p *Provider) DeleteProject(ctx context.Context, projectID int64, uc *entity.UserContext) (bool, error) {
	deleted := false
	err := p.tx.Run(ctx, func(r Repos) error {
		existing, err := r.Projects.GetByID(ctx, projectID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := uc.CheckModify("delete project", existing.UserID); err != nil {
			return err
		}
		deleted, err = r.Projects.Delete(ctx, projectID)
		return err
	})
	return deleted, err
}

// Aggregates

func (p *Provider) GetPartsCount(ctx context.Context, uc *entity.UserContext) (int64, error) {
	qty, _, _, err := p.repos.Parts.Totals(ctx, uc)
	return qty, err
}

func (p *Provider) GetUniquePartsCount(ctx context.Context, uc *entity.UserContext) (int64, error) {
	_, unique, _, err := p.repos.Parts.Totals(ctx, uc)
	return unique, err
}

func (p *Provider) GetPartsValue(ctx context.Context, uc *entity.UserContext) (decimal.Decimal, error) {
	_, _, value, err := p.repos.Parts.Totals(ctx, uc)
	return value, err
}

func (p *Provider) GetLowStock(ctx context.Context, req entity.PaginatedRequest, uc *entity.UserContext) (*entity.PaginatedResponse[*entity.Part], error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	list, total, err := p.repos.Parts.LowStock(ctx, uc, req.Results, req.Offset())
	if err != nil {
		return nil, err
	}
	return entity.NewPaginatedResponse(total, list), nil
}

// Stored files

func (p *Provider) AddStoredFile(ctx context.Context, file *entity.StoredFile, uc *entity.UserContext) (*entity.StoredFile, error) {
	in, err := entity.PrepareNewStoredFile(file, uc, entity.Now())
	if err != nil {
		return nil, err
	}
	if _, err := p.repos.Parts.GetVisible(ctx, in.PartID, uc); err != nil {
		return nil, fmt.Errorf("add stored file: part %d: %w", in.PartID, err)
	}
	id, err := p.repos.StoredFiles.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	in.StoredFileID = id
	return in, nil
}

func (p *Provider) GetStoredFile(ctx context.Context, storedFileID int64, uc *entity.UserContext) (*entity.StoredFile, error) {
	return p.repos.StoredFiles.GetVisible(ctx, storedFileID, uc)
}

func (p *Provider) GetStoredFileByName(ctx context.Context, filename string, uc *entity.UserContext) (*entity.StoredFile, error) {
	return p.repos.StoredFiles.GetByName(ctx, filename, uc)
}

func (p *Provider) GetStoredFilesForPart(ctx context.Context, partID int64, fileType *entity.StoredFileType, uc *entity.UserContext) ([]*entity.StoredFile, error) {
	list, err := p.repos.StoredFiles.ForPart(ctx, partID, fileType, uc)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*entity.StoredFile{}
	}
	return list, nil
}

func (p *Provider) GetStoredFiles(ctx context.Context, req entity.PaginatedRequest, uc *entity.UserContext) (*entity.PaginatedResponse[*entity.StoredFile], error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	list, total, err := p.repos.StoredFiles.List(ctx, uc, req.Results, req.Offset())
	if err != nil {
		return nil, err
	}
	return entity.NewPaginatedResponse(total, list), nil
}
