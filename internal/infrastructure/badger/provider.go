package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/jhoicas/partsbin/internal/domain/repository"
	"github.com/jhoicas/partsbin/pkg/config"
	"github.com/jhoicas/partsbin/pkg/logger"
	"golang.org/x/sync/singleflight"
)

var _ repository.StorageProvider = (*Provider)(nil)

// getOrCreateAttempts relecturas tras un conflicto SSI durante get-or-create.
const getOrCreateAttempts = 3

// Provider implementación de repository.StorageProvider sobre BadgerDB embebido.
type Provider struct {
	b   *Backend
	sf  singleflight.Group
	log *logger.Logger
}

// MigrationResult resumen de Migrate.
type MigrationResult struct {
	Seeded           int
	UpgradedParts    int
	UpgradedProjects int
}

// NewProvider construye el proveedor sobre un backend abierto y lo migra.
func NewProvider(ctx context.Context, b *Backend, log *logger.Logger) (*Provider, error) {
	if log == nil {
		log = logger.Nop()
	}
	p := &Provider{b: b, log: log.Named("badger")}
	if _, err := p.Migrate(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Open abre el backend según la configuración y devuelve el proveedor listo.
func Open(ctx context.Context, cfg config.BadgerConfig, log *logger.Logger) (*Provider, error) {
	b, err := OpenBackend(cfg, log)
	if err != nil {
		return nil, err
	}
	p, err := NewProvider(ctx, b, log)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return p, nil
}

// Close cierra el backend subyacente.
func (p *Provider) Close() error {
	return p.b.Close()
}

// Migrate siembra la taxonomía por defecto (una sola vez) y sube de versión de esquema
// los registros antiguos.
func (p *Provider) Migrate(ctx context.Context) (*MigrationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	res := &MigrationResult{}
	err := p.b.update("migrate", func(txn *badger.Txn) error {
		seeded, err := exists(txn, []byte(seededKey))
		if err != nil {
			return err
		}
		if !seeded {
			for _, t := range entity.DefaultPartTypes(entity.Now()) {
				if err := putPartType(txn, t); err != nil {
					return err
				}
				res.Seeded++
			}
			if err := txn.Set([]byte(seededKey), []byte{1}); err != nil {
				return err
			}
		}

		var parts []*entity.Part
		if err := scan(txn, partPrefix, func(part *entity.Part) error {
			if entity.UpgradePart(part) {
				parts = append(parts, part)
			}
			return nil
		}); err != nil {
			return err
		}
		for _, part := range parts {
			if err := putJSON(txn, makePartKey(part.PartID), part); err != nil {
				return err
			}
		}
		res.UpgradedParts = len(parts)

		var projects []*entity.Project
		if err := scan(txn, projectPrefix, func(project *entity.Project) error {
			if entity.UpgradeProject(project) {
				projects = append(projects, project)
			}
			return nil
		}); err != nil {
			return err
		}
		for _, project := range projects {
			if err := putJSON(txn, makeProjectKey(project.ProjectID), project); err != nil {
				return err
			}
		}
		res.UpgradedProjects = len(projects)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Seeded > 0 || res.UpgradedParts > 0 || res.UpgradedProjects > 0 {
		p.log.Info().Int("seeded", res.Seeded).Int("upgraded_parts", res.UpgradedParts).
			Int("upgraded_projects", res.UpgradedProjects).Msg("almacén migrado")
	}
	return res, nil
}

// collectVisible registros bajo el prefijo que el llamador puede ver, en orden de id.
// Es la única regla de visibilidad del backend.
func collectVisible[T any](txn *badger.Txn, prefix string, uc *entity.UserContext, owner func(*T) *int) ([]*T, error) {
	out := []*T{}
	err := scan(txn, prefix, func(v *T) error {
		if uc.CanSee(owner(v)) {
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

func partOwner(p *entity.Part) *int             { return p.UserID }
func projectOwner(p *entity.Project) *int       { return p.UserID }
func partTypeOwner(t *entity.PartType) *int     { return t.UserID }
func storedFileOwner(f *entity.StoredFile) *int { return f.UserID }
func oauthOwner(c *entity.OAuthCredential) *int { return c.UserID }

func (p *Provider) GetDatabase(ctx context.Context, uc *entity.UserContext) (*entity.Database, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get database: %w", err)
	}
	db := entity.NewDatabase(entity.Now())
	err := p.b.view("get database", func(txn *badger.Txn) error {
		var err error
		if db.Parts, err = visibleParts(txn, uc); err != nil {
			return err
		}
		if db.PartTypes, err = collectVisible(txn, partTypePrefix, uc, partTypeOwner); err != nil {
			return err
		}
		if db.Projects, err = visibleProjects(txn, uc); err != nil {
			return err
		}
		if db.StoredFiles, err = collectVisible(txn, storedFilePrefix, uc, storedFileOwner); err != nil {
			return err
		}
		db.OAuthCredentials, err = collectVisible(txn, makePartialOAuthKey(uc.Owner()), uc, oauthOwner)
		return err
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// OAuth

func (p *Provider) GetOAuthCredential(ctx context.Context, providerName string, uc *entity.UserContext) (*entity.OAuthCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get oauth credential: %w", err)
	}
	var out *entity.OAuthCredential
	err := p.b.view("get oauth credential", func(txn *badger.Txn) error {
		c, err := getJSON[entity.OAuthCredential](txn, makeOAuthKey(uc.Owner(), providerName))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFound("get oauth credential", "provider", providerName)
		}
		out = c
		return err
	})
	return out, err
}

func (p *Provider) SaveOAuthCredential(ctx context.Context, credential *entity.OAuthCredential, uc *entity.UserContext) (*entity.OAuthCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("save oauth credential: %w", err)
	}
	c, err := entity.PrepareOAuthCredential(credential, uc, entity.Now())
	if err != nil {
		return nil, err
	}
	key := makeOAuthKey(c.UserID, c.Provider)
	err = p.b.update("save oauth credential", func(txn *badger.Txn) error {
		prev, err := getJSON[entity.OAuthCredential](txn, key)
		switch {
		case err == nil:
			c.DateCreatedUTC = prev.DateCreatedUTC
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return putJSON(txn, key, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (p *Provider) RemoveOAuthCredential(ctx context.Context, providerName string, uc *entity.UserContext) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("remove oauth credential: %w", err)
	}
	return p.b.update("remove oauth credential", func(txn *badger.Txn) error {
		return txn.Delete(makeOAuthKey(uc.Owner(), providerName))
	})
}
