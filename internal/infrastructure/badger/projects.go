package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/jhoicas/partsbin/internal/domain/entity"
)

func getProject(txn *badger.Txn, id int64) (*entity.Project, error) {
	p, err := getJSON[entity.Project](txn, makeProjectKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFound("get project", "project", id)
	}
	if err != nil {
		return nil, err
	}
	entity.UpgradeProject(p)
	return p, nil
}

func getVisibleProject(txn *badger.Txn, id int64, uc *entity.UserContext) (*entity.Project, error) {
	p, err := getProject(txn, id)
	if err != nil {
		return nil, err
	}
	if !uc.CanSee(p.UserID) {
		return nil, notFound("get project", "project", id)
	}
	return p, nil
}

func visibleProjects(txn *badger.Txn, uc *entity.UserContext) ([]*entity.Project, error) {
	projects, err := collectVisible(txn, projectPrefix, uc, projectOwner)
	for _, p := range projects {
		entity.UpgradeProject(p)
	}
	return projects, err
}

func (p *Provider) AddProject(ctx context.Context, project *entity.Project, uc *entity.UserContext) (*entity.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("add project: %w", err)
	}
	in, err := entity.PrepareNewProject(project, uc, entity.Now())
	if err != nil {
		return nil, err
	}
	err = p.b.update("add project", func(txn *badger.Txn) error {
		id, err := p.b.nextID(projectSeq)
		if err != nil {
			return err
		}
		in.ProjectID = id
		return putJSON(txn, makeProjectKey(id), in)
	})
	if err != nil {
		return nil, err
	}
	return in, nil
}

func (p *Provider) GetProject(ctx context.Context, projectID int64, uc *entity.UserContext) (*entity.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	var out *entity.Project
	err := p.b.view("get project", func(txn *badger.Txn) error {
		var err error
		out, err = getVisibleProject(txn, projectID, uc)
		return err
	})
	return out, err
}

func (p *Provider) GetProjectByName(ctx context.Context, projectName string, uc *entity.UserContext) (*entity.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get project by name: %w", err)
	}
	want := strings.ToLower(projectName)
	var out *entity.Project
	err := p.b.view("get project by name", func(txn *badger.Txn) error {
		projects, err := visibleProjects(txn, uc)
		if err != nil {
			return err
		}
		for _, project := range projects {
			if strings.ToLower(project.Name) != want {
				continue
			}
			if project.UserID != nil {
				out = project
				return nil
			}
			if out == nil {
				out = project
			}
		}
		if out == nil {
			return notFound("get project by name", "project", projectName)
		}
		return nil
	})
	return out, err
}

func (p *Provider) GetProjects(ctx context.Context, req entity.PaginatedRequest, uc *entity.UserContext) (*entity.PaginatedResponse[*entity.Project], error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get projects: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out *entity.PaginatedResponse[*entity.Project]
	err := p.b.view("get projects", func(txn *badger.Txn) error {
		projects, err := visibleProjects(txn, uc)
		if err != nil {
			return err
		}
		out = entity.Paginate(projects, req)
		return nil
	})
	return out, err
}

func (p *Provider) UpdateProject(ctx context.Context, project *entity.Project, uc *entity.UserContext) (*entity.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	if project == nil {
		return nil, entity.ValidationError("update project", errors.New("proyecto nulo"))
	}
	var out *entity.Project
	err := p.b.update("update project", func(txn *badger.Txn) error {
		existing, err := getProject(txn, project.ProjectID)
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
		out = next
		return putJSON(txn, makeProjectKey(next.ProjectID), next)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteProject las partes del proyecto quedan sin proyecto.
func (p *Provider) DeleteProject(ctx context.Context, projectID int64, uc *entity.UserContext) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	deleted := false
	err := p.b.update("delete project", func(txn *badger.Txn) error {
		existing, err := getProject(txn, projectID)
		if err != nil {
			return ignoreNotFound(err)
		}
		if err := uc.CheckModify("delete project", existing.UserID); err != nil {
			return err
		}
		var detached []*entity.Part
		if err := scan(txn, partPrefix, func(part *entity.Part) error {
			if part.ProjectID != nil && *part.ProjectID == projectID {
				part.ProjectID = nil
				detached = append(detached, part)
			}
			return nil
		}); err != nil {
			return err
		}
		for _, part := range detached {
			if err := putJSON(txn, makePartKey(part.PartID), part); err != nil {
				return err
			}
		}
		if err := txn.Delete(makeProjectKey(projectID)); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
