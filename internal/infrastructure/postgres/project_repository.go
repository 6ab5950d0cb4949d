package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/partsbin/internal/domain/entity"
)

const projectColumns = `project_id, name, description, location, color, notes, user_id,
	date_created_utc, date_modified_utc, schema_version`

// ProjectRepo acceso SQL a la tabla projects.
type ProjectRepo struct {
	q Querier
}

// NewProjectRepository construye el adaptador. Acepta pool o tx (Querier).
func NewProjectRepository(q Querier) *ProjectRepo {
	return &ProjectRepo{q: q}
}

func scanProject(row pgx.Row) (*entity.Project, error) {
	var p entity.Project
	if err := row.Scan(&p.ProjectID, &p.Name, &p.Description, &p.Location, &p.Color, &p.Notes, &p.UserID,
		&p.DateCreatedUTC, &p.DateModifiedUTC, &p.SchemaVersion); err != nil {
		return nil, err
	}
	p.DateCreatedUTC = p.DateCreatedUTC.UTC()
	p.DateModifiedUTC = p.DateModifiedUTC.UTC()
	return &p, nil
}

func collectProjects(rows pgx.Rows) ([]*entity.Project, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.Project, error) {
		return scanProject(row)
	})
}

// Create persiste el proyecto y devuelve su id.
func (r *ProjectRepo) Create(ctx context.Context, p *entity.Project) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO projects (name, description, location, color, notes, user_id, date_created_utc, date_modified_utc, schema_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING project_id`,
		p.Name, p.Description, p.Location, p.Color, p.Notes, p.UserID, p.DateCreatedUTC, p.DateModifiedUTC, p.SchemaVersion,
	).Scan(&id)
	if err != nil {
		return 0, translate("insert project", err)
	}
	return id, nil
}

// GetByID sin filtro de dueño.
func (r *ProjectRepo) GetByID(ctx context.Context, id int64) (*entity.Project, error) {
	p, err := scanProject(r.q.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE project_id = $1`, id))
	if err != nil {
		return nil, translate("get project", err)
	}
	return p, nil
}

// GetVisible obtiene el proyecto solo si el llamador puede verlo.
func (r *ProjectRepo) GetVisible(ctx context.Context, id int64, uc *entity.UserContext) (*entity.Project, error) {
	a := args{id}
	p, err := scanProject(r.q.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE project_id = $1 AND `+visibleTo("user_id", uc, &a), a...))
	if err != nil {
		return nil, translate("get project", err)
	}
	return p, nil
}

// GetByName sin distinguir mayúsculas; prefiere el propio sobre el global.
func (r *ProjectRepo) GetByName(ctx context.Context, name string, uc *entity.UserContext) (*entity.Project, error) {
	a := args{name}
	p, err := scanProject(r.q.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE lower(name) = lower($1) AND `+visibleTo("user_id", uc, &a)+`
		ORDER BY `+ownerFirst("user_id")+`, project_id LIMIT 1`, a...))
	if err != nil {
		return nil, translate("get project by name", err)
	}
	return p, nil
}

// Update reemplaza los campos mutables.
func (r *ProjectRepo) Update(ctx context.Context, p *entity.Project) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE projects SET name = $2, description = $3, location = $4, color = $5, notes = $6,
			date_modified_utc = $7, schema_version = $8
		WHERE project_id = $1`,
		p.ProjectID, p.Name, p.Description, p.Location, p.Color, p.Notes, p.DateModifiedUTC, p.SchemaVersion)
	if err != nil {
		return translate("update project", err)
	}
	if tag.RowsAffected() == 0 {
		return translate("update project", pgx.ErrNoRows)
	}
	return nil
}

// Delete elimina el proyecto; las partes asociadas quedan con project_id NULL.
func (r *ProjectRepo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM projects WHERE project_id = $1`, id)
	if err != nil {
		return false, translate("delete project", err)
	}
	return tag.RowsAffected() > 0, nil
}

// List página de proyectos visibles en orden de id, más el total.
func (r *ProjectRepo) List(ctx context.Context, uc *entity.UserContext, limit, offset int) ([]*entity.Project, int, error) {
	var a args
	where := visibleTo("user_id", uc, &a)
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM projects WHERE `+where, a...).Scan(&total); err != nil {
		return nil, 0, translate("count projects", err)
	}
	rows, err := r.q.Query(ctx, `SELECT `+projectColumns+` FROM projects WHERE `+where+
		` ORDER BY project_id LIMIT `+a.add(limit)+` OFFSET `+a.add(offset), a...)
	if err != nil {
		return nil, 0, translate("list projects", err)
	}
	list, err := collectProjects(rows)
	if err != nil {
		return nil, 0, translate("list projects", err)
	}
	return list, total, nil
}

// All proyectos visibles (instantánea).
func (r *ProjectRepo) All(ctx context.Context, uc *entity.UserContext) ([]*entity.Project, error) {
	var a args
	rows, err := r.q.Query(ctx, `SELECT `+projectColumns+` FROM projects WHERE `+visibleTo("user_id", uc, &a)+
		` ORDER BY project_id`, a...)
	if err != nil {
		return nil, translate("list projects", err)
	}
	list, err := collectProjects(rows)
	if err != nil {
		return nil, translate("list projects", err)
	}
	return list, nil
}
