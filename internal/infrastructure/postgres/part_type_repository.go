package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/partsbin/internal/domain/entity"
)

const partTypeColumns = `part_type_id, parent_part_type_id, name, user_id, date_created_utc`

// PartTypeRepo acceso SQL a la taxonomía de tipos de parte.
type PartTypeRepo struct {
	q Querier
}

// NewPartTypeRepository construye el adaptador. Acepta pool o tx (Querier).
func NewPartTypeRepository(q Querier) *PartTypeRepo {
	return &PartTypeRepo{q: q}
}

func scanPartType(row pgx.Row) (*entity.PartType, error) {
	var t entity.PartType
	if err := row.Scan(&t.PartTypeID, &t.ParentPartTypeID, &t.Name, &t.UserID, &t.DateCreatedUTC); err != nil {
		return nil, err
	}
	t.DateCreatedUTC = t.DateCreatedUTC.UTC()
	return &t, nil
}

// GetByID sin filtro de dueño.
func (r *PartTypeRepo) GetByID(ctx context.Context, id int64) (*entity.PartType, error) {
	t, err := scanPartType(r.q.QueryRow(ctx, `SELECT `+partTypeColumns+` FROM part_types WHERE part_type_id = $1`, id))
	if err != nil {
		return nil, translate("get part type", err)
	}
	return t, nil
}

// GetVisible obtiene el tipo solo si el llamador puede verlo.
func (r *PartTypeRepo) GetVisible(ctx context.Context, id int64, uc *entity.UserContext) (*entity.PartType, error) {
	a := args{id}
	t, err := scanPartType(r.q.QueryRow(ctx,
		`SELECT `+partTypeColumns+` FROM part_types WHERE part_type_id = $1 AND `+visibleTo("user_id", uc, &a), a...))
	if err != nil {
		return nil, translate("get part type", err)
	}
	return t, nil
}

// GetByName busca por clave normalizada entre los tipos visibles; prefiere el propio.
func (r *PartTypeRepo) GetByName(ctx context.Context, name string, uc *entity.UserContext) (*entity.PartType, error) {
	a := args{entity.NameKey(name)}
	t, err := scanPartType(r.q.QueryRow(ctx,
		`SELECT `+partTypeColumns+` FROM part_types WHERE name_key = $1 AND `+visibleTo("user_id", uc, &a)+`
		ORDER BY `+ownerFirst("user_id")+`, part_type_id LIMIT 1`, a...))
	if err != nil {
		return nil, translate("get part type by name", err)
	}
	return t, nil
}

// CreateIfAbsent inserta el tipo salvo que el dueño ya tenga uno con la misma clave.
// created=false significa que otro llamador ganó la carrera; el caso se resuelve releyendo.
func (r *PartTypeRepo) CreateIfAbsent(ctx context.Context, t *entity.PartType) (id int64, created bool, err error) {
	err = r.q.QueryRow(ctx, `
		INSERT INTO part_types (parent_part_type_id, name, name_key, user_id, date_created_utc)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
		RETURNING part_type_id`,
		t.ParentPartTypeID, t.Name, entity.NameKey(t.Name), t.UserID, t.DateCreatedUTC,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, translate("insert part type", err)
	}
	return id, true, nil
}

// Update reemplaza nombre y padre.
func (r *PartTypeRepo) Update(ctx context.Context, t *entity.PartType) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE part_types SET name = $2, name_key = $3, parent_part_type_id = $4
		WHERE part_type_id = $1`,
		t.PartTypeID, t.Name, entity.NameKey(t.Name), t.ParentPartTypeID)
	if err != nil {
		return translate("update part type", err)
	}
	if tag.RowsAffected() == 0 {
		return translate("update part type", pgx.ErrNoRows)
	}
	return nil
}

// CountChildren tipos que declaran a id como padre.
func (r *PartTypeRepo) CountChildren(ctx context.Context, id int64) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM part_types WHERE parent_part_type_id = $1`, id).Scan(&n); err != nil {
		return 0, translate("count part type children", err)
	}
	return n, nil
}

// Delete elimina el tipo. Las referencias existentes producen ErrConflict (FK).
func (r *PartTypeRepo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM part_types WHERE part_type_id = $1`, id)
	if err != nil {
		return false, translate("delete part type", err)
	}
	return tag.RowsAffected() > 0, nil
}

// All tipos visibles en orden de id.
func (r *PartTypeRepo) All(ctx context.Context, uc *entity.UserContext) ([]*entity.PartType, error) {
	var a args
	rows, err := r.q.Query(ctx, `SELECT `+partTypeColumns+` FROM part_types WHERE `+visibleTo("user_id", uc, &a)+
		` ORDER BY part_type_id`, a...)
	if err != nil {
		return nil, translate("list part types", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.PartType, error) {
		return scanPartType(row)
	})
	if err != nil {
		return nil, translate("list part types", err)
	}
	return list, nil
}
