package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/jhoicas/partsbin/internal/domain"
	"github.com/jhoicas/partsbin/internal/domain/entity"
)

// putPartType escribe el registro y su índice de nombre.
func putPartType(txn *badger.Txn, t *entity.PartType) error {
	if err := putJSON(txn, makePartTypeKey(t.PartTypeID), t); err != nil {
		return err
	}
	return txn.Set(makePartTypeNameKey(t.UserID, entity.NameKey(t.Name)), encodeID(t.PartTypeID))
}

func getPartType(txn *badger.Txn, id int64) (*entity.PartType, error) {
	t, err := getJSON[entity.PartType](txn, makePartTypeKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFound("get part type", "part type", id)
	}
	return t, err
}

func getVisiblePartType(txn *badger.Txn, id int64, uc *entity.UserContext) (*entity.PartType, error) {
	t, err := getPartType(txn, id)
	if err != nil {
		return nil, err
	}
	if !uc.CanSee(t.UserID) {
		return nil, notFound("get part type", "part type", id)
	}
	return t, nil
}

// partTypeByName el tipo propio del llamador gana sobre el global del mismo nombre.
func partTypeByName(txn *badger.Txn, name string, uc *entity.UserContext) (*entity.PartType, error) {
	nameKey := entity.NameKey(name)
	owners := []*int{nil}
	if owner := uc.Owner(); owner != nil {
		owners = []*int{owner, nil}
	}
	for _, owner := range owners {
		item, err := txn.Get(makePartTypeNameKey(owner, nameKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var id int64
		if err := item.Value(func(val []byte) error {
			id = decodeID(val)
			return nil
		}); err != nil {
			return nil, err
		}
		return getPartType(txn, id)
	}
	return nil, notFound("get part type by name", "part type", name)
}

func (p *Provider) GetOrCreatePartType(ctx context.Context, partType *entity.PartType, uc *entity.UserContext) (*entity.PartType, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get or create part type: %w", err)
	}
	in, err := entity.PrepareNewPartType(partType, uc, entity.Now())
	if err != nil {
		return nil, err
	}
	key := uc.String() + "\x00" + entity.NameKey(in.Name)
	v, err, _ := p.sf.Do(key, func() (interface{}, error) {
		return p.getOrCreatePartType(in, uc)
	})
	if err != nil {
		return nil, err
	}
	return v.(*entity.PartType).Clone(), nil
}

// getOrCreatePartType entre transacciones decide la detección de conflictos de badger:
// si otra escribió el mismo índice de nombre, el commit falla y se vuelve a leer.
func (p *Provider) getOrCreatePartType(in *entity.PartType, uc *entity.UserContext) (*entity.PartType, error) {
	for attempt := 0; attempt < getOrCreateAttempts; attempt++ {
		var out *entity.PartType
		err := p.b.update("get or create part type", func(txn *badger.Txn) error {
			found, err := partTypeByName(txn, in.Name, uc)
			if err == nil {
				out = found
				return nil
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if in.ParentPartTypeID != nil {
				lookup := func(id int64) (*entity.PartType, error) { return getVisiblePartType(txn, id, uc) }
				if err := entity.CheckPartTypeParent(0, in.ParentPartTypeID, lookup); err != nil {
					return err
				}
			}
			id, err := p.b.nextID(partTypeSeq)
			if err != nil {
				return err
			}
			created := in.Clone()
			created.PartTypeID = id + entity.MaxDefaultPartTypeID
			if err := putPartType(txn, created); err != nil {
				return err
			}
			out = created
			return nil
		})
		if errors.Is(err, badger.ErrConflict) {
			p.log.Debug().Str("name", in.Name).Int("attempt", attempt+1).Msg("conflicto creando tipo de parte; releyendo")
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("get or create part type %q: %w: carrera no resuelta", in.Name, domain.ErrConflict)
}

func (p *Provider) GetPartType(ctx context.Context, partTypeID int64, uc *entity.UserContext) (*entity.PartType, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get part type: %w", err)
	}
	var out *entity.PartType
	err := p.b.view("get part type", func(txn *badger.Txn) error {
		var err error
		out, err = getVisiblePartType(txn, partTypeID, uc)
		return err
	})
	return out, err
}

func (p *Provider) UpdatePartType(ctx context.Context, partType *entity.PartType, uc *entity.UserContext) (*entity.PartType, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("update part type: %w", err)
	}
	if partType == nil {
		return nil, entity.ValidationError("update part type", errors.New("tipo nulo"))
	}
	var out *entity.PartType
	err := p.b.update("update part type", func(txn *badger.Txn) error {
		existing, err := getPartType(txn, partType.PartTypeID)
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
		lookup := func(id int64) (*entity.PartType, error) { return getVisiblePartType(txn, id, uc) }
		if err := entity.CheckPartTypeParent(next.PartTypeID, next.ParentPartTypeID, lookup); err != nil {
			return err
		}
		same, err := partTypeByName(txn, next.Name, uc)
		switch {
		case err == nil && same.PartTypeID != next.PartTypeID:
			return fmt.Errorf("update part type: %w: ya existe el tipo %q", domain.ErrConflict, same.Name)
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return err
		}
		if oldKey := entity.NameKey(existing.Name); oldKey != entity.NameKey(next.Name) {
			if err := txn.Delete(makePartTypeNameKey(existing.UserID, oldKey)); err != nil {
				return err
			}
		}
		out = next
		return putPartType(txn, next)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Provider) DeletePartType(ctx context.Context, partTypeID int64, uc *entity.UserContext) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("delete part type: %w", err)
	}
	deleted := false
	err := p.b.update("delete part type", func(txn *badger.Txn) error {
		existing, err := getPartType(txn, partTypeID)
		if err != nil {
			return ignoreNotFound(err)
		}
		if err := entity.CheckPartTypeMutable("delete part type", existing, uc); err != nil {
			return err
		}
		var parts, children int
		if err := scan(txn, partPrefix, func(part *entity.Part) error {
			if part.PartTypeID == partTypeID {
				parts++
			}
			return nil
		}); err != nil {
			return err
		}
		if err := scan(txn, partTypePrefix, func(t *entity.PartType) error {
			if t.ParentPartTypeID != nil && *t.ParentPartTypeID == partTypeID {
				children++
			}
			return nil
		}); err != nil {
			return err
		}
		if parts > 0 || children > 0 {
			return fmt.Errorf("delete part type %d: %w: referenciado por %d partes y %d subtipos",
				partTypeID, domain.ErrConflict, parts, children)
		}
		if err := txn.Delete(makePartTypeNameKey(existing.UserID, entity.NameKey(existing.Name))); err != nil {
			return err
		}
		if err := txn.Delete(makePartTypeKey(partTypeID)); err != nil {
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

func (p *Provider) GetPartTypes(ctx context.Context, uc *entity.UserContext) ([]*entity.PartType, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get part types: %w", err)
	}
	var out []*entity.PartType
	err := p.b.view("get part types", func(txn *badger.Txn) error {
		var err error
		out, err = collectVisible(txn, partTypePrefix, uc, partTypeOwner)
		return err
	})
	return out, err
}
