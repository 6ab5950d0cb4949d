package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/jhoicas/partsbin/internal/domain"
	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/jhoicas/partsbin/internal/domain/query"
	"github.com/jhoicas/partsbin/internal/domain/search"
	"github.com/shopspring/decimal"
)

func getPart(txn *badger.Txn, id int64) (*entity.Part, error) {
	p, err := getJSON[entity.Part](txn, makePartKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFound("get part", "part", id)
	}
	if err != nil {
		return nil, err
	}
	entity.UpgradePart(p)
	return p, nil
}

func getVisiblePart(txn *badger.Txn, id int64, uc *entity.UserContext) (*entity.Part, error) {
	p, err := getPart(txn, id)
	if err != nil {
		return nil, err
	}
	if !uc.CanSee(p.UserID) {
		return nil, notFound("get part", "part", id)
	}
	return p, nil
}

func visibleParts(txn *badger.Txn, uc *entity.UserContext) ([]*entity.Part, error) {
	parts, err := collectVisible(txn, partPrefix, uc, partOwner)
	for _, p := range parts {
		entity.UpgradePart(p)
	}
	return parts, err
}

// checkPartRefs el tipo y el proyecto referenciados deben existir y ser visibles.
func checkPartRefs(txn *badger.Txn, part *entity.Part, uc *entity.UserContext) error {
	if part.PartTypeID != 0 {
		if _, err := getVisiblePartType(txn, part.PartTypeID, uc); err != nil {
			return fmt.Errorf("part type %d: %w", part.PartTypeID, err)
		}
	}
	if part.ProjectID != nil {
		if _, err := getVisibleProject(txn, *part.ProjectID, uc); err != nil {
			return fmt.Errorf("project %d: %w", *part.ProjectID, err)
		}
	}
	return nil
}

func (p *Provider) AddPart(ctx context.Context, part *entity.Part, uc *entity.UserContext) (*entity.Part, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("add part: %w", err)
	}
	in, err := entity.PrepareNewPart(part, uc, entity.Now())
	if err != nil {
		return nil, err
	}
	err = p.b.update("add part", func(txn *badger.Txn) error {
		if err := checkPartRefs(txn, in, uc); err != nil {
			return err
		}
		id, err := p.b.nextID(partSeq)
		if err != nil {
			return err
		}
		in.PartID = id
		return putJSON(txn, makePartKey(id), in)
	})
	if err != nil {
		return nil, err
	}
	return in, nil
}

func (p *Provider) UpdatePart(ctx context.Context, part *entity.Part, uc *entity.UserContext) (*entity.Part, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("update part: %w", err)
	}
	if part == nil {
		return nil, entity.ValidationError("update part", errors.New("parte nula"))
	}
	var out *entity.Part
	err := p.b.update("update part", func(txn *badger.Txn) error {
		existing, err := getPart(txn, part.PartID)
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
		if err := checkPartRefs(txn, next, uc); err != nil {
			return err
		}
		out = next
		return putJSON(txn, makePartKey(next.PartID), next)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Provider) GetPart(ctx context.Context, partID int64, uc *entity.UserContext) (*entity.Part, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get part: %w", err)
	}
	var out *entity.Part
	err := p.b.view("get part", func(txn *badger.Txn) error {
		var err error
		out, err = getVisiblePart(txn, partID, uc)
		return err
	})
	return out, err
}

func (p *Provider) GetPartByNumber(ctx context.Context, partNumber string, uc *entity.UserContext) (*entity.Part, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get part by number: %w", err)
	}
	var out *entity.Part
	err := p.b.view("get part by number", func(txn *badger.Txn) error {
		parts, err := visibleParts(txn, uc)
		if err != nil {
			return err
		}
		// Orden de id ascendente: el primero propio gana; si no hay propio, el primero global.
		for _, part := range parts {
			if part.PartNumber != partNumber {
				continue
			}
			if part.UserID != nil {
				out = part
				return nil
			}
			if out == nil {
				out = part
			}
		}
		if out == nil {
			return notFound("get part by number", "part number", partNumber)
		}
		return nil
	})
	return out, err
}

func (p *Provider) GetParts(ctx context.Context, req entity.PaginatedRequest, uc *entity.UserContext) (*entity.PaginatedResponse[*entity.Part], error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get parts: %w", err)
	}
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
	var out *entity.PaginatedResponse[*entity.Part]
	err := p.b.view("get parts", func(txn *badger.Txn) error {
		parts, err := visibleParts(txn, uc)
		if err != nil {
			return err
		}
		if field != "" || req.IsDescending() {
			if field == "" {
				field = query.PartID
			}
			sort.SliceStable(parts, func(i, j int) bool {
				return query.ComparePart(parts[i], parts[j], field, req.IsDescending()) < 0
			})
		}
		out = entity.Paginate(parts, req)
		return nil
	})
	return out, err
}

func (p *Provider) GetPartsMatching(ctx context.Context, predicate query.Expr, uc *entity.UserContext) ([]*entity.Part, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get parts matching: %w", err)
	}
	pred, err := query.Compile(predicate)
	if err != nil {
		return nil, err
	}
	out := []*entity.Part{}
	err = p.b.view("get parts matching", func(txn *badger.Txn) error {
		parts, err := visibleParts(txn, uc)
		if err != nil {
			return err
		}
		for _, part := range parts {
			if pred.Match(part) {
				out = append(out, part)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Provider) FindParts(ctx context.Context, keywords string, uc *entity.UserContext) ([]entity.SearchResult[*entity.Part], error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("find parts: %w", err)
	}
	ranker := search.NewRanker(keywords)
	if ranker.Empty() {
		return []entity.SearchResult[*entity.Part]{}, nil
	}
	var out []entity.SearchResult[*entity.Part]
	err := p.b.view("find parts", func(txn *badger.Txn) error {
		parts, err := visibleParts(txn, uc)
		if err != nil {
			return err
		}
		out = ranker.RankAll(parts)
		return nil
	})
	return out, err
}

func (p *Provider) DeletePart(ctx context.Context, partID int64, uc *entity.UserContext) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("delete part: %w", err)
	}
	deleted := false
	err := p.b.update("delete part", func(txn *badger.Txn) error {
		existing, err := getPart(txn, partID)
		if err != nil {
			return ignoreNotFound(err)
		}
		if err := uc.CheckModify("delete part", existing.UserID); err != nil {
			return err
		}
		if err := deleteFilesOfPart(txn, partID); err != nil {
			return err
		}
		if err := txn.Delete(makePartKey(partID)); err != nil {
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

// Aggregates

// totals existencias, registros y valor exacto de las partes visibles.
func (p *Provider) totals(ctx context.Context, op string, uc *entity.UserContext) (quantity, unique int64, value decimal.Decimal, err error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}
	value = decimal.Zero
	err = p.b.view(op, func(txn *badger.Txn) error {
		return scan(txn, partPrefix, func(part *entity.Part) error {
			if !uc.CanSee(part.UserID) {
				return nil
			}
			quantity += part.Quantity
			unique++
			value = value.Add(part.Value())
			return nil
		})
	})
	return quantity, unique, value, err
}

func (p *Provider) GetPartsCount(ctx context.Context, uc *entity.UserContext) (int64, error) {
	qty, _, _, err := p.totals(ctx, "get parts count", uc)
	return qty, err
}

func (p *Provider) GetUniquePartsCount(ctx context.Context, uc *entity.UserContext) (int64, error) {
	_, unique, _, err := p.totals(ctx, "get unique parts count", uc)
	return unique, err
}

func (p *Provider) GetPartsValue(ctx context.Context, uc *entity.UserContext) (decimal.Decimal, error) {
	_, _, value, err := p.totals(ctx, "get parts value", uc)
	return value, err
}

func (p *Provider) GetLowStock(ctx context.Context, req entity.PaginatedRequest, uc *entity.UserContext) (*entity.PaginatedResponse[*entity.Part], error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get low stock: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out *entity.PaginatedResponse[*entity.Part]
	err := p.b.view("get low stock", func(txn *badger.Txn) error {
		var low []*entity.Part
		err := scan(txn, partPrefix, func(part *entity.Part) error {
			if uc.CanSee(part.UserID) && part.IsLowStock() {
				entity.UpgradePart(part)
				low = append(low, part)
			}
			return nil
		})
		if err != nil {
			return err
		}
		sort.SliceStable(low, func(i, j int) bool { return entity.LowStockLess(low[i], low[j]) })
		out = entity.Paginate(low, req)
		return nil
	})
	return out, err
}

func ignoreNotFound(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}
