package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/shopspring/decimal"
)

const partColumns = `part_id, quantity, low_stock_threshold, cost, part_number, digikey_part_number,
	mouser_part_number, arrow_part_number, description, COALESCE(part_type_id, 0), mounting_type_id,
	package_type, product_url, image_url, datasheet_url, lowest_cost_supplier, lowest_cost_supplier_url,
	project_id, keywords, location, bin_number, bin_number2, manufacturer, manufacturer_part_number,
	user_id, date_created_utc, schema_version`

// PartRepo acceso SQL a la tabla parts (usable con pool o tx).
// No aplica reglas de ámbito por sí mismo: recibe el fragmento de visibilidad ya construido.
type PartRepo struct {
	q Querier
}

// NewPartRepository construye el adaptador de persistencia para partes. Pasar pool o tx (Querier).
func NewPartRepository(q Querier) *PartRepo {
	return &PartRepo{q: q}
}

func scanPart(row pgx.Row) (*entity.Part, error) {
	var p entity.Part
	err := row.Scan(
		&p.PartID, &p.Quantity, &p.LowStockThreshold, &p.Cost, &p.PartNumber, &p.DigiKeyPartNumber,
		&p.MouserPartNumber, &p.ArrowPartNumber, &p.Description, &p.PartTypeID, &p.MountingTypeID,
		&p.PackageType, &p.ProductURL, &p.ImageURL, &p.DatasheetURL, &p.LowestCostSupplier, &p.LowestCostSupplierURL,
		&p.ProjectID, &p.Keywords, &p.Location, &p.BinNumber, &p.BinNumber2, &p.Manufacturer, &p.ManufacturerPartNumber,
		&p.UserID, &p.DateCreatedUTC, &p.SchemaVersion,
	)
	if err != nil {
		return nil, err
	}
	p.DateCreatedUTC = p.DateCreatedUTC.UTC()
	if len(p.Keywords) == 0 {
		p.Keywords = nil
	}
	return &p, nil
}

func collectParts(rows pgx.Rows) ([]*entity.Part, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.Part, error) {
		return scanPart(row)
	})
}

// Create persiste la parte y devuelve el PartID asignado.
func (r *PartRepo) Create(ctx context.Context, p *entity.Part) (int64, error) {
	keywords := p.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO parts (quantity, low_stock_threshold, cost, part_number, digikey_part_number,
			mouser_part_number, arrow_part_number, description, part_type_id, mounting_type_id,
			package_type, product_url, image_url, datasheet_url, lowest_cost_supplier, lowest_cost_supplier_url,
			project_id, keywords, location, bin_number, bin_number2, manufacturer, manufacturer_part_number,
			user_id, date_created_utc, schema_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, 0), $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
		RETURNING part_id`,
		p.Quantity, p.LowStockThreshold, p.Cost, p.PartNumber, p.DigiKeyPartNumber,
		p.MouserPartNumber, p.ArrowPartNumber, p.Description, p.PartTypeID, p.MountingTypeID,
		p.PackageType, p.ProductURL, p.ImageURL, p.DatasheetURL, p.LowestCostSupplier, p.LowestCostSupplierURL,
		p.ProjectID, keywords, p.Location, p.BinNumber, p.BinNumber2, p.Manufacturer, p.ManufacturerPartNumber,
		p.UserID, p.DateCreatedUTC, p.SchemaVersion,
	).Scan(&id)
	if err != nil {
		return 0, translate("insert part", err)
	}
	return id, nil
}

// GetByID obtiene una parte por ID sin filtrar por dueño (para decidir NotFound vs ScopeViolation).
func (r *PartRepo) GetByID(ctx context.Context, id int64) (*entity.Part, error) {
	p, err := scanPart(r.q.QueryRow(ctx, `SELECT `+partColumns+` FROM parts WHERE part_id = $1`, id))
	if err != nil {
		return nil, translate("get part", err)
	}
	return p, nil
}

// GetVisible obtiene la parte solo si el llamador puede verla.
func (r *PartRepo) GetVisible(ctx context.Context, id int64, uc *entity.UserContext) (*entity.Part, error) {
	a := args{id}
	p, err := scanPart(r.q.QueryRow(ctx,
		`SELECT `+partColumns+` FROM parts WHERE part_id = $1 AND `+visibleTo("user_id", uc, &a), a...))
	if err != nil {
		return nil, translate("get part", err)
	}
	return p, nil
}

// GetByNumber prefiere la parte propia sobre la global; luego el menor PartID.
func (r *PartRepo) GetByNumber(ctx context.Context, partNumber string, uc *entity.UserContext) (*entity.Part, error) {
	a := args{partNumber}
	p, err := scanPart(r.q.QueryRow(ctx,
		`SELECT `+partColumns+` FROM parts WHERE part_number = $1 AND `+visibleTo("user_id", uc, &a)+`
		ORDER BY `+ownerFirst("user_id")+`, part_id LIMIT 1`, a...))
	if err != nil {
		return nil, translate("get part by number", err)
	}
	return p, nil
}

// Update reemplaza todos los campos mutables de la parte.
func (r *PartRepo) Update(ctx context.Context, p *entity.Part) error {
	keywords := p.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE parts SET quantity = $2, low_stock_threshold = $3, cost = $4, part_number = $5,
			digikey_part_number = $6, mouser_part_number = $7, arrow_part_number = $8, description = $9,
			part_type_id = NULLIF($10, 0), mounting_type_id = $11, package_type = $12, product_url = $13,
			image_url = $14, datasheet_url = $15, lowest_cost_supplier = $16, lowest_cost_supplier_url = $17,
			project_id = $18, keywords = $19, location = $20, bin_number = $21, bin_number2 = $22,
			manufacturer = $23, manufacturer_part_number = $24, schema_version = $25
		WHERE part_id = $1`,
		p.PartID, p.Quantity, p.LowStockThreshold, p.Cost, p.PartNumber,
		p.DigiKeyPartNumber, p.MouserPartNumber, p.ArrowPartNumber, p.Description,
		p.PartTypeID, p.MountingTypeID, p.PackageType, p.ProductURL,
		p.ImageURL, p.DatasheetURL, p.LowestCostSupplier, p.LowestCostSupplierURL,
		p.ProjectID, keywords, p.Location, p.BinNumber, p.BinNumber2,
		p.Manufacturer, p.ManufacturerPartNumber, p.SchemaVersion,
	)
	if err != nil {
		return translate("update part", err)
	}
	if tag.RowsAffected() == 0 {
		return translate("update part", pgx.ErrNoRows)
	}
	return nil
}

// Delete elimina la parte; sus archivos se eliminan en cascada.
func (r *PartRepo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM parts WHERE part_id = $1`, id)
	if err != nil {
		return false, translate("delete part", err)
	}
	return tag.RowsAffected() > 0, nil
}

// List página de partes visibles con el orden indicado, más el total.
func (r *PartRepo) List(ctx context.Context, uc *entity.UserContext, order string, limit, offset int) ([]*entity.Part, int, error) {
	var a args
	where := visibleTo("user_id", uc, &a)
	total, err := r.count(ctx, where, a)
	if err != nil {
		return nil, 0, err
	}
	page := append(args{}, a...)
	rows, err := r.q.Query(ctx, `SELECT `+partColumns+` FROM parts WHERE `+where+
		` ORDER BY `+order+` LIMIT `+page.add(limit)+` OFFSET `+page.add(offset), page...)
	if err != nil {
		return nil, 0, translate("list parts", err)
	}
	list, err := collectParts(rows)
	if err != nil {
		return nil, 0, translate("list parts", err)
	}
	return list, total, nil
}

// Where partes visibles que cumplen el fragmento SQL dado, en orden de PartID.
// cond debe haber sido construido sobre el mismo acumulador a.
func (r *PartRepo) Where(ctx context.Context, uc *entity.UserContext, cond string, a args) ([]*entity.Part, error) {
	where := visibleTo("user_id", uc, &a)
	if cond != "" {
		where += " AND " + cond
	}
	rows, err := r.q.Query(ctx, `SELECT `+partColumns+` FROM parts WHERE `+where+` ORDER BY part_id`, a...)
	if err != nil {
		return nil, translate("query parts", err)
	}
	list, err := collectParts(rows)
	if err != nil {
		return nil, translate("query parts", err)
	}
	return list, nil
}

// searchText concatenación de los campos escalares buscables.
const searchText = `concat_ws(' ', part_number, digikey_part_number, mouser_part_number, arrow_part_number,
		manufacturer_part_number, manufacturer, description, location, bin_number, bin_number2, package_type)`

// SearchCandidates partes visibles que pueden coincidir con algún término.
// ILIKE solo equivale al case-folding Unicode del ranking sobre texto ASCII, así que las
// filas con caracteres no ASCII pasan siempre el prefiltro y el ranking en Go decide.
func (r *PartRepo) SearchCandidates(ctx context.Context, terms []string, uc *entity.UserContext) ([]*entity.Part, error) {
	var a args
	return r.Where(ctx, uc, searchCondition(terms, &a), a)
}

func searchCondition(terms []string, a *args) string {
	patterns := make([]string, len(terms))
	for i, t := range terms {
		patterns[i] = "%" + escapeLike(t) + "%"
	}
	p := a.add(patterns)
	return `(` + searchText + ` ILIKE ANY(` + p + `)
		OR octet_length(` + searchText + `) <> char_length(` + searchText + `)
		OR EXISTS (SELECT 1 FROM unnest(keywords) k WHERE k ILIKE ANY(` + p + `) OR octet_length(k) <> char_length(k)))`
}

// escapeLike neutraliza los comodines de LIKE en un término de búsqueda.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Totals agregados de inventario visibles: existencias, registros y valor exacto.
func (r *PartRepo) Totals(ctx context.Context, uc *entity.UserContext) (quantity, unique int64, value decimal.Decimal, err error) {
	var a args
	err = r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0)::bigint, COUNT(*), COALESCE(SUM(quantity::numeric * cost), 0)
		FROM parts WHERE `+visibleTo("user_id", uc, &a), a...).Scan(&quantity, &unique, &value)
	if err != nil {
		return 0, 0, decimal.Zero, translate("parts totals", err)
	}
	return quantity, unique, value, nil
}

// LowStock página de partes bajo su umbral, las más críticas primero.
// La razón es < 1 y la división numeric conserva al menos 20 decimales; con umbrales
// INTEGER dos razones distintas difieren en más de 1e-19, así que el orden coincide
// con el producto cruzado de entity.LowStockLess.
func (r *PartRepo) LowStock(ctx context.Context, uc *entity.UserContext, limit, offset int) ([]*entity.Part, int, error) {
	var a args
	where := visibleTo("user_id", uc, &a) + " AND quantity < low_stock_threshold"
	total, err := r.count(ctx, where, a)
	if err != nil {
		return nil, 0, err
	}
	page := append(args{}, a...)
	rows, err := r.q.Query(ctx, `SELECT `+partColumns+` FROM parts WHERE `+where+`
		ORDER BY quantity::numeric / low_stock_threshold, part_id
		LIMIT `+page.add(limit)+` OFFSET `+page.add(offset), page...)
	if err != nil {
		return nil, 0, translate("low stock", err)
	}
	list, err := collectParts(rows)
	if err != nil {
		return nil, 0, translate("low stock", err)
	}
	return list, total, nil
}

// CountByPartType partes (de cualquier dueño) que referencian el tipo.
func (r *PartRepo) CountByPartType(ctx context.Context, partTypeID int64) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM parts WHERE part_type_id = $1`, partTypeID).Scan(&n); err != nil {
		return 0, translate("count parts by type", err)
	}
	return n, nil
}

func (r *PartRepo) count(ctx context.Context, where string, a args) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM parts WHERE `+where, a...).Scan(&n); err != nil {
		return 0, translate("count parts", err)
	}
	return n, nil
}
