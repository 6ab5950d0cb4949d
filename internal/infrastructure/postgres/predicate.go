package postgres

import (
	"fmt"
	"strings"

	"github.com/jhoicas/partsbin/internal/domain/query"
)

// columns expresión SQL de cada campo consultable de Part.
// part_type_id es NULL cuando la parte no tiene tipo; el dominio lo ve como 0.
var columns = map[query.Field]string{
	query.PartID:                 "part_id",
	query.Quantity:               "quantity",
	query.LowStockThreshold:      "low_stock_threshold",
	query.Cost:                   "cost",
	query.PartNumber:             "part_number",
	query.DigiKeyPartNumber:      "digikey_part_number",
	query.MouserPartNumber:       "mouser_part_number",
	query.ArrowPartNumber:        "arrow_part_number",
	query.Description:            "description",
	query.PartTypeID:             "COALESCE(part_type_id, 0)",
	query.MountingTypeID:         "mounting_type_id",
	query.PackageType:            "package_type",
	query.ProductURL:             "product_url",
	query.ImageURL:               "image_url",
	query.DatasheetURL:           "datasheet_url",
	query.LowestCostSupplier:     "lowest_cost_supplier",
	query.LowestCostSupplierURL:  "lowest_cost_supplier_url",
	query.ProjectID:              "project_id",
	query.Keywords:               "keywords",
	query.Location:               "location",
	query.BinNumber:              "bin_number",
	query.BinNumber2:             "bin_number2",
	query.Manufacturer:           "manufacturer",
	query.ManufacturerPartNumber: "manufacturer_part_number",
	query.UserID:                 "user_id",
	query.DateCreatedUTC:         "date_created_utc",
}

var sqlOps = map[query.Op]string{
	query.OpEq: "=",
	query.OpNe: "<>",
	query.OpLt: "<",
	query.OpLe: "<=",
	query.OpGt: ">",
	query.OpGe: ">=",
}

// compilePredicate traduce una expresión normalizada (query.Compile) a SQL parametrizado.
// Cada hoja produce TRUE o FALSE, nunca NULL, para que NOT coincida con la evaluación en memoria.
func compilePredicate(e query.Expr, a *args) (string, error) {
	switch e.Op {
	case query.OpAnd, query.OpOr:
		if len(e.Args) == 0 {
			if e.Op == query.OpAnd {
				return "TRUE", nil
			}
			return "FALSE", nil
		}
		parts := make([]string, 0, len(e.Args))
		for _, arg := range e.Args {
			s, err := compilePredicate(arg, a)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		sep := " AND "
		if e.Op == query.OpOr {
			sep = " OR "
		}
		return "(" + strings.Join(parts, sep) + ")", nil
	case query.OpNot:
		s, err := compilePredicate(e.Args[0], a)
		if err != nil {
			return "", err
		}
		return "(NOT " + s + ")", nil
	}
	return compileLeaf(e, a)
}

func compileLeaf(e query.Expr, a *args) (string, error) {
	col, ok := columns[e.Field]
	kind, _ := query.KindOf(e.Field)
	if !ok {
		return "", fmt.Errorf("compile predicate: campo sin columna %q", e.Field)
	}

	switch e.Op {
	case query.OpIsNull:
		switch kind {
		case query.KindNullableInt:
			return col + " IS NULL", nil
		case query.KindStringSet:
			return "cardinality(" + col + ") = 0", nil
		default:
			return col + " = ''", nil
		}
	case query.OpContains:
		if kind == query.KindStringSet {
			return "EXISTS (SELECT 1 FROM unnest(" + col + ") k WHERE lower(k) = lower(" + a.add(e.Value) + "))", nil
		}
		return "strpos(lower(" + col + "), lower(" + a.add(e.Value) + ")) > 0", nil
	}

	op, ok := sqlOps[e.Op]
	if !ok {
		return "", fmt.Errorf("compile predicate: operador %q", e.Op)
	}

	if kind == query.KindNullableInt {
		switch {
		case e.Value == nil && e.Op == query.OpEq:
			return col + " IS NULL", nil
		case e.Value == nil:
			return col + " IS NOT NULL", nil
		case e.Op == query.OpNe:
			return col + " IS DISTINCT FROM " + a.add(e.Value) + "::bigint", nil
		}
		return "COALESCE(" + col + " " + op + " " + a.add(e.Value) + "::bigint, FALSE)", nil
	}
	if kind == query.KindInt {
		return col + " " + op + " " + a.add(e.Value) + "::bigint", nil
	}
	if kind == query.KindString && e.Op != query.OpEq && e.Op != query.OpNe {
		return col + ` COLLATE "C" ` + op + " " + a.add(e.Value), nil
	}
	return col + " " + op + " " + a.add(e.Value), nil
}

// orderClause ORDER BY de un listado de partes; desempata por part_id ascendente.
// COLLATE "C" alinea el orden de texto con la comparación por bytes en memoria.
func orderClause(f query.Field, descending bool) string {
	if f == "" || f == query.PartID {
		if descending {
			return "part_id DESC"
		}
		return "part_id ASC"
	}
	col := columns[f]
	if kind, _ := query.KindOf(f); kind == query.KindString {
		col += ` COLLATE "C"`
	}
	dir := "ASC"
	if descending {
		dir = "DESC"
	}
	return col + " " + dir + ", part_id ASC"
}
