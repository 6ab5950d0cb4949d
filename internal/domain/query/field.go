// Package query define el álgebra cerrada de predicados sobre Part
// (campo, operador, literal; combinados con and/or/not).
//
// Una expresión es serializable (JSON) y se evalúa en memoria con Compile/Match
// o se traduce a SQL en el backend PostgreSQL. No hay reflexión: cada campo
// declara su tipo y su accesor en la tabla fields.
package query

import (
	"fmt"
	"time"

	"github.com/jhoicas/partsbin/internal/domain"
	"github.com/jhoicas/partsbin/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Field nombre de un atributo de Part consultable.
type Field string

const (
	PartID                 Field = "PartId"
	Quantity               Field = "Quantity"
	LowStockThreshold      Field = "LowStockThreshold"
	Cost                   Field = "Cost"
	PartNumber             Field = "PartNumber"
	DigiKeyPartNumber      Field = "DigiKeyPartNumber"
	MouserPartNumber       Field = "MouserPartNumber"
	ArrowPartNumber        Field = "ArrowPartNumber"
	Description            Field = "Description"
	PartTypeID             Field = "PartTypeId"
	MountingTypeID         Field = "MountingTypeId"
	PackageType            Field = "PackageType"
	ProductURL             Field = "ProductUrl"
	ImageURL               Field = "ImageUrl"
	DatasheetURL           Field = "DatasheetUrl"
	LowestCostSupplier     Field = "LowestCostSupplier"
	LowestCostSupplierURL  Field = "LowestCostSupplierUrl"
	ProjectID              Field = "ProjectId"
	Keywords               Field = "Keywords"
	Location               Field = "Location"
	BinNumber              Field = "BinNumber"
	BinNumber2             Field = "BinNumber2"
	Manufacturer           Field = "Manufacturer"
	ManufacturerPartNumber Field = "ManufacturerPartNumber"
	UserID                 Field = "UserId"
	DateCreatedUTC         Field = "DateCreatedUtc"
)

// Kind tipo de valor de un campo; decide qué operadores admite.
type Kind int

const (
	KindInt Kind = iota + 1
	KindNullableInt
	KindDecimal
	KindString
	KindStringSet
	KindTime
)

type fieldInfo struct {
	kind Kind
	get  func(p *entity.Part) any
}

var fields = map[Field]fieldInfo{
	PartID:                 {KindInt, func(p *entity.Part) any { return p.PartID }},
	Quantity:               {KindInt, func(p *entity.Part) any { return p.Quantity }},
	LowStockThreshold:      {KindInt, func(p *entity.Part) any { return int64(p.LowStockThreshold) }},
	Cost:                   {KindDecimal, func(p *entity.Part) any { return p.Cost }},
	PartNumber:             {KindString, func(p *entity.Part) any { return p.PartNumber }},
	DigiKeyPartNumber:      {KindString, func(p *entity.Part) any { return p.DigiKeyPartNumber }},
	MouserPartNumber:       {KindString, func(p *entity.Part) any { return p.MouserPartNumber }},
	ArrowPartNumber:        {KindString, func(p *entity.Part) any { return p.ArrowPartNumber }},
	Description:            {KindString, func(p *entity.Part) any { return p.Description }},
	PartTypeID:             {KindInt, func(p *entity.Part) any { return p.PartTypeID }},
	MountingTypeID:         {KindInt, func(p *entity.Part) any { return int64(p.MountingTypeID) }},
	PackageType:            {KindString, func(p *entity.Part) any { return p.PackageType }},
	ProductURL:             {KindString, func(p *entity.Part) any { return p.ProductURL }},
	ImageURL:               {KindString, func(p *entity.Part) any { return p.ImageURL }},
	DatasheetURL:           {KindString, func(p *entity.Part) any { return p.DatasheetURL }},
	LowestCostSupplier:     {KindString, func(p *entity.Part) any { return p.LowestCostSupplier }},
	LowestCostSupplierURL:  {KindString, func(p *entity.Part) any { return p.LowestCostSupplierURL }},
	ProjectID:              {KindNullableInt, func(p *entity.Part) any { return p.ProjectID }},
	Keywords:               {KindStringSet, func(p *entity.Part) any { return p.Keywords }},
	Location:               {KindString, func(p *entity.Part) any { return p.Location }},
	BinNumber:              {KindString, func(p *entity.Part) any { return p.BinNumber }},
	BinNumber2:             {KindString, func(p *entity.Part) any { return p.BinNumber2 }},
	Manufacturer:           {KindString, func(p *entity.Part) any { return p.Manufacturer }},
	ManufacturerPartNumber: {KindString, func(p *entity.Part) any { return p.ManufacturerPartNumber }},
	UserID: {KindNullableInt, func(p *entity.Part) any {
		if p.UserID == nil {
			return (*int64)(nil)
		}
		v := int64(*p.UserID)
		return &v
	}},
	DateCreatedUTC: {KindTime, func(p *entity.Part) any { return p.DateCreatedUTC }},
}

// Fields devuelve todos los campos consultables.
func Fields() []Field {
	out := make([]Field, 0, len(fields))
	for f := range fields {
		out = append(out, f)
	}
	return out
}

// KindOf devuelve el tipo del campo.
func KindOf(f Field) (Kind, bool) {
	info, ok := fields[f]
	return info.kind, ok
}

// Value extrae el valor canónico del campo en la parte:
// int64, *int64, decimal.Decimal, string, []string o time.Time.
func Value(f Field, p *entity.Part) (any, error) {
	info, ok := fields[f]
	if !ok {
		return nil, unknownField(f)
	}
	return info.get(p), nil
}

// ParseOrderField valida un nombre de campo para ordenar listados.
// Los conjuntos (Keywords) no son ordenables.
func ParseOrderField(name string) (Field, error) {
	f := Field(name)
	info, ok := fields[f]
	if !ok {
		return "", unknownField(f)
	}
	if info.kind == KindStringSet {
		return "", fmt.Errorf("order by %s: %w: campo no ordenable", name, domain.ErrValidation)
	}
	return f, nil
}

func unknownField(f Field) error {
	return fmt.Errorf("field %q: %w: campo desconocido", f, domain.ErrValidation)
}

// compareValues compara dos valores canónicos del mismo tipo (-1, 0, 1).
// Para KindNullableInt un nil se ordena después de cualquier valor.
func compareValues(kind Kind, a, b any) int {
	switch kind {
	case KindInt:
		return cmpInt(a.(int64), b.(int64))
	case KindNullableInt:
		pa, pb := a.(*int64), b.(*int64)
		switch {
		case pa == nil && pb == nil:
			return 0
		case pa == nil:
			return 1
		case pb == nil:
			return -1
		}
		return cmpInt(*pa, *pb)
	case KindDecimal:
		return a.(decimal.Decimal).Cmp(b.(decimal.Decimal))
	case KindString:
		return cmpString(a.(string), b.(string))
	case KindTime:
		return a.(time.Time).Compare(b.(time.Time))
	}
	return 0
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
