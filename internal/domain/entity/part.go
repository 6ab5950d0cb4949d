package entity

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// PartSchemaVersion versión de esquema vigente para Part.
// v5 introdujo ArrowPartNumber.
const PartSchemaVersion = 5

// MaxPartNumberLength longitud máxima del número de parte principal.
const MaxPartNumberLength = 64

// Part representa un ítem del inventario.
// Identidad de almacenamiento: (PartID, UserID). PartNumber es la clave externa de negocio
// pero no participa en la igualdad.
type Part struct {
	PartID                 int64           `json:"partId" yaml:"partId"`
	Quantity               int64           `json:"quantity" yaml:"quantity"`
	LowStockThreshold      int             `json:"lowStockThreshold" yaml:"lowStockThreshold"` // reordenar por debajo de este valor
	Cost                   decimal.Decimal `json:"cost" yaml:"cost"`
	PartNumber             string          `json:"partNumber" yaml:"partNumber"`
	DigiKeyPartNumber      string          `json:"digiKeyPartNumber,omitempty" yaml:"digiKeyPartNumber,omitempty"`
	MouserPartNumber       string          `json:"mouserPartNumber,omitempty" yaml:"mouserPartNumber,omitempty"`
	ArrowPartNumber        string          `json:"arrowPartNumber,omitempty" yaml:"arrowPartNumber,omitempty"` // v5
	Description            string          `json:"description,omitempty" yaml:"description,omitempty"`
	PartTypeID             int64           `json:"partTypeId" yaml:"partTypeId"`
	MountingTypeID         int             `json:"mountingTypeId" yaml:"mountingTypeId"`
	PackageType            string          `json:"packageType,omitempty" yaml:"packageType,omitempty"` // ej. DIP8
	ProductURL             string          `json:"productUrl,omitempty" yaml:"productUrl,omitempty"`
	ImageURL               string          `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	DatasheetURL           string          `json:"datasheetUrl,omitempty" yaml:"datasheetUrl,omitempty"`
	LowestCostSupplier     string          `json:"lowestCostSupplier,omitempty" yaml:"lowestCostSupplier,omitempty"`
	LowestCostSupplierURL  string          `json:"lowestCostSupplierUrl,omitempty" yaml:"lowestCostSupplierUrl,omitempty"`
	ProjectID              *int64          `json:"projectId,omitempty" yaml:"projectId,omitempty"`
	Keywords               []string        `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Location               string          `json:"location,omitempty" yaml:"location,omitempty"`     // bodega, cuarto
	BinNumber              string          `json:"binNumber,omitempty" yaml:"binNumber,omitempty"`   // estante
	BinNumber2             string          `json:"binNumber2,omitempty" yaml:"binNumber2,omitempty"` // caja
	Manufacturer           string          `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	ManufacturerPartNumber string          `json:"manufacturerPartNumber,omitempty" yaml:"manufacturerPartNumber,omitempty"`
	UserID                 *int            `json:"userId,omitempty" yaml:"userId,omitempty"` // nil = global
	DateCreatedUTC         time.Time       `json:"dateCreatedUtc" yaml:"dateCreatedUtc"`
	SchemaVersion          int             `json:"schemaVersion" yaml:"schemaVersion"`
}

// PartKey clave comparable con la misma semántica que Part.Equal; usable como llave de mapa.
type PartKey struct {
	PartID  int64
	UserID  int
	HasUser bool
}

// NewPart crea una parte con los valores por defecto del sistema.
func NewPart(partNumber string) *Part {
	return &Part{
		PartNumber:        partNumber,
		LowStockThreshold: DefaultLowStockThreshold,
		Cost:              decimal.Zero,
		SchemaVersion:     PartSchemaVersion,
	}
}

// Equal compara identidad de almacenamiento: PartID y UserID, nada más.
func (p *Part) Equal(other *Part) bool {
	if p == nil || other == nil {
		return p == nil && other == nil
	}
	return p.PartID == other.PartID && sameUser(p.UserID, other.UserID)
}

// Key devuelve la clave consistente con Equal.
func (p *Part) Key() PartKey {
	k := PartKey{PartID: p.PartID}
	if p.UserID != nil {
		k.UserID = *p.UserID
		k.HasUser = true
	}
	return k
}

// IsLowStock indica si la cantidad está estrictamente por debajo del umbral.
func (p *Part) IsLowStock() bool {
	return p.Quantity < int64(p.LowStockThreshold)
}

// Value es Quantity * Cost sin redondeo.
func (p *Part) Value() decimal.Decimal {
	return p.Cost.Mul(decimal.NewFromInt(p.Quantity))
}

// Clone devuelve una copia profunda (punteros y keywords incluidos).
func (p *Part) Clone() *Part {
	c := *p
	if p.ProjectID != nil {
		v := *p.ProjectID
		c.ProjectID = &v
	}
	if p.UserID != nil {
		v := *p.UserID
		c.UserID = &v
	}
	if p.Keywords != nil {
		c.Keywords = append([]string(nil), p.Keywords...)
	}
	return &c
}

// Validate verifica las invariantes del registro antes de persistirlo.
func (p *Part) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.PartNumber, validation.RuneLength(0, MaxPartNumberLength)),
		validation.Field(&p.Quantity, validation.Min(int64(0))),
		validation.Field(&p.LowStockThreshold, validation.Min(0)),
		validation.Field(&p.Cost, validation.By(nonNegativeDecimal)),
	)
}

func (p *Part) String() string {
	return fmt.Sprintf("%d: %s - %s", p.PartID, p.PartNumber, p.Description)
}

// UpgradePart completa los valores por defecto de registros creados con un esquema anterior.
// Devuelve true si el registro cambió.
func UpgradePart(p *Part) bool {
	if p.SchemaVersion >= PartSchemaVersion {
		return false
	}
	// v5: ArrowPartNumber nace vacío; no requiere relleno.
	p.SchemaVersion = PartSchemaVersion
	return true
}

func nonNegativeDecimal(value interface{}) error {
	d, ok := value.(decimal.Decimal)
	if !ok {
		return nil
	}
	if d.IsNegative() {
		return validation.NewError("validation_negative", "no puede ser negativo")
	}
	return nil
}
