package entity

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/cases"
)

// PartType nodo de la taxonomía de componentes (Resistor, MOSFET...).
// Jerárquico opcional: ParentPartTypeID nil si es raíz.
type PartType struct {
	PartTypeID       int64     `json:"partTypeId" yaml:"partTypeId"`
	ParentPartTypeID *int64    `json:"parentPartTypeId,omitempty" yaml:"parentPartTypeId,omitempty"`
	Name             string    `json:"name" yaml:"name"`
	UserID           *int      `json:"userId,omitempty" yaml:"userId,omitempty"`
	DateCreatedUTC   time.Time `json:"dateCreatedUtc" yaml:"dateCreatedUtc"`
}

// IsSystemDefault indica si el tipo pertenece a la taxonomía fija sembrada por el sistema.
// Esos tipos no se editan ni eliminan desde el contrato.
func (t *PartType) IsSystemDefault() bool {
	return t.UserID == nil && t.PartTypeID >= 1 && t.PartTypeID <= int64(len(defaultPartTypeNames))
}

// Clone devuelve una copia profunda.
func (t *PartType) Clone() *PartType {
	c := *t
	if t.ParentPartTypeID != nil {
		v := *t.ParentPartTypeID
		c.ParentPartTypeID = &v
	}
	if t.UserID != nil {
		v := *t.UserID
		c.UserID = &v
	}
	return &c
}

// Validate verifica las invariantes del tipo de parte.
func (t *PartType) Validate() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Name, validation.Required, validation.By(notBlank), validation.RuneLength(1, 255)),
	)
}

// NameKey clave natural normalizada (case-folding Unicode) para get-or-create.
func NameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

func notBlank(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return validation.NewError("validation_blank", "no puede estar en blanco")
	}
	return nil
}
