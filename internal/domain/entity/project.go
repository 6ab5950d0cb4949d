package entity

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ProjectSchemaVersion versión de esquema vigente para Project.
// v4 introdujo Notes y DateModifiedUTC.
const ProjectSchemaVersion = 4

// Project agrupa partes definidas por el usuario (ej. una lista de materiales).
type Project struct {
	ProjectID       int64     `json:"projectId" yaml:"projectId"`
	Name            string    `json:"name" yaml:"name"`
	Description     string    `json:"description,omitempty" yaml:"description,omitempty"`
	Location        string    `json:"location,omitempty" yaml:"location,omitempty"`
	Color           int       `json:"color" yaml:"color"` // índice de paleta
	Notes           string    `json:"notes,omitempty" yaml:"notes,omitempty"` // notas libres (BOM), v4
	UserID          *int      `json:"userId,omitempty" yaml:"userId,omitempty"`
	DateCreatedUTC  time.Time `json:"dateCreatedUtc" yaml:"dateCreatedUtc"`
	DateModifiedUTC time.Time `json:"dateModifiedUtc" yaml:"dateModifiedUtc"` // v4, derivada de mutaciones
	SchemaVersion   int       `json:"schemaVersion" yaml:"schemaVersion"`
}

// Equal compara identidad de almacenamiento: ProjectID y UserID.
func (p *Project) Equal(other *Project) bool {
	if p == nil || other == nil {
		return p == nil && other == nil
	}
	return p.ProjectID == other.ProjectID && sameUser(p.UserID, other.UserID)
}

// ProjectKey clave comparable consistente con Project.Equal.
type ProjectKey struct {
	ProjectID int64
	UserID    int
	HasUser   bool
}

// Key devuelve la clave consistente con Equal.
func (p *Project) Key() ProjectKey {
	k := ProjectKey{ProjectID: p.ProjectID}
	if p.UserID != nil {
		k.UserID = *p.UserID
		k.HasUser = true
	}
	return k
}

// Clone devuelve una copia profunda.
func (p *Project) Clone() *Project {
	c := *p
	if p.UserID != nil {
		v := *p.UserID
		c.UserID = &v
	}
	return &c
}

// Validate verifica las invariantes del proyecto.
func (p *Project) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Name, validation.Required, validation.RuneLength(1, 255)),
		validation.Field(&p.Color, validation.Min(0)),
	)
}

func (p *Project) String() string {
	return fmt.Sprintf("%d: %s", p.ProjectID, p.Name)
}

// UpgradeProject rellena los campos v4 de proyectos antiguos.
// DateModifiedUTC toma la fecha de creación cuando nunca se registró una modificación.
func UpgradeProject(p *Project) bool {
	if p.SchemaVersion >= ProjectSchemaVersion {
		return false
	}
	if p.DateModifiedUTC.IsZero() {
		p.DateModifiedUTC = p.DateCreatedUTC
	}
	p.SchemaVersion = ProjectSchemaVersion
	return true
}
