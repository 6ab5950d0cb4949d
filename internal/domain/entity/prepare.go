package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/partsbin/internal/domain"
)

// Reglas comunes a todos los backends para preparar registros antes de persistirlos.
// Trabajan sobre copias: el valor del llamador nunca se muta.

// PrepareNewPart completa dueño, fecha y versión de esquema de una parte nueva.
func PrepareNewPart(in *Part, uc *UserContext, now time.Time) (*Part, error) {
	if in == nil {
		return nil, ValidationError("add part", errors.New("parte nula"))
	}
	p := in.Clone()
	p.PartID = 0
	p.UserID = uc.Owner()
	p.DateCreatedUTC = now
	p.SchemaVersion = PartSchemaVersion
	p.Keywords = normalizeKeywords(p.Keywords)
	if err := p.Validate(); err != nil {
		return nil, ValidationError("add part", err)
	}
	return p, nil
}

// PreparePartUpdate reemplazo completo conservando identidad, dueño y fecha de creación.
func PreparePartUpdate(in, existing *Part) (*Part, error) {
	if in == nil {
		return nil, ValidationError("update part", errors.New("parte nula"))
	}
	p := in.Clone()
	p.PartID = existing.PartID
	p.UserID = existing.UserID
	p.DateCreatedUTC = existing.DateCreatedUTC
	p.SchemaVersion = PartSchemaVersion
	p.Keywords = normalizeKeywords(p.Keywords)
	if err := p.Validate(); err != nil {
		return nil, ValidationError("update part", err)
	}
	return p, nil
}

// PrepareNewProject completa dueño y fechas de un proyecto nuevo.
func PrepareNewProject(in *Project, uc *UserContext, now time.Time) (*Project, error) {
	if in == nil {
		return nil, ValidationError("add project", errors.New("proyecto nulo"))
	}
	p := in.Clone()
	p.ProjectID = 0
	p.UserID = uc.Owner()
	p.DateCreatedUTC = now
	p.DateModifiedUTC = now
	p.SchemaVersion = ProjectSchemaVersion
	if err := p.Validate(); err != nil {
		return nil, ValidationError("add project", err)
	}
	return p, nil
}

// PrepareProjectUpdate conserva identidad y creación; DateModifiedUTC siempre avanza.
func PrepareProjectUpdate(in, existing *Project, now time.Time) (*Project, error) {
	if in == nil {
		return nil, ValidationError("update project", errors.New("proyecto nulo"))
	}
	p := in.Clone()
	p.ProjectID = existing.ProjectID
	p.UserID = existing.UserID
	p.DateCreatedUTC = existing.DateCreatedUTC
	if !now.After(existing.DateModifiedUTC) {
		now = existing.DateModifiedUTC.Add(time.Microsecond)
	}
	p.DateModifiedUTC = now
	p.SchemaVersion = ProjectSchemaVersion
	if err := p.Validate(); err != nil {
		return nil, ValidationError("update project", err)
	}
	return p, nil
}

// PrepareNewPartType completa dueño y fecha; el nombre se recorta.
func PrepareNewPartType(in *PartType, uc *UserContext, now time.Time) (*PartType, error) {
	if in == nil {
		return nil, ValidationError("create part type", errors.New("tipo nulo"))
	}
	t := in.Clone()
	t.PartTypeID = 0
	t.Name = strings.TrimSpace(t.Name)
	t.UserID = uc.Owner()
	t.DateCreatedUTC = now
	if err := t.Validate(); err != nil {
		return nil, ValidationError("create part type", err)
	}
	return t, nil
}

// PreparePartTypeUpdate conserva identidad, dueño y creación.
func PreparePartTypeUpdate(in, existing *PartType) (*PartType, error) {
	if in == nil {
		return nil, ValidationError("update part type", errors.New("tipo nulo"))
	}
	t := in.Clone()
	t.PartTypeID = existing.PartTypeID
	t.UserID = existing.UserID
	t.DateCreatedUTC = existing.DateCreatedUTC
	t.Name = strings.TrimSpace(t.Name)
	if t.ParentPartTypeID != nil && *t.ParentPartTypeID == t.PartTypeID {
		return nil, ValidationError("update part type", errors.New("un tipo no puede ser su propio padre"))
	}
	if err := t.Validate(); err != nil {
		return nil, ValidationError("update part type", err)
	}
	return t, nil
}

// CheckPartTypeMutable los tipos sembrados por el sistema son de solo lectura.
func CheckPartTypeMutable(op string, t *PartType, uc *UserContext) error {
	if t.IsSystemDefault() {
		return fmt.Errorf("%s: %w: el tipo %q es parte de la taxonomía del sistema", op, domain.ErrScopeViolation, t.Name)
	}
	return uc.CheckModify(op, t.UserID)
}

// CheckPartTypeParent recorre la cadena de padres desde parentID y falla si llega a childID
// (ciclo) o si algún padre no es visible.
func CheckPartTypeParent(childID int64, parentID *int64, lookup func(id int64) (*PartType, error)) error {
	seen := make(map[int64]struct{})
	for cur := parentID; cur != nil; {
		if *cur == childID {
			return ValidationError("part type parent", errors.New("la jerarquía formaría un ciclo"))
		}
		if _, dup := seen[*cur]; dup {
			return ValidationError("part type parent", errors.New("la jerarquía existente tiene un ciclo"))
		}
		seen[*cur] = struct{}{}
		parent, err := lookup(*cur)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return ValidationError("part type parent", fmt.Errorf("padre %d inexistente", *cur))
			}
			return err
		}
		cur = parent.ParentPartTypeID
	}
	return nil
}

// PrepareNewStoredFile completa dueño, fecha y nombre único.
func PrepareNewStoredFile(in *StoredFile, uc *UserContext, now time.Time) (*StoredFile, error) {
	if in == nil {
		return nil, ValidationError("add stored file", errors.New("archivo nulo"))
	}
	f := in.Clone()
	f.StoredFileID = 0
	f.UserID = uc.Owner()
	f.DateCreatedUTC = now
	f.EnsureFileName()
	if err := f.Validate(); err != nil {
		return nil, ValidationError("add stored file", err)
	}
	return f, nil
}

// PrepareOAuthCredential fija el dueño al llamador; DateCreatedUTC se conserva si ya existía.
func PrepareOAuthCredential(in *OAuthCredential, uc *UserContext, now time.Time) (*OAuthCredential, error) {
	if in == nil {
		return nil, ValidationError("save oauth credential", errors.New("credencial nula"))
	}
	c := in.Clone()
	c.Provider = ProviderKey(c.Provider)
	c.UserID = uc.Owner()
	if c.DateCreatedUTC.IsZero() {
		c.DateCreatedUTC = now
	}
	c.DateExpiresUTC = c.DateExpiresUTC.UTC().Truncate(time.Microsecond)
	if err := c.Validate(); err != nil {
		return nil, ValidationError("save oauth credential", err)
	}
	return c, nil
}

// LowStockLess orden de criticidad: menor Quantity/LowStockThreshold primero, luego PartID.
// Compara por producto cruzado para no depender de flotantes.
func LowStockLess(a, b *Part) bool {
	l := a.Quantity * int64(b.LowStockThreshold)
	r := b.Quantity * int64(a.LowStockThreshold)
	if l != r {
		return l < r
	}
	return a.PartID < b.PartID
}

func normalizeKeywords(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, k := range in {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
