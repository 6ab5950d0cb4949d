package entity

import (
	"fmt"
	"strconv"

	"github.com/jhoicas/partsbin/internal/domain"
)

// UserContext identifica al llamador (tenant) de cada operación.
// Un *UserContext nil representa al sistema: solo ve y crea registros globales.
type UserContext struct {
	UserID int
}

// NewUserContext construye el contexto para un usuario.
func NewUserContext(userID int) *UserContext {
	return &UserContext{UserID: userID}
}

// Owner devuelve el UserId que se estampa en los registros creados por el llamador
// (nil para el sistema).
func (uc *UserContext) Owner() *int {
	if uc == nil {
		return nil
	}
	id := uc.UserID
	return &id
}

// CanSee aplica la regla de visibilidad: registros globales o propios.
func (uc *UserContext) CanSee(owner *int) bool {
	if owner == nil {
		return true
	}
	return uc != nil && *owner == uc.UserID
}

// CanModify indica si el llamador puede mutar un registro con ese dueño.
// Los registros globales son compartidos y mutables; los de otro usuario no.
func (uc *UserContext) CanModify(owner *int) bool {
	return uc.CanSee(owner)
}

// CheckModify devuelve domain.ErrScopeViolation si el registro pertenece a otro usuario.
func (uc *UserContext) CheckModify(op string, owner *int) error {
	if uc.CanModify(owner) {
		return nil
	}
	return fmt.Errorf("%s: %w: dueño %d, llamador %s", op, domain.ErrScopeViolation, *owner, uc)
}

// Owns indica coincidencia exacta de dueño (nil con nil, o mismo UserID).
func (uc *UserContext) Owns(owner *int) bool {
	if uc == nil || owner == nil {
		return uc == nil && owner == nil
	}
	return *owner == uc.UserID
}

func (uc *UserContext) String() string {
	if uc == nil {
		return "system"
	}
	return strconv.Itoa(uc.UserID)
}

// sameUser compara dos UserId opcionales.
func sameUser(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
