package postgres

import (
	"strconv"

	"github.com/jhoicas/partsbin/internal/domain/entity"
)

// args acumula parámetros posicionales ($1, $2...) de una consulta.
type args []any

// add agrega el valor y devuelve su marcador.
func (a *args) add(v any) string {
	*a = append(*a, v)
	return "$" + strconv.Itoa(len(*a))
}

// visibleTo fragmento WHERE con la regla de visibilidad: globales o del llamador.
// Toda consulta de lectura pasa por aquí.
func visibleTo(col string, uc *entity.UserContext, a *args) string {
	if uc == nil {
		return col + " IS NULL"
	}
	return "(" + col + " IS NULL OR " + col + " = " + a.add(uc.UserID) + ")"
}

// ownedBy coincidencia exacta de dueño (credenciales OAuth, que nunca se comparten).
func ownedBy(col string, uc *entity.UserContext, a *args) string {
	if uc == nil {
		return col + " IS NULL"
	}
	return col + " = " + a.add(uc.UserID)
}

// ownerFirst ORDER BY que prefiere el registro propio sobre el global.
func ownerFirst(col string) string {
	return "(" + col + " IS NULL)"
}
