package query

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/jhoicas/partsbin/internal/domain"
	"github.com/shopspring/decimal"
)

// Op operador de una expresión.
type Op string

const (
	OpAnd      Op = "and"
	OpOr       Op = "or"
	OpNot      Op = "not"
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpLt       Op = "lt"
	OpLe       Op = "le"
	OpGt       Op = "gt"
	OpGe       Op = "ge"
	OpContains Op = "contains" // subcadena sin distinguir mayúsculas; pertenencia en Keywords
	OpIsNull   Op = "isnull"   // nil, cadena vacía o conjunto vacío según el tipo
)

// MaxDepth profundidad máxima de anidamiento aceptada.
const MaxDepth = 32

// Expr nodo del árbol de predicado. Las hojas usan Field y Value; and/or/not usan Args.
type Expr struct {
	Op    Op     `json:"op"`
	Field Field  `json:"field,omitempty"`
	Value any    `json:"value,omitempty"`
	Args  []Expr `json:"args,omitempty"`
}

func leaf(op Op, f Field, v any) Expr { return Expr{Op: op, Field: f, Value: v} }

func Eq(f Field, v any) Expr       { return leaf(OpEq, f, v) }
func Ne(f Field, v any) Expr       { return leaf(OpNe, f, v) }
func Lt(f Field, v any) Expr       { return leaf(OpLt, f, v) }
func Le(f Field, v any) Expr       { return leaf(OpLe, f, v) }
func Gt(f Field, v any) Expr       { return leaf(OpGt, f, v) }
func Ge(f Field, v any) Expr       { return leaf(OpGe, f, v) }
func Contains(f Field, v any) Expr { return leaf(OpContains, f, v) }
func IsNull(f Field) Expr          { return Expr{Op: OpIsNull, Field: f} }

// And conjunción; sin argumentos es verdadera.
func And(args ...Expr) Expr { return Expr{Op: OpAnd, Args: args} }

// Or disyunción; sin argumentos es falsa.
func Or(args ...Expr) Expr { return Expr{Op: OpOr, Args: args} }

// Not negación.
func Not(e Expr) Expr { return Expr{Op: OpNot, Args: []Expr{e}} }

// Between atajo para lo <= f <= hi.
func Between(f Field, lo, hi any) Expr { return And(Ge(f, lo), Le(f, hi)) }

// Parse decodifica una expresión serializada en JSON y la normaliza.
func Parse(data []byte) (Expr, error) {
	var e Expr
	if err := json.Unmarshal(data, &e); err != nil {
		return Expr{}, fmt.Errorf("parse predicate: %w: %w", domain.ErrValidation, err)
	}
	return Normalize(e)
}

// Normalize valida el árbol y convierte cada literal a su forma canónica según el
// tipo del campo (int64, decimal.Decimal, string, time.Time o nil).
// Los errores envuelven domain.ErrValidation.
func Normalize(e Expr) (Expr, error) {
	return normalize(e, 0)
}

func normalize(e Expr, depth int) (Expr, error) {
	if depth > MaxDepth {
		return Expr{}, invalid(e, "anidamiento excesivo")
	}
	switch e.Op {
	case OpAnd, OpOr:
		out := Expr{Op: e.Op, Args: make([]Expr, 0, len(e.Args))}
		for _, a := range e.Args {
			n, err := normalize(a, depth+1)
			if err != nil {
				return Expr{}, err
			}
			out.Args = append(out.Args, n)
		}
		return out, nil
	case OpNot:
		if len(e.Args) != 1 {
			return Expr{}, invalid(e, "not requiere exactamente un argumento")
		}
		n, err := normalize(e.Args[0], depth+1)
		if err != nil {
			return Expr{}, err
		}
		return Not(n), nil
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpContains, OpIsNull:
		return normalizeLeaf(e)
	default:
		return Expr{}, invalid(e, "operador desconocido")
	}
}

func normalizeLeaf(e Expr) (Expr, error) {
	kind, ok := KindOf(e.Field)
	if !ok {
		return Expr{}, unknownField(e.Field)
	}
	if len(e.Args) > 0 {
		return Expr{}, invalid(e, "una comparación no admite argumentos anidados")
	}
	out := Expr{Op: e.Op, Field: e.Field}

	switch e.Op {
	case OpIsNull:
		if kind != KindNullableInt && kind != KindString && kind != KindStringSet {
			return Expr{}, invalid(e, "isnull no aplica a este campo")
		}
		return out, nil
	case OpContains:
		if kind != KindString && kind != KindStringSet {
			return Expr{}, invalid(e, "contains solo aplica a texto")
		}
		s, ok := e.Value.(string)
		if !ok {
			return Expr{}, invalid(e, "contains requiere un texto")
		}
		out.Value = s
		return out, nil
	}

	if kind == KindStringSet {
		return Expr{}, invalid(e, "Keywords solo admite contains o isnull")
	}
	if e.Value == nil {
		if kind == KindNullableInt && (e.Op == OpEq || e.Op == OpNe) {
			return out, nil
		}
		return Expr{}, invalid(e, "valor nulo no comparable")
	}
	v, err := coerce(kind, e.Value)
	if err != nil {
		return Expr{}, invalid(e, err.Error())
	}
	out.Value = v
	return out, nil
}

func coerce(kind Kind, v any) (any, error) {
	switch kind {
	case KindInt, KindNullableInt:
		if n, ok := toInt64(v); ok {
			return n, nil
		}
		return nil, fmt.Errorf("se esperaba un entero, llegó %T", v)
	case KindDecimal:
		return toDecimal(v)
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("se esperaba texto, llegó %T", v)
	case KindTime:
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, t)
			if err != nil {
				return nil, err
			}
			return parsed.UTC(), nil
		}
		return nil, fmt.Errorf("se esperaba una fecha, llegó %T", v)
	}
	return nil, fmt.Errorf("tipo no soportado")
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch d := v.(type) {
	case decimal.Decimal:
		return d, nil
	case *decimal.Decimal:
		if d == nil {
			return decimal.Zero, fmt.Errorf("decimal nulo")
		}
		return *d, nil
	case string:
		return decimal.NewFromString(d)
	case json.Number:
		return decimal.NewFromString(d.String())
	case float64:
		return decimal.NewFromFloat(d), nil
	}
	if n, ok := toInt64(v); ok {
		return decimal.NewFromInt(n), nil
	}
	return decimal.Zero, fmt.Errorf("se esperaba un decimal, llegó %T", v)
}

func invalid(e Expr, msg string) error {
	if e.Field != "" {
		return fmt.Errorf("predicate %s %s: %w: %s", e.Field, e.Op, domain.ErrValidation, msg)
	}
	return fmt.Errorf("predicate %s: %w: %s", e.Op, domain.ErrValidation, msg)
}
