package query

import (
	"strings"

	"github.com/jhoicas/partsbin/internal/domain/entity"
)

// Predicate expresión ya normalizada, lista para evaluarse sobre muchas partes.
type Predicate struct {
	root Expr
}

// Compile normaliza la expresión una sola vez.
func Compile(e Expr) (*Predicate, error) {
	n, err := Normalize(e)
	if err != nil {
		return nil, err
	}
	return &Predicate{root: n}, nil
}

// Expr devuelve el árbol normalizado (lo usa el compilador SQL).
func (p *Predicate) Expr() Expr {
	return p.root
}

// Match evalúa el predicado sobre la parte.
func (p *Predicate) Match(part *entity.Part) bool {
	return match(p.root, part)
}

func match(e Expr, part *entity.Part) bool {
	switch e.Op {
	case OpAnd:
		for _, a := range e.Args {
			if !match(a, part) {
				return false
			}
		}
		return true
	case OpOr:
		for _, a := range e.Args {
			if match(a, part) {
				return true
			}
		}
		return false
	case OpNot:
		return !match(e.Args[0], part)
	}

	info := fields[e.Field]
	got := info.get(part)

	switch e.Op {
	case OpIsNull:
		switch v := got.(type) {
		case *int64:
			return v == nil
		case string:
			return v == ""
		case []string:
			return len(v) == 0
		}
		return false
	case OpContains:
		needle := strings.ToLower(e.Value.(string))
		switch v := got.(type) {
		case string:
			return strings.Contains(strings.ToLower(v), needle)
		case []string:
			for _, kw := range v {
				if strings.ToLower(kw) == needle {
					return true
				}
			}
		}
		return false
	}

	if info.kind == KindNullableInt {
		return matchNullable(e, got.(*int64))
	}
	c := compareValues(info.kind, got, e.Value)
	return compareOp(e.Op, c)
}

// matchNullable sigue la semántica SQL: = y rangos son falsos con nil; ne equivale a IS DISTINCT FROM.
func matchNullable(e Expr, got *int64) bool {
	if e.Value == nil {
		if e.Op == OpEq {
			return got == nil
		}
		return got != nil // OpNe
	}
	want := e.Value.(int64)
	if got == nil {
		return e.Op == OpNe
	}
	return compareOp(e.Op, cmpInt(*got, want))
}

func compareOp(op Op, c int) bool {
	switch op {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	}
	return false
}

// ComparePart compara dos partes por el campo indicado y desempata por PartID ascendente.
// Los nil de campos anulables van al final en orden ascendente.
func ComparePart(a, b *entity.Part, f Field, descending bool) int {
	info, ok := fields[f]
	if ok && info.kind != KindStringSet {
		c := compareValues(info.kind, info.get(a), info.get(b))
		if descending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return cmpInt(a.PartID, b.PartID)
}
