// Package search implementa el ranking de búsqueda por palabras clave sobre partes.
//
// Regla: cada palabra se compara (subcadena, sin distinguir mayúsculas, con
// case-folding Unicode) contra los campos de texto de la parte. El rank ordena
// primero por cantidad de palabras distintas encontradas y luego por cantidad
// total de campos coincidentes, de modo que una parte que contiene más palabras
// de la búsqueda siempre supera a una que contiene menos.
package search

import (
	"sort"
	"strings"

	"github.com/jhoicas/partsbin/internal/domain/entity"
	"golang.org/x/text/cases"
)

// fieldCount número de campos de texto que participan en la búsqueda (Keywords cuenta como uno).
const fieldCount = 12

// textFields campos escalares buscables, en el orden en que se evalúan.
func textFields(p *entity.Part) [fieldCount - 1]string {
	return [fieldCount - 1]string{
		p.PartNumber,
		p.DigiKeyPartNumber,
		p.MouserPartNumber,
		p.ArrowPartNumber,
		p.ManufacturerPartNumber,
		p.Manufacturer,
		p.Description,
		p.Location,
		p.BinNumber,
		p.BinNumber2,
		p.PackageType,
	}
}

// Terms divide la búsqueda por espacios, normaliza y elimina duplicados conservando el orden.
func Terms(keywords string) []string {
	fold := cases.Fold()
	seen := make(map[string]struct{})
	var out []string
	for _, w := range strings.Fields(keywords) {
		t := fold.String(w)
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Ranker evalúa partes contra un conjunto fijo de términos ya normalizados.
// No es seguro para uso concurrente (cases.Caser mantiene estado).
type Ranker struct {
	terms []string
	fold  cases.Caser
}

// NewRanker prepara el ranking para la búsqueda dada.
func NewRanker(keywords string) *Ranker {
	return &Ranker{terms: Terms(keywords), fold: cases.Fold()}
}

// Empty indica que la búsqueda no tiene términos.
func (r *Ranker) Empty() bool {
	return len(r.terms) == 0
}

// Terms términos normalizados de la búsqueda.
func (r *Ranker) Terms() []string {
	return r.terms
}

// Rank devuelve 0 si ningún término coincide.
func (r *Ranker) Rank(p *entity.Part) int {
	if len(r.terms) == 0 {
		return 0
	}
	scalars := textFields(p)
	var folded [fieldCount - 1]string
	for i, s := range scalars {
		folded[i] = r.fold.String(s)
	}
	keywords := make([]string, len(p.Keywords))
	for i, k := range p.Keywords {
		keywords[i] = r.fold.String(k)
	}

	matchedTerms, fieldHits := 0, 0
	for _, t := range r.terms {
		hits := 0
		for _, s := range folded {
			if s != "" && strings.Contains(s, t) {
				hits++
			}
		}
		for _, k := range keywords {
			if strings.Contains(k, t) {
				hits++
				break
			}
		}
		if hits > 0 {
			matchedTerms++
			fieldHits += hits
		}
	}
	if matchedTerms == 0 {
		return 0
	}
	weight := len(r.terms)*fieldCount + 1
	return matchedTerms*weight + fieldHits
}

// RankAll puntúa y ordena: rank descendente, luego PartID ascendente. Omite rank 0.
func (r *Ranker) RankAll(parts []*entity.Part) []entity.SearchResult[*entity.Part] {
	out := []entity.SearchResult[*entity.Part]{}
	for _, p := range parts {
		if rank := r.Rank(p); rank > 0 {
			out = append(out, entity.SearchResult[*entity.Part]{Result: p, Rank: rank})
		}
	}
	Sort(out)
	return out
}

// Sort aplica el orden estable del contrato sobre resultados ya puntuados.
func Sort(results []entity.SearchResult[*entity.Part]) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Rank != results[j].Rank {
			return results[i].Rank > results[j].Rank
		}
		return results[i].Result.PartID < results[j].Result.PartID
	})
}
