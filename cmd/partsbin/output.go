package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jhoicas/partsbin/internal/application/dto"
	"github.com/jhoicas/partsbin/internal/domain/entity"
	"gopkg.in/yaml.v3"
)

const (
	outText = "text"
	outJSON = "json"
	outYAML = "yaml"
)

// emit escribe v en json/yaml; en modo texto delega en text.
func (a *app) emit(w io.Writer, v any, text func(w io.Writer) error) error {
	switch a.out {
	case outJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return text(w)
}

func printSummary(w io.Writer, s *dto.InventorySummaryDTO) error {
	fmt.Fprintf(w, "Existencias:      %d\n", s.TotalQuantity)
	fmt.Fprintf(w, "Partes distintas: %d\n", s.UniqueParts)
	fmt.Fprintf(w, "Valor:            %s\n", s.TotalValue.StringFixed(2))
	fmt.Fprintf(w, "Bajo umbral:      %d\n", s.LowStockTotal)
	if len(s.Replenishment) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	return printReplenishment(w, s.Replenishment)
}

func printReplenishment(w io.Writer, items []dto.ReplenishmentSuggestionDTO) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tPARTE\tCANT\tUMBRAL\tPEDIR\tCOSTO EST.\tPROVEEDOR")
	for _, r := range items {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.Priority, r.PartID, r.PartNumber, r.Quantity, r.LowStockThreshold,
			r.SuggestedOrderQty, r.EstimatedOrderCost.StringFixed(2), r.Supplier)
	}
	return tw.Flush()
}

func printParts(w io.Writer, parts []*entity.Part) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPARTE\tCANT\tCOSTO\tUBICACIÓN\tDESCRIPCIÓN")
	for _, p := range parts {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n",
			p.PartID, p.PartNumber, p.Quantity, p.Cost.String(), location(p), p.Description)
	}
	return tw.Flush()
}

func printSearch(w io.Writer, results []entity.SearchResult[*entity.Part]) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tPARTE\tCANT\tDESCRIPCIÓN")
	for _, r := range results {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%s\n", r.Rank, r.Result.PartID, r.Result.PartNumber, r.Result.Quantity, r.Result.Description)
	}
	return tw.Flush()
}

func location(p *entity.Part) string {
	loc := p.Location
	for _, bin := range []string{p.BinNumber, p.BinNumber2} {
		if bin == "" {
			continue
		}
		if loc != "" {
			loc += "/"
		}
		loc += bin
	}
	return loc
}
