package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/openmfg/planner/pkg/application/dto"
	"github.com/openmfg/planner/pkg/domain/entities"
)

// writeResult renders a planning result in the requested format.
func writeResult(w io.Writer, result *dto.PlanningResult, format string) error {
	switch format {
	case "text":
		return writeTextResult(w, result)
	case "json":
		return writeJSONResult(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func writeTextResult(w io.Writer, result *dto.PlanningResult) error {
	var b strings.Builder

	b.WriteString("PLANNING RUN RESULTS\n")
	b.WriteString("====================\n\n")
	fmt.Fprintf(&b, "Run at:         %s\n", result.RunAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Levels planned: %d\n", result.Levels)
	fmt.Fprintf(&b, "Planned orders: %d\n", len(result.PlannedOrders))
	fmt.Fprintf(&b, "Shortages:      %d\n", len(result.Shortages))
	fmt.Fprintf(&b, "Demand errors:  %d\n\n", len(result.Errors))

	if len(result.PlannedOrders) > 0 {
		b.WriteString("PLANNED ORDERS\n")
		b.WriteString("--------------\n")

		orders := make([]entities.PlannedOrder, len(result.PlannedOrders))
		copy(orders, result.PlannedOrders)
		sort.Slice(orders, func(i, j int) bool {
			if !orders[i].NeedBy.Equal(orders[j].NeedBy) {
				return orders[i].NeedBy.Before(orders[j].NeedBy)
			}
			return orders[i].ProductID < orders[j].ProductID
		})

		for _, order := range orders {
			fmt.Fprintf(&b, "%-10s %-20s qty %10s  start %s  need %s\n",
				order.Type.String(),
				string(order.ProductID),
				order.Quantity.String(),
				order.SuggestedStart.Format("2006-01-02"),
				order.NeedBy.Format("2006-01-02"))
			if len(order.SourceChain) > 0 {
				fmt.Fprintf(&b, "           pegging: %s\n", joinChain(order.SourceChain))
			}
		}
		b.WriteString("\n")
	}

	if len(result.Shortages) > 0 {
		b.WriteString("NET SHORTAGES\n")
		b.WriteString("-------------\n")
		for _, shortage := range result.Shortages {
			fmt.Fprintf(&b, "%-20s short %10s %-6s  need %s\n",
				string(shortage.ProductID),
				shortage.Quantity.String(),
				shortage.Unit,
				shortage.NeedBy.Format("2006-01-02"))
		}
		b.WriteString("\n")
	}

	if len(result.CostRollups) > 0 {
		b.WriteString("COST-ONLY COMPONENTS (flagged for rollup)\n")
		b.WriteString("-----------------------------------------\n")
		for _, flag := range result.CostRollups {
			fmt.Fprintf(&b, "%s -> %s\n", string(flag.ParentID), string(flag.ComponentID))
		}
		b.WriteString("\n")
	}

	if len(result.Errors) > 0 {
		b.WriteString("DEMAND ERRORS\n")
		b.WriteString("-------------\n")
		for _, demandErr := range result.Errors {
			fmt.Fprintf(&b, "demands %s: %v\n", strings.Join(demandErr.DemandIDs, ", "), demandErr.Err)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeJSONResult(w io.Writer, result *dto.PlanningResult) error {
	type jsonError struct {
		DemandIDs []string `json:"demand_ids"`
		Error     string   `json:"error"`
	}
	out := struct {
		RunAt         string                   `json:"run_at"`
		Levels        int                      `json:"levels"`
		PlannedOrders []entities.PlannedOrder  `json:"planned_orders"`
		Shortages     []entities.ShortageLine  `json:"shortages"`
		CostRollups   []entities.CostRollupFlag `json:"cost_rollups"`
		Errors        []jsonError              `json:"errors"`
	}{
		RunAt:         result.RunAt.Format("2006-01-02T15:04:05Z07:00"),
		Levels:        result.Levels,
		PlannedOrders: result.PlannedOrders,
		Shortages:     result.Shortages,
		CostRollups:   result.CostRollups,
	}
	for _, demandErr := range result.Errors {
		out.Errors = append(out.Errors, jsonError{DemandIDs: demandErr.DemandIDs, Error: demandErr.Err.Error()})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func joinChain(chain []entities.ProductID) string {
	parts := make([]string, len(chain))
	for i, id := range chain {
		parts[i] = string(id)
	}
	return strings.Join(parts, " -> ")
}
