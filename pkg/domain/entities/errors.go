package entities

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CircularBOMError reports a cycle in the product structure graph. The cycle
// names every product along the offending path, first repeated last.
type CircularBOMError struct {
	Cycle []ProductID
}

func (e *CircularBOMError) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, id := range e.Cycle {
		parts[i] = string(id)
	}
	return fmt.Sprintf("circular BOM reference: %s", strings.Join(parts, " -> "))
}

// UnitConversionError reports a missing conversion path between two units.
// ComponentID is filled in by callers that know which line failed.
type UnitConversionError struct {
	From        string
	To          string
	ComponentID ProductID
}

func (e *UnitConversionError) Error() string {
	if e.ComponentID != "" {
		return fmt.Sprintf("no unit conversion path from %s to %s for component %s", e.From, e.To, e.ComponentID)
	}
	return fmt.Sprintf("no unit conversion path from %s to %s", e.From, e.To)
}

// InvalidTransitionError reports a status change outside the allow-list.
// The order is left untouched.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order transition from %s to %s", e.From, e.To)
}

// LotRequiredError blocks an order start until a lot is selected for the
// component. Nothing is reserved when it is returned.
type LotRequiredError struct {
	ComponentID ProductID
}

func (e *LotRequiredError) Error() string {
	return fmt.Sprintf("lot selection required for component %s", e.ComponentID)
}

// InsufficientInventoryError refuses a reservation that would drive stock
// negative. Only returned in strict inventory mode.
type InsufficientInventoryError struct {
	ProductID  ProductID
	LocationID string
	Requested  decimal.Decimal
	Available  decimal.Decimal
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for %s at %q: requested %s, available %s",
		e.ProductID, e.LocationID, e.Requested, e.Available)
}

// ConcurrencyConflictError reports a lock or version conflict on a shared
// counter. The caller retries the single operation, not the whole run.
type ConcurrencyConflictError struct {
	Resource string
	Key      string
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("concurrent modification of %s %q", e.Resource, e.Key)
}
