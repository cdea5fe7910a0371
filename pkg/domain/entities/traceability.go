package entities

// TraceabilityProfile is a customer's standing lot-capture requirement.
// The presence of a profile decides the question for that customer's orders;
// absence defers to the global rules.
type TraceabilityProfile struct {
	CustomerID         string
	RequiresLotCapture bool
}

// GlobalLotRule keys a lot-capture requirement on a component product type.
type GlobalLotRule struct {
	ProductType        string
	RequiresLotCapture bool
}

// LotRequirement is the resolved capture requirement for one component of an
// order. Computed at order start, never stored.
type LotRequirement struct {
	ComponentID ProductID
	Required    bool
}
