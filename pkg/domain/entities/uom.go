package entities

import "github.com/shopspring/decimal"

// UnitConversion declares that one From equals Factor To.
type UnitConversion struct {
	From   string
	To     string
	Factor decimal.Decimal
}

type conversionEdge struct {
	to     string
	factor decimal.Decimal
}

// UnitConverter resolves quantity conversions over the registered conversion
// graph. Registering a conversion also registers its inverse, and chained
// conversions (g → kg → t) resolve by path search, so the table only needs
// the factors somebody actually declared.
type UnitConverter struct {
	edges map[string][]conversionEdge
}

// NewUnitConverter builds a converter from the given conversions.
func NewUnitConverter(conversions []UnitConversion) *UnitConverter {
	c := &UnitConverter{edges: make(map[string][]conversionEdge)}
	for _, conv := range conversions {
		if conv.From == "" || conv.To == "" || conv.Factor.Sign() <= 0 {
			continue
		}
		c.edges[conv.From] = append(c.edges[conv.From], conversionEdge{to: conv.To, factor: conv.Factor})
		c.edges[conv.To] = append(c.edges[conv.To], conversionEdge{to: conv.From, factor: decimal.NewFromInt(1).Div(conv.Factor)})
	}
	return c
}

// Convert expresses quantity in the target unit. Returns UnitConversionError
// when no conversion path exists.
func (c *UnitConverter) Convert(quantity decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return quantity, nil
	}

	// BFS over the conversion graph, accumulating factors along the path.
	type node struct {
		unit   string
		factor decimal.Decimal
	}
	visited := map[string]bool{from: true}
	queue := []node{{unit: from, factor: decimal.NewFromInt(1)}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, edge := range c.edges[current.unit] {
			if visited[edge.to] {
				continue
			}
			factor := current.factor.Mul(edge.factor)
			if edge.to == to {
				return quantity.Mul(factor), nil
			}
			visited[edge.to] = true
			queue = append(queue, node{unit: edge.to, factor: factor})
		}
	}

	return decimal.Zero, &UnitConversionError{From: from, To: to}
}
