package planning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/domain/repositories"
)

// Options configure a planning run. They are fixed for the lifetime of one
// resolver and applied consistently to every explosion in the run.
type Options struct {
	// CascadeDueDates offsets a sub-assembly's need-by to the parent's
	// need-by minus the sub-assembly's own lead time. When false, every
	// level shares the top-level need-by.
	CascadeDueDates bool

	// DefaultPolicy resolves make_or_buy products. Zero value is make.
	DefaultPolicy entities.MakeOrBuy
}

// ExplodeRequest describes one explosion.
type ExplodeRequest struct {
	ProductID  entities.ProductID
	Quantity   decimal.Decimal
	NeedBy     time.Time
	Source     string
	CustomerID string
	LocationID string

	// Chain is the pegging prefix for demands produced by this explosion.
	// Planning threads it across generator recursion so a cycle spanning
	// several planning levels is still detected. Defaults to [ProductID].
	Chain []entities.ProductID

	// SingleLevel stops after the product's direct components. Level-by-level
	// planning and order-start reservation both use this; a full multi-level
	// expansion is the default.
	SingleLevel bool
}

// Explosion is the flattened output of a BOM expansion.
type Explosion struct {
	Demands  []entities.DemandLine
	CostOnly []entities.CostRollupFlag
}

// BOMResolver expands multi-level bills of materials into flat component
// demand lines. BOM edges are id references; the resolver tracks the product
// path it is on and fails with CircularBOMError instead of looping when the
// graph is cyclic.
type BOMResolver struct {
	products  repositories.ProductRepository
	converter *entities.UnitConverter
	opts      Options
}

// NewBOMResolver creates a resolver over the given master data.
func NewBOMResolver(products repositories.ProductRepository, converter *entities.UnitConverter, opts Options) *BOMResolver {
	return &BOMResolver{
		products:  products,
		converter: converter,
		opts:      opts,
	}
}

// Explode expands the product's BOM at the requested quantity.
func (r *BOMResolver) Explode(ctx context.Context, req ExplodeRequest) (*Explosion, error) {
	if req.Quantity.Sign() <= 0 {
		return nil, fmt.Errorf("explosion quantity must be positive, got %s", req.Quantity)
	}

	product, err := r.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", req.ProductID, err)
	}

	chain := req.Chain
	if len(chain) == 0 {
		chain = []entities.ProductID{req.ProductID}
	}
	onPath := make(map[entities.ProductID]bool, len(chain))
	for _, id := range chain {
		onPath[id] = true
	}

	out := &Explosion{}
	if err := r.explode(ctx, product, req, req.Quantity, req.NeedBy, chain, onPath, out); err != nil {
		return nil, err
	}
	return out, nil
}

// explode walks one product's BOM lines, emitting a demand line per material
// component and recursing into make components unless the request is
// single-level. chain and onPath describe the current root→here path.
func (r *BOMResolver) explode(
	ctx context.Context,
	product *entities.Product,
	req ExplodeRequest,
	quantity decimal.Decimal,
	needBy time.Time,
	chain []entities.ProductID,
	onPath map[entities.ProductID]bool,
	out *Explosion,
) error {
	bom, err := r.products.GetActiveBOM(ctx, product.ID)
	if err != nil {
		return fmt.Errorf("failed to get BOM for %s: %w", product.ID, err)
	}

	for _, line := range bom.Lines {
		if line.IsCostOnly {
			out.CostOnly = append(out.CostOnly, entities.CostRollupFlag{
				ParentID:    product.ID,
				ComponentID: line.ComponentID,
			})
			continue
		}

		if onPath[line.ComponentID] {
			return &entities.CircularBOMError{Cycle: cyclePath(chain, line.ComponentID)}
		}

		component, err := r.products.GetProduct(ctx, line.ComponentID)
		if err != nil {
			return fmt.Errorf("failed to get component %s: %w", line.ComponentID, err)
		}

		required, err := r.converter.Convert(quantity.Mul(line.GrossPer()), line.Unit, component.StockUnit)
		if err != nil {
			var convErr *entities.UnitConversionError
			if errors.As(err, &convErr) {
				convErr.ComponentID = line.ComponentID
			}
			return err
		}

		childNeedBy := needBy
		if r.opts.CascadeDueDates {
			childNeedBy = needBy.AddDate(0, 0, -component.LeadTimeDays)
		}

		childChain := appendChain(chain, line.ComponentID)
		out.Demands = append(out.Demands, entities.DemandLine{
			ID:          uuid.NewString(),
			ProductID:   component.ID,
			Quantity:    required,
			Unit:        component.StockUnit,
			NeedBy:      childNeedBy,
			Source:      req.Source,
			CustomerID:  req.CustomerID,
			LocationID:  req.LocationID,
			SourceChain: childChain,
		})

		if req.SingleLevel || r.effectivePolicy(component) != entities.MakeOrBuyMake {
			continue
		}

		onPath[component.ID] = true
		err = r.explode(ctx, component, req, required, childNeedBy, childChain, onPath, out)
		delete(onPath, component.ID)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *BOMResolver) effectivePolicy(p *entities.Product) entities.MakeOrBuy {
	if p.Policy == entities.MakeOrBuyEither {
		return r.opts.DefaultPolicy
	}
	return p.Policy
}

// cyclePath extracts the offending loop from the current path: everything
// from the first occurrence of repeat, closed by repeat itself.
func cyclePath(chain []entities.ProductID, repeat entities.ProductID) []entities.ProductID {
	start := 0
	for i, id := range chain {
		if id == repeat {
			start = i
			break
		}
	}
	cycle := make([]entities.ProductID, 0, len(chain)-start+1)
	cycle = append(cycle, chain[start:]...)
	cycle = append(cycle, repeat)
	return cycle
}

// appendChain copies on append so sibling lines never share a backing array.
func appendChain(chain []entities.ProductID, id entities.ProductID) []entities.ProductID {
	out := make([]entities.ProductID, len(chain), len(chain)+1)
	copy(out, chain)
	return append(out, id)
}
