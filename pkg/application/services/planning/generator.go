package planning

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openmfg/planner/pkg/application/dto"
	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/domain/repositories"
)

// GenerationResult is the output of one generator pass over a shortage set.
// ChildDemands are the next planning level: component requirements of the
// make orders generated in this pass, awaiting their own netting.
type GenerationResult struct {
	Orders       []entities.PlannedOrder
	ChildDemands []entities.DemandLine
	CostOnly     []entities.CostRollupFlag
	Errors       []dto.DemandError
}

// PlannedOrderGenerator converts shortages into purchase or production
// planned orders, honoring each product's lead time and order-size rules.
// Make orders re-explode at the planned quantity, which is what makes
// planning multi-level rather than single-pass.
type PlannedOrderGenerator struct {
	products repositories.ProductRepository
	resolver *BOMResolver
}

// NewPlannedOrderGenerator creates a generator backed by the given resolver.
func NewPlannedOrderGenerator(products repositories.ProductRepository, resolver *BOMResolver) *PlannedOrderGenerator {
	return &PlannedOrderGenerator{
		products: products,
		resolver: resolver,
	}
}

// Generate emits one planned order per shortage. Sub-explosions of make
// orders run concurrently; the caller nets ChildDemands only after Generate
// returns, so the aggregation barrier holds.
func (g *PlannedOrderGenerator) Generate(ctx context.Context, shortages []entities.ShortageLine) *GenerationResult {
	result := &GenerationResult{}

	type explodeJob struct {
		order    entities.PlannedOrder
		shortage entities.ShortageLine
	}
	var jobs []explodeJob

	for _, shortage := range shortages {
		if shortage.Quantity.Sign() <= 0 {
			continue
		}

		product, err := g.products.GetProduct(ctx, shortage.ProductID)
		if err != nil {
			result.Errors = append(result.Errors, dto.DemandError{
				DemandIDs: shortage.DemandIDs,
				Err:       fmt.Errorf("failed to get product %s: %w", shortage.ProductID, err),
			})
			continue
		}

		order, err := g.buildOrder(product, shortage)
		if err != nil {
			result.Errors = append(result.Errors, dto.DemandError{DemandIDs: shortage.DemandIDs, Err: err})
			continue
		}
		result.Orders = append(result.Orders, *order)

		if order.Type == entities.OrderTypeProduction {
			jobs = append(jobs, explodeJob{order: *order, shortage: shortage})
		}
	}

	// Fan out the sub-explosions; they are independent of one another.
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, job := range jobs {
		wg.Add(1)
		go func(job explodeJob) {
			defer wg.Done()

			explosion, err := g.resolver.Explode(ctx, ExplodeRequest{
				ProductID:   job.order.ProductID,
				Quantity:    job.order.Quantity,
				NeedBy:      job.order.NeedBy,
				Source:      job.order.ID,
				CustomerID:  job.shortage.CustomerID,
				LocationID:  job.shortage.LocationID,
				Chain:       job.shortage.SourceChain,
				SingleLevel: true,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, dto.DemandError{DemandIDs: job.shortage.DemandIDs, Err: err})
				return
			}
			result.ChildDemands = append(result.ChildDemands, explosion.Demands...)
			result.CostOnly = append(result.CostOnly, explosion.CostOnly...)
		}(job)
	}
	wg.Wait()

	return result
}

// buildOrder applies the product's sourcing policy and order-size rule to a
// shortage.
func (g *PlannedOrderGenerator) buildOrder(product *entities.Product, shortage entities.ShortageLine) (*entities.PlannedOrder, error) {
	var (
		orderType entities.OrderType
		quantity  decimal.Decimal
		leadDays  int
	)

	switch g.resolver.effectivePolicy(product) {
	case entities.MakeOrBuyBuy:
		orderType = entities.OrderTypePurchase
		quantity = roundUpToMinimum(shortage.Quantity, product.MinOrderQty)
		leadDays = product.ProcurementLeadTimeDays()
	default:
		orderType = entities.OrderTypeProduction
		quantity = roundUpToMultiple(shortage.Quantity, product.LotSizeQty)
		leadDays = product.LeadTimeDays
	}

	order, err := entities.NewPlannedOrder(
		uuid.NewString(),
		product.ID,
		quantity,
		orderType,
		shortage.NeedBy,
		shortage.NeedBy.AddDate(0, 0, -leadDays),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build planned order for %s: %w", product.ID, err)
	}
	order.LocationID = shortage.LocationID
	order.CustomerID = shortage.CustomerID
	order.SourceDemandIDs = shortage.DemandIDs
	order.SourceChain = shortage.SourceChain
	return order, nil
}

// roundUpToMinimum lifts quantity to at least the minimum order quantity.
func roundUpToMinimum(quantity, minimum decimal.Decimal) decimal.Decimal {
	if minimum.Sign() > 0 && quantity.LessThan(minimum) {
		return minimum
	}
	return quantity
}

// roundUpToMultiple lifts quantity to the next multiple of the lot size.
func roundUpToMultiple(quantity, lotSize decimal.Decimal) decimal.Decimal {
	if lotSize.Sign() <= 0 {
		return quantity
	}
	lots := quantity.Div(lotSize).Ceil()
	return lots.Mul(lotSize)
}
