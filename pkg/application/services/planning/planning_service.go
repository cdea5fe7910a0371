package planning

import (
	"context"
	"fmt"
	"time"

	"github.com/openmfg/planner/pkg/application/dto"
	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/domain/repositories"
	"github.com/openmfg/planner/pkg/infrastructure/events"
	"github.com/openmfg/planner/pkg/infrastructure/logging"
	"github.com/openmfg/planner/pkg/infrastructure/metrics"
)

// Config holds run-scoped planning configuration.
type Config struct {
	Options

	// MaxLevels bounds the planning loop depth. Cycles are caught by the
	// resolver; this guards against pathologically deep product structures.
	MaxLevels int
}

// DefaultMaxLevels is plenty for any sane product structure.
const DefaultMaxLevels = 32

// Service runs MRP: per open demand it explodes, nets, and generates planned
// orders, recursing level by level until the structure bottoms out. Errors
// on one demand never abort the batch.
type Service struct {
	config    Config
	products  repositories.ProductRepository
	inventory repositories.InventoryReader
	planned   repositories.PlannedOrderRepository
	converter *entities.UnitConverter
	resolver  *BOMResolver
	netting   *NetCalculator
	generator *PlannedOrderGenerator
	logger    *logging.Logger
	metrics   *metrics.Metrics
	publisher events.Publisher
}

// NewService wires a planning service. planned, metrics, and publisher may be
// nil: results are then returned to the caller only.
func NewService(
	config Config,
	products repositories.ProductRepository,
	inventory repositories.InventoryReader,
	planned repositories.PlannedOrderRepository,
	converter *entities.UnitConverter,
	logger *logging.Logger,
	m *metrics.Metrics,
	publisher events.Publisher,
) *Service {
	if config.MaxLevels <= 0 {
		config.MaxLevels = DefaultMaxLevels
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	resolver := NewBOMResolver(products, converter, config.Options)
	return &Service{
		config:    config,
		products:  products,
		inventory: inventory,
		planned:   planned,
		converter: converter,
		resolver:  resolver,
		netting:   NewNetCalculator(),
		generator: NewPlannedOrderGenerator(products, resolver),
		logger:    logger.WithComponent("planning"),
		metrics:   m,
		publisher: publisher,
	}
}

// Resolver exposes the run's BOM resolver for callers that need raw
// explosions (reservation at order start, what-if expansion).
func (s *Service) Resolver() *BOMResolver {
	return s.resolver
}

// RunMRP plans the given open demands against a snapshot of current
// inventory. The snapshot is consumed in memory only; discarding the result
// leaves no trace. Returned planned orders supersede the previous run's when
// a planned-order repository is configured.
func (s *Service) RunMRP(ctx context.Context, demands []entities.DemandLine) (*dto.PlanningResult, error) {
	started := time.Now()

	levels, err := s.inventory.GetLevels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory levels: %w", err)
	}
	snapshot := entities.NewInventorySnapshot(levels)

	result := &dto.PlanningResult{RunAt: started}

	lines := s.normalizeDemands(ctx, demands, result)

	for level := 0; len(lines) > 0; level++ {
		if level >= s.config.MaxLevels {
			result.Errors = append(result.Errors, dto.DemandError{
				DemandIDs: demandIDs(lines),
				Err:       fmt.Errorf("planning exceeded %d levels", s.config.MaxLevels),
			})
			break
		}

		shortages := s.netting.Net(lines, snapshot)
		result.Shortages = append(result.Shortages, shortages...)

		generated := s.generator.Generate(ctx, shortages)
		result.PlannedOrders = append(result.PlannedOrders, generated.Orders...)
		result.CostRollups = append(result.CostRollups, generated.CostOnly...)
		result.Errors = append(result.Errors, generated.Errors...)
		result.Levels = level + 1

		// Netting the next level only starts once every explosion of this
		// level has joined.
		lines = generated.ChildDemands
	}

	if s.planned != nil {
		if err := s.planned.ReplaceOpen(ctx, result.PlannedOrders); err != nil {
			return nil, fmt.Errorf("failed to persist planned orders: %w", err)
		}
	}

	duration := time.Since(started)
	s.metrics.PlanningRun(duration, len(result.PlannedOrders), len(result.Errors))
	for _, order := range result.PlannedOrders {
		s.metrics.PlannedOrder(order.Type.String())
	}
	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, events.NewPlanningRunCompleted(len(demands), result.PlannedOrders, len(result.Errors)))
	}

	s.logger.WithOperation("run_mrp").Info("planning run completed",
		"demands", len(demands),
		"plannedOrders", len(result.PlannedOrders),
		"shortages", len(result.Shortages),
		"errors", len(result.Errors),
		"levels", result.Levels,
		"durationMs", duration.Milliseconds(),
	)

	return result, nil
}

// normalizeDemands validates the incoming demands and converts them to each
// product's stocking unit. A demand that fails validation or conversion is
// recorded and skipped; the rest of the batch plans normally.
func (s *Service) normalizeDemands(ctx context.Context, demands []entities.DemandLine, result *dto.PlanningResult) []entities.DemandLine {
	lines := make([]entities.DemandLine, 0, len(demands))
	for _, d := range demands {
		if d.Quantity.Sign() <= 0 {
			result.Errors = append(result.Errors, dto.DemandError{
				DemandIDs: []string{d.ID},
				Err:       fmt.Errorf("demand %s: quantity must be positive, got %s", d.ID, d.Quantity),
			})
			continue
		}

		product, err := s.products.GetProduct(ctx, d.ProductID)
		if err != nil {
			result.Errors = append(result.Errors, dto.DemandError{
				DemandIDs: []string{d.ID},
				Err:       fmt.Errorf("demand %s: %w", d.ID, err),
			})
			continue
		}

		quantity := d.Quantity
		unit := d.Unit
		if unit == "" {
			unit = product.StockUnit
		}
		if unit != product.StockUnit {
			quantity, err = s.converter.Convert(quantity, unit, product.StockUnit)
			if err != nil {
				result.Errors = append(result.Errors, dto.DemandError{DemandIDs: []string{d.ID}, Err: err})
				continue
			}
			unit = product.StockUnit
		}

		line := d
		line.Quantity = quantity
		line.Unit = unit
		if len(line.SourceChain) == 0 {
			line.SourceChain = []entities.ProductID{d.ProductID}
		}
		lines = append(lines, line)
	}
	return lines
}

func demandIDs(lines []entities.DemandLine) []string {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ID)
	}
	return ids
}
