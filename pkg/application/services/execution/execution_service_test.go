package execution

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmfg/planner/pkg/application/services/planning"
	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/infrastructure/events"
	plantesting "github.com/openmfg/planner/pkg/infrastructure/testing"
)

func newExecService(strict bool) (*Service, *plantesting.Scenario, *events.InMemoryEventStore) {
	scenario := plantesting.BuildFurnitureScenario(strict)
	resolver := planning.NewBOMResolver(scenario.Products, scenario.Converter, planning.Options{})
	store := events.NewInMemoryEventStore()
	service := NewService(
		scenario.Orders, scenario.Reservations, scenario.Products,
		scenario.Inventory, scenario.Traceability, resolver,
		nil, nil, store,
	)
	return service, scenario, store
}

// releasedOrder saves a released LEG_ASSY order at MAIN.
func releasedOrder(t *testing.T, scenario *plantesting.Scenario, quantity int64) *entities.ProductionOrder {
	t.Helper()
	order, err := entities.NewProductionOrder(uuid.NewString(), "LEG_ASSY", decimal.NewFromInt(quantity), scenario.NeedBy)
	require.NoError(t, err)
	order.LocationID = "MAIN"
	order.Status = entities.StatusReleased
	require.NoError(t, scenario.Orders.SaveOrder(context.Background(), order))
	return order
}

// scheduledOrder books a released LEG_ASSY order onto ASSY-1 and reloads it.
func scheduledOrder(t *testing.T, service *Service, scenario *plantesting.Scenario, quantity int64) *entities.ProductionOrder {
	t.Helper()
	order := releasedOrder(t, scenario, quantity)
	_, err := service.ScheduleProduction(context.Background(), order.ID, "ASSY-1", scenario.NeedBy.AddDate(0, 0, -2))
	require.NoError(t, err)
	reloaded, err := scenario.Orders.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	return reloaded
}

func legAvailable(t *testing.T, scenario *plantesting.Scenario) decimal.Decimal {
	t.Helper()
	available, err := scenario.Inventory.GetAvailable(context.Background(), "LEG", "MAIN")
	require.NoError(t, err)
	return available
}

func TestExecutionService_ScheduleAssignsFIFOSequences(t *testing.T) {
	service, scenario, store := newExecService(true)
	ctx := context.Background()
	day := scenario.NeedBy.AddDate(0, 0, -2)

	first := releasedOrder(t, scenario, 1)
	second := releasedOrder(t, scenario, 1)
	third := releasedOrder(t, scenario, 1)

	seq, err := service.ScheduleProduction(ctx, first.ID, "ASSY-1", day)
	require.NoError(t, err)
	assert.Equal(t, 1, seq)

	seq, err = service.ScheduleProduction(ctx, second.ID, "ASSY-1", day)
	require.NoError(t, err)
	assert.Equal(t, 2, seq)

	// Another day is its own queue.
	seq, err = service.ScheduleProduction(ctx, third.ID, "ASSY-1", day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, seq)

	scheduled, err := scenario.Orders.GetOrder(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusScheduled, scheduled.Status)
	assert.Equal(t, "ASSY-1", scheduled.ResourceID)

	published, err := store.ReadEvents(first.ID, 1)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, events.OrderScheduledEvent, published[0].Type())
}

func TestExecutionService_RescheduleAppendsToNewQueue(t *testing.T) {
	service, scenario, _ := newExecService(true)
	ctx := context.Background()
	day := scenario.NeedBy.AddDate(0, 0, -2)

	order := scheduledOrder(t, service, scenario, 1)

	// Rebooking the same queue appends; the old slot stays a gap.
	seq, err := service.ScheduleProduction(ctx, order.ID, "ASSY-1", day)
	require.NoError(t, err)
	assert.Equal(t, 2, seq)
}

func TestExecutionService_ScheduleRejectsStartedOrder(t *testing.T) {
	service, scenario, _ := newExecService(true)
	ctx := context.Background()

	order := scheduledOrder(t, service, scenario, 1)
	_, err := service.StartProduction(ctx, order.ID, nil)
	require.NoError(t, err)

	_, err = service.ScheduleProduction(ctx, order.ID, "ASSY-2", scenario.NeedBy)
	var invalidErr *entities.InvalidTransitionError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, entities.StatusScheduled, invalidErr.To)
}

func TestExecutionService_StartReservesMaterial(t *testing.T) {
	service, scenario, store := newExecService(true)
	ctx := context.Background()

	order := scheduledOrder(t, service, scenario, 4)
	reservations, err := service.StartProduction(ctx, order.ID, nil)
	require.NoError(t, err)

	// LEG_ASSY takes 4 LEG each: 16 reserved, cost-only GLUE excluded.
	require.Len(t, reservations, 1)
	assert.Equal(t, entities.ProductID("LEG"), reservations[0].ComponentID)
	assert.True(t, reservations[0].QuantityReserved.Equal(decimal.NewFromInt(16)))
	assert.True(t, legAvailable(t, scenario).Equal(decimal.NewFromInt(4)))

	started, err := scenario.Orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusInProgress, started.Status)
	require.NotNil(t, started.StartedAt)

	published, err := store.ReadEvents(order.ID, 1)
	require.NoError(t, err)
	types := make([]string, 0, len(published))
	for _, e := range published {
		types = append(types, e.Type())
	}
	assert.Contains(t, types, events.ReservationsCreatedEvent)
}

func TestExecutionService_StartRequiresScheduledStatus(t *testing.T) {
	service, scenario, _ := newExecService(true)
	ctx := context.Background()

	order := releasedOrder(t, scenario, 1)
	_, err := service.StartProduction(ctx, order.ID, nil)

	var invalidErr *entities.InvalidTransitionError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, entities.StatusReleased, invalidErr.From)
	assert.Equal(t, entities.StatusInProgress, invalidErr.To)
}

func TestExecutionService_StartLotRequired(t *testing.T) {
	service, scenario, _ := newExecService(true)
	ctx := context.Background()

	scenario.Traceability.SetGlobalRule(&entities.GlobalLotRule{ProductType: "component", RequiresLotCapture: true})

	order := scheduledOrder(t, service, scenario, 4)

	// No lot offered: refused before anything is reserved.
	_, err := service.StartProduction(ctx, order.ID, nil)
	var lotErr *entities.LotRequiredError
	require.ErrorAs(t, err, &lotErr)
	assert.Equal(t, entities.ProductID("LEG"), lotErr.ComponentID)
	assert.True(t, legAvailable(t, scenario).Equal(decimal.NewFromInt(20)))

	unchanged, err := scenario.Orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusScheduled, unchanged.Status)

	// With the lot it goes through and the reservation carries it.
	reservations, err := service.StartProduction(ctx, order.ID, map[entities.ProductID]string{"LEG": "L-100"})
	require.NoError(t, err)
	require.Len(t, reservations, 1)
	assert.Equal(t, "L-100", reservations[0].LotNumber)
}

func TestExecutionService_GetLotRequirements(t *testing.T) {
	service, scenario, _ := newExecService(true)
	ctx := context.Background()

	scenario.Traceability.SetGlobalRule(&entities.GlobalLotRule{ProductType: "component", RequiresLotCapture: true})

	order := scheduledOrder(t, service, scenario, 1)
	requirements, err := service.GetLotRequirements(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, requirements, 1)
	assert.Equal(t, entities.ProductID("LEG"), requirements[0].ComponentID)
	assert.True(t, requirements[0].Required)
}

func TestExecutionService_StartIsAllOrNothing(t *testing.T) {
	service, scenario, _ := newExecService(true)
	ctx := context.Background()

	// A TABLE order needs LEG_ASSY and TOP. Stock covers the assemblies but
	// not the tops, so the assembly allocation must be rolled back.
	scenario.Inventory.SetLevel(entities.InventoryLevel{ProductID: "LEG_ASSY", LocationID: "MAIN", OnHand: decimal.NewFromInt(20)})

	order, err := entities.NewProductionOrder(uuid.NewString(), "TABLE", decimal.NewFromInt(6), scenario.NeedBy)
	require.NoError(t, err)
	order.LocationID = "MAIN"
	order.Status = entities.StatusReleased
	require.NoError(t, scenario.Orders.SaveOrder(ctx, order))
	_, err = service.ScheduleProduction(ctx, order.ID, "ASSY-1", scenario.NeedBy.AddDate(0, 0, -3))
	require.NoError(t, err)

	_, err = service.StartProduction(ctx, order.ID, nil)
	var invErr *entities.InsufficientInventoryError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, entities.ProductID("TOP"), invErr.ProductID)

	assemblies, err := scenario.Inventory.GetAvailable(ctx, "LEG_ASSY", "MAIN")
	require.NoError(t, err)
	assert.True(t, assemblies.Equal(decimal.NewFromInt(20)), "partial allocation leaked: %s", assemblies)

	reservations, err := scenario.Reservations.GetReservations(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, reservations)

	unchanged, err := scenario.Orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusScheduled, unchanged.Status)
	assert.Nil(t, unchanged.StartedAt)
}

func TestExecutionService_CompletePartialThenScrapSpawnsRemake(t *testing.T) {
	service, scenario, store := newExecService(true)
	ctx := context.Background()

	order := scheduledOrder(t, service, scenario, 4)
	_, err := service.StartProduction(ctx, order.ID, nil)
	require.NoError(t, err)

	// Partial report: 2 of 4. Half the reservation is consumed.
	remake, err := service.CompleteProduction(ctx, order.ID, decimal.NewFromInt(2), decimal.Zero)
	require.NoError(t, err)
	assert.Nil(t, remake)

	partial, err := scenario.Orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusInProgress, partial.Status)
	assert.True(t, partial.OpenQuantity().Equal(decimal.NewFromInt(2)))

	reservations, err := scenario.Reservations.GetReservations(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, reservations, 1)
	assert.True(t, reservations[0].QuantityConsumed.Equal(decimal.NewFromInt(8)))

	// Final report: 1 good, 1 scrapped. Fully accounted, shortfall 1.
	remake, err = service.CompleteProduction(ctx, order.ID, decimal.NewFromInt(1), decimal.NewFromInt(1))
	require.NoError(t, err)
	require.NotNil(t, remake)
	assert.True(t, remake.QuantityOrdered.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, entities.StatusReleased, remake.Status)
	assert.Equal(t, order.ID, remake.ParentOrderID)

	completed, err := scenario.Orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	// All 16 legs issued: on hand 4, nothing left allocated.
	assert.True(t, legAvailable(t, scenario).Equal(decimal.NewFromInt(4)))
	levels, err := scenario.Inventory.GetLevels(ctx)
	require.NoError(t, err)
	for _, lvl := range levels {
		if lvl.ProductID == "LEG" {
			assert.True(t, lvl.OnHand.Equal(decimal.NewFromInt(4)))
			assert.True(t, lvl.Allocated.IsZero())
		}
	}

	published, err := store.ReadEvents(order.ID, 1)
	require.NoError(t, err)
	types := make([]string, 0, len(published))
	for _, e := range published {
		types = append(types, e.Type())
	}
	assert.Contains(t, types, events.RemakeSpawnedEvent)
}

func TestExecutionService_CompleteRejectsOverrun(t *testing.T) {
	service, scenario, _ := newExecService(true)
	ctx := context.Background()

	order := scheduledOrder(t, service, scenario, 4)
	_, err := service.StartProduction(ctx, order.ID, nil)
	require.NoError(t, err)

	_, err = service.CompleteProduction(ctx, order.ID, decimal.NewFromInt(5), decimal.Zero)
	require.Error(t, err)

	_, err = service.CompleteProduction(ctx, order.ID, decimal.Zero, decimal.Zero)
	require.Error(t, err)
}

func TestExecutionService_CompleteRecordsLotConsumptions(t *testing.T) {
	service, scenario, _ := newExecService(true)
	ctx := context.Background()

	scenario.Traceability.SetGlobalRule(&entities.GlobalLotRule{ProductType: "component", RequiresLotCapture: true})

	order := scheduledOrder(t, service, scenario, 4)
	_, err := service.StartProduction(ctx, order.ID, map[entities.ProductID]string{"LEG": "L-200"})
	require.NoError(t, err)

	_, err = service.CompleteProduction(ctx, order.ID, decimal.NewFromInt(4), decimal.Zero)
	require.NoError(t, err)

	consumptions, err := scenario.Reservations.GetLotConsumptions(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, consumptions, 1)
	assert.Equal(t, "L-200", consumptions[0].LotNumber)
	assert.Equal(t, entities.ProductID("LEG"), consumptions[0].ComponentID)
	assert.True(t, consumptions[0].Quantity.Equal(decimal.NewFromInt(16)))
}

func TestExecutionService_CancelReleasesReservations(t *testing.T) {
	service, scenario, store := newExecService(true)
	ctx := context.Background()

	order := scheduledOrder(t, service, scenario, 4)
	_, err := service.StartProduction(ctx, order.ID, nil)
	require.NoError(t, err)
	require.True(t, legAvailable(t, scenario).Equal(decimal.NewFromInt(4)))

	require.NoError(t, service.TransitionStatus(ctx, order.ID, entities.StatusCancelled))

	assert.True(t, legAvailable(t, scenario).Equal(decimal.NewFromInt(20)))

	cancelled, err := scenario.Orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusCancelled, cancelled.Status)

	published, err := store.ReadEvents(order.ID, 1)
	require.NoError(t, err)
	types := make([]string, 0, len(published))
	for _, e := range published {
		types = append(types, e.Type())
	}
	assert.Contains(t, types, events.ReservationsReleasedEvent)
}

func TestExecutionService_HeldStartedOrderKeepsItsReservation(t *testing.T) {
	service, scenario, _ := newExecService(true)
	ctx := context.Background()

	order := scheduledOrder(t, service, scenario, 4)
	_, err := service.StartProduction(ctx, order.ID, nil)
	require.NoError(t, err)
	require.True(t, legAvailable(t, scenario).Equal(decimal.NewFromInt(4)))

	require.NoError(t, service.TransitionStatus(ctx, order.ID, entities.StatusOnHold))

	// Resuming below in_progress would shed the started flag and open the
	// door to scheduling and reserving the same work twice.
	var invalidErr *entities.InvalidTransitionError
	err = service.TransitionStatus(ctx, order.ID, entities.StatusReleased)
	require.ErrorAs(t, err, &invalidErr)

	_, err = service.ScheduleProduction(ctx, order.ID, "ASSY-2", scenario.NeedBy)
	require.ErrorAs(t, err, &invalidErr)

	// The one way forward is back to in_progress, on the existing
	// reservation.
	require.NoError(t, service.TransitionStatus(ctx, order.ID, entities.StatusInProgress))

	resumed, err := scenario.Orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusInProgress, resumed.Status)

	reservations, err := scenario.Reservations.GetReservations(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, reservations, 1)
	assert.True(t, legAvailable(t, scenario).Equal(decimal.NewFromInt(4)), "resume must not touch stock")

	// Work continues normally after the resume.
	_, err = service.CompleteProduction(ctx, order.ID, decimal.NewFromInt(4), decimal.Zero)
	require.NoError(t, err)
}

func TestExecutionService_TransitionGuards(t *testing.T) {
	service, scenario, _ := newExecService(true)
	ctx := context.Background()

	order := scheduledOrder(t, service, scenario, 1)

	// Scheduling and starting have dedicated operations.
	var invalidErr *entities.InvalidTransitionError
	err := service.TransitionStatus(ctx, order.ID, entities.StatusScheduled)
	require.ErrorAs(t, err, &invalidErr)

	err = service.TransitionStatus(ctx, order.ID, entities.StatusInProgress)
	require.ErrorAs(t, err, &invalidErr)
}

func TestExecutionService_QCReworkPath(t *testing.T) {
	service, scenario, _ := newExecService(true)
	ctx := context.Background()

	order := scheduledOrder(t, service, scenario, 4)
	_, err := service.StartProduction(ctx, order.ID, nil)
	require.NoError(t, err)
	_, err = service.CompleteProduction(ctx, order.ID, decimal.NewFromInt(4), decimal.Zero)
	require.NoError(t, err)

	require.NoError(t, service.TransitionStatus(ctx, order.ID, entities.StatusQCHold))

	// Rework out of QC hold re-enters in_progress; the material already
	// issued stays issued.
	require.NoError(t, service.TransitionStatus(ctx, order.ID, entities.StatusInProgress))

	reworked, err := scenario.Orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusInProgress, reworked.Status)
	assert.Equal(t, entities.QCFailed, reworked.QCStatus)
}

func TestExecutionService_SplitOrder(t *testing.T) {
	service, scenario, store := newExecService(true)
	ctx := context.Background()

	order := releasedOrder(t, scenario, 10)

	children, err := service.SplitOrder(ctx, order.ID, []decimal.Decimal{decimal.NewFromInt(4), decimal.NewFromInt(6)})
	require.NoError(t, err)
	require.Len(t, children, 2)

	total := decimal.Zero
	for _, child := range children {
		assert.Equal(t, entities.StatusReleased, child.Status)
		assert.Equal(t, order.ID, child.ParentOrderID)
		total = total.Add(child.QuantityOrdered)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(10)))

	parent, err := scenario.Orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusSplit, parent.Status)
	assert.True(t, parent.Status.IsTerminal())

	published, err := store.ReadEvents(order.ID, 1)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, events.OrderSplitEvent, published[0].Type())
}

func TestExecutionService_SplitValidatesQuantities(t *testing.T) {
	service, scenario, _ := newExecService(true)
	ctx := context.Background()

	order := releasedOrder(t, scenario, 10)

	_, err := service.SplitOrder(ctx, order.ID, []decimal.Decimal{decimal.NewFromInt(10)})
	require.Error(t, err)

	_, err = service.SplitOrder(ctx, order.ID, []decimal.Decimal{decimal.NewFromInt(4), decimal.NewFromInt(4)})
	require.Error(t, err)

	// Started orders cannot split.
	scheduled := scheduledOrder(t, service, scenario, 4)
	_, err = service.StartProduction(ctx, scheduled.ID, nil)
	require.NoError(t, err)
	_, err = service.SplitOrder(ctx, scheduled.ID, []decimal.Decimal{decimal.NewFromInt(2), decimal.NewFromInt(2)})
	var invalidErr *entities.InvalidTransitionError
	require.ErrorAs(t, err, &invalidErr)
}

func TestExecutionService_ConcurrentStartsSingleWinner(t *testing.T) {
	service, scenario, _ := newExecService(true)
	ctx := context.Background()

	order := scheduledOrder(t, service, scenario, 4)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.StartProduction(ctx, order.ID, nil)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		}
	}
	require.Equal(t, 1, successes, "exactly one concurrent start must win")

	// The winner reserved once; the loser moved nothing.
	assert.True(t, legAvailable(t, scenario).Equal(decimal.NewFromInt(4)))
	reservations, err := scenario.Reservations.GetReservations(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, reservations, 1)
}

func TestExecutionService_FirmPlannedOrder(t *testing.T) {
	service, scenario, _ := newExecService(true)
	ctx := context.Background()

	planned, err := entities.NewPlannedOrder(uuid.NewString(), "LEG_ASSY", decimal.NewFromInt(10),
		entities.OrderTypeProduction, scenario.NeedBy, scenario.NeedBy.AddDate(0, 0, -2))
	require.NoError(t, err)
	planned.LocationID = "MAIN"

	order, err := service.FirmPlannedOrder(ctx, planned)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusReleased, order.Status)

	stored, err := scenario.Orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.QuantityOrdered.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "MAIN", stored.LocationID)
}
