package dto

import (
	"time"

	"github.com/openmfg/planner/pkg/domain/entities"
)

// DemandError pegs a planning failure to the demand lines it affected.
// Other demands in the same run still plan normally.
type DemandError struct {
	DemandIDs []string
	Err       error
}

// PlanningResult is the complete output of one planning run.
type PlanningResult struct {
	PlannedOrders []entities.PlannedOrder
	Shortages     []entities.ShortageLine
	CostRollups   []entities.CostRollupFlag
	Errors        []DemandError
	RunAt         time.Time
	Levels        int
}
