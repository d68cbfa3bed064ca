package domain

type WarningKind string

const (
	WarningProviderDegraded     WarningKind = "provider_degraded"
	WarningSolverNonConvergence WarningKind = "solver_non_convergence"
)

// Warning is a non-fatal condition attached to a plan. VehicleNumber is 0
// for plan-level warnings.
type Warning struct {
	Kind          WarningKind
	VehicleNumber int
	Detail        string
}

type PlanStatus string

const (
	PlanComplete PlanStatus = "complete"
	PlanPartial  PlanStatus = "partial"
	PlanFailed   PlanStatus = "failed"
)

// PlanResult is the aggregate output of one planning run. Vehicles that
// could not be routed keep their Err; the others carry a Route.
type PlanResult struct {
	RunID     string
	Metric    string
	Vehicles  []*VehicleGroup
	Warnings  []Warning
	TotalCost float64
}

func (p *PlanResult) Succeeded() int {
	n := 0
	for _, v := range p.Vehicles {
		if v.Err == nil && v.Route != nil {
			n++
		}
	}
	return n
}

func (p *PlanResult) Failed() int {
	return len(p.Vehicles) - p.Succeeded()
}

func (p *PlanResult) Status() PlanStatus {
	switch {
	case p.Failed() == 0:
		return PlanComplete
	case p.Succeeded() == 0:
		return PlanFailed
	default:
		return PlanPartial
	}
}
