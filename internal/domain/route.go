package domain

// Represents the computed tour for a single vehicle.
// Stops is a closed sequence of matrix indices that starts and ends at the
// depot and visits every assigned destination exactly once.
type Route struct {
	Stops            []int
	NodeIDs          []string
	TotalCost        float64
	ConstructionCost float64
	Iterations       int
	LocallyOptimal   bool
}

// DestinationIDs returns the visit order without the depot at both ends.
func (r *Route) DestinationIDs() []string {
	if r == nil || len(r.NodeIDs) < 2 {
		return []string{}
	}
	return append([]string(nil), r.NodeIDs[1:len(r.NodeIDs)-1]...)
}
