package domain

import (
	"fmt"
)

// capacityTolerance absorbs floating point drift when summing volumes.
const capacityTolerance = 1e-9

// Vehicle load holding shipments and, once solved, its Route.
// Err is set instead of Route when the vehicle could not be routed.
type VehicleGroup struct {
	VehicleNumber int
	Capacity      float64
	Shipments     []Shipment
	TotalVolume   float64
	Route         *Route
	Err           error
}

func NewVehicleGroup(number int, capacity float64) *VehicleGroup {
	return &VehicleGroup{
		VehicleNumber: number,
		Capacity:      capacity,
	}
}

// Remaining returns the unused capacity.
func (v *VehicleGroup) Remaining() float64 {
	return v.Capacity - v.TotalVolume
}

// Fits reports whether volume can be added without exceeding capacity.
func (v *VehicleGroup) Fits(volume float64) bool {
	return FitsCapacity(v.TotalVolume+volume, v.Capacity)
}

// FitsCapacity reports whether volume fits an empty vehicle of the given capacity.
func FitsCapacity(volume, capacity float64) bool {
	return volume <= capacity+capacityTolerance
}

// Load adds shipments to the vehicle; either all of them fit or none is loaded.
func (v *VehicleGroup) Load(shipments ...Shipment) error {
	total := 0.0
	for _, s := range shipments {
		total += s.Volume()
	}
	if !v.Fits(total) {
		return fmt.Errorf(
			"load vehicle: vehicle %d cannot take volume %.3f (remaining=%.3f)",
			v.VehicleNumber, total, v.Remaining(),
		)
	}

	v.Shipments = append(v.Shipments, shipments...)
	v.TotalVolume += total
	return nil
}

// DestinationIDs returns the distinct destinations in first-appearance order.
func (v *VehicleGroup) DestinationIDs() []string {
	seen := make(map[string]struct{}, len(v.Shipments))
	out := make([]string, 0, len(v.Shipments))
	for _, s := range v.Shipments {
		if _, ok := seen[s.DestinationID]; ok {
			continue
		}
		seen[s.DestinationID] = struct{}{}
		out = append(out, s.DestinationID)
	}
	return out
}

// ItemAssignment is one item carried by a vehicle.
type ItemAssignment struct {
	ItemID        string
	SourceID      string
	DestinationID string
	Quantity      int
}

func (v *VehicleGroup) ItemAssignments() []ItemAssignment {
	out := make([]ItemAssignment, 0, len(v.Shipments))
	for _, s := range v.Shipments {
		out = append(out, ItemAssignment{
			ItemID:        s.ItemID,
			SourceID:      s.SourceID,
			DestinationID: s.DestinationID,
			Quantity:      s.Quantity,
		})
	}
	return out
}
