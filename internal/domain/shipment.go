package domain

import (
	"math"
	"strings"
)

// Represents a single demand line handled by the planner.
// A Shipment delivers Quantity units of ItemID, supplied by SourceID,
// to the destination identified by DestinationID. SourceID is kept for
// traceability only and plays no part in routing.
type Shipment struct {
	DestinationID string
	SourceID      string
	ItemID        string
	Quantity      int
	UnitVolume    float64
	Destination   Coordinates
}

// Volume is the total volume the shipment occupies in a vehicle.
func (s Shipment) Volume() float64 {
	return float64(s.Quantity) * s.UnitVolume
}

// Validate rejects shipments that cannot be packed.
func (s Shipment) Validate() error {
	if strings.TrimSpace(s.DestinationID) == "" {
		return &InvalidInputError{Field: "destination_id", Reason: "must not be empty"}
	}

	if s.Quantity <= 0 {
		return &InvalidInputError{
			Field:  "quantity",
			Reason: "shipment " + s.Label() + " must have a positive quantity",
		}
	}
	if math.IsNaN(s.UnitVolume) || math.IsInf(s.UnitVolume, 0) || s.UnitVolume <= 0 {
		return &InvalidInputError{
			Field:  "unit_volume",
			Reason: "shipment " + s.Label() + " must have a positive, finite unit volume",
		}
	}

	v := s.Volume()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &InvalidInputError{
			Field:  "volume",
			Reason: "shipment " + s.Label() + " has a non-finite volume",
		}
	}
	if v <= 0 {
		return &InvalidInputError{
			Field:  "volume",
			Reason: "shipment " + s.Label() + " must have a positive volume",
		}
	}

	return nil
}

// Label identifies the shipment in diagnostics.
func (s Shipment) Label() string {
	item := s.ItemID
	if item == "" {
		item = "?"
	}
	return item + "@" + s.DestinationID
}
