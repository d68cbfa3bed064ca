package services

import (
	"cmp"
	"delivery-planner/internal/domain"
	"fmt"
	"math"
	"slices"
)

type PackingStrategy string

const (
	BestFit  PackingStrategy = "best_fit"
	FirstFit PackingStrategy = "first_fit"
)

// destinationLoad is every shipment bound for one destination. It always rides in one vehicle.
type destinationLoad struct {
	destinationID string
	shipments     []domain.Shipment
	volume        float64
}

// PackLoads partitions shipments into vehicles of the given capacity.
//
// Shipments are grouped by destination and a destination is never split.
// Groups are placed largest first (ties by destination id); best-fit puts a
// group in the vehicle left with the least slack, first-fit in the lowest
// numbered vehicle with room. A new vehicle is opened when none fits.
// The vehicle count is heuristic, not minimal.
func PackLoads(
	shipments []domain.Shipment,
	capacity float64,
	strategy PackingStrategy,
) ([]*domain.VehicleGroup, error) {
	if math.IsNaN(capacity) || math.IsInf(capacity, 0) || capacity <= 0 {
		return nil, &domain.InvalidInputError{Field: "capacity", Reason: fmt.Sprintf("must be a positive number, got %v", capacity)}
	}
	if len(shipments) == 0 {
		return nil, &domain.InvalidInputError{Field: "shipments", Reason: "at least one shipment is required"}
	}
	switch strategy {
	case BestFit, FirstFit:
	default:
		return nil, &domain.InvalidInputError{Field: "strategy", Reason: fmt.Sprintf("unknown packing strategy %q", strategy)}
	}

	loads, err := groupByDestination(shipments, capacity)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(loads, func(a, b *destinationLoad) int {
		if c := cmp.Compare(b.volume, a.volume); c != 0 {
			return c
		}
		return cmp.Compare(a.destinationID, b.destinationID)
	})

	vehicles := make([]*domain.VehicleGroup, 0)
	for _, load := range loads {
		v := pickVehicle(vehicles, load.volume, strategy)
		if v == nil {
			v = domain.NewVehicleGroup(len(vehicles)+1, capacity)
			vehicles = append(vehicles, v)
		}

		if err := v.Load(load.shipments...); err != nil {
			return nil, fmt.Errorf("pack loads: destination %q: %w", load.destinationID, err)
		}
	}

	return vehicles, nil
}

func groupByDestination(shipments []domain.Shipment, capacity float64) ([]*destinationLoad, error) {
	byDest := make(map[string]*destinationLoad)
	loads := make([]*destinationLoad, 0)

	for _, s := range shipments {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if !domain.FitsCapacity(s.Volume(), capacity) {
			return nil, &domain.InvalidInputError{
				Field:  "volume",
				Reason: fmt.Sprintf("shipment %s volume %.3f exceeds vehicle capacity %.3f", s.Label(), s.Volume(), capacity),
				Err:    domain.ErrCapacityExceeded,
			}
		}

		load, ok := byDest[s.DestinationID]
		if !ok {
			load = &destinationLoad{destinationID: s.DestinationID}
			byDest[s.DestinationID] = load
			loads = append(loads, load)
		}
		load.shipments = append(load.shipments, s)
		load.volume += s.Volume()
	}

	for _, load := range loads {
		if !domain.FitsCapacity(load.volume, capacity) {
			return nil, &domain.InvalidInputError{
				Field: "shipments",
				Reason: fmt.Sprintf(
					"destination %q needs volume %.3f which exceeds vehicle capacity %.3f and cannot be split",
					load.destinationID, load.volume, capacity,
				),
				Err: domain.ErrCapacityExceeded,
			}
		}
	}

	return loads, nil
}

// pickVehicle returns the vehicle that should take volume, or nil to open a new one.
func pickVehicle(vehicles []*domain.VehicleGroup, volume float64, strategy PackingStrategy) *domain.VehicleGroup {
	var best *domain.VehicleGroup
	bestSlack := math.Inf(1)

	for _, v := range vehicles {
		if !v.Fits(volume) {
			continue
		}
		if strategy == FirstFit {
			return v
		}
		// Strict comparison keeps the lowest vehicle number on ties.
		if slack := v.Remaining() - volume; slack < bestSlack {
			best, bestSlack = v, slack
		}
	}

	return best
}
