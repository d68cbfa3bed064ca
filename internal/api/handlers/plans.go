package handlers

import (
	"context"
	"delivery-planner/internal/api/dto"
	"delivery-planner/internal/domain"
	"delivery-planner/internal/platform/obs"
	"delivery-planner/internal/services"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const maxPlanBodyBytes = 4 << 20

// Planner is the planning use case the handler drives.
type Planner interface {
	Plan(ctx context.Context, req services.PlanRequest) (*domain.PlanResult, error)
}

type PlanHandler struct {
	Planner         Planner
	DefaultCapacity float64
}

// Plan decodes a planning request, runs the planner and maps the result.
// Invalid input is a 400; a partial plan is still a 200 with per-vehicle errors.
func (h *PlanHandler) Plan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.PlanRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPlanBodyBytes))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	capacity := h.DefaultCapacity
	if req.Capacity != nil {
		capacity = *req.Capacity
	}

	svcReq := services.PlanRequest{
		Depot:     domain.NewDepot(req.Depot.ID, domain.Coordinates{Lon: req.Depot.Lon, Lat: req.Depot.Lat}),
		Capacity:  capacity,
		Shipments: make([]domain.Shipment, 0, len(req.Shipments)),
	}
	for _, s := range req.Shipments {
		svcReq.Shipments = append(svcReq.Shipments, domain.Shipment{
			DestinationID: s.DestinationID,
			SourceID:      s.SourceID,
			ItemID:        s.ItemID,
			Quantity:      s.Quantity,
			UnitVolume:    s.UnitVolume,
			Destination:   domain.Coordinates{Lon: s.Lon, Lat: s.Lat},
		})
	}

	result, err := h.Planner.Plan(r.Context(), svcReq)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusServiceUnavailable, "planning cancelled")
		return
	default:
		obs.Logger(r.Context()).WithError(err).Error("plan deliveries failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, toPlanResponse(result))
}

func toPlanResponse(p *domain.PlanResult) dto.PlanResponse {
	res := dto.PlanResponse{
		RunID:     p.RunID,
		Status:    string(p.Status()),
		Metric:    p.Metric,
		TotalCost: p.TotalCost,
		Vehicles:  make([]dto.VehicleResponse, 0, len(p.Vehicles)),
		Warnings:  make([]dto.WarningResponse, 0, len(p.Warnings)),
	}

	for _, v := range p.Vehicles {
		items := make([]dto.ItemAssignmentResponse, 0, len(v.Shipments))
		for _, a := range v.ItemAssignments() {
			items = append(items, dto.ItemAssignmentResponse{
				ItemID:        a.ItemID,
				SourceID:      a.SourceID,
				DestinationID: a.DestinationID,
				Quantity:      a.Quantity,
			})
		}

		vr := dto.VehicleResponse{
			VehicleNumber:   v.VehicleNumber,
			DestinationIDs:  v.DestinationIDs(),
			ItemAssignments: items,
			TotalVolume:     v.TotalVolume,
		}
		if v.Err != nil {
			vr.Error = v.Err.Error()
		} else if v.Route != nil {
			cost, optimal := v.Route.TotalCost, v.Route.LocallyOptimal
			vr.DestinationIDs = v.Route.DestinationIDs()
			vr.TotalCost = &cost
			vr.LocallyOptimal = &optimal
		}
		res.Vehicles = append(res.Vehicles, vr)
	}

	for _, w := range p.Warnings {
		res.Warnings = append(res.Warnings, dto.WarningResponse{
			Kind:          string(w.Kind),
			VehicleNumber: w.VehicleNumber,
			Detail:        w.Detail,
		})
	}

	return res
}
