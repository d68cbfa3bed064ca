package dto

type DepotRequest struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type ShipmentRequest struct {
	DestinationID string  `json:"destination_id"`
	SourceID      string  `json:"source_id"`
	ItemID        string  `json:"item_id"`
	Quantity      int     `json:"quantity"`
	UnitVolume    float64 `json:"unit_volume"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
}

type PlanRequest struct {
	Capacity  *float64          `json:"capacity"`
	Depot     DepotRequest      `json:"depot"`
	Shipments []ShipmentRequest `json:"shipments"`
}

type ItemAssignmentResponse struct {
	ItemID        string `json:"item_id"`
	SourceID      string `json:"source_id"`
	DestinationID string `json:"destination_id"`
	Quantity      int    `json:"quantity"`
}

type VehicleResponse struct {
	VehicleNumber   int                      `json:"vehicle_number"`
	DestinationIDs  []string                 `json:"destination_ids"`
	ItemAssignments []ItemAssignmentResponse `json:"item_assignments"`
	TotalVolume     float64                  `json:"total_volume"`
	TotalCost       *float64                 `json:"total_cost,omitempty"`
	LocallyOptimal  *bool                    `json:"locally_optimal,omitempty"`
	Error           string                   `json:"error,omitempty"`
}

type WarningResponse struct {
	Kind          string `json:"kind"`
	VehicleNumber int    `json:"vehicle_number,omitempty"`
	Detail        string `json:"detail"`
}

type PlanResponse struct {
	RunID     string            `json:"run_id"`
	Status    string            `json:"status"`
	Metric    string            `json:"metric"`
	TotalCost float64           `json:"total_cost"`
	Vehicles  []VehicleResponse `json:"vehicles"`
	Warnings  []WarningResponse `json:"warnings"`
}
