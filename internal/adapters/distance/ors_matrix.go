package distance

import (
	"bytes"
	"context"
	"delivery-planner/internal/domain"
	"delivery-planner/internal/ports"
	"encoding/json"
	"fmt"
	"net/http"
)

type matrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
	Sources      []int       `json:"sources"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// fetchMatrixRow retrieves distance and duration from one origin to each
// destination, in order. Null cells mean ORS found no route.
func (o *ORSDistanceProvider) fetchMatrixRow(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
) ([]ports.DistanceResult, error) {
	if len(destinations) == 0 {
		return []ports.DistanceResult{}, nil
	}

	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, o.profile)

	locations := make([][]float64, 0, 1+len(destinations))
	locations = append(locations, origin.CoordsToList())
	destIdx := make([]int, 0, len(destinations))
	for i, c := range destinations {
		locations = append(locations, c.CoordsToList())
		destIdx = append(destIdx, i+1)
	}

	payload, err := json.Marshal(matrixRequest{
		Locations:    locations,
		Destinations: destIdx,
		Metrics:      []string{"distance", "duration"},
		Sources:      []int{0},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal matrix request: %w", err)
	}

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("matrix request failed: %w", err)
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("decode matrix response: %w", err)
	}

	if len(mr.Distances) != 1 || len(mr.Durations) != 1 {
		return nil, fmt.Errorf(
			"expected 1 source row; got distances=%d durations=%d",
			len(mr.Distances), len(mr.Durations),
		)
	}

	rowDistances := mr.Distances[0]
	rowDurations := mr.Durations[0]
	if len(rowDistances) != len(destinations) || len(rowDurations) != len(destinations) {
		return nil, fmt.Errorf(
			"row lengths do not match destinations: distances=%d durations=%d destinations=%d",
			len(rowDistances), len(rowDurations), len(destinations),
		)
	}

	out := make([]ports.DistanceResult, len(destinations))
	for i := range destinations {
		meters, seconds := rowDistances[i], rowDurations[i]
		if meters == nil || seconds == nil {
			continue
		}
		if *meters < 0 || *seconds < 0 {
			return nil, fmt.Errorf("matrix returned negative metrics for destination %d", i)
		}
		out[i] = ports.DistanceResult{
			DistanceMeters:  *meters,
			DurationSeconds: *seconds,
			Reachable:       true,
		}
	}

	return out, nil
}
