package hostel

import (
	"context"
	"math"

	"capsule-hostel-backend/internal/store"
)

// OccupancySnapshot is the dashboard view of the hostel at one instant.
// occupied + available always equals total.
type OccupancySnapshot struct {
	Total     int64 `json:"total"`
	Occupied  int64 `json:"occupied"`
	Available int64 `json:"available"`
	// Rate is occupied/total as a rounded percentage.
	Rate int `json:"occupancyRate"`
}

// OccupancyCalculator derives aggregate occupancy by joining the capsule
// inventory with the guest ledger. It holds no state and recomputes from
// live store counts on every call.
type OccupancyCalculator struct {
	store store.Store
}

// NewOccupancyCalculator creates a calculator over the given store.
func NewOccupancyCalculator(s store.Store) *OccupancyCalculator {
	return &OccupancyCalculator{store: s}
}

// Snapshot recomputes occupancy from the current store state.
func (o *OccupancyCalculator) Snapshot(ctx context.Context) (*OccupancySnapshot, error) {
	total, err := o.store.CountCapsules(ctx)
	if err != nil {
		return nil, err
	}
	occupied, err := o.store.CountCheckedInGuests(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &OccupancySnapshot{
		Total:     total,
		Occupied:  occupied,
		Available: total - occupied,
	}
	if total > 0 {
		snapshot.Rate = int(math.Round(float64(occupied) / float64(total) * 100))
	}
	return snapshot, nil
}
