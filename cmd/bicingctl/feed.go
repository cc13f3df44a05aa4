package main

import (
	"math/rand/v2"
	"time"

	"bicing-dashboard/internal/modules/bicing/types"
)

const stationCapacity = 27

// feed produces synthetic snapshots where bike counts drift by at most one per step.
type feed struct {
	rng   *rand.Rand
	ebike []int64
	mech  []int64
}

func newFeed(stations int, seed uint64) *feed {
	f := &feed{
		rng:   rand.New(rand.NewPCG(seed, 0)),
		ebike: make([]int64, stations),
		mech:  make([]int64, stations),
	}
	for i := range stations {
		f.ebike[i] = int64(f.rng.IntN(10))
		f.mech[i] = int64(f.rng.IntN(10))
	}
	return f
}

// next returns one snapshot per station stamped at ts. Station ids start at 1.
func (f *feed) next(ts time.Time) []types.StatusMessage {
	out := make([]types.StatusMessage, 0, len(f.ebike))
	for i := range f.ebike {
		f.ebike[i] = f.step(f.ebike[i])
		f.mech[i] = f.step(f.mech[i])
		ebike, mech := f.ebike[i], f.mech[i]
		out = append(out, types.StatusMessage{
			StationID:         int64(i + 1),
			NumBikesAvailable: ebike + mech,
			Mechanical:        mech,
			Ebike:             ebike,
			NumDocksAvailable: stationCapacity - ebike - mech,
			LastReported:      ts.Unix() - 30,
			IsChargingStation: true,
			Status:            types.StatusInService,
			IsInstalled:       1,
			IsRenting:         1,
			IsReturning:       1,
			Traffic:           "low",
			LastUpdated:       ts.Unix(),
			TTL:               30,
			V1:                "synthetic",
		})
	}
	return out
}

func (f *feed) step(v int64) int64 {
	return min(max(v+int64(f.rng.IntN(3)-1), 0), stationCapacity/2)
}
