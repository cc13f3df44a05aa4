package aggregate

import (
	"errors"
	"fmt"
	"time"

	"bicing-dashboard/internal/modules/bicing/types"
)

type columnIndex map[string]int

func (c columnIndex) asInt(row []any, col string, dst *int64) error {
	i, ok := c[col]
	if !ok {
		return nil
	}
	v, err := types.AsInt64(row[i])
	if err != nil {
		return fmt.Errorf("%s: %w", col, err)
	}
	*dst = v
	return nil
}

func (c columnIndex) asBool(row []any, col string, dst *bool) error {
	i, ok := c[col]
	if !ok {
		return nil
	}
	v, err := types.AsBool(row[i])
	if err != nil {
		return fmt.Errorf("%s: %w", col, err)
	}
	*dst = v
	return nil
}

func (c columnIndex) asString(row []any, col string, dst *string) error {
	i, ok := c[col]
	if !ok {
		return nil
	}
	v, err := types.AsString(row[i])
	if err != nil {
		return fmt.Errorf("%s: %w", col, err)
	}
	*dst = v
	return nil
}

func decodeRecords(tbl *types.Table, loc *time.Location) ([]types.StationRecord, error) {
	idx := make(columnIndex, len(tbl.Columns))
	for _, col := range []string{
		types.ColStationID, types.ColNumBikesAvailable, types.ColMechanical, types.ColEbike,
		types.ColNumDocksAvailable, types.ColLastReported, types.ColIsChargingStation,
		types.ColStatus, types.ColIsInstalled, types.ColIsRenting, types.ColIsReturning,
		types.ColTraffic, types.ColLastUpdated, types.ColTTL, types.ColV1,
	} {
		if i := tbl.Index(col); i >= 0 {
			idx[col] = i
		}
	}

	out := make([]types.StationRecord, 0, tbl.Len())
	for n, row := range tbl.Rows {
		var (
			rec     types.StationRecord
			updated int64
		)
		err := errors.Join(
			idx.asInt(row, types.ColStationID, &rec.StationID),
			idx.asInt(row, types.ColNumBikesAvailable, &rec.NumBikesAvailable),
			idx.asInt(row, types.ColMechanical, &rec.Mechanical),
			idx.asInt(row, types.ColEbike, &rec.Ebike),
			idx.asInt(row, types.ColNumDocksAvailable, &rec.NumDocksAvailable),
			idx.asInt(row, types.ColLastReported, &rec.LastReported),
			idx.asBool(row, types.ColIsChargingStation, &rec.IsChargingStation),
			idx.asString(row, types.ColStatus, &rec.Status),
			idx.asBool(row, types.ColIsInstalled, &rec.IsInstalled),
			idx.asBool(row, types.ColIsRenting, &rec.IsRenting),
			idx.asBool(row, types.ColIsReturning, &rec.IsReturning),
			idx.asString(row, types.ColTraffic, &rec.Traffic),
			idx.asInt(row, types.ColLastUpdated, &updated),
			idx.asInt(row, types.ColTTL, &rec.TTL),
			idx.asString(row, types.ColV1, &rec.V1),
		)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n, err)
		}
		rec.LastUpdated = time.Unix(updated, 0).In(loc)
		out = append(out, rec)
	}
	return out, nil
}
