package export

import (
	"math"
	"testing"
	"time"

	"github.com/tripbench/tripbench/pkg/types"
)

func exportTable() *types.Table {
	mk := func(day, hour int, fare, distance, tip float64) types.Trip {
		return types.Trip{
			PickupTime:   time.Date(2024, 3, day, hour, 30, 0, 0, time.UTC),
			DropoffTime:  time.Date(2024, 3, day, hour, 55, 0, 0, time.UTC),
			FareAmount:   fare,
			TripDistance: distance,
			TipAmount:    tip,
			TotalAmount:  fare + tip,
		}
	}
	return &types.Table{Source: "test", Trips: []types.Trip{
		mk(1, 8, 10, 2, 1),
		mk(1, 8, 20, 4, 3),
		mk(1, 9, 30, 6, 5),
		mk(2, 8, 40, 8, 7),
	}}
}

func TestAggregateHourly(t *testing.T) {
	stats := AggregateHourly(exportTable())
	if len(stats) != 2 {
		t.Fatalf("hours = %d, want 2", len(stats))
	}

	h8 := stats[0]
	if h8.Hour != 8 || h8.TripCount != 3 {
		t.Fatalf("first group = %+v, want hour 8 with 3 trips", h8)
	}
	if math.Abs(h8.AvgFare-70.0/3) > 1e-9 {
		t.Errorf("hour 8 avg fare = %f, want %f", h8.AvgFare, 70.0/3)
	}
	if math.Abs(h8.AvgDistance-14.0/3) > 1e-9 {
		t.Errorf("hour 8 avg distance = %f, want %f", h8.AvgDistance, 14.0/3)
	}

	h9 := stats[1]
	if h9.Hour != 9 || h9.TripCount != 1 || h9.AvgTip != 5 {
		t.Errorf("second group = %+v, want hour 9 single trip tip 5", h9)
	}
}

func TestAggregateDaily(t *testing.T) {
	stats := AggregateDaily(exportTable())
	if len(stats) != 2 {
		t.Fatalf("dates = %d, want 2", len(stats))
	}

	d1 := stats[0]
	if d1.Date != "2024-03-01" || d1.TripCount != 3 {
		t.Fatalf("first day = %+v, want 2024-03-01 with 3 trips", d1)
	}
	if math.Abs(d1.AvgFare-20.0) > 1e-9 {
		t.Errorf("day 1 avg fare = %f, want 20", d1.AvgFare)
	}

	d2 := stats[1]
	if d2.Date != "2024-03-02" || d2.TripCount != 1 || d2.AvgFare != 40 {
		t.Errorf("second day = %+v, want 2024-03-02 single trip fare 40", d2)
	}
}

func TestAggregateEmptyTable(t *testing.T) {
	if stats := AggregateHourly(&types.Table{}); len(stats) != 0 {
		t.Errorf("hourly stats from empty table: %+v", stats)
	}
	if stats := AggregateDaily(&types.Table{}); len(stats) != 0 {
		t.Errorf("daily stats from empty table: %+v", stats)
	}
}
