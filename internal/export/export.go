// Package export aggregates trip tables into hourly and daily summary
// rows and upserts them into Postgres.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tripbench/tripbench/internal/errors"
	"github.com/tripbench/tripbench/internal/recipe"
	"github.com/tripbench/tripbench/pkg/types"
)

// HourlyStat is one exported row: per-hour trip volume and averages.
type HourlyStat struct {
	Hour        int
	TripCount   int64
	AvgFare     float64
	AvgDistance float64
	AvgTip      float64
	AvgTotal    float64
}

// DailyStat is one exported row per pickup date.
type DailyStat struct {
	Date        string
	TripCount   int64
	AvgFare     float64
	AvgDistance float64
	AvgTip      float64
	AvgTotal    float64
}

// measures accumulates the per-group partial sums for every exported
// average.
type measures struct {
	fare     recipe.Partial
	distance recipe.Partial
	tip      recipe.Partial
	total    recipe.Partial
}

func (m *measures) add(t types.Trip) {
	m.fare.Accumulate(t.FareAmount)
	m.distance.Accumulate(t.TripDistance)
	m.tip.Accumulate(t.TipAmount)
	m.total.Accumulate(t.TotalAmount)
}

// AggregateHourly computes per-hour statistics, sorted by hour.
func AggregateHourly(table *types.Table) []HourlyStat {
	groups := make(map[int]*measures, 24)
	for _, trip := range table.Trips {
		hour := trip.PickupHour()
		g, ok := groups[hour]
		if !ok {
			g = &measures{}
			groups[hour] = g
		}
		g.add(trip)
	}

	stats := make([]HourlyStat, 0, len(groups))
	for hour, g := range groups {
		stats = append(stats, HourlyStat{
			Hour:        hour,
			TripCount:   g.fare.Count,
			AvgFare:     g.fare.Mean(),
			AvgDistance: g.distance.Mean(),
			AvgTip:      g.tip.Mean(),
			AvgTotal:    g.total.Mean(),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Hour < stats[j].Hour })
	return stats
}

// AggregateDaily computes per-date statistics, sorted by date.
func AggregateDaily(table *types.Table) []DailyStat {
	groups := make(map[string]*measures)
	for _, trip := range table.Trips {
		date := trip.PickupDate()
		g, ok := groups[date]
		if !ok {
			g = &measures{}
			groups[date] = g
		}
		g.add(trip)
	}

	stats := make([]DailyStat, 0, len(groups))
	for date, g := range groups {
		stats = append(stats, DailyStat{
			Date:        date,
			TripCount:   g.fare.Count,
			AvgFare:     g.fare.Mean(),
			AvgDistance: g.distance.Mean(),
			AvgTip:      g.tip.Mean(),
			AvgTotal:    g.total.Mean(),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Date < stats[j].Date })
	return stats
}

// Exporter writes summary rows into Postgres. Exports are idempotent:
// rerunning over the same data updates rather than duplicates.
type Exporter struct {
	db          *sql.DB
	hourlyTable string
	dailyTable  string
}

// Config holds export destination settings.
type Config struct {
	// DSN is the Postgres connection string
	DSN string

	// HourlyTable and DailyTable name the destination tables
	HourlyTable string
	DailyTable  string
}

// NewExporter opens a Postgres connection and verifies it.
func NewExporter(ctx context.Context, config Config) (*Exporter, error) {
	if config.HourlyTable == "" {
		config.HourlyTable = "trip_stats_hourly"
	}
	if config.DailyTable == "" {
		config.DailyTable = "trip_stats_daily"
	}

	db, err := sql.Open("pgx", config.DSN)
	if err != nil {
		return nil, errors.NewExportError("failed to open postgres connection", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.NewExportError("failed to reach postgres", err)
	}

	return &Exporter{db: db, hourlyTable: config.HourlyTable, dailyTable: config.DailyTable}, nil
}

// Close releases the connection.
func (e *Exporter) Close() error {
	return e.db.Close()
}

// UpsertHourly creates the hourly table if needed and upserts the rows.
func (e *Exporter) UpsertHourly(ctx context.Context, stats []HourlyStat) error {
	createSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			hour INTEGER PRIMARY KEY,
			trip_count BIGINT NOT NULL,
			avg_fare DOUBLE PRECISION NOT NULL,
			avg_distance DOUBLE PRECISION NOT NULL,
			avg_tip DOUBLE PRECISION NOT NULL,
			avg_total DOUBLE PRECISION NOT NULL
		)`, e.hourlyTable)
	if _, err := e.db.ExecContext(ctx, createSQL); err != nil {
		return errors.NewExportError(fmt.Sprintf("failed to create table %s", e.hourlyTable), err)
	}

	upsertSQL := fmt.Sprintf(`
		INSERT INTO %s (hour, trip_count, avg_fare, avg_distance, avg_tip, avg_total)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (hour) DO UPDATE SET
			trip_count = EXCLUDED.trip_count,
			avg_fare = EXCLUDED.avg_fare,
			avg_distance = EXCLUDED.avg_distance,
			avg_tip = EXCLUDED.avg_tip,
			avg_total = EXCLUDED.avg_total`, e.hourlyTable)

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewExportError("failed to begin export transaction", err)
	}
	defer tx.Rollback()

	for _, s := range stats {
		if _, err := tx.ExecContext(ctx, upsertSQL,
			s.Hour, s.TripCount, s.AvgFare, s.AvgDistance, s.AvgTip, s.AvgTotal); err != nil {
			return errors.NewExportError(fmt.Sprintf("failed to upsert hour %d", s.Hour), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.NewExportError("failed to commit hourly export", err)
	}
	return nil
}

// UpsertDaily creates the daily table if needed and upserts the rows.
func (e *Exporter) UpsertDaily(ctx context.Context, stats []DailyStat) error {
	createSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			pickup_date DATE PRIMARY KEY,
			trip_count BIGINT NOT NULL,
			avg_fare DOUBLE PRECISION NOT NULL,
			avg_distance DOUBLE PRECISION NOT NULL,
			avg_tip DOUBLE PRECISION NOT NULL,
			avg_total DOUBLE PRECISION NOT NULL
		)`, e.dailyTable)
	if _, err := e.db.ExecContext(ctx, createSQL); err != nil {
		return errors.NewExportError(fmt.Sprintf("failed to create table %s", e.dailyTable), err)
	}

	upsertSQL := fmt.Sprintf(`
		INSERT INTO %s (pickup_date, trip_count, avg_fare, avg_distance, avg_tip, avg_total)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (pickup_date) DO UPDATE SET
			trip_count = EXCLUDED.trip_count,
			avg_fare = EXCLUDED.avg_fare,
			avg_distance = EXCLUDED.avg_distance,
			avg_tip = EXCLUDED.avg_tip,
			avg_total = EXCLUDED.avg_total`, e.dailyTable)

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewExportError("failed to begin export transaction", err)
	}
	defer tx.Rollback()

	for _, s := range stats {
		if _, err := tx.ExecContext(ctx, upsertSQL,
			s.Date, s.TripCount, s.AvgFare, s.AvgDistance, s.AvgTip, s.AvgTotal); err != nil {
			return errors.NewExportError(fmt.Sprintf("failed to upsert date %s", s.Date), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.NewExportError("failed to commit daily export", err)
	}
	return nil
}
