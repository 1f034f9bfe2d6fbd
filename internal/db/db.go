// Package db reads GTFS trips, shapes and stop times from Postgres and turns
// them into route plans.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"marker-animator/internal/gtfs"
	"marker-animator/internal/route"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// FetchPlans builds one plan per trip. Trips that are missing, have no
// shape, or whose schedule cannot be turned into a plan are logged and
// skipped.
func FetchPlans(ctx context.Context, db *sql.DB, tripIDs []string) ([]route.Plan, error) {
	var plans []route.Plan
	for _, id := range tripIDs {
		trip, err := FetchTrip(ctx, db, id)
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("trip %s not found, skipping", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		shape, err := FetchShapePoints(ctx, db, trip.ShapeID)
		if err != nil {
			return nil, fmt.Errorf("trip %s: %w", id, err)
		}
		stopTimes, err := FetchStopTimes(ctx, db, id)
		if err != nil {
			return nil, fmt.Errorf("trip %s: %w", id, err)
		}
		p, err := route.FromTrip(trip, shape, stopTimes)
		if err != nil {
			log.Printf("skipping trip %s: %v", id, err)
			continue
		}
		plans = append(plans, p)
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("no playable trips among %d requested", len(tripIDs))
	}
	return plans, nil
}

// FetchTrip returns sql.ErrNoRows when the trip does not exist.
func FetchTrip(ctx context.Context, db *sql.DB, tripID string) (gtfs.Trip, error) {
	const q = `SELECT trip_id, route_id, COALESCE(shape_id, ''), service_id FROM trips WHERE trip_id = $1`
	var t gtfs.Trip
	err := db.QueryRowContext(ctx, q, tripID).Scan(&t.TripID, &t.RouteID, &t.ShapeID, &t.ServiceID)
	if err != nil {
		return gtfs.Trip{}, fmt.Errorf("query trip %s: %w", tripID, err)
	}
	return t, nil
}

// ActiveTripIDs lists trips whose service runs on the given day, ordered by
// first departure. limit <= 0 means no limit.
func ActiveTripIDs(ctx context.Context, db *sql.DB, day time.Time, limit int) ([]string, error) {
	q := fmt.Sprintf(`
SELECT t.trip_id
FROM trips t
JOIN stop_times st ON st.trip_id = t.trip_id
WHERE t.service_id IN (
    SELECT service_id FROM calendar
    WHERE $1::date BETWEEN start_date AND end_date AND %s::text IN ('1', 't', 'true', 'available')
    UNION
    SELECT service_id FROM calendar_dates WHERE date = $1::date AND exception_type::text IN ('1', 'added')
  )
  AND t.service_id NOT IN (
    SELECT service_id FROM calendar_dates WHERE date = $1::date AND exception_type::text IN ('2', 'removed')
  )
GROUP BY t.trip_id
ORDER BY MIN(COALESCE(st.departure_time::text, st.arrival_time::text)), t.trip_id`, weekdayColumn(day.Weekday()))
	args := []any{day.Format("2006-01-02")}
	if limit > 0 {
		q += " LIMIT $2"
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query active trips: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// weekdayColumn names the calendar column for d.
func weekdayColumn(d time.Weekday) string { return strings.ToLower(d.String()) }

// FetchShapePoints reads a shape in sequence order. Both the plain
// shape_pt_lat/shape_pt_lon layout and a PostGIS shape_pt_loc column are
// supported.
func FetchShapePoints(ctx context.Context, db *sql.DB, shapeID string) ([]gtfs.ShapePoint, error) {
	if shapeID == "" {
		return nil, errors.New("trip has no shape")
	}
	cols, err := hasColumns(ctx, db, "public", "shapes", "shape_pt_lat", "shape_pt_lon", "shape_pt_loc")
	if err != nil {
		return nil, fmt.Errorf("introspect shapes columns: %w", err)
	}
	var latlon string
	switch {
	case cols["shape_pt_lat"] && cols["shape_pt_lon"]:
		latlon = "shape_pt_lat, shape_pt_lon"
	case cols["shape_pt_loc"]:
		latlon = "ST_Y(shape_pt_loc::geometry), ST_X(shape_pt_loc::geometry)"
	default:
		return nil, errors.New("shapes table has neither shape_pt_lat/shape_pt_lon nor shape_pt_loc")
	}
	q := `SELECT ` + latlon + `, shape_pt_sequence, COALESCE(shape_dist_traveled, 0)
FROM shapes WHERE shape_id = $1 ORDER BY shape_pt_sequence`

	rows, err := db.QueryContext(ctx, q, shapeID)
	if err != nil {
		return nil, fmt.Errorf("query shape %s: %w", shapeID, err)
	}
	defer rows.Close()
	var pts []gtfs.ShapePoint
	for rows.Next() {
		var p gtfs.ShapePoint
		if err := rows.Scan(&p.Lat, &p.Lon, &p.Sequence, &p.DistTraveled); err != nil {
			return nil, err
		}
		pts = append(pts, p)
	}
	return pts, rows.Err()
}

// FetchStopTimes reads a trip's stop times joined with stop coordinates.
func FetchStopTimes(ctx context.Context, db *sql.DB, tripID string) ([]gtfs.StopTime, error) {
	cols, err := hasColumns(ctx, db, "public", "stops", "stop_lat", "stop_lon", "stop_loc")
	if err != nil {
		return nil, fmt.Errorf("introspect stops columns: %w", err)
	}
	var latlon string
	switch {
	case cols["stop_lat"] && cols["stop_lon"]:
		latlon = "COALESCE(s.stop_lat, 0), COALESCE(s.stop_lon, 0)"
	case cols["stop_loc"]:
		latlon = "COALESCE(ST_Y(s.stop_loc::geometry), 0), COALESCE(ST_X(s.stop_loc::geometry), 0)"
	default:
		return nil, errors.New("stops table has neither stop_lat/stop_lon nor stop_loc")
	}
	q := `SELECT st.stop_sequence,
       COALESCE(st.arrival_time::text, ''),
       COALESCE(st.departure_time::text, ''),
       COALESCE(st.shape_dist_traveled, 0),
       st.stop_id, ` + latlon + `
FROM stop_times st
JOIN stops s ON s.stop_id = st.stop_id
WHERE st.trip_id = $1
ORDER BY st.stop_sequence`

	rows, err := db.QueryContext(ctx, q, tripID)
	if err != nil {
		return nil, fmt.Errorf("query stop_times for %s: %w", tripID, err)
	}
	defer rows.Close()
	var sts []gtfs.StopTime
	for rows.Next() {
		var st gtfs.StopTime
		var arr, dep string
		if err := rows.Scan(&st.StopSequence, &arr, &dep, &st.ShapeDistTraveled, &st.StopID, &st.StopLat, &st.StopLon); err != nil {
			return nil, err
		}
		st.ArrivalSec = parseDaySeconds(arr)
		st.DepartureSec = parseDaySeconds(dep)
		sts = append(sts, st)
	}
	return sts, rows.Err()
}

// parseDaySeconds parses GTFS HH:MM[:SS] times, which may run past 24h.
// Malformed values yield 0.
func parseDaySeconds(s string) int {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	total := 0
	for i, mult := range []int{3600, 60, 1}[:len(parts)] {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 {
			return 0
		}
		total += n * mult
	}
	return total
}

// hasColumns reports which of cols exist on schema.table.
func hasColumns(ctx context.Context, db *sql.DB, schema, table string, cols ...string) (map[string]bool, error) {
	res := make(map[string]bool, len(cols))
	if len(cols) == 0 {
		return res, nil
	}
	const q = `SELECT column_name FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2 AND column_name = ANY($3)`
	rows, err := db.QueryContext(ctx, q, schema, table, cols)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		res[name] = true
	}
	return res, rows.Err()
}
