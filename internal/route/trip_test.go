package route

import (
	"testing"

	"marker-animator/internal/gtfs"
)

func tripShape() []gtfs.ShapePoint {
	return []gtfs.ShapePoint{
		{Lat: 40.0, Lon: -3.0, Sequence: 1, DistTraveled: 0},
		{Lat: 40.0, Lon: -2.99, Sequence: 2, DistTraveled: 850},
		{Lat: 40.0, Lon: -2.98, Sequence: 3, DistTraveled: 1700},
		{Lat: 40.0, Lon: -2.97, Sequence: 4, DistTraveled: 2550},
	}
}

func TestFromTrip(t *testing.T) {
	trip := gtfs.Trip{TripID: "T1", ShapeID: "S1"}
	stops := []gtfs.StopTime{
		{StopSequence: 1, ArrivalSec: 8 * 3600, DepartureSec: 8 * 3600, StopLat: 40.0, StopLon: -3.0},
		{StopSequence: 2, ArrivalSec: 8*3600 + 60, DepartureSec: 8*3600 + 90, StopLat: 40.0, StopLon: -2.9801},
		{StopSequence: 3, ArrivalSec: 8*3600 + 200, DepartureSec: 8*3600 + 200, StopLat: 40.0, StopLon: -2.97},
	}
	p, err := FromTrip(trip, tripShape(), stops)
	if err != nil {
		t.Fatalf("FromTrip: %v", err)
	}
	if p.ID != "T1" || len(p.Waypoints) != 4 {
		t.Fatalf("plan = %+v", p)
	}
	if p.Waypoints[1].Lng != -2.99 {
		t.Fatalf("waypoint 1 = %s", p.Waypoints[1])
	}
	if got := p.Stations[2]; got != ms(30000) {
		t.Fatalf("stations = %v, want 30s at waypoint 2", p.Stations)
	}
	if p.Total != ms(170000) {
		t.Fatalf("total = %s, want 170s", p.Total)
	}
}

func TestFromTripMatchesByShapeDistance(t *testing.T) {
	trip := gtfs.Trip{TripID: "T2", ShapeID: "S1"}
	stops := []gtfs.StopTime{
		{ArrivalSec: 100, DepartureSec: 100},
		// coordinates point at waypoint 2, distance along shape at waypoint 1
		{ArrivalSec: 150, DepartureSec: 160, ShapeDistTraveled: 900, StopLat: 40.0, StopLon: -2.98},
		{ArrivalSec: 300, DepartureSec: 300, ShapeDistTraveled: 2550},
	}
	p, err := FromTrip(trip, tripShape(), stops)
	if err != nil {
		t.Fatalf("FromTrip: %v", err)
	}
	if p.Stations[1] != ms(10000) {
		t.Fatalf("stations = %v, want 10s at waypoint 1", p.Stations)
	}
}

func TestFromTripSumsCollidingStops(t *testing.T) {
	trip := gtfs.Trip{TripID: "T3"}
	stops := []gtfs.StopTime{
		{ArrivalSec: 0, DepartureSec: 10},
		{ArrivalSec: 50, DepartureSec: 55, StopLat: 40.0, StopLon: -2.99},
		{ArrivalSec: 60, DepartureSec: 70, StopLat: 40.0, StopLon: -2.9901},
		{ArrivalSec: 200, DepartureSec: 200},
	}
	p, err := FromTrip(trip, tripShape(), stops)
	if err != nil {
		t.Fatalf("FromTrip: %v", err)
	}
	if p.Stations[1] != ms(15000) || len(p.Stations) != 1 {
		t.Fatalf("stations = %v, want 15s at waypoint 1", p.Stations)
	}
	if p.Total != ms(175000) {
		t.Fatalf("total = %s, want 175s", p.Total)
	}
}

func TestFromTripErrors(t *testing.T) {
	trip := gtfs.Trip{TripID: "T"}
	ok := []gtfs.StopTime{{DepartureSec: 10}, {ArrivalSec: 20}}
	if _, err := FromTrip(trip, tripShape()[:1], ok); err == nil {
		t.Fatalf("expected error for short shape")
	}
	if _, err := FromTrip(trip, tripShape(), ok[:1]); err == nil {
		t.Fatalf("expected error for single stop")
	}
	backwards := []gtfs.StopTime{{DepartureSec: 50}, {ArrivalSec: 20}}
	if _, err := FromTrip(trip, tripShape(), backwards); err == nil {
		t.Fatalf("expected error for backwards schedule")
	}
	allDwell := []gtfs.StopTime{
		{DepartureSec: 10},
		{ArrivalSec: 10, DepartureSec: 30, StopLat: 40, StopLon: -2.99},
		{ArrivalSec: 30},
	}
	if _, err := FromTrip(trip, tripShape(), allDwell); err == nil {
		t.Fatalf("expected error when dwell fills the schedule")
	}
}
