package gtfs

type Trip struct {
	TripID    string
	RouteID   string
	ShapeID   string
	ServiceID string
}

type StopTime struct {
	StopSequence      int
	ArrivalSec        int     // seconds since midnight (can exceed 24h)
	DepartureSec      int     // seconds since midnight (can exceed 24h)
	ShapeDistTraveled float64 // meters, if available; 0 if missing
	StopID            string
	StopLat           float64
	StopLon           float64
}

// Dwell is the scheduled wait at the stop in seconds.
func (st StopTime) Dwell() int {
	if st.ArrivalSec <= 0 || st.DepartureSec <= st.ArrivalSec {
		return 0
	}
	return st.DepartureSec - st.ArrivalSec
}

type ShapePoint struct {
	Lat          float64
	Lon          float64
	Sequence     int
	DistTraveled float64 // meters, if available; 0 if missing
}
