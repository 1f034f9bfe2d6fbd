package route

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v3"

	"marker-animator/internal/animator"
)

// LoadFile reads plans from a YAML (.yaml, .yml) or GeoJSON (.geojson,
// .json) file.
func LoadFile(path string) ([]Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".geojson", ".json":
		return ParseGeoJSON(data)
	default:
		return nil, fmt.Errorf("unsupported route file %q (want .yaml, .yml, .geojson or .json)", path)
	}
}

type yamlFile struct {
	Routes []yamlRoute `yaml:"routes" validate:"required,min=1,dive"`
}

// yamlRoute is the on-disk form of a Plan. Waypoints are [lat, lng] pairs
// and times are milliseconds.
type yamlRoute struct {
	ID          string        `yaml:"id" validate:"required"`
	Waypoints   [][]float64   `yaml:"waypoints" validate:"min=2,dive,len=2"`
	DurationMS  int64         `yaml:"duration_ms" validate:"gte=0"`
	DurationsMS []int64       `yaml:"durations_ms" validate:"omitempty,dive,gte=0"`
	Stations    map[int]int64 `yaml:"stations"`
	Loop        *bool         `yaml:"loop"`
	Easing      string        `yaml:"easing"`
}

// ParseYAML decodes a document of the form
//
//	routes:
//	  - id: truck-1
//	    waypoints: [[12.852134, 80.140111], [12.2287612318, 79.5596749969]]
//	    duration_ms: 40000
//	    stations: {1: 5000}
//	    loop: true
//	    easing: in-out-quad
func ParseYAML(data []byte) ([]Plan, error) {
	var doc yamlFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse routes yaml: %w", err)
	}
	if err := validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("routes yaml: %w", err)
	}
	plans := make([]Plan, 0, len(doc.Routes))
	for _, r := range doc.Routes {
		p := Plan{
			ID:     r.ID,
			Total:  millis(r.DurationMS),
			Loop:   r.Loop,
			Easing: r.Easing,
		}
		for _, wp := range r.Waypoints {
			p.Waypoints = append(p.Waypoints, animator.LatLng{Lat: wp[0], Lng: wp[1]})
		}
		for _, d := range r.DurationsMS {
			p.Durations = append(p.Durations, millis(d))
		}
		if len(r.Stations) > 0 {
			p.Stations = make(map[int]time.Duration, len(r.Stations))
			for idx, d := range r.Stations {
				p.Stations[idx] = millis(d)
			}
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// ParseGeoJSON reads every LineString feature of a FeatureCollection as a
// plan. Supported properties: id, duration_ms, durations_ms, stations
// ({"<index>": ms}), loop, easing. Other geometries are skipped.
func ParseGeoJSON(data []byte) ([]Plan, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse routes geojson: %w", err)
	}
	var plans []Plan
	for i, f := range fc.Features {
		line, ok := f.Geometry.(orb.LineString)
		if !ok {
			continue
		}
		p, err := planFromFeature(i, f, line)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("routes geojson: no LineString features")
	}
	return plans, nil
}

func planFromFeature(i int, f *geojson.Feature, line orb.LineString) (Plan, error) {
	props := f.Properties
	p := Plan{
		ID:     props.MustString("id", ""),
		Total:  millis(int64(props.MustFloat64("duration_ms", 0))),
		Easing: props.MustString("easing", ""),
	}
	if p.ID == "" && f.ID != nil {
		p.ID = fmt.Sprint(f.ID)
	}
	if p.ID == "" {
		p.ID = "route-" + strconv.Itoa(i)
	}
	if v, ok := props["loop"].(bool); ok {
		p.Loop = &v
	}
	for _, pt := range line {
		p.Waypoints = append(p.Waypoints, animator.FromPoint(pt))
	}
	if raw, ok := props["durations_ms"].([]interface{}); ok {
		for _, v := range raw {
			ms, ok := v.(float64)
			if !ok {
				return Plan{}, fmt.Errorf("route %q: durations_ms must be numbers", p.ID)
			}
			p.Durations = append(p.Durations, millis(int64(ms)))
		}
	}
	if raw, ok := props["stations"].(map[string]interface{}); ok {
		keys := make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		p.Stations = make(map[int]time.Duration, len(raw))
		for _, k := range keys {
			idx, err := strconv.Atoi(k)
			if err != nil {
				return Plan{}, fmt.Errorf("route %q: station index %q: %w", p.ID, k, err)
			}
			ms, ok := raw[k].(float64)
			if !ok {
				return Plan{}, fmt.Errorf("route %q: station %q dwell must be a number", p.ID, k)
			}
			p.Stations[idx] = millis(int64(ms))
		}
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

func millis(ms int64) time.Duration { return time.Duration(ms) * time.Millisecond }
