package animator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fogleman/ease"
)

// EasingFunc maps a segment fraction in [0,1] to an eased fraction.
type EasingFunc func(t float64) float64

var easings = map[string]EasingFunc{
	"linear":        ease.Linear,
	"in-quad":       ease.InQuad,
	"out-quad":      ease.OutQuad,
	"in-out-quad":   ease.InOutQuad,
	"in-cubic":      ease.InCubic,
	"out-cubic":     ease.OutCubic,
	"in-out-cubic":  ease.InOutCubic,
	"in-quint":      ease.InQuint,
	"out-quint":     ease.OutQuint,
	"in-out-quint":  ease.InOutQuint,
	"in-sine":       ease.InSine,
	"out-sine":      ease.OutSine,
	"in-out-sine":   ease.InOutSine,
	"in-circ":       ease.InCirc,
	"out-circ":      ease.OutCirc,
	"in-out-circ":   ease.InOutCirc,
	"out-bounce":    ease.OutBounce,
	"in-out-bounce": ease.InOutBounce,
}

// Easing looks up an easing function by name (e.g. "in-out-quad"). The
// empty name is linear.
func Easing(name string) (EasingFunc, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return ease.Linear, nil
	}
	fn, ok := easings[key]
	if !ok {
		return nil, fmt.Errorf("unknown easing %q (known: %s)", name, strings.Join(EasingNames(), ", "))
	}
	return fn, nil
}

// EasingNames lists the registered easing names in order.
func EasingNames() []string {
	names := make([]string, 0, len(easings))
	for k := range easings {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
