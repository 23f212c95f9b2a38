package rules

import (
	"sort"
	"strings"
)

// System identifies one of the submarine's chargeable systems.
type System string

const (
	SystemTorpedo  System = "torpedo"
	SystemMine     System = "mine"
	SystemSonar    System = "sonar"
	SystemDrone    System = "drone"
	SystemSilence  System = "silence"
	SystemScenario System = "scenario"
)

// systemThresholds is the static charge table: a system becomes ready when
// its gauge reaches the threshold and the gauge is pinned there.
var systemThresholds = map[System]int{
	SystemTorpedo:  3,
	SystemMine:     3,
	SystemSonar:    3,
	SystemDrone:    4,
	SystemSilence:  6,
	SystemScenario: 4,
}

// Systems returns every known system in a stable order.
func Systems() []System {
	all := make([]System, 0, len(systemThresholds))
	for s := range systemThresholds {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all
}

// ParseSystem maps a wire identifier to a System. Unknown identifiers are
// rejected structurally rather than trusted as map keys.
func ParseSystem(name string) (System, error) {
	s := System(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := systemThresholds[s]; !ok {
		return "", InputErrorf("unknown system %q", name)
	}
	return s, nil
}

// Threshold returns the gauge value at which the system becomes ready.
func (s System) Threshold() int {
	return systemThresholds[s]
}

func (s System) String() string {
	return string(s)
}
