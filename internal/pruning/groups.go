// Package pruning resolves duplicate service-calendar definitions. Services
// are partitioned into equivalence groups by weekly pattern and route set,
// each group is reduced to a single winner where that can be done safely,
// and the keep/drop decision cascades through trips and stop times.
package pruning

import (
	"sort"
	"strings"

	"github.com/KganDev/irish-rail-schedule/internal/models"
)

// GroupKey identifies one equivalence group: services sharing a weekly
// pattern and operating the same set of routes are interchangeable
// candidates. Routes is the comma-joined sorted route-id set so the key
// stays comparable.
type GroupKey struct {
	Mask   models.WeekdayMask
	Routes string
}

// RouteIDs returns the key's route-id set as a sorted slice.
func (k GroupKey) RouteIDs() []string {
	return strings.Split(k.Routes, ",")
}

// routeSets derives, for every service appearing in trips, the sorted set of
// route ids it operates. Trips without a route count as UnknownRoute.
func routeSets(trips []models.Trip) map[string][]string {
	byService := make(map[string]map[string]struct{})
	for _, trip := range trips {
		routeID := trip.RouteID
		if routeID == "" {
			routeID = models.UnknownRoute
		}
		set, ok := byService[trip.ServiceID]
		if !ok {
			set = make(map[string]struct{})
			byService[trip.ServiceID] = set
		}
		set[routeID] = struct{}{}
	}

	out := make(map[string][]string, len(byService))
	for serviceID, set := range byService {
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out[serviceID] = ids
	}
	return out
}

// Group partitions every service with a calendar record into exactly one
// equivalence group. A service owning no trips is grouped under the
// UnknownRoute sentinel. Within a group, service ids keep calendar input
// order.
func Group(calendars []models.Calendar, trips []models.Trip) map[GroupKey][]string {
	routes := routeSets(trips)

	groups := make(map[GroupKey][]string)
	for _, cal := range calendars {
		serviceRoutes, ok := routes[cal.ServiceID]
		if !ok {
			serviceRoutes = []string{models.UnknownRoute}
		}
		key := GroupKey{Mask: cal.Mask(), Routes: strings.Join(serviceRoutes, ",")}
		groups[key] = append(groups[key], cal.ServiceID)
	}
	return groups
}

// SortedKeys returns the group keys in a stable order so downstream
// decisions and diagnostics are reproducible across runs.
func SortedKeys(groups map[GroupKey][]string) []GroupKey {
	keys := make([]GroupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Mask != keys[j].Mask {
			return keys[i].Mask.String() < keys[j].Mask.String()
		}
		return keys[i].Routes < keys[j].Routes
	})
	return keys
}
