package chart

import "slices"

// usaStates holds the identifiers the USA-states location mode recognises.
var usaStates = map[string]struct{}{
	"AL": {}, "AK": {}, "AZ": {}, "AR": {}, "CA": {}, "CO": {}, "CT": {}, "DE": {},
	"DC": {}, "FL": {}, "GA": {}, "HI": {}, "ID": {}, "IL": {}, "IN": {}, "IA": {},
	"KS": {}, "KY": {}, "LA": {}, "ME": {}, "MD": {}, "MA": {}, "MI": {}, "MN": {},
	"MS": {}, "MO": {}, "MT": {}, "NE": {}, "NV": {}, "NH": {}, "NJ": {}, "NM": {},
	"NY": {}, "NC": {}, "ND": {}, "OH": {}, "OK": {}, "OR": {}, "PA": {}, "RI": {},
	"SC": {}, "SD": {}, "TN": {}, "TX": {}, "UT": {}, "VT": {}, "VA": {}, "WA": {},
	"WV": {}, "WI": {}, "WY": {},
}

// UnknownRegions returns the distinct locations that USA-states matching would
// not place on the map, sorted.
func UnknownRegions(locations []string) []string {
	seen := make(map[string]bool)
	var unknown []string
	for _, loc := range locations {
		if _, ok := usaStates[loc]; ok || seen[loc] {
			continue
		}
		seen[loc] = true
		unknown = append(unknown, loc)
	}
	slices.Sort(unknown)
	return unknown
}

// Locations collects every location referenced by the figure's traces and frames.
func (f *Figure) Locations() []string {
	var out []string
	for _, t := range f.Data {
		out = append(out, t.Locations...)
	}
	for _, fr := range f.Frames {
		for _, t := range fr.Data {
			out = append(out, t.Locations...)
		}
	}
	return out
}
