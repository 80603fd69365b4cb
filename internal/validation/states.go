package validation

import "strings"

var stateCodes = map[string]struct{}{
	"AL": {}, "AK": {}, "AZ": {}, "AR": {}, "CA": {}, "CO": {}, "CT": {}, "DE": {},
	"FL": {}, "GA": {}, "HI": {}, "ID": {}, "IL": {}, "IN": {}, "IA": {}, "KS": {},
	"KY": {}, "LA": {}, "ME": {}, "MD": {}, "MA": {}, "MI": {}, "MN": {}, "MS": {},
	"MO": {}, "MT": {}, "NE": {}, "NV": {}, "NH": {}, "NJ": {}, "NM": {}, "NY": {},
	"NC": {}, "ND": {}, "OH": {}, "OK": {}, "OR": {}, "PA": {}, "RI": {}, "SC": {},
	"SD": {}, "TN": {}, "TX": {}, "UT": {}, "VT": {}, "VA": {}, "WA": {}, "WV": {},
	"WI": {}, "WY": {},
	// District and territories.
	"DC": {}, "AS": {}, "GU": {}, "MP": {}, "PR": {}, "VI": {},
}

// IsState reports whether code is a US state or territory code. Callers
// normalize case first; lowercase codes are rejected.
func IsState(code string) bool {
	if code != strings.ToUpper(code) {
		return false
	}
	_, ok := stateCodes[code]
	return ok
}
