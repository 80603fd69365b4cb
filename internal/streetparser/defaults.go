package streetparser

// defaultSpellings follows the USPS street suffix abbreviation table for the
// suffixes the county rolls actually use.
var defaultSpellings = map[string]string{
	"Alley": "Aly", "Allee": "Aly", "Ally": "Aly", "Aly": "Aly",
	"Avenue": "Ave", "Av": "Ave", "Ave": "Ave", "Aven": "Ave", "Avenu": "Ave", "Avn": "Ave", "Avnue": "Ave",
	"Bend": "Bnd", "Bnd": "Bnd",
	"Boulevard": "Blvd", "Blvd": "Blvd", "Boul": "Blvd", "Boulv": "Blvd",
	"Circle": "Cir", "Cir": "Cir", "Circ": "Cir", "Circl": "Cir", "Crcl": "Cir", "Crcle": "Cir",
	"Court": "Ct", "Ct": "Ct",
	"Cove": "Cv", "Cv": "Cv",
	"Crossing": "Xing", "Crssng": "Xing", "Xing": "Xing",
	"Drive": "Dr", "Dr": "Dr", "Driv": "Dr", "Drv": "Dr",
	"Expressway": "Expy", "Exp": "Expy", "Expr": "Expy", "Express": "Expy", "Expw": "Expy", "Expy": "Expy",
	"Freeway": "Fwy", "Frway": "Fwy", "Frwy": "Fwy", "Fwy": "Fwy",
	"Highway": "Hwy", "Highwy": "Hwy", "Hiway": "Hwy", "Hiwy": "Hwy", "Hway": "Hwy", "Hwy": "Hwy",
	"Lane": "Ln", "Ln": "Ln",
	"Loop": "Loop", "Loops": "Loop",
	"Parkway": "Pkwy", "Parkwy": "Pkwy", "Pkway": "Pkwy", "Pkwy": "Pkwy", "Pky": "Pkwy",
	"Path": "Path",
	"Pike": "Pike",
	"Place": "Pl", "Pl": "Pl",
	"Plaza": "Plz", "Plz": "Plz", "Plza": "Plz",
	"Point": "Pt", "Pt": "Pt",
	"Ridge": "Rdg", "Rdg": "Rdg",
	"Road": "Rd", "Rd": "Rd",
	"Row": "Row",
	"Run": "Run",
	"Square": "Sq", "Sq": "Sq", "Sqr": "Sq", "Sqre": "Sq", "Squ": "Sq",
	"Street": "St", "St": "St", "Str": "St", "Strt": "St",
	"Terrace": "Ter", "Ter": "Ter", "Terr": "Ter",
	"Trail": "Trl", "Trails": "Trl", "Trl": "Trl", "Trls": "Trl",
	"Walk": "Walk",
	"Way": "Way", "Wy": "Way",
}

var defaultSuffixes = FromSpellingMap(defaultSpellings)

// DefaultSuffixes returns the built-in dictionary. All callers share one
// compiled matcher.
func DefaultSuffixes() *SuffixMap {
	return CloneFrom(defaultSuffixes)
}
