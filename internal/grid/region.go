package grid

import (
	"fmt"
	"strings"
)

// Region is a reporting bucket. Province is the union of the three sub-regions;
// a cell is only ever classified into a sub-region.
type Region uint8

const (
	Province Region = iota
	Slopes
	WestBoreal
	EastBoreal
)

// NumRegions is the number of reporting buckets, Province included.
const NumRegions = 4

// Regions lists the buckets in reporting order.
var Regions = [NumRegions]Region{Province, Slopes, WestBoreal, EastBoreal}

// SubRegions lists the buckets a cell can be classified into.
var SubRegions = [3]Region{Slopes, WestBoreal, EastBoreal}

func (r Region) String() string {
	switch r {
	case Province:
		return "Province"
	case Slopes:
		return "Slopes"
	case WestBoreal:
		return "West Boreal"
	case EastBoreal:
		return "East Boreal"
	default:
		return fmt.Sprintf("Region(%d)", uint8(r))
	}
}

// Key returns the compact identifier used in JSON output and shapefile attributes.
func (r Region) Key() string {
	switch r {
	case Province:
		return "province"
	case Slopes:
		return "slopes"
	case WestBoreal:
		return "west_boreal"
	case EastBoreal:
		return "east_boreal"
	default:
		return "unknown"
	}
}

// IsSubRegion reports whether r is a valid classification for a single cell.
func (r Region) IsSubRegion() bool {
	return r == Slopes || r == WestBoreal || r == EastBoreal
}

// ParseRegion accepts the labels used by the human probability files
// ("Slopes", "West Boreal", "East Boreal") as well as the JSON keys.
func ParseRegion(s string) (Region, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(norm)
	switch norm {
	case "slopes":
		return Slopes, nil
	case "westboreal":
		return WestBoreal, nil
	case "eastboreal":
		return EastBoreal, nil
	case "province", "alberta":
		return Province, nil
	}
	return 0, fmt.Errorf("unknown region %q", s)
}

// eastBorealMinLongitude splits the boreal forest into west and east halves.
const eastBorealMinLongitude = -114.0

// ClassifyNaturalSubregion maps a natural sub-region code and longitude to a
// reporting region. Codes 7-11, 14 and 18 are the mountain and foothill
// sub-regions grouped as Slopes; everything else is boreal, split at 114°W.
func ClassifyNaturalSubregion(code int, lon float64) Region {
	if (code >= 7 && code <= 11) || code == 14 || code == 18 {
		return Slopes
	}
	if lon >= eastBorealMinLongitude {
		return EastBoreal
	}
	return WestBoreal
}
