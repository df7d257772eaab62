// Package postcode normalises Northern Ireland postcodes into the outward
// codes suppliers publish as their delivery coverage.
package postcode

import (
	"errors"
	"regexp"
	"strings"
)

// Area is the only postcode area served.
const Area = "BT"

var (
	// ErrInvalidPostcode is returned when the input is not a UK postcode.
	ErrInvalidPostcode = errors.New("invalid postcode")
	// ErrOutsideCoverage is returned for valid postcodes outside Northern Ireland.
	ErrOutsideCoverage = errors.New("postcode outside coverage area")
)

var (
	fullPattern    = regexp.MustCompile(`^([A-Z]{1,2}[0-9][A-Z0-9]?) ?([0-9][A-Z]{2})$`)
	outwardPattern = regexp.MustCompile(`^[A-Z]{1,2}[0-9][A-Z0-9]?$`)
)

// Postcode is a normalised postcode. Inward is empty when only the outward code was given.
type Postcode struct {
	Outward string
	Inward  string
}

// String renders the canonical spaced form.
func (p Postcode) String() string {
	if p.Inward == "" {
		return p.Outward
	}
	return p.Outward + " " + p.Inward
}

// Parse normalises raw and checks that it falls inside the BT area.
func Parse(raw string) (Postcode, error) {
	cleaned := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	if cleaned == "" {
		return Postcode{}, ErrInvalidPostcode
	}
	var pc Postcode
	switch {
	case outwardPattern.MatchString(cleaned):
		pc = Postcode{Outward: cleaned}
	case fullPattern.MatchString(cleaned):
		m := fullPattern.FindStringSubmatch(cleaned)
		pc = Postcode{Outward: m[1], Inward: m[2]}
	default:
		return Postcode{}, ErrInvalidPostcode
	}
	if !inArea(pc.Outward) {
		return Postcode{}, ErrOutsideCoverage
	}
	return pc, nil
}

func inArea(outward string) bool {
	if !strings.HasPrefix(outward, Area) {
		return false
	}
	rest := outward[len(Area):]
	return rest != "" && rest[0] >= '0' && rest[0] <= '9'
}
