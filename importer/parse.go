package importer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/prior-it/geodata/core"
)

// Columns lists the header of a BAG export in file order.
var Columns = []string{
	"openbareruimte",
	"huisnummer",
	"huisletter",
	"huisnummertoevoeging",
	"postcode",
	"woonplaats",
	"gemeente",
	"provincie",
	"nummeraanduiding",
	"verblijfsobjectgebruiksdoel",
	"oppervlakteverblijfsobject",
	"verblijfsobjectstatus",
	"object_id",
	"object_type",
	"nevenadres",
	"pandid",
	"pandstatus",
	"pandbouwjaar",
	"x",
	"y",
	"lon",
	"lat",
}

var requiredColumns = []string{"openbareruimte", "huisnummer", "postcode"}

var ErrMissingColumn = errors.New("missing required column")

// header maps column names onto their position in a row.
type header map[string]int

func parseHeader(names []string) (header, error) {
	h := make(header, len(names))
	for i, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		// Excel likes to prefix exports with a byte order mark
		name = strings.TrimPrefix(name, "\ufeff")
		h[name] = i
	}
	var missing []string
	for _, column := range requiredColumns {
		if _, ok := h[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return h, nil
}

// row reads the fields of a single csv line. Columns that are not part of the header or that are
// cut off read as the empty string.
type row struct {
	header header
	fields []string
}

func (r row) text(column string) string {
	i, ok := r.header[column]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r row) optionalText(column string) *string {
	value := r.text(column)
	if value == "" {
		return nil
	}
	return &value
}

// integer parses a whole number. Empty and malformed values read as 0, the way the registry
// exports leave unknown numbers blank.
func (r row) integer(column string) int {
	value, _ := parseInt(r.text(column))
	return value
}

func (r row) optionalInteger(column string) *int {
	value, ok := parseInt(r.text(column))
	if !ok {
		return nil
	}
	return &value
}

func (r row) decimal(column string) float64 {
	value := strings.ReplaceAll(r.text(column), ",", ".")
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func parseInt(value string) (int, bool) {
	if value == "" {
		return 0, false
	}
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed, true
	}
	// Some exports write whole numbers as decimals
	f, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

// parseRow converts a csv line into a record. Only a missing street or house number is an error,
// every other value is parsed leniently.
func parseRow(h header, fields []string) (core.GeographicalDataInput, error) {
	r := row{header: h, fields: fields}
	input := core.GeographicalDataInput{
		Street:              r.text("openbareruimte"),
		HouseNumber:         r.integer("huisnummer"),
		HouseLetter:         r.optionalText("huisletter"),
		HouseNumberAddition: r.optionalInteger("huisnummertoevoeging"),
		Postcode:            r.text("postcode"),
		City:                r.text("woonplaats"),
		Municipality:        r.text("gemeente"),
		Province:            r.text("provincie"),
		AddressIndication:   r.text("nummeraanduiding"),
		UsagePurpose:        r.text("verblijfsobjectgebruiksdoel"),
		SurfaceArea:         r.integer("oppervlakteverblijfsobject"),
		ResidenceStatus:     r.text("verblijfsobjectstatus"),
		ObjectID:            r.text("object_id"),
		ObjectType:          r.text("object_type"),
		SecondaryAddress:    r.optionalText("nevenadres"),
		BuildingID:          r.text("pandid"),
		BuildingStatus:      r.text("pandstatus"),
		ConstructionYear:    r.integer("pandbouwjaar"),
		X:                   r.integer("x"),
		Y:                   r.integer("y"),
		Lon:                 r.decimal("lon"),
		Lat:                 r.decimal("lat"),
	}
	if input.Street == "" {
		return input, errors.New("street (openbareruimte) is empty")
	}
	if input.HouseNumber <= 0 {
		return input, fmt.Errorf("invalid house number %q", r.text("huisnummer"))
	}
	return input, nil
}
