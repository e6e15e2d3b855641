package geodata

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/prior-it/geodata/core"
)

// Bounding box of the Netherlands in WGS84 and the valid range of RD New coordinates.
const (
	MinLatitude  = 50.7503
	MaxLatitude  = 53.5542
	MinLongitude = 3.3316
	MaxLongitude = 7.2275

	MinRDX = 0
	MaxRDX = 300000
	MinRDY = 300000
	MaxRDY = 650000
)

const (
	MinConstructionYear = 1000
	// Buildings older than this are logged since they are rare enough to warrant a second look.
	historicConstructionYear = 1200
	maxYearsAhead            = 10

	MaxUsualHouseNumber = 10000
	MinUsualSurfaceArea = 10
	MaxUsualSurfaceArea = 100000
)

// Request bounds, these hold before any business rule is applied.
const (
	MaxStreetLength           = 200
	MaxHouseNumber            = 99999
	MaxHouseNumberAddition    = 9999
	MaxTextLength             = 100
	MaxSecondaryAddressLength = 200
)

var (
	numericPattern     = regexp.MustCompile(`^\d+$`)
	houseLetterPattern = regexp.MustCompile(`^[A-Za-z]?$`)
)

// BusinessValidator checks candidate records before they are persisted.
type BusinessValidator interface {
	ValidateCreate(ctx context.Context, data core.GeographicalDataInput) core.ValidationResult
	ValidateUpdate(ctx context.Context, data core.GeographicalData) core.ValidationResult
}

type ValidatorOptions struct {
	// StrictWarnings turns suspicious-but-possible values (very high house numbers, unusual surface
	// areas) into validation errors instead of warnings.
	StrictWarnings bool
	// Now is used to determine the current year, defaults to time.Now.
	Now func() time.Time
}

// Validator implements the business rules for geographical data records.
type Validator struct {
	repo   core.GeographicalDataRepository
	logger *slog.Logger
	opts   ValidatorOptions
}

var _ BusinessValidator = &Validator{}

func NewValidator(
	repo core.GeographicalDataRepository,
	logger *slog.Logger,
	opts ValidatorOptions,
) *Validator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Validator{repo, logger, opts}
}

// ValidateCreate runs every field and cross-field check against a new record.
func (v *Validator) ValidateCreate(
	ctx context.Context,
	data core.GeographicalDataInput,
) core.ValidationResult {
	return v.validate(ctx, data, 0)
}

// ValidateUpdate runs the create checks and additionally requires the record to exist already.
// The record itself is never reported as its own duplicate.
func (v *Validator) ValidateUpdate(ctx context.Context, data core.GeographicalData) core.ValidationResult {
	result := v.validate(ctx, data.Input(), data.ID)

	if data.ID <= 0 {
		result.AddFieldError("id", "id must be greater than 0 for updates")
	}
	exists, err := v.repo.Exists(ctx, data.ID)
	switch {
	case err != nil:
		v.logger.Warn("Cannot check whether record exists", "id", data.ID, "error", err)
		result.AddError(fmt.Sprintf("cannot verify that record with ID %v exists", data.ID))
	case !exists:
		result.AddError(fmt.Sprintf("record with ID %v does not exist", data.ID))
	}

	return result
}

func (v *Validator) validate(
	ctx context.Context,
	data core.GeographicalDataInput,
	self core.RecordID,
) core.ValidationResult {
	result := core.CombineResults(
		ValidateInput(data),
		v.ValidateAddress(data.Street, data.HouseNumber, data.HouseLetter, data.HouseNumberAddition),
		ValidatePostcode(data.Postcode),
		ValidateCoordinates(data.Lat, data.Lon, data.X, data.Y),
		v.ValidateConstructionYear(data.ConstructionYear),
	)
	v.checkDuplicate(ctx, data, self, &result)
	v.checkSurfaceArea(data.SurfaceArea, &result)
	v.checkLocationConsistency(data)
	return result
}

// ValidateInput checks the shape of a record: required values, text lengths and the range of
// house numbers.
//
//nolint:cyclop
func ValidateInput(data core.GeographicalDataInput) core.ValidationResult {
	result := core.Success()

	if strings.TrimSpace(data.Street) == "" {
		result.AddFieldError("street", "street is required")
	} else if utf8.RuneCountInString(data.Street) > MaxStreetLength {
		result.AddFieldError("street", fmt.Sprintf("street must be between 1 and %d characters", MaxStreetLength))
	}

	if data.HouseNumber < 1 || data.HouseNumber > MaxHouseNumber {
		result.AddFieldError("houseNumber", fmt.Sprintf("house number must be between 1 and %d", MaxHouseNumber))
	}
	if data.HouseLetter != nil && !houseLetterPattern.MatchString(*data.HouseLetter) {
		result.AddFieldError("houseLetter", "house letter must be a single letter")
	}
	if addition := data.HouseNumberAddition; addition != nil && (*addition < 1 || *addition > MaxHouseNumberAddition) {
		result.AddFieldError(
			"houseNumberAddition",
			fmt.Sprintf("house number addition must be between 1 and %d", MaxHouseNumberAddition),
		)
	}

	if strings.TrimSpace(data.City) == "" {
		result.AddFieldError("city", "city is required")
	}
	texts := []struct {
		field string
		value string
	}{
		{"city", data.City},
		{"municipality", data.Municipality},
		{"province", data.Province},
		{"addressIndication", data.AddressIndication},
		{"usagePurpose", data.UsagePurpose},
		{"residenceStatus", data.ResidenceStatus},
		{"objectId", data.ObjectID},
		{"objectType", data.ObjectType},
		{"buildingId", data.BuildingID},
		{"buildingStatus", data.BuildingStatus},
	}
	for _, text := range texts {
		if utf8.RuneCountInString(text.value) > MaxTextLength {
			result.AddFieldError(text.field, fmt.Sprintf("%s cannot exceed %d characters", text.field, MaxTextLength))
		}
	}
	if data.SecondaryAddress != nil && utf8.RuneCountInString(*data.SecondaryAddress) > MaxSecondaryAddressLength {
		result.AddFieldError(
			"secondaryAddress",
			fmt.Sprintf("secondaryAddress cannot exceed %d characters", MaxSecondaryAddressLength),
		)
	}

	if data.SurfaceArea > math.MaxInt32 {
		result.AddFieldError("surfaceArea", fmt.Sprintf("surface area cannot exceed %d", math.MaxInt32))
	}

	return result
}

// ValidateAddress checks the street and house number of an address.
func (v *Validator) ValidateAddress(
	street string,
	houseNumber int,
	letter *string,
	addition *int,
) core.ValidationResult {
	result := core.Success()

	if numericPattern.MatchString(strings.TrimSpace(street)) {
		result.AddFieldError("street", "street cannot consist of digits only")
	}

	if letter != nil && *letter != "" && addition != nil {
		v.logger.Info("Address has both a house letter and an addition",
			"street", street,
			"house_number", houseNumber,
			"house_letter", *letter,
			"addition", *addition,
		)
	}

	if houseNumber > MaxUsualHouseNumber {
		v.flag(&result, fmt.Sprintf("house number %d is unusually high, please verify it", houseNumber))
	}

	return result
}

// ValidatePostcode checks that postcode is a valid Dutch postcode once normalized.
func ValidatePostcode(postcode string) core.ValidationResult {
	result := core.Success()

	if strings.TrimSpace(postcode) == "" {
		result.AddFieldError("postcode", "postcode is required")
		return result
	}
	if !core.MatchesPostcodePattern(postcode) {
		result.AddFieldError("postcode", "postcode must be a valid Dutch postcode (e.g. 1234AB)")
	}
	if core.HasReservedPostcodePrefix(postcode) {
		result.AddFieldError("postcode", "postcode cannot start with 0000 or 9999")
	}

	return result
}

// ValidateCoordinates checks both coordinate pairs, every axis is reported on its own.
func ValidateCoordinates(lat, lon float64, x, y int) core.ValidationResult {
	result := core.Success()

	if lat < MinLatitude || lat > MaxLatitude {
		result.AddFieldError(
			"lat",
			fmt.Sprintf("latitude must lie within the Netherlands (%v - %v)", MinLatitude, MaxLatitude),
		)
	}
	if lon < MinLongitude || lon > MaxLongitude {
		result.AddFieldError(
			"lon",
			fmt.Sprintf("longitude must lie within the Netherlands (%v - %v)", MinLongitude, MaxLongitude),
		)
	}
	if x < MinRDX || x > MaxRDX {
		result.AddFieldError("x", fmt.Sprintf("x coordinate must lie within the RD range (%d - %d)", MinRDX, MaxRDX))
	}
	if y < MinRDY || y > MaxRDY {
		result.AddFieldError("y", fmt.Sprintf("y coordinate must lie within the RD range (%d - %d)", MinRDY, MaxRDY))
	}

	return result
}

// ValidateConstructionYear checks that the year lies between 1000 and ten years from now.
func (v *Validator) ValidateConstructionYear(year int) core.ValidationResult {
	result := core.Success()
	maxYear := v.opts.Now().Year() + maxYearsAhead

	if year < MinConstructionYear {
		result.AddFieldError("constructionYear", "construction year cannot be before the year 1000")
	} else if year > maxYear {
		result.AddFieldError(
			"constructionYear",
			fmt.Sprintf("construction year cannot be more than %d years in the future (max %d)", maxYearsAhead, maxYear),
		)
	}

	if year >= MinConstructionYear && year < historicConstructionYear {
		v.logger.Warn("Very old building registered", "construction_year", year)
	}

	return result
}

// checkDuplicate scans the existing records for the same address. A failing read is logged and
// treated as "no duplicate", the storage layer still rejects conflicting addresses.
func (v *Validator) checkDuplicate(
	ctx context.Context,
	data core.GeographicalDataInput,
	self core.RecordID,
	result *core.ValidationResult,
) {
	all, err := v.repo.GetAll(ctx)
	if err != nil {
		v.logger.Warn("Cannot check for duplicate addresses", "error", err)
		return
	}
	for _, existing := range all {
		if existing.ID != self && existing.Input().HasSameAddress(data) {
			result.AddError(fmt.Sprintf("address already exists in the database (ID: %v)", existing.ID))
			return
		}
	}
}

func (v *Validator) checkSurfaceArea(area int, result *core.ValidationResult) {
	switch {
	case area <= 0:
		result.AddFieldError("surfaceArea", "surface area must be greater than 0")
	case area > MaxUsualSurfaceArea:
		v.flag(result, fmt.Sprintf("surface area of %d m² is unusually large, please verify it", area))
	case area < MinUsualSurfaceArea:
		v.flag(result, fmt.Sprintf("surface area of %d m² is unusually small, please verify it", area))
	}
}

// checkLocationConsistency logs postcodes in the Amsterdam region that belong to another place.
func (v *Validator) checkLocationConsistency(data core.GeographicalDataInput) {
	digits := core.PostcodeDigits(data.Postcode)
	if !strings.HasPrefix(digits, "10") && !strings.HasPrefix(digits, "11") && !strings.HasPrefix(digits, "12") {
		return
	}
	if !containsFold(data.City, "Amsterdam") && !containsFold(data.Municipality, "Amsterdam") {
		v.logger.Warn("Postcode suggests the Amsterdam region but the city differs",
			"postcode", data.Postcode,
			"city", data.City,
		)
	}
}

// flag records a suspicious value as an error in strict mode and as a warning otherwise.
func (v *Validator) flag(result *core.ValidationResult, msg string) {
	if v.opts.StrictWarnings {
		result.AddError(msg)
	} else {
		result.AddWarning(msg)
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
