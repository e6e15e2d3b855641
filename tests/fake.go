package tests

import (
	"fmt"
	"strings"

	"github.com/prior-it/geodata/core"
)

// FakePostcode returns a random postcode that passes validation.
func FakePostcode() string {
	return fmt.Sprintf("%d%s", Faker.IntRange(1000, 9998), strings.ToUpper(Faker.LetterN(2)))
}

// FakeInput returns a random record that passes every validation check.
func FakeInput() core.GeographicalDataInput {
	city := Faker.City()
	return core.GeographicalDataInput{
		Street:            Faker.StreetName(),
		HouseNumber:       Faker.IntRange(1, 9999),
		Postcode:          FakePostcode(),
		City:              city,
		Municipality:      city,
		Province:          Faker.State(),
		AddressIndication: Faker.DigitN(16),
		UsagePurpose:      "woonfunctie",
		SurfaceArea:       Faker.IntRange(10, 500),
		ResidenceStatus:   "Verblijfsobject in gebruik",
		ObjectID:          Faker.DigitN(16),
		ObjectType:        "Verblijfsobject",
		BuildingID:        Faker.DigitN(16),
		BuildingStatus:    "Pand in gebruik",
		ConstructionYear:  Faker.IntRange(1200, 2020),
		X:                 Faker.IntRange(10000, 280000),
		Y:                 Faker.IntRange(310000, 640000),
		Lon:               Faker.Float64Range(3.5, 7.1),
		Lat:               Faker.Float64Range(50.8, 53.5),
	}
}

// FakeRecord returns a random valid record with the specified identity.
func FakeRecord(id core.RecordID) core.GeographicalData {
	return FakeInput().WithID(id)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
