package geodata

import "github.com/prior-it/geodata/core"

// Record is the external representation of a geographical data record.
type Record struct {
	ID                  core.RecordID `json:"id"`
	Street              string        `json:"street"`
	HouseNumber         int           `json:"houseNumber"`
	HouseLetter         *string       `json:"houseLetter"`
	HouseNumberAddition *int          `json:"houseNumberAddition"`
	Postcode            string        `json:"postcode"`
	City                string        `json:"city"`
	Municipality        string        `json:"municipality"`
	Province            string        `json:"province"`
	AddressIndication   string        `json:"addressIndication"`
	UsagePurpose        string        `json:"usagePurpose"`
	SurfaceArea         int           `json:"surfaceArea"`
	ResidenceStatus     string        `json:"residenceStatus"`
	ObjectID            string        `json:"objectId"`
	ObjectType          string        `json:"objectType"`
	SecondaryAddress    *string       `json:"secondaryAddress"`
	BuildingID          string        `json:"buildingId"`
	BuildingStatus      string        `json:"buildingStatus"`
	ConstructionYear    int           `json:"constructionYear"`
	X                   int           `json:"x"`
	Y                   int           `json:"y"`
	Lon                 float64       `json:"lon"`
	Lat                 float64       `json:"lat"`
}

// NewRecord converts a domain record into its external representation.
func NewRecord(g core.GeographicalData) Record {
	return Record{
		ID:                  g.ID,
		Street:              g.Street,
		HouseNumber:         g.HouseNumber,
		HouseLetter:         g.HouseLetter,
		HouseNumberAddition: g.HouseNumberAddition,
		Postcode:            g.Postcode,
		City:                g.City,
		Municipality:        g.Municipality,
		Province:            g.Province,
		AddressIndication:   g.AddressIndication,
		UsagePurpose:        g.UsagePurpose,
		SurfaceArea:         g.SurfaceArea,
		ResidenceStatus:     g.ResidenceStatus,
		ObjectID:            g.ObjectID,
		ObjectType:          g.ObjectType,
		SecondaryAddress:    g.SecondaryAddress,
		BuildingID:          g.BuildingID,
		BuildingStatus:      g.BuildingStatus,
		ConstructionYear:    g.ConstructionYear,
		X:                   g.X,
		Y:                   g.Y,
		Lon:                 g.Lon,
		Lat:                 g.Lat,
	}
}

// Domain converts the record back into a domain record.
func (r Record) Domain() core.GeographicalData {
	return core.GeographicalData{
		ID:                  r.ID,
		Street:              r.Street,
		HouseNumber:         r.HouseNumber,
		HouseLetter:         r.HouseLetter,
		HouseNumberAddition: r.HouseNumberAddition,
		Postcode:            r.Postcode,
		City:                r.City,
		Municipality:        r.Municipality,
		Province:            r.Province,
		AddressIndication:   r.AddressIndication,
		UsagePurpose:        r.UsagePurpose,
		SurfaceArea:         r.SurfaceArea,
		ResidenceStatus:     r.ResidenceStatus,
		ObjectID:            r.ObjectID,
		ObjectType:          r.ObjectType,
		SecondaryAddress:    r.SecondaryAddress,
		BuildingID:          r.BuildingID,
		BuildingStatus:      r.BuildingStatus,
		ConstructionYear:    r.ConstructionYear,
		X:                   r.X,
		Y:                   r.Y,
		Lon:                 r.Lon,
		Lat:                 r.Lat,
	}
}

// Input returns every field of the record except its identity.
func (r Record) Input() core.GeographicalDataInput {
	return r.Domain().Input()
}

func newRecords(data []core.GeographicalData) []Record {
	records := make([]Record, len(data))
	for i, g := range data {
		records[i] = NewRecord(g)
	}
	return records
}
