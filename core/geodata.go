package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

/**
 * DOMAIN
 */

// GeographicalData is a single BAG address/building record.
type GeographicalData struct {
	ID                  RecordID
	Street              string
	HouseNumber         int
	HouseLetter         *string
	HouseNumberAddition *int
	Postcode            string
	City                string
	Municipality        string
	Province            string
	// BAG address indication number
	AddressIndication string
	// Usage purpose, e.g. "woonfunctie"
	UsagePurpose string
	// Surface area in square meters
	SurfaceArea      int
	ResidenceStatus  string
	ObjectID         string
	ObjectType       string
	SecondaryAddress *string
	BuildingID       string
	BuildingStatus   string
	ConstructionYear int
	// RD New coordinates
	X int
	Y int
	// WGS84 decimal degrees
	Lon float64
	Lat float64
}

// GeographicalDataInput contains every field of a record except its identity.
type GeographicalDataInput struct {
	Street              string
	HouseNumber         int
	HouseLetter         *string
	HouseNumberAddition *int
	Postcode            string
	City                string
	Municipality        string
	Province            string
	AddressIndication   string
	UsagePurpose        string
	SurfaceArea         int
	ResidenceStatus     string
	ObjectID            string
	ObjectType          string
	SecondaryAddress    *string
	BuildingID          string
	BuildingStatus      string
	ConstructionYear    int
	X                   int
	Y                   int
	Lon                 float64
	Lat                 float64
}

// Input returns the identity-less part of the record.
func (g GeographicalData) Input() GeographicalDataInput {
	return GeographicalDataInput{
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

// WithID builds a full record from the input and the given identity.
func (in GeographicalDataInput) WithID(id RecordID) GeographicalData {
	return GeographicalData{
		ID:                  id,
		Street:              in.Street,
		HouseNumber:         in.HouseNumber,
		HouseLetter:         in.HouseLetter,
		HouseNumberAddition: in.HouseNumberAddition,
		Postcode:            in.Postcode,
		City:                in.City,
		Municipality:        in.Municipality,
		Province:            in.Province,
		AddressIndication:   in.AddressIndication,
		UsagePurpose:        in.UsagePurpose,
		SurfaceArea:         in.SurfaceArea,
		ResidenceStatus:     in.ResidenceStatus,
		ObjectID:            in.ObjectID,
		ObjectType:          in.ObjectType,
		SecondaryAddress:    in.SecondaryAddress,
		BuildingID:          in.BuildingID,
		BuildingStatus:      in.BuildingStatus,
		ConstructionYear:    in.ConstructionYear,
		X:                   in.X,
		Y:                   in.Y,
		Lon:                 in.Lon,
		Lat:                 in.Lat,
	}
}

// HasSameAddress reports whether both inputs describe the same address: street, house number,
// house letter and addition match and the postcodes are equal after normalization.
// Street, letter and postcode are compared case-insensitively, a missing letter equals an empty one.
func (in GeographicalDataInput) HasSameAddress(other GeographicalDataInput) bool {
	return strings.EqualFold(in.Street, other.Street) &&
		in.HouseNumber == other.HouseNumber &&
		strings.EqualFold(deref(in.HouseLetter), deref(other.HouseLetter)) &&
		equalPtr(in.HouseNumberAddition, other.HouseNumberAddition) &&
		NormalizePostcode(in.Postcode) == NormalizePostcode(other.Postcode)
}

// AddressKey returns the normalized address that HasSameAddress compares, usable as a map key.
func (in GeographicalDataInput) AddressKey() string {
	addition := "-"
	if in.HouseNumberAddition != nil {
		addition = strconv.Itoa(*in.HouseNumberAddition)
	}
	return strings.Join([]string{
		strings.ToLower(in.Street),
		strconv.Itoa(in.HouseNumber),
		strings.ToLower(deref(in.HouseLetter)),
		addition,
		NormalizePostcode(in.Postcode),
	}, "|")
}

// CheckRanges reports integer fields that do not fit the 32-bit columns records are stored in.
func (in GeographicalDataInput) CheckRanges() error {
	result := Success()
	check := func(field string, value int) {
		if value < math.MinInt32 || value > math.MaxInt32 {
			result.AddFieldError(field, fmt.Sprintf("%d is out of range", value))
		}
	}
	check("houseNumber", in.HouseNumber)
	if in.HouseNumberAddition != nil {
		check("houseNumberAddition", *in.HouseNumberAddition)
	}
	check("surfaceArea", in.SurfaceArea)
	check("constructionYear", in.ConstructionYear)
	check("x", in.X)
	check("y", in.Y)
	return result.Err()
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

type (
	RecordID int32
)

func (id RecordID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func (id *RecordID) UnmarshalText(text []byte) error {
	val, err := ParseRecordID(string(text))
	if err != nil {
		return err
	}
	*id = val
	return nil
}

// UnmarshalJSON accepts a JSON number or a numeric string. null and 0 leave the id unset.
func (id *RecordID) UnmarshalJSON(data []byte) error {
	text := strings.Trim(string(data), `"`)
	if text == "null" || text == "" || text == "0" {
		*id = 0
		return nil
	}
	return id.UnmarshalText([]byte(text))
}

// NewRecordID creates a record id from any integer.
func NewRecordID(id int) (RecordID, error) {
	if id <= 0 {
		return 0, errors.New("RecordID must be greater than 0")
	}
	if id > int(^uint32(0)>>1) {
		return 0, errors.New("RecordID is out of range")
	}
	return RecordID(int32(id)), nil
}

// ParseRecordID parses a string into a record id.
func ParseRecordID(id string) (RecordID, error) {
	integerID, err := strconv.Atoi(id)
	if err != nil {
		return 0, fmt.Errorf("cannot parse record id: %w", err)
	}
	if integerID < 0 {
		return 0, errors.New("cannot parse record id: record ids cannot be negative")
	}
	recordID, err := NewRecordID(integerID)
	if err != nil {
		return 0, fmt.Errorf("cannot parse record id: %w", err)
	}
	return recordID, nil
}

/**
 * APPLICATION
 */

// GeographicalDataRepository is the persistence gateway for geographical data records.
type GeographicalDataRepository interface {
	// Retrieve all existing records.
	GetAll(ctx context.Context) ([]GeographicalData, error)
	// Retrieve a filtered, sorted page of records.
	GetPaged(ctx context.Context, params PaginationParameters) (PagedResult[GeographicalData], error)
	// Retrieve the record with the specified id or ErrNotFound if no such record exists.
	GetByID(ctx context.Context, id RecordID) (*GeographicalData, error)
	// Store a new record, the store assigns its identity.
	Create(ctx context.Context, data GeographicalDataInput) (*GeographicalData, error)
	// Store many records at once. Returns the amount of stored records.
	CreateBatch(ctx context.Context, data []GeographicalDataInput) (int64, error)
	// Replace all fields of an existing record or return ErrNotFound.
	Update(ctx context.Context, data GeographicalData) (*GeographicalData, error)
	// Delete the record with the specified id. Returns false if no such record exists.
	Delete(ctx context.Context, id RecordID) (bool, error)
	// Delete every record.
	DeleteAll(ctx context.Context) error
	// Check whether a record with the specified id exists.
	Exists(ctx context.Context, id RecordID) (bool, error)
	// Retrieve the amount of existing records.
	Count(ctx context.Context) (int64, error)
}

// UnitOfWork groups repository mutations in a single transaction.
// Only one transaction can be active per unit of work.
type UnitOfWork interface {
	// Begin starts a new transaction or returns ErrTransactionInProgress.
	Begin(ctx context.Context) error
	// Commit the active transaction or return ErrNoTransaction.
	Commit(ctx context.Context) error
	// Rollback the active transaction or return ErrNoTransaction.
	Rollback(ctx context.Context) error
	// Repository returns the repository bound to the active transaction if there is one.
	Repository() GeographicalDataRepository
}

// Store provides access to the records of a single backing store.
type Store interface {
	// Repository returns a repository that operates outside of any transaction.
	Repository() GeographicalDataRepository
	// NewUnitOfWork creates a fresh unit of work. Units of work are not safe for concurrent use,
	// every logical operation should create its own.
	NewUnitOfWork() UnitOfWork
}

// WithinTransaction runs fn inside a transaction on uow. The transaction is committed if fn
// succeeds and rolled back if fn returns an error or panics.
func WithinTransaction(
	ctx context.Context,
	uow UnitOfWork,
	fn func(repo GeographicalDataRepository) error,
) (err error) {
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("cannot begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := uow.Rollback(ctx); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("cannot roll back transaction: %w", rbErr))
		}
		if p := recover(); p != nil {
			panic(p)
		}
	}()

	if err := fn(uow.Repository()); err != nil {
		return err
	}
	// A failed commit still releases the transaction.
	committed = true
	if err := uow.Commit(ctx); err != nil {
		return fmt.Errorf("cannot commit transaction: %w", err)
	}
	return nil
}
