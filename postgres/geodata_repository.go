package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prior-it/geodata/core"
)

// querier is implemented by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(
		ctx context.Context,
		tableName pgx.Identifier,
		columnNames []string,
		rowSrc pgx.CopyFromSource,
	) (int64, error)
}

const tableName = "geographical_data"

var insertColumns = []string{
	"street",
	"house_number",
	"house_letter",
	"house_number_addition",
	"postcode",
	"city",
	"municipality",
	"province",
	"address_indication",
	"usage_purpose",
	"surface_area",
	"residence_status",
	"object_id",
	"object_type",
	"secondary_address",
	"building_id",
	"building_status",
	"construction_year",
	"x",
	"y",
	"lon",
	"lat",
}

var selectColumns = "id, " + strings.Join(insertColumns, ", ")

// Sortable columns, strings are compared byte-wise on their lowercase form.
var orderColumns = map[core.SortField]string{
	core.SortByStreet:       `lower(street) COLLATE "C"`,
	core.SortByHouseNumber:  "house_number",
	core.SortByPostcode:     `lower(postcode) COLLATE "C"`,
	core.SortByCity:         `lower(city) COLLATE "C"`,
	core.SortByMunicipality: `lower(municipality) COLLATE "C"`,
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// geographicalDataRow mirrors a single row of the geographical_data table.
type geographicalDataRow struct {
	ID                  int32   `db:"id"`
	Street              string  `db:"street"`
	HouseNumber         int32   `db:"house_number"`
	HouseLetter         *string `db:"house_letter"`
	HouseNumberAddition *int32  `db:"house_number_addition"`
	Postcode            string  `db:"postcode"`
	City                string  `db:"city"`
	Municipality        string  `db:"municipality"`
	Province            string  `db:"province"`
	AddressIndication   string  `db:"address_indication"`
	UsagePurpose        string  `db:"usage_purpose"`
	SurfaceArea         int32   `db:"surface_area"`
	ResidenceStatus     string  `db:"residence_status"`
	ObjectID            string  `db:"object_id"`
	ObjectType          string  `db:"object_type"`
	SecondaryAddress    *string `db:"secondary_address"`
	BuildingID          string  `db:"building_id"`
	BuildingStatus      string  `db:"building_status"`
	ConstructionYear    int32   `db:"construction_year"`
	X                   int32   `db:"x"`
	Y                   int32   `db:"y"`
	Lon                 float64 `db:"lon"`
	Lat                 float64 `db:"lat"`
}

func NewGeographicalDataRepository(DB *DB) *GeographicalDataRepository {
	return &GeographicalDataRepository{q: DB.Pool}
}

// Postgres implementation of the core GeographicalDataRepository interface.
type GeographicalDataRepository struct {
	q querier
}

// Force struct to implement the core interface
var _ core.GeographicalDataRepository = &GeographicalDataRepository{}

// GetAll implements core.GeographicalDataRepository.GetAll
func (r *GeographicalDataRepository) GetAll(ctx context.Context) ([]core.GeographicalData, error) {
	rows, err := r.q.Query(ctx, "SELECT "+selectColumns+" FROM "+tableName+" ORDER BY id")
	if err != nil {
		return nil, convertPgError(err)
	}
	return collectRecords(rows)
}

// GetPaged implements core.GeographicalDataRepository.GetPaged
func (r *GeographicalDataRepository) GetPaged(
	ctx context.Context,
	params core.PaginationParameters,
) (core.PagedResult[core.GeographicalData], error) {
	params, err := params.Normalize()
	if err != nil {
		return core.PagedResult[core.GeographicalData]{}, err
	}

	var where string
	var args []any
	if params.Search != "" {
		args = append(args, "%"+likeEscaper.Replace(params.Search)+"%")
		where = " WHERE street ILIKE $1 OR postcode ILIKE $1 OR city ILIKE $1 OR municipality ILIKE $1"
	}

	var total int
	if err := r.q.QueryRow(ctx, "SELECT count(*) FROM "+tableName+where, args...).Scan(&total); err != nil {
		return core.PagedResult[core.GeographicalData]{}, convertPgError(err)
	}

	order := "id ASC"
	if column, ok := orderColumns[params.Field()]; ok {
		direction := "ASC"
		if params.SortDirection == core.SortDescending {
			direction = "DESC"
		}
		order = fmt.Sprintf("%s %s, id ASC", column, direction)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM %s%s ORDER BY %s LIMIT $%d OFFSET $%d",
		selectColumns, tableName, where, order, len(args)+1, len(args)+2,
	)
	args = append(args, params.PageSize, params.Offset())
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return core.PagedResult[core.GeographicalData]{}, convertPgError(err)
	}
	items, err := collectRecords(rows)
	if err != nil {
		return core.PagedResult[core.GeographicalData]{}, err
	}

	return core.PagedResult[core.GeographicalData]{
		Items:      items,
		TotalCount: total,
		Page:       params.Page,
		PageSize:   params.PageSize,
	}, nil
}

// GetByID implements core.GeographicalDataRepository.GetByID
func (r *GeographicalDataRepository) GetByID(
	ctx context.Context,
	id core.RecordID,
) (*core.GeographicalData, error) {
	rows, err := r.q.Query(ctx, "SELECT "+selectColumns+" FROM "+tableName+" WHERE id = $1", int32(id))
	if err != nil {
		return nil, convertPgError(err)
	}
	return collectRecord(rows)
}

// Create implements core.GeographicalDataRepository.Create
func (r *GeographicalDataRepository) Create(
	ctx context.Context,
	data core.GeographicalDataInput,
) (*core.GeographicalData, error) {
	placeholders := make([]string, len(insertColumns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		tableName,
		strings.Join(insertColumns, ", "),
		strings.Join(placeholders, ", "),
		selectColumns,
	)
	values, err := inputValues(data)
	if err != nil {
		return nil, err
	}
	rows, err := r.q.Query(ctx, query, values...)
	if err != nil {
		return nil, convertPgError(err)
	}
	return collectRecord(rows)
}

// CreateBatch implements core.GeographicalDataRepository.CreateBatch
func (r *GeographicalDataRepository) CreateBatch(
	ctx context.Context,
	data []core.GeographicalDataInput,
) (int64, error) {
	if len(data) == 0 {
		return 0, nil
	}
	// A failing row source aborts the copy with a server error, so reject bad rows up front
	for i := range data {
		if err := data[i].CheckRanges(); err != nil {
			return 0, fmt.Errorf("batch row %d: %w", i+1, err)
		}
	}
	n, err := r.q.CopyFrom(
		ctx,
		pgx.Identifier{tableName},
		insertColumns,
		pgx.CopyFromSlice(len(data), func(i int) ([]any, error) {
			return inputValues(data[i])
		}),
	)
	if err != nil {
		return 0, convertPgError(err)
	}
	return n, nil
}

// Update implements core.GeographicalDataRepository.Update
func (r *GeographicalDataRepository) Update(
	ctx context.Context,
	data core.GeographicalData,
) (*core.GeographicalData, error) {
	assignments := make([]string, len(insertColumns))
	for i, column := range insertColumns {
		assignments[i] = fmt.Sprintf("%s = $%d", column, i+2)
	}
	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = $1 RETURNING %s",
		tableName,
		strings.Join(assignments, ", "),
		selectColumns,
	)
	values, err := inputValues(data.Input())
	if err != nil {
		return nil, err
	}
	rows, err := r.q.Query(ctx, query, append([]any{int32(data.ID)}, values...)...)
	if err != nil {
		return nil, convertPgError(err)
	}
	return collectRecord(rows)
}

// Delete implements core.GeographicalDataRepository.Delete
func (r *GeographicalDataRepository) Delete(ctx context.Context, id core.RecordID) (bool, error) {
	tag, err := r.q.Exec(ctx, "DELETE FROM "+tableName+" WHERE id = $1", int32(id))
	if err != nil {
		return false, convertPgError(err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteAll implements core.GeographicalDataRepository.DeleteAll
func (r *GeographicalDataRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, "TRUNCATE "+tableName+" RESTART IDENTITY"); err != nil {
		return convertPgError(err)
	}
	return nil
}

// Exists implements core.GeographicalDataRepository.Exists
func (r *GeographicalDataRepository) Exists(ctx context.Context, id core.RecordID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+tableName+" WHERE id = $1)", int32(id)).
		Scan(&exists)
	if err != nil {
		return false, convertPgError(err)
	}
	return exists, nil
}

// Count implements core.GeographicalDataRepository.Count
func (r *GeographicalDataRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.q.QueryRow(ctx, "SELECT count(*) FROM "+tableName).Scan(&count); err != nil {
		return 0, convertPgError(err)
	}
	return count, nil
}

// inputValues returns the values of data in the order of insertColumns.
// Integers that do not fit their column are rejected instead of wrapped.
func inputValues(data core.GeographicalDataInput) ([]any, error) {
	if err := data.CheckRanges(); err != nil {
		return nil, err
	}
	var addition *int32
	if data.HouseNumberAddition != nil {
		v := int32(*data.HouseNumberAddition)
		addition = &v
	}
	return []any{
		data.Street,
		int32(data.HouseNumber),
		data.HouseLetter,
		addition,
		data.Postcode,
		data.City,
		data.Municipality,
		data.Province,
		data.AddressIndication,
		data.UsagePurpose,
		int32(data.SurfaceArea),
		data.ResidenceStatus,
		data.ObjectID,
		data.ObjectType,
		data.SecondaryAddress,
		data.BuildingID,
		data.BuildingStatus,
		int32(data.ConstructionYear),
		int32(data.X),
		int32(data.Y),
		data.Lon,
		data.Lat,
	}, nil
}

func collectRecords(rows pgx.Rows) ([]core.GeographicalData, error) {
	dbRows, err := pgx.CollectRows(rows, pgx.RowToStructByName[geographicalDataRow])
	if err != nil {
		return nil, convertPgError(err)
	}
	records := make([]core.GeographicalData, len(dbRows))
	for i, row := range dbRows {
		records[i] = convertRecord(row)
	}
	return records, nil
}

func collectRecord(rows pgx.Rows) (*core.GeographicalData, error) {
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[geographicalDataRow])
	if err != nil {
		return nil, convertPgError(err)
	}
	record := convertRecord(row)
	return &record, nil
}

func convertRecord(row geographicalDataRow) core.GeographicalData {
	var addition *int
	if row.HouseNumberAddition != nil {
		v := int(*row.HouseNumberAddition)
		addition = &v
	}
	return core.GeographicalData{
		ID:                  core.RecordID(row.ID),
		Street:              row.Street,
		HouseNumber:         int(row.HouseNumber),
		HouseLetter:         row.HouseLetter,
		HouseNumberAddition: addition,
		Postcode:            row.Postcode,
		City:                row.City,
		Municipality:        row.Municipality,
		Province:            row.Province,
		AddressIndication:   row.AddressIndication,
		UsagePurpose:        row.UsagePurpose,
		SurfaceArea:         int(row.SurfaceArea),
		ResidenceStatus:     row.ResidenceStatus,
		ObjectID:            row.ObjectID,
		ObjectType:          row.ObjectType,
		SecondaryAddress:    row.SecondaryAddress,
		BuildingID:          row.BuildingID,
		BuildingStatus:      row.BuildingStatus,
		ConstructionYear:    int(row.ConstructionYear),
		X:                   int(row.X),
		Y:                   int(row.Y),
		Lon:                 row.Lon,
		Lat:                 row.Lat,
	}
}
