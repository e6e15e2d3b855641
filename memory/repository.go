package memory

import (
	"context"
	"maps"
	"slices"

	"github.com/prior-it/geodata/core"
)

// records is the state of a store, it is never shared between goroutines without a lock.
type records struct {
	byID   map[core.RecordID]core.GeographicalData
	nextID core.RecordID
}

func newRecords() *records {
	return &records{byID: make(map[core.RecordID]core.GeographicalData), nextID: 1}
}

func (r *records) clone() *records {
	return &records{byID: maps.Clone(r.byID), nextID: r.nextID}
}

func (r *records) all() []core.GeographicalData {
	out := make([]core.GeographicalData, 0, len(r.byID))
	for _, id := range slices.Sorted(maps.Keys(r.byID)) {
		out = append(out, copyRecord(r.byID[id]))
	}
	return out
}

func (r *records) get(id core.RecordID) (*core.GeographicalData, error) {
	record, ok := r.byID[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	record = copyRecord(record)
	return &record, nil
}

// conflicts reports whether another record already uses the address of data.
func (r *records) conflicts(data core.GeographicalDataInput, except core.RecordID) bool {
	for id, existing := range r.byID {
		if id != except && existing.Input().HasSameAddress(data) {
			return true
		}
	}
	return false
}

func (r *records) create(data core.GeographicalDataInput) (*core.GeographicalData, error) {
	if err := data.CheckRanges(); err != nil {
		return nil, err
	}
	if r.conflicts(data, 0) {
		return nil, core.ErrConflict
	}
	record := copyRecord(data.WithID(r.nextID))
	r.byID[record.ID] = record
	r.nextID++
	record = copyRecord(record)
	return &record, nil
}

func (r *records) update(data core.GeographicalData) (*core.GeographicalData, error) {
	if _, ok := r.byID[data.ID]; !ok {
		return nil, core.ErrNotFound
	}
	if err := data.Input().CheckRanges(); err != nil {
		return nil, err
	}
	if r.conflicts(data.Input(), data.ID) {
		return nil, core.ErrConflict
	}
	r.byID[data.ID] = copyRecord(data)
	record := copyRecord(data)
	return &record, nil
}

func (r *records) delete(id core.RecordID) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	return true
}

// createBatch stores either every record of the batch or none of them.
func (r *records) createBatch(data []core.GeographicalDataInput) (int64, error) {
	staged := r.clone()
	for _, input := range data {
		if _, err := staged.create(input); err != nil {
			return 0, err
		}
	}
	*r = *staged
	return int64(len(data)), nil
}

func (r *records) deleteAll() {
	clear(r.byID)
	r.nextID = 1
}

// copyRecord copies record including the values behind its optional fields.
func copyRecord(record core.GeographicalData) core.GeographicalData {
	record.HouseLetter = clonePtr(record.HouseLetter)
	record.HouseNumberAddition = clonePtr(record.HouseNumberAddition)
	record.SecondaryAddress = clonePtr(record.SecondaryAddress)
	return record
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// txRepository operates on the private state of a single unit of work.
type txRepository struct {
	state *records
}

var _ core.GeographicalDataRepository = &txRepository{}

func (t *txRepository) GetAll(context.Context) ([]core.GeographicalData, error) {
	return t.state.all(), nil
}

func (t *txRepository) GetPaged(
	_ context.Context,
	params core.PaginationParameters,
) (core.PagedResult[core.GeographicalData], error) {
	params, err := params.Normalize()
	if err != nil {
		return core.PagedResult[core.GeographicalData]{}, err
	}
	return core.PageRecords(t.state.all(), params), nil
}

func (t *txRepository) GetByID(_ context.Context, id core.RecordID) (*core.GeographicalData, error) {
	return t.state.get(id)
}

func (t *txRepository) Create(
	_ context.Context,
	data core.GeographicalDataInput,
) (*core.GeographicalData, error) {
	return t.state.create(data)
}

func (t *txRepository) CreateBatch(_ context.Context, data []core.GeographicalDataInput) (int64, error) {
	return t.state.createBatch(data)
}

func (t *txRepository) Update(_ context.Context, data core.GeographicalData) (*core.GeographicalData, error) {
	return t.state.update(data)
}

func (t *txRepository) Delete(_ context.Context, id core.RecordID) (bool, error) {
	return t.state.delete(id), nil
}

func (t *txRepository) DeleteAll(context.Context) error {
	t.state.deleteAll()
	return nil
}

func (t *txRepository) Exists(_ context.Context, id core.RecordID) (bool, error) {
	_, ok := t.state.byID[id]
	return ok, nil
}

func (t *txRepository) Count(context.Context) (int64, error) {
	return int64(len(t.state.byID)), nil
}
