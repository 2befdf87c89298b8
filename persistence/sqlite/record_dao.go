package sqlite

import (
	"context"
	"fmt"

	"github.com/shelterly/automation/persistence"
	"github.com/shelterly/automation/record"
)

// objectType is the storage strategy for one object api name.
type objectType interface {
	New(organizationId int64) record.Record
	Find(ctx context.Context, q querier, organizationId int64, id int64) (record.Record, error)
	Save(ctx context.Context, q querier, rec record.Record) error
	Delete(ctx context.Context, q querier, rec record.Record) error
}

var staticTypes = map[string]objectType{
	record.PETS:   petType,
	record.TASKS:  taskType,
	record.EVENTS: eventType,
}

type recordDao struct {
	store *Store
	q     querier
	inTx  bool
}

var _ persistence.RecordStorage = new(recordDao)

func (s *Store) Records() *recordDao {
	return &recordDao{store: s, q: s.db}
}

// resolve finds the strategy for apiName: a fixed entity first, then the
// tenant's custom object of that name.
func (r *recordDao) resolve(ctx context.Context, organizationId int64, apiName string) (objectType, error) {
	if st, ok := staticTypes[apiName]; ok {
		return st, nil
	}
	object, err := loadCustomObject(ctx, r.q, organizationId, apiName)
	if err != nil {
		return nil, err
	}
	return &customType{object: object}, nil
}

func (r *recordDao) New(ctx context.Context, organizationId int64, objectApiName string) (record.Record, error) {
	ot, err := r.resolve(ctx, organizationId, objectApiName)
	if err != nil {
		return nil, err
	}
	return ot.New(organizationId), nil
}

func (r *recordDao) Find(ctx context.Context, organizationId int64, objectApiName string, id int64) (record.Record, error) {
	ot, err := r.resolve(ctx, organizationId, objectApiName)
	if err != nil {
		return nil, err
	}
	return ot.Find(ctx, r.q, organizationId, id)
}

func (r *recordDao) Save(ctx context.Context, rec record.Record) error {
	ot, err := r.typeOf(ctx, rec)
	if err != nil {
		return err
	}
	return ot.Save(ctx, r.q, rec)
}

func (r *recordDao) Delete(ctx context.Context, rec record.Record) error {
	ot, err := r.typeOf(ctx, rec)
	if err != nil {
		return err
	}
	return ot.Delete(ctx, r.q, rec)
}

func (r *recordDao) typeOf(ctx context.Context, rec record.Record) (objectType, error) {
	if dyn, ok := rec.(*record.DynamicRecord); ok {
		return &customType{object: dyn.Object}, nil
	}
	return r.resolve(ctx, rec.GetOrganizationId(), rec.ObjectApiName())
}

func (r *recordDao) RunInTx(ctx context.Context, fn func(persistence.RecordStorage) error) (err error) {
	if r.inTx {
		return fn(r)
	}
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("begin", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err = fn(&recordDao{store: r.store, q: tx, inTx: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageError("commit", err)
	}
	return nil
}
