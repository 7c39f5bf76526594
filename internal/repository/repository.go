package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/pitch-engagement-api/pkg/database"
	appErrors "github.com/noah-isme/pitch-engagement-api/pkg/errors"
	"github.com/noah-isme/pitch-engagement-api/pkg/query"
)

// Repository provides list, lookup and CRUD primitives for one table. T must carry db
// tags for every selectable field of the entity.
//
// FindMany issues its page and count statements independently, so under concurrent
// writes the total may disagree with the rows returned.
type Repository[T any] struct {
	ex     database.Executor
	entity *query.Entity
}

// New constructs a repository over entity.
func New[T any](ex database.Executor, entity *query.Entity) *Repository[T] {
	return &Repository[T]{ex: ex, entity: entity}
}

// FindMany returns one validated page of rows plus pagination metadata.
func (r *Repository[T]) FindMany(ctx context.Context, spec query.Spec) (query.Result[T], error) {
	plan := r.entity.Validate(spec)

	sql, args := plan.SelectSQL()
	var rows []T
	if err := r.ex.Query(ctx, &rows, sql, args...); err != nil {
		return query.Result[T]{}, fmt.Errorf("list %s: %w", r.entity.Table(), err)
	}

	countSQL, countArgs := plan.CountSQL()
	var total int
	if _, err := r.ex.QueryOne(ctx, &total, countSQL, countArgs...); err != nil {
		return query.Result[T]{}, fmt.Errorf("count %s: %w", r.entity.Table(), err)
	}

	return query.NewResult(rows, total, plan), nil
}

// FindByID fetches a row by primary key.
func (r *Repository[T]) FindByID(ctx context.Context, id int64) (*T, error) {
	var item T
	found, err := r.ex.QueryOne(ctx, &item, r.entity.SelectByIDSQL(), id)
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", r.entity.Table(), id, err)
	}
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s %d not found", r.entity.Table(), id))
	}
	return &item, nil
}

// FindBy fetches the first row whose field equals value.
func (r *Repository[T]) FindBy(ctx context.Context, field string, value interface{}) (*T, error) {
	sql, err := r.entity.SelectByFieldSQL(field)
	if err != nil {
		return nil, err
	}
	var item T
	found, err := r.ex.QueryOne(ctx, &item, sql, value)
	if err != nil {
		return nil, fmt.Errorf("get %s by %s: %w", r.entity.Table(), field, err)
	}
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", r.entity.Table()))
	}
	return &item, nil
}

// Create inserts the writable subset of fields and returns the stored row.
func (r *Repository[T]) Create(ctx context.Context, fields map[string]interface{}) (*T, error) {
	sql, args, ok := r.entity.InsertSQL(fields)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no writable fields supplied")
	}
	res, err := r.ex.Execute(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", r.entity.Table(), err)
	}
	if res.InsertedID == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "insert did not report an id")
	}
	return r.FindByID(ctx, *res.InsertedID)
}

// Update applies the writable subset of fields to row id and returns the stored row.
// Supplying no writable field is a validation error.
func (r *Repository[T]) Update(ctx context.Context, id int64, fields map[string]interface{}) (*T, error) {
	sql, args, ok := r.entity.UpdateSQL(id, fields)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no updatable fields supplied")
	}
	res, err := r.ex.Execute(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("update %s %d: %w", r.entity.Table(), id, err)
	}
	if res.Changes == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s %d not found", r.entity.Table(), id))
	}
	return r.FindByID(ctx, id)
}

// Delete removes row id and reports whether it existed.
func (r *Repository[T]) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.ex.Execute(ctx, r.entity.DeleteSQL(), id)
	if err != nil {
		return false, fmt.Errorf("delete %s %d: %w", r.entity.Table(), id, err)
	}
	return res.Changes > 0, nil
}

// Count returns the number of rows matching the whitelisted filters.
func (r *Repository[T]) Count(ctx context.Context, filters map[string]interface{}) (int, error) {
	sql, args := r.entity.ValidateFilters(filters).CountSQL()
	var total int
	if _, err := r.ex.QueryOne(ctx, &total, sql, args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", r.entity.Table(), err)
	}
	return total, nil
}
