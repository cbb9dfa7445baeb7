package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"dco-creatives/internal/model"
)

var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
	ErrWrongTable    = errors.New("record does not belong to table")
	ErrNotUnique     = errors.New("more than one record matched")
	ErrRelations     = errors.New("relations are not supported")
)

// Result is what every store operation returns. Callers inspect Success;
// no operation returns a Go error or panics past this boundary.
type Result struct {
	Success bool
	Data    []model.Record
	Count   int64
	Err     error
	Message string
}

func ok(data []model.Record, count int64, msg string) Result {
	return Result{Success: true, Data: data, Count: count, Message: msg}
}

func fail(err error, msg string) Result {
	return Result{Err: err, Message: fmt.Sprintf("%s: %v", msg, err)}
}

// First returns the first record, if any.
func (r Result) First() (model.Record, bool) {
	if len(r.Data) == 0 {
		return nil, false
	}
	return r.Data[0], true
}

// As narrows a Result's records to one concrete record type.
func As[T model.Record](r Result) []T {
	out := make([]T, 0, len(r.Data))
	for _, rec := range r.Data {
		if t, ok := rec.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// Patch maps column names to new values.
type Patch map[string]any

type FindOptions struct {
	Filter       sq.Sqlizer
	SelectFields []string
	Relations    []string
	OrderBy      []string
	Limit        uint64
	Offset       uint64
	ExpectUnique bool
	ExpectFirst  bool
}

type Store interface {
	Create(ctx context.Context, rec model.Record) Result
	Update(ctx context.Context, table model.Table, filter sq.Sqlizer, patch Patch) Result
	Upsert(ctx context.Context, filter sq.Sqlizer, create, update model.Record) Result
	DeleteMany(ctx context.Context, table model.Table, filter sq.Sqlizer) Result
	Find(ctx context.Context, table model.Table, opts FindOptions) Result
	Count(ctx context.Context, table model.Table, filter sq.Sqlizer) Result
}

type pgStore struct {
	pg *Postgres
}

func New(pg *Postgres) Store {
	return &pgStore{pg: pg}
}

// guard converts a panic inside an operation into a failed Result.
func guard(res *Result, op string) {
	if r := recover(); r != nil {
		*res = fail(fmt.Errorf("panic: %v", r), op)
	}
}

func (s *pgStore) Create(ctx context.Context, rec model.Record) (res Result) {
	defer guard(&res, "create")
	c, err := codecFor(rec.Table())
	if err != nil {
		return fail(err, "create")
	}
	out, err := s.insert(ctx, c, rec)
	if err != nil {
		return fail(err, "create "+string(c.table()))
	}
	return ok([]model.Record{out}, 1, "created")
}

func (s *pgStore) insert(ctx context.Context, c codec, rec model.Record) (model.Record, error) {
	values, err := c.encode(rec)
	if err != nil {
		return nil, err
	}
	query, args, err := s.pg.Builder.Insert(string(c.table())).
		SetMap(values).
		Suffix("RETURNING " + strings.Join(c.columns(), ", ")).
		ToSql()
	if err != nil {
		return nil, err
	}
	return c.decode(c.columns(), s.pg.executor(ctx).QueryRow(ctx, query, args...))
}

func (s *pgStore) Update(ctx context.Context, table model.Table, filter sq.Sqlizer, patch Patch) (res Result) {
	defer guard(&res, "update")
	c, err := codecFor(table)
	if err != nil {
		return fail(err, "update")
	}
	query, args, err := updateQuery(s.pg.Builder, c, filter, patch)
	if err != nil {
		return fail(err, "update "+string(table))
	}
	tag, err := s.pg.executor(ctx).Exec(ctx, query, args...)
	if err != nil {
		return fail(err, "update "+string(table))
	}
	return ok(nil, tag.RowsAffected(), fmt.Sprintf("%d rows updated", tag.RowsAffected()))
}

func updateQuery(b sq.StatementBuilderType, c codec, filter sq.Sqlizer, patch Patch) (string, []any, error) {
	if len(patch) == 0 {
		return "", nil, errors.New("empty patch")
	}
	set := make(map[string]any, len(patch)+1)
	for col, v := range patch {
		enc, err := c.encodeValue(col, v)
		if err != nil {
			return "", nil, err
		}
		set[col] = enc
	}
	if hasColumn(c, colUpdated) {
		set[colUpdated] = sq.Expr("now()")
	}
	q := b.Update(string(c.table())).SetMap(set)
	if filter != nil {
		q = q.Where(filter)
	}
	return q.ToSql()
}

func (s *pgStore) Upsert(ctx context.Context, filter sq.Sqlizer, create, update model.Record) (res Result) {
	defer guard(&res, "upsert")
	if create.Table() != update.Table() {
		return fail(ErrWrongTable, "upsert")
	}
	c, err := codecFor(create.Table())
	if err != nil {
		return fail(err, "upsert")
	}
	var out model.Record
	err = s.pg.WithinTransaction(ctx, func(ctx context.Context) error {
		query, args, err := s.pg.Builder.Select(colID).From(string(c.table())).
			Where(filter).Limit(1).Suffix("FOR UPDATE").ToSql()
		if err != nil {
			return err
		}
		var id uuid.UUID
		err = s.pg.executor(ctx).QueryRow(ctx, query, args...).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			out, err = s.insert(ctx, c, create)
			return err
		}
		if err != nil {
			return err
		}
		values, err := c.encode(update)
		if err != nil {
			return err
		}
		delete(values, colID)
		delete(values, colCreated)
		if hasColumn(c, colUpdated) {
			values[colUpdated] = sq.Expr("now()")
		}
		query, args, err = s.pg.Builder.Update(string(c.table())).
			SetMap(values).
			Where(sq.Eq{colID: id}).
			Suffix("RETURNING " + strings.Join(c.columns(), ", ")).
			ToSql()
		if err != nil {
			return err
		}
		out, err = c.decode(c.columns(), s.pg.executor(ctx).QueryRow(ctx, query, args...))
		return err
	})
	if err != nil {
		return fail(err, "upsert "+string(c.table()))
	}
	return ok([]model.Record{out}, 1, "upserted")
}

func (s *pgStore) DeleteMany(ctx context.Context, table model.Table, filter sq.Sqlizer) (res Result) {
	defer guard(&res, "delete")
	c, err := codecFor(table)
	if err != nil {
		return fail(err, "delete")
	}
	if filter == nil {
		return fail(errors.New("refusing to delete without a filter"), "delete "+string(table))
	}
	query, args, err := s.pg.Builder.Delete(string(c.table())).Where(filter).ToSql()
	if err != nil {
		return fail(err, "delete "+string(table))
	}
	tag, err := s.pg.executor(ctx).Exec(ctx, query, args...)
	if err != nil {
		return fail(err, "delete "+string(table))
	}
	return ok(nil, tag.RowsAffected(), fmt.Sprintf("%d rows deleted", tag.RowsAffected()))
}

func (s *pgStore) Find(ctx context.Context, table model.Table, opts FindOptions) (res Result) {
	defer guard(&res, "find")
	c, err := codecFor(table)
	if err != nil {
		return fail(err, "find")
	}
	cols, query, args, err := findQuery(s.pg.Builder, c, opts)
	if err != nil {
		return fail(err, "find "+string(table))
	}
	rows, err := s.pg.executor(ctx).Query(ctx, query, args...)
	if err != nil {
		return fail(err, "find "+string(table))
	}
	defer rows.Close()

	var data []model.Record
	for rows.Next() {
		rec, err := c.decode(cols, rows)
		if err != nil {
			return fail(err, "find "+string(table))
		}
		data = append(data, rec)
	}
	if err := rows.Err(); err != nil {
		return fail(err, "find "+string(table))
	}
	if opts.ExpectUnique && len(data) > 1 {
		return fail(ErrNotUnique, "find "+string(table))
	}
	return ok(data, int64(len(data)), fmt.Sprintf("%d rows found", len(data)))
}

func findQuery(b sq.StatementBuilderType, c codec, opts FindOptions) ([]string, string, []any, error) {
	if len(opts.Relations) > 0 {
		return nil, "", nil, fmt.Errorf("%w: %s", ErrRelations, strings.Join(opts.Relations, ", "))
	}
	cols := opts.SelectFields
	if len(cols) == 0 {
		cols = c.columns()
	}
	if err := checkColumns(c, cols); err != nil {
		return nil, "", nil, err
	}
	q := b.Select(cols...).From(string(c.table()))
	if opts.Filter != nil {
		q = q.Where(opts.Filter)
	}
	if len(opts.OrderBy) > 0 {
		q = q.OrderBy(opts.OrderBy...)
	}
	switch {
	case opts.ExpectFirst:
		q = q.Limit(1)
	case opts.ExpectUnique:
		q = q.Limit(2)
	case opts.Limit > 0:
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	query, args, err := q.ToSql()
	return cols, query, args, err
}

func (s *pgStore) Count(ctx context.Context, table model.Table, filter sq.Sqlizer) (res Result) {
	defer guard(&res, "count")
	c, err := codecFor(table)
	if err != nil {
		return fail(err, "count")
	}
	q := s.pg.Builder.Select("count(*)").From(string(c.table()))
	if filter != nil {
		q = q.Where(filter)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return fail(err, "count "+string(table))
	}
	var n int64
	if err := s.pg.executor(ctx).QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return fail(err, "count "+string(table))
	}
	return ok(nil, n, fmt.Sprintf("%d rows", n))
}

func hasColumn(c codec, col string) bool {
	return slices.Contains(c.columns(), col)
}
