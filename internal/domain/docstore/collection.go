package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
)

const columns = "id, doc, created_at, updated_at"

// Collection stores documents of type T in the table of the same name.
type Collection[T any, PT Document[T]] struct {
	store     *Store
	name      string
	schema    *Schema
	immutable map[string]bool
	conflicts map[string]string
	notFound  string
}

// CollectionOption configures a Collection at construction.
type CollectionOption func(*collectionConfig)

type collectionConfig struct {
	immutable map[string]bool
	conflicts map[string]string
	notFound  string
}

// Immutable rejects patches that change the named fields once stored.
func Immutable(fields ...string) CollectionOption {
	return func(c *collectionConfig) {
		for _, f := range fields {
			c.immutable[f] = true
		}
	}
}

// ConflictMessage sets the CONFLICT message reported when constraint is violated.
func ConflictMessage(constraint, message string) CollectionOption {
	return func(c *collectionConfig) { c.conflicts[constraint] = message }
}

// NotFoundMessage sets the NOT_FOUND message for lookups that match nothing.
func NotFoundMessage(message string) CollectionOption {
	return func(c *collectionConfig) { c.notFound = message }
}

// NewCollection binds T to table name and compiles T's schema.
func NewCollection[T any, PT Document[T]](store *Store, name string, opts ...CollectionOption) (*Collection[T, PT], error) {
	if !fieldName.MatchString(name) {
		return nil, fmt.Errorf("invalid collection name %q", name)
	}
	cfg := collectionConfig{
		immutable: map[string]bool{},
		conflicts: map[string]string{},
		notFound:  "Document not found",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	schema, err := SchemaFor(PT(new(T)), name)
	if err != nil {
		return nil, err
	}
	return &Collection[T, PT]{
		store:     store,
		name:      name,
		schema:    schema,
		immutable: cfg.immutable,
		conflicts: cfg.conflicts,
		notFound:  cfg.notFound,
	}, nil
}

// Name is the backing table.
func (c *Collection[T, PT]) Name() string {
	return c.name
}

// Create assigns a fresh id, validates and inserts doc, and returns the stored document.
func (c *Collection[T, PT]) Create(ctx context.Context, doc PT, opts ...Option) (PT, error) {
	fields, err := c.fields(doc)
	if err != nil {
		return nil, err
	}
	if err := c.validate(fields); err != nil {
		return nil, err
	}
	var out PT
	err = c.write(ctx, collect(opts), "create", func(ctx context.Context, q Querier) error {
		out, err = c.insert(ctx, q, uuid.NewString(), fields)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindOne returns the first match in insertion order, or NOT_FOUND.
func (c *Collection[T, PT]) FindOne(ctx context.Context, filter Filter, opts ...Option) (PT, error) {
	where, args, err := filter.where(1)
	if err != nil {
		return nil, err
	}
	o := collect(opts)
	ctx, cancel := c.store.withTimeout(ctx)
	defer cancel()

	row := c.querier(o).QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY seq LIMIT 1`, columns, c.name, where),
		args...)
	out, err := c.scan(row)
	if err != nil {
		return nil, c.classify("findOne", err)
	}
	return out, nil
}

// FindMany returns every match in insertion order; Limit and Offset page the result.
func (c *Collection[T, PT]) FindMany(ctx context.Context, filter Filter, opts ...Option) ([]PT, error) {
	where, args, err := filter.where(1)
	if err != nil {
		return nil, err
	}
	o := collect(opts)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY seq`, columns, c.name, where)
	if o.limit > 0 {
		args = append(args, o.limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if o.offset > 0 {
		args = append(args, o.offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	ctx, cancel := c.store.withTimeout(ctx)
	defer cancel()

	rows, err := c.querier(o).Query(ctx, query, args...)
	if err != nil {
		return nil, c.classify("findMany", err)
	}
	defer rows.Close()

	out := make([]PT, 0)
	for rows.Next() {
		doc, err := c.scan(rows)
		if err != nil {
			return nil, c.classify("findMany", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, c.classify("findMany", err)
	}
	return out, nil
}

// Count returns the number of matches.
func (c *Collection[T, PT]) Count(ctx context.Context, filter Filter, opts ...Option) (int64, error) {
	where, args, err := filter.where(1)
	if err != nil {
		return 0, err
	}
	ctx, cancel := c.store.withTimeout(ctx)
	defer cancel()

	var n int64
	err = c.querier(collect(opts)).QueryRow(ctx,
		fmt.Sprintf(`SELECT count(*) FROM %s WHERE %s`, c.name, where),
		args...).Scan(&n)
	if err != nil {
		return 0, c.classify("count", err)
	}
	return n, nil
}

// FindOneAndUpdate locks the first match, applies patch, re-validates and returns the
// updated document. Nothing is written when no document matches.
func (c *Collection[T, PT]) FindOneAndUpdate(ctx context.Context, filter Filter, patch Patch, opts ...Option) (PT, error) {
	changes, err := patch.normalize()
	if err != nil {
		return nil, err
	}
	var out PT
	err = c.write(ctx, collect(opts), "findOneAndUpdate", func(ctx context.Context, q Querier) error {
		id, current, err := c.lock(ctx, q, filter)
		if err != nil {
			return err
		}
		merged, err := c.merge(current, changes)
		if err != nil {
			return err
		}
		out, err = c.update(ctx, q, id, merged)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert updates the first match with doc's fields, or inserts doc seeded with the
// filter's equality fields when nothing matches.
func (c *Collection[T, PT]) Upsert(ctx context.Context, filter Filter, doc PT, opts ...Option) (PT, error) {
	fields, err := c.fields(doc)
	if err != nil {
		return nil, err
	}
	var out PT
	err = c.write(ctx, collect(opts), "upsert", func(ctx context.Context, q Querier) error {
		id, current, err := c.lock(ctx, q, filter)
		switch {
		case err == nil:
			merged, err := c.merge(current, fields)
			if err != nil {
				return err
			}
			out, err = c.update(ctx, q, id, merged)
			return err
		case common.IsKind(err, common.KindNotFound):
			seeded := filter.seed()
			for k, v := range fields {
				seeded[k] = v
			}
			if err := c.validate(seeded); err != nil {
				return err
			}
			newID := uuid.NewString()
			if fid, ok := filter["id"].(string); ok {
				newID = fid
			}
			out, err = c.insert(ctx, q, newID, seeded)
			return err
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteOne removes the first match and returns it, or NOT_FOUND.
func (c *Collection[T, PT]) DeleteOne(ctx context.Context, filter Filter, opts ...Option) (PT, error) {
	where, args, err := filter.where(1)
	if err != nil {
		return nil, err
	}
	var out PT
	err = c.write(ctx, collect(opts), "deleteOne", func(ctx context.Context, q Querier) error {
		row := q.QueryRow(ctx, fmt.Sprintf(
			`DELETE FROM %[1]s WHERE id = (SELECT id FROM %[1]s WHERE %[2]s ORDER BY seq LIMIT 1 FOR UPDATE) RETURNING %[3]s`,
			c.name, where, columns), args...)
		out, err = c.scan(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Collection[T, PT]) querier(o options) Querier {
	if o.tx != nil {
		return o.tx
	}
	return c.store.db
}

// write runs fn in the caller's transaction, or in a new one that is committed
// on success and rolled back on any failure.
func (c *Collection[T, PT]) write(ctx context.Context, o options, op string, fn func(context.Context, Querier) error) error {
	ctx, cancel := c.store.withTimeout(ctx)
	defer cancel()

	if o.tx != nil {
		return c.classify(op, fn(ctx, o.tx))
	}

	tx, err := c.store.db.Begin(ctx)
	if err != nil {
		return c.classify(op, err)
	}
	done := false
	defer func() {
		if !done {
			rollback(ctx, tx)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return c.classify(op, err)
	}
	done = true
	if err := tx.Commit(ctx); err != nil {
		return c.classify(op, err)
	}
	return nil
}

func (c *Collection[T, PT]) classify(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return oops.With("collection", c.name).With("operation", op).Wrap(common.NotFound(c.notFound))
	}
	return classify(c.name, op, err, c.conflicts)
}

// lock selects the first match FOR UPDATE and returns its id and decoded fields.
func (c *Collection[T, PT]) lock(ctx context.Context, q Querier, filter Filter) (string, map[string]any, error) {
	where, args, err := filter.where(1)
	if err != nil {
		return "", nil, err
	}
	var (
		id  string
		raw []byte
	)
	err = q.QueryRow(ctx,
		fmt.Sprintf(`SELECT id, doc FROM %s WHERE %s ORDER BY seq LIMIT 1 FOR UPDATE`, c.name, where),
		args...).Scan(&id, &raw)
	if err != nil {
		return "", nil, c.classify("lock", err)
	}
	current := map[string]any{}
	if err := json.Unmarshal(raw, &current); err != nil {
		return "", nil, common.Unexpected(err, c.name+".decode")
	}
	return id, current, nil
}

// merge overlays changes on current, enforcing immutable fields and the schema.
func (c *Collection[T, PT]) merge(current, changes map[string]any) (map[string]any, error) {
	merged := make(map[string]any, len(current)+len(changes))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range changes {
		if c.immutable[k] {
			if old, exists := current[k]; exists && !reflect.DeepEqual(old, v) {
				return nil, common.InvalidInput("Validation failed", common.FieldErrors{k: "cannot be modified"})
			}
		}
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	if err := c.validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// insert expects fields that already passed validate.
func (c *Collection[T, PT]) insert(ctx context.Context, q Querier, id string, fields map[string]any) (PT, error) {
	encoded, err := json.Marshal(fields)
	if err != nil {
		return nil, common.Unexpected(err, c.name+".encode")
	}
	row := q.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2::jsonb) RETURNING %s`, c.name, columns),
		id, encoded)
	return c.scan(row)
}

func (c *Collection[T, PT]) update(ctx context.Context, q Querier, id string, fields map[string]any) (PT, error) {
	encoded, err := json.Marshal(fields)
	if err != nil {
		return nil, common.Unexpected(err, c.name+".encode")
	}
	row := q.QueryRow(ctx,
		fmt.Sprintf(`UPDATE %s SET doc = $1::jsonb, version = version + 1, updated_at = now() WHERE id = $2 RETURNING %s`, c.name, columns),
		encoded, id)
	return c.scan(row)
}

// validate checks fields plus placeholder metadata against the schema.
func (c *Collection[T, PT]) validate(fields map[string]any) error {
	full := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		full[k] = v
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	full["id"] = uuid.Nil.String()
	full["createdAt"] = now
	full["updatedAt"] = now
	return c.schema.Validate(full)
}

// fields encodes doc without its metadata.
func (c *Collection[T, PT]) fields(doc PT) (map[string]any, error) {
	if doc == nil {
		return nil, common.InvalidInput("Validation failed", common.FieldErrors{"document": "is required"})
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, common.InvalidInput("Validation failed", common.FieldErrors{"document": "is not JSON encodable"})
	}
	out := map[string]any{}
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, common.Unexpected(err, c.name+".encode")
	}
	for k := range metaFields {
		delete(out, k)
	}
	return out, nil
}

func (c *Collection[T, PT]) scan(row pgx.Row) (PT, error) {
	var (
		id                   string
		raw                  []byte
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &raw, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	out := PT(new(T))
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, common.Unexpected(err, c.name+".decode")
	}
	meta := out.Meta()
	meta.ID = id
	meta.CreatedAt = createdAt
	meta.UpdatedAt = updatedAt
	return out, nil
}
