package normalize

import (
	"errors"
	"fmt"

	"github.com/aretw0/transferdesk/pkg/domain"
)

var (
	// ErrMissingID is returned when an entity has no usable id.
	ErrMissingID = errors.New("entity has no id")
	// ErrNoEntities is returned by FromData when no wrapper key is present.
	ErrNoEntities = errors.New("no entities in payload")
)

// actionOrder is the publish order of entity updates: referenced entities
// land in the store before the entities that point at them.
var actionOrder = []struct {
	entity domain.EntityType
	action domain.ActionType
}{
	{domain.EntityUsers, domain.UpdateUserList},
	{domain.EntityCreditTransfers, domain.UpdateCreditTransferList},
	{domain.EntityTransferAccounts, domain.UpdateTransferAccounts},
}

// Result holds the flattened tables and the ids of the top-level entities.
type Result struct {
	Entities map[domain.EntityType]domain.Table
	IDs      []string
}

// Normalize flattens the input following schema. Nested entities are moved
// into their own tables and replaced by their ids. Entities seen twice in one
// payload are shallow-merged, so a transfer present as both a send and a
// receive ends up as a single record.
func Normalize(schema *Schema, in Input) (Result, error) {
	res := Result{Entities: make(map[domain.EntityType]domain.Table)}
	for i, rec := range in.records {
		id, err := res.visit(schema, rec)
		if err != nil {
			return Result{}, fmt.Errorf("%s[%d]: %w", schema.Entity, i, err)
		}
		res.IDs = append(res.IDs, id)
	}
	return res, nil
}

func (r *Result) visit(schema *Schema, rec domain.Record) (string, error) {
	id, ok := rec.ID()
	if !ok {
		return "", ErrMissingID
	}

	flat := make(domain.Record, len(rec))
	for k, v := range rec {
		flat[k] = v
	}

	for _, rel := range schema.Relations {
		raw, ok := rec[rel.Key]
		if !ok || raw == nil {
			continue
		}
		ref, err := r.visitRelation(rel, raw)
		if err != nil {
			return "", fmt.Errorf("%s: %w", rel.Key, err)
		}
		flat[rel.Key] = ref
	}

	table, ok := r.Entities[schema.Entity]
	if !ok {
		table = make(domain.Table)
		r.Entities[schema.Entity] = table
	}
	table.Merge(domain.Table{id: flat})
	return id, nil
}

// visitRelation returns the id (or ids) that replace the nested value.
// Values that are already ids are kept as they are.
func (r *Result) visitRelation(rel Relation, raw any) (any, error) {
	if !rel.Many {
		nested, ok := asRecord(raw)
		if !ok {
			return raw, nil
		}
		return r.visitRef(rel.Schema, nested)
	}

	items, ok := raw.([]any)
	if !ok {
		list, err := asRecords(raw)
		if err != nil {
			return nil, err
		}
		items = make([]any, len(list))
		for i, rec := range list {
			items[i] = rec
		}
	}
	refs := make([]any, 0, len(items))
	for i, item := range items {
		nested, ok := asRecord(item)
		if !ok {
			refs = append(refs, item)
			continue
		}
		ref, err := r.visitRef(rel.Schema, nested)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (r *Result) visitRef(schema *Schema, rec domain.Record) (any, error) {
	if _, err := r.visit(schema, rec); err != nil {
		return nil, err
	}
	return rec[domain.KeyID], nil
}

// Empty reports whether no entity was produced.
func (r Result) Empty() bool {
	for _, t := range r.Entities {
		if len(t) > 0 {
			return false
		}
	}
	return true
}

// Actions returns one update action per populated entity type, users first.
// Types absent from the payload produce no action.
func (r Result) Actions() []domain.Action {
	var out []domain.Action
	for _, entry := range actionOrder {
		table := r.Entities[entry.entity]
		if len(table) == 0 {
			continue
		}
		out = append(out, domain.NewAction(entry.action, domain.EntityUpdate{
			Entity:  entry.entity,
			Records: table.Clone(),
		}))
	}
	return out
}
