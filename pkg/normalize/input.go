package normalize

import (
	"fmt"

	"github.com/aretw0/transferdesk/pkg/domain"
)

// Input is either one entity or a list of entities of the same shape.
// Build it with Single, Many or FromData.
type Input struct {
	records []domain.Record
}

// Single wraps one entity.
func Single(r domain.Record) Input {
	return Input{records: []domain.Record{r}}
}

// Many wraps a list of entities.
func Many(rs []domain.Record) Input {
	return Input{records: rs}
}

// Len returns the number of top-level entities.
func (in Input) Len() int { return len(in.records) }

// FromData picks the list wrapper (pluralKey) or, failing that, the single
// wrapper (singularKey) out of a response "data" object.
func FromData(data domain.Record, singularKey, pluralKey string) (Input, error) {
	if raw, ok := data[pluralKey]; ok && raw != nil {
		list, err := asRecords(raw)
		if err != nil {
			return Input{}, fmt.Errorf("%s: %w", pluralKey, err)
		}
		return Many(list), nil
	}
	if raw, ok := data[singularKey]; ok && raw != nil {
		rec, ok := asRecord(raw)
		if !ok {
			return Input{}, fmt.Errorf("%s: expected an object, got %T", singularKey, raw)
		}
		return Single(rec), nil
	}
	return Input{}, fmt.Errorf("%w: neither %q nor %q present", ErrNoEntities, pluralKey, singularKey)
}

func asRecord(v any) (domain.Record, bool) {
	switch r := v.(type) {
	case domain.Record:
		return r, true
	case map[string]any:
		return domain.Record(r), true
	}
	return nil, false
}

func asRecords(v any) ([]domain.Record, error) {
	switch list := v.(type) {
	case []domain.Record:
		return list, nil
	case []map[string]any:
		out := make([]domain.Record, len(list))
		for i, r := range list {
			out[i] = r
		}
		return out, nil
	case []any:
		out := make([]domain.Record, 0, len(list))
		for i, item := range list {
			rec, ok := asRecord(item)
			if !ok {
				return nil, fmt.Errorf("item %d: expected an object, got %T", i, item)
			}
			out = append(out, rec)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a list, got %T", v)
}
