package docstore

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
)

// Filter is a set of equality conditions. The key "id" targets the primary key;
// every other key is matched against the document by JSONB containment.
type Filter map[string]any

// Patch lists fields to set. A nil value removes the field.
type Patch map[string]any

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var metaFields = map[string]bool{"id": true, "createdAt": true, "updatedAt": true}

// ByID is shorthand for Filter{"id": id}.
func ByID(id string) Filter {
	return Filter{"id": id}
}

func malformed(field, reason string) error {
	return common.InvalidInput("Malformed query", common.FieldErrors{field: reason})
}

// where renders f as a predicate whose placeholders start at $start.
func (f Filter) where(start int) (string, []any, error) {
	if len(f) == 0 {
		return "TRUE", nil, nil
	}

	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses []string
	var args []any
	contains := make(map[string]any)
	for _, k := range keys {
		if !fieldName.MatchString(k) {
			return "", nil, malformed(k, "invalid field name")
		}
		if k != "id" {
			contains[k] = f[k]
			continue
		}
		id, ok := f[k].(string)
		if !ok {
			return "", nil, malformed("id", "must be a string")
		}
		if _, err := uuid.Parse(id); err != nil {
			return "", nil, malformed("id", "must be a valid UUID")
		}
		args = append(args, id)
		clauses = append(clauses, fmt.Sprintf("id = $%d", start+len(args)-1))
	}

	if len(contains) > 0 {
		encoded, err := json.Marshal(contains)
		if err != nil {
			return "", nil, malformed("filter", "values must be JSON encodable")
		}
		args = append(args, encoded)
		clauses = append(clauses, fmt.Sprintf("doc @> $%d::jsonb", start+len(args)-1))
	}
	return strings.Join(clauses, " AND "), args, nil
}

// seed returns the filter's document fields, used as the base of an upserted document.
func (f Filter) seed() map[string]any {
	out := make(map[string]any, len(f))
	for k, v := range f {
		if k != "id" {
			out[k] = v
		}
	}
	return out
}

// normalize round-trips p through JSON so values compare like stored ones.
func (p Patch) normalize() (map[string]any, error) {
	for k := range p {
		if !fieldName.MatchString(k) {
			return nil, malformed(k, "invalid field name")
		}
		if metaFields[k] {
			return nil, common.InvalidInput("Validation failed", common.FieldErrors{k: "cannot be modified"})
		}
	}
	encoded, err := json.Marshal(map[string]any(p))
	if err != nil {
		return nil, common.InvalidInput("Validation failed", common.FieldErrors{"patch": "values must be JSON encodable"})
	}
	var out map[string]any
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, common.Unexpected(err, "normalize patch")
	}
	return out, nil
}
