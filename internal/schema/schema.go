// Package schema enforces per-stream field contracts before rows reach a
// store adapter. It is the chokepoint that keeps native temporal objects from
// leaking across the JSON-bound persistence boundary.
package schema

import (
	"fmt"

	"github.com/jaydestro/GitHubRepoStats/internal/domain"
)

// Violation reasons.
const (
	ReasonMissingField = "missing field"
	ReasonWrongType    = "wrong type"
)

// Violation rejects a whole stream batch: one bad row fails the batch, not
// just the row.
type Violation struct {
	Stream string
	Field  string
	Reason string
	Row    domain.Document
}

func (v *Violation) Error() string {
	return fmt.Sprintf("schema violation in %s: %s %q (row %v)", v.Stream, v.Reason, v.Field, v.Row)
}

// Validate checks every row of a batch against the stream's required-field
// table and type contract, failing fast on the first violation. Date and
// identity fields must be strings; metric fields must be non-negative numbers.
func Validate(sp domain.StreamSpec, docs []domain.Document) error {
	for _, doc := range docs {
		for _, field := range sp.Required {
			v, ok := doc[field]
			if !ok || v == nil {
				return &Violation{Stream: sp.Name, Field: field, Reason: ReasonMissingField, Row: doc}
			}
		}
		for _, field := range append([]string{sp.DateField}, sp.IdentityFields...) {
			v, ok := doc[field]
			if !ok {
				return &Violation{Stream: sp.Name, Field: field, Reason: ReasonMissingField, Row: doc}
			}
			if _, isString := v.(string); !isString {
				return &Violation{Stream: sp.Name, Field: field, Reason: ReasonWrongType, Row: doc}
			}
		}
		for _, field := range sp.Metrics {
			v, ok := doc[field]
			if !ok {
				continue
			}
			n, isNumber := asNumber(v)
			if !isNumber || n < 0 {
				return &Violation{Stream: sp.Name, Field: field, Reason: ReasonWrongType, Row: doc}
			}
		}
	}
	return nil
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
