// Package docstore is the document-store collaborator: a small collection
// oriented API (get, query, list, create) with memory, DynamoDB and Postgres
// adapters.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Collections used by the platform.
const (
	CollectionAdminHospitals  = "adminHospitals"
	CollectionHospitalDoctors = "hospitalDoctors"
	CollectionUsers           = "users"
	CollectionHospitals       = "hospitals"
	CollectionAppointments    = "appointments"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrInvalidCollection is returned for an empty collection name.
	ErrInvalidCollection = errors.New("docstore: collection is required")

	// ErrAlreadyExists is returned by a keyed create when the id is taken.
	ErrAlreadyExists = errors.New("docstore: document already exists")
)

// Document is a stored record with its generated id and server timestamp.
type Document struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Fields     map[string]any `json:"fields"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filter is an equality predicate on a top-level field.
type Filter struct {
	Field string
	Value any
}

// Where builds an equality filter.
func Where(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Store is the document-store collaborator used by every domain package.
type Store interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	List(ctx context.Context, collection string) ([]Document, error)
	Create(ctx context.Context, collection string, fields map[string]any) (*Document, error)
}

// KeyedCreator creates a document under a caller-chosen id and fails with
// ErrAlreadyExists instead of overwriting.
type KeyedCreator interface {
	CreateWithID(ctx context.Context, collection, id string, fields map[string]any) (*Document, error)
}

// CreateKeyed uses the store's keyed create when it has one and falls back
// to Create with a generated id otherwise.
func CreateKeyed(ctx context.Context, store Store, collection, id string, fields map[string]any) (*Document, error) {
	if kc, ok := store.(KeyedCreator); ok {
		return kc.CreateWithID(ctx, collection, id, fields)
	}
	return store.Create(ctx, collection, fields)
}

// String returns the field as a trimmed string, or "" when absent.
func (d *Document) String(key string) string {
	if d == nil {
		return ""
	}
	switch v := d.Fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Float returns a numeric field. Numeric strings are parsed.
func (d *Document) Float(key string) (float64, bool) {
	if d == nil {
		return 0, false
	}
	return toFloat(d.Fields[key])
}

// Int returns a numeric field truncated to int. Strings such as "12 years"
// yield their leading integer, matching parseInt semantics.
func (d *Document) Int(key string) (int, bool) {
	if d == nil {
		return 0, false
	}
	if s, ok := d.Fields[key].(string); ok {
		return leadingInt(s)
	}
	f, ok := toFloat(d.Fields[key])
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Strings returns a list field. A comma separated string is split and
// trimmed; empty entries are dropped.
func (d *Document) Strings(key string) []string {
	if d == nil {
		return nil
	}
	var out []string
	switch v := d.Fields[key].(type) {
	case []string:
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.Split(v, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// Has reports whether the field is present and non-nil.
func (d *Document) Has(key string) bool {
	if d == nil {
		return false
	}
	v, ok := d.Fields[key]
	return ok && v != nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || (end == 0 && (s[end] == '-' || s[end] == '+'))) {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// matches reports whether every filter holds for fields.
func matches(fields map[string]any, filters []Filter) bool {
	for _, f := range filters {
		if !equalValues(fields[f.Field], f.Value) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	if _, isString := a.(string); !isString {
		if fa, ok := toFloat(a); ok {
			if fb, ok := toFloat(b); ok {
				return fa == fb
			}
		}
	}
	return reflect.DeepEqual(a, b)
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func validateCollection(collection string) error {
	if strings.TrimSpace(collection) == "" {
		return ErrInvalidCollection
	}
	return nil
}
