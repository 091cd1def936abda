package backend

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Fields is a JSON-shaped document body.
type Fields map[string]any

// Document is one stored record. Seq is the store's arrival order and breaks
// ordering ties.
type Document struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	Seq    int64  `json:"seq"`
	Fields Fields `json:"fields"`
}

// ServerTimestamp is replaced by the store's clock at write time.
const ServerTimestamp = "$serverTimestamp"

// TimeLayout is the persisted timestamp form. It is fixed width in UTC so
// that string order equals time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime reads a persisted timestamp. Anything else yields false.
func ParseTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || s == "" || s == ServerTimestamp {
		return time.Time{}, false
	}
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, false
		}
	}
	return t, true
}

// ResolveServerTimestamps returns a copy of f with every ServerTimestamp
// sentinel, at any depth, replaced by now.
func ResolveServerTimestamps(f Fields, now time.Time) Fields {
	stamp := FormatTime(now)
	var walk func(v any) any
	walk = func(v any) any {
		switch x := v.(type) {
		case string:
			if x == ServerTimestamp {
				return stamp
			}
			return x
		case Fields:
			out := make(Fields, len(x))
			for k, vv := range x {
				out[k] = walk(vv)
			}
			return out
		case map[string]any:
			out := make(map[string]any, len(x))
			for k, vv := range x {
				out[k] = walk(vv)
			}
			return out
		case []any:
			out := make([]any, len(x))
			for i, vv := range x {
				out[i] = walk(vv)
			}
			return out
		default:
			return v
		}
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = walk(v)
	}
	return out
}

// Lookup resolves a dotted field path such as "lastMessage.sentAt".
func (f Fields) Lookup(path string) (any, bool) {
	var cur any = map[string]any(f)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the string at path, or "".
func (f Fields) String(path string) string {
	v, _ := f.Lookup(path)
	s, _ := v.(string)
	return s
}

// Strings returns the string list at path.
func (f Fields) Strings(path string) []string {
	v, _ := f.Lookup(path)
	switch x := v.(type) {
	case []string:
		return append([]string(nil), x...)
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Time returns the timestamp at path, or the zero time.
func (f Fields) Time(path string) time.Time {
	v, _ := f.Lookup(path)
	t, _ := ParseTime(v)
	return t
}

// Has reports whether a non-nil value exists at path.
func (f Fields) Has(path string) bool {
	v, ok := f.Lookup(path)
	return ok && v != nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Fields:
		return m, true
	}
	return nil, false
}

// Merge applies patch to a copy of base. A dotted key replaces the nested
// value at that path, creating intermediate objects as needed.
func Merge(base, patch Fields) Fields {
	out := deepCopy(base)
	for k, v := range patch {
		parts := strings.Split(k, ".")
		cur := map[string]any(out)
		for _, p := range parts[:len(parts)-1] {
			next, ok := asMap(cur[p])
			if !ok {
				next = map[string]any{}
			} else {
				next = copyMap(next)
			}
			cur[p] = next
			cur = next
		}
		cur[parts[len(parts)-1]] = v
	}
	return out
}

func deepCopy(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		if m, ok := asMap(v); ok {
			out[k] = copyMap(m)
			continue
		}
		out[k] = v
	}
	return out
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if mm, ok := asMap(v); ok {
			out[k] = copyMap(mm)
			continue
		}
		out[k] = v
	}
	return out
}

// Op is a filter operator.
type Op string

const (
	OpEqual         Op = "=="
	OpArrayContains Op = "array-contains"
)

// Filter restricts a query to documents whose Field satisfies Op against Value.
type Filter struct {
	Field string `json:"field"`
	Op    Op     `json:"op"`
	Value any    `json:"value"`
}

// Query selects documents from one collection. OrderBy is a dotted field;
// documents missing it sort first in ascending order. Ties keep arrival
// order.
type Query struct {
	Collection string   `json:"collection"`
	Filters    []Filter `json:"filters,omitempty"`
	OrderBy    string   `json:"orderBy,omitempty"`
	Desc       bool     `json:"desc,omitempty"`
	Limit      int      `json:"limit,omitempty"`
}

// Where returns a copy of q with an added filter.
func (q Query) Where(field string, op Op, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: value})
	return q
}

// Validate checks the collection path and filters.
func (q Query) Validate() error {
	if !ValidCollection(q.Collection) {
		return fmt.Errorf("%w: collection %q", ErrInvalidQuery, q.Collection)
	}
	for _, f := range q.Filters {
		if f.Field == "" {
			return fmt.Errorf("%w: empty filter field", ErrInvalidQuery)
		}
		switch f.Op {
		case OpEqual, OpArrayContains:
		default:
			return fmt.Errorf("%w: unsupported operator %q", ErrInvalidQuery, f.Op)
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	}
	return nil
}

// Matches reports whether f satisfies every filter.
func (q Query) Matches(f Fields) bool {
	for _, flt := range q.Filters {
		v, ok := f.Lookup(flt.Field)
		if !ok {
			return false
		}
		switch flt.Op {
		case OpEqual:
			if !valuesEqual(v, flt.Value) {
				return false
			}
		case OpArrayContains:
			found := false
			switch arr := v.(type) {
			case []any:
				for _, e := range arr {
					if valuesEqual(e, flt.Value) {
						found = true
						break
					}
				}
			case []string:
				for _, e := range arr {
					if valuesEqual(e, flt.Value) {
						found = true
						break
					}
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Run filters, orders and limits docs, which must be in arrival order.
func (q Query) Run(docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if q.Matches(d.Fields) {
			out = append(out, d)
		}
	}
	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a, aok := out[i].Fields.Lookup(q.OrderBy)
			b, bok := out[j].Fields.Lookup(q.OrderBy)
			c := compareValues(a, aok, b, bok)
			if c == 0 {
				return out[i].Seq < out[j].Seq
			}
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case nil:
		return b == nil
	}
	return false
}

// compareValues orders missing < numbers < strings. Strings compare
// bytewise, which is time order for persisted timestamps.
func compareValues(a any, aok bool, b any, bok bool) int {
	if !aok || a == nil {
		if !bok || b == nil {
			return 0
		}
		return -1
	}
	if !bok || b == nil {
		return 1
	}
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	switch {
	case aNum && bNum:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
