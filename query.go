// query.go
// ---------
// Builds Method's OData-like query strings from structured parameters.
// Filter and aggregation expressions belong to the remote grammar and pass
// through verbatim; the only transformation applied is the percent-encoding
// url.Values performs. Page bounds are validated locally before anything is
// sent.
package methodmcp

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Top must stay inside this range; the API rejects anything larger anyway.
const (
	MinTop = 1
	MaxTop = 1000
)

// Query holds the structured parameters for a list or aggregation request.
// Zero values mean "not set"; Top <= 0 omits $top and Skip < 0 is invalid.
type Query struct {
	Filter    string // boolean predicate, e.g. "Status eq 'Active' and Email ne null"
	Select    string // comma-separated field list
	OrderBy   string // field with optional direction, e.g. "CreatedDate desc"
	Expand    string // comma-separated related tables
	Aggregate string // $apply expression, e.g. "groupby((Status),aggregate($count as Total))"
	Top       int
	Skip      int
}

// Values renders the query into url.Values, or a ValidationError failure
// when the page bounds are out of range.
func (q Query) Values() (url.Values, *Failure) {
	if q.Top != 0 && (q.Top < MinTop || q.Top > MaxTop) {
		return nil, &Failure{
			Kind:       ErrValidation,
			Message:    fmt.Sprintf("top must be between %d and %d, got %d", MinTop, MaxTop, q.Top),
			Suggestion: fmt.Sprintf("Pass a top value in [%d, %d], or omit it to use the API default.", MinTop, MaxTop),
		}
	}
	if q.Skip < 0 {
		return nil, &Failure{
			Kind:       ErrValidation,
			Message:    fmt.Sprintf("skip must not be negative, got %d", q.Skip),
			Suggestion: "Pass a skip value of 0 or more.",
		}
	}

	v := url.Values{}
	if q.Filter != "" {
		v.Set("$filter", q.Filter)
	}
	if q.Select != "" {
		v.Set("$select", q.Select)
	}
	if q.OrderBy != "" {
		v.Set("$orderby", q.OrderBy)
	}
	if q.Expand != "" {
		v.Set("$expand", q.Expand)
	}
	if q.Aggregate != "" {
		v.Set("$apply", q.Aggregate)
	}
	if q.Top > 0 {
		v.Set("$top", strconv.Itoa(q.Top))
	}
	if q.Skip > 0 {
		v.Set("$skip", strconv.Itoa(q.Skip))
	}
	return v, nil
}

// AggregateOnly reports whether the query is a pure aggregation with no
// page bounds; those bypass the pagination loop entirely.
func (q Query) AggregateOnly() bool {
	return q.Aggregate != "" && q.Top == 0 && q.Skip == 0
}

// FilterFromMap converts a map of field filters into a filter expression.
// Operators ride on the key as a double-underscore suffix:
//
//	{"name": "John", "age__gt": 25} -> "age gt 25 and name eq 'John'"
//
// Supported suffixes: gt, gte, lt, lte, ne, contains, startswith, endswith;
// a bare key means equality. Keys are emitted in sorted order so the output
// is deterministic.
func FilterFromMap(filters map[string]any) string {
	if len(filters) == 0 {
		return ""
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	exprs := make([]string, 0, len(keys))
	for _, key := range keys {
		field, op := splitFilterKey(key)
		exprs = append(exprs, filterExpr(field, op, filters[key]))
	}
	return strings.Join(exprs, " and ")
}

var filterOps = map[string]string{
	"gt":         "gt",
	"gte":        "ge",
	"lt":         "lt",
	"lte":        "le",
	"ne":         "ne",
	"contains":   "contains",
	"startswith": "startswith",
	"endswith":   "endswith",
}

func splitFilterKey(key string) (field, op string) {
	if i := strings.LastIndex(key, "__"); i > 0 {
		if mapped, ok := filterOps[key[i+2:]]; ok {
			return key[:i], mapped
		}
	}
	return key, "eq"
}

func filterExpr(field, op string, value any) string {
	switch v := value.(type) {
	case nil:
		return fmt.Sprintf("%s eq null", field)
	case bool:
		return fmt.Sprintf("%s eq %t", field, v)
	case string:
		// String predicates use function call syntax.
		if op == "contains" || op == "startswith" || op == "endswith" {
			return fmt.Sprintf("%s(%s, '%s')", op, field, v)
		}
		return fmt.Sprintf("%s %s '%s'", field, op, v)
	default:
		return fmt.Sprintf("%s %s %v", field, op, v)
	}
}
