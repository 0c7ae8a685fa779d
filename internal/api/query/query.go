// Package query translates raw HTTP query strings into filtered, sorted,
// field-selected and paginated SQL. Each resource declares a Spec naming the
// fields clients may touch; anything outside the spec is dropped, which
// doubles as the injection and parameter-pollution guard.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
	// maxLimit caps client-supplied page sizes.
	maxLimit = 500
)

// controlKeys are stripped from the filter set before predicates are built.
var controlKeys = map[string]struct{}{
	"page":   {},
	"sort":   {},
	"limit":  {},
	"fields": {},
}

// comparison operators accepted inside bracket keys, e.g. price[gte]=500.
var operators = map[string]string{
	"gte": ">=",
	"gt":  ">",
	"lte": "<=",
	"lt":  "<",
}

// Spec declares the queryable surface of one resource.
type Spec struct {
	// Table is the relation the descriptor selects from.
	Table string
	// Columns maps exposed API field names to column names. Only fields
	// listed here may be filtered, sorted or selected.
	Columns map[string]string
	// Selectable is the default projection, in output order.
	Selectable []string
	// DefaultSort is applied when the request carries no sort key,
	// e.g. "-createdAt".
	DefaultSort string
}

// Filter is one predicate: column <op> value.
type Filter struct {
	Column string
	Op     string
	Value  any
}

// Sort is one ordering term.
type Sort struct {
	Column string
	Desc   bool
}

// Descriptor is the parsed, validated representation of a query-string
// request. Build* render it to SQL; parsing happens exactly once, so there
// is no stage-ordering hazard.
type Descriptor struct {
	spec    Spec
	Filters []Filter
	Sorts   []Sort
	Fields  []string // selected columns; nil means the spec default
	Page    int
	Limit   int
	Offset  int
}

// Parse builds a Descriptor from raw query values against spec.
func Parse(values url.Values, spec Spec) *Descriptor {
	d := &Descriptor{spec: spec}

	for key, vals := range values {
		if _, control := controlKeys[key]; control {
			continue
		}
		if len(vals) == 0 {
			continue
		}
		// First value wins; repeated keys are parameter pollution.
		value := vals[0]

		field, op := splitOperator(key)
		column, ok := spec.Columns[field]
		if !ok {
			// Unknown fields (including malformed operator keys, which
			// keep their brackets) fall outside the spec and are dropped.
			continue
		}
		d.Filters = append(d.Filters, Filter{Column: column, Op: op, Value: typedValue(value)})
	}

	d.parseSort(values.Get("sort"))
	d.parseFields(values.Get("fields"))
	d.paginate(values.Get("page"), values.Get("limit"))

	return d
}

// splitOperator extracts a recognized comparison operator from a bracket
// key. Keys with unrecognized brackets are returned verbatim so they miss
// the whitelist instead of silently matching a field.
func splitOperator(key string) (field, op string) {
	open := strings.IndexByte(key, '[')
	if open > 0 && strings.HasSuffix(key, "]") {
		if sqlOp, ok := operators[key[open+1:len(key)-1]]; ok {
			return key[:open], sqlOp
		}
	}
	return key, "="
}

// typedValue converts a raw string into a value pgx can bind against
// numeric and boolean columns.
func typedValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func (d *Descriptor) parseSort(raw string) {
	if raw == "" {
		raw = d.spec.DefaultSort
	}
	for _, term := range strings.Split(raw, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		desc := strings.HasPrefix(term, "-")
		field := strings.TrimPrefix(term, "-")
		column, ok := d.spec.Columns[field]
		if !ok {
			continue
		}
		d.Sorts = append(d.Sorts, Sort{Column: column, Desc: desc})
	}
}

func (d *Descriptor) parseFields(raw string) {
	if raw == "" {
		return
	}
	seen := map[string]struct{}{}
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		column, ok := d.spec.Columns[field]
		if !ok {
			continue
		}
		if _, dup := seen[column]; dup {
			continue
		}
		seen[column] = struct{}{}
		d.Fields = append(d.Fields, column)
	}
}

func (d *Descriptor) paginate(rawPage, rawLimit string) {
	d.Page = positiveInt(rawPage, DefaultPage)
	d.Limit = positiveInt(rawLimit, DefaultLimit)
	if d.Limit > maxLimit {
		d.Limit = maxLimit
	}
	d.Offset = (d.Page - 1) * d.Limit
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// Columns returns the projection for the final SELECT.
func (d *Descriptor) Columns() []string {
	if len(d.Fields) > 0 {
		return d.Fields
	}
	return d.spec.Selectable
}

// Scope is a pre-bound ambient predicate, e.g. restricting reviews to one
// tour on nested routes.
type Scope struct {
	Column string
	Value  any
}

// BuildSelect renders the full SELECT statement with positional arguments.
func (d *Descriptor) BuildSelect(scope *Scope) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(d.Columns(), ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(d.spec.Table)

	args := d.writeWhere(&sb, scope)

	if len(d.Sorts) > 0 {
		terms := make([]string, 0, len(d.Sorts))
		for _, s := range d.Sorts {
			if s.Desc {
				terms = append(terms, s.Column+" DESC")
			} else {
				terms = append(terms, s.Column+" ASC")
			}
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(terms, ", "))
	}

	sb.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2))
	args = append(args, d.Limit, d.Offset)

	return sb.String(), args
}

// BuildCount renders the matching COUNT query (no paging, no ordering).
func (d *Descriptor) BuildCount(scope *Scope) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.WriteString(d.spec.Table)
	args := d.writeWhere(&sb, scope)
	return sb.String(), args
}

func (d *Descriptor) writeWhere(sb *strings.Builder, scope *Scope) []any {
	var args []any
	var preds []string

	if scope != nil {
		args = append(args, scope.Value)
		preds = append(preds, fmt.Sprintf("%s = $%d", scope.Column, len(args)))
	}
	for _, f := range d.Filters {
		args = append(args, f.Value)
		preds = append(preds, fmt.Sprintf("%s %s $%d", f.Column, f.Op, len(args)))
	}
	if len(preds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(preds, " AND "))
	}
	return args
}
