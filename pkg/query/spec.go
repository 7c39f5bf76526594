package query

import (
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Pagination bounds.
const (
	DefaultLimit = 10
	MaxLimit     = 100
	DefaultPage  = 1
)

// Sort orders.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Spec is a caller-supplied, untrusted list request. Zero values mean "not given".
type Spec struct {
	Page         int
	Limit        int
	SortBy       string
	SortOrder    string
	Search       string
	SearchFields []string
	Filters      map[string]interface{}
}

var reservedParams = map[string]bool{
	"page": true, "limit": true, "sortBy": true, "sortOrder": true,
	"search": true, "searchFields": true,
}

// ParseSpec reads a Spec from query-string values. Non-numeric page and limit are
// treated as absent. Every other parameter becomes a filter candidate; the Entity
// decides which survive.
func ParseSpec(values url.Values) Spec {
	spec := Spec{
		Page:      atoi(values.Get("page")),
		Limit:     atoi(values.Get("limit")),
		SortBy:    values.Get("sortBy"),
		SortOrder: values.Get("sortOrder"),
		Search:    values.Get("search"),
	}
	if raw := values.Get("searchFields"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				spec.SearchFields = append(spec.SearchFields, f)
			}
		}
	}
	for key, vals := range values {
		if reservedParams[key] || len(vals) == 0 {
			continue
		}
		if spec.Filters == nil {
			spec.Filters = map[string]interface{}{}
		}
		spec.Filters[key] = vals[0]
	}
	return spec
}

func atoi(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

type predicate struct {
	col   column
	value interface{}
}

// Plan is the validated form of a Spec. Only an Entity can build one.
type Plan struct {
	entity *Entity

	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Search    string
	// Filters holds the retained filters keyed by field.
	Filters map[string]interface{}

	sortCol    column
	predicates []predicate
	searchCols []column
}

// Offset is the row offset of the plan's page.
func (p Plan) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Validate sanitises spec against the entity whitelist. It never fails: invalid input is
// clamped or replaced by defaults.
func (e *Entity) Validate(spec Spec) Plan {
	plan := Plan{
		entity:    e,
		Page:      spec.Page,
		Limit:     spec.Limit,
		SortOrder: SortDesc,
	}

	if plan.Page < 1 {
		plan.Page = DefaultPage
	}
	switch {
	case plan.Limit == 0:
		plan.Limit = DefaultLimit
	case plan.Limit < 1:
		plan.Limit = 1
	case plan.Limit > MaxLimit:
		plan.Limit = MaxLimit
	}

	plan.sortCol = e.sortable[0]
	if c, ok := e.sortableSet[spec.SortBy]; ok {
		plan.sortCol = c
	}
	plan.SortBy = string(plan.sortCol)
	if strings.EqualFold(spec.SortOrder, SortAsc) {
		plan.SortOrder = SortAsc
	}

	plan.predicates, plan.Filters = e.filters(spec.Filters)

	if term := strings.TrimSpace(spec.Search); term != "" {
		fields := spec.SearchFields
		if len(fields) == 0 {
			for _, c := range e.searchable {
				fields = append(fields, string(c))
			}
		}
		seen := map[column]bool{}
		for _, f := range fields {
			if c, ok := e.selectableSet[f]; ok && !seen[c] {
				seen[c] = true
				plan.searchCols = append(plan.searchCols, c)
			}
		}
		if len(plan.searchCols) > 0 {
			plan.Search = term
		}
	}
	return plan
}

// ValidateFilters builds a plan that only carries filters, for counting.
func (e *Entity) ValidateFilters(filters map[string]interface{}) Plan {
	return e.Validate(Spec{Filters: filters})
}

func (e *Entity) filters(raw map[string]interface{}) ([]predicate, map[string]interface{}) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var preds []predicate
	kept := map[string]interface{}{}
	for _, k := range keys {
		c, ok := e.selectableSet[k]
		if !ok {
			continue
		}
		v, ok := scalar(raw[k])
		if !ok {
			continue
		}
		preds = append(preds, predicate{col: c, value: v})
		kept[k] = v
	}
	return preds, kept
}

// scalar reports whether v is usable as an equality operand. nil, empty strings and
// composite values are dropped.
func scalar(v interface{}) (interface{}, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case string:
		return t, t != ""
	case time.Time:
		return t, true
	case *string:
		if t == nil || *t == "" {
			return nil, false
		}
		return *t, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v, true
	}
	return nil, false
}
