// Package query turns untrusted list requests into bounded, whitelist-checked plans and
// renders them to SQL. Identifiers reach a statement only after passing through an
// Entity, so a caller cannot splice an arbitrary string into the generated SQL.
package query

import (
	"fmt"
	"regexp"
)

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// column is a vetted SQL identifier. It is unexported so values can only be
// produced from an Entity's whitelist.
type column string

// EntityConfig declares the whitelist for one table.
type EntityConfig struct {
	Table string
	// SelectableFields are the columns read back for each row. They must include "id".
	SelectableFields []string
	// SortableFields must be non-empty; the first entry is the fallback sort.
	SortableFields   []string
	SearchableFields []string
	// WritableFields limits Create and Update. Defaults to SelectableFields minus "id".
	WritableFields []string
	// UpdatedField is stamped with the current time on Update when set.
	UpdatedField string
}

// Entity is a compiled EntityConfig.
type Entity struct {
	table      column
	selectable []column
	sortable   []column
	searchable []column
	writable   []column
	updated    column

	selectableSet map[string]column
	sortableSet   map[string]column
	writableSet   map[string]column
}

// NewEntity checks every identifier in cfg and compiles it.
func NewEntity(cfg EntityConfig) (*Entity, error) {
	e := &Entity{
		selectableSet: map[string]column{},
		sortableSet:   map[string]column{},
		writableSet:   map[string]column{},
	}

	if !identifierPattern.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid table name %q", cfg.Table)
	}
	e.table = column(cfg.Table)

	for _, f := range cfg.SelectableFields {
		if !identifierPattern.MatchString(f) {
			return nil, fmt.Errorf("invalid selectable field %q", f)
		}
		e.selectable = append(e.selectable, column(f))
		e.selectableSet[f] = column(f)
	}
	if _, ok := e.selectableSet["id"]; !ok {
		return nil, fmt.Errorf("table %s: selectable fields must include id", cfg.Table)
	}

	if len(cfg.SortableFields) == 0 {
		return nil, fmt.Errorf("table %s: at least one sortable field is required", cfg.Table)
	}
	for _, f := range cfg.SortableFields {
		c, ok := e.selectableSet[f]
		if !ok {
			return nil, fmt.Errorf("table %s: sortable field %q is not selectable", cfg.Table, f)
		}
		e.sortable = append(e.sortable, c)
		e.sortableSet[f] = c
	}

	for _, f := range cfg.SearchableFields {
		c, ok := e.selectableSet[f]
		if !ok {
			return nil, fmt.Errorf("table %s: searchable field %q is not selectable", cfg.Table, f)
		}
		e.searchable = append(e.searchable, c)
	}

	writable := cfg.WritableFields
	if writable == nil {
		writable = cfg.SelectableFields
	}
	for _, f := range writable {
		if f == "id" {
			continue
		}
		c, ok := e.selectableSet[f]
		if !ok {
			return nil, fmt.Errorf("table %s: writable field %q is not selectable", cfg.Table, f)
		}
		e.writable = append(e.writable, c)
		e.writableSet[f] = c
	}

	if cfg.UpdatedField != "" {
		if !identifierPattern.MatchString(cfg.UpdatedField) {
			return nil, fmt.Errorf("invalid updated field %q", cfg.UpdatedField)
		}
		e.updated = column(cfg.UpdatedField)
	}
	return e, nil
}

// MustEntity is like NewEntity but panics on an invalid config. It is meant for
// package-level entity declarations.
func MustEntity(cfg EntityConfig) *Entity {
	e, err := NewEntity(cfg)
	if err != nil {
		panic(err)
	}
	return e
}

// Table returns the table name.
func (e *Entity) Table() string { return string(e.table) }

// DefaultSort returns the fallback sort field.
func (e *Entity) DefaultSort() string { return string(e.sortable[0]) }
