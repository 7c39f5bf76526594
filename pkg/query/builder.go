package query

import (
	"fmt"
	"sort"
	"strings"
)

// Statements are rendered with `?` placeholders; the executor rebinds them per backend.

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (e *Entity) columnList() string {
	names := make([]string, len(e.selectable))
	for i, c := range e.selectable {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// where renders the filter conjunction and the search group. Search columns are cast
// to text so numeric and timestamp fields can be searched on either backend.
func (p Plan) where() (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	for _, pred := range p.predicates {
		clauses = append(clauses, string(pred.col)+" = ?")
		args = append(args, pred.value)
	}
	if p.Search != "" && len(p.searchCols) > 0 {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(p.Search)) + "%"
		group := make([]string, len(p.searchCols))
		for i, c := range p.searchCols {
			group[i] = fmt.Sprintf(`LOWER(CAST(%s AS TEXT)) LIKE ? ESCAPE '\'`, c)
			args = append(args, pattern)
		}
		clauses = append(clauses, "("+strings.Join(group, " OR ")+")")
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// SelectSQL renders the page query. Rows with equal sort keys are ordered by id so
// pages never overlap.
func (p Plan) SelectSQL() (string, []interface{}) {
	where, args := p.where()
	dir := strings.ToUpper(p.SortOrder)

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s%s ORDER BY %s %s", p.entity.columnList(), p.entity.table, where, p.sortCol, dir)
	if p.sortCol != "id" {
		fmt.Fprintf(&b, ", id %s", dir)
	}
	b.WriteString(" LIMIT ? OFFSET ?")
	return b.String(), append(args, p.Limit, p.Offset())
}

// CountSQL renders the total query over the same predicates as SelectSQL.
func (p Plan) CountSQL() (string, []interface{}) {
	where, args := p.where()
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", p.entity.table, where), args
}

// SelectByIDSQL renders a single-row lookup.
func (e *Entity) SelectByIDSQL() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", e.columnList(), e.table)
}

// SelectByFieldSQL renders a lookup on one selectable field.
func (e *Entity) SelectByFieldSQL(field string) (string, error) {
	c, ok := e.selectableSet[field]
	if !ok {
		return "", fmt.Errorf("field %q is not selectable on %s", field, e.table)
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", e.columnList(), e.table, c), nil
}

// DeleteSQL renders a delete by id.
func (e *Entity) DeleteSQL() string {
	return fmt.Sprintf("DELETE FROM %s WHERE id = ?", e.table)
}

type assignment struct {
	col   column
	value interface{}
}

// writes keeps the writable keys of fields in a stable order.
func (e *Entity) writes(fields map[string]interface{}) []assignment {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []assignment
	for _, k := range keys {
		if c, ok := e.writableSet[k]; ok {
			out = append(out, assignment{col: c, value: fields[k]})
		}
	}
	return out
}

// InsertSQL renders an INSERT of the writable subset of fields. ok is false when no
// field is writable.
func (e *Entity) InsertSQL(fields map[string]interface{}) (sql string, args []interface{}, ok bool) {
	set := e.writes(fields)
	if len(set) == 0 {
		return "", nil, false
	}
	cols := make([]string, len(set))
	marks := make([]string, len(set))
	for i, a := range set {
		cols[i] = string(a.col)
		marks[i] = "?"
		args = append(args, a.value)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", e.table, strings.Join(cols, ", "), strings.Join(marks, ", ")), args, true
}

// UpdateSQL renders an UPDATE by id of the writable subset of fields, stamping the
// entity's updated field. ok is false when no field is writable.
func (e *Entity) UpdateSQL(id interface{}, fields map[string]interface{}) (sql string, args []interface{}, ok bool) {
	set := e.writes(fields)
	if len(set) == 0 {
		return "", nil, false
	}
	parts := make([]string, 0, len(set)+1)
	for _, a := range set {
		parts = append(parts, string(a.col)+" = ?")
		args = append(args, a.value)
	}
	if e.updated != "" {
		parts = append(parts, string(e.updated)+" = CURRENT_TIMESTAMP")
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", e.table, strings.Join(parts, ", ")), append(args, id), true
}
