package storage

import (
	"strings"
	"time"

	"conference/internal/application/listutil"
)

// DateLayout is the text format for timestamps in SQLite columns. Values are stored in UTC.
const DateLayout = "2006-01-02T15:04:05.999999999Z07:00"

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// FormatTime renders t for a TEXT column. The zero time is stored as "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

// ParseTime reverses FormatTime. Unparseable values read as the zero time.
func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(DateLayout, s)
	return t
}

// ListSpec maps admin list parameters onto table columns.
// Only mapped keys reach SQL, so request values never become identifiers.
type ListSpec struct {
	SearchColumns []string
	// FilterColumns and SortColumns map list parameter names to column names.
	FilterColumns map[string]string
	SortColumns   map[string]string
}

// Where builds the WHERE clause (including the keyword) and its arguments.
// POST: Returns "" and nil args when nothing filters the list
func (s ListSpec) Where(q listutil.Query) (string, []any) {
	var conds []string
	var args []any
	if term := strings.TrimSpace(q.Search); term != "" && len(s.SearchColumns) > 0 {
		like := "%" + escapeLike(term) + "%"
		ors := make([]string, len(s.SearchColumns))
		for i, col := range s.SearchColumns {
			ors[i] = col + ` LIKE ? ESCAPE '\'`
			args = append(args, like)
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}
	for key, col := range s.FilterColumns {
		if v, ok := q.Filters[key]; ok && v != "" {
			conds = append(conds, col+" = ?")
			args = append(args, v)
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// OrderBy returns the ORDER BY clause. Unknown or empty sorts fall back to newest first.
func (s ListSpec) OrderBy(q listutil.Query) string {
	col, ok := s.SortColumns[q.Sort]
	if !ok {
		return " ORDER BY created_at DESC, id"
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	return " ORDER BY " + col + " " + dir + ", id"
}

// Page returns the LIMIT/OFFSET clause and its arguments.
func Page(q listutil.Query) (string, []any) {
	if q.Limit <= 0 {
		return "", nil
	}
	return " LIMIT ? OFFSET ?", []any{q.Limit, max(q.Offset, 0)}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
