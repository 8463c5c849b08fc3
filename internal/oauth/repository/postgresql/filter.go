package postgresql

import (
	"strconv"
	"strings"
)

// whereBuilder accumulates AND-ed conditions with positional $n placeholders.
type whereBuilder struct {
	conditions []string
	args       []any
}

func (w *whereBuilder) add(column string, value any) {
	w.args = append(w.args, value)
	w.conditions = append(w.conditions, column+" = $"+strconv.Itoa(len(w.args)))
}

// next returns the placeholder for an extra trailing argument.
func (w *whereBuilder) next(value any) string {
	w.args = append(w.args, value)
	return "$" + strconv.Itoa(len(w.args))
}

func (w *whereBuilder) clause() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}
