package local

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/julianstephens/habitual/internal/backend"
	"github.com/julianstephens/habitual/internal/constants"
)

var attributePattern = regexp.MustCompile(`^\$?[A-Za-z0-9_]+$`)

// compiled is a list query translated to SQL fragments.
type compiled struct {
	where     []string
	args      []any
	orderBy   []string
	orderArgs []any
	limit     int
}

func invalidQuery(format string, args ...any) error {
	return backend.NewError(400, "general_query_invalid", "Invalid query: "+fmt.Sprintf(format, args...))
}

// column maps an attribute to an SQL expression. System attributes live in
// their own columns; everything else is read out of the JSON body.
func column(attribute string) (string, []any, error) {
	if !attributePattern.MatchString(attribute) {
		return "", nil, invalidQuery("attribute %q not found in schema", attribute)
	}
	switch attribute {
	case "$id":
		return "id", nil, nil
	case "$createdAt":
		return "created_at", nil, nil
	case "$updatedAt":
		return "updated_at", nil, nil
	}
	if strings.HasPrefix(attribute, "$") {
		return "", nil, invalidQuery("attribute %q not found in schema", attribute)
	}
	return "json_extract(data, ?)", []any{"$." + attribute}, nil
}

func compile(queries []backend.Query) (compiled, error) {
	c := compiled{limit: constants.DefaultListLimit}

	for _, q := range queries {
		switch q.Method {
		case backend.MethodLimit:
			if len(q.Values) != 1 {
				return c, invalidQuery("limit takes exactly one value")
			}
			n, ok := toInt(q.Values[0])
			if !ok || n < 0 {
				return c, invalidQuery("limit must be a non-negative integer")
			}
			c.limit = n

		case backend.MethodOrderAsc, backend.MethodOrderDesc:
			expr, args, err := column(q.Attribute)
			if err != nil {
				return c, err
			}
			dir := "ASC"
			if q.Method == backend.MethodOrderDesc {
				dir = "DESC"
			}
			c.orderBy = append(c.orderBy, expr+" "+dir)
			c.orderArgs = append(c.orderArgs, args...)

		case backend.MethodEqual:
			expr, args, err := column(q.Attribute)
			if err != nil {
				return c, err
			}
			if len(q.Values) == 0 {
				return c, invalidQuery("equal requires at least one value")
			}
			placeholders := strings.TrimSuffix(strings.Repeat("?,", len(q.Values)), ",")
			c.where = append(c.where, fmt.Sprintf("%s IN (%s)", expr, placeholders))
			c.args = append(c.args, args...)
			c.args = append(c.args, q.Values...)

		case backend.MethodNotEqual, backend.MethodGreaterThanEqual, backend.MethodLessThan:
			expr, args, err := column(q.Attribute)
			if err != nil {
				return c, err
			}
			if len(q.Values) != 1 {
				return c, invalidQuery("%s takes exactly one value", q.Method)
			}
			op := map[string]string{
				backend.MethodNotEqual:         "!=",
				backend.MethodGreaterThanEqual: ">=",
				backend.MethodLessThan:         "<",
			}[q.Method]
			c.where = append(c.where, fmt.Sprintf("%s %s ?", expr, op))
			c.args = append(c.args, args...)
			c.args = append(c.args, q.Values[0])

		default:
			return c, invalidQuery("method %q is not supported", q.Method)
		}
	}
	return c, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
