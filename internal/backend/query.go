package backend

import (
	"encoding/json"
	"fmt"
)

// Query methods understood by both providers.
const (
	MethodEqual            = "equal"
	MethodNotEqual         = "notEqual"
	MethodGreaterThanEqual = "greaterThanEqual"
	MethodLessThan         = "lessThan"
	MethodOrderAsc         = "orderAsc"
	MethodOrderDesc        = "orderDesc"
	MethodLimit            = "limit"
)

// Query is one list filter, ordering or pagination clause. It marshals to the
// backend's JSON query syntax.
type Query struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute,omitempty"`
	Values    []any  `json:"values,omitempty"`
}

// Equal matches documents whose attribute equals any of values.
func Equal(attribute string, values ...any) Query {
	return Query{Method: MethodEqual, Attribute: attribute, Values: values}
}

// NotEqual matches documents whose attribute differs from value.
func NotEqual(attribute string, value any) Query {
	return Query{Method: MethodNotEqual, Attribute: attribute, Values: []any{value}}
}

// GreaterThanEqual matches documents whose attribute is >= value.
func GreaterThanEqual(attribute string, value any) Query {
	return Query{Method: MethodGreaterThanEqual, Attribute: attribute, Values: []any{value}}
}

// LessThan matches documents whose attribute is < value.
func LessThan(attribute string, value any) Query {
	return Query{Method: MethodLessThan, Attribute: attribute, Values: []any{value}}
}

// OrderAsc sorts by attribute ascending.
func OrderAsc(attribute string) Query {
	return Query{Method: MethodOrderAsc, Attribute: attribute}
}

// OrderDesc sorts by attribute descending.
func OrderDesc(attribute string) Query {
	return Query{Method: MethodOrderDesc, Attribute: attribute}
}

// Limit caps the number of returned documents.
func Limit(n int) Query {
	return Query{Method: MethodLimit, Values: []any{n}}
}

// String returns the JSON form sent on the wire.
func (q Query) String() string {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Sprintf(`{"method":%q}`, q.Method)
	}
	return string(data)
}
