package models

import "fmt"

type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Cond is an equality condition on one field.
type Cond struct {
	Field string
	Value any
}

// Filter is an OR of AND-groups of equality conditions. The zero Filter
// matches everything.
type Filter struct {
	Any [][]Cond
}

func Eq(field string, value any) Filter {
	return Filter{Any: [][]Cond{{{Field: field, Value: value}}}}
}

// And joins the single group of every filter into one group.
func And(filters ...Filter) Filter {
	group := make([]Cond, 0, len(filters))
	for _, f := range filters {
		for _, g := range f.Any {
			group = append(group, g...)
		}
	}
	return Filter{Any: [][]Cond{group}}
}

func Or(filters ...Filter) Filter {
	out := Filter{}
	for _, f := range filters {
		out.Any = append(out.Any, f.Any...)
	}
	return out
}

func (f Filter) IsZero() bool {
	return len(f.Any) == 0
}

// Fields lists the distinct fields the filter touches.
func (f Filter) Fields() []string {
	var fields []string
	for _, g := range f.Any {
		for _, c := range g {
			fields = append(fields, c.Field)
		}
	}
	return uniqueSorted(fields)
}

// Match evaluates the filter against a decoded document.
func (f Filter) Match(doc map[string]any) bool {
	if f.IsZero() {
		return true
	}
	for _, g := range f.Any {
		ok := true
		for _, c := range g {
			v, found := doc[c.Field]
			if !found || fmt.Sprint(v) != fmt.Sprint(c.Value) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

type Sort struct {
	Field     string
	Direction Direction
}

// Query describes a snapshot read.
type Query struct {
	Collection string
	Filter     Filter
	Sort       Sort
	// Limit is only honored by one-shot reads; live feeds load everything.
	Limit int64
}

func (q Query) Validate() error {
	if q.Collection == "" {
		return fmt.Errorf("%w: query without collection", ErrInvalidArgument)
	}
	if len(q.Filter.Fields()) > 2 {
		return fmt.Errorf("%w: filter spans more than two fields", ErrInvalidArgument)
	}
	for _, g := range q.Filter.Any {
		if len(g) == 0 {
			return fmt.Errorf("%w: empty filter group", ErrInvalidArgument)
		}
	}
	return nil
}
