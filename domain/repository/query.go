package repository

import "fmt"

// Option applies a modification to a Query.
type Option func(Query) Query

// Operator is the comparison a Condition performs.
type Operator int

// Condition operators.
const (
	OpEqual Operator = iota
	OpIn
	OpPrefix
	OpNull
	OpGreater
)

// Query holds conditions, ordering, and pagination for store lookups.
type Query struct {
	conditions []Condition
	orders     []Order
	limit      int
	offset     int
}

// Build creates a Query from a set of options.
func Build(options ...Option) Query {
	q := Query{}
	for _, opt := range options {
		q = opt(q)
	}
	return q
}

// Conditions returns the query conditions.
func (q Query) Conditions() []Condition {
	result := make([]Condition, len(q.conditions))
	copy(result, q.conditions)
	return result
}

// Orders returns the query ordering specifications.
func (q Query) Orders() []Order {
	result := make([]Order, len(q.orders))
	copy(result, q.orders)
	return result
}

// LimitValue returns the limit (0 means no limit).
func (q Query) LimitValue() int {
	return q.limit
}

// OffsetValue returns the offset.
func (q Query) OffsetValue() int {
	return q.offset
}

// Condition represents a single query condition.
type Condition struct {
	field string
	value any
	op    Operator
}

// Field returns the condition field name.
func (c Condition) Field() string { return c.field }

// Value returns the condition value.
func (c Condition) Value() any { return c.value }

// Operator returns the comparison performed.
func (c Condition) Operator() Operator { return c.op }

// In returns true if this is an IN condition (value is a slice).
func (c Condition) In() bool { return c.op == OpIn }

// Clause renders the condition as a SQL fragment with one placeholder, or
// none for OpNull.
func (c Condition) Clause() string {
	switch c.op {
	case OpIn:
		return fmt.Sprintf("%s IN ?", c.field)
	case OpPrefix:
		return fmt.Sprintf("%s LIKE ?", c.field)
	case OpNull:
		return fmt.Sprintf("%s IS NULL", c.field)
	case OpGreater:
		return fmt.Sprintf("%s > ?", c.field)
	default:
		return fmt.Sprintf("%s = ?", c.field)
	}
}

// Args returns the placeholder arguments for Clause.
func (c Condition) Args() []any {
	switch c.op {
	case OpNull:
		return nil
	case OpPrefix:
		return []any{fmt.Sprintf("%v%%", c.value)}
	default:
		return []any{c.value}
	}
}

// String returns a readable representation.
func (c Condition) String() string {
	switch c.op {
	case OpIn:
		return fmt.Sprintf("%s IN %v", c.field, c.value)
	case OpPrefix:
		return fmt.Sprintf("%s LIKE %v%%", c.field, c.value)
	case OpNull:
		return fmt.Sprintf("%s IS NULL", c.field)
	case OpGreater:
		return fmt.Sprintf("%s > %v", c.field, c.value)
	default:
		return fmt.Sprintf("%s = %v", c.field, c.value)
	}
}

// Order represents a sort specification.
type Order struct {
	field     string
	ascending bool
}

// Field returns the order field name.
func (o Order) Field() string { return o.field }

// Ascending returns true for ASC, false for DESC.
func (o Order) Ascending() bool { return o.ascending }

// WithCondition adds a field = value equality condition.
func WithCondition(field string, value any) Option {
	return func(q Query) Query {
		q.conditions = append(q.conditions, Condition{field: field, value: value, op: OpEqual})
		return q
	}
}

// WithConditionIn adds a field IN (values) condition.
func WithConditionIn(field string, values any) Option {
	return func(q Query) Query {
		q.conditions = append(q.conditions, Condition{field: field, value: values, op: OpIn})
		return q
	}
}

// WithPrefix adds a field LIKE 'prefix%' condition. An empty prefix adds
// nothing.
func WithPrefix(field, prefix string) Option {
	return func(q Query) Query {
		if prefix == "" {
			return q
		}
		q.conditions = append(q.conditions, Condition{field: field, value: prefix, op: OpPrefix})
		return q
	}
}

// WithNull adds a field IS NULL condition.
func WithNull(field string) Option {
	return func(q Query) Query {
		q.conditions = append(q.conditions, Condition{field: field, op: OpNull})
		return q
	}
}

// WithGreater adds a field > value condition.
func WithGreater(field string, value any) Option {
	return func(q Query) Query {
		q.conditions = append(q.conditions, Condition{field: field, value: value, op: OpGreater})
		return q
	}
}

// WithLimit sets the maximum number of results.
func WithLimit(n int) Option {
	return func(q Query) Query {
		q.limit = n
		return q
	}
}

// WithOffset sets the result offset.
func WithOffset(n int) Option {
	return func(q Query) Query {
		q.offset = n
		return q
	}
}

// WithOrderAsc adds ascending ordering on a field.
func WithOrderAsc(field string) Option {
	return func(q Query) Query {
		q.orders = append(q.orders, Order{field: field, ascending: true})
		return q
	}
}

// WithOrderDesc adds descending ordering on a field.
func WithOrderDesc(field string) Option {
	return func(q Query) Query {
		q.orders = append(q.orders, Order{field: field, ascending: false})
		return q
	}
}
