package types

import "fmt"

// SetKind selects how the children of a Set are joined.
type SetKind uint8

const (
	JoinAnd SetKind = iota + 1
	JoinOr
	JoinList
	JoinConcat
)

var setKindNames = map[SetKind]string{
	JoinAnd:    "and",
	JoinOr:     "or",
	JoinList:   "list",
	JoinConcat: "concat",
}

func (k SetKind) String() string {
	if name, ok := setKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("SetKind(%d)", uint8(k))
}

// Valid reports whether k is a known join kind.
func (k SetKind) Valid() bool {
	_, ok := setKindNames[k]
	return ok
}

// IsLogical reports whether the set combines predicates.
func (k SetKind) IsLogical() bool {
	return k == JoinAnd || k == JoinOr
}

// ParseSetKind maps a codec name back to its kind.
func ParseSetKind(name string) (SetKind, bool) {
	for k, n := range setKindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Set joins children with a single kind. A child set of the same kind is
// spliced in rather than nested, and nil children become Null.
type Set struct {
	Kind     SetKind
	Children []Expr
}

// NewSet builds a flattened set.
func NewSet(kind SetKind, children ...Expr) *Set {
	return &Set{Kind: kind, Children: flatten(kind, nil, children)}
}

// Add returns a new set with children appended. The receiver is unchanged.
func (s *Set) Add(children ...Expr) *Set {
	out := make([]Expr, len(s.Children), len(s.Children)+len(children))
	copy(out, s.Children)
	return &Set{Kind: s.Kind, Children: flatten(s.Kind, out, children)}
}

// Len returns the number of children.
func (s *Set) Len() int { return len(s.Children) }

func flatten(kind SetKind, dst, children []Expr) []Expr {
	for _, child := range children {
		child = orNull(child)
		if inner, ok := child.(*Set); ok && inner.Kind == kind {
			dst = append(dst, inner.Children...)
			continue
		}
		dst = append(dst, child)
	}
	return dst
}

// SetBuilder accumulates children and produces an immutable Set.
type SetBuilder struct {
	kind     SetKind
	children []Expr
}

// NewSetBuilder creates a builder for sets of kind.
func NewSetBuilder(kind SetKind) *SetBuilder {
	return &SetBuilder{kind: kind}
}

// Add appends children with the same flattening rules as NewSet.
func (b *SetBuilder) Add(children ...Expr) *SetBuilder {
	b.children = flatten(b.kind, b.children, children)
	return b
}

// Len returns the number of accumulated children.
func (b *SetBuilder) Len() int { return len(b.children) }

// Build returns the set. The builder may keep accumulating afterwards without
// affecting sets already built.
func (b *SetBuilder) Build() *Set {
	out := make([]Expr, len(b.children))
	copy(out, b.children)
	return &Set{Kind: b.kind, Children: out}
}

func (*Set) node()  {}
func (*Set) logic() {}
