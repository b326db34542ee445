package types

// NoLimit marks a Section without a row limit.
const NoLimit int64 = -1

// Query is a stage of a query pipeline. Every stage but From wraps its predecessor.
type Query interface {
	Expr
	Parent() Query
	Stage() string
}

// Filterable stages accept a Where.
type Filterable interface {
	Query
	Where(predicate Logic) *Where
}

// Orderable stages accept an OrderBy.
type Orderable interface {
	Query
	OrderBy(keys ...OrderKey) *OrderBy
}

// Sectionable stages accept Skip and Take.
type Sectionable interface {
	Query
	Skip(n int64) *Section
	Take(n int64) *Section
}

// Groupable stages accept a GroupBy.
type Groupable interface {
	Query
	GroupBy(keys ...Expr) *GroupBy
}

// Projectable stages accept a Select.
type Projectable interface {
	Query
	Select(projections ...Projection) *Select
}

// OrderKey is one ORDER BY term.
type OrderKey struct {
	Expr      Expr
	Ascending bool
}

// Projection is one SELECT column with an optional alias.
type Projection struct {
	Expr  Expr
	Alias string
}

// From starts a pipeline over the rows of Object.
type From struct {
	Object string
}

// NewFrom validates object.
func NewFrom(object string) (*From, error) {
	if err := CheckIdentifier("object", object); err != nil {
		return nil, err
	}
	return &From{Object: object}, nil
}

// Where filters its source.
type Where struct {
	Source    Query
	Predicate Logic
}

// GroupBy groups its source by Keys.
type GroupBy struct {
	Source Query
	Keys   []Expr
}

// Having filters groups.
type Having struct {
	Source    *GroupBy
	Predicate Logic
}

// OrderBy sorts its source.
type OrderBy struct {
	Source Query
	Keys   []OrderKey
}

// Section pages its source. Limit is NoLimit when unbounded.
type Section struct {
	Source Query
	Offset int64
	Limit  int64
}

// Select projects its source. No projections selects every column.
type Select struct {
	Source      Query
	Projections []Projection
}

func logicOrNull(p Logic) Logic {
	if p == nil {
		return Null
	}
	return p
}

func newWhere(src Query, p Logic) *Where {
	return &Where{Source: src, Predicate: logicOrNull(p)}
}

func newOrderBy(src Query, keys []OrderKey) *OrderBy {
	out := make([]OrderKey, len(keys))
	for i, k := range keys {
		out[i] = OrderKey{Expr: orNull(k.Expr), Ascending: k.Ascending}
	}
	return &OrderBy{Source: src, Keys: out}
}

func newSection(src Query, skip, take int64) *Section {
	if skip < 0 {
		skip = 0
	}
	if take < 0 {
		take = NoLimit
	}
	return &Section{Source: src, Offset: skip, Limit: take}
}

func newGroupBy(src Query, keys []Expr) *GroupBy {
	out := make([]Expr, len(keys))
	for i, k := range keys {
		out[i] = orNull(k)
	}
	return &GroupBy{Source: src, Keys: out}
}

func newSelect(src Query, projections []Projection) *Select {
	out := make([]Projection, len(projections))
	for i, p := range projections {
		out[i] = Projection{Expr: orNull(p.Expr), Alias: p.Alias}
	}
	return &Select{Source: src, Projections: out}
}

// From transitions.

func (f *From) Where(p Logic) *Where              { return newWhere(f, p) }
func (f *From) OrderBy(keys ...OrderKey) *OrderBy { return newOrderBy(f, keys) }
func (f *From) Skip(n int64) *Section             { return newSection(f, n, NoLimit) }
func (f *From) Take(n int64) *Section             { return newSection(f, 0, n) }
func (f *From) GroupBy(keys ...Expr) *GroupBy     { return newGroupBy(f, keys) }
func (f *From) Select(cols ...Projection) *Select { return newSelect(f, cols) }
func (f *From) Parent() Query                     { return nil }
func (f *From) Stage() string                     { return "From" }

// Where merges a further predicate into the same stage with AND.
func (w *Where) Where(p Logic) *Where {
	return newWhere(w.Source, NewSet(JoinAnd, w.Predicate, logicOrNull(p)))
}

func (w *Where) OrderBy(keys ...OrderKey) *OrderBy { return newOrderBy(w, keys) }
func (w *Where) Skip(n int64) *Section             { return newSection(w, n, NoLimit) }
func (w *Where) Take(n int64) *Section             { return newSection(w, 0, n) }
func (w *Where) GroupBy(keys ...Expr) *GroupBy     { return newGroupBy(w, keys) }
func (w *Where) Select(cols ...Projection) *Select { return newSelect(w, cols) }
func (w *Where) Parent() Query                     { return w.Source }
func (w *Where) Stage() string                     { return "Where" }

// OrderBy replaces the ordering of this stage.
func (o *OrderBy) OrderBy(keys ...OrderKey) *OrderBy {
	return newOrderBy(o.Source, keys)
}

// ThenBy returns a new stage with keys appended. The receiver is unchanged.
func (o *OrderBy) ThenBy(keys ...OrderKey) *OrderBy {
	all := make([]OrderKey, 0, len(o.Keys)+len(keys))
	all = append(all, o.Keys...)
	all = append(all, keys...)
	return newOrderBy(o.Source, all)
}

func (o *OrderBy) Skip(n int64) *Section             { return newSection(o, n, NoLimit) }
func (o *OrderBy) Take(n int64) *Section             { return newSection(o, 0, n) }
func (o *OrderBy) GroupBy(keys ...Expr) *GroupBy     { return newGroupBy(o, keys) }
func (o *OrderBy) Select(cols ...Projection) *Select { return newSelect(o, cols) }
func (o *OrderBy) Parent() Query                     { return o.Source }
func (o *OrderBy) Stage() string                     { return "OrderBy" }

// Skip on a section offsets further into the current window.
func (s *Section) Skip(n int64) *Section {
	if n < 0 {
		n = 0
	}
	take := s.Limit
	if take != NoLimit {
		take = max(take-n, 0)
	}
	return newSection(s.Source, s.Offset+n, take)
}

// Take on a section narrows the current window.
func (s *Section) Take(n int64) *Section {
	if n < 0 {
		return s
	}
	take := n
	if s.Limit != NoLimit {
		take = min(s.Limit, n)
	}
	return newSection(s.Source, s.Offset, take)
}

func (s *Section) OrderBy(keys ...OrderKey) *OrderBy { return newOrderBy(s, keys) }
func (s *Section) GroupBy(keys ...Expr) *GroupBy     { return newGroupBy(s, keys) }
func (s *Section) Select(cols ...Projection) *Select { return newSelect(s, cols) }
func (s *Section) Parent() Query                     { return s.Source }
func (s *Section) Stage() string                     { return "Section" }

// Add returns a new stage with keys appended. The receiver is unchanged.
func (g *GroupBy) Add(keys ...Expr) *GroupBy {
	all := make([]Expr, 0, len(g.Keys)+len(keys))
	all = append(all, g.Keys...)
	all = append(all, keys...)
	return newGroupBy(g.Source, all)
}

// Having filters the groups of this stage.
func (g *GroupBy) Having(p Logic) *Having {
	return &Having{Source: g, Predicate: logicOrNull(p)}
}

func (g *GroupBy) Select(cols ...Projection) *Select { return newSelect(g, cols) }
func (g *GroupBy) Parent() Query                     { return g.Source }
func (g *GroupBy) Stage() string                     { return "GroupBy" }

func (h *Having) Select(cols ...Projection) *Select { return newSelect(h, cols) }
func (h *Having) Parent() Query                     { return h.Source }
func (h *Having) Stage() string                     { return "Having" }

func (s *Select) Parent() Query { return s.Source }
func (s *Select) Stage() string { return "Select" }

func (*From) node()    {}
func (*Where) node()   {}
func (*GroupBy) node() {}
func (*Having) node()  {}
func (*OrderBy) node() {}
func (*Section) node() {}
func (*Select) node()  {}
