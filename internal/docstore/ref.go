package docstore

import "boardhouse/internal/tree"

// Ref names a location in the document tree, optionally narrowed by a query.
// Plain refs to the same path compare equal with ==.
type Ref struct {
	path string
	q    *query
}

type query struct {
	orderBy  string
	hasOrder bool
	equal    tree.Value
	hasEqual bool
}

// NewRef returns a plain ref to the normalized form of path. Every string is
// accepted; stray slashes are dropped.
func NewRef(path string) Ref {
	return Ref{path: tree.Join(path)}
}

// Path returns the normalized path ("" for the root).
func (r Ref) Path() string { return r.path }

// Key returns the final path segment, or "" at the root.
func (r Ref) Key() string {
	k, _ := tree.LastSegment(r.path)
	return k
}

func (r Ref) String() string {
	if r.path == "" {
		return "/"
	}
	return r.path
}

// Child returns a plain ref to path below r.
func (r Ref) Child(path string) Ref {
	return Ref{path: tree.Join(r.path, path)}
}

// Parent returns the ref one segment up. The root has no parent.
func (r Ref) Parent() (Ref, bool) {
	segs := tree.Segments(r.path)
	if len(segs) == 0 {
		return Ref{}, false
	}
	return Ref{path: tree.Join(segs[:len(segs)-1]...)}, true
}

// Root returns a ref to the top of the tree.
func (r Ref) Root() Ref { return Ref{} }

// Base drops any query constraints.
func (r Ref) Base() Ref { return Ref{path: r.path} }

// IsQuery reports whether r carries query constraints.
func (r Ref) IsQuery() bool { return r.q != nil }

// OrderByChild records the child field used for selection. A later call
// replaces the earlier hint.
func (r Ref) OrderByChild(field string) Ref {
	q := r.cloneQuery()
	q.orderBy, q.hasOrder = field, true
	return Ref{path: r.path, q: q}
}

// EqualTo records the value the ordered field must strictly equal. A later
// call replaces the earlier constraint.
func (r Ref) EqualTo(v tree.Value) Ref {
	q := r.cloneQuery()
	q.equal, q.hasEqual = v.Clone(), true
	return Ref{path: r.path, q: q}
}

// Equal reports whether r and o address the same path with the same
// constraints.
func (r Ref) Equal(o Ref) bool {
	if r.path != o.path || (r.q == nil) != (o.q == nil) {
		return false
	}
	if r.q == nil {
		return true
	}
	return r.q.orderBy == o.q.orderBy && r.q.hasOrder == o.q.hasOrder &&
		r.q.hasEqual == o.q.hasEqual && r.q.equal.Equal(o.q.equal)
}

func (r Ref) cloneQuery() *query {
	if r.q == nil {
		return &query{}
	}
	cp := *r.q
	return &cp
}

// evaluate applies r to root. Only a query holding both an ordering field and
// an equality constraint filters; anything else yields the base node as is.
func (r Ref) evaluate(root tree.Value) (tree.Value, bool) {
	base, ok := tree.Resolve(root, r.path)
	if !ok || r.q == nil || !r.q.hasOrder || !r.q.hasEqual {
		return base, ok
	}
	children, isMap := base.AsMap()
	if !isMap {
		return tree.Value{}, false
	}
	matched := tree.NewMap()
	children.Range(func(key string, child tree.Value) bool {
		fields, ok := child.AsMap()
		if !ok {
			return true
		}
		if field, ok := fields.Get(r.q.orderBy); ok && field.StrictEqual(r.q.equal) {
			matched.Set(key, child)
		}
		return true
	})
	if matched.Len() == 0 {
		return tree.Value{}, false
	}
	return tree.FromMap(matched), true
}
