package schema

import (
	"fmt"
	"sort"
)

// Registry holds the collections and globals known to the process. It is
// built once at startup and never mutated afterwards.
type Registry struct {
	collections map[string]*Collection
	globals     map[string]*Global
	colOrder    []string
	globalOrder []string
}

// NewRegistry validates the declarations and returns a registry. Auth and
// upload collections get their managed fields added here.
func NewRegistry(collections []Collection, globals []Global) (*Registry, error) {
	r := &Registry{
		collections: make(map[string]*Collection, len(collections)),
		globals:     make(map[string]*Global, len(globals)),
	}

	for i := range collections {
		c := collections[i]
		if c.Slug == "" {
			return nil, fmt.Errorf("collection %d: slug is required", i)
		}
		if _, dup := r.collections[c.Slug]; dup {
			return nil, fmt.Errorf("duplicate collection slug %q", c.Slug)
		}
		if c.Auth {
			c.Fields = append(authFields(), c.Fields...)
		}
		if c.Upload != nil {
			c.Fields = append(c.Fields, uploadFields()...)
		}
		if err := checkFields(c.Slug, c.Fields); err != nil {
			return nil, err
		}
		r.collections[c.Slug] = &c
		r.colOrder = append(r.colOrder, c.Slug)
	}

	for i := range globals {
		g := globals[i]
		if g.Slug == "" {
			return nil, fmt.Errorf("global %d: slug is required", i)
		}
		if _, dup := r.globals[g.Slug]; dup {
			return nil, fmt.Errorf("duplicate global slug %q", g.Slug)
		}
		if _, clash := r.collections[g.Slug]; clash {
			return nil, fmt.Errorf("global slug %q clashes with a collection", g.Slug)
		}
		if err := checkFields(g.Slug, g.Fields); err != nil {
			return nil, err
		}
		r.globals[g.Slug] = &g
		r.globalOrder = append(r.globalOrder, g.Slug)
	}

	for _, c := range r.collections {
		if err := r.checkRelations(c.Slug, c.Fields); err != nil {
			return nil, err
		}
	}
	for _, g := range r.globals {
		if err := r.checkRelations(g.Slug, g.Fields); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func checkFields(owner string, fields []Field) error {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("%s: field name is required", owner)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%s: duplicate field %q", owner, f.Name)
		}
		seen[f.Name] = struct{}{}
		if !f.Kind.Valid() {
			return fmt.Errorf("%s.%s: unknown field type %q", owner, f.Name, f.Kind)
		}
		if f.Kind == KindSelect && len(f.Options) == 0 {
			return fmt.Errorf("%s.%s: select field needs options", owner, f.Name)
		}
		if (f.Kind == KindGroup || f.Kind == KindArray) && len(f.Fields) == 0 {
			return fmt.Errorf("%s.%s: %s field needs nested fields", owner, f.Name, f.Kind)
		}
		if err := checkFields(owner+"."+f.Name, f.Fields); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) checkRelations(owner string, fields []Field) error {
	for _, f := range fields {
		if f.Kind == KindRelationship || f.Kind == KindUpload {
			if f.RelationTo == "" {
				return fmt.Errorf("%s.%s: relation_to is required", owner, f.Name)
			}
			if _, ok := r.collections[f.RelationTo]; !ok {
				return fmt.Errorf("%s.%s: unknown relation target %q", owner, f.Name, f.RelationTo)
			}
		}
		if err := r.checkRelations(owner+"."+f.Name, f.Fields); err != nil {
			return err
		}
	}
	return nil
}

// Collection returns the collection with the given slug.
func (r *Registry) Collection(slug string) (*Collection, bool) {
	c, ok := r.collections[slug]
	return c, ok
}

// Global returns the global with the given slug.
func (r *Registry) Global(slug string) (*Global, bool) {
	g, ok := r.globals[slug]
	return g, ok
}

// Collections returns all collections in declaration order.
func (r *Registry) Collections() []*Collection {
	out := make([]*Collection, 0, len(r.colOrder))
	for _, slug := range r.colOrder {
		out = append(out, r.collections[slug])
	}
	return out
}

// Globals returns all globals in declaration order.
func (r *Registry) Globals() []*Global {
	out := make([]*Global, 0, len(r.globalOrder))
	for _, slug := range r.globalOrder {
		out = append(out, r.globals[slug])
	}
	return out
}

// Slugs returns the sorted collection and global slugs.
func (r *Registry) Slugs() (collections, globals []string) {
	collections = append([]string(nil), r.colOrder...)
	globals = append([]string(nil), r.globalOrder...)
	sort.Strings(collections)
	sort.Strings(globals)
	return collections, globals
}
