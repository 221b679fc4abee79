package mock

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Resource describes one collection served by the mock.
type Resource struct {
	// Name is the URL segment, e.g. "categories".
	Name string
	// Label names one item in messages, e.g. "category".
	Label string
	// Required fields must be present and non-empty on create.
	Required []string
	// Unique fields may not repeat across items.
	Unique []string
	// ParentField links an item to its parent and enables /tree.
	ParentField string
	// ChildrenField holds nested items in tree responses.
	ChildrenField string
	// SearchFields are matched by /search?query=. Defaults to "name".
	SearchFields []string
}

// Categories is a nested, slug-unique resource shaped like a shop catalogue.
func Categories() Resource {
	return Resource{
		Name:          "categories",
		Label:         "category",
		Required:      []string{"name", "slug"},
		Unique:        []string{"slug"},
		ParentField:   "parent_id",
		ChildrenField: "sub_categories",
		SearchFields:  []string{"name", "slug"},
	}
}

// Brands is a flat, slug-unique resource.
func Brands() Resource {
	return Resource{
		Name:         "brands",
		Label:        "brand",
		Required:     []string{"name", "slug"},
		Unique:       []string{"slug"},
		SearchFields: []string{"name"},
	}
}

func (r Resource) label() string {
	if r.Label != "" {
		return r.Label
	}
	return strings.TrimSuffix(r.Name, "s")
}

func (r Resource) searchFields() []string {
	if len(r.SearchFields) > 0 {
		return r.SearchFields
	}
	return []string{"name"}
}

func (r Resource) childrenField() string {
	if r.ChildrenField != "" {
		return r.ChildrenField
	}
	return "children"
}

// ConflictError reports an item whose unique fields collide with another.
type ConflictError struct {
	Label  string
	Fields []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("A %s with this %s already exists.", e.Label, strings.Join(e.Fields, " and "))
}

// ValidationError reports missing required fields.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("The %s field is required.", strings.Join(e.Fields, ", "))
}

// collection is the in-memory table of one resource.
type collection struct {
	mu       sync.Mutex
	resource Resource
	items    map[int]map[string]any
	nextID   int
}

func newCollection(r Resource) *collection {
	return &collection{
		resource: r,
		items:    make(map[int]map[string]any),
		nextID:   1,
	}
}

func (c *collection) ids() []int {
	ids := make([]int, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (c *collection) list() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]map[string]any, 0, len(c.items))
	for _, id := range c.ids() {
		out = append(out, copyItem(c.items[id]))
	}
	return out
}

func (c *collection) get(id int) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[id]
	if !ok {
		return nil, false
	}
	return copyItem(item), true
}

func (c *collection) create(fields map[string]any) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.validate(fields); err != nil {
		return nil, err
	}
	if err := c.checkUnique(fields, 0); err != nil {
		return nil, err
	}

	item := copyItem(fields)
	item["id"] = c.nextID
	if p := c.resource.ParentField; p != "" {
		if _, ok := item[p]; !ok {
			item[p] = nil
		}
	}
	c.items[c.nextID] = item
	c.nextID++
	return copyItem(item), nil
}

// update replaces (merge=false) or merges fields into an existing item.
func (c *collection) update(id int, fields map[string]any, merge bool) (map[string]any, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.items[id]
	if !ok {
		return nil, false, nil
	}

	next := copyItem(fields)
	if merge {
		next = copyItem(existing)
		for k, v := range fields {
			next[k] = v
		}
	} else if err := c.validate(next); err != nil {
		return nil, true, err
	}
	next["id"] = id

	if err := c.checkUnique(next, id); err != nil {
		return nil, true, err
	}
	c.items[id] = next
	return copyItem(next), true, nil
}

func (c *collection) delete(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	return true
}

func (c *collection) search(q string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	q = strings.ToLower(q)
	out := make([]map[string]any, 0)
	for _, id := range c.ids() {
		item := c.items[id]
		for _, field := range c.resource.searchFields() {
			if s, ok := item[field].(string); ok && strings.Contains(strings.ToLower(s), q) {
				out = append(out, copyItem(item))
				break
			}
		}
	}
	return out
}

// tree returns the items under parent (nil for roots) with their
// descendants nested.
func (c *collection) tree(parent *int) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subtree(parent)
}

func (c *collection) treeOf(id int) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[id]
	if !ok {
		return nil, false
	}
	node := copyItem(item)
	node[c.resource.childrenField()] = c.subtree(&id)
	return node, true
}

func (c *collection) subtree(parent *int) []map[string]any {
	out := make([]map[string]any, 0)
	for _, id := range c.ids() {
		item := c.items[id]
		if !sameParent(item[c.resource.ParentField], parent) {
			continue
		}
		node := copyItem(item)
		childID := id
		node[c.resource.childrenField()] = c.subtree(&childID)
		out = append(out, node)
	}
	return out
}

func sameParent(v any, parent *int) bool {
	id, ok := toID(v)
	if parent == nil {
		return !ok
	}
	return ok && id == *parent
}

func (c *collection) validate(fields map[string]any) error {
	var missing []string
	for _, f := range c.resource.Required {
		v, ok := fields[f]
		if !ok || v == nil || v == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

func (c *collection) checkUnique(fields map[string]any, selfID int) error {
	var conflicts []string
	for _, f := range c.resource.Unique {
		v, ok := fields[f]
		if !ok || v == nil {
			continue
		}
		for id, item := range c.items {
			if id != selfID && sameValue(item[f], v) {
				conflicts = append(conflicts, f)
				break
			}
		}
	}
	if len(conflicts) > 0 {
		return &ConflictError{Label: c.resource.label(), Fields: conflicts}
	}
	return nil
}

func (c *collection) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[int]map[string]any)
	c.nextID = 1
}

// sameValue compares scalar JSON values; objects and arrays never collide.
func sameValue(a, b any) bool {
	switch b.(type) {
	case string, float64, bool, int:
		return a == b
	default:
		return false
	}
}

func copyItem(item map[string]any) map[string]any {
	out := make(map[string]any, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func toID(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
