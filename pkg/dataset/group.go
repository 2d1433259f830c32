package dataset

import (
	"database/sql"
	"errors"
	"fmt"
	"path"
)

// Group is a node in the store hierarchy. Groups carry scalar attributes and
// hold child groups and datasets.
type Group struct {
	store *Store
	id    int64
	name  string
	path  string
}

// Attr describes one attribute of a group as stored.
type Attr struct {
	Name string
	Kind string // "num" or "text"
	Num  float64
	Text string
}

// Name returns the group's own name.
func (g *Group) Name() string {
	return g.name
}

// Store returns the store this group belongs to.
func (g *Group) Store() *Store {
	return g.store
}

// Path returns the absolute path of the group within the hierarchy.
func (g *Group) Path() string {
	return g.path
}

// CreateGroup creates a direct child group. It fails if a child with the same
// name already exists.
func (g *Group) CreateGroup(name string) (*Group, error) {
	res, err := g.store.db.Exec(`INSERT INTO groups (parent_id, name) VALUES (?, ?)`, g.id, name)
	if err != nil {
		return nil, fmt.Errorf("create group %q under %s: %w", name, g.path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create group %q: %w", name, err)
	}
	return &Group{store: g.store, id: id, name: name, path: path.Join(g.path, name)}, nil
}

// Group opens a direct child group by name.
func (g *Group) Group(name string) (*Group, error) {
	var id int64
	err := g.store.db.QueryRow(`SELECT id FROM groups WHERE parent_id = ? AND name = ?`, g.id, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %q under %s: %w", name, g.path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query group %q: %w", name, err)
	}
	return &Group{store: g.store, id: id, name: name, path: path.Join(g.path, name)}, nil
}

// Groups returns all direct child groups ordered by name.
func (g *Group) Groups() ([]*Group, error) {
	rows, err := g.store.db.Query(`SELECT id, name FROM groups WHERE parent_id = ? ORDER BY name ASC`, g.id)
	if err != nil {
		return nil, fmt.Errorf("query children of %s: %w", g.path, err)
	}
	defer rows.Close()

	var children []*Group
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan child group: %w", err)
		}
		children = append(children, &Group{store: g.store, id: id, name: name, path: path.Join(g.path, name)})
	}
	return children, rows.Err()
}

// SetAttrFloat stores a numeric attribute, replacing any existing value.
func (g *Group) SetAttrFloat(name string, value float64) error {
	_, err := g.store.db.Exec(`
		INSERT INTO attrs (group_id, name, kind, num_value, text_value)
		VALUES (?, ?, 'num', ?, NULL)
		ON CONFLICT (group_id, name) DO UPDATE SET kind='num', num_value=excluded.num_value, text_value=NULL
	`, g.id, name, value)
	if err != nil {
		return fmt.Errorf("set attr %q on %s: %w", name, g.path, err)
	}
	return nil
}

// SetAttrInt stores an integer attribute. Values are held as numeric
// attributes and round-trip exactly within the float64 integer range.
func (g *Group) SetAttrInt(name string, value int64) error {
	return g.SetAttrFloat(name, float64(value))
}

// SetAttrString stores a text attribute, replacing any existing value.
func (g *Group) SetAttrString(name, value string) error {
	_, err := g.store.db.Exec(`
		INSERT INTO attrs (group_id, name, kind, num_value, text_value)
		VALUES (?, ?, 'text', NULL, ?)
		ON CONFLICT (group_id, name) DO UPDATE SET kind='text', num_value=NULL, text_value=excluded.text_value
	`, g.id, name, value)
	if err != nil {
		return fmt.Errorf("set attr %q on %s: %w", name, g.path, err)
	}
	return nil
}

// AttrFloat reads a numeric attribute.
func (g *Group) AttrFloat(name string) (float64, error) {
	var kind string
	var num sql.NullFloat64
	err := g.store.db.QueryRow(`SELECT kind, num_value FROM attrs WHERE group_id = ? AND name = ?`, g.id, name).Scan(&kind, &num)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("attr %q on %s: %w", name, g.path, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("query attr %q: %w", name, err)
	}
	if kind != "num" || !num.Valid {
		return 0, fmt.Errorf("attr %q on %s: not numeric", name, g.path)
	}
	return num.Float64, nil
}

// AttrInt reads a numeric attribute as an integer.
func (g *Group) AttrInt(name string) (int64, error) {
	v, err := g.AttrFloat(name)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

// AttrString reads a text attribute.
func (g *Group) AttrString(name string) (string, error) {
	var kind string
	var text sql.NullString
	err := g.store.db.QueryRow(`SELECT kind, text_value FROM attrs WHERE group_id = ? AND name = ?`, g.id, name).Scan(&kind, &text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("attr %q on %s: %w", name, g.path, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query attr %q: %w", name, err)
	}
	if kind != "text" || !text.Valid {
		return "", fmt.Errorf("attr %q on %s: not text", name, g.path)
	}
	return text.String, nil
}

// Attrs returns all attributes of the group ordered by name.
func (g *Group) Attrs() ([]Attr, error) {
	rows, err := g.store.db.Query(`SELECT name, kind, num_value, text_value FROM attrs WHERE group_id = ? ORDER BY name ASC`, g.id)
	if err != nil {
		return nil, fmt.Errorf("query attrs of %s: %w", g.path, err)
	}
	defer rows.Close()

	var attrs []Attr
	for rows.Next() {
		var a Attr
		var num sql.NullFloat64
		var text sql.NullString
		if err := rows.Scan(&a.Name, &a.Kind, &num, &text); err != nil {
			return nil, fmt.Errorf("scan attr: %w", err)
		}
		a.Num = num.Float64
		a.Text = text.String
		attrs = append(attrs, a)
	}
	return attrs, rows.Err()
}
