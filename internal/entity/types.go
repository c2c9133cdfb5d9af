package entity

import (
	"strings"
)

// QuoteIdent quotes a SQL identifier, escaping embedded double quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Schema is the Postgres schema holding every CRM table.
const Schema = "crm"

type AttrType string

const (
	AttrID       AttrType = "id"
	AttrString   AttrType = "string"
	AttrNumber   AttrType = "number"
	AttrDate     AttrType = "date"
	AttrBoolean  AttrType = "boolean"
	AttrEnum     AttrType = "enum"
	AttrTime     AttrType = "time"
	AttrRelation AttrType = "relation"
)

// Attribute is one filterable/sortable attribute of an entity.
type Attribute struct {
	Name   string   `json:"name"`
	Label  string   `json:"label"`
	Type   AttrType `json:"type"`
	Column string   `json:"-"`
	Target Name     `json:"-"` // relation attributes only
}

// IsIdentifier returns true if values of the attribute are record ids.
func (a *Attribute) IsIdentifier() bool {
	return a.Type == AttrID || a.Type == AttrRelation
}

// IsText returns true if the column is stored as text.
func (a *Attribute) IsText() bool {
	return a.Type == AttrString || a.Type == AttrEnum
}

// Relation is a one-hop many-to-one link, e.g. meetings.cycle via cycleId.
type Relation struct {
	Name   string
	Target Name
	Via    *Attribute
}

// Include names a relation eagerly joined for list rendering.
type Include struct {
	Relation string
	Children []Include
}

type Entry struct {
	Name       Name
	Table      string
	Display    string // attribute matched by name lookups
	Attributes []Attribute
	Includes   []Include

	attrs     map[string]*Attribute
	relations map[string]*Relation
}

func newEntry(name Name, table, display string, attrs []Attribute, includes ...Include) *Entry {
	e := &Entry{
		Name:       name,
		Table:      table,
		Display:    display,
		Attributes: attrs,
		Includes:   includes,
		attrs:      make(map[string]*Attribute, len(attrs)),
		relations:  make(map[string]*Relation),
	}
	for i := range e.Attributes {
		a := &e.Attributes[i]
		e.attrs[a.Name] = a
		if a.Type == AttrRelation {
			rel := strings.TrimSuffix(a.Name, "Id")
			e.relations[rel] = &Relation{Name: rel, Target: a.Target, Via: a}
		}
	}
	return e
}

// TableName returns the fully qualified, quoted table name.
func (e *Entry) TableName() string {
	return QuoteIdent(Schema) + "." + QuoteIdent(e.Table)
}

// Attribute finds an attribute by API name.
func (e *Entry) Attribute(name string) *Attribute {
	return e.attrs[name]
}

// Relation finds a one-hop relation by name ("cycle", "branch", ...).
func (e *Entry) Relation(name string) *Relation {
	return e.relations[name]
}

// Catalogue returns the attributes exposed to the view editor.
func (e *Entry) Catalogue() []Attribute {
	out := make([]Attribute, 0, len(e.Attributes))
	for _, a := range e.Attributes {
		if a.Type == AttrID {
			continue
		}
		out = append(out, a)
	}
	return out
}
