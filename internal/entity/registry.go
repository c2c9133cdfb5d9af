package entity

import (
	"fmt"

	"gorm.io/gorm/schema"
)

// Registry maps entity names to their table, attribute catalogue and default
// includes. It is built once at startup and never mutated afterwards.
type Registry struct {
	entries map[Name]*Entry
}

func NewRegistry() *Registry {
	entries := make(map[Name]*Entry, len(Names))
	for _, n := range Names {
		entries[n] = define(n)
	}
	return &Registry{entries: entries}
}

// Get returns the entry for a known entity name.
func (r *Registry) Get(n Name) *Entry {
	return r.entries[n]
}

// Lookup parses s and returns its entry, or ErrUnknownEntity.
func (r *Registry) Lookup(s string) (*Entry, error) {
	n, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return r.entries[n], nil
}

// Entries returns all entries in dependency order.
func (r *Registry) Entries() []*Entry {
	out := make([]*Entry, 0, len(Names))
	for _, n := range Names {
		out = append(out, r.entries[n])
	}
	return out
}

func define(n Name) *Entry {
	switch n {
	case Branches:
		return newEntry(n, "branches", "name", withCommon(
			attr("name", "Name", AttrString),
			attr("address", "Address", AttrString),
			attr("city", "City", AttrString),
			attr("phone", "Phone", AttrString),
			attr("isActive", "Active", AttrBoolean),
		))
	case Courses:
		return newEntry(n, "courses", "name", withCommon(
			attr("name", "Name", AttrString),
			attr("description", "Description", AttrString),
			attr("category", "Category", AttrEnum),
			attr("durationMinutes", "Duration (min)", AttrNumber),
			attr("price", "Price", AttrNumber),
			attr("isActive", "Active", AttrBoolean),
		))
	case Instructors:
		return newEntry(n, "instructors", "name", withCommon(
			attr("name", "Name", AttrString),
			attr("email", "Email", AttrString),
			attr("phone", "Phone", AttrString),
			attr("hourlyRate", "Hourly Rate", AttrNumber),
			attr("isActive", "Active", AttrBoolean),
		))
	case Customers:
		return newEntry(n, "customers", "name", withCommon(
			attr("name", "Name", AttrString),
			attr("email", "Email", AttrString),
			attr("phone", "Phone", AttrString),
			attr("city", "City", AttrString),
			attr("source", "Lead Source", AttrEnum),
			attr("status", "Status", AttrEnum),
		))
	case Students:
		return newEntry(n, "students", "name", withCommon(
			attr("name", "Name", AttrString),
			rel("customerId", "Customer", Customers),
			attr("grade", "Grade", AttrString),
			attr("birthDate", "Birth Date", AttrDate),
			attr("status", "Status", AttrEnum),
		), Include{Relation: "customer"})
	case Cycles:
		return newEntry(n, "cycles", "name", withCommon(
			attr("name", "Name", AttrString),
			rel("branchId", "Branch", Branches),
			rel("courseId", "Course", Courses),
			rel("instructorId", "Instructor", Instructors),
			attr("startDate", "Start Date", AttrDate),
			attr("endDate", "End Date", AttrDate),
			attr("dayOfWeek", "Day", AttrEnum),
			attr("startTime", "Start Time", AttrTime),
			attr("endTime", "End Time", AttrTime),
			attr("status", "Status", AttrEnum),
			attr("pricePerStudent", "Price per Student", AttrNumber),
			attr("maxStudents", "Max Students", AttrNumber),
		),
			Include{Relation: "branch"},
			Include{Relation: "course"},
			Include{Relation: "instructor"},
		)
	case Meetings:
		return newEntry(n, "meetings", "topic", withCommon(
			rel("cycleId", "Cycle", Cycles),
			rel("instructorId", "Instructor", Instructors),
			attr("scheduledDate", "Date", AttrDate),
			attr("startTime", "Start Time", AttrTime),
			attr("endTime", "End Time", AttrTime),
			attr("status", "Status", AttrEnum),
			attr("topic", "Topic", AttrString),
			attr("notes", "Notes", AttrString),
		),
			Include{Relation: "cycle", Children: []Include{{Relation: "branch"}, {Relation: "course"}}},
			Include{Relation: "instructor"},
		)
	case Registrations:
		return newEntry(n, "registrations", "invoiceNumber", withCommon(
			rel("studentId", "Student", Students),
			rel("cycleId", "Cycle", Cycles),
			rel("customerId", "Customer", Customers),
			attr("registrationDate", "Registration Date", AttrDate),
			attr("status", "Status", AttrEnum),
			attr("amount", "Amount", AttrNumber),
			attr("paymentStatus", "Payment Status", AttrEnum),
			attr("invoiceNumber", "Invoice", AttrString),
		),
			Include{Relation: "student"},
			Include{Relation: "cycle", Children: []Include{{Relation: "course"}, {Relation: "branch"}}},
		)
	default:
		panic(fmt.Sprintf("entity %q has no registry definition", n))
	}
}

func withCommon(attrs ...Attribute) []Attribute {
	out := make([]Attribute, 0, len(attrs)+2)
	out = append(out, Attribute{Name: "id", Label: "ID", Type: AttrID, Column: "id"})
	out = append(out, attrs...)
	out = append(out, attr("createdAt", "Created", AttrDate))
	return out
}

func attr(name, label string, typ AttrType) Attribute {
	return Attribute{Name: name, Label: label, Type: typ, Column: snake(name)}
}

func rel(name, label string, target Name) Attribute {
	return Attribute{Name: name, Label: label, Type: AttrRelation, Column: snake(name), Target: target}
}

// columnNames derives columns from API names, so "branchId" is stored as
// "branch_id". The sqlite view store uses the same naming rules.
var columnNames = schema.NamingStrategy{}

// snake converts an API name like "branchId" to its column "branch_id".
func snake(name string) string {
	return columnNames.ColumnName("", name)
}
