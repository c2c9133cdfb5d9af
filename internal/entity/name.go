package entity

import (
	"github.com/cockroachdb/errors"
)

// ErrUnknownEntity is returned for any entity name outside the closed set.
var ErrUnknownEntity = errors.New("unknown entity")

// Name is one of the record types a view can target.
type Name string

const (
	Meetings      Name = "meetings"
	Cycles        Name = "cycles"
	Customers     Name = "customers"
	Students      Name = "students"
	Courses       Name = "courses"
	Branches      Name = "branches"
	Instructors   Name = "instructors"
	Registrations Name = "registrations"
)

// Names lists every entity in foreign-key dependency order.
var Names = []Name{
	Branches,
	Courses,
	Instructors,
	Customers,
	Students,
	Cycles,
	Meetings,
	Registrations,
}

// Parse validates s against the closed entity set.
func Parse(s string) (Name, error) {
	switch n := Name(s); n {
	case Meetings, Cycles, Customers, Students, Courses, Branches, Instructors, Registrations:
		return n, nil
	default:
		return "", errors.Wrapf(ErrUnknownEntity, "%q", s)
	}
}
