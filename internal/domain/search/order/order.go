package order

import (
	"fmt"
	"strings"
)

// Direction is the sort strategy of an order expression.
type Direction string

// Sort direction constants.
const (
	// StrAsc sorts by string value, ascending.
	StrAsc  Direction = "STRA"
	StrDesc Direction = "STRD"
	// NumAsc sorts by numeric value, ascending.
	NumAsc  Direction = "NUMA"
	NumDesc Direction = "NUMD"
)

// IsValid checks if the direction is one of the supported values.
func (d Direction) IsValid() bool {
	return d == StrAsc || d == StrDesc || d == NumAsc || d == NumDesc
}

// IsNumeric reports whether values compare as numbers.
func (d Direction) IsNumeric() bool { return d == NumAsc || d == NumDesc }

// IsDescending reports whether the order is reversed.
func (d Direction) IsDescending() bool { return d == StrDesc || d == NumDesc }

// IDAttribute is the attribute holding the record id. "id" is accepted as an alias.
const IDAttribute = "db_id"

// Order is a parsed "<attr> <direction>" expression.
type Order struct {
	attr      string
	direction Direction
}

// Parse reads "<attr> <STRA|STRD|NUMA|NUMD|ASC|DESC>". A bare attribute sorts
// ascending. ASC/DESC compare numerically for the record id and as strings
// for every other attribute.
func Parse(s string) (Order, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 2 {
		return Order{}, fmt.Errorf("order %q: want \"<attr> [direction]\"", s)
	}

	attr := fields[0]
	if attr == "id" {
		attr = IDAttribute
	}

	dir := "ASC"
	if len(fields) == 2 {
		dir = strings.ToUpper(fields[1])
	}

	var d Direction
	switch dir {
	case "ASC":
		d = StrAsc
		if attr == IDAttribute {
			d = NumAsc
		}
	case "DESC":
		d = StrDesc
		if attr == IDAttribute {
			d = NumDesc
		}
	default:
		d = Direction(dir)
		if !d.IsValid() {
			return Order{}, fmt.Errorf("order %q: unknown direction %q", s, dir)
		}
	}

	return Order{attr: attr, direction: d}, nil
}

// Attr returns the sort attribute.
func (o Order) Attr() string { return o.attr }

// Direction returns the sort direction.
func (o Order) Direction() Direction { return o.direction }

func (o Order) String() string {
	return o.attr + " " + string(o.direction)
}
