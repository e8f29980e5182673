package domain

import "fmt"

// NoColumn marks a role that is not mapped to any column
const NoColumn = -1

// Mapping assigns a column index, or NoColumn, to each role
type Mapping struct {
	Part        int `json:"part"`
	Location    int `json:"location"`
	Location2   int `json:"location2"`
	Quantity    int `json:"quantity"`
	Description int `json:"description"`
}

// EmptyMapping has every role unmapped
func EmptyMapping() Mapping {
	return Mapping{
		Part:        NoColumn,
		Location:    NoColumn,
		Location2:   NoColumn,
		Quantity:    NoColumn,
		Description: NoColumn,
	}
}

// Validate rejects indices outside [NoColumn, width)
func (m Mapping) Validate(width int) error {
	roles := []struct {
		name string
		idx  int
	}{
		{"part", m.Part},
		{"location", m.Location},
		{"location2", m.Location2},
		{"quantity", m.Quantity},
		{"description", m.Description},
	}
	for _, r := range roles {
		if r.idx < NoColumn || r.idx >= width {
			return fmt.Errorf("%w: %s column %d outside 0..%d", ErrInvalidMapping, r.name, r.idx, width-1)
		}
	}
	return nil
}

// Tuple is one normalized row ready for reconciliation
type Tuple struct {
	PartNumber  string `json:"partNumber"`
	Location    string `json:"location"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description"`
}
