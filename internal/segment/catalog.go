// Package segment holds the in-memory annotation model for one audio item:
// the label catalog, individual segment records, and the store that owns the
// record collection and the single selection pointer.
package segment

import "fmt"

// Value is one selectable answer for a label.
type Value struct {
	ID   int
	Text string
}

// Label describes one annotation field: its backend id, whether it accepts
// multiple values at once, and the ordered set of allowed values.
type Label struct {
	ID     int
	Name   string
	Multi  bool
	Values []Value
}

// Catalog maps label name to its definition. Loaded once per editing session
// and immutable afterwards.
type Catalog map[string]Label

// HasValue reports whether valueID is an allowed value for the label.
func (c Catalog) HasValue(labelName string, valueID int) bool {
	def, ok := c[labelName]
	if !ok {
		return false
	}
	for _, v := range def.Values {
		if v.ID == valueID {
			return true
		}
	}
	return false
}

// ValueText returns the display text for a value id, or "" if unknown.
func (c Catalog) ValueText(labelName string, valueID int) string {
	def, ok := c[labelName]
	if !ok {
		return ""
	}
	for _, v := range def.Values {
		if v.ID == valueID {
			return v.Text
		}
	}
	return ""
}

// Validate checks that an annotation refers to a known label and known value
// ids, and that a single-choice label receives at most one value.
func (c Catalog) Validate(labelName string, valueIDs []int) error {
	def, ok := c[labelName]
	if !ok {
		return fmt.Errorf("unknown label %q", labelName)
	}
	if !def.Multi && len(valueIDs) > 1 {
		return fmt.Errorf("label %q takes a single value, got %d", labelName, len(valueIDs))
	}
	for _, id := range valueIDs {
		if !c.HasValue(labelName, id) {
			return fmt.Errorf("label %q has no value %d", labelName, id)
		}
	}
	return nil
}
