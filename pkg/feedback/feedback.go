// Package feedback holds the per-step feedback record that a verbal
// environment fills in for its agent, one optional text per dialect.
package feedback

import (
	"fmt"
	"strings"
)

// Feedback bundles the natural-language feedback for one transition.
// A nil field means the dialect was not provided; an empty string is a
// provided, empty text.
type Feedback struct {
	Reward            *string
	HindsightPositive *string
	HindsightNegative *string
	FuturePositive    *string
	FutureNegative    *string
}

// Field is one named entry of a Feedback record.
type Field struct {
	Type  Type
	Value *string
}

// Text returns a pointer to s, for populating Feedback fields.
func Text(s string) *string {
	return &s
}

// Fields returns the record's entries in declared order:
// reward, hindsight positive, hindsight negative, future positive, future negative.
func (f *Feedback) Fields() []Field {
	return []Field{
		{Type: Reward, Value: f.Reward},
		{Type: HindsightPositive, Value: f.HindsightPositive},
		{Type: HindsightNegative, Value: f.HindsightNegative},
		{Type: FuturePositive, Value: f.FuturePositive},
		{Type: FutureNegative, Value: f.FutureNegative},
	}
}

// Set stores text in the field for dialect t. Aggregate selectors have no field.
func (f *Feedback) Set(t Type, text string) error {
	switch t {
	case Reward:
		f.Reward = Text(text)
	case HindsightPositive:
		f.HindsightPositive = Text(text)
	case HindsightNegative:
		f.HindsightNegative = Text(text)
	case FuturePositive:
		f.FuturePositive = Text(text)
	case FutureNegative:
		f.FutureNegative = Text(text)
	default:
		return fmt.Errorf("feedback type %q has no field", t)
	}
	return nil
}

// Get returns the field for dialect t, nil when absent or aggregate.
func (f *Feedback) Get(t Type) *string {
	for _, field := range f.Fields() {
		if field.Type == t {
			return field.Value
		}
	}
	return nil
}

// Empty reports whether every field is absent.
func (f *Feedback) Empty() bool {
	for _, field := range f.Fields() {
		if field.Value != nil {
			return false
		}
	}
	return true
}

// Verbalize joins the present fields, in declared order, with single spaces.
func Verbalize(f *Feedback) string {
	parts := make([]string, 0, 5)
	for _, field := range f.Fields() {
		if field.Value != nil {
			parts = append(parts, *field.Value)
		}
	}
	return strings.Join(parts, " ")
}
