package runtime

import (
	"fmt"
	"regexp"
	"strings"
)

// FieldValues maps field names to the values of the active step.
type FieldValues map[string]string

func (v FieldValues) Clone() FieldValues {
	out := make(FieldValues, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Input is the in-memory model behind one step's screen.
type Input interface {
	// Values returns a copy holding an entry for every declared field.
	Values() FieldValues
	// Ready reports whether the local shape allows enabling submit.
	Ready() bool
	Reset()
}

// NewInput builds the input model described by spec.
func NewInput(spec InputSpec) (Input, error) {
	names := spec.FieldNames()
	switch spec.Kind {
	case InputText, "":
		if len(names) == 0 {
			return nil, fmt.Errorf("text input needs at least one field")
		}
		return NewTextInput(names...), nil
	case InputDigits:
		if len(names) != 1 || spec.Length <= 0 {
			return nil, fmt.Errorf("digits input needs exactly one field and a positive length")
		}
		return NewDigitInput(names[0], spec.Length), nil
	case InputNumeric:
		if len(names) != 1 {
			return nil, fmt.Errorf("numeric input needs exactly one field")
		}
		return NewNumericInput(names[0], spec.Length), nil
	default:
		return nil, fmt.Errorf("unknown input kind %q", spec.Kind)
	}
}

// TextInput stores free text fields verbatim.
type TextInput struct {
	fields []string
	values FieldValues
}

func NewTextInput(fields ...string) *TextInput {
	in := &TextInput{fields: fields}
	in.Reset()
	return in
}

// Set stores value as typed. It returns false for undeclared fields.
func (in *TextInput) Set(name, value string) bool {
	if _, ok := in.values[name]; !ok {
		return false
	}
	in.values[name] = value
	return true
}

func (in *TextInput) Values() FieldValues {
	return in.values.Clone()
}

func (in *TextInput) Ready() bool {
	return true
}

func (in *TextInput) Reset() {
	in.values = make(FieldValues, len(in.fields))
	for _, f := range in.fields {
		in.values[f] = ""
	}
}

// FocusAction is a key event on a composite digit input.
type FocusAction int

const (
	// FocusDigitEntered follows an accepted digit.
	FocusDigitEntered FocusAction = iota
	// FocusBackspaceEmpty is backspace pressed on an empty slot.
	FocusBackspaceEmpty
	// FocusBackspaceFilled is backspace pressed on a filled slot.
	FocusBackspaceFilled
)

// NextFocus returns the slot that holds focus after action on a composite
// input of n slots.
func NextFocus(current, n int, action FocusAction) int {
	switch action {
	case FocusDigitEntered:
		if current < n-1 {
			return current + 1
		}
	case FocusBackspaceEmpty:
		if current > 0 {
			return current - 1
		}
	}
	return current
}

var singleDigit = regexp.MustCompile(`^\d$`)

// DigitInput is an N-slot numeric entry (PIN, OTP boxes) collapsed into a
// single field value.
type DigitInput struct {
	field string
	slots []string
	focus int
}

func NewDigitInput(field string, n int) *DigitInput {
	return &DigitInput{
		field: field,
		slots: make([]string, n),
	}
}

// SetDigit stores raw at slot index when raw is exactly one digit and
// advances focus. Anything else leaves the input untouched.
func (in *DigitInput) SetDigit(index int, raw string) bool {
	if index < 0 || index >= len(in.slots) || !singleDigit.MatchString(raw) {
		return false
	}
	in.slots[index] = raw
	in.focus = NextFocus(index, len(in.slots), FocusDigitEntered)
	return true
}

// Backspace clears the focused slot, or moves focus back one slot when the
// focused slot is already empty. The previous slot keeps its digit.
func (in *DigitInput) Backspace() {
	if in.slots[in.focus] != "" {
		in.slots[in.focus] = ""
		in.focus = NextFocus(in.focus, len(in.slots), FocusBackspaceFilled)
		return
	}
	in.focus = NextFocus(in.focus, len(in.slots), FocusBackspaceEmpty)
}

// SetFocus moves focus to index.
func (in *DigitInput) SetFocus(index int) bool {
	if index < 0 || index >= len(in.slots) {
		return false
	}
	in.focus = index
	return true
}

func (in *DigitInput) Focus() int {
	return in.focus
}

func (in *DigitInput) Len() int {
	return len(in.slots)
}

func (in *DigitInput) Slots() []string {
	return append([]string(nil), in.slots...)
}

// FieldValue concatenates the slots in order. An empty slot makes the value
// shorter than the input, which fails the step's pattern rule.
func (in *DigitInput) FieldValue() string {
	return strings.Join(in.slots, "")
}

// Complete reports whether every slot holds a digit.
func (in *DigitInput) Complete() bool {
	for _, s := range in.slots {
		if s == "" {
			return false
		}
	}
	return true
}

func (in *DigitInput) Field() string {
	return in.field
}

func (in *DigitInput) Values() FieldValues {
	return FieldValues{in.field: in.FieldValue()}
}

func (in *DigitInput) Ready() bool {
	return in.Complete()
}

func (in *DigitInput) Reset() {
	for i := range in.slots {
		in.slots[i] = ""
	}
	in.focus = 0
}

// NumericInput is a single free-typed field that only keeps digits.
type NumericInput struct {
	field  string
	maxLen int
	value  string
}

func NewNumericInput(field string, maxLen int) *NumericInput {
	return &NumericInput{field: field, maxLen: maxLen}
}

// Type replaces the value with raw stripped of every non-digit character,
// cut to the maximum length when one is set, and returns what was stored.
func (in *NumericInput) Type(raw string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if in.maxLen > 0 && len(digits) > in.maxLen {
		digits = digits[:in.maxLen]
	}
	in.value = digits
	return digits
}

func (in *NumericInput) Field() string {
	return in.field
}

func (in *NumericInput) Values() FieldValues {
	return FieldValues{in.field: in.value}
}

func (in *NumericInput) Ready() bool {
	return true
}

func (in *NumericInput) Reset() {
	in.value = ""
}
