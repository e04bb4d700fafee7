package runtime

// StepID identifies one screen of the flow.
type StepID string

const (
	StepPrimaryCredential StepID = "primary-credential"
	StepPIN               StepID = "pin"
	StepOTP               StepID = "otp"
	StepSecondOTP         StepID = "second-otp"

	// StepTerminal is never declared in a flow definition. The sequencer
	// returns it once the last step succeeds.
	StepTerminal StepID = "terminal"
)

// InputKind selects the input model a step uses.
type InputKind string

const (
	InputText    InputKind = "text"
	InputDigits  InputKind = "digits"
	InputNumeric InputKind = "numeric"
)

type Flow struct {
	ID    string `yaml:"id"`
	Steps []Step `yaml:"steps"`
}

type Step struct {
	ID         StepID    `yaml:"id"`
	Title      string    `yaml:"title,omitempty"`
	Prompt     string    `yaml:"prompt,omitempty"`
	Endpoint   string    `yaml:"endpoint"`
	Input      InputSpec `yaml:"input"`
	Schema     Schema    `yaml:"schema"`
	Delayed    bool      `yaml:"delayed,omitempty"`
	EnableWhen string    `yaml:"enableWhen,omitempty"`
}

type InputSpec struct {
	Kind   InputKind   `yaml:"kind"`
	Fields []FieldSpec `yaml:"fields"`
	Length int         `yaml:"length,omitempty"` // slot count for digits, max length for numeric
}

type FieldSpec struct {
	Name   string `yaml:"name"`
	Label  string `yaml:"label,omitempty"`
	Secret bool   `yaml:"secret,omitempty"`
}

// FieldNames returns the declared field names in order.
func (s InputSpec) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

// Step returns the step with the given id.
func (f *Flow) Step(id StepID) (Step, bool) {
	for _, s := range f.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}
