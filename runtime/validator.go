package runtime

import (
	"fmt"
	"regexp"
	"strings"
)

// RuleKind names a field rule.
type RuleKind string

const (
	// RuleRequired fails when the value is empty after trimming.
	RuleRequired RuleKind = "required"
	// RuleNonEmptyString is the free-text variant of RuleRequired.
	RuleNonEmptyString RuleKind = "nonEmptyString"
	// RulePattern fails when the value does not match Pattern.
	RulePattern RuleKind = "pattern"
	// RuleTag applies a go-playground/validator tag (e.g. "numeric,len=6").
	RuleTag RuleKind = "tag"
)

type Rule struct {
	Kind    RuleKind `yaml:"rule"`
	Pattern string   `yaml:"pattern,omitempty"`
	Tag     string   `yaml:"tag,omitempty"`
	Message string   `yaml:"message"`

	re *regexp.Regexp
}

// FieldRules is the ordered rule list for one field.
type FieldRules struct {
	Field string `yaml:"field"`
	Rules []Rule `yaml:"rules"`
}

// Schema is the ordered set of field rules of a step.
type Schema []FieldRules

// Fields returns the field names in declaration order.
func (s Schema) Fields() []string {
	names := make([]string, 0, len(s))
	for _, fr := range s {
		names = append(names, fr.Field)
	}
	return names
}

// Compile checks every rule and caches compiled patterns.
func (s Schema) Compile() error {
	for i := range s {
		fr := &s[i]
		if fr.Field == "" {
			return fmt.Errorf("schema entry %d: field name is required", i)
		}
		for j := range fr.Rules {
			r := &fr.Rules[j]
			switch r.Kind {
			case RuleRequired, RuleNonEmptyString:
			case RulePattern:
				re, err := regexp.Compile(r.Pattern)
				if err != nil {
					return fmt.Errorf("field %s: invalid pattern %q: %w", fr.Field, r.Pattern, err)
				}
				r.re = re
			case RuleTag:
				if r.Tag == "" {
					return fmt.Errorf("field %s: tag rule without tag", fr.Field)
				}
			default:
				return fmt.Errorf("field %s: unknown rule %q", fr.Field, r.Kind)
			}
			if r.Message == "" {
				r.Message = defaultRuleMessage(fr.Field, r.Kind)
			}
		}
	}
	return nil
}

// ValidationResult holds either the normalized values or the field errors,
// never both.
type ValidationResult struct {
	Values FieldValues
	Errors map[string]string
}

func (r ValidationResult) Valid() bool {
	return r.Errors == nil
}

// Validate checks values against the schema. Every field is checked in
// declaration order so all violations are reported together; the first
// failing rule of a field supplies its message. A field absent from values
// is validated as the empty string.
func Validate(schema Schema, values FieldValues) ValidationResult {
	normalized := make(FieldValues, len(values)+len(schema))
	for k, v := range values {
		normalized[k] = v
	}

	var errs map[string]string
	for _, fr := range schema {
		value := normalized[fr.Field]
		normalized[fr.Field] = value

		for _, rule := range fr.Rules {
			if rule.check(value) {
				continue
			}
			if errs == nil {
				errs = make(map[string]string)
			}
			errs[fr.Field] = rule.message(fr.Field)
			break
		}
	}

	if errs != nil {
		return ValidationResult{Errors: errs}
	}
	return ValidationResult{Values: normalized}
}

func (r Rule) check(value string) bool {
	switch r.Kind {
	case RuleRequired, RuleNonEmptyString:
		return strings.TrimSpace(value) != ""
	case RulePattern:
		re := r.re
		if re == nil {
			var err error
			if re, err = regexp.Compile(r.Pattern); err != nil {
				return false
			}
		}
		return re.MatchString(value)
	case RuleTag:
		return validate.Var(value, r.Tag) == nil
	default:
		return false
	}
}

func (r Rule) message(field string) string {
	if r.Message != "" {
		return r.Message
	}
	return defaultRuleMessage(field, r.Kind)
}

func defaultRuleMessage(field string, kind RuleKind) string {
	switch kind {
	case RuleRequired, RuleNonEmptyString:
		return fmt.Sprintf("%s is required", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
