package schema

import "fmt"

// Type identifies the declared value type of a setting.
type Type int

const (
	// TypeBool is a boolean setting.
	TypeBool Type = iota

	// TypeInt is an integer setting.
	TypeInt

	// TypeFloat is a floating-point setting.
	TypeFloat

	// TypeString is a free-form string setting.
	TypeString

	// TypeStringList is a list of strings.
	TypeStringList

	// TypeEnum is a string restricted to a fixed set of values.
	TypeEnum
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeStringList:
		return "string-list"
	case TypeEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Setting describes one registered option: its name, declared type and
// validation constraints.
type Setting struct {
	// Name is the full dot-separated option name (e.g. "tabs.show").
	Name string

	// Type is the declared value type.
	Type Type

	// Default is the built-in default value.
	Default any

	// DefaultFrom names another setting whose resolved value supplies
	// the default for this one when it has no explicit value. The live
	// model recomputes these derived defaults in a single pass after a
	// batch of mutations.
	DefaultFrom string

	// Enum lists the allowed values for TypeEnum settings.
	Enum []string

	// Min and Max bound TypeInt and TypeFloat values when non-nil.
	Min *float64
	Max *float64

	// Description is a one-line summary for display.
	Description string
}

// Validate checks a value against the setting's type and constraints.
func (s *Setting) Validate(value any) error {
	switch s.Type {
	case TypeBool:
		if _, ok := value.(bool); !ok {
			return typeMismatch(s.Name, "bool", value)
		}
	case TypeInt:
		n, ok := asInt(value)
		if !ok {
			return typeMismatch(s.Name, "int", value)
		}
		return s.checkRange(float64(n), value)
	case TypeFloat:
		f, ok := asFloat(value)
		if !ok {
			return typeMismatch(s.Name, "float", value)
		}
		return s.checkRange(f, value)
	case TypeString:
		if _, ok := value.(string); !ok {
			return typeMismatch(s.Name, "string", value)
		}
	case TypeStringList:
		if _, ok := asStringList(value); !ok {
			return typeMismatch(s.Name, "string-list", value)
		}
	case TypeEnum:
		str, ok := value.(string)
		if !ok {
			return typeMismatch(s.Name, "enum", value)
		}
		for _, allowed := range s.Enum {
			if str == allowed {
				return nil
			}
		}
		return &ValidationError{
			Name:    s.Name,
			Value:   value,
			Code:    CodeInvalidEnum,
			Message: fmt.Sprintf("%q is not one of %v", str, s.Enum),
		}
	}
	return nil
}

// checkRange validates numeric bounds. The original value is kept for
// the error message.
func (s *Setting) checkRange(f float64, value any) error {
	if s.Min != nil && f < *s.Min {
		return &ValidationError{
			Name:    s.Name,
			Value:   value,
			Code:    CodeOutOfRange,
			Message: fmt.Sprintf("%v is below the minimum of %v", value, *s.Min),
		}
	}
	if s.Max != nil && f > *s.Max {
		return &ValidationError{
			Name:    s.Name,
			Value:   value,
			Code:    CodeOutOfRange,
			Message: fmt.Sprintf("%v is above the maximum of %v", value, *s.Max),
		}
	}
	return nil
}

func typeMismatch(name, expected string, value any) error {
	return &ValidationError{
		Name:    name,
		Value:   value,
		Code:    CodeTypeMismatch,
		Message: fmt.Sprintf("expected %s, got %T", expected, value),
	}
}

// asInt accepts the integer representations the on-disk codecs and the
// script runtime produce.
func asInt(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func asStringList(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	}
	return nil, false
}
