package rules

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// DefaultRegistry returns a registry populated with every built-in rule.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("Required", func(string) (Rule, error) { return requiredRule{}, nil })
	r.Register("Email", func(string) (Rule, error) { return emailRule{}, nil })
	r.Register("URL", func(string) (Rule, error) { return urlRule{}, nil })
	r.Register("Integer", func(string) (Rule, error) { return integerRule{}, nil })
	r.Register("Float", func(string) (Rule, error) { return floatRule{}, nil })
	r.Register("MinLength", newMinLength)
	r.Register("MaxLength", newMaxLength)
	r.Register("Min", newMin)
	r.Register("Max", newMax)
	r.Register("Regex", newRegex)
	r.Register("In", newIn)
	return r
}

type requiredRule struct{}

func (requiredRule) Name() string        { return "Required" }
func (requiredRule) Description() string { return "Value must be present and non-empty" }
func (requiredRule) ClientExpression() string {
	return "value != null && value !== ''"
}
func (requiredRule) Validate(field string, value any) error {
	switch v := value.(type) {
	case nil:
		return fail(field, "Required", "is required")
	case string:
		if strings.TrimSpace(v) == "" {
			return fail(field, "Required", "is required")
		}
	case []string:
		if len(v) == 0 {
			return fail(field, "Required", "is required")
		}
	case []any:
		if len(v) == 0 {
			return fail(field, "Required", "is required")
		}
	}
	return nil
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type emailRule struct{}

func (emailRule) Name() string        { return "Email" }
func (emailRule) Description() string { return "Value must be a valid email address" }
func (emailRule) ClientExpression() string {
	return `/^[^@\s]+@[^@\s]+\.[^@\s]+$/.test(value)`
}
func (emailRule) Validate(field string, value any) error {
	s, ok := stringValue(value)
	if !ok {
		return nil
	}
	if _, err := mail.ParseAddress(s); err != nil || !emailPattern.MatchString(s) {
		return fail(field, "Email", "must be a valid email address")
	}
	return nil
}

type urlRule struct{}

func (urlRule) Name() string        { return "URL" }
func (urlRule) Description() string { return "Value must be an absolute http or https URL" }
func (urlRule) ClientExpression() string {
	return `/^https?:\/\//.test(value)`
}
func (urlRule) Validate(field string, value any) error {
	s, ok := stringValue(value)
	if !ok {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fail(field, "URL", "must be a valid URL")
	}
	return nil
}

type integerRule struct{}

func (integerRule) Name() string        { return "Integer" }
func (integerRule) Description() string { return "Value must be a whole number" }
func (integerRule) ClientExpression() string {
	return "Number.isInteger(Number(value))"
}
func (integerRule) Validate(field string, value any) error {
	switch v := value.(type) {
	case nil, int, int32, int64:
		return nil
	case string:
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return fail(field, "Integer", "must be a whole number")
		}
		return nil
	case float64:
		if v == float64(int64(v)) {
			return nil
		}
	}
	return fail(field, "Integer", "must be a whole number")
}

type floatRule struct{}

func (floatRule) Name() string        { return "Float" }
func (floatRule) Description() string { return "Value must be a number" }
func (floatRule) ClientExpression() string {
	return "!Number.isNaN(Number(value))"
}
func (floatRule) Validate(field string, value any) error {
	switch v := value.(type) {
	case nil, int, int64, float32, float64:
		return nil
	case string:
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return fail(field, "Float", "must be a number")
		}
		return nil
	}
	return fail(field, "Float", "must be a number")
}

type minLengthRule struct{ min int }

func newMinLength(arg string) (Rule, error) {
	n, err := intArg(arg, 0)
	if err != nil {
		return nil, err
	}
	return minLengthRule{min: n}, nil
}

func (r minLengthRule) Name() string { return "MinLength" }
func (r minLengthRule) Description() string {
	return fmt.Sprintf("Value must be at least %d characters", r.min)
}
func (r minLengthRule) ClientExpression() string {
	return fmt.Sprintf("String(value).length >= %d", r.min)
}
func (r minLengthRule) Validate(field string, value any) error {
	s, ok := stringValue(value)
	if !ok {
		return nil
	}
	if len([]rune(s)) < r.min {
		return fail(field, "MinLength", "must be at least %d characters", r.min)
	}
	return nil
}

type maxLengthRule struct{ max int }

func newMaxLength(arg string) (Rule, error) {
	n, err := intArg(arg, 0)
	if err != nil {
		return nil, err
	}
	return maxLengthRule{max: n}, nil
}

func (r maxLengthRule) Name() string { return "MaxLength" }
func (r maxLengthRule) Description() string {
	return fmt.Sprintf("Value must be at most %d characters", r.max)
}
func (r maxLengthRule) ClientExpression() string {
	return fmt.Sprintf("String(value).length <= %d", r.max)
}
func (r maxLengthRule) Validate(field string, value any) error {
	s, ok := stringValue(value)
	if !ok || r.max == 0 {
		return nil
	}
	if len([]rune(s)) > r.max {
		return fail(field, "MaxLength", "must be at most %d characters", r.max)
	}
	return nil
}

type minRule struct{ min float64 }

func newMin(arg string) (Rule, error) {
	n, err := floatArg(arg, 0)
	if err != nil {
		return nil, err
	}
	return minRule{min: n}, nil
}

func (r minRule) Name() string { return "Min" }
func (r minRule) Description() string {
	return fmt.Sprintf("Value must be at least %v", r.min)
}
func (r minRule) ClientExpression() string {
	return fmt.Sprintf("Number(value) >= %v", r.min)
}
func (r minRule) Validate(field string, value any) error {
	n, ok := numericValue(value)
	if !ok {
		return nil
	}
	if n < r.min {
		return fail(field, "Min", "must be at least %v", r.min)
	}
	return nil
}

type maxRule struct{ max float64 }

func newMax(arg string) (Rule, error) {
	n, err := floatArg(arg, 0)
	if err != nil {
		return nil, err
	}
	return maxRule{max: n}, nil
}

func (r maxRule) Name() string { return "Max" }
func (r maxRule) Description() string {
	return fmt.Sprintf("Value must be at most %v", r.max)
}
func (r maxRule) ClientExpression() string {
	return fmt.Sprintf("Number(value) <= %v", r.max)
}
func (r maxRule) Validate(field string, value any) error {
	n, ok := numericValue(value)
	if !ok {
		return nil
	}
	if n > r.max {
		return fail(field, "Max", "must be at most %v", r.max)
	}
	return nil
}

type regexRule struct {
	pattern *regexp.Regexp
}

func newRegex(arg string) (Rule, error) {
	pattern, err := regexp.Compile(arg)
	if err != nil {
		return nil, err
	}
	return regexRule{pattern: pattern}, nil
}

func (r regexRule) Name() string { return "Regex" }
func (r regexRule) Description() string {
	return fmt.Sprintf("Value must match %s", r.pattern)
}
func (r regexRule) ClientExpression() string {
	return fmt.Sprintf("new RegExp(%q).test(value)", r.pattern.String())
}
func (r regexRule) Validate(field string, value any) error {
	s, ok := stringValue(value)
	if !ok {
		return nil
	}
	if !r.pattern.MatchString(s) {
		return fail(field, "Regex", "has an invalid format")
	}
	return nil
}

type inRule struct{ options []string }

// newIn accepts a pipe-separated option list, e.g. "In:draft|published".
func newIn(arg string) (Rule, error) {
	var options []string
	if arg != "" {
		options = strings.Split(arg, "|")
	}
	return inRule{options: options}, nil
}

func (r inRule) Name() string { return "In" }
func (r inRule) Description() string {
	return fmt.Sprintf("Value must be one of: %s", strings.Join(r.options, ", "))
}
func (r inRule) ClientExpression() string {
	quoted := make([]string, len(r.options))
	for i, opt := range r.options {
		quoted[i] = strconv.Quote(opt)
	}
	return fmt.Sprintf("[%s].includes(value)", strings.Join(quoted, ", "))
}
func (r inRule) Validate(field string, value any) error {
	s, ok := stringValue(value)
	if !ok || len(r.options) == 0 {
		return nil
	}
	for _, opt := range r.options {
		if opt == s {
			return nil
		}
	}
	return fail(field, "In", "must be one of: %s", strings.Join(r.options, ", "))
}

func stringValue(value any) (string, bool) {
	s, ok := value.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func numericValue(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func intArg(arg string, def int) (int, error) {
	if arg == "" {
		return def, nil
	}
	return strconv.Atoi(arg)
}

func floatArg(arg string, def float64) (float64, error) {
	if arg == "" {
		return def, nil
	}
	return strconv.ParseFloat(arg, 64)
}
