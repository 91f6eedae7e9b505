// Package validate checks request structs against `validate` struct tags.
//
// Rules are comma separated and evaluated left to right; the first failing
// rule produces the field's message.
//
//	required        field must not be zero/empty
//	nullable        skip the remaining rules when the field is empty
//	email           valid email address
//	url             absolute http(s) URL
//	alpha_dash      letters, digits, dashes, underscores
//	min=N / max=N   strings: rune length; numbers: value; slices: length
//	gte=N / lte=N   numeric bounds
//	oneof=a b c     value must be one of the space separated items
//	dive            validate each element of a slice (or a nested struct)
//
// Messages are keyed by the json field name. Nested fields use dotted paths,
// e.g. "orderItems.0.quantity".
//
//	type PlaceOrderInput struct {
//	    Items []LineInput `json:"orderItems" validate:"required,dive"`
//	}
package validate

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Struct validates every exported field of v carrying a `validate` tag.
// An empty map means v is valid.
func Struct(v any) map[string]string {
	errs := make(map[string]string)
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return errs
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return errs
	}
	walkStruct(rv, "", errs)
	return errs
}

// HasErrors reports whether errs holds at least one failure.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

func walkStruct(rv reflect.Value, prefix string, errs map[string]string) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("validate")
		if field.Anonymous && tag == "" && field.Type.Kind() == reflect.Struct {
			walkStruct(rv.Field(i), prefix, errs)
			continue
		}
		if tag == "" || tag == "-" {
			continue
		}

		name := prefix + jsonFieldName(field)
		value := rv.Field(i)
		rules := strings.Split(tag, ",")

		if hasRule(rules, "nullable") && isEmpty(value) {
			continue
		}

		failed := false
		for _, rule := range rules {
			rule = strings.TrimSpace(rule)
			if rule == "" || rule == "nullable" || rule == "dive" {
				continue
			}
			if msg := apply(rule, name, value); msg != "" {
				errs[name] = msg
				failed = true
				break
			}
		}

		if !failed && hasRule(rules, "dive") {
			dive(value, name, errs)
		}
	}
}

func dive(v reflect.Value, name string, errs map[string]string) {
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		walkStruct(v, name+".", errs)
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			elem := v.Index(i)
			for elem.Kind() == reflect.Ptr && !elem.IsNil() {
				elem = elem.Elem()
			}
			if elem.Kind() == reflect.Struct {
				walkStruct(elem, fmt.Sprintf("%s.%d.", name, i), errs)
			}
		}
	}
}

func apply(rule, field string, v reflect.Value) string {
	key, param, _ := strings.Cut(rule, "=")
	if key != "required" {
		for v.Kind() == reflect.Ptr && !v.IsNil() {
			v = v.Elem()
		}
	}
	raw := stringValue(v)

	switch key {
	case "required":
		if isEmpty(v) {
			return fmt.Sprintf("The %s field is required.", field)
		}
	case "email":
		if !emailRE.MatchString(raw) {
			return fmt.Sprintf("The %s must be a valid email address.", field)
		}
	case "url":
		u, err := url.ParseRequestURI(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Sprintf("The %s must be a valid URL.", field)
		}
	case "alpha_dash":
		for _, c := range raw {
			if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '-' && c != '_' {
				return fmt.Sprintf("The %s may only contain letters, numbers, dashes, and underscores.", field)
			}
		}
	case "min":
		n := parseFloat(param)
		switch {
		case isNumeric(v):
			if toFloat(v) < n {
				return fmt.Sprintf("The %s must be at least %s.", field, param)
			}
		case isCollection(v):
			if float64(v.Len()) < n {
				return fmt.Sprintf("The %s must have at least %s items.", field, param)
			}
		default:
			if float64(len([]rune(raw))) < n {
				return fmt.Sprintf("The %s must be at least %s characters.", field, param)
			}
		}
	case "max":
		n := parseFloat(param)
		switch {
		case isNumeric(v):
			if toFloat(v) > n {
				return fmt.Sprintf("The %s must not be greater than %s.", field, param)
			}
		case isCollection(v):
			if float64(v.Len()) > n {
				return fmt.Sprintf("The %s must not have more than %s items.", field, param)
			}
		default:
			if float64(len([]rune(raw))) > n {
				return fmt.Sprintf("The %s must not exceed %s characters.", field, param)
			}
		}
	case "gte":
		if toFloat(v) < parseFloat(param) {
			return fmt.Sprintf("The %s must be greater than or equal to %s.", field, param)
		}
	case "lte":
		if toFloat(v) > parseFloat(param) {
			return fmt.Sprintf("The %s must be less than or equal to %s.", field, param)
		}
	case "oneof":
		for _, allowed := range strings.Fields(param) {
			if raw == allowed {
				return ""
			}
		}
		return fmt.Sprintf("The selected %s is invalid.", field)
	}

	return ""
}

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// floater is satisfied by decimal.Decimal, so money fields take numeric rules.
type floater interface {
	InexactFloat64() float64
}

func stringValue(v reflect.Value) string {
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v.Interface())
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Bool:
		return false
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Struct:
		return v.IsZero()
	}
	return false
}

func isCollection(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	}
	return false
}

func isNumeric(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	_, ok := v.Interface().(floater)
	return ok
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	if f, ok := v.Interface().(floater); ok {
		return f.InexactFloat64()
	}
	return parseFloat(stringValue(v))
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func jsonFieldName(f reflect.StructField) string {
	name := f.Tag.Get("json")
	if idx := strings.Index(name, ","); idx != -1 {
		name = name[:idx]
	}
	if name == "" || name == "-" {
		return strings.ToLower(f.Name[:1]) + f.Name[1:]
	}
	return name
}

func hasRule(rules []string, target string) bool {
	for _, r := range rules {
		if strings.TrimSpace(r) == target {
			return true
		}
	}
	return false
}
