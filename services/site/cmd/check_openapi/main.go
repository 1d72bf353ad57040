package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"leaddesk/pkg/domain"
	"leaddesk/services/site/internal/app"
)

type openAPIDoc struct {
	Components struct {
		Schemas map[string]schema `yaml:"schemas"`
	} `yaml:"components"`
}

type schema struct {
	Type       string            `yaml:"type"`
	Ref        string            `yaml:"$ref"`
	Properties map[string]schema `yaml:"properties"`
	Required   []string          `yaml:"required"`
	Items      *schema           `yaml:"items"`
}

// documented lists the wire types whose schemas must mirror the Go structs.
var documented = map[string]any{
	"Submission":       domain.Submission{},
	"SubmissionPatch":  domain.SubmissionPatch{},
	"SubmissionCounts": domain.SubmissionCounts{},
	"FAQ":              domain.FAQ{},
	"BlogPost":         domain.BlogPost{},
	"UploadedFile":     domain.UploadedFile{},
	"DashboardStats":   domain.DashboardStats{},
	"ContactInput":     app.ContactInput{},
	"ApplicationInput": app.ApplicationInput{},
	"PostInput":        app.PostInput{},
	"LoginResult":      app.LoginResult{},
}

var (
	timeType        = reflect.TypeOf(time.Time{})
	unmarshalerType = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <openapi.yaml>\n", os.Args[0])
		os.Exit(2)
	}
	doc, err := loadDoc(os.Args[1])
	if err != nil {
		exitErr(err)
	}
	if errs := check(doc); len(errs) > 0 {
		exitErr(errors.Join(errs...))
	}
	fmt.Println("OpenAPI consistency check passed.")
}

func loadDoc(path string) (openAPIDoc, error) {
	var doc openAPIDoc
	raw, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func check(doc openAPIDoc) []error {
	var errs []error
	errResp, err := getSchema(doc, "ErrorResponse")
	if err != nil {
		errs = append(errs, err)
	} else if err := validateErrorResponse(errResp); err != nil {
		errs = append(errs, err)
	}

	names := make([]string, 0, len(documented))
	for name := range documented {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s, err := getSchema(doc, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		errs = append(errs, compareStruct(name, s, reflect.TypeOf(documented[name]))...)
	}
	return errs
}

func getSchema(doc openAPIDoc, name string) (schema, error) {
	if doc.Components.Schemas == nil {
		return schema{}, errors.New("components.schemas missing")
	}
	s, ok := doc.Components.Schemas[name]
	if !ok {
		return schema{}, fmt.Errorf("schema %q missing", name)
	}
	return s, nil
}

func validateErrorResponse(s schema) error {
	if s.Type != "object" {
		return errors.New("ErrorResponse must be object")
	}
	if !makeSet(s.Required)["detail"] {
		return errors.New("ErrorResponse.required must include \"detail\"")
	}
	detail, ok := s.Properties["detail"]
	if !ok || detail.Type != "string" {
		return errors.New("ErrorResponse.detail must be string")
	}
	return nil
}

// compareStruct checks that the schema lists exactly the JSON fields of t,
// with compatible types, and that every required name is a property.
func compareStruct(name string, s schema, t reflect.Type) []error {
	var errs []error
	if s.Type != "object" {
		errs = append(errs, fmt.Errorf("%s must be object", name))
	}
	fields := jsonFields(t)
	for field, ft := range fields {
		prop, ok := s.Properties[field]
		if !ok {
			errs = append(errs, fmt.Errorf("%s missing property %q", name, field))
			continue
		}
		if want := openAPIType(ft); want != "" && prop.Type != want {
			errs = append(errs, fmt.Errorf("%s.%s type mismatch: schema %q, code %q", name, field, prop.Type, want))
		}
	}
	for prop := range s.Properties {
		if _, ok := fields[prop]; !ok {
			errs = append(errs, fmt.Errorf("%s documents unknown property %q", name, prop))
		}
	}
	for _, req := range s.Required {
		if _, ok := s.Properties[req]; !ok {
			errs = append(errs, fmt.Errorf("%s requires undocumented property %q", name, req))
		}
	}
	return errs
}

func jsonFields(t reflect.Type) map[string]reflect.Type {
	out := make(map[string]reflect.Type, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "" {
			name = f.Name
		}
		out[name] = f.Type
	}
	return out
}

// openAPIType maps a Go field type to its schema type. An empty result means
// the property is a $ref or has custom JSON encoding and is not compared.
func openAPIType(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return "string"
	}
	if reflect.PointerTo(t).Implements(unmarshalerType) {
		return ""
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int32, reflect.Int64, reflect.Uint, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return ""
	}
}

func makeSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out[item] = true
	}
	return out
}

func exitErr(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
