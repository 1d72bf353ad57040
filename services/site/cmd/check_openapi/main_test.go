package main

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestSiteDocumentMatchesWireTypes(t *testing.T) {
	doc, err := loadDoc("../../api/openapi.yaml")
	if err != nil {
		t.Fatalf("load doc: %v", err)
	}
	if errs := check(doc); len(errs) > 0 {
		t.Fatalf("unexpected drift: %v", errs)
	}
}

func TestCheckReportsDrift(t *testing.T) {
	raw := `
components:
  schemas:
    ErrorResponse:
      type: object
      properties:
        detail:
          type: string
    FAQ:
      type: object
      required: [question, extra]
      properties:
        question:
          type: integer
        legacy:
          type: string
`
	var doc openAPIDoc
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("parse: %v", err)
	}
	errs := check(doc)
	var joined []string
	for _, err := range errs {
		joined = append(joined, err.Error())
	}
	all := strings.Join(joined, "\n")
	for _, want := range []string{
		`ErrorResponse.required must include "detail"`,
		`FAQ.question type mismatch`,
		`FAQ missing property "answer"`,
		`FAQ documents unknown property "legacy"`,
		`FAQ requires undocumented property "extra"`,
		`schema "BlogPost" missing`,
	} {
		if !strings.Contains(all, want) {
			t.Fatalf("expected %q in:\n%s", want, all)
		}
	}
}
