package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

const brandName = "Rushabh Ventures"

// Message is a rendered operator email.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

type messageView struct {
	Brand          string
	Heading        string
	Name           string
	CompanyName    string
	AnnualTurnover string
	MobileNumber   string
	Email          string
	Message        string
	Contact        bool
}

var textTmpl = texttemplate.Must(texttemplate.New("text").Parse(`{{.Heading}} - {{.Brand}}

{{if .Contact}}Name{{else}}Applicant Name{{end}}: {{.Name}}
Company Name: {{.CompanyName}}
Annual Turnover: {{if not .Contact}}₹{{end}}{{.AnnualTurnover}} Crores
Mobile Number: {{.MobileNumber}}
{{- if .Contact}}
Email: {{.Email}}
Message: {{.Message}}
{{- else}}

This applicant is interested in IPO evaluation services.
{{- end}}
`))

var htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <div style="max-width: 600px; margin: 0 auto;">
    <div style="background: #000; color: #fff; padding: 24px; text-align: center;">
      <h1>{{.Brand}}</h1>
      <p style="color: #D4AF37;">{{.Heading}}</p>
    </div>
    <table style="width: 100%; padding: 16px;">
      <tr><td><strong>{{if .Contact}}Name{{else}}Applicant Name{{end}}</strong></td><td>{{.Name}}</td></tr>
      <tr><td><strong>Company Name</strong></td><td>{{.CompanyName}}</td></tr>
      <tr><td><strong>Annual Turnover</strong></td><td>{{if not .Contact}}₹{{end}}{{.AnnualTurnover}} Crores</td></tr>
      <tr><td><strong>Mobile Number</strong></td><td>{{.MobileNumber}}</td></tr>
      {{- if .Contact}}
      <tr><td><strong>Email</strong></td><td>{{.Email}}</td></tr>
      <tr><td><strong>Message</strong></td><td>{{.Message}}</td></tr>
      {{- end}}
    </table>
    {{- if not .Contact}}
    <p style="padding: 16px; background: #D4AF37;">A potential client is waiting for your response!</p>
    {{- end}}
    <p style="font-size: 12px; color: #888;">This is an automated notification from {{.Brand}} website.</p>
  </div>
</body>
</html>
`))

// Render builds the subject and both bodies for ev.
func Render(ev Event) (Message, error) {
	s := ev.Submission
	view := messageView{
		Brand:          brandName,
		Name:           s.Name,
		CompanyName:    s.CompanyName,
		AnnualTurnover: orDefault(s.AnnualTurnover, "N/A"),
		MobileNumber:   s.MobileNumber,
		Email:          orDefault(s.Email, "N/A"),
		Message:        orDefault(s.Message, "No message provided"),
	}
	var subject string
	switch ev.Kind {
	case KindContactSubmitted:
		view.Contact = true
		view.Heading = "New Contact Form Submission"
		subject = fmt.Sprintf("New Contact: %s - %s", s.Name, s.CompanyName)
	case KindApplicationSubmitted:
		view.Heading = "New IPO Evaluation Application"
		subject = fmt.Sprintf("New IPO Application: %s - ₹%s Cr", s.CompanyName, view.AnnualTurnover)
	default:
		return Message{}, fmt.Errorf("render: unknown event kind %q", ev.Kind)
	}

	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, view); err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}
	if err := htmlTmpl.Execute(&html, view); err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}
	return Message{Subject: subject, Text: text.String(), HTML: html.String()}, nil
}

func orDefault(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}
