// Package templates holds the subject and body patterns for every role and
// renders them against a recipient context.
package templates

import (
	_ "embed"
	"strings"

	"email-dispatcher/internal/models"
)

const (
	PlaceholderCompany     = "{company}"
	PlaceholderContactName = "{contact_name}"
)

// Template is an immutable pair of patterns.
type Template struct {
	Subject string
	Body    string
}

// Context carries the values substituted into a Template.
type Context struct {
	Company     string
	ContactName string
}

var (
	//go:embed bodies/frontend.txt
	frontendBody string
	//go:embed bodies/backend.txt
	backendBody string
	//go:embed bodies/software.txt
	softwareBody string

	frontend = Template{
		Subject: "{company} — Frontend Engineer Application — Ayush Chauhan",
		Body:    frontendBody,
	}
	backend = Template{
		Subject: "{company} — Backend Engineer Application — Ayush Chauhan",
		Body:    backendBody,
	}
	software = Template{
		Subject: "{company} — Software Engineer Application — Ayush Chauhan",
		Body:    softwareBody,
	}
)

// Resolve returns the template for role. Values outside the known set get
// the software template.
func Resolve(role models.RoleKey) Template {
	switch role {
	case models.RoleFrontend:
		return frontend
	case models.RoleBackend:
		return backend
	default:
		return software
	}
}

// Render substitutes the context into pattern. Empty context values render
// as empty strings.
func Render(pattern string, ctx Context) string {
	r := strings.NewReplacer(
		PlaceholderCompany, ctx.Company,
		PlaceholderContactName, ctx.ContactName,
	)
	return r.Replace(pattern)
}

// RenderSubject renders the subject pattern of t.
func (t Template) RenderSubject(ctx Context) string {
	return Render(t.Subject, ctx)
}

// RenderBody renders the body pattern of t.
func (t Template) RenderBody(ctx Context) string {
	return Render(t.Body, ctx)
}
