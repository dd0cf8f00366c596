// Package recipient turns raw records into the role, subject and render
// context used to build a message.
package recipient

import (
	"errors"
	"strings"

	"email-dispatcher/internal/models"
	"email-dispatcher/internal/templates"
)

const (
	DefaultCompany     = "Company"
	DefaultContactName = "Hiring Team"
)

var ErrMissingEmail = errors.New("record has no email address")

// Resolved is a record ready for message building.
type Resolved struct {
	Row     int
	Email   string
	Role    models.RoleKey
	Subject string
	Context templates.Context
}

// ResolveRole maps a free-text role preference onto a RoleKey.
func ResolveRole(preference string) models.RoleKey {
	switch strings.ToLower(strings.TrimSpace(preference)) {
	case "frontend", "front-end", "ui":
		return models.RoleFrontend
	case "backend", "back-end":
		return models.RoleBackend
	default:
		return models.RoleSoftware
	}
}

// Resolve applies defaults to rec and picks its template. A non-empty
// subject override is used verbatim.
func Resolve(rec models.Record) (Resolved, error) {
	email := strings.TrimSpace(rec.Email)
	if email == "" {
		return Resolved{Row: rec.Row}, ErrMissingEmail
	}

	ctx := templates.Context{
		Company:     orDefault(rec.Company, DefaultCompany),
		ContactName: orDefault(rec.ContactName, DefaultContactName),
	}
	role := ResolveRole(rec.RolePreference)

	subject := strings.TrimSpace(rec.SubjectOverride)
	if subject == "" {
		subject = templates.Resolve(role).RenderSubject(ctx)
	}

	return Resolved{
		Row:     rec.Row,
		Email:   email,
		Role:    role,
		Subject: subject,
		Context: ctx,
	}, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
