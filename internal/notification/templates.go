package notification

import (
	"fmt"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/example/conference-scheduler/internal/application"
)

var inviteTemplate = template.Must(template.New("invite").Parse(`Dear {{.FacultyName}},

You are invited to speak at the following conference session:

  Title: {{.Title}}
  Venue: {{.Place}}{{if .RoomName}} ({{.RoomName}}){{end}}
  Start: {{.Start}}
  End:   {{.End}}
{{if .Description}}
{{.Description}}
{{end}}
Please confirm your participation:

  Accept:  {{.AcceptURL}}
  Decline: {{.DeclineURL}}

This link is personal. Do not forward it.
`))

var updateTemplate = template.Must(template.New("update").Parse(`Dear {{.FacultyName}},

The schedule for your session has changed and needs your confirmation again:

  Title: {{.Title}}
  Venue: {{.Place}}{{if .RoomName}} ({{.RoomName}}){{end}}
  Start: {{.Start}}
  End:   {{.End}}

Your previous response no longer applies. Please respond again:

  Accept:  {{.AcceptURL}}
  Decline: {{.DeclineURL}}
`))

var bulkInviteTemplate = template.Must(template.New("bulk_invite").Parse(`Dear {{.FacultyName}},

You are invited to speak at the following conference sessions:
{{range .Sessions}}
  Title: {{.Title}}
  Venue: {{.Place}}{{if .RoomName}} ({{.RoomName}}){{end}}
  Start: {{.Start}}
  End:   {{.End}}
  Accept:  {{.AcceptURL}}
  Decline: {{.DeclineURL}}
{{end}}
Each link is personal to its session. Do not forward them.
`))

type templateData struct {
	FacultyName string
	Title       string
	Description string
	Place       string
	RoomName    string
	Start       string
	End         string
	AcceptURL   string
	DeclineURL  string
}

// LinkBuilder produces the token-authenticated response links embedded in
// invitation emails.
type LinkBuilder struct {
	baseURL string
}

// NewLinkBuilder trims a trailing slash from the public base URL.
func NewLinkBuilder(baseURL string) *LinkBuilder {
	return &LinkBuilder{baseURL: strings.TrimRight(baseURL, "/")}
}

// RespondLink returns the /respond URL for the given session, token, and
// action.
func (b *LinkBuilder) RespondLink(sessionID, token, action string) string {
	query := url.Values{}
	query.Set("session", sessionID)
	query.Set("token", token)
	query.Set("action", action)
	return fmt.Sprintf("%s/respond?%s", b.baseURL, query.Encode())
}

func renderInvite(view application.SessionView, links *LinkBuilder) (subject, body string, err error) {
	subject = fmt.Sprintf("Speaking invitation: %s", view.Title)
	body, err = render(inviteTemplate, view, links)
	return subject, body, err
}

func renderUpdate(view application.SessionView, links *LinkBuilder) (subject, body string, err error) {
	subject = fmt.Sprintf("Schedule changed: %s", view.Title)
	body, err = render(updateTemplate, view, links)
	return subject, body, err
}

// renderBulkInvite collapses several sessions for one faculty member into a
// single digest email.
func renderBulkInvite(views []application.SessionView, links *LinkBuilder) (subject, body string, err error) {
	subject = fmt.Sprintf("Speaking invitations: %d sessions", len(views))
	if len(views) == 1 {
		subject = fmt.Sprintf("Speaking invitation: %s", views[0].Title)
	}

	data := struct {
		FacultyName string
		Sessions    []templateData
	}{FacultyName: facultyGreeting(views[0])}
	for _, view := range views {
		data.Sessions = append(data.Sessions, buildTemplateData(view, links))
	}

	var sb strings.Builder
	if err := bulkInviteTemplate.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render email body: %w", err)
	}
	return subject, sb.String(), nil
}

func render(tmpl *template.Template, view application.SessionView, links *LinkBuilder) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, buildTemplateData(view, links)); err != nil {
		return "", fmt.Errorf("render email body: %w", err)
	}
	return sb.String(), nil
}

func buildTemplateData(view application.SessionView, links *LinkBuilder) templateData {
	return templateData{
		FacultyName: facultyGreeting(view),
		Title:       view.Title,
		Description: view.Description,
		Place:       view.Place,
		RoomName:    view.RoomName,
		Start:       view.Start.UTC().Format(time.RFC1123),
		End:         view.End.UTC().Format(time.RFC1123),
		AcceptURL:   links.RespondLink(view.ID, view.InviteToken, "accept"),
		DeclineURL:  links.RespondLink(view.ID, view.InviteToken, "decline"),
	}
}

func facultyGreeting(view application.SessionView) string {
	if view.FacultyName == "" {
		return "Speaker"
	}
	return view.FacultyName
}
