package http

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/observability"
)

type responseService interface {
	Respond(ctx context.Context, params application.RespondParams) (application.SessionView, error)
}

// RespondHandler serves the public, token-authenticated response endpoint.
// Its caller is a browser following an email link, so every terminal outcome
// renders an HTML page rather than JSON.
type RespondHandler struct {
	service responseService
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewRespondHandler(service responseService, logger *slog.Logger, metrics *observability.Metrics) *RespondHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RespondHandler{service: service, logger: logger, metrics: metrics}
}

func (h *RespondHandler) Respond(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	sessionID := strings.TrimSpace(query.Get("session"))
	token := strings.TrimSpace(query.Get("token"))
	action := strings.TrimSpace(query.Get("action"))
	reason := strings.TrimSpace(query.Get("reason"))

	if sessionID == "" || token == "" || (action != "accept" && action != "decline") {
		h.renderError(w, http.StatusBadRequest, "Invalid request",
			"This response link is incomplete. Please use the link from your invitation email.")
		return
	}

	// A decline without a chosen reason renders the reason form first.
	if action == "decline" && reason == "" {
		h.renderDeclineForm(w, sessionID, token)
		return
	}

	params := application.RespondParams{
		SessionID: sessionID,
		Token:     token,
		Action:    application.RespondAction(action),
	}
	if action == "decline" {
		decline, err := parseDeclineDetail(query)
		if err != nil {
			h.renderError(w, http.StatusBadRequest, "Invalid request", err.Error())
			return
		}
		params.Decline = decline
	}

	view, err := h.service.Respond(r.Context(), params)
	if err != nil {
		h.renderServiceError(r.Context(), w, err)
		return
	}

	h.metrics.InviteResponse(action)
	h.renderConfirmation(w, view)
}

func parseDeclineDetail(query url.Values) (*application.DeclineDetail, error) {
	get := func(key string) string {
		return strings.TrimSpace(query.Get(key))
	}

	detail := &application.DeclineDetail{}
	switch get("reason") {
	case "not_interested":
		detail.Reason = application.ReasonNotInterested
	case "suggested_topic":
		detail.Reason = application.ReasonSuggestedTopic
		detail.SuggestedTopic = get("suggestedTopic")
	case "time_conflict":
		detail.Reason = application.ReasonTimeConflict
		detail.Comment = get("optionalQuery")
		if ts := parseFormTime(get("suggestedTimeStart")); !ts.IsZero() {
			detail.SuggestedStart = &ts
		}
		if ts := parseFormTime(get("suggestedTimeEnd")); !ts.IsZero() {
			detail.SuggestedEnd = &ts
		}
	default:
		return nil, errors.New("The decline reason is not recognised.")
	}
	return detail, nil
}

// parseFormTime also accepts the datetime-local format browsers submit.
func parseFormTime(value string) time.Time {
	if ts, err := parseTimeValue(value); err == nil && !ts.IsZero() {
		return ts
	}
	if ts, err := time.Parse("2006-01-02T15:04", value); err == nil {
		return ts
	}
	return time.Time{}
}

func (h *RespondHandler) renderServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrInvalidRequest):
		h.renderError(w, http.StatusBadRequest, "Invalid request",
			"This response link is incomplete. Please use the link from your invitation email.")
	case errors.Is(err, application.ErrNotFound):
		h.renderError(w, http.StatusNotFound, "Session not found",
			"This session no longer exists. It may have been cancelled by the organizers.")
	case errors.Is(err, application.ErrInvalidToken):
		h.renderError(w, http.StatusForbidden, "Link no longer valid",
			"This response link is not valid. If the session was rescheduled you will have received a fresh email.")
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			h.renderError(w, http.StatusBadRequest, "Invalid request",
				"The decline details are incomplete. Please go back and fill in the form again.")
			return
		}
		h.logger.ErrorContext(ctx, "response handling failed", "error", err)
		h.renderError(w, http.StatusInternalServerError, "Something went wrong",
			"We could not record your response. Please try again later.")
	}
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 40rem; margin: 4rem auto; padding: 0 1rem; color: #222; }
h1 { font-size: 1.4rem; }
.detail { background: #f5f5f5; padding: 1rem; border-radius: 4px; }
.detail dt { font-weight: bold; }
form label { display: block; margin: 0.8rem 0 0.2rem; }
button { margin-top: 1rem; padding: 0.5rem 1.2rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{.Body}}
</body>
</html>
`))

var confirmationBody = template.Must(template.New("confirmation").Parse(`<p>{{.Lead}}</p>
<dl class="detail">
<dt>Session</dt><dd>{{.SessionTitle}}</dd>
<dt>Venue</dt><dd>{{.Place}}{{if .RoomName}} ({{.RoomName}}){{end}}</dd>
<dt>Start</dt><dd>{{.Start}}</dd>
<dt>End</dt><dd>{{.End}}</dd>
</dl>
<p>The organizers have been notified. You can close this page.</p>
`))

var declineFormBody = template.Must(template.New("declineForm").Parse(`<p>Please tell the organizers why you are declining.</p>
<form method="get" action="/respond">
<input type="hidden" name="session" value="{{.SessionID}}">
<input type="hidden" name="token" value="{{.Token}}">
<input type="hidden" name="action" value="decline">
<label><input type="radio" name="reason" value="not_interested" checked> I am not interested</label>
<label><input type="radio" name="reason" value="suggested_topic"> I would prefer a different topic</label>
<label>Suggested topic <input type="text" name="suggestedTopic"></label>
<label><input type="radio" name="reason" value="time_conflict"> The time does not work for me</label>
<label>Suggested start <input type="datetime-local" name="suggestedTimeStart"></label>
<label>Suggested end <input type="datetime-local" name="suggestedTimeEnd"></label>
<label>Comment <input type="text" name="optionalQuery"></label>
<button type="submit">Send response</button>
</form>
`))

type pageData struct {
	Title string
	Body  template.HTML
}

func (h *RespondHandler) renderConfirmation(w http.ResponseWriter, view application.SessionView) {
	lead := "Thank you, your acceptance has been recorded."
	title := "Invitation accepted"
	if view.InviteStatus == application.InviteDeclined {
		lead = "Your decline has been recorded."
		title = "Invitation declined"
	}

	var body strings.Builder
	err := confirmationBody.Execute(&body, struct {
		Lead, SessionTitle, Place, RoomName, Start, End string
	}{
		Lead:         lead,
		SessionTitle: view.Title,
		Place:        view.Place,
		RoomName:     view.RoomName,
		Start:        view.Start.UTC().Format(time.RFC1123),
		End:          view.End.UTC().Format(time.RFC1123),
	})
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.renderPage(w, http.StatusOK, pageData{Title: title, Body: template.HTML(body.String())})
}

func (h *RespondHandler) renderDeclineForm(w http.ResponseWriter, sessionID, token string) {
	var body strings.Builder
	err := declineFormBody.Execute(&body, struct {
		SessionID, Token string
	}{SessionID: sessionID, Token: token})
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.renderPage(w, http.StatusOK, pageData{Title: "Decline invitation", Body: template.HTML(body.String())})
}

func (h *RespondHandler) renderError(w http.ResponseWriter, status int, title, message string) {
	body := template.HTML("<p>" + template.HTMLEscapeString(message) + "</p>")
	h.renderPage(w, status, pageData{Title: title, Body: body})
}

func (h *RespondHandler) renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		h.logger.Error("failed to render page", "error", err)
	}
}
