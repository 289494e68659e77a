package shortener

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sundayezeilo/shortlinks/internal/errx"
	"github.com/sundayezeilo/shortlinks/internal/httpx"
)

// RecentLinksLimit is how many links the analytics view lists.
const RecentLinksLimit = 5

// HTTPCreateLinkRequest represents the JSON request body for creating a link.
type HTTPCreateLinkRequest struct {
	URL             string `json:"url"`
	CustomCode      string `json:"custom_code,omitempty"`
	LifetimeMinutes int    `json:"lifetime_minutes,omitempty"`
}

// LinkResponse represents a link in JSON responses.
type LinkResponse struct {
	ID          string `json:"id"`
	ShortCode   string `json:"short_code"`
	OriginalURL string `json:"original_url"`
	ShortURL    string `json:"short_url"`
	CreatedAt   string `json:"created_at"`
	ExpiryTime  string `json:"expiry_time"`
	Clicks      int    `json:"clicks"`
	Expired     bool   `json:"expired"`
}

// AnalyticsResponse represents the analytics dashboard payload.
type AnalyticsResponse struct {
	TotalLinks       int                  `json:"total_links"`
	TotalClicks      int                  `json:"total_clicks"`
	ActiveLinks      int                  `json:"active_links"`
	AvgClicksPerLink int                  `json:"avg_clicks_per_link"`
	ClicksByDay      []DailyClicksPayload `json:"clicks_by_day"`
	Recent           []LinkResponse       `json:"recent"`
}

type DailyClicksPayload struct {
	Date   string `json:"date"`
	Clicks int    `json:"clicks"`
}

// Handler exposes the registry and resolver over HTTP.
type Handler struct {
	registry *Registry
	resolver *Resolver
	logger   *slog.Logger
	location *time.Location
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Registry *Registry
	Resolver *Resolver
	Logger   *slog.Logger
	Location *time.Location // Time zone for daily click buckets (default: Local)
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	return &Handler{
		registry: cfg.Registry,
		resolver: cfg.Resolver,
		logger:   logger,
		location: loc,
	}
}

// Routes mounts the handler on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/links", h.CreateLink)
		r.Get("/links", h.ListLinks)
		r.Delete("/links/{id}", h.DeleteLink)
		r.Get("/analytics", h.GetAnalytics)
	})
	r.Get(RoutePrefix+"{code}", h.ResolveLink)
}

// CreateLink handles POST requests to create a new short link.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	req, err := httpx.DecodeJSON[HTTPCreateLinkRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request",
			"error", err.Error(),
		)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", errx.Message(err), nil)
		return
	}

	if err := validateCreateRequest(req); err != nil {
		logger.WarnContext(ctx, "request validation failed",
			"error", err.Error(),
			"url", req.URL,
			"custom_code", req.CustomCode,
		)
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
		return
	}

	link, err := h.registry.CreateLink(ctx, CreateRequest{
		OriginalURL:     req.URL,
		CustomCode:      req.CustomCode,
		LifetimeMinutes: req.LifetimeMinutes,
	})
	if err != nil {
		h.handleCreateError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "link created successfully",
		"link_id", link.ID,
		"short_code", link.ShortCode,
		"custom_code", req.CustomCode != "",
	)

	httpx.WriteJSON(w, http.StatusCreated, h.toResponse(link, h.registry.Now()))
}

// ListLinks handles GET requests for the newest-first link list.
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	now := h.registry.Now()
	links := h.registry.List()

	resp := make([]LinkResponse, 0, len(links))
	for _, l := range links {
		resp = append(resp, h.toResponse(l, now))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// DeleteLink handles DELETE requests. Deleting an unknown id succeeds.
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	removed := h.registry.Delete(ctx, id)
	h.requestLogger(r).InfoContext(ctx, "link delete",
		"link_id", id,
		"removed", removed,
	)

	w.WriteHeader(http.StatusNoContent)
}

// GetAnalytics handles GET requests for the dashboard summary.
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	now := h.registry.Now()
	a := h.registry.Analytics()

	days := h.registry.ClicksByDay(h.location)
	byDay := make([]DailyClicksPayload, 0, len(days))
	for _, d := range days {
		byDay = append(byDay, DailyClicksPayload{Date: d.Date, Clicks: d.Clicks})
	}

	recentLinks := h.registry.Recent(RecentLinksLimit)
	recent := make([]LinkResponse, 0, len(recentLinks))
	for _, l := range recentLinks {
		recent = append(recent, h.toResponse(l, now))
	}

	httpx.WriteJSON(w, http.StatusOK, AnalyticsResponse{
		TotalLinks:       a.TotalLinks,
		TotalClicks:      a.TotalClicks,
		ActiveLinks:      a.ActiveLinks,
		AvgClicksPerLink: a.AvgClicksPerLink,
		ClicksByDay:      byDay,
		Recent:           recent,
	})
}

// ResolveLink handles visits to a short URL. It records the click and renders
// an interstitial page that navigates to the destination after the redirect
// delay.
func (h *Handler) ResolveLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code, ok := shortCodeParam(r)

	res := Resolution{Status: StatusMissing}
	if ok {
		res = h.resolver.Resolve(ctx, code, Visit{
			Referrer:  r.Referer(),
			UserAgent: r.UserAgent(),
		})
	}

	h.requestLogger(r).InfoContext(ctx, "short code resolved",
		"short_code", code,
		"status", res.Status.String(),
		"user_agent", r.UserAgent(),
		"referer", r.Referer(),
	)

	page := redirectPage{Status: res.Status.String()}
	status := http.StatusOK
	switch res.Status {
	case StatusMissing:
		status = http.StatusNotFound
		page.Title = "Link Not Found"
		page.Message = "The short link you're looking for doesn't exist or has been deleted."
	case StatusExpired:
		status = http.StatusGone
		page.Title = "Link Expired"
		page.Message = "This short link has expired and is no longer available."
	case StatusValid:
		if !navigable(res.Link.OriginalURL) {
			page.Title = "Link Destination"
			page.Message = "This link points to an address your browser cannot open automatically:"
			page.Destination = res.Link.OriginalURL
			break
		}
		page.Title = "Redirecting..."
		page.Message = "You're being redirected to your destination."
		page.URL = res.Link.OriginalURL
		page.DelaySeconds = int(math.Ceil(res.RedirectAfter.Seconds()))
	}

	if err := httpx.WriteHTML(w, status, redirectTmpl, page); err != nil {
		h.logger.ErrorContext(ctx, "failed to render redirect page", "error", err.Error())
	}
}

// shortCodeParam returns the code segment of a resolve URL. chi matches on
// the escaped path when one is set, so codes containing reserved characters
// (a custom "promo/2024" travels as "promo%2F2024") are unescaped here.
func shortCodeParam(r *http.Request) (string, bool) {
	code := chi.URLParam(r, "code")
	if r.URL.RawPath == "" {
		return code, true
	}
	unescaped, err := url.PathUnescape(code)
	if err != nil {
		return "", false
	}
	return unescaped, true
}

// navigable reports whether the interstitial page may navigate to rawURL.
// Only web destinations get a refresh and a link.
func navigable(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}

// handleCreateError handles errors from Registry.CreateLink.
func (h *Handler) handleCreateError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	switch kind {
	case errx.Conflict:
		h.logger.WarnContext(ctx, "short code conflict", logAttrs...)
		httpx.WriteError(w, http.StatusConflict, "conflict",
			"This short code is already taken",
			map[string]string{
				"hint": "Try a different custom code or let us generate one for you",
			})

	case errx.Invalid:
		h.logger.WarnContext(ctx, "invalid link request", logAttrs...)
		httpx.WriteKindError(w, err, "")

	default:
		h.logger.ErrorContext(ctx, "failed to create link", logAttrs...)
		httpx.WriteKindError(w, err, "Unable to create short link at this time. Please try again.")
	}
}

func (h *Handler) toResponse(l Link, now time.Time) LinkResponse {
	return LinkResponse{
		ID:          l.ID,
		ShortCode:   l.ShortCode,
		OriginalURL: l.OriginalURL,
		ShortURL:    h.registry.ShortURL(l.ShortCode),
		CreatedAt:   l.CreatedAt.UTC().Format(time.RFC3339Nano),
		ExpiryTime:  l.ExpiryTime.UTC().Format(time.RFC3339Nano),
		Clicks:      l.ClickCount(),
		Expired:     l.Expired(now),
	}
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

// validateCreateRequest validates the HTTPCreateLinkRequest.
func validateCreateRequest(req HTTPCreateLinkRequest) error {
	if req.URL == "" {
		return errors.New("url is required")
	}
	if req.LifetimeMinutes < 0 {
		return errors.New("lifetime_minutes must be positive")
	}
	return nil
}

type redirectPage struct {
	Status       string
	Title        string
	Message      string
	URL          string
	Destination  string
	DelaySeconds int
}

var redirectTmpl = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
{{- if .URL}}
<meta http-equiv="refresh" content="{{.DelaySeconds}};url={{.URL}}">
{{- end}}
<title>{{.Title}}</title>
</head>
<body data-status="{{.Status}}">
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{- if .URL}}
<p><a href="{{.URL}}">{{.URL}}</a></p>
{{- else if .Destination}}
<p><code>{{.Destination}}</code></p>
{{- else}}
<p><a href="/">Go Home</a></p>
{{- end}}
</body>
</html>
`))
