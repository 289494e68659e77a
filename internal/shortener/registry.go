package shortener

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/sundayezeilo/shortlinks/codegen"
	"github.com/sundayezeilo/shortlinks/internal/errx"
	"github.com/sundayezeilo/shortlinks/internal/idgen"
)

const (
	DefaultLifetimeMinutes = 30
	MaxLifetimeMinutes     = 43200 // 30 days
	DefaultMaxCodeAttempts = 5

	// RoutePrefix is the path segment short URLs are served under.
	RoutePrefix = "/s/"
)

// CreateRequest represents the parameters for creating a new link.
type CreateRequest struct {
	OriginalURL     string
	CustomCode      string // Optional: if empty, a code will be generated
	LifetimeMinutes int    // Optional: 0 selects the configured default
}

// RegistryConfig holds configuration for the registry.
type RegistryConfig struct {
	Clock                  func() time.Time
	CodeGenerator          codegen.Generator
	IDGenerator            idgen.Generator
	Logger                 *slog.Logger
	BaseURL                string // Origin prepended to short URLs (e.g., "http://localhost:8080")
	CodeLength             int
	MaxCodeAttempts        int
	DefaultLifetimeMinutes int
	MaxLifetimeMinutes     int
}

// Registry owns the link collection. Every mutation is written back to the
// store in full before the call returns; the in-memory collection stays
// authoritative if a save fails.
type Registry struct {
	mu    sync.Mutex
	links []Link // newest first
	dirty bool   // last save failed

	store           Store
	now             func() time.Time
	codes           codegen.Generator
	ids             idgen.Generator
	logger          *slog.Logger
	baseURL         string
	codeLength      int
	maxCodeAttempts int
	defaultLifetime int
	maxLifetime     int
}

// NewRegistry creates a registry and loads the saved collection from store.
// An unreadable collection is logged and replaced by an empty one.
func NewRegistry(ctx context.Context, store Store, config *RegistryConfig) *Registry {
	if config == nil {
		config = &RegistryConfig{}
	}

	r := &Registry{
		store:           store,
		now:             config.Clock,
		codes:           config.CodeGenerator,
		ids:             config.IDGenerator,
		logger:          config.Logger,
		baseURL:         config.BaseURL,
		codeLength:      config.CodeLength,
		maxCodeAttempts: config.MaxCodeAttempts,
		defaultLifetime: config.DefaultLifetimeMinutes,
		maxLifetime:     config.MaxLifetimeMinutes,
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.codes == nil {
		r.codes = codegen.NewBase62()
	}
	if r.ids == nil {
		r.ids = idgen.NewV4()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.codeLength <= 0 {
		r.codeLength = codegen.DefaultLength
	}
	if r.maxCodeAttempts <= 0 {
		r.maxCodeAttempts = DefaultMaxCodeAttempts
	}
	if r.maxLifetime <= 0 {
		r.maxLifetime = MaxLifetimeMinutes
	}
	if r.defaultLifetime <= 0 || r.defaultLifetime > r.maxLifetime {
		r.defaultLifetime = min(DefaultLifetimeMinutes, r.maxLifetime)
	}

	r.links = r.load(ctx)
	return r
}

func (r *Registry) load(ctx context.Context) []Link {
	links, err := r.store.Load(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "stored links unreadable, starting empty",
			"error", err.Error(),
			"error_kind", errx.KindOf(err),
		)
		return []Link{}
	}
	if links == nil {
		links = []Link{}
	}
	return links
}

// Reload replaces the in-memory collection with the store's current contents.
// Another process sharing the store wins over unsaved local state.
func (r *Registry) Reload(ctx context.Context) {
	links := r.load(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.links = links
	r.dirty = false
}

// Create creates a new short link and returns its fully qualified short URL.
func (r *Registry) Create(ctx context.Context, req CreateRequest) (string, error) {
	link, err := r.CreateLink(ctx, req)
	if err != nil {
		return "", err
	}
	return r.ShortURL(link.ShortCode), nil
}

// CreateLink creates a new short link with an optional custom code.
// A failed creation leaves the collection untouched.
func (r *Registry) CreateLink(ctx context.Context, req CreateRequest) (Link, error) {
	const op = "shortener.registry.Create"

	if err := validateURL(req.OriginalURL); err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}

	lifetime := req.LifetimeMinutes
	if lifetime == 0 {
		lifetime = r.defaultLifetime
	}
	if lifetime < 1 || lifetime > r.maxLifetime {
		return Link{}, errx.E(op, errx.Invalid,
			fmt.Errorf("%w: %d minutes (must be 1..%d)", ErrInvalidLifetime, lifetime, r.maxLifetime))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	code, err := r.pickCode(req.CustomCode)
	if err != nil {
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}

	id, err := r.ids.Generate()
	if err != nil {
		return Link{}, errx.E(op, errx.Unavailable, err)
	}

	now := r.clock()
	link := Link{
		ID:          id,
		OriginalURL: req.OriginalURL,
		ShortCode:   code,
		CreatedAt:   now,
		ExpiryTime:  now.Add(time.Duration(lifetime) * time.Minute),
		Clicks:      []Click{},
	}

	links := make([]Link, 0, len(r.links)+1)
	links = append(links, link)
	r.links = append(links, r.links...)
	r.persist(ctx, op)

	r.logger.DebugContext(ctx, "link created",
		"link_id", link.ID,
		"short_code", link.ShortCode,
		"custom_code", req.CustomCode != "",
		"lifetime_minutes", lifetime,
	)

	return link.clone(), nil
}

// pickCode must be called with mu held.
func (r *Registry) pickCode(custom string) (string, error) {
	const op = "shortener.registry.pickCode"

	if custom != "" {
		if r.indexByCode(custom) >= 0 {
			return "", errx.E(op, errx.Conflict, fmt.Errorf("%w: %q", ErrDuplicateCode, custom))
		}
		return custom, nil
	}

	for range r.maxCodeAttempts {
		code, err := r.codes.Generate(r.codeLength)
		if err != nil {
			return "", errx.E(op, errx.Unavailable, err)
		}
		if r.indexByCode(code) < 0 {
			return code, nil
		}
		r.logger.Debug("generated code collided, retrying", "short_code", code)
	}

	return "", errx.E(op, errx.Unavailable,
		fmt.Errorf("%w after %d attempts", ErrCodeSpaceExhausted, r.maxCodeAttempts))
}

// Delete removes the link with the given id. Deleting an unknown id is a no-op.
// It reports whether a link was removed.
func (r *Registry) Delete(ctx context.Context, id string) bool {
	const op = "shortener.registry.Delete"

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexByID(id)
	if i >= 0 {
		links := make([]Link, 0, len(r.links)-1)
		links = append(links, r.links[:i]...)
		r.links = append(links, r.links[i+1:]...)
	}
	r.persist(ctx, op)

	return i >= 0
}

// RecordClick appends click to the link with the given id. Unknown ids are a
// no-op. It reports whether the click was recorded.
func (r *Registry) RecordClick(ctx context.Context, id string, click Click) bool {
	const op = "shortener.registry.RecordClick"

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexByID(id)
	if i >= 0 {
		l := r.links[i]
		clicks := make([]Click, 0, len(l.Clicks)+1)
		clicks = append(clicks, l.Clicks...)
		l.Clicks = append(clicks, click)
		r.links[i] = l
	}
	r.persist(ctx, op)

	return i >= 0
}

// visit classifies the link with the given code at now and, when it is still
// valid, appends click to it. Lookup, expiry check and append happen under one
// lock so a concurrent Delete cannot slip between them.
func (r *Registry) visit(ctx context.Context, code string, now time.Time, click Click) (Link, Status) {
	const op = "shortener.registry.visit"

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexByCode(code)
	if i < 0 {
		return Link{}, StatusMissing
	}
	l := r.links[i]
	if l.Expired(now) {
		return l.clone(), StatusExpired
	}

	clicks := make([]Click, 0, len(l.Clicks)+1)
	clicks = append(clicks, l.Clicks...)
	l.Clicks = append(clicks, click)
	r.links[i] = l
	r.persist(ctx, op)

	return l.clone(), StatusValid
}

// Import merges links into the collection, skipping any whose id or short
// code is already present, and keeps the collection newest first by creation
// time. It returns how many links were added.
func (r *Registry) Import(ctx context.Context, links []Link) int {
	const op = "shortener.registry.Import"

	r.mu.Lock()
	defer r.mu.Unlock()

	added := 0
	for _, l := range links {
		if l.ShortCode == "" || r.indexByID(l.ID) >= 0 || r.indexByCode(l.ShortCode) >= 0 {
			continue
		}
		l = l.clone()
		if l.Clicks == nil {
			l.Clicks = []Click{}
		}
		r.links = append(r.links, l)
		added++
	}
	if added == 0 {
		return 0
	}

	sort.SliceStable(r.links, func(i, j int) bool {
		return r.links[i].CreatedAt.After(r.links[j].CreatedAt)
	})
	r.persist(ctx, op)

	r.logger.InfoContext(ctx, "links imported", "added", added, "skipped", len(links)-added)
	return added
}

// Flush retries the last save if it failed. It is a no-op when the store is
// already up to date.
func (r *Registry) Flush(ctx context.Context) error {
	const op = "shortener.registry.Flush"

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.dirty {
		return nil
	}
	if err := r.store.Save(ctx, r.links); err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}
	r.dirty = false
	return nil
}

// persist must be called with mu held. Save failures leave the in-memory
// state in place and mark the registry dirty for Flush.
func (r *Registry) persist(ctx context.Context, op string) {
	if err := r.store.Save(ctx, r.links); err != nil {
		r.dirty = true
		r.logger.ErrorContext(ctx, "failed to save links",
			"operation", op,
			"error", err.Error(),
			"error_kind", errx.KindOf(err),
		)
		return
	}
	r.dirty = false
}

// List returns a copy of the collection, newest first.
func (r *Registry) List() []Link {
	r.mu.Lock()
	defer r.mu.Unlock()

	return cloneLinks(r.links)
}

// Recent returns at most n of the most recently created links.
func (r *Registry) Recent(n int) []Link {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n < 0 {
		n = 0
	}
	return cloneLinks(r.links[:min(n, len(r.links))])
}

// Lookup finds a link by exact short code.
func (r *Registry) Lookup(code string) (Link, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexByCode(code)
	if i < 0 {
		return Link{}, false
	}
	return r.links[i].clone(), true
}

// Analytics computes collection-wide totals at the current time.
func (r *Registry) Analytics() Analytics {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var a Analytics
	a.TotalLinks = len(r.links)
	for _, l := range r.links {
		a.TotalClicks += l.ClickCount()
		if l.Active(now) {
			a.ActiveLinks++
		}
	}
	if a.TotalLinks > 0 {
		a.AvgClicksPerLink = int(math.Round(float64(a.TotalClicks) / float64(a.TotalLinks)))
	}
	return a
}

// ClicksByDay buckets every recorded click by its calendar date in loc,
// oldest date first.
func (r *Registry) ClicksByDay(loc *time.Location) []DailyClicks {
	if loc == nil {
		loc = time.Local
	}

	r.mu.Lock()
	counts := make(map[string]int)
	for _, l := range r.links {
		for _, c := range l.Clicks {
			counts[c.Timestamp.In(loc).Format(time.DateOnly)]++
		}
	}
	r.mu.Unlock()

	days := make([]DailyClicks, 0, len(counts))
	for d, n := range counts {
		days = append(days, DailyClicks{Date: d, Clicks: n})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

// Now returns the registry's current time.
func (r *Registry) Now() time.Time {
	return r.now()
}

// ShortURL formats the public short URL for code.
func (r *Registry) ShortURL(code string) string {
	return r.baseURL + RoutePrefix + url.PathEscape(code)
}

// clock returns the current time truncated to the millisecond resolution the
// collection is persisted with.
func (r *Registry) clock() time.Time {
	return time.UnixMilli(r.now().UnixMilli())
}

func (r *Registry) indexByCode(code string) int {
	for i := range r.links {
		if r.links[i].ShortCode == code {
			return i
		}
	}
	return -1
}

func (r *Registry) indexByID(id string) int {
	for i := range r.links {
		if r.links[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneLinks(links []Link) []Link {
	out := make([]Link, len(links))
	for i, l := range links {
		out[i] = l.clone()
	}
	return out
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: url cannot be empty", ErrInvalidURL)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme == "" {
		return fmt.Errorf("%w: missing scheme", ErrInvalidURL)
	}
	if parsed.Host == "" && parsed.Opaque == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
