package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sundayezeilo/shortlinks/internal/app"
	"github.com/sundayezeilo/shortlinks/internal/config"
	"github.com/sundayezeilo/shortlinks/internal/errx"
	"github.com/sundayezeilo/shortlinks/internal/shortener"
)

type testEnv struct {
	cfg *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{cfg: &config.Config{
		Server: config.ServerConfig{BaseURL: "http://sho.rt"},
		Store: config.StoreConfig{
			Driver:   config.DriverFile,
			FilePath: filepath.Join(t.TempDir(), "links.json"),
			Key:      shortener.StorageKey,
		},
		Links: config.LinksConfig{
			CodeLength:             6,
			MaxCodeAttempts:        5,
			DefaultLifetimeMinutes: 30,
			MaxLifetimeMinutes:     43200,
			RedirectDelay:          10 * time.Millisecond,
		},
		App: config.AppConfig{Environment: "test", LogLevel: "error"},
	}}
}

func (e *testEnv) opener(ctx context.Context, logw io.Writer) (*app.App, error) {
	return app.New(ctx, app.WithConfig(e.cfg), app.WithLogOutput(logw))
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return e.runContext(t, context.Background(), args...)
}

func (e *testEnv) runContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Execute(ctx, e.opener, args, &stdout, &stderr)
	return stdout.String(), err
}

func TestCreateAndList(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "create", "https://example.com/docs", "--code", "docs")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if strings.TrimSpace(out) != "http://sho.rt/s/docs" {
		t.Errorf("create output = %q, want http://sho.rt/s/docs", out)
	}

	out, err = env.run(t, "create", "https://example.com/generated")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.HasPrefix(out, "http://sho.rt/s/") {
		t.Errorf("create output = %q, want a short URL", out)
	}

	out, err = env.run(t, "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("list printed %d lines, want header + 2:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "https://example.com/generated") {
		t.Errorf("newest link should be listed first, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "docs") || !strings.Contains(lines[2], "active") {
		t.Errorf("second row = %q, want the docs link marked active", lines[2])
	}
}

func TestCreate_Errors(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.run(t, "create", "https://example.com", "--code", "promo"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	tests := []struct {
		name string
		args []string
		kind errx.Kind
	}{
		{"duplicate code", []string{"create", "https://example.com/other", "--code", "promo"}, errx.Conflict},
		{"invalid url", []string{"create", "not a url"}, errx.Invalid},
		{"lifetime too long", []string{"create", "https://example.com", "--lifetime", "50000"}, errx.Invalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(t, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := errx.KindOf(err); got != tt.kind {
				t.Errorf("error kind = %v, want %v (err: %v)", got, tt.kind, err)
			}
		})
	}

	out, err := env.run(t, "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if n := strings.Count(out, "promo"); n != 1 {
		t.Errorf("promo listed %d times, want 1", n)
	}
}

func TestOpen(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "create", "https://example.com/landing", "--code", "land"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	out, err := env.run(t, "open", "land", "--referrer", "https://news.example")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if !strings.Contains(out, "Redirecting to https://example.com/landing") {
		t.Errorf("open output missing redirect notice: %q", out)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "https://example.com/landing") {
		t.Errorf("open should finish by printing the destination: %q", out)
	}

	out, err = env.run(t, "stats")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if !strings.Contains(out, "Total clicks:     1") {
		t.Errorf("stats should count the click recorded by open:\n%s", out)
	}
}

func TestOpen_Missing(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "open", "nope")
	if err == nil {
		t.Fatal("open of a missing code should fail")
	}
	if errx.KindOf(err) != errx.NotFound {
		t.Errorf("error kind = %v, want NotFound", errx.KindOf(err))
	}
	if !strings.Contains(out, "Link Not Found") {
		t.Errorf("output = %q, want Link Not Found", out)
	}
}

func TestOpen_CancelledBeforeRedirect(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Links.RedirectDelay = time.Hour
	if _, err := env.run(t, "create", "https://example.com", "--code", "slow"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	out, err := env.runContext(t, ctx, "open", "slow")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if !strings.Contains(out, "redirect cancelled") {
		t.Errorf("output = %q, want redirect cancelled", out)
	}

	// The click was recorded before the wait began.
	out, err = env.run(t, "stats")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if !strings.Contains(out, "Total clicks:     1") {
		t.Errorf("stats output:\n%s", out)
	}
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "create", "https://example.com", "--code", "gone"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	data, err := os.ReadFile(env.cfg.Store.FilePath)
	if err != nil {
		t.Fatal(err)
	}
	links, err := shortener.DecodeLinks(data)
	if err != nil || len(links) != 1 {
		t.Fatalf("stored links = %v, err = %v", links, err)
	}

	out, err := env.run(t, "delete", links[0].ID)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !strings.Contains(out, "deleted") {
		t.Errorf("delete output = %q", out)
	}

	out, err = env.run(t, "delete", links[0].ID)
	if err != nil {
		t.Fatalf("second delete failed: %v", err)
	}
	if !strings.Contains(out, "no link with id") {
		t.Errorf("second delete output = %q", out)
	}

	out, _ = env.run(t, "list")
	if strings.TrimSpace(out) != "no links yet" {
		t.Errorf("list after delete = %q", out)
	}
}

func TestExportImport(t *testing.T) {
	src := newTestEnv(t)
	for _, code := range []string{"one", "two"} {
		if _, err := src.run(t, "create", "https://example.com/"+code, "--code", code); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	exportPath := filepath.Join(t.TempDir(), "export.json")
	if _, err := src.run(t, "export", "--output", exportPath); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	dst := newTestEnv(t)
	if _, err := dst.run(t, "create", "https://example.com/existing", "--code", "two"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	out, err := dst.run(t, "import", exportPath)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if strings.TrimSpace(out) != "imported 1 links (1 skipped)" {
		t.Errorf("import output = %q", out)
	}

	out, err = dst.run(t, "export")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	links, err := shortener.DecodeLinks([]byte(out))
	if err != nil {
		t.Fatalf("export is not decodable: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("got %d links after import, want 2", len(links))
	}
	for _, l := range links {
		if l.ShortCode == "two" && l.OriginalURL != "https://example.com/existing" {
			t.Errorf("existing link was overwritten by import: %+v", l)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "frobnicate"); err == nil {
		t.Fatal("expected an error for an unknown command")
	}
}
