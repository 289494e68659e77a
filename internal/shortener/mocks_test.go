package shortener

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/sundayezeilo/shortlinks/internal/idgen"
)

/***************
 * Mocks / Stubs
 ***************/

// mockStore keeps the last saved collection in its encoded form so every
// test round-trips through the codec.
type mockStore struct {
	mu       sync.Mutex
	blob     []byte
	saves    int
	loadFunc func(ctx context.Context) ([]Link, error)
	saveFunc func(ctx context.Context, links []Link) error
}

func (m *mockStore) Load(ctx context.Context) ([]Link, error) {
	if m.loadFunc != nil {
		return m.loadFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return DecodeLinks(m.blob)
}

func (m *mockStore) Save(ctx context.Context, links []Link) error {
	m.mu.Lock()
	m.saves++
	m.mu.Unlock()

	if m.saveFunc != nil {
		if err := m.saveFunc(ctx, links); err != nil {
			return err
		}
	}

	data, err := EncodeLinks(links)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.blob = data
	m.mu.Unlock()
	return nil
}

func (m *mockStore) saved() []Link {
	m.mu.Lock()
	defer m.mu.Unlock()
	links, err := DecodeLinks(m.blob)
	if err != nil {
		panic(err)
	}
	return links
}

func (m *mockStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type mockCodeGen struct {
	mu    sync.Mutex
	codes []string
	calls int
	err   error
}

func (m *mockCodeGen) Generate(length int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	code := m.codes[m.calls%len(m.codes)]
	m.calls++
	return code, nil
}

// sequentialIDs yields "id-1", "id-2", ... in call order.
func sequentialIDs() idgen.Generator {
	var mu sync.Mutex
	next := 0
	return idgen.Func(func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		next++
		return "id-" + strconv.Itoa(next), nil
	})
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errStoreDown = errors.New("store unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store    *mockStore
	clock    *fakeClock
	codes    *mockCodeGen
	registry *Registry
	resolver *Resolver
}

func newFixture(codes ...string) *fixture {
	if len(codes) == 0 {
		codes = []string{"aB3xY9"}
	}
	f := &fixture{
		store: &mockStore{},
		clock: newFakeClock(),
		codes: &mockCodeGen{codes: codes},
	}
	f.registry = NewRegistry(context.Background(), f.store, &RegistryConfig{
		Clock:         f.clock.Now,
		CodeGenerator: f.codes,
		IDGenerator:   sequentialIDs(),
		Logger:        discardLogger(),
		BaseURL:       "http://sho.rt",
	})
	f.resolver = NewResolver(f.registry, &ResolverConfig{
		Clock:  f.clock.Now,
		Logger: discardLogger(),
	})
	return f
}
