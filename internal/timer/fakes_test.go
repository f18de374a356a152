package timer

import (
	"context"
	"sync"
	"time"

	"github.com/focuslock/focuslock/internal/config"
	"github.com/focuslock/focuslock/internal/events"
	"github.com/focuslock/focuslock/internal/session"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 10, 19, 9, 0, 0, 0, time.Local)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// journal records the order of side effects across fakes.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	j.entries = append(j.entries, s)
	j.mu.Unlock()
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func (j *journal) count(s string) int {
	n := 0
	for _, e := range j.list() {
		if e == s {
			n++
		}
	}
	return n
}

type memStore struct {
	mu      sync.Mutex
	session *session.FocusSession
	j       *journal
}

func (m *memStore) Save(s *session.FocusSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.session = &cp
	m.j.add("session.save")
	return nil
}

func (m *memStore) Load() (*session.FocusSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, session.ErrNotFound
	}
	cp := *m.session
	return &cp, nil
}

func (m *memStore) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	m.j.add("session.delete")
	return nil
}

func (m *memStore) current() *session.FocusSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

type fakeSites struct {
	mu       sync.Mutex
	active   bool
	blockErr error
	j        *journal
}

func (f *fakeSites) Block(context.Context) error {
	f.j.add("sites.block")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.blockErr != nil {
		return f.blockErr
	}
	f.active = true
	return nil
}

func (f *fakeSites) Unblock(context.Context) error {
	f.j.add("sites.unblock")
	f.mu.Lock()
	f.active = false
	f.mu.Unlock()
	return nil
}

func (f *fakeSites) IsBlockingActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeSites) CleanupIfNeeded(ctx context.Context) error {
	f.j.add("sites.cleanup")
	return f.Unblock(ctx)
}

type fakeApps struct{ j *journal }

func (f *fakeApps) Start() { f.j.add("apps.start") }
func (f *fakeApps) Stop()  { f.j.add("apps.stop") }

type fakeSettings struct {
	mu sync.Mutex
	p  config.Pomodoro
}

func (f *fakeSettings) Pomodoro() config.Pomodoro {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.p
}

func (f *fakeSettings) UpdatePomodoro(fn func(*config.Pomodoro)) (config.Pomodoro, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.p)
	return f.p, nil
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Emit(e events.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Type
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorder) has(t events.Type) bool {
	for _, got := range r.types() {
		if got == t {
			return true
		}
	}
	return false
}

type harness struct {
	engine   *Engine
	clock    *fakeClock
	store    *memStore
	sites    *fakeSites
	settings *fakeSettings
	rec      *recorder
	j        *journal
}

func newHarness(workMinutes, breakMinutes, limit int) *harness {
	j := &journal{}
	h := &harness{
		clock:    newFakeClock(),
		store:    &memStore{j: j},
		sites:    &fakeSites{j: j},
		settings: &fakeSettings{p: config.Pomodoro{WorkMinutes: workMinutes, BreakMinutes: breakMinutes, EmergencyCancelLimit: limit}},
		rec:      &recorder{},
		j:        j,
	}
	h.engine = New(Options{
		Store:    h.store,
		Sites:    h.sites,
		Apps:     &fakeApps{j: j},
		Settings: h.settings,
		Emitter:  h.rec,
		Clock:    h.clock.Now,
		Interval: 2 * time.Millisecond,
	})
	return h
}
