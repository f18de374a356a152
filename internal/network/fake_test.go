package network

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

type call struct {
	name string
	args []string
}

// fakeRunner records invocations. When escalation is allowed it emulates the
// privileged batch by copying the staged hosts file over the hosts file and
// capturing the staged pf rules.
type fakeRunner struct {
	mu    sync.Mutex
	calls []call

	paths       Paths
	escalateErr error
	stderr      string
	failing     map[string]bool
	digOutput   map[string]string
	rules       string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: args})
	f.mu.Unlock()

	if f.failing[name] {
		return nil, []byte(f.stderr), errors.Errorf("%s failed", name)
	}

	switch name {
	case "osascript":
		if f.escalateErr != nil {
			return nil, []byte(f.stderr), f.escalateErr
		}
		data, err := os.ReadFile(f.paths.stagedHosts())
		if err != nil {
			return nil, nil, err
		}
		if rules, err := os.ReadFile(f.paths.stagedRules()); err == nil {
			f.mu.Lock()
			f.rules = string(rules)
			f.mu.Unlock()
		}
		return nil, nil, os.WriteFile(f.paths.Hosts, data, 0644)
	case "dig":
		domain := args[len(args)-1]
		out, ok := f.digOutput[domain]
		if !ok {
			return nil, []byte("dig: couldn't get address"), errors.New("exit status 9")
		}
		return []byte(out), nil, nil
	}
	return nil, nil, nil
}

func (f *fakeRunner) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, c := range f.calls {
		names = append(names, c.name)
	}
	return names
}

func (f *fakeRunner) find(name string) (call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.name == name {
			return c, true
		}
	}
	return call{}, false
}

func (c call) joined() string {
	return strings.Join(c.args, " ")
}

func (f *fakeRunner) stagedRules() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rules
}
