package converge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
)

// fakeRunner records commands and answers them from a lookup table keyed by
// the rendered command line.
type fakeRunner struct {
	responses map[string]CommandResult
	commands  []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{responses: make(map[string]CommandResult)}
}

func (f *fakeRunner) on(cmdline string, res CommandResult) {
	f.responses[cmdline] = res
}

func (f *fakeRunner) Run(ctx context.Context, cmd Command) (CommandResult, error) {
	line := cmd.String()
	f.commands = append(f.commands, line)
	if res, ok := f.responses[line]; ok {
		return res, nil
	}
	return CommandResult{}, nil
}

func (f *fakeRunner) ran(prefix string) bool {
	for _, c := range f.commands {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// currentAccounts maps every name to the uid and gid of the test process so
// ownership changes succeed without privileges.
type currentAccounts struct{}

func (currentAccounts) LookupUser(string) (int, error)  { return os.Getuid(), nil }
func (currentAccounts) LookupGroup(string) (int, error) { return os.Getgid(), nil }

func newTestHost(t *testing.T, dryRun bool) (*Host, *fakeRunner) {
	t.Helper()
	runner := newFakeRunner()
	return &Host{
		Root:     t.TempDir(),
		Runner:   runner,
		Accounts: currentAccounts{},
		DryRun:   dryRun,
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, runner
}

// freshAccounts knows only the listed names, like a host where the
// accounts a run creates do not exist yet.
type freshAccounts map[string]bool

func (f freshAccounts) LookupUser(name string) (int, error) {
	if !f[name] {
		return 0, fmt.Errorf("%w: user %s", ErrUnknownAccount, name)
	}
	return os.Getuid(), nil
}

func (f freshAccounts) LookupGroup(name string) (int, error) {
	if !f[name] {
		return 0, fmt.Errorf("%w: group %s", ErrUnknownAccount, name)
	}
	return os.Getgid(), nil
}
