package converge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
)

// Command is a process invocation.
type Command struct {
	Name  string
	Args  []string
	Env   []string
	Stdin string
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// CommandResult is the outcome of a command that was started.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Succeeded reports whether the command exited with status zero.
func (r CommandResult) Succeeded() bool {
	return r.ExitCode == 0
}

// CommandRunner executes commands on the host.
// A non-zero exit status is reported in the result, not as an error; the
// error is reserved for commands that could not be run at all.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (CommandResult, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, c Command) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("could not run %s: %w", c.Name, err)
	}
	return result, nil
}

// ErrUnknownAccount is returned by Accounts when a user or group does not exist.
var ErrUnknownAccount = errors.New("unknown account")

// Accounts resolves user and group names to numeric ids.
// Names that do not exist yield an error wrapping ErrUnknownAccount.
type Accounts interface {
	LookupUser(name string) (uid int, err error)
	LookupGroup(name string) (gid int, err error)
}

// SystemAccounts resolves names against the host account database.
type SystemAccounts struct{}

// LookupUser implements Accounts.
func (SystemAccounts) LookupUser(name string) (int, error) {
	u, err := user.Lookup(name)
	var unknown user.UnknownUserError
	if errors.As(err, &unknown) {
		return 0, fmt.Errorf("%w: user %s", ErrUnknownAccount, name)
	}
	if err != nil {
		return 0, fmt.Errorf("could not look up user %s: %w", name, err)
	}
	return strconv.Atoi(u.Uid)
}

// LookupGroup implements Accounts.
func (SystemAccounts) LookupGroup(name string) (int, error) {
	g, err := user.LookupGroup(name)
	var unknown user.UnknownGroupError
	if errors.As(err, &unknown) {
		return 0, fmt.Errorf("%w: group %s", ErrUnknownAccount, name)
	}
	if err != nil {
		return 0, fmt.Errorf("could not look up group %s: %w", name, err)
	}
	return strconv.Atoi(g.Gid)
}

// Host is the target of a convergence run.
type Host struct {
	// Root prefixes the paths of filesystem resources; empty means "/".
	// Commands and account lookups always act on the running system.
	Root string

	Runner   CommandRunner
	Accounts Accounts

	// DryRun reports actions without performing them.
	DryRun bool

	Log *slog.Logger
}

// NewHost returns a Host acting on the live system.
func NewHost(root string, dryRun bool, log *slog.Logger) *Host {
	return &Host{
		Root:     root,
		Runner:   ExecRunner{},
		Accounts: SystemAccounts{},
		DryRun:   dryRun,
		Log:      log,
	}
}

// Path maps an absolute resource path onto the host root.
func (h *Host) Path(p string) string {
	if h.Root == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(h.Root, p)
}
