package converge

import (
	"context"
	"fmt"
	"strings"
)

// User ensures a local account exists with the given attributes.
// The home directory itself is not created.
type User struct {
	Username string
	Comment  string
	Home     string
	Shell    string
	System   bool
}

func (u User) Kind() string { return "user" }
func (u User) Name() string { return u.Username }

// passwdEntry is one line of the passwd database.
type passwdEntry struct {
	Name    string
	Comment string
	Home    string
	Shell   string
}

func parsePasswd(line string) (passwdEntry, error) {
	fields := strings.Split(strings.TrimSpace(line), ":")
	if len(fields) != 7 {
		return passwdEntry{}, fmt.Errorf("malformed passwd entry %q", line)
	}
	return passwdEntry{
		Name:    fields[0],
		Comment: fields[4],
		Home:    fields[5],
		Shell:   fields[6],
	}, nil
}

// Apply implements Resource.
func (u User) Apply(ctx context.Context, h *Host) (Result, error) {
	res, err := h.Runner.Run(ctx, Command{Name: "getent", Args: []string{"passwd", u.Username}})
	if err != nil {
		return Result{}, err
	}

	switch res.ExitCode {
	case 0:
		return u.modify(ctx, h, res.Stdout)
	case 2:
		return u.create(ctx, h)
	default:
		return Result{}, fmt.Errorf("getent passwd %s exited with %d", u.Username, res.ExitCode)
	}
}

func (u User) create(ctx context.Context, h *Host) (Result, error) {
	var args []string
	if u.System {
		args = append(args, "--system")
	}
	if u.Comment != "" {
		args = append(args, "-c", u.Comment)
	}
	if u.Home != "" {
		args = append(args, "-d", u.Home)
	}
	if u.Shell != "" {
		args = append(args, "-s", u.Shell)
	}
	args = append(args, u.Username)

	if err := u.run(ctx, h, Command{Name: "useradd", Args: args}); err != nil {
		return Result{}, err
	}
	return newResult(u, []string{"create"}), nil
}

func (u User) modify(ctx context.Context, h *Host, line string) (Result, error) {
	current, err := parsePasswd(line)
	if err != nil {
		return Result{}, err
	}

	var args, actions []string
	if u.Comment != "" && current.Comment != u.Comment {
		args = append(args, "-c", u.Comment)
		actions = append(actions, "change comment")
	}
	if u.Home != "" && current.Home != u.Home {
		args = append(args, "-d", u.Home)
		actions = append(actions, fmt.Sprintf("change home from %s to %s", current.Home, u.Home))
	}
	if u.Shell != "" && current.Shell != u.Shell {
		args = append(args, "-s", u.Shell)
		actions = append(actions, fmt.Sprintf("change shell from %s to %s", current.Shell, u.Shell))
	}
	if len(args) == 0 {
		return newResult(u, nil), nil
	}

	args = append(args, u.Username)
	if err := u.run(ctx, h, Command{Name: "usermod", Args: args}); err != nil {
		return Result{}, err
	}
	return newResult(u, actions), nil
}

func (u User) run(ctx context.Context, h *Host, cmd Command) error {
	if h.DryRun {
		return nil
	}
	res, err := h.Runner.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if !res.Succeeded() {
		return fmt.Errorf("%s exited with %d: %s", cmd.Name, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// EnsureUser applies a User resource.
func EnsureUser(ctx context.Context, h *Host, u User) (Result, error) {
	return u.Apply(ctx, h)
}
