package converge

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Ownership is the owner, group and permission bits a path must carry.
type Ownership struct {
	Owner string
	Group string
	Mode  os.FileMode
}

func (o Ownership) ids(h *Host) (uid, gid int, err error) {
	uid, gid = -1, -1
	if o.Owner != "" {
		if uid, err = h.Accounts.LookupUser(o.Owner); err != nil {
			return 0, 0, err
		}
	}
	if o.Group != "" {
		if gid, err = h.Accounts.LookupGroup(o.Group); err != nil {
			return 0, 0, err
		}
	}
	return uid, gid, nil
}

// ensureOwnership fixes mode and ownership of an existing path and returns
// the actions taken. When missing is true the path does not exist yet (dry
// run), so every attribute is reported as pending. In dry run an owner or
// group that does not exist yet, because an earlier resource would create
// it, is reported as a pending ownership change.
func ensureOwnership(h *Host, path string, o Ownership, missing bool) ([]string, error) {
	uid, gid, err := o.ids(h)
	unresolved := false
	if err != nil {
		if !h.DryRun || !errors.Is(err, ErrUnknownAccount) {
			return nil, err
		}
		unresolved = true
	}
	ownerAction := fmt.Sprintf("set owner %s:%s", o.Owner, o.Group)

	if missing {
		actions := []string{fmt.Sprintf("set mode %04o", o.Mode.Perm())}
		if unresolved || uid >= 0 || gid >= 0 {
			actions = append(actions, ownerAction)
		}
		return actions, nil
	}

	// Stat follows symlinks so a linked directory is managed through its target.
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return nil, fmt.Errorf("could not stat %s: %w", path, err)
	}

	var actions []string
	have := uint32(st.Mode) & 0o7777
	want := uint32(o.Mode.Perm())
	if have != want {
		actions = append(actions, fmt.Sprintf("change mode from %04o to %04o", have, want))
		if !h.DryRun {
			if err := os.Chmod(path, o.Mode.Perm()); err != nil {
				return nil, fmt.Errorf("could not change mode of %s: %w", path, err)
			}
		}
	}

	if unresolved {
		return append(actions, ownerAction), nil
	}

	ownerDrift := uid >= 0 && st.Uid != uint32(uid)
	groupDrift := gid >= 0 && st.Gid != uint32(gid)
	if ownerDrift || groupDrift {
		actions = append(actions, fmt.Sprintf("change owner to %s:%s", o.Owner, o.Group))
		if !h.DryRun {
			if err := os.Chown(path, uid, gid); err != nil {
				return nil, fmt.Errorf("could not change owner of %s: %w", path, err)
			}
		}
	}

	return actions, nil
}
