// Package fsutil creates run directories and files owned by a configured
// user, for runs written as root on behalf of another account.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Owner is the numeric user and group that written paths are handed to.
type Owner struct {
	UID int
	GID int
}

// ParseOwner parses "UID:GID" or a bare "UID", in which case the group
// equals the user. An empty string yields a nil owner.
func ParseOwner(s string) (*Owner, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	uidStr, gidStr, hasGID := strings.Cut(s, ":")
	if !hasGID {
		gidStr = uidStr
	}

	uid, err := parseID(uidStr)
	if err != nil {
		return nil, fmt.Errorf("invalid owner %q: uid: %w", s, err)
	}

	gid, err := parseID(gidStr)
	if err != nil {
		return nil, fmt.Errorf("invalid owner %q: gid: %w", s, err)
	}

	return &Owner{UID: uid, GID: gid}, nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}

	if id < 0 {
		return 0, fmt.Errorf("negative id %d", id)
	}

	return id, nil
}

// String formats the owner as "UID:GID".
func (o *Owner) String() string {
	if o == nil {
		return ""
	}

	return fmt.Sprintf("%d:%d", o.UID, o.GID)
}

// Apply hands path to the owner. A nil owner leaves path untouched.
func (o *Owner) Apply(path string) error {
	if o == nil {
		return nil
	}

	if err := os.Lchown(path, o.UID, o.GID); err != nil {
		return fmt.Errorf("chown %s to %s: %w", path, o, err)
	}

	return nil
}

// MkdirAll creates path and any missing parents, handing every directory it
// created to owner. Directories that already existed keep their ownership.
func MkdirAll(path string, perm os.FileMode, owner *Owner) error {
	missing, err := missingDirs(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(path, perm); err != nil {
		return err
	}

	for _, dir := range missing {
		if err := owner.Apply(dir); err != nil {
			return err
		}
	}

	return nil
}

// missingDirs lists path and its ancestors that do not exist yet, outermost
// first.
func missingDirs(path string) ([]string, error) {
	var missing []string

	for dir := filepath.Clean(path); ; {
		_, err := os.Stat(dir)
		if err == nil {
			break
		}

		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}

		missing = append([]string{dir}, missing...)

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return missing, nil
}

// WriteFile writes data to path and hands the file to owner.
func WriteFile(path string, data []byte, perm os.FileMode, owner *Owner) error {
	if err := os.WriteFile(path, data, perm); err != nil {
		return err
	}

	return owner.Apply(path)
}
