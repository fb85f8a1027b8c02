//go:build unix

package safedelete

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// moveToTrash implements the subset of the freedesktop.org trash
// specification needed for a single-file "move to trash" operation: files
// go to $XDG_DATA_HOME/Trash/files (default ~/.local/share/Trash/files)
// with a sibling .trashinfo record in Trash/info, using atomic rename
// within the trash directory and falling back to a numeric suffix on name
// collision. No pack dependency wraps a platform recycle bin, so this is
// hand-rolled against the spec text rather than adapted from an example.
func moveToTrash(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}

	trashDir, err := trashHomeDir()
	if err != nil {
		return err
	}
	filesDir := filepath.Join(trashDir, "files")
	infoDir := filepath.Join(trashDir, "info")
	for _, d := range []string{filesDir, infoDir} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return fmt.Errorf("create trash directory %s: %w", d, err)
		}
	}

	base := filepath.Base(abs)
	dest, infoPath, err := uniqueTrashNames(filesDir, infoDir, base)
	if err != nil {
		return err
	}

	info := trashInfoContents(abs, time.Now())
	if err := os.WriteFile(infoPath, []byte(info), 0o600); err != nil {
		return fmt.Errorf("write trashinfo: %w", err)
	}

	if err := os.Rename(abs, dest); err != nil {
		_ = os.Remove(infoPath)
		return fmt.Errorf("move to trash: %w", err)
	}
	return nil
}

func trashHomeDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "Trash"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "Trash"), nil
}

// uniqueTrashNames returns non-colliding destination paths for a trashed
// file's payload and its .trashinfo record, appending "-N" before any
// existing extension when base is already in use.
func uniqueTrashNames(filesDir, infoDir, base string) (filePath, infoPath string, err error) {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	candidate := base
	for i := 0; ; i++ {
		filePath = filepath.Join(filesDir, candidate)
		infoPath = filepath.Join(infoDir, candidate+".trashinfo")
		if !exists(filePath) && !exists(infoPath) {
			return filePath, infoPath, nil
		}
		i++
		candidate = stem + "-" + strconv.Itoa(i) + ext
		if i > 10000 {
			return "", "", fmt.Errorf("could not find a free trash slot for %s", base)
		}
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func trashInfoContents(originalPath string, deletedAt time.Time) string {
	var b strings.Builder
	b.WriteString("[Trash Info]\n")
	b.WriteString("Path=" + originalPath + "\n")
	b.WriteString("DeletionDate=" + deletedAt.Format("2006-01-02T15:04:05") + "\n")
	return b.String()
}
