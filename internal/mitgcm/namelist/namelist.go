// Package namelist rewrites MITgcm Fortran namelist input files.
//
// The model reads its runtime parameters from a file named "data" in the
// run directory. Rather than regenerating the whole file, a rewrite
// starts from a pristine backup and replaces only the parameter lines
// the caller overrides, leaving everything else byte-for-byte intact.
package namelist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Rewrite copies the namelist from r to w, replacing any line whose
// (trimmed) content starts with one of the parameter names in overrides.
// Values are written as Fortran reals in the form " key=value.," —
// MITgcm expects a real even for whole-number values, so integer
// overrides get a trailing dot.
func Rewrite(r io.Reader, w io.Writer, overrides map[string]int) error {
	scanner := bufio.NewScanner(r)
	bw := bufio.NewWriter(w)

	for scanner.Scan() {
		line := scanner.Text()

		if key, ok := matchParameter(line, overrides); ok {
			line = fmt.Sprintf(" %s=%d.,", key, overrides[key])
		}

		if _, err := bw.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("write namelist line: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read namelist: %w", err)
	}

	return bw.Flush()
}

// matchParameter reports which override key (if any) the line assigns.
// A line assigns a key when its trimmed content starts with the key
// followed by optional spaces and '='. A bare prefix match is not
// enough: "deltaTClock=..." must not match the "deltaT" override.
func matchParameter(line string, overrides map[string]int) (string, bool) {
	trimmed := strings.TrimSpace(line)
	for key := range overrides {
		if !strings.HasPrefix(trimmed, key) {
			continue
		}
		rest := strings.TrimSpace(trimmed[len(key):])
		if strings.HasPrefix(rest, "=") {
			return key, true
		}
	}
	return "", false
}

// RewriteFile rewrites the namelist at backupPath into the live file at
// livePath, going through a sibling "<live>_new" file first so a failed
// rewrite never leaves a truncated live namelist behind.
func RewriteFile(backupPath, livePath string, overrides map[string]int) error {
	src, err := os.Open(backupPath)
	if err != nil {
		return fmt.Errorf("open namelist backup: %w", err)
	}
	defer src.Close()

	newPath := strings.TrimRight(livePath, "/") + "_new"
	dst, err := os.Create(newPath)
	if err != nil {
		return fmt.Errorf("create rewritten namelist: %w", err)
	}

	if err := Rewrite(src, dst, overrides); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close rewritten namelist: %w", err)
	}

	if err := os.Rename(newPath, livePath); err != nil {
		// Rename can fail across filesystems; fall back to a copy.
		if copyErr := copyFile(newPath, livePath); copyErr != nil {
			return fmt.Errorf("install rewritten namelist: %w", copyErr)
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
