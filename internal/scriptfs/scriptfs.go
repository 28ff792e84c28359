// Package scriptfs maps qualified object names to script files under an
// output root and writes definitions to them.
//
// The local name of an object is split on a separator character; every
// segment but the last becomes a directory and the last becomes the file
// name. With separator '_', Function dbo.get_user_byId is written to
// <root>/Functions/get/user/byId.sql.
//
// Consecutive separators are collapsed, so "a__b" resolves like "a_b"; a
// name made of separators only keeps the whole local name as file name.
// Segments that would escape the category folder ("." and "..", or segments
// holding a path separator) are percent-escaped.
package scriptfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sadopc/sqlextract/internal/catalog"
)

// Extension is appended to the last segment of every script file.
const Extension = ".sql"

var ErrEmptyName = errors.New("empty object name")

var segmentEscaper = strings.NewReplacer(
	"%", "%25",
	"/", "%2F",
	`\`, "%5C",
)

func escapeSegment(s string) string {
	switch s {
	case ".":
		return "%2E"
	case "..":
		return "%2E%2E"
	}
	return segmentEscaper.Replace(s)
}

// Segments splits a local name on sep, dropping empty segments.
func Segments(local string, sep rune) []string {
	parts := strings.Split(local, string(sep))
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 && local != "" {
		return []string{local}
	}
	return out
}

// Resolve returns the script path for name in category cat. It does not
// touch the filesystem.
func Resolve(root string, cat catalog.Category, sep rune, name catalog.QualifiedName) (string, error) {
	if !cat.Valid() {
		return "", fmt.Errorf("scriptfs resolve: %w: %v", catalog.ErrUnknownCategory, cat)
	}
	if name.Name == "" {
		return "", fmt.Errorf("scriptfs resolve %q: %w", name.String(), ErrEmptyName)
	}

	segs := Segments(name.Name, sep)
	elems := make([]string, 0, len(segs)+2)
	elems = append(elems, root, cat.Folder())
	for _, s := range segs[:len(segs)-1] {
		elems = append(elems, escapeSegment(s))
	}
	elems = append(elems, escapeSegment(segs[len(segs)-1])+Extension)
	return filepath.Join(elems...), nil
}

// Write resolves the path for name, creates missing directories and writes
// text verbatim, replacing any existing file. It returns the written path.
func Write(root string, cat catalog.Category, sep rune, name catalog.QualifiedName, text string) (string, error) {
	path, err := Resolve(root, cat, sep, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return path, fmt.Errorf("scriptfs create dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return path, fmt.Errorf("scriptfs write: %w", err)
	}
	return path, nil
}
