package scanner

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajranjith/uiaudit/internal/auditerr"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/h2non/filetype"
)

// probe is appended to directory paths so that "dir/**" style ignore patterns can prune a
// whole subtree before it is walked.
const probe = "__uiaudit_probe__"

// sniffLen is how much of a file is inspected for binary signatures.
const sniffLen = 8192

// Files enumerates root and returns the slash-separated relative paths of files that match
// an include pattern and no ignore pattern, in lexical walk order.
func (s *Scanner) Files(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, auditerr.Scan("enumerate", err).With("root", root)
	}
	if !info.IsDir() {
		return nil, auditerr.Scan("enumerate", errNotDir).With("root", root)
	}
	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			s.log.Warn("cannot read path", "path", path, "err", walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if s.SkipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !matchAny(s.opts.Include, rel) || matchAny(s.opts.Ignore, rel) {
			return nil
		}
		if s.opts.IncludeFunc != nil && !s.opts.IncludeFunc(rel) {
			return nil
		}
		if s.opts.ExcludeFunc != nil && s.opts.ExcludeFunc(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, auditerr.Scan("enumerate", err).With("root", root)
	}
	return files, nil
}

// SkipDir reports whether the directory at the slash-separated relative path rel is pruned
// from enumeration: the output directory or a directory an ignore pattern covers.
func (s *Scanner) SkipDir(rel string) bool {
	if rel == filepath.ToSlash(filepath.Clean(s.opts.OutputDir)) {
		return true
	}
	return matchAny(s.opts.Ignore, rel+"/"+probe)
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// ValidatePatterns reports the first malformed glob.
func ValidatePatterns(patterns []string) (string, bool) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return p, false
		}
	}
	return "", true
}

// IsBinary reports whether data looks like a binary file: a known magic number or a NUL
// byte near the start.
func IsBinary(data []byte) bool {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if len(head) == 0 {
		return false
	}
	if kind, _ := filetype.Match(head); kind != filetype.Unknown {
		return true
	}
	return bytes.IndexByte(head, 0) >= 0
}

// relPath turns a path handed back by a hook into the slash-separated form used as a key.
func relPath(root, p string) string {
	if filepath.IsAbs(p) {
		if rel, err := filepath.Rel(root, p); err == nil && !strings.HasPrefix(rel, "..") {
			p = rel
		}
	}
	return filepath.ToSlash(filepath.Clean(p))
}
