// Package filepolicy validates candidate file sets against an explicit
// per-context policy. It is pure: no I/O, no hidden defaults. Activity
// submissions and component file editors share it with different policies.
package filepolicy

import (
	"fmt"
	"strings"
)

// FileInfo describes one candidate file. Size is in bytes.
type FileInfo struct {
	Name string
	Size int64
}

// Policy is the constraint set a file list is checked against. Zero values
// relax a rule: empty AllowedExtensions accepts any extension, MaxFileSize
// 0 means no size limit, MaxFiles 0 means no count limit.
type Policy struct {
	MaxFiles          int
	MaxFileSize       int64
	AllowedExtensions []string // compared case-insensitively, without dots
}

// Result reports acceptability plus every violation found, in input order.
type Result struct {
	Valid  bool
	Errors []string
}

// Validate checks files against policy. All rules are evaluated
// independently so the caller can surface the complete violation list.
func Validate(files []FileInfo, policy Policy) Result {
	var errs []string

	if policy.MaxFiles > 0 && len(files) > policy.MaxFiles {
		errs = append(errs, fmt.Sprintf("too many files: %d provided, at most %d allowed", len(files), policy.MaxFiles))
	}

	allowed := make(map[string]bool, len(policy.AllowedExtensions))
	for _, ext := range policy.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	for _, f := range files {
		if policy.MaxFileSize > 0 && f.Size > policy.MaxFileSize {
			errs = append(errs, fmt.Sprintf("%s exceeds the size limit of %d bytes", f.Name, policy.MaxFileSize))
		}
		if len(allowed) > 0 && !allowed[Extension(f.Name)] {
			errs = append(errs, fmt.Sprintf("%s has a disallowed file type %q", f.Name, Extension(f.Name)))
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

// Extension returns the lower-cased suffix after the last dot, without the
// dot. A name with no dot has an empty extension.
func Extension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}
