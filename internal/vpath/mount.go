// SPDX-License-Identifier: MPL-2.0

package vpath

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ErrInvalidMount is the sentinel error wrapped by mount parsing errors.
var ErrInvalidMount = errors.New("invalid mount")

type (
	// Mount maps a host directory onto a directory inside the execution context.
	Mount struct {
		HostPath    string
		ContextPath string
	}

	// MountResolver rewrites paths under any of its host directories to the
	// matching context directory. The longest matching host prefix wins; a path
	// outside every mount is delegated to the next resolver.
	MountResolver struct {
		mounts []Mount
	}
)

// ParseMount parses a "host:context" mount spec. An optional trailing
// ":ro"/":rw"/":z"/":Z" option is accepted and ignored, as are Windows drive
// letters on the host side ("C:\src:/src").
func ParseMount(spec string) (Mount, error) {
	s := spec
	for _, opt := range []string{":ro", ":rw", ":z", ":Z"} {
		s = strings.TrimSuffix(s, opt)
	}

	idx := strings.LastIndex(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return Mount{}, fmt.Errorf("%w: %q (expected host:context)", ErrInvalidMount, spec)
	}
	m := Mount{HostPath: s[:idx], ContextPath: s[idx+1:]}
	if !strings.HasPrefix(m.ContextPath, "/") {
		return Mount{}, fmt.Errorf("%w: %q (context path must be absolute)", ErrInvalidMount, spec)
	}
	return m, nil
}

// NewMountResolver builds a resolver for mounts. Host paths are cleaned;
// context paths are treated as slash-separated.
func NewMountResolver(mounts ...Mount) *MountResolver {
	cleaned := make([]Mount, 0, len(mounts))
	for _, m := range mounts {
		cleaned = append(cleaned, Mount{
			HostPath:    filepath.Clean(m.HostPath),
			ContextPath: path.Clean(m.ContextPath),
		})
	}
	sort.SliceStable(cleaned, func(i, j int) bool {
		return len(cleaned[i].HostPath) > len(cleaned[j].HostPath)
	})
	return &MountResolver{mounts: cleaned}
}

// Mounts returns the mounts in match order (longest host path first).
func (r *MountResolver) Mounts() []Mount {
	out := make([]Mount, len(r.mounts))
	copy(out, r.mounts)
	return out
}

// Resolve implements Resolver.
func (r *MountResolver) Resolve(p string, next func(string) string) string {
	clean := filepath.Clean(p)
	for _, m := range r.mounts {
		rest, ok := underDir(clean, m.HostPath)
		if !ok {
			continue
		}
		if rest == "" {
			return m.ContextPath
		}
		return path.Join(m.ContextPath, filepath.ToSlash(rest))
	}
	return next(p)
}

// underDir reports whether p is dir or inside it, returning the remainder.
func underDir(p, dir string) (string, bool) {
	if p == dir {
		return "", true
	}
	prefix := dir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	rest, ok := strings.CutPrefix(p, prefix)
	return rest, ok
}
