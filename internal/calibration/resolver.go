// Package calibration finds engineering calibration files for variables and
// keeps the list of files a document refers to but that do not exist yet.
package calibration

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	"configedit/internal/assets"

	"github.com/rs/zerolog"
)

// FileExt is the extension of engineering calibration files.
const FileExt = ".dat"

// Resolver answers whether a site's engineering calibration directory holds
// a file for a variable. The directory listing is read once by Load.
type Resolver struct {
	store  assets.Store
	root   string
	logger zerolog.Logger

	dir   string
	files []string
}

// NewResolver builds a resolver over store. root is the key prefix holding
// one directory per site.
func NewResolver(store assets.Store, root string, logger zerolog.Logger) *Resolver {
	return &Resolver{store: store, root: root, logger: logger}
}

// Dir is the key prefix of the loaded site directory.
func (r *Resolver) Dir() string { return r.dir }

// Load lists the .dat files of site. Names containing an underscore are
// placed first so that they win when both a full and a prefix name match.
func (r *Resolver) Load(ctx context.Context, site string) error {
	r.dir = path.Join(r.root, site) + "/"
	r.files = nil
	if r.store == nil {
		return nil
	}
	infos, err := r.store.List(ctx, r.dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", r.dir, err)
	}
	var plain []string
	for _, info := range infos {
		name := strings.TrimPrefix(info.Key, r.dir)
		if strings.Contains(name, "/") || !strings.HasSuffix(name, FileExt) {
			continue
		}
		if strings.Contains(name, "_") {
			r.files = append(r.files, name)
		} else {
			plain = append(plain, name)
		}
	}
	r.files = append(r.files, plain...)
	r.logger.Debug().Str("dir", r.dir).Strs("files", r.files).Msg("engineering calibration files")
	return nil
}

// Available reports whether the loaded directory held any calibration file.
func (r *Resolver) Available() bool { return len(r.files) > 0 }

// Files lists the loaded file names in search order.
func (r *Resolver) Files() []string { return slices.Clone(r.files) }

// Resolve returns the file to reference for a variable: the first listed
// file named after fullName or prefix. When neither exists the full name's
// file is returned with found set to false.
func (r *Resolver) Resolve(fullName, prefix string) (file string, found bool) {
	want := fullName + FileExt
	alt := prefix + FileExt
	for _, f := range r.files {
		if f == want || (prefix != "" && f == alt) {
			return f, true
		}
	}
	return want, false
}

// Ledger is the ordered, duplicate-free list of variables whose calibration
// file was referenced but not found.
type Ledger struct {
	names []string
}

// Add records name, reporting whether it was new.
func (l *Ledger) Add(name string) bool {
	if slices.Contains(l.names, name) {
		return false
	}
	l.names = append(l.names, name)
	return true
}

// Names returns the recorded names in insertion order.
func (l *Ledger) Names() []string { return slices.Clone(l.names) }

// Len is the number of recorded names.
func (l *Ledger) Len() int { return len(l.names) }

// Reset forgets every name.
func (l *Ledger) Reset() { l.names = nil }
