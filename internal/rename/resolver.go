package rename

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/vmunix/arrwatch/internal/torrent"
)

// Backend is the part of the download client the resolver needs.
type Backend interface {
	ListTorrents(ctx context.Context) ([]torrent.Torrent, error)
	ListFiles(ctx context.Context, hash string) ([]string, error)
	RenameFile(ctx context.Context, hash, oldName, newName string) error
	DeleteTorrent(ctx context.Context, hash string, purgeFiles bool) error
}

// Decision is the outcome for one torrent file. Changed is false when the
// name is already canonical or no episode number was found.
type Decision struct {
	Hash    string `json:"hash"`
	Old     string `json:"old"`
	New     string `json:"new"`
	Changed bool   `json:"changed"`
	// Err is ErrPatternNotFound for unmatched files, or the reason the
	// rename failed.
	Err error `json:"-"`
}

// Resolver renames torrent files to their canonical names. When the target
// name is held by another torrent in the same save path, that torrent is
// deleted together with its data and the current torrent wins.
type Resolver struct {
	backend Backend
	log     *slog.Logger
}

// NewResolver creates a resolver.
func NewResolver(backend Backend, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{backend: backend, log: log.With("component", "rename")}
}

// Preview computes decisions for every file of a torrent without touching it.
func (r *Resolver) Preview(ctx context.Context, hash, display, season string) ([]Decision, error) {
	files, err := r.backend.ListFiles(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("list files of %s: %w", hash, err)
	}
	decisions := make([]Decision, 0, len(files))
	for _, f := range files {
		decisions = append(decisions, decide(hash, f, display, season))
	}
	return decisions, nil
}

func decide(hash, file, display, season string) Decision {
	newName, ok := DeriveName(file, display, season)
	d := Decision{Hash: hash, Old: file, New: newName, Changed: ok && newName != file}
	if !ok {
		d.Err = ErrPatternNotFound
	}
	return d
}

// RenameTorrent renames every file of the torrent. Files are handled
// independently: one failed rename does not stop the others. The returned
// error joins every per-file failure, including advisory collision delete
// failures.
func (r *Resolver) RenameTorrent(ctx context.Context, hash, savePath, display, season string) ([]Decision, error) {
	decisions, err := r.Preview(ctx, hash, display, season)
	if err != nil {
		return nil, err
	}
	if len(decisions) == 0 {
		r.log.Debug("torrent has no files", "hash", hash)
		return nil, nil
	}

	// Siblings are listed once per torrent; deletions below prune the list.
	all, err := r.backend.ListTorrents(ctx)
	if err != nil {
		return decisions, fmt.Errorf("list torrents: %w", err)
	}
	sib := &siblings{hash: hash, savePath: CleanPath(savePath), files: map[string][]string{}}
	for _, t := range all {
		if t.Hash != hash && CleanPath(t.SavePath) == sib.savePath {
			sib.hashes = append(sib.hashes, t.Hash)
		}
	}

	var errs []error
	for i := range decisions {
		d := &decisions[i]
		if !d.Changed {
			if errors.Is(d.Err, ErrPatternNotFound) {
				r.log.Warn("no episode number in file name", "hash", hash, "file", d.Old)
			}
			continue
		}

		if err := r.clearCollisions(ctx, sib, d.New); err != nil {
			if errors.Is(err, torrent.ErrBackendUnavailable) {
				d.Err = err
				return decisions, errors.Join(append(errs, err)...)
			}
			errs = append(errs, err)
		}

		if err := r.backend.RenameFile(ctx, hash, d.Old, d.New); err != nil {
			d.Err = err
			d.Changed = false
			errs = append(errs, fmt.Errorf("rename %q: %w", d.Old, err))
			if errors.Is(err, torrent.ErrBackendUnavailable) {
				return decisions, errors.Join(errs...)
			}
			continue
		}
		r.log.Info("renamed file", "hash", hash, "old", d.Old, "new", d.New)
	}

	return decisions, errors.Join(errs...)
}

// siblings are the other torrents sharing the save path.
type siblings struct {
	hash     string
	savePath string
	hashes   []string
	files    map[string][]string
}

// clearCollisions deletes, with data, every sibling that has a file named
// target.
func (r *Resolver) clearCollisions(ctx context.Context, sib *siblings, target string) error {
	var errs []error
	kept := sib.hashes[:0]
	for _, other := range sib.hashes {
		files, ok := sib.files[other]
		if !ok {
			var err error
			files, err = r.backend.ListFiles(ctx, other)
			if err != nil {
				if errors.Is(err, torrent.ErrBackendUnavailable) {
					return err
				}
				r.log.Warn("cannot list sibling files", "hash", other, "error", err)
				kept = append(kept, other)
				continue
			}
			sib.files[other] = files
		}

		if !contains(files, target) {
			kept = append(kept, other)
			continue
		}

		r.log.Warn("deleting torrent that holds target name", "hash", sib.hash, "sibling", other, "name", target)
		if err := r.backend.DeleteTorrent(ctx, other, true); err != nil {
			if errors.Is(err, torrent.ErrBackendUnavailable) {
				return err
			}
			r.log.Error("collision delete failed", "sibling", other, "error", err)
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrCollisionDeleteFailed, other, err))
			kept = append(kept, other)
			continue
		}
		delete(sib.files, other)
	}
	sib.hashes = kept
	return errors.Join(errs...)
}

func contains(files []string, name string) bool {
	for _, f := range files {
		if f == name {
			return true
		}
	}
	return false
}

// CleanPath normalizes a save path for comparison: trimmed, forward
// slashes, cleaned.
func CleanPath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if p == "" {
		return ""
	}
	return path.Clean(p)
}
