// Package roster owns the last-known-good clan snapshots: an on-disk
// JSON cache keyed by clan tag, and the fetch-or-fallback service that
// feeds the audit engine
package roster

import (
	"clanaudit/internal/clashapi"
	"os"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"
)

// Per-tag miss. Non-fatal: the tag is simply omitted from fallback results
var ErrCacheMiss = pkgerrors.New("no cached roster for tag")

// Cache keeps one JSON file per clan tag, in API-native shape, so a
// cached clan decodes exactly like a live one
type Cache struct {
	dir string
}

func NewCache(dir string) (Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Cache{}, pkgerrors.Wrap(err, "creating roster cache directory")
	}
	return Cache{dir: dir}, nil
}

func (c Cache) path(tag clashapi.Tag) string {
	return filepath.Join(c.dir, string(tag)+".json")
}

// Save persists a clan snapshot. The write goes to a temp file first and
// is renamed into place, so a concurrent reader never observes a torn
// record; overlapping writers degrade to last-writer-wins per tag
func (c Cache) Save(clan clashapi.Clan) error {

	data, err := clashapi.MarshalClan(clan)
	if err != nil {
		return pkgerrors.Wrapf(err, "encoding clan %s for cache", clan.Tag)
	}

	tmp, err := os.CreateTemp(c.dir, string(clan.Tag)+".*.tmp")
	if err != nil {
		return pkgerrors.Wrap(err, "creating cache temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return pkgerrors.Wrapf(err, "writing cache file for clan %s", clan.Tag)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return pkgerrors.Wrapf(err, "closing cache file for clan %s", clan.Tag)
	}
	if err := os.Rename(tmp.Name(), c.path(clan.Tag)); err != nil {
		os.Remove(tmp.Name())
		return pkgerrors.Wrapf(err, "publishing cache file for clan %s", clan.Tag)
	}
	return nil
}

// Load reads the last saved snapshot for a tag.
// Returns ErrCacheMiss when no snapshot exists
func (c Cache) Load(tag clashapi.Tag) (clashapi.Clan, error) {

	data, err := os.ReadFile(c.path(tag))
	if os.IsNotExist(err) {
		return clashapi.Clan{}, pkgerrors.Wrapf(ErrCacheMiss, "tag %s", tag)
	}
	if err != nil {
		return clashapi.Clan{}, pkgerrors.Wrapf(err, "reading cache file for tag %s", tag)
	}
	return clashapi.UnmarshalClan(data)
}
