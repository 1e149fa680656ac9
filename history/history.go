// Package history provides the implementation for tracking and persisting playback progress state.
package history

import (
	"github.com/metafates/gache"
	"github.com/samber/mo"
	"github.com/vireo-cli/vireo/filesystem"
	"github.com/vireo-cli/vireo/where"
)

// cacher provides an abstracted, disk-backed registry for playback progress records.
var cacher = gache.New[map[string]*Record](
	&gache.Options{
		Path:       where.Progress(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// Get returns the complete collection of progress records from the persistent store.
func Get() (map[string]*Record, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*Record), nil
	}
	return cached, nil
}

// Fetch returns the most recent progress record for the given title and episode,
// or None when no history exists.
func Fetch(mediaID, episodeID string) (mo.Option[Record], error) {
	saved, err := Get()
	if err != nil {
		return mo.None[Record](), err
	}

	record, exists := saved[encode(mediaID, episodeID)]
	if !exists || record == nil {
		return mo.None[Record](), nil
	}
	return mo.Some(*record), nil
}

// Write persists a progress snapshot to the registry, replacing any previous
// entry for the same title and episode.
func Write(record Record) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	saved[record.encode()] = &record
	return cacher.Set(saved)
}

// Remove permanently deletes a specific progress record from the registry.
func Remove(mediaID, episodeID string) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	delete(saved, encode(mediaID, episodeID))
	return cacher.Set(saved)
}
