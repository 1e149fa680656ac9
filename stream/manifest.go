package stream

import (
	"encoding/json"
	"fmt"

	"github.com/vireo-cli/vireo/filesystem"
)

// Manifest is the output of the upstream search/resolution pipeline: the
// candidate streams for one title, best first.
type Manifest struct {
	Title   string    `json:"title,omitempty"`
	Streams []*Stream `json:"streams"`
}

// LoadManifest reads a stream manifest from a JSON file. Both the object
// form ({"streams": [...]}) and a bare array of streams are accepted.
func LoadManifest(path string) (*Manifest, error) {
	content, err := filesystem.API().ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(content, &manifest); err != nil {
		var streams []*Stream
		if arrErr := json.Unmarshal(content, &streams); arrErr != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}
		manifest.Streams = streams
	}

	if len(manifest.Streams) == 0 {
		return nil, fmt.Errorf("manifest %s contains no streams", path)
	}

	return &manifest, nil
}
