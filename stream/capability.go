// Package stream defines the domain model for playable media resources and their failover queues.
package stream

import (
	"fmt"
	"strings"
)

// Warnings inspects a stream's declared codec and container tags and returns advisory
// notes about combinations known to be unreliable on at least one playback engine.
// Pure and side-effect free; the result annotates the UI and never gates engine selection.
func Warnings(s *Stream) []string {
	if s == nil {
		return nil
	}

	var warnings []string

	container := strings.ToLower(s.Container)
	codec := strings.ToLower(s.Codec)
	audio := strings.ToLower(s.Audio)

	switch container {
	case "avi", "wmv", "flv":
		warnings = append(warnings, fmt.Sprintf("container %q has limited engine support, playback may fall back to the compatibility engine", container))
	case "mkv":
		// The native engine handles mkv inconsistently depending on the muxed codecs.
		if codec == "hevc" || codec == "av1" {
			warnings = append(warnings, fmt.Sprintf("%s inside mkv is not handled by every engine, expect a slower start", codec))
		}
	}

	switch codec {
	case "av1":
		warnings = append(warnings, "av1 decoding is software-only on most systems and may stutter on high bitrates")
	case "vc1", "mpeg2":
		warnings = append(warnings, fmt.Sprintf("legacy codec %q may require the compatibility engine", codec))
	}

	switch audio {
	case "truehd", "dts-hd":
		warnings = append(warnings, fmt.Sprintf("lossless audio track %q is commonly transcoded or dropped by the native engine", audio))
	}

	return warnings
}
