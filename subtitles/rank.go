package subtitles

import (
	"path/filepath"
	"sort"
	"strings"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/samber/lo"
	"github.com/vireo-cli/vireo/filesystem"
	"github.com/vireo-cli/vireo/util"
	"github.com/vireo-cli/vireo/where"
)

// Rank orders candidates by similarity of their filename to the stream's
// release filename. Ties break on rating, then download count.
func Rank(candidates []Candidate, filename string) []Candidate {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)

	target := normalize(filename)
	sort.SliceStable(ranked, func(i, j int) bool {
		di := levenshtein.Distance(normalize(ranked[i].Filename), target)
		dj := levenshtein.Distance(normalize(ranked[j].Filename), target)
		if di != dj {
			return di < dj
		}
		if ranked[i].Rating != ranked[j].Rating {
			return ranked[i].Rating > ranked[j].Rating
		}
		return ranked[i].Downloads > ranked[j].Downloads
	})

	return ranked
}

// FilterLanguages keeps only candidates whose language is in the preferred set.
// An empty preference keeps everything.
func FilterLanguages(candidates []Candidate, languages []string) []Candidate {
	if len(languages) == 0 {
		return candidates
	}

	return lo.Filter(candidates, func(c Candidate, _ int) bool {
		return lo.Contains(languages, strings.ToLower(c.Language))
	})
}

// SaveScratch writes downloaded subtitle content to the temp directory and
// returns the path, suitable for loading into a playback engine. The caller
// owns removal of the file once the session ends.
func SaveScratch(d *Downloaded) (string, error) {
	name := util.SanitizeFilename(d.Filename)
	if name == "" {
		name = "subtitle.srt"
	}

	path := filepath.Join(where.Temp(), name)
	if err := filesystem.API().WriteFile(path, d.Content, 0o644); err != nil {
		return "", err
	}

	return path, nil
}

func normalize(name string) string {
	name = strings.ToLower(util.FileStem(name))
	replacer := strings.NewReplacer(".", " ", "_", " ", "-", " ")
	return replacer.Replace(name)
}
