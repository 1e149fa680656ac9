// Package subtitles provides a client for the external subtitle search and download service.
//
// The service follows the OpenSubtitles REST contract: searches are keyed by
// IMDb ID and/or a free-form query derived from the stream's release filename,
// downloads are a two-step file-id to link exchange. All failures degrade
// gracefully: a missing subtitle is never fatal to playback.
package subtitles

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/metafates/gache"
	"github.com/spf13/viper"
	"github.com/vireo-cli/vireo/auth"
	"github.com/vireo-cli/vireo/constant"
	"github.com/vireo-cli/vireo/filesystem"
	"github.com/vireo-cli/vireo/key"
	"github.com/vireo-cli/vireo/log"
	"github.com/vireo-cli/vireo/network"
	"github.com/vireo-cli/vireo/where"
)

// Candidate is a single subtitle file offered by the search service.
type Candidate struct {
	FileID    int     `json:"file_id"`
	Filename  string  `json:"filename"`
	Language  string  `json:"language"`
	Rating    float64 `json:"rating"`
	Downloads int     `json:"downloads"`
}

// String returns the display representation of the candidate.
func (c *Candidate) String() string {
	return fmt.Sprintf("%s [%s]", c.Filename, c.Language)
}

// Downloaded carries the resolved subtitle content and its origin filename.
type Downloaded struct {
	Filename string
	Content  []byte
}

// searchCacher memoizes search responses to stay inside the service's rate limits.
var searchCacher = gache.New[map[string][]Candidate](
	&gache.Options{
		Path:       where.SubtitleCache(),
		Lifetime:   24 * time.Hour,
		FileSystem: &filesystem.GacheFs{},
	},
)

// Configured reports whether an API credential is available in the system keyring.
func Configured() bool {
	token, err := auth.SubtitleKey()
	return err == nil && token != ""
}

// Search queries the subtitle service for candidates matching the IMDb ID and/or query.
// Network failures degrade gracefully to an empty result.
func Search(ctx context.Context, imdbID, query string, languages []string) ([]Candidate, error) {
	cacheKey := fmt.Sprintf("%s|%s|%s", imdbID, query, strings.Join(languages, ","))
	if cached, expired, err := searchCacher.Get(); err == nil && !expired && cached != nil {
		if candidates, ok := cached[cacheKey]; ok {
			return candidates, nil
		}
	}

	params := url.Values{}
	if imdbID != "" {
		params.Set("imdb_id", strings.TrimPrefix(imdbID, "tt"))
	}
	if query != "" {
		params.Set("query", query)
	}
	if len(languages) > 0 {
		params.Set("languages", strings.Join(languages, ","))
	}

	endpoint := viper.GetString(key.SubtitlesEndpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/subtitles?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	decorate(req)

	resp, err := network.Client.Do(req)
	if err != nil {
		log.Warnf("subtitle search failed: %v", err)
		return nil, nil // Graceful degradation
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warnf("subtitle search returned status %d", resp.StatusCode)
		return nil, nil
	}

	var payload struct {
		Data []struct {
			Attributes struct {
				Language      string  `json:"language"`
				Ratings       float64 `json:"ratings"`
				DownloadCount int     `json:"download_count"`
				Files         []struct {
					FileID   int    `json:"file_id"`
					FileName string `json:"file_name"`
				} `json:"files"`
			} `json:"attributes"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	var candidates []Candidate
	for _, entry := range payload.Data {
		for _, file := range entry.Attributes.Files {
			candidates = append(candidates, Candidate{
				FileID:    file.FileID,
				Filename:  file.FileName,
				Language:  entry.Attributes.Language,
				Rating:    entry.Attributes.Ratings,
				Downloads: entry.Attributes.DownloadCount,
			})
		}
	}

	cached, _, err := searchCacher.Get()
	if err == nil {
		if cached == nil {
			cached = make(map[string][]Candidate)
		}
		cached[cacheKey] = candidates
		_ = searchCacher.Set(cached)
	}

	return candidates, nil
}

// Download resolves a candidate file ID into subtitle content.
func Download(ctx context.Context, fileID int) ([]byte, error) {
	body, err := json.Marshal(map[string]int{"file_id": fileID})
	if err != nil {
		return nil, fmt.Errorf("marshal download request: %w", err)
	}

	endpoint := viper.GetString(key.SubtitlesEndpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/download", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	decorate(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := network.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request download link: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download link request returned status %d", resp.StatusCode)
	}

	var link struct {
		Link     string `json:"link"`
		FileName string `json:"file_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&link); err != nil {
		return nil, fmt.Errorf("parse download link: %w", err)
	}
	if link.Link == "" {
		return nil, fmt.Errorf("service returned no download link for file %d", fileID)
	}

	fileReq, err := http.NewRequestWithContext(ctx, http.MethodGet, link.Link, nil)
	if err != nil {
		return nil, fmt.Errorf("build content request: %w", err)
	}

	fileResp, err := network.Client.Do(fileReq)
	if err != nil {
		return nil, fmt.Errorf("fetch subtitle content: %w", err)
	}
	defer fileResp.Body.Close()

	if fileResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("subtitle content request returned status %d", fileResp.StatusCode)
	}

	return io.ReadAll(fileResp.Body)
}

// DownloadFirstMatch searches with the given query and downloads the best-ranked candidate.
func DownloadFirstMatch(ctx context.Context, query string, languages []string) (*Downloaded, error) {
	candidates, err := Search(ctx, "", query, languages)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no subtitles found for %q", query)
	}

	ranked := Rank(candidates, query)
	content, err := Download(ctx, ranked[0].FileID)
	if err != nil {
		return nil, err
	}

	return &Downloaded{Filename: ranked[0].Filename, Content: content}, nil
}

// decorate applies the shared headers, including the keyring-held API credential.
func decorate(req *http.Request) {
	req.Header.Set("User-Agent", constant.UserAgent)
	req.Header.Set("Accept", "application/json")
	if token, err := auth.SubtitleKey(); err == nil && token != "" {
		req.Header.Set("Api-Key", token)
	}
}
