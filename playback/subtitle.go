package playback

import (
	"context"

	"github.com/spf13/viper"
	"github.com/vireo-cli/vireo/key"
	"github.com/vireo-cli/vireo/log"
	"github.com/vireo-cli/vireo/subtitles"
	"github.com/vireo-cli/vireo/util"
)

// ExternalSubtitle downloads a resolver candidate to a scratch file and loads
// it into the active engine. The scratch file lives until session teardown.
func (o *Orchestrator) ExternalSubtitle(ctx context.Context, candidate subtitles.Candidate) error {
	eng, err := o.activeEngine()
	if err != nil {
		return err
	}

	content, err := subtitles.Download(ctx, candidate.FileID)
	if err != nil {
		return err
	}

	path, err := subtitles.SaveScratch(&subtitles.Downloaded{
		Filename: candidate.Filename,
		Content:  content,
	})
	if err != nil {
		return err
	}

	o.replaceScratch(path)
	return eng.LoadSubtitleFile(path)
}

// autoSearchSubtitles opportunistically resolves an external subtitle once
// per session when enabled and a credential is configured. Failures are
// logged only; a missing subtitle never disturbs playback.
func (o *Orchestrator) autoSearchSubtitles(ctx context.Context) {
	if !viper.GetBool(key.SubtitlesAutoSearch) || !subtitles.Configured() {
		return
	}

	o.mu.Lock()
	sess := o.session
	if sess == nil || sess.autoSearched {
		o.mu.Unlock()
		return
	}
	sess.autoSearched = true
	query := util.FileStem(sess.stream.Filename)
	if query == "" {
		query = sess.stream.Title
	}
	o.mu.Unlock()

	languages := viper.GetStringSlice(key.SubtitlesLanguages)
	downloaded, err := subtitles.DownloadFirstMatch(ctx, query, languages)
	if err != nil {
		log.Infof("playback: subtitle auto-search for %q found nothing: %v", query, err)
		return
	}

	path, err := subtitles.SaveScratch(downloaded)
	if err != nil {
		log.Warnf("playback: saving auto-searched subtitle failed: %v", err)
		return
	}

	eng, err := o.activeEngine()
	if err != nil {
		return
	}

	o.replaceScratch(path)
	if err := eng.LoadSubtitleFile(path); err != nil {
		log.Warnf("playback: loading auto-searched subtitle failed: %v", err)
	}
}

// replaceScratch records a new scratch file on the session, removing the
// previous one.
func (o *Orchestrator) replaceScratch(path string) {
	o.mu.Lock()
	previous := ""
	if o.session != nil {
		previous = o.session.subtitleScratch
		o.session.subtitleScratch = path
	}
	o.mu.Unlock()

	if previous != "" && previous != path {
		util.Ignore(func() error { return util.Delete(previous) })
	}
}
