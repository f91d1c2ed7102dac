package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"subtitle-hub/ddd/domain/entity"
	"subtitle-hub/ddd/domain/port"
	"subtitle-hub/ddd/domain/vo"
	"subtitle-hub/pkg/config"
	"subtitle-hub/pkg/errno"
	"subtitle-hub/pkg/logger"
)

// PlaylistService expands a playlist URL into member videos and runs the
// single-item pipeline over them with a small worker pool, exposing live
// per-job progress.
type PlaylistService interface {
	// IsPlaylistURL reports whether the URL refers to a playlist.
	IsPlaylistURL(videoURL string) bool

	// Expand resolves a playlist URL into its member video URLs.
	Expand(ctx context.Context, playlistURL string) ([]string, error)

	// Run downloads every member and blocks until the job finishes, returning
	// the outcome. Progress stays pollable from other requests while it runs.
	Run(req *vo.SubtitleRequest, videoURLs []string) *entity.PlaylistProgress

	// Progress returns a snapshot of a running or finished job, or nil.
	Progress(jobID string) *entity.PlaylistProgress
}

type playlistServiceImpl struct {
	extractor port.Extractor
	subtitles SubtitleService
	cfg       config.PlaylistConfig
	extCfg    config.ExtractorConfig

	mu   sync.Mutex
	jobs map[string]*entity.PlaylistProgress
}

func NewPlaylistService(
	extractor port.Extractor,
	subtitles SubtitleService,
	cfg config.PlaylistConfig,
	extCfg config.ExtractorConfig,
) PlaylistService {
	return &playlistServiceImpl{
		extractor: extractor,
		subtitles: subtitles,
		cfg:       cfg,
		extCfg:    extCfg,
		jobs:      make(map[string]*entity.PlaylistProgress),
	}
}

func (s *playlistServiceImpl) IsPlaylistURL(videoURL string) bool {
	lower := strings.ToLower(videoURL)
	return strings.Contains(lower, "list=") || strings.Contains(lower, "playlist")
}

func (s *playlistServiceImpl) Expand(ctx context.Context, playlistURL string) ([]string, error) {
	args := []string{
		"--flat-playlist",
		"--print", "url",
		"--no-warnings",
		"--extractor-args", "youtube:player_client=" + s.extCfg.PlayerClient,
		playlistURL,
	}
	res, err := s.extractor.Run(ctx, args, s.cfg.ExpandTimeout)
	if err != nil || res.ExitCode != 0 {
		return nil, classifyRunFailure(res, err, "")
	}

	var urls []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "http") {
			urls = append(urls, line)
		}
	}
	if len(urls) == 0 {
		return nil, errno.ErrEmptyPlaylist.WithMessagef(
			"the playlist resolved to zero videos; it may be empty, private, or region-locked")
	}
	return urls, nil
}

func (s *playlistServiceImpl) Run(req *vo.SubtitleRequest, videoURLs []string) *entity.PlaylistProgress {
	jobID := uuid.NewString()

	s.mu.Lock()
	s.jobs[jobID] = &entity.PlaylistProgress{
		JobID:       jobID,
		TotalVideos: len(videoURLs),
		Status:      vo.PlaylistStatusRunning,
	}
	s.mu.Unlock()
	logger.Infof("playlist job started job_id=%s videos=%d", jobID, len(videoURLs))

	workers := s.cfg.MaxWorkers
	if workers <= 0 {
		workers = 2
	}
	if workers > len(videoURLs) {
		workers = len(videoURLs)
	}

	urlCh := make(chan string)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for url := range urlCh {
				s.downloadOne(jobID, req, url)
			}
		}()
	}
	for _, url := range videoURLs {
		urlCh <- url
	}
	close(urlCh)
	wg.Wait()

	return s.finish(jobID)
}

func (s *playlistServiceImpl) Progress(jobID string) *entity.PlaylistProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.jobs[jobID]
	if !ok {
		return nil
	}
	return p.Snapshot()
}

// downloadOne runs the single-item pipeline for one playlist member and
// applies the result to the shared progress record atomically.
func (s *playlistServiceImpl) downloadOne(jobID string, req *vo.SubtitleRequest, videoURL string) {
	perVideo := req.PerVideo(videoURL)

	// 缓存命中无需进入in-flight状态
	if cached := s.subtitles.Cached(perVideo); cached != nil {
		s.applyResult(jobID, videoURL, artifactResult(cached, videoURL), true)
		return
	}

	s.mu.Lock()
	if p, ok := s.jobs[jobID]; ok {
		p.InProgress++
		p.CurrentVideos = append(p.CurrentVideos, videoURL)
	}
	s.mu.Unlock()

	artifact, err := s.safeDownload(perVideo)
	if err != nil {
		logger.Warnf("playlist item failed job_id=%s url=%s error=%v", jobID, videoURL, err)
		s.applyResult(jobID, videoURL, &entity.PlaylistItemResult{
			JobID:    uuid.NewString(),
			VideoURL: videoURL,
			Error:    truncateRunes(err.Error(), 200),
		}, false)
		return
	}
	s.applyResult(jobID, videoURL, artifactResult(artifact, videoURL), false)
}

// safeDownload converts a pipeline panic into a per-item failure so one bad
// member can never wedge the whole job.
func (s *playlistServiceImpl) safeDownload(req *vo.SubtitleRequest) (artifact *entity.SubtitleArtifact, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("playlist item panicked url=%s panic=%v", req.VideoURL, rec)
			artifact, err = nil, fmt.Errorf("internal error: %v", rec)
		}
	}()
	return s.subtitles.Download(context.Background(), req)
}

// applyResult advances the counters in one critical section so readers never
// observe completed != successful+failed.
func (s *playlistServiceImpl) applyResult(jobID, videoURL string, result *entity.PlaylistItemResult, fromCache bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.jobs[jobID]
	if !ok {
		return
	}
	p.Completed++
	if result.SubtitleFile != "" {
		p.Successful++
	} else {
		p.Failed++
	}
	if !fromCache {
		if p.InProgress > 0 {
			p.InProgress--
		}
		p.RemoveCurrent(videoURL)
	}
	p.Results = append(p.Results, *result)
}

// finish flips the job terminal and zeroes the in-flight state. The stored
// record keeps the incrementally maintained counters, which the progress
// endpoint serves; the returned outcome carries successful/failed recomputed
// from the result artifact paths as an independent cross-check.
func (s *playlistServiceImpl) finish(jobID string) *entity.PlaylistProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.jobs[jobID]
	if !ok {
		return nil
	}
	p.InProgress = 0
	p.CurrentVideos = nil
	p.Status = vo.PlaylistStatusCompleted

	successful, failed := 0, 0
	for _, r := range p.Results {
		if r.SubtitleFile != "" {
			successful++
		} else {
			failed++
		}
	}
	if successful != p.Successful || failed != p.Failed {
		logger.Warnf("playlist counters diverge from results job_id=%s counters=%d/%d recount=%d/%d",
			jobID, p.Successful, p.Failed, successful, failed)
	}

	outcome := p.Snapshot()
	outcome.Successful = successful
	outcome.Failed = failed
	outcome.Completed = successful + failed

	logger.Infof("playlist job finished job_id=%s successful=%d failed=%d", jobID, successful, failed)
	return outcome
}

func artifactResult(a *entity.SubtitleArtifact, videoURL string) *entity.PlaylistItemResult {
	return &entity.PlaylistItemResult{
		JobID:         a.JobID,
		VideoURL:      videoURL,
		VideoTitle:    a.VideoTitle,
		SubtitleFile:  a.SubtitleFile,
		PromptFile:    a.PromptFile,
		PromptPreview: a.PromptPreview,
	}
}
