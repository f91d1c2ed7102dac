package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"subtitle-hub/ddd/domain/entity"
	"subtitle-hub/ddd/domain/gateway"
	"subtitle-hub/ddd/domain/port"
	"subtitle-hub/ddd/domain/vo"
	"subtitle-hub/pkg/errno"
	"subtitle-hub/pkg/logger"
	"subtitle-hub/pkg/task"
)

// progressPattern matches the tool's "[download]  42.5%" progress lines.
var progressPattern = regexp.MustCompile(`\[download\]\s+(\d+\.?\d*)%`)

// VideoService runs asynchronous video downloads with an in-memory job table.
// Enqueue returns immediately; Status polls; FetchFile hands out the artifact
// of a completed job.
type VideoService interface {
	Enqueue(videoURL string, quality vo.VideoQuality, outputFilename string) *entity.VideoJob
	Status(jobID string) (*entity.VideoJob, error)
	FetchFile(jobID string) (absPath, filename string, err error)
}

type videoServiceImpl struct {
	extractor port.Extractor
	storage   gateway.StorageGateway
	runner    *task.Runner

	mu    sync.Mutex
	jobs  map[string]*entity.VideoJob
	files map[string]string // job id -> absolute artifact path
}

func NewVideoService(extractor port.Extractor, storage gateway.StorageGateway, runner *task.Runner) VideoService {
	return &videoServiceImpl{
		extractor: extractor,
		storage:   storage,
		runner:    runner,
		jobs:      make(map[string]*entity.VideoJob),
		files:     make(map[string]string),
	}
}

func (s *videoServiceImpl) Enqueue(videoURL string, quality vo.VideoQuality, outputFilename string) *entity.VideoJob {
	jobID := uuid.NewString()
	now := time.Now().UTC()
	job := &entity.VideoJob{
		JobID:           jobID,
		Status:          vo.JobStatusPending,
		ProgressPercent: 0,
		Message:         "download task queued",
		Quality:         quality,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	s.mu.Lock()
	s.jobs[jobID] = job
	snapshot := job.Snapshot()
	s.mu.Unlock()

	s.runner.Go("video-"+jobID, func() {
		s.runJob(jobID, videoURL, quality, outputFilename)
	})

	logger.Infof("video job queued job_id=%s url=%s quality=%s", jobID, videoURL, quality)
	return snapshot
}

func (s *videoServiceImpl) Status(jobID string) (*entity.VideoJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, errno.ErrJobNotFound
	}
	return job.Snapshot(), nil
}

func (s *videoServiceImpl) FetchFile(jobID string) (string, string, error) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	var path string
	var status vo.JobStatus
	var filename string
	if ok {
		status = job.Status
		filename = job.Filename
		path = s.files[jobID]
	}
	s.mu.Unlock()

	if !ok {
		return "", "", errno.ErrJobNotFound
	}
	if status != vo.JobStatusCompleted {
		return "", "", errno.ErrJobNotCompleted.WithMessagef("job %s is %s, not completed", jobID, status)
	}
	if path == "" {
		return "", "", errno.ErrArtifactMissing
	}
	if _, err := os.Stat(path); err != nil {
		// 文件已被外部清理
		return "", "", errno.ErrArtifactMissing.WithMessagef("video file for job %s no longer exists", jobID)
	}
	return path, filename, nil
}

// update applies fn under the table lock and touches UpdatedAt.
func (s *videoServiceImpl) update(jobID string, fn func(*entity.VideoJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok {
		fn(job)
		job.UpdatedAt = time.Now().UTC()
	}
}

func (s *videoServiceImpl) runJob(jobID, videoURL string, quality vo.VideoQuality, outputFilename string) {
	// 任何panic都要把任务置为终态，绝不能让记录停在running
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("video job panicked job_id=%s panic=%v", jobID, rec)
			s.fail(jobID, fmt.Sprintf("internal error: %v", rec))
		}
	}()

	s.update(jobID, func(j *entity.VideoJob) {
		j.Status = vo.JobStatusRunning
		j.ProgressPercent = 5
		j.Message = "initializing download task..."
	})

	tempDir, err := os.MkdirTemp("", "yt_video_")
	if err != nil {
		s.fail(jobID, "failed to create scratch directory: "+err.Error())
		return
	}
	defer os.RemoveAll(tempDir)

	args := []string{
		"-f", quality.FormatSelector(),
		"--merge-output-format", "mp4",
		"--no-playlist",
		"--newline",
		"--progress",
		"-o", filepath.Join(tempDir, "%(title)s.%(ext)s"),
		videoURL,
	}

	res, err := s.extractor.RunStreaming(context.Background(), args, func(line string) {
		if m := progressPattern.FindStringSubmatch(line); m != nil {
			if percent, perr := strconv.ParseFloat(m[1], 64); perr == nil {
				// 工具自身的0-100%映射到整体进度的10-90%窗口
				mapped := int(10 + 0.8*percent)
				s.update(jobID, func(j *entity.VideoJob) {
					if mapped > j.ProgressPercent {
						j.ProgressPercent = mapped
						j.Message = fmt.Sprintf("downloading... %s%%", m[1])
					}
				})
			}
		}
	})
	if err != nil {
		s.fail(jobID, classifyRunFailure(res, err, "").Error())
		return
	}
	if res.ExitCode != 0 {
		s.fail(jobID, "download tool failed: "+truncateRunes(lastLines(res.Output(), 20), 500))
		return
	}

	s.update(jobID, func(j *entity.VideoJob) {
		j.ProgressPercent = 90
		j.Message = "processing downloaded file..."
	})

	downloaded, err := newestVideoFile(tempDir)
	if err != nil {
		s.fail(jobID, err.Error())
		return
	}

	finalPath, err := s.persistVideo(jobID, downloaded, outputFilename)
	if err != nil {
		s.fail(jobID, err.Error())
		return
	}

	info, err := os.Stat(finalPath)
	if err != nil {
		s.fail(jobID, "failed to stat downloaded file: "+err.Error())
		return
	}
	publicPath, err := s.storage.PublicPath(finalPath)
	if err != nil {
		s.fail(jobID, err.Error())
		return
	}

	s.mu.Lock()
	s.files[jobID] = finalPath
	s.mu.Unlock()

	s.update(jobID, func(j *entity.VideoJob) {
		j.Status = vo.JobStatusCompleted
		j.ProgressPercent = 100
		j.Message = "download completed"
		j.VideoFile = publicPath
		j.Filename = filepath.Base(finalPath)
		j.FileSize = info.Size()
		j.FileSizeHuman = formatBytes(info.Size())
		j.FormatNote = quality.FormatNote()
	})
	logger.Infof("video job completed job_id=%s file=%s size=%s", jobID, publicPath, formatBytes(info.Size()))
}

func (s *videoServiceImpl) fail(jobID, message string) {
	s.update(jobID, func(j *entity.VideoJob) {
		j.Status = vo.JobStatusFailed
		j.Message = message
	})
	logger.Warnf("video job failed job_id=%s message=%s", jobID, message)
}

func (s *videoServiceImpl) persistVideo(jobID, downloaded, outputFilename string) (string, error) {
	ext := filepath.Ext(downloaded)

	var name string
	if trimmed := strings.TrimSpace(outputFilename); trimmed != "" {
		name = filepath.Base(trimmed)
		if !strings.EqualFold(filepath.Ext(name), ext) {
			name += ext
		}
	} else {
		name = jobID + ext
	}

	dir, err := s.storage.VideoDir()
	if err != nil {
		return "", err
	}
	finalPath := filepath.Join(dir, name)
	if err := moveFile(downloaded, finalPath); err != nil {
		return "", fmt.Errorf("failed to persist video file: %w", err)
	}
	return finalPath, nil
}

// newestVideoFile picks the most recently modified complete file in dir,
// skipping the tool's .part leftovers.
func newestVideoFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to scan download directory: %w", err)
	}

	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".part") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(dir, e.Name())
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("download finished but no video file was produced")
	}
	return newest, nil
}

// formatBytes renders a 1024-based size string like "12.34 MB".
func formatBytes(size int64) string {
	value := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if value < 1024 {
			return fmt.Sprintf("%.2f %s", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.2f TB", value)
}

// lastLines returns the trailing n lines of s.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
