package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtitle-hub/ddd/domain/entity"
	"subtitle-hub/ddd/domain/port"
	"subtitle-hub/ddd/domain/vo"
	"subtitle-hub/pkg/errno"
	"subtitle-hub/pkg/task"
)

func newTestVideoService(t *testing.T, fake *fakeExtractor) VideoService {
	t.Helper()
	_, _, store := newTestSubtitleService(t, fake)
	return NewVideoService(fake, store, task.NewRunner())
}

// streamingFake plays back progress lines and drops a finished file into the
// output directory parsed from the -o template.
func streamingFake(t *testing.T, lines []string, exitCode int, body string) *fakeExtractor {
	t.Helper()
	fake := &fakeExtractor{}
	fake.streamFn = func(args []string, onLine port.LineCallback) (*port.RunResult, error) {
		for _, line := range lines {
			onLine(line)
		}
		if exitCode != 0 {
			return &port.RunResult{ExitCode: exitCode, Stderr: "ERROR: requested format not available"}, nil
		}
		outDir := filepath.Dir(argValue(args, "-o"))
		require.NotEmpty(t, outDir)
		require.NoError(t, os.WriteFile(filepath.Join(outDir, "My Clip.mp4"), []byte(body), 0o644))
		// .part残留不应被选中
		require.NoError(t, os.WriteFile(filepath.Join(outDir, "My Clip.mp4.part"), []byte("partial"), 0o644))
		return &port.RunResult{}, nil
	}
	return fake
}

func waitForJob(t *testing.T, svc VideoService, jobID string) *entity.VideoJob {
	t.Helper()
	var final *entity.VideoJob
	require.Eventually(t, func() bool {
		job, err := svc.Status(jobID)
		if err != nil {
			return false
		}
		if job.Status.IsFinal() {
			final = job
			return true
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	return final
}

func TestVideoJobLifecycle(t *testing.T) {
	fake := streamingFake(t, []string{
		"[download] Destination: My Clip.mp4",
		"[download]  10.0% of 10.00MiB",
		"[download]  55.5% of 10.00MiB",
		"[download] 100% of 10.00MiB",
	}, 0, "0123456789")
	svc := newTestVideoService(t, fake)

	job := svc.Enqueue("https://www.youtube.com/watch?v=clip", vo.VideoQuality("720p"), "")
	assert.Equal(t, vo.JobStatusPending, job.Status)
	assert.Equal(t, 0, job.ProgressPercent)

	final := waitForJob(t, svc, job.JobID)
	assert.Equal(t, vo.JobStatusCompleted, final.Status)
	assert.Equal(t, 100, final.ProgressPercent)
	assert.Contains(t, final.VideoFile, "/storage/videos/")
	assert.Equal(t, final.JobID+".mp4", final.Filename)
	assert.Equal(t, int64(10), final.FileSize)
	assert.Equal(t, "10.00 B", final.FileSizeHuman)
	assert.Equal(t, "target quality: 720p", final.FormatNote)

	path, filename, err := svc.FetchFile(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, final.Filename, filename)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))
}

func TestVideoJobProgressWindow(t *testing.T) {
	release := make(chan struct{})
	fake := &fakeExtractor{}
	fake.streamFn = func(args []string, onLine port.LineCallback) (*port.RunResult, error) {
		onLine("[download]  50.0% of 1.00MiB at 2.00MiB/s")
		// 挂起下载，让测试观察运行中的进度
		<-release
		outDir := filepath.Dir(argValue(args, "-o"))
		require.NoError(t, os.WriteFile(filepath.Join(outDir, "clip.mp4"), []byte("x"), 0o644))
		return &port.RunResult{}, nil
	}
	svc := newTestVideoService(t, fake)

	job := svc.Enqueue("https://www.youtube.com/watch?v=halfway", vo.QualityBest, "")

	// 工具自身的50%映射到整体进度 10 + 0.8*50 = 50
	require.Eventually(t, func() bool {
		j, err := svc.Status(job.JobID)
		return err == nil && j.Status == vo.JobStatusRunning && j.ProgressPercent == 50
	}, 5*time.Second, 5*time.Millisecond)
	close(release)

	final := waitForJob(t, svc, job.JobID)
	assert.Equal(t, vo.JobStatusCompleted, final.Status)
	assert.Equal(t, "best available quality", final.FormatNote)
}

func TestVideoJobFailure(t *testing.T) {
	fake := streamingFake(t, nil, 1, "")
	svc := newTestVideoService(t, fake)

	job := svc.Enqueue("https://www.youtube.com/watch?v=broken", vo.QualityBest, "")
	final := waitForJob(t, svc, job.JobID)

	assert.Equal(t, vo.JobStatusFailed, final.Status)
	assert.Contains(t, final.Message, "requested format not available")

	_, _, err := svc.FetchFile(job.JobID)
	assert.ErrorIs(t, err, errno.ErrJobNotCompleted)
}

func TestVideoJobCustomFilename(t *testing.T) {
	fake := streamingFake(t, nil, 0, "abc")
	svc := newTestVideoService(t, fake)

	job := svc.Enqueue("https://www.youtube.com/watch?v=named", vo.QualityBest, "../escape/lecture")
	final := waitForJob(t, svc, job.JobID)

	assert.Equal(t, vo.JobStatusCompleted, final.Status)
	assert.Equal(t, "lecture.mp4", final.Filename)
}

func TestVideoJobPanicBecomesFailed(t *testing.T) {
	fake := &fakeExtractor{}
	fake.streamFn = func(args []string, onLine port.LineCallback) (*port.RunResult, error) {
		panic("extractor blew up")
	}
	svc := newTestVideoService(t, fake)

	job := svc.Enqueue("https://www.youtube.com/watch?v=doomed", vo.QualityBest, "")
	final := waitForJob(t, svc, job.JobID)

	// panic不能让任务记录永远停在running
	assert.Equal(t, vo.JobStatusFailed, final.Status)
	assert.Contains(t, final.Message, "internal error")
	assert.Contains(t, final.Message, "extractor blew up")
}

func TestFetchFileErrors(t *testing.T) {
	fake := streamingFake(t, nil, 0, "abc")
	svc := newTestVideoService(t, fake)

	_, _, err := svc.FetchFile("unknown")
	assert.ErrorIs(t, err, errno.ErrJobNotFound)

	_, err = svc.Status("unknown")
	assert.ErrorIs(t, err, errno.ErrJobNotFound)

	job := svc.Enqueue("https://www.youtube.com/watch?v=gone", vo.QualityBest, "")
	final := waitForJob(t, svc, job.JobID)
	require.Equal(t, vo.JobStatusCompleted, final.Status)

	// 外部清理掉文件后fetch应报artifact缺失
	path, _, err := svc.FetchFile(job.JobID)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))
	_, _, err = svc.FetchFile(job.JobID)
	assert.ErrorIs(t, err, errno.ErrArtifactMissing)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512.00 B", formatBytes(512))
	assert.Equal(t, "1.00 KB", formatBytes(1024))
	assert.Equal(t, "1.50 MB", formatBytes(1572864))
	assert.Equal(t, "2.00 GB", formatBytes(2147483648))
	assert.Equal(t, "1.00 TB", formatBytes(1099511627776))
}

func TestLastLines(t *testing.T) {
	assert.Equal(t, "b\nc", lastLines("a\nb\nc", 2))
	assert.Equal(t, "a", lastLines("a", 5))
}
