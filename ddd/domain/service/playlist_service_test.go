package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtitle-hub/ddd/domain/entity"
	"subtitle-hub/ddd/domain/port"
	"subtitle-hub/ddd/domain/vo"
	"subtitle-hub/pkg/config"
	"subtitle-hub/pkg/errno"
)

func newTestPlaylistService(t *testing.T, fake *fakeExtractor) PlaylistService {
	t.Helper()
	subtitles, _, _ := newTestSubtitleService(t, fake)
	return NewPlaylistService(fake, subtitles, config.PlaylistConfig{
		MaxWorkers:    2,
		ExpandTimeout: 5 * time.Second,
	}, config.ExtractorConfig{PlayerClient: "default"})
}

func TestIsPlaylistURL(t *testing.T) {
	fake := &fakeExtractor{}
	svc := newTestPlaylistService(t, fake)

	assert.True(t, svc.IsPlaylistURL("https://www.youtube.com/playlist?list=PL123"))
	assert.True(t, svc.IsPlaylistURL("https://www.youtube.com/watch?v=abc&LIST=PL123"))
	assert.False(t, svc.IsPlaylistURL("https://www.youtube.com/watch?v=abc"))
}

func TestExpandFiltersNonURLLines(t *testing.T) {
	fake := &fakeExtractor{}
	fake.runFn = func(args []string) (*port.RunResult, error) {
		return &port.RunResult{Stdout: "[youtube:tab] Extracting\nhttps://www.youtube.com/watch?v=a\n\nhttps://www.youtube.com/watch?v=b\nWARNING: ignore me\n"}, nil
	}
	svc := newTestPlaylistService(t, fake)

	urls, err := svc.Expand(context.Background(), "https://www.youtube.com/playlist?list=PL1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.youtube.com/watch?v=a",
		"https://www.youtube.com/watch?v=b",
	}, urls)
}

func TestExpandEmptyPlaylist(t *testing.T) {
	fake := &fakeExtractor{}
	fake.runFn = func(args []string) (*port.RunResult, error) {
		return &port.RunResult{Stdout: "[youtube:tab] nothing here\n"}, nil
	}
	svc := newTestPlaylistService(t, fake)

	_, err := svc.Expand(context.Background(), "https://www.youtube.com/playlist?list=PLempty")
	assert.ErrorIs(t, err, errno.ErrEmptyPlaylist)
}

// playlistFake fails any member URL containing "bad" and writes a subtitle
// file for the rest. Title probes fail so filenames fall back to job ids.
func playlistFake(t *testing.T) *fakeExtractor {
	t.Helper()
	fake := &fakeExtractor{}
	fake.runFn = func(args []string) (*port.RunResult, error) {
		if hasArg(args, "--print") {
			return &port.RunResult{ExitCode: 1}, nil
		}
		url := args[len(args)-1]
		if strings.Contains(url, "bad") {
			return &port.RunResult{ExitCode: 1, Stderr: "ERROR: HTTP Error 429: Too Many Requests"}, nil
		}
		dir := argValue(args, "-P")
		require.NotEmpty(t, dir)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "clip.en.srt"), []byte(sampleSRT), 0o644))
		return &port.RunResult{}, nil
	}
	return fake
}

func TestPlaylistRunMixedOutcome(t *testing.T) {
	fake := playlistFake(t)
	svc := newTestPlaylistService(t, fake)

	urls := []string{
		"https://www.youtube.com/watch?v=ok1",
		"https://www.youtube.com/watch?v=bad1",
		"https://www.youtube.com/watch?v=ok2",
	}
	outcome := svc.Run(&vo.SubtitleRequest{
		VideoURL:  "https://www.youtube.com/playlist?list=PLmix",
		Languages: []string{"en"},
		Format:    vo.FormatSRT,
	}, urls)
	require.NotNil(t, outcome)

	// Run阻塞到任务结束，返回值即完整结果
	assert.Equal(t, vo.PlaylistStatusCompleted, outcome.Status)
	assert.Equal(t, 3, outcome.TotalVideos)
	assert.Equal(t, 3, outcome.Completed)
	assert.Equal(t, 2, outcome.Successful)
	assert.Equal(t, 1, outcome.Failed)
	assert.Equal(t, 0, outcome.InProgress)
	assert.Empty(t, outcome.CurrentVideos)
	require.Len(t, outcome.Results, 3)

	var failed *entity.PlaylistItemResult
	for i := range outcome.Results {
		if outcome.Results[i].SubtitleFile == "" {
			failed = &outcome.Results[i]
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, "https://www.youtube.com/watch?v=bad1", failed.VideoURL)
	assert.NotEmpty(t, failed.Error)
	assert.LessOrEqual(t, len([]rune(failed.Error)), 200)

	// 进度接口在任务结束后仍可查询，且与结果一致
	stored := svc.Progress(outcome.JobID)
	require.NotNil(t, stored)
	assert.Equal(t, vo.PlaylistStatusCompleted, stored.Status)
	assert.Equal(t, outcome.Completed, stored.Completed)
	assert.Equal(t, outcome.Successful, stored.Successful)
	assert.Equal(t, outcome.Failed, stored.Failed)
}

func TestPlaylistProgressPollableWhileRunning(t *testing.T) {
	fake := playlistFake(t)
	svc := newTestPlaylistService(t, fake)
	impl := svc.(*playlistServiceImpl)

	urls := make([]string, 6)
	for i := range urls {
		urls[i] = "https://www.youtube.com/watch?v=vid" + string(rune('a'+i))
	}

	done := make(chan *entity.PlaylistProgress, 1)
	go func() {
		done <- svc.Run(&vo.SubtitleRequest{
			VideoURL:  "https://www.youtube.com/playlist?list=PLbig",
			Languages: []string{"en"},
			Format:    vo.FormatSRT,
		}, urls)
	}()

	// 任务注册后即可从其它goroutine轮询进度
	var jobID string
	require.Eventually(t, func() bool {
		impl.mu.Lock()
		defer impl.mu.Unlock()
		for id := range impl.jobs {
			jobID = id
			return true
		}
		return false
	}, 5*time.Second, time.Millisecond)

	// 任一时刻的快照都必须满足计数不变式
	for {
		p := svc.Progress(jobID)
		require.NotNil(t, p)
		assert.Equal(t, p.Successful+p.Failed, p.Completed)
		assert.LessOrEqual(t, p.Completed, p.TotalVideos)
		assert.LessOrEqual(t, len(p.CurrentVideos), 2)
		if p.Status == vo.PlaylistStatusCompleted {
			break
		}
		time.Sleep(time.Millisecond)
	}

	select {
	case outcome := <-done:
		assert.Equal(t, 6, outcome.Successful)
	case <-time.After(5 * time.Second):
		t.Fatal("playlist run did not return")
	}
}

func TestPlaylistProgressUnknownJob(t *testing.T) {
	fake := &fakeExtractor{}
	svc := newTestPlaylistService(t, fake)
	assert.Nil(t, svc.Progress("nope"))
}

func TestPlaylistSkipsExtractionForCachedMembers(t *testing.T) {
	fake := playlistFake(t)
	subtitles, _, _ := newTestSubtitleService(t, fake)
	svc := NewPlaylistService(fake, subtitles, config.PlaylistConfig{
		MaxWorkers: 2, ExpandTimeout: 5 * time.Second,
	}, config.ExtractorConfig{PlayerClient: "default"})

	req := &vo.SubtitleRequest{
		VideoURL:  "https://www.youtube.com/playlist?list=PLcached",
		Languages: []string{"en"},
		Format:    vo.FormatSRT,
	}

	// 预热：先单独下载其中一个成员
	_, err := subtitles.Download(context.Background(), req.PerVideo("https://www.youtube.com/watch?v=warm"))
	require.NoError(t, err)
	callsAfterWarm := fake.calls()

	outcome := svc.Run(req, []string{"https://www.youtube.com/watch?v=warm"})
	assert.Equal(t, 1, outcome.Successful)
	assert.Equal(t, callsAfterWarm, fake.calls(), "cached member must not re-invoke the extractor")
}

func TestPlaylistItemPanicBecomesFailure(t *testing.T) {
	fake := &fakeExtractor{}
	fake.runFn = func(args []string) (*port.RunResult, error) {
		if hasArg(args, "--print") {
			return &port.RunResult{ExitCode: 1}, nil
		}
		url := args[len(args)-1]
		if strings.Contains(url, "boom") {
			panic("exploded mid-download")
		}
		dir := argValue(args, "-P")
		require.NoError(t, os.WriteFile(filepath.Join(dir, "clip.en.srt"), []byte(sampleSRT), 0o644))
		return &port.RunResult{}, nil
	}
	svc := newTestPlaylistService(t, fake)

	outcome := svc.Run(&vo.SubtitleRequest{
		VideoURL:  "https://www.youtube.com/playlist?list=PLpanic",
		Languages: []string{"en"},
		Format:    vo.FormatSRT,
	}, []string{
		"https://www.youtube.com/watch?v=fine",
		"https://www.youtube.com/watch?v=boom",
	})

	// 单个成员的panic只算该项失败，任务整体照常终结
	assert.Equal(t, vo.PlaylistStatusCompleted, outcome.Status)
	assert.Equal(t, 2, outcome.Completed)
	assert.Equal(t, 1, outcome.Successful)
	assert.Equal(t, 1, outcome.Failed)
	assert.Equal(t, 0, outcome.InProgress)

	var failed *entity.PlaylistItemResult
	for i := range outcome.Results {
		if outcome.Results[i].SubtitleFile == "" {
			failed = &outcome.Results[i]
		}
	}
	require.NotNil(t, failed)
	assert.Contains(t, failed.Error, "internal error")
}
