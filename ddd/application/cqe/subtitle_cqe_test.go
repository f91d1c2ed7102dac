package cqe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtitle-hub/ddd/domain/vo"
	"subtitle-hub/pkg/errno"
)

func TestDownloadSubtitlesReqDefaults(t *testing.T) {
	req := &DownloadSubtitlesReq{VideoURL: "https://youtu.be/abc"}
	require.NoError(t, req.Validate())
	assert.Equal(t, []string{"en"}, req.Languages)
	assert.Equal(t, "srt", req.Format)

	domain := req.ToRequest()
	assert.True(t, domain.PreferAutoSubs, "auto subs default on")
	assert.Nil(t, domain.Prompt)
}

func TestDownloadSubtitlesReqValidation(t *testing.T) {
	assert.Error(t, (&DownloadSubtitlesReq{VideoURL: "   "}).Validate())

	bad := &DownloadSubtitlesReq{VideoURL: "https://youtu.be/abc", Format: "docx"}
	assert.ErrorIs(t, bad.Validate(), errno.ErrBadRequest)
}

func TestDownloadSubtitlesReqPrompt(t *testing.T) {
	autoOff := false
	req := &DownloadSubtitlesReq{
		VideoURL:       "https://youtu.be/abc",
		Format:         "vtt",
		PreferAutoSubs: &autoOff,
		GeneratePrompt: true,
		Speaker:        "Ada",
		Topic:          "Engines",
	}
	require.NoError(t, req.Validate())

	domain := req.ToRequest()
	assert.Equal(t, vo.FormatVTT, domain.Format)
	assert.False(t, domain.PreferAutoSubs)
	require.NotNil(t, domain.Prompt)
	assert.Equal(t, "Ada", domain.Prompt.Speaker)
}

func TestAnalyzeSubtitleReqValidation(t *testing.T) {
	missing := &AnalyzeSubtitleReq{Provider: "openai"}
	assert.ErrorIs(t, missing.Validate(), errno.ErrMissingReference)

	noProvider := &AnalyzeSubtitleReq{SubtitleText: "hello"}
	assert.ErrorIs(t, noProvider.Validate(), errno.ErrBadRequest)

	hotTemp := &AnalyzeSubtitleReq{SubtitleText: "hello", Provider: "openai", Temperature: 3}
	assert.ErrorIs(t, hotTemp.Validate(), errno.ErrBadRequest)

	ok := &AnalyzeSubtitleReq{JobID: "job-1", Provider: "openai"}
	require.NoError(t, ok.Validate())
	assert.NotEmpty(t, ok.Instructions, "default question filled in")

	// 请求级凭据覆盖是可选的，不影响校验
	withCreds := &AnalyzeSubtitleReq{
		SubtitleText: "hello",
		Provider:     "openai",
		APIKey:       "sk-request",
		BaseURL:      "https://proxy.internal/v1",
	}
	require.NoError(t, withCreds.Validate())
}

func TestDownloadVideoReqValidation(t *testing.T) {
	req := &DownloadVideoReq{VideoURL: "https://youtu.be/abc"}
	require.NoError(t, req.Validate())
	assert.Equal(t, "best", req.Quality)

	bad := &DownloadVideoReq{VideoURL: "https://youtu.be/abc", Quality: "9999p"}
	assert.ErrorIs(t, bad.Validate(), errno.ErrBadRequest)
}
