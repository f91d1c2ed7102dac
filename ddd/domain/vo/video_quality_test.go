package vo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVideoQualityIsValid(t *testing.T) {
	assert.True(t, QualityBest.IsValid())
	assert.True(t, VideoQuality("1080p").IsValid())
	assert.True(t, VideoQuality("144p").IsValid())
	assert.False(t, VideoQuality("8000p").IsValid())
	assert.False(t, VideoQuality("").IsValid())
}

func TestFormatSelector(t *testing.T) {
	assert.Equal(t, "bv*+ba/b", QualityBest.FormatSelector())
	assert.Equal(t,
		"bv*[height<=720][ext=mp4]+ba[ext=m4a]/bv*[height<=720]+ba/b[height<=720]",
		VideoQuality("720p").FormatSelector())
	// 未知画质退回best
	assert.Equal(t, "bv*+ba/b", VideoQuality("weird").FormatSelector())
}

func TestSubtitleFormatIsValid(t *testing.T) {
	assert.True(t, FormatSRT.IsValid())
	assert.True(t, FormatJSON3.IsValid())
	assert.False(t, SubtitleFormat("docx").IsValid())
}

func TestSortedLanguages(t *testing.T) {
	req := &SubtitleRequest{Languages: []string{"zh", " en ", "en", "", "de"}}
	assert.Equal(t, []string{"de", "en", "zh"}, req.SortedLanguages())
}

func TestJobStatusTransitions(t *testing.T) {
	assert.True(t, JobStatusPending.CanTransitionTo(JobStatusRunning))
	assert.False(t, JobStatusPending.CanTransitionTo(JobStatusCompleted))
	assert.True(t, JobStatusRunning.CanTransitionTo(JobStatusFailed))
	assert.False(t, JobStatusCompleted.CanTransitionTo(JobStatusRunning))
	assert.True(t, JobStatusFailed.IsFinal())
	assert.False(t, JobStatusRunning.IsFinal())
}
