package vo

import "fmt"

// VideoQuality 请求的视频画质上限
type VideoQuality string

const QualityBest VideoQuality = "best"

// qualityHeights 画质对应的像素高度上限
var qualityHeights = map[VideoQuality]int{
	"2160p": 2160,
	"1440p": 1440,
	"1080p": 1080,
	"720p":  720,
	"480p":  480,
	"360p":  360,
	"240p":  240,
	"144p":  144,
}

// IsValid 检查画质参数是否合法
func (q VideoQuality) IsValid() bool {
	if q == QualityBest {
		return true
	}
	_, ok := qualityHeights[q]
	return ok
}

func (q VideoQuality) String() string {
	return string(q)
}

// FormatSelector builds the yt-dlp -f expression: an exact-height-capped
// mp4+m4a preference chain, or best-available when no cap applies.
func (q VideoQuality) FormatSelector() string {
	if q == QualityBest {
		return "bv*+ba/b"
	}
	height, ok := qualityHeights[q]
	if !ok {
		return "bv*+ba/b"
	}
	return fmt.Sprintf(
		"bv*[height<=%d][ext=mp4]+ba[ext=m4a]/bv*[height<=%d]+ba/b[height<=%d]",
		height, height, height,
	)
}

// FormatNote 人类可读的画质说明
func (q VideoQuality) FormatNote() string {
	if q == QualityBest {
		return "best available quality"
	}
	return fmt.Sprintf("target quality: %s", q)
}
