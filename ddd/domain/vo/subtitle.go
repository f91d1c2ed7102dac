package vo

import (
	"sort"
	"strings"
)

// SubtitleFormat 字幕格式
type SubtitleFormat string

const (
	FormatSRT   SubtitleFormat = "srt"
	FormatVTT   SubtitleFormat = "vtt"
	FormatASS   SubtitleFormat = "ass"
	FormatJSON3 SubtitleFormat = "json3"
	FormatTTML  SubtitleFormat = "ttml"
)

// IsValid 检查格式是否受支持
func (f SubtitleFormat) IsValid() bool {
	switch f {
	case FormatSRT, FormatVTT, FormatASS, FormatJSON3, FormatTTML:
		return true
	default:
		return false
	}
}

func (f SubtitleFormat) String() string {
	return string(f)
}

// PromptSpec carries the optional prompt-generation request attached to a
// subtitle download.
type PromptSpec struct {
	Template          string
	Speaker           string
	Topic             string
	ExtraInstructions string
}

// SubtitleRequest is the normalized download request the domain services work
// with; the HTTP layer converts its cqe into this.
type SubtitleRequest struct {
	VideoURL       string
	Languages      []string
	Format         SubtitleFormat
	PreferAutoSubs bool
	OutputFilename string
	Prompt         *PromptSpec
}

// SortedLanguages returns the deduplicated, sorted language list used in
// cache fingerprints and extractor arguments.
func (r *SubtitleRequest) SortedLanguages() []string {
	seen := make(map[string]struct{}, len(r.Languages))
	out := make([]string, 0, len(r.Languages))
	for _, lang := range r.Languages {
		lang = strings.TrimSpace(lang)
		if lang == "" {
			continue
		}
		if _, ok := seen[lang]; ok {
			continue
		}
		seen[lang] = struct{}{}
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// PerVideo derives the request used for one member of a playlist: same
// options, member URL, and no custom output filename.
func (r *SubtitleRequest) PerVideo(videoURL string) *SubtitleRequest {
	return &SubtitleRequest{
		VideoURL:       videoURL,
		Languages:      r.Languages,
		Format:         r.Format,
		PreferAutoSubs: r.PreferAutoSubs,
		Prompt:         r.Prompt,
	}
}
