package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"subtitle-hub/ddd/domain/entity"
	"subtitle-hub/ddd/domain/gateway"
	"subtitle-hub/ddd/domain/port"
	"subtitle-hub/ddd/domain/vo"
	"subtitle-hub/pkg/config"
	"subtitle-hub/pkg/errno"
	"subtitle-hub/pkg/logger"
)

// SubtitleService downloads subtitles for one video at a time: cache lookup,
// extraction into a scratch directory, persistence into the subtitle store,
// optional plain-text companion and prompt generation, cache write-back.
type SubtitleService interface {
	// Download runs the full pipeline. On a cache hit nothing is invoked.
	Download(ctx context.Context, req *vo.SubtitleRequest) (*entity.SubtitleArtifact, error)

	// Cached returns the artifact for a still-valid cache entry, or nil.
	Cached(req *vo.SubtitleRequest) *entity.SubtitleArtifact

	// ListTracks lists the automatic and manual subtitle tracks a video offers.
	ListTracks(ctx context.Context, videoURL string) (automatic, manual []entity.SubtitleTrack, err error)

	// LoadSubtitleText reads stored subtitle content by job id or public path.
	LoadSubtitleText(jobID, publicPath string) (string, error)
}

type subtitleServiceImpl struct {
	extractor port.Extractor
	storage   gateway.StorageGateway
	cache     gateway.SubtitleCache
	prompts   *PromptService
	cfg       config.ExtractorConfig
}

func NewSubtitleService(
	extractor port.Extractor,
	storage gateway.StorageGateway,
	cache gateway.SubtitleCache,
	prompts *PromptService,
	cfg config.ExtractorConfig,
) SubtitleService {
	return &subtitleServiceImpl{
		extractor: extractor,
		storage:   storage,
		cache:     cache,
		prompts:   prompts,
		cfg:       cfg,
	}
}

func (s *subtitleServiceImpl) Cached(req *vo.SubtitleRequest) *entity.SubtitleArtifact {
	entry := s.cache.Get(req)
	if entry == nil {
		return nil
	}
	return entry.Artifact(req.Format, req.SortedLanguages())
}

func (s *subtitleServiceImpl) Download(ctx context.Context, req *vo.SubtitleRequest) (*entity.SubtitleArtifact, error) {
	if cached := s.Cached(req); cached != nil {
		logger.Debugf("subtitle cache hit url=%s format=%s", req.VideoURL, req.Format)
		return cached, nil
	}

	jobID := uuid.NewString()
	tempDir, err := os.MkdirTemp("", "yt_subs_")
	if err != nil {
		return nil, err
	}
	// 无论成功失败都清理临时目录
	defer os.RemoveAll(tempDir)

	// 标题仅用于生成文件名，拿不到就退回job id
	title := s.fetchTitle(ctx, req.VideoURL)

	subtitlePath, err := s.runExtractor(ctx, tempDir, req)
	if err != nil {
		return nil, err
	}

	finalPath, baseName, suffix, err := s.persistSubtitle(jobID, subtitlePath, req, title)
	if err != nil {
		return nil, err
	}

	s.writeTextCompanion(finalPath, baseName, suffix, req, title)

	publicSubtitle, err := s.storage.PublicPath(finalPath)
	if err != nil {
		return nil, err
	}

	artifact := &entity.SubtitleArtifact{
		JobID:        jobID,
		Format:       req.Format,
		Languages:    req.SortedLanguages(),
		SubtitleFile: publicSubtitle,
		VideoURL:     req.VideoURL,
		VideoTitle:   title,
		CreatedAt:    time.Now().UTC(),
	}

	if req.Prompt != nil {
		if err := s.generatePrompt(artifact, finalPath, req.Prompt); err != nil {
			return nil, err
		}
	}

	// 以原始请求参数为键写缓存
	s.cache.Put(req, artifact.Entry())

	logger.Infof("subtitle downloaded job_id=%s url=%s file=%s", jobID, req.VideoURL, publicSubtitle)
	return artifact, nil
}

func (s *subtitleServiceImpl) ListTracks(ctx context.Context, videoURL string) ([]entity.SubtitleTrack, []entity.SubtitleTrack, error) {
	res, err := s.extractor.Run(ctx, []string{"--list-subs", videoURL}, 0)
	if err != nil || res.ExitCode != 0 {
		return nil, nil, classifyRunFailure(res, err, "")
	}

	automatic, manual := parseListSubsOutput(res.Stdout)
	if len(automatic) == 0 && len(manual) == 0 {
		return nil, nil, errno.ErrNotFound.WithMessagef(
			"the video host returned no listable subtitle tracks; it may only support live auto-captions, try downloading with prefer_auto_subs")
	}
	return automatic, manual, nil
}

func (s *subtitleServiceImpl) LoadSubtitleText(jobID, publicPath string) (string, error) {
	var target string
	var err error
	switch {
	case publicPath != "":
		target, err = s.storage.Resolve(publicPath)
	case jobID != "":
		target, err = s.storage.FindByJobID(jobID)
	default:
		return "", errno.ErrMissingReference
	}
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return "", errno.ErrInternalServer.WithMessagef("failed to read subtitle file: %v", err)
	}
	return string(data), nil
}

// ---------- pipeline steps ----------

// fetchTitle is best-effort: any failure leaves the title absent and the
// download proceeds.
func (s *subtitleServiceImpl) fetchTitle(ctx context.Context, videoURL string) string {
	res, err := s.extractor.Run(ctx, []string{"--print", "title", "--no-warnings", videoURL}, s.cfg.TitleTimeout)
	if err != nil || res.ExitCode != 0 {
		return ""
	}
	return strings.TrimSpace(res.Stdout)
}

func (s *subtitleServiceImpl) runExtractor(ctx context.Context, tempDir string, req *vo.SubtitleRequest) (string, error) {
	subsFlag := "--write-subs"
	if req.PreferAutoSubs {
		subsFlag = "--write-auto-subs"
	}
	args := []string{
		"--skip-download",
		subsFlag,
		"--sub-lang", strings.Join(req.SortedLanguages(), ","),
		"--convert-subs", req.Format.String(),
	}
	args = append(args, s.politenessArgs()...)
	args = append(args, "-P", tempDir, req.VideoURL)

	res, err := s.extractor.Run(ctx, args, 0)
	if err != nil || res.ExitCode != 0 {
		return "", classifyRunFailure(res, err, requestDetail(req))
	}

	subtitlePath := locateByExtension(tempDir, req.Format.String())
	if subtitlePath == "" {
		return "", errno.ErrNotFound.WithMessagef("%s", missingSubtitleMessage(req, res.Output()))
	}
	return subtitlePath, nil
}

// politenessArgs spaces out requests to dodge 429 responses from the host.
func (s *subtitleServiceImpl) politenessArgs() []string {
	return []string{
		"--extractor-args", "youtube:player_client=" + s.cfg.PlayerClient,
		"--sleep-interval", strconv.Itoa(s.cfg.SleepInterval),
		"--max-sleep-interval", strconv.Itoa(s.cfg.MaxSleepInterval),
	}
}

func (s *subtitleServiceImpl) persistSubtitle(jobID, subtitlePath string, req *vo.SubtitleRequest, title string) (finalPath, baseName, suffix string, err error) {
	format := req.Format.String()
	suffix = randomSuffix(8)

	var outputName string
	switch {
	case strings.TrimSpace(req.OutputFilename) != "":
		// 用户自定义文件名优先
		outputName = filepath.Base(strings.TrimSpace(req.OutputFilename))
		if !strings.HasSuffix(strings.ToLower(outputName), "."+format) {
			outputName += "." + format
		}
		baseName = strings.TrimSuffix(outputName, filepath.Ext(outputName))
	case title != "":
		// 视频标题 + 随机后缀
		baseName = sanitizeFilename(title) + "_" + suffix
		outputName = baseName + "." + format
	default:
		baseName = jobID
		outputName = baseName + "." + format
	}

	dir, err := s.storage.SubtitleDir(format)
	if err != nil {
		return "", "", "", err
	}
	finalPath = filepath.Join(dir, outputName)
	if err := moveFile(subtitlePath, finalPath); err != nil {
		return "", "", "", err
	}
	return finalPath, baseName, suffix, nil
}

// writeTextCompanion derives a plain-text copy next to the subtitle. Failure
// never fails the pipeline.
func (s *subtitleServiceImpl) writeTextCompanion(finalPath, baseName, suffix string, req *vo.SubtitleRequest, title string) {
	content, err := os.ReadFile(finalPath)
	if err != nil {
		logger.Warnf("text companion skipped, read failed file=%s error=%v", finalPath, err)
		return
	}
	text := ExtractPlainText(string(content), req.Format.String())

	var txtName string
	switch {
	case strings.TrimSpace(req.OutputFilename) != "":
		txtName = baseName + "_" + suffix + ".txt"
	case title != "":
		// 标题命名时baseName已含随机后缀
		txtName = baseName + ".txt"
	default:
		txtName = baseName + "_" + suffix + ".txt"
	}

	dir, err := s.storage.SubtitleDir("txt")
	if err != nil {
		logger.Warnf("text companion skipped, dir create failed error=%v", err)
		return
	}
	if err := os.WriteFile(filepath.Join(dir, txtName), []byte(text), 0o644); err != nil {
		logger.Warnf("text companion skipped, write failed error=%v", err)
	}
}

func (s *subtitleServiceImpl) generatePrompt(artifact *entity.SubtitleArtifact, subtitlePath string, spec *vo.PromptSpec) error {
	content, err := os.ReadFile(subtitlePath)
	if err != nil {
		return errno.ErrInternalServer.WithMessagef("failed to read subtitle for prompt: %v", err)
	}
	promptText := s.prompts.BuildPrompt(string(content), spec)
	promptPath, err := s.prompts.SavePrompt(artifact.JobID, promptText)
	if err != nil {
		return err
	}
	publicPrompt, err := s.storage.PublicPath(promptPath)
	if err != nil {
		return err
	}
	artifact.PromptFile = publicPrompt
	artifact.PromptPreview = truncateRunes(promptText, 1000)
	return nil
}

// ---------- helpers ----------

var (
	illegalFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	controlChars         = regexp.MustCompile("[\x00-\x1f\x7f]")
	htmlTagPattern       = regexp.MustCompile(`<[^>]+>`)
	digitsOnly           = regexp.MustCompile(`^\d+$`)
)

// sanitizeFilename strips filesystem-illegal and control characters, trims
// surrounding spaces/dots, caps the length at 200 runes and never returns an
// empty string.
func sanitizeFilename(name string) string {
	name = illegalFilenameChars.ReplaceAllString(name, "_")
	name = controlChars.ReplaceAllString(name, "")
	name = strings.Trim(name, " .")
	if runes := []rune(name); len(runes) > 200 {
		name = string(runes[:200])
	}
	if name == "" {
		name = "video"
	}
	return name
}

func randomSuffix(length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	s := base64.RawURLEncoding.EncodeToString(buf)
	if len(s) > length {
		s = s[:length]
	}
	return s
}

// ExtractPlainText strips subtitle markup down to spoken text: numbering and
// cue timings for srt, header/timing/style blocks for vtt, generic markup
// otherwise.
func ExtractPlainText(content, format string) string {
	switch strings.ToLower(format) {
	case "srt":
		var lines []string
		for _, raw := range strings.Split(content, "\n") {
			line := strings.TrimSpace(raw)
			if line == "" || digitsOnly.MatchString(line) || strings.Contains(line, "-->") {
				continue
			}
			line = htmlTagPattern.ReplaceAllString(line, "")
			if line != "" {
				lines = append(lines, line)
			}
		}
		return strings.Join(lines, "\n")
	case "vtt":
		var lines []string
		skipNext := false
		for _, raw := range strings.Split(content, "\n") {
			line := strings.TrimSpace(raw)
			if strings.HasPrefix(strings.ToUpper(line), "WEBVTT") {
				continue
			}
			if strings.Contains(line, "-->") || strings.HasPrefix(line, "STYLE") || strings.HasPrefix(line, "NOTE") {
				skipNext = true
				continue
			}
			if skipNext && line == "" {
				skipNext = false
				continue
			}
			if skipNext {
				continue
			}
			line = htmlTagPattern.ReplaceAllString(line, "")
			if line != "" {
				lines = append(lines, line)
			}
		}
		return strings.Join(lines, "\n")
	default:
		return strings.TrimSpace(htmlTagPattern.ReplaceAllString(content, ""))
	}
}

// locateByExtension returns the first file under dir with the extension, or "".
func locateByExtension(dir, ext string) string {
	var found string
	suffix := "." + strings.ToLower(ext)
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.HasSuffix(strings.ToLower(d.Name()), suffix) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found
}

// moveFile renames, falling back to copy+remove for cross-device moves out
// of the scratch directory.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

// classifyRunFailure maps a failed extractor invocation onto the error
// taxonomy. Call it only when err != nil or res.ExitCode != 0.
func classifyRunFailure(res *port.RunResult, err error, detail string) error {
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return errno.ErrExtractorNotFound
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return errno.ErrExtractorTimeout
		}
		return err
	}

	output := res.Output()
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(output, "429") || strings.Contains(lower, "too many requests"):
		return errno.ErrRateLimited.WithMessagef(
			"the video host returned 429 (too many requests); wait a few minutes, reduce playlist size, or configure cookies%s", detail)
	case strings.Contains(output, "403") || strings.Contains(lower, "forbidden"):
		return errno.ErrForbidden.WithMessagef(
			"the video host refused access (403 Forbidden); check the video is public or configure cookies%s", detail)
	case strings.Contains(output, "404") || strings.Contains(lower, "not found") || strings.Contains(lower, "no subtitles"):
		return errno.ErrNotFound.WithMessagef(
			"no subtitles found; the video may lack the requested languages or no longer exist%s", detail)
	default:
		return errno.ErrBadRequest.WithMessagef("yt-dlp failed: %s%s", truncateRunes(output, 500), detail)
	}
}

func requestDetail(req *vo.SubtitleRequest) string {
	return fmt.Sprintf(" (languages: %s, format: %s)", strings.Join(req.SortedLanguages(), ", "), req.Format)
}

// missingSubtitleMessage distinguishes "no track in that language" from
// throttling from the generic case, based on the captured logs.
func missingSubtitleMessage(req *vo.SubtitleRequest, logs string) string {
	hint := "the video has no matching subtitle language, or the host temporarily refused to generate auto-captions"
	if strings.Contains(logs, "There are no subtitles") {
		hint = "no subtitles in the requested languages; use the list endpoint to see what is available"
	} else if strings.Contains(logs, "HTTP Error 429") {
		hint = "the host temporarily returned 429 (too many requests); retry later or configure cookies"
	}
	return hint + requestDetail(req)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// parseListSubsOutput splits the tool's --list-subs table into automatic and
// manual track lists.
func parseListSubsOutput(output string) (automatic, manual []entity.SubtitleTrack) {
	section := ""
	skipHeader := false

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "[") {
			continue
		}
		if strings.Contains(line, "Available automatic subtitles") {
			section = "automatic"
			skipHeader = true
			continue
		}
		if strings.Contains(line, "Available subtitles") && !strings.Contains(line, "automatic") {
			section = "manual"
			skipHeader = true
			continue
		}
		if skipHeader && strings.HasPrefix(strings.ToLower(line), "language") {
			skipHeader = false
			continue
		}
		if skipHeader || section == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		track := entity.SubtitleTrack{
			Language:    fields[0],
			IsAutomatic: section == "automatic",
			Formats:     trailingFormats(fields[1:]),
		}
		if section == "automatic" {
			automatic = append(automatic, track)
		} else {
			manual = append(manual, track)
		}
	}
	return automatic, manual
}

// trailingFormats extracts the comma-separated formats column: the table's
// last column, read backwards while the preceding token still carries a
// trailing comma. The name column in between never does.
func trailingFormats(fields []string) []string {
	if len(fields) == 0 {
		return nil
	}
	start := len(fields) - 1
	for start > 0 && strings.HasSuffix(fields[start-1], ",") {
		start--
	}
	var formats []string
	for _, f := range fields[start:] {
		if f = strings.TrimSuffix(f, ","); f != "" {
			formats = append(formats, f)
		}
	}
	return formats
}
