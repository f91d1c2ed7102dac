package vo

// JobStatus 视频下载任务状态
type JobStatus string

const (
	// JobStatusPending 已入队，后台任务尚未启动
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning 后台任务执行中
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted 已完成（终态）
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed 失败（终态）
	JobStatusFailed JobStatus = "failed"
)

func (s JobStatus) String() string {
	return string(s)
}

// IsFinal 检查是否为终态
func (s JobStatus) IsFinal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo 检查是否可以转换到目标状态
func (s JobStatus) CanTransitionTo(target JobStatus) bool {
	switch s {
	case JobStatusPending:
		return target == JobStatusRunning
	case JobStatusRunning:
		return target == JobStatusCompleted || target == JobStatusFailed
	default:
		return false // 终态不能转换
	}
}

// PlaylistStatus 播放列表下载整体状态
type PlaylistStatus string

const (
	PlaylistStatusRunning   PlaylistStatus = "running"
	PlaylistStatusCompleted PlaylistStatus = "completed"
)
