package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	Storage         StorageConfig         `mapstructure:"storage"`
	Extractor       ExtractorConfig       `mapstructure:"extractor"`
	Playlist        PlaylistConfig        `mapstructure:"playlist"`
	Prompt          PromptConfig          `mapstructure:"prompt"`
	LLM             LLMConfig             `mapstructure:"llm"`
	Redis           RedisConfig           `mapstructure:"redis"`
	JWT             JWTConfig             `mapstructure:"jwt"`
	Log             LogConfig             `mapstructure:"log"`
	ServiceRegistry ServiceRegistryConfig `mapstructure:"service_registry"`
	Profiling       ProfilingConfig       `mapstructure:"profiling"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// StorageConfig 存储目录配置
type StorageConfig struct {
	Root            string `mapstructure:"root"`
	SubtitleDirName string `mapstructure:"subtitle_dir_name"`
	PromptDirName   string `mapstructure:"prompt_dir_name"`
	VideoDirName    string `mapstructure:"video_dir_name"`
	CacheFileName   string `mapstructure:"cache_file_name"`
}

// ExtractorConfig yt-dlp相关配置
type ExtractorConfig struct {
	BinaryPath       string        `mapstructure:"binary_path"`
	TitleTimeout     time.Duration `mapstructure:"title_timeout"`
	SleepInterval    int           `mapstructure:"sleep_interval"`
	MaxSleepInterval int           `mapstructure:"max_sleep_interval"`
	PlayerClient     string        `mapstructure:"player_client"`
}

// PlaylistConfig 播放列表下载配置
type PlaylistConfig struct {
	MaxWorkers    int           `mapstructure:"max_workers"`
	ExpandTimeout time.Duration `mapstructure:"expand_timeout"`
}

// PromptConfig 提示词配置
type PromptConfig struct {
	DefaultTemplate string `mapstructure:"default_template"`
	DefaultSpeaker  string `mapstructure:"default_speaker"`
	DefaultTopic    string `mapstructure:"default_topic"`
}

// LLMConfig LLM分析配置
type LLMConfig struct {
	SystemPrompt string                       `mapstructure:"system_prompt"`
	DefaultModel string                       `mapstructure:"default_model"`
	CacheTTL     time.Duration                `mapstructure:"cache_ttl"`
	Providers    map[string]LLMProviderConfig `mapstructure:"providers"`
}

// LLMProviderConfig 单个LLM提供商配置
type LLMProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EnableTLS    bool          `mapstructure:"enable_tls"`
}

// ServiceRegistryConfig registration configuration.
type ServiceRegistryConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoints       []string      `mapstructure:"endpoints"`
	ServiceName     string        `mapstructure:"service_name"`
	ServiceID       string        `mapstructure:"service_id"`
	RegisterHost    string        `mapstructure:"register_host"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	TTL             time.Duration `mapstructure:"ttl"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// ProfilingConfig pyroscope配置
type ProfilingConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ServerAddress string `mapstructure:"server_address"`
	AuthToken     string `mapstructure:"auth_token"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	ExpireTime time.Duration `mapstructure:"expire_time"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

var globalConfig *Config

// SetGlobalConfig 设置全局配置
func SetGlobalConfig(cfg *Config) {
	globalConfig = cfg
}

// GetGlobalConfig 获取全局配置
func GetGlobalConfig() *Config {
	return globalConfig
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("service_registry.enabled", false)
	viper.SetDefault("service_registry.service_name", "subtitle-hub")
	viper.SetDefault("service_registry.endpoints", []string{"localhost:2379"})
	viper.SetDefault("redis.enabled", false)

	// 设置环境变量前缀
	viper.SetEnvPrefix("SUBTITLE_HUB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	// 解析配置
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.normalize()

	return &config, nil
}

// normalize 补全配置的默认值
func (c *Config) normalize() {
	if c.Server.Port == 0 {
		c.Server.Port = 8084
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "debug"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	}

	if c.Storage.Root == "" {
		c.Storage.Root = "storage"
	}
	if c.Storage.SubtitleDirName == "" {
		c.Storage.SubtitleDirName = "subtitles"
	}
	if c.Storage.PromptDirName == "" {
		c.Storage.PromptDirName = "prompts"
	}
	if c.Storage.VideoDirName == "" {
		c.Storage.VideoDirName = "videos"
	}
	if c.Storage.CacheFileName == "" {
		c.Storage.CacheFileName = "subtitle_cache.json"
	}

	if c.Extractor.BinaryPath == "" {
		c.Extractor.BinaryPath = "yt-dlp"
	}
	if c.Extractor.TitleTimeout == 0 {
		c.Extractor.TitleTimeout = 30 * time.Second
	}
	if c.Extractor.SleepInterval <= 0 {
		c.Extractor.SleepInterval = 1
	}
	if c.Extractor.MaxSleepInterval <= 0 {
		c.Extractor.MaxSleepInterval = 3
	}
	if c.Extractor.PlayerClient == "" {
		c.Extractor.PlayerClient = "default"
	}

	// 固定2个并发worker以避开YouTube限流
	if c.Playlist.MaxWorkers <= 0 {
		c.Playlist.MaxWorkers = 2
	}
	if c.Playlist.ExpandTimeout == 0 {
		c.Playlist.ExpandTimeout = 120 * time.Second
	}

	if c.Prompt.DefaultTemplate == "" {
		c.Prompt.DefaultTemplate = defaultPromptTemplate
	}
	if c.Prompt.DefaultSpeaker == "" {
		c.Prompt.DefaultSpeaker = "未知主讲人"
	}
	if c.Prompt.DefaultTopic == "" {
		c.Prompt.DefaultTopic = "未指定主题"
	}

	if c.LLM.DefaultModel == "" {
		c.LLM.DefaultModel = "gpt-4o-mini"
	}
	if c.LLM.SystemPrompt == "" {
		c.LLM.SystemPrompt = defaultSystemPrompt
	}
	if c.LLM.CacheTTL == 0 {
		c.LLM.CacheTTL = 24 * time.Hour
	}

	if c.ServiceRegistry.ServiceName == "" {
		c.ServiceRegistry.ServiceName = "subtitle-hub"
	}
	if c.ServiceRegistry.DialTimeout == 0 {
		c.ServiceRegistry.DialTimeout = 5 * time.Second
	}
	if c.ServiceRegistry.TTL == 0 {
		c.ServiceRegistry.TTL = 30 * time.Second
	}
	if c.ServiceRegistry.RefreshInterval == 0 {
		c.ServiceRegistry.RefreshInterval = 10 * time.Second
	}
}

// GetRedisAddr 获取Redis地址
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheFilePath 缓存文件完整路径
func (c *StorageConfig) CacheFilePath() string {
	return filepath.Join(c.Root, c.CacheFileName)
}

// SubtitleDir 字幕目录
func (c *StorageConfig) SubtitleDir() string {
	return filepath.Join(c.Root, c.SubtitleDirName)
}

// PromptDir 提示词目录
func (c *StorageConfig) PromptDir() string {
	return filepath.Join(c.Root, c.PromptDirName)
}

// VideoDir 视频目录
func (c *StorageConfig) VideoDir() string {
	return filepath.Join(c.Root, c.VideoDirName)
}

const defaultPromptTemplate = "你是一个Notion软件使用专家，将下述我需要的内容以Notion笔记的格式输出，" +
	"方便我拷贝到Notion里面作为笔记记录，要求美观简洁。\n" +
	"标题之间用---分隔。\n" +
	"若存在数学公式，给出Notion支持的公式格式。\n" +
	"要求：将视频内容整理成中文笔记，越详细越好，尽可能通俗易懂，必要情况下保留原文术语。\n" +
	"视频主讲人是：{speaker}\n" +
	"演讲主题是：{topic}\n" +
	"演讲内容如下：\n" +
	"{subtitle_body}"

const defaultSystemPrompt = "你是一名精通多语言的学习助手，擅长根据视频字幕梳理知识点、亮点与行动建议。" +
	"回答时请尽量结构化，使用清晰的小节、序号或列表，语气亲切克制，强调可执行性。"
