package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPassThreshold is the rating an interview must exceed to be selected.
// It is the only place the pass policy is defined.
const DefaultPassThreshold = 5.0

// DefaultNegativeRejectLimit is the number of negative answers that forces rejection.
const DefaultNegativeRejectLimit = 3

// Config holds all configuration for the interview agent.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Mail      MailConfig      `yaml:"mail"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Browser   BrowserConfig   `yaml:"browser"`
	Capture   CaptureConfig   `yaml:"capture"`
	Speech    SpeechConfig    `yaml:"speech"`
	AI        AIConfig        `yaml:"ai"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Paths     PathsConfig     `yaml:"paths"`
}

type ServerConfig struct {
	Port              int    `yaml:"port"`
	Env               string `yaml:"env"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type MailConfig struct {
	IMAPAddr     string        `yaml:"imap_addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	Mailbox      string        `yaml:"mailbox"`
	PollInterval time.Duration `yaml:"poll_interval"`
	LinkPattern  string        `yaml:"link_pattern"`
}

type SchedulerConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
}

// Selectors are XPath expressions locating the meeting page affordances.
type Selectors struct {
	Microphone    string `yaml:"microphone"`
	Camera        string `yaml:"camera"`
	AskToJoin     string `yaml:"ask_to_join"`
	InCall        string `yaml:"in_call"`
	CallEnded     string `yaml:"call_ended"`
	CameraOnLabel string `yaml:"camera_on_label"`
}

type BrowserConfig struct {
	ExecPath           string        `yaml:"exec_path"`
	UserDataDir        string        `yaml:"user_data_dir"`
	Headless           bool          `yaml:"headless"`
	ControlTimeout     time.Duration `yaml:"control_timeout"`
	AdmissionTimeout   time.Duration `yaml:"admission_timeout"`
	InCallTimeout      time.Duration `yaml:"in_call_timeout"`
	PollInterval       time.Duration `yaml:"poll_interval"`
	MaxSessionDuration time.Duration `yaml:"max_session_duration"`
	Selectors          Selectors     `yaml:"selectors"`
}

type CaptureConfig struct {
	Format       string        `yaml:"format"`
	Input        string        `yaml:"input"`
	SampleRate   int           `yaml:"sample_rate"`
	Channels     int           `yaml:"channels"`
	FrameSize    int           `yaml:"frame_size"`
	PollInterval time.Duration `yaml:"poll_interval"`
	StopTimeout  time.Duration `yaml:"stop_timeout"`
}

type SpeechConfig struct {
	Provider     string            `yaml:"provider"`
	SidecarURL   string            `yaml:"sidecar_url"`
	DiarizerURL  string            `yaml:"diarizer_url"`
	Timeout      time.Duration     `yaml:"timeout"`
	SpeakerRoles map[string]string `yaml:"speaker_roles"`
}

type AIConfig struct {
	Provider         string        `yaml:"provider"`
	InferenceTimeout time.Duration `yaml:"inference_timeout"`
	Sidecar          SidecarConfig `yaml:"sidecar"`
	OpenAI           OpenAIConfig  `yaml:"openai"`
}

type SidecarConfig struct {
	BaseURL string `yaml:"base_url"`
}

type OpenAIConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	ChatModel      string `yaml:"chat_model"`
	EmbeddingModel string `yaml:"embedding_model"`
}

type ScoringConfig struct {
	PassThreshold       float64 `yaml:"pass_threshold"`
	NegativeRejectLimit int     `yaml:"negative_reject_limit"`
}

type PathsConfig struct {
	Recordings string `yaml:"recordings"`
	Reports    string `yaml:"reports"`
}

var validAIProviders = map[string]bool{
	"sidecar": true,
	"openai":  true,
	"mock":    true,
}

var validSpeechProviders = map[string]bool{
	"sidecar": true,
	"openai":  true,
}

// Load builds the configuration from defaults, an optional YAML file named by
// INTERVIEWBOT_CONFIG, and environment variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("INTERVIEWBOT_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8080,
			Env:               "development",
			RequestsPerMinute: 60,
		},
		Mail: MailConfig{
			IMAPAddr:     "imap.gmail.com:993",
			Mailbox:      "INBOX",
			PollInterval: time.Minute,
			LinkPattern:  `https://meet\.google\.com/[a-zA-Z0-9\-]+`,
		},
		Scheduler: SchedulerConfig{
			TickInterval: time.Second,
		},
		Browser: BrowserConfig{
			UserDataDir:        "/tmp/interviewbot-chrome",
			ControlTimeout:     10 * time.Second,
			AdmissionTimeout:   40 * time.Second,
			InCallTimeout:      10 * time.Minute,
			PollInterval:       5 * time.Second,
			MaxSessionDuration: 2 * time.Hour,
			Selectors: Selectors{
				Microphone:    `//div[@role="button" and @aria-label="Turn off microphone"]`,
				Camera:        `//div[@role="button" and contains(@aria-label, "camera")]`,
				CameraOnLabel: "Turn off camera",
				AskToJoin:     `//span[text()="Ask to join" or text()="Join now"]`,
				InCall:        `//button[contains(@aria-label, "Leave call")]`,
				CallEnded:     `//*[contains(text(), "You left the meeting") or contains(text(), "Return to home screen")]`,
			},
		},
		Capture: CaptureConfig{
			Format:       "pulse",
			Input:        "default",
			SampleRate:   44100,
			Channels:     2,
			FrameSize:    4096,
			PollInterval: time.Second,
			StopTimeout:  30 * time.Second,
		},
		Speech: SpeechConfig{
			Provider:   "sidecar",
			SidecarURL: "http://localhost:9000",
			Timeout:    10 * time.Minute,
			SpeakerRoles: map[string]string{
				"SPEAKER_00": "Interviewer",
				"SPEAKER_01": "Candidate",
			},
		},
		AI: AIConfig{
			Provider:         "sidecar",
			InferenceTimeout: 60 * time.Second,
			Sidecar:          SidecarConfig{BaseURL: "http://localhost:9001"},
			OpenAI: OpenAIConfig{
				ChatModel:      "gpt-4o-mini",
				EmbeddingModel: "text-embedding-3-small",
			},
		},
		Scoring: ScoringConfig{
			PassThreshold:       DefaultPassThreshold,
			NegativeRejectLimit: DefaultNegativeRejectLimit,
		},
		Paths: PathsConfig{
			Recordings: "recordings",
			Reports:    "reports",
		},
	}
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = envInt("INTERVIEWBOT_PORT", c.Server.Port)
	c.Server.Env = envString("INTERVIEWBOT_ENV", c.Server.Env)
	c.Server.RequestsPerMinute = envInt("INTERVIEWBOT_REQUESTS_PER_MINUTE", c.Server.RequestsPerMinute)

	c.Redis.URL = envString("REDIS_URL", c.Redis.URL)

	c.Mail.IMAPAddr = envString("IMAP_ADDR", c.Mail.IMAPAddr)
	c.Mail.Username = envString("IMAP_USERNAME", c.Mail.Username)
	c.Mail.Password = envString("IMAP_PASSWORD", c.Mail.Password)
	c.Mail.Mailbox = envString("IMAP_MAILBOX", c.Mail.Mailbox)
	c.Mail.PollInterval = envDuration("MAIL_POLL_INTERVAL", c.Mail.PollInterval)
	c.Mail.LinkPattern = envString("MEETING_LINK_PATTERN", c.Mail.LinkPattern)

	c.Scheduler.TickInterval = envDuration("SCHEDULER_TICK_INTERVAL", c.Scheduler.TickInterval)

	c.Browser.ExecPath = envString("CHROME_PATH", c.Browser.ExecPath)
	c.Browser.UserDataDir = envString("CHROME_USER_DATA_DIR", c.Browser.UserDataDir)
	c.Browser.Headless = envBool("CHROME_HEADLESS", c.Browser.Headless)
	c.Browser.ControlTimeout = envDuration("BROWSER_CONTROL_TIMEOUT", c.Browser.ControlTimeout)
	c.Browser.AdmissionTimeout = envDurationSecs("ADMISSION_TIMEOUT_SECS", c.Browser.AdmissionTimeout)
	c.Browser.InCallTimeout = envDuration("IN_CALL_TIMEOUT", c.Browser.InCallTimeout)
	c.Browser.PollInterval = envDuration("END_POLL_INTERVAL", c.Browser.PollInterval)
	c.Browser.MaxSessionDuration = envDuration("MAX_SESSION_DURATION", c.Browser.MaxSessionDuration)

	c.Capture.Format = envString("CAPTURE_FORMAT", c.Capture.Format)
	c.Capture.Input = envString("CAPTURE_INPUT", c.Capture.Input)
	c.Capture.SampleRate = envInt("CAPTURE_SAMPLE_RATE", c.Capture.SampleRate)
	c.Capture.Channels = envInt("CAPTURE_CHANNELS", c.Capture.Channels)
	c.Capture.StopTimeout = envDuration("CAPTURE_STOP_TIMEOUT", c.Capture.StopTimeout)

	c.Speech.Provider = envString("SPEECH_PROVIDER", c.Speech.Provider)
	c.Speech.SidecarURL = envString("SPEECH_SIDECAR_URL", c.Speech.SidecarURL)
	c.Speech.DiarizerURL = envString("DIARIZER_URL", c.Speech.DiarizerURL)
	c.Speech.Timeout = envDuration("SPEECH_TIMEOUT", c.Speech.Timeout)

	c.AI.Provider = envString("AI_PROVIDER", c.AI.Provider)
	c.AI.InferenceTimeout = envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", c.AI.InferenceTimeout)
	c.AI.Sidecar.BaseURL = envString("AI_SIDECAR_URL", c.AI.Sidecar.BaseURL)
	c.AI.OpenAI.APIKey = envString("OPENAI_API_KEY", c.AI.OpenAI.APIKey)
	c.AI.OpenAI.BaseURL = envString("OPENAI_BASE_URL", c.AI.OpenAI.BaseURL)
	c.AI.OpenAI.ChatModel = envString("OPENAI_CHAT_MODEL", c.AI.OpenAI.ChatModel)
	c.AI.OpenAI.EmbeddingModel = envString("OPENAI_EMBEDDING_MODEL", c.AI.OpenAI.EmbeddingModel)

	c.Scoring.PassThreshold = envFloat("PASS_THRESHOLD", c.Scoring.PassThreshold)
	c.Scoring.NegativeRejectLimit = envInt("NEGATIVE_REJECT_LIMIT", c.Scoring.NegativeRejectLimit)

	c.Paths.Recordings = envString("RECORDINGS_DIR", c.Paths.Recordings)
	c.Paths.Reports = envString("REPORTS_DIR", c.Paths.Reports)
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("INTERVIEWBOT_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Redis.URL != "" && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}

	if !validAIProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of sidecar, openai, mock; got %q", c.AI.Provider)
	}
	if c.AI.Provider == "openai" && c.AI.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
	}
	if c.AI.Provider == "sidecar" && !isHTTPURL(c.AI.Sidecar.BaseURL) {
		return fmt.Errorf("AI_SIDECAR_URL must start with http:// or https://, got %q", c.AI.Sidecar.BaseURL)
	}

	if !validSpeechProviders[c.Speech.Provider] {
		return fmt.Errorf("SPEECH_PROVIDER must be one of sidecar, openai; got %q", c.Speech.Provider)
	}
	if c.Speech.Provider == "openai" && c.AI.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when SPEECH_PROVIDER is openai")
	}
	if c.Speech.Provider == "sidecar" && !isHTTPURL(c.Speech.SidecarURL) {
		return fmt.Errorf("SPEECH_SIDECAR_URL must start with http:// or https://, got %q", c.Speech.SidecarURL)
	}
	if !isHTTPURL(c.DiarizerBaseURL()) {
		return fmt.Errorf("DIARIZER_URL must start with http:// or https://, got %q", c.DiarizerBaseURL())
	}

	if c.Scoring.PassThreshold < 0 || c.Scoring.PassThreshold > 10 {
		return fmt.Errorf("PASS_THRESHOLD must be between 0 and 10, got %v", c.Scoring.PassThreshold)
	}
	if c.Scoring.NegativeRejectLimit <= 0 {
		return fmt.Errorf("NEGATIVE_REJECT_LIMIT must be positive, got %d", c.Scoring.NegativeRejectLimit)
	}

	if c.Capture.SampleRate <= 0 || c.Capture.Channels <= 0 {
		return fmt.Errorf("capture sample rate and channels must be positive")
	}
	if c.Capture.PollInterval <= 0 || c.Capture.PollInterval > time.Second {
		return fmt.Errorf("capture poll interval must be in (0, 1s], got %s", c.Capture.PollInterval)
	}

	if c.Browser.PollInterval <= 0 {
		return fmt.Errorf("END_POLL_INTERVAL must be positive")
	}

	return nil
}

// MailEnabled reports whether mailbox polling is configured.
func (c *Config) MailEnabled() bool {
	return c.Mail.Username != "" && c.Mail.Password != ""
}

// DiarizerBaseURL returns the diarization endpoint, falling back to the speech sidecar.
func (c *Config) DiarizerBaseURL() string {
	if c.Speech.DiarizerURL != "" {
		return c.Speech.DiarizerURL
	}
	return c.Speech.SidecarURL
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
