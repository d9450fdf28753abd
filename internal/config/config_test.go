package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kiranshivaraju/interviewbot/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnv is a helper that sets environment variables for a test and restores them after.
func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
}

// validEnv returns the minimum set of valid environment variables.
func validEnv() map[string]string {
	return map[string]string{
		"REDIS_URL":          "redis://localhost:6379",
		"AI_PROVIDER":        "sidecar",
		"AI_SIDECAR_URL":     "http://localhost:9001",
		"SPEECH_PROVIDER":    "sidecar",
		"SPEECH_SIDECAR_URL": "http://localhost:9000",
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	setEnv(t, validEnv())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "redis://localhost:6379", cfg.Redis.URL)
	assert.Equal(t, "sidecar", cfg.AI.Provider)
	assert.Equal(t, "http://localhost:9000", cfg.Speech.SidecarURL)
}

func TestLoad_CustomPort(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("INTERVIEWBOT_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_InvalidPort(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("INTERVIEWBOT_PORT", "70000")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INTERVIEWBOT_PORT")
}

func TestLoad_RedisOptional(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("REDIS_URL", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Redis.URL)
}

func TestLoad_InvalidRedisURL(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("REDIS_URL", "localhost:6379")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")
}

func TestLoad_InvalidAIProvider(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("AI_PROVIDER", "invalid-provider")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AI_PROVIDER")
}

func TestLoad_AllValidAIProviders(t *testing.T) {
	providers := []string{"sidecar", "openai", "mock"}

	for _, provider := range providers {
		t.Run(provider, func(t *testing.T) {
			env := validEnv()
			env["AI_PROVIDER"] = provider
			if provider == "openai" {
				env["OPENAI_API_KEY"] = "sk-test-key"
			}
			setEnv(t, env)

			cfg, err := config.Load()
			require.NoError(t, err)
			assert.Equal(t, provider, cfg.AI.Provider)
		})
	}
}

func TestLoad_OpenAIProviderMissingAPIKey(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestLoad_OpenAISpeechMissingAPIKey(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("SPEECH_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SPEECH_PROVIDER")
}

func TestLoad_InvalidSidecarURL(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("SPEECH_SIDECAR_URL", "ftp://localhost:9000")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SPEECH_SIDECAR_URL")
}

func TestLoad_DiarizerFallsBackToSidecar(t *testing.T) {
	setEnv(t, validEnv())

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", cfg.DiarizerBaseURL())

	t.Setenv("DIARIZER_URL", "http://diarizer:9100")
	cfg, err = config.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://diarizer:9100", cfg.DiarizerBaseURL())
}

func TestLoad_ScoringDefaults(t *testing.T) {
	setEnv(t, validEnv())

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPassThreshold, cfg.Scoring.PassThreshold)
	assert.Equal(t, 3, cfg.Scoring.NegativeRejectLimit)
}

func TestLoad_PassThresholdOutOfRange(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("PASS_THRESHOLD", "11")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PASS_THRESHOLD")
}

func TestLoad_BrowserDefaults(t *testing.T) {
	setEnv(t, validEnv())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 40*time.Second, cfg.Browser.AdmissionTimeout)
	assert.Equal(t, 5*time.Second, cfg.Browser.PollInterval)
	assert.Contains(t, cfg.Browser.Selectors.Microphone, "Turn off microphone")
	assert.Contains(t, cfg.Browser.Selectors.AskToJoin, "Ask to join")
}

func TestLoad_CaptureDefaults(t *testing.T) {
	setEnv(t, validEnv())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 44100, cfg.Capture.SampleRate)
	assert.Equal(t, 2, cfg.Capture.Channels)
	assert.Equal(t, time.Second, cfg.Capture.PollInterval)
}

func TestLoad_CustomAdmissionTimeout(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("ADMISSION_TIMEOUT_SECS", "90")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Browser.AdmissionTimeout)
}

func TestLoad_MalformedEnvKeepsDefault(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("MAX_SESSION_DURATION", "two hours")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.Browser.MaxSessionDuration)
}

func TestLoad_YAMLFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "interviewbot.yaml")
	content := `
server:
  port: 9191
browser:
  admission_timeout: 75s
speech:
  speaker_roles:
    SPEAKER_00: Candidate
    SPEAKER_01: Interviewer
paths:
  reports: /var/lib/interviewbot/reports
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	setEnv(t, validEnv())
	t.Setenv("INTERVIEWBOT_CONFIG", path)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 75*time.Second, cfg.Browser.AdmissionTimeout)
	assert.Equal(t, "Candidate", cfg.Speech.SpeakerRoles["SPEAKER_00"])
	assert.Equal(t, "/var/lib/interviewbot/reports", cfg.Paths.Reports)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "interviewbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9191\n"), 0o600))

	setEnv(t, validEnv())
	t.Setenv("INTERVIEWBOT_CONFIG", path)
	t.Setenv("INTERVIEWBOT_PORT", "7070")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_MissingYAMLFile(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("INTERVIEWBOT_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open config file")
}

func TestMailEnabled(t *testing.T) {
	cfg := config.Defaults()
	assert.False(t, cfg.MailEnabled())

	cfg.Mail.Username = "bot@example.com"
	cfg.Mail.Password = "app-password"
	assert.True(t, cfg.MailEnabled())
}
