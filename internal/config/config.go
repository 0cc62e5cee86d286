package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
	SubjectPrefix  string   `yaml:"subject_prefix"`
}

type TurnLogConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type TTSConfig struct {
	Mode         string  `yaml:"mode"` // mock, exec, http
	Endpoint     string  `yaml:"endpoint"`
	Command      string  `yaml:"command"`
	SampleRate   int     `yaml:"sample_rate"`
	StylesDir    string  `yaml:"styles_dir"`
	DefaultVoice string  `yaml:"default_voice"`
	DefaultSteps int     `yaml:"default_steps"`
	DefaultSpeed float64 `yaml:"default_speed"`
}

type LLMConfig struct {
	Endpoint     string `yaml:"endpoint"`
	DefaultModel string `yaml:"default_model"`
	SystemPrompt string `yaml:"system_prompt"`
	TurnTimeout  int    `yaml:"turn_timeout_ms"` // 0 disables the per-turn deadline
}

type StreamConfig struct {
	MaxTextLength    int     `yaml:"max_text_length"`
	SegmentMaxLength int     `yaml:"segment_max_length"`
	MinPhraseLength  int     `yaml:"min_phrase_length"`
	MaxPhraseLength  int     `yaml:"max_phrase_length"`
	SilenceSeconds   float64 `yaml:"silence_seconds"`
}

type Config struct {
	ServerName  string          `yaml:"server_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	TurnLog     TurnLogConfig   `yaml:"turn_log"`
	TTS         TTSConfig       `yaml:"tts"`
	LLM         LLMConfig       `yaml:"llm"`
	Stream      StreamConfig    `yaml:"stream"`
}

func Default() Config {
	return Config{
		ServerName:  "supertonic",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
			SubjectPrefix:  "supertonic.events",
		},
		TurnLog: TurnLogConfig{
			Path:          "./data/supertonic-turns.db",
			RetentionMode: "ephemeral",
			RetentionDays: 30,
			MaxSessions:   10000,
		},
		TTS: TTSConfig{
			Mode:         "http",
			Endpoint:     "http://localhost:5040",
			SampleRate:   44100,
			StylesDir:    "./voices",
			DefaultVoice: "M1",
			DefaultSteps: 4,
			DefaultSpeed: 1.0,
		},
		LLM: LLMConfig{
			Endpoint:     "http://localhost:11434",
			DefaultModel: "llama3.2:latest",
			SystemPrompt: "You are a helpful voice assistant. Keep answers short and speakable.",
			TurnTimeout:  0,
		},
		Stream: StreamConfig{
			MaxTextLength:    20000,
			SegmentMaxLength: 300,
			MinPhraseLength:  15,
			MaxPhraseLength:  80,
			SilenceSeconds:   0.3,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ServerName, "SUPERTONIC_SERVER_NAME")
	overrideString(&cfg.Environment, "SUPERTONIC_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "SUPERTONIC_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "SUPERTONIC_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "SUPERTONIC_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "SUPERTONIC_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "SUPERTONIC_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "SUPERTONIC_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Enabled, "SUPERTONIC_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "SUPERTONIC_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "SUPERTONIC_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "SUPERTONIC_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "SUPERTONIC_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "SUPERTONIC_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "SUPERTONIC_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "SUPERTONIC_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "SUPERTONIC_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Bus.SubjectPrefix, "SUPERTONIC_BUS_SUBJECT_PREFIX")
	overrideString(&cfg.TurnLog.Path, "SUPERTONIC_TURN_LOG_PATH")
	overrideString(&cfg.TurnLog.RetentionMode, "SUPERTONIC_TURN_LOG_RETENTION_MODE")
	overrideInt(&cfg.TurnLog.RetentionDays, "SUPERTONIC_TURN_LOG_RETENTION_DAYS")
	overrideInt(&cfg.TurnLog.MaxSessions, "SUPERTONIC_TURN_LOG_MAX_SESSIONS")
	overrideBool(&cfg.TurnLog.VacuumOnStart, "SUPERTONIC_TURN_LOG_VACUUM_ON_START")
	overrideString(&cfg.TTS.Mode, "SUPERTONIC_TTS_MODE")
	overrideString(&cfg.TTS.Endpoint, "SUPERTONIC_TTS_ENDPOINT")
	overrideString(&cfg.TTS.Command, "SUPERTONIC_TTS_COMMAND")
	overrideInt(&cfg.TTS.SampleRate, "SUPERTONIC_TTS_SAMPLE_RATE")
	overrideString(&cfg.TTS.StylesDir, "SUPERTONIC_TTS_STYLES_DIR")
	overrideString(&cfg.TTS.DefaultVoice, "SUPERTONIC_TTS_DEFAULT_VOICE")
	overrideInt(&cfg.TTS.DefaultSteps, "SUPERTONIC_TTS_DEFAULT_STEPS")
	overrideFloat(&cfg.TTS.DefaultSpeed, "SUPERTONIC_TTS_DEFAULT_SPEED")
	overrideString(&cfg.LLM.Endpoint, "SUPERTONIC_LLM_ENDPOINT")
	overrideString(&cfg.LLM.DefaultModel, "SUPERTONIC_LLM_DEFAULT_MODEL")
	overrideString(&cfg.LLM.SystemPrompt, "SUPERTONIC_LLM_SYSTEM_PROMPT")
	overrideInt(&cfg.LLM.TurnTimeout, "SUPERTONIC_LLM_TURN_TIMEOUT_MS")
	overrideInt(&cfg.Stream.MaxTextLength, "SUPERTONIC_STREAM_MAX_TEXT_LENGTH")
	overrideInt(&cfg.Stream.SegmentMaxLength, "SUPERTONIC_STREAM_SEGMENT_MAX_LENGTH")
	overrideInt(&cfg.Stream.MinPhraseLength, "SUPERTONIC_STREAM_MIN_PHRASE_LENGTH")
	overrideInt(&cfg.Stream.MaxPhraseLength, "SUPERTONIC_STREAM_MAX_PHRASE_LENGTH")
	overrideFloat(&cfg.Stream.SilenceSeconds, "SUPERTONIC_STREAM_SILENCE_SECONDS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServerName == "" {
		return errors.New("server_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
		if cfg.Bus.SubjectPrefix == "" {
			return errors.New("bus.subject_prefix must not be empty")
		}
	}
	switch cfg.TurnLog.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("turn_log.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.TurnLog.RetentionMode != "ephemeral" && cfg.TurnLog.Path == "" {
		return errors.New("turn_log.path must not be empty")
	}
	if cfg.TurnLog.RetentionDays < 0 {
		return errors.New("turn_log.retention_days must be >= 0")
	}
	switch cfg.TTS.Mode {
	case "mock", "exec", "http":
	default:
		return errors.New("tts.mode must be one of mock|exec|http")
	}
	if cfg.TTS.Mode == "http" && cfg.TTS.Endpoint == "" {
		return errors.New("tts.endpoint must be set when mode=http")
	}
	if cfg.TTS.Mode == "exec" && cfg.TTS.Command == "" {
		return errors.New("tts.command must be set when mode=exec")
	}
	if cfg.TTS.SampleRate <= 0 {
		return errors.New("tts.sample_rate must be positive")
	}
	if cfg.TTS.DefaultSteps <= 0 {
		return errors.New("tts.default_steps must be positive")
	}
	if cfg.TTS.DefaultSpeed <= 0 {
		return errors.New("tts.default_speed must be positive")
	}
	if cfg.TTS.StylesDir == "" {
		return errors.New("tts.styles_dir must not be empty")
	}
	if cfg.LLM.Endpoint == "" {
		return errors.New("llm.endpoint must not be empty")
	}
	if cfg.LLM.TurnTimeout < 0 {
		return errors.New("llm.turn_timeout_ms must be >= 0")
	}
	if cfg.Stream.MaxTextLength <= 0 {
		return errors.New("stream.max_text_length must be positive")
	}
	if cfg.Stream.SegmentMaxLength < 0 {
		return errors.New("stream.segment_max_length must be >= 0")
	}
	if cfg.Stream.MinPhraseLength <= 0 {
		return errors.New("stream.min_phrase_length must be positive")
	}
	if cfg.Stream.MaxPhraseLength <= cfg.Stream.MinPhraseLength {
		return errors.New("stream.max_phrase_length must be greater than min_phrase_length")
	}
	if cfg.Stream.SilenceSeconds < 0 {
		return errors.New("stream.silence_seconds must be >= 0")
	}
	return nil
}
