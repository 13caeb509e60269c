package config

import (
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3100"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	// Optional shared key for the HTTP surface. Empty disables the check.
	APIKey string `envconfig:"API_KEY"`
}

type StorageEnv struct {
	Type      string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir   string `envconfig:"STORAGE_BASE_DIR" default:".voicetask"`
	TasksFile string `envconfig:"TASKS_FILE" default:"tasks.json"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"voicetask/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
}

type ModelEnv struct {
	Enabled             bool          `envconfig:"MODEL_ENABLED" default:"true"`
	WorkDir             string        `envconfig:"MODEL_WORK_DIR" default:""`
	Timeout             time.Duration `envconfig:"MODEL_TIMEOUT" default:"30s"`
	AgentMaxTurns       int           `envconfig:"AGENT_MAX_TURNS" default:"5"`
	ConfidenceThreshold float64       `envconfig:"CONFIDENCE_THRESHOLD" default:"0.7"`
}

type SpeechEnv struct {
	WhisperURL     string        `envconfig:"WHISPER_URL" default:"https://api.openai.com/v1"`
	WhisperAPIKey  string        `envconfig:"WHISPER_API_KEY"`
	WhisperModel   string        `envconfig:"WHISPER_MODEL" default:"whisper-1"`
	WhisperTimeout time.Duration `envconfig:"WHISPER_TIMEOUT" default:"60s"`
}

type VAPIDEnv struct {
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDContact    string `envconfig:"VAPID_CONTACT" default:"mailto:admin@example.com"`
}

type Env struct {
	BaseEnv
	StorageEnv
	ModelEnv
	SpeechEnv
	VAPIDEnv
}

const namespace = "VOICETASK"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *Env) Validate() error {
	switch e.StorageEnv.Type {
	case "local":
	case "s3":
		if e.S3Bucket == "" {
			return fmt.Errorf("%s_S3_BUCKET is required when %s_STORAGE_TYPE=s3", namespace, namespace)
		}
	default:
		return fmt.Errorf("unknown storage type %q", e.StorageEnv.Type)
	}
	if e.TasksFile == "" || path.Base(e.TasksFile) != e.TasksFile {
		return fmt.Errorf("%s_TASKS_FILE must be a plain file name, got %q", namespace, e.TasksFile)
	}
	if e.ConfidenceThreshold < 0 || e.ConfidenceThreshold > 1 {
		return fmt.Errorf("%s_CONFIDENCE_THRESHOLD must be within [0,1], got %v", namespace, e.ConfidenceThreshold)
	}
	return nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelInfo
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (e *BaseEnv) Addr() string {
	return e.HTTPHost + ":" + e.HTTPPort
}

func BaseEnvFromEnv(env *Env) *BaseEnv {
	return &env.BaseEnv
}

func StorageEnvFromEnv(env *Env) *StorageEnv {
	return &env.StorageEnv
}

func ModelEnvFromEnv(env *Env) *ModelEnv {
	return &env.ModelEnv
}

func SpeechEnvFromEnv(env *Env) *SpeechEnv {
	return &env.SpeechEnv
}

func VAPIDEnvFromEnv(env *Env) *VAPIDEnv {
	return &env.VAPIDEnv
}
