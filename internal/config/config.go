package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type FilesConfig struct {
	RootDir  string `yaml:"root_dir"`
	FontPath string `yaml:"font_path"`
}

type MobizonConfig struct {
	APIKey   string `yaml:"api_key"`
	SenderID string `yaml:"sender_id"`
}

type SMSCConfig struct {
	Login    string `yaml:"login"`
	Password string `yaml:"password"`
	SenderID string `yaml:"sender_id"`
}

type SMSConfig struct {
	// provider: mobizon | smsc | dry-run
	Provider             string        `yaml:"provider"`
	Mobizon              MobizonConfig `yaml:"mobizon"`
	SMSC                 SMSCConfig    `yaml:"smsc"`
	Attempts             int           `yaml:"attempts"`
	BackoffSeconds       int           `yaml:"backoff_seconds"`
	PerTryTimeoutSeconds int           `yaml:"per_try_timeout_seconds"`
}

type VerificationConfig struct {
	CodeTTLMinutes        int `yaml:"code_ttl_minutes"`
	MaxAttempts           int `yaml:"max_attempts"`
	ResendCooldownSeconds int `yaml:"resend_cooldown_seconds"`
	CodeLength            int `yaml:"code_length"`
}

type AuthConfig struct {
	JWTSecret       string `yaml:"jwt_secret"`
	SessionTTLHours int    `yaml:"session_ttl_hours"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
	OrgEmail     string `yaml:"org_email"`
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	Files        FilesConfig        `yaml:"files"`
	SMS          SMSConfig          `yaml:"sms"`
	Verification VerificationConfig `yaml:"verification"`
	Auth         AuthConfig         `yaml:"auth"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Email        EmailConfig        `yaml:"email"`
}

func LoadConfig() *Config {
	f, err := os.Open("config/config.yaml")
	if err != nil {
		panic("Failed to open config.yaml: " + err.Error())
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		panic("Failed to parse config.yaml: " + err.Error())
	}

	if cfg.Files.RootDir == "" {
		cfg.Files.RootDir = "./files"
	}
	if cfg.Files.FontPath == "" {
		cfg.Files.FontPath = "assets/fonts/DejaVuSans.ttf"
	}
	if cfg.SMS.Provider == "" {
		cfg.SMS.Provider = "dry-run"
	}
	return &cfg
}
