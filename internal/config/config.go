package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string `yaml:"env" env:"ENV" env-default:"local"`
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-required:"true"`
	HTTPServer  `yaml:"http_server"`
	Redis       Redis     `yaml:"redis"`
	Admin       Admin     `yaml:"admin"`
	Session     Session   `yaml:"session"`
	Mail        Mail      `yaml:"mail"`
	Kafka       Kafka     `yaml:"kafka"`
	RateLimit   RateLimit `yaml:"rate_limit"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout         time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"15s"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Admin identifies the single administrator allowed to request access links.
type Admin struct {
	Email  string        `yaml:"email" env:"ADMIN_EMAIL" env-required:"true"`
	OTPTTL time.Duration `yaml:"otp_ttl" env:"OTP_TTL" env-default:"15m"`
}

type Session struct {
	TTL time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"12h"`
}

type Mail struct {
	// Driver is one of log, smtp or kafka.
	Driver      string        `yaml:"driver" env:"MAIL_DRIVER" env-default:"log"`
	From        string        `yaml:"from" env:"MAIL_FROM" env-default:"noreply@trainer.local"`
	SMTPHost    string        `yaml:"smtp_host" env:"SMTP_HOST" env-default:"localhost"`
	SMTPPort    string        `yaml:"smtp_port" env:"SMTP_PORT" env-default:"1025"`
	AppURL      string        `yaml:"app_url" env:"APP_URL" env-default:"http://localhost:3000"`
	SendTimeout time.Duration `yaml:"send_timeout" env-default:"10s"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env:"KAFKA_MAIL_TOPIC" env-default:"mail.outbound"`
}

type RateLimit struct {
	OTPRequests int           `yaml:"otp_requests" env-default:"5"`
	OTPWindow   time.Duration `yaml:"otp_window" env-default:"15m"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		configPath = "./config/local.yaml"
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	return cfg
}

// Load reads the YAML file at path and applies environment overrides.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: config file does not exist: %s", op, path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	c.Admin.Email = strings.ToLower(strings.TrimSpace(c.Admin.Email))
	if !strings.Contains(c.Admin.Email, "@") {
		return fmt.Errorf("admin.email %q is not an email address", c.Admin.Email)
	}

	switch c.Mail.Driver {
	case "log", "smtp":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("mail.driver kafka requires kafka.brokers")
		}
	default:
		return fmt.Errorf("unknown mail.driver %q", c.Mail.Driver)
	}

	if c.Admin.OTPTTL <= 0 {
		return fmt.Errorf("admin.otp_ttl must be positive")
	}

	return nil
}

// fetchConfigPath takes the path from the -config flag, then CONFIG_PATH.
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
