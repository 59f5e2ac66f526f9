package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

type Config struct {
	Port         string        `koanf:"port"`
	DBDSN        string        `koanf:"db_dsn"`
	LogFile      string        `koanf:"log_file"`
	JWTSecret    string        `koanf:"jwt_secret"`
	SessionTTL   time.Duration `koanf:"session_ttl"`
	BcryptCost   int           `koanf:"bcrypt_cost"`
	TemplatesDir string        `koanf:"templates_dir"`
	StaticDir    string        `koanf:"static_dir"`
	CookieSecure bool          `koanf:"cookie_secure"`

	// AuthAutoConfirm signs a new account in immediately after registration.
	AuthAutoConfirm bool `koanf:"auth_auto_confirm"`
}

var keys = map[string]string{
	"PORT":          "port",
	"DB_DSN":        "db_dsn",
	"LOG_FILE":      "log_file",
	"JWT_SECRET":    "jwt_secret",
	"SESSION_TTL":   "session_ttl",
	"BCRYPT_COST":   "bcrypt_cost",
	"TEMPLATES_DIR": "templates_dir",
	"STATIC_DIR":    "static_dir",
	"COOKIE_SECURE": "cookie_secure",

	"AUTH_AUTO_CONFIRM": "auth_auto_confirm",
}

func Defaults() Config {
	return Config{
		Port:         "8080",
		DBDSN:        "shopeasy.db", // sqlite file in project root
		LogFile:      "./shopeasy.log",
		JWTSecret:    "dev-secret-change-me",
		SessionTTL:   7 * 24 * time.Hour,
		BcryptCost:   12,
		TemplatesDir: "./web/templates",
		StaticDir:    "./web/static",
	}
}

// Load reads defaults, then CONFIG_FILE (config.yaml) if present, then .env and the environment.
func Load() Config {
	cfg, err := LoadFrom(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Printf("[warn] config: %v; using defaults", err)
		cfg = Defaults()
	}
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s SESSION_TTL=%s TEMPLATES_DIR=%s JWT_SECRET=%s",
		cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.SessionTTL, cfg.TemplatesDir, mask(cfg.JWTSecret))
	return cfg
}

func LoadFrom(path string) (Config, error) {
	cfg := Defaults()
	k := koanf.New(".")

	if path == "" {
		path = "config.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, errors.Wrapf(err, "read %s", path)
		}
	}

	// .env is optional; real environment wins over it.
	_ = godotenv.Load()

	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			key, ok := keys[strings.ToUpper(k)]
			if !ok {
				return "", nil
			}
			return key, v
		},
	}), nil); err != nil {
		return cfg, errors.Wrap(err, "load env")
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, errors.Wrap(err, "unmarshal config")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		cfg.BcryptCost = Defaults().BcryptCost
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = Defaults().SessionTTL
	}
	return cfg, nil
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****"
}
