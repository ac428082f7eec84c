package core

import (
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host string
		Port int
	}

	DatabaseConfig struct {
		Path string
	}

	// Config holds all runtime configuration. It is built once in the
	// composition root and passed to every component that needs it;
	// nothing reads the process environment past NewConfig.
	Config struct {
		Env      string // DEV (local; default), TEST, QA, PROD
		Debug    bool
		TestMode bool
		AppName  string

		Server          ServerConfig
		ClientOrigin    string
		FrontendBaseURL string

		UploadDir string
		Database  DatabaseConfig

		DefaultFromEmail mail.Address
		SendgridAPIKey   string
		RollbarToken     string
	}
)

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func NewConfig() (*Config, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Gnarly")
	v.SetDefault("host", "")
	v.SetDefault("port", 4000)
	v.SetDefault("clientOrigin", "http://localhost:5173")
	v.SetDefault("frontendBaseURL", "http://localhost:5173")
	v.SetDefault("uploadDir", filepath.Join("server", "uploads"))
	v.SetDefault("dbPath", filepath.Join("server", "data.sqlite"))
	v.SetDefault("defaultFromEmail", "noreply@localhost")

	env := os.Getenv("ENV")
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}

	v.AutomaticEnv()
	for key, envVar := range map[string]string{
		"debug":            "DEBUG",
		"port":             "PORT",
		"clientOrigin":     "CLIENT_ORIGIN",
		"frontendBaseURL":  "FRONTEND_BASE_URL",
		"uploadDir":        "UPLOAD_DIR",
		"dbPath":           "DB_PATH",
		"defaultFromEmail": "DEFAULT_FROM_EMAIL",
		"sendgridAPIKey":   "SENDGRID_API_KEY",
		"rollbarToken":     "ROLLBAR_TOKEN",
	} {
		if err := v.BindEnv(key, envVar); err != nil {
			return nil, errors.Wrapf(err, "binding %s", envVar)
		}
	}

	conf := &Config{
		Env:      env,
		Debug:    v.GetBool("debug") && env == "DEV",
		TestMode: env == "TEST",
		AppName:  v.GetString("appName"),
		Server: ServerConfig{
			Host: v.GetString("host"),
			Port: v.GetInt("port"),
		},
		ClientOrigin:     v.GetString("clientOrigin"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		UploadDir:        v.GetString("uploadDir"),
		Database:         DatabaseConfig{Path: v.GetString("dbPath")},
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		SendgridAPIKey:   v.GetString("sendgridAPIKey"),
		RollbarToken:     v.GetString("rollbarToken"),
	}
	return conf, nil
}
