package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var Conf *Config

type (
	ServerConfig struct {
		Address    string
		Host       string
		SessionTTL time.Duration
	}

	UpstreamConfig struct {
		BaseURL   string
		Timeout   time.Duration
		TreeDepth int
	}

	Config struct {
		Env      string
		Debug    bool
		TestMode bool
		AppName  string
		Build    string
		WorkDir  string

		Server   ServerConfig
		Upstream UpstreamConfig

		RollbarToken   string
		SendgridApiKey string
		fromEmail      string
		fromName       string
	}
)

func init() {
	Conf = NewConfig()
}

// NewConfig reads the configuration from the environment.
// ENV selects the env prefix (DEV by default) and the optional `config/.env.<env>` file.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Parrainage")
	v.SetDefault("build", "dev")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("sessionTTL", 30*time.Minute)
	v.SetDefault("apiBaseURL", "http://localhost:8000/api")
	v.SetDefault("apiTimeout", 15*time.Second)
	v.SetDefault("treeDepth", 5)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("defaultFromName", "Auto École Ange Raphael")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:      env,
		Debug:    v.GetBool("debug"),
		TestMode: v.GetBool("testMode"),
		AppName:  v.GetString("appName"),
		Build:    v.GetString("build"),
		WorkDir:  wd,
		Server: ServerConfig{
			Address:    v.GetString("serverAddress"),
			Host:       v.GetString("serverHost"),
			SessionTTL: v.GetDuration("sessionTTL"),
		},
		Upstream: UpstreamConfig{
			BaseURL:   strings.TrimRight(v.GetString("apiBaseURL"), "/"),
			Timeout:   v.GetDuration("apiTimeout"),
			TreeDepth: v.GetInt("treeDepth"),
		},
		RollbarToken:   v.GetString("rollbarToken"),
		SendgridApiKey: v.GetString("sendgridApiKey"),
		fromEmail:      v.GetString("defaultFromEmail"),
		fromName:       v.GetString("defaultFromName"),
	}
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.fromName, Address: c.fromEmail}
}
