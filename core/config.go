package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf is the application configuration. It is loaded once by NewConfig at
// process start and never mutated afterwards.
var Conf *Config

type (
	ServerConfig struct {
		Host               string
		Port               int
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Host       string
		Port       int
		User       string
		Password   string
		Name       string
		DisableTLS bool
	}

	Config struct {
		AppName  string
		Env      string // DEV (default), TEST, QA, PROD
		Debug    bool
		TestMode bool
		Build    string
		WorkDir  string

		SecretKey            string
		PasswordResetTimeout time.Duration

		FrontendBaseURL string
		PublicBaseURL   string
		UploadDir       string

		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Shule")
	v.SetDefault("secretKey", "x#2v8=f)wq&$70h_1(kz^!mdju4y+r5%c9b*e6ga3s@nl-op0t")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseUrl", "http://localhost:3000")
	v.SetDefault("publicBaseUrl", "http://localhost:8000")
	v.SetDefault("uploadDir", "upload")
	v.SetDefault("serverHost", "")
	v.SetDefault("serverPort", 8000)
	v.SetDefault("jwtExpirationDelta", time.Hour)
	v.SetDefault("passwordResetTimeoutDelta", 10*time.Minute)
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", 5432)
	v.SetDefault("dbUser", "shule")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbName", "shule")
	v.SetDefault("dbDisableTLS", true)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	// load config/.env.<env> if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		AppName:              v.GetString("appName"),
		Env:                  env,
		Debug:                v.GetBool("debug"),
		TestMode:             env == "TEST",
		Build:                v.GetString("build"),
		WorkDir:              wd,
		SecretKey:            v.GetString("secretKey"),
		PasswordResetTimeout: v.GetDuration("passwordResetTimeoutDelta"),
		FrontendBaseURL:      v.GetString("frontendBaseUrl"),
		PublicBaseURL:        v.GetString("publicBaseUrl"),
		UploadDir:            v.GetString("uploadDir"),
		DefaultFromEmail:     mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		SendgridApiKey:       v.GetString("sendgridApiKey"),
		RollbarToken:         v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:               v.GetString("serverHost"),
			Port:               v.GetInt("serverPort"),
			JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Host:       v.GetString("dbHost"),
			Port:       v.GetInt("dbPort"),
			User:       v.GetString("dbUser"),
			Password:   v.GetString("dbPassword"),
			Name:       v.GetString("dbName"),
			DisableTLS: v.GetBool("dbDisableTLS"),
		},
	}
	Conf = conf
	return conf
}

func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
