package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env              string // DEV (local; default), TEST, QA, PROD
	Build            string
	AppName          string
	Debug            bool
	TestMode         bool
	SecretKey        string
	DefaultFromEmail mail.Address
	RollbarToken     string
	SendgridAPIKey   string
	FrontendBaseURL  string

	PasswordResetTimeoutDelta time.Duration

	Server struct {
		Host               string
		Address            string
		DebugAddress       string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		DisableReqLogs     bool
	}

	Database struct {
		Engine        string // postgres | memory
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		MaxOpenConns  int
	}

	Redis struct {
		URL       string
		Prefix    string
		StatsTTL  time.Duration
		LookupTTL time.Duration
	}

	Admission struct {
		RejectPastDates bool
	}
}

func (c *Config) DatabaseAddress() string {
	return net.JoinHostPort(c.Database.Host, strconv.Itoa(c.Database.Port))
}

// NewConfig loads the configuration from the environment (and an optional config/.env.<env> file).
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Admissions")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("defaultFromEmail", "Admissions <noreply@localhost>")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("frontendBaseUrl", "http://localhost:3000")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugAddress", ":4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("serverJwtExpirationDelta", 24*time.Hour)
	v.SetDefault("serverDisableReqLogs", false)

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", 5432)
	v.SetDefault("databaseName", "admissions")
	v.SetDefault("databaseUser", "admissions")
	v.SetDefault("databasePassword", "")
	v.SetDefault("databaseAdminUser", "")
	v.SetDefault("databaseAdminPassword", "")
	v.SetDefault("databaseDisableTls", true)
	v.SetDefault("databaseMaxOpenConns", 20)

	v.SetDefault("redisUrl", "")
	v.SetDefault("redisPrefix", "admissions:")
	v.SetDefault("redisStatsTtl", 30*time.Second)
	v.SetDefault("redisLookupTtl", time.Hour)

	v.SetDefault("admissionRejectPastDates", false)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:             env,
		Build:           v.GetString("build"),
		AppName:         v.GetString("appName"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		SecretKey:       v.GetString("secretKey"),
		RollbarToken:    v.GetString("rollbarToken"),
		SendgridAPIKey:  v.GetString("sendgridApiKey"),
		FrontendBaseURL: v.GetString("frontendBaseUrl"),

		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
	}

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatal(fmt.Errorf("config.defaultFromEmail: %w", err))
	}
	conf.DefaultFromEmail = *from

	conf.Server.Host = v.GetString("serverHost")
	conf.Server.Address = v.GetString("serverAddress")
	conf.Server.DebugAddress = v.GetString("serverDebugAddress")
	conf.Server.ShutdownTimeout = v.GetDuration("serverShutdownTimeout")
	conf.Server.JWTExpirationDelta = v.GetDuration("serverJwtExpirationDelta")
	conf.Server.DisableReqLogs = v.GetBool("serverDisableReqLogs")

	conf.Database.Engine = v.GetString("databaseEngine")
	conf.Database.Host = v.GetString("databaseHost")
	conf.Database.Port = v.GetInt("databasePort")
	conf.Database.Name = v.GetString("databaseName")
	conf.Database.User = v.GetString("databaseUser")
	conf.Database.Password = v.GetString("databasePassword")
	conf.Database.AdminUser = v.GetString("databaseAdminUser")
	conf.Database.AdminPassword = v.GetString("databaseAdminPassword")
	conf.Database.DisableTLS = v.GetBool("databaseDisableTls")
	conf.Database.MaxOpenConns = v.GetInt("databaseMaxOpenConns")

	conf.Redis.URL = v.GetString("redisUrl")
	conf.Redis.Prefix = v.GetString("redisPrefix")
	conf.Redis.StatsTTL = v.GetDuration("redisStatsTtl")
	conf.Redis.LookupTTL = v.GetDuration("redisLookupTtl")

	conf.Admission.RejectPastDates = v.GetBool("admissionRejectPastDates")

	return conf
}

// NewTestConfig returns a Config suitable for tests: no debug output, memory storage, no redis.
func NewTestConfig() *Config {
	conf := &Config{
		Env:              "TEST",
		Build:            "test",
		AppName:          "Admissions",
		TestMode:         true,
		SecretKey:        "test-secret-key",
		DefaultFromEmail: mail.Address{Name: "Admissions", Address: "noreply@localhost"},
	}
	conf.Server.JWTExpirationDelta = time.Hour
	conf.PasswordResetTimeoutDelta = 3 * 24 * time.Hour
	conf.Server.DisableReqLogs = true
	conf.Database.Engine = "memory"
	conf.Redis.StatsTTL = 30 * time.Second
	conf.Redis.LookupTTL = time.Hour
	return conf
}
