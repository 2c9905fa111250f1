package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName          string
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		RollbarToken     string
		SendgridApiKey   string
		DefaultFromEmail string
		FrontendBaseURL  string

		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Client   ClientConfig
		Assist   AssistConfig
	}

	ServerConfig struct {
		Host               string
		Port               string
		DebugHost          string
		ReadTimeout        time.Duration
		WriteTimeout       time.Duration
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		DisableReqLogs     bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		InMemory      bool
	}

	// ClientConfig configures the data-sync client used by front ends.
	ClientConfig struct {
		BaseURL        string
		Timeout        time.Duration
		DataDir        string
		KeyringService string
	}

	// AssistConfig configures the generative content endpoint.
	AssistConfig struct {
		Endpoint string
		APIKey   string
		Model    string
		Timeout  time.Duration
	}
)

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewConfig loads the configuration from the environment.
// ENV selects the variable prefix (e.g. DEV_DEBUG) and the optional `config/.env.<env>` file.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	setDefaults(v, env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

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

	return &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),

		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),

		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			Port:               v.GetString("server.port"),
			DebugHost:          v.GetString("server.debugHost"),
			ReadTimeout:        v.GetDuration("server.readTimeout"),
			WriteTimeout:       v.GetDuration("server.writeTimeout"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
			DisableReqLogs:     v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			InMemory:      v.GetBool("database.inMemory"),
		},
		Client: ClientConfig{
			BaseURL:        v.GetString("client.baseURL"),
			Timeout:        v.GetDuration("client.timeout"),
			DataDir:        v.GetString("client.dataDir"),
			KeyringService: v.GetString("client.keyringService"),
		},
		Assist: AssistConfig{
			Endpoint: v.GetString("assist.endpoint"),
			APIKey:   v.GetString("assist.apiKey"),
			Model:    v.GetString("assist.model"),
			Timeout:  v.GetDuration("assist.timeout"),
		},
	}
}

func setDefaults(v *viper.Viper, env string) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "Tutora")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("secretKey", "kq3-x8w)fnb$+21=dz&uoyh2(t!p)#*c9(#yg4h^$tut0ra")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "tutora")
	v.SetDefault("database.user", "tutora")
	v.SetDefault("database.password", "tutora")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.inMemory", false)

	v.SetDefault("client.baseURL", "http://localhost:8000")
	v.SetDefault("client.timeout", 30*time.Second)
	v.SetDefault("client.dataDir", ".tutora")
	v.SetDefault("client.keyringService", "Tutora")

	v.SetDefault("assist.endpoint", "")
	v.SetDefault("assist.apiKey", "")
	v.SetDefault("assist.model", "")
	v.SetDefault("assist.timeout", 20*time.Second)
}
