package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ServerAddr      string
	Env             string
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	DBHost            string
	DBPort            int
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBCreateSchema    bool
	DBSeedExampleData bool
}

// loadConfig reads the optional .env file into the environment and resolves
// every setting from it, falling back to local development defaults.
func loadConfig() (Config, bool) {
	envFileLoaded := godotenv.Load() == nil

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_ADDR", ":5000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("CORS_ALLOW_ORIGINS", "*")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "admin")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "student_management")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DB_CREATE_SCHEMA", true)
	v.SetDefault("DB_SEED_EXAMPLE_DATA", false)

	return Config{
		ServerAddr:      v.GetString("SERVER_ADDR"),
		Env:             v.GetString("APP_ENV"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		CORSOrigins:     splitList(v.GetString("CORS_ALLOW_ORIGINS")),

		DBHost:            v.GetString("DB_HOST"),
		DBPort:            v.GetInt("DB_PORT"),
		DBUser:            v.GetString("DB_USER"),
		DBPassword:        v.GetString("DB_PASSWORD"),
		DBName:            v.GetString("DB_NAME"),
		DBSSLMode:         v.GetString("DB_SSLMODE"),
		DBMaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		DBConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		DBCreateSchema:    v.GetBool("DB_CREATE_SCHEMA"),
		DBSeedExampleData: v.GetBool("DB_SEED_EXAMPLE_DATA"),
	}, envFileLoaded
}

func (c Config) isProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// DSN renders the lib/pq key=value connection string.
func (c Config) DSN() string {
	parts := []string{
		fmt.Sprintf("host=%s", c.DBHost),
		fmt.Sprintf("port=%d", c.DBPort),
		fmt.Sprintf("user=%s", c.DBUser),
		fmt.Sprintf("dbname=%s", c.DBName),
		fmt.Sprintf("sslmode=%s", c.DBSSLMode),
	}
	if c.DBPassword != "" {
		parts = append(parts, fmt.Sprintf("password=%s", quoteDSNValue(c.DBPassword)))
	}
	return strings.Join(parts, " ")
}

func quoteDSNValue(s string) string {
	if !strings.ContainsAny(s, ` '\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
