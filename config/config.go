package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/AnthoniusHendriyanto/identity-core/pkg/constant"
	"github.com/joho/godotenv"
)

type Config struct {
	Env                string
	Port               string
	DBURL              string
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessExpiryMin    int
	RefreshExpiryMin   int
	ResetExpiryMin     int
	// RoleMatchPolicy decides whether RequireRoles needs any or all of the
	// requested role names. One of constant.RoleMatchAny / RoleMatchAll.
	RoleMatchPolicy string
	// RevokeOnReuse revokes every active session of a user when a revoked
	// refresh token is presented again.
	RevokeOnReuse   bool
	MaxActiveTokens int

	AdminSetupKey string
	AdminEmail    string
	AdminUsername string
	AdminPassword string
}

func Load() *Config {
	env := getEnv("ENV", "development")

	// Optional per-environment overrides, e.g. config/.env.development.
	// Process env always wins over file values.
	if err := godotenv.Load(filepath.Join("config", fmt.Sprintf(".env.%s", env))); err == nil {
		log.Printf("loaded config file for env %q", env)
	}

	return &Config{
		Env:                env,
		Port:               getEnv("PORT", "8080"),
		DBURL:              mustGetEnv("DB_URL"),
		AccessTokenSecret:  mustGetEnv("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: mustGetEnv("REFRESH_TOKEN_SECRET"),
		AccessExpiryMin:    getEnvAsInt("ACCESS_TOKEN_EXPIRY", 15),
		RefreshExpiryMin:   getEnvAsInt("REFRESH_TOKEN_EXPIRY", 10080),
		ResetExpiryMin:     getEnvAsInt("RESET_TOKEN_EXPIRY", 45),
		RoleMatchPolicy:    getRoleMatchPolicy(),
		RevokeOnReuse:      getEnvAsBool("REVOKE_ON_REUSE", true),
		MaxActiveTokens:    getEnvAsInt("MAX_ACTIVE_TOKENS", 5),
		AdminSetupKey:      getEnv("ADMIN_SETUP_KEY", ""),
		AdminEmail:         getEnv("ADMIN_EMAIL", "admin@example.com"),
		AdminUsername:      getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
	}
}

func getRoleMatchPolicy() string {
	policy := getEnv("ROLE_MATCH_POLICY", constant.RoleMatchAny)
	if policy != constant.RoleMatchAny && policy != constant.RoleMatchAll {
		log.Printf("Invalid ROLE_MATCH_POLICY %q, using %q", policy, constant.RoleMatchAny)
		return constant.RoleMatchAny
	}
	return policy
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func mustGetEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Fatalf("Missing required environment variable: %s", key)
	return ""
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %t", key, defaultVal)
		return defaultVal
	}
	return val
}
