package config

import (
	"os"
	"strconv"
)

type Config struct {
	// Server
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Auth (single admin user)
	AdminUsername    string
	AdminPassword    string
	AdminDisplayName string
	JWTSecret        string

	// Deployment base URL, used to absolutize operator-entered relative
	// endpoint paths ("/api/payments/check-pending" -> full URL).
	BaseURL string

	// Hosting control panel cron API
	PanelAPIURL   string
	PanelAPIToken string

	// Platform ops backend, source of the recommended job templates
	OpsBackendURL string
	OpsAdminToken string

	// Outbound HTTP timeouts (seconds)
	TestTimeout      int
	ProvisionTimeout int

	// Whether operators may delete platform-seeded system jobs
	AllowSystemJobDelete bool
}

func Load() *Config {
	testTimeout, _ := strconv.Atoi(getEnv("TEST_TIMEOUT_SECONDS", "30"))
	provisionTimeout, _ := strconv.Atoi(getEnv("PROVISION_TIMEOUT_SECONDS", "15"))
	allowSystemDelete, _ := strconv.ParseBool(getEnv("ALLOW_SYSTEM_JOB_DELETE", "true"))
	return &Config{
		Port:                 getEnv("PORT", "8098"),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "5432"),
		DBUser:               getEnv("DB_USER", "postgres"),
		DBPassword:           getEnv("DB_PASSWORD", ""),
		DBName:               getEnv("DB_NAME", "botpanel_db"),
		DBSSLMode:            getEnv("DB_SSLMODE", "disable"),
		AdminUsername:        getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:        getEnv("ADMIN_PASSWORD", ""),
		AdminDisplayName:     getEnv("ADMIN_DISPLAY_NAME", "Admin"),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		BaseURL:              getEnv("BASE_URL", "http://localhost:8098"),
		PanelAPIURL:          getEnv("PANEL_API_URL", ""),
		PanelAPIToken:        getEnv("PANEL_API_TOKEN", ""),
		OpsBackendURL:        getEnv("OPS_BACKEND_URL", ""),
		OpsAdminToken:        getEnv("OPS_ADMIN_TOKEN", ""),
		TestTimeout:          testTimeout,
		ProvisionTimeout:     provisionTimeout,
		AllowSystemJobDelete: allowSystemDelete,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
