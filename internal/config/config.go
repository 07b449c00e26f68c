package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string
	Port              string
	DatabasePath      string
	SessionSecret     string
	GinMode           string
	LogLevel          string
	SuperRootUserName string
	SuperRootPassword string

	// 运费表：同城与外地两档固定运费。
	ShippingRateInside  int64
	ShippingRateOutside int64

	DraftDebounce   time.Duration
	FlowIdleTimeout time.Duration

	CourierAPIURL  string
	CourierAPIKey  string
	CourierTimeout time.Duration

	RiskHighCancelled   int
	RiskHighRatio       float64
	RiskMediumCancelled int
	RiskMediumRatio     float64
	RiskLowRatio        float64

	SubmitRatePerMinute int
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
// 若工作目录存在 .env 文件，会先加载其中的变量（不会覆盖已存在的环境变量）。
func Load() AppConfig {
	_ = godotenv.Load()

	port := stringEnv("PORT", "8080")

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	return AppConfig{
		ListenAddr:        listenAddr,
		Port:              port,
		DatabasePath:      stringEnv("DATABASE_PATH", "pagecart.db"),
		SessionSecret:     stringEnv("SESSION_SECRET", "pagecart-dev-secret"),
		GinMode:           stringEnv("GIN_MODE", "release"),
		LogLevel:          stringEnv("LOG_LEVEL", "info"),
		SuperRootUserName: strings.TrimSpace(os.Getenv("SUPER_ROOT_USER_NAME")),
		SuperRootPassword: strings.TrimSpace(os.Getenv("SUPER_ROOT_PASSWORD")),

		ShippingRateInside:  int64Env("SHIPPING_RATE_INSIDE", 60),
		ShippingRateOutside: int64Env("SHIPPING_RATE_OUTSIDE", 120),

		DraftDebounce:   durationEnv("DRAFT_DEBOUNCE", time.Second),
		FlowIdleTimeout: durationEnv("FLOW_IDLE_TIMEOUT", 30*time.Minute),

		CourierAPIURL:  stringEnv("COURIER_API_URL", "https://courier-history.example.com/api"),
		CourierAPIKey:  strings.TrimSpace(os.Getenv("COURIER_API_KEY")),
		CourierTimeout: durationEnv("COURIER_TIMEOUT", 10*time.Second),

		RiskHighCancelled:   intEnv("RISK_HIGH_CANCELLED", 5),
		RiskHighRatio:       floatEnv("RISK_HIGH_RATIO", 50),
		RiskMediumCancelled: intEnv("RISK_MEDIUM_CANCELLED", 2),
		RiskMediumRatio:     floatEnv("RISK_MEDIUM_RATIO", 70),
		RiskLowRatio:        floatEnv("RISK_LOW_RATIO", 80),

		SubmitRatePerMinute: intEnv("SUBMIT_RATE_PER_MINUTE", 10),
	}
}

func stringEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func intEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func int64Env(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func floatEnv(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
