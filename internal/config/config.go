// Package config carrega a configuração do .env e das variáveis de ambiente.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	EffectsQueue  = "queue"
	EffectsInline = "inline"
)

type Config struct {
	HTTPPort  string
	LogFormat string

	DatabaseURL string

	RedisAddr      string
	IdempotencyTTL time.Duration

	RabbitURL string

	MongoURI      string
	MongoDatabase string

	GatewayBaseURL       string
	GatewayAPIKey        string
	GatewayVerifyTimeout time.Duration
	GatewayRPS           float64

	EffectsMode          string
	RevenueAccrualDelay  time.Duration
	SellerCommissionRate decimal.Decimal
}

// Load lê o .env (se existir) e depois o ambiente. O ambiente vence.
func Load() (*Config, error) {
	// O erro é ignorado de propósito, pois em Produção (Docker/K8s)
	// não usamos arquivo .env, usamos variáveis reais do sistema.
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Arquivo .env não encontrado, usando variáveis de ambiente do sistema")
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("DB_USER", "ledger")
	v.SetDefault("DB_PASSWORD", "secret123")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "settlement")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("IDEMPOTENCY_TTL", "24h")

	v.SetDefault("RABBITMQ_USER", "guest")
	v.SetDefault("RABBITMQ_PASS", "guest")
	v.SetDefault("RABBITMQ_HOST", "localhost")

	v.SetDefault("MONGO_USER", "")
	v.SetDefault("MONGO_PASS", "")
	v.SetDefault("MONGO_HOST", "localhost")
	v.SetDefault("MONGO_DB", "settlement_audit")

	v.SetDefault("GATEWAY_BASE_URL", "http://localhost:9090")
	v.SetDefault("GATEWAY_API_KEY", "")
	v.SetDefault("GATEWAY_VERIFY_TIMEOUT", "15s")
	v.SetDefault("GATEWAY_RPS", 20)

	v.SetDefault("EFFECTS_MODE", EffectsQueue)
	v.SetDefault("REVENUE_ACCRUAL_DELAY", "0s")
	v.SetDefault("SELLER_COMMISSION_RATE", "0.10")
}

func fromViper(v *viper.Viper) (*Config, error) {
	rate, err := decimal.NewFromString(v.GetString("SELLER_COMMISSION_RATE"))
	if err != nil {
		return nil, fmt.Errorf("invalid SELLER_COMMISSION_RATE: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("SELLER_COMMISSION_RATE must be between 0 and 1, got %s", rate)
	}

	mode := strings.ToLower(v.GetString("EFFECTS_MODE"))
	if mode != EffectsQueue && mode != EffectsInline {
		return nil, fmt.Errorf("EFFECTS_MODE must be %q or %q, got %q", EffectsQueue, EffectsInline, mode)
	}

	mongoAuth := ""
	if user := v.GetString("MONGO_USER"); user != "" {
		mongoAuth = user + ":" + v.GetString("MONGO_PASS") + "@"
	}

	return &Config{
		HTTPPort:  v.GetString("HTTP_PORT"),
		LogFormat: v.GetString("LOG_FORMAT"),

		DatabaseURL: fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			v.GetString("DB_USER"), v.GetString("DB_PASSWORD"), v.GetString("DB_HOST"), v.GetString("DB_PORT"), v.GetString("DB_NAME")),

		RedisAddr:      v.GetString("REDIS_HOST") + ":" + v.GetString("REDIS_PORT"),
		IdempotencyTTL: v.GetDuration("IDEMPOTENCY_TTL"),

		RabbitURL: fmt.Sprintf("amqp://%s:%s@%s:5672/",
			v.GetString("RABBITMQ_USER"), v.GetString("RABBITMQ_PASS"), v.GetString("RABBITMQ_HOST")),

		MongoURI:      "mongodb://" + mongoAuth + v.GetString("MONGO_HOST") + ":27017",
		MongoDatabase: v.GetString("MONGO_DB"),

		GatewayBaseURL:       v.GetString("GATEWAY_BASE_URL"),
		GatewayAPIKey:        v.GetString("GATEWAY_API_KEY"),
		GatewayVerifyTimeout: v.GetDuration("GATEWAY_VERIFY_TIMEOUT"),
		GatewayRPS:           v.GetFloat64("GATEWAY_RPS"),

		EffectsMode:          mode,
		RevenueAccrualDelay:  v.GetDuration("REVENUE_ACCRUAL_DELAY"),
		SellerCommissionRate: rate,
	}, nil
}
