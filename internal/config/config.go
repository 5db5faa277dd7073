package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port         string
	DBDSN        string
	LogFile      string
	TemplatesDir string
	RedisAddr    string
	RedisPwd     string
	Rules        Rules
}

// Rules are the lifecycle limits handed to each operation.
type Rules struct {
	PenaltyRatePerDay  decimal.Decimal
	DefaultLendingDays int
	MaxLendingDays     int
	MaxPendingRequests int
}

func DefaultRules() Rules {
	return Rules{
		PenaltyRatePerDay:  decimal.NewFromInt(10),
		DefaultLendingDays: 7,
		MaxLendingDays:     30,
		MaxPendingRequests: 5,
	}
}

func Load() Config {
	// .env is optional; real environment wins.
	_ = godotenv.Load()

	get := func(k, def string) string {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		return v
	}

	cfg := Config{
		Port:         get("PORT", "8080"),
		DBDSN:        get("DB_DSN", "campusswap.db"),
		LogFile:      get("LOG_FILE", "./campusswap.log"),
		TemplatesDir: get("TEMPLATES_DIR", "./web/templates"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RedisPwd:     os.Getenv("REDIS_PASSWORD"),
		Rules:        loadRules(get),
	}
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s REDIS_ADDR=%s RATE=%s MAX_LENDING_DAYS=%d MAX_PENDING=%d",
		cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.RedisAddr, cfg.Rules.PenaltyRatePerDay, cfg.Rules.MaxLendingDays, cfg.Rules.MaxPendingRequests)
	return cfg
}

func loadRules(get func(k, def string) string) Rules {
	r := DefaultRules()
	if rate, err := decimal.NewFromString(get("PENALTY_RATE_PER_DAY", "10")); err == nil && rate.Round(2).IsPositive() {
		r.PenaltyRatePerDay = rate.Round(2)
	} else {
		log.Printf("[config] ignoring PENALTY_RATE_PER_DAY, using %s", r.PenaltyRatePerDay)
	}
	r.DefaultLendingDays = positiveInt(get("DEFAULT_LENDING_DAYS", ""), r.DefaultLendingDays)
	r.MaxLendingDays = positiveInt(get("MAX_LENDING_DAYS", ""), r.MaxLendingDays)
	r.MaxPendingRequests = positiveInt(get("MAX_PENDING_REQUESTS", ""), r.MaxPendingRequests)
	if r.DefaultLendingDays > r.MaxLendingDays {
		r.DefaultLendingDays = r.MaxLendingDays
	}
	return r
}

func positiveInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
