package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port string

	DBDriver   string // postgres or sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string // sqlite file
	SeedData   bool

	LoanPeriodDays int
	FinePeriodDays int
	FineRate       decimal.Decimal

	AMQPURL     string // empty disables notifications
	NotifyQueue string
}

// Load reads an optional .env file and then the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to read .env: %v", err)
	}

	return Config{
		Port:           getEnv("APP_PORT", "8060"),
		DBDriver:       getEnv("DB_DRIVER", "postgres"),
		DBHost:         getEnv("DB_HOST", "postgres"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "program"),
		DBPassword:     getEnv("DB_PASSWORD", "test"),
		DBName:         getEnv("DB_NAME", "library"),
		DBPath:         getEnv("DB_PATH", "library.db"),
		SeedData:       getBool("SEED_DATA", false),
		LoanPeriodDays: getInt("LOAN_PERIOD_DAYS", 14),
		FinePeriodDays: getInt("FINE_PERIOD_DAYS", 30),
		FineRate:       getDecimal("FINE_RATE", decimal.NewFromInt(1)),
		AMQPURL:        os.Getenv("AMQP_URL"),
		NotifyQueue:    getEnv("NOTIFY_QUEUE", "library.events"),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("Invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using %t", key, value, defaultValue)
		return defaultValue
	}
	return b
}

func getDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := decimal.NewFromString(value)
	if err != nil || d.IsNegative() {
		log.Printf("Invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
