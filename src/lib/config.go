package lib

import (
	"os"
)

type Config struct {
	Port          string
	MongoURI      string
	MongoDatabase string
	JWTSecret     string
	AllowOrigins  string
}

var Cfg *Config

// LoadConfig reads the environment once at startup; every value has a
// development default.
func LoadConfig() {
	Cfg = &Config{
		Port:          getEnv("PORT", "3000"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DB", "knowledgenest"),
		JWTSecret:     getEnv("JWT_SECRET", "knowledgenest-dev-secret"),
		AllowOrigins:  getEnv("ALLOW_ORIGINS", "http://localhost:5173"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
