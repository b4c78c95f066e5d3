package config

import (
	"fmt"
	"os"
	"strconv"
)

func getEnv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func getEnvInt(key string, def int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return def
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot parse %s=%q, using default %v\n", key, valStr, def)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	valStr := os.Getenv(key)
	if valStr == "" {
		return def
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot parse %s=%q, using default %v\n", key, valStr, def)
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return def
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot parse %s=%q, using default %v\n", key, valStr, def)
		return def
	}
	return val
}
