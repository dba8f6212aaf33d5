/*
Package config loads runtime settings from the environment.

PURPOSE:
  All tunables in one place: server port, database path, lock wait,
  cache TTLs, inspection-alert policy, and notification endpoints.
  A local .env file is honored when present (godotenv); real
  environment variables win over it. Every field has a working default
  so the server boots with zero configuration.

ENVIRONMENT:
  TANKOPS_PORT             HTTP port (default 8080)
  TANKOPS_DB               SQLite path (default tankops.db, ":memory:" ok)
  TANKOPS_LOCK_WAIT_MS     mutation lock wait in ms (default 10000)
  TANKOPS_STATUS_TTL_SEC   tank-status-map cache TTL (default 21600)
  TANKOPS_MASTER_TTL_SEC   master-data cache TTL (default 43200)
  TANKOPS_ALERT_MONTHS     inspection alert window in months (default 6)
  TANKOPS_VALIDITY_YEARS   inspection validity in years (default 3)
  TANKOPS_NOTIFY_EMAILS    comma-separated alert recipients
  TANKOPS_SMTP_ADDR        SMTP relay host:port for alert mail
  TANKOPS_SMTP_FROM        alert mail sender (default tankops@localhost)
  TANKOPS_LINE_TOKEN       LINE Messaging API channel token
  TANKOPS_LINE_GROUP       LINE push target (group/user ID)
  TANKOPS_LOGIN_MODE       GOOGLE (email first) or PASSCODE (default GOOGLE)
*/
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int
	DBPath   string
	LockWait time.Duration

	StatusCacheTTL time.Duration
	MasterCacheTTL time.Duration

	AlertMonths   int
	ValidityYears int
	NotifyEmails  []string
	SMTPAddr      string
	SMTPFrom      string
	LineToken     string
	LineGroupID   string

	LoginMode string
}

// Load reads the optional .env file and the environment.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Println("[Config] Loaded settings from .env")
	}

	return Config{
		Port:           envInt("TANKOPS_PORT", 8080),
		DBPath:         envStr("TANKOPS_DB", "tankops.db"),
		LockWait:       time.Duration(envInt("TANKOPS_LOCK_WAIT_MS", 10000)) * time.Millisecond,
		StatusCacheTTL: time.Duration(envInt("TANKOPS_STATUS_TTL_SEC", 21600)) * time.Second,
		MasterCacheTTL: time.Duration(envInt("TANKOPS_MASTER_TTL_SEC", 43200)) * time.Second,
		AlertMonths:    envInt("TANKOPS_ALERT_MONTHS", 6),
		ValidityYears:  envInt("TANKOPS_VALIDITY_YEARS", 3),
		NotifyEmails:   envList("TANKOPS_NOTIFY_EMAILS"),
		SMTPAddr:       envStr("TANKOPS_SMTP_ADDR", ""),
		SMTPFrom:       envStr("TANKOPS_SMTP_FROM", "tankops@localhost"),
		LineToken:      envStr("TANKOPS_LINE_TOKEN", ""),
		LineGroupID:    envStr("TANKOPS_LINE_GROUP", ""),
		LoginMode:      envStr("TANKOPS_LOGIN_MODE", "GOOGLE"),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[Config] %s=%q is not a number, using default %d", key, v, def)
		return def
	}
	return n
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
