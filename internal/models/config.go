package models

import "time"

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig
	Gateway    GatewayConfig
	Reconciler ReconcilerConfig
	Formance   FormanceConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	CreateDemoData  bool
}

// GatewayConfig holds payment gateway settings. KeySecret is both the basic
// auth secret for the order API and the HMAC key for signature verification;
// it is never sent to clients.
type GatewayConfig struct {
	BaseURL        string
	KeyId          string
	KeySecret      string
	Currency       string
	RequestTimeout time.Duration
	CurrenciesFile string
}

// ReconcilerConfig holds background reconciliation settings
type ReconcilerConfig struct {
	Interval      time.Duration
	PendingMaxAge time.Duration
}

// FormanceConfig holds the optional Formance Stack earnings mirror settings
type FormanceConfig struct {
	Enabled      bool
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}
