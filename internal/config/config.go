// Package config holds the process configuration, read from flags and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitbot/internal/calculator"
	"github.com/mmynk/splitbot/internal/service"
)

// Config is populated by kong. Every flag can also be set through the
// environment.
type Config struct {
	TelegramToken string `name:"telegram-token" env:"TELEGRAM_TOKEN" help:"Bot API token."`

	DBDriver    string `name:"db-driver" env:"DB_DRIVER" enum:"sqlite,postgres" default:"sqlite" help:"Ledger database driver (${enum})."`
	DBPath      string `name:"db-path" env:"DB_PATH" default:"./data/splitbot.db" help:"SQLite database file."`
	DatabaseURL string `name:"database-url" env:"DATABASE_URL" help:"Postgres connection URL."`

	ListenAddr string  `name:"listen-addr" env:"LISTEN_ADDR" default:":8080" help:"HTTP listen address."`
	PublicURL  string  `name:"public-url" env:"PUBLIC_URL" help:"Public base URL of the HTTP server, used for the balances link and the webhook."`
	AdminIDs   []int64 `name:"admin-ids" env:"ADMIN_IDS" sep:"," help:"User ids treated as admins in every group."`

	DefaultPrice       string `name:"default-price" env:"DEFAULT_PRICE" help:"Price used when neither the message nor the group sets one."`
	DefaultExpenseName string `name:"default-expense-name" env:"DEFAULT_EXPENSE_NAME" default:"${default_expense_name}" help:"Expense name fallback."`
	DefaultActionName  string `name:"default-action-name" env:"DEFAULT_ACTION_NAME" default:"${default_action_name}" help:"Join button label fallback."`

	DedupePath string `name:"dedupe-path" env:"DEDUPE_PATH" default:"./data/dedupe.db" help:"Bolt file of handled update ids. Empty disables deduplication."`

	LogLevel  string `name:"log-level" env:"LOG_LEVEL" enum:"debug,info,warn,error" default:"info" help:"Log level (${enum})."`
	LogFormat string `name:"log-format" env:"LOG_FORMAT" enum:"text,json" default:"text" help:"Log format (${enum})."`
}

// Vars are the kong interpolation variables referenced by Config tags.
func Vars() map[string]string {
	return map[string]string{
		"default_expense_name": service.DefaultExpenseName,
		"default_action_name":  service.DefaultActionName,
	}
}

// Validate is called by kong after parsing.
func (c *Config) Validate() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, errors.New("telegram token is required"))
	}
	switch c.DBDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("database url is required for postgres"))
		}
	default:
		if c.DBPath == "" {
			errs = append(errs, errors.New("db path is required for sqlite"))
		}
	}
	if _, err := c.defaultPrice(); err != nil {
		errs = append(errs, err)
	}
	if c.PublicURL != "" && !strings.HasPrefix(c.PublicURL, "http://") && !strings.HasPrefix(c.PublicURL, "https://") {
		errs = append(errs, fmt.Errorf("public url %q must start with http:// or https://", c.PublicURL))
	}
	return errors.Join(errs...)
}

// DataSource returns the driver name and source for sqlstore.New.
func (c *Config) DataSource() (driver, source string) {
	if c.DBDriver == "postgres" {
		return "postgres", c.DatabaseURL
	}
	return "sqlite", c.DBPath
}

// WebhookURL is where Telegram delivers updates in serve mode.
func (c *Config) WebhookURL() string {
	if c.PublicURL == "" {
		return ""
	}
	return strings.TrimRight(c.PublicURL, "/") + "/webhook"
}

// GlobalDefaults are the process-wide fallbacks for new expenses.
func (c *Config) GlobalDefaults() service.Defaults {
	price, _ := c.defaultPrice()
	return service.Defaults{
		Price:       price,
		ExpenseName: c.DefaultExpenseName,
		ActionName:  c.DefaultActionName,
	}
}

// ServiceConfig builds the service configuration.
func (c *Config) ServiceConfig() service.Config {
	return service.Config{
		PublicURL: c.PublicURL,
		AdminIDs:  c.AdminIDs,
		Defaults:  c.GlobalDefaults(),
	}
}

func (c *Config) defaultPrice() (*decimal.Decimal, error) {
	if c.DefaultPrice == "" {
		return nil, nil
	}
	price, err := decimal.NewFromString(strings.ReplaceAll(c.DefaultPrice, ",", "."))
	if err != nil {
		return nil, fmt.Errorf("invalid default price %q: %w", c.DefaultPrice, err)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("default price %q must be positive", c.DefaultPrice)
	}
	if !price.Equal(price.Truncate(calculator.ShareScale)) {
		return nil, fmt.Errorf("default price %q has more than %d decimals", c.DefaultPrice, calculator.ShareScale)
	}
	return &price, nil
}
