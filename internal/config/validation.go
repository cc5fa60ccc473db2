package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return fmt.Errorf("http.addr cannot be empty")
	}
	if strings.TrimSpace(c.DB.Path) == "" {
		return fmt.Errorf("db.path cannot be empty")
	}
	if c.Events.ResubscribeMaxMS < c.Events.ResubscribeMinMS {
		return fmt.Errorf("events.resubscribe_max_ms must be >= events.resubscribe_min_ms")
	}
	if c.Settle.RetryMaxMS < c.Settle.RetryMinMS {
		return fmt.Errorf("settle.retry_max_ms must be >= settle.retry_min_ms")
	}
	switch strings.ToLower(strings.TrimSpace(c.App.LogLevel)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level is invalid: %s", c.App.LogLevel)
	}
	return nil
}
