package config

// 默认值常量
const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultHTTPAddr         = ":8080"
	defaultDBPath           = "/data/db/homebroker.db"
	defaultHistoryPath      = "/data/db/asset_daily.db"
	defaultBusCapacity      = 1024
	defaultOutboxInterval   = 30
	defaultOutboxAttempts   = 10
	defaultPublishTimeout   = 5
	defaultFeedBuffer       = 256
	defaultSubscriberBuffer = 16
	defaultResubMinMS       = 200
	defaultResubMaxMS       = 10_000
	defaultRetryAttempts    = 5
	defaultRetryMinMS       = 20
	defaultRetryMaxMS       = 2_000
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = defaultAppEnv
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = defaultAppLogLevel
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = defaultHTTPAddr
	}
	if c.DB.Path == "" {
		c.DB.Path = defaultDBPath
	}
	if c.DB.HistoryPath == "" {
		c.DB.HistoryPath = defaultHistoryPath
	}
	if c.Bus.QueueCapacity <= 0 {
		c.Bus.QueueCapacity = defaultBusCapacity
	}
	if c.Bus.OutboxIntervalSeconds <= 0 {
		c.Bus.OutboxIntervalSeconds = defaultOutboxInterval
	}
	if c.Bus.OutboxMaxAttempts <= 0 {
		c.Bus.OutboxMaxAttempts = defaultOutboxAttempts
	}
	if c.Bus.PublishTimeoutSeconds <= 0 {
		c.Bus.PublishTimeoutSeconds = defaultPublishTimeout
	}
	if c.Events.FeedBuffer <= 0 {
		c.Events.FeedBuffer = defaultFeedBuffer
	}
	if c.Events.SubscriberBuffer <= 0 {
		c.Events.SubscriberBuffer = defaultSubscriberBuffer
	}
	if c.Events.ResubscribeMinMS <= 0 {
		c.Events.ResubscribeMinMS = defaultResubMinMS
	}
	if c.Events.ResubscribeMaxMS <= 0 {
		c.Events.ResubscribeMaxMS = defaultResubMaxMS
	}
	if c.Settle.RetryMaxAttempts <= 0 {
		c.Settle.RetryMaxAttempts = defaultRetryAttempts
	}
	if c.Settle.RetryMinMS <= 0 {
		c.Settle.RetryMinMS = defaultRetryMinMS
	}
	if c.Settle.RetryMaxMS <= 0 {
		c.Settle.RetryMaxMS = defaultRetryMaxMS
	}
}
