package config

// Config 是 homebroker 的主配置载体。
type Config struct {
	App    AppConfig    `toml:"app"`
	HTTP   HTTPConfig   `toml:"http"`
	DB     DBConfig     `toml:"db"`
	Bus    BusConfig    `toml:"bus"`
	Events EventsConfig `toml:"events"`
	Settle SettleConfig `toml:"settle"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
}

type HTTPConfig struct {
	Addr string `toml:"addr"`
}

type DBConfig struct {
	Path        string `toml:"path"`
	HistoryPath string `toml:"history_path"`
}

// BusConfig 控制 intent 消息队列与 outbox 补偿。
type BusConfig struct {
	QueueCapacity          int `toml:"queue_capacity"`
	OutboxIntervalSeconds  int `toml:"outbox_interval_seconds"`
	OutboxMaxAttempts      int `toml:"outbox_max_attempts"`
	PublishTimeoutSeconds  int `toml:"publish_timeout_seconds"`
}

// EventsConfig 控制变更订阅与推送缓冲。
type EventsConfig struct {
	FeedBuffer          int `toml:"feed_buffer"`
	SubscriberBuffer    int `toml:"subscriber_buffer"`
	ResubscribeMinMS    int `toml:"resubscribe_min_ms"`
	ResubscribeMaxMS    int `toml:"resubscribe_max_ms"`
}

// SettleConfig 控制版本冲突重试策略（显式、有上限）。
type SettleConfig struct {
	RetryMaxAttempts int `toml:"retry_max_attempts"`
	RetryMinMS       int `toml:"retry_min_ms"`
	RetryMaxMS       int `toml:"retry_max_ms"`
}
