package config

import "time"

// Chat definition chat_service YAML structure
type Chat struct {
	Port           string        `mapstructure:"port"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AllowedOrigins string        `mapstructure:"allowed_origins"`
	// PingInterval websocket server ping 週期
	PingInterval time.Duration `mapstructure:"ping_interval"`

	MongoSQL   DatabaseConfig  `mapstructure:"mongo"`
	PostgreSQL DatabaseConfig  `mapstructure:"pg"`
	Redis      RedisConfig     `mapstructure:"redis"`
	MinIO      MinIOConfig     `mapstructure:"minio"`
	RabbitMQ   RabbitMQConfig  `mapstructure:"rabbitmq"`
	KafKa      KafkaConfig     `mapstructure:"kafka"`
	Fanout     FanoutConfig    `mapstructure:"fanout"`
	Attachment AttachmentLimit `mapstructure:"attachment"`
}

// AttachmentWorker definition attachment_worker YAML structure
type AttachmentWorker struct {
	PostgreSQL DatabaseConfig `mapstructure:"pg"`
	MinIO      MinIOConfig    `mapstructure:"minio"`
	RabbitMQ   RabbitMQConfig `mapstructure:"rabbitmq"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB int `mapstructure:"redis_db"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// MinIOConfig definition minio setting
type MinIOConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	BucketName string `mapstructure:"bucket"`
	UseSSL     bool   `mapstructure:"use_ssl"`
	// PublicURL 對外可存取的 base url, 例如 CDN 網域
	PublicURL string `mapstructure:"public_url"`

	RetryInterval time.Duration `mapstructure:"retry_interval"`
	RetryCount    int           `mapstructure:"retry_count"`
}

// RabbitMQConfig definition rabbitmq setting
type RabbitMQConfig struct {
	IP       string `mapstructure:"ip"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`

	RetryInterval time.Duration `mapstructure:"retry_interval"`
	RetryCount    int           `mapstructure:"retry_count"`
}

// KafkaConfig definition kafka setting, empty brokers disables the event journal
type KafkaConfig struct {
	Brokers       []string      `mapstructure:"brokers"`
	Topic         string        `mapstructure:"topic"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	RetryCount    int           `mapstructure:"retry_count"`
}

// FanoutConfig 選擇跨節點廣播使用的 bus
type FanoutConfig struct {
	// Bus redis | nats | local
	Bus     string `mapstructure:"bus"`
	NatsURL string `mapstructure:"nats_url"`
}

// AttachmentLimit upload limits
type AttachmentLimit struct {
	MaxSize int64 `mapstructure:"max_size"`
}
