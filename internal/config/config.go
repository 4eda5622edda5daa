package config

import "github.com/caarlos0/env/v9"

type Config struct {
	Port                   string `env:"PORT" envDefault:"8080"`
	DBUser                 string `env:"DB_USER,required"`
	DBPassword             string `env:"DB_PASSWORD,required"`
	DBHost                 string `env:"DB_HOST,required"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME,required"`
	DBPort                 string `env:"DB_PORT" envDefault:"3306"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`

	StorageBucket    string `env:"STORAGE_BUCKET"`
	AttachmentFolder string `env:"ATTACHMENT_FOLDER" envDefault:"attachments"`
	MaxUploadBytes   int64  `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`

	RateLimit         int `env:"RATE_LIMIT" envDefault:"60"`
	RateWindowSeconds int `env:"RATE_WINDOW_SECONDS" envDefault:"60"`

	PageSize int `env:"PAGE_SIZE" envDefault:"50"`
	// RedactTombstones switches delete-for-everyone tombstones to a
	// placeholder body for everyone but the author.
	RedactTombstones bool `env:"REDACT_TOMBSTONES" envDefault:"false"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
