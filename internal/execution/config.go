package execution

import "time"

// Config controls bracket sizing, time stops and broker retry policy.
type Config struct {
	// DefaultQuantity is used when a signal does not carry a quantity.
	DefaultQuantity int `yaml:"default_quantity" json:"default_quantity" validate:"gt=0" jsonschema:"default=1"`
	// TimeStop closes a filled bracket after this holding time. Zero disables it.
	TimeStop time.Duration `yaml:"time_stop" json:"time_stop" validate:"gte=0"`
	// StatusRetries bounds the status queries made after a connectivity failure.
	StatusRetries        int           `yaml:"status_retries" json:"status_retries" validate:"gte=0" jsonschema:"default=3"`
	RetryInitialInterval time.Duration `yaml:"retry_initial_interval" json:"retry_initial_interval" validate:"gte=0"`
	RetryMaxInterval     time.Duration `yaml:"retry_max_interval" json:"retry_max_interval" validate:"gte=0"`
}

// DefaultConfig returns one contract per bracket and three status retries.
func DefaultConfig() Config {
	return Config{
		DefaultQuantity:      1,
		StatusRetries:        3,
		RetryInitialInterval: 200 * time.Millisecond,
		RetryMaxInterval:     2 * time.Second,
	}
}
