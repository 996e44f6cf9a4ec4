package temporalx

import (
	"strings"
	"time"
)

type Config struct {
	// Address empty means Temporal is disabled; runs execute in-process.
	Address   string `koanf:"address"`
	Namespace string `koanf:"namespace"`
	TaskQueue string `koanf:"task_queue"`

	ClientCertPath string `koanf:"client_cert_path"`
	ClientKeyPath  string `koanf:"client_key_path"`
	ClientCAPath   string `koanf:"client_ca_path"`

	AutoRegisterNamespace  bool `koanf:"auto_register_namespace"`
	NamespaceRetentionDays int  `koanf:"namespace_retention_days"`

	DialTimeout time.Duration `koanf:"dial_timeout"`
	DialMaxWait time.Duration `koanf:"dial_max_wait"`
	Backoff     time.Duration `koanf:"backoff"`
	BackoffMax  time.Duration `koanf:"backoff_max"`

	WorkerConcurrency int `koanf:"worker_concurrency"`
}

func (c Config) Enabled() bool { return strings.TrimSpace(c.Address) != "" }

// WithDefaults fills zero values.
func (c Config) WithDefaults() Config {
	c.Address = strings.TrimSpace(c.Address)
	c.Namespace = stringsOr(c.Namespace, "govgen")
	c.TaskQueue = stringsOr(c.TaskQueue, "govgen")
	if c.NamespaceRetentionDays < 1 {
		c.NamespaceRetentionDays = 7
	}
	if c.NamespaceRetentionDays > 365 {
		c.NamespaceRetentionDays = 365
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.DialMaxWait < 0 {
		c.DialMaxWait = 0
	}
	if c.Backoff <= 0 {
		c.Backoff = 250 * time.Millisecond
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 5 * time.Second
	}
	if c.WorkerConcurrency < 1 {
		c.WorkerConcurrency = 4
	}
	return c
}

func stringsOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}
