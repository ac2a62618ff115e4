package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/cmsauth/internal/flagx"
	"github.com/dmitrijs2005/cmsauth/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations
// accept either integer seconds or Go duration strings. Absent keys keep
// their current value.
type JsonConfig struct {
	EndpointAddrHTTP *string         `json:"endpoint_addr_http"`
	DatabaseDSN      *string         `json:"database_dsn"`
	SecretKey        *string         `json:"secret_key"`
	AccessTTL        *timex.Duration `json:"access_ttl"`
	RefreshTTL       *timex.Duration `json:"refresh_ttl"`
	MaxAttempts      *int            `json:"max_attempts"`
	LockoutWindow    *timex.Duration `json:"lockout_window"`
	HashTime         *uint32         `json:"hash_time"`
	HashMemoryKiB    *uint32         `json:"hash_memory_kib"`
	HashThreads      *uint8          `json:"hash_threads"`
	DBTimeout        *timex.Duration `json:"db_timeout"`
	SweepSchedule    *string         `json:"sweep_schedule"`
	TrustedProxies   *[]string       `json:"trusted_proxies"`
}

// parseJson overlays values from the file named by -c / -config onto
// config. Nothing is loaded when neither flag is given. An unreadable file
// or invalid JSON panics.
func parseJson(config *Config, args []string) {
	jsonConfigFile := flagx.ConfigPath(args)
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setValue(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setValue(&config.DatabaseDSN, c.DatabaseDSN)
	setValue(&config.SecretKey, c.SecretKey)
	setValue(&config.MaxAttempts, c.MaxAttempts)
	setValue(&config.HashTime, c.HashTime)
	setValue(&config.HashMemoryKiB, c.HashMemoryKiB)
	setValue(&config.HashThreads, c.HashThreads)
	setValue(&config.SweepSchedule, c.SweepSchedule)
	setValue(&config.TrustedProxies, c.TrustedProxies)

	if c.AccessTTL != nil {
		config.AccessTTL = c.AccessTTL.Duration
	}
	if c.RefreshTTL != nil {
		config.RefreshTTL = c.RefreshTTL.Duration
	}
	if c.LockoutWindow != nil {
		config.LockoutWindow = c.LockoutWindow.Duration
	}
	if c.DBTimeout != nil {
		config.DBTimeout = c.DBTimeout.Duration
	}
}

func setValue[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
