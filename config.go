package main

import (
	"fmt"
	"net"
	"path/filepath"
	"time"

	"github.com/9seconds/iplocation/geolib"
	"github.com/9seconds/iplocation/sources"
	"github.com/BurntSushi/toml"
)

const (
	DefaultDataDir           = "data"
	DefaultTmpDir            = "tmp"
	DefaultLanguage          = "en"
	DefaultListen            = "127.0.0.1:8080"
	DefaultWorkerPoolSize    = 4096
	DefaultHTTPTimeout       = 30 * time.Second
	DefaultRateLimitInterval = 100 * time.Millisecond
	DefaultRateLimitBurst    = 10

	DefaultCircuitBreakerOpenThreshold = 5
	DefaultCircuitBreakerHalfOpen      = time.Minute
	DefaultCircuitBreakerResetFailures = 20 * time.Second
)

var defaultFields = []string{"country"}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("cannot parse duration: %w", err)
	}

	d.Duration = dur

	return nil
}

type config struct {
	DataDir        string   `toml:"data_dir"`
	TmpDir         string   `toml:"tmp_dir"`
	Fields         []string `toml:"fields"`
	Language       string   `toml:"language"`
	SmallMemory    bool     `toml:"small_memory"`
	ShardFileSize  uint     `toml:"shard_file_size"`
	ShardCacheSize uint     `toml:"shard_cache_size"`
	CountryInfo    bool     `toml:"country_info"`

	Source configSource `toml:"source"`
	HTTP   configHTTP   `toml:"http"`
	Server configServer `toml:"server"`

	layout geolib.RecordLayout
}

func (c config) GetDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}

	return DefaultDataDir
}

func (c config) GetTmpDir() string {
	if c.TmpDir != "" {
		return c.TmpDir
	}

	return DefaultTmpDir
}

func (c config) GetFields() []string {
	if len(c.Fields) > 0 {
		return c.Fields
	}

	return defaultFields
}

func (c config) GetLanguage() string {
	if c.Language != "" {
		return c.Language
	}

	return DefaultLanguage
}

func (c config) GetShardFileSize() int {
	if c.ShardFileSize == 0 {
		return geolib.DefaultShardFileSize
	}

	return int(c.ShardFileSize)
}

func (c config) GetShardCacheSize() int {
	return int(c.ShardCacheSize)
}

func (c config) GetLayout() geolib.RecordLayout {
	return c.layout
}

// GetDatabaseDir is a directory of the database for configured fields.
func (c config) GetDatabaseDir() string {
	return geolib.LayoutDir(c.GetDataDir(), c.layout)
}

type configSource struct {
	// Dir is a directory with already extracted CSV files. If it is
	// set, nothing is downloaded.
	Dir         string   `toml:"dir"`
	LicenseKey  string   `toml:"license_key"`
	Series      string   `toml:"series"`
	Edition     string   `toml:"edition"`
	UpdateEvery duration `toml:"update_every"`
}

func (c configSource) GetSeries() string {
	if c.Series != "" {
		return c.Series
	}

	return sources.DefaultSeries
}

func (c configSource) GetEdition() string {
	if c.Edition != "" {
		return c.Edition
	}

	return sources.DefaultEdition
}

// GetUpdateEvery returns 0 if periodic updates are disabled.
func (c configSource) GetUpdateEvery() time.Duration {
	return c.UpdateEvery.Duration
}

type configHTTP struct {
	Timeout           duration `toml:"timeout"`
	RateLimitInterval duration `toml:"rate_limit_interval"`
	RateLimitBurst    uint     `toml:"rate_limit_burst"`
}

func (c configHTTP) GetTimeout() time.Duration {
	if c.Timeout.Duration == 0 {
		return DefaultHTTPTimeout
	}

	return c.Timeout.Duration
}

func (c configHTTP) GetRateLimitInterval() time.Duration {
	if c.RateLimitInterval.Duration == 0 {
		return DefaultRateLimitInterval
	}

	return c.RateLimitInterval.Duration
}

func (c configHTTP) GetRateLimitBurst() int {
	if c.RateLimitBurst == 0 {
		return DefaultRateLimitBurst
	}

	return int(c.RateLimitBurst)
}

type configServer struct {
	Listen         string `toml:"listen"`
	WorkerPoolSize uint   `toml:"worker_pool_size"`

	// CDNDir is a directory with exported datasets, one
	// subdirectory per dataset.
	CDNDir    string          `toml:"cdn_dir"`
	BasicAuth configBasicAuth `toml:"basic_auth"`
}

func (c configServer) GetListen() string {
	if c.Listen != "" {
		return c.Listen
	}

	return DefaultListen
}

func (c configServer) GetWorkerPoolSize() int {
	if c.WorkerPoolSize == 0 {
		return DefaultWorkerPoolSize
	}

	return int(c.WorkerPoolSize)
}

func (c configServer) GetCDNDir() string {
	return c.CDNDir
}

type configBasicAuth struct {
	User     string `toml:"user"`
	Password string `toml:"password"`
}

func (c configBasicAuth) Enabled() bool {
	return c.User != "" || c.Password != ""
}

// parseConfig reads a config file. An empty path gives a default
// config.
func parseConfig(path string) (*config, error) {
	conf := &config{}

	if path != "" {
		if _, err := toml.DecodeFile(path, conf); err != nil {
			return nil, fmt.Errorf("cannot parse config: %w", err)
		}
	}

	if err := validateConfig(conf); err != nil {
		return nil, err
	}

	return conf, nil
}

func validateConfig(conf *config) error {
	if _, _, err := net.SplitHostPort(conf.Server.GetListen()); err != nil {
		return fmt.Errorf("incorrect host:port for listen: %w", err)
	}

	layout, err := geolib.NewRecordLayout(conf.GetFields())
	if err != nil {
		return fmt.Errorf("incorrect fields: %w", err)
	}

	conf.layout = layout

	conf.DataDir, err = filepath.Abs(conf.GetDataDir())
	if err != nil {
		return fmt.Errorf("incorrect data directory: %w", err)
	}

	conf.TmpDir, err = filepath.Abs(conf.GetTmpDir())
	if err != nil {
		return fmt.Errorf("incorrect tmp directory: %w", err)
	}

	if conf.Source.UpdateEvery.Duration < 0 {
		return fmt.Errorf("incorrect update_every %v", conf.Source.UpdateEvery.Duration)
	}

	return nil
}
