// Package config loads studio settings from a JSON file through viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "studio.cfg.json"

// Storage backend names.
const (
	StorageMemory    = "memory"
	StorageSQLite    = "sqlite"
	StoragePostgres  = "postgres"
	StorageWebsocket = "websocket"
)

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds the in-memory SQLite backend settings.
type SQLiteConfig struct {
	// Path is the file the in-memory database is dumped to.
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslMode" mapstructure:"sslMode"`
}

// PublishConfig holds the websocket publish stream settings.
type PublishConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	APIKey string `json:"apiKey" mapstructure:"apiKey"`
}

// ViewerConfig holds the scene viewer upload settings.
type ViewerConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	APIKey string `json:"apiKey" mapstructure:"apiKey"`
	Tag    string `json:"tag" mapstructure:"tag"`
}

// StorageConfig selects and configures the project store.
type StorageConfig struct {
	Type    string        `json:"type" mapstructure:"type"`
	Memory  MemoryConfig  `json:"memory" mapstructure:"memory"`
	SQLite  SQLiteConfig  `json:"sqlite" mapstructure:"sqlite"`
	DB      DBConfig      `json:"db" mapstructure:"db"`
	Publish PublishConfig `json:"publish" mapstructure:"publish"`
}

// OTelConfig holds OpenTelemetry log export settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// InfluxConfig holds the frame telemetry sink settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// FrameConfig holds the frame loop and editor settings.
type FrameConfig struct {
	Rate           int           `json:"rate" mapstructure:"rate"`
	Mode           string        `json:"mode" mapstructure:"mode"`
	ReferenceSpeed float32       `json:"referenceSpeed" mapstructure:"referenceSpeed"`
	HistoryLimit   int           `json:"historyLimit" mapstructure:"historyLimit"`
	StatsInterval  time.Duration `json:"statsInterval" mapstructure:"statsInterval"`
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("storage.type", StorageMemory)
	viper.SetDefault("storage.memory.outputDir", "./projects")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./projects/studio.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "studio")
	viper.SetDefault("db.sslMode", "disable")

	viper.SetDefault("publish.url", "ws://localhost:5000/api/v1/stream")
	viper.SetDefault("publish.apiKey", "")

	viper.SetDefault("viewer.url", "http://localhost:5000")
	viper.SetDefault("viewer.apiKey", "")
	viper.SetDefault("viewer.tag", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "studio")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "studio")
	viper.SetDefault("influx.bucket", "frames")

	viper.SetDefault("frame.rate", 60)
	viper.SetDefault("frame.mode", "edit")
	viper.SetDefault("frame.referenceSpeed", 10)
	viper.SetDefault("frame.historyLimit", 50)
	viper.SetDefault("frame.statsInterval", "10s")
}

// Load sets defaults and reads FileName from configDir.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// GetStorageConfig returns the storage settings. The database and publish
// sections live at the top level of the file.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		DB: DBConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
			SSLMode:  viper.GetString("db.sslMode"),
		},
		Publish: PublishConfig{
			URL:    viper.GetString("publish.url"),
			APIKey: viper.GetString("publish.apiKey"),
		},
	}
}

// GetViewerConfig returns the viewer upload settings.
func GetViewerConfig() ViewerConfig {
	return ViewerConfig{
		URL:    viper.GetString("viewer.url"),
		APIKey: viper.GetString("viewer.apiKey"),
		Tag:    viper.GetString("viewer.tag"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the telemetry sink settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetFrameConfig returns the frame loop settings.
func GetFrameConfig() FrameConfig {
	return FrameConfig{
		Rate:           viper.GetInt("frame.rate"),
		Mode:           viper.GetString("frame.mode"),
		ReferenceSpeed: float32(viper.GetFloat64("frame.referenceSpeed")),
		HistoryLimit:   viper.GetInt("frame.historyLimit"),
		StatsInterval:  viper.GetDuration("frame.statsInterval"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
