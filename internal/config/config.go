package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Config struct {
	ConfigFile         string
	Port               string
	DBDriver           string
	DBConnectionString string
	ContentDBPath      string
	HostHomeMount      string
	LogLevel           string
	LogFile            string
	Sync               *SyncConfig
	Pipeline           *PipelineConfig
	Watch              *WatchConfig
}

var defaults = map[string]interface{}{
	"PORT":                    "8080",
	"DB_DRIVER":               "sqlite",
	"DB_CONNECTION_STRING":    "data/docsync.db",
	"CONTENT_DB_PATH":         "data/content.db",
	"HOST_HOME_MOUNT":         "",
	"LOG_LEVEL":               "info",
	"LOG_FILE":                "",
	"SYNC_WORKERS":            3,
	"QUEUE_CAPACITY":          100,
	"MILESTONE_PERCENT":       10,
	"STATUS_POLL_INTERVAL_MS": 1000,
	"TASK_RETENTION_MINUTES":  60,
	"PENDING_TIMEOUT_MINUTES": 15,
	"REAP_INTERVAL_MINUTES":   5,
	"CHUNK_WORDS":             200,
	"CHUNK_OVERLAP":           20,
	"LLM_PROVIDER":            "",
	"LLM_MODEL":               "",
	"LLM_API_TOKEN":           "",
	"WATCH_FOLDERS":           false,
	"WATCH_DEBOUNCE_SECONDS":  5,
}

// Load reads configuration from defaults, an optional CONFIG_FILE and the environment, in that order.
func Load() (*Config, error) {
	v := newViper()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	return fromViper(v)
}

// WatchFile calls onChange with the reloaded configuration every time file is written.
// Reloads that fail validation are reported to onError and otherwise ignored.
func WatchFile(file string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", file, err)
	}

	v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := fromViper(v)
		if err != nil {
			onError(err)
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) (*Config, error) {
	driver := strings.ToLower(v.GetString("DB_DRIVER"))
	if driver != "postgres" && driver != "sqlite" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (want postgres or sqlite)", driver)
	}

	syncCfg := &SyncConfig{
		Workers:        v.GetInt("SYNC_WORKERS"),
		QueueCapacity:  v.GetInt("QUEUE_CAPACITY"),
		MilestoneStep:  v.GetInt("MILESTONE_PERCENT"),
		PollInterval:   time.Duration(v.GetInt("STATUS_POLL_INTERVAL_MS")) * time.Millisecond,
		TaskRetention:  time.Duration(v.GetInt("TASK_RETENTION_MINUTES")) * time.Minute,
		PendingTimeout: time.Duration(v.GetInt("PENDING_TIMEOUT_MINUTES")) * time.Minute,
		ReapInterval:   time.Duration(v.GetInt("REAP_INTERVAL_MINUTES")) * time.Minute,
	}
	if err := syncCfg.Validate(); err != nil {
		return nil, err
	}

	return &Config{
		ConfigFile:         v.ConfigFileUsed(),
		Port:               v.GetString("PORT"),
		DBDriver:           driver,
		DBConnectionString: v.GetString("DB_CONNECTION_STRING"),
		ContentDBPath:      v.GetString("CONTENT_DB_PATH"),
		HostHomeMount:      v.GetString("HOST_HOME_MOUNT"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFile:            v.GetString("LOG_FILE"),
		Sync:               syncCfg,
		Pipeline: &PipelineConfig{
			Provider:     v.GetString("LLM_PROVIDER"),
			Model:        v.GetString("LLM_MODEL"),
			APIToken:     v.GetString("LLM_API_TOKEN"),
			ChunkWords:   v.GetInt("CHUNK_WORDS"),
			ChunkOverlap: v.GetInt("CHUNK_OVERLAP"),
		},
		Watch: &WatchConfig{
			Enabled:  v.GetBool("WATCH_FOLDERS"),
			Debounce: time.Duration(v.GetInt("WATCH_DEBOUNCE_SECONDS")) * time.Second,
		},
	}, nil
}
