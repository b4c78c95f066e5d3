package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API      *APIconfig      `yaml:"api"`
	Realtime *Realtimeconfig `yaml:"realtime"`
	Grid     *Gridconfig     `yaml:"grid"`
	Snapshot *Snapshotconfig `yaml:"snapshot"`
	Walk     *Walkconfig     `yaml:"walk"`
	DB       *DBconfig       `yaml:"db"`
	RabbitMq *RabbitMqconfig `yaml:"rabbitmq"`
	Redis    *Redisconfig    `yaml:"redis"`
	MQTT     *MQTTconfig     `yaml:"mqtt"`
	Overlay  *Overlayconfig  `yaml:"overlay"`
	Log      *Loggerconfig   `yaml:"log"`
}

type APIconfig struct {
	BaseURL        string `yaml:"base_url"`
	AccessToken    string `yaml:"access_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Realtimeconfig struct {
	URL                   string `yaml:"url"`
	ReconnectDelaySeconds int    `yaml:"reconnect_delay_seconds"`
	HeartbeatMillis       int    `yaml:"heartbeat_millis"`
}

type Gridconfig struct {
	CellSizeDeg float64 `yaml:"cell_size_deg"`
}

type Snapshotconfig struct {
	BaseMapURL            string `yaml:"base_map_url"`
	BaseMapTimeoutSeconds int    `yaml:"base_map_timeout_seconds"`
	CanvasSize            int    `yaml:"canvas_size"`
}

type Walkconfig struct {
	MaxFixAccuracyM float64 `yaml:"max_fix_accuracy_m"`
	StartLat        float64 `yaml:"start_lat"`
	StartLng        float64 `yaml:"start_lng"`
}

type DBconfig struct {
	Enabled    bool   `yaml:"enabled"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Database   string `yaml:"database"`
	MaxRetries int    `yaml:"max_retries"`
}

type RabbitMqconfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
}

type Redisconfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

type MQTTconfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
}

type Overlayconfig struct {
	Port  int    `yaml:"port"`
	Token string `yaml:"token"`
}

type Loggerconfig struct {
	Level string `yaml:"level"`
}

// New reads the configuration from the environment. When CONFIG_FILE points
// to a YAML document its values are applied on top of the environment.
func New() (*Config, error) {
	cnf := FromEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cnf.MergeYAML(path); err != nil {
			return nil, err
		}
	}
	if err := cnf.Validate(); err != nil {
		return nil, err
	}
	return cnf, nil
}

func FromEnv() *Config {
	return &Config{
		API: &APIconfig{
			BaseURL:        getEnv("API_BASE_URL", "http://localhost:8080/api"),
			AccessToken:    getEnv("API_ACCESS_TOKEN", ""),
			TimeoutSeconds: getEnvInt("API_TIMEOUT_SECONDS", 10),
		},
		Realtime: &Realtimeconfig{
			URL:                   getEnv("REALTIME_URL", "ws://localhost:8080/ws"),
			ReconnectDelaySeconds: getEnvInt("REALTIME_RECONNECT_DELAY_SECONDS", 5),
			HeartbeatMillis:       getEnvInt("REALTIME_HEARTBEAT_MILLIS", 4000),
		},
		Grid: &Gridconfig{
			CellSizeDeg: getEnvFloat("GRID_CELL_SIZE_DEG", 0.00072),
		},
		Snapshot: &Snapshotconfig{
			BaseMapURL:            getEnv("BASE_MAP_URL", "http://localhost:8080/api/maps/static"),
			BaseMapTimeoutSeconds: getEnvInt("BASE_MAP_TIMEOUT_SECONDS", 8),
			CanvasSize:            getEnvInt("SNAPSHOT_CANVAS_SIZE", 600),
		},
		Walk: &Walkconfig{
			MaxFixAccuracyM: getEnvFloat("WALK_MAX_FIX_ACCURACY_M", 0),
			StartLat:        getEnvFloat("WALK_START_LAT", 37.5665),
			StartLng:        getEnvFloat("WALK_START_LNG", 126.9780),
		},
		DB: &DBconfig{
			Enabled:    getEnvBool("DB_ENABLED", false),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvInt("DB_PORT", 5432),
			User:       getEnv("DB_USER", "pawwalk_user"),
			Password:   getEnv("DB_PASSWORD", "pawwalk_pass"),
			Database:   getEnv("DB_NAME", "pawwalk_db"),
			MaxRetries: getEnvInt("DB_MAX_RETRIES", 3),
		},
		RabbitMq: &RabbitMqconfig{
			Enabled:  getEnvBool("RABBITMQ_ENABLED", false),
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnvInt("RABBITMQ_PORT", 5672),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
			VHost:    getEnv("RABBITMQ_VHOST", ""),
		},
		Redis: &Redisconfig{
			Addr:       getEnv("REDIS_ADDR", ""),
			Password:   getEnv("REDIS_PASSWORD", ""),
			TTLMinutes: getEnvInt("REDIS_TTL_MINUTES", 24*60),
		},
		MQTT: &MQTTconfig{
			Broker:   getEnv("MQTT_BROKER", ""),
			ClientID: getEnv("MQTT_CLIENT_ID", "pawwalk-client"),
		},
		Overlay: &Overlayconfig{
			Port:  getEnvInt("OVERLAY_PORT", 3005),
			Token: getEnv("OVERLAY_TOKEN", ""),
		},
		Log: &Loggerconfig{
			Level: getEnv("LOG_LEVEL", "INFO"),
		},
	}
}

// MergeYAML overlays the non-zero values of the YAML file at path.
func (c *Config) MergeYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Grid.CellSizeDeg <= 0 {
		return fmt.Errorf("grid cell size must be positive, got %v", c.Grid.CellSizeDeg)
	}
	if c.Snapshot.CanvasSize <= 0 {
		return fmt.Errorf("snapshot canvas size must be positive, got %d", c.Snapshot.CanvasSize)
	}
	if c.Realtime.ReconnectDelaySeconds <= 0 {
		return fmt.Errorf("realtime reconnect delay must be positive, got %d", c.Realtime.ReconnectDelaySeconds)
	}
	return nil
}

func (c *APIconfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Realtimeconfig) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelaySeconds) * time.Second
}

func (c *Realtimeconfig) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatMillis) * time.Millisecond
}

func (c *Snapshotconfig) BaseMapTimeout() time.Duration {
	return time.Duration(c.BaseMapTimeoutSeconds) * time.Second
}

func (c *Redisconfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

func (c *DBconfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%v:%v@%v:%v/%v?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database,
	)
}
