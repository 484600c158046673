// Package conf loads and persists chargewatch-go settings. Configuration is
// read from an optional YAML file merged over built-in defaults; malformed
// sections are logged and fall back to defaults rather than aborting startup.
package conf

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/chargewatch-go/internal/logger"
)

// DefaultConfigFile is where SaveThresholds writes when no config file was
// loaded at startup.
const DefaultConfigFile = "config/chargewatch.yaml"

// Threshold holds the alerting limits for one sensor type.
type Threshold struct {
	Min      float64 `json:"min" yaml:"min" mapstructure:"min"`
	Max      float64 `json:"max" yaml:"max" mapstructure:"max"`
	Warning  float64 `json:"warning" yaml:"warning" mapstructure:"warning"`
	Critical float64 `json:"critical" yaml:"critical" mapstructure:"critical"`
}

// MainSettings holds process-wide options.
type MainSettings struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"loglevel"`
}

// DatabaseSettings selects the backing store. Type is "sqlite" (default) or
// "mysql"; Path is the sqlite file (":memory:" allowed), DSN the mysql DSN.
type DatabaseSettings struct {
	Type string `mapstructure:"type"`
	Path string `mapstructure:"path"`
	DSN  string `mapstructure:"dsn"`
}

// HTTPSettings configures the API listener.
type HTTPSettings struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// SensorSettings configures the sampling loops and threshold engine.
type SensorSettings struct {
	Intervals   map[string]Duration  `mapstructure:"intervals"`
	ReadBackoff Duration             `mapstructure:"readbackoff"`
	Thresholds  map[string]Threshold `mapstructure:"thresholds"`
}

// CameraSettings configures stream pulling and the MJPEG endpoint.
type CameraSettings struct {
	ReconnectDelay Duration `mapstructure:"reconnectdelay"`
	StreamFPS      int      `mapstructure:"streamfps"`
}

// DetectionSettings configures the per-frame detection pipeline.
type DetectionSettings struct {
	Cooldown      Duration `mapstructure:"cooldown"`
	MinConfidence float64  `mapstructure:"minconfidence"`
	ImageDir      string   `mapstructure:"imagedir"`
}

// EmailSettings configures the SMTP notification channel.
type EmailSettings struct {
	Enabled    bool     `mapstructure:"enabled"`
	SMTPServer string   `mapstructure:"smtpserver"`
	SMTPPort   int      `mapstructure:"smtpport"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	Recipients []string `mapstructure:"recipients"`
}

// SMSSettings configures the SMS gateway channel.
type SMSSettings struct {
	Enabled    bool     `mapstructure:"enabled"`
	APIKey     string   `mapstructure:"apikey"`
	APIURL     string   `mapstructure:"apiurl"`
	Recipients []string `mapstructure:"recipients"`
}

// WebhookSettings configures the webhook channel.
type WebhookSettings struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// PushSettings configures the push channel. URL is a shoutrrr service URL;
// when empty the channel is a logged no-op.
type PushSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// NotificationSettings groups the four delivery channels.
type NotificationSettings struct {
	Email   EmailSettings   `mapstructure:"email"`
	SMS     SMSSettings     `mapstructure:"sms"`
	Webhook WebhookSettings `mapstructure:"webhook"`
	Push    PushSettings    `mapstructure:"push"`
}

// DiagnosticsSettings configures the system resource monitor.
type DiagnosticsSettings struct {
	Enabled       bool     `mapstructure:"enabled"`
	Interval      Duration `mapstructure:"interval"`
	CPUPercent    float64  `mapstructure:"cpupercent"`
	MemoryPercent float64  `mapstructure:"memorypercent"`
	DiskPercent   float64  `mapstructure:"diskpercent"`
}

// MQTTSettings configures the optional broker integration. Disabled unless
// Broker is set.
type MQTTSettings struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"clientid"`
	TopicPrefix string `mapstructure:"topicprefix"`
}

// Settings is the full runtime configuration.
type Settings struct {
	Main         MainSettings         `mapstructure:"main"`
	Database     DatabaseSettings     `mapstructure:"database"`
	HTTP         HTTPSettings         `mapstructure:"http"`
	Sensors      SensorSettings       `mapstructure:"sensors"`
	Cameras      CameraSettings       `mapstructure:"cameras"`
	Detection    DetectionSettings    `mapstructure:"detection"`
	Notification NotificationSettings `mapstructure:"notification"`
	Diagnostics  DiagnosticsSettings  `mapstructure:"diagnostics"`
	MQTT         MQTTSettings         `mapstructure:"mqtt"`

	v *viper.Viper
}

// DefaultThresholds returns the built-in per-type alerting limits.
func DefaultThresholds() map[string]Threshold {
	return map[string]Threshold{
		"current":     {Min: 0, Max: 20, Warning: 15, Critical: 18},
		"voltage":     {Min: 200, Max: 240, Warning: 230, Critical: 235},
		"temperature": {Min: -10, Max: 60, Warning: 45, Critical: 55},
		"smoke":       {Min: 0, Max: 1000, Warning: 300, Critical: 500},
		"humidity":    {Min: 0, Max: 100, Warning: 85, Critical: 95},
		"power":       {Min: 0, Max: 5000, Warning: 3000, Critical: 4500},
	}
}

// DefaultIntervals returns the built-in per-type sampling intervals.
func DefaultIntervals() map[string]Duration {
	return map[string]Duration{
		"current":     Duration(1 * time.Second),
		"voltage":     Duration(1 * time.Second),
		"temperature": Duration(5 * time.Second),
		"smoke":       Duration(2 * time.Second),
		"humidity":    Duration(10 * time.Second),
		"power":       Duration(1 * time.Second),
		"infrared":    Duration(1 * time.Second),
	}
}

func defaults() Settings {
	return Settings{
		Main:     MainSettings{Name: "chargewatch", LogLevel: "info"},
		Database: DatabaseSettings{Type: "sqlite", Path: "chargewatch.db"},
		HTTP:     HTTPSettings{Host: "0.0.0.0", Port: 8090},
		Sensors: SensorSettings{
			Intervals:   DefaultIntervals(),
			ReadBackoff: Duration(5 * time.Second),
			Thresholds:  DefaultThresholds(),
		},
		Cameras: CameraSettings{
			ReconnectDelay: Duration(2 * time.Second),
			StreamFPS:      20,
		},
		Detection: DetectionSettings{
			Cooldown:      Duration(30 * time.Second),
			MinConfidence: 0.5,
			ImageDir:      "detection_results",
		},
		Notification: NotificationSettings{
			Email: EmailSettings{
				SMTPServer: "smtp.example.com",
				SMTPPort:   587,
				Username:   "alert@example.com",
			},
			SMS: SMSSettings{
				APIURL: "https://api.sms.example.com/send",
			},
			Webhook: WebhookSettings{
				URL:     "https://webhook.example.com/alert",
				Headers: map[string]string{"Content-Type": "application/json"},
			},
		},
		Diagnostics: DiagnosticsSettings{
			Interval:      Duration(60 * time.Second),
			CPUPercent:    90,
			MemoryPercent: 90,
			DiskPercent:   85,
		},
		MQTT: MQTTSettings{
			ClientID:    "chargewatch",
			TopicPrefix: "chargewatch",
		},
	}
}

// sections lists the top-level config keys decoded independently so one
// malformed section cannot discard the rest of the file.
var sections = []string{
	"main", "database", "http", "sensors", "cameras", "detection",
	"notification", "diagnostics", "mqtt",
}

// Load reads configuration from path (optional, "" means defaults plus any
// file at DefaultConfigFile) merged over built-in defaults. Load never
// fails: unreadable files and malformed sections are logged and skipped.
func Load(path string, log logger.Logger) *Settings {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigFile(DefaultConfigFile)
	}
	v.SetEnvPrefix("chargewatch")
	v.AutomaticEnv()

	s := defaults()
	s.v = v

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || path == "" {
			log.Info("no config file found, using defaults")
			return &s
		}
		log.Error("failed to read config file, using defaults",
			logger.String("path", path), logger.Error(err))
		return &s
	}
	log.Info("loaded configuration", logger.String("path", v.ConfigFileUsed()))

	for _, key := range sections {
		if !v.IsSet(key) {
			continue
		}
		if err := v.UnmarshalKey(key, s.section(key), viper.DecodeHook(DurationDecodeHook())); err != nil {
			log.Warn("ignoring malformed config section",
				logger.String("section", key), logger.Error(err))
		}
	}
	return &s
}

// section maps a top-level key to the struct field it decodes into.
func (s *Settings) section(key string) any {
	switch key {
	case "main":
		return &s.Main
	case "database":
		return &s.Database
	case "http":
		return &s.HTTP
	case "sensors":
		return &s.Sensors
	case "cameras":
		return &s.Cameras
	case "detection":
		return &s.Detection
	case "notification":
		return &s.Notification
	case "diagnostics":
		return &s.Diagnostics
	case "mqtt":
		return &s.MQTT
	default:
		return nil
	}
}

// ParseLogLevel converts the configured level string to a logger.LogLevel.
func (s *Settings) ParseLogLevel() logger.LogLevel {
	switch s.Main.LogLevel {
	case "debug":
		return logger.LogLevelDebug
	case "warn":
		return logger.LogLevelWarn
	case "error":
		return logger.LogLevelError
	default:
		return logger.LogLevelInfo
	}
}

// SaveThresholds writes the given threshold map back to the config file so
// threshold updates survive a restart. The in-memory configuration stays
// authoritative for the running process; callers log (not fail on) errors.
func (s *Settings) SaveThresholds(thresholds map[string]Threshold) error {
	if s.v == nil {
		return fmt.Errorf("failed to save thresholds: no config backend")
	}
	// Store as plain maps so the YAML output stays readable.
	plain := make(map[string]map[string]float64, len(thresholds))
	for name, t := range thresholds {
		plain[name] = map[string]float64{
			"min": t.Min, "max": t.Max, "warning": t.Warning, "critical": t.Critical,
		}
	}
	s.v.Set("sensors.thresholds", plain)
	s.Sensors.Thresholds = thresholds

	if err := s.v.WriteConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return s.v.WriteConfigAs(DefaultConfigFile)
		}
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// DecodeThresholdPatch converts a loose JSON map (sensor type → partial
// threshold fields) into typed per-field patches. Unknown fields are ignored.
func DecodeThresholdPatch(src map[string]map[string]float64) map[string]ThresholdPatch {
	out := make(map[string]ThresholdPatch, len(src))
	for sensorType, fields := range src {
		var p ThresholdPatch
		for name, value := range fields {
			v := value
			switch name {
			case "min":
				p.Min = &v
			case "max":
				p.Max = &v
			case "warning":
				p.Warning = &v
			case "critical":
				p.Critical = &v
			}
		}
		out[sensorType] = p
	}
	return out
}

// ThresholdPatch is a partial threshold update; nil fields are left alone.
type ThresholdPatch struct {
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Warning  *float64 `json:"warning,omitempty"`
	Critical *float64 `json:"critical,omitempty"`
}

// ApplyTo merges the patch over a base threshold; nil fields keep the
// base value.
func (p ThresholdPatch) ApplyTo(base Threshold) Threshold {
	if p.Min != nil {
		base.Min = *p.Min
	}
	if p.Max != nil {
		base.Max = *p.Max
	}
	if p.Warning != nil {
		base.Warning = *p.Warning
	}
	if p.Critical != nil {
		base.Critical = *p.Critical
	}
	return base
}

// OpenThreshold returns limits that never trigger, used as the base for
// sensor types added with a partial patch. Bounds are finite so the
// values survive JSON and YAML encoding.
func OpenThreshold() Threshold {
	return Threshold{
		Min:      -math.MaxFloat64,
		Max:      math.MaxFloat64,
		Warning:  math.MaxFloat64,
		Critical: math.MaxFloat64,
	}
}
