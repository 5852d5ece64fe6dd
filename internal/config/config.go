// Package config loads the controller configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sweeney/rtc-wakeup/internal/button"
	"github.com/sweeney/rtc-wakeup/internal/logic"
	"github.com/sweeney/rtc-wakeup/internal/rtc"
	"gopkg.in/yaml.v3"
)

// Config is the complete controller configuration.
type Config struct {
	GPIOChip     string
	ButtonPin    int
	RTCDevice    string
	Broker       string // empty disables telemetry
	AlarmChannel rtc.Channel
	Alarm        rtc.AlarmSpec
	Start        rtc.DateTime
	Attempts     int
	RetryDelay   time.Duration
	SettleDelay  time.Duration
	Thresholds   logic.Thresholds
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		GPIOChip:     button.DefaultChip,
		ButtonPin:    button.DefaultPin,
		RTCDevice:    rtc.DefaultDevice,
		AlarmChannel: rtc.Alarm2,
		Alarm:        rtc.DefaultAlarmSpec(),
		Start:        rtc.DateTime{Sec: 0, Min: 0, Hour: 10, Day: 6, Weekday: 6, Month: 9, Year: 24},
		Attempts:     rtc.DefaultAttempts,
		RetryDelay:   rtc.DefaultRetryDelay,
		SettleDelay:  100 * time.Millisecond,
		Thresholds:   logic.DefaultThresholds(),
	}
}

// Validate rejects configurations the controller cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Attempts <= 0:
		return fmt.Errorf("attempts must be positive, got %d", c.Attempts)
	case c.RetryDelay < 0 || c.SettleDelay < 0:
		return errors.New("delays must not be negative")
	case c.Thresholds.Quantum <= 0:
		return errors.New("sample quantum must be positive")
	case c.Thresholds.Settle < 0:
		return errors.New("glitch delay must not be negative")
	case c.Thresholds.Short < 0 || c.Thresholds.Short >= c.Thresholds.Long:
		return fmt.Errorf("press thresholds must satisfy 0 <= short < long, got %d/%d", c.Thresholds.Short, c.Thresholds.Long)
	case !c.AlarmChannel.Valid():
		return fmt.Errorf("alarm channel must be 1 or 2, got %d", c.AlarmChannel)
	case c.Alarm.Validate() != rtc.Success:
		return errors.New("alarm values out of range")
	case c.Start.Validate() != rtc.Success:
		return errors.New("start date/time out of range")
	}
	return nil
}

type yamlField struct {
	Value   *int `yaml:"value"`
	Enabled bool `yaml:"enabled"`
}

type yamlAlarm struct {
	Enabled *bool      `yaml:"enabled"`
	Second  *yamlField `yaml:"second"`
	Minute  *yamlField `yaml:"minute"`
	Hour    *yamlField `yaml:"hour"`
	Day     *yamlField `yaml:"day"`
	Weekday *yamlField `yaml:"weekday"`
	Month   *yamlField `yaml:"month"`
}

type yamlConfig struct {
	GPIOChip      string     `yaml:"gpio_chip"`
	ButtonPin     *int       `yaml:"button_pin"`
	RTCDevice     string     `yaml:"rtc_device"`
	Broker        string     `yaml:"broker"`
	AlarmChannel  *int       `yaml:"alarm_channel"`
	Alarm         *yamlAlarm `yaml:"alarm"`
	Start         string     `yaml:"start"` // "2006-01-02 15:04:05"
	Attempts      *int       `yaml:"attempts"`
	RetryDelayMs  *int       `yaml:"retry_delay_ms"`
	SettleMs      *int       `yaml:"settle_ms"`
	SampleMs      *int       `yaml:"sample_ms"`
	GlitchMs      *int       `yaml:"glitch_ms"`
	ShortPressCnt *int       `yaml:"short_press_count"`
	LongPressCnt  *int       `yaml:"long_press_count"`
}

// Load reads the YAML file at path over the defaults.
// If the file does not exist, default settings are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	rawData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	return Parse(rawData)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	var fileData yamlConfig
	if err := yaml.Unmarshal(data, &fileData); err != nil {
		return cfg, fmt.Errorf("parse config yaml: %w", err)
	}
	if err := apply(&cfg, fileData); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func apply(cfg *Config, f yamlConfig) error {
	if f.GPIOChip != "" {
		cfg.GPIOChip = f.GPIOChip
	}
	if f.RTCDevice != "" {
		cfg.RTCDevice = f.RTCDevice
	}
	if f.Broker != "" {
		cfg.Broker = f.Broker
	}
	setInt(&cfg.ButtonPin, f.ButtonPin)
	setInt(&cfg.Attempts, f.Attempts)
	setInt(&cfg.Thresholds.Short, f.ShortPressCnt)
	setInt(&cfg.Thresholds.Long, f.LongPressCnt)
	setMillis(&cfg.RetryDelay, f.RetryDelayMs)
	setMillis(&cfg.SettleDelay, f.SettleMs)
	setMillis(&cfg.Thresholds.Quantum, f.SampleMs)
	setMillis(&cfg.Thresholds.Settle, f.GlitchMs)
	if f.AlarmChannel != nil {
		cfg.AlarmChannel = rtc.Channel(*f.AlarmChannel)
	}

	if f.Start != "" {
		t, err := time.Parse(time.DateTime, f.Start)
		if err != nil {
			return fmt.Errorf("parse start: %w", err)
		}
		cfg.Start = rtc.FromTime(t)
	}

	if a := f.Alarm; a != nil {
		if a.Enabled != nil {
			cfg.Alarm.Enabled = *a.Enabled
		}
		setField(&cfg.Alarm.Second, a.Second)
		setField(&cfg.Alarm.Minute, a.Minute)
		setField(&cfg.Alarm.Hour, a.Hour)
		setField(&cfg.Alarm.Day, a.Day)
		setField(&cfg.Alarm.Weekday, a.Weekday)
		setField(&cfg.Alarm.Month, a.Month)
	}
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setMillis(dst *time.Duration, v *int) {
	if v != nil {
		*dst = time.Duration(*v) * time.Millisecond
	}
}

func setField(dst *rtc.Field, v *yamlField) {
	if v == nil {
		return
	}
	dst.Enabled = v.Enabled
	if v.Value != nil {
		dst.Value = *v.Value
	}
}
