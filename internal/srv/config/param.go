package config

import (
	_ "embed"
	"errors"
	"fmt"
	"time"
)

//go:embed param_default.yaml
var ParamDefaultFile []byte

type ServerParam struct {
	ImagesFolder  string      `yaml:"images_folder"`
	LabelsFile    string      `yaml:"labels_file"`
	CacheCapacity int         `yaml:"cache_capacity"`
	TimingParam   TimingParam `yaml:"timing"`
	BusParam      BusParam    `yaml:"bus"`
	ScreenParam   ScreenParam `yaml:"screen"`
	ApiParam      ApiParam    `yaml:"api"`
	MqttParam     MqttParam   `yaml:"mqtt"`
}

type TimingParam struct {
	PollPeriodMs          int64 `yaml:"poll_period_ms"`
	FrameRate             int64 `yaml:"frame_rate"`
	InactivitySeconds     int64 `yaml:"inactivity_seconds"`
	ScreensaverIntervalMs int64 `yaml:"screensaver_interval_ms"`
	JoinTimeoutMs         int64 `yaml:"join_timeout_ms"`
}

func (t TimingParam) PollPeriod() time.Duration {
	return time.Duration(t.PollPeriodMs) * time.Millisecond
}

func (t TimingParam) FramePeriod() time.Duration {
	return time.Second / time.Duration(t.FrameRate)
}

func (t TimingParam) Inactivity() time.Duration {
	return time.Duration(t.InactivitySeconds) * time.Second
}

func (t TimingParam) ScreensaverInterval() time.Duration {
	return time.Duration(t.ScreensaverIntervalMs) * time.Millisecond
}

func (t TimingParam) JoinTimeout() time.Duration {
	return time.Duration(t.JoinTimeoutMs) * time.Millisecond
}

type BusParam struct {
	// Name of the I²C bus, empty for the first available one
	Name       string           `yaml:"name"`
	MuxAddress uint16           `yaml:"mux_address"`
	SettleMs   int64            `yaml:"settle_ms"`
	TimeoutMs  int64            `yaml:"timeout_ms"`
	Switches   []BusDeviceParam `yaml:"switches"`
	Lcd        LcdParam         `yaml:"lcd"`
}

func (b BusParam) Settle() time.Duration {
	return time.Duration(b.SettleMs) * time.Millisecond
}

func (b BusParam) Timeout() time.Duration {
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

type BusDeviceParam struct {
	Channel int    `yaml:"channel"`
	Address uint16 `yaml:"address"`
}

type LcdParam struct {
	Enabled bool   `yaml:"enabled"`
	Channel int    `yaml:"channel"`
	Address uint16 `yaml:"address"`
	Cols    int    `yaml:"cols"`
	Rows    int    `yaml:"rows"`
}

type ScreenParam struct {
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Framebuffer string `yaml:"framebuffer"`
	Overlay     bool   `yaml:"overlay"`
	// 0 swaps images at once
	CrossfadeMs int64  `yaml:"crossfade_ms"`
}

func (s ScreenParam) Crossfade() time.Duration {
	return time.Duration(s.CrossfadeMs) * time.Millisecond
}

type ApiParam struct {
	Enabled bool   `yaml:"enabled"`
	SslPort int64  `yaml:"ssl_port"`
	ApiKey  string `yaml:"api_key"`
}

type MqttParam struct {
	Broker   string `yaml:"broker"`
	ClientId string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

const muxChannelCount = 8

func (p *ServerParam) Validate() error {
	if p.CacheCapacity < 1 {
		return fmt.Errorf("cache_capacity must be at least 1, got %d", p.CacheCapacity)
	}
	if p.TimingParam.PollPeriodMs <= 0 {
		return errors.New("timing.poll_period_ms must be positive")
	}
	if p.TimingParam.FrameRate <= 0 {
		return errors.New("timing.frame_rate must be positive")
	}
	if p.TimingParam.InactivitySeconds <= 0 {
		return errors.New("timing.inactivity_seconds must be positive")
	}
	if p.TimingParam.ScreensaverIntervalMs <= 0 {
		return errors.New("timing.screensaver_interval_ms must be positive")
	}
	if p.BusParam.TimeoutMs <= 0 {
		return errors.New("bus.timeout_ms must be positive")
	}
	if len(p.BusParam.Switches) != 3 {
		return fmt.Errorf("bus.switches must list 3 switches, got %d", len(p.BusParam.Switches))
	}
	for i, sw := range p.BusParam.Switches {
		if sw.Channel < 0 || sw.Channel >= muxChannelCount {
			return fmt.Errorf("bus.switches[%d].channel %d out of range", i, sw.Channel)
		}
	}
	if p.BusParam.Lcd.Enabled {
		if p.BusParam.Lcd.Channel < 0 || p.BusParam.Lcd.Channel >= muxChannelCount {
			return fmt.Errorf("bus.lcd.channel %d out of range", p.BusParam.Lcd.Channel)
		}
		if p.BusParam.Lcd.Cols <= 0 || p.BusParam.Lcd.Rows <= 0 {
			return errors.New("bus.lcd cols and rows must be positive")
		}
	}
	if p.ScreenParam.Width <= 0 || p.ScreenParam.Height <= 0 {
		return errors.New("screen width and height must be positive")
	}
	if p.ScreenParam.CrossfadeMs < 0 {
		return errors.New("screen.crossfade_ms must not be negative")
	}
	if p.ApiParam.Enabled && p.ApiParam.ApiKey == "" {
		return errors.New("api.api_key must be set when the api is enabled")
	}
	if p.MqttParam.Broker != "" && p.MqttParam.Topic == "" {
		return errors.New("mqtt.topic must be set when a broker is configured")
	}
	return nil
}
