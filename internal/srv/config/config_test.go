package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewServerConfigCreatesDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artbox")

	sc, err := NewServerConfig(dir, false, true, false, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(sc.GetCompleteParamFilename()); err != nil {
		t.Errorf("default param file not written: %v", err)
	}
	if sc.CacheCapacity != 25 {
		t.Errorf("cache capacity: expected 25, got %d", sc.CacheCapacity)
	}
	if sc.TimingParam.PollPeriod() != 50*time.Millisecond {
		t.Errorf("poll period: expected 50ms, got %v", sc.TimingParam.PollPeriod())
	}
	if sc.TimingParam.Inactivity() != 5*time.Minute {
		t.Errorf("inactivity: expected 5m, got %v", sc.TimingParam.Inactivity())
	}
	if sc.TimingParam.ScreensaverInterval() != 3*time.Second {
		t.Errorf("screensaver interval: expected 3s, got %v", sc.TimingParam.ScreensaverInterval())
	}
	if sc.BusParam.MuxAddress != 0x70 {
		t.Errorf("mux address: expected 0x70, got 0x%02X", sc.BusParam.MuxAddress)
	}
	if got := sc.BusParam.Switches[2]; got.Channel != 0 || got.Address != 0x24 {
		t.Errorf("third switch: unexpected %+v", got)
	}
	if sc.ScreenParam.Crossfade() != 400*time.Millisecond {
		t.Errorf("crossfade: expected 400ms, got %v", sc.ScreenParam.Crossfade())
	}
	if sc.ImagesFolder != filepath.Join(dir, "images") {
		t.Errorf("images folder: got %s", sc.ImagesFolder)
	}
}

func TestNewServerConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	param := "cache_capacity: 10\ntiming:\n  poll_period_ms: 20\n"
	if err := os.WriteFile(filepath.Join(dir, paramFilename), []byte(param), 0660); err != nil {
		t.Fatal(err)
	}
	images := t.TempDir()

	sc, err := NewServerConfig(dir, false, false, true, images)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.CacheCapacity != 10 {
		t.Errorf("cache capacity: expected 10, got %d", sc.CacheCapacity)
	}
	if sc.TimingParam.PollPeriodMs != 20 {
		t.Errorf("poll period: expected 20, got %d", sc.TimingParam.PollPeriodMs)
	}
	// untouched keys keep their default
	if sc.TimingParam.FrameRate != 30 {
		t.Errorf("frame rate: expected 30, got %d", sc.TimingParam.FrameRate)
	}
	if sc.ImagesFolder != images {
		t.Errorf("images folder: expected %s, got %s", images, sc.ImagesFolder)
	}
	if !sc.WindowedMode {
		t.Error("windowed mode not kept")
	}
}

func TestNewServerConfigInvalid(t *testing.T) {
	tests := []struct {
		name  string
		param string
		want  string
	}{
		{"capacity", "cache_capacity: 0\n", "cache_capacity"},
		{"channel", "bus:\n  switches:\n    - {channel: 9, address: 0x24}\n    - {channel: 1, address: 0x24}\n    - {channel: 2, address: 0x24}\n", "channel 9"},
		{"switch count", "bus:\n  switches:\n    - {channel: 1, address: 0x24}\n", "3 switches"},
		{"syntax", "cache_capacity: [\n", "interpret"},
		{"api key", "api:\n  enabled: true\n", "api_key"},
		{"crossfade", "screen:\n  crossfade_ms: -1\n", "crossfade_ms"},
		{"mqtt topic", "mqtt:\n  broker: tcp://localhost:1883\n  topic: \"\"\n", "mqtt.topic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, paramFilename), []byte(tt.param), 0660); err != nil {
				t.Fatal(err)
			}
			_, err := NewServerConfig(dir, false, false, false, "")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLabelsFileCandidates(t *testing.T) {
	sc := &ServerConfig{
		ConfigDir:   "/etc/artbox",
		ServerParam: &ServerParam{ImagesFolder: "/srv/art/images", LabelsFile: "/tmp/custom.json"},
	}

	got := sc.LabelsFileCandidates()
	want := []string{"/tmp/custom.json", "/srv/art/images/labels.json", "/srv/art/labels.json", "/etc/artbox/labels.json"}
	if len(got) != len(want) {
		t.Fatalf("expected %d candidates, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
