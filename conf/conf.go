// Package conf holds runtime settings for the whalecam service and the
// batch tracker. Settings are loaded with viper so every value has a sane
// default and can be overridden from a YAML file or environment.
package conf

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Settings is the root configuration structure.
type Settings struct {
	OutputDir string // tracking results (CSV logs, rendered videos)
	UploadDir string // uploaded source videos

	Model    ModelSettings
	Tracking TrackingSettings
	Server   ServerSettings

	Classes ClassTable
}

// ModelSettings configures the detector network and its acquisition.
type ModelSettings struct {
	WeightsPath   string
	ConfigPath    string
	NamesPath     string
	URL           string // optional remote location for the weights file
	InputSize     int    // square network input, pixels
	ConfThreshold float64
	NMSThreshold  float64
}

// TrackingSettings configures the per-session smoothing and logging loop.
type TrackingSettings struct {
	Alpha            float64 // EMA smoothing constant, shared by all tracks of a session
	FlushEveryFrames int     // periodic CSV overwrite cadence
	IoUThreshold     float64 // minimum overlap to link a detection to an existing track
	MaxLostFrames    int     // drop a track after this many consecutive misses
}

// ServerSettings configures the HTTP service layer.
type ServerSettings struct {
	Port             string
	StreamTTLMinutes int    // registered streams expire after this idle time
	DatabasePath     string // sqlite session records
	LogFile          string // rotated service log, empty for stderr only
}

// Load reads settings from the given config file path. An empty path or a
// missing file yields the defaults.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("whalecam")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	s := &Settings{
		OutputDir: v.GetString("output_dir"),
		UploadDir: v.GetString("upload_dir"),
		Model: ModelSettings{
			WeightsPath:   v.GetString("model.weights"),
			ConfigPath:    v.GetString("model.config"),
			NamesPath:     v.GetString("model.names"),
			URL:           v.GetString("model.url"),
			InputSize:     v.GetInt("model.input_size"),
			ConfThreshold: v.GetFloat64("model.conf_threshold"),
			NMSThreshold:  v.GetFloat64("model.nms_threshold"),
		},
		Tracking: TrackingSettings{
			Alpha:            v.GetFloat64("tracking.alpha"),
			FlushEveryFrames: v.GetInt("tracking.flush_every_frames"),
			IoUThreshold:     v.GetFloat64("tracking.iou_threshold"),
			MaxLostFrames:    v.GetInt("tracking.max_lost_frames"),
		},
		Server: ServerSettings{
			Port:             v.GetString("server.port"),
			StreamTTLMinutes: v.GetInt("server.stream_ttl_minutes"),
			DatabasePath:     v.GetString("server.database"),
			LogFile:          v.GetString("server.log_file"),
		},
	}

	classes, err := loadClassTable(v)
	if err != nil {
		return nil, err
	}
	s.Classes = classes

	return s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output_dir", "tracking_results")
	v.SetDefault("upload_dir", "tracking_results/uploads")

	v.SetDefault("model.weights", "models/whales.weights")
	v.SetDefault("model.config", "models/whales.cfg")
	v.SetDefault("model.names", "models/whales.names")
	v.SetDefault("model.url", "")
	v.SetDefault("model.input_size", 640)
	v.SetDefault("model.conf_threshold", 0.30)
	v.SetDefault("model.nms_threshold", 0.40)

	v.SetDefault("tracking.alpha", 0.30)
	v.SetDefault("tracking.flush_every_frames", 100)
	v.SetDefault("tracking.iou_threshold", 0.30)
	v.SetDefault("tracking.max_lost_frames", 30)

	v.SetDefault("server.port", "5000")
	v.SetDefault("server.stream_ttl_minutes", 120)
	v.SetDefault("server.database", "tracking_results/whalecam.db")
	v.SetDefault("server.log_file", "")
}
