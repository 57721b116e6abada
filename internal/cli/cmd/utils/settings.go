package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/matjam/scrollpaper/internal/scheduler"
	"github.com/matjam/scrollpaper/internal/types"
)

// Settings is the validated configuration of a running wallpaper.
type Settings struct {
	Wallpapers   []string         `json:"wallpapers"`
	Recursive    bool             `json:"recursive"`
	Duration     time.Duration    `json:"duration"`
	Fade         float64          `json:"fade"`
	Easing       types.EasingMode `json:"easing"`
	Backlog      int              `json:"backlog"`
	Grid         types.GridSize   `json:"grid"`
	Framerate    int              `json:"framerate_limit"`
	ForceWait    time.Duration    `json:"force_wait"`
	PollInterval time.Duration    `json:"poll_interval"`
	Seed         uint64           `json:"seed"`
	Metrics      bool             `json:"metrics"`
	Debug        bool             `json:"debug"`
}

// SetDefaults registers the default value of every setting with viper.
func SetDefaults() {
	viper.SetDefault("wallpapers", []string{"~/Pictures/wallpapers"})
	viper.SetDefault("recursive", false)
	viper.SetDefault("duration", 30)
	viper.SetDefault("fade", 0.8)
	viper.SetDefault("easing", string(types.EasingLinear))
	viper.SetDefault("backlog", 0)
	viper.SetDefault("grid", "1x1")
	viper.SetDefault("framerate_limit", 60)
	viper.SetDefault("force_wait", 60)
	viper.SetDefault("poll_interval", 5)
	viper.SetDefault("seed", 0)
	viper.SetDefault("metrics", true)
	viper.SetDefault("debug", false)
}

// LoadSettings reads the settings from viper and checks them.
func LoadSettings() (Settings, error) {
	grid, err := types.ParseGrid(viper.GetString("grid"))
	if err != nil {
		return Settings{}, err
	}

	s := Settings{
		Recursive:    viper.GetBool("recursive"),
		Duration:     seconds(viper.GetFloat64("duration")),
		Fade:         viper.GetFloat64("fade"),
		Easing:       types.EasingMode(viper.GetString("easing")),
		Backlog:      viper.GetInt("backlog"),
		Grid:         grid,
		Framerate:    viper.GetInt("framerate_limit"),
		ForceWait:    seconds(viper.GetFloat64("force_wait")),
		PollInterval: seconds(viper.GetFloat64("poll_interval")),
		Seed:         viper.GetUint64("seed"),
		Metrics:      viper.GetBool("metrics"),
		Debug:        viper.GetBool("debug"),
	}
	for _, dir := range viper.GetStringSlice("wallpapers") {
		s.Wallpapers = append(s.Wallpapers, CanonicalPath(dir))
	}

	return s, s.Validate()
}

func (s Settings) Validate() error {
	var errs []error
	if len(s.Wallpapers) == 0 {
		errs = append(errs, errors.New("wallpapers: at least one directory is required"))
	}
	if s.Duration <= 0 {
		errs = append(errs, fmt.Errorf("duration: must be positive, got %v", s.Duration))
	}
	if s.Fade < 0.5 || s.Fade > 1 {
		errs = append(errs, fmt.Errorf("fade: must be between 0.5 and 1.0, got %v", s.Fade))
	}
	if !s.Easing.Valid() {
		errs = append(errs, fmt.Errorf("easing: unknown mode %q", s.Easing))
	}
	if s.Backlog < 0 {
		errs = append(errs, fmt.Errorf("backlog: must not be negative, got %d", s.Backlog))
	}
	if s.Framerate <= 0 {
		errs = append(errs, fmt.Errorf("framerate_limit: must be positive, got %d", s.Framerate))
	}
	if s.ForceWait <= 0 {
		errs = append(errs, fmt.Errorf("force_wait: must be positive, got %v", s.ForceWait))
	}
	if s.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval: must be positive, got %v", s.PollInterval))
	}
	return errors.Join(errs...)
}

// SchedulerConfig returns the scheduler configuration. The scheduler ticks
// once per rendered frame.
func (s Settings) SchedulerConfig() scheduler.Config {
	return scheduler.Config{
		Duration:  s.Duration,
		Fade:      s.Fade,
		TickRate:  float64(s.Framerate),
		ForceWait: s.ForceWait,
		Easing:    s.Easing,
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
