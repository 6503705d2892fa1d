package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// LeadTimeBucket is one range of the booking lead-time distribution.
// A nil MaxDays marks the open-ended last bucket.
type LeadTimeBucket struct {
	Label   string
	MinDays int
	MaxDays *int
}

// Contains reports whether days falls inside the bucket.
func (b LeadTimeBucket) Contains(days int) bool {
	if days < b.MinDays {
		return false
	}
	return b.MaxDays == nil || days <= *b.MaxDays
}

// MaxListLimit caps every list report, whatever report.yml asks for.
const MaxListLimit = 10

// ReportConfig tunes the report engine. Every field has a default.
type ReportConfig struct {
	LeadTimeBuckets     []LeadTimeBucket
	ListLimit           int
	WindowDays          int
	HighValueThreshold  float64
	LongStayNights      int
	MissingReviewRating float64
	UnknownGuestLabel   string
	UnknownRoomLabel    string
	UncategorizedLabel  string
}

func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		LeadTimeBuckets: []LeadTimeBucket{
			{Label: "0 days", MinDays: 0, MaxDays: intPtr(0)},
			{Label: "1-3 days", MinDays: 1, MaxDays: intPtr(3)},
			{Label: "4-7 days", MinDays: 4, MaxDays: intPtr(7)},
			{Label: "8-14 days", MinDays: 8, MaxDays: intPtr(14)},
			{Label: "15-30 days", MinDays: 15, MaxDays: intPtr(30)},
			{Label: "31+ days", MinDays: 31, MaxDays: nil},
		},
		ListLimit:           MaxListLimit,
		WindowDays:          7,
		HighValueThreshold:  500,
		LongStayNights:      7,
		MissingReviewRating: 0,
		UnknownGuestLabel:   "Unknown Guest",
		UnknownRoomLabel:    "Unknown Room",
		UncategorizedLabel:  "Uncategorized",
	}
}

func intPtr(v int) *int { return &v }

type ReportConfigHolder struct {
	current atomic.Value // holds ReportConfig
}

// NewReportConfigHolder reads report.yml from the standard locations and
// watches it for changes. A missing file yields the defaults.
func NewReportConfigHolder(log *zap.Logger) (*ReportConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("report")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/hotelops/config")
	v.AddConfigPath("/etc/hotelops")
	v.AddConfigPath(".")

	return newReportConfigHolder(v, log)
}

// NewReportConfigHolderFromFile reads the report config from an explicit path.
func NewReportConfigHolderFromFile(path string, log *zap.Logger) (*ReportConfigHolder, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return newReportConfigHolder(v, log)
}

// NewStaticReportConfigHolder wraps a fixed config without file watching.
func NewStaticReportConfigHolder(cfg ReportConfig) (*ReportConfigHolder, error) {
	if err := ValidateReportConfig(cfg); err != nil {
		return nil, err
	}
	holder := &ReportConfigHolder{}
	holder.current.Store(cfg)
	return holder, nil
}

func newReportConfigHolder(v *viper.Viper, log *zap.Logger) (*ReportConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.report")

	v.SetEnvPrefix("HOTELOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	cfg, err := decodeReportConfig(v)
	if err != nil {
		return nil, err
	}

	holder := &ReportConfigHolder{}
	holder.current.Store(cfg)

	if !fileLoaded {
		log.Info("report config file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeReportConfig(v)
		if err != nil {
			log.Warn("report config reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("report config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func decodeReportConfig(v *viper.Viper) (ReportConfig, error) {
	cfg := DefaultReportConfig()
	if v.IsSet("report.leadTimeBuckets") {
		cfg.LeadTimeBuckets = nil
	}
	if v.IsSet("report") {
		if err := v.UnmarshalKey("report", &cfg); err != nil {
			return ReportConfig{}, err
		}
	}
	if err := ValidateReportConfig(cfg); err != nil {
		return ReportConfig{}, err
	}
	return cfg, nil
}

func (h *ReportConfigHolder) Get() ReportConfig {
	return h.current.Load().(ReportConfig)
}

// ValidateReportConfig checks that lead-time buckets partition [0, inf):
// contiguous and ascending from zero, with an open-ended last bucket.
func ValidateReportConfig(cfg ReportConfig) error {
	if len(cfg.LeadTimeBuckets) == 0 {
		return errors.New("report.leadTimeBuckets cannot be empty")
	}
	next := 0
	for i, bucket := range cfg.LeadTimeBuckets {
		if strings.TrimSpace(bucket.Label) == "" {
			return fmt.Errorf("report.leadTimeBuckets[%d]: label is required", i)
		}
		if bucket.MinDays != next {
			return fmt.Errorf("report.leadTimeBuckets[%d]: expected minDays %d, got %d", i, next, bucket.MinDays)
		}
		last := i == len(cfg.LeadTimeBuckets)-1
		if last != (bucket.MaxDays == nil) {
			return fmt.Errorf("report.leadTimeBuckets[%d]: the last bucket, and only the last, must be open-ended", i)
		}
		if bucket.MaxDays == nil {
			continue
		}
		if *bucket.MaxDays < bucket.MinDays {
			return fmt.Errorf("report.leadTimeBuckets[%d]: maxDays below minDays", i)
		}
		next = *bucket.MaxDays + 1
	}
	if cfg.ListLimit <= 0 || cfg.ListLimit > MaxListLimit {
		return fmt.Errorf("report.listLimit must be between 1 and %d", MaxListLimit)
	}
	if cfg.WindowDays <= 0 {
		return errors.New("report.windowDays must be positive")
	}
	if cfg.LongStayNights <= 0 {
		return errors.New("report.longStayNights must be positive")
	}
	if cfg.HighValueThreshold < 0 || math.IsNaN(cfg.HighValueThreshold) || math.IsInf(cfg.HighValueThreshold, 0) {
		return errors.New("report.highValueThreshold must be a non-negative number")
	}
	if cfg.MissingReviewRating < 0 || math.IsNaN(cfg.MissingReviewRating) || math.IsInf(cfg.MissingReviewRating, 0) {
		return errors.New("report.missingReviewRating must be a non-negative number")
	}
	if strings.TrimSpace(cfg.UnknownGuestLabel) == "" || strings.TrimSpace(cfg.UnknownRoomLabel) == "" {
		return errors.New("report placeholder labels cannot be empty")
	}
	if strings.TrimSpace(cfg.UncategorizedLabel) == "" {
		return errors.New("report.uncategorizedLabel cannot be empty")
	}
	return nil
}
