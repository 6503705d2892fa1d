package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultReportConfigIsValid(t *testing.T) {
	cfg := DefaultReportConfig()
	require.NoError(t, ValidateReportConfig(cfg))
	assert.Equal(t, 10, cfg.ListLimit)
	assert.Equal(t, 7, cfg.WindowDays)
	assert.Len(t, cfg.LeadTimeBuckets, 6)
}

func TestLeadTimeBucketContains(t *testing.T) {
	upper := 3
	bounded := LeadTimeBucket{Label: "1-3 days", MinDays: 1, MaxDays: &upper}
	open := LeadTimeBucket{Label: "31+ days", MinDays: 31}

	assert.False(t, bounded.Contains(0))
	assert.True(t, bounded.Contains(1))
	assert.True(t, bounded.Contains(3))
	assert.False(t, bounded.Contains(4))
	assert.True(t, open.Contains(365))
}

func TestValidateReportConfigRejectsBadBuckets(t *testing.T) {
	cases := map[string][]LeadTimeBucket{
		"empty":          nil,
		"gap":            {{Label: "0", MinDays: 0, MaxDays: intPtr(0)}, {Label: "2+", MinDays: 2}},
		"not from zero":  {{Label: "1+", MinDays: 1}},
		"open in middle": {{Label: "0+", MinDays: 0}, {Label: "5+", MinDays: 5}},
		"closed last":    {{Label: "0-5", MinDays: 0, MaxDays: intPtr(5)}},
		"inverted":       {{Label: "0", MinDays: 0, MaxDays: intPtr(-1)}, {Label: "0+", MinDays: 0}},
		"blank label":    {{Label: " ", MinDays: 0}},
	}
	for name, buckets := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultReportConfig()
			cfg.LeadTimeBuckets = buckets
			assert.Error(t, ValidateReportConfig(cfg))
		})
	}
}

func TestValidateReportConfigRejectsBadLimits(t *testing.T) {
	cfg := DefaultReportConfig()
	cfg.ListLimit = 0
	assert.Error(t, ValidateReportConfig(cfg))

	cfg = DefaultReportConfig()
	cfg.ListLimit = 25
	assert.Error(t, ValidateReportConfig(cfg))

	cfg.ListLimit = MaxListLimit
	assert.NoError(t, ValidateReportConfig(cfg))

	cfg = DefaultReportConfig()
	cfg.HighValueThreshold = -1
	assert.Error(t, ValidateReportConfig(cfg))

	cfg = DefaultReportConfig()
	cfg.UncategorizedLabel = ""
	assert.Error(t, ValidateReportConfig(cfg))
}

func TestReportConfigFromFileMergesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.yml")
	content := `report:
  listLimit: 5
  leadTimeBuckets:
    - label: "same day"
      minDays: 0
      maxDays: 0
    - label: "later"
      minDays: 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	holder, err := NewReportConfigHolderFromFile(path, zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, 5, cfg.ListLimit)
	assert.Equal(t, 7, cfg.WindowDays)
	require.Len(t, cfg.LeadTimeBuckets, 2)
	assert.Equal(t, "same day", cfg.LeadTimeBuckets[0].Label)
	require.NotNil(t, cfg.LeadTimeBuckets[0].MaxDays)
	assert.Equal(t, 0, *cfg.LeadTimeBuckets[0].MaxDays)
	assert.Nil(t, cfg.LeadTimeBuckets[1].MaxDays)
}

func TestReportConfigFromFileRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.yml")
	require.NoError(t, os.WriteFile(path, []byte("report:\n  listLimit: -1\n"), 0o600))

	_, err := NewReportConfigHolderFromFile(path, zap.NewNop())
	assert.Error(t, err)
}

func TestStaticReportConfigHolder(t *testing.T) {
	cfg := DefaultReportConfig()
	cfg.ListLimit = 3
	holder, err := NewStaticReportConfigHolder(cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, holder.Get().ListLimit)
}
