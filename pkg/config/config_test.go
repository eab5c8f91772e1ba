package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaultsCarryGridConstants(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, "08:00", cfg.TimeGrid.WindowStart)
	assert.Equal(t, "20:00", cfg.TimeGrid.WindowEnd)
	assert.Equal(t, 50*time.Minute, cfg.TimeGrid.MeetingDuration)
	assert.Equal(t, 10*time.Minute, cfg.TimeGrid.SlotGap)
	assert.Equal(t, "11:50", cfg.TimeGrid.BlockedStart)
	assert.Equal(t, "13:00", cfg.TimeGrid.BlockedEnd)
	assert.True(t, cfg.Enrollment.EnforceWindow)
	assert.Equal(t, CacheDriverRedis, cfg.Cache.Driver)
	assert.Equal(t, "csv", cfg.SemesterClose.ReportFormat)
}

func TestOverridesFromViper(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("TIMEGRID_MEETING_DURATION", "75m")
	v.Set("TIMEGRID_SLOT_GAP", "not-a-duration")
	v.Set("CACHE_DRIVER", "MEMORY")
	cfg := fromViper(v)

	assert.Equal(t, 75*time.Minute, cfg.TimeGrid.MeetingDuration)
	assert.Equal(t, 10*time.Minute, cfg.TimeGrid.SlotGap)
	assert.Equal(t, CacheDriverMemory, cfg.Cache.Driver)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b "))
}
