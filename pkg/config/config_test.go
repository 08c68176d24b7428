package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 366, cfg.Schedule.MaxOccurrences)
	assert.Equal(t, 2*time.Minute, cfg.Attendance.CacheTTL)
	assert.True(t, cfg.Attendance.CacheEnabled)
	assert.Equal(t, 2, cfg.Notifications.Workers)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ATTENDANCE_CACHE_TTL", "not-a-duration")
	v.Set("SCHEDULE_MAX_OCCURRENCES", -4)
	v.Set("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := fromViper(v)

	assert.Equal(t, 2*time.Minute, cfg.Attendance.CacheTTL)
	assert.Equal(t, 366, cfg.Schedule.MaxOccurrences)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestScheduleLocationFallback(t *testing.T) {
	loc := ScheduleConfig{Timezone: "Nowhere/Invalid"}.Location()
	require.NotNil(t, loc)

	_, offset := time.Date(2024, 3, 1, 12, 0, 0, 0, loc).Zone()
	assert.Equal(t, 7*60*60, offset)

	assert.Equal(t, time.UTC, ScheduleConfig{Timezone: "UTC"}.Location())
}
