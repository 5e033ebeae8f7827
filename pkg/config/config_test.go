package config

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PROGRESSION_DEFAULT_XP_PER_LEVEL", "0")
	t.Setenv("PROGRESSION_CLASSROOM_CACHE_TTL", "not-a-duration")
	t.Setenv("PROGRESSION_TIMEZONE", "America/Lima")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com , ,https://b.example.com")
	t.Setenv("JWT_AUDIENCE", "web,mobile")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Progression.DefaultXPPerLevel)
	assert.Equal(t, 5*time.Minute, cfg.Progression.ClassroomCacheTTL)
	assert.Equal(t, "America/Lima", cfg.Progression.Location().String())
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"web", "mobile"}, cfg.JWT.Audience)
	assert.Equal(t, 200, cfg.Progression.MaxStudentsPerCall)
}

func TestProgressionLocationFallback(t *testing.T) {
	assert.Equal(t, time.UTC, ProgressionConfig{}.Location())
	assert.Equal(t, time.UTC, ProgressionConfig{Timezone: "Mars/Olympus"}.Location())
}
