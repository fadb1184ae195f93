package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("QUIZ_TIMED_SECONDS", "")
	t.Setenv("QUIZ_PRACTICE_LIMIT", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg := Load()

	assert.Equal(t, 2*time.Hour, cfg.Quiz.TimedBudget)
	assert.Equal(t, 10*time.Minute, cfg.Quiz.PracticeBudget)
	assert.Equal(t, 10, cfg.Quiz.PracticeLimit)
	assert.Nil(t, cfg.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("QUIZ_TIMED_SECONDS", "90")
	t.Setenv("QUIZ_SESSION_IDLE_TTL_MINUTES", "15")
	t.Setenv("MAGIC_LINK_COOLDOWN_SECONDS", "not-a-number")
	t.Setenv("IDENTITY_URL", "https://id.example.com/")
	t.Setenv("IDENTITY_TOKEN_URL", "")

	cfg := Load()

	assert.Equal(t, 90*time.Second, cfg.Quiz.TimedBudget)
	assert.Equal(t, 15*time.Minute, cfg.Quiz.IdleTTL)
	assert.Equal(t, time.Minute, cfg.MagicLinkCooldown)
	assert.Equal(t, "https://id.example.com", cfg.Identity.BaseURL)
	assert.Equal(t, "https://id.example.com/auth/v1/token?grant_type=pkce", cfg.Identity.TokenURL)
}

func TestParseOrigins(t *testing.T) {
	assert.Nil(t, parseOrigins(""))
	assert.Equal(t, []string{"https://a.et", "https://b.et"}, parseOrigins(" https://a.et , ,https://b.et"))
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "login:learner:abc", CacheKey.LearnerSessionKey("abc"))
	assert.Equal(t, "magic_link:cooldown:a@b.et", CacheKey.MagicLinkCooldownKey("a@b.et"))
}
