package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lox/blackjack-server/internal/httpd"
)

func TestApplyOverrides(t *testing.T) {
	cfg := httpd.DefaultConfig()
	cfg.Game.SessionTTLMinutes = 30

	ttl := 10
	applyOverrides(cfg, "debug", &ttl, true)

	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 10, cfg.Game.SessionTTLMinutes)
	assert.True(t, cfg.Auth.AllowAll)
}

func TestApplyOverridesExplicitZeroDisablesTTL(t *testing.T) {
	cfg := httpd.DefaultConfig()
	cfg.Game.SessionTTLMinutes = 30

	zero := 0
	applyOverrides(cfg, "", &zero, false)

	assert.Equal(t, 0, cfg.Game.SessionTTLMinutes)
	assert.Zero(t, cfg.SessionTTL())
}

func TestApplyOverridesNothingSet(t *testing.T) {
	cfg := httpd.DefaultConfig()
	cfg.Game.SessionTTLMinutes = 30

	applyOverrides(cfg, "", nil, false)

	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 30, cfg.Game.SessionTTLMinutes)
	assert.False(t, cfg.Auth.AllowAll)
}
