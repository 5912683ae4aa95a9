package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 64, cfg.Server.MaxUploadMB)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "dev_pdftoolbox", cfg.Axiom.Dataset)
	assert.Equal(t, "libreoffice", cfg.Converter.Binary)
	assert.Equal(t, 180*time.Second, cfg.Converter.Timeout)
	assert.InDelta(t, 200.0, cfg.Tools.DefaultSigWidthPt, 1e-9)
	assert.Equal(t, time.Hour, cfg.Scratch.SweepMaxAge)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_UPLOAD_MB", "128")
	t.Setenv("SIG_WIDTH_PT", "150.5")
	t.Setenv("CONVERTER_TIMEOUT", "90s")
	t.Setenv("AXIOM_DATASET", "prod")

	cfg := FromEnv()
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 128, cfg.Server.MaxUploadMB)
	assert.InDelta(t, 150.5, cfg.Tools.DefaultSigWidthPt, 1e-9)
	assert.Equal(t, 90*time.Second, cfg.Converter.Timeout)
	assert.Equal(t, "prod_pdftoolbox", cfg.Axiom.Dataset)
}

func TestFromEnvBadValuesFallBack(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "not-a-number")
	t.Setenv("CONVERTER_TIMEOUT", "soon")
	t.Setenv("SIG_WIDTH_PT", "wide")

	cfg := FromEnv()
	assert.Equal(t, 64, cfg.Server.MaxUploadMB)
	assert.Equal(t, 180*time.Second, cfg.Converter.Timeout)
	assert.InDelta(t, 200.0, cfg.Tools.DefaultSigWidthPt, 1e-9)
}
