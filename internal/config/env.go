package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "CYOASEG_"

// ApplyEnv overrides fields from CYOASEG_* variables. Values that do not
// parse are left unchanged.
func (c *Config) ApplyEnv() {
	envString("INPUT", &c.InputPath)
	envString("OUTPUT", &c.OutputDir)
	envInt("WORKERS", &c.Workers)

	envInt("DPI", &c.Source.DPI)
	envInt("MAX_WIDTH", &c.Source.MaxWidth)
	envInt("MAX_WIDE_WIDTH", &c.Source.MaxWideWidth)

	envString("DETECTOR", &c.Illustrations.Detector)
	envInt("MIN_IMAGE_SIZE", &c.Illustrations.MinImageSize)
	envInt("COLOR_THRESHOLD", &c.Illustrations.ColorThreshold)
	envInt("RECURSIONS", &c.Illustrations.Recursions)

	envString("OCR_BACKEND", &c.OCR.Backend)
	envString("OCR_BINARY", &c.OCR.Binary)
	envString("OCR_LANGUAGE", &c.OCR.Language)
	envInt("OCR_PSM", &c.OCR.PageSegMode)
	envFloat("OCR_SCALE", &c.OCR.Scale)
	envFloat("OCR_BLUR", &c.OCR.Blur)
	envFloat("OCR_MIN_CONFIDENCE", &c.OCR.MinConfidence)
	envString("OCR_LEVEL", &c.OCR.Level)

	envString("TAGGER_BACKEND", &c.Tagger.Backend)
	envString("TAGGER_BINARY", &c.Tagger.Binary)
	envFloat("TAGGER_THRESHOLD", &c.Tagger.Threshold)
	envInt("TAGGER_MIN_PIXELS", &c.Tagger.MinPixels)

	envString("KEYWORDS_BACKEND", &c.Keywords.Backend)
	envString("KEYWORDS_BINARY", &c.Keywords.Binary)
	envInt("KEYWORDS_MIN_CHARS", &c.Keywords.MinChars)
	envFloat("KEYWORDS_THRESHOLD", &c.Keywords.Threshold)
	envInt("KEYWORDS_TOP_N", &c.Keywords.TopN)

	envInt("POOL_SIZE", &c.Collaborators.PoolSize)
	envInt("RETRIES", &c.Collaborators.Retries)
	envDuration("RETRY_DELAY", &c.Collaborators.RetryDelay)
	envDuration("TIMEOUT", &c.Collaborators.Timeout)

	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_FORMAT", &c.Log.Format)
}

func lookup(key string) (string, bool) {
	raw, ok := os.LookupEnv(EnvPrefix + key)
	raw = strings.TrimSpace(raw)
	return raw, ok && raw != ""
}

func envString(key string, dst *string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v, ok := lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v, ok := lookup(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v, ok := lookup(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
