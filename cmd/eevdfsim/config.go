package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"eevdf/pkg/eevdf"
)

const (
	envVariant           = "EEVDFSIM_VARIANT"
	envShards            = "EEVDFSIM_SHARDS"
	envSourceKind        = "EEVDFSIM_SOURCE"
	envSourcePath        = "EEVDFSIM_SOURCE_PATH"
	envRedisAddr         = "EEVDFSIM_REDIS_ADDR"
	envRedisKey          = "EEVDFSIM_REDIS_KEY"
	envReportPath        = "EEVDFSIM_REPORT_PATH"
	envPlaceLag          = "EEVDFSIM_PLACE_LAG"
	envPlaceRelDeadline  = "EEVDFSIM_PLACE_REL_DEADLINE"
	envDeadlineTolerance = "EEVDFSIM_DEADLINE_TOLERANCE"
	envLagClamp          = "EEVDFSIM_LAG_CLAMP_FACTOR"
	envLogLevel          = "EEVDFSIM_LOG_LEVEL"
	defaultLogLevel      = "info"
)

// runtimeConfig is the fully resolved configuration for one eevdfsim run.
type runtimeConfig struct {
	Variant           eevdf.Variant
	Shards            int
	SourceKind        string
	SourcePath        string
	RedisAddr         string
	RedisKey          string
	ReportPath        string
	PlaceLag          bool
	PlaceRelDeadline  bool
	// DeadlineTolerance is a raw, whole-unit real-time amount (the same
	// units a trace's "delta exec" field carries), converted to fixed.Q via
	// fixed.FromInt64 when building eevdf.Options.
	DeadlineTolerance int64
	LagClampFactor    int64
	LogLevel          string
}

// fileConfig mirrors runtimeConfig's shape for YAML decoding, using
// pointers so an absent field never silently overwrites a default.
type fileConfig struct {
	Variant           *string `yaml:"variant"`
	Shards            *int    `yaml:"shards"`
	SourceKind        *string `yaml:"sourceKind"`
	SourcePath        *string `yaml:"sourcePath"`
	RedisAddr         *string `yaml:"redisAddr"`
	RedisKey          *string `yaml:"redisKey"`
	ReportPath        *string `yaml:"reportPath"`
	PlaceLag          *bool   `yaml:"placeLag"`
	PlaceRelDeadline  *bool   `yaml:"placeRelDeadline"`
	DeadlineTolerance *int64  `yaml:"deadlineTolerance"`
	LagClampFactor    *int64  `yaml:"lagClampFactor"`
	LogLevel          *string `yaml:"logLevel"`
}

func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		Variant:    eevdf.VariantWeighted,
		Shards:     1,
		SourceKind: "mock",
		LogLevel:   defaultLogLevel,
	}
}

func loadConfig(path string) (runtimeConfig, error) {
	cfg := defaultRuntimeConfig()

	trimmed := strings.TrimSpace(path)
	if trimmed != "" {
		data, err := os.ReadFile(trimmed)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return runtimeConfig{}, fmt.Errorf("read config file %q: %w", trimmed, err)
			}
		} else {
			var fc fileConfig
			if err := yaml.Unmarshal(data, &fc); err != nil {
				return runtimeConfig{}, fmt.Errorf("decode config file %q: %w", trimmed, err)
			}
			mergeFileConfig(&cfg, fc)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return runtimeConfig{}, err
	}
	if cfg.Shards <= 0 {
		cfg.Shards = 1
	}
	return cfg, nil
}

func mergeFileConfig(dst *runtimeConfig, src fileConfig) {
	if src.Variant != nil {
		dst.Variant = parseVariant(*src.Variant, dst.Variant)
	}
	assignInt(&dst.Shards, src.Shards)
	assignString(&dst.SourceKind, src.SourceKind)
	assignString(&dst.SourcePath, src.SourcePath)
	assignString(&dst.RedisAddr, src.RedisAddr)
	assignString(&dst.RedisKey, src.RedisKey)
	assignString(&dst.ReportPath, src.ReportPath)
	if src.PlaceLag != nil {
		dst.PlaceLag = *src.PlaceLag
	}
	if src.PlaceRelDeadline != nil {
		dst.PlaceRelDeadline = *src.PlaceRelDeadline
	}
	if src.DeadlineTolerance != nil {
		dst.DeadlineTolerance = *src.DeadlineTolerance
	}
	if src.LagClampFactor != nil {
		dst.LagClampFactor = *src.LagClampFactor
	}
	assignString(&dst.LogLevel, src.LogLevel)
}

func applyEnvOverrides(cfg *runtimeConfig) error {
	if v, ok := os.LookupEnv(envVariant); ok {
		cfg.Variant = parseVariant(v, cfg.Variant)
	}
	if v, ok := os.LookupEnv(envShards); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", envShards, err)
		}
		cfg.Shards = n
	}
	cfg.SourceKind = envString(envSourceKind, cfg.SourceKind)
	cfg.SourcePath = envString(envSourcePath, cfg.SourcePath)
	cfg.RedisAddr = envString(envRedisAddr, cfg.RedisAddr)
	cfg.RedisKey = envString(envRedisKey, cfg.RedisKey)
	cfg.ReportPath = envString(envReportPath, cfg.ReportPath)
	cfg.LogLevel = envString(envLogLevel, cfg.LogLevel)
	if v, ok := os.LookupEnv(envPlaceLag); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", envPlaceLag, err)
		}
		cfg.PlaceLag = b
	}
	if v, ok := os.LookupEnv(envPlaceRelDeadline); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", envPlaceRelDeadline, err)
		}
		cfg.PlaceRelDeadline = b
	}
	if v, ok := os.LookupEnv(envDeadlineTolerance); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", envDeadlineTolerance, err)
		}
		cfg.DeadlineTolerance = n
	}
	if v, ok := os.LookupEnv(envLagClamp); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", envLagClamp, err)
		}
		cfg.LagClampFactor = n
	}
	return nil
}

func parseVariant(s string, fallback eevdf.Variant) eevdf.Variant {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weighted", "":
		return eevdf.VariantWeighted
	case "averaged":
		return eevdf.VariantAveraged
	default:
		return fallback
	}
}

func assignInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func assignString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
