package ingestion

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Canonical column names for the coverage dataset schema.
const (
	ColumnCountry         = "country"
	ColumnLocation        = "location"
	ColumnVaccineType     = "vaccine_type"
	ColumnAgeGroup        = "age_group"
	ColumnCoverageRate    = "coverage_rate"
	ColumnObservationDate = "observation_date"
	ColumnGender          = "gender"
)

// DefaultSchemaConfigPath is the default location for the vaxtrack configuration file.
// Uses hidden file format following common tool conventions (.eslintrc, .prettierrc, etc.).
const DefaultSchemaConfigPath = ".vaxtrack.yaml"

// SchemaConfigPathEnvVar is the environment variable name for a custom config path.
const SchemaConfigPathEnvVar = "VAXTRACK_CONFIG_PATH"

// requiredColumns must all be present in an upload header after alias resolution.
var requiredColumns = []string{
	ColumnCountry,
	ColumnLocation,
	ColumnVaccineType,
	ColumnAgeGroup,
	ColumnCoverageRate,
	ColumnObservationDate,
}

// defaultColumnAliases maps header names from older dataset families onto the
// canonical schema. Overridable and extendable via .vaxtrack.yaml.
var defaultColumnAliases = map[string]string{
	"region":      ColumnLocation,
	"report_date": ColumnObservationDate,
	"vaccine":     ColumnVaccineType,
	"rate":        ColumnCoverageRate,
}

// SchemaConfig holds CSV column alias configuration loaded from .vaxtrack.yaml.
//
// Different dataset families ship the same observations under different header
// names (region vs location, report_date vs observation_date). Aliases map
// family-specific headers onto the canonical column set so one parser serves
// all families.
type SchemaConfig struct {
	// ColumnAliases maps family-specific header names to canonical columns.
	// Key is the alias, value is the canonical column name.
	//nolint:tagliatelle // snake_case is intentional for YAML config files
	ColumnAliases map[string]string `yaml:"column_aliases"`
}

// LoadSchemaConfig loads column alias configuration from a YAML file at the given path.
//
// Behavior:
//   - Returns built-in aliases (not error) if file doesn't exist - overrides are optional
//   - Returns built-in aliases + logs warning if YAML is invalid (graceful degradation)
//   - Returns built-in aliases merged with file overrides on success
//
// This graceful degradation ensures the server can start even without a config
// file, as alias overrides are an optional feature.
func LoadSchemaConfig(path string) (*SchemaConfig, error) {
	cfg := &SchemaConfig{
		ColumnAliases: make(map[string]string, len(defaultColumnAliases)),
	}
	for alias, canonical := range defaultColumnAliases {
		cfg.ColumnAliases[alias] = canonical
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("Schema config file not found, continuing with built-in aliases",
				slog.String("path", path))

			return cfg, nil
		}

		slog.Warn("Failed to read schema config file, continuing with built-in aliases",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return cfg, nil
	}

	var fileCfg SchemaConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		slog.Warn("Invalid schema config YAML, continuing with built-in aliases",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return cfg, nil
	}

	for alias, canonical := range fileCfg.ColumnAliases {
		cfg.ColumnAliases[strings.ToLower(strings.TrimSpace(alias))] = strings.ToLower(strings.TrimSpace(canonical))
	}

	return cfg, nil
}

// SchemaConfigPath returns the config file path from the environment or the default.
func SchemaConfigPath() string {
	if path := os.Getenv(SchemaConfigPathEnvVar); path != "" {
		return path
	}

	return DefaultSchemaConfigPath
}

// Canonicalize resolves an upload header name to its canonical column name.
// Matching is case-insensitive and ignores surrounding whitespace. Headers
// without an alias pass through normalized, so unknown columns are preserved
// (and later ignored by the parser).
func (c *SchemaConfig) Canonicalize(header string) string {
	normalized := strings.ToLower(strings.TrimSpace(header))

	if canonical, ok := c.ColumnAliases[normalized]; ok {
		return canonical
	}

	return normalized
}
