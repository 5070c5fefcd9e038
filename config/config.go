// Package config loads the balancer's operator-set properties: per-table
// host regexes, IP-vs-name matching mode, and the two recheck periods.
// Values are read once, at Init, and exposed as immutable getters from
// then on.
package config

import (
	"fmt"
	"io/ioutil"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// HostRegexPrefix is the prefix every recognized property lives under.
// It is also the prefix the balancer asks the table catalog for when it
// reads per-table regex overrides out of a table's custom properties.
const HostRegexPrefix = "balancer.host.regex."

const (
	oobPeriodKey   = "balancer.host.regex.oob.period"
	poolRecheckKey = "balancer.host.regex.pool.check"
	isIPBasedKey   = "balancer.host.regex.is.ip"

	defaultOOBPeriod   = 5 * time.Minute
	defaultPoolRecheck = 1 * time.Minute
	defaultIsIPBased   = false
)

// Config is an immutable snapshot of the balancer's properties. It is
// produced once by Load or LoadYAML and never mutated afterward.
type Config struct {
	regexes     map[string]string
	oobPeriod   time.Duration
	poolRecheck time.Duration
	isIPBased   bool
}

// File is the on-disk shape of the balancer's slice of the master's YAML
// configuration document. Operators keep this alongside the rest of the
// master's settings rather than in a balancer-specific file.
type File struct {
	Properties map[string]string `yaml:"balancer"`
}

// LoadYAML reads a YAML document at path and parses it the same way Load
// parses an in-memory property map. The YAML document is expected to have
// a top-level "balancer" map whose keys are the dotted property names
// (e.g. "host.regex.oob.period"), which this function expands back to
// their fully-qualified form before delegating to Load.
func LoadYAML(path string) (Config, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
	}

	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Config{}, fmt.Errorf("could not parse config file %q: %w", path, err)
	}

	props := make(map[string]string, len(file.Properties))
	for key, value := range file.Properties {
		props["balancer."+key] = value
	}

	return Load(props)
}

// Load builds a Config from a flat property map such as the one the
// master's table catalog returns from propertiesWithPrefix. Unknown keys
// are ignored.
func Load(props map[string]string) (Config, error) {
	cfg := Config{
		regexes:     TableRegexes(props),
		oobPeriod:   defaultOOBPeriod,
		poolRecheck: defaultPoolRecheck,
		isIPBased:   defaultIsIPBased,
	}

	for key, value := range props {
		switch key {
		case oobPeriodKey:
			d, err := ParseDuration(value)
			if err != nil {
				return Config{}, fmt.Errorf("invalid value for %s: %w", oobPeriodKey, err)
			}
			cfg.oobPeriod = d
		case poolRecheckKey:
			d, err := ParseDuration(value)
			if err != nil {
				return Config{}, fmt.Errorf("invalid value for %s: %w", poolRecheckKey, err)
			}
			cfg.poolRecheck = d
		case isIPBasedKey:
			cfg.isIPBased = value == "true"
		}
	}

	return cfg, nil
}

// TableRegexes extracts the per-table regex entries from a flat property
// map, keyed by table name. The period and IP-mode keys live under the
// same prefix and are not regex entries; anything outside the prefix is
// ignored. The balancer uses this both on the master's own configuration
// and on each table's custom properties read back from the catalog.
func TableRegexes(props map[string]string) map[string]string {
	regexes := map[string]string{}

	for key, value := range props {
		switch key {
		case oobPeriodKey, poolRecheckKey, isIPBasedKey:
		default:
			if len(key) > len(HostRegexPrefix) && key[:len(HostRegexPrefix)] == HostRegexPrefix {
				regexes[key[len(HostRegexPrefix):]] = value
			}
		}
	}

	return regexes
}

// Regexes returns the configured table name -> regex mapping.
func (c Config) Regexes() map[string]string {
	return c.regexes
}

// OOBPeriod is the interval between out-of-bounds scans.
func (c Config) OOBPeriod() time.Duration {
	return c.oobPeriod
}

// PoolRecheckPeriod is the interval between pool-membership rebuilds.
func (c Config) PoolRecheckPeriod() time.Duration {
	return c.poolRecheck
}

// IsIPBased reports whether regexes match against raw IP strings rather
// than resolved host names.
func (c Config) IsIPBased() bool {
	return c.isIPBased
}

// ParseDuration parses the duration grammar: <integer><unit> where unit
// is one of s, m, h, d; an absent unit means milliseconds.
func ParseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, fmt.Errorf("empty duration")
	}

	unit := value[len(value)-1]
	numeric := value
	var multiplier time.Duration

	switch unit {
	case 's':
		multiplier = time.Second
		numeric = value[:len(value)-1]
	case 'm':
		multiplier = time.Minute
		numeric = value[:len(value)-1]
	case 'h':
		multiplier = time.Hour
		numeric = value[:len(value)-1]
	case 'd':
		multiplier = 24 * time.Hour
		numeric = value[:len(value)-1]
	default:
		multiplier = time.Millisecond
	}

	n, err := strconv.ParseInt(numeric, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse duration %q: %w", value, err)
	}

	return time.Duration(n) * multiplier, nil
}
