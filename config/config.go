// Package config provides application level configuration for the portal,
// built on koanf. Values are loaded in the following order, with later
// sources overriding earlier ones:
//
//  1. Built-in defaults (in init())
//  2. Auto-discovered regnum.yaml (current directory or any parent)
//  3. Environment variables with a REGNUM__ prefix
//  4. Additional sources loaded via LoadFile() or LoadDefaults()
//
// Environment variable transformation:
//   - REGNUM__AUTH__ORG_DOMAIN → auth.orgDomain
//   - REGNUM__AUTH__BYPASS_GROUP_CHECK → auth.bypassGroupCheck
//
// The auth gate never reads config ad hoc at check time. Call Resolve() once
// at startup and pass the resulting Settings to the components that need it.
package config

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Filename of the standard configuration file.
const ConfigFile = "regnum.yaml"

// Config is a global koanf instance used to access application level
// configuration options.
var Config = koanf.New(".")

func init() {
	if err := Config.Load(confmap.Provider(defaults, "."), nil); err != nil {
		panic("config: error loading defaults: " + err.Error())
	}

	// Look for a regnum.yaml file in the current directory or any parent.
	if cfg := searchForConfig(ConfigFile, "."); cfg != "" {
		if err := Config.Load(file.Provider(cfg), yaml.Parser()); err != nil {
			panic("config: error loading " + cfg + ": " + err.Error())
		}
	}

	// Load environment variables with the prefix REGNUM__.
	if err := Config.Load(env.Provider(envPrefix, ".", transformEnv), nil); err != nil {
		panic("config: error loading env config: " + err.Error())
	}
}

var defaults = map[string]interface{}{
	"auth.bypassGroupCheck":   false,
	"auth.membershipCacheTtl": "300s",
	"auth.expiration":         "24h",
	"auth.orgDomain":          "westkingdom.org",
	"auth.requiredGroup":      "regnum-site@westkingdom.org",
	"auth.contactAddress":     "webminister@westkingdom.org",
	"auth.impersonateUser":    "webminister@westkingdom.org",
	"auth.redirectUrl":        "http://localhost:8501",
}

// LoadFile loads additional configuration from a YAML file into the global
// Config instance. Call this before resolving settings.
func LoadFile(path string) {
	if err := Config.Load(file.Provider(path), yaml.Parser()); err != nil {
		panic("config: error loading config file '" + path + "': " + err.Error())
	}
}

// LoadDefaults loads default configuration values into the global Config
// instance. Useful in tests and for host applications that want to provide
// their own defaults before files and env vars are considered.
func LoadDefaults(values map[string]interface{}) {
	if err := Config.Load(confmap.Provider(values, "."), nil); err != nil {
		panic("config: error loading config defaults: " + err.Error())
	}
}

// String returns the string value for the given key.
func String(key string) string {
	return Config.String(key)
}

// Int returns the int value for the given key.
func Int(key string) int {
	return Config.Int(key)
}

// Bool returns the bool value for the given key.
func Bool(key string) bool {
	return Config.Bool(key)
}

// Duration returns the duration value for the given key. Duration strings
// like "5m", "1h", "30s" are parsed automatically.
func Duration(key string) time.Duration {
	return Config.Duration(key)
}

// Exists checks if the given key exists in the configuration.
func Exists(key string) bool {
	return Config.Exists(key)
}
