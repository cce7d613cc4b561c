// Package config loads daemon options with the usual precedence: CLI
// flags beat environment variables beat the TOML file.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// envPrefix namespaces the daemon's environment variables.
const envPrefix = "LEDPD_"

// Load fills opts (a pointer to a flat struct) from the TOML file named
// by its `Config` field and from LEDPD_* environment variables, keyed
// by `toml:"section.key"` and `env:"KEY"` struct tags. Fields whose
// flags were explicitly set on cmd are left alone.
func Load(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changed := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changed[f.Name] = true
			}
		})
	}

	var configPath string
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String {
		configPath = f.String()
	}

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			var tree map[string]any
			if err := toml.Unmarshal(data, &tree); err != nil {
				return fmt.Errorf("config: parse %s: %w", configPath, err)
			}
			for i := 0; i < v.NumField(); i++ {
				field := v.Field(i)
				tag := t.Field(i).Tag.Get("toml")
				if tag == "" || changed[flagName(t.Field(i).Name)] {
					continue
				}
				if value := lookup(tree, tag); value != nil {
					if err := setField(field, value); err != nil {
						return fmt.Errorf("config: %s: %w", tag, err)
					}
				}
			}
		}
	}

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		key := t.Field(i).Tag.Get("env")
		if key == "" || changed[flagName(t.Field(i).Name)] {
			continue
		}
		if raw := os.Getenv(envPrefix + key); raw != "" {
			if err := setFieldString(field, raw); err != nil {
				return fmt.Errorf("config: %s%s: %w", envPrefix, key, err)
			}
		}
	}

	return nil
}

// flagName converts a struct field name to its CLI flag name the same
// way humacli does ("UDPPort" -> "udp-port", "LoggingLevel" ->
// "logging-level").
func flagName(field string) string {
	runes := []rune(field)
	var out []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || nextLower {
				out = append(out, '-')
			}
		}
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}

// lookup resolves a dotted path ("listener.port") in a decoded TOML tree.
func lookup(tree map[string]any, path string) any {
	parts := strings.Split(path, ".")
	var cur any = tree
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[part]
		if !ok {
			return nil
		}
	}
	return cur
}

func setField(field reflect.Value, value any) error {
	switch field.Kind() {
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("want string, got %T", value)
		}
		field.SetString(s)
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("want bool, got %T", value)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, ok := value.(int64)
		if !ok {
			return fmt.Errorf("want integer, got %T", value)
		}
		field.SetInt(n)
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

func setFieldString(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}
