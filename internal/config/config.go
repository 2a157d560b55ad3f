package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/switchboard/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to the env tag of every option.
const EnvPrefix = "SWITCHBOARD_"

var durationType = reflect.TypeFor[time.Duration]()

// LoadConfig fills the flat options struct behind opts from the TOML file
// named by its Config field and from SWITCHBOARD_* variables. Each field
// takes the first source that has a value: a flag changed on cmd, the
// environment, the file, then the flag default already in opts.
//
// Fields map to the file with `toml:"section.key"` and to the environment
// with `env:"KEY"`. Unparseable values are reported together; the fields
// they target keep their previous value.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	var file map[string]any
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String && f.String() != "" {
		data, err := os.ReadFile(f.String())
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("parse config %s: %w", f.String(), err)
			}
		}
	}

	var flags *pflag.FlagSet
	if cmd != nil {
		flags = cmd.Flags()
	}

	var errs []error
	for i := range t.NumField() {
		sf := t.Field(i)
		field := v.Field(i)
		if !field.CanSet() || flagChanged(flags, sf) {
			continue
		}
		if env := sf.Tag.Get("env"); env != "" {
			if s, ok := os.LookupEnv(EnvPrefix + env); ok && s != "" {
				if err := setFromString(field, s); err != nil {
					errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, env, err))
				}
				continue
			}
		}
		if key := sf.Tag.Get("toml"); key != "" && file != nil {
			if raw := lookup(file, key); raw != nil {
				if err := setFromTOML(field, raw); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", key, err))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func flagChanged(flags *pflag.FlagSet, sf reflect.StructField) bool {
	if flags == nil {
		return false
	}
	name := sf.Tag.Get("name")
	if name == "" {
		name = flagName(sf.Name)
	}
	f := flags.Lookup(name)
	return f != nil && f.Changed
}

// flagName kebab-cases a field name the way the CLI derives flag names,
// keeping acronyms together: NATSEnabled becomes nats-enabled.
func flagName(field string) string {
	runes := []rune(field)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			acronymEnd := unicode.IsUpper(runes[i-1]) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || acronymEnd {
				b.WriteByte('-')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// lookup walks a dotted key through nested TOML tables.
func lookup(data map[string]any, key string) any {
	head, rest, nested := strings.Cut(key, ".")
	v, ok := data[head]
	if !ok {
		return nil
	}
	if !nested {
		return v
	}
	table, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return lookup(table, rest)
}

func setFromTOML(field reflect.Value, raw any) error {
	if s, ok := raw.(string); ok {
		return setFromString(field, s)
	}
	switch field.Kind() {
	case reflect.Bool:
		b, ok := raw.(bool)
		if !ok {
			return fmt.Errorf("want bool, got %T", raw)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64, reflect.Int32:
		n, ok := raw.(int64)
		if !ok {
			return fmt.Errorf("want integer, got %T", raw)
		}
		if field.Type() == durationType {
			n *= int64(time.Second)
		}
		field.SetInt(n)
	case reflect.Float64:
		switch n := raw.(type) {
		case float64:
			field.SetFloat(n)
		case int64:
			field.SetFloat(float64(n))
		default:
			return fmt.Errorf("want number, got %T", raw)
		}
	case reflect.Slice:
		items, ok := raw.([]any)
		if !ok || field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("want string array, got %T", raw)
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("want string array element, got %T", item)
			}
			out = append(out, s)
		}
		field.Set(reflect.ValueOf(out))
	default:
		return fmt.Errorf("unsupported type %s for %T", field.Type(), raw)
	}
	return nil
}

func setFromString(field reflect.Value, s string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64, reflect.Int32:
		if field.Type() == durationType {
			d, err := time.ParseDuration(s)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(s, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported type %s", field.Type())
		}
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		field.Set(reflect.ValueOf(out))
	default:
		return fmt.Errorf("unsupported type %s", field.Type())
	}
	return nil
}

// LoadLoggingConfig reads the [logging] table of a config file. Keys other
// than level, format and buffer_size are per-module levels. A missing or
// unreadable file yields info-level text logging.
func LoadLoggingConfig(path string) logging.Config {
	cfg := logging.Config{Level: "info", Format: "text", Modules: map[string]string{}}
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	var raw struct {
		Logging map[string]any `toml:"logging"`
	}
	if toml.Unmarshal(data, &raw) != nil {
		return cfg
	}
	for key, value := range raw.Logging {
		switch v := value.(type) {
		case string:
			switch key {
			case "level":
				cfg.Level = v
			case "format":
				cfg.Format = v
			default:
				cfg.Modules[key] = v
			}
		case int64:
			if key == "buffer_size" {
				cfg.BufferSize = int(v)
			}
		}
	}
	return cfg
}
