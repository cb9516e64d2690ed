package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Option customizes a Viper config.
type Option func(*viper.Viper)

// WithEnvPrefix lets environment variables named PREFIX_SECTION_KEY override
// the file value of section.key.
func WithEnvPrefix(prefix string) Option {
	return func(v *viper.Viper) {
		v.SetEnvPrefix(prefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}
}

// WithDefaults registers fallback values used when neither the file nor the
// environment provide a key.
func WithDefaults(defaults map[string]any) Option {
	return func(v *viper.Viper) {
		for k, val := range defaults {
			v.SetDefault(k, val)
		}
	}
}

// Viper is a Config implementation backed by github.com/spf13/viper.
type Viper struct {
	v *viper.Viper
}

// NewViper loads configuration from the given file path and watches it for changes.
//
// The config file type is inferred by Viper from the filename extension.
func NewViper(pathFile string, opts ...Option) (*Viper, error) {
	v := viper.New()
	for _, opt := range opts {
		opt(v)
	}

	filename := path.Base(pathFile)
	v.AddConfigPath(path.Dir(pathFile))
	v.SetConfigName(strings.TrimSuffix(filename, path.Ext(filename)))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("config file changed", "path", pathFile, "op", e.Op.String())
	})
	v.WatchConfig()

	return &Viper{v: v}, nil
}

// NewViperFromBytes loads configuration from memory.
// configType should be a format supported by Viper (e.g. "yaml", "json", "toml").
func NewViperFromBytes(configType string, data []byte, opts ...Option) (*Viper, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, errors.New("config type is required")
	}

	v := viper.New()
	for _, opt := range opts {
		opt(v)
	}
	v.SetConfigType(configType)

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	return &Viper{v: v}, nil
}

func (vc *Viper) GetBool(key string) bool       { return vc.v.GetBool(key) }
func (vc *Viper) GetInt(key string) int         { return vc.v.GetInt(key) }
func (vc *Viper) GetUint64(key string) uint64   { return vc.v.GetUint64(key) }
func (vc *Viper) GetFloat64(key string) float64 { return vc.v.GetFloat64(key) }
func (vc *Viper) GetString(key string) string   { return vc.v.GetString(key) }
func (vc *Viper) IsSet(key string) bool         { return vc.v.IsSet(key) }

// GetSecond returns the value for key as seconds.
func (vc *Viper) GetSecond(key string) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * time.Second
}

// GetMinute returns the value for key as minutes.
func (vc *Viper) GetMinute(key string) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * time.Minute
}

// GetHour returns the value for key as hours.
func (vc *Viper) GetHour(key string) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * time.Hour
}

// GetDay returns the value for key as days (24h).
func (vc *Viper) GetDay(key string) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * 24 * time.Hour
}

// GetDuration returns the value for key parsed as a duration string.
func (vc *Viper) GetDuration(key string) time.Duration {
	return vc.v.GetDuration(key)
}

// GetArray accepts both a yaml list and a comma separated string.
func (vc *Viper) GetArray(key string) []string {
	var items []string
	if raw, ok := vc.v.Get(key).([]any); ok {
		items = lo.Map(raw, func(item any, _ int) string { return strings.TrimSpace(fmt.Sprint(item)) })
	} else {
		items = lo.Map(strings.Split(vc.v.GetString(key), ","), func(item string, _ int) string {
			return strings.TrimSpace(item)
		})
	}

	return lo.Compact(items)
}

// GetMap accepts both a yaml mapping and "k:v,k:v" pairs.
func (vc *Viper) GetMap(key string) map[string]string {
	if sm := vc.v.GetStringMapString(key); len(sm) > 0 {
		return sm
	}

	m := make(map[string]string)
	for pair := range strings.SplitSeq(vc.v.GetString(key), ",") {
		if k, val, ok := strings.Cut(pair, ":"); ok {
			m[strings.TrimSpace(k)] = strings.TrimSpace(val)
		}
	}

	return m
}

// Close implements io.Closer.
func (vc *Viper) Close() error {
	return nil
}
