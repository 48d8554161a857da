// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/movira-cli/movira/color"
	"github.com/movira-cli/movira/constant"
	"github.com/movira-cli/movira/key"
	"github.com/movira-cli/movira/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.Movira + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

// typeName returns the string representation of the field's underlying value type.
func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	case float64:
		return "float64"
	case []string:
		return "[]string"
	default:
		return "unknown"
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func init() {
	// register validates and adds a new configuration field to the global registry.
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		f := Field{Key: k, Value: v, Description: desc}
		Default[k] = f
		EnvExposed = append(EnvExposed, k)
	}

	register(key.CatalogBaseURL, "https://phimapi.com", "Base URL of the movie catalog API")
	register(key.CatalogPageSize, 24, "Number of catalog items per page")

	register(key.PlayerAutoPlay, true, "Start playback automatically once the stream is ready")
	register(key.PlayerDefaultVolume, 1.0, "Default playback volume. From 0.0 to 1.0")
	register(key.PlayerDefaultSpeed, 1.0, "Default playback speed.\nAvailable options are: 0.25, 0.5, 0.75, 1, 1.25, 1.5, 1.75, 2")
	register(key.PlayerSkipForward, 10, "Seconds skipped by the skip-forward command")
	register(key.PlayerSkipBackward, 10, "Seconds skipped by the skip-backward command")
	register(key.PlayerDoubleTapSkip, 10, "Seconds skipped per double tap on the player edges")
	register(key.PlayerThumbnailPreview, true, "Render scrub thumbnails with the silent preview engine while seeking")

	register(key.ResumeAuto, true, "Offer to continue from the last watched position")
	register(key.ResumeThreshold, 30, "Minimum saved position in seconds before a resume offer is shown")
	register(key.ResumeCountdown, 8, "Seconds before an unanswered resume offer resumes automatically")

	register(key.HistorySaveOnWatch, true, "Persist playback progress to the watch history")
	register(key.HistoryMaxEntries, 20, "Maximum number of retained watch history entries")

	register(key.NetworkBrowserFingerprint, true, "Use a browser TLS fingerprint for catalog and embed page requests")

	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")

	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliSearchLimit, 20, "Limit of search results to show")
	register(key.CliShowThumbURL, false, "Show thumbnail URLs under search results")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"cyan":     style.Fg(color.Cyan),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
