package cmd

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/zaptv/zaptv/internal/config"
	"github.com/zaptv/zaptv/pkg/duration"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the resolved configuration",
	Long: `Dump the resolved configuration values in YAML format.

Redirect the output to a file to create a configuration template:

  zaptv config dump > config.yaml

Configuration can be set via:
  - Config file (config.yaml in ., ./configs, or /etc/zaptv)
  - Environment variables with the ZAPTV_ prefix and underscores for
    nesting, e.g. server.port -> ZAPTV_SERVER_PORT
  - Command-line flags (for some options)`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

// toMap converts a config struct to a map, formatting durations for human
// readability.
func toMap(v any) map[string]any {
	result := make(map[string]any)
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		key := fieldType.Tag.Get("mapstructure")
		if key == "" {
			key = fieldType.Name
		}

		switch v := field.Interface().(type) {
		case time.Duration:
			result[key] = duration.Format(v)
		default:
			if field.Kind() == reflect.Struct {
				result[key] = toMap(field.Interface())
			} else {
				result[key] = field.Interface()
			}
		}
	}
	return result
}

func runConfigDump(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadFromViper(viper.GetViper())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	yamlData, err := yaml.Marshal(toMap(cfg))
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	fmt.Println("# zaptv Configuration File")
	fmt.Println("# ========================")
	fmt.Println("#")
	fmt.Println("# Duration format: 500ms, 30s, 5m, 1h, 30d")
	fmt.Println("#")
	fmt.Println("# Environment variable overrides use the ZAPTV_ prefix:")
	fmt.Println("#   ZAPTV_SERVER_HOST, ZAPTV_SERVER_PORT")
	fmt.Println("#   ZAPTV_PROVIDER_URL, ZAPTV_PROVIDER_USERNAME")
	fmt.Println("#   ZAPTV_LOGGING_LEVEL, ZAPTV_LOGGING_FORMAT")
	fmt.Println("#   etc.")
	fmt.Println("")
	fmt.Print(string(yamlData))

	return nil
}
