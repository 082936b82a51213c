package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every setting read from the environment,
// e.g. QURI_SCHEMA or QURI_MAX_DEPTH.
const EnvPrefix = "QURI"

// loadConfig resolves global settings into opts.
//
// Flags are bound into a private viper instance, so precedence is
// flag > environment > config file > flag default.
func loadConfig(cmd *cobra.Command, opts *RootOptions) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", file, err)
		}
	}

	opts.Verbose = v.GetBool("verbose")
	opts.Format = v.GetString("format")
	opts.Config = v.GetString("config")
	opts.Schema = v.GetString("schema")
	opts.DB = v.GetString("db")
	opts.Dialect = v.GetString("dialect")
	opts.Entity = v.GetString("entity")
	opts.MaxDepth = v.GetInt("max-depth")

	if opts.MaxDepth < 0 {
		return fmt.Errorf("max-depth must be non-negative, got %d", opts.MaxDepth)
	}
	return nil
}
