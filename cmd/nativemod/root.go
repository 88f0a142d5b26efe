package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evolvkit/native-runtime/bridge"
	"github.com/evolvkit/native-runtime/loader"
)

var (
	verbose bool
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "nativemod",
		Short: "Native module container toolchain",
		Long: `nativemod packs, inspects and loads native module containers.

A container carries machine code, data and a typed export table in a
fixed binary layout with a checksum over all content. The loader maps
containers into the process and resolves their exports; the bridge
exposes loaded functions behind stable, typed interface names.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				loader.SetLogger(log.Named("loader"))
				bridge.SetLogger(log.Named("bridge"))
			}
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "loader configuration file (TOML)")
}

// loaderOptions builds loader options from --config, falling back to
// defaults when no file was given.
func loaderOptions() (loader.Options, error) {
	if cfgFile != "" {
		return loader.LoadConfig(cfgFile)
	}
	return loader.DefaultOptions(), nil
}
