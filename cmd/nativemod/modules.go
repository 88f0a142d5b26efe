package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evolvkit/native-runtime/loader"
)

var modulesInteractive bool

var modulesCmd = &cobra.Command{
	Use:   "modules <name>...",
	Short: "Load modules and show their lifecycle state",
	Long: `Modules loads each named module (with its dependency closure)
through the loader's search paths and prints the resulting table:
state, reference count, dependencies and swap generation. With -i an
interactive browser opens instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runModules,
}

func init() {
	modulesCmd.Flags().BoolVarP(&modulesInteractive, "interactive", "i", false, "interactive browser")
	rootCmd.AddCommand(modulesCmd)
}

func runModules(cmd *cobra.Command, args []string) error {
	opts, err := loaderOptions()
	if err != nil {
		return err
	}
	l := loader.New(opts)
	defer l.Close()

	var loadErrs []string
	for _, name := range args {
		if _, err := l.Load(name); err != nil {
			loadErrs = append(loadErrs, err.Error())
		}
	}

	if modulesInteractive {
		return runModulesTUI(l)
	}

	fmt.Printf("%-20s %-10s %4s %4s  %s\n", "MODULE", "STATE", "REFS", "GEN", "DEPENDENCIES")
	for _, info := range l.Modules() {
		fmt.Printf("%-20s %-10s %4d %4d  %s\n",
			info.Name, info.State, info.RefCount, info.Generation,
			strings.Join(info.Dependencies, ", "))
	}

	stats := l.Stats()
	fmt.Printf("\n%d loaded, %d total loads, %d failed\n",
		stats.Loaded, stats.TotalLoads, stats.FailedLoads)

	if len(loadErrs) > 0 {
		return fmt.Errorf("%d modules failed to load:\n  %s",
			len(loadErrs), strings.Join(loadErrs, "\n  "))
	}
	return nil
}
