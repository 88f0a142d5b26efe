package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evolvkit/native-runtime/native"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.native>",
	Short: "Print a container's header and export table",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	m, err := native.ReadFile(args[0])
	if err != nil {
		return err
	}

	h := m.Header()
	fmt.Printf("Container: %s\n", args[0])
	fmt.Printf("  version      %d\n", h.Version)
	fmt.Printf("  architecture %s\n", h.Architecture)
	fmt.Printf("  kind         %s\n", h.Kind)
	fmt.Printf("  code         %d bytes at %#x (entry +%#x)\n",
		h.CodeSize, h.CodeOffset, h.EntryPointOffset)
	fmt.Printf("  data         %d bytes at %#x\n", h.DataSize, h.DataOffset)
	fmt.Printf("  checksum     %016x\n", h.Checksum)

	exports := m.Exports()
	fmt.Printf("\nExports (%d):\n", len(exports))
	for _, e := range exports {
		fmt.Printf("  %-9s %-32s offset %#-8x size %d\n",
			e.Kind, e.Name, e.Offset, e.Size)
	}
	return nil
}
