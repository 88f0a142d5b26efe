package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evolvkit/native-runtime/native"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <file.native>...",
	Short: "Validate containers and report their checksums",
	Long: `Verify decodes each container and runs full validation: magic,
version, architecture and kind tags, export table bounds, and the
checksum over code, data and export records. The exit status is
nonzero when any file fails.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	var failed int
	for _, path := range args {
		m, err := native.ReadFile(path)
		if err != nil {
			fmt.Printf("FAIL %s: %v\n", path, err)
			failed++
			continue
		}
		h := m.Header()
		fmt.Printf("OK   %s (%s %s, checksum %016x)\n",
			path, h.Architecture, h.Kind, h.Checksum)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d containers failed verification", failed, len(args))
	}
	return nil
}
