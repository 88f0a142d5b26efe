package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/evolvkit/native-runtime/loader"
	"github.com/evolvkit/native-runtime/native"
)

// buildManifest is the TOML input to pack: where the raw sections live
// and what the export table should say about them.
type buildManifest struct {
	Name         string          `toml:"name"`
	Arch         string          `toml:"arch"`
	Kind         string          `toml:"kind"`
	Code         string          `toml:"code"`
	Data         string          `toml:"data"`
	EntryOffset  uint32          `toml:"entry_offset"`
	Output       string          `toml:"output"`
	Version      string          `toml:"version"`
	Dependencies []string        `toml:"dependencies"`
	HotSwappable bool            `toml:"hot_swappable"`
	Exports      []manifestEntry `toml:"export"`
}

type manifestEntry struct {
	Name   string `toml:"name"`
	Kind   string `toml:"kind"`
	Offset uint64 `toml:"offset"`
	Size   uint64 `toml:"size"`
}

var packCmd = &cobra.Command{
	Use:   "pack <build.toml>",
	Short: "Build a module container from a build manifest",
	Long: `Pack reads a TOML build manifest naming the raw code and data
section files and the exports to declare over them, and writes the
container next to it (or under the manifest's output directory). A
sidecar manifest carrying dependencies and the hot-swap flag is
written alongside when either is present.`,
	Args: cobra.ExactArgs(1),
	RunE: runPack,
}

func init() {
	rootCmd.AddCommand(packCmd)
}

func runPack(cmd *cobra.Command, args []string) error {
	manifestPath := args[0]
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("read build manifest: %w", err)
	}
	var bm buildManifest
	if err := toml.Unmarshal(data, &bm); err != nil {
		return fmt.Errorf("parse build manifest: %w", err)
	}
	if bm.Name == "" {
		return fmt.Errorf("build manifest must set name")
	}

	arch, err := parseArch(bm.Arch)
	if err != nil {
		return err
	}
	kind, err := parseModuleKind(bm.Kind)
	if err != nil {
		return err
	}

	baseDir := filepath.Dir(manifestPath)
	m := native.New(arch, kind)

	if bm.Code != "" {
		code, err := os.ReadFile(resolvePath(baseDir, bm.Code))
		if err != nil {
			return fmt.Errorf("read code section: %w", err)
		}
		if err := m.SetCode(code, bm.EntryOffset); err != nil {
			return err
		}
	}
	if bm.Data != "" {
		section, err := os.ReadFile(resolvePath(baseDir, bm.Data))
		if err != nil {
			return fmt.Errorf("read data section: %w", err)
		}
		if err := m.SetData(section); err != nil {
			return err
		}
	}

	for _, e := range bm.Exports {
		ek, err := parseExportKind(e.Kind)
		if err != nil {
			return fmt.Errorf("export %s: %w", e.Name, err)
		}
		if err := m.AddExport(e.Name, ek, e.Offset, e.Size); err != nil {
			return err
		}
	}
	for _, dep := range bm.Dependencies {
		if err := m.AddDependency(dep); err != nil {
			return err
		}
	}

	outDir := baseDir
	if bm.Output != "" {
		outDir = resolvePath(baseDir, bm.Output)
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	outPath := filepath.Join(outDir, bm.Name+".native")

	if err := m.WriteFile(outPath); err != nil {
		return err
	}
	if len(bm.Dependencies) > 0 || bm.HotSwappable || bm.Version != "" {
		err := loader.WriteManifest(outPath, loader.Manifest{
			Version:      bm.Version,
			Dependencies: bm.Dependencies,
			HotSwappable: bm.HotSwappable,
		})
		if err != nil {
			return err
		}
	}

	h := m.Header()
	fmt.Printf("Packed %s\n", outPath)
	fmt.Printf("  arch %s, kind %s\n", h.Architecture, h.Kind)
	fmt.Printf("  code %d bytes, data %d bytes, %d exports\n",
		h.CodeSize, h.DataSize, len(m.Exports()))
	fmt.Printf("  checksum %016x\n", h.Checksum)
	return nil
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func parseArch(s string) (native.Architecture, error) {
	switch s {
	case "x86-64", "x64", "amd64":
		return native.ArchX8664, nil
	case "arm64", "aarch64":
		return native.ArchARM64, nil
	case "x86-32", "x86", "386":
		return native.ArchX8632, nil
	case "":
		if arch, ok := native.HostArchitecture(); ok {
			return arch, nil
		}
		return 0, fmt.Errorf("host architecture unknown, set arch explicitly")
	default:
		return 0, fmt.Errorf("unknown architecture %q", s)
	}
}

func parseModuleKind(s string) (native.ModuleKind, error) {
	switch s {
	case "vm":
		return native.KindVM, nil
	case "libc":
		return native.KindLibC, nil
	case "user", "":
		return native.KindUser, nil
	default:
		return 0, fmt.Errorf("unknown module kind %q", s)
	}
}

func parseExportKind(s string) (native.ExportKind, error) {
	switch s {
	case "function", "":
		return native.ExportFunction, nil
	case "variable":
		return native.ExportVariable, nil
	case "constant":
		return native.ExportConstant, nil
	default:
		return 0, fmt.Errorf("unknown export kind %q", s)
	}
}
