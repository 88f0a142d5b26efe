package main

import (
	"encoding/binary"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"

	"github.com/evolvkit/native-runtime/native"
)

var disasmSymbol string

var disasmCmd = &cobra.Command{
	Use:   "disasm <file.native>",
	Short: "Disassemble a container's code section",
	Args:  cobra.ExactArgs(1),
	RunE:  runDisasm,
}

func init() {
	disasmCmd.Flags().StringVar(&disasmSymbol, "symbol", "", "disassemble one function export only")
	rootCmd.AddCommand(disasmCmd)
}

func runDisasm(cmd *cobra.Command, args []string) error {
	m, err := native.ReadFile(args[0])
	if err != nil {
		return err
	}

	code := m.Code()
	base := uint64(0)
	if disasmSymbol != "" {
		e, ok := m.FindExport(disasmSymbol)
		if !ok {
			return fmt.Errorf("no export named %q", disasmSymbol)
		}
		if e.Kind != native.ExportFunction {
			return fmt.Errorf("export %q is a %s, not a function", disasmSymbol, e.Kind)
		}
		code = code[e.Offset : e.Offset+e.Size]
		base = e.Offset
	}
	if len(code) == 0 {
		return fmt.Errorf("container has no code to disassemble")
	}

	// symname resolves jump targets back to function export names.
	symname := func(addr uint64) (string, uint64) {
		for _, e := range m.Exports() {
			if e.Kind == native.ExportFunction && e.Offset == addr {
				return e.Name, addr
			}
		}
		return "", 0
	}

	switch arch := m.Header().Architecture; arch {
	case native.ArchX8664, native.ArchX8632:
		mode := 64
		if arch == native.ArchX8632 {
			mode = 32
		}
		for pc := 0; pc < len(code); {
			inst, err := x86asm.Decode(code[pc:], mode)
			if err != nil {
				fmt.Printf("%#6x: .byte %#04x\n", base+uint64(pc), code[pc])
				pc++
				continue
			}
			fmt.Printf("%#6x: %s\n", base+uint64(pc),
				x86asm.GoSyntax(inst, base+uint64(pc), symname))
			pc += inst.Len
		}
	case native.ArchARM64:
		for pc := 0; pc+4 <= len(code); pc += 4 {
			inst, err := arm64asm.Decode(code[pc : pc+4])
			if err != nil {
				word := binary.LittleEndian.Uint32(code[pc:])
				fmt.Printf("%#6x: .word %#010x\n", base+uint64(pc), word)
				continue
			}
			fmt.Printf("%#6x: %s\n", base+uint64(pc),
				arm64asm.GoSyntax(inst, base+uint64(pc), symname, nil))
		}
	default:
		return fmt.Errorf("no disassembler for %s", m.Header().Architecture)
	}
	return nil
}
