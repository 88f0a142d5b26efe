package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evolvkit/native-runtime/bridge"
	"github.com/evolvkit/native-runtime/loader"
)

var callSig string

var callCmd = &cobra.Command{
	Use:   "call <module> <symbol> [arg]...",
	Short: "Call a function export through the typed bridge",
	Long: `Call loads the module, binds the named export under the declared
signature and invokes it with the given arguments.

The signature is written as comma-separated parameter types, an arrow,
and a return type, e.g. --sig "i32,i32->i32" or --sig "str->i64".
Types: i32, i64, f32, f64, ptr, str, void.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVar(&callSig, "sig", "->void", "call signature")
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	module, symbol := args[0], args[1]

	sig, err := parseSignature(callSig)
	if err != nil {
		return err
	}

	opts, err := loaderOptions()
	if err != nil {
		return err
	}
	l := loader.New(opts)
	defer l.Close()

	if _, err := l.Load(module); err != nil {
		return err
	}

	b := bridge.New(l)
	name := module + "." + symbol
	if err := b.RegisterInterface(name, module, symbol, sig); err != nil {
		return err
	}

	values, err := parseArgs(sig, args[2:])
	if err != nil {
		return err
	}

	result, err := b.Call(name, values)
	if err != nil {
		return err
	}
	fmt.Println(result)
	return nil
}

func parseSignature(s string) (bridge.Signature, error) {
	parts := strings.SplitN(s, "->", 2)
	if len(parts) != 2 {
		return bridge.Signature{}, fmt.Errorf("signature %q needs the form params->return", s)
	}

	var params []bridge.ValueKind
	if p := strings.TrimSpace(parts[0]); p != "" {
		for _, tok := range strings.Split(p, ",") {
			k, err := parseValueKind(strings.TrimSpace(tok))
			if err != nil {
				return bridge.Signature{}, err
			}
			params = append(params, k)
		}
	}
	ret, err := parseValueKind(strings.TrimSpace(parts[1]))
	if err != nil {
		return bridge.Signature{}, err
	}
	return bridge.Signature{Params: params, Return: ret}, nil
}

func parseValueKind(s string) (bridge.ValueKind, error) {
	switch s {
	case "i32":
		return bridge.KindI32, nil
	case "i64":
		return bridge.KindI64, nil
	case "f32":
		return bridge.KindF32, nil
	case "f64":
		return bridge.KindF64, nil
	case "ptr":
		return bridge.KindPtr, nil
	case "str":
		return bridge.KindStr, nil
	case "void", "":
		return bridge.KindVoid, nil
	default:
		return 0, fmt.Errorf("unknown value type %q", s)
	}
}

func parseArgs(sig bridge.Signature, raw []string) ([]bridge.Value, error) {
	if len(raw) != len(sig.Params) {
		return nil, fmt.Errorf("signature declares %d parameters, got %d arguments",
			len(sig.Params), len(raw))
	}
	values := make([]bridge.Value, len(raw))
	for i, s := range raw {
		v, err := parseValue(sig.Params[i], s)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}

func parseValue(kind bridge.ValueKind, s string) (bridge.Value, error) {
	switch kind {
	case bridge.KindI32:
		n, err := strconv.ParseInt(s, 0, 32)
		if err != nil {
			return bridge.Void(), err
		}
		return bridge.I32(int32(n)), nil
	case bridge.KindI64:
		n, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return bridge.Void(), err
		}
		return bridge.I64(n), nil
	case bridge.KindF32:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return bridge.Void(), err
		}
		return bridge.F32(float32(f)), nil
	case bridge.KindF64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return bridge.Void(), err
		}
		return bridge.F64(f), nil
	case bridge.KindPtr:
		n, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return bridge.Void(), err
		}
		return bridge.Ptr(uintptr(n)), nil
	case bridge.KindStr:
		return bridge.Str(s), nil
	default:
		return bridge.Void(), fmt.Errorf("cannot pass a %s argument", kind)
	}
}
