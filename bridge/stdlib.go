package bridge

// StdlibModule is the system module the standard-library bootstrap
// resolves against.
const StdlibModule = "libc"

// stdlibInterfaces is the fixed set of well-known interfaces registered
// at process start: allocation, deallocation, string length, formatted
// output.
var stdlibInterfaces = []struct {
	name   string
	symbol string
	sig    Signature
}{
	{"libc.malloc", "malloc", Sig(KindPtr, KindI64)},
	{"libc.free", "free", Sig(KindVoid, KindPtr)},
	{"libc.strlen", "strlen", Sig(KindI64, KindStr)},
	{"libc.printf", "printf", Sig(KindI32, KindStr)},
}

// RegisterStdlib registers the well-known libc interfaces against the
// given system module. The module must already be Ready in the loader.
func (b *Bridge) RegisterStdlib(module string) error {
	if module == "" {
		module = StdlibModule
	}
	for _, itf := range stdlibInterfaces {
		if err := b.RegisterInterface(itf.name, module, itf.symbol, itf.sig); err != nil {
			return err
		}
	}
	return nil
}
