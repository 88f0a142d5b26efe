package bridge

import (
	"strings"

	"github.com/evolvkit/native-runtime/errors"
)

// MaxSignatureParams bounds the number of parameters a single call
// signature may declare. Protocol constant.
const MaxSignatureParams = 16

// Signature declares a native function's parameter and return types.
type Signature struct {
	Params []ValueKind
	Return ValueKind
}

// Sig builds a signature from a return kind and parameter kinds.
func Sig(ret ValueKind, params ...ValueKind) Signature {
	return Signature{Params: params, Return: ret}
}

// Validate checks the signature against the closed value-type set.
// Void is a valid return but never a parameter.
func (s Signature) Validate() error {
	if len(s.Params) > MaxSignatureParams {
		return errors.New(errors.PhaseBridge, errors.KindInvalidArgument).
			Detail("signature declares %d parameters, limit is %d",
				len(s.Params), MaxSignatureParams).Build()
	}
	for i, p := range s.Params {
		if !p.Valid() || p == KindVoid {
			return errors.New(errors.PhaseBridge, errors.KindInvalidArgument).
				Index(i).Detail("invalid parameter type %s", p).Build()
		}
	}
	if !s.Return.Valid() {
		return errors.New(errors.PhaseBridge, errors.KindInvalidArgument).
			Detail("invalid return type").Build()
	}
	return nil
}

func (s Signature) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(") -> ")
	b.WriteString(s.Return.String())
	return b.String()
}
