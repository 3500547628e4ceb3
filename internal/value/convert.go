package value

import (
	"strings"

	"github.com/Aman-CERP/docdex/internal/errors"
)

// boolTokens are the literal forms recognized by a String→Bool
// conversion, matched case-insensitively.
var boolTokens = map[string]bool{
	"true": true, "false": false,
	"yes": true, "no": false,
	"on": true, "off": false,
	"1": true, "0": false,
}

// Convert coerces v from one declared type to another. It is a pure
// function: no hidden state, no mutation of v.
//
// Defined conversions:
//   - identity (from == to): always succeeds
//   - String → Number: fails on a non-numeric lexical form
//   - Number → String: canonical decimal formatting
//   - String → Boolean: fixed token set, fails otherwise
//
// Any other (from, to) pair fails with a conversion error naming both
// types. A value whose kind does not match from also fails; silently
// passing mismatched values through would defer the problem to schema
// validation with worse context.
func Convert(v Value, from, to Type) (Value, error) {
	if from == to {
		return v, nil
	}

	switch {
	case isStringly(from) && to == TypeNumber:
		if v.Kind() != KindString {
			return Value{}, kindMismatch(v, from)
		}
		n, err := Number(v.Str())
		if err != nil {
			return Value{}, errors.New(errors.ErrCodeConversionFailed,
				"cannot convert "+v.String()+" to number", err)
		}
		return n, nil

	case from == TypeNumber && isStringly(to):
		if v.Kind() != KindNumber {
			return Value{}, kindMismatch(v, from)
		}
		return String(v.Str()), nil

	case isStringly(from) && to == TypeBool:
		if v.Kind() != KindString {
			return Value{}, kindMismatch(v, from)
		}
		b, ok := boolTokens[strings.ToLower(v.Str())]
		if !ok {
			return Value{}, errors.Newf(errors.ErrCodeConversionFailed,
				"cannot convert %s to boolean", v.String())
		}
		return Bool(b), nil

	case isStringly(from) && isStringly(to):
		// string↔text: same representation, different indexing intent.
		return v, nil

	default:
		return Value{}, errors.Newf(errors.ErrCodeConversionUnsupported,
			"unsupported conversion from %s to %s", from, to)
	}
}

// isStringly reports whether the type carries a string representation.
func isStringly(t Type) bool {
	return t == TypeString || t == TypeText || t == TypeDate
}

func kindMismatch(v Value, from Type) error {
	return errors.Newf(errors.ErrCodeConversionFailed,
		"declared source type %s but value is %s", from, v.Kind())
}
