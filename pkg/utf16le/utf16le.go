// Package utf16le converts the UTF-16 text carried by USB string
// descriptors into UTF-8.
//
// The conversion is strict and runs in two passes: the first validates
// surrogate pairing over the whole input and computes the exact output
// size, the second encodes. A malformed sequence therefore produces an
// error and no output, never partial or replacement text. An empty input
// is a valid conversion producing empty output, which is distinct from
// failure.
package utf16le

import (
	"errors"
	"fmt"
)

// Surrogate code unit ranges, from the Unicode core specification
// (definitions D72 and D74).
const (
	surrHighMin = 0xD800
	surrHighMax = 0xDBFF
	surrLowMin  = 0xDC00
	surrLowMax  = 0xDFFF
)

// ErrUnpairedSurrogate reports a high surrogate that is not immediately
// followed by a low surrogate, or a low surrogate with no preceding high
// surrogate. Errors returned by this package wrap it together with the
// offending unit offset.
var ErrUnpairedSurrogate = errors.New("unpaired surrogate")

// CountBytes runs the validation pass on its own: it checks surrogate
// pairing across units and returns the exact number of UTF-8 bytes the
// sequence encodes to. A zero count with a nil error means the input is
// empty or will encode to nothing; failures are always signalled through
// the error, never through the count.
func CountBytes(units []uint16) (int, error) {
	count := 0
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case u >= surrHighMin && u <= surrHighMax:
			if i+1 >= len(units) {
				return 0, fmt.Errorf("%w: high surrogate 0x%04X at end of input", ErrUnpairedSurrogate, u)
			}
			if lo := units[i+1]; lo < surrLowMin || lo > surrLowMax {
				return 0, fmt.Errorf("%w: high surrogate 0x%04X followed by 0x%04X", ErrUnpairedSurrogate, u, units[i+1])
			}
			i++
			count += 4
		case u >= surrLowMin && u <= surrLowMax:
			return 0, fmt.Errorf("%w: low surrogate 0x%04X at unit %d", ErrUnpairedSurrogate, u, i)
		case u <= 0x7F:
			count++
		case u <= 0x7FF:
			count += 2
		default:
			count += 3
		}
	}
	return count, nil
}

// Transcode converts a sequence of UTF-16 code units to UTF-8. The result
// is sized exactly; an empty input yields an empty, non-nil slice. On any
// pairing violation it returns a nil slice and an error wrapping
// ErrUnpairedSurrogate.
func Transcode(units []uint16) ([]byte, error) {
	size, err := CountBytes(units)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, size)
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case u >= surrHighMin && u <= surrHighMax:
			// Pairing was validated by CountBytes, so the low half exists.
			lo := units[i+1]
			i++
			cp := 0x10000 + (rune(u-surrHighMin)<<10 | rune(lo-surrLowMin))
			out = append(out,
				0xF0|byte(cp>>18),
				0x80|byte(cp>>12)&0x3F,
				0x80|byte(cp>>6)&0x3F,
				0x80|byte(cp)&0x3F)
		case u <= 0x7F:
			out = append(out, byte(u))
		case u <= 0x7FF:
			out = append(out,
				0xC0|byte(u>>6),
				0x80|byte(u)&0x3F)
		default:
			out = append(out,
				0xE0|byte(u>>12),
				0x80|byte(u>>6)&0x3F,
				0x80|byte(u)&0x3F)
		}
	}
	return out, nil
}
