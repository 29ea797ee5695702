// Package usbstrings resolves USB string descriptor indices to displayable
// text.
//
// Resolution deliberately degrades instead of failing: a reserved index, a
// device that stalls or answers with the wrong descriptor type, or a
// payload that is not valid UTF-16 all collapse to the Unknown sentinel,
// so a caller labelling several fields across several devices always gets
// printable text. The cause of a downgrade is visible only in the debug
// log.
package usbstrings

import (
	"log/slog"

	"github.com/seagrayinc/bmprobe/pkg/descriptor"
	"github.com/seagrayinc/bmprobe/pkg/utf16le"
)

// Unknown is the sentinel returned for any index that does not resolve to
// text.
const Unknown = "(unknown)"

// Resolve reads the string descriptor at index and returns it as UTF-8
// text, or Unknown if the index is 0, the device does not answer, or the
// payload does not decode. Calls for the same device must be serialized;
// its control pipe is exclusive. Independent devices may resolve
// concurrently.
func Resolve(d descriptor.ControlDevice, index uint8) string {
	if index == 0 {
		return Unknown
	}

	count, err := descriptor.ProbeStringLength(d, index)
	if err != nil {
		slog.Debug("string probe failed", slog.Int("index", int(index)), slog.Any("error", err))
		return Unknown
	}
	if count == 0 {
		return Unknown
	}

	units, err := descriptor.FetchString(d, index, count)
	if err != nil {
		slog.Debug("string fetch failed", slog.Int("index", int(index)), slog.Any("error", err))
		return Unknown
	}

	text, err := utf16le.Transcode(units)
	if err != nil {
		slog.Warn("string descriptor is not valid UTF-16", slog.Int("index", int(index)), slog.Any("error", err))
		return Unknown
	}
	return string(text)
}
