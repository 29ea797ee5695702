// Package descriptor implements the request protocol for USB string
// descriptors: a two-byte header probe that sizes the payload, followed by
// a full fetch that validates the reply and extracts the UTF-16 code
// units.
//
// Both operations issue exactly one control transfer. Failures are never
// conflated with an empty string: a zero probe count with a nil error
// means the descriptor genuinely carries no text.
package descriptor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/seagrayinc/bmprobe/pkg/usb"
)

// ControlDevice issues blocking control transfers against one device's
// default control pipe. The pipe is exclusive: calls for the same device
// must not overlap.
type ControlDevice interface {
	Control(requestType, request uint8, value, index uint16, data []byte) (int, error)
}

const (
	// MaxCodeUnits bounds the length argument of FetchString. bLength is a
	// single byte counting the whole descriptor including its two-byte
	// header, so no conforming device can report more.
	MaxCodeUnits = 127

	headerLen = 2
)

var (
	// ErrReservedIndex rejects string index 0, which addresses the
	// language table rather than text.
	ErrReservedIndex = errors.New("string index 0 is reserved")

	// ErrLengthOutOfRange rejects a requested length no string descriptor
	// can carry. Seeing it means the caller computed a length instead of
	// probing for one.
	ErrLengthOutOfRange = errors.New("requested length out of range")

	// ErrTypeMismatch reports a reply whose type tag is not the
	// string-descriptor tag. The transfer itself succeeded; the data is
	// not trusted.
	ErrTypeMismatch = errors.New("descriptor type mismatch")

	// ErrShortReply reports a transfer that returned fewer bytes than a
	// descriptor header.
	ErrShortReply = errors.New("descriptor reply too short")

	// ErrInvalidHeader reports a length byte smaller than the header it
	// is defined to include.
	ErrInvalidHeader = errors.New("invalid descriptor length byte")
)

// ProbeStringLength requests the two-byte header of the string descriptor
// at index and derives the number of UTF-16 code units in its payload. A
// zero count with a nil error means the string exists but is empty.
func ProbeStringLength(d ControlDevice, index uint8) (int, error) {
	if index == 0 {
		return 0, ErrReservedIndex
	}
	var hdr [headerLen]byte
	n, err := d.Control(usb.RequestTypeIn, usb.RequestGetDescriptor,
		usb.DescriptorTypeString<<8|uint16(index), usb.LangIDUSEnglish, hdr[:])
	if err != nil {
		return 0, fmt.Errorf("probe string %d: %w", index, err)
	}
	if n < headerLen {
		return 0, fmt.Errorf("probe string %d: %w: %d bytes", index, ErrShortReply, n)
	}
	if hdr[1] != usb.DescriptorTypeString {
		return 0, fmt.Errorf("probe string %d: %w: got type 0x%02X", index, ErrTypeMismatch, hdr[1])
	}
	if hdr[0] < headerLen {
		return 0, fmt.Errorf("probe string %d: %w: bLength %d", index, ErrInvalidHeader, hdr[0])
	}
	count := (int(hdr[0]) - headerLen) / 2
	slog.Debug("string descriptor probed", slog.Int("index", int(index)), slog.Int("units", count))
	return count, nil
}

// FetchString reads the string descriptor at index in full and returns its
// payload as UTF-16 code units. length is the unit capacity to request,
// normally the count returned by ProbeStringLength; the result never
// exceeds it no matter what length byte the device reports. length must
// not exceed MaxCodeUnits.
func FetchString(d ControlDevice, index uint8, length int) ([]uint16, error) {
	if index == 0 {
		return nil, ErrReservedIndex
	}
	if length < 0 || length > MaxCodeUnits {
		return nil, fmt.Errorf("fetch string %d: %w: %d units", index, ErrLengthOutOfRange, length)
	}
	buf := make([]byte, length*2+headerLen)
	n, err := d.Control(usb.RequestTypeIn, usb.RequestGetDescriptor,
		usb.DescriptorTypeString<<8|uint16(index), usb.LangIDUSEnglish, buf)
	if err != nil {
		return nil, fmt.Errorf("fetch string %d: %w", index, err)
	}
	if n < headerLen {
		return nil, fmt.Errorf("fetch string %d: %w: %d bytes", index, ErrShortReply, n)
	}
	if buf[1] != usb.DescriptorTypeString {
		return nil, fmt.Errorf("fetch string %d: %w: got type 0x%02X", index, ErrTypeMismatch, buf[1])
	}
	if buf[0] < headerLen {
		return nil, fmt.Errorf("fetch string %d: %w: bLength %d", index, ErrInvalidHeader, buf[0])
	}
	// The device's length byte is advisory. The payload is capped at the
	// requested capacity, not at what the device claims.
	valid := min(int(buf[0]), length*2)
	units := make([]uint16, valid/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(buf[headerLen+2*i:])
	}
	slog.Debug("string descriptor fetched", slog.Int("index", int(index)), slog.Int("units", len(units)))
	return units, nil
}
