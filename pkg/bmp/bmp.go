// Package bmp locates Black Magic Probe debug adapters and labels them
// with the descriptor strings resolved over their control pipe.
package bmp

import (
	"fmt"
	"log/slog"

	"github.com/google/gousb"

	"github.com/seagrayinc/bmprobe/pkg/descriptor"
	"github.com/seagrayinc/bmprobe/pkg/usb"
	"github.com/seagrayinc/bmprobe/pkg/usbstrings"
)

// The probe's USB identity in application mode. The vendor id is from the
// OpenMoko community pool.
const (
	VendorID  uint16 = 0x1D50
	ProductID uint16 = 0x6018
)

// Matcher selects which vendor/product identity counts as a probe. It is
// passed explicitly wherever matching happens; there is no package-level
// configuration.
type Matcher struct {
	VendorID  uint16
	ProductID uint16
}

// DefaultMatcher matches the Black Magic Probe's application identity.
func DefaultMatcher() Matcher {
	return Matcher{VendorID: VendorID, ProductID: ProductID}
}

func (m Matcher) String() string {
	return fmt.Sprintf("%04x:%04x", m.VendorID, m.ProductID)
}

// Probe describes one discovered adapter.
type Probe struct {
	Bus          int
	Address      int
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string
	Serial       string
}

func (p Probe) String() string {
	return fmt.Sprintf("%04x:%04x", p.VendorID, p.ProductID)
}

// Strings holds the three descriptor strings a device labels itself with.
type Strings struct {
	Manufacturer string
	Product      string
	Serial       string
}

// Discover opens every device matching m, resolves its descriptor strings
// over the control pipe, and releases it. A device that fails to open or
// describe is skipped with a warning so one wedged device cannot hide the
// rest.
func Discover(ctx *gousb.Context, m Matcher) ([]Probe, error) {
	devs, err := usb.OpenAll(ctx, m.VendorID, m.ProductID)
	if err != nil {
		if len(devs) == 0 {
			return nil, err
		}
		slog.Warn("some matching devices could not be opened", slog.Any("error", err))
	}

	probes := make([]Probe, 0, len(devs))
	for _, dev := range devs {
		s, serr := DeviceStrings(dev)
		desc := dev.Description()
		if cerr := dev.Close(); cerr != nil {
			slog.Warn("closing device", slog.Any("error", cerr))
		}
		if serr != nil {
			slog.Warn("skipping device", slog.String("id", m.String()), slog.Any("error", serr))
			continue
		}
		probes = append(probes, Probe{
			Bus:          desc.Bus,
			Address:      desc.Address,
			VendorID:     uint16(desc.Vendor),
			ProductID:    uint16(desc.Product),
			Manufacturer: s.Manufacturer,
			Product:      s.Product,
			Serial:       s.Serial,
		})
	}
	return probes, nil
}

// DeviceStrings reads a device descriptor for its string indices and
// resolves each one. Resolution is serialized on the device, and fields
// the device does not carry come back as usbstrings.Unknown.
func DeviceStrings(d descriptor.ControlDevice) (Strings, error) {
	manufacturer, product, serial, err := stringIndexes(d)
	if err != nil {
		return Strings{}, err
	}
	return Strings{
		Manufacturer: usbstrings.Resolve(d, manufacturer),
		Product:      usbstrings.Resolve(d, product),
		Serial:       usbstrings.Resolve(d, serial),
	}, nil
}

// deviceDescLen is the size of the standard device descriptor; the string
// indices sit at offsets 14 through 16.
const deviceDescLen = 18

func stringIndexes(d descriptor.ControlDevice) (manufacturer, product, serial uint8, err error) {
	var buf [deviceDescLen]byte
	n, err := d.Control(usb.RequestTypeIn, usb.RequestGetDescriptor,
		usb.DescriptorTypeDevice<<8, 0, buf[:])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("read device descriptor: %w", err)
	}
	if n < deviceDescLen {
		return 0, 0, 0, fmt.Errorf("read device descriptor: %d of %d bytes", n, deviceDescLen)
	}
	if buf[1] != usb.DescriptorTypeDevice {
		return 0, 0, 0, fmt.Errorf("read device descriptor: unexpected type 0x%02X", buf[1])
	}
	return buf[14], buf[15], buf[16], nil
}
