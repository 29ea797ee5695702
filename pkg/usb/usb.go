// Package usb supplies the control-pipe transport the descriptor protocol
// runs over: an opened device capable of issuing blocking control
// transfers, plus the standard request constants those transfers are built
// from.
package usb

import (
	"fmt"
	"time"

	"github.com/google/gousb"
)

const (
	// From Table 9-2 of the USB 2.0 specification (bmRequestType).
	RequestTypeIn = 0x80

	// From Table 9-4 (standard request codes).
	RequestGetDescriptor = 0x06

	// From Table 9-5 (descriptor types).
	DescriptorTypeDevice = 0x01
	DescriptorTypeString = 0x03

	// LangIDUSEnglish selects the en-US entry of the device's language
	// table. Descriptor strings are only ever requested in this language.
	LangIDUSEnglish = 0x0409
)

// Timeout bounds applied to every control transfer. Backends that expose a
// single per-transfer timeout use CompletionTimeout; the setup bound is
// subsumed by it there.
const (
	SetupTimeout      = 20 * time.Millisecond
	CompletionTimeout = 100 * time.Millisecond
)

// Device is an opened USB device driven through its default control pipe.
type Device struct {
	dev *gousb.Device
}

// NewDevice wraps an opened gousb device and pins its control-transfer
// timeout to CompletionTimeout.
func NewDevice(d *gousb.Device) *Device {
	d.ControlTimeout = CompletionTimeout
	return &Device{dev: d}
}

// Control performs one blocking control transfer and reports the number of
// bytes exchanged in the data stage. Cancellation mid-transfer is not
// supported; the fixed timeout pair is the only bound.
func (d *Device) Control(requestType, request uint8, value, index uint16, data []byte) (int, error) {
	return d.dev.Control(requestType, request, value, index, data)
}

// Description returns the enumeration-time descriptor data for the device
// (bus, address, vendor and product identifiers).
func (d *Device) Description() *gousb.DeviceDesc {
	return d.dev.Desc
}

func (d *Device) Close() error {
	return d.dev.Close()
}

// OpenAll opens every device matching the given vendor and product
// identifiers. Devices that enumerate but fail to open are reported
// through the returned error alongside the devices that did open; callers
// decide whether a partial result is fatal.
func OpenAll(ctx *gousb.Context, vendorID, productID uint16) ([]*Device, error) {
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(vendorID) && desc.Product == gousb.ID(productID)
	})
	if err != nil {
		err = fmt.Errorf("open devices %04x:%04x: %w", vendorID, productID, err)
	}
	out := make([]*Device, 0, len(devs))
	for _, d := range devs {
		out = append(out, NewDevice(d))
	}
	return out, err
}
