package bmp

import (
	"errors"
	"fmt"

	"github.com/karalabe/usb"
)

// ListEntry identifies a matching device without claiming it.
type ListEntry struct {
	Path      string
	VendorID  uint16
	ProductID uint16
}

func (e ListEntry) String() string {
	return fmt.Sprintf("%04x:%04x %s", e.VendorID, e.ProductID, e.Path)
}

// List enumerates matching devices without opening them, so it works while
// a debugger holds the probe. Raw enumeration carries no descriptor
// strings; Discover resolves those over the control pipe.
func List(m Matcher) ([]ListEntry, error) {
	if !usb.Supported() {
		return nil, errors.New("usb enumeration not supported on this platform")
	}
	infos, err := usb.Enumerate(m.VendorID, m.ProductID)
	if err != nil {
		return nil, fmt.Errorf("usb enumerate: %w", err)
	}

	out := make([]ListEntry, 0, len(infos))
	for _, info := range infos {
		out = append(out, ListEntry{
			Path:      info.Path,
			VendorID:  info.VendorID,
			ProductID: info.ProductID,
		})
	}
	return out, nil
}
