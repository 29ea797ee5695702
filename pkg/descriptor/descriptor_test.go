package descriptor

import (
	"errors"
	"testing"

	"github.com/seagrayinc/bmprobe/pkg/usb"
)

var _ ControlDevice = (*usb.MockDevice)(nil)

var errStall = errors.New("pipe stall")

func TestProbeStringLength(t *testing.T) {
	tests := []struct {
		name      string
		reply     usb.MockReply
		wantCount int
		wantErr   error
	}{
		{
			name:      "TwoUnits",
			reply:     usb.MockReply{Data: []byte{6, 0x03}},
			wantCount: 2,
		},
		{
			name:      "EmptyString",
			reply:     usb.MockReply{Data: []byte{2, 0x03}},
			wantCount: 0,
		},
		{
			name:    "TypeMismatch",
			reply:   usb.MockReply{Data: []byte{6, 0x02}},
			wantErr: ErrTypeMismatch,
		},
		{
			name:    "TypeMismatchLargeLength",
			reply:   usb.MockReply{Data: []byte{0xFF, 0x01}},
			wantErr: ErrTypeMismatch,
		},
		{
			name:    "ShortReply",
			reply:   usb.MockReply{Data: []byte{4}},
			wantErr: ErrShortReply,
		},
		{
			name:    "LengthByteBelowHeader",
			reply:   usb.MockReply{Data: []byte{1, 0x03}},
			wantErr: ErrInvalidHeader,
		},
		{
			name:    "TransportError",
			reply:   usb.MockReply{Err: errStall},
			wantErr: errStall,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &usb.MockDevice{Replies: []usb.MockReply{tt.reply}}

			count, err := ProbeStringLength(dev, 2)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error: got %v, want %v", err, tt.wantErr)
				}
				if count != 0 {
					t.Errorf("count on failure: got %d, want 0", count)
				}
				return
			}
			if err != nil {
				t.Fatalf("ProbeStringLength failed: %v", err)
			}
			if count != tt.wantCount {
				t.Errorf("count: got %d, want %d", count, tt.wantCount)
			}
		})
	}
}

func TestProbeReservedIndex(t *testing.T) {
	dev := &usb.MockDevice{}
	_, err := ProbeStringLength(dev, 0)
	if !errors.Is(err, ErrReservedIndex) {
		t.Fatalf("error: got %v, want ErrReservedIndex", err)
	}
	if len(dev.Calls) != 0 {
		t.Errorf("index 0 must not reach the transport, saw %d calls", len(dev.Calls))
	}
}

func TestProbeSetupFields(t *testing.T) {
	dev := &usb.MockDevice{Replies: []usb.MockReply{{Data: []byte{2, 0x03}}}}
	if _, err := ProbeStringLength(dev, 4); err != nil {
		t.Fatalf("ProbeStringLength failed: %v", err)
	}

	want := usb.ControlCall{
		RequestType: usb.RequestTypeIn,
		Request:     usb.RequestGetDescriptor,
		Value:       usb.DescriptorTypeString<<8 | 4,
		Index:       usb.LangIDUSEnglish,
		Length:      2,
	}
	if len(dev.Calls) != 1 {
		t.Fatalf("call count: got %d, want 1", len(dev.Calls))
	}
	if dev.Calls[0] != want {
		t.Errorf("setup fields:\ngot:  %+v\nwant: %+v", dev.Calls[0], want)
	}
}

func TestFetchString(t *testing.T) {
	tests := []struct {
		name    string
		reply   usb.MockReply
		length  int
		want    []uint16
		wantErr error
	}{
		{
			name:   "TwoUnits",
			reply:  usb.MockReply{Data: []byte{6, 0x03, 0x48, 0x00, 0x69, 0x00}},
			length: 2,
			want:   []uint16{0x0048, 0x0069},
		},
		{
			name:   "EmptyString",
			reply:  usb.MockReply{Data: []byte{2, 0x03}},
			length: 0,
			want:   []uint16{},
		},
		{
			// A lying length byte must not grow the result past the
			// requested capacity.
			name:   "CapsLyingLengthByte",
			reply:  usb.MockReply{Data: []byte{0xFF, 0x03, 0xAA, 0xBB, 0xCC, 0xDD}},
			length: 2,
			want:   []uint16{0xBBAA, 0xDDCC},
		},
		{
			// Reported length wins when it is below the requested
			// capacity; the copy is whole header-inclusive bytes, matching
			// the wire formula.
			name:   "ReportedShorterThanRequested",
			reply:  usb.MockReply{Data: []byte{4, 0x03, 0x48, 0x00}},
			length: 3,
			want:   []uint16{0x0048, 0x0000},
		},
		{
			name:    "TypeMismatch",
			reply:   usb.MockReply{Data: []byte{6, 0x01, 0x48, 0x00, 0x69, 0x00}},
			length:  2,
			wantErr: ErrTypeMismatch,
		},
		{
			name:    "ShortReply",
			reply:   usb.MockReply{Data: []byte{6}},
			length:  2,
			wantErr: ErrShortReply,
		},
		{
			name:    "TransportError",
			reply:   usb.MockReply{Err: errStall},
			length:  2,
			wantErr: errStall,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &usb.MockDevice{Replies: []usb.MockReply{tt.reply}}

			units, err := FetchString(dev, 2, tt.length)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error: got %v, want %v", err, tt.wantErr)
				}
				if units != nil {
					t.Errorf("units on failure: got %v, want nil", units)
				}
				return
			}
			if err != nil {
				t.Fatalf("FetchString failed: %v", err)
			}
			if len(units) > tt.length {
				t.Fatalf("result exceeds requested capacity: %d > %d units", len(units), tt.length)
			}
			if len(units) != len(tt.want) {
				t.Fatalf("unit count: got %d, want %d", len(units), len(tt.want))
			}
			for i := range units {
				if units[i] != tt.want[i] {
					t.Errorf("unit %d: got 0x%04X, want 0x%04X", i, units[i], tt.want[i])
				}
			}
		})
	}
}

func TestFetchStringBadArguments(t *testing.T) {
	tests := []struct {
		name    string
		index   uint8
		length  int
		wantErr error
	}{
		{name: "LengthAboveMax", index: 2, length: MaxCodeUnits + 1, wantErr: ErrLengthOutOfRange},
		{name: "NegativeLength", index: 2, length: -1, wantErr: ErrLengthOutOfRange},
		{name: "ReservedIndex", index: 0, length: 2, wantErr: ErrReservedIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &usb.MockDevice{}
			_, err := FetchString(dev, tt.index, tt.length)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error: got %v, want %v", err, tt.wantErr)
			}
			if len(dev.Calls) != 0 {
				t.Errorf("precondition violations must not reach the transport, saw %d calls", len(dev.Calls))
			}
		})
	}
}

func TestFetchSetupFields(t *testing.T) {
	dev := &usb.MockDevice{Replies: []usb.MockReply{
		{Data: []byte{6, 0x03, 0x48, 0x00, 0x69, 0x00}},
	}}
	if _, err := FetchString(dev, 3, 2); err != nil {
		t.Fatalf("FetchString failed: %v", err)
	}

	want := usb.ControlCall{
		RequestType: usb.RequestTypeIn,
		Request:     usb.RequestGetDescriptor,
		Value:       usb.DescriptorTypeString<<8 | 3,
		Index:       usb.LangIDUSEnglish,
		Length:      6, // length*2 + header
	}
	if len(dev.Calls) != 1 {
		t.Fatalf("call count: got %d, want 1", len(dev.Calls))
	}
	if dev.Calls[0] != want {
		t.Errorf("setup fields:\ngot:  %+v\nwant: %+v", dev.Calls[0], want)
	}
}
