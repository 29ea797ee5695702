package bmp

import (
	"fmt"
	"strconv"

	"go.bug.st/serial/enumerator"
)

// SerialPort is one CDC-ACM port a probe exposes: the GDB server or the
// auxiliary UART.
type SerialPort struct {
	Name   string
	Serial string
}

// detailedPorts is swapped out in tests.
var detailedPorts = enumerator.GetDetailedPortsList

// Ports lists the serial ports belonging to devices matched by m. Which of
// a probe's two ports is the GDB server is platform-dependent and left to
// the caller; both are returned.
func Ports(m Matcher) ([]SerialPort, error) {
	list, err := detailedPorts()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}

	var out []SerialPort
	for _, p := range list {
		if !p.IsUSB || !m.matchesHex(p.VID, p.PID) {
			continue
		}
		out = append(out, SerialPort{Name: p.Name, Serial: p.SerialNumber})
	}
	return out, nil
}

// matchesHex compares the enumerator's hexadecimal id strings against the
// matcher, tolerating case differences across platforms.
func (m Matcher) matchesHex(vid, pid string) bool {
	v, err := strconv.ParseUint(vid, 16, 16)
	if err != nil {
		return false
	}
	p, err := strconv.ParseUint(pid, 16, 16)
	if err != nil {
		return false
	}
	return uint16(v) == m.VendorID && uint16(p) == m.ProductID
}
