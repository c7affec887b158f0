package interpreter

import (
	"io"
	"time"
)

// Default MMIO addresses of the builtin devices
const (
	SerialBase uint32 = 0xa00003f8
	RTCBase    uint32 = 0xa0000048
)

// NewSerial creates a write only serial port. Every byte written to offset 0
// is forwarded to out.
func NewSerial(out io.Writer) *Device {
	return &Device{
		Name: "serial",
		Base: SerialBase,
		Size: 8,
		Write: func(offset uint32, size int, value uint32) {
			if offset == 0 && out != nil {
				out.Write([]byte{byte(value)})
			}
		},
	}
}

// NewRTC creates a real time clock exposing the microseconds elapsed since
// boot as a 64 bit counter split in two words (low word at offset 0).
// The counter is latched when the high word is read.
func NewRTC(now func() time.Time) *Device {
	if now == nil {
		now = time.Now
	}
	boot := now()
	var latched uint64

	return &Device{
		Name: "rtc",
		Base: RTCBase,
		Size: 8,
		Read: func(offset uint32, size int) uint32 {
			if offset == 4 {
				latched = uint64(now().Sub(boot).Microseconds())
				return uint32(latched >> 32)
			}
			return uint32(latched)
		},
	}
}
