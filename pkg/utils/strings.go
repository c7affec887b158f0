package utils

import (
	"fmt"
	"strings"
)

// Formats a 32 bit value as a binary string with underscore separators every byte
func FormatBinary(val uint32) string {
	s := fmt.Sprintf("%032b", val)
	return s[0:8] + "_" + s[8:16] + "_" + s[16:24] + "_" + s[24:32]
}

// Formats a 32 bit word as its bytes, most significant first, e.g. "80 00 02 b7"
func FormatWordBytes(word uint32) string {
	var builder strings.Builder

	for i := 3; i >= 0; i-- {
		if i < 3 {
			builder.WriteByte(' ')
		}
		fmt.Fprintf(&builder, "%02x", byte(word>>(8*i)))
	}

	return builder.String()
}

// Returns an string containing all formatted sequence items separated by a given separator
func FormatSlice[T any](input []T, separator string) string {
	var builder strings.Builder

	for i, value := range input {
		builder.WriteString(fmt.Sprint(value))

		if i < len(input)-1 {
			builder.WriteString(separator)
		}
	}

	return builder.String()
}

// Formats a value like C's "%#0<width>x": the 0x prefix is counted in the width
// and omitted for zero, e.g. FormatCHex(0x2a, 8) is "0x00002a" and FormatCHex(0, 8) is "00000000"
func FormatCHex(value uint32, width int) string {
	if value == 0 {
		return fmt.Sprintf("%0*x", width, value)
	}
	return "0x" + fmt.Sprintf("%0*x", max(width-2, 0), value)
}
