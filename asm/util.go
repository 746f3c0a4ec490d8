// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "strconv"

var hex = "0123456789ABCDEF"

// Parse a $hex, %binary or decimal number.
func parseNumber(s string) (uint64, error) {
	base := 10
	switch {
	case s == "":
		return 0, ErrInvalidOperand
	case s[0] == '$':
		base, s = 16, s[1:]
	case s[0] == '%':
		base, s = 2, s[1:]
	}

	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, ErrInvalidOperand
	}
	return v, nil
}

// Return a little-endian representation of the value using the requested
// number of bytes.
func toBytes(bytes, value int) []byte {
	switch bytes {
	case 0:
		return nil
	case 1:
		return []byte{byte(value)}
	default:
		return []byte{byte(value), byte(value >> 8)}
	}
}

// ByteString returns a hexadecimal string representation of a byte slice,
// with bytes separated by spaces.
func ByteString(b []byte) string {
	if len(b) < 1 {
		return ""
	}

	s := make([]byte, len(b)*3-1)
	i, j := 0, 0
	for n := len(b) - 1; i < n; i, j = i+1, j+3 {
		s[j+0] = hex[(b[i] >> 4)]
		s[j+1] = hex[(b[i] & 0x0f)]
		s[j+2] = ' '
	}
	s[j+0] = hex[(b[i] >> 4)]
	s[j+1] = hex[(b[i] & 0x0f)]
	return string(s)
}
