// Package boarderr names the error kinds that cross the board/transport
// boundary so callers can branch on kind with errors.Is instead of string
// matching.
package boarderr

import "errors"

var (
	// ErrUSB marks a control transfer that moved the wrong number of bytes.
	// Transport-layer code recovers from this itself (reattach + retry); it
	// only escapes to a caller when reattach also failed.
	ErrUSB = errors.New("usb control transfer failed")

	// ErrProtocolVersion marks a length field carrying a reserved 0xFxxx
	// pattern other than 0xFFFF. Fatal: the firmware and tool have drifted.
	ErrProtocolVersion = errors.New("protocol version mismatch")

	// ErrUnauthorized marks a length field of 0x8888 after a boot request.
	ErrUnauthorized = errors.New("unauthorized: a different rom must be flashed first")

	// ErrHandshakeTimeout marks the 2-second pre-write handshake deadline
	// expiring before a window reported itself writable.
	ErrHandshakeTimeout = errors.New("timed out waiting for board handshake")

	// ErrDetection marks a file classifier match whose subsequent
	// constraints failed (section outside memory, length <= header skip...).
	ErrDetection = errors.New("file detection error")

	// ErrDeviceNotFound marks a failed device scan.
	ErrDeviceNotFound = errors.New("board not found")
)
