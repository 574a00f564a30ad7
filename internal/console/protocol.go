// Package console implements the steady-state console loop and the two
// remote-procedure-call dialects the receiver can speak once a payload
// has booted it into console mode: a small seven-command set and a
// richer thirteen-opcode framed protocol.
package console

import "context"

// Protocol is the capability a booted receiver's RPC dialect exposes.
// msg is everything in a console block's payload after the two-byte
// escape sentinel; each implementation parses its own header out of it.
// A non-nil reply is sent back to the board via Session.SendReply.
type Protocol interface {
	Handle(ctx context.Context, msg []byte) (reply []byte, terminate bool, err error)
}

// escapeSentinel marks a console block as carrying an RPC message rather
// than plain terminal text.
var escapeSentinel = [2]byte{0xFF, 0xFF}

func isEscape(payload []byte) bool {
	return len(payload) >= 2 && payload[0] == escapeSentinel[0] && payload[1] == escapeSentinel[1]
}

func nulTerminated(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
