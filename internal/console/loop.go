package console

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"jcp2/internal/board"
	"jcp2/internal/jlog"
)

// formFeed bytes arriving in plain terminal output are printed as a
// newline; no screen-clear sequence is emitted.
const formFeed = 0x0C

// Loop drives the steady-state console: after the initial handshake it
// alternates windows, reads whatever the receiver sends, and either
// prints plain text or dispatches an RPC message through proto.
type Loop struct {
	session *board.Session
	proto   Protocol
	log     *jlog.Logger
	out     func([]byte)

	// ExternalShell, when set, makes Run shell out to that executable
	// in place of running the console loop itself, mirroring the
	// original tool's "-x external console" shortcut.
	ExternalShell string
}

// NewLoop returns a Loop that prints plain console output to stdout.
func NewLoop(session *board.Session, proto Protocol, log *jlog.Logger) *Loop {
	return &Loop{session: session, proto: proto, log: log, out: defaultOut}
}

func defaultOut(b []byte) {
	for i, c := range b {
		if c == formFeed {
			b[i] = '\n'
		}
	}
	os.Stdout.Write(b)
}

// Run performs the handshake (both windows marked free) and then loops
// until the receiver sends a terminate command or ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if l.ExternalShell != "" {
		return l.shellOut(ctx)
	}

	if err := l.handshake(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		block, err := l.session.ReadNextBlock(ctx)
		if err != nil {
			return err
		}
		if block.Length == 0 {
			continue
		}

		payload := block.Payload
		if isEscape(payload) {
			reply, terminate, err := l.proto.Handle(ctx, payload[2:])
			if err != nil {
				l.log.Errorf("console rpc error: %v", err)
				continue
			}
			if reply != nil {
				if err := l.session.SendReply(ctx, reply); err != nil {
					return err
				}
			}
			if terminate {
				return nil
			}
			continue
		}

		l.out(payload)
	}
}

func (l *Loop) handshake(ctx context.Context) error {
	return l.session.AnnounceReady(ctx)
}

// shellOut hands off the console entirely to an external program,
// matching HandleConsole's behavior when an external shell is configured:
// it never starts the RPC loop itself.
func (l *Loop) shellOut(ctx context.Context) error {
	fmt.Println("Starting external console...")
	cmd := exec.CommandContext(ctx, l.ExternalShell)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("external console %q failed to launch: %w", l.ExternalShell, err)
	}
	return nil
}
