package console

import (
	"context"
	"os"
)

// Rich console RPC opcodes (SKUNK_* in the original receiver firmware).
const (
	opWriteStderr = 1
	opReadStdin   = 2
	opFopen       = 3
	opFclose      = 4
	opFread       = 5
	opFwrite      = 6
	opFputc       = 7
	opFeof        = 8
	opFflush      = 9
	opFgets       = 10
	opFgetc       = 11
	opFseek       = 12
	opFtell       = 13
)

// msgHeaderSize is the length+opcode header every rich-dialect message
// carries ahead of its payload.
const msgHeaderSize = 6

// msgLenMax bounds a rich-dialect message body to what fits in a block
// alongside the escape sentinel and this header.
const msgLenMax = PayloadSize - 4 - msgHeaderSize

// RichProtocol implements the thirteen-opcode framed RPC dialect against
// a process-wide file-descriptor table.
type RichProtocol struct {
	Files *FileDescTable
}

// NewRichProtocol returns a RichProtocol with a freshly initialized file
// table (handles 0/1 pre-populated as stdin/stderr).
func NewRichProtocol() *RichProtocol {
	return &RichProtocol{Files: NewFileDescTable()}
}

func be16(b []byte) int  { return int(b[0])<<8 | int(b[1]) }
func be32(b []byte) int32 {
	return int32(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}
func putBE32(b []byte, v int32) {
	u := uint32(v)
	b[0] = byte(u >> 24)
	b[1] = byte(u >> 16)
	b[2] = byte(u >> 8)
	b[3] = byte(u)
}

// encodeReply builds the common u16 content_len, u32 result envelope.
func encodeReply(result int32, content []byte) []byte {
	out := make([]byte, msgHeaderSize+len(content))
	out[0] = byte(len(content) >> 8)
	out[1] = byte(len(content))
	putBE32(out[2:6], result)
	copy(out[6:], content)
	return out
}

func errorReply() []byte {
	return encodeReply(-1, nil)
}

// readArg scans body for a NUL-terminated argument, returning it and the
// remaining bytes after the terminator.
func readArg(body []byte) (arg string, rest []byte) {
	for i, c := range body {
		if c == 0 {
			return string(body[:i]), body[i+1:]
		}
	}
	return string(body), nil
}

func (p *RichProtocol) Handle(ctx context.Context, msg []byte) ([]byte, bool, error) {
	if len(msg) < msgHeaderSize {
		return errorReply(), false, nil
	}
	length := be16(msg[0:2])
	opcode := be32(msg[2:6])
	if msgHeaderSize+length > len(msg) {
		length = len(msg) - msgHeaderSize
	}
	body := msg[msgHeaderSize : msgHeaderSize+length]

	switch opcode {
	case opWriteStderr:
		os.Stderr.Write(body)
		return encodeReply(int32(len(body)), nil), false, nil

	case opReadStdin:
		return p.handleReadStdin(body), false, nil

	case opFopen:
		return p.handleFopen(body), false, nil

	case opFclose:
		if len(body) < 2 {
			return errorReply(), false, nil
		}
		fd := be16(body[0:2])
		if err := p.Files.Close(fd); err != nil {
			return errorReply(), false, nil
		}
		return encodeReply(0, nil), false, nil

	case opFread:
		return p.handleFread(body), false, nil

	case opFwrite:
		return p.handleFwrite(body), false, nil

	case opFputc:
		return p.handleFputc(body), false, nil

	case opFeof:
		return p.handleFeof(body), false, nil

	case opFflush:
		if len(body) < 2 {
			return errorReply(), false, nil
		}
		fd := be16(body[0:2])
		if f := p.Files.Get(fd); f != nil {
			f.Sync()
			return encodeReply(0, nil), false, nil
		}
		return errorReply(), false, nil

	case opFgets:
		return p.handleFgets(body), false, nil

	case opFgetc:
		return p.handleFgetc(body), false, nil

	case opFseek:
		return p.handleFseek(body), false, nil

	case opFtell:
		return p.handleFtell(body), false, nil

	default:
		return encodeReply(0, nil), false, nil
	}
}

func (p *RichProtocol) handleReadStdin(body []byte) []byte {
	buf := make([]byte, msgLenMax)
	n, _ := os.Stdin.Read(buf)
	return encodeReply(int32(n), buf[:n])
}

func (p *RichProtocol) handleFopen(body []byte) []byte {
	name, rest := readArg(body)
	mode, _ := readArg(rest)
	name = SanitizeFilename(name)

	var f *os.File
	var err error
	switch mode {
	case "r", "rb":
		f, err = os.Open(name)
	default:
		f, err = os.Create(name)
	}
	if err != nil {
		return encodeReply(-1, nil)
	}
	fd := p.Files.Open(f)
	if fd < 0 {
		f.Close()
		return encodeReply(-1, nil)
	}
	return encodeReply(int32(fd), nil)
}

// handleFread reads the size32,nmemb32,fd16 argument triple jcp_handler.c's
// SKUNK_FREAD expects (10 bytes total).
func (p *RichProtocol) handleFread(body []byte) []byte {
	if len(body) < 10 {
		return errorReply()
	}
	size := be32(body[0:4])
	nmemb := be32(body[4:8])
	fd := be16(body[8:10])
	total := int64(size) * int64(nmemb)
	if total < 0 || total > msgLenMax {
		return errorReply()
	}
	f := p.Files.Get(fd)
	if f == nil {
		return errorReply()
	}
	buf := make([]byte, total)
	n, _ := f.Read(buf)
	return encodeReply(int32(n), buf[:n])
}

// handleFwrite reads the size32,nmemb32,fd16 header SKUNK_FWRITE uses ahead
// of the write content, so size*nmemb bounds the payload the same way FREAD
// does rather than trusting the raw body length.
func (p *RichProtocol) handleFwrite(body []byte) []byte {
	if len(body) < 10 {
		return errorReply()
	}
	size := be32(body[0:4])
	nmemb := be32(body[4:8])
	fd := be16(body[8:10])
	data := body[10:]
	total := int64(size) * int64(nmemb)
	if total < 0 || total > int64(msgLenMax-10) {
		return errorReply()
	}
	if int64(len(data)) > total {
		data = data[:total]
	}
	f := p.Files.Get(fd)
	if f == nil {
		return errorReply()
	}
	n, err := f.Write(data)
	if err != nil {
		return errorReply()
	}
	return encodeReply(int32(n), nil)
}

func (p *RichProtocol) handleFputc(body []byte) []byte {
	if len(body) < 4 {
		return errorReply()
	}
	c := be16(body[0:2])
	fd := be16(body[2:4])
	f := p.Files.Get(fd)
	if f == nil {
		return errorReply()
	}
	if _, err := f.Write([]byte{byte(c)}); err != nil {
		return errorReply()
	}
	return encodeReply(int32(c), nil)
}

func (p *RichProtocol) handleFeof(body []byte) []byte {
	if len(body) < 2 {
		return errorReply()
	}
	fd := be16(body[0:2])
	f := p.Files.Get(fd)
	if f == nil {
		return errorReply()
	}
	pos, _ := f.Seek(0, 1)
	info, err := f.Stat()
	if err != nil {
		return errorReply()
	}
	if pos >= info.Size() {
		return encodeReply(1, nil)
	}
	return encodeReply(0, nil)
}

func (p *RichProtocol) handleFgets(body []byte) []byte {
	if len(body) < 6 {
		return errorReply()
	}
	maxLen := be32(body[0:4])
	fd := be16(body[4:6])
	f := p.Files.Get(fd)
	if f == nil || maxLen <= 0 || int(maxLen) > msgLenMax {
		return errorReply()
	}
	buf := make([]byte, 1)
	out := make([]byte, 0, maxLen)
	for len(out) < int(maxLen)-1 {
		n, err := f.Read(buf)
		if n == 0 || err != nil {
			break
		}
		out = append(out, buf[0])
		if buf[0] == '\n' {
			break
		}
	}
	if len(out) == 0 {
		return errorReply()
	}
	return encodeReply(int32(len(out)), out)
}

func (p *RichProtocol) handleFgetc(body []byte) []byte {
	if len(body) < 2 {
		return errorReply()
	}
	fd := be16(body[0:2])
	f := p.Files.Get(fd)
	if f == nil {
		return errorReply()
	}
	buf := make([]byte, 1)
	n, err := f.Read(buf)
	if n == 0 || err != nil {
		return encodeReply(-1, nil)
	}
	return encodeReply(int32(buf[0]), nil)
}

// handleFseek reads the offset32,whence16,fd16 argument triple SKUNK_FSEEK
// expects (8 bytes total).
func (p *RichProtocol) handleFseek(body []byte) []byte {
	if len(body) < 8 {
		return errorReply()
	}
	offset := be32(body[0:4])
	whence := be16(body[4:6])
	fd := be16(body[6:8])
	f := p.Files.Get(fd)
	if f == nil {
		return errorReply()
	}
	if _, err := f.Seek(int64(offset), whence); err != nil {
		return errorReply()
	}
	return encodeReply(0, nil)
}

func (p *RichProtocol) handleFtell(body []byte) []byte {
	if len(body) < 2 {
		return errorReply()
	}
	fd := be16(body[0:2])
	f := p.Files.Get(fd)
	if f == nil {
		return errorReply()
	}
	pos, err := f.Seek(0, 1)
	if err != nil {
		return errorReply()
	}
	return encodeReply(int32(pos), nil)
}

