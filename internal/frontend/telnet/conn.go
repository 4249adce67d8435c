package telnet

import (
	"bufio"
	"errors"
	"net"
	"sync"
	"time"
)

// Telnet command bytes (RFC 854) and the options the server negotiates.
const (
	IAC  byte = 255
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250
	NOP  byte = 241
	SE   byte = 240

	OptEcho            byte = 1
	OptSuppressGoAhead byte = 3
	OptLinemode        byte = 34
)

// MaxLineLength is the longest input line, in bytes after Telnet commands are
// removed, that ReadLine returns. Usernames, passwords and commands all
// arrive as single lines.
const MaxLineLength = 512

// ErrLineTooLong is returned by ReadLine for a line over MaxLineLength. The
// whole line has been consumed, so the next ReadLine starts on a fresh line.
var ErrLineTooLong = errors.New("telnet: line too long")

const (
	backspace = 0x08
	del       = 0x7f
)

// Conn is one player connection: a handle naming it to the session registry,
// a Telnet-decoding line reader, and a serialized writer.
//
// ReadLine and ReadPassword belong to the session goroutine. Writes may come
// from any goroutine, since registry broadcasts reach a connection while its
// session is blocked reading.
type Conn struct {
	id     string
	raw    net.Conn
	reader *bufio.Reader
	filter Filter
	skipLF bool

	readTimeout  time.Duration
	writeTimeout time.Duration

	mu sync.Mutex
}

// NewConn wraps raw under the handle id.
//
// Precondition: id must be unique among live connections.
func NewConn(id string, raw net.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		id:           id,
		raw:          raw,
		reader:       bufio.NewReaderSize(raw, 4096),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// ID returns the connection's handle.
func (c *Conn) ID() string {
	return c.id
}

// RemoteAddr returns the remote network address of the client.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}

// Negotiate asks the client to run without go-ahead signals.
func (c *Conn) Negotiate() error {
	return c.write([]byte{IAC, WILL, OptSuppressGoAhead})
}

// ReadLine returns the next input line without its terminator. Telnet
// commands are dropped, erase characters remove the previous byte, and other
// control characters except tab are ignored. CR, LF, CR LF and CR NUL all end
// a line.
//
// Postcondition: Returns the line, ErrLineTooLong with the line discarded, or
// the read error (including io.EOF) with whatever was read so far.
func (c *Conn) ReadLine() (string, error) {
	if c.readTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.readTimeout))
	}

	line := make([]byte, 0, 64)
	overflow := false
	for {
		raw, err := c.reader.ReadByte()
		if err != nil {
			return string(line), err
		}
		b, ok := c.filter.feed(raw)
		if !ok {
			continue
		}
		if c.skipLF {
			c.skipLF = false
			if b == '\n' || b == 0 {
				continue
			}
		}

		switch {
		case b == '\r' || b == '\n':
			c.skipLF = b == '\r'
			if overflow {
				return "", ErrLineTooLong
			}
			return string(line), nil
		case b == backspace || b == del:
			if len(line) > 0 && !overflow {
				line = line[:len(line)-1]
			}
		case b < 32 && b != '\t', b == IAC:
		case len(line) >= MaxLineLength:
			overflow = true
		default:
			line = append(line, b)
		}
	}
}

// ReadPassword reads a line while the client's local echo is off. Echo is
// restored and the cursor moved to a new line whatever the outcome.
func (c *Conn) ReadPassword() (string, error) {
	if err := c.write([]byte{IAC, WILL, OptEcho}); err != nil {
		return "", err
	}
	line, err := c.ReadLine()
	_ = c.write([]byte{IAC, WONT, OptEcho, '\r', '\n'})
	return line, err
}

// WriteLine sends text followed by CR LF.
func (c *Conn) WriteLine(text string) error {
	return c.write(append([]byte(text), '\r', '\n'))
}

// WriteLines sends every line, each followed by CR LF, in a single write so
// output from other goroutines cannot land between them.
func (c *Conn) WriteLines(lines ...string) error {
	n := 0
	for _, l := range lines {
		n += len(l) + 2
	}
	buf := make([]byte, 0, n)
	for _, l := range lines {
		buf = append(buf, l...)
		buf = append(buf, '\r', '\n')
	}
	return c.write(buf)
}

// WritePrompt sends prompt without a line terminator.
func (c *Conn) WritePrompt(prompt string) error {
	return c.write([]byte(prompt))
}

// Write sends raw bytes.
func (c *Conn) Write(data []byte) error {
	return c.write(data)
}

func (c *Conn) write(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := c.raw.Write(p)
	return err
}

// Close closes the underlying connection. A session blocked in ReadLine
// returns with an error.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// Filter removes Telnet commands from an inbound byte stream. It carries
// state between calls, so a command split across two reads is still removed.
// The zero value is ready to use.
type Filter struct {
	state filterState
}

type filterState uint8

const (
	inData filterState = iota
	inCommand
	inOption
	inSub
	inSubCommand
)

// Strip returns p with every Telnet command removed. An escaped IAC IAC
// yields one literal 0xFF.
func (f *Filter) Strip(p []byte) []byte {
	out := make([]byte, 0, len(p))
	for _, b := range p {
		if d, ok := f.feed(b); ok {
			out = append(out, d)
		}
	}
	return out
}

// feed consumes one byte and reports the data byte it yields, if any.
func (f *Filter) feed(b byte) (byte, bool) {
	switch f.state {
	case inCommand:
		f.state = inData
		switch b {
		case WILL, WONT, DO, DONT:
			f.state = inOption
		case SB:
			f.state = inSub
		case IAC:
			return IAC, true
		}
		return 0, false
	case inOption:
		f.state = inData
		return 0, false
	case inSub:
		if b == IAC {
			f.state = inSubCommand
		}
		return 0, false
	case inSubCommand:
		f.state = inSub
		if b == SE {
			f.state = inData
		}
		return 0, false
	}
	if b == IAC {
		f.state = inCommand
		return 0, false
	}
	return b, true
}

// FilterIAC removes Telnet commands from a complete input buffer.
func FilterIAC(input []byte) []byte {
	var f Filter
	return f.Strip(input)
}
