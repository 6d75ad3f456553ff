package proc

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/gookit/color"
)

// Stream identifies which output of a child process a line came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

// String returns the tag printed in front of lines from s.
func (s Stream) String() string {
	if s == Stderr {
		return "Error"
	}
	return "Info"
}

// Sink receives every line a child process writes. Line may be called from
// two goroutines at once, one per stream.
type Sink interface {
	Line(s Stream, line string)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(s Stream, line string)

func (f SinkFunc) Line(s Stream, line string) { f(s, line) }

// Discard drops all output.
var Discard Sink = SinkFunc(func(Stream, string) {})

// ConsoleSink prints "[Info] line" and "[Error] line" to W.
type ConsoleSink struct {
	W io.Writer

	mu sync.Mutex
}

// NewConsoleSink returns a ConsoleSink writing to stdout.
func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{W: os.Stdout}
}

func (c *ConsoleSink) Line(s Stream, line string) {
	tag := color.Info.Sprint(s)
	if s == Stderr {
		tag = color.Error.Sprint(s)
	}
	c.mu.Lock()
	fmt.Fprintf(c.W, "[%s] %s\n", tag, line)
	c.mu.Unlock()
}
