package agent

import (
	"bytes"
	"strings"
	"sync"
)

// output accumulates a stream and forwards each chunk to a callback.
type output struct {
	mu  sync.Mutex
	buf strings.Builder
	fn  func(string)
}

func newOutput(fn func(string)) *output {
	return &output{fn: fn}
}

func (o *output) Write(p []byte) (int, error) {
	o.WriteString(string(p))
	return len(p), nil
}

func (o *output) WriteString(s string) {
	o.mu.Lock()
	o.buf.WriteString(s)
	o.mu.Unlock()
	if o.fn != nil && s != "" {
		o.fn(s)
	}
}

func (o *output) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.String()
}

// lineDecoder splits a stream into lines and writes each decoded line to
// dst. Lines the decoder drops are not written at all.
type lineDecoder struct {
	dst     *output
	decode  func(line string) (string, bool)
	partial []byte
}

func (d *lineDecoder) Write(p []byte) (int, error) {
	d.partial = append(d.partial, p...)
	for {
		i := bytes.IndexByte(d.partial, '\n')
		if i < 0 {
			break
		}
		d.emit(string(d.partial[:i]))
		d.partial = d.partial[i+1:]
	}
	return len(p), nil
}

// Flush emits a trailing line that had no newline.
func (d *lineDecoder) Flush() {
	if len(d.partial) > 0 {
		d.emit(string(d.partial))
		d.partial = nil
	}
}

func (d *lineDecoder) emit(line string) {
	line = strings.TrimRight(line, "\r")
	if text, ok := d.decode(line); ok {
		d.dst.WriteString(text)
	}
}
