/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ssgreg/logf"

	"github.com/acronis/go-fetchkit/log"
)

type entryWriter struct {
	sync.Mutex
	encoder logf.Encoder
	output  io.Writer
}

//nolint:gocritic
func (ew *entryWriter) WriteEntry(e logf.Entry) {
	ew.Lock()
	defer ew.Unlock()

	var buf logf.Buffer
	if err := ew.encoder.Encode(&buf, e); err != nil {
		_, _ = fmt.Fprint(ew.output, err)
		return
	}
	_, _ = ew.output.Write(buf.Data)
}

// NewLogger returns a synchronous JSON logger (level: debug) writing to output (os.Stderr if nil).
// It is slow and intended to be used in tests and examples only.
func NewLogger(output io.Writer) log.FieldLogger {
	if output == nil {
		output = os.Stderr
	}
	ew := &entryWriter{
		encoder: logf.NewJSONEncoder(logf.JSONEncoderConfig{
			EncodeTime:   logf.RFC3339NanoTimeEncoder,
			FieldKeyTime: "time",
		}),
		output: output,
	}
	return &log.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, ew)}
}
