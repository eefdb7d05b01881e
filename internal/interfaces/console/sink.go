package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"marketsim/internal/application/port"
)

// Sink writes the terminal view to a single stream. Live ticker lines
// overwrite in place (the renderer emits the carriage return and clear-EOL);
// snapshot lines must land on their own row, so a pending live line is
// terminated before one is written.
type Sink struct {
	w           *bufio.Writer
	livePending bool
}

func NewSink() port.Sink { return NewSinkTo(os.Stdout) }

// NewSinkTo writes to w instead of stdout.
func NewSinkTo(w io.Writer) *Sink {
	return &Sink{w: bufio.NewWriter(w)}
}

func (s *Sink) WriteLive(line string) error {
	if _, err := s.w.WriteString(line); err != nil {
		return err
	}
	s.livePending = true
	return s.w.Flush()
}

func (s *Sink) WriteSnapshot(ts time.Time, line string) error {
	if s.livePending {
		if err := s.w.WriteByte('\n'); err != nil {
			return err
		}
		s.livePending = false
	}
	if _, err := fmt.Fprintf(s.w, "%s %s\n", ts.Format("2006-01-02 15:04:05"), line); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *Sink) NewLine() error {
	s.livePending = false
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	return s.w.Flush()
}
