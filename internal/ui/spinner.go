package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner is a single-line progress indicator for commands that block on RPC
// calls outside the full-screen tracker.
type Spinner struct {
	out  io.Writer
	msg  string
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func NewSpinner(out io.Writer, msg string) *Spinner {
	return &Spinner{out: out, msg: msg, stop: make(chan struct{}), done: make(chan struct{})}
}

func (s *Spinner) Start() {
	go func() {
		defer close(s.done)
		t := time.NewTicker(80 * time.Millisecond)
		defer t.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(s.out, "\r%s  %s", StyleNetwork.Render(spinFrames[i%len(spinFrames)]), s.msg)
			select {
			case <-s.stop:
				fmt.Fprintf(s.out, "\r%-*s\r", len(s.msg)+4, "")
				return
			case <-t.C:
			}
		}
	}()
}

// Stop clears the line. Safe to call more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}
