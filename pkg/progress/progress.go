package progress

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Spinner is a simple text spinner for long-running validations.
type Spinner struct {
	w       io.Writer
	message string
	frames  []string
	done    chan bool
	active  bool
}

func NewSpinner(message string) *Spinner {
	return &Spinner{
		w:       os.Stdout,
		message: message,
		frames:  []string{"|", "/", "-", "\\"},
		done:    make(chan bool, 1),
	}
}

// Start begins the animation. No-op if already running.
func (s *Spinner) Start() {
	if s.active {
		return
	}

	s.active = true
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				fmt.Fprintf(s.w, "\r%s %s", s.frames[i%len(s.frames)], s.message)
				i++
			}
		}
	}()
}

// UpdateMessage changes the message while the spinner runs.
func (s *Spinner) UpdateMessage(message string) {
	s.message = message
}

// Stop ends the animation and prints a completion line.
func (s *Spinner) Stop(message string) {
	s.stop("✅", message)
}

// StopWithError ends the animation and prints an error line.
func (s *Spinner) StopWithError(message string) {
	s.stop("❌", message)
}

func (s *Spinner) stop(icon, message string) {
	if !s.active {
		return
	}
	s.active = false
	s.done <- true
	fmt.Fprintf(s.w, "\r%s %s\n", icon, message)
}
