// Package session owns the lifecycle of one installation run: the signal
// handlers and the single-shot cleanup that stops the stack on every exit path.
package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
)

// TriggerKind tells how the run is ending.
type TriggerKind int

const (
	// Exit is the normal end of the sequence.
	Exit TriggerKind = iota
	// Failure is an unrecoverable error raised by a stage.
	Failure
	// Signal is an external interrupt or termination request.
	Signal
)

// Trigger describes the condition that invoked the cleanup.
type Trigger struct {
	Kind   TriggerKind
	Detail string
}

func ExitTrigger() Trigger {
	return Trigger{Kind: Exit}
}

func FailureTrigger(err error) Trigger {
	return Trigger{Kind: Failure, Detail: err.Error()}
}

func SignalTrigger(sig os.Signal) Trigger {
	return Trigger{Kind: Signal, Detail: sig.String()}
}

func (t Trigger) String() string {
	switch t.Kind {
	case Failure:
		return "error: " + t.Detail
	case Signal:
		return "signal " + t.Detail
	}
	return "exit"
}

// StopFunc stops the running services of the stack.
type StopFunc func(ctx context.Context) error

// Session holds the state of one run. Sessions are independent of each other.
type Session struct {
	stop   StopFunc
	out    io.Writer
	logger logrus.FieldLogger

	mu        sync.Mutex
	cleanedUp bool
	trigger   Trigger
}

// New returns a session whose cleanup calls stop.
func New(stop StopFunc, out io.Writer, logger logrus.FieldLogger) *Session {
	return &Session{stop: stop, out: out, logger: logger}
}

// Cleanup stops the stack the first time it is called and is a no-op after.
// Concurrent callers block until the first one has finished, so every caller
// returns with the stack stopped. It reports whether this call did the work.
func (s *Session) Cleanup(trigger Trigger) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cleanedUp {
		return false
	}
	s.cleanedUp = true
	s.trigger = trigger

	if trigger.Kind != Exit {
		fmt.Fprintf(s.out, "An error occurred, caught %s\n", trigger)
	}
	fmt.Fprintln(s.out, "Cleaning up...")

	// the run context may already be cancelled, stopping must not depend on it
	if err := s.stop(context.Background()); err != nil {
		s.logger.WithError(err).Debug("stopping the stack failed")
	}
	return true
}

// CleanedUp reports whether the cleanup ran, and with which trigger.
func (s *Session) CleanedUp() (bool, Trigger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanedUp, s.trigger
}

// Watch returns a context cancelled on SIGINT or SIGTERM. The first signal
// also runs the cleanup. The returned function releases the handlers.
func (s *Session) Watch(parent context.Context) (context.Context, func()) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	ctx, release := s.watch(parent, signals)
	return ctx, func() {
		signal.Stop(signals)
		release()
	}
}

func (s *Session) watch(parent context.Context, signals <-chan os.Signal) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		select {
		case sig := <-signals:
			s.logger.WithField("signal", sig.String()).Debug("termination requested")
			cancel()
			s.Cleanup(SignalTrigger(sig))
		case <-done:
		}
	}()

	return ctx, func() {
		close(done)
		<-finished
		cancel()
	}
}
