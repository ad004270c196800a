package dispatcher

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func (l *testLogger) count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.messages {
		if strings.HasPrefix(m, prefix) {
			n++
		}
	}
	return n
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	return d, logger
}

type scrubPayload struct {
	Time float32 `json:"time"`
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got float32
	d.Register("timeline.scrub", func(e Event) (any, error) {
		p, err := Decode[scrubPayload](e)
		if err != nil {
			return nil, err
		}
		got = p.Time
		return "ok", nil
	})

	e, err := NewEvent("timeline.scrub", scrubPayload{Time: 1.25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := d.Dispatch(e)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if got != 1.25 {
		t.Errorf("expected time 1.25, got %v", got)
	}
	if result != "ok" {
		t.Errorf("expected 'ok', got %v", result)
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Command: "entity.explode"})

	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestDecode(t *testing.T) {
	p, err := Decode[scrubPayload](Event{Command: "timeline.scrub"})
	if err != nil || p.Time != 0 {
		t.Errorf("empty payload: got %v, %v", p, err)
	}

	_, err = Decode[scrubPayload](Event{Command: "timeline.scrub", Payload: []byte(`{"time":"soon"}`)})
	if err == nil || !strings.Contains(err.Error(), "timeline.scrub") {
		t.Errorf("expected decode error naming the command, got %v", err)
	}
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	d.Register("bindings.values", func(e Event) (any, error) {
		processed.Add(1)
		return nil, nil
	}, Buffered(100))

	for i := 0; i < 3; i++ {
		result, err := d.Dispatch(Event{Command: "bindings.values"})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != "queued" {
			t.Errorf("expected 'queued', got %v", result)
		}
	}

	d.Close()

	if processed.Load() != 3 {
		t.Errorf("expected 3 processed, got %d", processed.Load())
	}
	if d.HasHandler("bindings.values") {
		t.Error("closed buffered handler should be unregistered")
	}
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	d.Register("bindings.values", func(e Event) (any, error) {
		<-block
		return nil, nil
	}, Buffered(2))

	// one in the handler, two queued
	d.Dispatch(Event{Command: "bindings.values"})
	d.Dispatch(Event{Command: "bindings.values"})
	d.Dispatch(Event{Command: "bindings.values"})

	_, err := d.Dispatch(Event{Command: "bindings.values"})

	if err == nil {
		t.Error("expected error when queue is full")
	}

	close(block)
}

func TestDispatcher_BufferedBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	d.Register("bindings.values", func(e Event) (any, error) {
		<-block
		return nil, nil
	}, Buffered(1), Blocking())

	d.Dispatch(Event{Command: "bindings.values"})
	d.Dispatch(Event{Command: "bindings.values"})

	done := make(chan struct{})
	go func() {
		d.Dispatch(Event{Command: "bindings.values"})
		close(done)
	}()

	select {
	case <-done:
		t.Error("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
	}

	close(block)
	<-done
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("entity.add", func(e Event) (any, error) {
		return "ok", nil
	}, Logged())

	d.Dispatch(Event{Command: "entity.add", Payload: []byte(`{"kind":"BOX"}`)})

	if n := logger.count("DEBUG"); n != 2 {
		t.Errorf("expected 2 debug messages, got %d", n)
	}
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("entity.remove", func(e Event) (any, error) {
		return nil, fmt.Errorf("entity not found")
	}, Logged())

	_, err := d.Dispatch(Event{Command: "entity.remove"})
	if err == nil {
		t.Fatal("expected handler error to propagate")
	}

	if logger.count("ERROR") != 1 {
		t.Error("expected error log message")
	}
}

func TestDispatcher_BufferedErrorIsLogged(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("bindings.values", func(e Event) (any, error) {
		return nil, fmt.Errorf("bad values")
	}, Buffered(4))

	d.Dispatch(Event{Command: "bindings.values"})
	d.Close()

	if logger.count("ERROR") != 1 {
		t.Error("expected buffered failure to be logged")
	}
}

func TestDispatcher_HasHandlerAndCommands(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("tour.toggle", func(e Event) (any, error) { return nil, nil })
	d.Register("entity.add", func(e Event) (any, error) { return nil, nil })

	if !d.HasHandler("tour.toggle") {
		t.Error("expected handler to exist")
	}
	if d.HasHandler("tour.stop") {
		t.Error("expected handler to not exist")
	}

	cmds := d.Commands()
	if len(cmds) != 2 || cmds[0] != "entity.add" || cmds[1] != "tour.toggle" {
		t.Errorf("unexpected commands %v", cmds)
	}
}

func TestDispatcher_CombinedOptions(t *testing.T) {
	d, logger := newTestDispatcher(t)

	var processed atomic.Int32
	d.Register("bindings.values", func(e Event) (any, error) {
		processed.Add(1)
		return "done", nil
	}, Buffered(100), Logged())

	result, err := d.Dispatch(Event{Command: "bindings.values"})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "queued" {
		t.Errorf("expected 'queued', got %v", result)
	}

	d.Close()

	if processed.Load() != 1 {
		t.Errorf("expected 1 processed, got %d", processed.Load())
	}
	if logger.count("DEBUG") < 2 {
		t.Errorf("expected log messages, got %d", logger.count("DEBUG"))
	}
}

func TestNew_NilLogger(t *testing.T) {
	d, err := New(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d.Register("tour.toggle", func(e Event) (any, error) { return true, nil }, Logged())
	if res, err := d.Dispatch(Event{Command: "tour.toggle"}); err != nil || res != true {
		t.Errorf("got %v, %v", res, err)
	}
}
