package tracking

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/tracking-relay/internal/domain/models"
	"github.com/Temutjin2k/tracking-relay/internal/domain/types"
	"github.com/Temutjin2k/tracking-relay/pkg/logger"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	Event string
	Data  map[string]any
}

// fakeSender records everything sent to one connection.
type fakeSender struct {
	mu   sync.Mutex
	msgs []sentMessage
	fail error
}

func (f *fakeSender) Send(event string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail != nil {
		return f.fail
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	f.msgs = append(f.msgs, sentMessage{Event: event, Data: decoded})
	return nil
}

func (f *fakeSender) events(name types.EventName) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []map[string]any
	for _, m := range f.msgs {
		if m.Event == name.String() {
			out = append(out, m.Data)
		}
	}
	return out
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

type publishedEvent struct {
	Event     types.EventName
	BookingID models.ID
}

type fakeMirror struct {
	mu        sync.Mutex
	published []publishedEvent
}

func (m *fakeMirror) Publish(_ context.Context, event types.EventName, bookingID models.ID, _ any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, publishedEvent{Event: event, BookingID: bookingID})
}

var fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 250_000_000, time.UTC)

const fixedStamp = "2026-05-04T09:30:00.250Z"

func testLogger() logger.Logger {
	return logger.New(io.Discard, "tracking-test", logger.LevelDebug)
}

func newTestTracker(opts ...Option) *Tracker {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(testLogger(), opts...)
}

// connect attaches a fake connection and returns it.
func connect(t *testing.T, tr *Tracker, connID string) *fakeSender {
	t.Helper()
	s := &fakeSender{}
	tr.Connect(connID, s)
	return s
}

func frame(t *testing.T, tr *Tracker, connID string, event types.EventName, payload string) error {
	t.Helper()
	return tr.HandleFrame(context.Background(), connID, event.String(), json.RawMessage(payload))
}

func mustFrame(t *testing.T, tr *Tracker, connID string, event types.EventName, payload string) {
	t.Helper()
	require.NoError(t, frame(t, tr, connID, event, payload))
}
