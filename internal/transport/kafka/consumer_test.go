package kafka

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type mockReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	fetchErrs []error
	committed []int64
	closed    bool
	cancel    context.CancelFunc
}

func (m *mockReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.fetchErrs) > 0 {
		err := m.fetchErrs[0]
		m.fetchErrs = m.fetchErrs[1:]
		return kafka.Message{}, err
	}
	if len(m.msgs) == 0 {
		m.cancel()
		return kafka.Message{}, ctx.Err()
	}
	msg := m.msgs[0]
	m.msgs = m.msgs[1:]
	return msg, nil
}

func (m *mockReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		m.committed = append(m.committed, msg.Offset)
	}
	return nil
}

func (m *mockReader) Close() error {
	m.closed = true
	return nil
}

func TestConsumer_CommitsHandledMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &mockReader{
		msgs: []kafka.Message{
			{Offset: 1, Value: []byte("a")},
			{Offset: 2, Value: []byte("b")},
		},
		fetchErrs: []error{errors.New("broker not available")},
		cancel:    cancel,
	}

	var seen []string
	handler := func(_ context.Context, _ []byte, value []byte) error {
		seen = append(seen, string(value))
		return nil
	}

	if err := NewConsumerWithReader(r, handler, nil).Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(seen, []string{"a", "b"}) {
		t.Errorf("handled = %v", seen)
	}
	if !slices.Equal(r.committed, []int64{1, 2}) {
		t.Errorf("committed = %v, want [1 2]", r.committed)
	}
	if !r.closed {
		t.Error("reader must be closed")
	}
}

func TestConsumer_RetriesFailedMessageBeforeNext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &mockReader{
		msgs: []kafka.Message{
			{Offset: 1, Value: []byte("ok")},
			{Offset: 2, Value: []byte("flaky")},
			{Offset: 3, Value: []byte("ok")},
		},
		cancel: cancel,
	}

	var seen []string
	var committedWhenHandled [][]int64
	failures := 1
	handler := func(_ context.Context, _ []byte, value []byte) error {
		seen = append(seen, string(value))
		committedWhenHandled = append(committedWhenHandled, slices.Clone(r.committed))
		if string(value) == "flaky" && failures > 0 {
			failures--
			return errors.New("index down")
		}
		return nil
	}

	c := NewConsumerWithReader(r, handler, nil, WithRetry(3, time.Millisecond, time.Millisecond))
	if err := c.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(seen, []string{"ok", "flaky", "flaky", "ok"}) {
		t.Errorf("handled = %v", seen)
	}
	// the retry of offset 2 ran while only offset 1 was committed
	if !slices.Equal(committedWhenHandled[2], []int64{1}) {
		t.Errorf("committed before retry = %v, want [1]", committedWhenHandled[2])
	}
	if !slices.Equal(r.committed, []int64{1, 2, 3}) {
		t.Errorf("committed = %v, want [1 2 3]", r.committed)
	}
}

func TestConsumer_StopsWithoutCommittingWhenRetriesExhausted(t *testing.T) {
	r := &mockReader{
		msgs: []kafka.Message{
			{Offset: 1, Value: []byte("ok")},
			{Offset: 2, Value: []byte("fail")},
			{Offset: 3, Value: []byte("ok")},
		},
		cancel: func() {},
	}

	attempts := 0
	handler := func(_ context.Context, _ []byte, value []byte) error {
		if string(value) == "fail" {
			attempts++
			return errors.New("index down")
		}
		return nil
	}

	c := NewConsumerWithReader(r, handler, nil, WithRetry(2, time.Millisecond, time.Millisecond))
	err := c.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "index down") {
		t.Fatalf("expected handler error, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if !slices.Equal(r.committed, []int64{1}) {
		t.Errorf("committed = %v, want [1]", r.committed)
	}
	if len(r.msgs) != 1 {
		t.Errorf("offset 3 must not be fetched, %d messages left", len(r.msgs))
	}
	if !r.closed {
		t.Error("reader must be closed")
	}
}

func TestConsumer_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &mockReader{msgs: []kafka.Message{{Offset: 1, Value: []byte("fail")}}, cancel: cancel}

	handler := func(context.Context, []byte, []byte) error {
		cancel()
		return errors.New("index down")
	}

	c := NewConsumerWithReader(r, handler, nil, WithRetry(5, time.Hour, time.Hour))
	if err := c.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.committed) != 0 {
		t.Errorf("committed = %v, want none", r.committed)
	}
}

func TestConsumer_ReaderClosed(t *testing.T) {
	r := &mockReader{fetchErrs: []error{io.EOF}, cancel: func() {}}

	err := NewConsumerWithReader(r, func(context.Context, []byte, []byte) error { return nil }, nil).
		Run(context.Background())
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestNewConsumer_Validation(t *testing.T) {
	if _, err := NewConsumer(Config{Topic: "records"}, nil, nil); err == nil {
		t.Fatal("expected error")
	}
}
