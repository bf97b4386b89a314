package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ftsync/internal/domain/record"
	"github.com/kailas-cloud/ftsync/internal/domain/searchable"
)

// Event operations.
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDestroy = "destroy"
)

// RecordEvent is a committed record mutation. Before holds the stored
// attributes prior to an update or destroy, After the attributes written by
// a create or update.
type RecordEvent struct {
	Op     string         `json:"op"`
	Type   string         `json:"type"`
	ID     int64          `json:"id"`
	Before map[string]any `json:"before,omitempty"`
	After  map[string]any `json:"after,omitempty"`
}

// TypeLookup resolves registered types.
type TypeLookup interface {
	Lookup(name string) (*searchable.Type, error)
}

// Syncer applies lifecycle events to the index.
type Syncer interface {
	Saved(ctx context.Context, rec *record.Record, created bool) error
	AfterDestroy(ctx context.Context, rec *record.Record) error
}

// DecodeEvent reads a RecordEvent. Numbers keep their literal form.
func DecodeEvent(value []byte) (RecordEvent, error) {
	var ev RecordEvent
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()
	if err := dec.Decode(&ev); err != nil {
		return RecordEvent{}, fmt.Errorf("decoding record event: %w", err)
	}
	return ev, nil
}

// HandleRecordEvent returns a MessageHandler that replays record events
// through the sync orchestrator. Undecodable events and events for
// unregistered types are logged and skipped.
func HandleRecordEvent(types TypeLookup, syncer Syncer, logger *zap.Logger) MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		ev, err := DecodeEvent(value)
		if err != nil {
			logger.Error("Failed to decode record event", zap.ByteString("key", key), zap.Error(err))
			return nil
		}
		typ, err := types.Lookup(ev.Type)
		if err != nil {
			logger.Warn("Skipping event for unregistered type",
				zap.String("type", ev.Type), zap.Int64("id", ev.ID))
			return nil
		}

		switch ev.Op {
		case OpCreate:
			rec := record.New(ev.Type, ev.ID, ev.After, typ.Watched())
			return syncer.Saved(ctx, rec, true)
		case OpUpdate:
			rec := record.New(ev.Type, ev.ID, ev.Before, typ.Watched())
			names := make([]string, 0, len(ev.After))
			for name := range ev.After {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, name := range names {
				rec.Set(name, ev.After[name])
			}
			return syncer.Saved(ctx, rec, false)
		case OpDestroy:
			attrs := ev.Before
			if attrs == nil {
				attrs = ev.After
			}
			return syncer.AfterDestroy(ctx, record.New(ev.Type, ev.ID, attrs, typ.Watched()))
		default:
			logger.Warn("Skipping event with unknown op",
				zap.String("op", ev.Op), zap.String("type", ev.Type), zap.Int64("id", ev.ID))
			return nil
		}
	}
}
