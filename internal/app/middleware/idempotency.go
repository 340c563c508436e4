package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"staybook/internal/app/commands"
)

// IdempotentCommand is implemented by commands that clients may safely
// retry with the same key. ResultPrototype returns a pointer the stored
// result is decoded into on replay.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any
}

type IdempotencyRecord struct {
	Key        string    `json:"key"`
	Payload    []byte    `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// IdempotencyStore keeps successful results. Expiry is up to the store.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONResultCodec) Decode(data []byte, out any) error { return json.Unmarshal(data, out) }

var errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")

// Idempotency replays the stored result of an earlier successful dispatch
// carrying the same key. Keys are scoped by command, so one client key sent
// to two different operations never collides. Failed dispatches are not
// remembered and may be retried with the same key.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return nextFn(ctx, cmd)
			}
			key := scopedKey(idCmd)
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("idempotency lookup %s: %w", key, err)
			}
			if found {
				return replay(codec, rec, idCmd)
			}
			result, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := remember(ctx, store, codec, key, result); err != nil {
				return nil, err
			}
			return result, nil
		})
	}
}

func scopedKey(cmd IdempotentCommand) string {
	return cmd.Key() + ":" + cmd.IdempotencyKey()
}

func replay(codec ResultCodec, rec IdempotencyRecord, cmd IdempotentCommand) (any, error) {
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if len(rec.Payload) == 0 {
		return nil, nil
	}
	if err := codec.Decode(rec.Payload, proto); err != nil {
		return nil, fmt.Errorf("idempotency replay %s: %w", rec.Key, err)
	}
	return proto, nil
}

func remember(ctx context.Context, store IdempotencyStore, codec ResultCodec, key string, result any) error {
	rec := IdempotencyRecord{Key: key, OccurredAt: time.Now().UTC()}
	if result != nil {
		payload, err := codec.Encode(result)
		if err != nil {
			return err
		}
		rec.Payload = payload
	}
	return store.Save(ctx, rec)
}
