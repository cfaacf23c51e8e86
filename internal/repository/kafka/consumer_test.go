package kafka

import (
	"context"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fetchStep struct {
	msg kafkago.Message
	err error
}

// scriptReader replays a fixed fetch script and cancels the context when it
// runs out, so Consume terminates.
type scriptReader struct {
	steps     []fetchStep
	committed []int64
	cancel    context.CancelFunc
}

func (r *scriptReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	if len(r.steps) == 0 {
		r.cancel()
		return kafkago.Message{}, context.Canceled
	}
	step := r.steps[0]
	r.steps = r.steps[1:]
	return step.msg, step.err
}

func (r *scriptReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *scriptReader) Close() error { return nil }

func newScriptConsumer(t *testing.T, steps ...fetchStep) (*Consumer, *scriptReader, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	r := &scriptReader{steps: steps, cancel: cancel}
	c := &Consumer{reader: r, log: zap.NewNop(), cfg: &ConsumerConfig{Topic: "t", GroupID: "g"}}
	return c, r, ctx
}

func TestConsumeCommitsFailedMessages(t *testing.T) {
	c, r, ctx := newScriptConsumer(t,
		fetchStep{msg: kafkago.Message{Offset: 10, Value: []byte("bad")}},
		fetchStep{msg: kafkago.Message{Offset: 11, Value: []byte("good")}},
	)

	var handled [][]byte
	err := c.Consume(ctx, func(_ context.Context, _, value []byte) error {
		handled = append(handled, value)
		if string(value) == "bad" {
			return errors.New("poison payload")
		}
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	// The failed message must not wedge the partition.
	require.Equal(t, [][]byte{[]byte("bad"), []byte("good")}, handled)
	require.Equal(t, []int64{10, 11}, r.committed)
}

func TestConsumeRetriesAfterFetchError(t *testing.T) {
	c, r, ctx := newScriptConsumer(t,
		fetchStep{err: errors.New("broker hiccup")},
		fetchStep{msg: kafkago.Message{Offset: 7}},
	)

	var seen int
	err := c.Consume(ctx, func(context.Context, []byte, []byte) error {
		seen++
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, seen)
	require.Equal(t, []int64{7}, r.committed)
}
