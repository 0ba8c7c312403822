package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/josenovais97/distributed-systems/pkg/logger"
)

type ctxKey struct{}

func TestNewContextHandler(t *testing.T) {
	t.Parallel()

	t.Run("without extractors returns the wrapped handler", func(t *testing.T) {
		t.Parallel()
		next := slog.NewJSONHandler(&bytes.Buffer{}, nil)
		assert.Same(t, next, logger.NewContextHandler(next, nil, nil))
	})

	t.Run("adds extracted attributes and keeps them across WithAttrs", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		h := logger.NewContextHandler(slog.NewJSONHandler(buf, nil),
			func(ctx context.Context) (slog.Attr, bool) {
				v, ok := ctx.Value(ctxKey{}).(string)
				return slog.String("trace", v), ok
			},
			func(context.Context) (slog.Attr, bool) {
				return slog.Attr{}, true
			},
		)
		log := slog.New(h).With(slog.String("component", "test"))

		ctx := context.WithValue(context.Background(), ctxKey{}, "abc")
		log.InfoContext(ctx, "hello")

		entry := decode(t, buf)
		assert.Equal(t, "abc", entry["trace"])
		assert.Equal(t, "test", entry["component"])
		assert.NotContains(t, entry, "")
	})
}
