package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestCenter_SendInRegistrationOrder(t *testing.T) {
	center := NewCenter(zap.NewNop())

	var calls []string
	center.AddHandler(LogEvent, func(payload any) { calls = append(calls, "first:"+payload.(string)) })
	center.AddHandler(LogEvent, func(payload any) { calls = append(calls, "second:"+payload.(string)) })
	center.AddHandler(Track, func(payload any) { calls = append(calls, "track") })

	center.Send(LogEvent, "batch")

	assert.Equal(t, []string{"first:batch", "second:batch"}, calls)
}

func TestCenter_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	center := NewCenter(zap.NewNop())

	called := false
	center.AddHandler(LogEvent, func(any) { panic("listener failure") })
	center.AddHandler(LogEvent, func(any) { called = true })

	assert.NotPanics(t, func() { center.Send(LogEvent, nil) })
	assert.True(t, called)
}

func TestCenter_RemoveHandler(t *testing.T) {
	center := NewCenter(zap.NewNop())

	count := 0
	id := center.AddHandler(Decision, func(any) { count++ })

	assert.True(t, center.RemoveHandler(id))
	assert.False(t, center.RemoveHandler(id))

	center.Send(Decision, nil)
	assert.Equal(t, 0, count)
}

func TestCenter_ClearHandlers(t *testing.T) {
	center := NewCenter(zap.NewNop())

	count := 0
	center.AddHandler(Track, func(any) { count++ })
	center.AddHandler(Track, func(any) { count++ })
	center.ClearHandlers(Track)

	center.Send(Track, nil)
	assert.Equal(t, 0, count)
}
