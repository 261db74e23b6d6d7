package event

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kite_ticker/internal/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcher_RegistrationOrder(t *testing.T) {
	d := NewDispatcher(quietLogger())

	var calls []int
	for i := 1; i <= 3; i++ {
		i := i
		require.True(t, d.On(KindTicks, func(Event) { calls = append(calls, i) }))
	}

	d.Emit(TicksEvent{})
	assert.Equal(t, []int{1, 2, 3}, calls)
}

func TestDispatcher_SamePayloadToEveryHandler(t *testing.T) {
	d := NewDispatcher(quietLogger())
	ticks := []domain.Tick{{InstrumentToken: 408065, LastPrice: 1500.25}}

	var got []Event
	d.On(KindTicks, func(ev Event) { got = append(got, ev) })
	d.On(KindTicks, func(ev Event) { got = append(got, ev) })

	d.Emit(TicksEvent{Ticks: ticks})

	require.Len(t, got, 2)
	for _, ev := range got {
		te, ok := ev.(TicksEvent)
		require.True(t, ok)
		assert.Equal(t, ticks, te.Ticks)
	}
}

func TestDispatcher_UnknownKindIgnored(t *testing.T) {
	d := NewDispatcher(quietLogger())

	assert.False(t, d.On(Kind(0), func(Event) {}))
	assert.False(t, d.On(Kind(200), func(Event) {}))
	assert.False(t, d.On(KindClose, nil))
	assert.False(t, d.OnName("tick", func(Event) {}))

	assert.True(t, d.OnName("order_update", func(Event) {}))
	assert.Equal(t, 1, d.HandlerCount(KindOrderUpdate))
}

func TestDispatcher_OnlyMatchingKind(t *testing.T) {
	d := NewDispatcher(quietLogger())

	var closes, errs int
	d.On(KindClose, func(Event) { closes++ })
	d.On(KindError, func(Event) { errs++ })

	d.Emit(ErrorEvent{Err: errors.New("boom")})
	d.Emit(ErrorEvent{Err: errors.New("boom")})
	d.Emit(CloseEvent{})

	assert.Equal(t, 1, closes)
	assert.Equal(t, 2, errs)
}

func TestDispatcher_PanicIsolation(t *testing.T) {
	d := NewDispatcher(quietLogger())

	var panics []Kind
	d.OnPanic = func(kind Kind, recovered any) {
		panics = append(panics, kind)
		assert.Equal(t, "handler failure", recovered)
	}

	var ran []string
	d.On(KindReconnect, func(Event) { ran = append(ran, "first") })
	d.On(KindReconnect, func(Event) { panic("handler failure") })
	d.On(KindReconnect, func(Event) { ran = append(ran, "third") })

	assert.NotPanics(t, func() {
		d.Emit(ReconnectEvent{Attempt: 1, Delay: 2 * time.Second})
	})
	assert.Equal(t, []string{"first", "third"}, ran)
	assert.Equal(t, []Kind{KindReconnect}, panics)
}

func TestDispatcher_RegisterDuringEmit(t *testing.T) {
	d := NewDispatcher(quietLogger())

	var late int
	d.On(KindConnect, func(Event) {
		d.On(KindConnect, func(Event) { late++ })
	})

	d.Emit(ConnectEvent{})
	assert.Equal(t, 0, late)

	d.Emit(ConnectEvent{})
	assert.Equal(t, 1, late)
}

func TestDispatcher_ConcurrentRegistration(t *testing.T) {
	d := NewDispatcher(quietLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.On(KindMessage, func(Event) {})
			d.Emit(MessageEvent{Data: []byte{0, 0}})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, d.HandlerCount(KindMessage))
}

func TestKind_Names(t *testing.T) {
	for _, k := range Kinds() {
		assert.True(t, k.Valid())
		parsed, ok := ParseKind(k.String())
		assert.True(t, ok)
		assert.Equal(t, k, parsed)
	}
	assert.Len(t, Kinds(), 9)
	assert.Equal(t, "unknown", Kind(0).String())

	_, ok := ParseKind("ticks ")
	assert.False(t, ok)
}

func TestEvents_KindMatchesType(t *testing.T) {
	tests := []struct {
		ev   Event
		want Kind
	}{
		{ConnectEvent{}, KindConnect},
		{TicksEvent{}, KindTicks},
		{DisconnectEvent{}, KindDisconnect},
		{ErrorEvent{}, KindError},
		{CloseEvent{}, KindClose},
		{ReconnectEvent{}, KindReconnect},
		{NoReconnectEvent{}, KindNoReconnect},
		{MessageEvent{}, KindMessage},
		{OrderUpdateEvent{}, KindOrderUpdate},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ev.Kind())
		})
	}
}
