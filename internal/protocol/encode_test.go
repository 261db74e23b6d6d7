package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kite_ticker/internal/domain"
)

func TestEncodeControlMessages(t *testing.T) {
	tokens := []uint32{408065, 884737}

	sub, err := EncodeSubscribe(tokens)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"subscribe","v":[408065,884737]}`, string(sub))

	unsub, err := EncodeUnsubscribe(tokens)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"unsubscribe","v":[408065,884737]}`, string(unsub))

	mode, err := EncodeMode(domain.ModeFull, tokens)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"mode","v":["full",[408065,884737]]}`, string(mode))
}

func TestParseOrderUpdate(t *testing.T) {
	t.Run("order postback", func(t *testing.T) {
		frame := []byte(`{"type":"order","data":{"order_id":"240301000000001","status":"COMPLETE",` +
			`"tradingsymbol":"INFY","instrument_token":408065,"filled_quantity":10,` +
			`"average_price":1510.5,"order_timestamp":"2024-03-01 10:00:01"}}`)

		order, ok := ParseOrderUpdate(frame)
		require.True(t, ok)
		assert.Equal(t, "240301000000001", order.OrderID)
		assert.Equal(t, domain.OrderStatusComplete, order.Status)
		assert.Equal(t, uint32(408065), order.InstrumentToken)
		assert.Equal(t, 10.0, order.FilledQuantity)
		assert.Equal(t, 2024, order.OrderTimestamp.Year())
		assert.NotEmpty(t, order.Raw)
		assert.False(t, order.IsOpen())
	})

	t.Run("mistyped fields keep the raw payload", func(t *testing.T) {
		frame := []byte(`{"type":"order","data":{"order_id":"1","quantity":"5","status":"OPEN"}}`)

		order, ok := ParseOrderUpdate(frame)
		require.True(t, ok)
		assert.JSONEq(t, `{"order_id":"1","quantity":"5","status":"OPEN"}`, string(order.Raw))
		assert.Equal(t, "1", order.OrderID)
		assert.Zero(t, order.Quantity)
	})

	t.Run("other types are ignored", func(t *testing.T) {
		_, ok := ParseOrderUpdate([]byte(`{"type":"message","data":"hello"}`))
		assert.False(t, ok)
	})

	t.Run("malformed json is ignored", func(t *testing.T) {
		_, ok := ParseOrderUpdate([]byte(`{"type":`))
		assert.False(t, ok)
	})
}
