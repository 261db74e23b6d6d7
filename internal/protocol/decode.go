package protocol

import (
	"encoding/binary"
	"errors"
	"time"

	"kite_ticker/internal/domain"
)

// Packet lengths the server is known to send.
const (
	LenLTP        = 8
	LenIndexQuote = 28
	LenIndexFull  = 32
	LenQuote      = 44
	LenFull       = 184

	depthOffset    = 64
	depthEntrySize = 12
	depthLevels    = 5
)

// ErrShortFrame is returned when a frame ends before a declared packet does.
var ErrShortFrame = errors.New("protocol: frame shorter than declared packets")

// Decode parses one binary frame into ticks. Packets of unknown length are
// skipped. If the frame is truncated, the ticks decoded so far are returned
// together with ErrShortFrame.
func Decode(frame []byte) ([]domain.Tick, error) {
	if len(frame) < 2 {
		return nil, nil
	}

	count := int(binary.BigEndian.Uint16(frame[0:2]))
	// The header is untrusted; size the slice by what the frame can hold.
	ticks := make([]domain.Tick, 0, min(count, (len(frame)-2)/(2+LenLTP)))
	off := 2

	for i := 0; i < count; i++ {
		if off+2 > len(frame) {
			return ticks, ErrShortFrame
		}
		size := int(binary.BigEndian.Uint16(frame[off : off+2]))
		off += 2
		if off+size > len(frame) {
			return ticks, ErrShortFrame
		}

		if tick, ok := DecodePacket(frame[off : off+size]); ok {
			ticks = append(ticks, tick)
		}
		off += size
	}

	return ticks, nil
}

// DecodePacket parses a single packet payload. ok is false for lengths the
// decoder does not recognise.
func DecodePacket(p []byte) (domain.Tick, bool) {
	switch len(p) {
	case LenLTP, LenIndexQuote, LenIndexFull, LenQuote, LenFull:
	default:
		return domain.Tick{}, false
	}

	token := binary.BigEndian.Uint32(p[0:4])
	seg := SegmentOf(token)
	div := seg.Divisor()

	tick := domain.Tick{
		InstrumentToken: token,
		ExchangeToken:   token >> 8,
		Segment:         uint8(seg),
		IsTradable:      seg.Tradable(),
		IsIndex:         seg == SegmentIndices,
	}

	switch len(p) {
	case LenLTP:
		tick.Mode = domain.ModeLTP
		tick.LastPrice = price(p, 4, div)

	case LenIndexQuote, LenIndexFull:
		tick.Mode = domain.ModeQuote
		if len(p) == LenIndexFull {
			tick.Mode = domain.ModeFull
		}
		tick.LastPrice = price(p, 4, div)
		tick.OHLC = domain.OHLC{
			High:  price(p, 8, div),
			Low:   price(p, 12, div),
			Open:  price(p, 16, div),
			Close: price(p, 20, div),
		}
		tick.NetChange = float64(int32(binary.BigEndian.Uint32(p[24:28])))
		if len(p) == LenIndexFull {
			tick.ExchangeTimestamp = unixTime(p, 28)
		}

	case LenQuote, LenFull:
		tick.Mode = domain.ModeQuote
		if len(p) == LenFull {
			tick.Mode = domain.ModeFull
		}
		tick.LastPrice = price(p, 4, div)
		tick.LastTradedQuantity = binary.BigEndian.Uint32(p[8:12])
		tick.AverageTradePrice = price(p, 12, div)
		tick.VolumeTraded = binary.BigEndian.Uint32(p[16:20])
		tick.TotalBuyQuantity = binary.BigEndian.Uint32(p[20:24])
		tick.TotalSellQuantity = binary.BigEndian.Uint32(p[24:28])
		tick.OHLC = domain.OHLC{
			Open:  price(p, 28, div),
			High:  price(p, 32, div),
			Low:   price(p, 36, div),
			Close: price(p, 40, div),
		}
		tick.NetChange = netChange(tick.LastPrice, tick.OHLC.Close)

		if len(p) == LenFull {
			tick.LastTradeTime = unixTime(p, 44)
			tick.OI = binary.BigEndian.Uint32(p[48:52])
			tick.OIDayHigh = binary.BigEndian.Uint32(p[52:56])
			tick.OIDayLow = binary.BigEndian.Uint32(p[56:60])
			tick.ExchangeTimestamp = unixTime(p, 60)
			tick.Depth = decodeDepth(p[depthOffset:LenFull], div)
		}
	}

	return tick, true
}

// decodeDepth reads ten fixed-size entries: five bids then five offers.
func decodeDepth(b []byte, div float64) domain.Depth {
	var d domain.Depth
	for i := 0; i < 2*depthLevels; i++ {
		e := b[i*depthEntrySize : (i+1)*depthEntrySize]
		item := domain.DepthItem{
			Quantity: binary.BigEndian.Uint32(e[0:4]),
			Price:    float64(binary.BigEndian.Uint32(e[4:8])) / div,
			Orders:   binary.BigEndian.Uint16(e[8:10]),
		}
		if i < depthLevels {
			d.Buy[i] = item
		} else {
			d.Sell[i-depthLevels] = item
		}
	}
	return d
}

func price(p []byte, off int, div float64) float64 {
	return float64(int32(binary.BigEndian.Uint32(p[off:off+4]))) / div
}

func netChange(last, close float64) float64 {
	if close == 0 {
		return 0
	}
	return (last - close) * 100 / close
}

func unixTime(p []byte, off int) *time.Time {
	sec := binary.BigEndian.Uint32(p[off : off+4])
	if sec == 0 {
		return nil
	}
	t := time.Unix(int64(sec), 0)
	return &t
}
