package ws

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	MethodSubscribe   = "SUBSCRIBE"
	MethodUnsubscribe = "UNSUBSCRIBE"
)

// Stream kinds a pair can be subscribed to.
const (
	KindTrade  = "trade"
	KindTicker = "ticker"
)

// Event types carried in data frames.
const (
	EventTrade  = "trade"
	EventTicker = "24hrTicker"
)

// Request is an outbound control message.
type Request struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

// StreamNames returns the stream parameters for symbol, one per kind.
func StreamNames(symbol string, kinds []string) []string {
	lower := strings.ToLower(symbol)
	names := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		names = append(names, lower+"@"+kind)
	}
	return names
}

// Frame is any inbound message on a combined stream connection.
type Frame struct {
	ID     *int64          `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *FrameError     `json:"error,omitempty"`
	Stream string          `json:"stream,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type FrameError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Event holds the data fields the core consumes from trade and 24h ticker
// payloads. Price is the trade price; Last and High are ticker fields.
type Event struct {
	Type   string `json:"e"`
	Symbol string `json:"s"`
	Price  string `json:"p"`
	Last   string `json:"c"`
	High   string `json:"h"`
}

// IsAck reports whether f acknowledges a control message.
func (f Frame) IsAck() bool {
	if f.ID == nil || f.Error != nil || f.Stream != "" {
		return false
	}
	trimmed := bytes.TrimSpace(f.Result)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func ParseFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}

// Event decodes the data payload of a stream frame.
func (f Frame) Event() (Event, error) {
	var ev Event
	if len(f.Data) == 0 {
		return ev, fmt.Errorf("frame has no data")
	}
	if err := json.Unmarshal(f.Data, &ev); err != nil {
		return ev, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}
