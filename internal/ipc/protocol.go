package ipc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Wire keys selecting the message variant.
const (
	KindCreateWindow = "CreateWindow"
	KindConfig       = "Config"
	KindTakeover     = "Takeover"
)

// Message is one of CreateWindow, ConfigUpdate, or OverlayRequest.
type Message interface {
	Kind() string
	isMessage()
}

// CreateWindow asks the running instance to open a window.
// Options are forwarded verbatim to the window-creation path.
type CreateWindow struct {
	Options *structpb.Struct
}

// ConfigUpdate patches the configuration of one window, or of every window
// when WindowID is nil.
type ConfigUpdate struct {
	WindowID *WireID
	Options  []string
	Reset    bool
}

// OverlayRequest asks an existing window to display Payload.
type OverlayRequest struct {
	WindowID WireID
	Payload  string
}

func (CreateWindow) Kind() string   { return KindCreateWindow }
func (ConfigUpdate) Kind() string   { return KindConfig }
func (OverlayRequest) Kind() string { return KindTakeover }

func (CreateWindow) isMessage()   {}
func (ConfigUpdate) isMessage()   {}
func (OverlayRequest) isMessage() {}

type configWire struct {
	Options  []string `json:"options"`
	WindowID *WireID  `json:"window_id"`
	Reset    bool     `json:"reset"`
}

type takeoverWire struct {
	WindowID *WireID `json:"window_id"`
	Msg      *string `json:"msg"`
}

// Encode renders msg as a single JSON line without the terminator.
func Encode(msg Message) ([]byte, error) {
	var body any

	switch m := msg.(type) {
	case CreateWindow:
		opts := m.Options
		if opts == nil {
			opts = &structpb.Struct{}
		}
		raw, err := protojson.Marshal(opts)
		if err != nil {
			return nil, fmt.Errorf("encode window options: %w", err)
		}
		body = json.RawMessage(raw)
	case ConfigUpdate:
		body = configWire{Options: m.Options, WindowID: m.WindowID, Reset: m.Reset}
	case OverlayRequest:
		id, payload := m.WindowID, m.Payload
		body = takeoverWire{WindowID: &id, Msg: &payload}
	default:
		return nil, fmt.Errorf("encode message: unsupported type %T", msg)
	}

	out, err := json.Marshal(map[string]any{msg.Kind(): body})
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return out, nil
}

// Decode parses one message line. Every failure wraps ErrMalformed.
func Decode(line []byte) (Message, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, fmt.Errorf("%w: empty line", ErrMalformed)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(line, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(envelope) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one variant, got %d", ErrMalformed, len(envelope))
	}

	var (
		key string
		raw json.RawMessage
	)
	for k, v := range envelope {
		key, raw = k, v
	}

	switch key {
	case KindCreateWindow:
		return decodeCreateWindow(raw)
	case KindConfig:
		return decodeConfig(raw)
	case KindTakeover:
		return decodeTakeover(raw)
	default:
		return nil, fmt.Errorf("%w: unknown variant %q", ErrMalformed, key)
	}
}

func decodeCreateWindow(raw json.RawMessage) (Message, error) {
	if !isObject(raw) {
		return nil, fmt.Errorf("%w: %s options must be an object", ErrMalformed, KindCreateWindow)
	}
	opts := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, opts); err != nil {
		return nil, fmt.Errorf("%w: %s options: %w", ErrMalformed, KindCreateWindow, err)
	}
	return CreateWindow{Options: opts}, nil
}

func decodeConfig(raw json.RawMessage) (Message, error) {
	if !isObject(raw) {
		return nil, fmt.Errorf("%w: %s must be an object", ErrMalformed, KindConfig)
	}
	var w configWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, KindConfig, err)
	}
	return ConfigUpdate{WindowID: w.WindowID, Options: w.Options, Reset: w.Reset}, nil
}

func decodeTakeover(raw json.RawMessage) (Message, error) {
	if !isObject(raw) {
		return nil, fmt.Errorf("%w: %s must be an object", ErrMalformed, KindTakeover)
	}
	var w takeoverWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, KindTakeover, err)
	}
	if w.WindowID == nil {
		return nil, fmt.Errorf("%w: %s requires window_id", ErrMalformed, KindTakeover)
	}
	if w.Msg == nil {
		return nil, fmt.Errorf("%w: %s requires msg", ErrMalformed, KindTakeover)
	}
	return OverlayRequest{WindowID: *w.WindowID, Payload: *w.Msg}, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
