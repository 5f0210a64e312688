package ipc

import (
	"bytes"
	"fmt"
	"math/big"
	"strconv"
)

// WindowID identifies a window on the consuming side.
type WindowID uint64

// WireID is a window id exactly as written on the wire: any JSON integer,
// unbounded. Ids outside the WindowID range decode fine and are dropped by
// the listener.
type WireID string

// IntID returns the wire form of a signed id.
func IntID(id int64) WireID {
	return WireID(strconv.FormatInt(id, 10))
}

// UintID returns the wire form of id.
func UintID(id WindowID) WireID {
	return WireID(strconv.FormatUint(uint64(id), 10))
}

// ParseWireID accepts a JSON integer literal: an optional minus sign and
// decimal digits without leading zeros.
func ParseWireID(s string) (WireID, error) {
	if !isIntegerLiteral(s) {
		return "", fmt.Errorf("window id %q is not an integer", s)
	}
	return WireID(s), nil
}

func (id WireID) MarshalJSON() ([]byte, error) {
	if !isIntegerLiteral(string(id)) {
		return nil, fmt.Errorf("window id %q is not an integer", string(id))
	}
	return []byte(id), nil
}

func (id *WireID) UnmarshalJSON(data []byte) error {
	parsed, err := ParseWireID(string(bytes.TrimSpace(data)))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func isIntegerLiteral(s string) bool {
	if len(s) > 0 && s[0] == '-' {
		s = s[1:]
	}
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// toWindowID range-checks a wire id against [0, MaxUint64].
func toWindowID(id WireID) (WindowID, error) {
	n, ok := new(big.Int).SetString(string(id), 10)
	if !ok || n.Sign() < 0 || !n.IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrIDOutOfRange, string(id))
	}
	return WindowID(n.Uint64()), nil
}
