package control

import (
	"encoding/json"
	"fmt"

	"screencast/internal/domain"
)

// Wire values of the "type" discriminator.
const (
	TypeClick = "click"
	TypeSwipe = "swipe"
	TypeKey   = "key"
)

// message is the union of every field a viewer may send. Pointers tell a
// missing field apart from an explicit zero.
type message struct {
	Type     string `json:"type"`
	X        *int   `json:"x,omitempty"`
	Y        *int   `json:"y,omitempty"`
	StartX   *int   `json:"startX,omitempty"`
	StartY   *int   `json:"startY,omitempty"`
	EndX     *int   `json:"endX,omitempty"`
	EndY     *int   `json:"endY,omitempty"`
	Duration *int   `json:"duration,omitempty"`
	KeyCode  *int   `json:"keyCode,omitempty"`
}

// Parser implements usecase.CommandParser.
type Parser struct{}

func (Parser) Parse(raw []byte) (domain.ControlCommand, error) { return Parse(raw) }

// Parse decodes one viewer message. Every failure wraps domain.ErrProtocol:
// malformed JSON, an unknown type, a missing or non-integer field and a
// negative coordinate, duration or key code are not told apart.
func Parse(raw []byte) (domain.ControlCommand, error) {
	var m message
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProtocol, err)
	}
	switch m.Type {
	case TypeClick:
		v, err := fields(m.Type, named{"x", m.X}, named{"y", m.Y})
		if err != nil {
			return nil, err
		}
		return domain.Tap{X: v[0], Y: v[1]}, nil
	case TypeSwipe:
		v, err := fields(m.Type,
			named{"startX", m.StartX}, named{"startY", m.StartY},
			named{"endX", m.EndX}, named{"endY", m.EndY},
			named{"duration", m.Duration})
		if err != nil {
			return nil, err
		}
		return domain.Swipe{StartX: v[0], StartY: v[1], EndX: v[2], EndY: v[3], DurationMs: v[4]}, nil
	case TypeKey:
		v, err := fields(m.Type, named{"keyCode", m.KeyCode})
		if err != nil {
			return nil, err
		}
		return domain.Key{Code: v[0]}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", domain.ErrProtocol)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", domain.ErrProtocol, m.Type)
	}
}

type named struct {
	name string
	v    *int
}

func fields(typ string, in ...named) ([]int, error) {
	out := make([]int, len(in))
	for i, f := range in {
		if f.v == nil {
			return nil, fmt.Errorf("%w: %s: missing field %q", domain.ErrProtocol, typ, f.name)
		}
		if *f.v < 0 {
			return nil, fmt.Errorf("%w: %s: field %q is negative (%d)", domain.ErrProtocol, typ, f.name, *f.v)
		}
		out[i] = *f.v
	}
	return out, nil
}

// Encode produces the wire form of cmd, the inverse of Parse.
func Encode(cmd domain.ControlCommand) ([]byte, error) {
	var m message
	switch c := cmd.(type) {
	case domain.Tap:
		m = message{Type: TypeClick, X: &c.X, Y: &c.Y}
	case domain.Swipe:
		m = message{Type: TypeSwipe, StartX: &c.StartX, StartY: &c.StartY, EndX: &c.EndX, EndY: &c.EndY, Duration: &c.DurationMs}
	case domain.Key:
		m = message{Type: TypeKey, KeyCode: &c.Code}
	default:
		return nil, fmt.Errorf("%w: cannot encode %T", domain.ErrProtocol, cmd)
	}
	return json.Marshal(m)
}
