package config

import (
	"fmt"
	"strings"
)

// ProtocolVersion is the MQTT protocol level negotiated on connect.
type ProtocolVersion byte

const (
	V310 ProtocolVersion = 3
	V311 ProtocolVersion = 4
	V500 ProtocolVersion = 5
)

// ParseProtocolVersion accepts v310, v311 and v500 in any letter case.
func ParseProtocolVersion(value string) (ProtocolVersion, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "v310":
		return V310, nil
	case "v311":
		return V311, nil
	case "v500":
		return V500, nil
	default:
		return 0, fmt.Errorf("%w: invalid MQTT version '%s'", ErrInvalidConfig, value)
	}
}

func (v ProtocolVersion) String() string {
	switch v {
	case V310:
		return "v310"
	case V311:
		return "v311"
	case V500:
		return "v500"
	default:
		return fmt.Sprintf("unknown(%d)", byte(v))
	}
}
