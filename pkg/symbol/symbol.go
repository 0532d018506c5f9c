// Package symbol derives the structural identity of an option contract from
// its trading symbol, e.g. NIFTY250930P25200 -> base NIFTY250930, put, 25200.
package symbol

import (
	"errors"
	"fmt"
)

var ErrInvalidSymbol = errors.New("invalid symbol format")

type OptionType string

const (
	Call OptionType = "C"
	Put  OptionType = "P"
)

// Flip returns the complementary option type.
func (t OptionType) Flip() OptionType {
	if t == Put {
		return Call
	}
	return Put
}

func (t OptionType) String() string {
	switch t {
	case Call:
		return "Call"
	case Put:
		return "Put"
	}
	return string(t)
}

type Identity struct {
	Base        string     `json:"base"`
	OptionType  OptionType `json:"type"`
	Strike      string     `json:"strike"`
	Counterpart string     `json:"counterpart"`
}

// Key is the correlation key shared by a contract and its counterpart.
func (id Identity) Key() string { return id.Base + ":" + id.Strike }

// Parse splits s into <base><P|C><digits>. The type/strike suffix is anchored
// at the end of the string, so the base is the longest valid prefix.
func Parse(s string) (Identity, error) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	// need at least one strike digit, one type char and one base char
	if i == len(s) || i < 2 {
		return Identity{}, fmt.Errorf("%w: %q", ErrInvalidSymbol, s)
	}

	t := OptionType(s[i-1 : i])
	if t != Call && t != Put {
		return Identity{}, fmt.Errorf("%w: %q", ErrInvalidSymbol, s)
	}

	base, strike := s[:i-1], s[i:]
	return Identity{
		Base:        base,
		OptionType:  t,
		Strike:      strike,
		Counterpart: base + string(t.Flip()) + strike,
	}, nil
}
