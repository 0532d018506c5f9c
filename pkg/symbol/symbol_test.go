package symbol_test

import (
	"errors"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/shubham-shewale/signal-pairing/pkg/symbol"
)

func TestParse_NiftyPut(t *testing.T) {
	id, err := symbol.Parse("NIFTY250930P25200")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := symbol.Identity{
		Base:        "NIFTY250930",
		OptionType:  symbol.Put,
		Strike:      "25200",
		Counterpart: "NIFTY250930C25200",
	}
	if id != want {
		t.Errorf("Parse = %+v, want %+v", id, want)
	}
	if id.Key() != "NIFTY250930:25200" {
		t.Errorf("Unexpected key %s", id.Key())
	}
}

func TestParse_GreedyBase(t *testing.T) {
	// type characters inside the base must not end it early
	id, err := symbol.Parse("BANKP12C4C45000")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if id.Base != "BANKP12C4" || id.OptionType != symbol.Call || id.Strike != "45000" {
		t.Errorf("Unexpected identity %+v", id)
	}
	if id.Counterpart != "BANKP12C4P45000" {
		t.Errorf("Unexpected counterpart %s", id.Counterpart)
	}
}

func TestParse_Rejects(t *testing.T) {
	bad := []string{
		"",
		"P25200",        // no base
		"NIFTY250930",   // no type char
		"NIFTY250930X1", // unknown type char
		"NIFTYP",        // no strike
		"NIFTYC25200 ",  // trailing garbage
		"NIFTYp25200",   // lower-case type
	}
	for _, s := range bad {
		if _, err := symbol.Parse(s); !errors.Is(err, symbol.ErrInvalidSymbol) {
			t.Errorf("Parse(%q): expected ErrInvalidSymbol, got %v", s, err)
		}
	}
}

func TestOptionType_Flip(t *testing.T) {
	if symbol.Put.Flip() != symbol.Call || symbol.Call.Flip() != symbol.Put {
		t.Error("Flip must swap call and put")
	}
}

func TestParse_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("counterpart is an involution", prop.ForAll(
		func(base string, isPut bool, strike uint32) bool {
			t := "C"
			if isPut {
				t = "P"
			}
			s := base + t + strconv.FormatUint(uint64(strike), 10)

			id, err := symbol.Parse(s)
			if err != nil {
				return false
			}
			cp, err := symbol.Parse(id.Counterpart)
			if err != nil {
				return false
			}
			return cp.Counterpart == s && cp.Key() == id.Key() && cp.OptionType == id.OptionType.Flip()
		},
		gen.Identifier(),
		gen.Bool(),
		gen.UInt32(),
	))

	properties.Property("symbols without a digit suffix are rejected", prop.ForAll(
		func(s string) bool {
			_, err := symbol.Parse(s)
			return errors.Is(err, symbol.ErrInvalidSymbol)
		},
		gen.AlphaString(),
	))

	properties.Property("symbols without a type character are rejected", prop.ForAll(
		func(s string) bool {
			_, err := symbol.Parse(s)
			return errors.Is(err, symbol.ErrInvalidSymbol)
		},
		gen.NumString(),
	))

	properties.TestingRun(t)
}
