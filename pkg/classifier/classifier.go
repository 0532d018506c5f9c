// Package classifier decides what to do with a matched call/put pair.
package classifier

import (
	"github.com/shubham-shewale/signal-pairing/pkg/models"
	"github.com/shubham-shewale/signal-pairing/pkg/symbol"
)

type Action int

const (
	NoMatch Action = iota
	SendBoth
	SendEntryOnly
)

func (a Action) String() string {
	switch a {
	case SendBoth:
		return "send_both"
	case SendEntryOnly:
		return "send_entry_only"
	default:
		return "no_match"
	}
}

// Leg is the part of a signal the rules look at.
type Leg struct {
	Type   symbol.OptionType
	Signal models.SignalKind
}

type transition struct {
	existing, incoming Leg
}

// rules is keyed by (stored leg, incoming leg); order matters.
var rules = map[transition]Action{
	{Leg{symbol.Put, models.ShortEntry}, Leg{symbol.Call, models.LongEntry}}:  SendBoth,
	{Leg{symbol.Call, models.ShortEntry}, Leg{symbol.Put, models.LongEntry}}:  SendBoth,
	{Leg{symbol.Put, models.LongEntry}, Leg{symbol.Call, models.ShortEntry}}:  SendBoth,
	{Leg{symbol.Call, models.LongEntry}, Leg{symbol.Put, models.ShortEntry}}:  SendBoth,

	{Leg{symbol.Call, models.ShortEntry}, Leg{symbol.Put, models.ShortExit}}: SendEntryOnly,
	{Leg{symbol.Put, models.ShortEntry}, Leg{symbol.Call, models.ShortExit}}: SendEntryOnly,
	{Leg{symbol.Call, models.LongEntry}, Leg{symbol.Put, models.LongExit}}:   SendEntryOnly,
	{Leg{symbol.Put, models.LongEntry}, Leg{symbol.Call, models.LongExit}}:   SendEntryOnly,
}

// Classify is total: any combination outside the rule table is NoMatch.
func Classify(existing, incoming Leg) Action {
	if a, ok := rules[transition{existing, incoming}]; ok {
		return a
	}
	return NoMatch
}

// SplitEntryExit orders a SendEntryOnly pair into (entry, exit) by signal name.
func SplitEntryExit(existing, incoming models.TradeSignal) (entry, exit models.TradeSignal) {
	if existing.Signal.IsExit() {
		return incoming, existing
	}
	return existing, incoming
}
