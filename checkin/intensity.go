package checkin

import "math"

const (
	// DefaultLedgerValue seeds a state the ledger has never seen.
	DefaultLedgerValue = 3.0
	MaxLedgerValue     = 5.0

	decayStep       = 0.25
	switchBoost     = 1.05
	repeatMultStep2 = 1.25
	repeatMultStep3 = 1.15
	repeatMultLate  = 1.05
)

// ComputeIntensity advances p's ledger for a session in state and returns the 1..5 intensity
// bucket used to pick a message.
//
// Switching state decays every other state by 0.25 (floor 0), restarts the streak at 1 and
// nudges the chosen state up by 5%. Repeating the previous state grows its value by a multiplier
// that falls off with the streak: x1.25 on the 2nd session, x1.15 on the 3rd, x1.05 otherwise.
// Values are capped at 5. An empty state never counts as a repeat.
func ComputeIntensity(p *UserProfile, state string) int {
	Migrate(p)

	if state == "" || p.LastState != state {
		decayOthers(p, state)
		p.LastState = state
		p.StateStreak = 1

		v := ledgerValue(p, state)
		v = math.Min(MaxLedgerValue, math.Max(0, v)*switchBoost)
		p.Ledger[state] = LedgerEntry{Value: v}
		return Bucket(v)
	}

	p.StateStreak++
	v := math.Min(MaxLedgerValue, ledgerValue(p, state)*streakMultiplier(p.StateStreak))
	p.Ledger[state] = LedgerEntry{Value: v}
	return Bucket(v)
}

// Bucket floors v into the 1..5 intensity range.
func Bucket(v float64) int {
	if math.IsNaN(v) {
		return 1
	}
	return int(math.Max(1, math.Min(5, math.Floor(v))))
}

func streakMultiplier(streak int) float64 {
	switch {
	case streak == 2:
		return repeatMultStep2
	case streak == 3:
		return repeatMultStep3
	default:
		return repeatMultLate
	}
}

func decayOthers(p *UserProfile, current string) {
	for state, e := range p.Ledger {
		if state == current || e.Value <= 0 {
			continue
		}
		e.Value = math.Max(0, e.Value-decayStep)
		p.Ledger[state] = e
	}
}

func ledgerValue(p *UserProfile, state string) float64 {
	e, ok := p.Ledger[state]
	if !ok {
		return DefaultLedgerValue
	}
	return e.Value
}

func clampValue(v float64) float64 {
	if math.IsNaN(v) {
		return DefaultLedgerValue
	}
	return math.Max(0, math.Min(MaxLedgerValue, v))
}
