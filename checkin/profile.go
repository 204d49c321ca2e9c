package checkin

import "strings"

// UserProfile is the persisted per-user ledger: session counters plus the intensity state the
// engine evolves between sessions. JSON keys match the profile files already on disk.
type UserProfile struct {
	Name                string                 `json:"nome"`
	TotalSessions       int                    `json:"total_sessoes"`
	CountByState        map[string]int         `json:"contagem_estados"`
	SumIntensityByState map[string]float64     `json:"soma_intensidade"`
	Ledger              map[string]LedgerEntry `json:"intensidades"`
	LastState           string                 `json:"ultimo_estado,omitempty"`
	StateStreak         int                    `json:"streak_estado"`
}

// LedgerEntry is the float intensity tracked for one state, in [0, 5].
type LedgerEntry struct {
	Value float64 `json:"valor"`
}

// NewUserProfile returns a zeroed profile. An empty name becomes "Utilizador".
func NewUserProfile(name string) *UserProfile {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Utilizador"
	}
	return &UserProfile{
		Name:                name,
		CountByState:        map[string]int{},
		SumIntensityByState: map[string]float64{},
		Ledger:              map[string]LedgerEntry{},
	}
}

// RegisterSession counts one session of state at the given intensity.
func (p *UserProfile) RegisterSession(state string, intensity int) {
	Migrate(p)
	p.TotalSessions++
	p.CountByState[state]++
	p.SumIntensityByState[state] += float64(intensity)
}

// MeanIntensity is the running mean intensity for state, 0 when it was never chosen.
func (p *UserProfile) MeanIntensity(state string) float64 {
	c := p.CountByState[state]
	if c == 0 {
		return 0
	}
	return p.SumIntensityByState[state] / float64(c)
}

// GlobalMeanIntensity averages intensity over every session regardless of state.
func (p *UserProfile) GlobalMeanIntensity() float64 {
	var sum float64
	for _, v := range p.SumIntensityByState {
		sum += v
	}
	return sum / float64(max(1, p.TotalSessions))
}

// Migrate brings a profile decoded from any earlier schema (or built by hand) to the current
// shape. It is idempotent.
func Migrate(p *UserProfile) {
	if p == nil {
		return
	}
	if p.CountByState == nil {
		p.CountByState = map[string]int{}
	}
	if p.SumIntensityByState == nil {
		p.SumIntensityByState = map[string]float64{}
	}
	if p.Ledger == nil {
		p.Ledger = map[string]LedgerEntry{}
	}
	if p.TotalSessions < 0 {
		p.TotalSessions = 0
	}

	// counts and sums are co-populated
	for state, c := range p.CountByState {
		if c < 0 {
			p.CountByState[state] = 0
		}
		if _, ok := p.SumIntensityByState[state]; !ok {
			p.SumIntensityByState[state] = 0
		}
	}
	for state, s := range p.SumIntensityByState {
		if _, ok := p.CountByState[state]; !ok {
			delete(p.SumIntensityByState, state)
			continue
		}
		if s < 0 {
			p.SumIntensityByState[state] = 0
		}
	}

	for state, e := range p.Ledger {
		e.Value = clampValue(e.Value)
		p.Ledger[state] = e
	}

	if p.StateStreak < 0 || p.LastState == "" {
		p.StateStreak = 0
	}
}
