// Package battle tracks which engagement variant is active during a sortie
// and resolves which fleet acts in each sub-phase.
package battle

import (
	"fmt"

	"github.com/justapithecus/logbook/types"
)

// Fleet identifies the acting friendly fleet of a sub-phase.
type Fleet int

const (
	// FirstFleet is the main fleet (dock 1 in a combined sortie).
	FirstFleet Fleet = 1
	// SecondFleet is the escort fleet of a combined sortie.
	SecondFleet Fleet = 2
)

func (f Fleet) String() string {
	if f == SecondFleet {
		return "second"
	}
	return "first"
}

// MarshalText renders the fleet by name.
func (f Fleet) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func fleetFor(second bool) Fleet {
	if second {
		return SecondFleet
	}
	return FirstFleet
}

// Actors is the acting fleet for each sub-phase of an engagement.
type Actors struct {
	Opening  Fleet `json:"opening"`
	Hougeki  Fleet `json:"hougeki"`
	Hougeki1 Fleet `json:"hougeki1"`
	Hougeki2 Fleet `json:"hougeki2"`
	Hougeki3 Fleet `json:"hougeki3"`
	Raigeki  Fleet `json:"raigeki"`
}

// ActorsOf resolves the sub-phase actors of a variant.
func ActorsOf(k types.BattlePhaseKind) Actors {
	return Actors{
		Opening:  fleetFor(k.IsOpeningSecond()),
		Hougeki:  fleetFor(k.IsHougekiSecond()),
		Hougeki1: fleetFor(k.IsHougeki1Second()),
		Hougeki2: fleetFor(k.IsHougeki2Second()),
		Hougeki3: fleetFor(k.IsHougeki3Second()),
		Raigeki:  fleetFor(k.IsRaigekiSecond()),
	}
}

// InconsistencyReason names why a battle payload did not fit the current
// sequence.
type InconsistencyReason string

const (
	// ReasonCombinedOutsideCombined is a combined-fleet payload outside a combined sortie.
	ReasonCombinedOutsideCombined InconsistencyReason = "combined_outside_combined_sortie"
	// ReasonNightWithoutDay is a follow-up night phase with no open day phase.
	ReasonNightWithoutDay InconsistencyReason = "night_without_day"
	// ReasonUnknownBattle is a battle data type with no variant of its own.
	ReasonUnknownBattle InconsistencyReason = "unknown_battle_type"
	// ReasonNotBattle is a non-battle data type passed to Advance.
	ReasonNotBattle InconsistencyReason = "not_a_battle"
)

// Inconsistency reports a battle payload that arrived in an unexpected phase
// context. The sequencer has already recovered to a best-guess state; the
// value is informational only.
type Inconsistency struct {
	Reason   InconsistencyReason `json:"reason"`
	DataType types.DataType      `json:"data_type"`
	// Previous is the variant that was active, zero when idle.
	Previous types.BattlePhaseKind `json:"previous,omitzero"`
	Resolved types.BattlePhaseKind `json:"resolved"`
}

func (i *Inconsistency) Error() string {
	return fmt.Sprintf("battle sequence: %s: %s resolved as %s", i.Reason, i.DataType, i.Resolved)
}

// Resolution is the outcome of advancing the sequencer with one payload.
type Resolution struct {
	Kind   types.BattlePhaseKind `json:"kind"`
	Actors Actors                `json:"actors"`
	// Continues is true when the phase is the night half of the battle
	// opened by the previous phase.
	Continues     bool           `json:"continues"`
	Inconsistency *Inconsistency `json:"inconsistency,omitempty"`
}

// Sequencer is the battle phase state machine for one sortie.
//
// Sequencer is a plain value: copying it yields an independent sequencer,
// which lets a caller advance a copy and discard it if the surrounding
// update fails. It is not safe for concurrent use.
type Sequencer struct {
	combined bool
	active   types.BattlePhaseKind
}

// BeginSortie starts a sortie. combined is sticky until EndSortie.
func (s *Sequencer) BeginSortie(combined bool) {
	s.combined = combined
	s.active = types.BattlePhaseKind{}
}

// EndSortie resets to idle regardless of the current phase.
func (s *Sequencer) EndSortie() {
	s.combined = false
	s.active = types.BattlePhaseKind{}
}

// EndBattle closes the current battle; the sortie (and combined mode) continues.
func (s *Sequencer) EndBattle() {
	s.active = types.BattlePhaseKind{}
}

// Active returns the current variant, or false when idle.
func (s *Sequencer) Active() (types.BattlePhaseKind, bool) {
	return s.active, !s.active.IsZero()
}

// Combined reports whether combined-fleet mode is on.
func (s *Sequencer) Combined() bool {
	return s.combined
}

// Advance moves to the variant produced by dt and resolves its actors.
// It never fails: payloads that do not fit the sequence are resolved to a
// best-guess variant and reported through Resolution.Inconsistency.
func (s *Sequencer) Advance(dt types.DataType) Resolution {
	prev := s.active
	kind, known := types.PhaseKindFor(dt)

	var reason InconsistencyReason
	switch {
	case !dt.IsBattle():
		kind, reason = types.PhaseBattle, ReasonNotBattle
	case !known:
		kind, reason = types.PhaseBattle, ReasonUnknownBattle
	case kind.IsCombined() && !s.combined:
		kind, reason = kind.SingleFleetCounterpart(), ReasonCombinedOutsideCombined
	case !kind.IsCombined() && s.combined && !isPractice(kind):
		// a single-fleet battle ends combined mode for the rest of the sortie
		s.combined = false
	}

	// an orphaned night phase keeps its own variant and starts a fresh battle
	if reason == "" && isFollowUpNight(kind) && !opensNight(prev, kind) {
		reason = ReasonNightWithoutDay
	}

	s.active = kind
	res := Resolution{
		Kind:      kind,
		Actors:    ActorsOf(kind),
		Continues: reason == "" && isFollowUpNight(kind),
	}
	if reason != "" {
		res.Inconsistency = &Inconsistency{
			Reason:   reason,
			DataType: dt,
			Previous: prev,
			Resolved: kind,
		}
	}
	return res
}

func isPractice(k types.BattlePhaseKind) bool {
	return k == types.PhasePracticeBattle || k == types.PhasePracticeMidnight
}

// isFollowUpNight reports whether k continues a day battle. Opening night
// variants (sp_midnight) start their own battle.
func isFollowUpNight(k types.BattlePhaseKind) bool {
	switch k {
	case types.PhaseMidnight, types.PhasePracticeMidnight, types.PhaseCombinedMidnight:
		return true
	default:
		return false
	}
}

// opensNight reports whether the day phase prev may be followed by night.
func opensNight(prev, night types.BattlePhaseKind) bool {
	if prev.IsZero() || prev.IsNight() {
		return false
	}
	if night == types.PhasePracticeMidnight {
		return prev == types.PhasePracticeBattle
	}
	return prev != types.PhasePracticeBattle
}
