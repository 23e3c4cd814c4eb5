package battle

import (
	"testing"

	"github.com/justapithecus/logbook/types"
)

func TestSequencer_IdleByDefault(t *testing.T) {
	var s Sequencer
	if _, ok := s.Active(); ok {
		t.Error("zero sequencer should be idle")
	}
	if s.Combined() {
		t.Error("zero sequencer should not be in combined mode")
	}
}

func TestSequencer_CombinedSortie(t *testing.T) {
	var s Sequencer
	s.BeginSortie(true)

	res := s.Advance(types.CombinedBattle)
	if res.Inconsistency != nil {
		t.Fatalf("unexpected inconsistency: %v", res.Inconsistency)
	}
	if res.Kind != types.PhaseCombinedBattle {
		t.Fatalf("kind = %v, want COMBINED_BATTLE", res.Kind)
	}
	if res.Actors.Opening != SecondFleet {
		t.Errorf("opening actor = %v, want second", res.Actors.Opening)
	}
	if res.Actors.Hougeki != SecondFleet {
		t.Errorf("night actor = %v, want second", res.Actors.Hougeki)
	}
	if res.Actors.Hougeki2 != FirstFleet {
		t.Errorf("hougeki2 actor = %v, want first", res.Actors.Hougeki2)
	}

	// sortie end mid-phase returns to idle
	s.EndSortie()
	if _, ok := s.Active(); ok {
		t.Error("EndSortie should reset to idle")
	}
	if s.Combined() {
		t.Error("EndSortie should clear combined mode")
	}
}

func TestSequencer_DayThenNight(t *testing.T) {
	var s Sequencer
	s.BeginSortie(true)
	s.Advance(types.CombinedBattleWater)

	res := s.Advance(types.CombinedBattleMidnight)
	if res.Inconsistency != nil {
		t.Fatalf("unexpected inconsistency: %v", res.Inconsistency)
	}
	if active, _ := s.Active(); active != types.PhaseCombinedMidnight {
		t.Errorf("active = %v, want COMBINED_MIDNIGHT", active)
	}
	if !res.Kind.IsNight() {
		t.Error("midnight phase should report night")
	}
	if !res.Continues {
		t.Error("night phase after a day phase should continue the battle")
	}

	s.EndBattle()
	if !s.Combined() {
		t.Error("EndBattle should keep combined mode for the rest of the sortie")
	}
}

func TestSequencer_CombinedOutsideCombinedSortie(t *testing.T) {
	var s Sequencer
	s.BeginSortie(false)

	res := s.Advance(types.CombinedBattle)
	if res.Kind != types.PhaseBattle {
		t.Errorf("kind = %v, want BATTLE", res.Kind)
	}
	if res.Inconsistency == nil || res.Inconsistency.Reason != ReasonCombinedOutsideCombined {
		t.Fatalf("expected combined-outside-combined inconsistency, got %+v", res.Inconsistency)
	}
	if res.Actors.Opening != FirstFleet {
		t.Error("single fleet fallback must resolve every actor to the first fleet")
	}
}

func TestSequencer_SingleBattleExitsCombinedMode(t *testing.T) {
	var s Sequencer
	s.BeginSortie(true)

	res := s.Advance(types.Battle)
	if res.Inconsistency != nil {
		t.Fatalf("unexpected inconsistency: %v", res.Inconsistency)
	}
	if s.Combined() {
		t.Error("single fleet battle should exit combined mode")
	}
}

func TestSequencer_NightWithoutDay(t *testing.T) {
	tests := []struct {
		name     string
		combined bool
		dt       types.DataType
		want     types.BattlePhaseKind
	}{
		{"single", false, types.BattleMidnight, types.PhaseMidnight},
		{"combined", true, types.CombinedBattleMidnight, types.PhaseCombinedMidnight},
		{"practice", false, types.PracticeBattleMidnight, types.PhasePracticeMidnight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Sequencer
			s.BeginSortie(tt.combined)
			res := s.Advance(tt.dt)
			if res.Kind != tt.want {
				t.Errorf("kind = %v, want %v", res.Kind, tt.want)
			}
			if !res.Kind.IsNight() {
				t.Error("night payload should resolve to a night phase")
			}
			if res.Continues {
				t.Error("orphaned night phase should start a fresh battle")
			}
			if res.Inconsistency == nil || res.Inconsistency.Reason != ReasonNightWithoutDay {
				t.Errorf("expected night-without-day, got %+v", res.Inconsistency)
			}
		})
	}
}

func TestSequencer_DuplicateNight(t *testing.T) {
	var s Sequencer
	s.BeginSortie(false)
	s.Advance(types.Battle)
	if res := s.Advance(types.BattleMidnight); res.Inconsistency != nil || !res.Continues {
		t.Fatalf("unexpected resolution %+v", res)
	}

	res := s.Advance(types.BattleMidnight)
	if res.Kind != types.PhaseMidnight {
		t.Errorf("kind = %v, want MIDNIGHT", res.Kind)
	}
	if res.Continues {
		t.Error("duplicate night phase should start a fresh battle")
	}
	if res.Inconsistency == nil || res.Inconsistency.Reason != ReasonNightWithoutDay {
		t.Errorf("expected night-without-day, got %+v", res.Inconsistency)
	}
	if active, _ := s.Active(); !active.IsNight() {
		t.Errorf("active = %v, want a night phase", active)
	}
}

func TestSequencer_OpeningNightIsNotInconsistent(t *testing.T) {
	var s Sequencer
	s.BeginSortie(false)
	res := s.Advance(types.BattleSPMidnight)
	if res.Inconsistency != nil {
		t.Fatalf("sp_midnight opens its own battle: %v", res.Inconsistency)
	}
	if !res.Kind.IsNight() {
		t.Error("sp_midnight should be a night phase")
	}
}

func TestSequencer_PracticeSequence(t *testing.T) {
	var s Sequencer
	s.Advance(types.PracticeBattle)
	res := s.Advance(types.PracticeBattleMidnight)
	if res.Inconsistency != nil || res.Kind != types.PhasePracticeMidnight {
		t.Errorf("unexpected resolution %+v", res)
	}
}

func TestSequencer_AirBattle(t *testing.T) {
	var s Sequencer
	s.BeginSortie(false)
	res := s.Advance(types.AirBattle)
	if res.Kind != types.PhaseBattle {
		t.Errorf("kind = %v, want BATTLE", res.Kind)
	}
	if res.Inconsistency != nil {
		t.Errorf("air battle should not be inconsistent, got %+v", res.Inconsistency)
	}

	res = s.Advance(types.BattleMidnight)
	if res.Inconsistency != nil || !res.Continues {
		t.Errorf("night after air battle should continue, got %+v", res)
	}
}

func TestSequencer_NotBattle(t *testing.T) {
	var s Sequencer
	res := s.Advance(types.Port)
	if res.Inconsistency == nil || res.Inconsistency.Reason != ReasonNotBattle {
		t.Errorf("expected not-a-battle inconsistency, got %+v", res.Inconsistency)
	}
}

func TestSequencer_DuplicatePayload(t *testing.T) {
	var s Sequencer
	s.BeginSortie(false)
	s.Advance(types.Battle)
	res := s.Advance(types.Battle)
	if res.Kind != types.PhaseBattle || res.Inconsistency != nil {
		t.Errorf("duplicate day battle should restart cleanly, got %+v", res)
	}
}

func TestSequencer_CopyIsIndependent(t *testing.T) {
	var s Sequencer
	s.BeginSortie(true)

	c := s
	c.Advance(types.CombinedBattle)
	c.EndSortie()

	if _, ok := s.Active(); ok {
		t.Error("advancing a copy changed the original")
	}
	if !s.Combined() {
		t.Error("ending a copy's sortie changed the original")
	}
}

func TestInconsistency_Error(t *testing.T) {
	i := &Inconsistency{Reason: ReasonCombinedOutsideCombined, DataType: types.CombinedBattle, Resolved: types.PhaseBattle}
	want := "battle sequence: combined_outside_combined_sortie: COMBINED_BATTLE resolved as BATTLE"
	if i.Error() != want {
		t.Errorf("Error() = %q, want %q", i.Error(), want)
	}
}
