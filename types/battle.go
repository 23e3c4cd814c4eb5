package types

// PhasePattern records, for each sub-phase of an engagement, whether the
// second fleet (rather than the first) is the acting fleet.
//
// Fields are unexported and the type is passed by value, so a pattern can
// never be altered once a BattlePhaseKind has been declared.
type PhasePattern struct {
	opening  bool
	hougeki  bool
	hougeki1 bool
	hougeki2 bool
	hougeki3 bool
	raigeki  bool
}

// Sub-phase patterns.
var (
	// NonCombinedPattern is used by every single-fleet engagement.
	NonCombinedPattern = PhasePattern{}

	// BattlePattern is the combined-fleet carrier task force doctrine.
	BattlePattern = PhasePattern{
		opening:  true,
		hougeki:  true,
		hougeki1: true,
		hougeki2: false,
		hougeki3: false,
		raigeki:  true,
	}

	// WaterPattern is the combined-fleet surface task force doctrine.
	WaterPattern = PhasePattern{
		opening:  true,
		hougeki:  true,
		hougeki1: false,
		hougeki2: false,
		hougeki3: true,
		raigeki:  true,
	}
)

// Slots returns the pattern as {opening, hougeki, hougeki1, hougeki2,
// hougeki3, raigeki}. The returned array is a copy.
func (p PhasePattern) Slots() [6]bool {
	return [6]bool{p.opening, p.hougeki, p.hougeki1, p.hougeki2, p.hougeki3, p.raigeki}
}

// BattlePhaseKind is one variant of engagement. Each variant embeds its own
// copy of a phase pattern together with the night flag and the API call that
// produces its payload.
type BattlePhaseKind struct {
	name    string
	night   bool
	pattern PhasePattern
	api     DataType
}

// Engagement variants.
var (
	PhaseBattle              = BattlePhaseKind{"BATTLE", false, NonCombinedPattern, Battle}
	PhaseMidnight            = BattlePhaseKind{"MIDNIGHT", true, NonCombinedPattern, BattleMidnight}
	PhasePracticeBattle      = BattlePhaseKind{"PRACTICE_BATTLE", false, NonCombinedPattern, PracticeBattle}
	PhasePracticeMidnight    = BattlePhaseKind{"PRACTICE_MIDNIGHT", true, NonCombinedPattern, PracticeBattleMidnight}
	PhaseSPMidnight          = BattlePhaseKind{"SP_MIDNIGHT", true, NonCombinedPattern, BattleSPMidnight}
	PhaseNightToDay          = BattlePhaseKind{"NIGHT_TO_DAY", false, NonCombinedPattern, BattleNightToDay}
	PhaseCombinedBattle      = BattlePhaseKind{"COMBINED_BATTLE", false, BattlePattern, CombinedBattle}
	PhaseCombinedAir         = BattlePhaseKind{"COMBINED_AIR", false, BattlePattern, CombinedAirBattle}
	PhaseCombinedMidnight    = BattlePhaseKind{"COMBINED_MIDNIGHT", true, BattlePattern, CombinedBattleMidnight}
	PhaseCombinedSPMidnight  = BattlePhaseKind{"COMBINED_SP_MIDNIGHT", true, BattlePattern, CombinedBattleSPMidnight}
	PhaseCombinedBattleWater = BattlePhaseKind{"COMBINED_BATTLE_WATER", false, WaterPattern, CombinedBattleWater}
)

// BattlePhaseKinds returns all eleven variants in declaration order.
func BattlePhaseKinds() []BattlePhaseKind {
	return []BattlePhaseKind{
		PhaseBattle,
		PhaseMidnight,
		PhasePracticeBattle,
		PhasePracticeMidnight,
		PhaseSPMidnight,
		PhaseNightToDay,
		PhaseCombinedBattle,
		PhaseCombinedAir,
		PhaseCombinedMidnight,
		PhaseCombinedSPMidnight,
		PhaseCombinedBattleWater,
	}
}

// PhaseKindFor returns the variant produced by the given API call.
// An air raid battle is sequenced as an ordinary day battle.
func PhaseKindFor(dt DataType) (BattlePhaseKind, bool) {
	if dt == AirBattle {
		return PhaseBattle, true
	}
	for _, k := range BattlePhaseKinds() {
		if k.api == dt {
			return k, true
		}
	}
	return BattlePhaseKind{}, false
}

// String returns the variant name.
func (k BattlePhaseKind) String() string { return k.name }

// MarshalText renders the variant by name.
func (k BattlePhaseKind) MarshalText() ([]byte, error) { return []byte(k.name), nil }

// IsZero reports whether k is the zero value (no variant).
func (k BattlePhaseKind) IsZero() bool { return k.name == "" }

// IsNight reports whether this is a night engagement.
func (k BattlePhaseKind) IsNight() bool { return k.night }

// IsCombined reports whether the variant belongs to a combined-fleet sortie.
func (k BattlePhaseKind) IsCombined() bool { return k.pattern != NonCombinedPattern }

// Pattern returns the variant's sub-phase pattern.
func (k BattlePhaseKind) Pattern() PhasePattern { return k.pattern }

// API returns the data type of the call that produces this phase.
func (k BattlePhaseKind) API() DataType { return k.api }

// IsOpeningSecond reports whether the opening strike is flown by the second fleet.
func (k BattlePhaseKind) IsOpeningSecond() bool { return k.pattern.opening }

// IsHougekiSecond reports whether the night shelling is fired by the second fleet.
func (k BattlePhaseKind) IsHougekiSecond() bool { return k.pattern.hougeki }

// IsHougeki1Second reports whether the first shelling round is fired by the second fleet.
func (k BattlePhaseKind) IsHougeki1Second() bool { return k.pattern.hougeki1 }

// IsHougeki2Second reports whether the second shelling round is fired by the second fleet.
func (k BattlePhaseKind) IsHougeki2Second() bool { return k.pattern.hougeki2 }

// IsHougeki3Second reports whether the third shelling round is fired by the second fleet.
func (k BattlePhaseKind) IsHougeki3Second() bool { return k.pattern.hougeki3 }

// IsRaigekiSecond reports whether the closing torpedo salvo is fired by the second fleet.
func (k BattlePhaseKind) IsRaigekiSecond() bool { return k.pattern.raigeki }

// SingleFleetCounterpart maps a combined-fleet variant onto the single-fleet
// variant with the same timing. Non-combined variants map to themselves.
func (k BattlePhaseKind) SingleFleetCounterpart() BattlePhaseKind {
	switch k {
	case PhaseCombinedBattle, PhaseCombinedAir, PhaseCombinedBattleWater:
		return PhaseBattle
	case PhaseCombinedMidnight:
		return PhaseMidnight
	case PhaseCombinedSPMidnight:
		return PhaseSPMidnight
	default:
		return k
	}
}
