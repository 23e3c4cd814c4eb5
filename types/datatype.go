// Package types defines core domain types for the logbook proxy.
package types

// CatalogueVersion identifies the revision of the request path catalogue.
// Bump it whenever an entry is added, removed, or re-pointed so archived
// exchanges can be matched to the catalogue that classified them.
const CatalogueVersion = "2015.02"

// DataType identifies which game API endpoint an exchange represents.
type DataType int

// Recognized API endpoints. Undefined is the zero value and marks traffic
// that is not part of the catalogue.
const (
	Undefined DataType = iota

	// Sortie and practice battles.
	Battle
	BattleMidnight
	BattleSPMidnight
	BattleNightToDay
	AirBattle
	PracticeBattle
	PracticeBattleMidnight
	CombinedBattle
	CombinedAirBattle
	CombinedBattleMidnight
	CombinedBattleSPMidnight
	CombinedBattleWater

	// Battle results.
	BattleResult
	CombinedBattleResult
	PracticeBattleResult

	// Map progress.
	MapStart
	MapNext

	// Port and fleets.
	Port
	Deck
	Ship2
	Ship3
	Change
	Combined
	Charge
	Basic
	Material

	// Docks.
	NDock
	KDock
	NyukyoStart
	NyukyoSpeedChange

	// Quests and expeditions.
	QuestList
	QuestStart
	QuestStop
	QuestClear
	MissionResult

	// Master data.
	Start2
)

var dataTypeNames = map[DataType]string{
	Undefined:                "UNDEFINED",
	Battle:                   "BATTLE",
	BattleMidnight:           "BATTLE_MIDNIGHT",
	BattleSPMidnight:         "BATTLE_SP_MIDNIGHT",
	BattleNightToDay:         "BATTLE_NIGHT_TO_DAY",
	AirBattle:                "AIR_BATTLE",
	PracticeBattle:           "PRACTICE_BATTLE",
	PracticeBattleMidnight:   "PRACTICE_BATTLE_MIDNIGHT",
	CombinedBattle:           "COMBINED_BATTLE",
	CombinedAirBattle:        "COMBINED_AIR_BATTLE",
	CombinedBattleMidnight:   "COMBINED_BATTLE_MIDNIGHT",
	CombinedBattleSPMidnight: "COMBINED_BATTLE_SP_MIDNIGHT",
	CombinedBattleWater:      "COMBINED_BATTLE_WATER",
	BattleResult:             "BATTLE_RESULT",
	CombinedBattleResult:     "COMBINED_BATTLE_RESULT",
	PracticeBattleResult:     "PRACTICE_BATTLE_RESULT",
	MapStart:                 "START",
	MapNext:                  "NEXT",
	Port:                     "PORT",
	Deck:                     "DECK",
	Ship2:                    "SHIP2",
	Ship3:                    "SHIP3",
	Change:                   "CHANGE",
	Combined:                 "COMBINED",
	Charge:                   "CHARGE",
	Basic:                    "BASIC",
	Material:                 "MATERIAL",
	NDock:                    "NDOCK",
	KDock:                    "KDOCK",
	NyukyoStart:              "NYUKYO_START",
	NyukyoSpeedChange:        "NYUKYO_SPEEDCHANGE",
	QuestList:                "QUEST_LIST",
	QuestStart:               "QUEST_START",
	QuestStop:                "QUEST_STOP",
	QuestClear:               "QUEST_CLEAR",
	MissionResult:            "MISSION_RESULT",
	Start2:                   "START2",
}

// String returns the catalogue name of the data type.
func (d DataType) String() string {
	if name, ok := dataTypeNames[d]; ok {
		return name
	}
	return "UNDEFINED"
}

// ParseDataType resolves a catalogue name back to its DataType.
// Unknown names yield Undefined and false.
func ParseDataType(name string) (DataType, bool) {
	for dt, n := range dataTypeNames {
		if n == name {
			return dt, true
		}
	}
	return Undefined, false
}

// MarshalText implements encoding.TextMarshaler so data types render by name
// in JSON, YAML and log output.
func (d DataType) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// IsBattle reports whether the data type carries a battle phase payload.
func (d DataType) IsBattle() bool {
	switch d {
	case Battle, BattleMidnight, BattleSPMidnight, BattleNightToDay, AirBattle,
		PracticeBattle, PracticeBattleMidnight,
		CombinedBattle, CombinedAirBattle, CombinedBattleMidnight,
		CombinedBattleSPMidnight, CombinedBattleWater:
		return true
	default:
		return false
	}
}

// IsBattleResult reports whether the data type closes a battle.
func (d DataType) IsBattleResult() bool {
	return d == BattleResult || d == CombinedBattleResult || d == PracticeBattleResult
}

// DataTypes returns every catalogued data type (Undefined excluded) in
// declaration order.
func DataTypes() []DataType {
	out := make([]DataType, 0, len(dataTypeNames)-1)
	for dt := Battle; dt <= Start2; dt++ {
		out = append(out, dt)
	}
	return out
}
