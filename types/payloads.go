package types

import "time"

// Ship is one ship in the admiral's roster.
type Ship struct {
	ID     int `json:"id"`
	ShipID int `json:"ship_id"` // master ship id
	Level  int `json:"level"`
	NowHP  int `json:"now_hp"`
	MaxHP  int `json:"max_hp"`
	Cond   int `json:"cond"`
	Fuel   int `json:"fuel"`
	Bull   int `json:"bull"`
}

// Dock is one fleet (deck) and its composition.
type Dock struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	ShipIDs []int  `json:"ship_ids"` // roster ids; empty slots are omitted
	// MissionState is 0 when idle, 1 on expedition, 2 returned, 3 recalled.
	MissionState  int       `json:"mission_state"`
	MissionID     int       `json:"mission_id"`
	MissionReturn time.Time `json:"mission_return,omitzero"`
}

// RepairDock is one repair (nyukyo) slot.
type RepairDock struct {
	ID           int       `json:"id"`
	State        int       `json:"state"` // -1 locked, 0 empty, 1 in use
	ShipID       int       `json:"ship_id"`
	CompleteTime time.Time `json:"complete_time,omitzero"`
}

// BuildDock is one construction (kousyou) slot.
type BuildDock struct {
	ID            int       `json:"id"`
	State         int       `json:"state"` // -1 locked, 0 empty, 2 building, 3 done
	CreatedShipID int       `json:"created_ship_id"`
	CompleteTime  time.Time `json:"complete_time,omitzero"`
}

// Quest is one entry of the quest list.
type Quest struct {
	No       int    `json:"no"`
	Category int    `json:"category"`
	Type     int    `json:"type"`
	State    int    `json:"state"` // 1 not started, 2 in progress, 3 complete
	Title    string `json:"title"`
	Progress int    `json:"progress"`
}

// Quest states.
const (
	QuestStateNotStarted = 1
	QuestStateInProgress = 2
	QuestStateComplete   = 3
)

// BasicInfo is the admiral profile.
type BasicInfo struct {
	Nickname string `json:"nickname"`
	Level    int    `json:"level"`
	MaxShips int    `json:"max_ships"`
	MaxItems int    `json:"max_items"`
}

// Attack is one shelling attack. Damage and Critical are index-aligned with
// Targets. Ship positions are 1-based as sent by the server.
type Attack struct {
	Attacker int   `json:"attacker"`
	Targets  []int `json:"targets"`
	Damage   []int `json:"damage"`
	Critical []int `json:"critical"`
}

// --- payloads ---

// PortPayload is the home-port refresh.
type PortPayload struct {
	Resources    map[Resource]int `json:"resources"`
	Docks        []Dock           `json:"docks"`
	Ships        []Ship           `json:"ships"`
	RepairDocks  []RepairDock     `json:"repair_docks"`
	CombinedFlag int              `json:"combined_flag"`
	Basic        BasicInfo        `json:"basic"`
}

// DeckPayload carries one or more fleets.
type DeckPayload struct {
	Docks []Dock `json:"docks"`
}

// ShipPayload carries ship roster entries; Docks is set by ship3 only.
// Replace is true when Ships is the complete roster.
type ShipPayload struct {
	Ships   []Ship `json:"ships"`
	Docks   []Dock `json:"docks,omitempty"`
	Replace bool   `json:"replace"`
}

// ResourcePayload carries resource values (material, charge).
// Only the resources present in Values are updated.
type ResourcePayload struct {
	Values map[Resource]int `json:"values"`
}

// RepairDockPayload carries all repair docks.
type RepairDockPayload struct {
	Docks []RepairDock `json:"docks"`
}

// BuildDockPayload carries all construction docks.
type BuildDockPayload struct {
	Docks []BuildDock `json:"docks"`
}

// QuestListPayload is one page of the quest list.
type QuestListPayload struct {
	Page      int     `json:"page"`
	PageCount int     `json:"page_count"`
	Count     int     `json:"count"`
	Quests    []Quest `json:"quests"`
}

// QuestAction names a quest state transition requested by the client.
type QuestAction string

// Quest actions.
const (
	QuestActionStart QuestAction = "start"
	QuestActionStop  QuestAction = "stop"
	QuestActionClear QuestAction = "clear"
)

// QuestActionPayload is a quest start, stop or clear request.
type QuestActionPayload struct {
	QuestNo int         `json:"quest_no"`
	Action  QuestAction `json:"action"`
}

// MapCellPayload is a sortie start or advance to the next cell.
type MapCellPayload struct {
	Start   bool `json:"start"`
	DeckID  int  `json:"deck_id,omitempty"` // set on sortie start
	Area    int  `json:"area"`
	Map     int  `json:"map"`
	Cell    int  `json:"cell"`
	EventID int  `json:"event_id"`
	Color   int  `json:"color"`
	Next    int  `json:"next"` // 0 when this is the last cell of the route
}

// IsBoss reports whether the cell is the boss node.
func (m MapCellPayload) IsBoss() bool { return m.EventID == 5 }

// BattlePayload is one phase of a battle.
type BattlePayload struct {
	DockID         int      `json:"dock_id"`
	Formation      [2]int   `json:"formation"` // friend, enemy
	NowHPs         []int    `json:"now_hps"`
	MaxHPs         []int    `json:"max_hps"`
	NowHPsCombined []int    `json:"now_hps_combined,omitempty"`
	MaxHPsCombined []int    `json:"max_hps_combined,omitempty"`
	EnemyShips     []int    `json:"enemy_ships"`
	MidnightFlag   bool     `json:"midnight_flag"`
	Opening        bool     `json:"opening"`
	Hougeki        []Attack `json:"hougeki,omitempty"` // night shelling
	Hougeki1       []Attack `json:"hougeki1,omitempty"`
	Hougeki2       []Attack `json:"hougeki2,omitempty"`
	Hougeki3       []Attack `json:"hougeki3,omitempty"`
	Raigeki        bool     `json:"raigeki"`
}

// BattleResultPayload closes a battle.
type BattleResultPayload struct {
	WinRank       string `json:"win_rank"`
	QuestName     string `json:"quest_name"`
	EnemyDeckName string `json:"enemy_deck_name"`
	DropShipName  string `json:"drop_ship_name,omitempty"`
	BaseExp       int    `json:"base_exp"`
	MVP           int    `json:"mvp"`
	MVPCombined   int    `json:"mvp_combined,omitempty"`
}

// ChangePayload is a fleet composition change. ShipID -1 removes the ship at
// ShipIndex; -2 removes every ship except the flagship.
type ChangePayload struct {
	DockID    int `json:"dock_id"`
	ShipIndex int `json:"ship_index"`
	ShipID    int `json:"ship_id"`
}

// Special ChangePayload.ShipID values.
const (
	ChangeRemoveShip   = -1
	ChangeRemoveEscort = -2
)

// CombinedPayload toggles the combined fleet. Type 0 releases it.
type CombinedPayload struct {
	Type int `json:"type"`
}

// BasicPayload carries the admiral profile.
type BasicPayload struct {
	Basic BasicInfo `json:"basic"`
}

// RepairStartPayload is a repair dock assignment.
type RepairStartPayload struct {
	DockID    int  `json:"dock_id"`
	ShipID    int  `json:"ship_id"`
	HighSpeed bool `json:"high_speed"`
}

// RepairSpeedChangePayload finishes a repair with a bucket.
type RepairSpeedChangePayload struct {
	DockID int `json:"dock_id"`
}

// MissionResultPayload is an expedition result.
type MissionResultPayload struct {
	Result    int    `json:"result"` // 0 failure, 1 success, 2 great success
	QuestName string `json:"quest_name"`
	Materials []int  `json:"materials"`
}

// MasterPayload is the subset of master data the proxy keeps.
type MasterPayload struct {
	ShipNames map[int]string `json:"ship_names"`
}

func (PortPayload) payload()              {}
func (DeckPayload) payload()              {}
func (ShipPayload) payload()              {}
func (ResourcePayload) payload()          {}
func (RepairDockPayload) payload()        {}
func (BuildDockPayload) payload()         {}
func (QuestListPayload) payload()         {}
func (QuestActionPayload) payload()       {}
func (MapCellPayload) payload()           {}
func (BattlePayload) payload()            {}
func (BattleResultPayload) payload()      {}
func (ChangePayload) payload()            {}
func (CombinedPayload) payload()          {}
func (BasicPayload) payload()             {}
func (RepairStartPayload) payload()       {}
func (RepairSpeedChangePayload) payload() {}
func (MissionResultPayload) payload()     {}
func (MasterPayload) payload()            {}
