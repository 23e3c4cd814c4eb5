package world

import (
	"slices"
	"sort"
	"time"

	"github.com/justapithecus/logbook/battle"
	"github.com/justapithecus/logbook/types"
)

// MaxDocks is the number of fleets an admiral can own.
const MaxDocks = 4

// Aggregate names one top-level part of the world state. Observers are
// told which aggregates a fold changed.
type Aggregate string

// Aggregates.
const (
	AggregateDocks       Aggregate = "docks"
	AggregateShips       Aggregate = "ships"
	AggregateSortie      Aggregate = "sortie"
	AggregateRepairDocks Aggregate = "repair_docks"
	AggregateBuildDocks  Aggregate = "build_docks"
	AggregateQuests      Aggregate = "quests"
	AggregateResources   Aggregate = "resources"
	AggregateBattle      Aggregate = "battle"
	AggregateBasic       Aggregate = "basic"
	AggregateMaster      Aggregate = "master"
	AggregateEvents      Aggregate = "events"
)

// Aggregates returns every aggregate in notification order.
func Aggregates() []Aggregate {
	return []Aggregate{
		AggregateDocks,
		AggregateShips,
		AggregateSortie,
		AggregateRepairDocks,
		AggregateBuildDocks,
		AggregateQuests,
		AggregateResources,
		AggregateBattle,
		AggregateBasic,
		AggregateMaster,
		AggregateEvents,
	}
}

// BattlePhase is one sequenced battle payload.
type BattlePhase struct {
	Kind          types.BattlePhaseKind `json:"kind"`
	Actors        battle.Actors         `json:"actors"`
	Payload       types.BattlePayload   `json:"payload"`
	Inconsistency *battle.Inconsistency `json:"inconsistency,omitempty"`
	At            time.Time             `json:"at"`
}

// BattleEvent is one battle: its day and night phases enriched with the
// active variant and actor resolution, and the result once it arrives.
type BattleEvent struct {
	DockID    int                        `json:"dock_id"`
	Area      int                        `json:"area,omitempty"`
	Map       int                        `json:"map,omitempty"`
	Cell      int                        `json:"cell,omitempty"`
	Boss      bool                       `json:"boss"`
	Combined  bool                       `json:"combined"`
	Phases    []BattlePhase              `json:"phases"`
	Result    *types.BattleResultPayload `json:"result,omitempty"`
	StartedAt time.Time                  `json:"started_at"`
}

// Last returns the most recent phase.
func (e BattleEvent) Last() (BattlePhase, bool) {
	if len(e.Phases) == 0 {
		return BattlePhase{}, false
	}
	return e.Phases[len(e.Phases)-1], true
}

func (e *BattleEvent) clone() *BattleEvent {
	c := *e
	c.Phases = slices.Clone(e.Phases)
	return &c
}

// Snapshot is an immutable view of the world at one version.
//
// Accessors return copies. Payload slices inside battle phases are shared
// with the decoder output and must be treated as read-only.
type Snapshot struct {
	version    uint64
	aggVersion map[Aggregate]uint64

	docks        map[int]types.Dock
	sortie       [MaxDocks]bool
	combinedType int
	cell         types.MapCellPayload
	hasCell      bool
	seq          battle.Sequencer

	ships       map[int]types.Ship
	repairDocks map[int]types.RepairDock
	buildDocks  map[int]types.BuildDock
	quests      map[int]types.Quest
	resources   map[types.Resource][]types.ResourceSample
	basic       types.BasicInfo
	shipNames   map[int]string
	battle      *BattleEvent
	recent      []types.Decoded
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		aggVersion:  map[Aggregate]uint64{},
		docks:       map[int]types.Dock{},
		ships:       map[int]types.Ship{},
		repairDocks: map[int]types.RepairDock{},
		buildDocks:  map[int]types.BuildDock{},
		quests:      map[int]types.Quest{},
		resources:   map[types.Resource][]types.ResourceSample{},
		shipNames:   map[int]string{},
	}
}

// Version increases by one with every applied fold.
func (s *Snapshot) Version() uint64 { return s.version }

// AggregateVersion returns the version at which a was last changed.
func (s *Snapshot) AggregateVersion(a Aggregate) uint64 { return s.aggVersion[a] }

func cloneDock(d types.Dock) types.Dock {
	d.ShipIDs = slices.Clone(d.ShipIDs)
	return d
}

// Dock returns the fleet with the given id (1-based).
func (s *Snapshot) Dock(id int) (types.Dock, bool) {
	d, ok := s.docks[id]
	if !ok {
		return types.Dock{}, false
	}
	return cloneDock(d), true
}

// Docks returns all known fleets ordered by id.
func (s *Snapshot) Docks() []types.Dock {
	out := make([]types.Dock, 0, len(s.docks))
	for _, d := range s.docks {
		out = append(out, cloneDock(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IsSortie reports whether the fleet with the given id is on a sortie.
func (s *Snapshot) IsSortie(id int) bool {
	if id < 1 || id > MaxDocks {
		return false
	}
	return s.sortie[id-1]
}

// Combined reports whether a combined fleet is formed.
func (s *Snapshot) Combined() bool { return s.combinedType != 0 }

// CombinedType returns the combined fleet type (0 when released).
func (s *Snapshot) CombinedType() int { return s.combinedType }

// SortieDocks returns the fleets on sortie: fleets 1 and 2 for a combined
// sortie, otherwise the first fleet flagged as sortied.
func (s *Snapshot) SortieDocks() []types.Dock {
	var ids []int
	if s.Combined() && s.sortie[0] {
		ids = []int{1, 2}
	} else {
		for i, on := range s.sortie {
			if on {
				ids = []int{i + 1}
				break
			}
		}
	}
	out := make([]types.Dock, 0, len(ids))
	for _, id := range ids {
		if d, ok := s.Dock(id); ok {
			out = append(out, d)
		}
	}
	return out
}

// Cell returns the current map cell of the sortie.
func (s *Snapshot) Cell() (types.MapCellPayload, bool) { return s.cell, s.hasCell }

// Phase returns the active battle variant, or false when idle.
func (s *Snapshot) Phase() (types.BattlePhaseKind, bool) { return s.seq.Active() }

// CombinedSortie reports whether the current sortie runs in combined mode.
func (s *Snapshot) CombinedSortie() bool { return s.seq.Combined() }

// Ship returns a roster entry.
func (s *Snapshot) Ship(id int) (types.Ship, bool) {
	sh, ok := s.ships[id]
	return sh, ok
}

// Ships returns the roster ordered by id.
func (s *Snapshot) Ships() []types.Ship {
	out := make([]types.Ship, 0, len(s.ships))
	for _, sh := range s.ships {
		out = append(out, sh)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ShipName returns the master name of a ship type.
func (s *Snapshot) ShipName(masterID int) string { return s.shipNames[masterID] }

// RepairDocks returns the repair docks ordered by id.
func (s *Snapshot) RepairDocks() []types.RepairDock {
	out := make([]types.RepairDock, 0, len(s.repairDocks))
	for _, d := range s.repairDocks {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BuildDocks returns the construction docks ordered by id.
func (s *Snapshot) BuildDocks() []types.BuildDock {
	out := make([]types.BuildDock, 0, len(s.buildDocks))
	for _, d := range s.buildDocks {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Quests returns the known quests ordered by number.
func (s *Snapshot) Quests() []types.Quest {
	out := make([]types.Quest, 0, len(s.quests))
	for _, q := range s.quests {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].No < out[j].No })
	return out
}

// Quest returns one quest by number.
func (s *Snapshot) Quest(no int) (types.Quest, bool) {
	q, ok := s.quests[no]
	return q, ok
}

// Resource returns the latest sample of r.
func (s *Snapshot) Resource(r types.Resource) (types.ResourceSample, bool) {
	series := s.resources[r]
	if len(series) == 0 {
		return types.ResourceSample{}, false
	}
	return series[len(series)-1], true
}

// ResourceSeries returns the full series of r in timestamp order.
func (s *Snapshot) ResourceSeries(r types.Resource) []types.ResourceSample {
	return slices.Clone(s.resources[r])
}

// ResourceWindow returns the samples of r taken at or after since.
func (s *Snapshot) ResourceWindow(r types.Resource, since time.Time) []types.ResourceSample {
	series := s.resources[r]
	i := sort.Search(len(series), func(i int) bool { return !series[i].Time.Before(since) })
	return slices.Clone(series[i:])
}

// Basic returns the admiral profile.
func (s *Snapshot) Basic() types.BasicInfo { return s.basic }

// Battle returns the current battle event.
func (s *Snapshot) Battle() (BattleEvent, bool) {
	if s.battle == nil {
		return BattleEvent{}, false
	}
	return *s.battle.clone(), true
}

// Recent returns the last decoded events, oldest first.
func (s *Snapshot) Recent() []types.Decoded {
	return slices.Clone(s.recent)
}
