package world

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/justapithecus/logbook/battle"
	"github.com/justapithecus/logbook/types"
)

// draft is a copy-on-write view of a snapshot being folded. Each aggregate
// is cloned the first time it is written, so untouched aggregates are
// shared with the previous snapshot.
type draft struct {
	base  *Snapshot
	s     *Snapshot
	limit int

	changed map[Aggregate]bool
	cloned  map[Aggregate]bool

	samples    []types.ResourceSample
	resolution *battle.Resolution
}

func newDraft(base *Snapshot, limit int) *draft {
	cp := *base
	return &draft{
		base:    base,
		s:       &cp,
		limit:   limit,
		changed: map[Aggregate]bool{},
		cloned:  map[Aggregate]bool{},
	}
}

func (d *draft) touch(a Aggregate) { d.changed[a] = true }

// cow returns a writable copy of the map behind m and marks a changed.
func cow[K comparable, V any](d *draft, a Aggregate, m *map[K]V) map[K]V {
	if !d.cloned[a] {
		c := make(map[K]V, len(*m)+1)
		maps.Copy(c, *m)
		*m = c
		d.cloned[a] = true
	}
	d.touch(a)
	return *m
}

// replace swaps the map behind m for a fresh one and marks a changed.
func replace[K comparable, V any](d *draft, a Aggregate, m *map[K]V, size int) map[K]V {
	*m = make(map[K]V, size)
	d.cloned[a] = true
	d.touch(a)
	return *m
}

func (d *draft) commit() *Snapshot {
	next := d.s
	next.version = d.base.version + 1
	next.aggVersion = maps.Clone(d.base.aggVersion)
	if next.aggVersion == nil {
		next.aggVersion = map[Aggregate]uint64{}
	}
	for a := range d.changed {
		next.aggVersion[a] = next.version
	}
	return next
}

func (d *draft) changedAggregates() []Aggregate {
	var out []Aggregate
	for _, a := range Aggregates() {
		if d.changed[a] {
			out = append(out, a)
		}
	}
	return out
}

func (d *draft) recordEvent(ev types.Decoded, window int) {
	recent := d.s.recent
	if len(recent) >= window {
		recent = recent[len(recent)-window+1:]
	}
	next := make([]types.Decoded, 0, len(recent)+1)
	next = append(next, recent...)
	d.s.recent = append(next, ev)
	d.touch(AggregateEvents)
}

func (d *draft) addSample(s types.ResourceSample) {
	res := cow(d, AggregateResources, &d.s.resources)
	res[s.Resource] = insertSample(res[s.Resource], s, d.limit)
	d.samples = append(d.samples, s)
}

func (d *draft) addResources(values map[types.Resource]int, at time.Time) {
	for _, r := range types.Resources() {
		if v, ok := values[r]; ok {
			d.addSample(types.ResourceSample{Resource: r, Time: at, Value: v})
		}
	}
}

func (d *draft) endSortie() {
	if d.s.sortie != [MaxDocks]bool{} || d.s.hasCell {
		d.s.sortie = [MaxDocks]bool{}
		d.s.cell = types.MapCellPayload{}
		d.s.hasCell = false
		d.touch(AggregateSortie)
	}
	if _, active := d.s.seq.Active(); active || d.s.seq.Combined() {
		d.touch(AggregateSortie)
	}
	d.s.seq.EndSortie()
	if d.s.battle != nil {
		d.s.battle = nil
		d.touch(AggregateBattle)
	}
}

func (d *draft) upsertDocks(docks []types.Dock) {
	if len(docks) == 0 {
		return
	}
	m := cow(d, AggregateDocks, &d.s.docks)
	for _, dk := range docks {
		m[dk.ID] = dk
	}
}

// apply runs the fold rule for one payload.
func (d *draft) apply(ev *types.Decoded, at time.Time) error {
	switch p := ev.Data.(type) {
	case types.PortPayload:
		d.addResources(p.Resources, at)
		docks := replace(d, AggregateDocks, &d.s.docks, len(p.Docks))
		for _, dk := range p.Docks {
			docks[dk.ID] = dk
		}
		ships := replace(d, AggregateShips, &d.s.ships, len(p.Ships))
		for _, sh := range p.Ships {
			ships[sh.ID] = sh
		}
		rd := replace(d, AggregateRepairDocks, &d.s.repairDocks, len(p.RepairDocks))
		for _, r := range p.RepairDocks {
			rd[r.ID] = r
		}
		d.s.combinedType = p.CombinedFlag
		d.s.basic = p.Basic
		d.touch(AggregateBasic)
		d.endSortie()

	case types.DeckPayload:
		d.upsertDocks(p.Docks)

	case types.ShipPayload:
		var ships map[int]types.Ship
		if p.Replace {
			ships = replace(d, AggregateShips, &d.s.ships, len(p.Ships))
		} else {
			ships = cow(d, AggregateShips, &d.s.ships)
		}
		for _, sh := range p.Ships {
			ships[sh.ID] = sh
		}
		d.upsertDocks(p.Docks)

	case types.ResourcePayload:
		d.addResources(p.Values, at)

	case types.RepairDockPayload:
		rd := replace(d, AggregateRepairDocks, &d.s.repairDocks, len(p.Docks))
		for _, r := range p.Docks {
			rd[r.ID] = r
		}

	case types.BuildDockPayload:
		bd := replace(d, AggregateBuildDocks, &d.s.buildDocks, len(p.Docks))
		for _, b := range p.Docks {
			bd[b.ID] = b
		}

	case types.QuestListPayload:
		quests := cow(d, AggregateQuests, &d.s.quests)
		for _, q := range p.Quests {
			quests[q.No] = q
		}

	case types.QuestActionPayload:
		return d.applyQuestAction(ev.Type, p)

	case types.MapCellPayload:
		return d.applyMapCell(ev.Type, p)

	case types.BattlePayload:
		if !ev.Type.IsBattle() {
			return &FoldError{Type: ev.Type, Msg: "battle payload for non-battle data type"}
		}
		d.applyBattle(ev.Type, p, at)

	case types.BattleResultPayload:
		d.s.seq.EndBattle()
		var be *BattleEvent
		if d.s.battle != nil {
			be = d.s.battle.clone()
		} else {
			be = &BattleEvent{StartedAt: at}
		}
		result := p
		be.Result = &result
		d.s.battle = be
		d.touch(AggregateBattle)

	case types.ChangePayload:
		return d.applyChange(ev.Type, p)

	case types.CombinedPayload:
		d.s.combinedType = p.Type
		d.touch(AggregateDocks)

	case types.BasicPayload:
		d.s.basic = p.Basic
		d.touch(AggregateBasic)

	case types.RepairStartPayload:
		if p.HighSpeed {
			d.heal(p.ShipID)
		}

	case types.RepairSpeedChangePayload:
		rd := cow(d, AggregateRepairDocks, &d.s.repairDocks)
		dock, ok := rd[p.DockID]
		if !ok {
			return &FoldError{Type: ev.Type, Msg: fmt.Sprintf("unknown repair dock %d", p.DockID)}
		}
		d.heal(dock.ShipID)
		dock.State = 0
		dock.ShipID = 0
		dock.CompleteTime = time.Time{}
		rd[p.DockID] = dock

	case types.MissionResultPayload:
		// only recorded as an event

	case types.MasterPayload:
		names := replace(d, AggregateMaster, &d.s.shipNames, len(p.ShipNames))
		maps.Copy(names, p.ShipNames)

	default:
		return &FoldError{Type: ev.Type, Msg: fmt.Sprintf("unsupported payload %T", ev.Data)}
	}
	return nil
}

// heal restores a ship to full hp after a repair.
func (d *draft) heal(shipID int) {
	sh, ok := d.s.ships[shipID]
	if !ok {
		return
	}
	sh.NowHP = sh.MaxHP
	cow(d, AggregateShips, &d.s.ships)[shipID] = sh
}

func (d *draft) applyQuestAction(dt types.DataType, p types.QuestActionPayload) error {
	quests := cow(d, AggregateQuests, &d.s.quests)
	q, known := quests[p.QuestNo]
	switch p.Action {
	case types.QuestActionStart:
		q.No = p.QuestNo
		q.State = types.QuestStateInProgress
		quests[p.QuestNo] = q
	case types.QuestActionStop:
		if known {
			q.State = types.QuestStateNotStarted
			quests[p.QuestNo] = q
		}
	case types.QuestActionClear:
		delete(quests, p.QuestNo)
	default:
		return &FoldError{Type: dt, Msg: fmt.Sprintf("unknown quest action %q", p.Action)}
	}
	return nil
}

func (d *draft) applyMapCell(dt types.DataType, p types.MapCellPayload) error {
	if p.Start {
		if p.DeckID < 1 || p.DeckID > MaxDocks {
			return &FoldError{Type: dt, Msg: fmt.Sprintf("sortie from invalid fleet %d", p.DeckID)}
		}
		d.endSortie()
		combined := d.s.combinedType != 0 && p.DeckID == 1
		d.s.sortie[p.DeckID-1] = true
		if combined {
			d.s.sortie[1] = true
		}
		d.s.seq.BeginSortie(combined)
	}
	d.s.cell = p
	d.s.hasCell = true
	d.touch(AggregateSortie)
	return nil
}

func (d *draft) applyBattle(dt types.DataType, p types.BattlePayload, at time.Time) {
	res := d.s.seq.Advance(dt)
	d.resolution = &res

	phase := BattlePhase{
		Kind:          res.Kind,
		Actors:        res.Actors,
		Payload:       p,
		Inconsistency: res.Inconsistency,
		At:            at,
	}

	var be *BattleEvent
	if res.Continues && d.s.battle != nil && d.s.battle.Result == nil {
		be = d.s.battle.clone()
	} else {
		be = &BattleEvent{
			DockID:    p.DockID,
			Combined:  res.Kind.IsCombined(),
			StartedAt: at,
		}
		if d.s.hasCell {
			be.Area, be.Map, be.Cell = d.s.cell.Area, d.s.cell.Map, d.s.cell.Cell
			be.Boss = d.s.cell.IsBoss()
		}
	}
	be.Phases = append(be.Phases, phase)
	d.s.battle = be
	d.touch(AggregateBattle)
}

func (d *draft) applyChange(dt types.DataType, p types.ChangePayload) error {
	docks := cow(d, AggregateDocks, &d.s.docks)
	dock, ok := docks[p.DockID]
	if !ok {
		return &FoldError{Type: dt, Msg: fmt.Sprintf("unknown fleet %d", p.DockID)}
	}
	ids := slices.Clone(dock.ShipIDs)

	switch {
	case p.ShipID == types.ChangeRemoveEscort:
		if len(ids) > 1 {
			ids = ids[:1]
		}
	case p.ShipID == types.ChangeRemoveShip:
		if p.ShipIndex >= 0 && p.ShipIndex < len(ids) {
			ids = slices.Delete(ids, p.ShipIndex, p.ShipIndex+1)
		}
	default:
		if p.ShipIndex < 0 {
			return &FoldError{Type: dt, Msg: fmt.Sprintf("invalid slot %d", p.ShipIndex)}
		}
		var displaced int
		if p.ShipIndex < len(ids) {
			displaced = ids[p.ShipIndex]
		}

		// a ship already assigned elsewhere swaps with the displaced one
		for otherID, other := range docks {
			j := slices.Index(other.ShipIDs, p.ShipID)
			if j < 0 {
				continue
			}
			if otherID == p.DockID {
				if displaced != 0 {
					ids[j] = displaced
				} else {
					ids = slices.Delete(ids, j, j+1)
				}
				break
			}
			otherIDs := slices.Clone(other.ShipIDs)
			if displaced != 0 {
				otherIDs[j] = displaced
			} else {
				otherIDs = slices.Delete(otherIDs, j, j+1)
			}
			other.ShipIDs = otherIDs
			docks[otherID] = other
			break
		}

		if p.ShipIndex < len(ids) {
			ids[p.ShipIndex] = p.ShipID
		} else {
			ids = append(ids, p.ShipID)
		}
	}

	dock.ShipIDs = ids
	docks[p.DockID] = dock
	return nil
}
