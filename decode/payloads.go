package decode

import (
	"github.com/tidwall/gjson"

	"github.com/justapithecus/logbook/types"
)

type decoderFunc func(p *parser, root, data gjson.Result) types.Payload

var decoders = map[types.DataType]decoderFunc{
	types.Battle:                   decodeBattle,
	types.BattleMidnight:           decodeBattle,
	types.BattleSPMidnight:         decodeBattle,
	types.BattleNightToDay:         decodeBattle,
	types.AirBattle:                decodeBattle,
	types.PracticeBattle:           decodeBattle,
	types.PracticeBattleMidnight:   decodeBattle,
	types.CombinedBattle:           decodeBattle,
	types.CombinedAirBattle:        decodeBattle,
	types.CombinedBattleMidnight:   decodeBattle,
	types.CombinedBattleSPMidnight: decodeBattle,
	types.CombinedBattleWater:      decodeBattle,
	types.BattleResult:             decodeBattleResult,
	types.CombinedBattleResult:     decodeBattleResult,
	types.PracticeBattleResult:     decodeBattleResult,
	types.MapStart:                 decodeMapCell,
	types.MapNext:                  decodeMapCell,
	types.Port:                     decodePort,
	types.Deck:                     decodeDeck,
	types.Ship2:                    decodeShip2,
	types.Ship3:                    decodeShip3,
	types.Change:                   decodeChange,
	types.Combined:                 decodeCombined,
	types.Charge:                   decodeCharge,
	types.Basic:                    decodeBasic,
	types.Material:                 decodeMaterial,
	types.NDock:                    decodeNDock,
	types.KDock:                    decodeKDock,
	types.NyukyoStart:              decodeNyukyoStart,
	types.NyukyoSpeedChange:        decodeSpeedChange,
	types.QuestList:                decodeQuestList,
	types.QuestStart:               decodeQuestAction(types.QuestActionStart),
	types.QuestStop:                decodeQuestAction(types.QuestActionStop),
	types.QuestClear:               decodeQuestAction(types.QuestActionClear),
	types.MissionResult:            decodeMissionResult,
	types.Start2:                   decodeStart2,
}

// --- shared shapes ---

func (p *parser) ship(r gjson.Result) types.Ship {
	return types.Ship{
		ID:     p.int(r, "api_id"),
		ShipID: p.int(r, "api_ship_id"),
		Level:  p.optInt(r, "api_lv"),
		NowHP:  p.optInt(r, "api_nowhp"),
		MaxHP:  p.optInt(r, "api_maxhp"),
		Cond:   p.optInt(r, "api_cond"),
		Fuel:   p.optInt(r, "api_fuel"),
		Bull:   p.optInt(r, "api_bull"),
	}
}

func (p *parser) ships(arr []gjson.Result) []types.Ship {
	out := make([]types.Ship, 0, len(arr))
	for _, r := range arr {
		out = append(out, p.ship(r))
	}
	return out
}

func (p *parser) dock(r gjson.Result) types.Dock {
	d := types.Dock{
		ID:   p.int(r, "api_id"),
		Name: p.optStr(r, "api_name"),
	}
	for _, id := range p.ints(r, "api_ship") {
		if id > 0 {
			d.ShipIDs = append(d.ShipIDs, id)
		}
	}
	if m := p.optArray(r, "api_mission"); len(m) >= 3 {
		d.MissionState = int(m[0].Int())
		d.MissionID = int(m[1].Int())
		d.MissionReturn = p.millis(r, "api_mission.2")
	}
	return d
}

func (p *parser) docks(arr []gjson.Result) []types.Dock {
	out := make([]types.Dock, 0, len(arr))
	for _, r := range arr {
		out = append(out, p.dock(r))
	}
	return out
}

func (p *parser) basic(r gjson.Result) types.BasicInfo {
	return types.BasicInfo{
		Nickname: p.str(r, "api_nickname"),
		Level:    p.optInt(r, "api_level"),
		MaxShips: p.optInt(r, "api_max_chara"),
		MaxItems: p.optInt(r, "api_max_slotitem"),
	}
}

// materials reads the [{api_id, api_value}] list used by port and material.
func (p *parser) materials(arr []gjson.Result) map[types.Resource]int {
	out := make(map[types.Resource]int, len(arr))
	for _, r := range arr {
		id := types.Resource(p.int(r, "api_id"))
		v := p.int(r, "api_value")
		if id.Valid() {
			out[id] = v
		}
	}
	return out
}

func (p *parser) repairDocks(arr []gjson.Result) []types.RepairDock {
	out := make([]types.RepairDock, 0, len(arr))
	for _, r := range arr {
		out = append(out, types.RepairDock{
			ID:           p.int(r, "api_id"),
			State:        p.int(r, "api_state"),
			ShipID:       p.optInt(r, "api_ship_id"),
			CompleteTime: p.millis(r, "api_complete_time"),
		})
	}
	return out
}

// attacks reads one shelling block. Index 0 of every list is a -1 placeholder.
func (p *parser) attacks(r gjson.Result, path string) []types.Attack {
	v := r.Get(path)
	if !v.IsObject() {
		return nil
	}
	at := p.array(v, "api_at_list")
	df := p.array(v, "api_df_list")
	dmg := p.array(v, "api_damage")
	cl := p.optArray(v, "api_cl_list")
	if p.err != nil {
		return nil
	}
	if len(df) != len(at) || len(dmg) != len(at) {
		p.fail(path, "attack lists are not aligned")
		return nil
	}

	var out []types.Attack
	for i := range at {
		if at[i].Int() < 0 {
			continue
		}
		a := types.Attack{
			Attacker: int(at[i].Int()),
			Targets:  intsOfValue(df[i]),
			Damage:   intsOfValue(dmg[i]),
		}
		if i < len(cl) {
			a.Critical = intsOfValue(cl[i])
		}
		out = append(out, a)
	}
	return out
}

// --- per data type ---

func decodeBattle(p *parser, _, data gjson.Result) types.Payload {
	data = p.asObject(data, "api_data")
	if p.err != nil {
		return nil
	}

	b := types.BattlePayload{
		NowHPs:       p.ints(data, "api_nowhps"),
		MaxHPs:       p.ints(data, "api_maxhps"),
		EnemyShips:   p.ints(data, "api_ship_ke"),
		MidnightFlag: data.Get("api_midnight_flag").Int() == 1,
		Opening:      data.Get("api_opening_flag").Int() == 1,
		Hougeki:      p.attacks(data, "api_hougeki"),
		Hougeki1:     p.attacks(data, "api_hougeki1"),
		Hougeki2:     p.attacks(data, "api_hougeki2"),
		Hougeki3:     p.attacks(data, "api_hougeki3"),
	}

	switch {
	case data.Get("api_dock_id").Exists():
		b.DockID = p.int(data, "api_dock_id")
	case data.Get("api_deck_id").Exists():
		b.DockID = p.int(data, "api_deck_id")
	default:
		p.fail("api_dock_id", "missing")
	}

	if f := p.optArray(data, "api_formation"); len(f) >= 2 {
		b.Formation = [2]int{int(f[0].Int()), int(f[1].Int())}
	}
	if h := p.optArray(data, "api_hourai_flag"); len(h) >= 4 {
		b.Raigeki = h[3].Int() == 1
	}

	if kind, ok := types.PhaseKindFor(p.dt); ok && kind.IsCombined() {
		b.NowHPsCombined = p.ints(data, "api_nowhps_combined")
		b.MaxHPsCombined = p.ints(data, "api_maxhps_combined")
	}
	return b
}

func decodeBattleResult(p *parser, _, data gjson.Result) types.Payload {
	data = p.asObject(data, "api_data")
	return types.BattleResultPayload{
		WinRank:       p.str(data, "api_win_rank"),
		QuestName:     p.optStr(data, "api_quest_name"),
		EnemyDeckName: p.optStr(data, "api_enemy_info.api_deck_name"),
		DropShipName:  p.optStr(data, "api_get_ship.api_ship_name"),
		BaseExp:       p.optInt(data, "api_get_base_exp"),
		MVP:           p.optInt(data, "api_mvp"),
		MVPCombined:   p.optInt(data, "api_mvp_combined"),
	}
}

func decodeMapCell(p *parser, _, data gjson.Result) types.Payload {
	data = p.asObject(data, "api_data")
	m := types.MapCellPayload{
		Start:   p.dt == types.MapStart,
		Area:    p.int(data, "api_maparea_id"),
		Map:     p.int(data, "api_mapinfo_no"),
		Cell:    p.int(data, "api_no"),
		EventID: p.optInt(data, "api_event_id"),
		Color:   p.optInt(data, "api_color_no"),
		Next:    p.optInt(data, "api_next"),
	}
	if m.Start {
		m.DeckID = p.formInt("api_deck_id")
	}
	return m
}

func decodePort(p *parser, _, data gjson.Result) types.Payload {
	data = p.asObject(data, "api_data")
	return types.PortPayload{
		Resources:    p.materials(p.array(data, "api_material")),
		Docks:        p.docks(p.array(data, "api_deck_port")),
		Ships:        p.ships(p.array(data, "api_ship")),
		RepairDocks:  p.repairDocks(p.optArray(data, "api_ndock")),
		CombinedFlag: p.optInt(data, "api_combined_flag"),
		Basic:        p.basic(p.object(data, "api_basic")),
	}
}

func decodeDeck(p *parser, _, data gjson.Result) types.Payload {
	if data.IsObject() {
		return types.DeckPayload{Docks: []types.Dock{p.dock(data)}}
	}
	return types.DeckPayload{Docks: p.docks(p.asArray(data, "api_data"))}
}

func decodeShip2(p *parser, root, data gjson.Result) types.Payload {
	return types.ShipPayload{
		Ships:   p.ships(p.asArray(data, "api_data")),
		Docks:   p.docks(p.optArray(root, "api_data_deck")),
		Replace: true,
	}
}

func decodeShip3(p *parser, _, data gjson.Result) types.Payload {
	data = p.asObject(data, "api_data")
	return types.ShipPayload{
		Ships: p.ships(p.array(data, "api_ship_data")),
		Docks: p.docks(p.optArray(data, "api_deck_data")),
		// a single-ship refresh names the ship in the request
		Replace: p.form.Get("api_shipid") == "",
	}
}

func decodeChange(p *parser, _, _ gjson.Result) types.Payload {
	return types.ChangePayload{
		DockID:    p.formInt("api_id"),
		ShipIndex: p.formInt("api_ship_idx"),
		ShipID:    p.formInt("api_ship_id"),
	}
}

func decodeCombined(p *parser, _, _ gjson.Result) types.Payload {
	return types.CombinedPayload{Type: p.formInt("api_combined_type")}
}

func decodeCharge(p *parser, _, data gjson.Result) types.Payload {
	data = p.asObject(data, "api_data")
	values := p.ints(data, "api_material")
	out := make(map[types.Resource]int, 4)
	for i, v := range values {
		r := types.Resource(i + 1)
		if !r.IsPrimary() {
			break
		}
		out[r] = v
	}
	return types.ResourcePayload{Values: out}
}

func decodeBasic(p *parser, _, data gjson.Result) types.Payload {
	return types.BasicPayload{Basic: p.basic(p.asObject(data, "api_data"))}
}

func decodeMaterial(p *parser, _, data gjson.Result) types.Payload {
	return types.ResourcePayload{Values: p.materials(p.asArray(data, "api_data"))}
}

func decodeNDock(p *parser, _, data gjson.Result) types.Payload {
	return types.RepairDockPayload{Docks: p.repairDocks(p.asArray(data, "api_data"))}
}

func decodeKDock(p *parser, _, data gjson.Result) types.Payload {
	arr := p.asArray(data, "api_data")
	out := make([]types.BuildDock, 0, len(arr))
	for _, r := range arr {
		out = append(out, types.BuildDock{
			ID:            p.int(r, "api_id"),
			State:         p.int(r, "api_state"),
			CreatedShipID: p.optInt(r, "api_created_ship_id"),
			CompleteTime:  p.millis(r, "api_complete_time"),
		})
	}
	return types.BuildDockPayload{Docks: out}
}

func decodeNyukyoStart(p *parser, _, _ gjson.Result) types.Payload {
	return types.RepairStartPayload{
		DockID:    p.formInt("api_ndock_id"),
		ShipID:    p.formInt("api_ship_id"),
		HighSpeed: p.optFormInt("api_highspeed") == 1,
	}
}

func decodeSpeedChange(p *parser, _, _ gjson.Result) types.Payload {
	return types.RepairSpeedChangePayload{DockID: p.formInt("api_ndock_id")}
}

func decodeQuestList(p *parser, _, data gjson.Result) types.Payload {
	data = p.asObject(data, "api_data")
	q := types.QuestListPayload{
		Page:      p.optInt(data, "api_disp_page"),
		PageCount: p.optInt(data, "api_page_count"),
		Count:     p.optInt(data, "api_count"),
	}
	for _, r := range p.optArray(data, "api_list") {
		if !r.IsObject() {
			continue
		}
		q.Quests = append(q.Quests, types.Quest{
			No:       p.int(r, "api_no"),
			Category: p.optInt(r, "api_category"),
			Type:     p.optInt(r, "api_type"),
			State:    p.int(r, "api_state"),
			Title:    p.optStr(r, "api_title"),
			Progress: p.optInt(r, "api_progress_flag"),
		})
	}
	return q
}

func decodeQuestAction(action types.QuestAction) decoderFunc {
	return func(p *parser, _, _ gjson.Result) types.Payload {
		return types.QuestActionPayload{QuestNo: p.formInt("api_quest_id"), Action: action}
	}
}

func decodeMissionResult(p *parser, _, data gjson.Result) types.Payload {
	data = p.asObject(data, "api_data")
	m := types.MissionResultPayload{
		Result:    p.int(data, "api_clear_result"),
		QuestName: p.optStr(data, "api_quest_name"),
	}
	if arr := p.optArray(data, "api_get_material"); arr != nil {
		m.Materials = intsOf(arr)
	}
	return m
}

func decodeStart2(p *parser, _, data gjson.Result) types.Payload {
	data = p.asObject(data, "api_data")
	arr := p.array(data, "api_mst_ship")
	names := make(map[int]string, len(arr))
	for _, r := range arr {
		names[p.int(r, "api_id")] = p.optStr(r, "api_name")
	}
	return types.MasterPayload{ShipNames: names}
}
