// Package classify maps game API request paths onto the DataType catalogue.
package classify

import (
	"sort"
	"strings"

	"github.com/justapithecus/logbook/types"
)

// APIPrefix is the path prefix shared by every catalogued endpoint.
const APIPrefix = "/kcsapi/"

// entry is one row of the path catalogue.
type entry struct {
	path   string
	dt     types.DataType
	prefix bool
}

// catalogue is the fixed path table for types.CatalogueVersion.
// Prefix entries match any path that begins with path.
var catalogue = []entry{
	{path: "/kcsapi/api_req_sortie/battle", dt: types.Battle},
	{path: "/kcsapi/api_req_battle_midnight/battle", dt: types.BattleMidnight},
	{path: "/kcsapi/api_req_battle_midnight/sp_midnight", dt: types.BattleSPMidnight},
	{path: "/kcsapi/api_req_sortie/night_to_day", dt: types.BattleNightToDay},
	{path: "/kcsapi/api_req_sortie/airbattle", dt: types.AirBattle},
	{path: "/kcsapi/api_req_practice/battle", dt: types.PracticeBattle},
	{path: "/kcsapi/api_req_practice/midnight_battle", dt: types.PracticeBattleMidnight},
	{path: "/kcsapi/api_req_combined_battle/battle", dt: types.CombinedBattle},
	{path: "/kcsapi/api_req_combined_battle/airbattle", dt: types.CombinedAirBattle},
	{path: "/kcsapi/api_req_combined_battle/midnight_battle", dt: types.CombinedBattleMidnight},
	{path: "/kcsapi/api_req_combined_battle/sp_midnight", dt: types.CombinedBattleSPMidnight},
	{path: "/kcsapi/api_req_combined_battle/battle_water", dt: types.CombinedBattleWater},

	{path: "/kcsapi/api_req_sortie/battleresult", dt: types.BattleResult},
	{path: "/kcsapi/api_req_combined_battle/battleresult", dt: types.CombinedBattleResult},
	{path: "/kcsapi/api_req_practice/battle_result", dt: types.PracticeBattleResult},

	{path: "/kcsapi/api_req_map/start", dt: types.MapStart},
	{path: "/kcsapi/api_req_map/next", dt: types.MapNext},

	{path: "/kcsapi/api_port/port", dt: types.Port},
	{path: "/kcsapi/api_get_member/deck", dt: types.Deck},
	{path: "/kcsapi/api_get_member/deck_port", dt: types.Deck},
	{path: "/kcsapi/api_get_member/ship2", dt: types.Ship2},
	{path: "/kcsapi/api_get_member/ship3", dt: types.Ship3},
	{path: "/kcsapi/api_req_hensei/change", dt: types.Change},
	{path: "/kcsapi/api_req_hensei/combined", dt: types.Combined},
	{path: "/kcsapi/api_req_hokyu/charge", dt: types.Charge},
	{path: "/kcsapi/api_get_member/basic", dt: types.Basic},
	{path: "/kcsapi/api_get_member/material", dt: types.Material},

	{path: "/kcsapi/api_get_member/ndock", dt: types.NDock},
	{path: "/kcsapi/api_get_member/kdock", dt: types.KDock},
	{path: "/kcsapi/api_req_nyukyo/start", dt: types.NyukyoStart},
	{path: "/kcsapi/api_req_nyukyo/speedchange", dt: types.NyukyoSpeedChange},

	{path: "/kcsapi/api_get_member/questlist", dt: types.QuestList},
	{path: "/kcsapi/api_req_quest/start", dt: types.QuestStart},
	{path: "/kcsapi/api_req_quest/stop", dt: types.QuestStop},
	{path: "/kcsapi/api_req_quest/clearitem", dt: types.QuestClear},
	{path: "/kcsapi/api_req_mission/result", dt: types.MissionResult},

	{path: "/kcsapi/api_start2", dt: types.Start2, prefix: true},
}

var (
	exact    map[string]types.DataType
	prefixes []entry // longest first
)

func init() {
	exact = make(map[string]types.DataType, len(catalogue))
	for _, e := range catalogue {
		if e.prefix {
			prefixes = append(prefixes, e)
			continue
		}
		exact[e.path] = e.dt
	}
	sort.SliceStable(prefixes, func(i, j int) bool {
		return len(prefixes[i].path) > len(prefixes[j].path)
	})
}

// Classify returns the DataType for a request path, or types.Undefined when
// the path is not catalogued. The request body is accepted for endpoints
// whose kind depends on form fields; no current entry needs it.
//
// Classify is pure and safe for concurrent use.
func Classify(path string, body []byte) types.DataType {
	_ = body

	if !strings.HasPrefix(path, APIPrefix) {
		return types.Undefined
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if dt, ok := exact[path]; ok {
		return dt
	}
	for _, e := range prefixes {
		if strings.HasPrefix(path, e.path) {
			return e.dt
		}
	}
	return types.Undefined
}

// Paths returns the catalogued paths for dt.
func Paths(dt types.DataType) []string {
	var out []string
	for _, e := range catalogue {
		if e.dt == dt {
			out = append(out, e.path)
		}
	}
	return out
}

// InScope reports whether path is under the API prefix.
func InScope(path string) bool {
	return strings.HasPrefix(path, APIPrefix)
}
