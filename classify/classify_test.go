package classify

import (
	"testing"

	"github.com/justapithecus/logbook/types"
)

func TestClassify_Catalogue(t *testing.T) {
	for _, e := range catalogue {
		t.Run(e.path, func(t *testing.T) {
			if got := Classify(e.path, nil); got != e.dt {
				t.Errorf("Classify(%q) = %v, want %v", e.path, got, e.dt)
			}
		})
	}
}

func TestClassify_EveryDataTypeHasAPath(t *testing.T) {
	for _, dt := range types.DataTypes() {
		if len(Paths(dt)) == 0 {
			t.Errorf("%v has no catalogued path", dt)
		}
	}
}

func TestClassify_Prefix(t *testing.T) {
	tests := []struct {
		path string
		want types.DataType
	}{
		{"/kcsapi/api_start2", types.Start2},
		{"/kcsapi/api_start2/getData", types.Start2},
		{"/kcsapi/api_port/port?api_verno=1", types.Port},
	}
	for _, tt := range tests {
		if got := Classify(tt.path, nil); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestClassify_Undefined(t *testing.T) {
	paths := []string{
		"",
		"/",
		"/kcs/sound/kc9998/1.mp3",
		"/kcsapi/",
		"/kcsapi/api_port/port2",
		"/kcsapi/api_req_sortie/battle/extra",
		"/kcsapi/api_get_member/unknown",
		"/other/kcsapi/api_port/port",
	}
	for _, p := range paths {
		if got := Classify(p, []byte("api_token=x")); got != types.Undefined {
			t.Errorf("Classify(%q) = %v, want UNDEFINED", p, got)
		}
	}
}

func TestClassify_ExactBeatsPrefix(t *testing.T) {
	// battle and battle_water share a textual prefix but are distinct entries.
	if got := Classify("/kcsapi/api_req_combined_battle/battle_water", nil); got != types.CombinedBattleWater {
		t.Errorf("got %v, want COMBINED_BATTLE_WATER", got)
	}
	if got := Classify("/kcsapi/api_req_combined_battle/battle", nil); got != types.CombinedBattle {
		t.Errorf("got %v, want COMBINED_BATTLE", got)
	}
}

func TestClassify_UniqueMatch(t *testing.T) {
	seen := make(map[string]types.DataType)
	for _, e := range catalogue {
		if prev, ok := seen[e.path]; ok {
			t.Errorf("path %q catalogued twice (%v, %v)", e.path, prev, e.dt)
		}
		seen[e.path] = e.dt
	}
}

func TestInScope(t *testing.T) {
	if !InScope("/kcsapi/api_port/port") {
		t.Error("api path should be in scope")
	}
	if InScope("/kcs/resources/image.png") {
		t.Error("asset path should not be in scope")
	}
}
