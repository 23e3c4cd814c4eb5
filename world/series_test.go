package world

import (
	"testing"
	"time"

	"github.com/justapithecus/logbook/types"
)

func TestInsertSample_DoesNotAlias(t *testing.T) {
	base := []types.ResourceSample{
		{Resource: types.Fuel, Time: t0, Value: 1},
		{Resource: types.Fuel, Time: t0.Add(2 * time.Minute), Value: 3},
	}
	out := insertSample(base, types.ResourceSample{Resource: types.Fuel, Time: t0.Add(time.Minute), Value: 2}, 0)
	if len(out) != 3 || out[1].Value != 2 {
		t.Fatalf("unexpected series %+v", out)
	}
	if base[1].Value != 3 {
		t.Error("insert modified the input series")
	}

	replaced := insertSample(out, types.ResourceSample{Resource: types.Fuel, Time: t0, Value: 9}, 0)
	if replaced[0].Value != 9 || out[0].Value != 1 {
		t.Error("replace should copy, not write through")
	}
}
