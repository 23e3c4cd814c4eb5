package tui

import (
	"time"

	"github.com/justapithecus/logbook/metrics"
	"github.com/justapithecus/logbook/types"
	"github.com/justapithecus/logbook/world"
)

// recentLines is the number of recent events shown.
const recentLines = 8

// Status is the payload shared by the monitor view and the plain renderers.
type Status struct {
	SessionID    string         `json:"session_id" yaml:"session_id"`
	Listen       string         `json:"listen,omitempty" yaml:"listen,omitempty"`
	APIHosts     []string       `json:"api_hosts,omitempty" yaml:"api_hosts,omitempty"`
	Uptime       string         `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	WorldVersion uint64         `json:"world_version" yaml:"world_version"`
	Admiral      string         `json:"admiral,omitempty" yaml:"admiral,omitempty"`
	Level        int            `json:"level,omitempty" yaml:"level,omitempty"`
	Counters     Counters       `json:"counters" yaml:"counters"`
	Docks        []DockLine     `json:"docks" yaml:"docks"`
	Resources    []ResourceLine `json:"resources" yaml:"resources"`
	Battle       string         `json:"battle,omitempty" yaml:"battle,omitempty"`
	Recent       []string       `json:"recent" yaml:"recent"`
}

// Counters is the subset of metrics shown to the user.
type Counters struct {
	Captured        int64 `json:"captured" yaml:"captured"`
	Aborted         int64 `json:"aborted" yaml:"aborted"`
	Dropped         int64 `json:"dropped" yaml:"dropped"`
	Classified      int64 `json:"classified" yaml:"classified"`
	Misses          int64 `json:"misses" yaml:"misses"`
	DecodeErrors    int64 `json:"decode_errors" yaml:"decode_errors"`
	Folds           int64 `json:"folds" yaml:"folds"`
	FoldErrors      int64 `json:"fold_errors" yaml:"fold_errors"`
	Inconsistencies int64 `json:"inconsistencies" yaml:"inconsistencies"`
	UpstreamErrors  int64 `json:"upstream_errors" yaml:"upstream_errors"`
	ExportFailures  int64 `json:"export_failures" yaml:"export_failures"`
}

// DockLine summarizes one fleet.
type DockLine struct {
	ID      int    `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Ships   int    `json:"ships" yaml:"ships"`
	Sortie  bool   `json:"sortie" yaml:"sortie"`
	Mission int    `json:"mission,omitempty" yaml:"mission,omitempty"`
}

// ResourceLine is the latest value of one resource.
type ResourceLine struct {
	Resource string    `json:"resource" yaml:"resource"`
	Value    int       `json:"value" yaml:"value"`
	Time     time.Time `json:"time" yaml:"time"`
}

// Source produces the current status. It is polled by the monitor.
type Source func() Status

// NewStatus builds a status from a world snapshot and a metrics snapshot.
func NewStatus(snap *world.Snapshot, m metrics.Snapshot) Status {
	st := Status{
		SessionID: m.SessionID,
		Listen:    m.ListenAddr,
		Counters: Counters{
			Captured:        m.ExchangesCaptured,
			Aborted:         m.ExchangesAborted,
			Dropped:         m.ExchangesDropped,
			Classified:      m.Classified,
			Misses:          m.Misses,
			DecodeErrors:    m.DecodeErrors,
			Folds:           m.Folds,
			FoldErrors:      m.FoldErrors,
			Inconsistencies: m.Inconsistencies,
			UpstreamErrors:  m.UpstreamErrors,
			ExportFailures:  m.ExportFailure,
		},
		Docks:     []DockLine{},
		Resources: []ResourceLine{},
		Recent:    []string{},
	}
	if snap == nil {
		return st
	}

	st.WorldVersion = snap.Version()
	basic := snap.Basic()
	st.Admiral = basic.Nickname
	st.Level = basic.Level

	for _, d := range snap.Docks() {
		st.Docks = append(st.Docks, DockLine{
			ID:      d.ID,
			Name:    d.Name,
			Ships:   len(d.ShipIDs),
			Sortie:  snap.IsSortie(d.ID),
			Mission: d.MissionID,
		})
	}
	for _, r := range types.Resources() {
		if s, ok := snap.Resource(r); ok {
			st.Resources = append(st.Resources, ResourceLine{Resource: r.String(), Value: s.Value, Time: s.Time})
		}
	}
	if ev, ok := snap.Battle(); ok {
		st.Battle = battleLine(ev)
	}

	recent := snap.Recent()
	if len(recent) > recentLines {
		recent = recent[len(recent)-recentLines:]
	}
	for i := len(recent) - 1; i >= 0; i-- {
		d := recent[i]
		st.Recent = append(st.Recent, d.CapturedAt.Format("15:04:05")+" "+d.Type.String())
	}
	return st
}

func battleLine(ev world.BattleEvent) string {
	line := "dock " + itoa(ev.DockID)
	if ev.Area > 0 {
		line += " at " + itoa(ev.Area) + "-" + itoa(ev.Map) + " cell " + itoa(ev.Cell)
	}
	if ev.Boss {
		line += " (boss)"
	}
	if last, ok := ev.Last(); ok {
		line += ": " + last.Kind.String()
	}
	if ev.Result != nil {
		line += " rank " + ev.Result.WinRank
	}
	return line
}
