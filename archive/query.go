package archive

import (
	"context"
	"fmt"

	"github.com/justapithecus/lode/lode"
)

// Filter selects archived records. Empty fields match everything.
type Filter struct {
	Day       string
	DataType  string
	SessionID string
}

func (f Filter) matchesSnapshot(snap *lode.DatasetSnapshot) bool {
	if f.Day == "" && f.DataType == "" {
		return true
	}
	for _, file := range snap.Manifest.Files {
		if f.Day != "" && !matchesPartition(file.Path, "day", f.Day) {
			continue
		}
		if f.DataType != "" && !matchesPartition(file.Path, "data_type", f.DataType) {
			continue
		}
		return true
	}
	return false
}

func (f Filter) matchesRecord(m map[string]any) bool {
	if m["record_kind"] != RecordKindExchange {
		return false
	}
	if f.Day != "" && str(m["day"]) != f.Day {
		return false
	}
	if f.DataType != "" && str(m["data_type"]) != f.DataType {
		return false
	}
	if f.SessionID != "" && str(m["session_id"]) != f.SessionID {
		return false
	}
	return true
}

// Query returns archived records matching the filter, oldest snapshot first.
// Manifest paths are a coarse pre-filter; record fields are authoritative.
// A record that appears in several snapshots is returned once.
func Query(ctx context.Context, ds lode.Dataset, f Filter) ([]Record, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, wrapError("read", string(ds.ID())+"/snapshots", err)
	}

	var out []Record
	seen := make(map[string]struct{})
	for _, snap := range snapshots {
		if !f.matchesSnapshot(snap) {
			continue
		}
		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, wrapError("read", fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID), err)
		}
		for _, item := range data {
			m, ok := item.(map[string]any)
			if !ok || !f.matchesRecord(m) {
				continue
			}
			id := str(m["id"])
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, recordFromMap(m))
		}
	}
	return out, nil
}

func recordFromMap(m map[string]any) Record {
	return Record{
		RecordKind:       str(m["record_kind"]),
		ContractVersion:  str(m["contract_version"]),
		CatalogueVersion: str(m["catalogue_version"]),
		SessionID:        str(m["session_id"]),
		ID:               str(m["id"]),
		URL:              str(m["url"]),
		Path:             str(m["path"]),
		RequestBody:      str(m["request_body"]),
		ResponseBody:     str(m["response_body"]),
		CapturedAt:       str(m["captured_at"]),
		Day:              str(m["day"]),
		DataType:         str(m["data_type"]),
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
