package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// StageRecord is the mutable status/progress pair tracked per stage.
type StageRecord struct {
	Status      StageStatus `json:"status"`
	Progress    int         `json:"progress"`
	LastUpdated *Timestamp  `json:"last_updated,omitempty"`
	Adaptive    bool        `json:"adaptive,omitempty"`
}

// NewStageRecord returns a record with progress clamped to [0,100].
func NewStageRecord(status StageStatus, progress int, now time.Time) StageRecord {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	ts := NewTimestamp(now)
	return StageRecord{Status: status, Progress: progress, LastUpdated: &ts}
}

// StageRecordSet is the persisted stage progress store. Records keep the key
// order they were read or inserted in; smart mode derives its stage list
// from that order.
type StageRecordSet struct {
	order []string
	byID  map[string]StageRecord

	// Smart-mode metadata.
	AdaptiveMode    bool
	RecommendedFlow Mode
}

// NewStageRecordSet creates pending records for stages in order.
func NewStageRecordSet(stages []string) *StageRecordSet {
	set := &StageRecordSet{byID: make(map[string]StageRecord, len(stages))}
	for _, id := range stages {
		set.Set(id, StageRecord{Status: StagePending, Progress: 0})
	}
	return set
}

// IDs returns the stage identifiers in store order.
func (s *StageRecordSet) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *StageRecordSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

func (s *StageRecordSet) Get(id string) (StageRecord, bool) {
	if s == nil {
		return StageRecord{}, false
	}
	rec, ok := s.byID[id]
	return rec, ok
}

// Set overwrites the record for id, appending id to the order when new.
// The adaptive flag of an existing record is preserved.
func (s *StageRecordSet) Set(id string, rec StageRecord) {
	if s.byID == nil {
		s.byID = make(map[string]StageRecord)
	}
	if prev, ok := s.byID[id]; ok {
		rec.Adaptive = rec.Adaptive || prev.Adaptive
	} else {
		s.order = append(s.order, id)
	}
	s.byID[id] = rec
}

// Clone returns a deep copy of the set.
func (s *StageRecordSet) Clone() *StageRecordSet {
	if s == nil {
		return nil
	}
	out := &StageRecordSet{
		order:           s.IDs(),
		byID:            make(map[string]StageRecord, len(s.byID)),
		AdaptiveMode:    s.AdaptiveMode,
		RecommendedFlow: s.RecommendedFlow,
	}
	for id, rec := range s.byID {
		if rec.LastUpdated != nil {
			ts := *rec.LastUpdated
			rec.LastUpdated = &ts
		}
		out.byID[id] = rec
	}
	return out
}

type stageRecordSetJSON struct {
	Stages          orderedRecords `json:"stages"`
	AdaptiveMode    *bool          `json:"adaptive_mode,omitempty"`
	RecommendedFlow Mode           `json:"recommended_flow,omitempty"`
}

// orderedRecords is the "stages" object, encoded and decoded key by key so
// that insertion order survives a round trip.
type orderedRecords struct {
	order []string
	byID  map[string]StageRecord
}

func (s *StageRecordSet) MarshalJSON() ([]byte, error) {
	out := stageRecordSetJSON{
		Stages:          orderedRecords{order: s.order, byID: s.byID},
		RecommendedFlow: s.RecommendedFlow,
	}
	if s.AdaptiveMode {
		adaptive := true
		out.AdaptiveMode = &adaptive
	}
	return json.Marshal(out)
}

func (s *StageRecordSet) UnmarshalJSON(data []byte) error {
	var in stageRecordSetJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.order = in.Stages.order
	s.byID = in.Stages.byID
	if s.byID == nil {
		s.byID = make(map[string]StageRecord)
	}
	s.AdaptiveMode = in.AdaptiveMode != nil && *in.AdaptiveMode
	s.RecommendedFlow = in.RecommendedFlow
	return nil
}

func (o orderedRecords) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range o.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(o.byID[id])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *orderedRecords) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("stages: expected object, got %v", tok)
	}
	o.byID = make(map[string]StageRecord)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("stages: expected string key, got %v", keyTok)
		}
		var rec StageRecord
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("stages.%s: %w", key, err)
		}
		if _, dup := o.byID[key]; !dup {
			o.order = append(o.order, key)
		}
		o.byID[key] = rec
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
