// Package signature implements the controller: a single-actor,
// message-driven service owning the three signature stores (target, step,
// workflow) and the live progress display, reachable only through typed
// Go channels — the in-process equivalent of the four logical channels
// (sig_push, sig_req, ctl_push, ctl_req) described in the external
// interface. The concrete signature record format is intentionally
// minimal: the on-disk database format is out of scope, so records here
// carry just enough to exercise the store contract end to end.
package signature

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// TargetRecord is what gets recorded about a produced file or named
// target: a content hash and the size observed when it was produced.
type TargetRecord struct {
	Hash string
	Size int64
}

// StepRecord is what gets recorded about a completed step: the hash of
// its resolved input/output/context, used to decide whether a later run
// can skip re-executing it.
type StepRecord struct {
	Hash string
}

// WorkflowRecord is one append-only entry in a workflow's signature log.
type WorkflowRecord struct {
	ID   string
	Data map[string]string
}

// targetStore holds the most recent signature for each target. It is
// bounded by an LRU cache — unlike the original's unbounded dict, a
// long-running engine processing many targets should not grow without
// limit.
type targetStore struct {
	cache *lru.Cache[string, TargetRecord]
}

func newTargetStore(capacity int) *targetStore {
	c, err := lru.New[string, TargetRecord](capacity)
	if err != nil {
		// Only returns an error for a non-positive capacity, which can
		// come from WithTargetCacheSize; such a capacity panics here.
		panic(err)
	}
	return &targetStore{cache: c}
}

func (s *targetStore) Set(target string, rec TargetRecord) { s.cache.Add(target, rec) }

func (s *targetStore) Get(target string) (TargetRecord, bool) { return s.cache.Get(target) }

// stepStore holds the most recent signature for each step invocation.
type stepStore struct {
	records map[string]StepRecord
}

func newStepStore() *stepStore { return &stepStore{records: map[string]StepRecord{}} }

func (s *stepStore) Set(step string, rec StepRecord) { s.records[step] = rec }

func (s *stepStore) Get(step string) (StepRecord, bool) {
	rec, ok := s.records[step]
	return rec, ok
}

// workflowStore holds the append-only log of records written during a
// workflow run, plus the set of targets still awaiting their signature
// (placeholders) for each workflow id.
type workflowStore struct {
	records      map[string][]WorkflowRecord
	placeholders map[string]map[string]bool
}

func newWorkflowStore() *workflowStore {
	return &workflowStore{
		records:      map[string][]WorkflowRecord{},
		placeholders: map[string]map[string]bool{},
	}
}

func (s *workflowStore) Write(id string, rec WorkflowRecord) {
	s.records[id] = append(s.records[id], rec)
	delete(s.placeholders[id], rec.ID)
}

func (s *workflowStore) MarkPlaceholder(id, target string) {
	if s.placeholders[id] == nil {
		s.placeholders[id] = map[string]bool{}
	}
	s.placeholders[id][target] = true
}

func (s *workflowStore) Clear() {
	s.records = map[string][]WorkflowRecord{}
	s.placeholders = map[string]map[string]bool{}
}

func (s *workflowStore) Placeholders(id string) []string {
	out := make([]string, 0, len(s.placeholders[id]))
	for target := range s.placeholders[id] {
		out = append(out, target)
	}
	return out
}

func (s *workflowStore) Records(id string) []WorkflowRecord {
	return s.records[id]
}
