package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// BrowserConfig is the subset of the recorded browser profile the
// replay engine applies to a fresh session.
type BrowserConfig struct {
	ViewportWidth    int               `json:"viewport_width"`
	ViewportHeight   int               `json:"viewport_height"`
	UserAgent        string            `json:"user_agent,omitempty"`
	UserDataDir      string            `json:"user_data_dir,omitempty"`
	ExtraHTTPHeaders map[string]string `json:"extra_http_headers,omitempty"`
	TimeoutSec       float64           `json:"timeout_sec,omitempty"`
}

// DefaultBrowserConfig matches the profile traversals are recorded with.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{ViewportWidth: 1920, ViewportHeight: 1080, TimeoutSec: 30}
}

// actionKeyPrefix is the stable key naming for the ordered actions
// collection: action_0, action_1, ...
const actionKeyPrefix = "action_"

// ActionMap is the on-disk actions collection. Keys are action_<n>;
// marshaling emits them in numeric order so recorded files stay
// diffable regardless of how many actions there are.
type ActionMap map[string]*Action

func (m ActionMap) MarshalJSON() ([]byte, error) {
	keys, err := m.orderedKeys()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m ActionMap) orderedKeys() ([]string, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		if _, err := actionIndex(k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := actionIndex(keys[i])
		b, _ := actionIndex(keys[j])
		return a < b
	})
	return keys, nil
}

func actionIndex(key string) (int, error) {
	n, ok := strings.CutPrefix(key, actionKeyPrefix)
	if !ok {
		return 0, fmt.Errorf("action key %q does not match %s<n>", key, actionKeyPrefix)
	}
	i, err := strconv.Atoi(n)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("action key %q does not match %s<n>", key, actionKeyPrefix)
	}
	return i, nil
}

// ActionKey builds the stable key for position n.
func ActionKey(n int) string {
	return actionKeyPrefix + strconv.Itoa(n)
}

// Traversal is a recorded browser interaction session: what the task
// was, how the browser was configured, and the full ordered history of
// decisions and actions. Loaded read-only at replay time.
type Traversal struct {
	Task          string              `json:"task"`
	BrowserConfig BrowserConfig       `json:"browser_config"`
	Secrets       map[string]string   `json:"secrets,omitempty"`
	Decisions     map[string]Decision `json:"decisions"`
	Actions       ActionMap           `json:"actions"`
}

// OrderedActions returns the actions in replay order (ascending
// action_<n> key). Action order defines the total replay order.
func (t *Traversal) OrderedActions() []Action {
	keys, err := t.Actions.orderedKeys()
	if err != nil {
		return nil
	}
	out := make([]Action, 0, len(keys))
	for _, k := range keys {
		out = append(out, *t.Actions[k])
	}
	return out
}

// OrderedDecisions returns the decisions in first-reference order
// across the ordered actions. A decision nothing references does not
// appear; Validate rejects such records.
func (t *Traversal) OrderedDecisions() []Decision {
	seen := make(map[string]bool, len(t.Decisions))
	var out []Decision
	for _, a := range t.OrderedActions() {
		if seen[a.DecisionID] {
			continue
		}
		d, ok := t.Decisions[a.DecisionID]
		if !ok {
			continue
		}
		seen[a.DecisionID] = true
		out = append(out, d)
	}
	return out
}

// Validate checks the structural invariants of a loaded record: the
// actions collection exists and is non-empty, every key follows
// action_<n>, every action references a known decision, every decision
// owns at least one action, and payload tags are coherent.
func (t *Traversal) Validate() error {
	if t.Actions == nil {
		return fmt.Errorf("traversal record must contain an 'actions' collection")
	}
	if len(t.Actions) == 0 {
		return fmt.Errorf("traversal record contains no actions")
	}
	referenced := make(map[string]bool, len(t.Decisions))
	for key, a := range t.Actions {
		if _, err := actionIndex(key); err != nil {
			return err
		}
		if a == nil {
			return fmt.Errorf("action %q is null", key)
		}
		if a.DecisionID == "" {
			return fmt.Errorf("action %q has no decision id", key)
		}
		if _, ok := t.Decisions[a.DecisionID]; !ok {
			return fmt.Errorf("action %q references unknown decision %q", key, a.DecisionID)
		}
		if err := a.Payload.Validate(); err != nil {
			return fmt.Errorf("action %q: %w", key, err)
		}
		referenced[a.DecisionID] = true
	}
	for id := range t.Decisions {
		if !referenced[id] {
			return fmt.Errorf("decision %q owns no actions", id)
		}
	}
	return nil
}
