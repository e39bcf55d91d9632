package hashplan

import (
	"encoding/json"
	"sort"

	"github.com/cespare/xxhash/v2"

	"taskplan/internal/core"
)

// Plan maps a task id to its sorted, deduplicated hash instructions.
type Plan map[string][]core.HashInstruction

// TaskIDs returns the planned task ids, sorted.
func (p Plan) TaskIDs() []string {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Strings returns the stable string form of every instruction.
func (p Plan) Strings() map[string][]string {
	out := make(map[string][]string, len(p))
	for id, instructions := range p {
		s := make([]string, len(instructions))
		for i, h := range instructions {
			s[i] = h.String()
		}
		out[id] = s
	}
	return out
}

// CanonicalJSON encodes the plan as a JSON object keyed by task id in
// sorted order, each value the list of instruction strings.
func (p Plan) CanonicalJSON() ([]byte, error) {
	return json.Marshal(p.Strings())
}

// Digest returns a 64 bit digest of the instruction strings of taskID.
// It identifies a plan for comparisons; it is not a cache key.
func (p Plan) Digest(taskID string) (uint64, bool) {
	instructions, ok := p[taskID]
	if !ok {
		return 0, false
	}
	d := xxhash.New()
	for _, h := range instructions {
		_, _ = d.WriteString(h.String())
		_, _ = d.Write([]byte{'\n'})
	}
	return d.Sum64(), true
}
