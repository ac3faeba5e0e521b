package history

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"casewise/internal/casefile"
	"casewise/internal/payload"
)

// Snapshot is the canonical evidence state a computation saw. It carries
// shape, not content: submission field kinds rather than raw values, and
// attachment metadata rather than bytes. No timestamps appear anywhere, so
// two runs over unchanged evidence hash identically no matter when they
// ran.
type Snapshot struct {
	CaseID       string           `json:"case_id"`
	DecisionType string           `json:"decision_type"`
	Submission   *SubmissionShape `json:"submission,omitempty"`
	Attachments  []AttachmentMeta `json:"attachments,omitempty"`
	EventCounts  map[string]int   `json:"event_counts,omitempty"`
}

// SubmissionShape records which fields exist and their value kinds.
type SubmissionShape struct {
	FieldKinds map[string]string `json:"field_kinds"`
}

// AttachmentMeta is the hash-relevant subset of an attachment.
type AttachmentMeta struct {
	Class     string `json:"class"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Verified  bool   `json:"verified"`
}

// BuildSnapshot canonicalizes a case's evidence state. Attachments are
// sorted by class then filename so insertion order cannot leak into the
// hash.
func BuildSnapshot(c *casefile.Case, sub *casefile.Submission, atts []casefile.Attachment, events []casefile.Event) Snapshot {
	snap := Snapshot{CaseID: c.ID, DecisionType: c.DecisionType}

	if sub != nil {
		shape := &SubmissionShape{FieldKinds: map[string]string{}}
		for _, key := range sub.Fields.Keys() {
			shape.FieldKinds[key] = kindName(sub.Fields.Get(key).Kind())
		}
		snap.Submission = shape
	}

	for _, a := range atts {
		snap.Attachments = append(snap.Attachments, AttachmentMeta{
			Class:     a.Class,
			Filename:  a.Filename,
			SizeBytes: a.SizeBytes,
			Verified:  a.Verified,
		})
	}
	sort.SliceStable(snap.Attachments, func(i, j int) bool {
		if snap.Attachments[i].Class != snap.Attachments[j].Class {
			return snap.Attachments[i].Class < snap.Attachments[j].Class
		}
		return snap.Attachments[i].Filename < snap.Attachments[j].Filename
	})

	if len(events) > 0 {
		snap.EventCounts = map[string]int{}
		for _, e := range events {
			snap.EventCounts[string(e.EventType)]++
		}
	}
	return snap
}

// Hash returns the hex SHA-256 of the snapshot's canonical JSON form.
// encoding/json sorts map keys, so equal snapshots always serialize
// identically.
func (s Snapshot) Hash() string {
	b, err := json.Marshal(s)
	if err != nil {
		// Snapshot holds only marshalable types.
		panic(err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Value returns the snapshot as a payload value for persistence.
func (s Snapshot) Value() payload.Value {
	b, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	return payload.FromJSON(b)
}

func kindName(k payload.Kind) string {
	switch k {
	case payload.KindString:
		return "string"
	case payload.KindNumber:
		return "number"
	case payload.KindBool:
		return "bool"
	case payload.KindList:
		return "list"
	case payload.KindMap:
		return "map"
	default:
		return "null"
	}
}
