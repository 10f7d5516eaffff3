package entitlement

import (
	"github.com/google/uuid"
	"github.com/kinship-media/kinship/internal/media"
)

// Sets is the partition of a candidate collection for one profile.
// VisibleOnly holds entries that discovery surfaces may list but whose
// streams must stay hidden; browse surfaces that equate visibility
// with playability should consume Playable alone.
type Sets struct {
	Playable    []*media.Candidate
	VisibleOnly []*media.Candidate
	Denied      []*media.Candidate
}

// Partition classifies every candidate against the snapshot. The
// snapshots sets and override map were built once at load time, so
// the cost here is linear in the candidate count regardless of how
// many libraries or overrides the profile can reach.
func (snap *Snapshot) Partition(candidates []*media.Candidate) Sets {
	sets := Sets{}
	for _, candidate := range candidates {
		switch snap.Classify(candidate) {
		case Playable:
			sets.Playable = append(sets.Playable, candidate)
		case Visible:
			sets.VisibleOnly = append(sets.VisibleOnly, candidate)
		case Denied:
			sets.Denied = append(sets.Denied, candidate)
		}
	}

	return sets
}

// PlayableIDs reduces a candidate collection to the set of media IDs
// the profile may stream. This is the shape the playlist reconciler
// consumes.
func (snap *Snapshot) PlayableIDs(candidates []*media.Candidate) map[uuid.UUID]struct{} {
	ids := make(map[uuid.UUID]struct{})
	for _, candidate := range candidates {
		if snap.IsPlayable(candidate) {
			ids[candidate.MediaID] = struct{}{}
		}
	}

	return ids
}

// SearchableCandidates filters a candidate collection down to those
// the discovery variant would surface, preserving input order.
func (snap *Snapshot) SearchableCandidates(candidates []*media.Candidate) []*media.Candidate {
	out := make([]*media.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if snap.IsSearchable(candidate) {
			out = append(out, candidate)
		}
	}

	return out
}
