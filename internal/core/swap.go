package core

import "p3if/pkg/framework"

// HotSwapDimension rewrites every relationship slot referencing oldID to
// reference newID instead, leaving strength, confidence, and identity
// untouched. Both patterns must be registered and share a dimension. The old
// pattern stays in the store; removing it is a separate, caller-driven
// decision. Returns the number of relationships modified.
func (s *Store) HotSwapDimension(oldID, newID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldP, ok := s.patterns[oldID]
	if !ok {
		return 0, framework.NotFoundError{Kind: framework.KindPattern, ID: oldID}
	}
	newP, ok := s.patterns[newID]
	if !ok {
		return 0, framework.NotFoundError{Kind: framework.KindPattern, ID: newID}
	}
	if oldP.Type != newP.Type {
		return 0, framework.TypeMismatchError{OldID: oldID, OldType: oldP.Type, NewID: newID, NewType: newP.Type}
	}
	if oldID == newID {
		return 0, nil
	}

	candidates := make([]string, 0, len(s.relsByPattern[oldID]))
	for relID := range s.relsByPattern[oldID] {
		candidates = append(candidates, relID)
	}

	now := s.nowFn()
	count := 0
	for _, relID := range candidates {
		rel, ok := s.relationships[relID]
		if !ok {
			continue
		}
		slot := rel.Slot(oldP.Type)
		if slot == nil || *slot != oldID {
			// Indexed under a different slot; imported data may disagree
			// with the dimension, leave it to Validate.
			continue
		}
		id := newID
		rel.SetSlot(oldP.Type, &id)
		rel.UpdatedAt = now
		s.relationships[relID] = rel

		s.deindexRelationship(oldID, relID)
		s.indexRelationship(newID, relID)
		count++
	}

	if count > 0 {
		s.cache.invalidate()
	}
	return count, nil
}
