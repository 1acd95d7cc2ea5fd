package session

import "github.com/griotlabs/griot/internal/tutor"

// TurnStore maintains the ordered sequence of turns for one conversation.
//
// Turns are keyed by TurnNumber: appending a turn whose number was already
// seen replaces the earlier entry at its original position, so an idempotent
// resubmission never grows the transcript. For normal strictly-increasing
// arrival, store order equals turn-number order.
//
// TurnStore is not safe for concurrent use; the session controller owns it
// and serialises access.
type TurnStore struct {
	turns []tutor.TurnResult
	index map[int]int // turn number -> position in turns
}

// NewTurnStore returns an empty store.
func NewTurnStore() *TurnStore {
	return &TurnStore{index: make(map[int]int)}
}

// AppendOrReplace inserts the turn, replacing in place any existing turn with
// the same TurnNumber.
func (s *TurnStore) AppendOrReplace(t tutor.TurnResult) {
	if pos, ok := s.index[t.TurnNumber]; ok {
		s.turns[pos] = t
		return
	}
	s.index[t.TurnNumber] = len(s.turns)
	s.turns = append(s.turns, t)
}

// All returns a snapshot of the turns in store order.
func (s *TurnStore) All() []tutor.TurnResult {
	out := make([]tutor.TurnResult, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of stored turns.
func (s *TurnStore) Len() int {
	return len(s.turns)
}

// Reset discards all turns.
func (s *TurnStore) Reset() {
	s.turns = nil
	s.index = make(map[int]int)
}
