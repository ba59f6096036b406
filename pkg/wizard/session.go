package wizard

import "github.com/google/uuid"

// Asset is one media file attached to a session: the local file name it was
// staged from and, once uploaded, its remote identifier.
type Asset struct {
	LocalName string
	RemoteID  string
}

// Session is the mutable state of one in-progress submission. It is owned
// exclusively by the active user session, passed explicitly to every
// operation, and never shared; there is no ambient session storage.
type Session struct {
	ID      string
	Current int

	// answers holds merged values per step number. Step numbers are 1-based
	// and iterate in numeric order, so the structure behaves as an ordered
	// mapping from step to field values.
	answers map[int]map[string]string

	// assets is append-only within a session; Reset is the only operation
	// that clears it.
	assets []Asset
}

// NewSession returns a fresh session positioned at step 1.
func NewSession() *Session {
	return &Session{
		ID:      uuid.NewString(),
		Current: 1,
		answers: make(map[int]map[string]string),
	}
}

// Answers returns a copy of the merged answers for a step. Mutating the copy
// does not affect the session.
func (s *Session) Answers(step int) map[string]string {
	if s == nil {
		return nil
	}
	stored := s.answers[step]
	if len(stored) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(stored))
	for k, v := range stored {
		out[k] = v
	}
	return out
}

// Answer returns a single stored value and whether it is present.
func (s *Session) Answer(step int, key string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.answers[step][key]
	return v, ok
}

// StageAsset records a local file to be uploaded at submit time.
func (s *Session) StageAsset(localName string) {
	s.assets = append(s.assets, Asset{LocalName: localName})
}

// Assets returns the session's assets in staging order.
func (s *Session) Assets() []Asset {
	return append([]Asset(nil), s.assets...)
}

// MarkUploaded records the remote identifier for the asset at index i.
func (s *Session) MarkUploaded(i int, remoteID string) {
	if i >= 0 && i < len(s.assets) {
		s.assets[i].RemoteID = remoteID
	}
}

func (s *Session) merge(step int, proposed map[string]string) {
	if s.answers == nil {
		s.answers = make(map[int]map[string]string)
	}
	current := s.answers[step]
	if current == nil {
		current = make(map[string]string, len(proposed))
		s.answers[step] = current
	}
	for k, v := range proposed {
		current[k] = v
	}
}
