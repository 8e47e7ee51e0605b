package agent

import (
	"sync"

	"github.com/skylarklabs/reportloom/pkg/models"
)

// Session is a process-local value bound to a single Run invocation.
// It owns the conversation transcript, the Blackboard, the Execution
// History, and the iteration counter. A Session is not shared across
// processes and has no durable existence of its own — only the final
// artifact, via the Execution Cache, survives it.
type Session struct {
	mu        sync.Mutex
	Board     *Blackboard
	Iteration int

	transcript []models.Message
	history    []models.HistoryRecord
}

// NewSession returns a fresh Session with an empty transcript, history, and
// blackboard.
func NewSession() *Session {
	return &Session{Board: NewBlackboard()}
}

// Reset clears the Blackboard and History for reuse across Runs on the
// same Session value.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Board.Clear()
	s.transcript = nil
	s.history = nil
	s.Iteration = 0
}

// AppendMessage adds a message to the end of the transcript. The transcript
// is append-only: nothing in this type ever removes or reorders an
// existing entry.
func (s *Session) AppendMessage(m models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, m)
}

// Transcript returns a copy of the messages appended so far, in emission order.
func (s *Session) Transcript() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// HasInvocation reports whether some earlier assistant message in the
// transcript carries a tool invocation with the given id — the pairing
// invariant tool-result messages must satisfy.
func (s *Session) HasInvocation(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.transcript {
		for _, tc := range m.Invocations() {
			if tc.ID == id {
				return true
			}
		}
	}
	return false
}

// AppendHistory adds a record to the append-only Execution History.
func (s *Session) AppendHistory(r models.HistoryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, r)
}

// History returns a copy of the Execution History recorded so far.
func (s *Session) History() []models.HistoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.HistoryRecord, len(s.history))
	copy(out, s.history)
	return out
}
