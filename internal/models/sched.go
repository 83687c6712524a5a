package models

// PendingCall is an armed future self-call. The dispatcher persists
// these so that a restart does not lose an already-armed execution.
type PendingCall struct {
	ID        string `json:"id"`
	Target    string `json:"target"`
	Args      []byte `json:"args"`
	NotBefore uint64 `json:"not_before"` // epoch ms
	NotAfter  uint64 `json:"not_after"`  // epoch ms
}
