package keys

import "encoding/binary"

// Kind is the entity namespace a key belongs to.
type Kind byte

const (
	KindConfig Kind = iota + 1
	KindVault
	KindPrice
	KindStrategy
	KindSched
)

// Config fields (singleton, no identifier).
const (
	FieldAdmin     = "admin"
	FieldPaused    = "paused"
	FieldCounter   = "strategy_count"
	FieldMinAmount = "min_amount"
	FieldMaxAmount = "max_amount"
)

// Strategy fields.
const (
	FieldOwner      = "owner"
	FieldAmount     = "amount"
	FieldFrequency  = "frequency"
	FieldTarget     = "target"
	FieldNextExec   = "next_exec"
	FieldActive     = "active"
	FieldAutonomous = "autonomous"
	FieldInvested   = "invested"
	FieldTokens     = "tokens"
	FieldExecutions = "executions"
)

// Key addresses a single stored value: (kind, identifier, field).
// Segments are length-prefixed in the encoding, so identifiers may
// contain any byte without colliding with another key.
type Key struct {
	Kind  Kind
	ID    string
	Field string
}

func Config(field string) Key          { return Key{Kind: KindConfig, Field: field} }
func Vault(owner string) Key           { return Key{Kind: KindVault, ID: owner} }
func Price(token string) Key           { return Key{Kind: KindPrice, ID: token} }
func Strategy(id, field string) Key    { return Key{Kind: KindStrategy, ID: id, Field: field} }
func Sched(callID string) Key          { return Key{Kind: KindSched, ID: callID} }

// Bytes renders the key into its canonical stored form:
// kind byte, then u32-LE length prefix + bytes for ID and Field.
func (k Key) Bytes() []byte {
	buf := make([]byte, 0, 1+8+len(k.ID)+len(k.Field))
	buf = append(buf, byte(k.Kind))
	buf = appendSegment(buf, k.ID)
	buf = appendSegment(buf, k.Field)
	return buf
}

// String is the human-readable form used in logs and the postgres table.
func (k Key) String() string {
	out := kindName(k.Kind)
	if k.ID != "" {
		out += "/" + k.ID
	}
	if k.Field != "" {
		out += "." + k.Field
	}
	return out
}

func appendSegment(buf []byte, s string) []byte {
	var l [4]byte
	binary.LittleEndian.PutUint32(l[:], uint32(len(s)))
	buf = append(buf, l[:]...)
	return append(buf, s...)
}

func kindName(k Kind) string {
	switch k {
	case KindConfig:
		return "config"
	case KindVault:
		return "vault"
	case KindPrice:
		return "price"
	case KindStrategy:
		return "strategy"
	case KindSched:
		return "sched"
	}
	return "unknown"
}
