package keys

import (
	"bytes"
	"testing"
)

func TestKeyEncodingIsUnique(t *testing.T) {
	ks := []Key{
		Config(FieldAdmin),
		Config(FieldCounter),
		Vault("AU1owner"),
		Vault("AU1owner_0"), // must not collide with a strategy id
		Price("USDC"),
		Strategy("AU1owner_0", FieldAmount),
		Strategy("AU1owner", FieldAmount),
		Strategy("AU1owner_0", FieldOwner),
		Sched("pending"),
	}

	seen := make(map[string]Key)
	for _, k := range ks {
		enc := string(k.Bytes())
		if prev, ok := seen[enc]; ok {
			t.Fatalf("keys %v and %v encode identically", prev, k)
		}
		seen[enc] = k
	}
}

func TestKeyEncodingSeparatorSafety(t *testing.T) {
	// Ad hoc separators were the collision risk in the original
	// string-concatenated keys; length prefixes remove it.
	a := Strategy("ab", "c").Bytes()
	b := Strategy("a", "bc").Bytes()
	if bytes.Equal(a, b) {
		t.Fatal("shifted segment boundaries must not collide")
	}
}

func TestKeyString(t *testing.T) {
	if got := Strategy("AU1x_0", FieldAmount).String(); got != "strategy/AU1x_0.amount" {
		t.Errorf("unexpected string form: %s", got)
	}
	if got := Config(FieldPaused).String(); got != "config.paused" {
		t.Errorf("unexpected string form: %s", got)
	}
}
