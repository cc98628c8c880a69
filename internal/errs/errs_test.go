/*
Copyright © 2025 Logicos Software
*/
package errs

import (
	"errors"
	"strings"
	"testing"
)

func TestIsTraversesSingleCauseChain(t *testing.T) {
	inner := New(KindBadPassphrase, "wrong passphrase")
	outer := Wrap(KindDecryptFailed, "unwrap private key for alex", inner)

	if !Is(outer, KindDecryptFailed) {
		t.Error("Is() should match the outermost Kind")
	}
	if !Is(outer, KindBadPassphrase) {
		t.Error("Is() should find a Kind buried in a single-cause chain")
	}
	if Is(outer, KindUserDeclined) {
		t.Error("Is() should not match a Kind absent from the chain")
	}
}

func TestIsTraversesMultiCause(t *testing.T) {
	alex := Wrap(KindDecryptFailed, "unwrap private key for alex", New(KindUserDeclined, "declined"))
	mathieu := New(KindBadPassphrase, "wrong passphrase for mathieu")
	outer := Wrap(KindAllRecipientsFailed, "all 2 recipient(s) failed to decrypt", MultiCause{alex, mathieu})

	if !Is(outer, KindAllRecipientsFailed) {
		t.Error("Is() should match the outer Kind")
	}
	if !Is(outer, KindUserDeclined) {
		t.Error("Is() should find alex's UserDeclined cause inside the MultiCause branch")
	}
	if !Is(outer, KindBadPassphrase) {
		t.Error("Is() should find mathieu's BadPassphrase cause inside the MultiCause branch")
	}
	if Is(outer, KindKeyMissing) {
		t.Error("Is() should not match a Kind absent from every branch")
	}
}

func TestKindOfReturnsOutermostKind(t *testing.T) {
	inner := New(KindBadPassphrase, "wrong passphrase")
	outer := Wrap(KindDecryptFailed, "unwrap private key for alex", inner)

	if KindOf(outer) != KindDecryptFailed {
		t.Errorf("KindOf() = %s, want DecryptFailed", KindOf(outer))
	}
	if KindOf(errors.New("plain error")) != KindUnknown {
		t.Error("KindOf() should be KindUnknown for a non-taxonomy error")
	}
}

func TestDebugExpandsMultiCauseBranches(t *testing.T) {
	alex := Wrap(KindDecryptFailed, "unwrap private key for alex", New(KindUserDeclined, "declined"))
	mathieu := New(KindBadPassphrase, "wrong passphrase for mathieu")
	outer := Wrap(KindAllRecipientsFailed, "all 2 recipient(s) failed to decrypt", MultiCause{alex, mathieu})

	out := outer.Debug()
	for _, want := range []string{"[AllRecipientsFailed]", "[DecryptFailed]", "[UserDeclined]", "[BadPassphrase]"} {
		if !strings.Contains(out, want) {
			t.Errorf("Debug() = %q, want it to contain %q", out, want)
		}
	}
}

func TestErrorShortFormJoinsCauses(t *testing.T) {
	m := MultiCause{New(KindUserDeclined, "declined"), New(KindBadPassphrase, "wrong")}
	if got, want := m.Error(), "declined; wrong"; got != want {
		t.Errorf("MultiCause.Error() = %q, want %q", got, want)
	}
}

func TestWithHintDoesNotMutateOriginal(t *testing.T) {
	base := New(KindKeyExists, "key already exists")
	hinted := base.WithHint("use 'key protect' instead")

	if base.Hint != "" {
		t.Error("WithHint should not mutate the receiver")
	}
	if hinted.Hint == "" {
		t.Error("WithHint should set Hint on the copy")
	}
}
