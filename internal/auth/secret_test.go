package auth

import (
	"context"
	"testing"
)

func TestVerifyEmptySetIsMisconfigured(t *testing.T) {
	set := NewSecretSet([]string{"", "   "})
	if set.Len() != 0 {
		t.Fatalf("expected blank secrets to be dropped")
	}
	for _, token := range []string{"", "anything"} {
		if got := set.Verify(token); got.Outcome != OutcomeMisconfigured || got.OK() {
			t.Fatalf("Verify(%q) = %+v, want misconfigured", token, got)
		}
	}
}

func TestVerifyMatchesTrimmedSecrets(t *testing.T) {
	set := NewSecretSet([]string{" alpha ", "beta", "beta"})
	if set.Len() != 2 {
		t.Fatalf("expected 2 secrets, got %d", set.Len())
	}

	cases := map[string]Outcome{
		"alpha":    OutcomeAuthorized,
		"  beta\n": OutcomeAuthorized,
		"alph":     OutcomeUnauthorized,
		"ALPHA":    OutcomeUnauthorized,
		"":         OutcomeUnauthorized,
		"alpha2":   OutcomeUnauthorized,
	}
	for token, want := range cases {
		if got := set.Verify(token); got.Outcome != want {
			t.Fatalf("Verify(%q) = %s, want %s", token, got.Outcome, want)
		}
	}
}

func TestVerifyWorkerIDIsStable(t *testing.T) {
	set := NewSecretSet([]string{"alpha", "beta"})
	a1, a2, b := set.Verify("alpha"), set.Verify(" alpha"), set.Verify("beta")
	if a1.WorkerID == "" || a1.WorkerID != a2.WorkerID {
		t.Fatalf("worker id should be stable: %q vs %q", a1.WorkerID, a2.WorkerID)
	}
	if a1.WorkerID == b.WorkerID {
		t.Fatalf("different secrets should map to different worker ids")
	}
	if a1.WorkerID == "alpha" {
		t.Fatalf("worker id must not leak the secret")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := ContextWithWorker(context.Background(), "worker-1")
	ctx = ContextWithToken(ctx, "tok")
	if id, ok := WorkerFromContext(ctx); !ok || id != "worker-1" {
		t.Fatalf("unexpected worker: %q ok=%v", id, ok)
	}
	if tok, ok := TokenFromContext(ctx); !ok || tok != "tok" {
		t.Fatalf("unexpected token: %q ok=%v", tok, ok)
	}
	if _, ok := WorkerFromContext(context.Background()); ok {
		t.Fatalf("expected no worker on empty context")
	}
}
