package auth

import (
	"crypto/subtle"
	"fmt"
	"hash/fnv"
	"strings"
)

// Outcome classifies a shared-secret check.
type Outcome string

const (
	OutcomeAuthorized    Outcome = "authorized"
	OutcomeUnauthorized  Outcome = "unauthorized"
	OutcomeMisconfigured Outcome = "misconfigured"
)

// Result is the verdict for one presented token.
type Result struct {
	Outcome  Outcome
	WorkerID string
}

// OK reports whether the caller was authorized.
func (r Result) OK() bool { return r.Outcome == OutcomeAuthorized }

// SecretSet is the allow-set of worker secrets.
type SecretSet struct {
	secrets []string
}

// NewSecretSet trims the configured secrets and drops blank and duplicate entries.
func NewSecretSet(raw []string) SecretSet {
	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return SecretSet{secrets: out}
}

// Len returns the number of usable secrets.
func (s SecretSet) Len() int { return len(s.secrets) }

// Verify checks a presented token against the allow-set. An empty allow-set
// rejects every request as misconfigured.
func (s SecretSet) Verify(presented string) Result {
	if len(s.secrets) == 0 {
		return Result{Outcome: OutcomeMisconfigured}
	}
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return Result{Outcome: OutcomeUnauthorized}
	}
	matched := 0
	for _, secret := range s.secrets {
		matched |= subtle.ConstantTimeCompare([]byte(secret), []byte(presented))
	}
	if matched != 1 {
		return Result{Outcome: OutcomeUnauthorized}
	}
	return Result{Outcome: OutcomeAuthorized, WorkerID: workerID(presented)}
}

// workerID derives a stable, non-secret label for logs.
func workerID(token string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return fmt.Sprintf("worker-%08x", h.Sum32())
}
