package authn_test

import (
	"testing"
	"time"

	"github.com/NVIDIA/cloudemu/authn"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	issuer := authn.NewIssuer()

	tok, err := issuer.Issue("pool-1", "alice", []string{"admins", "readers"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if tok.Token == "" {
		t.Fatal("Issue returned an empty token string")
	}

	verified, err := issuer.Verify(tok.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verified.UserPoolID != "pool-1" || verified.Username != "alice" {
		t.Fatalf("Verify = %+v, want pool-1/alice", verified)
	}
	if len(verified.Groups) != 2 || verified.Groups[0] != "admins" || verified.Groups[1] != "readers" {
		t.Fatalf("Verify groups = %v", verified.Groups)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	a := authn.NewIssuer()
	b := authn.NewIssuer()

	tok, err := a.Issue("pool-1", "alice", nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := b.Verify(tok.Token); err == nil {
		t.Fatal("expected Verify with a different issuer's secret to fail")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer := authn.NewIssuer()
	if _, err := issuer.Verify("not.a.jwt"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestIssueSetsAnHourExpiry(t *testing.T) {
	issuer := authn.NewIssuer()
	tok, err := issuer.Issue("pool-1", "alice", nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	want := time.Now().Add(time.Hour)
	if tok.Expires.Before(want.Add(-time.Minute)) || tok.Expires.After(want.Add(time.Minute)) {
		t.Fatalf("Expires = %v, want ~%v", tok.Expires, want)
	}
}
