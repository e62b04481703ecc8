package fair

import (
	"strings"
	"testing"
)

func TestGenerateRollDeterministic(t *testing.T) {
	serverSeed := strings.Repeat("a", 64)

	r1, err := GenerateRoll(serverSeed, "block123", "player1", 0)
	if err != nil {
		t.Fatalf("generate roll: %v", err)
	}
	r2, err := GenerateRoll(serverSeed, "block123", "player1", 0)
	if err != nil {
		t.Fatalf("generate roll: %v", err)
	}

	if r1.Value != r2.Value {
		t.Fatalf("same inputs produced different rolls: %v vs %v", r1.Value, r2.Value)
	}
	if r1.Digest != r2.Digest {
		t.Fatalf("same inputs produced different digests")
	}
	if r1.Value < 0 || r1.Value > 1 {
		t.Fatalf("roll out of range [0,1]: %v", r1.Value)
	}
	if len(r1.Digest) != 64 {
		t.Fatalf("expected 32-byte hex digest, got %d chars", len(r1.Digest))
	}
}

func TestGenerateRollDistinctInputs(t *testing.T) {
	serverSeed := strings.Repeat("a", 64)

	base, _ := GenerateRoll(serverSeed, "block123", "player1", 0)
	otherNonce, _ := GenerateRoll(serverSeed, "block123", "player1", 1)
	otherClient, _ := GenerateRoll(serverSeed, "block123", "player2", 0)

	if base.Digest == otherNonce.Digest {
		t.Fatalf("nonce change did not change digest")
	}
	if base.Digest == otherClient.Digest {
		t.Fatalf("client seed change did not change digest")
	}
}

func TestGenerateRollEmptySeeds(t *testing.T) {
	cases := []struct {
		name                           string
		server, public, client         string
	}{
		{"empty server", "", "pub", "cli"},
		{"empty public", "srv", "", "cli"},
		{"empty client", "srv", "pub", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := GenerateRoll(tc.server, tc.public, tc.client, 0); err != ErrEmptySeed {
				t.Fatalf("expected ErrEmptySeed, got %v", err)
			}
		})
	}
}

func TestVerifyAcceptsOwnOutput(t *testing.T) {
	serverSeed := GenerateServerSeed()
	r, err := GenerateRoll(serverSeed, "block123", "player1", 7)
	if err != nil {
		t.Fatalf("generate roll: %v", err)
	}
	if !Verify(serverSeed, "block123", "player1", 7, r.Value) {
		t.Fatalf("verify rejected its own output")
	}
	if Verify(serverSeed, "block123", "player1", 8, r.Value) {
		t.Fatalf("verify accepted wrong nonce")
	}
}

func TestHashCommitmentStable(t *testing.T) {
	seed := GenerateServerSeed()
	if len(seed) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(seed))
	}
	h1 := HashCommitment(seed)
	h2 := HashCommitment(seed)
	if h1 != h2 {
		t.Fatalf("commitment not stable")
	}
	if h1 == seed {
		t.Fatalf("commitment must not equal the seed")
	}
	if HashCommitment("other") == h1 {
		t.Fatalf("different seeds produced same commitment")
	}
}

func TestGenerateServerSeedUnique(t *testing.T) {
	if GenerateServerSeed() == GenerateServerSeed() {
		t.Fatalf("two generated seeds collided")
	}
}
