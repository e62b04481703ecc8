package fair

import "testing"

func TestCrashPointDeterministic(t *testing.T) {
	seed := GenerateServerSeed()

	p1, d1 := CrashPoint(seed, "round-1")
	p2, d2 := CrashPoint(seed, "round-1")
	if p1 != p2 || d1 != d2 {
		t.Fatalf("crash point not deterministic: %v/%v vs %v/%v", p1, d1, p2, d2)
	}

	_, d3 := CrashPoint(seed, "round-2")
	if d3 == d1 {
		t.Fatalf("different rounds produced the same digest")
	}
}

func TestCrashPointRange(t *testing.T) {
	seed := GenerateServerSeed()
	for i := 0; i < 500; i++ {
		p, _ := CrashPoint(seed, "round-"+string(rune('0'+i%10))+string(rune('a'+i%26)))
		if p < MinMultiplier {
			t.Fatalf("crash point below minimum: %v", p)
		}
		if p > MaxMultiplier {
			t.Fatalf("crash point above maximum: %v", p)
		}
	}
}

func TestCrashPointIndependentOfClientSeed(t *testing.T) {
	// a fórmula só recebe serverSeed e roundID; este teste fixa o contrato
	seed := GenerateServerSeed()
	p1, _ := CrashPoint(seed, "round-x")
	p2, _ := CrashPoint(seed, "round-x")
	if p1 != p2 {
		t.Fatalf("crash point varied with repeated derivation")
	}
}

func TestVerifyCrashPoint(t *testing.T) {
	seed := GenerateServerSeed()
	p, _ := CrashPoint(seed, "round-1")

	if !VerifyCrashPoint(seed, "round-1", p) {
		t.Fatalf("verify rejected own crash point")
	}
	if VerifyCrashPoint(seed, "round-1", p+1.0) {
		t.Fatalf("verify accepted wrong crash point")
	}
	if VerifyCrashPoint(seed, "round-other", p) && func() bool {
		other, _ := CrashPoint(seed, "round-other")
		return other != p
	}() {
		t.Fatalf("verify accepted crash point from another round")
	}
}
