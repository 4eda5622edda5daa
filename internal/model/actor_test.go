package model

import "testing"

func TestPairKeySymmetric(t *testing.T) {
	alice := Actor{Kind: ActorKindUser, ID: "alice"}
	bob := Actor{Kind: ActorKindUser, ID: "bob"}

	if PairKey(alice, bob) != PairKey(bob, alice) {
		t.Fatalf("pair key depends on argument order: %q vs %q",
			PairKey(alice, bob), PairKey(bob, alice))
	}
	if got, want := PairKey(alice, bob), "user:alice|user:bob"; got != want {
		t.Fatalf("PairKey = %q, want %q", got, want)
	}
}

func TestPairKeySelf(t *testing.T) {
	alice := Actor{Kind: ActorKindUser, ID: "alice"}
	if got, want := PairKey(alice, alice), "user:alice|user:alice"; got != want {
		t.Fatalf("PairKey = %q, want %q", got, want)
	}
}

func TestPairKeyDistinguishesKinds(t *testing.T) {
	user := Actor{Kind: ActorKindUser, ID: "alfred"}
	bot := Actor{Kind: ActorKindBot, ID: "alfred"}
	if PairKey(user, bot) == PairKey(user, user) {
		t.Fatal("same id under different kinds collapsed to one pair")
	}
}

func TestActorEqual(t *testing.T) {
	a := Actor{Kind: ActorKindUser, ID: "alice"}
	if !a.Equal(Actor{Kind: ActorKindUser, ID: "alice"}) {
		t.Fatal("identical actors not equal")
	}
	if a.Equal(Actor{Kind: ActorKindBot, ID: "alice"}) {
		t.Fatal("kind ignored in equality")
	}
	if a.Equal(Actor{Kind: ActorKindUser, ID: "bob"}) {
		t.Fatal("id ignored in equality")
	}
}

func TestActorIsZero(t *testing.T) {
	if (Actor{Kind: ActorKindUser, ID: "alice"}).IsZero() {
		t.Fatal("complete actor reported zero")
	}
	if !(Actor{Kind: ActorKindUser}).IsZero() || !(Actor{ID: "alice"}).IsZero() || !(Actor{}).IsZero() {
		t.Fatal("partial actor not reported zero")
	}
}
