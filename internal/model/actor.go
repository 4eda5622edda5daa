package model

import "strings"

// Actor kinds known to the engine. Anything user-like can author
// messages; equality is always over (kind, id).
const (
	ActorKindUser = "user"
	ActorKindBot  = "bot"
)

type Actor struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (a Actor) IsZero() bool {
	return a.Kind == "" || a.ID == ""
}

func (a Actor) Equal(b Actor) bool {
	return a.Kind == b.Kind && a.ID == b.ID
}

// Key returns a stable "kind:id" string used for limiter buckets and
// live-session routing.
func (a Actor) Key() string {
	return a.Kind + ":" + a.ID
}

// PairKey builds the canonical participant key for a private
// conversation: both actor keys sorted and joined. The same pair always
// produces the same key regardless of argument order, which is what the
// unique index on conversations.pair_key relies on.
func PairKey(a, b Actor) string {
	ka, kb := a.Key(), b.Key()
	if strings.Compare(ka, kb) > 0 {
		ka, kb = kb, ka
	}
	return ka + "|" + kb
}
