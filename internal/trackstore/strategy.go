package trackstore

import "cuebridge/internal/cue"

// Kind tags a persistence strategy variant.
type Kind int

const (
	// NoPersistence commits locally and nowhere else.
	NoPersistence Kind = iota
	// DirectApply commits locally and relays the list to the bridged partner.
	DirectApply
	// BridgedPersist writes to shared storage and commits only on echo.
	BridgedPersist
	// DraftPersist commits locally and saves the list as a draft.
	DraftPersist
)

func (k Kind) String() string {
	switch k {
	case NoPersistence:
		return "none"
	case DirectApply:
		return "direct"
	case BridgedPersist:
		return "bridged"
	case DraftPersist:
		return "draft"
	default:
		return "unknown"
	}
}

// CommitsLocally reports whether a mutation under k updates the committed
// list immediately.
func (k Kind) CommitsLocally() bool {
	return k != BridgedPersist
}

// Snapshot is the payload handed to a strategy after a mutation.
type Snapshot struct {
	Tracks      []cue.Cue `json:"tracks"`
	LastTouched float64   `json:"lastTouched"`
	// Timestamp is wall-clock milliseconds since the Unix epoch.
	Timestamp int64 `json:"timestamp"`
}

// Strategy is one persistence variant.
type Strategy interface {
	Kind() Kind
	Persist(Snapshot) error
}

// Persistence yields the strategy a mutation should use. Every Strategy
// built by this package is also a Persistence that always yields itself;
// routers that switch variants at runtime implement it directly.
type Persistence interface {
	Active() Strategy
}

// Variant is a concrete strategy. The zero value is NoPersistence.
type Variant struct {
	kind Kind
	fn   func(Snapshot) error
}

func (v Variant) Kind() Kind { return v.kind }

func (v Variant) Persist(s Snapshot) error {
	if v.fn == nil {
		return nil
	}
	return v.fn(s)
}

// Active returns v itself.
func (v Variant) Active() Strategy { return v }

// None returns the NoPersistence variant.
func None() Variant {
	return Variant{kind: NoPersistence}
}

// NewDirectApply returns a DirectApply variant that calls relay after each
// local commit.
func NewDirectApply(relay func(Snapshot) error) Variant {
	return Variant{kind: DirectApply, fn: relay}
}

// NewBridgedPersist returns a BridgedPersist variant that calls write instead
// of committing.
func NewBridgedPersist(write func(Snapshot) error) Variant {
	return Variant{kind: BridgedPersist, fn: write}
}

// NewDraftPersist returns a DraftPersist variant that calls save after each
// local commit.
func NewDraftPersist(save func(Snapshot) error) Variant {
	return Variant{kind: DraftPersist, fn: save}
}
