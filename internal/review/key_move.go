package review

// KeyMoveReason tells why a ply is a key move.
type KeyMoveReason string

const (
	ReasonNone            KeyMoveReason = ""
	ReasonUserMisplay     KeyMoveReason = "user-misplay"
	ReasonOpponentNovelty KeyMoveReason = "opponent-novelty"
	ReasonCoverageGap     KeyMoveReason = "coverage-gap"
	// ReasonTransposition marks the ply where a deviating game returns to a
	// repertoire position.
	ReasonTransposition KeyMoveReason = "transposition"
)

// KeyMoveInput is the per-ply state the caller threads through a game.
type KeyMoveInput struct {
	Matched                 bool
	Deviation               DeviationType
	WasInRepertoireLastMove bool
	HasAlreadyDeviated      bool
}

// KeyMove is the classification of one ply.
type KeyMove struct {
	IsKey  bool
	Reason KeyMoveReason
}

// IdentifyKeyMove flags the first ply leaving the repertoire and the ply
// re-entering it. Plies in the middle of a deviation are not flagged.
func IdentifyKeyMove(in KeyMoveInput) KeyMove {
	if in.Matched {
		if in.HasAlreadyDeviated {
			return KeyMove{IsKey: true, Reason: ReasonTransposition}
		}
		return KeyMove{}
	}
	if in.WasInRepertoireLastMove {
		return KeyMove{IsKey: true, Reason: reasonFor(in.Deviation)}
	}
	return KeyMove{}
}

func reasonFor(d DeviationType) KeyMoveReason {
	switch d {
	case UserMisplay:
		return ReasonUserMisplay
	case OpponentNovelty:
		return ReasonOpponentNovelty
	case CoverageGap:
		return ReasonCoverageGap
	}
	return ReasonNone
}

// KeyMoveTracker carries the classifier state from ply to ply. The zero
// value is not ready; use NewKeyMoveTracker.
type KeyMoveTracker struct {
	wasInRepertoire bool
	deviated        bool
}

// NewKeyMoveTracker starts a tracker at the beginning of a game, which is in
// the repertoire by definition.
func NewKeyMoveTracker() *KeyMoveTracker {
	return &KeyMoveTracker{wasInRepertoire: true}
}

// Next classifies one ply and updates the state.
func (k *KeyMoveTracker) Next(matched bool, deviation DeviationType) KeyMove {
	km := IdentifyKeyMove(KeyMoveInput{
		Matched:                 matched,
		Deviation:               deviation,
		WasInRepertoireLastMove: k.wasInRepertoire,
		HasAlreadyDeviated:      k.deviated,
	})
	k.wasInRepertoire = matched
	k.deviated = !matched
	return km
}
