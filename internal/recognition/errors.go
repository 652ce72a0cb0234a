package recognition

import "errors"

// Registration and deletion errors, surfaced directly to the caller.
var (
	// ErrEmptyEmbeddingSet is returned when Register is called with no vectors.
	// An identity with zero embeddings is invalid.
	ErrEmptyEmbeddingSet = errors.New("identity must have at least one embedding")

	// ErrDuplicateIdentity is returned when the identity ID is already registered.
	ErrDuplicateIdentity = errors.New("identity already registered")

	// ErrIdentityNotFound is returned when the identity ID is not registered.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrDimensionMismatch is returned when a vector does not have EmbeddingDim elements.
	ErrDimensionMismatch = errors.New("embedding has wrong dimension")

	// ErrOutOfOrderEvent is returned when a recognition timestamp precedes the
	// identity's last applied event. The attendance state is left unmodified
	// rather than computing a negative duration.
	ErrOutOfOrderEvent = errors.New("attendance event out of timestamp order")
)
