package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so the registry service can translate them into domain errors.
//
//   - ErrNotFound: key or record does not exist in the store
//   - ErrInvalidState: store used outside its transactional scope, or closed
//   - ErrUnavailable: backend temporarily unavailable (lock not obtained, ping failed)
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
