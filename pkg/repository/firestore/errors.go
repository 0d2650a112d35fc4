package firestore

import "github.com/Quangdung1996/chat-sub001/pkg/repository"

// Aliases of the shared repository sentinels
var (
	ErrNotFound            = repository.ErrNotFound
	ErrRevisionMismatch    = repository.ErrRevisionMismatch
	ErrDuplicateExternalID = repository.ErrDuplicateExternalID
)
