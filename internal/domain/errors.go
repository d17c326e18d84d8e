package domain

import "errors"

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrRevisionNotFound   = errors.New("collection revision not found")
	ErrEntryNotFound      = errors.New("collection entry not found")
	ErrLoadoutNotFound    = errors.New("loadout not found")
	ErrMetadataNotFound   = errors.New("file metadata not found")
	ErrUnsupportedEntry   = errors.New("unsupported collection entry kind")
	ErrAuthRequired       = errors.New("authentication required")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrDownloadFailed     = errors.New("download failed")
	ErrHashMismatch       = errors.New("content hash mismatch")
	ErrInconsistentStore  = errors.New("inconsistent store state")
)
