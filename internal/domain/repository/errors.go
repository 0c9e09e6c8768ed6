package repository

import "errors"

var (
	ErrIdentityExists     = errors.New("identity with this national id already exists")
	ErrSlotConflict       = errors.New("an active slot already holds this date and time")
	ErrStorageUnavailable = errors.New("storage is unavailable")
)
