package repo

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrConnectionNotFound     = errors.New("connection not found")
	ErrRecommendationNotFound = errors.New("recommendation not found")

	// ErrDataIntegrity covers malformed persisted records and violated
	// uniqueness constraints.
	ErrDataIntegrity = errors.New("data integrity violation")
	// ErrDuplicateConnection matches ErrDataIntegrity with errors.Is.
	ErrDuplicateConnection = fmt.Errorf("%w: connection already exists", ErrDataIntegrity)
)
