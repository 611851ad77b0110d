package search

import (
	"errors"
	"fmt"
)

var (
	ErrTypeNotFound          = errors.New("search type not found")
	ErrTypeAlreadyRegistered = errors.New("search type already registered")
	ErrRegistryFrozen        = errors.New("search type registry is frozen")
	ErrNoTypesRegistered     = errors.New("no search types registered")
	ErrIncompleteProjection  = errors.New("incomplete projection")
	ErrWorkspaceNotFound     = errors.New("workspace does not exist")
	ErrUserNotInWorkspace    = errors.New("user is not a member of the workspace")
	ErrUserNotFound          = errors.New("user does not exist")
)

// Stages at which a single type can fail without failing the whole search.
const (
	StageProjection  = "projection"
	StageQuery       = "query"
	StagePostprocess = "postprocess"
)

// TypeError records a search type that was skipped.
type TypeError struct {
	Type  string
	Stage string
	Err   error
}

func (e TypeError) Error() string {
	return fmt.Sprintf("search type %s failed at %s: %v", e.Type, e.Stage, e.Err)
}

func (e TypeError) Unwrap() error {
	return e.Err
}
