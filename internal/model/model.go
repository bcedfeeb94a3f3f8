// Package model contains the canonical Stream and Entry records
// persisted by the stream and entry stores: the identity, position,
// annotation/payload, and anchoring state each record carries.
package model

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested stream or entry cannot be
// located.
var ErrNotFound = errors.New("not found")

// Stream is the persisted stream record, held in the
// auditable_item_stream table.
type Stream struct {
	ID                 string                 `json:"id"`
	DateCreated        time.Time              `json:"dateCreated"`
	DateModified       *time.Time             `json:"dateModified,omitempty"`
	NodeIdentity       string                 `json:"nodeIdentity"`
	UserIdentity       string                 `json:"userIdentity"`
	AnnotationObject   map[string]interface{} `json:"annotationObject,omitempty"`
	IndexCounter       int                    `json:"indexCounter"`
	ImmutableInterval  int                    `json:"immutableInterval"`
	Hash               string                 `json:"hash"`
	Signature          string                 `json:"signature"`
	ImmutableStorageID *string                `json:"immutableStorageId,omitempty"`
}

// Entry is the persisted entry record, held in the
// auditable_item_stream_entry table.
type Entry struct {
	ID                 string                 `json:"id"`
	StreamID           string                 `json:"streamId"`
	DateCreated        time.Time              `json:"dateCreated"`
	DateModified       *time.Time             `json:"dateModified,omitempty"`
	DateDeleted        *time.Time             `json:"dateDeleted,omitempty"`
	UserIdentity       string                 `json:"userIdentity"`
	EntryObject        map[string]interface{} `json:"entryObject"`
	Index              int                    `json:"index"`
	Hash               string                 `json:"hash"`
	Signature          string                 `json:"signature"`
	ImmutableStorageID *string                `json:"immutableStorageId,omitempty"`
}

// IsAnchored reports whether the entry has an anchored credential.
func (e *Entry) IsAnchored() bool {
	return e.ImmutableStorageID != nil
}

// IsDeleted reports whether the entry has been soft-deleted.
func (e *Entry) IsDeleted() bool {
	return e.DateDeleted != nil
}
