package store

import (
	"time"

	"github.com/twinfoundation/auditable-item-stream/internal/model"
)

// StreamProperties flattens a Stream into the property map condition
// matching walks.
func StreamProperties(s *model.Stream) map[string]interface{} {
	return map[string]interface{}{
		"id":                 s.ID,
		"dateCreated":        s.DateCreated.Format(time.RFC3339Nano),
		"dateModified":       formatOptionalTime(s.DateModified),
		"nodeIdentity":       s.NodeIdentity,
		"userIdentity":       s.UserIdentity,
		"annotationObject":   toGenericMap(s.AnnotationObject),
		"indexCounter":       s.IndexCounter,
		"immutableInterval":  s.ImmutableInterval,
		"hash":               s.Hash,
		"signature":          s.Signature,
		"immutableStorageId": formatOptionalString(s.ImmutableStorageID),
	}
}

// EntryProperties flattens an Entry into the property map condition
// matching walks.
func EntryProperties(e *model.Entry) map[string]interface{} {
	return map[string]interface{}{
		"id":                 e.ID,
		"streamId":           e.StreamID,
		"dateCreated":        e.DateCreated.Format(time.RFC3339Nano),
		"dateModified":       formatOptionalTime(e.DateModified),
		"dateDeleted":        formatOptionalTime(e.DateDeleted),
		"userIdentity":       e.UserIdentity,
		"entryObject":        toGenericMap(e.EntryObject),
		"index":              e.Index,
		"hash":               e.Hash,
		"signature":          e.Signature,
		"immutableStorageId": formatOptionalString(e.ImmutableStorageID),
	}
}

func formatOptionalTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func formatOptionalString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func toGenericMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}
