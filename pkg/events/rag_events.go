package events

const (
	TypeSnapshotPublished = "snapshot.published"
	TypeSnapshotReleased  = "snapshot.released"
	TypeDocumentAdded     = "document.added"
	TypeCompactionFailed  = "compaction.failed"
)

func SnapshotPublished(version string, chunks int, previous string) BaseEvent {
	return New(TypeSnapshotPublished, map[string]interface{}{
		"version":          version,
		"chunks":           chunks,
		"previous_version": previous,
	})
}

func SnapshotReleased(version string) BaseEvent {
	return New(TypeSnapshotReleased, map[string]interface{}{
		"version": version,
	})
}

func DocumentAdded(version, sourceID string, chunks int) BaseEvent {
	return New(TypeDocumentAdded, map[string]interface{}{
		"version":   version,
		"source_id": sourceID,
		"chunks":    chunks,
	})
}

func CompactionFailed(sessionID string, messages int, reason string) BaseEvent {
	return New(TypeCompactionFailed, map[string]interface{}{
		"session_id": sessionID,
		"messages":   messages,
		"error":      reason,
	})
}
