package dto

import "time"

type AskRequest struct {
	Question  string `json:"question" validate:"required,max=4000"`
	SessionId string `json:"session_id" validate:"required,max=128"`
}

type SourceDTO struct {
	File    string  `json:"file"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

type AskResponse struct {
	Answer          string      `json:"answer"`
	Sources         []SourceDTO `json:"sources"`
	Mode            string      `json:"mode"`
	TopScore        *float64    `json:"top_score,omitempty"`
	SnapshotVersion string      `json:"snapshot_version"`
	Warnings        []string    `json:"warnings,omitempty"`
}

type ReindexResponse struct {
	SnapshotVersion string `json:"snapshot_version"`
	IndexedChunks   int    `json:"indexed_chunks"`
}

type AddDocumentResponse struct {
	File            string `json:"file"`
	AddedChunks     int    `json:"added_chunks"`
	SnapshotVersion string `json:"snapshot_version"`
	Reindexed       bool   `json:"reindexed"`
}

type HealthResponse struct {
	Status          string     `json:"status"`
	Initialized     bool       `json:"initialized"`
	SnapshotVersion string     `json:"snapshot_version,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	IndexedChunks   int        `json:"indexed_chunks"`
	InFlight        int        `json:"in_flight"`
	Sessions        int        `json:"sessions"`
	LockMode        string     `json:"lock_mode"`
}

type SessionMessageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SessionResponse struct {
	SessionId string              `json:"session_id"`
	Summary   string              `json:"summary"`
	Messages  []SessionMessageDTO `json:"messages"`
}
