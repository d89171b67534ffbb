package service

import (
	"context"
	"errors"
	"unicode/utf8"

	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/ingest"
	"ai-docqa-be/pkg/rag/conversation"
	"ai-docqa-be/pkg/rag/pipeline"
	"ai-docqa-be/pkg/rag/ragerr"

	"github.com/gofiber/fiber/v2"
)

const (
	serviceModule    = "RAG_SERVICE"
	maxSnippetRunes  = 200
	compactionNotice = "conversation summary could not be updated; older turns are kept verbatim until the next successful compaction"
)

// Pipeline is the part of the coordinator the HTTP layer drives
type Pipeline interface {
	Ask(ctx context.Context, query, sessionID string) (*pipeline.AskResult, error)
	Reindex(ctx context.Context, corpus pipeline.CorpusSource) (pipeline.Indexed, error)
	AddDocument(ctx context.Context, doc ingest.Document) (pipeline.Indexed, error)
	Status() pipeline.Status
	Session(sessionID string) (string, []conversation.Turn, bool)
}

type IRagService interface {
	Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error)
	Reindex(ctx context.Context) (*dto.ReindexResponse, error)
	AddDocument(ctx context.Context, filename string, data []byte) (*dto.AddDocumentResponse, error)
	Health(ctx context.Context) *dto.HealthResponse
	GetSession(ctx context.Context, sessionId string) (*dto.SessionResponse, error)
}

type ragService struct {
	pipeline    Pipeline
	docsDir     string
	saveUploads bool
	logger      logger.ILogger
}

func NewRagService(p Pipeline, docsDir string, saveUploads bool, log logger.ILogger) IRagService {
	return &ragService{
		pipeline:    p,
		docsDir:     docsDir,
		saveUploads: saveUploads,
		logger:      log,
	}
}

func (s *ragService) Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error) {
	res, err := s.pipeline.Ask(ctx, req.Question, req.SessionId)
	if err != nil {
		return nil, err
	}

	out := &dto.AskResponse{
		Answer:          res.Answer,
		Sources:         make([]dto.SourceDTO, 0, len(res.Sources)),
		Mode:            string(res.Decision.Mode),
		TopScore:        res.Decision.TopScore,
		SnapshotVersion: res.SnapshotVersion,
	}
	for _, src := range res.Sources {
		out.Sources = append(out.Sources, dto.SourceDTO{
			File:    src.SourceID,
			Snippet: truncateRunes(src.Text, maxSnippetRunes),
			Score:   src.Score,
		})
	}

	if res.CompactionErr != nil {
		s.logger.Warn(serviceModule, "Answer served with deferred compaction", map[string]interface{}{
			"session_id": req.SessionId,
			"error":      res.CompactionErr.Error(),
		})
		out.Warnings = append(out.Warnings, compactionNotice)
	}
	return out, nil
}

func (s *ragService) Reindex(ctx context.Context) (*dto.ReindexResponse, error) {
	res, err := s.pipeline.Reindex(ctx, ingest.NewFolderLoader(s.docsDir))
	if err != nil {
		s.logger.Error(serviceModule, "Reindex failed", map[string]interface{}{
			"docs_dir": s.docsDir,
			"error":    err.Error(),
		})
		return nil, err
	}
	return &dto.ReindexResponse{
		SnapshotVersion: res.Version,
		IndexedChunks:   res.Chunks,
	}, nil
}

// AddDocument indexes an uploaded file into the live snapshot. When no snapshot exists yet and
// uploads are persisted, the saved file bootstraps one through a full reindex. A persisted
// upload is rolled back when it could not be indexed.
func (s *ragService) AddDocument(ctx context.Context, filename string, data []byte) (*dto.AddDocumentResponse, error) {
	doc, err := ingest.FromBytes(filename, data)
	if err != nil {
		if errors.Is(err, ingest.ErrUnsupportedFile) {
			return nil, fiber.NewError(fiber.StatusUnsupportedMediaType, err.Error())
		}
		return nil, ragerr.Wrap(ragerr.KindInvalidInput, "upload", err)
	}

	undo := func() error { return nil }
	if s.saveUploads {
		if undo, err = ingest.Save(s.docsDir, doc); err != nil {
			return nil, err
		}
	}

	res, err := s.pipeline.AddDocument(ctx, doc)
	if errors.Is(err, ragerr.ErrUninitialized) && s.saveUploads {
		s.logger.Info(serviceModule, "No snapshot yet, building one from docs dir", map[string]interface{}{
			"file": doc.SourceID,
		})
		reindexed, rerr := s.Reindex(ctx)
		if rerr != nil {
			s.rollback(doc.SourceID, undo)
			return nil, rerr
		}
		return &dto.AddDocumentResponse{
			File:            doc.SourceID,
			AddedChunks:     reindexed.IndexedChunks,
			SnapshotVersion: reindexed.SnapshotVersion,
			Reindexed:       true,
		}, nil
	}
	if err != nil {
		s.rollback(doc.SourceID, undo)
		return nil, err
	}

	return &dto.AddDocumentResponse{
		File:            doc.SourceID,
		AddedChunks:     res.Chunks,
		SnapshotVersion: res.Version,
	}, nil
}

func (s *ragService) rollback(file string, undo func() error) {
	if err := undo(); err != nil {
		s.logger.Error(serviceModule, "Failed to roll back saved upload", map[string]interface{}{
			"file":  file,
			"error": err.Error(),
		})
	}
}

func (s *ragService) Health(ctx context.Context) *dto.HealthResponse {
	st := s.pipeline.Status()
	status := "ok"
	if !st.Initialized {
		status = "uninitialized"
	}
	res := &dto.HealthResponse{
		Status:          status,
		Initialized:     st.Initialized,
		SnapshotVersion: st.Version,
		IndexedChunks:   st.Chunks,
		InFlight:        st.InFlight,
		Sessions:        st.Sessions,
		LockMode:        st.LockMode,
	}
	if st.Initialized {
		published := st.PublishedAt
		res.PublishedAt = &published
	}
	return res
}

func (s *ragService) GetSession(ctx context.Context, sessionId string) (*dto.SessionResponse, error) {
	summary, turns, ok := s.pipeline.Session(sessionId)
	if !ok {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}

	res := &dto.SessionResponse{
		SessionId: sessionId,
		Summary:   summary,
		Messages:  make([]dto.SessionMessageDTO, 0, len(turns)),
	}
	for _, t := range turns {
		res.Messages = append(res.Messages, dto.SessionMessageDTO{Role: string(t.Role), Content: t.Content})
	}
	return res, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
