package pgvector

import (
	"context"
	"errors"
	"testing"

	"ai-docqa-be/internal/model"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/pkg/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CreateBulk(ctx context.Context, embeddings []*model.ChunkEmbedding) error {
	return m.Called(ctx, embeddings).Error(0)
}

func (m *mockRepo) DeleteBySnapshotVersion(ctx context.Context, version string) error {
	return m.Called(ctx, version).Error(0)
}

func (m *mockRepo) DeleteExceptSnapshotVersion(ctx context.Context, keep string) (int64, error) {
	args := m.Called(ctx, keep)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) CountBySnapshotVersion(ctx context.Context, version string) (int64, error) {
	args := m.Called(ctx, version)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) SearchSimilarWithScore(ctx context.Context, version string, embedding []float32, limit int) ([]*contract.ScoredChunkEmbedding, error) {
	args := m.Called(ctx, version, embedding, limit)
	return args.Get(0).([]*contract.ScoredChunkEmbedding), args.Error(1)
}

func TestCreateClearsVersion(t *testing.T) {
	repo := &mockRepo{}
	repo.On("DeleteBySnapshotVersion", mock.Anything, "v1").Return(nil)

	idx, err := NewFactory(repo).Create(context.Background(), "v1", 3)
	require.NoError(t, err)
	assert.NotNil(t, idx)
	repo.AssertExpectations(t)
}

func TestAddTagsRowsWithVersionAndSequence(t *testing.T) {
	repo := &mockRepo{}
	repo.On("DeleteBySnapshotVersion", mock.Anything, "v1").Return(nil)

	var inserted [][]*model.ChunkEmbedding
	repo.On("CreateBulk", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		inserted = append(inserted, args.Get(1).([]*model.ChunkEmbedding))
	}).Return(nil)

	ctx := context.Background()
	idx, err := NewFactory(repo).Create(ctx, "v1", 2)
	require.NoError(t, err)

	require.NoError(t, idx.Add(ctx, [][]float32{{1, 0}, {0, 1}}, []vectorstore.Record{
		{ChunkID: "a:0", SourceID: "a.txt", Text: "alpha"},
		{ChunkID: "a:1", SourceID: "a.txt", ChunkIndex: 1, Text: "beta"},
	}))
	require.NoError(t, idx.Add(ctx, [][]float32{{1, 1}}, []vectorstore.Record{
		{ChunkID: "b:0", SourceID: "b.txt", Text: "gamma"},
	}))

	require.Len(t, inserted, 2)
	assert.Equal(t, "v1", inserted[0][0].SnapshotVersion)
	assert.Equal(t, int64(0), inserted[0][0].Seq)
	assert.Equal(t, int64(1), inserted[0][1].Seq)
	assert.Equal(t, int64(2), inserted[1][0].Seq)
	assert.Equal(t, "beta", inserted[0][1].Document)
}

func TestAddRejectsWrongDimension(t *testing.T) {
	repo := &mockRepo{}
	repo.On("DeleteBySnapshotVersion", mock.Anything, "v1").Return(nil)

	idx, err := NewFactory(repo).Create(context.Background(), "v1", 2)
	require.NoError(t, err)

	err = idx.Add(context.Background(), [][]float32{{1}}, []vectorstore.Record{{ChunkID: "x"}})
	assert.Error(t, err)
	repo.AssertNotCalled(t, "CreateBulk", mock.Anything, mock.Anything)
}

func TestSearchMapsRows(t *testing.T) {
	repo := &mockRepo{}
	repo.On("DeleteBySnapshotVersion", mock.Anything, "v1").Return(nil)
	repo.On("SearchSimilarWithScore", mock.Anything, "v1", []float32{1, 0}, 5).Return([]*contract.ScoredChunkEmbedding{
		{Embedding: &model.ChunkEmbedding{ChunkId: "a:0", SourceId: "a.txt", Document: "alpha"}, Similarity: 0.9},
	}, nil)

	idx, err := NewFactory(repo).Create(context.Background(), "v1", 2)
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a.txt", hits[0].SourceID)
	assert.Equal(t, "alpha", hits[0].Text)
	assert.InDelta(t, 0.9, hits[0].Similarity, 1e-9)
}

func TestPruneExceptDeletesOtherVersions(t *testing.T) {
	repo := &mockRepo{}
	repo.On("DeleteExceptSnapshotVersion", mock.Anything, "v2").Return(int64(12), nil).Once()

	n, err := NewFactory(repo).PruneExcept(context.Background(), "v2")
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	repo.AssertExpectations(t)
}

func TestPruneExceptWrapsError(t *testing.T) {
	repo := &mockRepo{}
	repo.On("DeleteExceptSnapshotVersion", mock.Anything, "v2").Return(int64(0), errors.New("db down")).Once()

	_, err := NewFactory(repo).PruneExcept(context.Background(), "v2")
	assert.ErrorContains(t, err, "db down")
}
