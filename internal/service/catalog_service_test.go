package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studyvault/studyvault-api/internal/listing"
	"github.com/studyvault/studyvault-api/internal/models"
	"github.com/studyvault/studyvault-api/internal/search"
)

type mockCatalogRepo struct {
	lastQuery search.Query
	results   []models.Document
	searchErr error
	all       []models.Document
	listCalls int
}

func (m *mockCatalogRepo) Search(ctx context.Context, filter models.DocumentFilter, query search.Query) ([]models.Document, error) {
	m.lastQuery = query
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.results, nil
}

func (m *mockCatalogRepo) ListAll(ctx context.Context) ([]models.Document, error) {
	m.listCalls++
	return m.all, nil
}

func newTestCatalogService(repo *mockCatalogRepo) *CatalogService {
	return NewCatalogService(repo, nil, nil, zap.NewNop(), time.Minute)
}

func TestSearchPassesNormalizedQuery(t *testing.T) {
	repo := &mockCatalogRepo{results: []models.Document{{ID: "d1"}}}
	svc := newTestCatalogService(repo)

	docs, err := svc.Search(context.Background(), models.DocumentFilter{Query: "fall 2024 CS1113"})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, "fall 2024", repo.lastQuery.Term)

	texts := make([]string, 0, len(repo.lastQuery.Patterns))
	for _, p := range repo.lastQuery.Patterns {
		texts = append(texts, p.Text)
	}
	assert.Contains(t, texts, "cs1113")
	assert.Contains(t, texts, "cs 1113")
}

func TestSearchStorageErrorSurfaces(t *testing.T) {
	repo := &mockCatalogRepo{searchErr: fmt.Errorf("connection refused")}
	svc := newTestCatalogService(repo)

	_, err := svc.Search(context.Background(), models.DocumentFilter{Query: "anything"})
	require.Error(t, err)
}

func TestSearchEmptyResultIsNotNil(t *testing.T) {
	svc := newTestCatalogService(&mockCatalogRepo{})

	docs, err := svc.Search(context.Background(), models.DocumentFilter{})
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestBrowseAppliesListingPipeline(t *testing.T) {
	repo := &mockCatalogRepo{all: []models.Document{
		{ID: "d1", CourseCode: "CS", CourseNumber: "1113", Date: "2024-10-01"},
		{ID: "d2", CourseCode: "MATH", CourseNumber: "2414", Date: "2024-09-01"},
	}}
	svc := newTestCatalogService(repo)

	page, err := svc.Browse(context.Background(), listing.State{CourseCode: "CS", Page: 1, PageSize: 25})
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "d1", page.Rows[0].ID)
	assert.Equal(t, 1, page.Pagination.TotalCount)
}

func TestOptionsDeriveFromFullSet(t *testing.T) {
	repo := &mockCatalogRepo{all: []models.Document{
		{CourseCode: "CS", CourseNumber: "1113", Professor: "Smith"},
		{CourseCode: "MATH", CourseNumber: "2414", Professor: "Jones"},
	}}
	svc := newTestCatalogService(repo)

	opts, err := svc.Options(context.Background(), "CS", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"CS", "MATH"}, opts.CourseCodes)
	assert.Equal(t, []string{"1113"}, opts.CourseNumbers)
	assert.Empty(t, opts.Professors)
}

func TestBrowseWithoutRedisHitsRepositoryEachTime(t *testing.T) {
	repo := &mockCatalogRepo{}
	svc := newTestCatalogService(repo)

	_, err := svc.Browse(context.Background(), listing.State{Page: 1, PageSize: 25})
	require.NoError(t, err)
	_, err = svc.Browse(context.Background(), listing.State{Page: 1, PageSize: 25})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
}
