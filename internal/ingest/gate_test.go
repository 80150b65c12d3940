package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/news-radar/internal/core/domain"
	coreerrors "github.com/lueurxax/news-radar/internal/core/errors"
	"github.com/lueurxax/news-radar/internal/core/llm"
	"github.com/lueurxax/news-radar/internal/platform/config"
)

type fakeRepo struct {
	items       map[string]*domain.Item
	nextID      int
	byFP        map[string]*domain.Item
	engagement  map[string]int
	markedCalls []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		items:      make(map[string]*domain.Item),
		byFP:       make(map[string]*domain.Item),
		engagement: make(map[string]int),
	}
}

func (r *fakeRepo) CreateItem(_ context.Context, item *domain.Item) (string, error) {
	key := item.SourceID + "/" + item.ExternalID
	if _, ok := r.engagement[key]; ok {
		return "", coreerrors.ErrDuplicateItem
	}

	r.nextID++
	item.ID = string(rune('a' + r.nextID))
	r.items[item.ID] = item
	r.engagement[key] = item.Engagement

	return item.ID, nil
}

func (r *fakeRepo) UpdateItemEngagement(_ context.Context, sourceID, externalID string, engagement int) error {
	r.engagement[sourceID+"/"+externalID] = engagement

	return nil
}

func (r *fakeRepo) ListPendingItems(_ context.Context, limit int) ([]domain.Item, error) {
	var out []domain.Item

	for _, item := range r.items {
		if item.Relevant == nil {
			out = append(out, *item)
		}

		if len(out) == limit {
			break
		}
	}

	return out, nil
}

func (r *fakeRepo) FindClassifiedByFingerprint(_ context.Context, fp string, _ time.Time) (*domain.Item, error) {
	if item, ok := r.byFP[fp]; ok {
		return item, nil
	}

	return nil, coreerrors.ErrNotFound
}

func (r *fakeRepo) MarkItemAnalyzed(_ context.Context, itemID string, relevant bool, summary, fp string, embedding []float32) error {
	item := r.items[itemID]
	item.Relevant = &relevant
	item.Summary = summary
	item.Fingerprint = fp
	item.Embedding = embedding
	r.markedCalls = append(r.markedCalls, itemID)

	return nil
}

type fakeClassifier struct {
	classified []string
	attached   []string
	err        error
}

func (c *fakeClassifier) Classify(_ context.Context, item *domain.Item, _ domain.Analysis) (string, error) {
	if c.err != nil {
		return "", c.err
	}

	c.classified = append(c.classified, item.ID)

	return "cluster-1", nil
}

func (c *fakeClassifier) AttachDuplicate(_ context.Context, item *domain.Item, clusterID string) error {
	c.attached = append(c.attached, item.ID+"->"+clusterID)

	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		IngestBatchSize:     40,
		DedupWindowHours:    96,
		NormalizedTextCap:   4000,
		SimilarityThreshold: 0.82,
	}
}

func newTestGate(repo *fakeRepo, analyzer llm.Client, classifier *fakeClassifier) *Gate {
	logger := zerolog.Nop()

	return NewGate(repo, analyzer, classifier, testConfig(), &logger)
}

func TestIngestIdempotent(t *testing.T) {
	repo := newFakeRepo()
	gate := newTestGate(repo, llm.NewMock(), &fakeClassifier{})
	ctx := context.Background()

	raw := RawItem{SourceID: "src", ExternalID: "42", Content: "new model released", Engagement: 3}

	status, err := gate.Ingest(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, Accepted, status)

	raw.Engagement = 10

	status, err = gate.Ingest(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, Rejected, status)
	assert.Equal(t, 10, repo.engagement["src/42"], "repeat delivery refreshes engagement")
	assert.Len(t, repo.items, 1)
}

func TestIngestReportsFingerprintTwin(t *testing.T) {
	repo := newFakeRepo()
	gate := newTestGate(repo, llm.NewMock(), &fakeClassifier{})
	ctx := context.Background()

	relevant := true
	content := "big ai launch announced"
	repo.byFP[Fingerprint(Normalize(content, 0))] = &domain.Item{
		ID:       "prior",
		Relevant: &relevant,
	}

	status, err := gate.Ingest(ctx, RawItem{SourceID: "src", ExternalID: "7", Content: content})
	require.NoError(t, err)
	assert.Equal(t, Duplicate, status)
	assert.Len(t, repo.items, 1, "twin is still registered for reuse processing")
}

func TestProcessPendingRelevantItemIsClassified(t *testing.T) {
	repo := newFakeRepo()
	classifier := &fakeClassifier{}

	analyzer := llm.NewMock()
	analyzer.AnalyzeFunc = func(_ context.Context, _ string) (domain.Analysis, error) {
		return domain.Analysis{Relevant: true, Summary: "a model shipped", Category: domain.CategoryProduct}, nil
	}

	gate := newTestGate(repo, analyzer, classifier)
	ctx := context.Background()

	_, err := gate.Ingest(ctx, RawItem{SourceID: "src", ExternalID: "1", Content: "new llm model shipped today"})
	require.NoError(t, err)

	processed, err := gate.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Len(t, classifier.classified, 1)
}

func TestProcessPendingPrefilterSkipsAnalyzer(t *testing.T) {
	repo := newFakeRepo()

	analyzerCalls := 0
	analyzer := llm.NewMock()
	analyzer.AnalyzeFunc = func(_ context.Context, _ string) (domain.Analysis, error) {
		analyzerCalls++

		return domain.Analysis{Relevant: true}, nil
	}

	gate := newTestGate(repo, analyzer, &fakeClassifier{})
	ctx := context.Background()

	_, err := gate.Ingest(ctx, RawItem{SourceID: "src", ExternalID: "1", Content: "banana bread recipe for the weekend"})
	require.NoError(t, err)

	processed, err := gate.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Zero(t, analyzerCalls)

	for _, item := range repo.items {
		require.NotNil(t, item.Relevant)
		assert.False(t, *item.Relevant)
	}
}

func TestProcessPendingFingerprintReuse(t *testing.T) {
	repo := newFakeRepo()
	classifier := &fakeClassifier{}

	relevant := true
	content := "big ai launch announced"
	fp := Fingerprint(Normalize(content, 0))
	repo.byFP[fp] = &domain.Item{
		ID:        "prior",
		SourceID:  "other-src",
		Summary:   "prior summary",
		Relevant:  &relevant,
		ClusterID: "cluster-9",
		Embedding: []float32{0.1, 0.2},
	}

	analyzerCalls := 0
	analyzer := llm.NewMock()
	analyzer.AnalyzeFunc = func(_ context.Context, _ string) (domain.Analysis, error) {
		analyzerCalls++

		return domain.Analysis{}, nil
	}

	gate := newTestGate(repo, analyzer, classifier)
	ctx := context.Background()

	_, err := gate.Ingest(ctx, RawItem{SourceID: "src", ExternalID: "1", Content: content})
	require.NoError(t, err)

	processed, err := gate.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	assert.Zero(t, analyzerCalls, "fingerprint twin must not be re-analyzed")
	require.Len(t, classifier.attached, 1)
	assert.Contains(t, classifier.attached[0], "->cluster-9")

	for _, item := range repo.items {
		assert.Equal(t, "prior summary", item.Summary)
		assert.Equal(t, []float32{0.1, 0.2}, item.Embedding)
	}
}

func TestProcessPendingCircuitOpenDefersBatch(t *testing.T) {
	repo := newFakeRepo()

	analyzer := llm.NewMock()
	analyzer.AnalyzeFunc = func(_ context.Context, _ string) (domain.Analysis, error) {
		return llm.DefaultAnalysis(), coreerrors.ErrClientDisabled
	}

	gate := newTestGate(repo, analyzer, &fakeClassifier{})
	ctx := context.Background()

	_, err := gate.Ingest(ctx, RawItem{SourceID: "src", ExternalID: "1", Content: "fresh llm research paper"})
	require.NoError(t, err)

	processed, err := gate.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, processed)

	for _, item := range repo.items {
		assert.Nil(t, item.Relevant, "item must stay pending while the circuit is open")
	}
}
