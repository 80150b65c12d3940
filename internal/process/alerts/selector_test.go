package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/news-radar/internal/core/domain"
	coreerrors "github.com/lueurxax/news-radar/internal/core/errors"
	"github.com/lueurxax/news-radar/internal/core/impact"
	"github.com/lueurxax/news-radar/internal/core/llm"
	"github.com/lueurxax/news-radar/internal/gateway"
	"github.com/lueurxax/news-radar/internal/platform/config"
	"github.com/lueurxax/news-radar/internal/storage"
)

type fakeRepo struct {
	candidates  []*domain.Cluster
	popularity  []*domain.Cluster
	spikes      []storage.EngagementSpike
	subscribers []*domain.Subscriber
	downvoted   map[string][][]float32
	clusters    map[string]*domain.Cluster
	existing    map[string]bool

	notified   []string
	watermarks map[string]int
	alerts     []domain.AlertRecord
	events     []string
}

func newSelectorRepo() *fakeRepo {
	return &fakeRepo{
		downvoted:  make(map[string][][]float32),
		clusters:   make(map[string]*domain.Cluster),
		existing:   make(map[string]bool),
		watermarks: make(map[string]int),
	}
}

func (r *fakeRepo) ListAlertCandidates(context.Context, time.Time, int) ([]*domain.Cluster, error) {
	return r.candidates, nil
}

func (r *fakeRepo) MarkFirstNotified(_ context.Context, clusterID string, _ time.Time) (bool, error) {
	for _, id := range r.notified {
		if id == clusterID {
			return false, nil
		}
	}

	r.notified = append(r.notified, clusterID)
	r.events = append(r.events, "mark:"+clusterID)

	return true, nil
}

func (r *fakeRepo) ListSubscribersForSources(context.Context, []string) ([]*domain.Subscriber, error) {
	return r.subscribers, nil
}

func (r *fakeRepo) ListDownvotedEmbeddings(_ context.Context, subscriberID string) ([][]float32, error) {
	return r.downvoted[subscriberID], nil
}

func (r *fakeRepo) InsertAlert(_ context.Context, alert *domain.AlertRecord) error {
	r.alerts = append(r.alerts, *alert)

	return nil
}

func (r *fakeRepo) ListPopularityCandidates(context.Context, int) ([]*domain.Cluster, error) {
	return r.popularity, nil
}

func (r *fakeRepo) SetPopularityWatermark(_ context.Context, clusterID string, mentions int) error {
	if mentions > r.watermarks[clusterID] {
		r.watermarks[clusterID] = mentions
	}

	return nil
}

func (r *fakeRepo) ListEngagementSpikes(context.Context, time.Time, time.Time, float64, int) ([]storage.EngagementSpike, error) {
	return r.spikes, nil
}

func (r *fakeRepo) HasAlertOfKind(_ context.Context, clusterID, kind string) (bool, error) {
	return r.existing[clusterID+"/"+kind], nil
}

func (r *fakeRepo) GetCluster(_ context.Context, id string) (*domain.Cluster, error) {
	if c, ok := r.clusters[id]; ok {
		return c, nil
	}

	return nil, coreerrors.ErrClusterNotFound
}

type recordingNotifier struct {
	gateway.Mock
	events *[]string
}

func (n *recordingNotifier) Send(ctx context.Context, sub *domain.Subscriber, msg gateway.Message) error {
	*n.events = append(*n.events, "send:"+msg.Kind)

	return n.Mock.Send(ctx, sub, msg)
}

func selectorConfig() *config.Config {
	cfg := pipelineConfig()
	cfg.ClusterWindowHours = 96
	cfg.AlertBatchLimit = 20
	cfg.PopularityBatchLimit = 20
	cfg.PersonalizedScoreFloor = 0.50
	cfg.DislikeSimilarity = 0.86
	cfg.ReactionsMultiplier = 3.0
	cfg.BusinessImpactThreshold = 0.75

	return cfg
}

func subscriber(id string) *domain.Subscriber {
	return &domain.Subscriber{
		ID:                     id,
		ChatID:                 1,
		IncludeTechUpdates:     true,
		IncludeIndustryReports: true,
	}
}

type disabledAssessor struct{}

func (disabledAssessor) Assess(context.Context, *domain.Cluster) (impact.Assessment, bool) {
	return impact.Assessment{}, false
}
func (disabledAssessor) ResetCycle() {}

func newTestSelector(repo *fakeRepo, notifier gateway.Notifier) *Selector {
	logger := zerolog.Nop()
	s := NewSelector(repo, llm.NewMock(), disabledAssessor{}, notifier, selectorConfig(), &logger)
	s.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }

	return s
}

func strongCluster(id string) *domain.Cluster {
	c := cluster(id, domain.CategoryProduct, 0.9, 0.9, 3)
	c.SmallTeam = true
	c.CanonicalSummary = "vendor ships agent runtime"
	c.SourceIDs = []string{"src-a"}

	return c
}

func TestSelectAndDispatchMarksBeforeDelivery(t *testing.T) {
	repo := newSelectorRepo()
	repo.candidates = []*domain.Cluster{strongCluster("c1")}
	repo.subscribers = []*domain.Subscriber{subscriber("s1")}

	notifier := &recordingNotifier{events: &repo.events}
	selector := newTestSelector(repo, notifier)

	delivered, err := selector.SelectAndDispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	require.GreaterOrEqual(t, len(repo.events), 2)
	assert.Equal(t, "mark:c1", repo.events[0], "first-notified mark must precede delivery")
	require.Len(t, repo.alerts, 1)
	assert.Equal(t, "c1", repo.alerts[0].ClusterID)
}

func TestSelectAndDispatchWatermarkInitialized(t *testing.T) {
	repo := newSelectorRepo()
	c := strongCluster("c1")
	c.MentionCount = 4
	repo.candidates = []*domain.Cluster{c}
	repo.subscribers = []*domain.Subscriber{subscriber("s1")}

	selector := newTestSelector(repo, &gateway.Mock{})

	_, err := selector.SelectAndDispatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, repo.watermarks["c1"], "watermark starts at the mention count of the first alert")
}

func TestSelectAndDispatchBuildabilityGate(t *testing.T) {
	repo := newSelectorRepo()
	c := strongCluster("c1")
	c.SmallTeam = false
	c.InfraBarrier = domain.TierHigh
	repo.candidates = []*domain.Cluster{c}
	repo.subscribers = []*domain.Subscriber{subscriber("s1")}

	selector := newTestSelector(repo, &gateway.Mock{})

	delivered, err := selector.SelectAndDispatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, delivered)
	assert.Empty(t, repo.notified, "non-buildable clusters are not claimed")
}

func TestFanOutPersonalizationFloor(t *testing.T) {
	repo := newSelectorRepo()
	// 0.55*0.3 + 0.30*0.55 + 0.15*0.5 + 0.08 = 0.485, just under the floor
	weak := cluster("c1", domain.CategoryProduct, 0.3, 0.55, 3)
	weak.SmallTeam = true
	weak.SourceIDs = []string{"src-a"}
	repo.candidates = []*domain.Cluster{weak}
	repo.subscribers = []*domain.Subscriber{subscriber("s1")}

	selector := newTestSelector(repo, &gateway.Mock{})

	delivered, err := selector.SelectAndDispatch(context.Background())
	require.NoError(t, err)

	assert.Zero(t, delivered, "below-floor personalized score suppresses the alert")
	assert.Contains(t, repo.notified, "c1", "the cluster is still claimed even when every subscriber is filtered")
}

func TestFanOutImportantBypassesFloor(t *testing.T) {
	repo := newSelectorRepo()
	// Personalized 0.055 + 0.24 + 0.075 + 0.08 = 0.45, below the floor,
	// but the overlay marks it important and importance bypasses the floor.
	c := cluster("c1", domain.CategoryProduct, 0.1, 0.8, 3)
	c.Priority = domain.TierMedium
	c.SmallTeam = true
	c.AlertWorthy = true
	repo.candidates = []*domain.Cluster{c}
	repo.subscribers = []*domain.Subscriber{subscriber("s1")}

	selector := newTestSelector(repo, &gateway.Mock{})

	delivered, err := selector.SelectAndDispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	require.Len(t, repo.alerts, 1)
	assert.Equal(t, domain.AlertKindImportant, repo.alerts[0].Kind)
}

func TestFanOutCategoryOptOut(t *testing.T) {
	repo := newSelectorRepo()
	c := cluster("c1", domain.CategoryTechUpdate, 0.9, 0.0, 3)
	c.SmallTeam = true
	repo.candidates = []*domain.Cluster{c}

	sub := subscriber("s1")
	sub.IncludeTechUpdates = false
	repo.subscribers = []*domain.Subscriber{sub}

	selector := newTestSelector(repo, &gateway.Mock{})

	delivered, err := selector.SelectAndDispatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, delivered)
}

func TestFanOutDislikeSuppression(t *testing.T) {
	repo := newSelectorRepo()
	c := strongCluster("c1")
	c.Embedding = []float32{1, 0, 0}
	repo.candidates = []*domain.Cluster{c}
	repo.subscribers = []*domain.Subscriber{subscriber("s1")}
	repo.downvoted["s1"] = [][]float32{{1, 0, 0}}

	selector := newTestSelector(repo, &gateway.Mock{})

	delivered, err := selector.SelectAndDispatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, delivered, "near-identical downvoted story is suppressed")
}

func TestDispatchPopularityAdvancesWatermark(t *testing.T) {
	repo := newSelectorRepo()
	c := strongCluster("c1")
	c.MentionCount = 8
	c.PopularityNotifiedMentions = 3
	now := time.Now()
	c.FirstNotifiedAt = &now
	repo.popularity = []*domain.Cluster{c}
	repo.subscribers = []*domain.Subscriber{subscriber("s1")}

	selector := newTestSelector(repo, &gateway.Mock{})

	delivered, err := selector.SelectAndDispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 8, repo.watermarks["c1"])
	require.Len(t, repo.alerts, 1)
	assert.Equal(t, domain.AlertKindTrend, repo.alerts[0].Kind)
}

func TestDispatchReactionsOncePerCluster(t *testing.T) {
	repo := newSelectorRepo()
	c := strongCluster("c1")
	repo.clusters["c1"] = c
	repo.subscribers = []*domain.Subscriber{subscriber("s1")}
	repo.spikes = []storage.EngagementSpike{
		{Item: domain.Item{ID: "i1", SourceID: "src-a", ClusterID: "c1", Summary: "hot post", Engagement: 40}, SourceAverage: 5},
		{Item: domain.Item{ID: "i2", SourceID: "src-a", ClusterID: "c2", Summary: "old news", Engagement: 50}, SourceAverage: 5},
	}
	repo.clusters["c2"] = strongCluster("c2")
	repo.existing["c2/"+domain.AlertKindReactions] = true

	selector := newTestSelector(repo, &gateway.Mock{})

	delivered, err := selector.SelectAndDispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	require.Len(t, repo.alerts, 1)
	assert.Equal(t, domain.AlertKindReactions, repo.alerts[0].Kind)
	assert.Equal(t, "c1", repo.alerts[0].ClusterID)
}

func TestDispatchReactionsSkipsFailedClusterLookup(t *testing.T) {
	repo := newSelectorRepo()
	repo.clusters["c2"] = strongCluster("c2")
	repo.subscribers = []*domain.Subscriber{subscriber("s1")}
	repo.spikes = []storage.EngagementSpike{
		{Item: domain.Item{ID: "i1", SourceID: "src-a", ClusterID: "gone", Summary: "orphaned", Engagement: 40}, SourceAverage: 5},
		{Item: domain.Item{ID: "i2", SourceID: "src-a", ClusterID: "c2", Summary: "hot post", Engagement: 45}, SourceAverage: 5},
	}

	selector := newTestSelector(repo, &gateway.Mock{})

	delivered, err := selector.SelectAndDispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, delivered, "a failed lookup skips the spike, the rest of the batch still goes out")
	require.Len(t, repo.alerts, 1)
	assert.Equal(t, "c2", repo.alerts[0].ClusterID)
}
