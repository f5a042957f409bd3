package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paperwire/arxiv-ingest/internal/ingest"
	"github.com/paperwire/arxiv-ingest/internal/metrics"
	"github.com/paperwire/arxiv-ingest/internal/normalizer"
	memorypub "github.com/paperwire/arxiv-ingest/internal/publisher/memory"
	"github.com/paperwire/arxiv-ingest/internal/runstore"
	memorystore "github.com/paperwire/arxiv-ingest/internal/storage/memory"
	"github.com/paperwire/arxiv-ingest/internal/uploader"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>cs updates on arXiv.org</title>
    <item>
      <title>First Paper</title>
      <link>https://arxiv.org/abs/2408.00001</link>
      <guid isPermaLink="false">oai:arXiv.org:2408.00001v1</guid>
      <description>First abstract.</description>
      <dc:creator>A. Author</dc:creator>
    </item>
    <item>
      <title>Second Paper</title>
      <link>https://arxiv.org/abs/2408.00002</link>
      <guid isPermaLink="false">oai:arXiv.org:2408.00002v1</guid>
      <description>Second abstract.</description>
    </item>
    <item>
      <title>Unkeyed Entry</title>
      <link>https://example.com/elsewhere</link>
      <guid isPermaLink="false">urn:uuid:nothing-arxiv-here</guid>
    </item>
  </channel>
</rss>`

type stubFetcher struct {
	body string
	err  error
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) (string, error) {
	return f.body, f.err
}

func (f *stubFetcher) FeedURL(category string) string {
	return "https://rss.arxiv.org/rss/" + category
}

type fakeIDGen struct {
	next int
}

func (g *fakeIDGen) NewID() (string, error) {
	g.next++
	return fmt.Sprintf("run-%d", g.next), nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestPipeline(t *testing.T, fetcher FeedFetcher) (*Pipeline, *memorystore.BlobStore, *memorypub.Publisher) {
	t.Helper()
	metrics.Init()

	store := memorystore.NewBlobStore()
	clock := &fakeClock{now: time.Date(2026, 8, 26, 7, 0, 0, 0, time.UTC)}
	pub := memorypub.New()

	p := New(
		fetcher,
		normalizer.New(zap.NewNop()),
		uploader.New(store, uploader.Config{Namespace: "arxiv-data", Concurrency: 4}, zap.NewNop()),
		store,
		runstore.New(clock),
		pub,
		&fakeIDGen{},
		clock,
		Config{Namespace: "arxiv-data", Concurrency: 4, Topic: "ingest-runs"},
		zap.NewNop(),
	)
	return p, store, pub
}

func TestPipeline_Execute(t *testing.T) {
	p, store, pub := newTestPipeline(t, &stubFetcher{body: testFeed})

	input := ingest.RunInput{Category: "cs", ProcessDate: "2026-08-26"}
	output, err := p.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, "success", output.Status)
	assert.Equal(t, 2, output.ArticlesStored)
	assert.Equal(t, 0, output.ArticlesFailed)
	assert.Equal(t, "memory://arxiv-data/cs/ProcessDate=2026-08-26/rss_raw.xml", output.RawLocation)
	assert.Equal(t, "memory://arxiv-data/cs/ProcessDate=2026-08-26/meta.json", output.MetaLocation)

	raw, err := store.Get(context.Background(), "arxiv-data", "cs/ProcessDate=2026-08-26/rss_raw.xml")
	require.NoError(t, err)
	assert.Equal(t, testFeed, string(raw))

	article, err := store.Get(context.Background(), "arxiv-data", "cs/ProcessDate=2026-08-26/articles/2408.00001v1.json")
	require.NoError(t, err)
	record, err := ingest.DecodeRecord(article)
	require.NoError(t, err)
	assert.Equal(t, "First Paper", record.Title)
	assert.Equal(t, "A. Author", record.Creator)

	meta, err := store.Get(context.Background(), "arxiv-data", "cs/ProcessDate=2026-08-26/meta.json")
	require.NoError(t, err)
	var summary ingest.RunSummary
	require.NoError(t, json.Unmarshal(meta, &summary))
	assert.Equal(t, "cs", summary.Category)
	assert.Equal(t, "2026-08-26", summary.ProcessDate)
	assert.Equal(t, 2, summary.TotalArticles)
	assert.Equal(t, "2026-08-26T07:00:00Z", summary.ProcessedAt)
	assert.Equal(t, "https://rss.arxiv.org/rss/cs", summary.RSSSource)

	// Raw feed, two articles, meta.
	assert.Equal(t, 4, store.Len("arxiv-data"))

	messages := pub.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "ingest-runs", messages[0].Topic)
}

func TestPipeline_Execute_FetchFailure(t *testing.T) {
	p, store, _ := newTestPipeline(t, &stubFetcher{err: errors.New("upstream down")})

	_, err := p.Execute(context.Background(), ingest.RunInput{Category: "cs", ProcessDate: "2026-08-26"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch feed")
	assert.Equal(t, 0, store.Len("arxiv-data"))
}

func TestPipeline_Execute_PartialUploadFailure(t *testing.T) {
	p, store, _ := newTestPipeline(t, &stubFetcher{body: testFeed})
	store.FailNextPut("cs/ProcessDate=2026-08-26/articles/2408.00002v1.json", errors.New("write refused"))

	output, err := p.Execute(context.Background(), ingest.RunInput{Category: "cs", ProcessDate: "2026-08-26"})
	require.NoError(t, err)

	assert.Equal(t, 1, output.ArticlesStored)
	assert.Equal(t, 1, output.ArticlesFailed)

	// The summary counts only successfully stored articles.
	meta, err := store.Get(context.Background(), "arxiv-data", "cs/ProcessDate=2026-08-26/meta.json")
	require.NoError(t, err)
	var summary ingest.RunSummary
	require.NoError(t, json.Unmarshal(meta, &summary))
	assert.Equal(t, 1, summary.TotalArticles)
}

func TestPipeline_Execute_Rerun_Idempotent(t *testing.T) {
	p, store, _ := newTestPipeline(t, &stubFetcher{body: testFeed})

	input := ingest.RunInput{Category: "cs", ProcessDate: "2026-08-26"}
	_, err := p.Execute(context.Background(), input)
	require.NoError(t, err)
	_, err = p.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, 4, store.Len("arxiv-data"))
}

func TestPipeline_Start_TracksRunLifecycle(t *testing.T) {
	p, _, _ := newTestPipeline(t, &stubFetcher{body: testFeed})

	runID, err := p.Start(context.Background(), ingest.RunInput{Category: "cs", ProcessDate: "2026-08-26"})
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)

	require.Eventually(t, func() bool {
		run, err := p.Runs().Get(context.Background(), runID)
		return err == nil && run.Phase == ingest.RunSucceeded
	}, time.Second, 10*time.Millisecond)

	run, err := p.Runs().Get(context.Background(), runID)
	require.NoError(t, err)
	require.NotNil(t, run.Output)
	assert.Equal(t, 2, run.Output.ArticlesStored)
}

func TestPipeline_Start_FailedRunRecordsError(t *testing.T) {
	p, _, _ := newTestPipeline(t, &stubFetcher{err: errors.New("upstream down")})

	runID, err := p.Start(context.Background(), ingest.RunInput{Category: "cs", ProcessDate: "2026-08-26"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		run, err := p.Runs().Get(context.Background(), runID)
		return err == nil && run.Phase == ingest.RunFailed
	}, time.Second, 10*time.Millisecond)

	run, err := p.Runs().Get(context.Background(), runID)
	require.NoError(t, err)
	assert.Contains(t, run.ErrorText, "upstream down")
}

func TestDestPrefix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "cs/ProcessDate=2026-08-26", DestPrefix("cs", "2026-08-26"))
}
