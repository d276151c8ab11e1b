package authoring

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toothbrush/webverse-authoring/aem"
)

func TestProvisionAllMarkets(t *testing.T) {
	b, fake := newTestBuilder(t)
	fake.PutNode(testTemplate, map[string]any{"jcr:primaryType": "cq:Page"})
	fake.PutNode("/content/buildeasy/mava/hcp-uk-drugx", nil)

	var progress bytes.Buffer
	results, err := b.Provision(context.Background(), ProvisionRequest{
		Drug:       "DrugX",
		SourcePath: testTemplate,
		Workers:    2,
	}, &progress)
	require.NoError(t, err)

	markets := []string{}
	for _, r := range results {
		markets = append(markets, r.Market)
	}
	assert.Equal(t, []string{"france", "germany", "india", "uk", "usa"}, markets)

	for _, r := range results {
		if r.Market == "uk" {
			assert.False(t, r.Success())
			assert.ErrorIs(t, r.Error, aem.ErrConflict)
			continue
		}
		assert.True(t, r.Success(), r.Market)
		assert.Equal(t, "/content/buildeasy/mava/hcp-"+r.Market+"-drugx", r.Path)
		assert.Equal(t, r.Market, fake.Node(r.Path+"/jcr:content")["marketRegion"])
	}
	assert.Contains(t, progress.String(), "markets:")
}

func TestProvisionSelectedMarkets(t *testing.T) {
	b, fake := newTestBuilder(t)
	fake.PutNode(testTemplate, nil)

	results, err := b.Provision(context.Background(), ProvisionRequest{
		SourcePath: testTemplate,
		Markets:    []string{"usa", "germany"},
	}, nil)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "germany", results[0].Market)
	assert.Equal(t, "/content/buildeasy/mava/hcp-usa", results[1].Path)
	assert.False(t, fake.Exists("/content/buildeasy/mava/hcp-india"))
}

func TestProvisionCancelled(t *testing.T) {
	b, fake := newTestBuilder(t)
	fake.PutNode(testTemplate, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Provision(ctx, ProvisionRequest{SourcePath: testTemplate}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProvisionValidation(t *testing.T) {
	b, fake := newTestBuilder(t)
	ctx := context.Background()

	_, err := b.Provision(ctx, ProvisionRequest{}, nil)
	requireValidation(t, err, "source_path")

	_, err = b.Provision(ctx, ProvisionRequest{SourcePath: testTemplate, Markets: []string{"mars"}}, nil)
	requireValidation(t, err, "markets")

	_, err = b.Provision(ctx, ProvisionRequest{SourcePath: testTemplate, Workers: -1}, nil)
	requireValidation(t, err, "workers")

	assert.Empty(t, fake.Requests())
}
