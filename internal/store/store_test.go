package store

import (
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaydestro/GitHubRepoStats/internal/domain"
)

func TestDocumentID_Deterministic(t *testing.T) {
	// Repeated upserts of the same logical row must resolve to the same
	// generated id, or duplicates accumulate in the partitioned store.
	first := DocumentID("Myrepo", "TrafficStats", "2024-01-01")
	second := DocumentID("Myrepo", "TrafficStats", "2024-01-01")
	assert.Equal(t, first, second)
}

func TestDocumentID_DistinctPerScope(t *testing.T) {
	base := DocumentID("Myrepo", "TrafficStats", "2024-01-01")
	assert.NotEqual(t, base, DocumentID("Myrepo", "TrafficStats", "2024-01-02"))
	assert.NotEqual(t, base, DocumentID("Myrepo", "GitClones", "2024-01-01"))
	assert.NotEqual(t, base, DocumentID("Otherrepo", "TrafficStats", "2024-01-01"))
}

func TestIdentityValue(t *testing.T) {
	doc := domain.Document{
		"Referring site": "github.com",
		"FetchedAt":      "2024-01-01T00:00:00Z",
		"Views":          3,
	}

	key, err := identityValue(doc, []string{"Referring site", "FetchedAt"})
	require.NoError(t, err)
	assert.Equal(t, "github.com|2024-01-01T00:00:00Z", key)

	_, err = identityValue(doc, []string{"Path"})
	assert.Error(t, err)

	doc["Date"] = nil
	_, err = identityValue(doc, []string{"Date"})
	assert.Error(t, err)
}

func TestStripBookkeeping(t *testing.T) {
	doc := domain.Document{
		"Date":         "2024-01-01",
		"Views":        float64(10),
		"id":           "abc",
		"_rid":         "x",
		"_self":        "y",
		"_etag":        "z",
		"_attachments": "a",
		"_ts":          float64(1700000000),
	}
	got := stripBookkeeping(doc)
	assert.Equal(t, domain.Document{"Date": "2024-01-01", "Views": float64(10)}, got)
}

func TestIsTransientCosmos(t *testing.T) {
	testCases := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusRequestTimeout, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadRequest, false},
		{http.StatusConflict, false},
		{http.StatusNotFound, false},
	}
	for _, tc := range testCases {
		err := &azcore.ResponseError{StatusCode: tc.status}
		assert.Equalf(t, tc.transient, isTransientCosmos(err), "status %d", tc.status)
	}
	assert.False(t, isTransientCosmos(assert.AnError))
}

func TestIsCosmosStatus(t *testing.T) {
	err := &azcore.ResponseError{StatusCode: http.StatusConflict}
	assert.True(t, isCosmosStatus(err, http.StatusConflict))
	assert.False(t, isCosmosStatus(err, http.StatusNotFound))
	assert.False(t, isCosmosStatus(assert.AnError, http.StatusConflict))
}
