package qdrantstore

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-ai/lumina/internal/domain"
)

func TestPointID_StableAndDistinct(t *testing.T) {
	a := pointID("report.pdf_0")
	assert.Equal(t, a, pointID("report.pdf_0"))
	assert.NotEqual(t, a, pointID("report.pdf_1"))
}

func TestBuildPoints_HitToMatch(t *testing.T) {
	items := []domain.ChunkItem{{
		ID:        "report.pdf_3",
		Text:      "नमस्ते संसार",
		Embedding: []float32{0.1, 0.2, 0.3},
		Metadata:  domain.ChunkMetadata{Filename: "report.pdf", Index: 3, EmbeddingModel: "m1"},
	}}

	points, err := buildPoints(items)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, pointID("report.pdf_3"), points[0].GetId().GetUuid())

	hit := &qdrant.ScoredPoint{
		Id:      points[0].GetId(),
		Payload: points[0].GetPayload(),
		Score:   0.87,
	}
	m := hitToMatch(hit)
	assert.Equal(t, "report.pdf_3", m.ID)
	assert.Equal(t, "नमस्ते संसार", m.Text)
	assert.Equal(t, domain.ChunkMetadata{Filename: "report.pdf", Index: 3, EmbeddingModel: "m1"}, m.Metadata)
	assert.InDelta(t, 0.87, m.Score, 1e-6)
}

func TestBuildPoints_CopiesVector(t *testing.T) {
	emb := []float32{1, 2}
	points, err := buildPoints([]domain.ChunkItem{{ID: "a_0", Embedding: emb}})
	require.NoError(t, err)
	emb[0] = 99
	assert.Equal(t, []float32{1, 2}, points[0].GetVectors().GetVector().GetDense().GetData())
}
