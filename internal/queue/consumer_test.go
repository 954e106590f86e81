package queue

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

type captureIngestor struct {
    batches [][]model.TelemetrySample
    err     error
}

func (c *captureIngestor) Ingest(ctx context.Context, samples []model.TelemetrySample) error {
    c.batches = append(c.batches, samples)
    return c.err
}

func TestHandleBatchDecodesDetections(t *testing.T) {
    ing := &captureIngestor{}
    body := []byte(`{
        "device_id": "cam-2",
        "observed_at": "2026-09-01T19:00:00Z",
        "detections": [
            {"table_id": 1, "person_count": 2, "confidence": 0.94},
            {"table_id": 3, "person_count": 0}
        ]
    }`)

    require.NoError(t, handleBatch(context.Background(), ing, body))
    require.Len(t, ing.batches, 1)

    samples := ing.batches[0]
    require.Len(t, samples, 2)
    assert.Equal(t, uint64(1), samples[0].TableID)
    assert.Equal(t, uint32(2), samples[0].PersonCount)
    require.NotNil(t, samples[0].Confidence)
    assert.InDelta(t, 0.94, *samples[0].Confidence, 1e-9)
    assert.Equal(t, time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC), samples[0].ObservedAt)

    assert.Equal(t, uint64(3), samples[1].TableID)
    assert.Equal(t, uint32(0), samples[1].PersonCount)
    assert.Nil(t, samples[1].Confidence)
}

func TestHandleBatchRejectsMalformedJSON(t *testing.T) {
    ing := &captureIngestor{}
    err := handleBatch(context.Background(), ing, []byte(`{not json`))
    assert.Error(t, err)
    assert.Empty(t, ing.batches)
}

func TestHandleBatchEmptyDetectionsIsNoOp(t *testing.T) {
    ing := &captureIngestor{}
    require.NoError(t, handleBatch(context.Background(), ing, []byte(`{"device_id":"cam-1","detections":[]}`)))
    assert.Empty(t, ing.batches)
}

func TestHandleBatchMissingTimestampDefaultsToNow(t *testing.T) {
    ing := &captureIngestor{}
    body := []byte(`{"device_id":"cam-1","detections":[{"table_id":1,"person_count":1}]}`)

    before := time.Now().UTC()
    require.NoError(t, handleBatch(context.Background(), ing, body))
    after := time.Now().UTC()

    require.Len(t, ing.batches, 1)
    got := ing.batches[0][0].ObservedAt
    assert.False(t, got.Before(before))
    assert.False(t, got.After(after))
}
