package jobqueue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageJSONRoundTrip(t *testing.T) {
	m := Message{JobID: "job-1", Type: TypeDocument}
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	require.JSONEq(t, `{"job_id":"job-1","type":"document"}`, string(raw))

	var out Message
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Equal(t, m, out)
}

func TestNewConsumerDefaultsWorkerCountAndRedeliveries(t *testing.T) {
	c := NewConsumer([]string{"localhost:9092"}, "ingest-worker", []string{"ingest.document", "ingest.codebase"}, nil, nil, 0, 0)
	require.Equal(t, 4, c.workerCount)
	require.Equal(t, 3, c.maxRedeliveries)
	require.Len(t, c.readers, 2)
}

func TestNewConsumerHonorsExplicitValues(t *testing.T) {
	c := NewConsumer([]string{"localhost:9092"}, "ingest-worker", []string{"ingest.document"}, nil, nil, 8, 5)
	require.Equal(t, 8, c.workerCount)
	require.Equal(t, 5, c.maxRedeliveries)
}
