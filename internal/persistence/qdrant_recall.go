package persistence

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// payloadSessionField stores the original session id in the point payload,
// since Qdrant point ids must be a UUID or a positive integer. payloadWorkspaceField
// scopes recall search to one workspace, since a single Qdrant collection
// holds summaries for every tenant.
const (
	payloadSessionField   = "_session_id"
	payloadWorkspaceField = "_workspace"
)

// QdrantRecallStore is the RECALL_VECTOR_BACKEND=qdrant alternative to
// SessionStore's pgvector-based SearchRecall/UpdateSummary pair. It keeps
// session summary vectors in a Qdrant collection instead of the
// orchestrator_sessions.summary_vector column.
type QdrantRecallStore struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// NewQdrantRecallStore dials Qdrant's gRPC API (default port 6334) and
// ensures the summary collection exists with cosine distance.
func NewQdrantRecallStore(ctx context.Context, addr, apiKey, collection string, dimension int) (*QdrantRecallStore, error) {
	if collection == "" {
		collection = "session_summaries"
	}
	parsed, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant addr: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = addr
	}
	port := 6334
	if p := parsed.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}
	cfg := &qdrant.Config{Host: host, Port: port}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("new qdrant client: %w", err)
	}
	q := &QdrantRecallStore{client: client, collection: collection, dimension: dimension}
	if err := q.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return q, nil
}

func (q *QdrantRecallStore) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		return nil
	}
	return q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func (q *QdrantRecallStore) UpsertSummary(ctx context.Context, workspace, sessionID, summary string, vector []float32) error {
	pointID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(sessionID)).String()
	payload := qdrant.NewValueMap(map[string]any{
		payloadSessionField:   sessionID,
		payloadWorkspaceField: workspace,
		"summary":             summary,
	})
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(pointID),
			Vectors: qdrant.NewVectorsDense(vector),
			Payload: payload,
		}},
	})
	return err
}

// SearchRecall queries the top-k nearest summaries for workspace, excluding
// excludeSessionID. It over-fetches (k plus the workspace/exclude filtering
// margin) since Qdrant's own filter-on-payload is not used here to keep the
// query shape identical across backends; results are narrowed client-side.
func (q *QdrantRecallStore) SearchRecall(ctx context.Context, workspace, excludeSessionID string, vector []float32, k int) ([]RecallHit, error) {
	if k <= 0 {
		k = 3
	}
	limit := uint64(k * 4)
	result, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}
	out := make([]RecallHit, 0, k)
	for _, hit := range result {
		var sessionID, summary, ws string
		if hit.Payload != nil {
			if v, ok := hit.Payload[payloadSessionField]; ok {
				sessionID = v.GetStringValue()
			}
			if v, ok := hit.Payload[payloadWorkspaceField]; ok {
				ws = v.GetStringValue()
			}
			if v, ok := hit.Payload["summary"]; ok {
				summary = v.GetStringValue()
			}
		}
		if sessionID == excludeSessionID || ws != workspace {
			continue
		}
		out = append(out, RecallHit{SessionID: sessionID, Summary: summary, Score: float64(hit.Score)})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func (q *QdrantRecallStore) Close() error {
	return q.client.Close()
}
