package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"alfredoptarigan/talent-matcher/internal/logger"
	"alfredoptarigan/talent-matcher/internal/models"
)

const (
	payloadProfileID = "profile_id"
	payloadKind      = "kind"
	payloadActive    = "active"
	payloadLocation  = "location"
	payloadTitle     = "title"
)

// VectorIndex is the nearest-neighbor store holding one point per profile.
type VectorIndex interface {
	InitCollection(ctx context.Context) error
	UpsertProfile(ctx context.Context, profile *models.Profile, embedding []float32) error
	SearchSimilar(ctx context.Context, queryEmbedding []float32, kind models.ProfileKind, limit int) ([]VectorMatch, error)
	DeleteProfile(ctx context.Context, id uuid.UUID) error
}

type VectorMatch struct {
	ProfileID uuid.UUID
	Score     float32
}

type qdrantIndex struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	log            *zap.Logger
}

func NewQdrantIndex(urlStr, apiKey, collectionName string, vectorSize int, log *zap.Logger) (VectorIndex, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantIndex{
		client:         client,
		collectionName: collectionName,
		vectorSize:     uint64(vectorSize),
		log:            logger.OrNop(log).With(zap.String(logger.FieldCollection, collectionName)),
	}, nil
}

// InitCollection creates the collection and its payload indexes when missing.
func (q *qdrantIndex) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		q.log.Info("qdrant collection already exists")
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	indexes := map[string]qdrant.FieldType{
		payloadKind:   qdrant.FieldType_FieldTypeKeyword,
		payloadActive: qdrant.FieldType_FieldTypeBool,
	}
	for field, fieldType := range indexes {
		_, err := q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: q.collectionName,
			FieldName:      field,
			FieldType:      fieldType.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create %s payload index: %w", field, err)
		}
	}

	q.log.Info("qdrant collection created", zap.Uint64("vector_size", q.vectorSize))
	return nil
}

// UpsertProfile stores the profile's point under its own ID so repeated
// upserts replace rather than duplicate it.
func (q *qdrantIndex) UpsertProfile(ctx context.Context, profile *models.Profile, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("profile %s has no embedding", profile.ID)
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(profile.ID.String()),
		Vectors: qdrant.NewVectors(embedding...),
		Payload: qdrant.NewValueMap(map[string]any{
			payloadProfileID: profile.ID.String(),
			payloadKind:      string(profile.Kind),
			payloadActive:    profile.Active,
			payloadLocation:  profile.Location,
			payloadTitle:     profile.Title,
		}),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}

	return nil
}

// SearchSimilar returns the nearest active profiles of kind, best first.
func (q *qdrantIndex) SearchSimilar(ctx context.Context, queryEmbedding []float32, kind models.ProfileKind, limit int) ([]VectorMatch, error) {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatchBool(payloadActive, true),
		},
	}
	if kind != "" {
		filter.Must = append(filter.Must, qdrant.NewMatch(payloadKind, string(kind)))
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	matches := make([]VectorMatch, 0, len(points))
	for _, point := range points {
		id, ok := pointProfileID(point)
		if !ok {
			q.log.Warn("skipping point without profile id")
			continue
		}
		matches = append(matches, VectorMatch{ProfileID: id, Score: point.Score})
	}

	return matches, nil
}

func (q *qdrantIndex) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{
					Ids: []*qdrant.PointId{qdrant.NewID(id.String())},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete profile point: %w", err)
	}

	return nil
}

func pointProfileID(point *qdrant.ScoredPoint) (uuid.UUID, bool) {
	if raw := point.GetId().GetUuid(); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return id, true
		}
	}

	if value, ok := point.GetPayload()[payloadProfileID]; ok {
		if id, err := uuid.Parse(value.GetStringValue()); err == nil {
			return id, true
		}
	}

	return uuid.Nil, false
}
