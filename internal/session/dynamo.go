package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pandacare-chat/internal/database"
	"pandacare-chat/internal/model"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ItemStore is the slice of the DynamoDB client the session table needs.
type ItemStore interface {
	PutItem(ctx context.Context, tableName string, item interface{}) error
	GetItem(ctx context.Context, tableName string, key map[string]types.AttributeValue, out interface{}) error
	DeleteItem(ctx context.Context, tableName string, key map[string]types.AttributeValue) error
}

type DynamoStore struct {
	items ItemStore
	ttl   time.Duration
	now   func() time.Time
}

func NewDynamoStore(db *database.Database, ttl time.Duration) *DynamoStore {
	return NewDynamoStoreWithItems(db.Client, ttl, nil)
}

func NewDynamoStoreWithItems(items ItemStore, ttl time.Duration, now func() time.Time) *DynamoStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &DynamoStore{items: items, ttl: ttl, now: now}
}

func sessionKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"sessionId": database.AttrString(id),
	}
}

func (d *DynamoStore) Get(ctx context.Context, id string) (*Session, error) {
	var item model.SessionItem
	if err := d.items.GetItem(ctx, model.SessionsTable, sessionKey(id), &item); err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session dynamo get: %w", err)
	}

	// DynamoDB TTL deletion lags by up to a couple of days.
	if item.ExpiresAt > 0 && d.now().Unix() >= item.ExpiresAt {
		return nil, ErrNotFound
	}

	updated, _ := time.Parse(time.RFC3339, item.UpdatedAt)
	return &Session{
		ID:           item.SessionID,
		AccessToken:  item.AccessToken,
		RefreshToken: item.RefreshToken,
		UserID:       item.UserID,
		UpdatedAt:    updated,
	}, nil
}

func (d *DynamoStore) Save(ctx context.Context, s *Session) error {
	if !s.Persistent() {
		return fmt.Errorf("session dynamo save: session id required")
	}
	now := d.now().UTC()
	s.UpdatedAt = now

	item := model.SessionItem{
		SessionID:    s.ID,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		UserID:       s.UserID,
		UpdatedAt:    now.Format(time.RFC3339),
		ExpiresAt:    now.Add(d.ttl).Unix(),
	}
	if err := d.items.PutItem(ctx, model.SessionsTable, item); err != nil {
		return fmt.Errorf("session dynamo save: %w", err)
	}
	return nil
}

func (d *DynamoStore) Delete(ctx context.Context, id string) error {
	if err := d.items.DeleteItem(ctx, model.SessionsTable, sessionKey(id)); err != nil {
		return fmt.Errorf("session dynamo delete: %w", err)
	}
	return nil
}
