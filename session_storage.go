package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go-policy-wizard/wizard"

	"github.com/redis/go-redis/v9"
)

// Should be safe to use in concurrency
type SessionStorage interface {
	// Store the snapshot for the given session id.
	// Should not return an error when the value already exists,
	// it should just update in that case.
	StoreSession(sessionId string, snapshot wizard.Snapshot) error

	// Should retrieve the snapshot for the given session id
	// and return an error in any case where it fails to do so.
	RetrieveSession(sessionId string) (wizard.Snapshot, error)

	// Should remove the snapshot and return an error if it fails to do so.
	// The value not being there should also be considered an error.
	RemoveSession(sessionId string) error
}

type InMemorySessionStorage struct {
	SessionMap map[string]wizard.Snapshot
	mutex      sync.Mutex
}

func NewInMemorySessionStorage() *InMemorySessionStorage {
	return &InMemorySessionStorage{
		SessionMap: make(map[string]wizard.Snapshot),
	}
}

type RedisSessionStorage struct {
	client    *redis.Client
	namespace string
}

func NewRedisSessionStorage(client *redis.Client, namespace string) *RedisSessionStorage {
	return &RedisSessionStorage{client: client, namespace: namespace}
}

// ------------------------------------------------------------------------------

func createKey(namespace, sessionId string) string {
	return fmt.Sprintf("%s:session:%s", namespace, sessionId)
}

const SessionTTL time.Duration = 24 * time.Hour

func (s *RedisSessionStorage) StoreSession(sessionId string, snapshot wizard.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}
	ctx := context.Background()
	return s.client.Set(ctx, createKey(s.namespace, sessionId), payload, SessionTTL).Err()
}

func (s *RedisSessionStorage) RetrieveSession(sessionId string) (wizard.Snapshot, error) {
	ctx := context.Background()
	payload, err := s.client.Get(ctx, createKey(s.namespace, sessionId)).Bytes()
	if err != nil {
		return wizard.Snapshot{}, err
	}
	var snapshot wizard.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return wizard.Snapshot{}, fmt.Errorf("failed to unmarshal session snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *RedisSessionStorage) RemoveSession(sessionId string) error {
	ctx := context.Background()
	return s.client.Del(ctx, createKey(s.namespace, sessionId)).Err()
}

// ------------------------------------------------------------------------------

func (s *InMemorySessionStorage) StoreSession(sessionId string, snapshot wizard.Snapshot) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.SessionMap[sessionId] = snapshot
	return nil
}

func (s *InMemorySessionStorage) RetrieveSession(sessionId string) (wizard.Snapshot, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if snapshot, ok := s.SessionMap[sessionId]; ok {
		return snapshot, nil
	}
	return wizard.Snapshot{}, fmt.Errorf("failed to find session for %s", sessionId)
}

func (s *InMemorySessionStorage) RemoveSession(sessionId string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.SessionMap[sessionId]; ok {
		delete(s.SessionMap, sessionId)
		return nil
	}
	return fmt.Errorf("failed to remove session for %s, because it wasn't there", sessionId)
}
