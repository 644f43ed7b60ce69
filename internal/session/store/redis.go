package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sevasetu/internal/session/models"
	id "sevasetu/pkg/domain"
	"sevasetu/pkg/platform/sentinel"
)

// Redis keeps sessions as JSON values with a TTL matching the bearer cookie
// lifetime, so expiry needs no sweeper. Language/link updates use WATCH-based
// optimistic transactions: concurrent writers retry rather than clobbering
// each other's fields.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
}

const redisKeyPrefix = "session:"

func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func sessionKey(sessionID id.SessionID) string {
	return redisKeyPrefix + sessionID.String()
}

func (s *Redis) Create(ctx context.Context, session *models.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, sessionKey(session.ID), raw, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Redis) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *Redis) SetLanguage(ctx context.Context, sessionID id.SessionID, lang id.Language) error {
	return s.update(ctx, sessionID, func(session *models.Session) error {
		session.Language = lang
		return nil
	})
}

func (s *Redis) Link(ctx context.Context, sessionID id.SessionID, citizenID id.CitizenID, familyID string) (id.CitizenID, error) {
	var previous id.CitizenID
	err := s.update(ctx, sessionID, func(session *models.Session) error {
		previous = session.CitizenID
		session.CitizenID = citizenID
		session.FamilyID = familyID
		return nil
	})
	if err != nil {
		return id.CitizenID{}, err
	}
	return previous, nil
}

func (s *Redis) Deactivate(ctx context.Context, sessionID id.SessionID) error {
	return s.updateAllowInactive(ctx, sessionID, func(session *models.Session) error {
		session.Active = false
		return nil
	})
}

func (s *Redis) update(ctx context.Context, sessionID id.SessionID, mutate func(*models.Session) error) error {
	return s.transact(ctx, sessionID, func(session *models.Session) error {
		if !session.Active {
			return sentinel.ErrInvalidState
		}
		return mutate(session)
	})
}

func (s *Redis) updateAllowInactive(ctx context.Context, sessionID id.SessionID, mutate func(*models.Session) error) error {
	return s.transact(ctx, sessionID, mutate)
}

const watchRetries = 3

func (s *Redis) transact(ctx context.Context, sessionID id.SessionID, mutate func(*models.Session) error) error {
	client, ok := s.client.(*redis.Client)
	if !ok {
		// Cmdable without Watch support (e.g. a pipeline in tests): fall back
		// to read-modify-write; acceptable for non-production backends.
		return s.readModifyWrite(ctx, sessionID, mutate)
	}

	key := sessionKey(sessionID)
	var lastErr error
	for i := 0; i < watchRetries; i++ {
		lastErr = client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return sentinel.ErrNotFound
				}
				return err
			}
			var session models.Session
			if err := json.Unmarshal(raw, &session); err != nil {
				return fmt.Errorf("unmarshal session: %w", err)
			}
			if err := mutate(&session); err != nil {
				return err
			}
			updated, err := json.Marshal(&session)
			if err != nil {
				return fmt.Errorf("marshal session: %w", err)
			}
			ttl, err := tx.TTL(ctx, key).Result()
			if err != nil || ttl <= 0 {
				ttl = s.ttl
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			return err
		}, key)
		if !errors.Is(lastErr, redis.TxFailedErr) {
			return lastErr
		}
	}
	return lastErr
}

func (s *Redis) readModifyWrite(ctx context.Context, sessionID id.SessionID, mutate func(*models.Session) error) error {
	session, err := s.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := mutate(session); err != nil {
		return err
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.client.Set(ctx, sessionKey(sessionID), raw, redis.KeepTTL).Err()
}
