package core

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"flashconcards-backend/internal/db"
)

// MessageCleaner periodically deletes expired chat messages of every user and
// evicts idle orchestration sessions. Failures are logged and retried on the next tick.
type MessageCleaner struct {
	messageRepo db.MessageRepository
	sessions    *SessionStore
	ttl         time.Duration
	sessionTTL  time.Duration
	interval    time.Duration
	now         func() time.Time
	logger      *zap.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	started   chan struct{}
	stopChan  chan struct{}
	done      chan struct{}
}

// MessageCleanerConfig configures a MessageCleaner.
type MessageCleanerConfig struct {
	MessageTTL     time.Duration
	SessionIdleTTL time.Duration // 0 disables session eviction
	Interval       time.Duration
	Now            func() time.Time
}

// NewMessageCleaner creates a cleaner. Call Start to run it.
func NewMessageCleaner(messageRepo db.MessageRepository, sessions *SessionStore, cfg MessageCleanerConfig, logger *zap.Logger) *MessageCleaner {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageCleaner{
		messageRepo: messageRepo,
		sessions:    sessions,
		ttl:         cfg.MessageTTL,
		sessionTTL:  cfg.SessionIdleTTL,
		interval:    cfg.Interval,
		now:         cfg.Now,
		logger:      logger.With(zap.String("component", "message_cleaner")),
		started:     make(chan struct{}),
		stopChan:    make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start runs one sweep immediately and then one per interval until Stop is called.
func (c *MessageCleaner) Start() {
	c.startOnce.Do(c.start)
}

func (c *MessageCleaner) start() {
	close(c.started)
	c.logger.Info("Starting message cleaner", zap.Duration("interval", c.interval), zap.Duration("ttl", c.ttl))

	go func() {
		defer close(c.done)

		c.RunOnce(context.Background())

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.RunOnce(context.Background())
			case <-c.stopChan:
				c.logger.Info("Message cleaner stopped")
				return
			}
		}
	}()
}

// Stop stops the loop and waits for an in-flight sweep to finish.
func (c *MessageCleaner) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	select {
	case <-c.started:
		<-c.done
	default:
	}
}

// RunOnce performs a single sweep and returns the number of deleted messages.
func (c *MessageCleaner) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, c.interval)
	defer cancel()

	cutoff := c.now().Add(-c.ttl)
	deleted, err := c.messageRepo.DeleteAllOlderThan(ctx, cutoff)
	if err != nil {
		c.logger.Warn("Failed to delete expired messages", zap.Time("cutoff", cutoff), zap.Int("deleted", deleted), zap.Error(err))
	} else if deleted > 0 {
		c.logger.Info("Deleted expired messages", zap.Int("count", deleted))
	}

	if c.sessions != nil && c.sessionTTL > 0 {
		if n := c.sessions.EvictIdle(c.sessionTTL); n > 0 {
			c.logger.Debug("Evicted idle sessions", zap.Int("count", n), zap.Int("remaining", c.sessions.Len()))
		}
	}
	return deleted
}
