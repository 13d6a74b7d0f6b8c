package sync

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Collection names used on the change-notification channels.
const (
	CollectionGrades      = "grades"
	CollectionCredentials = "credentials"
)

func channelName(collection, partitionID string) string {
	return fmt.Sprintf("sync:%s:%s", collection, partitionID)
}

// Notifier publishes change events after committed writes. Each event only
// says "this collection changed"; subscribers reload the full snapshot.
type Notifier struct {
	client *redis.Client
	logger *zap.Logger
}

// NewNotifier constructs a notifier.
func NewNotifier(client *redis.Client, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{client: client, logger: logger}
}

// Publish emits a change event for the collection within a partition. A
// failed publish is logged, not surfaced: the write already committed and
// the mirror catches up on the next event or restart.
func (n *Notifier) Publish(ctx context.Context, collection, partitionID string) {
	if n.client == nil {
		return
	}
	if err := n.client.Publish(ctx, channelName(collection, partitionID), "changed").Err(); err != nil {
		n.logger.Warn("publish change event failed",
			zap.String("collection", collection),
			zap.String("partition", partitionID),
			zap.Error(err))
	}
}

// Reloader is the mirror surface a watcher drives.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Watcher subscribes to one collection's change channel and reloads the
// mirror on every event. It runs until the context is cancelled.
type Watcher struct {
	client      *redis.Client
	collection  string
	partitionID string
	mirror      Reloader
	logger      *zap.Logger
}

// NewWatcher constructs a watcher for the collection/partition pair.
func NewWatcher(client *redis.Client, collection, partitionID string, mirror Reloader, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{client: client, collection: collection, partitionID: partitionID, mirror: mirror, logger: logger}
}

// Run performs the initial load then follows the change stream. The
// subscription is torn down when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.mirror.Reload(ctx); err != nil {
		return fmt.Errorf("initial load of %s: %w", w.collection, err)
	}

	if w.client == nil {
		<-ctx.Done()
		return nil
	}

	pubsub := w.client.Subscribe(ctx, channelName(w.collection, w.partitionID))
	defer pubsub.Close()

	events := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				return nil
			}
			if err := w.mirror.Reload(ctx); err != nil {
				w.logger.Warn("mirror reload failed",
					zap.String("collection", w.collection),
					zap.Error(err))
			}
		}
	}
}
