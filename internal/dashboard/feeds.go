package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/perpdebt/vault-engine/internal/auction"
	"github.com/perpdebt/vault-engine/internal/metrics"
	"github.com/perpdebt/vault-engine/internal/poll"
	"github.com/perpdebt/vault-engine/internal/store"
)

// Snapshotter builds the values pushed on live feeds.
type Snapshotter interface {
	AuctionQuote(ctx context.Context, auctionID string, elapsed *uint64) (auction.PriceQuote, error)
	Health(ctx context.Context, vaultID string) (*HealthView, error)
}

// Publisher delivers a frame to a topic's subscribers.
type Publisher interface {
	Publish(topic Topic, msg Message)
}

type feed struct {
	refs   int
	job    *poll.Job
	ctx    context.Context
	cancel context.CancelFunc
}

// Feeds runs one recurring recomputation per subscribed topic. A feed starts
// with its first subscriber and stops with its last. Auction feeds also stop
// on their own once the auction has ended.
type Feeds struct {
	src      Snapshotter
	pub      Publisher
	interval time.Duration
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	feeds map[Topic]*feed
}

// NewFeeds creates an idle feed set. Close stops every job.
func NewFeeds(src Snapshotter, pub Publisher, interval time.Duration, logger *slog.Logger) *Feeds {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Feeds{
		src:      src,
		pub:      pub,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		feeds:    make(map[Topic]*feed),
	}
}

// Acquire adds a subscriber to topic, starting its job if needed. A job that
// stopped on its own is restarted so the new subscriber still gets a frame.
func (f *Feeds) Acquire(topic Topic) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ctx.Err() != nil {
		return
	}
	if fd, ok := f.feeds[topic]; ok {
		fd.refs++
		if fd.ctx.Err() != nil {
			fd.job.Stop()
			f.start(topic, fd)
			f.logger.Info("feed restarted", "topic", topic.String())
		}
		return
	}

	fd := &feed{refs: 1}
	f.start(topic, fd)
	f.feeds[topic] = fd
	metrics.ActiveFeeds.Inc()
	f.logger.Info("feed started", "topic", topic.String())
}

// start runs a new job for fd. The job cancels its own context once the
// topic has nothing more to follow.
func (f *Feeds) start(topic Topic, fd *feed) {
	ctx, cancel := context.WithCancel(f.ctx)
	fd.ctx, fd.cancel = ctx, cancel
	fd.job = poll.Every(ctx, f.interval, func(ctx context.Context) {
		if f.tick(ctx, topic) {
			cancel()
		}
	})
}

// Release removes a subscriber from topic, stopping its job with the last.
func (f *Feeds) Release(topic Topic) {
	f.mu.Lock()
	fd, ok := f.feeds[topic]
	if !ok {
		f.mu.Unlock()
		return
	}
	fd.refs--
	if fd.refs > 0 {
		f.mu.Unlock()
		return
	}
	delete(f.feeds, topic)
	f.mu.Unlock()

	f.stop(topic, fd)
}

// Close stops every job and rejects further subscriptions.
func (f *Feeds) Close() {
	f.cancel()

	f.mu.Lock()
	feeds := f.feeds
	f.feeds = make(map[Topic]*feed)
	f.mu.Unlock()

	for topic, fd := range feeds {
		f.stop(topic, fd)
	}
}

func (f *Feeds) stop(topic Topic, fd *feed) {
	fd.cancel()
	fd.job.Stop()
	metrics.ActiveFeeds.Dec()
	f.logger.Info("feed stopped", "topic", topic.String())
}

// Subscribers returns the subscriber count of topic.
func (f *Feeds) Subscribers(topic Topic) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fd, ok := f.feeds[topic]; ok {
		return fd.refs
	}
	return 0
}

// Running reports whether topic has a job that is still ticking.
func (f *Feeds) Running(topic Topic) bool {
	f.mu.Lock()
	fd, ok := f.feeds[topic]
	f.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case <-fd.job.Done():
		return false
	default:
		return true
	}
}

// tick recomputes and publishes one snapshot. It reports whether the feed
// has nothing more to follow.
func (f *Feeds) tick(ctx context.Context, topic Topic) bool {
	start := time.Now()
	switch topic.Kind {
	case TopicAuction:
		quote, err := f.src.AuctionQuote(ctx, topic.ID, nil)
		metrics.ObserveRecompute("auction", start, err)
		if err != nil {
			return f.failed(ctx, topic, err)
		}
		f.pub.Publish(topic, Message{Type: "auction_price", Topic: topic.String(), Data: quote})
		return quote.Status == auction.Ended

	case TopicVault:
		view, err := f.src.Health(ctx, topic.ID)
		metrics.ObserveRecompute("health", start, err)
		if err != nil {
			return f.failed(ctx, topic, err)
		}
		f.pub.Publish(topic, Message{Type: "vault_health", Topic: topic.String(), Data: view})
		return false
	}
	return true
}

// failed reports a tick error to subscribers. Missing entities end the feed;
// other errors are retried on the next tick.
func (f *Feeds) failed(ctx context.Context, topic Topic, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	if store.IsNotFound(err) {
		f.pub.Publish(topic, Message{Type: "error", Topic: topic.String(), Error: err.Error()})
		return true
	}
	f.logger.Warn("feed tick failed", "topic", topic.String(), "err", err)
	f.pub.Publish(topic, Message{Type: "error", Topic: topic.String(), Error: "recompute failed"})
	return false
}
