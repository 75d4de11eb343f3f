package dashboard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/perpdebt/vault-engine/internal/vaultid"
)

// ErrInvalidTopic is returned by ParseTopic.
var ErrInvalidTopic = errors.New("dashboard: invalid topic")

// TopicKind names what a live feed follows.
type TopicKind string

const (
	TopicAuction TopicKind = "auction"
	TopicVault   TopicKind = "vault"
)

// Topic is one live feed: "auction:<id>" or "vault:<vault id>".
type Topic struct {
	Kind TopicKind
	ID   string
}

// ParseTopic validates a topic string. Vault IDs are canonicalized so that
// differently cased subscriptions share one feed.
func ParseTopic(s string) (Topic, error) {
	kind, id, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || id == "" {
		return Topic{}, fmt.Errorf("%w: %q", ErrInvalidTopic, s)
	}
	switch TopicKind(kind) {
	case TopicAuction:
		return Topic{Kind: TopicAuction, ID: id}, nil
	case TopicVault:
		canonical, err := vaultid.Canonical(id)
		if err != nil {
			return Topic{}, fmt.Errorf("%w: %v", ErrInvalidTopic, err)
		}
		return Topic{Kind: TopicVault, ID: canonical}, nil
	default:
		return Topic{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidTopic, kind)
	}
}

func (t Topic) String() string {
	return string(t.Kind) + ":" + t.ID
}
