package sync

import (
	"sync"

	"github.com/cuemby/tessera/pkg/log"
	"github.com/cuemby/tessera/pkg/metrics"
	"github.com/cuemby/tessera/pkg/store"
	"github.com/cuemby/tessera/pkg/topic"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// updateBatchSize bounds how many datapoints a single Update message
// carries.
const updateBatchSize = 8

// Subscription is one binding between a topic subtree query and
// either a local interest (no ConnectionID) or a remote peer's
// interest (ConnectionID set) in datapoints under that subtree.
type Subscription struct {
	SubID        string
	ConnectionID string
	ClientName   string
	TopicQuery   topic.Key
	queue        []store.Datapoint
}

// IsMatch reports whether t falls under this subscription's query.
func (s *Subscription) IsMatch(t topic.Key) bool {
	return t.Matches(s.TopicQuery)
}

// Config describes the local side of a Sync: its own name and the set
// of topic subtrees it wants mirrored from every peer.
type Config struct {
	ClientName    string
	Subscriptions []string
}

// Sync mirrors a local Datastore against zero or more remote peers
// over a single SyncAdapter.
type Sync struct {
	mu sync.Mutex

	config    Config
	adapter   SyncAdapter
	datastore *store.Datastore

	localSubs  []*Subscription
	remoteSubs []*Subscription
	greeted    map[string]bool

	logger zerolog.Logger
}

// New creates a Sync over ds, registers itself as a datastore
// listener across the whole topic space, and prepares one local
// subscription per configured topic query.
func New(cfg Config, ds *store.Datastore, a SyncAdapter) *Sync {
	s := &Sync{
		config:    cfg,
		adapter:   a,
		datastore: ds,
		greeted:   make(map[string]bool),
		logger:    log.WithComponent("sync"),
	}
	for _, q := range cfg.Subscriptions {
		s.localSubs = append(s.localSubs, &Subscription{
			SubID:      uuid.NewString(),
			ClientName: cfg.ClientName,
			TopicQuery: topic.Parse(q),
		})
	}
	ds.AddListener(topic.Root(), s)
	return s
}

// OnDatapoint implements store.Listener: every datapoint matching at
// least one remote subscription is queued for the next Sync call.
func (s *Sync) OnDatapoint(dp store.Datapoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rs := range s.remoteSubs {
		if rs.IsMatch(dp.Topic) {
			rs.queue = append(rs.queue, dp)
		}
	}
}

// Sync runs one mirroring cycle: greet any not-yet-greeted
// connections, drain incoming Register/Update messages, and flush
// every remote subscription's pending queue.
func (s *Sync) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.greetNewConnectionsLocked()

	msgs, err := s.adapter.Recv()
	if err != nil {
		return err
	}
	for _, m := range msgs {
		switch m.Kind {
		case Register:
			s.handleRegisterLocked(m.ConnectionID, m.Subscriptions)
		case Update:
			s.handleUpdateLocked(m.Datapoints)
		}
	}

	return s.flushRemoteSubsLocked()
}

func (s *Sync) greetNewConnectionsLocked() {
	for _, connID := range s.adapter.NewConnections() {
		if s.greeted[connID] {
			continue
		}
		subs := make([]string, 0, len(s.localSubs))
		for _, ls := range s.localSubs {
			subs = append(subs, ls.TopicQuery.String())
		}
		if err := s.adapter.Send(connID, Message{Kind: Register, Subscriptions: subs}); err != nil {
			s.logger.Warn().Err(err).Str("connection", connID).Msg("failed to greet connection")
			continue
		}
		s.greeted[connID] = true
	}
}

func (s *Sync) handleRegisterLocked(connID string, subs []string) {
	for _, topicStr := range subs {
		s.remoteSubs = append(s.remoteSubs, &Subscription{
			SubID:        uuid.NewString(),
			ConnectionID: connID,
			TopicQuery:   topic.Parse(topicStr),
		})
	}
}

func (s *Sync) handleUpdateLocked(dps []store.Datapoint) {
	for _, dp := range dps {
		b := s.datastore.CreateBucket(dp.Topic)
		if err := b.Update(dp); err != nil {
			s.logger.Warn().Err(err).Str("topic", dp.Topic.String()).Msg("failed to apply remote update")
			continue
		}
		metrics.SyncDatapointsReceived.Inc()
	}
}

func (s *Sync) flushRemoteSubsLocked() error {
	for _, rs := range s.remoteSubs {
		for len(rs.queue) > 0 {
			end := updateBatchSize
			if end > len(rs.queue) {
				end = len(rs.queue)
			}
			batch := rs.queue[:end]
			if err := s.adapter.Send(rs.ConnectionID, Message{Kind: Update, Datapoints: batch}); err != nil {
				return err
			}
			metrics.SyncDatapointsSent.Add(float64(len(batch)))
			rs.queue = rs.queue[end:]
		}
	}
	return nil
}
