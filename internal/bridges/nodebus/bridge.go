package nodebus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gray-logic-nodeconfig/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-nodeconfig/internal/nodeconfig"
)

// selfLookupAddress resolves the node's own option table.
const selfLookupAddress = "127.0.0.1"

// MQTTClient is the subset of *mqtt.Client the bridge needs.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Config identifies the node on the bus.
type Config struct {
	// Node is the node ID used in topics.
	Node string

	// Name is the friendly name other nodes list this node under.
	Name string

	// Address is the network address other nodes reach this node at.
	Address string

	// TopicPrefix is the first topic segment shared by all nodes.
	TopicPrefix string

	QoS byte
}

// Bridge connects a node's config store to the MQTT bus.
//
// Outbound it publishes the saved config (retained), one event per edit and
// the node's own API target option table (retained). Inbound it collects the
// option tables other nodes publish and feeds them to the resolver.
//
// Bridge implements nodeconfig.Publisher.
//
// Thread Safety: all methods are safe for concurrent use.
type Bridge struct {
	cfg      Config
	client   MQTTClient
	topics   mqtt.Topics
	store    *nodeconfig.Store
	resolver *nodeconfig.Resolver
	logger   Logger
}

// New creates a bridge. Call Start to subscribe to remote option tables.
func New(cfg Config, client MQTTClient, store *nodeconfig.Store, resolver *nodeconfig.Resolver) *Bridge {
	if cfg.Name == "" {
		cfg.Name = cfg.Node
	}
	return &Bridge{
		cfg:      cfg,
		client:   client,
		topics:   mqtt.Topics{Prefix: cfg.TopicPrefix, Node: cfg.Node},
		store:    store,
		resolver: resolver,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.logger = logger
}

// Start subscribes to the option tables of every node and publishes this
// node's own table.
func (b *Bridge) Start() error {
	if err := b.client.Subscribe(b.topics.AllAPITargetOptions(), b.cfg.QoS, b.handleRemoteOptions); err != nil {
		return fmt.Errorf("subscribing to api target options: %w", err)
	}
	if err := b.PublishOptions(); err != nil {
		b.logger.Warn("publishing api target options failed", "error", err)
	}
	b.logger.Info("node bus started", "node", b.cfg.Node, "prefix", b.cfg.TopicPrefix)
	return nil
}

// PublishConfig publishes a saved revision as the node's retained config
// and refreshes the node's option table.
func (b *Bridge) PublishConfig(_ context.Context, rev *nodeconfig.Revision) error {
	payload, err := json.Marshal(ConfigMessage{
		Node:      rev.Node,
		Revision:  rev.ID,
		CreatedAt: rev.CreatedAt.UTC(),
		Config:    rev.Config,
	})
	if err != nil {
		return fmt.Errorf("encoding config message: %w", err)
	}
	if err := b.client.Publish(b.topics.Config(), payload, b.cfg.QoS, true); err != nil {
		return fmt.Errorf("publishing config: %w", err)
	}
	return b.PublishOptions()
}

// PublishChange publishes one edit event. Events are not retained.
func (b *Bridge) PublishChange(change nodeconfig.Change) error {
	payload, err := json.Marshal(newEventMessage(b.cfg.Node, change))
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if err := b.client.Publish(b.topics.Event(change.Op), payload, b.cfg.QoS, false); err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}
	return nil
}

// Observe is a nodeconfig.Observer that publishes every change, logging
// failures instead of returning them.
func (b *Bridge) Observe(change nodeconfig.Change) {
	if !b.client.IsConnected() {
		return
	}
	if err := b.PublishChange(change); err != nil {
		b.logger.Warn("publishing config event failed", "op", change.Op, "error", err)
	}
}

// PublishOptions publishes the node's own API target option table, computed
// from the current snapshot.
func (b *Bridge) PublishOptions() error {
	table, err := b.store.APITargetOptions(b.resolver, selfLookupAddress)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(OptionsMessage{
		Name:    b.cfg.Name,
		Address: b.cfg.Address,
		Options: table,
	})
	if err != nil {
		return fmt.Errorf("encoding api target options: %w", err)
	}
	if err := b.client.Publish(b.topics.APITargetOptions(), payload, b.cfg.QoS, true); err != nil {
		return fmt.Errorf("publishing api target options: %w", err)
	}
	return nil
}

// handleRemoteOptions records the option table published by another node.
func (b *Bridge) handleRemoteOptions(topic string, payload []byte) error {
	node, ok := mqtt.NodeFromTopic(b.cfg.TopicPrefix, topic)
	if !ok {
		return fmt.Errorf("unexpected topic %q", topic)
	}
	if node == b.cfg.Node {
		return nil
	}
	// An empty retained payload clears the topic.
	if len(payload) == 0 {
		return nil
	}

	var msg OptionsMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding api target options from %s: %w", node, err)
	}
	if msg.Address == "" {
		return fmt.Errorf("api target options from %s carry no address", node)
	}
	name := msg.Name
	if name == "" {
		name = node
	}
	if msg.Options == nil {
		msg.Options = map[string]nodeconfig.TargetOption{}
	}

	b.resolver.UpdateRemote(name, msg.Address, msg.Options)
	b.logger.Debug("remote api target options updated", "node", node, "address", msg.Address, "instances", len(msg.Options))
	return nil
}
