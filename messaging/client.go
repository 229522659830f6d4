package messaging

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Message is what listeners receive.
type Message struct {
	Destination string
	Message     string
}

// Listener receives every message delivered on a subscribed destination.
type Listener func(Message)

// Logger is the logging surface the client needs. globalcache loggers
// satisfy it.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// ClientFactory builds the underlying paho client
type ClientFactory func(*pahomqtt.ClientOptions) pahomqtt.Client

// Option customizes a Client
type Option func(*Client)

// WithLogger sets the client logger
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClientFactory replaces pahomqtt.NewClient
func WithClientFactory(factory ClientFactory) Option {
	return func(c *Client) {
		if factory != nil {
			c.factory = factory
		}
	}
}

// Client is a publish/subscribe client. All methods are safe for
// concurrent use.
type Client struct {
	client  pahomqtt.Client
	cfg     Config
	factory ClientFactory
	logger  Logger

	listeners *xsync.MapOf[string, Listener]
	// subscriptions maps consumer id to destination
	subscriptions *xsync.MapOf[string, string]

	// subMu serializes subscription changes against reconnect restoration
	subMu   sync.Mutex
	stopped atomic.Bool
}

// New builds a client without connecting it.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		cfg:           cfg.withDefaults(),
		factory:       pahomqtt.NewClient,
		logger:        nopLogger{},
		listeners:     xsync.NewMapOf[string, Listener](),
		subscriptions: xsync.NewMapOf[string, string](),
	}
	for _, opt := range opts {
		opt(c)
	}

	popts := buildClientOptions(c.cfg)
	popts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.restoreSubscriptions()
	})
	popts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.logger.Warn("messaging connection lost", "client_id", c.cfg.ClientID, "error", err)
	})
	c.client = c.factory(popts)
	return c, nil
}

// Connect builds a client and connects it to the broker.
func Connect(cfg Config, opts ...Option) (*Client, error) {
	c, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// Connect opens the broker connection
func (c *Client) Connect() error {
	token := c.client.Connect()
	if !token.WaitTimeout(c.cfg.ConnectTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, c.cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	c.stopped.Store(false)
	c.logger.Debug("messaging connected", "client_id", c.cfg.ClientID, "broker", c.cfg.Broker)
	return nil
}

// ClientID returns the connection's client id
func (c *Client) ClientID() string {
	return c.cfg.ClientID
}

// IsConnected reports the paho connection state
func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnected()
}

// AddListener registers fn under id, replacing any listener with the same
// id. An empty id is generated and returned.
func (c *Client) AddListener(fn Listener, id string) (string, error) {
	if fn == nil {
		return "", ErrInvalidListener
	}
	if id == "" {
		id = uuid.NewString()
	}
	c.listeners.Store(id, fn)
	return id, nil
}

// RemoveListener unregisters the listener with id
func (c *Client) RemoveListener(id string) {
	c.listeners.Delete(id)
}

// ListenerCount returns the number of registered listeners
func (c *Client) ListenerCount() int {
	return c.listeners.Size()
}

// Subscribe starts delivering messages sent to destination. consumerID
// names the subscription; subscribing the same consumer again moves it to
// the new destination.
func (c *Client) Subscribe(destination, consumerID string) error {
	if destination == "" {
		return ErrInvalidDestination
	}
	if c.stopped.Load() {
		return ErrStopped
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if consumerID == "" {
		consumerID = c.cfg.ClientID
	}

	c.subMu.Lock()
	defer c.subMu.Unlock()

	if previous, ok := c.subscriptions.Load(consumerID); ok && previous != destination {
		if err := c.unsubscribeLocked(consumerID, previous); err != nil {
			return err
		}
	}

	token := c.client.Subscribe(destination, c.cfg.QoS, c.dispatch)
	if !token.WaitTimeout(c.cfg.OperationTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, c.cfg.OperationTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	c.subscriptions.Store(consumerID, destination)
	c.logger.Debug("messaging subscribed", "destination", destination, "consumer", consumerID)
	return nil
}

// Unsubscribe removes the subscription named consumerID. Unknown consumers
// are ignored.
func (c *Client) Unsubscribe(consumerID string) error {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	destination, ok := c.subscriptions.Load(consumerID)
	if !ok {
		return nil
	}
	return c.unsubscribeLocked(consumerID, destination)
}

func (c *Client) unsubscribeLocked(consumerID, destination string) error {
	c.subscriptions.Delete(consumerID)
	if c.destinationInUse(destination) || !c.IsConnected() {
		return nil
	}
	token := c.client.Unsubscribe(destination)
	if !token.WaitTimeout(c.cfg.OperationTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrUnsubscribeFailed, c.cfg.OperationTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}
	return nil
}

func (c *Client) destinationInUse(destination string) bool {
	inUse := false
	c.subscriptions.Range(func(_ string, d string) bool {
		if d == destination {
			inUse = true
			return false
		}
		return true
	})
	return inUse
}

// Send publishes message to destination
func (c *Client) Send(destination, message string) error {
	if destination == "" {
		return ErrInvalidDestination
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Publish(destination, c.cfg.QoS, false, []byte(message))
	if !token.WaitTimeout(c.cfg.OperationTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrSendFailed, c.cfg.OperationTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}

// Stop ends delivery: every subscription is dropped and messages already in
// flight are no longer handed to listeners. The connection stays open for
// Send until Disconnect.
func (c *Client) Stop() {
	if c.stopped.Swap(true) {
		return
	}
	c.subMu.Lock()
	defer c.subMu.Unlock()

	var consumers []string
	c.subscriptions.Range(func(consumer string, _ string) bool {
		consumers = append(consumers, consumer)
		return true
	})
	for _, consumer := range consumers {
		destination, _ := c.subscriptions.Load(consumer)
		if err := c.unsubscribeLocked(consumer, destination); err != nil {
			c.logger.Warn("messaging unsubscribe on stop failed", "destination", destination, "error", err)
		}
	}
}

// Disconnect stops delivery and closes the broker connection. Calling it
// on a client that never connected is not an error.
func (c *Client) Disconnect() error {
	if c.client == nil {
		return nil
	}
	c.Stop()
	if c.client.IsConnected() {
		c.client.Disconnect(defaultDisconnectQuiesce)
	}
	c.logger.Debug("messaging disconnected", "client_id", c.cfg.ClientID)
	return nil
}

// restoreSubscriptions re-subscribes after a reconnect; clean sessions drop
// them on the broker side.
func (c *Client) restoreSubscriptions() {
	if c.stopped.Load() {
		return
	}
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subscriptions.Range(func(_ string, destination string) bool {
		c.client.Subscribe(destination, c.cfg.QoS, c.dispatch)
		return true
	})
}

// dispatch hands one broker message to every listener.
func (c *Client) dispatch(_ pahomqtt.Client, msg pahomqtt.Message) {
	if c.stopped.Load() {
		return
	}
	m := Message{Destination: msg.Topic(), Message: string(msg.Payload())}
	c.listeners.Range(func(id string, fn Listener) bool {
		c.deliver(id, fn, m)
		return true
	})
}

func (c *Client) deliver(id string, fn Listener, m Message) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("messaging listener panic recovered",
				"listener", id,
				"destination", m.Destination,
				"panic", r,
			)
		}
	}()
	fn(m)
}
