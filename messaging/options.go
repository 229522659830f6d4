package messaging

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Connection constants.
const (
	defaultBroker            = "tcp://localhost:1883"
	defaultConnectTimeout    = 10 * time.Second
	defaultOperationTimeout  = 5 * time.Second
	defaultDisconnectQuiesce = 250 // milliseconds
	defaultKeepAlive         = 60 * time.Second
	defaultQoS               = 1
	clientIDPrefix           = "globalcache-"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config describes the broker connection.
type Config struct {
	// Broker URL, e.g. tcp://localhost:1883 or ssl://broker:8883
	Broker string `validate:"required,url"`
	// ClientID identifies this connection; generated when empty
	ClientID string
	Username string
	Password string
	// QoS used for both subscriptions and sends
	QoS              byte          `validate:"lte=2"`
	ConnectTimeout   time.Duration `validate:"gte=0"`
	OperationTimeout time.Duration `validate:"gte=0"`
}

// DefaultConfig returns a local broker configuration
func DefaultConfig() Config {
	return Config{
		Broker:           defaultBroker,
		QoS:              defaultQoS,
		ConnectTimeout:   defaultConnectTimeout,
		OperationTimeout: defaultOperationTimeout,
	}
}

// ConfigFromEnv reads MQTT_BROKER, MQTT_CLIENT_ID, MQTT_USERNAME,
// MQTT_PASSWORD and MQTT_QOS over DefaultConfig.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		cfg.Broker = v
	}
	cfg.ClientID = os.Getenv("MQTT_CLIENT_ID")
	cfg.Username = os.Getenv("MQTT_USERNAME")
	cfg.Password = os.Getenv("MQTT_PASSWORD")
	if v := os.Getenv("MQTT_QOS"); v != "" {
		if qos, err := strconv.Atoi(v); err == nil && qos >= 0 && qos <= 2 {
			cfg.QoS = byte(qos)
		}
	}
	return cfg
}

// Validate checks the configuration
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.ClientID == "" {
		c.ClientID = clientIDPrefix + uuid.NewString()
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.OperationTimeout == 0 {
		c.OperationTimeout = defaultOperationTimeout
	}
	return c
}

// buildClientOptions creates paho options from cfg.
func buildClientOptions(cfg Config) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	return opts
}
