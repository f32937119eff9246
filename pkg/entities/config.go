package entities

const (
	DefaultBaudRate        = 115200
	DefaultReadTimeoutMs   = 1000
	DefaultRegistryFile    = "mysensors.yaml"
	DefaultMQTTTopicPrefix = "mysensors"
)

// GatewayConfig configures one serial gateway and its optional broker
// forwarders. Zero values for baud rate, read timeout, registry file
// and topic prefix fall back to the defaults above.
type GatewayConfig struct {
	Port             string     `yaml:"port"`
	BaudRate         int        `yaml:"baudRate"`
	ReadTimeoutMs    int        `yaml:"readTimeoutMs"`
	RegistryFilepath string     `yaml:"registryFilepath"`
	Metric           bool       `yaml:"metric"`
	LogLevel         string     `yaml:"logLevel"`
	AMQP             AMQPConfig `yaml:"amqp"`
	MQTT             MQTTConfig `yaml:"mqtt"`
}

// AMQPConfig enables event forwarding to a RabbitMQ broker when URL is
// set.
type AMQPConfig struct {
	URL string `yaml:"url"`
}

// MQTTConfig enables forwarding on the MySensors MQTT topic layout when
// Broker is set.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"clientId"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topicPrefix"`
}

// WithDefaults fills the optional fields left at their zero value.
func (c GatewayConfig) WithDefaults() GatewayConfig {
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ReadTimeoutMs == 0 {
		c.ReadTimeoutMs = DefaultReadTimeoutMs
	}
	if c.RegistryFilepath == "" {
		c.RegistryFilepath = DefaultRegistryFile
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = DefaultMQTTTopicPrefix
	}
	return c
}
