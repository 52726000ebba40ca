// Package config loads the hydrokit settings from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reef-pi/hydrokit/controller/connectivity"
	"github.com/reef-pi/hydrokit/controller/modules/ezo"
	"github.com/reef-pi/hydrokit/controller/modules/hydrokit"
	"github.com/reef-pi/hydrokit/controller/telemetry"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

type AppConfig struct {
	General     GeneralConfig        `mapstructure:"general" yaml:"general"`
	Bus         BusConfig            `mapstructure:"bus" yaml:"bus"`
	Devices     ezo.Addresses        `mapstructure:"devices" yaml:"devices"`
	Acquisition hydrokit.Config      `mapstructure:"acquisition" yaml:"acquisition"`
	Network     connectivity.Config  `mapstructure:"network" yaml:"network"`
	MQTT        telemetry.MQTTConfig `mapstructure:"mqtt" yaml:"mqtt"`
	HTTP        HTTPConfig           `mapstructure:"http" yaml:"http"`
}

type GeneralConfig struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

type BusConfig struct {
	// Simulate replaces the I2C bus with emulated circuits
	Simulate bool             `mapstructure:"simulate" yaml:"simulate"`
	GPIOChip string           `mapstructure:"gpio_chip" yaml:"gpio_chip"`
	Enable   []ezo.EnableLine `mapstructure:"enable" yaml:"enable"`
}

type HTTPConfig struct {
	Enable  bool   `mapstructure:"enable" yaml:"enable"`
	Address string `mapstructure:"address" yaml:"address"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.log_level", "info")

	v.SetDefault("bus.simulate", false)
	v.SetDefault("bus.gpio_chip", "gpiochip0")
	v.SetDefault("bus.enable", []ezo.EnableLine{})

	v.SetDefault("devices.ph", ezo.DefaultAddresses.PH)
	v.SetDefault("devices.ec", ezo.DefaultAddresses.EC)
	v.SetDefault("devices.rtd", ezo.DefaultAddresses.RTD)
	v.SetDefault("devices.pump", ezo.DefaultAddresses.Pump)

	v.SetDefault("acquisition.reading_delay", hydrokit.DefaultConfig.ReadingDelay)
	v.SetDefault("acquisition.compensation_delay", hydrokit.DefaultConfig.CompensationDelay)
	v.SetDefault("acquisition.cycle_period", hydrokit.DefaultConfig.CyclePeriod)
	v.SetDefault("acquisition.loop_interval", hydrokit.DefaultConfig.LoopInterval)

	v.SetDefault("network.manager", connectivity.DefaultConfig.Manager)
	v.SetDefault("network.connection_uuid", "")
	v.SetDefault("network.retry_delay", connectivity.DefaultConfig.RetryDelay)

	m := telemetry.DefaultMQTTConfig
	v.SetDefault("mqtt.broker", m.Broker)
	v.SetDefault("mqtt.client_id", "")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic", m.Topic)
	v.SetDefault("mqtt.qos", m.QoS)
	v.SetDefault("mqtt.retained", m.Retained)
	v.SetDefault("mqtt.retry_delay", m.RetryDelay)
	v.SetDefault("mqtt.encoding", m.Encoding)
	v.SetDefault("mqtt.missing_value", m.Missing)

	v.SetDefault("http.enable", true)
	v.SetDefault("http.address", "127.0.0.1:8080")
}

// Load reads path, or hydrokit.yaml from ./config or /etc/hydrokit when path
// is empty. A missing default file is not an error. Environment variables
// prefixed with HYDROKIT_ and the simulate flag override file values.
func Load(path string, flags *pflag.FlagSet) (AppConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("hydrokit")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("hydrokit")
		v.AddConfigPath("config")
		v.AddConfigPath("/etc/hydrokit")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return AppConfig{}, fmt.Errorf("reading config: %w", err)
		}
	}
	if flags != nil {
		if f := flags.Lookup("simulate"); f != nil && f.Changed {
			if err := v.BindPFlag("bus.simulate", f); err != nil {
				return AppConfig{}, err
			}
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (c AppConfig) Validate() error {
	if _, err := c.Acquisition.Schedule(); err != nil {
		return fmt.Errorf("acquisition: %w", err)
	}
	if c.Acquisition.LoopInterval <= 0 {
		return fmt.Errorf("acquisition: loop interval must be positive")
	}
	if _, err := telemetry.NewEncoder(c.MQTT.Encoding); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt: invalid qos %d", c.MQTT.QoS)
	}
	if c.MQTT.Topic == "" {
		return fmt.Errorf("mqtt: topic is required")
	}
	for _, l := range c.Bus.Enable {
		if _, err := ezo.ParseRole(l.Role); err != nil {
			return fmt.Errorf("bus: enable line %d: %w", l.Line, err)
		}
	}
	return nil
}

// Dump renders the effective config as YAML with secrets masked.
func Dump(c AppConfig) ([]byte, error) {
	if c.MQTT.Password != "" {
		c.MQTT.Password = "********"
	}
	return yaml.Marshal(c)
}
