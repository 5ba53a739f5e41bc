package config

import (
	"fmt"
	"strconv"
	"time"
)

// ContainerizedEnv switches the CLI into unattended mode when set to "true".
const ContainerizedEnv = "MQTTBenchContainerized"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// FromEnv builds a config from process environment variables.
// Durations (KeepAlivePeriod, ConnectionTimeOut) are whole seconds.
// Variables that are not set keep their default value.
func FromEnv(lookup LookupFunc) (*Config, error) {
	cfg := DefaultConfig()
	p := envParser{lookup: lookup}

	p.str("ServerUri", &cfg.ServerURI)
	p.integer("Port", &cfg.Port)
	p.boolean("CleanSession", &cfg.CleanSession)
	p.str("Username", &cfg.Username)
	p.str("Password", &cfg.Password)
	p.seconds("KeepAlivePeriod", &cfg.KeepAlivePeriod)
	p.seconds("ConnectionTimeOut", &cfg.ConnectionTimeout)
	p.str("MqttVersion", &cfg.MQTTVersion)
	p.integer("ClientCount", &cfg.ClientCount)
	p.integer("MessageCount", &cfg.MessageCount)
	p.integer("MessageSize", &cfg.MessageSize)
	p.integer("Qos", &cfg.QoS)
	p.boolean("Retain", &cfg.Retain)
	p.str("TopicPrefix", &cfg.TopicPrefix)
	p.float("PublishRate", &cfg.PublishRate)
	p.str("OutputDir", &cfg.OutputDir)
	p.str("MetricsAddr", &cfg.Metrics.Addr)
	p.str("LogLevel", &cfg.Log.Level)
	p.str("LogFormat", &cfg.Log.Format)

	if p.err != nil {
		return nil, p.err
	}
	return cfg, nil
}

// envParser keeps the first parse error so FromEnv reads as a flat list.
type envParser struct {
	lookup LookupFunc
	err    error
}

func (p *envParser) get(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v, ok := p.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (p *envParser) fail(key, value string, err error) {
	p.err = fmt.Errorf("%w: environment variable %s=%q: %v", ErrInvalidConfig, key, value, err)
}

func (p *envParser) str(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *envParser) integer(key string, dst *int) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = n
}

func (p *envParser) float(key string, dst *float64) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = f
}

func (p *envParser) boolean(key string, dst *bool) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = b
}

func (p *envParser) seconds(key string, dst *time.Duration) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = time.Duration(n) * time.Second
}

// IsContainerized reports whether unattended mode is requested.
func IsContainerized(lookup LookupFunc) bool {
	v, _ := lookup(ContainerizedEnv)
	return v == "true"
}
