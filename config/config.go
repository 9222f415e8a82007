// Package config loads the static replica topology shared by every
// replica process and every client. The list order is the failover
// order: position 0 is the highest-priority replica.
package config

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/sirupsen/logrus"
)

type Endpoint struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

func (e Endpoint) Address() string {
	return e.Host + ":" + e.Port
}

type Config struct {
	Replicas []Endpoint `yaml:"replicas"`
	// ProbeIntervalMillis is how long a monitor waits between two
	// heartbeats of a live primary.
	ProbeIntervalMillis int `yaml:"probeIntervalMillis"`
	// CallTimeoutMillis bounds heartbeat and propagation calls.
	CallTimeoutMillis int `yaml:"callTimeoutMillis"`
}

func (c Config) String() string {
	return fmt.Sprintf("Config{Replicas: %v, Probe interval: %vms, Call timeout: %vms}",
		c.Replicas, c.ProbeIntervalMillis, c.CallTimeoutMillis)
}

func (c Config) ProbeInterval() time.Duration {
	return time.Duration(c.ProbeIntervalMillis) * time.Millisecond
}

func (c Config) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutMillis) * time.Millisecond
}

// Default mirrors the historical deployment: three replicas on one host.
func Default() Config {
	return Config{
		Replicas: []Endpoint{
			{Host: "localhost", Port: "8000"},
			{Host: "localhost", Port: "8001"},
			{Host: "localhost", Port: "8002"},
		},
		ProbeIntervalMillis: 500,
		CallTimeoutMillis:   1000,
	}
}

// ReadConfig parses the yaml topology file at configPath.
func ReadConfig(configPath string) (Config, error) {
	yamlFile, err := ioutil.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read yaml config %v: %w", configPath, err)
	}

	c := Default()
	err = yaml.Unmarshal(yamlFile, &c)
	if err != nil {
		return Config{}, fmt.Errorf("unable to parse yaml config %v: %w", configPath, err)
	}
	logrus.Infof("Parsed replica config as: %s", c)

	if len(c.Replicas) == 0 {
		return Config{}, fmt.Errorf("config %v lists no replicas", configPath)
	}
	return c, nil
}
