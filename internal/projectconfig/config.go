package projectconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/BarkinBalci/feature-flag-events/internal/domain"
)

var (
	ErrExperimentNotFound = errors.New("experiment not found in datafile")
	ErrEventNotFound      = errors.New("event not found in datafile")
)

// ProjectConfig is the read-only view of a datafile the SDK components need
type ProjectConfig interface {
	AccountID() string
	ProjectID() string
	Revision() string
	AnonymizeIP() bool
	BotFiltering() *bool
	ExperimentByID(id string) (*domain.Experiment, bool)
	ExperimentByKey(key string) (*domain.Experiment, bool)
	AttributeByID(id string) (*domain.Attribute, bool)
	AttributeByKey(key string) (*domain.Attribute, bool)
	EventByKey(key string) (*domain.EventDefinition, bool)
}

// Datafile is the subset of the datafile JSON document used by this module
type Datafile struct {
	Version      string                   `json:"version"`
	AccountID    string                   `json:"accountId"`
	ProjectID    string                   `json:"projectId"`
	Revision     string                   `json:"revision"`
	AnonymizeIP  bool                     `json:"anonymizeIP"`
	BotFiltering *bool                    `json:"botFiltering,omitempty"`
	Experiments  []domain.Experiment      `json:"experiments"`
	Attributes   []domain.Attribute       `json:"attributes"`
	Events       []domain.EventDefinition `json:"events"`
}

// Config indexes a parsed datafile
type Config struct {
	datafile        Datafile
	experimentsByID map[string]*domain.Experiment
	experimentsKey  map[string]*domain.Experiment
	attributesByID  map[string]*domain.Attribute
	attributesByKey map[string]*domain.Attribute
	eventsByKey     map[string]*domain.EventDefinition
}

// FromJSON parses and indexes a datafile
func FromJSON(data []byte) (*Config, error) {
	var df Datafile
	if err := json.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("failed to unmarshal datafile: %w", err)
	}
	if df.ProjectID == "" || df.Revision == "" {
		return nil, fmt.Errorf("datafile is missing projectId or revision")
	}
	return New(df), nil
}

// FromFile reads a datafile from disk
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read datafile %s: %w", path, err)
	}
	return FromJSON(data)
}

// New indexes an already decoded datafile
func New(df Datafile) *Config {
	c := &Config{
		datafile:        df,
		experimentsByID: make(map[string]*domain.Experiment, len(df.Experiments)),
		experimentsKey:  make(map[string]*domain.Experiment, len(df.Experiments)),
		attributesByID:  make(map[string]*domain.Attribute, len(df.Attributes)),
		attributesByKey: make(map[string]*domain.Attribute, len(df.Attributes)),
		eventsByKey:     make(map[string]*domain.EventDefinition, len(df.Events)),
	}
	for i := range c.datafile.Experiments {
		exp := &c.datafile.Experiments[i]
		c.experimentsByID[exp.ID] = exp
		c.experimentsKey[exp.Key] = exp
	}
	for i := range c.datafile.Attributes {
		attr := &c.datafile.Attributes[i]
		c.attributesByID[attr.ID] = attr
		c.attributesByKey[attr.Key] = attr
	}
	for i := range c.datafile.Events {
		ev := &c.datafile.Events[i]
		c.eventsByKey[ev.Key] = ev
	}
	return c
}

func (c *Config) AccountID() string   { return c.datafile.AccountID }
func (c *Config) ProjectID() string   { return c.datafile.ProjectID }
func (c *Config) Revision() string    { return c.datafile.Revision }
func (c *Config) AnonymizeIP() bool   { return c.datafile.AnonymizeIP }
func (c *Config) BotFiltering() *bool { return c.datafile.BotFiltering }

func (c *Config) ExperimentByID(id string) (*domain.Experiment, bool) {
	exp, ok := c.experimentsByID[id]
	return exp, ok
}

func (c *Config) ExperimentByKey(key string) (*domain.Experiment, bool) {
	exp, ok := c.experimentsKey[key]
	return exp, ok
}

func (c *Config) AttributeByID(id string) (*domain.Attribute, bool) {
	attr, ok := c.attributesByID[id]
	return attr, ok
}

func (c *Config) AttributeByKey(key string) (*domain.Attribute, bool) {
	attr, ok := c.attributesByKey[key]
	return attr, ok
}

func (c *Config) EventByKey(key string) (*domain.EventDefinition, bool) {
	ev, ok := c.eventsByKey[key]
	return ev, ok
}
