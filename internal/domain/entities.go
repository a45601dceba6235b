package domain

// Experiment is a rule from the datafile
type Experiment struct {
	ID         string      `json:"id"`
	Key        string      `json:"key"`
	LayerID    string      `json:"layerId"`
	Status     string      `json:"status"`
	Variations []Variation `json:"variations"`
	Cmab       *Cmab       `json:"cmab,omitempty"`
}

// VariationByID returns the variation with the given id
func (e *Experiment) VariationByID(id string) (*Variation, bool) {
	for i := range e.Variations {
		if e.Variations[i].ID == id {
			return &e.Variations[i], true
		}
	}
	return nil, false
}

// VariationByKey returns the variation with the given key
func (e *Experiment) VariationByKey(key string) (*Variation, bool) {
	for i := range e.Variations {
		if e.Variations[i].Key == key {
			return &e.Variations[i], true
		}
	}
	return nil, false
}

// IsCmab reports whether decisions for this experiment come from the bandit service
func (e *Experiment) IsCmab() bool {
	return e.Cmab != nil
}

// Cmab is the contextual bandit configuration of an experiment
type Cmab struct {
	AttributeIDs      []string `json:"attributeIds"`
	TrafficAllocation int      `json:"trafficAllocation"`
}

// Variation is one arm of an experiment
type Variation struct {
	ID             string `json:"id"`
	Key            string `json:"key"`
	FeatureEnabled bool   `json:"featureEnabled"`
}

// Attribute is an attribute declared in the datafile
type Attribute struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// EventDefinition is a tracked metric declared in the datafile
type EventDefinition struct {
	ID            string   `json:"id"`
	Key           string   `json:"key"`
	ExperimentIDs []string `json:"experimentIds"`
}
