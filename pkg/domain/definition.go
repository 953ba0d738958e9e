package domain

// ModelConfig is handed through to the classifier untouched.
type ModelConfig struct {
	Model       string  `json:"model_type_or_path,omitempty" yaml:"model_type_or_path,omitempty" mapstructure:"model_type_or_path"`
	Provider    string  `json:"llm_provider,omitempty" yaml:"llm_provider,omitempty" mapstructure:"llm_provider"`
	Temperature float32 `json:"temperature,omitempty" yaml:"temperature,omitempty" mapstructure:"temperature"`
}

// Definition is a parsed task graph definition.
type Definition struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`

	// ServicesNodes maps service names to their entry nodes. One of them
	// is drawn once per load as the initial flow.
	ServicesNodes map[string]string `json:"services_nodes,omitempty" yaml:"services_nodes,omitempty"`

	Model ModelConfig `json:"model,omitempty" yaml:"model,omitempty"`
}
