package config

type yamlSuite struct {
	Name   string            `yaml:"name"`
	Vars   map[string]string `yaml:"vars"`
	Checks []yamlCheck       `yaml:"checks"`
}

type yamlCheck struct {
	Name     string            `yaml:"name"`
	Kind     string            `yaml:"kind"`
	Params   map[string]string `yaml:"params"`
	Headers  map[string]string `yaml:"headers"`
	Body     string            `yaml:"body"`
	Assert   yamlAssertions    `yaml:"assert"`
	Extract  map[string]string `yaml:"extract"`
	TimeoutS int               `yaml:"timeout_s"`
	RetryS   int               `yaml:"retry_s"`
}

type yamlAssertions struct {
	Status       *int                             `yaml:"status"`
	MaxLatencyMS *int                             `yaml:"max_latency_ms"`
	JSONPath     map[string]yamlJSONPathAssertion `yaml:"jsonpath"`
}

type yamlJSONPathAssertion struct {
	Exists   bool     `yaml:"exists"`
	Eq       *string  `yaml:"eq"`
	Contains *string  `yaml:"contains"`
	Matches  *string  `yaml:"matches"`
	Gt       *float64 `yaml:"gt"`
	Lt       *float64 `yaml:"lt"`
}
