package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"pcc/companion"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	// PseudoList is a list of pseudo-class names. Anything other than YAML
	// sequence leaves it unset, so defaults apply instead of failing the run.
	PseudoList []string

	CompanionConfig struct {
		Exclude         PseudoList `yaml:"exclude" validate:"dive,required"`
		RestrictTo      PseudoList `yaml:"restrict_to" validate:"dive,required"`
		AllCombinations bool       `yaml:"all_combinations"`
		Module          bool       `yaml:"module"`
		Prefix          string     `yaml:"prefix" validate:"excludesall= {}0x2C"`
	}

	OutputConfig struct {
		Suffix string `yaml:"suffix" validate:"excludesall=/\\"`
	}

	Config struct {
		Version   int             `yaml:"version" validate:"eq=1"`
		Companion CompanionConfig `yaml:"companion"`
		Output    OutputConfig    `yaml:"output"`
		Logging   LoggingConfig   `yaml:"logging"`
		Reporting ReporterConfig  `yaml:"reporting"`
	}
)

// UnmarshalYAML accepts sequence of scalars, any other node resets the list.
func (l *PseudoList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		*l = nil
		return nil
	}
	list := make(PseudoList, 0, len(value.Content))
	for _, n := range value.Content {
		if n.Kind == yaml.ScalarNode && len(n.Value) > 0 {
			list = append(list, n.Value)
		}
	}
	*l = list
	return nil
}

// Options converts configuration into companion transformer options.
func (conf *CompanionConfig) Options() []companion.Option {
	options := []companion.Option{
		companion.WithAllCombinations(conf.AllCombinations),
		companion.WithModule(conf.Module),
		companion.WithPrefix(conf.Prefix),
		companion.WithRestrictTo(conf.RestrictTo...),
	}
	if conf.Exclude != nil {
		options = append(options, companion.WithExclude(conf.Exclude...))
	}
	return options
}

// Validate checks companion settings, used when they were changed after
// configuration was loaded.
func (conf *CompanionConfig) Validate() error {
	if err := gencfg.Validate(conf); err != nil {
		return fmt.Errorf("invalid companion settings: %w", err)
	}
	return nil
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	if cfg.Companion.Exclude == nil {
		// unusable value in the file, fall back to defaults
		cfg.Companion.Exclude = companion.DefaultExclude()
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
