package config

import (
	"fmt"
	"os"

	"provisiond/internal/domain"

	"gopkg.in/yaml.v3"
)

type communityFile struct {
	Communities []domain.Community `yaml:"communities"`
}

// LoadCommunities reads the community-type table from a YAML file.
func LoadCommunities(path string) (domain.Communities, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read community config: %w", err)
	}
	var file communityFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse community config: %w", err)
	}
	communities := domain.Communities(file.Communities)
	if len(communities) == 0 {
		return nil, fmt.Errorf("community config %s defines no communities", path)
	}
	if err := communities.Validate(); err != nil {
		return nil, err
	}
	return communities, nil
}
