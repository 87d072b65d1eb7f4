package main

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ilsegaertner/CUB-Film-data/internal/domain"
)

// catalog is the on-disk layout of a seed file.
type catalog struct {
	Movies []domain.Movie `yaml:"movies"`
}

// loadCatalog decodes a YAML catalog. Unknown keys are rejected so that a
// misspelled field does not silently seed empty values.
func loadCatalog(r io.Reader) ([]domain.Movie, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c catalog
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("catalog is empty")
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(c.Movies) == 0 {
		return nil, errors.New("catalog has no movies")
	}
	return c.Movies, nil
}
