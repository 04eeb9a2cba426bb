package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed is the start-up catalog of products and users.
type Seed struct {
	Products []SeedProduct `yaml:"products"`
	Users    []SeedUser    `yaml:"users"`
}

type SeedProduct struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       int64  `yaml:"price"`
	Stock       int    `yaml:"stock"`
	Active      *bool  `yaml:"active"`
}

// IsActive defaults to true when the flag is omitted.
func (p SeedProduct) IsActive() bool {
	return p.Active == nil || *p.Active
}

type SeedUser struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

// LoadSeed reads a seed file. An empty path yields an empty seed.
func LoadSeed(path string) (Seed, error) {
	if path == "" {
		return Seed{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return DecodeSeed(f)
}

func DecodeSeed(r io.Reader) (Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		if err == io.EOF {
			return Seed{}, nil
		}
		return Seed{}, fmt.Errorf("decode seed: %w", err)
	}
	for i, p := range seed.Products {
		if p.ID == "" {
			return Seed{}, fmt.Errorf("decode seed: products[%d]: id is required", i)
		}
	}
	for i, u := range seed.Users {
		if u.ID == "" {
			return Seed{}, fmt.Errorf("decode seed: users[%d]: id is required", i)
		}
	}
	return seed, nil
}
