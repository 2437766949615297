package config

import (
	"fmt"
	"os"

	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var catalogValidator = validator.New()

type catalogFile struct {
	Currency  string                    `yaml:"currency" validate:"required,len=3"`
	Rooms     []roomFile                `yaml:"rooms" validate:"required,min=1,dive"`
	BulkRates map[string]property.Rates `yaml:"bulk_rates" validate:"dive,keys,oneof=internal external,endkeys"`
	Seasons   []seasonFile              `yaml:"seasons" validate:"dive"`
}

type roomFile struct {
	ID       string                    `yaml:"id" validate:"required,max=64,ne=*"`
	Name     string                    `yaml:"name" validate:"required"`
	Capacity int                       `yaml:"capacity" validate:"required,min=1"`
	Rates    map[string]property.Rates `yaml:"rates" validate:"required,min=1,dive,keys,oneof=internal external,endkeys"`
}

type seasonFile struct {
	Name  string   `yaml:"name" validate:"required"`
	Start string   `yaml:"start" validate:"required"`
	End   string   `yaml:"end" validate:"required"`
	Year  int      `yaml:"year" validate:"omitempty,min=2000,max=2200"`
	Codes []string `yaml:"codes" validate:"required,min=1,dive,required"`
}

// LoadCatalog reads and validates the property catalog at path.
func LoadCatalog(path string) (*property.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses and validates a YAML property catalog.
func ParseCatalog(data []byte) (*property.Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := catalogValidator.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	rooms := make([]property.Room, len(f.Rooms))
	for i, r := range f.Rooms {
		rooms[i] = property.Room{
			ID:       r.ID,
			Name:     r.Name,
			Capacity: r.Capacity,
			Rates:    toRateCard(r.Rates),
		}
	}

	seasons := make([]property.Season, len(f.Seasons))
	for i, s := range f.Seasons {
		start, err := stay.ParseDate(s.Start)
		if err != nil {
			return nil, fmt.Errorf("season %s: %w", s.Name, err)
		}
		end, err := stay.ParseDate(s.End)
		if err != nil {
			return nil, fmt.Errorf("season %s: %w", s.Name, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("season %s: end %s is before start %s", s.Name, end, start)
		}
		seasons[i] = property.Season{Name: s.Name, Start: start, End: end, Codes: s.Codes, Year: s.Year}
	}

	return property.NewCatalog(f.Currency, rooms, toRateCard(f.BulkRates), seasons)
}

func toRateCard(m map[string]property.Rates) property.RateCard {
	card := make(property.RateCard, len(m))
	for tier, rates := range m {
		card[property.Tier(tier)] = rates
	}
	return card
}
