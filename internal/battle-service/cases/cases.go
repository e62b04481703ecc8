package cases

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/caseclash/platform/pkg/fair"
)

var ErrCaseNotFound = errors.New("case_not_found")

// Arquivo YAML com o catálogo de cases; espelha o schema de cases.yaml
type rawCatalog struct {
	Cases []rawCase `yaml:"cases"`
}

type rawCase struct {
	ID         string    `yaml:"id"`
	Name       string    `yaml:"name"`
	PriceCents int64     `yaml:"price_cents"`
	Items      []rawItem `yaml:"items"`
}

type rawItem struct {
	ID          string  `yaml:"id"`
	Weight      float64 `yaml:"weight"`
	PayoutCents int64   `yaml:"payout_cents"`
}

// Case é uma case jogável: tabela de prêmios já normalizada e acumulada
type Case struct {
	ID         string
	Name       string
	PriceCents int64
	Items      []fair.CumulativeItem
}

// Catalog indexa as cases disponíveis por id
type Catalog struct {
	byID  map[string]Case
	order []string
}

// LoadFile carrega e valida o catálogo de cases de um arquivo YAML
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cases file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse cases yaml: %w", err)
	}
	if len(raw.Cases) == 0 {
		return nil, errors.New("cases file has no cases")
	}

	cat := &Catalog{byID: make(map[string]Case, len(raw.Cases))}
	for _, rc := range raw.Cases {
		if rc.ID == "" || rc.PriceCents <= 0 {
			return nil, fmt.Errorf("case %q: id and positive price_cents required", rc.ID)
		}
		if _, dup := cat.byID[rc.ID]; dup {
			return nil, fmt.Errorf("case %q: duplicated id", rc.ID)
		}

		items := make([]fair.WeightedItem, 0, len(rc.Items))
		for _, it := range rc.Items {
			items = append(items, fair.WeightedItem{
				ID:          it.ID,
				Weight:      it.Weight,
				PayoutCents: it.PayoutCents,
			})
		}
		cum, err := fair.BuildCumulative(items)
		if err != nil {
			return nil, fmt.Errorf("case %q: %w", rc.ID, err)
		}

		cat.byID[rc.ID] = Case{
			ID:         rc.ID,
			Name:       rc.Name,
			PriceCents: rc.PriceCents,
			Items:      cum,
		}
		cat.order = append(cat.order, rc.ID)
	}
	return cat, nil
}

// Get retorna uma case pelo id
func (c *Catalog) Get(id string) (Case, error) {
	cs, ok := c.byID[id]
	if !ok {
		return Case{}, fmt.Errorf("%w: %s", ErrCaseNotFound, id)
	}
	return cs, nil
}

// Resolve traduz uma lista ordenada de ids (as rodadas de uma batalha) em
// cases, preservando a ordem
func (c *Catalog) Resolve(ids []string) ([]Case, error) {
	out := make([]Case, 0, len(ids))
	for _, id := range ids {
		cs, err := c.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, nil
}

// List retorna as cases na ordem do arquivo
func (c *Catalog) List() []Case {
	out := make([]Case, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}
