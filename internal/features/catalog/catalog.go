// Package catalog — catalog.go загружает каталог из YAML и отвечает на запросы по кейсам.
// Каталог неизменяемый: читается один раз при старте и проверяется целиком.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/viper"

	"serotonyl.ru/lootcase-bot/internal/common"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Catalog хранит кейсы в порядке объявления и индекс по id.
type Catalog struct {
	cases []Case
	byID  map[string]int
}

// Load читает каталог из YAML-файла. Пустой путь — встроенный каталог.
func Load(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if strings.TrimSpace(path) == "" {
		if err := v.ReadConfig(bytes.NewReader(defaultCatalog)); err != nil {
			return nil, fmt.Errorf("ошибка чтения встроенного каталога: %w", err)
		}
	} else {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("ошибка чтения каталога %s: %w", path, err)
		}
	}

	var raw rawCatalog
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("ошибка разбора каталога: %w", err)
	}
	return fromRaw(raw)
}

// fromRaw разворачивает ссылки на общие таблицы призов.
func fromRaw(raw rawCatalog) (*Catalog, error) {
	// viper приводит ключи к нижнему регистру
	tables := make(map[string][]Prize, len(raw.PrizeTables))
	for name, prizes := range raw.PrizeTables {
		tables[strings.ToLower(name)] = prizes
	}

	cases := make([]Case, 0, len(raw.Cases))
	for _, rc := range raw.Cases {
		prizes := rc.Prizes
		ref := strings.ToLower(strings.TrimSpace(rc.PrizeTable))
		switch {
		case ref != "" && len(rc.Prizes) > 0:
			return nil, fmt.Errorf("%w: кейс %q: prize_table и prizes заданы одновременно", common.ErrInvalidCatalog, rc.ID)
		case ref != "":
			table, ok := tables[ref]
			if !ok {
				return nil, fmt.Errorf("%w: кейс %q ссылается на неизвестную таблицу %q", common.ErrInvalidCatalog, rc.ID, rc.PrizeTable)
			}
			prizes = table
		}

		cases = append(cases, Case{
			ID:     strings.TrimSpace(rc.ID),
			Name:   rc.Name,
			Image:  rc.Image,
			Price:  rc.Price,
			IsFree: rc.IsFree,
			// копия, чтобы кейсы с общей таблицей не делили один срез
			Prizes: append([]Prize(nil), prizes...),
		})
	}
	return New(cases)
}

// New проверяет кейсы и собирает каталог.
//
// Проверки:
//   - id кейса непустой и уникальный
//   - цена неотрицательная, у бесплатного кейса цена 0
//   - таблица призов непустая, id призов уникальны в пределах кейса
//   - каждый вес конечный и > 0
func New(cases []Case) (*Catalog, error) {
	if len(cases) == 0 {
		return nil, fmt.Errorf("%w: нет ни одного кейса", common.ErrInvalidCatalog)
	}

	c := &Catalog{
		cases: make([]Case, 0, len(cases)),
		byID:  make(map[string]int, len(cases)),
	}
	for _, cs := range cases {
		if err := validateCase(cs); err != nil {
			return nil, err
		}
		if _, dup := c.byID[cs.ID]; dup {
			return nil, fmt.Errorf("%w: кейс %q объявлен дважды", common.ErrInvalidCatalog, cs.ID)
		}
		c.byID[cs.ID] = len(c.cases)
		c.cases = append(c.cases, cs)
	}
	return c, nil
}

func validateCase(cs Case) error {
	if cs.ID == "" {
		return fmt.Errorf("%w: кейс без id", common.ErrInvalidCatalog)
	}
	if cs.Price < 0 {
		return fmt.Errorf("%w: кейс %q: отрицательная цена", common.ErrInvalidCatalog, cs.ID)
	}
	if cs.IsFree && cs.Price != 0 {
		return fmt.Errorf("%w: бесплатный кейс %q с ценой %d", common.ErrInvalidCatalog, cs.ID, cs.Price)
	}
	if len(cs.Prizes) == 0 {
		return fmt.Errorf("%w: кейс %q: пустая таблица призов", common.ErrInvalidCatalog, cs.ID)
	}

	bad, found := lo.Find(cs.Prizes, func(p Prize) bool {
		return p.ID == "" || math.IsNaN(p.Weight) || math.IsInf(p.Weight, 0) || p.Weight <= 0
	})
	if found {
		return fmt.Errorf("%w: кейс %q: приз %q без id или с весом %v", common.ErrInvalidCatalog, cs.ID, bad.ID, bad.Weight)
	}
	if dups := lo.FindDuplicatesBy(cs.Prizes, func(p Prize) string { return p.ID }); len(dups) > 0 {
		return fmt.Errorf("%w: кейс %q: приз %q повторяется", common.ErrInvalidCatalog, cs.ID, dups[0].ID)
	}
	return nil
}

// Case возвращает кейс по id.
func (c *Catalog) Case(id string) (Case, error) {
	i, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Case{}, fmt.Errorf("%w: %q", common.ErrCaseNotFound, id)
	}
	return c.cases[i], nil
}

// Cases возвращает все кейсы в порядке объявления.
func (c *Catalog) Cases() []Case {
	return append([]Case(nil), c.cases...)
}

// Summaries возвращает витрину без таблиц призов.
func (c *Catalog) Summaries() []Summary {
	return lo.Map(c.cases, func(cs Case, _ int) Summary {
		return cs.Summary()
	})
}
