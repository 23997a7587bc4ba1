// Package catalog описывает статический каталог кейсов и их таблицы призов.
// models.go описывает структуры кейсов и призов.
package catalog

// Prize — приз из таблицы кейса.
// Вес относительный: вероятность = Weight / сумма весов таблицы.
type Prize struct {
	ID     string  `mapstructure:"id" json:"id"`
	Name   string  `mapstructure:"name" json:"name"`
	Image  string  `mapstructure:"image" json:"image"`
	Weight float64 `mapstructure:"weight" json:"-"` // Шансы клиенту не отдаём
}

// Case — кейс, который можно открыть за Price монет (или бесплатно).
type Case struct {
	ID     string
	Name   string
	Image  string
	Price  int64
	IsFree bool
	Prizes []Prize // Порядок важен: по нему режется отрезок [0, W)
}

// Summary — кейс без таблицы призов, для витрины.
type Summary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Image  string `json:"image"`
	Price  int64  `json:"price"`
	IsFree bool   `json:"is_free"`
}

// Summary возвращает витринное представление кейса.
func (c Case) Summary() Summary {
	return Summary{
		ID:     c.ID,
		Name:   c.Name,
		Image:  c.Image,
		Price:  c.Price,
		IsFree: c.IsFree,
	}
}

// rawCatalog — формат YAML-файла каталога.
// Таблицу призов можно задать прямо в кейсе (prizes) или сослаться на общую (prize_table).
type rawCatalog struct {
	PrizeTables map[string][]Prize `mapstructure:"prize_tables"`
	Cases       []rawCase          `mapstructure:"cases"`
}

type rawCase struct {
	ID         string  `mapstructure:"id"`
	Name       string  `mapstructure:"name"`
	Image      string  `mapstructure:"image"`
	Price      int64   `mapstructure:"price"`
	IsFree     bool    `mapstructure:"is_free"`
	PrizeTable string  `mapstructure:"prize_table"`
	Prizes     []Prize `mapstructure:"prizes"`
}
