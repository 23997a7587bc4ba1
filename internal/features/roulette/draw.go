// Package roulette — розыгрыш приза по весам и лента для анимации рулетки.
package roulette

import (
	"fmt"
	"math"
	"math/rand/v2"

	"serotonyl.ru/lootcase-bot/internal/common"
	"serotonyl.ru/lootcase-bot/internal/features/catalog"
)

// Draw выбирает приз с вероятностью weight / W.
//
// Отрезок [0, W) делится на полуинтервалы по порядку таблицы,
// выигрывает приз, в чей полуинтервал попало r.
func Draw(rng *rand.Rand, prizes []catalog.Prize) (catalog.Prize, error) {
	total, err := totalWeight(prizes)
	if err != nil {
		return catalog.Prize{}, err
	}
	return pick(prizes, rng.Float64()*total), nil
}

func totalWeight(prizes []catalog.Prize) (float64, error) {
	if len(prizes) == 0 {
		return 0, fmt.Errorf("%w: пустая таблица призов", common.ErrInvalidCatalog)
	}
	var total float64
	for _, p := range prizes {
		if math.IsNaN(p.Weight) || math.IsInf(p.Weight, 0) || p.Weight <= 0 {
			return 0, fmt.Errorf("%w: приз %q с весом %v", common.ErrInvalidCatalog, p.ID, p.Weight)
		}
		total += p.Weight
	}
	if math.IsInf(total, 0) || total <= 0 {
		return 0, fmt.Errorf("%w: сумма весов %v", common.ErrInvalidCatalog, total)
	}
	return total, nil
}

// pick ищет полуинтервал, содержащий r.
// Если из-за округления r >= накопленной суммы (например r*W дало ровно W),
// возвращается последний приз таблицы.
func pick(prizes []catalog.Prize, r float64) catalog.Prize {
	var cum float64
	for _, p := range prizes {
		cum += p.Weight
		if r < cum {
			return p
		}
	}
	return prizes[len(prizes)-1]
}
