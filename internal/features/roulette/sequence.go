package roulette

import (
	"fmt"
	"math/rand/v2"

	"serotonyl.ru/lootcase-bot/internal/common"
	"serotonyl.ru/lootcase-bot/internal/features/catalog"
)

const (
	DefaultStripLength  = 51
	DefaultWinningIndex = 25
)

// Generate строит ленту из length слотов.
// Слот winningIndex — выигрыш, остальные выбираются равновероятно из all, без учёта весов:
// лента только декорация, исход уже решён.
func Generate(rng *rand.Rand, winner catalog.Prize, all []catalog.Prize, length, winningIndex int) ([]catalog.Prize, error) {
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: пустая таблица призов", common.ErrInvalidCatalog)
	}
	if length <= 0 || winningIndex < 0 || winningIndex >= length {
		return nil, fmt.Errorf("%w: лента длины %d с выигрышем в слоте %d", common.ErrInvalidCatalog, length, winningIndex)
	}

	strip := make([]catalog.Prize, length)
	for i := range strip {
		if i == winningIndex {
			strip[i] = winner
			continue
		}
		strip[i] = all[rng.IntN(len(all))]
	}
	return strip, nil
}
