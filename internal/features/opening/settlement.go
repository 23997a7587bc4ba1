package opening

import (
	"fmt"
	"time"

	"serotonyl.ru/lootcase-bot/internal/common"
	"serotonyl.ru/lootcase-bot/internal/features/accounts"
	"serotonyl.ru/lootcase-bot/internal/features/catalog"
)

// Settle решает, что сделать с сессией при commit.
//
// Баланс мог измениться после prepare, поэтому цена проверяется снова.
// Если денег не хватает, сессия всё равно сгорает: розыгрыш не переигрывается.
// Приз в баланс не конвертируется, только в инвентарь.
func Settle(cs catalog.Case, s *Session, acc *accounts.Account, now time.Time) Settlement {
	if acc.Balance < cs.Price {
		return Settlement{
			Consume: true,
			Err: fmt.Errorf("%w: нужно %d, есть %d",
				common.ErrInsufficientFunds, cs.Price, acc.Balance),
		}
	}
	return Settlement{
		Consume: true,
		Apply:   true,
		Price:   cs.Price,
		Item: accounts.InventoryItem{
			AccountID:  acc.ID,
			CaseID:     cs.ID,
			PrizeID:    s.Prize.ID,
			PrizeName:  s.Prize.Name,
			PrizeImage: s.Prize.Image,
			ObtainedAt: now,
		},
	}
}

// ApplyTo возвращает аккаунт после расчёта. Хранилища вызывают её,
// чтобы не перечитывать строку, которую держат под блокировкой.
func (st Settlement) ApplyTo(acc accounts.Account) accounts.Account {
	if !st.Apply {
		return acc
	}
	acc.Balance -= st.Price
	acc.TotalSpent += st.Price
	acc.CasesOpened++
	acc.LastActive = st.Item.ObtainedAt
	return acc
}
