package roulette

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"serotonyl.ru/lootcase-bot/internal/common"
	"serotonyl.ru/lootcase-bot/internal/features/catalog"
)

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestDraw_Distribution(t *testing.T) {
	prizes := []catalog.Prize{
		{ID: "common", Weight: 70},
		{ID: "rare", Weight: 20},
		{ID: "epic", Weight: 9.5},
		{ID: "legend", Weight: 0.5},
	}
	const rounds = 100_000
	count := map[string]int{}
	rng := NewRand()
	for i := 0; i < rounds; i++ {
		p, err := Draw(rng, prizes)
		if err != nil {
			t.Fatal(err)
		}
		count[p.ID]++
	}

	const tol = 0.01
	for _, p := range prizes {
		want := p.Weight / 100
		got := float64(count[p.ID]) / rounds
		if math.Abs(got-want) > tol {
			t.Errorf("%s proportion %.4f want ~%.4f (tol ±%.2f)", p.ID, got, want, tol)
		}
	}
}

func TestDraw_SinglePrize(t *testing.T) {
	prizes := []catalog.Prize{{ID: "only", Weight: 0.001}}
	for i := 0; i < 20; i++ {
		p, err := Draw(seeded(), prizes)
		if err != nil {
			t.Fatal(err)
		}
		if p.ID != "only" {
			t.Fatalf("got %q", p.ID)
		}
	}
}

func TestDraw_InvalidTable(t *testing.T) {
	tests := []struct {
		name   string
		prizes []catalog.Prize
	}{
		{"empty", nil},
		{"zero weight", []catalog.Prize{{ID: "a", Weight: 1}, {ID: "b", Weight: 0}}},
		{"negative weight", []catalog.Prize{{ID: "a", Weight: -1}}},
		{"nan", []catalog.Prize{{ID: "a", Weight: math.NaN()}}},
		{"inf", []catalog.Prize{{ID: "a", Weight: math.Inf(1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Draw(seeded(), tt.prizes); !errors.Is(err, common.ErrInvalidCatalog) {
				t.Fatalf("err = %v, want ErrInvalidCatalog", err)
			}
		})
	}
}

func TestPick_Boundaries(t *testing.T) {
	prizes := []catalog.Prize{
		{ID: "a", Weight: 1},
		{ID: "b", Weight: 2},
		{ID: "c", Weight: 3},
	}
	tests := []struct {
		r    float64
		want string
	}{
		{0, "a"},
		{0.999, "a"},
		{1, "b"},
		{2.999, "b"},
		{3, "c"},
		{5.999, "c"},
		// r == W из-за округления: последний приз
		{6, "c"},
		{6.5, "c"},
	}
	for _, tt := range tests {
		if got := pick(prizes, tt.r); got.ID != tt.want {
			t.Errorf("pick(%v) = %q, want %q", tt.r, got.ID, tt.want)
		}
	}
}

func TestGenerate_WinnerPinned(t *testing.T) {
	all := []catalog.Prize{{ID: "a", Weight: 1}, {ID: "b", Weight: 1}, {ID: "c", Weight: 98}}
	winner := all[0]
	allowed := map[string]bool{"a": true, "b": true, "c": true}

	rng := NewRand()
	for i := 0; i < 200; i++ {
		strip, err := Generate(rng, winner, all, DefaultStripLength, DefaultWinningIndex)
		if err != nil {
			t.Fatal(err)
		}
		if len(strip) != DefaultStripLength {
			t.Fatalf("len = %d, want %d", len(strip), DefaultStripLength)
		}
		if strip[DefaultWinningIndex].ID != winner.ID {
			t.Fatalf("slot %d = %q, want %q", DefaultWinningIndex, strip[DefaultWinningIndex].ID, winner.ID)
		}
		for j, p := range strip {
			if !allowed[p.ID] {
				t.Fatalf("slot %d holds unknown prize %q", j, p.ID)
			}
		}
	}
}

func TestGenerate_Uniform(t *testing.T) {
	// веса сильно перекошены, а декоративные слоты всё равно равновероятны
	all := []catalog.Prize{{ID: "a", Weight: 99}, {ID: "b", Weight: 1}}
	count := map[string]int{}
	total := 0
	rng := seeded()
	for i := 0; i < 2000; i++ {
		strip, err := Generate(rng, all[0], all, 51, 25)
		if err != nil {
			t.Fatal(err)
		}
		for j, p := range strip {
			if j == 25 {
				continue
			}
			count[p.ID]++
			total++
		}
	}
	if p := float64(count["b"]) / float64(total); p < 0.48 || p > 0.52 {
		t.Errorf("b proportion %.4f want ~0.5", p)
	}
}

func TestGenerate_InvalidArgs(t *testing.T) {
	all := []catalog.Prize{{ID: "a", Weight: 1}}
	tests := []struct {
		name         string
		all          []catalog.Prize
		length, slot int
	}{
		{"empty table", nil, 51, 25},
		{"zero length", all, 0, 0},
		{"negative index", all, 51, -1},
		{"index past end", all, 51, 51},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Generate(seeded(), all[0], tt.all, tt.length, tt.slot); !errors.Is(err, common.ErrInvalidCatalog) {
				t.Fatalf("err = %v, want ErrInvalidCatalog", err)
			}
		})
	}
}
