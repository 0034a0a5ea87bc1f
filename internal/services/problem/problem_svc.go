package problem

import (
	"context"
	"hash/fnv"
	"math/rand"
	"slices"

	"braingarden/internal/services/memoryset"
)

// Problem is one quiz question: the answer plus the shuffled choices
// (the answer is always among them).
type Problem struct {
	Correct memoryset.WordItem   `json:"correct"`
	Options []memoryset.WordItem `json:"options"`
}

type GenerateParams struct {
	SetID string
	// Seed makes generation deterministic: two clients passing the same
	// seed (a battle room's per-round seed) get the identical question
	// and option order. Empty means non-deterministic.
	Seed string
	// WrongHistory lists previously missed words, weighted 5:1 by the
	// "review" order type.
	WrongHistory []string
	// CurrentIndex drives the "sequential" order type.
	CurrentIndex int
}

type IProblemService interface {
	Generate(ctx context.Context, p GenerateParams) (*Problem, error)
}

type problemService struct {
	sets memoryset.IMemorySetService
}

func NewProblemService(sets memoryset.IMemorySetService) IProblemService {
	return &problemService{sets: sets}
}

func (svc *problemService) Generate(ctx context.Context, p GenerateParams) (*Problem, error) {
	pool, orderType := svc.sets.Words(ctx, p.SetID)

	var rng *rand.Rand
	if p.Seed != "" {
		rng = rand.New(rand.NewSource(seedToInt(p.Seed)))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	var correct memoryset.WordItem
	switch orderType {
	case "sequential":
		correct = pool[p.CurrentIndex%len(pool)]
	case "review":
		weighted := make([]memoryset.WordItem, 0, len(pool)*2)
		for _, w := range pool {
			weight := 1
			if slices.Contains(p.WrongHistory, w.Text) {
				weight = 5
			}
			for i := 0; i < weight; i++ {
				weighted = append(weighted, w)
			}
		}
		correct = weighted[rng.Intn(len(weighted))]
	default:
		correct = pool[rng.Intn(len(pool))]
	}

	others := make([]memoryset.WordItem, 0, len(pool)-1)
	for _, w := range pool {
		if w.Text != correct.Text {
			others = append(others, w)
		}
	}
	rng.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })

	sampleSize := min(3, len(others))
	options := append([]memoryset.WordItem{correct}, others[:sampleSize]...)
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	return &Problem{Correct: correct, Options: options}, nil
}

func seedToInt(seed string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	return int64(h.Sum64())
}
