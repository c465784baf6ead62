package identity

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gotchalabs/social-auth/security"
)

const (
	nicknameAttempts   = 10
	nicknameNumberSpan = 10000
)

var nicknameAdjectives = []string{
	"brave", "calm", "clever", "eager", "gentle", "happy", "jolly",
	"keen", "lively", "lucky", "merry", "nimble", "proud", "quick",
	"sunny", "witty",
}

var nicknameNouns = []string{
	"badger", "comet", "falcon", "fox", "heron", "lark", "lynx",
	"maple", "otter", "panda", "pine", "raven", "river", "sparrow",
	"tiger", "wren",
}

// NicknameGenerator produces collision-checked display names of the
// form adjective+noun+"#"+number.
type NicknameGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now security.NowFunc
}

// NewNicknameGenerator seeds the generator from the wall clock.
func NewNicknameGenerator() *NicknameGenerator {
	return &NicknameGenerator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
}

// SetRandSource replaces the randomness source. Intended for tests.
func (g *NicknameGenerator) SetRandSource(src rand.Source) {
	if src != nil {
		g.mu.Lock()
		g.rng = rand.New(src)
		g.mu.Unlock()
	}
}

// SetClock replaces the generator's time source. Intended for tests.
func (g *NicknameGenerator) SetClock(now security.NowFunc) {
	if now != nil {
		g.now = now
	}
}

// Generate returns a nickname for which taken reports false, trying a
// bounded number of random candidates before falling back to a
// timestamp-derived name that cannot collide under normal operation.
func (g *NicknameGenerator) Generate(ctx context.Context, taken func(ctx context.Context, nickname string) (bool, error)) (string, error) {
	for i := 0; i < nicknameAttempts; i++ {
		candidate := g.random()
		exists, err := taken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking nickname %q: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return fmt.Sprintf("user#%d", g.now().UnixMilli()), nil
}

func (g *NicknameGenerator) random() string {
	g.mu.Lock()
	adj := nicknameAdjectives[g.rng.Intn(len(nicknameAdjectives))]
	noun := nicknameNouns[g.rng.Intn(len(nicknameNouns))]
	n := g.rng.Intn(nicknameNumberSpan)
	g.mu.Unlock()
	return fmt.Sprintf("%s%s#%d", adj, noun, n)
}
