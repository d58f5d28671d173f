package stealth

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// Behavior produces humanlike timing and interaction patterns. Delays come
// from Gaussian distributions rather than uniform random, which is what
// timing-based bot detectors look for.
type Behavior struct {
	mu    sync.Mutex
	rng   *rand.Rand
	speed float64
}

// NewBehavior creates a Behavior. speedFactor scales every delay: 1.0 is
// normal, 0.5 faster, 2.0 more cautious. seed 0 means time-seeded.
func NewBehavior(speedFactor float64, seed int64) *Behavior {
	if speedFactor <= 0 {
		speedFactor = 1
	}
	src := rand.NewSource(seed)
	if seed == 0 {
		src = rand.NewSource(rand.Int63())
	}
	return &Behavior{rng: rand.New(src), speed: speedFactor}
}

func (b *Behavior) gaussian(mean, std, min time.Duration) time.Duration {
	b.mu.Lock()
	g := b.rng.NormFloat64()
	b.mu.Unlock()
	d := time.Duration(float64(mean) + g*float64(std))
	if d < min {
		d = min
	}
	return time.Duration(float64(d) * b.speed)
}

// ShortPause is a between-action pause.
func (b *Behavior) ShortPause() time.Duration {
	return b.gaussian(1200*time.Millisecond, 500*time.Millisecond, 500*time.Millisecond)
}

// ReadingPause is a longer pause as if reading page content.
func (b *Behavior) ReadingPause() time.Duration {
	return b.gaussian(3500*time.Millisecond, 1500*time.Millisecond, time.Second)
}

// MicroPause is a tiny gap between rapid actions.
func (b *Behavior) MicroPause() time.Duration {
	return b.gaussian(400*time.Millisecond, 150*time.Millisecond, 100*time.Millisecond)
}

// ScrollDistance picks a main downward scroll distance in pixels.
func (b *Behavior) ScrollDistance() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return 300 + b.rng.Intn(601)
}

// chance returns true with probability p.
func (b *Behavior) chance(p float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.Float64() < p
}

// HumanScroll scrolls down with variable distance, occasionally scrolling
// back up a little the way a reader re-checks something.
func (b *Behavior) HumanScroll() chromedp.Action {
	tasks := chromedp.Tasks{
		chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", b.ScrollDistance()), nil),
		chromedp.Sleep(b.gaussian(800*time.Millisecond, 300*time.Millisecond, 300*time.Millisecond)),
	}
	if b.chance(0.2) {
		back := 50 + b.intn(151)
		tasks = append(tasks,
			chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, -%d)", back), nil),
			chromedp.Sleep(b.gaussian(time.Second, 400*time.Millisecond, 300*time.Millisecond)),
		)
	}
	if b.chance(0.15) {
		tasks = append(tasks, chromedp.Sleep(b.ReadingPause()))
	}
	return tasks
}

// ScrollToBottom jumps to the page end, used to trigger lazy loaders after
// the human-looking increments.
func (b *Behavior) ScrollToBottom() chromedp.Action {
	return chromedp.Tasks{
		chromedp.Evaluate("window.scrollTo(0, document.body.scrollHeight)", nil),
		chromedp.Sleep(b.ShortPause()),
	}
}

func (b *Behavior) intn(n int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.Intn(n)
}
