package domain

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Rand is the subset of *rand.Rand the model draws from.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// NewSeededRand returns a PCG-backed source. A zero seed picks one from the clock.
func NewSeededRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// ActivityModel samples activities by weight and synthesises their metrics.
// It is not safe for concurrent use; the generator drives it from one goroutine.
type ActivityModel struct {
	rng        Rand
	profiles   []ActivityProfile
	byName     map[string]int
	cumulative []float64
	total      float64
	now        func() time.Time
}

// NewActivityModel validates the catalog and builds the cumulative weight table.
func NewActivityModel(catalog []ActivityProfile, rng Rand) (*ActivityModel, error) {
	if len(catalog) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", ErrInvalidProfile)
	}

	m := &ActivityModel{
		rng:        rng,
		profiles:   make([]ActivityProfile, 0, len(catalog)),
		byName:     make(map[string]int, len(catalog)),
		cumulative: make([]float64, 0, len(catalog)),
		now:        time.Now,
	}
	for _, p := range catalog {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidProfile, p.Name, err)
		}
		if _, dup := m.byName[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate activity %q", ErrInvalidProfile, p.Name)
		}
		m.total += p.Weight
		m.byName[p.Name] = len(m.profiles)
		m.profiles = append(m.profiles, p)
		m.cumulative = append(m.cumulative, m.total)
	}
	if math.IsInf(m.total, 0) {
		return nil, fmt.Errorf("%w: total weight overflows", ErrInvalidProfile)
	}
	return m, nil
}

// SetTimeFunc overrides the clock used to stamp generated events.
func (m *ActivityModel) SetTimeFunc(fn func() time.Time) {
	m.now = fn
}

// Profiles returns a copy of the catalog in selection order.
func (m *ActivityModel) Profiles() []ActivityProfile {
	out := make([]ActivityProfile, len(m.profiles))
	copy(out, m.profiles)
	return out
}

// Probability returns the normalised selection probability for an activity.
func (m *ActivityModel) Probability(activity string) (float64, error) {
	idx, ok := m.byName[activity]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidActivity, activity)
	}
	return m.profiles[idx].Weight / m.total, nil
}

// ChooseActivity draws one activity name with probability proportional to its weight.
func (m *ActivityModel) ChooseActivity() string {
	target := m.rng.Float64() * m.total
	idx := sort.Search(len(m.cumulative), func(i int) bool {
		return m.cumulative[i] > target
	})
	if idx == len(m.cumulative) {
		// only reachable if Rand.Float64 returns 1
		idx = len(m.cumulative) - 1
	}
	return m.profiles[idx].Name
}

// Synthesize samples steps, heart rate and calories for the named activity.
// Calories are rounded half away from zero to two decimals.
func (m *ActivityModel) Synthesize(activity string) (Metrics, error) {
	idx, ok := m.byName[activity]
	if !ok {
		return Metrics{}, fmt.Errorf("%w: %q", ErrInvalidActivity, activity)
	}
	p := m.profiles[idx]

	return Metrics{
		Steps:     m.intBetween(p.Steps),
		HeartRate: m.intBetween(p.HeartRate),
		Calories:  roundCents(p.CaloriesPerMin.Min + m.rng.Float64()*(p.CaloriesPerMin.Max-p.CaloriesPerMin.Min)),
	}, nil
}

// GenerateEvent composes ChooseActivity and Synthesize into an event for userID.
func (m *ActivityModel) GenerateEvent(userID int) FitnessEvent {
	activity := m.ChooseActivity()
	metrics, err := m.Synthesize(activity)
	if err != nil {
		// ChooseActivity only returns catalog names.
		panic(err)
	}
	return FitnessEvent{
		ID:           uuid.New(),
		UserID:       userID,
		ActivityType: activity,
		Steps:        metrics.Steps,
		HeartRate:    metrics.HeartRate,
		Calories:     metrics.Calories,
		GeneratedAt:  m.now(),
	}
}

// PickUser returns a uniformly chosen id from users.
func (m *ActivityModel) PickUser(users []int) (int, error) {
	if len(users) == 0 {
		return 0, ErrEmptyRoster
	}
	return users[m.rng.IntN(len(users))], nil
}

func (m *ActivityModel) intBetween(r IntRange) int {
	return r.Min + m.rng.IntN(r.Max-r.Min+1)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
