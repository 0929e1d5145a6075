package kmedoids

import (
	"fmt"
	"strings"

	"github.com/banshee-data/geokmedoids/internal/timeutil"
)

// Init selects how the first medoids are chosen.
type Init string

// Initialisation strategies.
const (
	InitRandom     Init = "random"
	InitHeuristic  Init = "heuristic"
	InitKMedoidsPP Init = "k-medoids++"
	InitBuild      Init = "build"
)

// Method selects the refinement algorithm.
type Method string

// Refinement methods.
const (
	MethodAlternate Method = "alternate"
	MethodPAM       Method = "pam"
)

// Defaults applied to zero Config fields.
const (
	DefaultInit    = InitKMedoidsPP
	DefaultMethod  = MethodAlternate
	DefaultMaxIter = 300
)

// ValidInits and ValidMethods list the canonical names.
var (
	ValidInits   = []Init{InitRandom, InitHeuristic, InitKMedoidsPP, InitBuild}
	ValidMethods = []Method{MethodAlternate, MethodPAM}
)

// ParseInit maps an initialisation name or alias to its canonical value.
func ParseInit(s string) (Init, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "random":
		return InitRandom, nil
	case "heuristic":
		return InitHeuristic, nil
	case "k-medoids++", "kmedoids++", "probabilistic-seeding":
		return InitKMedoidsPP, nil
	case "build", "greedy-build":
		return InitBuild, nil
	}
	return "", fmt.Errorf("%w: unknown init %q", ErrConfiguration, s)
}

// ParseMethod maps a method name or alias to its canonical value.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "alternate":
		return MethodAlternate, nil
	case "pam", "full-swap":
		return MethodPAM, nil
	}
	return "", fmt.Errorf("%w: unknown method %q", ErrConfiguration, s)
}

// Config holds the clustering parameters.
type Config struct {
	// K is the number of clusters, 1 ≤ K ≤ N.
	K int
	// Init defaults to DefaultInit when empty.
	Init Init
	// Method defaults to DefaultMethod when empty.
	Method Method
	// MaxIter caps refinement iterations. Zero selects DefaultMaxIter.
	MaxIter int
	// Seed feeds the random generator used by the random and k-medoids++
	// initialisations.
	Seed uint64
	// Workers bounds the PAM swap search concurrency; values below one
	// select GOMAXPROCS.
	Workers int
	// Clock times the fit. Nil selects the real clock.
	Clock timeutil.Clock
}

// withDefaults returns a copy of c with zero fields filled in, validated
// against a data set of n points.
func (c Config) withDefaults(n int) (Config, error) {
	if n == 0 {
		return c, fmt.Errorf("%w: no points to cluster", ErrConfiguration)
	}
	if c.K <= 0 {
		return c, fmt.Errorf("%w: K must be positive, got %d", ErrConfiguration, c.K)
	}
	if c.K > n {
		return c, fmt.Errorf("%w: K=%d exceeds the number of points (%d)", ErrConfiguration, c.K, n)
	}
	if c.MaxIter < 0 {
		return c, fmt.Errorf("%w: max iterations must be at least 1, got %d", ErrConfiguration, c.MaxIter)
	}
	if c.MaxIter == 0 {
		c.MaxIter = DefaultMaxIter
	}

	var err error
	if c.Init == "" {
		c.Init = DefaultInit
	} else if c.Init, err = ParseInit(string(c.Init)); err != nil {
		return c, err
	}
	if c.Method == "" {
		c.Method = DefaultMethod
	} else if c.Method, err = ParseMethod(string(c.Method)); err != nil {
		return c, err
	}
	if c.Clock == nil {
		c.Clock = timeutil.RealClock{}
	}
	return c, nil
}
