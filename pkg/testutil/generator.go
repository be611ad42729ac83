// Package testutil provides deterministic push/job fixtures and assertion
// helpers shared by the package tests.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/vanderheijden86/pushboard/pkg/model"
)

// GeneratorConfig controls push generation.
type GeneratorConfig struct {
	Seed           int64    // Random seed for determinism (0 = use current time)
	Platforms      []string // Platform names (default: linux64, windows10-64)
	Options        []string // Build options (default: opt, debug)
	GroupsPer      int      // Groups per platform (default 3)
	JobsPerGroup   int      // Jobs per group (default 6)
	SymbolsPer     int      // Distinct type symbols per group (default 3)
	StatusMix      []string // Statuses to draw from (default: model.AllStatuses minus runnable)
	ClassifiedRate float64  // Fraction of failures that carry a classification
	FirstJobID     int64    // First job id (default 1000)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:           42,
		Platforms:      []string{"linux64", "windows10-64"},
		Options:        []string{"opt", "debug"},
		GroupsPer:      3,
		JobsPerGroup:   6,
		SymbolsPer:     3,
		StatusMix:      []string{"success", "success", "success", "testfailed", "busted", "retry", "running", "pending"},
		ClassifiedRate: 0.3,
		FirstJobID:     1000,
	}
}

// Generator creates push fixtures.
type Generator struct {
	cfg    GeneratorConfig
	rng    *rand.Rand
	nextID int64
}

// New creates a Generator with the given config, filling in defaults.
func New(cfg GeneratorConfig) *Generator {
	def := DefaultConfig()
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if len(cfg.Platforms) == 0 {
		cfg.Platforms = def.Platforms
	}
	if len(cfg.Options) == 0 {
		cfg.Options = def.Options
	}
	if cfg.GroupsPer <= 0 {
		cfg.GroupsPer = def.GroupsPer
	}
	if cfg.JobsPerGroup <= 0 {
		cfg.JobsPerGroup = def.JobsPerGroup
	}
	if cfg.SymbolsPer <= 0 {
		cfg.SymbolsPer = def.SymbolsPer
	}
	if len(cfg.StatusMix) == 0 {
		cfg.StatusMix = def.StatusMix
	}
	if cfg.FirstJobID == 0 {
		cfg.FirstJobID = def.FirstJobID
	}
	return &Generator{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		nextID: cfg.FirstJobID,
	}
}

// NewDefault creates a Generator with the default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Push generates a push with the configured shape.
func (g *Generator) Push(id int64) *model.Push {
	push := &model.Push{
		ID:            id,
		Revision:      fmt.Sprintf("%040x", g.rng.Int63()),
		Author:        "dev@example.com",
		PushTimestamp: 1735732800 + id,
	}
	for _, name := range g.cfg.Platforms {
		for _, opt := range g.cfg.Options {
			plat := &model.Platform{Name: name, Option: opt}
			for gi := 0; gi < g.cfg.GroupsPer; gi++ {
				symbol := string(rune('A' + gi))
				tier := 1
				if gi == g.cfg.GroupsPer-1 && gi > 0 {
					tier = 2
				}
				grp := &model.Group{Name: "Group " + symbol, Symbol: symbol, Tier: tier}
				for ji := 0; ji < g.cfg.JobsPerGroup; ji++ {
					typeSymbol := fmt.Sprintf("%s%d", symbol, g.rng.Intn(g.cfg.SymbolsPer)+1)
					grp.Jobs = append(grp.Jobs, g.job(push.ID, plat, grp, typeSymbol))
				}
				plat.Groups = append(plat.Groups, grp)
			}
			push.Platforms = append(push.Platforms, plat)
		}
	}
	return push
}

func (g *Generator) job(pushID int64, plat *model.Platform, grp *model.Group, typeSymbol string) *model.Job {
	status := g.cfg.StatusMix[g.rng.Intn(len(g.cfg.StatusMix))]
	j := &model.Job{
		ID:                      g.nextID,
		PushID:                  pushID,
		JobTypeName:             fmt.Sprintf("test-%s/%s-%s", plat.Name, plat.Option, typeSymbol),
		JobTypeSymbol:           typeSymbol,
		JobGroupName:            grp.Name,
		JobGroupSymbol:          grp.Symbol,
		Tier:                    grp.Tier,
		Platform:                plat.Name,
		PlatformOption:          plat.Option,
		FailureClassificationID: model.ClassificationNotClassified,
		RefDataName:             fmt.Sprintf("%s-%s-%s", plat.Name, plat.Option, typeSymbol),
	}
	g.nextID++
	switch status {
	case string(model.StatePending), string(model.StateRunning), string(model.StateRunnable):
		j.State = model.JobState(status)
		j.Result = model.ResultUnknown
	default:
		j.State = model.StateCompleted
		j.Result = status
		if model.IsFailureStatus(status) && g.rng.Float64() < g.cfg.ClassifiedRate {
			j.FailureClassificationID = 2 + g.rng.Intn(3)
		}
	}
	return j
}

// RunnableJobs returns runnable placeholders for every platform of the push,
// one per group, with ids starting at firstID.
func (g *Generator) RunnableJobs(push *model.Push, firstID int64) []*model.Job {
	var out []*model.Job
	id := firstID
	for _, plat := range push.Platforms {
		for _, grp := range plat.Groups {
			out = append(out, &model.Job{
				ID:                      id,
				PushID:                  push.ID,
				JobTypeName:             fmt.Sprintf("test-%s/%s-%s-r", plat.Name, plat.Option, grp.Symbol),
				JobTypeSymbol:           grp.Symbol + "r",
				JobGroupName:            grp.Name,
				JobGroupSymbol:          grp.Symbol,
				Tier:                    grp.Tier,
				Platform:                plat.Name,
				PlatformOption:          plat.Option,
				State:                   model.StateRunnable,
				RefDataName:             fmt.Sprintf("%s-%s-%s-r", plat.Name, plat.Option, grp.Symbol),
				FailureClassificationID: model.ClassificationNotClassified,
			})
			id++
		}
	}
	return out
}

// Job builds a completed (or pending/running) job for hand-written fixtures.
// Status is a result for completed jobs or a state name otherwise.
func Job(id int64, typeSymbol, status string) *model.Job {
	j := &model.Job{
		ID:                      id,
		PushID:                  1,
		JobTypeName:             "test-" + typeSymbol,
		JobTypeSymbol:           typeSymbol,
		JobGroupName:            "Mochitests",
		JobGroupSymbol:          "M",
		Tier:                    1,
		Platform:                "linux64",
		PlatformOption:          "opt",
		FailureClassificationID: model.ClassificationNotClassified,
	}
	switch status {
	case string(model.StatePending), string(model.StateRunning), string(model.StateRunnable):
		j.State = model.JobState(status)
	default:
		j.State = model.StateCompleted
		j.Result = status
	}
	return j
}

// SingleGroupPush wraps jobs in a push with one linux64 opt platform holding
// one "M" group.
func SingleGroupPush(id int64, jobs ...*model.Job) *model.Push {
	return &model.Push{
		ID:       id,
		Revision: "abcdef0123456789abcdef0123456789abcdef01",
		Platforms: []*model.Platform{{
			Name:   "linux64",
			Option: "opt",
			Groups: []*model.Group{{Name: "Mochitests", Symbol: "M", Tier: 1, Jobs: jobs}},
		}},
	}
}
