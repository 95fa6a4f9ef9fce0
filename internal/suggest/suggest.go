// Package suggest rotates the image prompt suggestion shown to every session.
package suggest

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
)

const DefaultSchedule = "@every 60s"

var Prompts = []string{
	"Un dragón volando sobre una ciudad futurista, arte digital",
	"Un retrato de una reina azteca en estilo realista",
	"Un bosque encantado con criaturas mágicas, estilo Studio Ghibli",
	"Un robot tomando café en una terraza parisina, arte conceptual",
	"Un paisaje marciano al atardecer, colores vibrantes",
	"Un guerrero samurái en una tormenta de pétalos, estilo anime",
	"Un templo maya en la jungla, hiperrealista",
	"Un auto clásico en una carretera nevada, fotografía nocturna",
}

type Suggestion struct {
	Index  int    `json:"index"`
	Total  int    `json:"total"`
	Prompt string `json:"prompt"`
}

type Rotator struct {
	cron *cron.Cron

	mu      sync.RWMutex
	prompts []string
	index   int
}

// NewRotator schedules Advance on schedule. Nothing runs until Start.
func NewRotator(schedule string, prompts []string) (*Rotator, error) {
	if len(prompts) == 0 {
		prompts = Prompts
	}
	r := &Rotator{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		prompts: append([]string(nil), prompts...),
	}
	if _, err := r.cron.AddFunc(schedule, r.Advance); err != nil {
		return nil, fmt.Errorf("schedule suggestion rotation %q: %w", schedule, err)
	}
	return r, nil
}

func (r *Rotator) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running rotation, bounded by ctx.
func (r *Rotator) Stop(ctx context.Context) {
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (r *Rotator) Advance() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = (r.index + 1) % len(r.prompts)
}

func (r *Rotator) Current() Suggestion {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Suggestion{Index: r.index, Total: len(r.prompts), Prompt: r.prompts[r.index]}
}

func (r *Rotator) All() []string {
	return append([]string(nil), r.prompts...)
}
