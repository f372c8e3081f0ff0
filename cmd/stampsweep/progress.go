// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/runner"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/sweep"
)

// newProgress picks a bar for terminals and one line per run otherwise.
func newProgress(w io.Writer, interactive bool) sweep.Progress {
	if interactive {
		return &barProgress{w: w, bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))}
	}
	return &lineProgress{w: w}
}

// barProgress redraws a single progress bar line in place.
type barProgress struct {
	mu    sync.Mutex
	w     io.Writer
	bar   progress.Model
	total int
	done  int
}

func (p *barProgress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
	p.done = 0
	p.draw("")
}

func (p *barProgress) Advance(o runner.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	p.draw(fmt.Sprintf("%s t=%d", o.Invocation.Variant, o.Invocation.Threads))
}

func (p *barProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w)
}

// draw must be called with mu held.
func (p *barProgress) draw(label string) {
	pct := 1.0
	if p.total > 0 {
		pct = float64(p.done) / float64(p.total)
	}
	fmt.Fprintf(p.w, "\r%s %d/%d %-24s", p.bar.ViewAs(pct), p.done, p.total, label)
}

// lineProgress writes one plain line per completed run, for logs and CI.
type lineProgress struct {
	mu    sync.Mutex
	w     io.Writer
	total int
	done  int
}

func (p *lineProgress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
	p.done = 0
}

func (p *lineProgress) Advance(o runner.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	width := len(fmt.Sprint(p.total))
	fmt.Fprintf(p.w, "[%*d/%d] %s threads=%d sample=%g attempts=%d\n",
		width, p.done, p.total, o.Invocation.Variant, o.Invocation.Threads, o.Sample, o.Attempts)
}

func (p *lineProgress) Finish() {}
