// Package flow implements the flow definition model. Every operation is a pure
// function: it returns a new flow and never mutates its argument, so a failed
// mutation leaves the caller's flow exactly as it was.
package flow

import (
	"fmt"
	"sort"

	"github.com/robfig/cron/v3"

	"sellerops/internal/catalog"
	"sellerops/internal/ids"
	"sellerops/internal/models"
)

// New creates an empty flow
func New(gen ids.Generator, name, description string, trigger models.Trigger) models.Flow {
	if trigger == "" {
		trigger = models.TriggerManual
	}
	return models.Flow{
		ID:          gen.Next(),
		Name:        name,
		Description: description,
		Trigger:     trigger,
		Blocks:      []models.Block{},
		Steps:       []models.Step{},
	}
}

// Validate checks every structural invariant of a flow and reports all
// problems at once. Dangling block references are reported as a
// DanglingReferenceError so callers can tell them apart.
func Validate(f models.Flow) error {
	var problems []string

	if f.Name == "" {
		problems = append(problems, "name is required")
	}
	if !f.Trigger.Valid() {
		problems = append(problems, fmt.Sprintf("unknown trigger %q", f.Trigger))
	}
	if f.Schedule != "" {
		if f.Trigger != models.TriggerScheduled {
			problems = append(problems, "schedule is only allowed with the scheduled trigger")
		} else if _, err := cron.ParseStandard(f.Schedule); err != nil {
			problems = append(problems, fmt.Sprintf("invalid schedule %q: %v", f.Schedule, err))
		}
	}

	blocks := make(map[string]bool, len(f.Blocks))
	for _, b := range f.Blocks {
		if b.ID == "" {
			problems = append(problems, "block without id")
			continue
		}
		if blocks[b.ID] {
			problems = append(problems, fmt.Sprintf("duplicate block id %s", b.ID))
		}
		blocks[b.ID] = true
		if !catalog.HasOption(b.Category, b.Option) {
			problems = append(problems, (&InvalidOptionError{Category: b.Category, Option: b.Option}).Error())
		}
	}

	seen := make(map[string]bool, len(f.Steps))
	orders := make([]int, 0, len(f.Steps))
	dangling := map[string][]string{}
	for _, s := range f.Steps {
		if seen[s.ID] {
			problems = append(problems, fmt.Sprintf("duplicate step id %s", s.ID))
		}
		seen[s.ID] = true
		orders = append(orders, s.Order)

		switch {
		case s.IsAgentStep && s.BlockRef != "":
			problems = append(problems, (&InvalidStepError{StepID: s.ID, Reason: "agent step cannot reference a block"}).Error())
		case !s.IsAgentStep && s.BlockRef == "":
			problems = append(problems, (&InvalidStepError{StepID: s.ID, Reason: "block step requires a block reference"}).Error())
		case s.BlockRef != "" && !blocks[s.BlockRef]:
			dangling[s.BlockRef] = append(dangling[s.BlockRef], s.ID)
		}
	}

	sort.Ints(orders)
	for i, o := range orders {
		if o != i {
			problems = append(problems, "step order is not a contiguous 0..n-1 sequence")
			break
		}
	}

	danglingIDs := make([]string, 0, len(dangling))
	for blockID := range dangling {
		danglingIDs = append(danglingIDs, blockID)
	}
	sort.Strings(danglingIDs)

	if len(danglingIDs) > 0 && len(problems) == 0 {
		return &DanglingReferenceError{BlockID: danglingIDs[0], StepIDs: dangling[danglingIDs[0]]}
	}
	for _, blockID := range danglingIDs {
		problems = append(problems, (&DanglingReferenceError{BlockID: blockID, StepIDs: dangling[blockID]}).Error())
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
