package models

// Category is the kind of work a block performs
type Category string

const (
	CategoryCollect Category = "collect"
	CategoryThink   Category = "think"
	CategoryAct     Category = "act"
	CategoryAgent   Category = "agent"
)

// Valid reports whether c is one of the four block categories
func (c Category) Valid() bool {
	switch c {
	case CategoryCollect, CategoryThink, CategoryAct, CategoryAgent:
		return true
	}
	return false
}

// Trigger describes how a flow run is started
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
	TriggerInsight   Trigger = "insight"
)

// Valid reports whether t is one of the known trigger modes
func (t Trigger) Valid() bool {
	switch t {
	case TriggerManual, TriggerScheduled, TriggerInsight:
		return true
	}
	return false
}

// Position represents x,y coordinates for canvas layout
type Position struct {
	X float64 `json:"x" bson:"x" yaml:"x"`
	Y float64 `json:"y" bson:"y" yaml:"y"`
}

// Block is a typed unit of work owned by a single flow
type Block struct {
	ID       string   `json:"id" bson:"id" yaml:"id"`
	Category Category `json:"category" bson:"category" yaml:"category"`
	Option   string   `json:"option" bson:"option" yaml:"option"`
	Name     string   `json:"name" bson:"name" yaml:"name"`
	AgentRef string   `json:"agentRef,omitempty" bson:"agentRef,omitempty" yaml:"agentRef,omitempty"`
}

// Step is one position in a flow's execution order.
// A block step has BlockRef set; an agent step has IsAgentStep set and no BlockRef.
type Step struct {
	ID             string    `json:"id" bson:"id" yaml:"id"`
	Title          string    `json:"title" bson:"title" yaml:"title"`
	Description    string    `json:"description,omitempty" bson:"description,omitempty" yaml:"description,omitempty"`
	Order          int       `json:"order" bson:"order" yaml:"order"`
	Completed      bool      `json:"completed" bson:"completed" yaml:"completed,omitempty"`
	BlockRef       string    `json:"blockRef,omitempty" bson:"blockRef,omitempty" yaml:"blockRef,omitempty"`
	IsAgentStep    bool      `json:"isAgentStep" bson:"isAgentStep" yaml:"isAgentStep,omitempty"`
	CanvasPosition *Position `json:"canvasPosition,omitempty" bson:"canvasPosition,omitempty" yaml:"canvasPosition,omitempty"`
	AgentPrompt    string    `json:"agentPrompt,omitempty" bson:"agentPrompt,omitempty" yaml:"agentPrompt,omitempty"`
}

// Flow is an authored, ordered pipeline of steps and blocks
type Flow struct {
	ID          string  `json:"id" bson:"id" yaml:"id"`
	Name        string  `json:"name" bson:"name" yaml:"name"`
	Description string  `json:"description,omitempty" bson:"description,omitempty" yaml:"description,omitempty"`
	Trigger     Trigger `json:"trigger" bson:"trigger" yaml:"trigger"`
	Schedule    string  `json:"schedule,omitempty" bson:"schedule,omitempty" yaml:"schedule,omitempty"` // cron expression, scheduled trigger only
	Blocks      []Block `json:"blocks" bson:"blocks" yaml:"blocks"`
	Steps       []Step  `json:"steps" bson:"steps" yaml:"steps"`
}

// Clone returns a deep copy of the flow
func (f Flow) Clone() Flow {
	out := f
	out.Blocks = CloneBlocks(f.Blocks)
	out.Steps = CloneSteps(f.Steps)
	return out
}

// BlockByID returns the block with the given id and its index, or -1
func (f Flow) BlockByID(id string) (Block, int) {
	for i, b := range f.Blocks {
		if b.ID == id {
			return b, i
		}
	}
	return Block{}, -1
}

// StepByID returns the step with the given id and its index, or -1
func (f Flow) StepByID(id string) (Step, int) {
	for i, s := range f.Steps {
		if s.ID == id {
			return s, i
		}
	}
	return Step{}, -1
}

// CloneBlocks copies a block slice; nil stays nil
func CloneBlocks(blocks []Block) []Block {
	if blocks == nil {
		return nil
	}
	out := make([]Block, len(blocks))
	copy(out, blocks)
	return out
}

// CloneSteps copies a step slice including canvas positions; nil stays nil
func CloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	for i, s := range steps {
		if s.CanvasPosition != nil {
			p := *s.CanvasPosition
			s.CanvasPosition = &p
		}
		out[i] = s
	}
	return out
}
