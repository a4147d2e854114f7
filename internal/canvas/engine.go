package canvas

import (
	"math"

	"sellerops/internal/models"
)

// Zoom bounds and step
const (
	MinZoom  = 0.5
	MaxZoom  = 2.0
	ZoomStep = 0.1
)

// Mode is the current pointer interaction
type Mode int

const (
	ModeIdle Mode = iota
	ModeDraggingNode
	ModePanningCanvas
)

func (m Mode) String() string {
	switch m {
	case ModeDraggingNode:
		return "dragging"
	case ModePanningCanvas:
		return "panning"
	default:
		return "idle"
	}
}

// Point is a pointer location in screen space
type Point struct {
	X, Y float64
}

// Engine is the pointer state machine for one canvas. It is driven by a
// single event loop; each handler runs to completion before the next.
type Engine struct {
	steps []models.Step
	zoom  float64
	pan   models.Position

	mode       Mode
	dragStepID string
	dragOffset models.Position // canvas-space pointer minus node position
	lastPoint  Point
}

// NewEngine creates an engine over a copy of the given steps
func NewEngine(steps []models.Step) *Engine {
	return &Engine{
		steps: models.CloneSteps(steps),
		zoom:  1.0,
	}
}

// Steps returns a copy of the steps with their current positions
func (e *Engine) Steps() []models.Step {
	return models.CloneSteps(e.steps)
}

// Mode returns the current interaction mode
func (e *Engine) Mode() Mode { return e.mode }

// Zoom returns the current zoom factor
func (e *Engine) Zoom() float64 { return e.zoom }

// Pan returns the current pan offset in screen space
func (e *Engine) Pan() models.Position { return e.pan }

// DraggingStepID returns the step being dragged, if any
func (e *Engine) DraggingStepID() string { return e.dragStepID }

// PointerDown starts a drag when stepID names a node with a position, or a
// pan when stepID is empty (background). Any other press is ignored.
func (e *Engine) PointerDown(p Point, stepID string) {
	if e.mode != ModeIdle {
		return
	}

	if stepID == "" {
		e.mode = ModePanningCanvas
		e.lastPoint = p
		return
	}

	i := e.indexOf(stepID)
	if i < 0 || e.steps[i].CanvasPosition == nil {
		return
	}
	pos := e.steps[i].CanvasPosition
	e.mode = ModeDraggingNode
	e.dragStepID = stepID
	e.dragOffset = models.Position{
		X: p.X/e.zoom - pos.X,
		Y: p.Y/e.zoom - pos.Y,
	}
}

// PointerMove updates the dragged node or the pan offset continuously
func (e *Engine) PointerMove(p Point) {
	switch e.mode {
	case ModeDraggingNode:
		i := e.indexOf(e.dragStepID)
		if i < 0 {
			e.reset()
			return
		}
		e.steps[i].CanvasPosition = &models.Position{
			X: p.X/e.zoom - e.dragOffset.X,
			Y: p.Y/e.zoom - e.dragOffset.Y,
		}
	case ModePanningCanvas:
		// Screen space: the raw delta is applied without zoom scaling.
		e.pan.X += p.X - e.lastPoint.X
		e.pan.Y += p.Y - e.lastPoint.Y
		e.lastPoint = p
	}
}

// PointerUp ends any drag or pan
func (e *Engine) PointerUp() { e.reset() }

// PointerLeave ends any drag or pan when the pointer exits the canvas
func (e *Engine) PointerLeave() { e.reset() }

// ZoomIn increases zoom by one step, clamped to MaxZoom
func (e *Engine) ZoomIn() float64 {
	e.zoom = clampZoom(e.zoom + ZoomStep)
	return e.zoom
}

// ZoomOut decreases zoom by one step, clamped to MinZoom
func (e *Engine) ZoomOut() float64 {
	e.zoom = clampZoom(e.zoom - ZoomStep)
	return e.zoom
}

// FitToScreen resets zoom to 1 and pan to the origin. It does not compute a
// bounding box.
func (e *Engine) FitToScreen() {
	e.zoom = 1.0
	e.pan = models.Position{}
}

// AutoArrange places every step on the grid
func (e *Engine) AutoArrange() {
	e.steps = AutoArrange(e.steps)
}

// Connections returns the display edges for the current positions
func (e *Engine) Connections() []Edge {
	return Connections(e.steps)
}

func (e *Engine) reset() {
	e.mode = ModeIdle
	e.dragStepID = ""
	e.dragOffset = models.Position{}
}

func (e *Engine) indexOf(stepID string) int {
	for i, s := range e.steps {
		if s.ID == stepID {
			return i
		}
	}
	return -1
}

// clampZoom rounds to one decimal so repeated steps do not drift, then clamps
func clampZoom(z float64) float64 {
	z = math.Round(z*10) / 10
	return math.Min(MaxZoom, math.Max(MinZoom, z))
}
