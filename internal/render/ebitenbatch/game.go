package ebitenbatch

import (
	"context"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"

	"github.com/goldsprite/gdengine/internal/core/ecs"
	coresys "github.com/goldsprite/gdengine/internal/core/system"
	"github.com/goldsprite/gdengine/internal/geom"
	"github.com/goldsprite/gdengine/internal/render"
)

// GameOptions configures the windowed driver.
type GameOptions struct {
	Context     context.Context
	Runner      *coresys.Runner
	World       *ecs.World
	Camera      *render.Camera
	Clear       render.Color
	LogicWidth  int
	LogicHeight int
	TickRate    int
	// Picking selects the entity under a left click, as the editor scene view does.
	Picking bool
	Log     *zap.Logger
}

// Game runs one frame of the runner per ebiten update and renders the world
// on draw. It stops when Context is cancelled.
type Game struct {
	ctx     context.Context
	runner  *coresys.Runner
	world   *ecs.World
	cam     *render.Camera
	clear   render.Color
	w, h    int
	picking bool
	log     *zap.Logger
	batch   *Batch
	last    time.Time
	drawn   int
}

func NewGame(opts GameOptions) *Game {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	cam := opts.Camera
	if cam == nil {
		cam = render.NewCamera(float64(opts.LogicWidth), float64(opts.LogicHeight))
	}
	if opts.TickRate > 0 {
		ebiten.SetTPS(opts.TickRate)
	}
	return &Game{
		ctx:     ctx,
		runner:  opts.Runner,
		world:   opts.World,
		cam:     cam,
		clear:   opts.Clear,
		w:       opts.LogicWidth,
		h:       opts.LogicHeight,
		picking: opts.Picking,
		log:     log,
		batch:   New(),
	}
}

// Run opens the window and blocks until it closes or the context ends.
func (g *Game) Run(title string) error {
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(g.w, g.h)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(g)
}

func (g *Game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	now := time.Now()
	dt := time.Second / time.Duration(ebiten.TPS())
	if !g.last.IsZero() {
		dt = now.Sub(g.last)
	}
	g.last = now

	if g.picking && inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) && !g.world.Paused() {
		g.pick()
	}
	g.runner.Tick(dt)
	return nil
}

func (g *Game) pick() {
	x, y := ebiten.CursorPosition()
	p := g.cam.ScreenToWorld(geom.V(float64(x), float64(y)))
	if e := g.world.Pick(p, g.cam); e != nil && e != g.world.Selected() {
		g.world.Select(e)
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(g.clear.RGBA())
	g.batch.Begin(screen, g.cam)
	g.drawn = g.world.Render(g.batch, g.cam)
}

func (g *Game) Layout(_, _ int) (int, int) {
	return g.w, g.h
}

// Drawn returns the number of renderables submitted in the last frame.
func (g *Game) Drawn() int { return g.drawn }
