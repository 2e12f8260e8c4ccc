package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/semio/internal/config"
	"github.com/chazu/semio/pkg/align"
	"github.com/chazu/semio/pkg/catalog"
	"github.com/chazu/semio/pkg/cluster"
	"github.com/chazu/semio/pkg/design"
	"github.com/chazu/semio/pkg/diff"
	"github.com/chazu/semio/pkg/editor"
	"github.com/chazu/semio/pkg/engine"
	"github.com/chazu/semio/pkg/geom"
	"github.com/chazu/semio/pkg/kernel"
	"github.com/chazu/semio/pkg/kernel/sdfx"
	"github.com/chazu/semio/pkg/store"
	"github.com/chazu/semio/pkg/tessellate"
	"go.uber.org/zap"
)

// colorPalette is a default palette used to assign distinct colors to pieces.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// errNoDesign is returned by design bindings before a kit with a design
// has been evaluated or loaded.
var errNoDesign = errors.New("no design is open")

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx    context.Context
	cfg    *config.Config
	log    *zap.Logger
	engine *engine.Engine
	kernel kernel.Kernel

	mu      sync.Mutex
	kit     *catalog.Kit
	editor  *editor.Editor
	gesture *align.Gesture
	store   *store.Store
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Piece    string    `json:"piece"`
	Type     string    `json:"type"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result returned to the frontend.
type EvalResult struct {
	Kit      string          `json:"kit"`
	Designs  []string        `json:"designs"`
	Design   string          `json:"design"`
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NodeData is one diagram node.
type NodeData struct {
	Piece  string      `json:"piece"`
	Kind   string      `json:"kind"`
	Center *geom.Coord `json:"center,omitempty"`
	Fixed  bool        `json:"fixed"`
	Placed bool        `json:"placed"`
	Status string      `json:"status,omitempty"`
}

// EdgeData is one diagram edge.
type EdgeData struct {
	ID             string `json:"id"`
	Connecting     string `json:"connecting"`
	ConnectingPort string `json:"connectingPort"`
	Connected      string `json:"connected"`
	ConnectedPort  string `json:"connectedPort"`
	Status         string `json:"status,omitempty"`
}

// DiagramData is the diagram of the open design.
type DiagramData struct {
	Design string     `json:"design"`
	Nodes  []NodeData `json:"nodes"`
	Edges  []EdgeData `json:"edges"`
	Errors []string   `json:"errors"`
}

// LineData is a helper line of a drag frame.
type LineData struct {
	Kind     string  `json:"kind"`
	Position float64 `json:"position"`
	X1       float64 `json:"x1"`
	Y1       float64 `json:"y1"`
	X2       float64 `json:"x2"`
	Y2       float64 `json:"y2"`
	Distance float64 `json:"distance"`
}

// FrameData is the outcome of one drag event.
type FrameData struct {
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	Lines     []LineData `json:"lines"`
	Candidate *EdgeData  `json:"candidate,omitempty"`
}

// NewApp creates a new App from cfg.
func NewApp(cfg *config.Config, log *zap.Logger) *App {
	timeout, err := cfg.EvalTimeout()
	if err != nil {
		timeout = engine.EvalTimeout
	}
	return &App{
		cfg:    cfg,
		log:    log,
		engine: engine.NewEngine(engine.WithTimeout(timeout)),
		kernel: sdfx.New(sdfx.WithCells(cfg.Preview.Cells)),
	}
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later if needed.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// shutdown is called by Wails when the window closes.
func (a *App) shutdown(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("closing store", zap.Error(err))
		}
		a.store = nil
	}
}

func (a *App) runCtx() context.Context {
	if a.ctx != nil {
		return a.ctx
	}
	return context.Background()
}

// Evaluate takes kit source and returns the kit's designs with meshes of
// the open design. The open design is kept when the new kit still has
// one of that name; otherwise the first design is opened.
// This is the primary binding called by the frontend editor.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Designs:  []string{},
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	res, err := a.engine.Run(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		a.log.Error("evaluate failed", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.String()})
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.openKit(res.Kit)
	a.fill(&result)
	return result
}

// openKit replaces the kit and reopens the design being edited if it
// survived. Callers hold mu.
func (a *App) openKit(k *catalog.Kit) {
	prev := ""
	if a.editor != nil {
		prev = a.editor.Committed().Name
	}
	a.kit = k
	a.editor = nil
	a.gesture = nil
	if len(k.Designs) == 0 {
		return
	}
	d, err := k.FindDesign(prev)
	if prev == "" || err != nil {
		d = &k.Designs[0]
	}
	a.editor = editor.New(d, k, editor.WithLogger(a.log))
}

// fill adds kit and mesh data of the open design. Callers hold mu.
func (a *App) fill(result *EvalResult) {
	if a.kit == nil {
		return
	}
	result.Kit = a.kit.Name
	for i := range a.kit.Designs {
		result.Designs = append(result.Designs, a.kit.Designs[i].Name)
	}
	if a.editor == nil {
		return
	}
	d := a.editor.Design()
	result.Design = d.Name

	p := a.editor.Placement()
	for _, e := range p.Errors {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: e.Error()})
	}
	opts := tessellate.DefaultOptions()
	opts.Workers = a.cfg.Preview.Workers
	meshes, err := tessellate.Tessellate(a.runCtx(), p, a.kit, a.kernel, opts)
	if err != nil {
		a.log.Warn("tessellate failed", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return
	}
	for i, m := range meshes {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			Piece:    m.Piece,
			Type:     m.Type,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}
}

// OpenDesign switches the editor to another design of the kit, dropping
// the edits of the current one that were not written back with
// KeepDesign.
func (a *App) OpenDesign(name string) (EvalResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.kit == nil {
		return EvalResult{}, errNoDesign
	}
	d, err := a.kit.FindDesign(name)
	if err != nil {
		return EvalResult{}, err
	}
	a.editor = editor.New(d, a.kit, editor.WithLogger(a.log))
	a.gesture = nil
	result := EvalResult{Designs: []string{}, Meshes: []MeshData{}, Errors: []EvalErrorData{}, Warnings: []EvalErrorData{}}
	a.fill(&result)
	return result, nil
}

// KeepDesign writes the committed design back into the kit.
func (a *App) KeepDesign() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.editor == nil {
		return errNoDesign
	}
	a.kit.PutDesign(a.editor.Committed())
	return nil
}

// Diagram returns the nodes and edges of the open design.
func (a *App) Diagram() (DiagramData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.editor == nil {
		return DiagramData{}, errNoDesign
	}
	return diagram(a.editor.Design(), a.editor.Placement().Centers, a.editor.Placement().Errors, nil), nil
}

// DiffDiagram shows the open design against another design of the kit,
// with every node and edge marked added, removed, modified or unchanged.
func (a *App) DiffDiagram(proposed string) (DiagramData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.editor == nil {
		return DiagramData{}, errNoDesign
	}
	other, err := a.kit.FindDesign(proposed)
	if err != nil {
		return DiagramData{}, err
	}
	preview := diff.Classify(a.editor.Design(), other)
	p := a.editor.Placement()
	return diagram(preview.Design, p.Centers, nil, preview), nil
}

func diagram(d *design.Design, centers map[design.PieceID]geom.Coord, errs []*design.Error, preview *diff.Preview) DiagramData {
	out := DiagramData{Design: d.Name, Nodes: []NodeData{}, Edges: []EdgeData{}, Errors: []string{}}
	for _, p := range d.Pieces {
		n := NodeData{Piece: string(p.ID), Kind: p.Source.Kind(), Fixed: p.IsFixed()}
		if c, ok := centers[p.ID]; ok {
			n.Center = &c
			n.Placed = true
		}
		if preview != nil {
			n.Status = preview.PieceStatus(p.ID).String()
		}
		out.Nodes = append(out.Nodes, n)
	}
	for _, c := range d.Connections {
		e := edge(c)
		if preview != nil {
			e.Status = preview.ConnectionStatus(c.ID()).String()
		}
		out.Edges = append(out.Edges, e)
	}
	for _, e := range errs {
		out.Errors = append(out.Errors, e.Error())
	}
	return out
}

func edge(c design.Connection) EdgeData {
	return EdgeData{
		ID:             c.ID().String(),
		Connecting:     string(c.Connecting.Piece),
		ConnectingPort: c.Connecting.Port,
		Connected:      string(c.Connected.Piece),
		ConnectedPort:  c.Connected.Port,
	}
}

// StartDrag begins moving the selected pieces.
func (a *App) StartDrag(selection []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.editor == nil {
		return errNoDesign
	}
	if a.gesture != nil && a.gesture.Active() {
		a.gesture.Cancel()
	}
	a.gesture = a.editor.StartGesture(pieceIDs(selection), a.cfg.Align)
	return nil
}

// Drag moves piece to the screen position (x, y) and returns the snapped
// position, helper lines and any proposed connection.
func (a *App) Drag(piece string, x, y float64, snap bool) (FrameData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gesture == nil {
		return FrameData{}, fmt.Errorf("no drag in progress")
	}
	a.gesture.SetSnapping(snap)
	f, err := a.gesture.Drag(design.PieceID(piece), geom.Coord{X: x, Y: y})
	if err != nil {
		return FrameData{}, err
	}
	out := FrameData{X: f.Position.X, Y: f.Position.Y, Lines: []LineData{}}
	for _, l := range f.Lines {
		out.Lines = append(out.Lines, LineData{
			Kind: l.Kind.String(), Position: l.Position,
			X1: l.X1, Y1: l.Y1, X2: l.X2, Y2: l.Y2,
			Distance: l.Distance,
		})
	}
	if f.Candidate != nil {
		e := edge(f.Candidate.Connection)
		out.Candidate = &e
	}
	return out, nil
}

// EndDrag commits the drag: moved positions and proposed connections.
func (a *App) EndDrag() ([]EdgeData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gesture == nil {
		return nil, fmt.Errorf("no drag in progress")
	}
	g := a.gesture
	a.gesture = nil
	added, err := a.editor.Commit(g)
	if err != nil {
		return nil, err
	}
	out := []EdgeData{}
	for _, c := range added {
		out = append(out, edge(c))
	}
	return out, nil
}

// CancelDrag drops the drag without changing the design.
func (a *App) CancelDrag() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gesture != nil {
		a.gesture.Cancel()
		a.gesture = nil
	}
}

// Connect adds a connection between two ports.
func (a *App) Connect(piece, port, otherPiece, otherPort string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.editor == nil {
		return errNoDesign
	}
	return a.editor.AddConnection(design.Connection{
		Connecting: design.Side{Piece: design.PieceID(piece), Port: port},
		Connected:  design.Side{Piece: design.PieceID(otherPiece), Port: otherPort},
	})
}

// Remove deletes pieces and the connections between the given pairs.
// Connections are removed first so that a piece and its connections can
// go together.
func (a *App) Remove(pieces []string, connections [][2]string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.editor == nil {
		return errNoDesign
	}
	ids := make([]design.ConnectionID, len(connections))
	for i, c := range connections {
		ids[i] = design.NewConnectionID(design.PieceID(c[0]), design.PieceID(c[1]))
	}
	return a.editor.Remove(pieceIDs(pieces), ids)
}

// ClusterCandidates returns the groups of the selection that can be
// clustered.
func (a *App) ClusterCandidates(selection []string) ([][]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.editor == nil {
		return nil, errNoDesign
	}
	out := [][]string{}
	for _, group := range cluster.Candidates(a.editor.Design(), pieceIDs(selection), a.cfg.Cluster.MaxExternal) {
		names := make([]string, len(group))
		for i, id := range group {
			names[i] = string(id)
		}
		out = append(out, names)
	}
	return out, nil
}

// Cluster contracts pieces into one node and returns the node id.
func (a *App) Cluster(pieces []string, name string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.editor == nil {
		return "", errNoDesign
	}
	node, err := a.editor.Cluster(pieceIDs(pieces), cluster.Options{Name: name, MaxExternal: a.cfg.Cluster.MaxExternal})
	return string(node), err
}

// Explode expands a cluster node.
func (a *App) Explode(node string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.editor == nil {
		return errNoDesign
	}
	return a.editor.Explode(design.PieceID(node))
}

func (a *App) openStore() (*store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := store.Open(a.cfg.Store.Path, store.WithLogger(a.log))
	if err != nil {
		return nil, err
	}
	a.store = s
	return s, nil
}

// SaveKit stores the kit, including the committed state of the open
// design.
func (a *App) SaveKit() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.kit == nil {
		return errNoDesign
	}
	if a.editor != nil {
		a.kit.PutDesign(a.editor.Committed())
	}
	s, err := a.openStore()
	if err != nil {
		return err
	}
	return s.SaveKit(a.runCtx(), a.kit)
}

// LoadKit opens a stored kit.
func (a *App) LoadKit(name, version string) (EvalResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, err := a.openStore()
	if err != nil {
		return EvalResult{}, err
	}
	k, err := s.LoadKit(a.runCtx(), name, version)
	if err != nil {
		return EvalResult{}, err
	}
	a.openKit(k)
	result := EvalResult{Designs: []string{}, Meshes: []MeshData{}, Errors: []EvalErrorData{}, Warnings: []EvalErrorData{}}
	for _, w := range engine.Check(k) {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.String()})
	}
	a.fill(&result)
	return result, nil
}

// ListKits lists stored kits sorted by name and version.
func (a *App) ListKits() ([]store.KitInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	return s.ListKits(a.runCtx())
}

func pieceIDs(names []string) []design.PieceID {
	ids := make([]design.PieceID, len(names))
	for i, n := range names {
		ids[i] = design.PieceID(n)
	}
	return ids
}
