// Package editor is the command surface over a committed design. Every
// command is atomic: it runs on a copy, is checked, and only then replaces
// the current design. Transactions group commands so a whole gesture
// either lands or reverts.
package editor

import (
	"errors"
	"sync"

	"github.com/chazu/semio/pkg/align"
	"github.com/chazu/semio/pkg/catalog"
	"github.com/chazu/semio/pkg/design"
	"github.com/chazu/semio/pkg/flatten"
	"github.com/chazu/semio/pkg/geom"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrTransactionOpen is returned by StartTransaction while another
	// transaction is open.
	ErrTransactionOpen = errors.New("editor: transaction already open")
	// ErrNoTransaction is returned when finalizing or aborting without an
	// open transaction.
	ErrNoTransaction = errors.New("editor: no open transaction")
)

// Editor owns one design and serializes every write to it.
type Editor struct {
	mu        sync.Mutex
	committed *design.Design
	cat       catalog.Catalog
	log       *zap.Logger
	tx        *transaction
}

type transaction struct {
	id       string
	working  *design.Design
	commands int
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.log = l
		}
	}
}

// New returns an editor over a copy of d. cat resolves the types and
// designs d references.
func New(d *design.Design, cat catalog.Catalog, opts ...Option) *Editor {
	e := &Editor{
		committed: d.Clone(),
		cat:       cat,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Design returns a copy of the current design, including the work of an
// open transaction.
func (e *Editor) Design() *design.Design {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current().Clone()
}

// Committed returns a copy of the last committed design.
func (e *Editor) Committed() *design.Design {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.committed.Clone()
}

// Catalog returns the catalog the editor resolves against.
func (e *Editor) Catalog() catalog.Catalog { return e.cat }

// Placement flattens the current design.
func (e *Editor) Placement() *flatten.Placement {
	return flatten.Flatten(e.Design(), e.cat)
}

// Validate checks the current design.
func (e *Editor) Validate() design.ValidationResult {
	return design.ValidateAll(e.Design(), e.cat)
}

// InTransaction reports whether a transaction is open.
func (e *Editor) InTransaction() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tx != nil
}

// StartTransaction opens a transaction and returns its id. Commands issued
// until FinalizeTransaction or AbortTransaction are held back from the
// committed design.
func (e *Editor) StartTransaction() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tx != nil {
		return "", ErrTransactionOpen
	}
	e.tx = &transaction{id: uuid.NewString(), working: e.committed.Clone()}
	e.log.Debug("transaction started", zap.String("tx", e.tx.id))
	return e.tx.id, nil
}

// FinalizeTransaction commits the work of the open transaction.
func (e *Editor) FinalizeTransaction() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tx == nil {
		return ErrNoTransaction
	}
	e.committed = e.tx.working
	e.log.Debug("transaction finalized", zap.String("tx", e.tx.id), zap.Int("commands", e.tx.commands))
	e.tx = nil
	return nil
}

// AbortTransaction drops the work of the open transaction.
func (e *Editor) AbortTransaction() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tx == nil {
		return ErrNoTransaction
	}
	e.log.Debug("transaction aborted", zap.String("tx", e.tx.id), zap.Int("commands", e.tx.commands))
	e.tx = nil
	return nil
}

// StartGesture begins an alignment gesture on the current design.
func (e *Editor) StartGesture(selection []design.PieceID, cfg align.Config) *align.Gesture {
	d := e.Design()
	return align.Start(d, flatten.Flatten(d, e.cat), e.cat, selection, cfg)
}

// Commit ends g and applies its outcome in one transaction: the diagram
// offsets of the moved selection and the proposed connections. If a
// transaction is already open the changes join it. Nothing is applied
// when any part is rejected.
func (e *Editor) Commit(g *align.Gesture) ([]design.Connection, error) {
	moved := g.Moved()
	proposed := g.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.apply("commit gesture", func(d *design.Design) error {
		for _, id := range g.Selection() {
			mp, _ := moved.Piece(id)
			p, _ := d.Piece(id)
			if mp == nil || p == nil {
				continue
			}
			p.Center = cloneCenter(mp)
			for _, ci := range moved.ConnectionsOf(id) {
				mc := &moved.Connections[ci]
				c, _ := d.Connection(mc.ID())
				if c != nil {
					c.X, c.Y = mc.X, mc.Y
				}
			}
		}
		for _, c := range proposed {
			if err := e.addConnection(d, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return proposed, nil
}

func cloneCenter(p *design.Piece) *geom.Coord {
	if p.Center == nil {
		return nil
	}
	c := *p.Center
	return &c
}

// current returns the design commands operate on. Callers hold mu.
func (e *Editor) current() *design.Design {
	if e.tx != nil {
		return e.tx.working
	}
	return e.committed
}

// apply runs fn on a copy of the current design and swaps the copy in
// when fn succeeds. Callers hold mu.
func (e *Editor) apply(name string, fn func(d *design.Design) error) error {
	work := e.current().Clone()
	if err := fn(work); err != nil {
		e.log.Debug("command rejected", zap.String("command", name), zap.Error(err))
		return err
	}
	if e.tx != nil {
		e.tx.working = work
		e.tx.commands++
		e.log.Debug("command applied", zap.String("command", name), zap.String("tx", e.tx.id))
		return nil
	}
	e.committed = work
	e.log.Debug("command applied", zap.String("command", name))
	return nil
}

// run locks the editor and applies fn.
func (e *Editor) run(name string, fn func(d *design.Design) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(name, fn)
}
