// Package engine evaluates the semio kit language. It wraps zygomys in a
// sandboxed environment and produces a catalog.Kit from user source code.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/semio/pkg/catalog"
	"github.com/chazu/semio/pkg/design"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning is a finding about an evaluated kit that does not stop
// evaluation, such as an unreachable piece.
type EvalWarning struct {
	Design  string
	Piece   design.PieceID
	Message string
}

func (w EvalWarning) String() string {
	if w.Piece != "" {
		return fmt.Sprintf("%s: piece %s: %s", w.Design, w.Piece, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Design, w.Message)
}

// EvalResult bundles the full output of an evaluation for front ends.
type EvalResult struct {
	Kit      *catalog.Kit
	Errors   []EvalError
	Warnings []EvalWarning
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use;
// each call to Evaluate creates a fresh sandboxed environment, and only
// the most recent call gets a result.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	timeout    time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout overrides EvalTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: EvalTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate takes kit source code and produces a new Kit.
//
// Return semantics:
//   - On success: returns kit + nil errors + nil error
//   - On parse/eval failure: returns nil kit + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*catalog.Kit, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		k, evalErrs, err := evaluate(source)
		ch <- evalResult{kit: k, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation, e.timeout)
}

// Run evaluates source and validates every design of the resulting kit.
func (e *Engine) Run(source string) (EvalResult, error) {
	k, evalErrs, err := e.Evaluate(source)
	if err != nil {
		return EvalResult{}, err
	}
	res := EvalResult{Kit: k, Errors: evalErrs}
	if k != nil {
		res.Warnings = Check(k)
	}
	return res, nil
}

// Check validates every design of k. Validation errors and warnings are
// both reported as warnings: the kit itself evaluated fine.
func Check(k *catalog.Kit) []EvalWarning {
	var out []EvalWarning
	for i := range k.Designs {
		d := &k.Designs[i]
		res := design.ValidateAll(d, k)
		for _, group := range [][]design.ValidationError{res.Errors, res.Warnings} {
			for _, v := range group {
				out = append(out, EvalWarning{Design: d.ID().String(), Piece: v.Piece, Message: v.Message})
			}
		}
	}
	return out
}

// evaluate performs the zygomys evaluation in a fresh sandbox.
func evaluate(source string) (*catalog.Kit, []EvalError, error) {
	k := &catalog.Kit{}

	// Empty source is a valid program that produces an empty kit.
	if strings.TrimSpace(source) == "" {
		return k, nil, nil
	}

	// The sandbox keeps user code away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, k)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return k, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalErrors, extracting
// the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
