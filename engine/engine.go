package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"arimaa/game"
	"arimaa/searcher"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	ErrSearchInProgress = errors.New("search in progress")
	ErrNoSearch         = errors.New("no search started")
)

// Engine runs at most one search at a time on the position of its session.
// The session is only changed between searches.
type Engine struct {
	session  *Session
	searcher *searcher.MCTS

	searching atomic.Bool
	mu        sync.Mutex
	group     *errgroup.Group
	cancel    context.CancelFunc
	result    searcher.Result
}

func New(mcts *searcher.MCTS) *Engine {
	return &Engine{session: NewSession(), searcher: mcts}
}

func (e *Engine) Session() *Session {
	return e.session
}

func (e *Engine) Searching() bool {
	return e.searching.Load()
}

// StartSearch launches the search worker on a copy of the current position.
func (e *Engine) StartSearch(ctx context.Context) error {
	if !e.searching.CompareAndSwap(false, true) {
		return ErrSearchInProgress
	}
	board := e.session.Board().Clone()
	if board.Winner() != game.NoColor {
		e.searching.Store(false)
		return game.ErrGameOver
	}
	rep := e.session.Repetitions().Clone()

	ctx, cancel := context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		result, err := e.searcher.Search(ctx, board, rep)
		if err != nil {
			return err
		}
		e.result = result
		return nil
	})

	e.mu.Lock()
	e.group, e.cancel = group, cancel
	e.mu.Unlock()
	log.Debug().Str("position", board.Compact()).Msg("search started")
	return nil
}

// Stop asks the running search to return its best move so far.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Wait blocks until the running search is done and returns its result.
func (e *Engine) Wait() (searcher.Result, error) {
	e.mu.Lock()
	group, cancel := e.group, e.cancel
	e.mu.Unlock()
	if group == nil {
		return searcher.Result{}, ErrNoSearch
	}

	err := group.Wait()
	cancel()
	result := e.result

	e.mu.Lock()
	e.group, e.cancel, e.result = nil, nil, searcher.Result{}
	e.mu.Unlock()
	e.searching.Store(false)

	if err != nil {
		return searcher.Result{}, errors.Wrap(err, "search failed")
	}
	return result, nil
}

// Think searches the current position until ctx is done or the search budget
// is spent.
func (e *Engine) Think(ctx context.Context) (searcher.Result, error) {
	if err := e.StartSearch(ctx); err != nil {
		return searcher.Result{}, err
	}
	return e.Wait()
}

// Play commits a move to the session. It is refused while searching.
func (e *Engine) Play(m game.Move) error {
	if e.searching.Load() {
		return ErrSearchInProgress
	}
	if err := e.session.Apply(m); err != nil {
		return err
	}
	log.Info().
		Int("turn", e.session.Board().TurnNumber()).
		Str("move", m.String()).
		Msg("move played")
	return nil
}
