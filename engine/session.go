package engine

import (
	"arimaa/game"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Session holds the position of one game and the repetition counts of every
// position reached at a turn boundary.
type Session struct {
	board       *game.Board
	repetitions *game.RepetitionTable
}

func NewSession() *Session {
	s := &Session{repetitions: game.NewRepetitionTable()}
	s.ResetForNewGame()
	return s
}

// ResetForNewGame starts over from the standard setup.
func (s *Session) ResetForNewGame() {
	s.board = game.NewGame()
	s.repetitions.Reset()
	s.repetitions.RecordBoard(s.board)
}

// Board returns the current position. Callers must not mutate it.
func (s *Session) Board() *game.Board {
	return s.board
}

func (s *Session) Repetitions() *game.RepetitionTable {
	return s.repetitions
}

// SetPosition loads a compact position. The repetition history restarts from it.
func (s *Session) SetPosition(compact string) error {
	b, err := game.ParseCompact(compact)
	if err != nil {
		return err
	}
	s.board = b
	s.repetitions.Reset()
	s.repetitions.RecordBoard(b)
	return nil
}

// LoadRecord replays a game record and keeps its repetition history.
func (s *Session) LoadRecord(record string) error {
	b, rep, err := game.Replay(record)
	if err != nil {
		return err
	}
	s.board, s.repetitions = b, rep
	return nil
}

// Apply plays a whole move for the side to move. A move that leaves the turn
// open is closed with a pass. The session is unchanged when the move is illegal.
func (s *Session) Apply(m game.Move) error {
	if s.board.Winner() != game.NoColor {
		return game.ErrGameOver
	}
	if len(m) == 0 {
		return errors.New("empty move")
	}
	board := s.board.Clone()
	if m[0].Kind == game.NoStep {
		if len(m) > 1 || len(board.LegalSteps(s.repetitions)) > 0 {
			return errors.Errorf("%s is not immobilized", board.ToMove())
		}
		board.MakeStepTryCommit(m[0])
		s.commit(board)
		return nil
	}

	committed := false
	for i, step := range m {
		if committed {
			return errors.Errorf("step %d %s comes after the end of the turn", i+1, step)
		}
		if err := s.check(board, step); err != nil {
			return errors.Wrapf(err, "step %d", i+1)
		}
		committed = board.MakeStepTryCommit(step)
	}
	if !committed {
		pass := game.NewPass(board.ToMove())
		if err := s.check(board, pass); err != nil {
			return errors.Wrap(err, "closing pass")
		}
		board.MakeStepTryCommit(pass)
	}
	s.commit(board)
	return nil
}

func (s *Session) check(b *game.Board, step game.Step) error {
	if !lo.Contains(b.GenerateSteps(b.ToMove()), step) {
		return errors.Errorf("illegal step %s", step)
	}
	if len(b.FilterRepetitions([]game.Step{step}, s.repetitions)) == 0 {
		return errors.Errorf("step %s repeats a position", step)
	}
	return nil
}

func (s *Session) commit(b *game.Board) {
	s.board = b
	s.repetitions.RecordBoard(b)
}
