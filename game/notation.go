package game

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

const (
	GoldSetup   = "Ra1 Rb1 Rc1 Rd1 Re1 Rf1 Rg1 Rh1 Ha2 Db2 Cc2 Md2 Ee2 Cf2 Dg2 Hh2"
	SilverSetup = "ra8 rb8 rc8 rd8 re8 rf8 rg8 rh8 ha7 db7 cc7 ed7 me7 cf7 dg7 hh7"
)

var pieceLimits = [7]int{0, 8, 2, 2, 2, 1, 1}

// NewGame returns the standard opening position with Gold to move.
func NewGame() *Board {
	b := NewBoard()
	for _, setup := range []string{GoldSetup, SilverSetup} {
		if err := b.setup(strings.Fields(setup)); err != nil {
			panic(err)
		}
	}
	return b
}

func parseSide(l byte) (Color, bool) {
	switch l {
	case 'g', 'w':
		return Gold, true
	case 's', 'b':
		return Silver, true
	}
	return NoColor, false
}

// ParseCompact loads a position written as "w [<64 squares>]", ranks 8 to 1 and
// files a to h, with ' ', 'x' or '.' marking empty squares.
func ParseCompact(s string) (*Board, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty position")
	}
	side, ok := parseSide(s[0])
	if !ok {
		return nil, errors.Errorf("unknown side %q", s[0])
	}
	open, end := strings.IndexByte(s, '['), strings.LastIndexByte(s, ']')
	if open < 0 || end < open {
		return nil, errors.New("position is not enclosed in brackets")
	}
	cells := s[open+1 : end]
	if len(cells) != 64 {
		return nil, errors.Errorf("expected 64 squares, got %d", len(cells))
	}

	b := NewBoard()
	for i := 0; i < 64; i++ {
		ch := cells[i]
		if ch == ' ' || ch == 'x' || ch == 'X' || ch == '.' {
			continue
		}
		c, p, ok := parsePiece(ch)
		if !ok {
			return nil, errors.Errorf("unknown piece %q at index %d", ch, i)
		}
		b.place(c, p, NewSquare(i%8, 7-i/8))
	}
	if err := b.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid position")
	}
	winner, err := b.decidedWinner()
	if err != nil {
		return nil, errors.Wrap(err, "invalid position")
	}
	b.winner = winner
	b.turn = 2
	b.toMove = side
	b.turnStart = b.fingerprint
	b.lastStep = NewNoStep(side)
	return b, nil
}

func (b *Board) validate() error {
	for c := Gold; c <= Silver; c++ {
		for p := Rabbit; p <= Elephant; p++ {
			if n := b.Count(c, p); n > pieceLimits[p] {
				return errors.Errorf("%d %c pieces", n, p.Letter(c))
			}
		}
		for _, t := range Traps {
			if b.bitboards[c][AnyPiece].Has(t) && neighbours[t]&b.bitboards[c][AnyPiece] == 0 {
				return errors.Errorf("unprotected %s piece on trap %s", c, t)
			}
		}
	}
	return nil
}

// Compact renders the position in the format read by ParseCompact.
func (b *Board) Compact() string {
	var sb strings.Builder
	if b.toMove == Gold {
		sb.WriteString("w [")
	} else {
		sb.WriteString("b [")
	}
	for rank := 7; rank >= 0; rank-- {
		for file := 0; file < 8; file++ {
			sb.WriteByte(b.squareLetter(NewSquare(file, rank), ' '))
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

func (b *Board) squareLetter(s Square, empty byte) byte {
	c, p := b.PieceAt(s)
	if c == NoColor {
		if IsTrap(s) {
			return 'x'
		}
		return empty
	}
	return p.Letter(c)
}

func (b *Board) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d%s\n +-----------------+\n", b.turn, b.toMove.Letter())
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d|", rank+1)
		for file := 0; file < 8; file++ {
			sb.WriteByte(' ')
			sb.WriteByte(b.squareLetter(NewSquare(file, rank), '.'))
		}
		sb.WriteString(" |\n")
	}
	sb.WriteString(" +-----------------+\n   a b c d e f g h\n")
	return sb.String()
}

// MoveString renders m the way it is written in game records, including the
// trap captures it causes, e.g. "Rb3e Rc3x".
func (b *Board) MoveString(m Move) string {
	next := b.Clone()
	var atoms []string
	for _, s := range m {
		if !s.MovesPiece() {
			continue
		}
		kills := next.applyStep(s)
		atoms = append(atoms, s.String())
		for c := Gold; c <= Silver; c++ {
			if k := kills[c]; k.piece != AnyPiece {
				atoms = append(atoms, string([]byte{k.piece.Letter(c)})+k.square.String()+"x")
			}
		}
	}
	return strings.Join(atoms, " ")
}

type recordAtom struct {
	color Color
	piece Piece
	from  Square
	to    Square
	text  string
}

func parseAtom(token string) (recordAtom, error) {
	if len(token) != 4 {
		return recordAtom{}, errors.Errorf("malformed step %q", token)
	}
	c, p, ok := parsePiece(token[0])
	if !ok {
		return recordAtom{}, errors.Errorf("unknown piece in step %q", token)
	}
	from, ok := parseSquare(token[1:3])
	if !ok {
		return recordAtom{}, errors.Errorf("unknown square in step %q", token)
	}
	to, ok := parseDirection(from, token[3])
	if !ok {
		return recordAtom{}, errors.Errorf("unknown direction in step %q", token)
	}
	return recordAtom{color: c, piece: p, from: from, to: to, text: token}, nil
}

// Replay plays a game record such as "1g Ra1 Rb1 ...\n1s ra8 ...\n2g Ee2n Ee3n"
// and returns the final position together with the repetition counts of
// every position reached at a turn boundary.
func Replay(record string) (*Board, *RepetitionTable, error) {
	b := NewBoard()
	rep := NewRepetitionTable()
	for n, line := range strings.Split(record, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		head := fields[0]
		side, ok := parseSide(head[len(head)-1])
		if !ok || len(head) < 2 {
			return nil, nil, errors.Errorf("line %d: malformed turn %q", n+1, head)
		}
		if side != b.toMove {
			return nil, nil, errors.Errorf("line %d: %s is not to move", n+1, side)
		}
		if len(fields) == 1 {
			continue
		}
		var err error
		if b.turn == 1 {
			err = b.setup(fields[1:])
		} else {
			err = b.replayTurn(fields[1:])
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "line %d", n+1)
		}
		rep.RecordBoard(b)
	}
	return b, rep, nil
}

// setup places the pieces of the side to move and hands the turn over.
func (b *Board) setup(tokens []string) error {
	for _, token := range tokens {
		if len(token) != 3 {
			return errors.Errorf("malformed placement %q", token)
		}
		c, p, ok := parsePiece(token[0])
		if !ok || c != b.toMove {
			return errors.Errorf("unexpected piece in placement %q", token)
		}
		s, ok := parseSquare(token[1:])
		if !ok {
			return errors.Errorf("unknown square in placement %q", token)
		}
		if b.Occupied().Has(s) {
			return errors.Errorf("square %s is occupied", s)
		}
		b.place(c, p, s)
	}
	if err := b.validate(); err != nil {
		return err
	}
	if b.toMove == Silver {
		// Both sides are on the board once silver has placed its pieces.
		winner, err := b.decidedWinner()
		if err != nil {
			return err
		}
		b.winner = winner
		b.turn++
	}
	b.toMove = b.toMove.Opponent()
	b.turnStart = b.fingerprint
	b.lastStep = NewNoStep(b.toMove)
	return nil
}

func (b *Board) replayTurn(tokens []string) error {
	atoms := make([]recordAtom, 0, len(tokens))
	for _, token := range tokens {
		if len(token) == 4 && token[3] == 'x' {
			continue
		}
		a, err := parseAtom(token)
		if err != nil {
			return err
		}
		atoms = append(atoms, a)
	}
	if len(atoms) == 0 {
		return errors.New("empty move")
	}

	for i := 0; i < len(atoms); {
		a := atoms[i]
		legal := b.GenerateSteps(b.toMove)
		var s Step
		consumed := 1
		if a.color == b.toMove {
			s = NewSingle(a.color, a.piece, a.from, a.to)
			if i+1 < len(atoms) && atoms[i+1].color != b.toMove && atoms[i+1].to == a.from {
				pull := NewPull(a.color, a.piece, a.from, a.to, atoms[i+1].piece, atoms[i+1].from)
				if lo.Contains(legal, pull) {
					s, consumed = pull, 2
				}
			}
		} else {
			if i+1 >= len(atoms) || atoms[i+1].to != a.from {
				return errors.Errorf("step %s is not part of a push or pull", a.text)
			}
			m := atoms[i+1]
			s, consumed = NewPush(m.color, m.piece, m.from, a.piece, a.from, a.to), 2
		}
		if !lo.Contains(legal, s) {
			return errors.Errorf("illegal step %s", s)
		}
		i += consumed
		if b.MakeStepTryCommit(s) {
			if i < len(atoms) {
				return errors.New("steps after the end of the turn")
			}
			return nil
		}
	}
	b.MakeStepTryCommit(NewPass(b.toMove))
	return nil
}
