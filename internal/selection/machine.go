// Package selection turns square clicks into move submissions. Move-list
// indices are only ever used against the snapshot they were computed from.
package selection

import (
	"github.com/park285/cheese-board-client/internal/board"
	"github.com/park285/cheese-board-client/internal/store"
	"github.com/park285/cheese-board-client/pkg/boarddto"
	"go.uber.org/zap"
)

type Phase int

const (
	Idle Phase = iota
	Selected
	// Promoting waits for the promotion prompt; the board takes no clicks.
	Promoting
)

func (p Phase) String() string {
	switch p {
	case Selected:
		return "selected"
	case Promoting:
		return "promoting"
	default:
		return "idle"
	}
}

// Selection is a copy of the machine's state, safe to hand to renderers.
// Candidates index the move list of the snapshot with the same Version.
type Selection struct {
	Phase      Phase
	Origin     board.Square
	Candidates []int
	Version    uint64
}

func (s Selection) Active() bool { return s.Phase != Idle }

// StateReader exposes the current snapshot; *store.Store implements it.
type StateReader interface {
	Snapshot() (store.Snapshot, bool)
}

// Submitter sends "play move i" to the server.
type Submitter interface {
	Submit(index int)
}

// Prompter shows and hides the promotion prompt. The answer comes back
// through Machine.ResolvePromotion with the same token.
type Prompter interface {
	Ask(token uint64)
	Dismiss()
}

type SubmitterFunc func(index int)

func (f SubmitterFunc) Submit(index int) { f(index) }

// Machine is not safe for concurrent use; drive it from the event loop.
type Machine struct {
	states StateReader
	submit Submitter
	prompt Prompter
	logger *zap.Logger

	sel      Selection
	narrowed []int
	token    uint64

	onChange []func(Selection)
}

func NewMachine(states StateReader, submit Submitter, prompt Prompter, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{states: states, submit: submit, prompt: prompt, logger: logger}
}

// OnChange registers a callback run after every transition.
func (m *Machine) OnChange(cb func(Selection)) {
	if cb != nil {
		m.onChange = append(m.onChange, cb)
	}
}

func (m *Machine) Selection() Selection { return m.sel.copy() }

func (s Selection) copy() Selection {
	s.Candidates = append([]int(nil), s.Candidates...)
	return s
}

// Click handles a click on sq.
func (m *Machine) Click(sq board.Square) {
	switch m.sel.Phase {
	case Idle:
		m.clickIdle(sq)
	case Selected:
		m.clickSelected(sq)
	case Promoting:
		// the prompt was abandoned; the click only closes it
		m.logger.Debug("selection_prompt_abandoned", zap.Uint64("token", m.token))
		m.dismissPrompt()
		m.reset()
	}
}

func (m *Machine) clickIdle(sq board.Square) {
	snap, ok := m.states.Snapshot()
	if !ok || !snap.State.OwnedByMover(sq) {
		return
	}
	var candidates []int
	for i, mv := range snap.Moves {
		if mv != nil && board.Origin(mv, snap.State.Turn) == sq {
			candidates = append(candidates, i)
		}
	}
	m.sel = Selection{Phase: Selected, Origin: sq, Candidates: candidates, Version: snap.Version}
	m.logger.Debug("selection_selected",
		zap.Stringer("origin", sq),
		zap.Ints("candidates", candidates),
		zap.Uint64("version", snap.Version),
	)
	m.changed()
}

func (m *Machine) clickSelected(sq board.Square) {
	if sq == m.sel.Origin {
		m.reset()
		return
	}
	snap, ok := m.usableSnapshot()
	if !ok {
		m.reset()
		return
	}
	var narrowed []int
	for _, i := range m.sel.Candidates {
		if board.Destination(snap.Moves[i], snap.State.Turn) == sq {
			narrowed = append(narrowed, i)
		}
	}
	if len(narrowed) == 0 {
		m.reset()
		return
	}
	if _, isPromotion := snap.Moves[narrowed[0]].(board.Promote); isPromotion {
		m.token++
		m.narrowed = narrowed
		m.sel.Phase = Promoting
		m.changed()
		if m.prompt != nil {
			m.prompt.Ask(m.token)
		}
		return
	}
	m.commit(narrowed[0], snap)
}

// ResolvePromotion delivers the prompt's answer. ok is false when the user
// cancelled. Answers for an outdated token are ignored.
func (m *Machine) ResolvePromotion(token uint64, answer string, ok bool) {
	if m.sel.Phase != Promoting || token != m.token {
		m.logger.Debug("selection_prompt_answer_ignored", zap.Uint64("token", token), zap.Uint64("current", m.token))
		return
	}
	if !ok {
		m.reset()
		return
	}
	snap, usable := m.usableSnapshot()
	if !usable {
		m.reset()
		return
	}
	for _, i := range m.narrowed {
		if p, isPromotion := snap.Moves[i].(board.Promote); isPromotion && p.Kind.Matches(answer) {
			m.commit(i, snap)
			return
		}
	}
	m.logger.Debug("selection_promotion_unmatched", zap.String("answer", answer))
	m.reset()
}

// Invalidate drops any selection. It runs on every store replacement: held
// indices belong to the old move list even when the new one looks alike.
func (m *Machine) Invalidate() {
	if m.sel.Phase == Idle {
		return
	}
	if m.sel.Phase == Promoting {
		m.dismissPrompt()
	}
	m.logger.Debug("selection_invalidated", zap.Stringer("phase", m.sel.Phase))
	m.reset()
}

// usableSnapshot returns the snapshot the selection was made against, or
// false (and logs) when the store moved on or the indices do not fit.
func (m *Machine) usableSnapshot() (store.Snapshot, bool) {
	snap, ok := m.states.Snapshot()
	if !ok || snap.Version != m.sel.Version {
		m.logger.Warn("selection_stale_snapshot", zap.String("code", boarddto.CodeStaleIndex), zap.Uint64("selected_version", m.sel.Version), zap.Uint64("version", snap.Version))
		return snap, false
	}
	for _, i := range m.sel.Candidates {
		if i < 0 || i >= len(snap.Moves) || snap.Moves[i] == nil {
			m.logger.Warn("selection_index_out_of_range", zap.String("code", boarddto.CodeStaleIndex), zap.Int("index", i), zap.Int("moves", len(snap.Moves)))
			return snap, false
		}
	}
	return snap, true
}

func (m *Machine) commit(index int, snap store.Snapshot) {
	m.logger.Info("selection_commit",
		zap.Int("index", index),
		zap.String("move", board.Describe(snap.Moves[index], snap.State.Turn)),
		zap.Uint64("version", snap.Version),
	)
	m.reset()
	if m.submit != nil {
		m.submit.Submit(index)
	}
}

func (m *Machine) dismissPrompt() {
	if m.prompt != nil {
		m.prompt.Dismiss()
	}
}

func (m *Machine) reset() {
	m.sel = Selection{}
	m.narrowed = nil
	m.changed()
}

func (m *Machine) changed() {
	sel := m.sel.copy()
	for _, cb := range m.onChange {
		cb(sel)
	}
}
