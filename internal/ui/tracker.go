package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"

	"github.com/devMonkRahul/w3send/internal/chain"
	"github.com/devMonkRahul/w3send/internal/submitter"
)

// StateMsg is a confirmation progress update.
type StateMsg submitter.ConfirmationState

// DoneMsg ends tracking with the wait result.
type DoneMsg struct {
	Receipt *chain.Receipt
	Err     error
}

type trackerTick struct{}

// TrackerConfig describes what the tracker is waiting on.
type TrackerConfig struct {
	Hash        common.Hash
	Network     string
	ExplorerURL string
	Target      uint64
}

// TrackerModel is the Bubble Tea model behind `wait --live` and `send --live`.
type TrackerModel struct {
	cfg     TrackerConfig
	state   submitter.ConfirmationState
	receipt *chain.Receipt
	err     error
	done    bool
	frame   int
	cancel  context.CancelFunc
}

// NewTracker creates a new TrackerModel for cfg. cancel is called when the user quits.
func NewTracker(cfg TrackerConfig, cancel context.CancelFunc) TrackerModel {
	return TrackerModel{
		cfg:    cfg,
		cancel: cancel,
		state:  submitter.ConfirmationState{TxHash: cfg.Hash, Target: cfg.Target},
	}
}

func tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg { return trackerTick{} })
}

func (m TrackerModel) Init() tea.Cmd { return tick() }

func (m TrackerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.done && m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case trackerTick:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinFrames)
		return m, tick()
	case StateMsg:
		m.state = submitter.ConfirmationState(msg)
	case DoneMsg:
		m.done = true
		m.receipt = msg.Receipt
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// State returns the latest progress update.
func (m TrackerModel) State() submitter.ConfirmationState { return m.state }

// Done reports whether the wait finished.
func (m TrackerModel) Done() bool { return m.done }

func (m TrackerModel) View() string {
	var sb strings.Builder
	title := "Confirming " + TruncateAddr(m.cfg.Hash.Hex())
	if m.cfg.Network != "" {
		title += "  ·  " + m.cfg.Network
	}
	sb.WriteString(StyleTitle.Render(title) + "\n")

	st := m.state
	sb.WriteString(padR(Meta("status"), 16) + statusLabel(st.Status, m.done, spinFrames[m.frame]) + "\n")
	sb.WriteString(padR(Meta("confirmations"), 16) + progressBar(st.Confirmations, st.Target) +
		fmt.Sprintf(" %d/%d", st.Confirmations, st.Target) + "\n")
	if st.InclusionBlock > 0 {
		sb.WriteString(padR(Meta("included in"), 16) + Val(fmt.Sprintf("#%d", st.InclusionBlock)) + "\n")
	}
	sb.WriteString(padR(Meta("polls"), 16) + fmt.Sprintf("%d", st.Polls))
	if !m.done && st.Interval > 0 {
		sb.WriteString(Meta(fmt.Sprintf("  (next in %s)", st.Interval)))
	}
	sb.WriteString("\n")
	if st.LastErr != nil && !m.done {
		sb.WriteString(Warn("last poll failed: "+st.LastErr.Error()) + "\n")
	}

	if m.done {
		sb.WriteString("\n")
		switch {
		case m.err != nil:
			sb.WriteString(Err(m.err.Error()) + "\n")
		case m.receipt != nil && !m.receipt.Succeeded():
			sb.WriteString(Err(fmt.Sprintf("reverted in block #%d", m.receipt.BlockNumber)) + "\n")
		case m.receipt != nil:
			sb.WriteString(Success(fmt.Sprintf("confirmed in block #%d", m.receipt.BlockNumber)) + "\n")
		}
		if m.cfg.ExplorerURL != "" {
			sb.WriteString(Meta(m.cfg.ExplorerURL) + "\n")
		}
	} else {
		sb.WriteString("\n" + Meta("[ q ] stop waiting") + "\n")
	}
	return sb.String()
}

func statusLabel(s submitter.Status, done bool, frame string) string {
	switch s {
	case submitter.StatusConfirmed:
		return StyleSuccess.Render(s.String())
	case submitter.StatusCancelled, submitter.StatusTimedOut:
		return StyleError.Render(s.String())
	}
	if done {
		return StyleInfo.Render(s.String())
	}
	return StyleInfo.Render(frame + " " + s.String())
}

func progressBar(have, want uint64) string {
	const width = 20
	if want == 0 {
		want = 1
	}
	filled := int(min(have, want) * width / want)
	return StyleSuccess.Render(strings.Repeat("█", filled)) + StyleMeta.Render(strings.Repeat("░", width-filled))
}

// WaitFunc runs a confirmation wait, reporting progress through onProgress.
type WaitFunc func(ctx context.Context, onProgress func(submitter.ConfirmationState)) (*chain.Receipt, error)

// RunTracker renders live progress of wait until it finishes or the user
// quits, in which case wait's context is cancelled and its result returned.
// A nil in disables keyboard input.
func RunTracker(ctx context.Context, in io.Reader, out io.Writer, cfg TrackerConfig, wait WaitFunc) (*chain.Receipt, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewTracker(cfg, cancel), tea.WithInput(in), tea.WithOutput(out))
	result := make(chan DoneMsg, 1)
	go func() {
		r, err := wait(ctx, func(st submitter.ConfirmationState) { p.Send(StateMsg(st)) })
		d := DoneMsg{Receipt: r, Err: err}
		result <- d
		p.Send(d)
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-result
		return nil, fmt.Errorf("tracker: %w", err)
	}
	cancel()
	d := <-result
	return d.Receipt, d.Err
}
