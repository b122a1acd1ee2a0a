// Package command implements operator commands that sit in front of the quest
// manager.
package command

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"questlog/internal/identity"
	"questlog/internal/quest"
)

var ErrMalformed = errors.New("malformed command input")

// VisibilityInput is a parsed "identifier|flag" command.
type VisibilityInput struct {
	Identifier string
	Visible    bool
}

// ParseVisibility parses "identifier|flag". flag is one of 1, 0, true, false
// (any case) and defaults to true when omitted or empty.
func ParseVisibility(input string) (VisibilityInput, error) {
	ident, flag, hasFlag := strings.Cut(input, "|")
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return VisibilityInput{}, ErrMalformed
	}

	visible := true
	flag = strings.ToLower(strings.TrimSpace(flag))
	if hasFlag && flag != "" {
		switch flag {
		case "1", "true":
			visible = true
		case "0", "false":
			visible = false
		default:
			return VisibilityInput{}, ErrMalformed
		}
	}
	return VisibilityInput{Identifier: ident, Visible: visible}, nil
}

// Result reports what a command did. Applied is false for every no-op.
type Result struct {
	QuestID string `json:"quest_id,omitempty"`
	Visible bool   `json:"visible"`
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

const (
	ReasonMalformed = "malformed"
	ReasonNotFound  = "not_found"
	ReasonUnchanged = "unchanged"
)

type Dispatcher struct {
	quests *quest.Manager
	log    zerolog.Logger
}

func NewDispatcher(quests *quest.Manager, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{quests: quests, log: log.With().Str("component", "command").Logger()}
}

// SetVisibility resolves the quest by id shape, else by title, and writes the
// requested visibility only when it differs from the current one. Malformed
// input and unknown quests are no-ops, not errors.
func (d *Dispatcher) SetVisibility(ctx context.Context, input string) (Result, error) {
	in, err := ParseVisibility(input)
	if err != nil {
		d.log.Debug().Str("input", input).Msg("ignoring malformed visibility command")
		return Result{Reason: ReasonMalformed}, nil
	}

	q, err := d.resolve(ctx, in.Identifier)
	if err != nil {
		return Result{}, err
	}
	if q == nil {
		return Result{Visible: in.Visible, Reason: ReasonNotFound}, nil
	}

	res := Result{QuestID: q.ID(), Visible: in.Visible}
	// Compare as an operator so an unset flag reads as hidden.
	opCtx := identity.WithActor(ctx, operatorOf(ctx))
	err = d.quests.ExecuteUpdateFn(ctx, "Set quest visibility", func(tx *quest.Manager) error {
		view := tx.GetQuest(q.ID())
		current, err := view.VisibleToPlayers(opCtx)
		if err != nil {
			return err
		}
		if current == in.Visible {
			return nil
		}
		if err := view.SetVisibleToPlayers(ctx, in.Visible); err != nil {
			return err
		}
		res.Applied = true
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if !res.Applied {
		res.Reason = ReasonUnchanged
	}

	d.log.Info().Str("quest", res.QuestID).Bool("visible", res.Visible).Bool("applied", res.Applied).Msg("visibility command")
	return res, nil
}

func (d *Dispatcher) resolve(ctx context.Context, ident string) (*quest.Quest, error) {
	if identity.IsID(ident) {
		ok, err := d.quests.QuestExists(ctx, ident)
		if err != nil || !ok {
			return nil, err
		}
		return d.quests.GetQuest(ident), nil
	}
	return d.quests.GetQuestByTitle(ctx, ident)
}

func operatorOf(ctx context.Context) identity.Actor {
	a, _ := identity.ActorFromContext(ctx)
	a.Role = identity.RoleDirector
	return a
}
