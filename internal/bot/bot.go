// Package bot connects the building logic to a stream of world events.
package bot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"vblocks.ai/internal/build/command"
	"vblocks.ai/internal/build/placement"
	"vblocks.ai/internal/logging"
	"vblocks.ai/internal/world"
)

// ErrDisconnected is returned by Feed when the event source closes.
var ErrDisconnected = errors.New("bot: event source closed")

const DefaultInboxSize = 256

type Config struct {
	InboxSize int
	// Self is the bot's own avatar id. Chat from it is skipped so replies are never
	// read back as commands.
	Self        string
	CallTimeout time.Duration
}

type Stats struct {
	Clicks   uint64
	Created  uint64
	Deleted  uint64
	Occupied uint64
	Failed   uint64
	Ignored  uint64
	Commands uint64
}

// Bot dispatches world events. Lifecycle events and chat are applied in arrival order on
// the Run goroutine. Each click runs on its own goroutine.
type Bot struct {
	cfg    Config
	engine *placement.Engine
	interp *command.Interpreter
	log    logrus.FieldLogger

	inbox chan world.Event
	wg    sync.WaitGroup

	clicks, created, deleted, occupied, failed, ignored, commands atomic.Uint64
}

func New(cfg Config, engine *placement.Engine, interp *command.Interpreter, log logrus.FieldLogger) *Bot {
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultInboxSize
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = placement.DefaultCallTimeout
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Bot{
		cfg:    cfg,
		engine: engine,
		interp: interp,
		log:    log,
		inbox:  make(chan world.Event, cfg.InboxSize),
	}
}

func (b *Bot) Inbox() chan<- world.Event { return b.inbox }

// Feed copies events from src into the inbox until src closes or ctx is done.
func (b *Bot) Feed(ctx context.Context, src <-chan world.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-src:
			if !ok {
				return ErrDisconnected
			}
			select {
			case b.inbox <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Run consumes the inbox until ctx is done, then waits for in-flight clicks.
func (b *Bot) Run(ctx context.Context) error {
	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-b.inbox:
			b.dispatch(ctx, ev)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, ev world.Event) {
	switch e := ev.(type) {
	case world.ObjectCreated:
		b.engine.ObjectCreated(e.Object)
	case world.ObjectDeleted:
		b.engine.ObjectDeleted(e.Object)
	case world.Chat:
		if b.cfg.Self != "" && e.Avatar.ID == b.cfg.Self {
			return
		}
		callCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
		out := b.interp.Handle(callCtx, e)
		cancel()
		if out != command.Ignored {
			b.commands.Add(1)
			b.log.WithFields(logrus.Fields{"avatar": e.Avatar.ID, "outcome": out.String()}).Debug("command handled")
		}
	case world.Click:
		b.clicks.Add(1)
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.click(ctx, e)
		}()
	default:
		b.log.WithField("event", ev).Warn("unknown event")
	}
}

func (b *Bot) click(ctx context.Context, c world.Click) {
	res, err := b.engine.HandleClick(ctx, c)
	switch res.Action {
	case placement.Created:
		b.created.Add(1)
	case placement.Deleted:
		b.deleted.Add(1)
	case placement.Occupied:
		b.occupied.Add(1)
	case placement.Failed:
		b.failed.Add(1)
	default:
		b.ignored.Add(1)
	}
	if err != nil {
		b.log.WithError(err).WithField("avatar", c.Avatar.ID).Debug("click failed")
	}
}

func (b *Bot) Stats() Stats {
	return Stats{
		Clicks:   b.clicks.Load(),
		Created:  b.created.Load(),
		Deleted:  b.deleted.Load(),
		Occupied: b.occupied.Load(),
		Failed:   b.failed.Load(),
		Ignored:  b.ignored.Load(),
		Commands: b.commands.Load(),
	}
}
