package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/bot/handlers"
	"github.com/Proton-105/skyexchange-bot/internal/composer"
	"github.com/Proton-105/skyexchange-bot/internal/flows"
	"github.com/Proton-105/skyexchange-bot/internal/notify"
	"github.com/Proton-105/skyexchange-bot/internal/state"
)

// FileSource downloads files users attached to their messages.
type FileSource interface {
	File(file *telebot.File) (io.ReadCloser, error)
}

// ProfileCache drops cached copies of a user after their profile changed.
type ProfileCache interface {
	Forget(ctx context.Context, user *api.User)
}

// Dispatcher runs the matched flow handler, stores the resulting session and sends the replies.
type Dispatcher struct {
	fsm   state.StateMachine
	files FileSource
	cache ProfileCache
	log   *slog.Logger
}

// NewDispatcher creates a Dispatcher. files and cache may be nil.
func NewDispatcher(fsm state.StateMachine, files FileSource, cache ProfileCache, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		fsm:   fsm,
		files: files,
		cache: cache,
		log:   log,
	}
}

// Handle is the innermost handler of the middleware chain.
func (d *Dispatcher) Handle(c telebot.Context) error {
	route := handlers.RouteFrom(c)
	if route == nil || route.Handler == nil {
		return nil
	}
	ctx := handlers.Context(c)
	userID := handlers.SenderID(c)

	if c.Callback() != nil {
		if err := c.Respond(); err != nil {
			d.log.Debug("callback answer failed", slog.Any("error", err))
		}
	}

	current := handlers.StateFrom(c)
	if route.Interrupts {
		if err := d.fsm.ClearState(ctx, userID); err != nil {
			return err
		}
		current = nil
	}

	res, err := route.Handler(ctx, d.input(c, route, current))
	if err != nil {
		return err
	}

	if err := d.apply(ctx, userID, current, res); err != nil {
		return err
	}
	if route.Refreshes && d.cache != nil {
		if u := handlers.UserFrom(c); u != nil {
			d.cache.Forget(ctx, u)
		}
	}

	return d.send(c, res.Replies)
}

func (d *Dispatcher) input(c telebot.Context, route *handlers.Route, current *state.UserState) flows.Input {
	in := flows.Input{
		User:       handlers.UserFrom(c),
		TelegramID: handlers.SenderID(c),
		Args:       route.Args,
		State:      current,
	}
	if c.Sender() != nil {
		in.Username = c.Sender().Username
	}
	if c.Callback() == nil {
		in.Text = c.Text()
		in.File = d.upload(c.Message())
	}
	return in
}

func (d *Dispatcher) upload(msg *telebot.Message) *flows.Upload {
	if msg == nil || d.files == nil {
		return nil
	}
	switch {
	case msg.Photo != nil:
		file := msg.Photo.File
		return &flows.Upload{
			Name:        "photo.jpg",
			ContentType: "image/jpeg",
			Open:        func() (io.ReadCloser, error) { return d.files.File(&file) },
		}
	case msg.Document != nil:
		doc := msg.Document
		return &flows.Upload{
			Name:        doc.FileName,
			ContentType: doc.MIME,
			Open:        func() (io.ReadCloser, error) { return d.files.File(&doc.File) },
		}
	}
	return nil
}

func (d *Dispatcher) apply(ctx context.Context, userID int64, current *state.UserState, res flows.Result) error {
	switch res.Outcome {
	case flows.Advance:
		// the session moved on since the update was routed, e.g. the wizard timed out
		if err := d.fsm.TransitionTo(ctx, userID, res.Next, res.Data); err != nil {
			return fmt.Errorf("transition %s -> %s: %w", current.Current(), res.Next, err)
		}
		return nil
	case flows.Reset:
		return d.fsm.ClearState(ctx, userID)
	default:
		return nil
	}
}

func (d *Dispatcher) send(c telebot.Context, replies []composer.Response) error {
	for _, r := range replies {
		if r.Empty() {
			continue
		}
		if r.Attachment != nil {
			if err := c.Send(notify.Attachment(r.Attachment, r.Attachment.Caption)); err != nil {
				return err
			}
		}
		if r.Text == "" {
			continue
		}
		opts := &telebot.SendOptions{
			ParseMode:             telebot.ModeHTML,
			ReplyMarkup:           r.Markup,
			DisableWebPagePreview: true,
		}
		if r.Edit && c.Callback() != nil {
			err := c.Edit(r.Text, opts)
			if err == nil || errors.Is(err, telebot.ErrSameMessageContent) {
				continue
			}
			d.log.Debug("edit failed, sending instead", slog.Any("error", err))
		}
		if err := c.Send(r.Text, opts); err != nil {
			return err
		}
	}
	return nil
}
