package runner

import (
	"context"

	"github.com/hupe1980/topicmesh/core"
)

// conversation handles the messages of one connection topic.
type conversation struct {
	r            *Runner
	connectionID string
	topicID      string
}

func (c *conversation) OnMessage(msg core.Message) {
	r := c.r
	r.manager.Touch(c.connectionID, msg.Timestamp)
	r.observers.Each(func(o core.MessageObserver) { o.OnMessage(msg) })

	if r.accountID != "" && msg.Meta.Raw.AccountID() == r.accountID {
		return
	}

	r.logger.Info("Received message #%d from %s on %s", msg.ID, msg.Sender, c.topicID)

	if text, ok := msg.Text(); ok {
		c.reply(r.context(), core.NewEcho(text))
		return
	}

	env, err := msg.Envelope()
	if err != nil {
		r.logger.Warn("Skipping message #%d: %v", msg.ID, err)
		return
	}

	switch env.Type {
	case core.PayloadQuery:
		q, err := env.Query()
		if err != nil {
			r.logger.Warn("Skipping query #%d: %v", msg.ID, err)
			return
		}
		c.submit(q, msg)
	case core.PayloadCloseConnection:
		var reason string
		if cc, err := env.CloseConnection(); err == nil {
			reason = cc.Reason
		}
		r.manager.MarkClosed(c.connectionID, reason)
		r.unwatch(c.topicID)
	case core.PayloadResponse, core.PayloadEcho:
		r.logger.Debug("Received %s #%d on %s", env.Type, msg.ID, c.topicID)
	default:
		r.logger.Info("Received message with type: %s", env.RawType)
	}
}

func (c *conversation) OnError(err error) {
	c.r.logger.Error("Message monitor error for connection %s: %v", c.connectionID, err)
	c.r.observers.Each(func(o core.MessageObserver) { o.OnError(err) })
}

func (c *conversation) submit(q core.Query, msg core.Message) {
	ctx := c.r.context()
	if err := c.r.pool.Submit(func() { c.answer(ctx, q, msg) }); err != nil {
		c.r.logger.Error("Dropping query %d: %v", q.RequestID, err)
	}
}

func (c *conversation) answer(ctx context.Context, q core.Query, msg core.Message) {
	r := c.r

	if q.Parameters.CanHandle {
		yes := false
		if r.answerer != nil {
			out, err := r.answerer.Answer(ctx, CanHandlePrompt(q.Question))
			if err != nil {
				r.logger.Error("Answering capability query %d failed: %v", q.RequestID, err)
				return
			}
			r.logger.Debug("Capability answer for %d: %s", q.RequestID, out)
			yes = IsYes(out)
		}
		resp := core.NewResponse(q.RequestID, "", q.Question)
		resp.CanHandle = &yes
		c.reply(ctx, resp)
		return
	}

	if r.answerer == nil {
		c.reply(ctx, core.NewEcho(msg.Data))
		return
	}

	out, err := r.answerer.Answer(ctx, q.Question)
	if err != nil {
		r.logger.Error("Answering query %d failed: %v", q.RequestID, err)
		return
	}

	c.reply(ctx, core.NewResponse(q.RequestID, out, q.Question))
}

func (c *conversation) reply(ctx context.Context, payload any) {
	raw, err := core.EncodePayload(payload)
	if err != nil {
		c.r.logger.Error("Encoding reply on %s failed: %v", c.topicID, err)
		return
	}
	if _, err := c.r.client.Send(ctx, c.topicID, raw, ""); err != nil {
		c.r.logger.Error("Sending reply on %s failed: %v", c.topicID, err)
	}
}
