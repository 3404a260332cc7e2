package scheduler

import (
	"context"
	"fmt"

	"despacho_backend/platform/config"
	"despacho_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Sender delivers a chat message to one phone number. Implemented by the
// WhatsApp gateway client.
type Sender interface {
	SendMessage(ctx context.Context, phone, text string) error
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	sender Sender
	log    *logger.Logger
}

func NewWorker(cfg config.RedisConfig, sender Sender, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			dispatchQueue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		sender: sender,
		log:    log,
	}

	mux.HandleFunc(TaskFunnelDispatch, w.handleFunnelDispatch)

	return w, nil
}

func (w *Worker) handleFunnelDispatch(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFunnelDispatchPayload(task)
	if err != nil {
		return err
	}

	if w.sender == nil {
		w.log.Warn("no gateway configured, dropping outbound message",
			"contactId", payload.ContactID, "phone", payload.Phone)
		return nil
	}

	text := payload.Text
	if payload.AttachmentName != "" {
		// The gateway only takes plain text, so attachments travel as a
		// reference the operator resolves from shared storage.
		text = fmt.Sprintf("%s\n\n[archivo adjunto: %s]", text, payload.AttachmentName)
	}

	if err := w.sender.SendMessage(ctx, payload.Phone, text); err != nil {
		w.log.DispatchError(payload.ContactID, payload.Phone, err)
		return err
	}

	w.log.Info("funnel message delivered", "contactId", payload.ContactID, "phone", payload.Phone)
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
