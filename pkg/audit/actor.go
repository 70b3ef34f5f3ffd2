package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/ordershop/pkg/models"
	"go.uber.org/zap"
)

const (
	actorName    = "audit-actor"
	writeTimeout = 5 * time.Second
)

// Sink persists audit entries.
type Sink interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*models.AuditLog, error)
}

// Messages
type recordEntry struct {
	Entry *models.AuditLog
}

type getTrail struct {
	EntityID string
	Limit    int64
}

type trailResponse struct {
	Logs []*models.AuditLog
	Err  error
}

// auditActor writes entries one at a time in mailbox order.
type auditActor struct {
	sink   Sink
	logger *zap.Logger
}

func (a *auditActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *recordEntry:
		wctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := a.sink.CreateAuditLog(wctx, msg.Entry); err != nil {
			a.logger.Error("Failed to write audit log",
				zap.String("action", msg.Entry.Action),
				zap.String("entity_id", msg.Entry.EntityID),
				zap.Error(err))
		}

	case *getTrail:
		rctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		logs, err := a.sink.GetAuditLogs(rctx, msg.EntityID, msg.Limit)
		ctx.Respond(&trailResponse{Logs: logs, Err: err})

	case *actor.Started:
		a.logger.Info("Audit actor started")

	case *actor.Stopped:
		a.logger.Info("Audit actor stopped")
	}
}

// Recorder is the entry point to the audit actor. Record never blocks on
// storage.
type Recorder struct {
	system *actor.ActorSystem
	pid    *actor.PID
	logger *zap.Logger
}

func NewRecorder(sink Sink, logger *zap.Logger) (*Recorder, error) {
	logger = logger.Named(actorName)
	system := actor.NewActorSystem()

	props := actor.PropsFromProducer(func() actor.Actor {
		return &auditActor{sink: sink, logger: logger}
	})
	pid, err := system.Root.SpawnNamed(props, actorName)
	if err != nil {
		return nil, fmt.Errorf("failed to spawn audit actor: %w", err)
	}

	return &Recorder{system: system, pid: pid, logger: logger}, nil
}

func (r *Recorder) Record(entry *models.AuditLog) {
	if entry == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	r.system.Root.Send(r.pid, &recordEntry{Entry: entry})
}

// Trail returns the newest audit entries for an entity. It is answered
// after every entry recorded before the call has been written.
func (r *Recorder) Trail(ctx context.Context, entityID string, limit int64) ([]*models.AuditLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := writeTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if timeout = time.Until(deadline); timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	result, err := r.system.Root.RequestFuture(r.pid, &getTrail{EntityID: entityID, Limit: limit}, timeout).Result()
	if err != nil {
		return nil, fmt.Errorf("audit trail request: %w", err)
	}

	resp, ok := result.(*trailResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected audit response %T", result)
	}
	return resp.Logs, resp.Err
}

// Stop drains the mailbox and stops the actor.
func (r *Recorder) Stop() error {
	return r.system.Root.PoisonFuture(r.pid).Wait()
}
