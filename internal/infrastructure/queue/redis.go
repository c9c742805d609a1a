package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tu-usuario/facturalo-pe/pkg/config"
)

// Carriles de trabajo. Cada carril es una lista Redis (LPUSH/BRPOP) con una
// sorted set hermana para los trabajos diferidos (score = epoch de ejecución).
const (
	LaneSubmissions = "facturalo:queue:submissions"
	LaneWebhooks    = "facturalo:queue:webhooks"
	LaneVoided      = "facturalo:queue:voided"
	LaneTickets     = "facturalo:queue:tickets"
)

const delayedSuffix = ":delayed"

// Queue implementa los carriles de trabajo sobre Redis. Los payloads son el
// ID del recurso: todo el estado vive en PostgreSQL y la cola solo transporta
// referencias, así un trabajo duplicado es inocuo.
type Queue struct {
	rdb *redis.Client
}

// Connect abre el cliente Redis y verifica la conexión.
func Connect(ctx context.Context, cfg config.RedisConfig) (*Queue, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  0, // BRPOP bloquea; sin deadline de lectura
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Queue{rdb: rdb}, nil
}

// Close cierra la conexión.
func (q *Queue) Close() error {
	return q.rdb.Close()
}

// Push encola un trabajo inmediato en el carril.
func (q *Queue) Push(ctx context.Context, lane, id string) error {
	if err := q.rdb.LPush(ctx, lane, id).Err(); err != nil {
		return fmt.Errorf("push %s: %w", lane, err)
	}
	return nil
}

// PushDelayed programa un trabajo para dentro de delay. PromoteDue lo mueve
// al carril vivo cuando vence.
func (q *Queue) PushDelayed(ctx context.Context, lane, id string, delay time.Duration) error {
	score := float64(time.Now().Add(delay).Unix())
	if err := q.rdb.ZAdd(ctx, lane+delayedSuffix, redis.Z{Score: score, Member: id}).Err(); err != nil {
		return fmt.Errorf("push delayed %s: %w", lane, err)
	}
	return nil
}

// Pop espera un trabajo del carril hasta timeout. Devuelve "" sin error
// cuando venció la espera.
func (q *Queue) Pop(ctx context.Context, lane string, timeout time.Duration) (string, error) {
	res, err := q.rdb.BRPop(ctx, timeout, lane).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("pop %s: %w", lane, err)
	}
	// BRPOP devuelve [clave, valor].
	return res[1], nil
}

// PromoteDue mueve al carril vivo los trabajos diferidos ya vencidos. Lo
// invoca el worker en cada vuelta del loop.
func (q *Queue) PromoteDue(ctx context.Context, lane string) error {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	ids, err := q.rdb.ZRangeByScore(ctx, lane+delayedSuffix, &redis.ZRangeBy{
		Min: "-inf", Max: now,
	}).Result()
	if err != nil {
		return fmt.Errorf("promote %s: %w", lane, err)
	}
	for _, id := range ids {
		// ZRem primero: si otro worker ya lo promovió, ZRem devuelve 0 y no
		// se encola dos veces.
		removed, err := q.rdb.ZRem(ctx, lane+delayedSuffix, id).Result()
		if err != nil {
			return fmt.Errorf("promote %s: %w", lane, err)
		}
		if removed == 0 {
			continue
		}
		if err := q.rdb.LPush(ctx, lane, id).Err(); err != nil {
			return fmt.Errorf("promote %s: %w", lane, err)
		}
	}
	return nil
}

// ── adaptadores a los puertos de aplicación ──────────────────────────────────

// EnqueueSubmission implementa billing.SubmissionEnqueuer y el lado inmediato
// de submission.DelayedEnqueuer.
func (q *Queue) EnqueueSubmission(ctx context.Context, documentID string) error {
	return q.Push(ctx, LaneSubmissions, documentID)
}

// EnqueueSubmissionDelayed programa el reintento de envío.
func (q *Queue) EnqueueSubmissionDelayed(ctx context.Context, documentID string, delay time.Duration) error {
	return q.PushDelayed(ctx, LaneSubmissions, documentID, delay)
}

// EnqueueDelivery implementa webhooks.DeliveryEnqueuer.
func (q *Queue) EnqueueDelivery(ctx context.Context, deliveryID string) error {
	return q.Push(ctx, LaneWebhooks, deliveryID)
}

// EnqueueDeliveryDelayed programa el reintento de entrega.
func (q *Queue) EnqueueDeliveryDelayed(ctx context.Context, deliveryID string, delay time.Duration) error {
	return q.PushDelayed(ctx, LaneWebhooks, deliveryID, delay)
}

// EnqueueVoided implementa voiding.Enqueuer: envío del batch de baja.
func (q *Queue) EnqueueVoided(ctx context.Context, voidedID string) error {
	return q.Push(ctx, LaneVoided, voidedID)
}

// EnqueueVoidedDelayed programa el reintento de un sendSummary fallido.
func (q *Queue) EnqueueVoidedDelayed(ctx context.Context, voidedID string, delay time.Duration) error {
	return q.PushDelayed(ctx, LaneVoided, voidedID, delay)
}

// EnqueueTicketPoll programa la consulta del ticket del batch.
func (q *Queue) EnqueueTicketPoll(ctx context.Context, voidedID string, delay time.Duration) error {
	return q.PushDelayed(ctx, LaneTickets, voidedID, delay)
}
