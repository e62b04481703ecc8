package engine

import (
	"context"
	"time"
)

type SchedulerConfig struct {
	BettingWindow time.Duration // janela de apostas antes da subida
	TickInterval  time.Duration // cadência do multiplicador
	Cooldown      time.Duration // pausa entre crash e a próxima rodada
}

// Scheduler roda o ciclo contínuo de rodadas: betting -> running -> crashed
// -> cooldown, para sempre. Uma única goroutine chama as transições do Game.
type Scheduler struct {
	game *Game
	cfg  SchedulerConfig
}

func NewScheduler(game *Game, cfg SchedulerConfig) *Scheduler {
	return &Scheduler{game: game, cfg: cfg}
}

// Run bloqueia até o contexto ser cancelado. Uma rodada em andamento crasha
// no cancelamento para não deixar apostas penduradas.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		s.game.BeginRound(ctx)
		if !sleepCtx(ctx, s.cfg.BettingWindow) {
			return
		}

		s.game.StartRun(ctx, time.Now())
		ticker := time.NewTicker(s.cfg.TickInterval)
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				s.game.Crash(context.Background())
				return
			case now := <-ticker.C:
				if s.game.Tick(ctx, now) {
					ticker.Stop()
					goto cooldown
				}
			}
		}

	cooldown:
		if !sleepCtx(ctx, s.cfg.Cooldown) {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
