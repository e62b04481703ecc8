package engine

import (
	"context"
	"time"
)

type SchedulerConfig struct {
	BetWindow time.Duration // janela de apostas
	SpinTime  time.Duration // duração do giro cosmético
	Cooldown  time.Duration // pausa até a próxima rodada
}

// Scheduler roda o ciclo contínuo: betting -> spinning -> settled ->
// cooldown. Uma rodada em spinning é liquidada no shutdown para não perder
// os pagamentos já decididos.
type Scheduler struct {
	game *Game
	cfg  SchedulerConfig
}

func NewScheduler(game *Game, cfg SchedulerConfig) *Scheduler {
	return &Scheduler{game: game, cfg: cfg}
}

func (s *Scheduler) Run(ctx context.Context) {
	for {
		s.game.BeginRound(ctx)
		if !sleepCtx(ctx, s.cfg.BetWindow) {
			return
		}

		s.game.CloseBetting(ctx)
		if !sleepCtx(ctx, s.cfg.SpinTime) {
			s.game.Settle(context.Background())
			return
		}

		s.game.Settle(ctx)
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
