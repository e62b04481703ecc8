package engine

import (
	"errors"
	"time"

	"github.com/caseclash/platform/internal/battle-service/cases"
)

// Status de uma batalha. Transições estritamente para frente:
// waiting -> starting -> in_progress -> finished, com cancelled alcançável
// apenas a partir de waiting. Estados terminais são imutáveis.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusStarting   Status = "starting"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
	StatusCancelled  Status = "cancelled"
)

type Mode string

const (
	ModeNormal  Mode = "normal"  // maior pontuação acumulada vence
	ModeInverse Mode = "inverse" // menor pontuação acumulada vence
)

// Códigos de rejeição estáveis devolvidos ao cliente
var (
	ErrBattleNotFound  = errors.New("battle_not_found")
	ErrNotJoinable     = errors.New("battle_not_joinable")
	ErrPositionTaken   = errors.New("position_taken")
	ErrInvalidPosition = errors.New("invalid_position")
	ErrAlreadyJoined   = errors.New("already_joined")
	ErrNotParticipant  = errors.New("not_a_participant")
	ErrNotCreator      = errors.New("not_the_creator")
	ErrInvalidConfig   = errors.New("invalid_battle_config")
)

type Participant struct {
	UserID     string `json:"user_id"`
	Position   int    `json:"position"`
	ClientSeed string `json:"client_seed"`
	ScoreCents int64  `json:"score_cents"`
}

// PrizeResult é o resultado de um participante em uma rodada.
// Nonce = (rodada-1)*P + posição: nenhum par (rodada, posição) repete nonce
// dentro da batalha, requisito da auditabilidade.
type PrizeResult struct {
	Round       int     `json:"round"`
	Position    int     `json:"position"`
	UserID      string  `json:"user_id"`
	Nonce       uint64  `json:"nonce"`
	RollValue   float64 `json:"roll_value"`
	ItemID      string  `json:"item_id"`
	PayoutCents int64   `json:"payout_cents"`
}

type RoundResult struct {
	Round   int           `json:"round"`
	CaseID  string        `json:"case_id"`
	Results []PrizeResult `json:"results"`
}

// Battle é o estado completo de uma batalha. O ator dono da batalha é o
// único mutador; todo o resto recebe cópias via Snapshot.
type Battle struct {
	ID         string     `json:"id"`
	Status     Status     `json:"status"`
	Mode       Mode       `json:"mode"`
	FastMode   bool       `json:"fast_mode"`
	CreatorID  string     `json:"creator_id"`
	MaxPlayers int        `json:"max_players"`
	CaseIDs    []string   `json:"case_ids"`
	CostCents  int64      `json:"cost_cents"` // custo por jogador (soma dos preços das cases)

	ServerSeed         string `json:"server_seed,omitempty"` // revelado só em estado terminal
	ServerSeedHash     string `json:"server_seed_hash"`
	PublicSeed         string `json:"public_seed,omitempty"`
	PublicSeedFallback bool   `json:"public_seed_fallback,omitempty"`

	Participants []Participant `json:"participants"`
	Rounds       []RoundResult `json:"rounds"`

	WinnerUserID  string     `json:"winner_user_id,omitempty"`
	PotCents      int64      `json:"pot_cents,omitempty"`
	HouseCutCents int64      `json:"house_cut_cents,omitempty"`
	PayoutCents   int64      `json:"payout_cents,omitempty"`
	SettleError   string     `json:"settle_error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`

	rounds []cases.Case // tabelas de prêmio por rodada, em ordem
}

func (b *Battle) terminal() bool {
	return b.Status == StatusFinished || b.Status == StatusCancelled
}

// snapshot devolve uma cópia publicável: o serverSeed nunca sai antes da
// resolução (o hash é o compromisso público)
func (b *Battle) snapshot() Battle {
	cp := *b
	cp.Participants = append([]Participant(nil), b.Participants...)
	cp.Rounds = append([]RoundResult(nil), b.Rounds...)
	cp.CaseIDs = append([]string(nil), b.CaseIDs...)
	cp.rounds = nil
	if !b.terminal() {
		cp.ServerSeed = ""
	}
	return cp
}

// winner aplica a regra de desempate observada em produção: o primeiro
// participante encontrado no valor extremo vence, iterando em ordem de
// posição. Determinístico e necessário para reproduzir resultados passados.
func (b *Battle) winner() *Participant {
	if len(b.Participants) == 0 {
		return nil
	}
	best := &b.Participants[0]
	for i := 1; i < len(b.Participants); i++ {
		p := &b.Participants[i]
		switch b.Mode {
		case ModeInverse:
			if p.ScoreCents < best.ScoreCents {
				best = p
			}
		default:
			if p.ScoreCents > best.ScoreCents {
				best = p
			}
		}
	}
	return best
}

// NonceFor calcula o nonce de um par (rodada, posição) de uma batalha com
// participantCount jogadores. Rodadas começam em 1, posições em 0.
func NonceFor(round, position, participantCount int) uint64 {
	return uint64((round-1)*participantCount + position)
}
