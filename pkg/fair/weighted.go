package fair

import "errors"

var ErrEmptyTable = errors.New("empty_prize_table")

// WeightedItem é uma entrada bruta de tabela de prêmios
type WeightedItem struct {
	ID          string
	Weight      float64
	PayoutCents int64
}

// CumulativeItem é o item com a probabilidade acumulada já normalizada.
// Invariante: Cumulative é monotônico não-decrescente e o último item fecha em 1.0.
type CumulativeItem struct {
	ID          string
	Weight      float64
	Probability float64
	Cumulative  float64
	PayoutCents int64
}

// BuildCumulative normaliza os pesos pela soma e acumula em ordem estável.
// Itens com peso <= 0 são ignorados. O último item é travado em 1.0 para
// absorver deriva de ponto flutuante.
func BuildCumulative(items []WeightedItem) ([]CumulativeItem, error) {
	var total float64
	for _, it := range items {
		if it.Weight > 0 {
			total += it.Weight
		}
	}
	if total <= 0 {
		return nil, ErrEmptyTable
	}

	out := make([]CumulativeItem, 0, len(items))
	var cum float64
	for _, it := range items {
		if it.Weight <= 0 {
			continue
		}
		p := it.Weight / total
		cum += p
		out = append(out, CumulativeItem{
			ID:          it.ID,
			Weight:      it.Weight,
			Probability: p,
			Cumulative:  cum,
			PayoutCents: it.PayoutCents,
		})
	}
	out[len(out)-1].Cumulative = 1.0
	return out, nil
}

// Select retorna o primeiro item cuja probabilidade acumulada é >= rollValue.
// Se nenhum qualificar (roll exatamente 1.0 ou arredondamento), cai
// explicitamente no último item, nunca um fallthrough sem tratamento.
func Select(rollValue float64, items []CumulativeItem) (CumulativeItem, error) {
	if len(items) == 0 {
		return CumulativeItem{}, ErrEmptyTable
	}
	for _, it := range items {
		if it.Cumulative >= rollValue {
			return it, nil
		}
	}
	// deriva de ponto flutuante: o último item absorve o resto da massa
	return items[len(items)-1], nil
}
