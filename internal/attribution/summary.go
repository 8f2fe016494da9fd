package attribution

// ChannelTotal aggregates classified transactions for one channel.
type ChannelTotal struct {
	Channel            Channel `json:"channel"`
	Count              int64   `json:"count"`
	Revenue            float64 `json:"revenue"`
	DeterministicCount int64   `json:"deterministic_count"`
}

// Summary is the channel breakdown shown on the attribution dashboard.
type Summary struct {
	Channels          []ChannelTotal `json:"channels"`
	TotalCount        int64          `json:"total_count"`
	TotalRevenue      float64        `json:"total_revenue"`
	DeterministicRate float64        `json:"deterministic_rate"`
	AttributedRate    float64        `json:"attributed_rate"`
}

// Summarize folds per-channel totals into a Summary. Output channels follow
// Channels order and every channel is present. Rows for unknown channels
// are counted as unattributed.
func Summarize(rows []ChannelTotal) Summary {
	byChannel := make(map[Channel]*ChannelTotal, len(Channels))
	out := Summary{Channels: make([]ChannelTotal, len(Channels))}
	for i, ch := range Channels {
		out.Channels[i].Channel = ch
		byChannel[ch] = &out.Channels[i]
	}

	var deterministic, attributed int64
	for _, r := range rows {
		ch := r.Channel
		if !ch.Valid() {
			ch = ChannelUnattributed
		}
		t := byChannel[ch]
		t.Count += r.Count
		t.Revenue += r.Revenue
		t.DeterministicCount += r.DeterministicCount

		out.TotalCount += r.Count
		out.TotalRevenue += r.Revenue
		deterministic += r.DeterministicCount
		if ch != ChannelUnattributed {
			attributed += r.Count
		}
	}

	if out.TotalCount > 0 {
		out.DeterministicRate = float64(deterministic) / float64(out.TotalCount)
		out.AttributedRate = float64(attributed) / float64(out.TotalCount)
	}
	return out
}

// Tally accumulates results in memory. The zero value is ready to use.
// Not safe for concurrent use.
type Tally struct {
	totals map[Channel]*ChannelTotal
}

// Add records one classified transaction.
func (t *Tally) Add(r Result, amount float64) {
	if t.totals == nil {
		t.totals = make(map[Channel]*ChannelTotal, len(Channels))
	}
	ct, ok := t.totals[r.Channel]
	if !ok {
		ct = &ChannelTotal{Channel: r.Channel}
		t.totals[r.Channel] = ct
	}
	ct.Count++
	ct.Revenue += amount
	if r.ConfidenceLevel == LevelDeterministic {
		ct.DeterministicCount++
	}
}

// Totals returns the non-empty channel totals in Channels order.
func (t *Tally) Totals() []ChannelTotal {
	var out []ChannelTotal
	for _, ch := range Channels {
		if ct, ok := t.totals[ch]; ok {
			out = append(out, *ct)
		}
	}
	return out
}

// Summary is shorthand for Summarize(t.Totals()).
func (t *Tally) Summary() Summary {
	return Summarize(t.Totals())
}
