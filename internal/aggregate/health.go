package aggregate

// FullHealth is every participant's health at round start.
const FullHealth = 100

// HealthLedger tracks current health per account within a round.
type HealthLedger struct {
	hp map[uint64]int
}

// NewHealthLedger returns an empty ledger.
func NewHealthLedger() *HealthLedger {
	return &HealthLedger{hp: make(map[uint64]int)}
}

// Reset sets every listed account to full health and forgets the rest.
func (h *HealthLedger) Reset(ids []uint64) {
	clear(h.hp)
	for _, id := range ids {
		h.hp[id] = FullHealth
	}
}

// Health returns the stored health. Accounts not seen since the last reset
// are at full health.
func (h *HealthLedger) Health(id uint64) int {
	hp, ok := h.hp[id]
	if !ok {
		return FullHealth
	}
	return hp
}

// Credit clamps raw damage to the victim's stored health, then stores the
// reported post-event health. It returns the credited amount.
func (h *HealthLedger) Credit(victim uint64, raw, post int) int {
	credited := min(h.Health(victim), raw)
	if credited < 0 {
		credited = 0
	}
	h.hp[victim] = max(post, 0)
	return credited
}
