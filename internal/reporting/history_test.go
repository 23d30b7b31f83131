package reporting

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"capital-allocator/internal/domain"
)

func TestRenderHistory(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	janEnd := feb.AddDate(0, 0, -1)

	first := &domain.ConfigVersion{ID: "v1", StartDate: jan, EndDate: &janEnd, CreatedBy: "seed", Notes: "bootstrap", Params: domain.DefaultParameters()}
	second := &domain.ConfigVersion{ID: "v2", StartDate: feb, CreatedBy: "tuner", Params: domain.DefaultParameters()}
	second.Params.Decision.SellPercentage = 0.65

	signals := []*domain.DailySignal{
		{TradeDate: feb, Action: domain.ActionBuy},
		{TradeDate: feb.AddDate(0, 0, 1), Action: domain.ActionSell, CircuitBreakerActive: true},
		{TradeDate: feb.AddDate(0, 0, 2), Action: domain.ActionBuy},
	}

	out := RenderHistory([]*domain.ConfigVersion{first, second}, signals)

	assert.Contains(t, out, "| v2 | 2024-02-01 | open | tuner | - |")
	assert.Contains(t, out, "| v1 | 2024-01-01 | 2024-01-31 | seed | bootstrap |")
	assert.Less(t, strings.Index(out, "| v2 |"), strings.Index(out, "| v1 |"))
	assert.Contains(t, out, "## 2024-02-01 (from v2)")
	assert.Contains(t, out, "| decision.sell_percentage | 0.7 | 0.65 |")
	assert.Contains(t, out, "| BUY | 2 |")
	assert.Contains(t, out, "| SELL | 1 |")
	assert.Contains(t, out, "| Circuit breaker days | 1 |")
}

func TestRenderHistory_Empty(t *testing.T) {
	out := RenderHistory(nil, nil)
	assert.Contains(t, out, "No configuration versions.")
	assert.Contains(t, out, "No signals in range.")
}
