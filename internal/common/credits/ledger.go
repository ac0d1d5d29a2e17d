// Package credits implements the per-account generation credit ledger on
// Redis.
package credits

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/common/metrics"
	"crm-ai-workers/internal/generation"
)

// consumeScript decrements the balance only when it covers the cost.
// Reply: {status, balance} where status is 1 consumed, 0 insufficient,
// -1 no balance key.
var consumeScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
	return {-1, 0}
end
local balance = tonumber(raw)
local cost = tonumber(ARGV[1])
if balance < cost then
	return {0, balance}
end
return {1, redis.call('DECRBY', KEYS[1], cost)}
`)

const (
	statusConsumed     = 1
	statusInsufficient = 0
	statusNoAccount    = -1
)

// Ledger consumes credits atomically from "<prefix><accountID>".
type Ledger struct {
	client redis.Scripter
	prefix string
	logger logger.Logger
}

var _ generation.Ledger = (*Ledger)(nil)

func NewLedger(client redis.Scripter, prefix string, log logger.Logger) *Ledger {
	if prefix == "" {
		prefix = "credits:"
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Ledger{client: client, prefix: prefix, logger: log}
}

func (l *Ledger) key(accountID string) string {
	return l.prefix + accountID
}

// Consume takes cost credits from the account. A denial is a result, not an
// error; errors mean the ledger could not be consulted.
func (l *Ledger) Consume(ctx context.Context, accountID string, cost int) (generation.LedgerResult, error) {
	if cost <= 0 {
		return generation.LedgerResult{Success: true}, nil
	}
	if accountID == "" {
		return generation.LedgerResult{Message: "No account was given for this AI request."}, nil
	}

	vals, err := consumeScript.Run(ctx, l.client, []string{l.key(accountID)}, cost).Int64Slice()
	if err != nil {
		return generation.LedgerResult{}, fmt.Errorf("credits: consume for %s: %w", accountID, err)
	}
	if len(vals) != 2 {
		return generation.LedgerResult{}, fmt.Errorf("credits: unexpected script reply %v", vals)
	}

	status, balance := vals[0], int(vals[1])
	fields := map[string]interface{}{
		"accountId": accountID,
		"cost":      cost,
		"balance":   balance,
	}

	switch status {
	case statusConsumed:
		l.logger.Debug("credits consumed", fields)
		return generation.LedgerResult{Success: true, Remaining: balance}, nil
	case statusInsufficient:
		l.logger.Info("credits insufficient", fields)
		metrics.QuotaDenials.WithLabelValues("insufficient").Inc()
		return generation.LedgerResult{
			Message:   fmt.Sprintf("This request needs %d AI credits but only %d remain.", cost, balance),
			Remaining: balance,
		}, nil
	case statusNoAccount:
		l.logger.Info("no credit balance for account", fields)
		metrics.QuotaDenials.WithLabelValues("no_account").Inc()
		return generation.LedgerResult{Message: "No AI credits have been allocated to this account."}, nil
	default:
		return generation.LedgerResult{}, fmt.Errorf("credits: unknown script status %d", status)
	}
}
