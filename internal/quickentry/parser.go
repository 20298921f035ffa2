package quickentry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/llm"
	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/money"
	"github.com/Veraticus/expensesbot/internal/service"
)

const (
	remoteTimeout   = 8 * time.Second
	remoteMaxTokens = 200
)

// Parser extracts expenses from quick-entry text, preferring the remote
// service whenever it is configured.
type Parser struct {
	gateway      service.TextGateway
	logger       *slog.Logger
	homeCurrency string
}

// NewParser creates a parser. homeCurrency is used when neither the text
// nor the caller names one.
func NewParser(gateway service.TextGateway, homeCurrency string, logger *slog.Logger) *Parser {
	if homeCurrency == "" {
		homeCurrency = "EUR"
	}
	return &Parser{
		gateway:      gateway,
		homeCurrency: strings.ToUpper(homeCurrency),
		logger:       common.OrDefault(logger),
	}
}

// HomeCurrency returns the currency assumed when none is given.
func (p *Parser) HomeCurrency() string {
	return p.homeCurrency
}

// Parse returns the expense described by raw, or false when raw is not a
// quick entry. homeCurrency is the user's currency; empty means the
// parser's own. It never fails.
func (p *Parser) Parse(ctx context.Context, raw, homeCurrency string) (model.ParsedEntry, bool) {
	if !strings.ContainsFunc(raw, unicode.IsDigit) {
		return model.ParsedEntry{}, false
	}
	home := p.homeCurrency
	if code, ok := money.NormalizeCurrency(homeCurrency); ok {
		home = code
	}

	if p.gateway != nil && p.gateway.Configured() {
		entry, err := p.remote(ctx, raw, home)
		if err == nil {
			return entry, true
		}
		p.logger.Debug("remote quick entry failed, using extractor", "error", err)
	}

	return Extract(raw, home)
}

type remoteEntry struct {
	Amount   *decimal.Decimal `json:"amount"`
	Currency string           `json:"currency"`
	Item     string           `json:"item"`
}

func (p *Parser) remote(ctx context.Context, raw, home string) (model.ParsedEntry, error) {
	reply, err := p.gateway.Classify(ctx, llm.Request{
		SystemPrompt: "You extract expenses from short messages. Reply with JSON only.",
		Prompt:       buildPrompt(raw, home),
		Temperature:  0,
		MaxTokens:    remoteMaxTokens,
	}, remoteTimeout)
	if err != nil {
		return model.ParsedEntry{}, err
	}

	var parsed remoteEntry
	if err := llm.DecodeJSON(reply, &parsed); err != nil {
		return model.ParsedEntry{}, err
	}
	return validate(parsed, home)
}

func validate(parsed remoteEntry, home string) (model.ParsedEntry, error) {
	if parsed.Amount == nil {
		return model.ParsedEntry{}, fmt.Errorf("%w: missing amount", common.ErrRemote)
	}
	amount := parsed.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if amount <= 0 || amount > money.MaxAmount {
		return model.ParsedEntry{}, fmt.Errorf("%w: amount %s out of range", common.ErrRemote, parsed.Amount)
	}

	item := strings.TrimSpace(parsed.Item)
	if item == "" {
		return model.ParsedEntry{}, fmt.Errorf("%w: missing item", common.ErrRemote)
	}

	currency := home
	if strings.TrimSpace(parsed.Currency) != "" {
		code, ok := money.NormalizeCurrency(parsed.Currency)
		if !ok {
			return model.ParsedEntry{}, fmt.Errorf("%w: invalid currency %q", common.ErrRemote, parsed.Currency)
		}
		currency = code
	}

	return model.ParsedEntry{
		AmountMinorUnits: amount,
		Currency:         currency,
		Description:      item,
	}, nil
}

func buildPrompt(raw, home string) string {
	return fmt.Sprintf(`Extract the expense from this message: %q

Rules:
- "amount" is the price as a number with a dot as decimal separator
- "currency" is the 3-letter ISO code; use %s when the message names none
- "item" is what was bought, without the amount or currency
- if the message is not an expense, reply {"amount": 0, "currency": "%s", "item": ""}

Reply ONLY with JSON: {"amount": 12.5, "currency": "%s", "item": "item name"}`,
		raw, home, home, home)
}
