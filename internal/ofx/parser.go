// Package ofx imports OFX/QFX bank and credit card statements as expenses.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/money"
)

// Entry is one statement transaction. Amount is signed minor units;
// debits are negative.
type Entry struct {
	Date      time.Time
	FITID     string
	Merchant  string
	AccountID string
	Currency  string
	Type      string
	Amount    int64
}

// IsDebit reports whether the entry is money leaving the account.
func (e Entry) IsDebit() bool {
	return e.Amount < 0
}

// Parser implements OFX/QFX file parsing.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new OFX parser.
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: common.OrDefault(logger)}
}

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocessOFX fixes common formatting issues in bank exports.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case.
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML exports sometimes drop the closing bracket of a bare opening tag.
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

func parseResponse(reader io.Reader) (*ofxgo.Response, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse OFX file: %w", common.ErrValidation, err)
	}
	return resp, nil
}

// Parse returns every transaction of every bank and credit card statement
// in the file.
func (p *Parser) Parse(ctx context.Context, reader io.Reader) ([]Entry, error) {
	resp, err := parseResponse(reader)
	if err != nil {
		return nil, err
	}

	var (
		entries           []Entry
		bankStmts, ccStmts int
	)
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			entries = append(entries, p.convertList(stmt.BankTranList, string(stmt.BankAcctFrom.AcctID), stmt.CurDef.String())...)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			entries = append(entries, p.convertList(stmt.BankTranList, string(stmt.CCAcctFrom.AcctID), stmt.CurDef.String())...)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.logger.Info("Parsed OFX file",
		"total_transactions", len(entries),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)
	return entries, nil
}

func (p *Parser) convertList(list *ofxgo.TransactionList, accountID, currency string) []Entry {
	if list == nil {
		return nil
	}
	entries := make([]Entry, 0, len(list.Transactions))
	for _, tx := range list.Transactions {
		entry, err := convertTransaction(tx, accountID, currency)
		if err != nil {
			p.logger.Warn("Skipping unreadable transaction", "fitid", tx.FiTID, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func convertTransaction(tx ofxgo.Transaction, accountID, currency string) (Entry, error) {
	amount, err := money.ParseMinorUnits(tx.TrnAmt.FloatString(2))
	if err != nil {
		return Entry{}, err
	}
	if tx.Currency != nil && tx.Currency.CurSym.String() != "" {
		currency = tx.Currency.CurSym.String()
	}
	return Entry{
		FITID:     string(tx.FiTID),
		Date:      tx.DtPosted.Time,
		Merchant:  extractMerchantName(tx),
		Amount:    amount,
		AccountID: accountID,
		Currency:  currency,
		Type:      tx.TrnType.String(),
	}, nil
}

var merchantPrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
	"COMPRA ",
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	for _, prefix := range merchantPrefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// "MM/DD " date stamps.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}
	if name == "" {
		name = "Bank transaction"
	}
	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}

// Accounts returns the distinct account IDs in the file.
func (p *Parser) Accounts(reader io.Reader) ([]string, error) {
	resp, err := parseResponse(reader)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var accounts []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			accounts = append(accounts, id)
		}
	}
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			add(string(stmt.BankAcctFrom.AcctID))
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			add(string(stmt.CCAcctFrom.AcctID))
		}
	}
	return accounts, nil
}
