package ofx

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/expensesbot/internal/common"
)

const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>EUR
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-125.00
<FITID>2024012001
<NAME>Whole Foods Market
</STMTTRN>
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>-500.00
<FITID>2024012501
<CHECKNUM>1234
<NAME>CHECK #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240128120000[0:GMT]
<TRNAMT>1500.00
<FITID>2024012801
<NAME>PAYROLL ACME
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-45.99
<FITID>CC2024011001
<NAME>AMAZON.COM*RT4Y7HG2
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-15.00
<FITID>CC2024011501
<NAME>NETFLIX.COM
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParse(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{name: "valid bank statement", ofxData: sampleBankOFX, expectedCount: 4},
		{name: "valid credit card statement", ofxData: sampleCreditCardOFX, expectedCount: 2},
		{name: "leading blank lines", ofxData: "\n\n  " + sampleCreditCardOFX, expectedCount: 2},
		{name: "invalid OFX data", ofxData: "not valid OFX", expectedError: true},
		{name: "empty OFX", ofxData: "", expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := NewParser(nil).Parse(context.Background(), strings.NewReader(tt.ofxData))

			if tt.expectedError {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Len(t, entries, tt.expectedCount)
		})
	}
}

func TestParseBankTransactions(t *testing.T) {
	entries, err := NewParser(nil).Parse(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, entries, 4)

	first := entries[0]
	assert.Equal(t, "2024011501", first.FITID)
	assert.Equal(t, "STARBUCKS STORE #1234", first.Merchant)
	assert.Equal(t, int64(-2550), first.Amount)
	assert.Equal(t, "1234567890", first.AccountID)
	assert.Equal(t, "EUR", first.Currency)
	assert.Equal(t, "DEBIT", first.Type)
	assert.True(t, first.IsDebit())
	assert.Equal(t, 2024, first.Date.Year())
	assert.Equal(t, time.January, first.Date.Month())
	assert.Equal(t, 15, first.Date.Day())

	assert.Equal(t, int64(-12500), entries[1].Amount)
	assert.Equal(t, "CHECK", entries[2].Type)

	credit := entries[3]
	assert.Equal(t, int64(150000), credit.Amount)
	assert.False(t, credit.IsDebit())
}

func TestParseCreditCardTransactions(t *testing.T) {
	entries, err := NewParser(nil).Parse(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "CC2024011001", entries[0].FITID)
	assert.Equal(t, "AMAZON.COM*RT4Y7HG2", entries[0].Merchant)
	assert.Equal(t, int64(-4599), entries[0].Amount)
	assert.Equal(t, "4111111111111111", entries[0].AccountID)
	assert.Equal(t, "USD", entries[0].Currency)

	assert.Equal(t, "NETFLIX.COM", entries[1].Merchant)
	assert.Equal(t, int64(-1500), entries[1].Amount)
}

func TestExtractMerchantName(t *testing.T) {
	tests := []struct {
		name     string
		tx       ofxgo.Transaction
		expected string
	}{
		{name: "remove POS prefix", tx: ofxgo.Transaction{Name: "POS PURCHASE STARBUCKS"}, expected: "STARBUCKS"},
		{name: "remove DEBIT CARD prefix", tx: ofxgo.Transaction{Name: "DEBIT CARD PURCHASE WHOLE FOODS"}, expected: "WHOLE FOODS"},
		{name: "remove date stamp", tx: ofxgo.Transaction{Name: "03/14 CONTINENTE LISBOA"}, expected: "CONTINENTE LISBOA"},
		{name: "keep clean name", tx: ofxgo.Transaction{Name: "NETFLIX.COM"}, expected: "NETFLIX.COM"},
		{name: "trim whitespace", tx: ofxgo.Transaction{Name: "  AMAZON.COM  "}, expected: "AMAZON.COM"},
		{name: "generic name uses memo", tx: ofxgo.Transaction{Name: "PAYMENT", Memo: "Lidl Porto"}, expected: "Lidl Porto"},
		{name: "payee wins", tx: ofxgo.Transaction{Name: "X", Payee: &ofxgo.Payee{Name: "Pingo Doce"}}, expected: "Pingo Doce"},
		{name: "empty", tx: ofxgo.Transaction{}, expected: "Bank transaction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractMerchantName(tt.tx))
		})
	}
}

func TestPreprocessOFX(t *testing.T) {
	in := "\n  <OFX>\n<SEVERITY>Info</SEVERITY>\n<BANKACCTFROM\n"
	assert.Equal(t, "<OFX>\n<SEVERITY>INFO</SEVERITY>\n<BANKACCTFROM>\n", preprocessOFX(in))
}

func TestAccounts(t *testing.T) {
	p := NewParser(nil)

	accounts, err := p.Accounts(strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	assert.Equal(t, []string{"1234567890"}, accounts)

	accounts, err = p.Accounts(strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	assert.Equal(t, []string{"4111111111111111"}, accounts)
}
