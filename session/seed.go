package session

import "github.com/warp/pointflow/ledger"

// DemoWallet is the address the demo client connects with.
const DemoWallet = "DexKyxUPRjaMf8DdXEPxv7kJQCp5kvZafPgiErQN1s7Z"

// DefaultInitialBalance is the opening balance of a demo session.
const DefaultInitialBalance = 1250

// DemoHistory returns the ten transactions every demo session starts
// with, newest first.
func DemoHistory() []ledger.Transaction {
	return []ledger.Transaction{
		{ID: "1", Date: ledger.MustParseDate("2025-05-07"), Merchant: "Coffee Shop", Amount: 50, Type: ledger.TxEarn},
		{ID: "2", Date: ledger.MustParseDate("2025-05-06"), Merchant: "Book Store", Amount: 120, Type: ledger.TxEarn},
		{ID: "3", Date: ledger.MustParseDate("2025-05-05"), Merchant: "Electronics Store", Amount: 200, Type: ledger.TxSpend},
		{ID: "4", Date: ledger.MustParseDate("2025-05-04"), Merchant: "Restaurant", Amount: 75, Type: ledger.TxEarn},
		{ID: "5", Date: ledger.MustParseDate("2025-05-03"), Merchant: "Online Store", Amount: 150, Type: ledger.TxSpend},
		{ID: "6", Date: ledger.MustParseDate("2025-05-02"), Merchant: "Grocery Store", Amount: 30, Type: ledger.TxEarn},
		{ID: "7", Date: ledger.MustParseDate("2025-05-01"), Merchant: "Gas Station", Amount: 45, Type: ledger.TxEarn},
		{ID: "8", Date: ledger.MustParseDate("2025-04-30"), Merchant: "Department Store", Amount: 180, Type: ledger.TxSpend},
		{ID: "9", Date: ledger.MustParseDate("2025-04-29"), Merchant: "Coffee Shop", Amount: 25, Type: ledger.TxEarn},
		{ID: "10", Date: ledger.MustParseDate("2025-04-28"), Merchant: "Electronics Store", Amount: 300, Type: ledger.TxSpend},
	}
}
