package bot

// User-facing texts. Every failure tells the user what to do next.
const (
	msgWelcome = "Welcome to ExpensesBot! 👋\n\n" +
		"I help you track spending:\n" +
		"- Type \"20 coffee\" to add an expense\n" +
		"- Send a receipt photo from the 📸 Receipt menu\n" +
		"- Ask \"how much did I spend on food?\"\n\n" +
		"Use the menu below to manage budgets, recurring bills and exports."
	msgSuggestTimezone = "\n\n🌍 Tip: set your timezone with /timezone so dates match your day."
	msgHelp            = "Commands:\n" +
		"/stats - monthly report\n" +
		"/budget - manage budgets\n" +
		"/recurring - recurring expenses\n" +
		"/export [csv|pdf|json] - download your expenses\n" +
		"/receipt - scan a receipt photo\n" +
		"/ai - ask about your spending (/ai forget clears the memory)\n" +
		"/timezone - set your timezone\n" +
		"/cancel - abandon the current step\n\n" +
		"Or just type an amount and description, e.g. \"15.50 lunch\"."
	msgUsage          = "Send a receipt photo, type \"20 coffee\" for quick entry, or ask about your spending."
	msgUnknownCommand = "Unknown command. Use /help to see what I can do."
	msgUnknownAction  = "That button has expired. Use /start to open the menu again."
	msgCancelled      = "Cancelled. What would you like to do next?"
	msgNothingPending = "Nothing to cancel. Use /help to see what I can do."
	msgMainMenu       = "What would you like to do?"

	msgBudgetCategory       = "Enter category name (e.g., groceries, transportation):"
	msgBudgetDeleteCategory = "Enter the category whose budget you want to remove:"
	msgBudgetAmount         = "Enter monthly limit for %s (e.g., 500):"
	msgBudgetSet            = "✓ Budget set: %s - %s/month"
	msgBudgetDeleted        = "✓ Budget for %s removed."
	msgBudgetMissing        = "No budget is set for %s. Use /budget to set one."
	msgBudgetNone           = "No budgets set yet. Tap ➕ Set Budget to create one."
	msgUnknownCategory      = "Unknown category. Choose one of: %s"

	msgRecurringName      = "Enter recurring expense name (e.g., netflix):"
	msgRecurringAmount    = "Enter amount for \"%s\" (e.g., 10.99):"
	msgRecurringFrequency = "Enter frequency (daily/weekly/biweekly/monthly/quarterly/annual):"
	msgRecurringAdded     = "✓ Recurring expense added: %s - %s (%s)\nNext due: %s"
	msgRecurringNone      = "No recurring expenses yet. Tap ➕ Add Recurring to create one."

	msgTimezoneTime   = "Enter your current time (e.g., 14:30) and I'll work out your timezone:"
	msgTimezoneCity   = "Enter city name (e.g., Tokyo, London, New York):"
	msgTimezoneOffset = "Enter UTC offset (e.g., +5, -8):"
	msgTimezoneSet    = "✓ Timezone set to %s (%s)"
	msgTimezoneBad    = "Couldn't work out a timezone from that. Try again, or use /cancel."
	msgTimezoneNoCity = "City not found. Try one of: %s"

	msgAIPrompt = "🤖 Ask Me Anything\n\nAsk a question about your spending, e.g. \"How much did I spend on groceries this month?\""

	msgReceiptPrompt    = "📸 Send a photo of your receipt."
	msgReceiptWaiting   = "I'm waiting for a receipt photo. Send one, or use /cancel."
	msgReceiptUnasked   = "To scan a receipt, open the menu and tap 📸 Receipt first, then send the photo."
	msgReceiptOCRFailed = "Couldn't read that photo. Try a sharper picture, or type the amount instead (e.g. \"20 coffee\")."
	msgReceiptNoText    = "No text found on that photo. Try a clearer, well-lit picture of the receipt."
	msgReceiptNoItems   = "Couldn't find any items on that receipt. Try a clearer photo, or type the amount instead."
	msgReceiptLowConf   = "\n⚠️ Low confidence read. Please check the amounts."

	msgSaveFailed   = "Couldn't save that right now. Please try again in a moment."
	msgLoadFailed   = "Couldn't load your data right now. Please try again in a moment."
	msgExportFailed = "Couldn't generate the export. Please try again, or choose another format."
)
