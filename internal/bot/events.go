package bot

// Text is an inbound text message.
type Text struct {
	UserID string
	Text   string
}

// Photo is an inbound image. FileID is the transport's handle for it.
type Photo struct {
	UserID string
	FileID string
	Image  []byte
}

// Callback is a menu button press.
type Callback struct {
	UserID string
	Data   string
}

// Document is a file attached to a reply.
type Document struct {
	Name string
	Data []byte
}

// Button is one inline action. Data is delivered back as a Callback.
type Button struct {
	Label string
	Data  string
}

// Reply is what the router sends back. Menu asks the transport to show the
// main menu; Buttons, when set, replace it with a sub-menu.
type Reply struct {
	Document *Document
	Text     string
	Buttons  [][]Button
	Menu     bool
}

// Callback data.
const (
	ActionStats         = "stats"
	ActionBudget        = "budget"
	ActionBudgetList    = "budget_list"
	ActionBudgetSet     = "budget_set"
	ActionBudgetDelete  = "budget_delete"
	ActionRecurring     = "recurring"
	ActionRecurringList = "recurring_list"
	ActionRecurringAdd  = "recurring_add"
	ActionExport        = "export"
	ActionExportCSV     = "export_csv"
	ActionExportPDF     = "export_pdf"
	ActionExportJSON    = "export_json"
	ActionAI            = "ai"
	ActionAIQuery       = "ai_query"
	ActionTimezone      = "timezone"
	ActionTZTime        = "tz_time"
	ActionTZCity        = "tz_city"
	ActionTZOffset      = "tz_offset"
	ActionReceipt       = "receipt"
	ActionReceiptUpload = "receipt_upload"
	ActionBack          = "back_main"
)

// MainMenu is the top-level keyboard.
var MainMenu = [][]Button{
	{{Label: "📊 Stats", Data: ActionStats}, {Label: "💰 Budget", Data: ActionBudget}},
	{{Label: "🔄 Recurring", Data: ActionRecurring}, {Label: "📤 Export", Data: ActionExport}},
	{{Label: "📸 Receipt", Data: ActionReceiptUpload}, {Label: "🤖 Ask AI", Data: ActionAIQuery}},
	{{Label: "🌍 Timezone", Data: ActionTimezone}},
}

var (
	budgetMenu = [][]Button{
		{{Label: "📋 View Budgets", Data: ActionBudgetList}},
		{{Label: "➕ Set Budget", Data: ActionBudgetSet}, {Label: "🗑 Delete Budget", Data: ActionBudgetDelete}},
		{{Label: "« Back", Data: ActionBack}},
	}
	recurringMenu = [][]Button{
		{{Label: "📋 View Recurring", Data: ActionRecurringList}},
		{{Label: "➕ Add Recurring", Data: ActionRecurringAdd}},
		{{Label: "« Back", Data: ActionBack}},
	}
	exportMenu = [][]Button{
		{{Label: "📄 CSV", Data: ActionExportCSV}, {Label: "📑 PDF", Data: ActionExportPDF}, {Label: "🧾 JSON", Data: ActionExportJSON}},
		{{Label: "« Back", Data: ActionBack}},
	}
	timezoneMenu = [][]Button{
		{{Label: "🕐 Enter Current Time", Data: ActionTZTime}},
		{{Label: "🏙 Enter City", Data: ActionTZCity}},
		{{Label: "± Enter UTC Offset", Data: ActionTZOffset}},
		{{Label: "« Back", Data: ActionBack}},
	}
)
