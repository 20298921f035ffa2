package tui

import "github.com/Veraticus/expensesbot/internal/bot"

// replyMsg carries the router's answer back to the model.
type replyMsg struct {
	saveErr error
	saved   string // path of the written document, if any
	reply   bot.Reply
}

// errorMsg reports a failure that happened before the router was reached.
type errorMsg struct {
	err error
}
