package alerts

import (
	"fmt"
	"strings"

	"bn-strike-bot/internal/signal"

	"github.com/shopspring/decimal"
)

type Kind int

const (
	KindStart Kind = iota
	KindStrike
	KindApeIn
)

func (k Kind) String() string {
	switch k {
	case KindStrike:
		return "strike"
	case KindApeIn:
		return "ape_in"
	default:
		return "start"
	}
}

// Message is one rendered notification. HTML uses the Telegram subset of tags.
type Message struct {
	Kind    Kind
	Subject string
	Text    string
	HTML    string
}

func StartMessage(user string) Message {
	text := fmt.Sprintf("Hello %s. Notification service is starting...", user)
	return Message{Kind: KindStart, Subject: "BINANCE NOTIFICATION SERVICE STARTING", Text: text, HTML: text}
}

func StrikeMessage(user string, a signal.StrikeAlert) Message {
	symbol := strings.ToUpper(a.Symbol)
	pct := a.UnitPercent.Mul(decimal.NewFromInt(int64(a.Count))).Mul(decimal.NewFromInt(100)).Floor()
	price := a.Price.String()
	return Message{
		Kind:    KindStrike,
		Subject: "BINANCE STRIKE NOTIFICATION - " + symbol,
		Text: fmt.Sprintf("%s, Checkout this trading pair => %s currently at price %s %s. It could be PUMPING!!! Strike count => %d. Percentage increase => %s%%",
			user, symbol, price, a.Quote, a.Count, pct.String()),
		HTML: fmt.Sprintf("%s, Checkout this trading pair => <b>%s</b> currently at price <b>%s %s</b>. It could be PUMPING!!! Strike count => %d. Percentage increase => %s%%",
			user, symbol, price, a.Quote, a.Count, pct.String()),
	}
}

func ApeInMessage(user string, a signal.ApeInAlert) Message {
	symbol := strings.ToUpper(a.Symbol)
	pct := a.Percent.String()
	return Message{
		Kind:    KindApeIn,
		Subject: "BINANCE APE-IN NOTIFICATION - " + symbol,
		Text:    fmt.Sprintf("Hello %s, Checkout %s currently with percentage change: %s%% in the last 24hrs", user, symbol, pct),
		HTML:    fmt.Sprintf("&#128161; BINANCE\n\nHello %s\nCheckout <b>%s</b> currently with percentage change: <b>%s%%</b> in the last 24hrs", user, symbol, pct),
	}
}
