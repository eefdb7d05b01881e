package presentation

import (
	"fmt"
	"strings"

	"marketsim/internal/domain"
)

// ANSI color codes
const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiDim      = "\033[2m"
	ansiClearEOL = "\033[K"
)

// Colorize applies ANSI color to a string
func Colorize(s, color string) string {
	return color + s + ansiReset
}

// Renderer turns a feed snapshot plus account state into a terminal line.
type Renderer struct{}

// NewRenderer creates a new Renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderLine renders one ticker line: each instrument's price and day change
// colored by direction, followed by the account's buying power and open
// position count.
func (r *Renderer) RenderLine(symbols []string, snap domain.FeedSnapshot, acct domain.Account, live bool) string {
	var sb strings.Builder

	if live {
		sb.WriteString("\r")
	}

	sb.WriteString(Colorize("[MARKETSIM] ", ansiDim))

	for i, sym := range symbols {
		in, ok := snap.Instruments[sym]
		if !ok {
			continue
		}
		if i > 0 {
			sb.WriteString(Colorize(" || ", ansiDim))
		}

		change := in.DayChangePercent()
		col := ansiYellow
		arrow := "="
		switch {
		case change > 0:
			col = ansiGreen
			arrow = "▲"
		case change < 0:
			col = ansiRed
			arrow = "▼"
		}

		sb.WriteString(fmt.Sprintf("%s %s", sym, Colorize(fmt.Sprintf("%.2f", in.CurrentPrice), col)))
		sb.WriteString(Colorize(fmt.Sprintf(" %s%+.2f%%", arrow, change), col))
	}

	sb.WriteString(Colorize("  |  ", ansiDim))
	sb.WriteString(fmt.Sprintf("bal %s", Colorize(fmt.Sprintf("%.2f", acct.Balance), ansiYellow)))
	sb.WriteString(Colorize(fmt.Sprintf(" pos %d", len(acct.Positions)), ansiDim))

	if live {
		sb.WriteString(ansiClearEOL)
	}
	return sb.String()
}

// RenderPositions renders the open position strip with unrealized gain per
// lot, computed from entry vs. current price at display time.
func (r *Renderer) RenderPositions(snap domain.FeedSnapshot, acct domain.Account) string {
	if len(acct.Positions) == 0 {
		return Colorize("no positions open", ansiDim)
	}

	var sb strings.Builder
	for i, pos := range acct.Positions {
		if i > 0 {
			sb.WriteString(Colorize("  ", ansiDim))
		}
		price, ok := snap.Price(pos.Symbol)
		if !ok {
			price = pos.EntryPrice
		}
		gain := price - pos.EntryPrice
		col := ansiGreen
		if gain < 0 {
			col = ansiRed
		}
		pct := 0.0
		if pos.EntryPrice != 0 {
			pct = gain / pos.EntryPrice * 100
		}
		sb.WriteString(fmt.Sprintf("%s %s", pos.Symbol, Colorize(fmt.Sprintf("%+.1f (%+.1f%%)", gain, pct), col)))
	}
	return sb.String()
}
