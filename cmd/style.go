package main

import (
	"strconv"
	"time"

	"github.com/pterm/pterm"

	"github.com/luca-patrignani/chainplay/ledger"
	"github.com/luca-patrignani/chainplay/status"
)

// colorize paints s green or red depending on sentiment.
func colorize(s string, sentiment status.Sentiment) string {
	if sentiment == status.Positive {
		return pterm.LightGreen(s)
	}
	return pterm.LightRed(s)
}

// statusPanel renders the HUD line with the toast, if any, under it.
func statusPanel(toast *status.Toast, line status.Line) pterm.Panel {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	text := colorize(line.Message, line.Sentiment)
	if line.Message == "" {
		text = pterm.Gray("Web3 idle")
	}
	if toast != nil {
		text += "\n" + colorize(toast.Message, toast.Sentiment)
	}
	return pterm.Panel{Data: pbox.WithTitle(pterm.LightYellow("|WEB3|")).WithTitleTopCenter().Sprint(text)}
}

func renderStatus(toast *status.Toast, line status.Line) {
	pterm.DefaultPanel.WithPanels([][]pterm.Panel{{statusPanel(toast, line)}}).Render()
}

// journalRows lays the journal out as a table with a header row.
func journalRows(entries []ledger.Entry) pterm.TableData {
	rows := pterm.TableData{{"#", "time", "action", "round", "state", "message"}}
	for _, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(e.Index),
			time.Unix(e.Timestamp, 0).Format(time.TimeOnly),
			e.Record.Action,
			strconv.FormatUint(e.Record.Round, 10),
			e.Record.State,
			e.Record.Message,
		})
	}
	return rows
}

func renderJournal(entries []ledger.Entry) {
	if len(entries) == 0 {
		pterm.Info.Println("No actions recorded yet")
		return
	}
	pterm.DefaultTable.WithHasHeader().WithData(journalRows(entries)).Render()
}
