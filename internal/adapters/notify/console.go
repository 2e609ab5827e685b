package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/scalpbot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// TradeEvent imprime una línea por acción del engine.
func (c *Console) TradeEvent(_ context.Context, ev domain.TradeEvent) error {
	at := ev.At.Format("15:04:05")
	icon := actionIcon(ev.Action)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s %-12s %s %s", at, icon, ev.Action, compactSlug(ev.MarketSlug, 30), ev.Direction)
	if ev.Price > 0 {
		fmt.Fprintf(&sb, " @%.3f", ev.Price)
	}
	if ev.Size > 0 {
		fmt.Fprintf(&sb, " x%.1f ($%.2f)", ev.Size, ev.Price*ev.Size)
	}
	if ev.Reason != "" {
		fmt.Fprintf(&sb, " [%s]", ev.Reason)
	}

	fmt.Fprintln(c.out, sb.String())
	return nil
}

// RoundSettled imprime el cierre de la ronda, con tabla si está activada.
func (c *Console) RoundSettled(_ context.Context, s domain.RoundSettlement) error {
	if !c.table {
		fmt.Fprintf(c.out, "[%s] ■ settled      %s trades:%d spent:$%.2f pnl:$%+.2f\n",
			s.SettledAt.Format("15:04:05"), compactSlug(s.MarketSlug, 30),
			s.Trades, s.SpentUSDC, s.RealizedPnL)
		return nil
	}

	fmt.Fprintf(c.out, "\n[%s] round settled — %s\n", s.SettledAt.Format("15:04:05"), s.MarketSlug)

	table := tablewriter.NewWriter(c.out)
	table.Header("Instrument", "To beat", "Final", "Trades", "Spent", "PnL")
	table.Append(
		s.Instrument,
		fmt.Sprintf("%.2f", s.PriceToBeat),
		fmt.Sprintf("%.2f", s.FinalPrice),
		fmt.Sprintf("%d", s.Trades),
		fmt.Sprintf("$%.2f", s.SpentUSDC),
		fmt.Sprintf("$%+.2f", s.RealizedPnL),
	)
	table.Render()
	return nil
}

// PrintSettlementReport imprime la tabla histórica de cierres (modo -report).
func (c *Console) PrintSettlementReport(settlements []domain.RoundSettlement, from, to time.Time) {
	fmt.Fprintf(c.out, "\nsettlements %s → %s (%d rounds)\n",
		from.Format("2006-01-02"), to.Format("2006-01-02"), len(settlements))

	if len(settlements) == 0 {
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Settled", "Market", "Instrument", "Trades", "Spent", "PnL")

	var totalSpent, totalPnL float64
	for _, s := range settlements {
		table.Append(
			s.SettledAt.Format("01-02 15:04"),
			compactSlug(s.MarketSlug, 34),
			s.Instrument,
			fmt.Sprintf("%d", s.Trades),
			fmt.Sprintf("$%.2f", s.SpentUSDC),
			fmt.Sprintf("$%+.2f", s.RealizedPnL),
		)
		totalSpent += s.SpentUSDC
		totalPnL += s.RealizedPnL
	}
	table.Render()

	fmt.Fprintf(c.out, "total spent: $%.2f — realized pnl: $%+.2f\n", totalSpent, totalPnL)
}

func actionIcon(a domain.TradeAction) string {
	switch a {
	case domain.ActionEntry:
		return "→"
	case domain.ActionFill:
		return "●"
	case domain.ActionExit:
		return "✓"
	case domain.ActionCancel:
		return "✗"
	case domain.ActionForcedClear:
		return "⚠"
	default:
		return "·"
	}
}

// compactSlug recorta el slug para que la línea no se desborde.
func compactSlug(slug string, max int) string {
	if len(slug) <= max {
		return slug
	}
	return slug[:max-1] + "…"
}
