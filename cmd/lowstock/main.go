package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"tirehub/internal/app"
	"tirehub/internal/domain"
	"tirehub/internal/logger"
	"tirehub/internal/stockmonitor"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFA500"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
)

func main() {
	configPath := flag.String("config", "config.json", "path to configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) (err error) {
	a, err := app.New(ctx, configPath)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()

	monitor, err := a.Monitor(ctx)
	if err != nil {
		return err
	}

	report, err := monitor.Run(ctx)
	if report != nil {
		render(report)
	}
	if errors.Is(err, domain.ErrNoAdmins) {
		logger.Error(ctx, "low stock found but no admin users exist")
		return err
	}
	if err != nil {
		return fmt.Errorf("low stock check failed: %w", err)
	}
	return nil
}

func render(report *stockmonitor.Report) {
	if len(report.Parts) == 0 {
		fmt.Println(okStyle.Render("No low stock parts."))
		return
	}

	rows := make([][]string, 0, len(report.Parts))
	for _, p := range report.Parts {
		rows = append(rows, []string{
			p.Name,
			p.SKU,
			strconv.Itoa(p.StockQuantity),
			strconv.Itoa(p.MinStockLevel),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(
			headerStyle.Render("Part"),
			headerStyle.Render("SKU"),
			headerStyle.Render("On hand"),
			headerStyle.Render("Minimum"),
		).
		Rows(rows...)

	fmt.Println(titleStyle.Render(fmt.Sprintf("%d part(s) at or below minimum stock", len(report.Parts))))
	fmt.Println(t.Render())
	if report.Notified {
		fmt.Printf("Alert sent to %d admin(s).\n", report.Recipients)
	}
}
