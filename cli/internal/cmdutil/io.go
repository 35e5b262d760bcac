package cmdutil

import (
	"context"
	"fmt"
	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/manifoldco/promptui"
	"os"
	"os/user"
	"strings"
	"time"
)

const DefaultTimeout = 30 * time.Second

var (
	loadingSpinner = spinner.New(spinner.CharSets[14], time.Millisecond*100)
)

func PrintE(message string) {
	println()
	color.Red(message)
}

func Print(message string) {
	_, _ = fmt.Fprintln(os.Stdout, message)
}

func PrintS(message string) {
	println()
	color.Green(message)
}

func StartLoading(message string) {
	loadingSpinner.Prefix = message + " "
	loadingSpinner.Start()
}

func StopLoading() {
	loadingSpinner.Stop()
}

func Context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), DefaultTimeout)
}

// ParseID parses the first positional argument as a uuid.
func ParseID(args []string, what string) (uuid.UUID, error) {
	if len(args) == 0 {
		return uuid.Nil, fmt.Errorf("missing %s id", what)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id: %s", what, args[0])
	}
	return id, nil
}

// Confirm asks a yes/no question. Any answer other than yes is a no.
func Confirm(label string) bool {
	p := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	result, err := p.Run()
	if err != nil {
		return false
	}
	switch strings.ToLower(result) {
	case "y", "yes":
		return true
	}
	return false
}

// RenderTable prints rows under header the way every list command does.
func RenderTable(header table.Row, rows []table.Row) {
	tw := table.NewWriter()
	tw.AppendHeader(header)
	for _, row := range rows {
		tw.AppendRow(row)
		tw.AppendSeparator()
	}
	Print("")
	Print(tw.Render())
}

func FormatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("02-01-2006 15:04")
}

// Actor names the local user for the audit trail.
func Actor() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "cli"
}
