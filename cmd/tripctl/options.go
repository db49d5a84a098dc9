package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kirillkom/itinerary-agent/internal/bootstrap"
	"github.com/kirillkom/itinerary-agent/internal/core/domain"
)

// Options is the root command. The struct tags are read by go-flags.
type Options struct {
	Verbose bool `short:"v" long:"verbose" description:"log agent decisions to stderr"`

	Plan   *PlanCmd   `command:"plan" description:"Plan a trip and print it as JSON"`
	Get    *GetCmd    `command:"get" description:"Print a stored trip (needs POSTGRES_DSN)"`
	Export *ExportCmd `command:"export" description:"Write a stored trip as an xlsx workbook (needs POSTGRES_DSN)"`
}

// Init allocates the sub-command named by the first argument so the parser
// can populate it.
func (o *Options) Init(firstArg string, out io.Writer) {
	switch firstArg {
	case "plan":
		o.Plan = &PlanCmd{root: o, out: out}
	case "get":
		o.Get = &GetCmd{root: o, out: out}
	case "export":
		o.Export = &ExportCmd{root: o, out: out}
	}
}

type PlanCmd struct {
	Origin      string   `short:"o" long:"origin" description:"departure city" required:"true"`
	Destination string   `short:"d" long:"destination" description:"destination city" required:"true"`
	StartDate   string   `long:"start" description:"arrival date YYYY-MM-DD" required:"true"`
	EndDate     string   `long:"end" description:"departure date YYYY-MM-DD" required:"true"`
	Budget      float64  `short:"b" long:"budget" description:"total budget in USD" required:"true"`
	Travelers   int      `short:"t" long:"travelers" description:"number of travelers" default:"1"`
	Interests   []string `short:"i" long:"interest" description:"interest, repeatable and ordered"`
	XLSX        string   `long:"xlsx" description:"also write the itinerary workbook to this path"`

	root *Options
	out  io.Writer
}

func (c *PlanCmd) request() (domain.UserRequest, error) {
	start, err := domain.ParseDate(c.StartDate)
	if err != nil {
		return domain.UserRequest{}, fmt.Errorf("--start: %w", err)
	}
	end, err := domain.ParseDate(c.EndDate)
	if err != nil {
		return domain.UserRequest{}, fmt.Errorf("--end: %w", err)
	}
	interests := make([]string, 0, len(c.Interests))
	for _, interest := range c.Interests {
		for _, part := range strings.Split(interest, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				interests = append(interests, trimmed)
			}
		}
	}
	return domain.UserRequest{
		Origin:      strings.TrimSpace(c.Origin),
		Destination: strings.TrimSpace(c.Destination),
		StartDate:   start,
		EndDate:     end,
		Travelers:   c.Travelers,
		BudgetTotal: c.Budget,
		Interests:   interests,
	}, nil
}

func (c *PlanCmd) Execute(_ []string) error {
	req, err := c.request()
	if err != nil {
		return err
	}
	return withApp(c.root, func(ctx context.Context, app *bootstrap.App) error {
		trip, err := app.TripsUC.Plan(ctx, req)
		if err != nil {
			return err
		}
		if c.XLSX != "" {
			payload, err := app.TripsUC.ExportByID(ctx, trip.ID)
			if err != nil {
				return err
			}
			if err := os.WriteFile(c.XLSX, payload, 0o644); err != nil {
				return fmt.Errorf("write workbook: %w", err)
			}
		}
		return printJSON(outOrStdout(c.out), trip)
	})
}

type GetCmd struct {
	TripID string `long:"id" description:"trip id" required:"true"`

	root *Options
	out  io.Writer
}

func (c *GetCmd) Execute(_ []string) error {
	return withApp(c.root, func(ctx context.Context, app *bootstrap.App) error {
		trip, err := app.TripsUC.GetByID(ctx, strings.TrimSpace(c.TripID))
		if err != nil {
			return err
		}
		return printJSON(outOrStdout(c.out), trip)
	})
}

type ExportCmd struct {
	TripID string `long:"id" description:"trip id" required:"true"`
	Output string `short:"w" long:"out" description:"workbook path" default:"trip.xlsx"`

	root *Options
	out  io.Writer
}

func (c *ExportCmd) Execute(_ []string) error {
	return withApp(c.root, func(ctx context.Context, app *bootstrap.App) error {
		payload, err := app.TripsUC.ExportByID(ctx, strings.TrimSpace(c.TripID))
		if err != nil {
			return err
		}
		if err := os.WriteFile(c.Output, payload, 0o644); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		fmt.Fprintf(outOrStdout(c.out), "wrote %s (%d bytes)\n", c.Output, len(payload))
		return nil
	})
}

func outOrStdout(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
