// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
	"github.com/stockparfait/alphavantage/av"
	"github.com/stockparfait/alphavantage/export"
	"github.com/stockparfait/alphavantage/params"
	"github.com/stockparfait/alphavantage/table"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	_ "github.com/stockparfait/alphavantage/export/xlsx"
)

// argList collects repeated -arg key=value flags.
type argList params.Args

var _ flag.Value = argList{}

func (a argList) String() string {
	return params.Params(a).String()
}

func (a argList) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return errors.Reason("expected key=value, got '%s'", s)
	}
	a[strings.ToLower(k)] = v
	return nil
}

type Flags struct {
	Config   string // TOML file; default: ~/.alphavantage/config.toml
	Env      string // .env file; default: .env
	LogLevel logging.Level
	// Exactly one of Function, FX, Sectors, Batch or HelpFunction must be
	// present.
	Function     string
	FX           string // FROM/TO currency pair
	Sectors      bool
	Batch        bool
	HelpFunction string // function name, alias, or functions / indicators / aliases
	Symbols      []string
	Args         argList
	Schedule     string // cron spec to repeat the query; default: once
	// Output.
	CSV      bool // print CSV; default: text
	Describe bool // print summary statistics instead of the data
	Rows     int  // print at most this many rows; 0 = all
	// Session overrides, applied only when set explicitly.
	Key        string
	Export     bool
	ExportPath string
	Output     string
	Clean      bool
	Workers    int

	set map[string]bool // flags set on the command line
}

func parseFlags(args []string) (*Flags, error) {
	flags := Flags{Args: argList{}, set: map[string]bool{}}
	fs := flag.NewFlagSet("av-query", flag.ExitOnError)
	fs.StringVar(&flags.Config, "config",
		filepath.Join(os.Getenv("HOME"), ".alphavantage", "config.toml"),
		"TOML config file; optional when the default one does not exist")
	fs.StringVar(&flags.Env, "env", ".env", "file with environment variables, if it exists")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")
	fs.StringVar(&flags.Function, "function", "", "function name or alias")
	fs.StringVar(&flags.FX, "fx", "", "currency exchange rate FROM/TO, e.g. USD/JPY")
	fs.BoolVar(&flags.Sectors, "sectors", false, "query sector performances")
	fs.BoolVar(&flags.Batch, "batch", false, "query batch quotes of -symbols")
	fs.StringVar(&flags.HelpFunction, "help-function", "",
		"print parameters of a function, or the list of: functions, indicators, aliases")
	symbols := fs.String("symbols", "", "comma separated list of symbols")
	fs.Var(flags.Args, "arg", "function parameter key=value (repeated)")
	fs.StringVar(&flags.Schedule, "schedule", "", "cron spec to repeat the query, e.g. '@every 1h'")
	fs.BoolVar(&flags.CSV, "csv", false, "print table in CSV format; default: text")
	fs.BoolVar(&flags.Describe, "describe", false, "print summary statistics of the table")
	fs.IntVar(&flags.Rows, "rows", 0, "print at most this many rows; 0 = all")
	fs.StringVar(&flags.Key, "key", "", "API key; default: config file or "+av.APIKeyEnv)
	fs.BoolVar(&flags.Export, "export", false, "export tables to files")
	fs.StringVar(&flags.ExportPath, "export-path", av.DefaultExportPath, "export directory")
	fs.StringVar(&flags.Output, "output", av.DefaultOutput,
		"export format: "+strings.Join(export.Formats(), ", "))
	fs.BoolVar(&flags.Clean, "clean", false, "simplify column names")
	fs.IntVar(&flags.Workers, "workers", 1, "parallel requests for several symbols")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { flags.set[f.Name] = true })
	for _, s := range strings.Split(*symbols, ",") {
		if s = strings.TrimSpace(s); s != "" {
			flags.Symbols = append(flags.Symbols, s)
		}
	}
	kinds := 0
	for _, ok := range []bool{flags.Function != "", flags.FX != "", flags.Sectors,
		flags.Batch, flags.HelpFunction != ""} {
		if ok {
			kinds++
		}
	}
	if kinds != 1 {
		return nil, errors.Reason(
			"expected exactly one of -function, -fx, -sectors, -batch or -help-function")
	}
	if flags.Batch && len(flags.Symbols) == 0 {
		return nil, errors.Reason("-batch requires -symbols")
	}
	if flags.FX != "" && !strings.Contains(flags.FX, "/") {
		return nil, errors.Reason("-fx must be FROM/TO, got '%s'", flags.FX)
	}
	return &flags, nil
}

// parseConfig reads the session config from the TOML file. A missing file is
// an error only when it was given explicitly.
func parseConfig(flags *Flags) (*av.Config, error) {
	var c av.Config
	f, err := os.Open(flags.Config)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !flags.set["config"] {
			return &c, nil
		}
		return nil, errors.Annotate(err, "cannot open config file '%s'", flags.Config)
	}
	defer f.Close()

	if err := toml.NewDecoder(f).Decode(&c); err != nil {
		return nil, errors.Annotate(err, "failed to read config file %s", flags.Config)
	}
	return &c, nil
}

// sessionConfig merges the config file with the flags set explicitly.
func sessionConfig(flags *Flags) (*av.Config, error) {
	c, err := parseConfig(flags)
	if err != nil {
		return nil, err
	}
	if flags.set["key"] {
		c.APIKey = flags.Key
	}
	if flags.set["export"] {
		c.Export = flags.Export
	}
	if flags.set["export-path"] {
		c.ExportPath = flags.ExportPath
	}
	if flags.set["output"] {
		c.Output = flags.Output
	}
	if flags.set["clean"] {
		c.Clean = flags.Clean
	}
	if flags.set["workers"] {
		c.Workers = flags.Workers
	}
	return c, nil
}

func query(ctx context.Context, c *av.Client, flags *Flags) ([]*av.Result, error) {
	switch {
	case flags.FX != "":
		from, to, _ := strings.Cut(flags.FX, "/")
		r, err := c.FX(ctx, from, to)
		return []*av.Result{r}, err
	case flags.Sectors:
		r, err := c.Sectors(ctx)
		return []*av.Result{r}, err
	case flags.Batch:
		r, err := c.Batch(ctx, flags.Symbols)
		return []*av.Result{r}, err
	}
	return c.DataList(ctx, flags.Function, flags.Symbols, params.Args(flags.Args))
}

func printResult(w io.Writer, r *av.Result, flags *Flags) error {
	if r.Table == nil {
		_, err := io.WriteString(w, r.Text)
		return err
	}
	tbl := r.Table
	if flags.Describe {
		tbl = tbl.Describe()
	}
	p := table.Params{Rows: flags.Rows}
	if flags.CSV {
		if err := tbl.WriteCSV(w, p); err != nil {
			return errors.Annotate(err, "failed to print CSV")
		}
		return nil
	}
	if err := tbl.WriteText(w, p); err != nil {
		return errors.Annotate(err, "failed to print text")
	}
	return nil
}

func printData(ctx context.Context, c *av.Client, flags *Flags, w io.Writer) error {
	results, err := query(ctx, c, flags)
	if err != nil {
		return errors.Annotate(err, "query failed")
	}
	for _, r := range results {
		if len(results) > 1 {
			if _, err := fmt.Fprintf(w, "%s:\n", r.Params.Get(params.Symbol)); err != nil {
				return err
			}
		}
		if err := printResult(w, r, flags); err != nil {
			return err
		}
	}
	return nil
}

// run the query once, or on the schedule until ctx is cancelled.
func run(ctx context.Context, flags *Flags, w io.Writer) error {
	if _, err := os.Stat(flags.Env); err == nil {
		if err := godotenv.Load(flags.Env); err != nil {
			return errors.Annotate(err, "failed to load %s", flags.Env)
		}
	}
	cfg, err := sessionConfig(flags)
	if err != nil {
		return errors.Annotate(err, "failed to configure the session")
	}
	c, err := av.NewClient(*cfg)
	if err != nil {
		return errors.Annotate(err, "failed to create client")
	}
	logging.Debugf(ctx, "%s", c.String())
	if flags.HelpFunction != "" {
		keyword := flags.HelpFunction
		if keyword == "all" {
			keyword = ""
		}
		return c.Help(w, keyword)
	}
	if flags.Schedule == "" {
		return printData(ctx, c, flags, w)
	}

	cr := cron.New()
	if _, err := cr.AddFunc(flags.Schedule, func() {
		if err := printData(ctx, c, flags, w); err != nil {
			logging.Errorf(ctx, "scheduled query failed: %s", err.Error())
		}
	}); err != nil {
		return errors.Annotate(err, "invalid schedule '%s'", flags.Schedule)
	}
	logging.Infof(ctx, "querying on schedule '%s'", flags.Schedule)
	cr.Start()
	<-ctx.Done()
	<-cr.Stop().Done()
	return nil
}

func main() {
	ctx := context.Background()
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if err := run(ctx, flags, os.Stdout); err != nil {
		logging.Errorf(ctx, "%s", err.Error())
		os.Exit(1)
	}
}
